package ranking

import (
	"math"
	"testing"

	"github.com/adaptive-cs/insights/internal/models"
)

func conv(context, text string, resolved bool, csat float64) models.Conversation {
	return models.Conversation{
		Meta: models.ConversationMeta{Context: context, Resolved: resolved},
		Transcript: []models.Turn{
			{Turn: 1, Speaker: models.SpeakerCustomer, Text: text},
		},
		Outcomes: models.Outcomes{CSATEstimated: csat},
	}
}

func TestDetectIntents(t *testing.T) {
	r := NewRanker(DefaultConfig())

	got := r.DetectIntents("necesito subir mi documentación para el KYC y agendar una cita")
	want := map[string]bool{"kyc_docs": true, "appointment": true}
	if len(got) != len(want) {
		t.Fatalf("intents = %v", got)
	}
	for _, it := range got {
		if !want[it] {
			t.Fatalf("unexpected intent %q in %v", it, got)
		}
	}
}

func TestDetectIntentsCaseInsensitive(t *testing.T) {
	r := NewRanker(DefaultConfig())
	if got := r.DetectIntents("PROBLEMA CON MI GARANTÍA"); len(got) != 1 || got[0] != "warranty_claim" {
		t.Fatalf("intents = %v, want [warranty_claim]", got)
	}
}

func TestBuildRankingPrioritizesUnresolvedFrequentIntents(t *testing.T) {
	convs := []models.Conversation{
		conv("buying", "quiero mi oferta en 24 horas", false, 2),
		conv("buying", "sigo esperando la oferta 24", false, 2),
		conv("buying", "oferta 24 sin respuesta", false, 1),
		conv("service", "quiero agendar una cita", true, 5),
	}
	r := NewRanker(DefaultConfig())

	rows := r.BuildRanking(convs)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Intent != "offer_24h" {
		t.Fatalf("top intent = %q, want offer_24h", rows[0].Intent)
	}
	if rows[0].Score <= rows[1].Score {
		t.Fatalf("scores not ordered: %v", rows)
	}
	if rows[0].UnresolvedRate != 1.0 {
		t.Fatalf("unresolved rate = %v, want 1.0", rows[0].UnresolvedRate)
	}
	if rows[0].AvgCSAT == nil || math.Abs(*rows[0].AvgCSAT-5.0/3.0) > 1e-9 {
		t.Fatalf("avg csat = %v", rows[0].AvgCSAT)
	}
}

func TestBuildRankingSingleIntentGetsNeutralNorms(t *testing.T) {
	convs := []models.Conversation{
		conv("buying", "quiero mi oferta en 24 horas", true, 4),
	}
	r := NewRanker(DefaultConfig())

	rows := r.BuildRanking(convs)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	// Every signal is constant, so each normalizes to 0.5 and the score is
	// half the weight sum.
	w := r.Weights
	want := 0.5 * (w.Frequency + w.Unresolved + w.CSATGap + w.EffortInverse)
	if math.Abs(rows[0].Score-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", rows[0].Score, want)
	}
}

func TestBuildRankingMissingCSATUsesNeutralGap(t *testing.T) {
	convs := []models.Conversation{
		conv("buying", "reembolso por favor", false, 0),
	}
	r := NewRanker(DefaultConfig())

	rows := r.BuildRanking(convs)
	if len(rows) != 1 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[0].AvgCSAT != nil {
		t.Fatalf("avg csat should be missing, got %v", *rows[0].AvgCSAT)
	}
	if rows[0].CSATGap != 0.5 {
		t.Fatalf("csat gap = %v, want neutral 0.5", rows[0].CSATGap)
	}
}

func TestBuildRankingEmpty(t *testing.T) {
	r := NewRanker(DefaultConfig())
	if rows := r.BuildRanking(nil); rows != nil {
		t.Fatalf("rows = %v, want nil", rows)
	}
}

func TestRankByCoverage(t *testing.T) {
	tickets := []models.TicketText{
		{TicketID: "1", Text: "necesito mi documentación kyc"},
		{TicketID: "2", Text: "me falta un comprobante"},
		{TicketID: "3", Text: "quiero negociar un descuento"},
		{TicketID: "4", Text: "clima de hoy"},
	}
	r := NewRanker(DefaultConfig())

	rows := r.RankByCoverage(tickets)
	if len(rows) != 2 {
		t.Fatalf("rows = %+v, want kyc_docs and price_negotiation", rows)
	}
	if rows[0].Intent != "kyc_docs" {
		t.Fatalf("top intent = %q", rows[0].Intent)
	}
	// kyc_docs: coverage 2/4, effort 1 -> 0.7*0.5 + 0.3*1 = 0.65
	if rows[0].Score != 0.65 {
		t.Fatalf("score = %v, want 0.65", rows[0].Score)
	}
	if rows[0].Tickets != 2 || rows[0].Coverage != 0.5 {
		t.Fatalf("row = %+v", rows[0])
	}
	if rows[0].ExampleSnippet == "" {
		t.Fatal("example snippet missing")
	}
}

func TestBuildRankingUnresolvedRateRaisesScore(t *testing.T) {
	r := NewRanker(DefaultConfig())
	base := []models.Conversation{
		conv("buying", "quiero mi oferta en 24 horas", true, 4),
		conv("buying", "sigo esperando la oferta 24", true, 4),
		conv("service", "quiero agendar una cita", true, 4),
	}
	worse := []models.Conversation{
		conv("buying", "quiero mi oferta en 24 horas", false, 4),
		conv("buying", "sigo esperando la oferta 24", true, 4),
		conv("service", "quiero agendar una cita", true, 4),
	}

	scoreOf := func(rows []IntentRank, intent string) float64 {
		for _, row := range rows {
			if row.Intent == intent {
				return row.Score
			}
		}
		t.Fatalf("intent %q missing from %v", intent, rows)
		return 0
	}

	before := scoreOf(r.BuildRanking(base), "offer_24h")
	after := scoreOf(r.BuildRanking(worse), "offer_24h")
	if after < before {
		t.Fatalf("raising unresolved rate lowered the score: %v -> %v", before, after)
	}
}

func TestNormalizeAllEqual(t *testing.T) {
	rows := []IntentRank{{Frequency: 3}, {Frequency: 3}, {Frequency: 3}}
	got := normalize(rows, func(r IntentRank) float64 { return float64(r.Frequency) })
	for _, v := range got {
		if v != 0.5 {
			t.Fatalf("normalized = %v, want all 0.5", got)
		}
	}
}

func TestNormalizeSpansUnitInterval(t *testing.T) {
	rows := []IntentRank{{Frequency: 1}, {Frequency: 3}, {Frequency: 5}}
	got := normalize(rows, func(r IntentRank) float64 { return float64(r.Frequency) })
	if got[0] != 0 || got[1] != 0.5 || got[2] != 1 {
		t.Fatalf("normalized = %v", got)
	}
}
