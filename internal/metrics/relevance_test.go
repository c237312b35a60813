package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/adaptive-cs/insights/internal/models"
)

func twoReplyConversation() models.TicketConversation {
	return models.TicketConversation{
		TicketID: "t1",
		Title:    "Duda de garantía",
		Category: "warranty",
		Messages: []models.Message{
			userMsg("¿Mi garantía cubre fallas eléctricas?"),
			botMsg("Sí, la garantía cubre fallas eléctricas durante 7 días o 500km."),
			userMsg("¿Y después de ese plazo?"),
			botMsg("Después aplica la garantía extendida si la contrataste."),
		},
	}
}

func TestEvaluateTicketRelevanceAverages(t *testing.T) {
	store := &fakeStore{conversations: map[string]models.TicketConversation{"t1": twoReplyConversation()}}
	o := &scriptedOracle{replies: []string{
		`{"score": 4, "razon": "completa", "mejora": "ninguna"}`,
		`{"score": 2, "razon": "vaga", "mejora": "citar la política"}`,
	}}
	ev := newTestEvaluator(store, o)

	res, err := ev.EvaluateTicketRelevance(context.Background(), "t1")
	if err != nil {
		t.Fatalf("EvaluateTicketRelevance: %v", err)
	}
	if res.BotReplies != 2 {
		t.Fatalf("bot replies = %d, want 2", res.BotReplies)
	}
	if res.Average != 3.0 {
		t.Fatalf("average = %v, want 3.0", res.Average)
	}
	if res.Evaluations[0].ReplyNum != 1 || res.Evaluations[1].ReplyNum != 2 {
		t.Fatalf("reply numbering wrong: %+v", res.Evaluations)
	}
	if res.Evaluations[1].Improvement != "citar la política" {
		t.Fatalf("improvement = %q", res.Evaluations[1].Improvement)
	}
}

func TestEvaluateTicketRelevanceNotFound(t *testing.T) {
	store := &fakeStore{conversations: map[string]models.TicketConversation{}}
	ev := newTestEvaluator(store, &scriptedOracle{replies: []string{`{"score": 5}`}})

	_, err := ev.EvaluateTicketRelevance(context.Background(), "missing")
	if !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("err = %v, want ErrTicketNotFound", err)
	}
}

func TestEvaluateTicketRelevanceFallbackOnBadJSON(t *testing.T) {
	store := &fakeStore{conversations: map[string]models.TicketConversation{"t1": twoReplyConversation()}}
	o := &scriptedOracle{replies: []string{"lo siento, no puedo evaluar eso"}}
	ev := newTestEvaluator(store, o)

	res, err := ev.EvaluateTicketRelevance(context.Background(), "t1")
	if err != nil {
		t.Fatalf("EvaluateTicketRelevance: %v", err)
	}
	for _, e := range res.Evaluations {
		if e.Score != fallbackScore {
			t.Fatalf("score = %v, want fallback %d", e.Score, fallbackScore)
		}
	}
	if res.Average != fallbackScore {
		t.Fatalf("average = %v, want %d", res.Average, fallbackScore)
	}
}

func TestEvaluateTicketRelevanceFallbackOnTransportError(t *testing.T) {
	store := &fakeStore{conversations: map[string]models.TicketConversation{"t1": twoReplyConversation()}}
	ev := newTestEvaluator(store, &scriptedOracle{fail: true})

	res, err := ev.EvaluateTicketRelevance(context.Background(), "t1")
	if err != nil {
		t.Fatalf("transport failure must degrade, got error: %v", err)
	}
	if res.Average != fallbackScore {
		t.Fatalf("average = %v, want fallback", res.Average)
	}
}

func TestEvaluateTicketRelevanceClampsScore(t *testing.T) {
	store := &fakeStore{conversations: map[string]models.TicketConversation{"t1": {
		TicketID: "t1",
		Messages: []models.Message{userMsg("hola"), botMsg("respuesta")},
	}}}
	o := &scriptedOracle{replies: []string{`{"score": 11, "razon": "", "mejora": ""}`}}
	ev := newTestEvaluator(store, o)

	res, err := ev.EvaluateTicketRelevance(context.Background(), "t1")
	if err != nil {
		t.Fatalf("EvaluateTicketRelevance: %v", err)
	}
	if res.Evaluations[0].Score != 5 {
		t.Fatalf("score = %v, want clamped 5", res.Evaluations[0].Score)
	}
}

func TestEvaluateTicketRelevanceNoBotReplies(t *testing.T) {
	store := &fakeStore{conversations: map[string]models.TicketConversation{"t1": {
		TicketID: "t1",
		Messages: []models.Message{userMsg("hola"), userMsg("¿hay alguien?")},
	}}}
	ev := newTestEvaluator(store, &scriptedOracle{replies: []string{`{"score": 5}`}})

	res, err := ev.EvaluateTicketRelevance(context.Background(), "t1")
	if err != nil {
		t.Fatalf("EvaluateTicketRelevance: %v", err)
	}
	if res.Average != 0 || res.BotReplies != 0 || len(res.Evaluations) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestJudgePromptStripsFencesAndEmbedsContext(t *testing.T) {
	store := &fakeStore{conversations: map[string]models.TicketConversation{"t1": twoReplyConversation()}}
	o := &scriptedOracle{replies: []string{"```json\n{\"score\": 5, \"razon\": \"ok\", \"mejora\": \"ninguna\"}\n```"}}
	ev := newTestEvaluator(store, o)

	res, err := ev.EvaluateTicketRelevance(context.Background(), "t1")
	if err != nil {
		t.Fatalf("EvaluateTicketRelevance: %v", err)
	}
	if res.Evaluations[0].Score != 5 {
		t.Fatalf("fenced verdict not parsed: %+v", res.Evaluations[0])
	}

	prompt := ev.judgePrompt("pregunta", "respuesta", twoReplyConversation())
	for _, want := range []string{"Duda de garantía", "warranty", "pregunta", "respuesta", "escala 1-5"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}
