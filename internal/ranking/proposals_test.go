package ranking

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/adaptive-cs/insights/internal/models"
	"github.com/adaptive-cs/insights/internal/oracle"
)

type cannedOracle struct {
	reply string
	err   error
	last  oracle.Request
}

func (c *cannedOracle) Complete(_ context.Context, req oracle.Request) (string, error) {
	c.last = req
	return c.reply, c.err
}

func TestBuildToolProposals(t *testing.T) {
	cfg := DefaultConfig()
	ranks := []CoverageRank{
		{Intent: "offer_24h", ToolName: "OfferIn24 Orchestrator", Tickets: 4, Coverage: 0.4, EffortEst: 3, Score: 0.38},
		{Intent: "kyc_docs", ToolName: "Doc & KYC Collector", Tickets: 2, Coverage: 0.2, EffortEst: 1, Score: 0.44},
	}

	proposals := BuildToolProposals(ranks, cfg, 1)
	if len(proposals) != 1 {
		t.Fatalf("proposals = %d, want topK cap of 1", len(proposals))
	}
	if proposals[0].ToolName != "OfferIn24 Orchestrator" {
		t.Fatalf("tool = %q", proposals[0].ToolName)
	}
	if proposals[0].Pitch == "" || len(proposals[0].APIEndpoints) == 0 {
		t.Fatalf("sketch not attached: %+v", proposals[0])
	}
}

func TestBuildToolProposalsWithoutSketch(t *testing.T) {
	ranks := []CoverageRank{{Intent: "refund", ToolName: "Refund Request Wizard", Score: 0.2}}
	proposals := BuildToolProposals(ranks, DefaultConfig(), 8)
	if len(proposals) != 1 || proposals[0].Pitch != "" {
		t.Fatalf("unsketched tool must still be proposed: %+v", proposals)
	}
}

func TestUpdateConfigNoData(t *testing.T) {
	base := DefaultConfig()
	update, err := UpdateConfig(context.Background(), &cannedOracle{}, rand.New(rand.NewSource(1)), nil, base)
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if len(update.Config.IntentPatterns) != len(base.IntentPatterns) {
		t.Fatal("empty input must keep the base config")
	}
	if update.PromptPatch.SystemPatch == "" {
		t.Fatal("empty input must still carry the default prompt patch")
	}
}

func TestUpdateConfigMergesAnswer(t *testing.T) {
	o := &cannedOracle{reply: `{
		"intent_patterns": {"insurance": ["seguro"]},
		"intent_to_tool": {"insurance": "Insurance Advisor"},
		"effort_defaults": {"insurance": 2},
		"tool_sketch": {},
		"prompt_patch": {"system_patch": "s", "user_patch": "u", "rationale": "r"},
		"code_patches": [{"title": "t", "patch": "p", "impact": "i", "risk": "low"}]
	}`}
	tickets := []models.TicketText{{TicketID: "1", Text: "quiero un seguro"}}

	update, err := UpdateConfig(context.Background(), o, rand.New(rand.NewSource(1)), tickets, DefaultConfig())
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if update.Config.IntentToTool["insurance"] != "Insurance Advisor" {
		t.Fatalf("merge missed the new intent: %+v", update.Config.IntentToTool)
	}
	if update.PromptPatch.Rationale != "r" {
		t.Fatalf("prompt patch = %+v", update.PromptPatch)
	}
	if len(update.CodePatches) != 1 || update.CodePatches[0].Risk != "low" {
		t.Fatalf("code patches = %+v", update.CodePatches)
	}
	if !o.last.ForceJSON {
		t.Fatal("config update must request JSON output")
	}
}

func TestUpdateConfigUnparseableAnswerKeepsBase(t *testing.T) {
	o := &cannedOracle{reply: "no puedo ayudar con eso"}
	tickets := []models.TicketText{{TicketID: "1", Text: "hola"}}

	update, err := UpdateConfig(context.Background(), o, rand.New(rand.NewSource(1)), tickets, DefaultConfig())
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if len(update.Config.IntentPatterns) != 12 {
		t.Fatal("unparseable answer must degrade to the base config")
	}
	if update.PromptPatch.SystemPatch == "" {
		t.Fatal("fallback prompt patch missing")
	}
}

func TestUpdateConfigTransportErrorPropagates(t *testing.T) {
	o := &cannedOracle{err: errors.New("boom")}
	tickets := []models.TicketText{{TicketID: "1", Text: "hola"}}
	if _, err := UpdateConfig(context.Background(), o, rand.New(rand.NewSource(1)), tickets, DefaultConfig()); err == nil {
		t.Fatal("transport error must propagate")
	}
}

func TestSuggest(t *testing.T) {
	o := &cannedOracle{reply: "```json\n" + `{
		"prompt_changes": {"system_patch": "s", "user_patch": "u", "rationale": "r"},
		"code_changes": [],
		"tools": [{"name": "Refund Wizard", "why": "w", "api_sketch": "GET /refunds", "effort_1_3": 2}],
		"evaluation_plan": {"metrics": ["csat"], "offline_protocol": "", "online_protocol": "", "success_criteria": ""},
		"risks": ["alucinaciones"]
	}` + "\n```"}

	convs := []models.Conversation{
		{
			Meta:       models.ConversationMeta{ConversationID: "c1", Context: "buying", Resolved: false, DurationSec: 60},
			Transcript: []models.Turn{{Turn: 1, Speaker: "cliente", Text: "hola"}},
			Outcomes:   models.Outcomes{CSATEstimated: 2},
		},
	}

	got, err := Suggest(context.Background(), o, convs, SuggestionTargets{CSAT: 4.5, MaxTurns: 12})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got.Tools) != 1 || got.Tools[0].Effort != 2 {
		t.Fatalf("tools = %+v", got.Tools)
	}
	if got.PromptChanges.SystemPatch != "s" {
		t.Fatalf("prompt changes = %+v", got.PromptChanges)
	}
}

func TestSuggestUnparseableAnswerFails(t *testing.T) {
	o := &cannedOracle{reply: "texto libre"}
	if _, err := Suggest(context.Background(), o, nil, SuggestionTargets{}); err == nil {
		t.Fatal("unparseable suggestions must fail")
	}
}
