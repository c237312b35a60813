package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"

	"github.com/adaptive-cs/insights/internal/dataset"
	"github.com/adaptive-cs/insights/internal/models"
	"github.com/adaptive-cs/insights/internal/oracle"
)

// ToolProposal is a ranked tool with its sketch attached, ready for review.
type ToolProposal struct {
	ToolName     string   `json:"tool_name"`
	Intent       string   `json:"intent"`
	Tickets      int      `json:"tickets"`
	Coverage     float64  `json:"coverage"`
	EffortEst    int      `json:"effort_est_1_3"`
	Score        float64  `json:"score"`
	Pitch        string   `json:"pitch"`
	APIEndpoints []string `json:"api_endpoints"`
}

// BuildToolProposals attaches sketches to the top ranked intents.
func BuildToolProposals(ranks []CoverageRank, cfg Config, topK int) []ToolProposal {
	if topK <= 0 {
		topK = 8
	}
	proposals := make([]ToolProposal, 0, topK)
	for i, row := range ranks {
		if i == topK {
			break
		}
		sketch := cfg.ToolSketch[row.ToolName]
		proposals = append(proposals, ToolProposal{
			ToolName:     row.ToolName,
			Intent:       row.Intent,
			Tickets:      row.Tickets,
			Coverage:     row.Coverage,
			EffortEst:    row.EffortEst,
			Score:        row.Score,
			Pitch:        sketch.Pitch,
			APIEndpoints: sketch.Endpoints,
		})
	}
	return proposals
}

// PromptPatch carries proposed system and user prompt revisions.
type PromptPatch struct {
	SystemPatch string `json:"system_patch"`
	UserPatch   string `json:"user_patch"`
	Rationale   string `json:"rationale"`
}

// CodePatch is one proposed code change with its expected impact.
type CodePatch struct {
	Title  string `json:"title"`
	Patch  string `json:"patch"`
	Impact string `json:"impact"`
	Risk   string `json:"risk"`
}

// ConfigUpdate is the result of asking the LLM to extend the intent table
// from real ticket text.
type ConfigUpdate struct {
	Config      Config      `json:"config"`
	PromptPatch PromptPatch `json:"prompt_patch"`
	CodePatches []CodePatch `json:"code_patches"`
}

func fallbackPromptPatch(rationale string) PromptPatch {
	return PromptPatch{
		SystemPatch: "Eres un agente de Kavak. Mantén claridad, empatía y cumplimiento (KYC/garantía/crédito).",
		UserPatch:   "Contexto: {contexto}. Tono: {tono}. Idioma: {idioma}. Canal: {canal}.",
		Rationale:   rationale,
	}
}

const configUpdateSystem = "Eres un arquitecto de conversación y producto para Kavak. " +
	"Analizas conversaciones reales y propones: (1) patrones de intención (regex), " +
	"(2) mapeo intención→herramienta, (3) esfuerzo 1..3, (4) bosquejos de herramientas " +
	"(pitch + endpoints), y (5) parches de prompts y (6) sugerencias de cambios de código. " +
	"Debes devolver SOLO JSON válido con el esquema solicitado."

// UpdateConfig asks the oracle to extend the intent table from sample ticket
// text and merges the answer defensively into base. With no ticket text the
// base config is returned untouched with a default prompt patch. A transport
// failure propagates; an unparseable answer degrades to the base config.
func UpdateConfig(ctx context.Context, o oracle.Oracle, rng *rand.Rand, tickets []models.TicketText, base Config) (ConfigUpdate, error) {
	if len(tickets) == 0 {
		return ConfigUpdate{
			Config:      base,
			PromptPatch: fallbackPromptPatch("Sin datos, se mantienen defaults."),
			CodePatches: []CodePatch{},
		}, nil
	}

	payload := map[string]any{
		"examples":       sampleTexts(rng, tickets, 12, 800),
		"current_config": base,
		"instructions":   "Devuelve SOLO JSON; no uses markdown ni fences. Claves: intent_patterns, intent_to_tool, effort_defaults, tool_sketch, prompt_patch, code_patches.",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ConfigUpdate{}, fmt.Errorf("marshal config update payload: %w", err)
	}

	raw, err := o.Complete(ctx, oracle.Request{
		Messages: []oracle.Message{
			{Role: oracle.RoleSystem, Content: configUpdateSystem},
			{Role: oracle.RoleUser, Content: string(body)},
		},
		ForceJSON: true,
	})
	if err != nil {
		return ConfigUpdate{}, fmt.Errorf("config update completion: %w", err)
	}

	var proposed struct {
		Config
		PromptPatch *PromptPatch `json:"prompt_patch"`
		CodePatches []CodePatch  `json:"code_patches"`
	}
	// An unparseable answer leaves proposed zero-valued and the merge
	// returns base unchanged.
	_ = json.Unmarshal([]byte(oracle.StripFences(raw)), &proposed)

	update := ConfigUpdate{
		Config:      Merge(base, proposed.Config),
		CodePatches: proposed.CodePatches,
	}
	if proposed.PromptPatch != nil && *proposed.PromptPatch != (PromptPatch{}) {
		update.PromptPatch = *proposed.PromptPatch
	} else {
		update.PromptPatch = fallbackPromptPatch("Fallback: el modelo no devolvió patch.")
	}
	if update.CodePatches == nil {
		update.CodePatches = []CodePatch{}
	}
	return update, nil
}

// SuggestedTool is one tool idea from the improvement-suggestion flow.
type SuggestedTool struct {
	Name      string `json:"name"`
	Why       string `json:"why"`
	APISketch string `json:"api_sketch"`
	Effort    int    `json:"effort_1_3"`
}

type EvaluationPlan struct {
	Metrics         []string `json:"metrics"`
	OfflineProtocol string   `json:"offline_protocol"`
	OnlineProtocol  string   `json:"online_protocol"`
	SuccessCriteria string   `json:"success_criteria"`
}

// Suggestions is the full improvement proposal derived from a dataset.
type Suggestions struct {
	PromptChanges  PromptPatch     `json:"prompt_changes"`
	CodeChanges    []CodePatch     `json:"code_changes"`
	Tools          []SuggestedTool `json:"tools"`
	EvaluationPlan EvaluationPlan  `json:"evaluation_plan"`
	Risks          []string        `json:"risks"`
}

const suggestionsSystem = "Eres un arquitecto de conversación y plataforma para Kavak. " +
	"Analizas registros de soporte/ventas y propones mejoras en prompt y código. " +
	"Cumple KYC/garantías/crédito. Responde SOLO JSON válido."

// SuggestionTargets anchors the suggestion payload with the quality bars
// the proposals should move toward.
type SuggestionTargets struct {
	CSAT     float64 `json:"target_csat"`
	MaxTurns int     `json:"max_turns"`
}

// Suggest sends the dataset's aggregate plus its most problematic samples
// (worst CSAT, unresolved, longest) to the oracle and parses the returned
// improvement plan. Transport and parse failures both propagate: this flow
// has no useful local fallback.
func Suggest(ctx context.Context, o oracle.Oracle, convs []models.Conversation, targets SuggestionTargets) (Suggestions, error) {
	payload := map[string]any{
		"current_aggregates": dataset.Summarize(convs),
		"samples": map[string]any{
			"worst_csat": compactConvs(worstCSAT(convs, 8)),
			"unresolved": compactConvs(unresolvedConvs(convs, 8)),
			"long_turns": compactConvs(longestConvs(convs, 6)),
		},
		"targets":      targets,
		"instructions": "Devuelve SOLO JSON con las claves prompt_changes, code_changes, tools, evaluation_plan y risks. Cambios concretos en PROMPT (system/user) y CÓDIGO (patches).",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Suggestions{}, fmt.Errorf("marshal suggestion payload: %w", err)
	}

	raw, err := o.Complete(ctx, oracle.Request{
		Messages: []oracle.Message{
			{Role: oracle.RoleSystem, Content: suggestionsSystem},
			{Role: oracle.RoleUser, Content: string(body)},
		},
		ForceJSON: true,
	})
	if err != nil {
		return Suggestions{}, fmt.Errorf("suggestion completion: %w", err)
	}

	var out Suggestions
	if err := json.Unmarshal([]byte(oracle.StripFences(raw)), &out); err != nil {
		return Suggestions{}, fmt.Errorf("parse suggestions: %w", err)
	}
	return out, nil
}

type compactConv struct {
	ConversationID string        `json:"conversation_id"`
	Context        string        `json:"context"`
	Resolved       bool          `json:"resolved"`
	CSAT           float64       `json:"csat"`
	Turns          int           `json:"turns"`
	DurationSec    int           `json:"duration_sec"`
	Excerpt        []compactTurn `json:"excerpt"`
}

type compactTurn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

func compactConvs(convs []models.Conversation) []compactConv {
	out := make([]compactConv, 0, len(convs))
	for _, c := range convs {
		ex := c.Transcript
		if len(ex) > 3 {
			ex = ex[:3]
		}
		cc := compactConv{
			ConversationID: c.Meta.ConversationID,
			Context:        c.Meta.Context,
			Resolved:       c.Meta.Resolved,
			CSAT:           c.Outcomes.CSATEstimated,
			Turns:          len(c.Transcript),
			DurationSec:    c.Meta.DurationSec,
		}
		for _, t := range ex {
			cc.Excerpt = append(cc.Excerpt, compactTurn{Speaker: t.Speaker, Text: t.Text})
		}
		out = append(out, cc)
	}
	return out
}

func worstCSAT(convs []models.Conversation, k int) []models.Conversation {
	var scored []models.Conversation
	for _, c := range convs {
		if c.Outcomes.CSATEstimated >= 1 {
			scored = append(scored, c)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Outcomes.CSATEstimated < scored[j].Outcomes.CSATEstimated
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

func unresolvedConvs(convs []models.Conversation, k int) []models.Conversation {
	var out []models.Conversation
	for _, c := range convs {
		if !c.Meta.Resolved {
			out = append(out, c)
			if len(out) == k {
				break
			}
		}
	}
	return out
}

func longestConvs(convs []models.Conversation, k int) []models.Conversation {
	sorted := make([]models.Conversation, len(convs))
	copy(sorted, convs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Transcript) > len(sorted[j].Transcript)
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

// sampleTexts draws up to k distinct ticket texts, truncated to maxRunes.
func sampleTexts(rng *rand.Rand, tickets []models.TicketText, k, maxRunes int) []string {
	idx := rng.Perm(len(tickets))
	if len(idx) > k {
		idx = idx[:k]
	}
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		text := tickets[i].Text
		if r := []rune(text); len(r) > maxRunes {
			text = string(r[:maxRunes])
		}
		out = append(out, text)
	}
	return out
}
