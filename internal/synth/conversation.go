package synth

import (
	"time"

	"github.com/google/uuid"

	"github.com/adaptive-cs/insights/internal/models"
)

// Defaults are the per-task values Normalize forces or falls back to.
type Defaults struct {
	Company  string
	Context  string
	Channel  string
	Tone     string
	Language string

	// Now anchors generated timestamps; the zero value means time.Now.
	Now time.Time

	// NewID overrides conversation id generation, nil means random UUIDs.
	NewID func() string
}

func (d Defaults) now() time.Time {
	if d.Now.IsZero() {
		return time.Now().UTC()
	}
	return d.Now
}

func (d Defaults) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.New().String()
}

// Normalize repairs a decoded model response into a valid Conversation.
// Company, context, channel, tone, and language are forced from the task;
// everything else keeps the model's value when usable and falls back
// otherwise. Normalizing an already-valid conversation changes nothing.
//
// Repair rules: an empty transcript becomes a two-turn opener, turns are
// renumbered from 1, unknown speakers alternate starting with the customer,
// missing timestamps advance 5 seconds per turn, and the duration is raised
// to at least max((turns-1)*5, 45) seconds.
func Normalize(raw map[string]any, d Defaults) models.Conversation {
	meta := asMap(raw["meta"])
	outc := asMap(raw["outcomes"])

	conv := models.Conversation{
		Meta: models.ConversationMeta{
			ConversationID: asString(meta["conversation_id"], d.newID),
			Company:        d.Company,
			Context:        d.Context,
			Channel:        orDefault(asString(meta["channel"], nil), d.Channel),
			Tone:           orDefault(asString(meta["tone"], nil), d.Tone),
			Language:       orDefault(asString(meta["language"], nil), d.Language),
			CustomerIssue:  asString(meta["customer_issue"], nil),
			CustomerGoal:   asString(meta["customer_goal"], nil),
			AgentGoal:      asString(meta["agent_goal"], nil),
			Resolved:       asBool(meta["resolved"], true),
		},
		Outcomes: models.Outcomes{
			CSATEstimated: asFloat(outc["csat_estimated_1_5"], 3),
			NextAction:    asString(outc["next_action"], nil),
			Summary:       asString(outc["summary"], nil),
		},
	}

	conv.Transcript = normalizeTranscript(asSlice(raw["transcript"]), d.now())
	conv.Meta.NumInteractions = len(conv.Transcript)

	est := (len(conv.Transcript) - 1) * 5
	if est < 45 {
		est = 45
	}
	if given := asInt(meta["duration_sec"], 0); given > est {
		conv.Meta.DurationSec = given
	} else {
		conv.Meta.DurationSec = est
	}

	if v, ok := outc["followup_needed"]; ok {
		conv.Outcomes.FollowupNeeded = asBool(v, false)
	} else {
		conv.Outcomes.FollowupNeeded = !conv.Meta.Resolved
	}
	return conv
}

func normalizeTranscript(raw []any, t0 time.Time) []models.Turn {
	if len(raw) == 0 {
		return []models.Turn{
			{Turn: 1, Speaker: models.SpeakerCustomer, Text: "Hola, ¿me pueden apoyar?", Timestamp: stamp(t0, 0)},
			{Turn: 2, Speaker: models.SpeakerAgent, Text: "Con gusto, ¿puedes compartirme el folio o placas?", Timestamp: stamp(t0, 1)},
		}
	}
	turns := make([]models.Turn, 0, len(raw))
	for i, item := range raw {
		m := asMap(item)
		t := models.Turn{
			Turn:      i + 1,
			Speaker:   asString(m["speaker"], nil),
			Text:      asString(m["text"], nil),
			Timestamp: asString(m["timestamp"], nil),
		}
		if t.Speaker != models.SpeakerCustomer && t.Speaker != models.SpeakerAgent {
			if i%2 == 0 {
				t.Speaker = models.SpeakerCustomer
			} else {
				t.Speaker = models.SpeakerAgent
			}
		}
		if t.Timestamp == "" {
			t.Timestamp = stamp(t0, i)
		}
		turns = append(turns, t)
	}
	return turns
}

func stamp(t0 time.Time, turn int) string {
	return t0.Add(time.Duration(turn) * 5 * time.Second).UTC().Format("2006-01-02T15:04:05") + "Z"
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any, fallback func() string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	if fallback != nil {
		return fallback()
	}
	return ""
}

func asBool(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

func asFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return fallback
}

func asInt(v any, fallback int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return fallback
}
