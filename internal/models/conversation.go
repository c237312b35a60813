package models

// Speaker labels on synthetic transcripts. The generated datasets keep the
// product's Spanish wire values.
const (
	SpeakerCustomer = "cliente"
	SpeakerAgent    = "agente"
)

// Conversation is a fully populated synthetic support dialogue. Values of
// this type always satisfy the transcript invariants: turns numbered 1..N,
// speakers alternating where the model left them blank, duration at least
// max((turns-1)*5, 45) seconds.
type Conversation struct {
	Meta       ConversationMeta `json:"meta"`
	Transcript []Turn           `json:"transcript"`
	Outcomes   Outcomes         `json:"outcomes"`
}

type ConversationMeta struct {
	ConversationID  string `json:"conversation_id"`
	Company         string `json:"company"`
	Context         string `json:"context"`
	Channel         string `json:"channel"`
	Tone            string `json:"tone"`
	Language        string `json:"language"`
	CustomerIssue   string `json:"customer_issue"`
	CustomerGoal    string `json:"customer_goal"`
	AgentGoal       string `json:"agent_goal"`
	Resolved        bool   `json:"resolved"`
	NumInteractions int    `json:"num_interactions"`
	DurationSec     int    `json:"duration_sec"`
}

type Turn struct {
	Turn      int    `json:"turn"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type Outcomes struct {
	CSATEstimated  float64 `json:"csat_estimated_1_5"`
	NextAction     string  `json:"next_action"`
	FollowupNeeded bool    `json:"followup_needed"`
	Summary        string  `json:"summary"`
}
