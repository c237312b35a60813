// Package oracle wraps the external LLM completion service. The service is a
// black box: callers hand it role-tagged text blocks and get one text
// completion back, with no guarantee the result is valid JSON even when JSON
// was requested. Every caller parses defensively.
package oracle

import "context"

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string
	Content string
}

type Request struct {
	Messages  []Message
	Model     string
	ForceJSON bool
}

type Oracle interface {
	Complete(ctx context.Context, req Request) (string, error)
}
