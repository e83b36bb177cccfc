// Package llm provides the text-completion oracle used by the reasoning
// stages. The oracle is prompt-in, text-out; its output is passed through
// unmodified and never trusted to be correct.
package llm

import "context"

// Role frames a completion request. Name, Goal, and Backstory are rendered
// into the system message so the model answers in character.
type Role struct {
	Name      string
	Goal      string
	Backstory string
}

// Oracle produces a completion for a prompt under a role. Failures are hard
// errors; callers decide whether to degrade or propagate.
type Oracle interface {
	Complete(ctx context.Context, role Role, prompt string) (string, error)
}
