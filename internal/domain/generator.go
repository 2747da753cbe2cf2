package domain

import "context"

// Generator is the opaque text generation capability consumed by the agent.
// The call blocks until the provider responds or ctx expires; callers bound
// it with a deadline. Deadline expiry surfaces as a transient
// GenerationError rather than a hang.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
