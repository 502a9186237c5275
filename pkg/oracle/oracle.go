// Package oracle wraps the external text-generation service used for task
// execution, rubric scoring, analysis and recomposition. All four concerns
// share one contract: a prompt in, text and a duration out, or a typed
// failure.
package oracle

import (
	"context"
	"time"
)

// GenerateRequest describes one generation call.
type GenerateRequest struct {
	// Prompt is the user-facing prompt text.
	Prompt string

	// SystemInstructions is optional system context (a skill's content when
	// executing a case, empty for plain calls).
	SystemInstructions string

	// WorkDir is the isolated working path the call runs under.
	WorkDir string

	// Timeout bounds the call. Zero means no deadline beyond the context's.
	Timeout time.Duration
}

// GenerateResponse is the successful outcome of a generation call.
type GenerateResponse struct {
	Text     string
	Duration time.Duration
}

// Client is the generation oracle. Implementations must return either a
// non-nil response or an *Error carrying one of the defined codes.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}
