// Package reasoning is the adapter in front of the external reasoning
// capability. Every call is independent and carries its full context; the
// client adds the retry policy, a client-side rate limit and a per-request
// timeout on top of a provider Backend.
package reasoning

import "context"

// Format is the structured-output hint attached to a request.
type Format string

const (
	// FormatJSONObject asks for a single JSON object and nothing else.
	FormatJSONObject Format = "json_object"
	// FormatText places no constraint on the response.
	FormatText Format = "text"
)

// Request is one call to the reasoning capability.
type Request struct {
	// Stage names the calling stage for logs and metrics.
	Stage string
	// System is the role instruction.
	System string
	// Prompt is the user payload built by the stage.
	Prompt string
	// Format is the structured-output hint.
	Format Format
	// MaxTokens bounds the response size.
	MaxTokens int
	// Temperature is the sampling temperature.
	Temperature float64
}

// Response is the raw text returned by the capability.
type Response struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
	// Attempts is the number of calls it took to get this response.
	Attempts int
}

// Backend is a provider of the reasoning capability. Implementations mark
// overload and rate-limit failures with MarkTransient; every other error is
// treated as fatal.
type Backend interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
}

// Invoker is what stages depend on: one request in, one raw response out.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}

// jsonHint is appended to the system instruction for backends without a
// native JSON mode.
const jsonHint = "Respond with a single valid JSON object and nothing else: no prose, no markdown fences."

// systemWithHint returns the system instruction with the format hint applied.
func systemWithHint(req Request) string {
	if req.Format != FormatJSONObject {
		return req.System
	}
	if req.System == "" {
		return jsonHint
	}
	return req.System + "\n\n" + jsonHint
}
