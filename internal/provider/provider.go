package provider

import (
	"context"
	"fmt"
)

// Request carries a single sentence-correction prompt to a vendor API.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Response is the vendor's reply. Token counts are zero when the vendor
// does not report usage; callers estimate in that case.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Model        string
}

type Provider interface {
	Send(ctx context.Context, req *Request) (*Response, error)
	Name() string
}

// APIError is a non-2xx vendor response. The orchestrator maps status codes
// to user-facing failure categories (401 invalid credential, 429 provider
// rate limited, anything else a provider error).
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider api error (status %d): %s", e.Status, e.Message)
}
