package evaluator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotASentence        = errors.New("input does not look like a sentence")
	ErrNoAPIKey            = errors.New("no api key configured for the active provider")
	ErrInvalidCredential   = errors.New("provider rejected the configured api key")
	ErrProviderRateLimited = errors.New("provider rate limit hit")
	ErrProviderTimeout     = errors.New("provider call timed out")
)

// RateLimitedError reports a session rate-limit denial with a countdown hint.
type RateLimitedError struct {
	Reason      string
	WaitSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: %s (retry in %ds)", e.Reason, e.WaitSeconds)
}

// BudgetExceededError reports which spend window is exhausted.
type BudgetExceededError struct {
	Reason      string
	Period      string
	CurrentCost decimal.Decimal
	Limit       decimal.Decimal
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: %s", e.Reason)
}

// ProviderCallError is a non-2xx vendor response that is neither a
// credential problem nor vendor-side throttling.
type ProviderCallError struct {
	Status  int
	Message string
}

func (e *ProviderCallError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
}
