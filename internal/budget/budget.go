// Package budget decides whether a user's rolling spend leaves room for
// another paid AI request.
package budget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/conjugo/gateway/internal/kvstore"
	"github.com/conjugo/gateway/internal/ledger"
)

// Limits holds the per-period spend caps in USD.
type Limits struct {
	Daily   decimal.Decimal `json:"daily"`
	Weekly  decimal.Decimal `json:"weekly"`
	Monthly decimal.Decimal `json:"monthly"`
}

// DefaultLimits apply when the user has not configured their own.
func DefaultLimits() Limits {
	return Limits{
		Daily:   decimal.RequireFromString("1.00"),
		Weekly:  decimal.RequireFromString("5.00"),
		Monthly: decimal.RequireFromString("15.00"),
	}
}

// Decision is the outcome of a budget check. When denied, Period names the
// first breached window in daily -> weekly -> monthly order.
type Decision struct {
	Allowed     bool            `json:"allowed"`
	Reason      string          `json:"reason,omitempty"`
	Period      string          `json:"period,omitempty"`
	CurrentCost decimal.Decimal `json:"current_cost"`
	Limit       decimal.Decimal `json:"limit"`
}

type Gate struct {
	ledger   *ledger.Ledger
	store    kvstore.Store
	defaults Limits
}

func NewGate(l *ledger.Ledger, store kvstore.Store, defaults Limits) *Gate {
	return &Gate{ledger: l, store: store, defaults: defaults}
}

func limitsKey(userID string) string {
	return "budget:" + userID
}

// LimitsFor returns the user's stored overrides merged over the defaults.
// Non-positive override fields fall back to the default for that period.
func (g *Gate) LimitsFor(ctx context.Context, userID string) (Limits, error) {
	effective := g.defaults

	data, err := g.store.Get(ctx, limitsKey(userID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return effective, nil
	}
	if err != nil {
		return Limits{}, fmt.Errorf("failed to load budget limits: %w", err)
	}

	var override Limits
	if err := json.Unmarshal(data, &override); err != nil {
		return Limits{}, fmt.Errorf("failed to decode budget limits: %w", err)
	}

	if override.Daily.IsPositive() {
		effective.Daily = override.Daily
	}
	if override.Weekly.IsPositive() {
		effective.Weekly = override.Weekly
	}
	if override.Monthly.IsPositive() {
		effective.Monthly = override.Monthly
	}
	return effective, nil
}

// SetLimits stores per-user overrides.
func (g *Gate) SetLimits(ctx context.Context, userID string, limits Limits) error {
	data, err := json.Marshal(limits)
	if err != nil {
		return fmt.Errorf("failed to encode budget limits: %w", err)
	}
	if err := g.store.Set(ctx, limitsKey(userID), data); err != nil {
		return fmt.Errorf("failed to persist budget limits: %w", err)
	}
	return nil
}

// Check compares the user's rolling spend against their limits. Periods are
// checked daily, then weekly, then monthly, and the first breach wins so
// the user sees the tightest window in the denial message. A period is
// breached when spend has reached the limit, not only when it exceeds it.
func (g *Gate) Check(ctx context.Context, userID string) (Decision, error) {
	limits, err := g.LimitsFor(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	stats, err := g.ledger.Stats(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	periods := []struct {
		name  string
		cost  decimal.Decimal
		limit decimal.Decimal
	}{
		{"daily", stats.DailyCost, limits.Daily},
		{"weekly", stats.WeeklyCost, limits.Weekly},
		{"monthly", stats.MonthlyCost, limits.Monthly},
	}

	for _, p := range periods {
		if p.cost.GreaterThanOrEqual(p.limit) {
			return Decision{
				Allowed:     false,
				Reason:      fmt.Sprintf("%s budget of $%s reached ($%s spent)", p.name, p.limit, p.cost),
				Period:      p.name,
				CurrentCost: p.cost,
				Limit:       p.limit,
			}, nil
		}
	}

	return Decision{
		Allowed:     true,
		CurrentCost: stats.DailyCost,
		Limit:       limits.Daily,
	}, nil
}
