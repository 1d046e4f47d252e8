// Package ledger persists a rolling log of AI requests per user and derives
// spend over trailing day/week/month windows.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/conjugo/gateway/internal/kvstore"
	"github.com/conjugo/gateway/internal/pricing"
)

const (
	dailyWindow   = 24 * time.Hour
	weeklyWindow  = 7 * 24 * time.Hour
	monthlyWindow = 30 * 24 * time.Hour
)

// UsageRecord is one completed AI request. Records are immutable once
// appended and only ever removed by the 30-day retention prune.
type UsageRecord struct {
	Timestamp    time.Time       `json:"timestamp"`
	Model        string          `json:"model"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	Cost         decimal.Decimal `json:"cost"`
}

// Stats is the persisted ledger state for one user. TotalRequests and
// TotalCost accumulate over the lifetime of the ledger; the windowed costs
// are recomputed from Records on every write.
type Stats struct {
	TotalRequests int64           `json:"total_requests"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	DailyCost     decimal.Decimal `json:"daily_cost"`
	WeeklyCost    decimal.Decimal `json:"weekly_cost"`
	MonthlyCost   decimal.Decimal `json:"monthly_cost"`
	Records       []UsageRecord   `json:"records"`
}

type Ledger struct {
	store kvstore.Store

	// guards the read-modify-write cycle in RecordUsage
	mu  sync.Mutex
	now func() time.Time
}

func New(store kvstore.Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

func usageKey(userID string) string {
	return "usage:" + userID
}

// Stats loads the persisted state for userID, or a zeroed state if none
// exists yet. Store failures other than a missing key propagate.
func (l *Ledger) Stats(ctx context.Context, userID string) (*Stats, error) {
	return l.load(ctx, userID)
}

// RecordUsage prices the request, appends a record stamped "now", refreshes
// the windowed sums, prunes records past the 30-day retention and persists
// the full state. Failure to persist is returned, never swallowed.
//
// Recomputing every window from the record list is O(records) per write;
// at a few thousand records per month that costs nothing and stays correct
// across clock changes.
func (l *Ledger) RecordUsage(ctx context.Context, userID, model string, inputTokens, outputTokens int) (*Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	cost := pricing.Cost(model, inputTokens, outputTokens)

	stats.Records = append(stats.Records, UsageRecord{
		Timestamp:    now,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
	})
	stats.TotalRequests++
	stats.TotalCost = stats.TotalCost.Add(cost)

	retained := stats.Records[:0]
	cutoff := now.Add(-monthlyWindow)
	for _, r := range stats.Records {
		if r.Timestamp.After(cutoff) {
			retained = append(retained, r)
		}
	}
	stats.Records = retained

	stats.DailyCost = windowCost(stats.Records, now, dailyWindow)
	stats.WeeklyCost = windowCost(stats.Records, now, weeklyWindow)
	stats.MonthlyCost = windowCost(stats.Records, now, monthlyWindow)

	data, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("failed to encode usage stats: %w", err)
	}
	if err := l.store.Set(ctx, usageKey(userID), data); err != nil {
		return nil, fmt.Errorf("failed to persist usage stats: %w", err)
	}

	return stats, nil
}

// Reset clears all persisted usage data for userID unconditionally.
func (l *Ledger) Reset(ctx context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Delete(ctx, usageKey(userID)); err != nil {
		return fmt.Errorf("failed to reset usage stats: %w", err)
	}
	return nil
}

func (l *Ledger) load(ctx context.Context, userID string) (*Stats, error) {
	data, err := l.store.Get(ctx, usageKey(userID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return &Stats{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load usage stats: %w", err)
	}

	var stats Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode usage stats: %w", err)
	}
	return &stats, nil
}

func windowCost(records []UsageRecord, now time.Time, window time.Duration) decimal.Decimal {
	cutoff := now.Add(-window)
	sum := decimal.Zero
	for _, r := range records {
		if r.Timestamp.After(cutoff) {
			sum = sum.Add(r.Cost)
		}
	}
	return sum
}
