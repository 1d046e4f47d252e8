package budget

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conjugo/gateway/internal/kvstore"
	"github.com/conjugo/gateway/internal/ledger"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedSpend writes usage stats directly so tests control the windowed sums.
func seedSpend(t *testing.T, store kvstore.Store, userID, daily, weekly, monthly string) {
	t.Helper()
	state := []byte(`{
		"total_requests": 3,
		"total_cost": "` + monthly + `",
		"daily_cost": "` + daily + `",
		"weekly_cost": "` + weekly + `",
		"monthly_cost": "` + monthly + `",
		"records": []
	}`)
	require.NoError(t, store.Set(context.Background(), "usage:"+userID, state))
}

func newGate(store kvstore.Store) *Gate {
	return NewGate(ledger.New(store), store, DefaultLimits())
}

func TestCheck_AllowsUnderAllLimits(t *testing.T) {
	store := kvstore.NewMemoryStore()
	seedSpend(t, store, "u1", "0.50", "2.00", "8.00")

	d, err := newGate(store).Check(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Period)
}

func TestCheck_FreshUserAllowed(t *testing.T) {
	store := kvstore.NewMemoryStore()

	d, err := newGate(store).Check(context.Background(), "new-user")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCheck_DailyBreachReportedFirst(t *testing.T) {
	store := kvstore.NewMemoryStore()
	// all three windows breached; the daily one must be reported
	seedSpend(t, store, "u1", "1.00", "5.00", "15.00")

	d, err := newGate(store).Check(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "daily", d.Period)
	assert.Contains(t, d.Reason, "daily")
	assert.True(t, d.Limit.Equal(dec("1.00")))
	assert.True(t, d.CurrentCost.Equal(dec("1.00")))
}

func TestCheck_BreachIsInclusive(t *testing.T) {
	store := kvstore.NewMemoryStore()
	// exactly at the daily limit: the limit itself blocks further spend
	seedSpend(t, store, "u1", "1.00", "1.00", "1.00")

	d, err := newGate(store).Check(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "daily", d.Period)
}

func TestCheck_WeeklyBreach(t *testing.T) {
	store := kvstore.NewMemoryStore()
	seedSpend(t, store, "u1", "0.10", "5.00", "6.00")

	d, err := newGate(store).Check(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "weekly", d.Period)
}

func TestCheck_MonthlyBreach(t *testing.T) {
	store := kvstore.NewMemoryStore()
	seedSpend(t, store, "u1", "0.10", "2.00", "15.00")

	d, err := newGate(store).Check(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "monthly", d.Period)
}

func TestLimitsFor_DefaultsWhenUnset(t *testing.T) {
	store := kvstore.NewMemoryStore()

	limits, err := newGate(store).LimitsFor(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, limits.Daily.Equal(dec("1.00")))
	assert.True(t, limits.Weekly.Equal(dec("5.00")))
	assert.True(t, limits.Monthly.Equal(dec("15.00")))
}

func TestSetLimits_OverridesMergeOverDefaults(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	gate := newGate(store)

	// only a daily override; weekly/monthly stay at defaults
	require.NoError(t, gate.SetLimits(ctx, "u1", Limits{Daily: dec("0.25")}))

	limits, err := gate.LimitsFor(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, limits.Daily.Equal(dec("0.25")))
	assert.True(t, limits.Weekly.Equal(dec("5.00")))
	assert.True(t, limits.Monthly.Equal(dec("15.00")))
}

func TestCheck_HonorsOverride(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	gate := newGate(store)
	seedSpend(t, store, "u1", "0.30", "0.30", "0.30")

	require.NoError(t, gate.SetLimits(ctx, "u1", Limits{Daily: dec("0.25")}))

	d, err := gate.Check(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "daily", d.Period)
	assert.True(t, d.Limit.Equal(dec("0.25")))
}

func TestCheck_BudgetGrowsWithLedgerWrites(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	l := ledger.New(store)
	gate := NewGate(l, store, Limits{
		Daily:   dec("0.0001"),
		Weekly:  dec("1.00"),
		Monthly: dec("1.00"),
	})

	d, err := gate.Check(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// one request pushes the daily spend past the tiny limit
	_, err = l.RecordUsage(ctx, "u1", "grok-4-fast-non-reasoning", 500, 500)
	require.NoError(t, err)

	d, err = gate.Check(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "daily", d.Period)
}
