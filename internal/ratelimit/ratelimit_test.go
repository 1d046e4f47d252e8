package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock lets tests advance time explicitly.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*Limiter, *testClock) {
	clock := &testClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	l := New()
	l.now = clock.now
	return l, clock
}

func TestCheck_FreshLimiterAllows(t *testing.T) {
	l, _ := newTestLimiter()

	d := l.Check()
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reason)
	assert.Zero(t, d.WaitSeconds)
}

func TestCheck_MinimumDelay(t *testing.T) {
	l, clock := newTestLimiter()

	require.True(t, l.Check().Allowed)
	l.Record()

	d := l.Check()
	assert.False(t, d.Allowed)
	assert.Greater(t, d.WaitSeconds, 0)
	assert.Contains(t, d.Reason, "apart")

	// half a second in: one and a half seconds remain, rounded up to 2
	clock.advance(500 * time.Millisecond)
	d = l.Check()
	assert.False(t, d.Allowed)
	assert.Equal(t, 2, d.WaitSeconds)

	clock.advance(1500 * time.Millisecond)
	assert.True(t, l.Check().Allowed)
}

func TestCheck_PerMinuteCap(t *testing.T) {
	l, clock := newTestLimiter()

	// 10 requests spaced 3s apart all land inside the trailing minute
	for i := 0; i < perMinuteLimit; i++ {
		d := l.Check()
		require.True(t, d.Allowed, "request %d", i+1)
		l.Record()
		clock.advance(3 * time.Second)
	}

	d := l.Check()
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "per-minute")
	assert.Equal(t, 60, d.WaitSeconds)
}

func TestCheck_PerHourCap(t *testing.T) {
	l, clock := newTestLimiter()

	// 50 requests spaced 20s apart stay under the per-minute cap (at most
	// 3 per trailing minute) while filling the hourly window
	for i := 0; i < perHourLimit; i++ {
		d := l.Check()
		require.True(t, d.Allowed, "request %d", i+1)
		l.Record()
		clock.advance(20 * time.Second)
	}

	d := l.Check()
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "hourly")
	assert.Equal(t, 3600, d.WaitSeconds)
}

func TestCheck_OldTimestampsExpire(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < perHourLimit; i++ {
		require.True(t, l.Check().Allowed)
		l.Record()
		clock.advance(20 * time.Second)
	}
	require.False(t, l.Check().Allowed)

	// an hour later everything has aged out
	clock.advance(time.Hour)
	d := l.Check()
	assert.True(t, d.Allowed)
	assert.Zero(t, l.Stats().RequestsLastHour)
}

func TestStats(t *testing.T) {
	l, clock := newTestLimiter()

	s := l.Stats()
	assert.Zero(t, s.RequestsLastMinute)
	assert.Zero(t, s.RequestsLastHour)
	assert.Equal(t, perMinuteLimit, s.PerMinuteLimit)
	assert.Equal(t, perHourLimit, s.PerHourLimit)

	l.Record()
	clock.advance(3 * time.Second)
	l.Record()
	clock.advance(90 * time.Second)
	l.Record()

	s = l.Stats()
	assert.Equal(t, 1, s.RequestsLastMinute)
	assert.Equal(t, 3, s.RequestsLastHour)
}

func TestStats_HasNoSideEffects(t *testing.T) {
	l, clock := newTestLimiter()

	l.Record()
	clock.advance(2 * time.Hour)

	// Stats must not prune or otherwise mutate
	_ = l.Stats()
	l.mu.Lock()
	kept := len(l.timestamps)
	l.mu.Unlock()
	assert.Equal(t, 1, kept)
}

func TestRegistry_IsolatesUsers(t *testing.T) {
	r := NewRegistry()

	alice := r.For("alice")
	alice.Record()

	bob := r.For("bob")
	assert.True(t, bob.Check().Allowed, "bob unaffected by alice's requests")
	assert.False(t, alice.Check().Allowed, "alice inside her min-delay window")

	assert.Same(t, alice, r.For("alice"))
}
