// Package ratelimit enforces burst protection for a single practice
// session: a minimum inter-request delay plus sliding per-minute and
// per-hour request caps.
//
// State lives in process memory on purpose. A restart clears throttling,
// which is acceptable because the durable budget gate is the backstop
// against sustained overspend.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	minInterval    = 2 * time.Second
	minuteWindow   = time.Minute
	hourWindow     = time.Hour
	perMinuteLimit = 10
	perHourLimit   = 50
)

// Decision is the outcome of a limiter check. WaitSeconds is a hint for the
// user-facing countdown, rounded up to whole seconds.
type Decision struct {
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason,omitempty"`
	WaitSeconds int    `json:"wait_seconds"`
}

// Stats describes current limiter occupancy, for display only.
type Stats struct {
	RequestsLastMinute int `json:"requests_last_minute"`
	RequestsLastHour   int `json:"requests_last_hour"`
	PerMinuteLimit     int `json:"per_minute_limit"`
	PerHourLimit       int `json:"per_hour_limit"`
}

// Limiter is an explicit per-session instance rather than shared global
// state, so independent users get independent gates.
type Limiter struct {
	mu         sync.Mutex
	timestamps []time.Time
	last       time.Time
	now        func() time.Time
}

func New() *Limiter {
	return &Limiter{now: time.Now}
}

// Check evaluates the gates in fixed order: minimum delay first, then the
// sliding windows over lazily pruned timestamps. It has no side effects.
func (l *Limiter) Check() Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if !l.last.IsZero() {
		if elapsed := now.Sub(l.last); elapsed < minInterval {
			wait := int(math.Ceil((minInterval - elapsed).Seconds()))
			return Decision{
				Allowed:     false,
				Reason:      fmt.Sprintf("requests must be at least %d seconds apart", int(minInterval.Seconds())),
				WaitSeconds: wait,
			}
		}
	}

	l.prune(now)

	inLastMinute := 0
	minuteCutoff := now.Add(-minuteWindow)
	for _, ts := range l.timestamps {
		if ts.After(minuteCutoff) {
			inLastMinute++
		}
	}
	if inLastMinute >= perMinuteLimit {
		return Decision{
			Allowed:     false,
			Reason:      fmt.Sprintf("per-minute limit of %d requests reached", perMinuteLimit),
			WaitSeconds: int(minuteWindow.Seconds()),
		}
	}

	if len(l.timestamps) >= perHourLimit {
		return Decision{
			Allowed:     false,
			Reason:      fmt.Sprintf("hourly limit of %d requests reached", perHourLimit),
			WaitSeconds: int(hourWindow.Seconds()),
		}
	}

	return Decision{Allowed: true}
}

// Record consumes one slot. Call it only after a passing Check, immediately
// before dispatching the external call, so the delay gate measures real
// inter-request spacing.
func (l *Limiter) Record() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.timestamps = append(l.timestamps, now)
	l.last = now
}

// Stats returns windowed request counts and the configured caps.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	minuteCutoff := now.Add(-minuteWindow)
	hourCutoff := now.Add(-hourWindow)

	var lastMinute, lastHour int
	for _, ts := range l.timestamps {
		if ts.After(hourCutoff) {
			lastHour++
			if ts.After(minuteCutoff) {
				lastMinute++
			}
		}
	}

	return Stats{
		RequestsLastMinute: lastMinute,
		RequestsLastHour:   lastHour,
		PerMinuteLimit:     perMinuteLimit,
		PerHourLimit:       perHourLimit,
	}
}

// prune drops timestamps older than the hour window. Caller holds l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-hourWindow)
	kept := l.timestamps[:0]
	for _, ts := range l.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.timestamps = kept
}

// Registry hands out one Limiter per user ID.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
}

func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*Limiter)}
}

func (r *Registry) For(userID string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[userID]; ok {
		return l
	}
	l := New()
	r.limiters[userID] = l
	return l
}
