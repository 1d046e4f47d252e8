package provider

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Dispatcher sends requests through a per-provider circuit breaker so a
// vendor outage fails fast instead of burning the caller's timeout on every
// attempt.
type Dispatcher struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

func (d *Dispatcher) breaker(name string) *gobreaker.CircuitBreaker {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cb, ok := d.breakers[name]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	d.breakers[name] = cb
	return cb
}

// Send executes p.Send through the provider's breaker. When the breaker is
// open it returns gobreaker.ErrOpenState without touching the network.
func (d *Dispatcher) Send(ctx context.Context, p Provider, req *Request) (*Response, error) {
	cb := d.breaker(p.Name())
	result, err := cb.Execute(func() (interface{}, error) {
		return p.Send(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Response), nil
}
