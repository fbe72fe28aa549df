// Package ratelimit throttles MCP tool calls with per-tool token buckets.
// Step requests are charged by the amount of simulated work they ask for.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TicksPerToken is how many simulation ticks one token pays for.
const TicksPerToken = 1000

// Limiter is a set of token buckets keyed by name. It is safe for
// concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rate    rate.Limit // tokens per second
	burst   int        // bucket size and initial fill
	nowFunc func() time.Time
}

// NewLimiter creates a limiter refilling at r tokens per second up to
// burst tokens.
func NewLimiter(r float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rate:    rate.Limit(r),
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow spends one token for key.
func (l *Limiter) Allow(key string) bool {
	return l.AllowN(key, 1)
}

// AllowN spends n tokens for key if the bucket holds them. A request larger
// than the burst is charged the full burst so it can still pass once the
// bucket is full.
func (l *Limiter) AllowN(key string, n int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.rate, l.burst)
		l.buckets[key] = b
	}
	return b.AllowN(l.nowFunc(), min(n, l.burst))
}

// ToolLimiters maps tool names to their limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters returns the default limits for the simulator tools.
// Inspection is cheap; stepping is charged per TicksPerToken ticks.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"silicon_step":     NewLimiter(2.0, 20),  // ~2000 ticks/sec sustained
		"silicon_status":   NewLimiter(5.0, 20),  // 300/minute
		"silicon_neuron":   NewLimiter(10.0, 50), // 600/minute
		"silicon_synapses": NewLimiter(2.0, 10),  // 120/minute
	}
}

// CheckLimit charges one call to toolName. Tools without a limiter always
// pass.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	return CheckTicks(limiters, toolName, TicksPerToken)
}

// CheckTicks charges a call that will run ticks simulation ticks.
func CheckTicks(limiters ToolLimiters, toolName string, ticks int) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	cost := max(1, (ticks+TicksPerToken-1)/TicksPerToken)
	if !limiter.AllowN(toolName, cost) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}
	return nil
}
