package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func fixedClock(l *Limiter) *time.Time {
	now := time.Now()
	l.nowFunc = func() time.Time { return now }
	return &now
}

func TestAllow_BurstThenReject(t *testing.T) {
	l := NewLimiter(1.0, 3)
	fixedClock(l)

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Errorf("request %d should be allowed within burst", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("request after burst should be rejected")
	}
	if !l.Allow("other") {
		t.Error("independent key should have its own bucket")
	}
}

func TestAllow_RefillCappedAtBurst(t *testing.T) {
	l := NewLimiter(100.0, 2)
	now := fixedClock(l)

	l.Allow("k")
	l.Allow("k")
	*now = now.Add(10 * time.Second)

	if !l.Allow("k") || !l.Allow("k") {
		t.Error("expected two tokens after refill")
	}
	if l.Allow("k") {
		t.Error("refill must not exceed burst")
	}
}

func TestAllowN(t *testing.T) {
	tests := []struct {
		name  string
		burst int
		cost  int
		want  []bool
	}{
		{"fits twice", 4, 2, []bool{true, true, false}},
		{"oversized charged as burst", 3, 10, []bool{true, false}},
		{"single token", 1, 1, []bool{true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimiter(0, tt.burst)
			fixedClock(l)
			for i, want := range tt.want {
				if got := l.AllowN("k", tt.cost); got != want {
					t.Errorf("call %d: AllowN() = %v, want %v", i+1, got, want)
				}
			}
		})
	}
}

func TestAllow_ConcurrentAccess(t *testing.T) {
	l := NewLimiter(0, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("k") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed %d, want exactly the burst of 100", allowed)
	}
}

func TestCheckTicks(t *testing.T) {
	limiters := NewToolLimiters()
	for _, tool := range []string{"silicon_step", "silicon_status", "silicon_neuron", "silicon_synapses"} {
		if _, ok := limiters[tool]; !ok {
			t.Errorf("missing limiter for %s", tool)
		}
	}
	fixedClock(limiters["silicon_step"])

	// 20 tokens: one 15000-tick step costs 15, leaving 5.
	if err := CheckTicks(limiters, "silicon_step", 15000); err != nil {
		t.Fatalf("first step rejected: %v", err)
	}
	if err := CheckTicks(limiters, "silicon_step", 6000); err == nil {
		t.Error("6000-tick step should exceed the remaining 5 tokens")
	}
	if err := CheckTicks(limiters, "silicon_step", 10); err != nil {
		t.Errorf("small step should cost one token: %v", err)
	}
	if err := CheckLimit(limiters, "unknown_tool"); err != nil {
		t.Errorf("unknown tool should pass: %v", err)
	}
}
