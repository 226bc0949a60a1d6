package http

import (
	"sync"
	"sync/atomic"
	"time"
)

// The server only throttles mutating requests, so the budget is sized
// for form submissions: nobody books time entries or creates invoices
// thirty times a minute by hand.
const (
	writeBudget = 30
	writeWindow = time.Minute
	staleAfter  = 15 * time.Minute
	sweepEvery  = 5 * time.Minute
)

// rateLimiter counts writes per client IP in fixed windows.
type rateLimiter struct {
	mu       sync.Mutex
	windows  map[string]*writeCounter
	stopOnce sync.Once
	stop     chan struct{}
}

type writeCounter struct {
	windowStart time.Time
	writes      int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		windows: make(map[string]*writeCounter),
		stop:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.dropIdleClients()
		case <-rl.stop:
			return
		}
	}
}

// dropIdleClients forgets IPs whose window is long over, so the map
// does not grow with every visitor the dashboard ever saw.
func (rl *rateLimiter) dropIdleClients() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-staleAfter)
	for ip, c := range rl.windows {
		if c.windowStart.Before(cutoff) {
			delete(rl.windows, ip)
		}
	}
}

func (rl *rateLimiter) shutdown() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// allow reports whether clientIP still has write budget in the current
// window.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	c, ok := rl.windows[clientIP]
	if !ok || now.Sub(c.windowStart) >= writeWindow {
		rl.windows[clientIP] = &writeCounter{windowStart: now, writes: 1}
		return true
	}

	c.writes++
	if c.writes > writeBudget {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}
