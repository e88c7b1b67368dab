package metrics

import (
	"sync"
	"time"
)

// LoadPauser tracks how much of a worker goroutine's time is spent blocked
// on the input queue versus doing real work. A worker wraps each blocking
// Get in Pause/resume to accumulate cumulative paused vs busy duration.
type LoadPauser struct {
	mu     sync.Mutex
	paused time.Duration
	busy   time.Duration
	last   time.Time
}

// NewLoadPauser creates a LoadPauser with its busy clock started.
func NewLoadPauser() *LoadPauser {
	return &LoadPauser{last: time.Now()}
}

// Pause marks the start of a blocking wait (e.g. queue Get). Call the
// returned function once the wait completes.
func (p *LoadPauser) Pause() func() {
	if p == nil {
		return func() {}
	}
	p.mu.Lock()
	now := time.Now()
	p.busy += now.Sub(p.last)
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.paused += time.Since(now)
		p.last = time.Now()
	}
}

// Snapshot returns the cumulative busy/paused durations and resets them to
// zero.
func (p *LoadPauser) Snapshot() (busy, paused time.Duration) {
	if p == nil {
		return 0, 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	busy, paused = p.busy, p.paused
	p.busy, p.paused = 0, 0
	p.last = time.Now()
	return busy, paused
}
