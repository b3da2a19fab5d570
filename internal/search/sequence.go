package search

import (
	"sync"
	"time"
)

// Sequencer hands out increasing request numbers and tells callers whether a
// response still belongs to the newest request.
type Sequencer struct {
	mu     sync.Mutex
	latest uint64
}

// Next starts a new request, implicitly superseding all earlier ones.
func (s *Sequencer) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	return s.latest
}

// IsLatest reports whether seq is the most recently started request.
func (s *Sequencer) IsLatest(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.latest
}

// Debouncer coalesces rapid calls into a single invocation of fn with the
// last value, after delay has passed without a new call. Pending values are
// discarded, not queued.
type Debouncer struct {
	delay time.Duration
	fn    func(string)

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func NewDebouncer(delay time.Duration, fn func(string)) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules fn(value), cancelling any pending invocation.
func (d *Debouncer) Trigger(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := gen == d.gen
		d.mu.Unlock()
		// A timer that fired while being replaced must not run.
		if current {
			d.fn(value)
		}
	})
}

// Stop cancels a pending invocation.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
}
