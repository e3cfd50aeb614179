package progress

import (
	"math"
	"strconv"
	"sync"
)

// Option is the type for setting Tracker options.
type Option func(*Tracker)

// WithOnUpdate sets a callback invoked whenever the rendered
// percentage changes. The callback runs on the goroutine that
// advanced the tracker.
func WithOnUpdate(fn func(percent string)) Option {
	return func(t *Tracker) {
		t.onUpdate = fn
	}
}

// Tracker counts processed work units against an expected total.
// It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	processed int
	total     int
	last      int
	onUpdate  func(percent string)
}

// NewTracker creates a Tracker expecting total work units.
func NewTracker(total int, opts ...Option) *Tracker {
	t := &Tracker{total: total}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddTotal grows the expected total by n. The rendered percentage
// never decreases even when the total grows.
func (t *Tracker) AddTotal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total += n
}

// Increment records one completed work unit.
func (t *Tracker) Increment() {
	t.Add(1)
}

// Add records n completed work units and notifies the update
// callback when the rendered percentage changed.
func (t *Tracker) Add(n int) {
	t.mu.Lock()
	t.processed += n
	p := t.percentLocked()
	changed := p != t.last
	t.last = p
	fn := t.onUpdate
	t.mu.Unlock()

	if changed && fn != nil {
		fn(render(p))
	}
}

// Percent returns the current progress as a string like "42%".
// The value is clamped to [0, 100] and never decreases over the
// lifetime of the tracker.
func (t *Tracker) Percent() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.percentLocked()
	if p > t.last {
		t.last = p
	}
	return render(t.last)
}

// percentLocked computes ceil(processed/total*100) clamped to
// [0, 100]. A zero total reports 0. Callers must hold mu.
func (t *Tracker) percentLocked() int {
	if t.total <= 0 {
		if t.last > 0 {
			return t.last
		}
		return 0
	}
	p := int(math.Ceil(float64(t.processed) / float64(t.total) * 100))
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	if p < t.last {
		p = t.last
	}
	return p
}

func render(p int) string {
	return strconv.Itoa(p) + "%"
}
