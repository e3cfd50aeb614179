package localize

import (
	"sync"

	"github.com/nao1215/webmirror/internal/model"
)

// Registry tracks which (kind, local name) pairs have already been scheduled
// into the archive. One Registry is owned by exactly one mirror session and
// is discarded with it, so state never leaks into a later run.
type Registry struct {
	// mu guards scheduled. Pages can be localized concurrently at
	// depth >= 1, and the check-and-set below has to be atomic or the same
	// resource would be fetched and stored twice.
	mu sync.Mutex

	// scheduled maps kind -> local name -> already scheduled.
	scheduled map[model.ResourceKind]map[string]bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		scheduled: make(map[model.ResourceKind]map[string]bool),
	}
}

// ShouldSchedule reports whether the given (kind, name) pair is new, and as
// a side effect records it as scheduled. The check and the record are one
// atomic operation.
func (r *Registry) ShouldSchedule(kind model.ResourceKind, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, ok := r.scheduled[kind]
	if !ok {
		names = make(map[string]bool)
		r.scheduled[kind] = names
	}
	if names[name] {
		return false
	}
	names[name] = true
	return true
}

// Count returns the number of scheduled names for a kind.
func (r *Registry) Count(kind model.ResourceKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scheduled[kind])
}
