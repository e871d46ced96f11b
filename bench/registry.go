package bench

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrUnknownWorkload is returned when a workload name is not registered.
var ErrUnknownWorkload = errors.New("unknown workload")

// Registry maps workload names to workloads.
type Registry struct {
	mu        sync.RWMutex
	workloads map[string]Workload
}

// NewRegistry returns a registry holding ws.
func NewRegistry(ws ...Workload) *Registry {
	r := &Registry{workloads: make(map[string]Workload)}
	for _, w := range ws {
		r.MustRegister(w)
	}
	return r
}

// Register adds w under its name; names must be unique.
func (r *Registry) Register(w Workload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workloads[w.Name()]; ok {
		return errors.Errorf("workload %q already registered", w.Name())
	}
	r.workloads[w.Name()] = w
	return nil
}

// MustRegister is like Register but panics on duplicates.
func (r *Registry) MustRegister(w Workload) {
	if err := r.Register(w); err != nil {
		panic(err)
	}
}

// Get looks a workload up by name.
func (r *Registry) Get(name string) (Workload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workloads[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownWorkload, name)
	}
	return w, nil
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.workloads))
	for name := range r.workloads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
