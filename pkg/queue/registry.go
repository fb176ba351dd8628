package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler performs one job.
type Handler func(ctx context.Context, job Job) error

// Registry maps job kinds to handlers.
type Registry struct {
	mtx      sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(kind string, handler Handler) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.handlers[kind] = handler
}

func (r *Registry) Handle(ctx context.Context, job Job) error {
	r.mtx.RLock()
	handler, ok := r.handlers[job.Kind]
	r.mtx.RUnlock()
	if !ok {
		return fmt.Errorf("handler not registered for %s", job.Kind)
	}
	return handler(ctx, job)
}

// Kinds lists registered job kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for kind := range r.handlers {
		out = append(out, kind)
	}
	sort.Strings(out)
	return out
}
