package webhook

import (
	"context"
	"sort"

	"github.com/PratikDhanave/line-webhook-service/internal/models"
)

// HandlerFunc processes a single event. A returned error is logged by the
// dispatcher and does not stop the batch.
type HandlerFunc func(ctx context.Context, event models.Event) error

// Registry maps event types to handlers. It is built once at startup and
// never mutated afterwards, so lookups need no locking.
type Registry struct {
	handlers map[models.EventType]HandlerFunc
}

// NewRegistry copies handlers into an immutable registry. Nil handlers are
// dropped.
func NewRegistry(handlers map[models.EventType]HandlerFunc) *Registry {
	r := &Registry{handlers: make(map[models.EventType]HandlerFunc, len(handlers))}
	for t, h := range handlers {
		if h == nil {
			continue
		}
		r.handlers[t] = h
	}
	return r
}

// Lookup returns the handler registered for t.
func (r *Registry) Lookup(t models.EventType) (HandlerFunc, bool) {
	if r == nil {
		return nil, false
	}
	h, ok := r.handlers[t]
	return h, ok
}

// Types returns the registered event types, sorted.
func (r *Registry) Types() []models.EventType {
	if r == nil {
		return nil
	}
	out := make([]models.EventType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.handlers)
}
