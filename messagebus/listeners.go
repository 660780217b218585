package messagebus

import (
	"context"
	"log/slog"
	"sync"

	"dddkit/core"
)

// listenerRegistry keeps lifecycle listeners keyed by the events they asked
// for. Listener failures are logged and never propagated to the lifecycle
// operation that triggered them.
type listenerRegistry struct {
	mu     sync.RWMutex
	nextID int
	byEvnt map[core.MessagebusEvent]map[int]core.Listener
	logger *slog.Logger
}

func newListenerRegistry(logger *slog.Logger) *listenerRegistry {
	return &listenerRegistry{
		byEvnt: map[core.MessagebusEvent]map[int]core.Listener{},
		logger: logger,
	}
}

// subscribe registers the listener for the given events and returns a cancel
// function removing the registration.
func (r *listenerRegistry) subscribe(listener core.Listener, events ...core.MessagebusEvent) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	for _, event := range events {
		listeners, ok := r.byEvnt[event]
		if !ok {
			listeners = map[int]core.Listener{}
			r.byEvnt[event] = listeners
		}
		listeners[id] = listener
	}

	subscribed := events
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, event := range subscribed {
			delete(r.byEvnt[event], id)
		}
	}
}

// notify calls every listener subscribed to the event, logging failures.
func (r *listenerRegistry) notify(ctx context.Context, bus core.Messagebus, event core.MessagebusEvent) {
	r.mu.RLock()
	listeners := make([]core.Listener, 0, len(r.byEvnt[event]))
	for _, listener := range r.byEvnt[event] {
		listeners = append(listeners, listener)
	}
	r.mu.RUnlock()

	for _, listener := range listeners {
		if err := listener(ctx, bus, event); err != nil {
			r.logger.Error("lifecycle listener failed",
				"event", string(event),
				"error", err)
		}
	}
}
