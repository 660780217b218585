package messagebus

import (
	"context"

	"dddkit/core"
)

type contextKey int

const (
	contextMessageKey contextKey = iota
	contextDependenciesKey
)

// withMessage marks the context as belonging to a running handler of the
// given message. HandleMessage uses the mark to accept messages published
// from inside handlers while the bus is draining.
func withMessage(ctx context.Context, message core.Message) context.Context {
	return context.WithValue(ctx, contextMessageKey, message)
}

// MessageFromContext returns the message whose handler the context belongs
// to. Inside an event handler this is the event that triggered it; outside
// of any handler the second result is false.
func MessageFromContext(ctx context.Context) (core.Message, bool) {
	message, ok := ctx.Value(contextMessageKey).(core.Message)
	return message, ok
}

func withDependencies(ctx context.Context, deps core.Dependencies) context.Context {
	return context.WithValue(ctx, contextDependenciesKey, deps)
}

// DependenciesFromContext returns the dependencies the current handler was
// built with. Outside of a handler the second result is false.
func DependenciesFromContext(ctx context.Context) (core.Dependencies, bool) {
	deps, ok := ctx.Value(contextDependenciesKey).(core.Dependencies)
	return deps, ok
}
