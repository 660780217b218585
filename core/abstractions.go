package core

import (
	"context"
)

// Dependencies is a named set of values injected into command handlers:
// repositories, unit-of-work builders, gateways to other systems. Handlers
// pick the entries they need by name.
type Dependencies map[string]any

// Merge returns a new Dependencies holding d overlaid with other.
// Neither input is modified.
func (d Dependencies) Merge(other Dependencies) Dependencies {
	result := make(Dependencies, len(d)+len(other))
	for key, value := range d {
		result[key] = value
	}
	for key, value := range other {
		result[key] = value
	}
	return result
}

// Handler is a command invocation prepared by a HandlersCollection: the
// command and its dependencies are already bound, only the context remains.
type Handler func(ctx context.Context) (any, error)

// MessageMeta describes a registered message class.
type MessageMeta struct {
	Domain DomainName
	Name   MessageName
	Type   MessageType
}

// FullName returns the "domain.Name" form of the described message.
func (m MessageMeta) FullName() string {
	return FullName(m.Domain, m.Name)
}

// HandlersCollection resolves messages to executable handlers.
// The handlers package provides the standard implementation; a messagebus can
// include any number of collections.
type HandlersCollection interface {
	// CommandHandler returns the handler bound to the given command with the
	// given dependencies. The returned error unwraps to errs.ErrObjectNotFound
	// when no handler is registered for the command.
	CommandHandler(cmd Message, deps Dependencies) (Handler, error)

	// EventHandlers returns one bound handler per subscription matching the
	// given event. Subscriptions whose condition rejects the event are left
	// out; an event nobody subscribed to yields an empty slice.
	EventHandlers(event Message, deps Dependencies) []Handler

	// RegisteredCommands lists the commands this collection has handlers for.
	RegisteredCommands() []MessageMeta

	// SetDefaults merges default dependencies for handlers of the given domain.
	SetDefaults(domain DomainName, deps Dependencies)
}

// Listener observes messagebus lifecycle events.
// Returned errors are logged by the messagebus and never interrupt the lifecycle.
type Listener func(ctx context.Context, bus Messagebus, event MessagebusEvent) error

// Messagebus routes commands and events to the handlers of its included
// collections. See the messagebus package for the standard implementation.
type Messagebus interface {
	// Run starts the messagebus. It fails when the bus is closed or has no
	// included collections and is a no-op when the bus is already running.
	Run(ctx context.Context) error

	// RunUntilComplete runs the bus, handles a single command, stops the bus
	// and returns the command result. Only commands are accepted.
	RunUntilComplete(ctx context.Context, cmd Message, deps Dependencies) (any, error)

	// Stop drains all in-flight messages, including messages published by
	// handlers while draining, and stops accepting new outside messages.
	Stop(ctx context.Context) error

	// Close stops the bus and shuts it down permanently.
	Close(ctx context.Context) error

	// IsRunning reports whether the bus currently accepts messages.
	IsRunning() bool

	// IsClosed reports whether the bus has been closed.
	IsClosed() bool

	// IncludeCollection adds a handlers collection to the bus.
	IncludeCollection(collection HandlersCollection) error

	// HandleMessage dispatches a message and returns a Future resolved with
	// the handling result. Commands require exactly one handler across all
	// collections; events fan out to every matching subscription.
	HandleMessage(ctx context.Context, msg Message, deps Dependencies) (*Future, error)

	// Subscribe registers a listener for the given lifecycle events and
	// returns a function that cancels the subscription.
	Subscribe(listener Listener, events ...MessagebusEvent) (cancel func())

	// SetDefaults stores default dependencies for handlers of the given
	// domain. Defaults are pushed to the included collections on Run.
	SetDefaults(domain DomainName, deps Dependencies) error

	// RegisteredCommands lists the commands of all included collections.
	RegisteredCommands() []MessageMeta
}
