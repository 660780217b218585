package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dddkit/core"
	"dddkit/domain"
	"dddkit/pkg/errs"

	"github.com/google/uuid"
)

// HandlerFunc is the application-side handler of a command with payload P.
// The result becomes the value of the Future the messagebus hands back to
// the caller.
type HandlerFunc[P any] func(ctx context.Context, cmd *domain.Command[P], deps core.Dependencies) (any, error)

// binder turns a message into an executable handler with bound dependencies.
type binder func(msg core.Message, deps core.Dependencies) (core.Handler, error)

// Collection is the standard core.HandlersCollection implementation.
// Create instances with NewCollection and fill them with Register.
type Collection struct {
	mu            sync.RWMutex
	commands      map[string]*Registration
	subscriptions map[string][]*subscription
	defaults      map[core.DomainName]core.Dependencies
	logger        *slog.Logger
}

var _ core.HandlersCollection = (*Collection)(nil)

// NewCollection creates an empty handlers collection. A nil logger falls
// back to slog.Default.
func NewCollection(logger *slog.Logger) *Collection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection{
		commands:      map[string]*Registration{},
		subscriptions: map[string][]*subscription{},
		defaults:      map[core.DomainName]core.Dependencies{},
		logger:        logger.With("component", "handlers"),
	}
}

// Registration is a command handler registered in a collection. Event
// subscriptions are attached to it with Subscribe.
type Registration struct {
	collection *Collection
	meta       core.MessageMeta
	bind       binder
}

// Meta returns the metadata of the handled command.
func (r *Registration) Meta() core.MessageMeta {
	return r.meta
}

// Register adds a handler for the command with payload type P. P must have
// been registered with domain.RegisterCommand; a collection holds at most
// one handler per command.
func Register[P any](c *Collection, fn HandlerFunc[P]) (*Registration, error) {
	if c == nil {
		return nil, errs.NewValueIsRequiredError("c")
	}
	if fn == nil {
		return nil, errs.NewValueIsRequiredError("fn")
	}
	meta, err := domain.CommandMetaOf[P]()
	if err != nil {
		return nil, err
	}

	bind := func(msg core.Message, deps core.Dependencies) (core.Handler, error) {
		cmd, ok := msg.(*domain.Command[P])
		if !ok {
			loaded, loadErr := domain.LoadCommand(
				meta.Domain, meta.Name, msg.Payload(), msg.Reference(), msg.OccurredAt())
			if loadErr != nil {
				return nil, loadErr
			}
			cmd = loaded.(*domain.Command[P])
		}
		return func(ctx context.Context) (any, error) {
			return fn(ctx, cmd, deps)
		}, nil
	}

	registration := &Registration{collection: c, meta: meta, bind: bind}
	if err = c.add(registration); err != nil {
		return nil, err
	}
	return registration, nil
}

// MustRegister is Register panicking on error, for use in package init
// functions.
func MustRegister[P any](c *Collection, fn HandlerFunc[P]) *Registration {
	registration, err := Register(c, fn)
	if err != nil {
		panic(err)
	}
	return registration
}

func (c *Collection) add(registration *Registration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fullName := registration.meta.FullName()
	if _, ok := c.commands[fullName]; ok {
		return fmt.Errorf("handler for command %q already registered", fullName)
	}
	c.commands[fullName] = registration
	return nil
}

// CommandHandler returns the handler bound to the given command and
// dependencies. The stored domain defaults are merged under the given
// dependencies. The returned error unwraps to errs.ErrObjectNotFound when no
// handler is registered for the command.
func (c *Collection) CommandHandler(cmd core.Message, deps core.Dependencies) (core.Handler, error) {
	fullName := core.FullName(cmd.Domain(), cmd.Name())

	c.mu.RLock()
	registration, ok := c.commands[fullName]
	defaults := c.defaults[cmd.Domain()]
	c.mu.RUnlock()
	if !ok {
		return nil, errs.NewObjectNotFoundErrorWithCause("command", fullName,
			fmt.Errorf("handler for command %q not registered", fullName))
	}
	return registration.bind(cmd, defaults.Merge(deps))
}

// EventHandlers returns one bound handler per subscription matching the
// event. Subscriptions whose condition rejects the event are left out
// quietly; subscriptions whose command cannot be built are logged and
// skipped.
func (c *Collection) EventHandlers(event core.Message, deps core.Dependencies) []core.Handler {
	fullName := core.FullName(event.Domain(), event.Name())

	c.mu.RLock()
	subscriptions := c.subscriptions[fullName]
	c.mu.RUnlock()

	var out []core.Handler
	for _, sub := range subscriptions {
		handler, ok := c.buildFromEvent(sub, event, deps)
		if ok {
			out = append(out, handler)
		}
	}
	return out
}

// buildFromEvent converts the event payload into a fresh command and binds
// the subscribed handler to it.
func (c *Collection) buildFromEvent(sub *subscription, event core.Message, deps core.Dependencies) (core.Handler, bool) {
	if sub.condition != nil && !sub.condition(event) {
		return nil, false
	}

	payload := event.Payload()
	if sub.converter != nil {
		payload = sub.converter(payload)
	}

	meta := sub.registration.meta
	cmd, err := domain.LoadCommand(meta.Domain, meta.Name, payload, uuid.Nil, time.Time{})
	if err != nil {
		c.logger.Error("building command from event failed",
			"event", core.FullName(event.Domain(), event.Name()),
			"command", meta.FullName(),
			"error", err)
		return nil, false
	}

	c.mu.RLock()
	defaults := c.defaults[meta.Domain]
	c.mu.RUnlock()

	handler, err := sub.registration.bind(cmd, defaults.Merge(deps))
	if err != nil {
		c.logger.Error("binding handler to converted command failed",
			"command", meta.FullName(),
			"error", err)
		return nil, false
	}
	if sub.newBackOff != nil {
		handler = withRetry(handler, sub.newBackOff)
	}
	return handler, true
}

// RegisteredCommands lists the commands this collection has handlers for.
func (c *Collection) RegisteredCommands() []core.MessageMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	metas := make([]core.MessageMeta, 0, len(c.commands))
	for _, registration := range c.commands {
		metas = append(metas, registration.meta)
	}
	return metas
}

// SetDefaults merges default dependencies for handlers of the given domain.
// Dependencies passed to CommandHandler and EventHandlers override defaults
// entry by entry.
func (c *Collection) SetDefaults(domain core.DomainName, deps core.Dependencies) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults[domain] = c.defaults[domain].Merge(deps)
}
