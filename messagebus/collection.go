package messagebus

import (
	"errors"
	"fmt"
	"sync"

	"dddkit/core"
	"dddkit/pkg/errs"
)

// busCollections aggregates the handler collections included into a bus and
// resolves handlers across them.
type busCollections struct {
	mu          sync.RWMutex
	collections []core.HandlersCollection
}

func (c *busCollections) include(collection core.HandlersCollection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collections = append(c.collections, collection)
}

func (c *busCollections) empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.collections) == 0
}

func (c *busCollections) snapshot() []core.HandlersCollection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.HandlersCollection, len(c.collections))
	copy(out, c.collections)
	return out
}

// commandHandler resolves the single handler registered for the command.
// Exactly one collection must know the command; none means the command is
// not registered, several is an ambiguity error.
func (c *busCollections) commandHandler(command core.Message, deps core.Dependencies) (core.Handler, error) {
	var handlers []core.Handler
	for _, collection := range c.snapshot() {
		handler, err := collection.CommandHandler(command, deps)
		if err != nil {
			if errors.Is(err, errs.ErrObjectNotFound) {
				continue
			}
			return nil, err
		}
		handlers = append(handlers, handler)
	}

	fullName := core.FullName(command.Domain(), command.Name())
	switch len(handlers) {
	case 0:
		return nil, errs.NewObjectNotFoundErrorWithCause("command", fullName,
			fmt.Errorf("handler for command %q not registered", fullName))
	case 1:
		return handlers[0], nil
	default:
		return nil, fmt.Errorf("more than one handler for command %q registered", fullName)
	}
}

// eventHandlers gathers the handlers subscribed to the event across all
// collections. An event nobody listens to yields an empty slice.
func (c *busCollections) eventHandlers(event core.Message, deps core.Dependencies) []core.Handler {
	var handlers []core.Handler
	for _, collection := range c.snapshot() {
		handlers = append(handlers, collection.EventHandlers(event, deps)...)
	}
	return handlers
}

func (c *busCollections) registeredCommands() []core.MessageMeta {
	seen := map[string]struct{}{}
	var metas []core.MessageMeta
	for _, collection := range c.snapshot() {
		for _, meta := range collection.RegisteredCommands() {
			if _, ok := seen[meta.FullName()]; ok {
				continue
			}
			seen[meta.FullName()] = struct{}{}
			metas = append(metas, meta)
		}
	}
	return metas
}

// updateDefaults pushes the per-domain default dependencies into every
// included collection.
func (c *busCollections) updateDefaults(defaults map[core.DomainName]core.Dependencies) {
	for _, collection := range c.snapshot() {
		for domain, deps := range defaults {
			collection.SetDefaults(domain, deps)
		}
	}
}
