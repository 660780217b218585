package domain

import (
	"time"

	"dddkit/core"
	"dddkit/pkg/errs"
	"dddkit/pkg/guard"

	"github.com/google/uuid"
)

// Version is the optimistic-concurrency version of an aggregate.
// New aggregates start at version 1.
type Version int

// Entity is an identity holder: two entities are equal when their references
// are equal, regardless of their other state. Embed it in a domain type and
// pick any comparable reference type.
type Entity[R comparable] struct {
	reference R
}

// NewEntity creates an entity with the given reference.
func NewEntity[R comparable](reference R) Entity[R] {
	return Entity[R]{reference: reference}
}

// Reference returns the identity of the entity.
func (e Entity[R]) Reference() R {
	return e.reference
}

// Equals reports whether both entities share the same reference.
func (e Entity[R]) Equals(other Entity[R]) bool {
	return e.reference == other.reference
}

// Aggregate is the root entity of a consistency boundary. It tracks a
// version for optimistic concurrency and collects the domain events raised
// while the aggregate changes state.
//
// Example:
//
//	type User struct {
//	    domain.Aggregate[uuid.UUID]
//	    name string
//	}
//
//	func NewUser(name string) (*User, error) {
//	    root, err := domain.NewAggregate("users", uuid.New())
//	    if err != nil {
//	        return nil, err
//	    }
//	    u := &User{Aggregate: root, name: name}
//	    err = u.RaiseEvent("UserCreated", core.Payload{
//	        "reference": u.Reference(),
//	        "name":      name,
//	    })
//	    return u, err
//	}
type Aggregate[R comparable] struct {
	Entity[R]
	domain  core.DomainName
	version Version
	events  []core.Message
	guard   guard.ConstructorGuard
}

// NewAggregate creates an aggregate root at version 1 for the given domain.
func NewAggregate[R comparable](domainName string, reference R) (Aggregate[R], error) {
	return LoadAggregate(domainName, reference, 1)
}

// LoadAggregate reconstructs an aggregate root at a known version, typically
// when loading it from storage. The version must be at least 1.
func LoadAggregate[R comparable](domainName string, reference R, version Version) (Aggregate[R], error) {
	domain, err := core.NewDomainName(domainName)
	if err != nil {
		return Aggregate[R]{}, err
	}
	if version < 1 {
		return Aggregate[R]{}, errs.NewVersionIsInvalidError("version")
	}
	return Aggregate[R]{
		Entity:  NewEntity(reference),
		domain:  domain,
		version: version,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate reports whether the aggregate was created through NewAggregate or
// LoadAggregate. Zero-value aggregates fail.
func (a *Aggregate[R]) Validate() error {
	return a.guard.Validate(nil)
}

// Domain returns the domain the aggregate belongs to.
func (a *Aggregate[R]) Domain() core.DomainName {
	return a.domain
}

// Version returns the current version of the aggregate.
func (a *Aggregate[R]) Version() Version {
	return a.version
}

// IncrementVersion bumps the aggregate version by one.
// Call it once per successfully persisted change.
func (a *Aggregate[R]) IncrementVersion() {
	a.version++
}

// RaiseEvent queues a domain event on the aggregate. The event class must be
// registered with RegisterEvent for the aggregate's domain; the instance is
// built from the payload with a fresh reference and timestamp.
func (a *Aggregate[R]) RaiseEvent(name string, payload core.Payload) error {
	if err := a.guard.Validate(nil); err != nil {
		return err
	}
	messageName, err := core.NewMessageName(name)
	if err != nil {
		return err
	}
	normalized, err := core.NewPayload(payload)
	if err != nil {
		return err
	}
	event, err := LoadEvent(a.domain, messageName, normalized, uuid.Nil, time.Time{})
	if err != nil {
		return err
	}
	a.events = append(a.events, event)
	return nil
}

// CollectEvents drains and returns the queued domain events in the order
// they were raised. A second call returns nothing until new events are
// raised.
func (a *Aggregate[R]) CollectEvents() []core.Message {
	events := a.events
	a.events = nil
	return events
}
