package domain

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"dddkit/core"
	"dddkit/pkg/errs"

	"github.com/google/uuid"
)

type category string

const (
	categoryCommand category = "command"
	categoryEvent   category = "event"
	categoryError   category = "error"
)

// loader builds a typed message instance from a raw payload.
// The concrete payload type is captured when the class is registered.
type loader func(payload core.Payload, reference uuid.UUID, occurredAt time.Time) (core.Message, error)

type registration struct {
	meta  core.MessageMeta
	rtype reflect.Type
	load  loader
}

// registry holds all registered domain object classes keyed by
// (category, domain, name). There is one process-wide instance, mirroring the
// fact that a message class has exactly one meaning in a codebase.
type registry struct {
	mu      sync.RWMutex
	objects map[category]map[core.DomainName]map[core.MessageName]*registration
	byType  map[reflect.Type]*registration
	errDefs map[core.DomainName]map[core.MessageName]*ErrorDefinition
}

var defaultRegistry = &registry{
	objects: map[category]map[core.DomainName]map[core.MessageName]*registration{},
	byType:  map[reflect.Type]*registration{},
	errDefs: map[core.DomainName]map[core.MessageName]*ErrorDefinition{},
}

func (r *registry) register(cat category, meta core.MessageMeta, rtype reflect.Type, load loader) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byType[rtype]; ok {
		if existing.meta == meta {
			return nil
		}
		return fmt.Errorf("%s already registered in collection with other name %q",
			rtype, existing.meta.FullName())
	}
	if existing := r.objects[cat][meta.Domain][meta.Name]; existing != nil {
		return fmt.Errorf("other %s class for %q domain with name %q already registered",
			cat, meta.Domain, meta.Name)
	}

	domains, ok := r.objects[cat]
	if !ok {
		domains = map[core.DomainName]map[core.MessageName]*registration{}
		r.objects[cat] = domains
	}
	names, ok := domains[meta.Domain]
	if !ok {
		names = map[core.MessageName]*registration{}
		domains[meta.Domain] = names
	}

	reg := &registration{meta: meta, rtype: rtype, load: load}
	names[meta.Name] = reg
	r.byType[rtype] = reg
	return nil
}

func (r *registry) lookup(cat category, domain core.DomainName, name core.MessageName) (*registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg := r.objects[cat][domain][name]
	if reg == nil {
		return nil, errs.NewObjectNotFoundErrorWithCause(string(cat), core.FullName(domain, name),
			fmt.Errorf("%s class for %q domain with name %q not registered", cat, domain, name))
	}
	return reg, nil
}

func (r *registry) lookupByType(cat category, rtype reflect.Type) (*registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byType[rtype]
	if !ok || reg.meta.Type != messageTypeOf(cat) {
		return nil, errs.NewObjectNotFoundErrorWithCause(string(cat), rtype.String(),
			fmt.Errorf("%s is not registered as a %s", rtype, cat))
	}
	return reg, nil
}

func messageTypeOf(cat category) core.MessageType {
	if cat == categoryEvent {
		return core.EventMessageType
	}
	return core.CommandMessageType
}

// CommandMeta returns the metadata of the registered command class for the
// given domain and name. The returned error unwraps to errs.ErrObjectNotFound
// when no command class is registered.
func CommandMeta(domain core.DomainName, name core.MessageName) (core.MessageMeta, error) {
	reg, err := defaultRegistry.lookup(categoryCommand, domain, name)
	if err != nil {
		return core.MessageMeta{}, err
	}
	return reg.meta, nil
}

// EventMeta returns the metadata of the registered event class for the given
// domain and name.
func EventMeta(domain core.DomainName, name core.MessageName) (core.MessageMeta, error) {
	reg, err := defaultRegistry.lookup(categoryEvent, domain, name)
	if err != nil {
		return core.MessageMeta{}, err
	}
	return reg.meta, nil
}

// CommandMetaOf returns the metadata the payload type P was registered with
// through RegisterCommand.
func CommandMetaOf[P any]() (core.MessageMeta, error) {
	reg, err := defaultRegistry.lookupByType(categoryCommand, payloadType[P]())
	if err != nil {
		return core.MessageMeta{}, err
	}
	return reg.meta, nil
}

// EventMetaOf returns the metadata the payload type P was registered with
// through RegisterEvent.
func EventMetaOf[P any]() (core.MessageMeta, error) {
	reg, err := defaultRegistry.lookupByType(categoryEvent, payloadType[P]())
	if err != nil {
		return core.MessageMeta{}, err
	}
	return reg.meta, nil
}

// LoadCommand builds a typed command instance from a raw payload through the
// registered command class. A nil reference is replaced with a fresh one and
// a zero timestamp with the current time. The payload is validated against
// the payload struct's validate tags.
//
// This is how generic messages, for example core.UniversalMessage instances
// arriving over a transport, are upgraded to their typed counterparts.
func LoadCommand(
	domain core.DomainName,
	name core.MessageName,
	payload core.Payload,
	reference uuid.UUID,
	occurredAt time.Time,
) (core.Message, error) {
	reg, err := defaultRegistry.lookup(categoryCommand, domain, name)
	if err != nil {
		return nil, err
	}
	return reg.load(payload, reference, occurredAt)
}

// LoadEvent builds a typed event instance from a raw payload through the
// registered event class, following the same rules as LoadCommand.
func LoadEvent(
	domain core.DomainName,
	name core.MessageName,
	payload core.Payload,
	reference uuid.UUID,
	occurredAt time.Time,
) (core.Message, error) {
	reg, err := defaultRegistry.lookup(categoryEvent, domain, name)
	if err != nil {
		return nil, err
	}
	return reg.load(payload, reference, occurredAt)
}

// RegisteredMessages lists the metadata of all command and event classes
// registered for a domain.
func RegisteredMessages(domain core.DomainName) []core.MessageMeta {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()

	var result []core.MessageMeta
	for _, cat := range []category{categoryCommand, categoryEvent} {
		for _, reg := range defaultRegistry.objects[cat][domain] {
			result = append(result, reg.meta)
		}
	}
	return result
}
