package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"dddkit/core"
	"dddkit/pkg/errs"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// message carries the state shared by typed commands and events.
type message[P any] struct {
	payload    P
	reference  uuid.UUID
	occurredAt time.Time
	meta       core.MessageMeta
}

// Domain returns the domain the message class was registered for.
func (m *message[P]) Domain() core.DomainName {
	return m.meta.Domain
}

// Name returns the message name derived from the payload type name.
func (m *message[P]) Name() core.MessageName {
	return m.meta.Name
}

// Type reports whether the message is a command or an event.
func (m *message[P]) Type() core.MessageType {
	return m.meta.Type
}

// Reference returns the unique identifier of this message instance.
func (m *message[P]) Reference() uuid.UUID {
	return m.reference
}

// OccurredAt returns the creation time of the message in UTC.
func (m *message[P]) OccurredAt() time.Time {
	return m.occurredAt
}

// Data returns the typed payload.
func (m *message[P]) Data() P {
	return m.payload
}

// Payload returns the payload in JSON-safe form.
func (m *message[P]) Payload() core.Payload {
	raw, err := json.Marshal(m.payload)
	if err != nil {
		return core.Payload{}
	}
	var result map[string]any
	if err = json.Unmarshal(raw, &result); err != nil {
		return core.Payload{}
	}
	return core.Payload(result)
}

// ToJSON renders the payload as JSON.
func (m *message[P]) ToJSON() ([]byte, error) {
	return json.Marshal(m.payload)
}

// Command is a typed domain command wrapping a payload struct P.
// Instances are created with NewCommand after P has been registered with
// RegisterCommand.
type Command[P any] struct {
	message[P]
}

var _ core.Message = (*Command[struct{}])(nil)

// Event is a typed domain event wrapping a payload struct P.
// Instances are created with NewEvent after P has been registered with
// RegisterEvent.
type Event[P any] struct {
	message[P]
}

var _ core.Message = (*Event[struct{}])(nil)

// RegisterCommand registers P as the command class named after P's type name
// in the given domain. Registering the same type for the same domain twice is
// a no-op; registering it under another name, or registering another type
// under an occupied name, fails.
func RegisterCommand[P any](domainName string) error {
	return registerMessage[P](categoryCommand, domainName)
}

// MustRegisterCommand is RegisterCommand panicking on error, for use in
// package init functions.
func MustRegisterCommand[P any](domainName string) {
	if err := RegisterCommand[P](domainName); err != nil {
		panic(err)
	}
}

// RegisterEvent registers P as the event class named after P's type name in
// the given domain, following the same rules as RegisterCommand.
func RegisterEvent[P any](domainName string) error {
	return registerMessage[P](categoryEvent, domainName)
}

// MustRegisterEvent is RegisterEvent panicking on error, for use in package
// init functions.
func MustRegisterEvent[P any](domainName string) {
	if err := RegisterEvent[P](domainName); err != nil {
		panic(err)
	}
}

func registerMessage[P any](cat category, domainName string) error {
	domain, err := core.NewDomainName(domainName)
	if err != nil {
		return err
	}
	rtype := payloadType[P]()
	name, err := core.NewMessageName(rtype.Name())
	if err != nil {
		return errs.NewValueIsInvalidErrorWithCause("payloadType",
			fmt.Errorf("type name %q cannot be used as a message name: %w", rtype.Name(), err))
	}

	meta := core.MessageMeta{Domain: domain, Name: name, Type: messageTypeOf(cat)}
	load := func(payload core.Payload, reference uuid.UUID, occurredAt time.Time) (core.Message, error) {
		p, err := decodePayload[P](payload)
		if err != nil {
			return nil, err
		}
		base, err := newMessage(meta, p, reference, occurredAt)
		if err != nil {
			return nil, err
		}
		if cat == categoryEvent {
			return &Event[P]{message: base}, nil
		}
		return &Command[P]{message: base}, nil
	}
	return defaultRegistry.register(cat, meta, rtype, load)
}

// NewCommand creates a command instance with a fresh reference and the
// current UTC time. P must have been registered with RegisterCommand; the
// payload is validated against its validate tags.
func NewCommand[P any](payload P) (*Command[P], error) {
	reg, err := defaultRegistry.lookupByType(categoryCommand, payloadType[P]())
	if err != nil {
		return nil, err
	}
	base, err := newMessage(reg.meta, payload, uuid.Nil, time.Time{})
	if err != nil {
		return nil, err
	}
	return &Command[P]{message: base}, nil
}

// NewEvent creates an event instance with a fresh reference and the current
// UTC time. P must have been registered with RegisterEvent.
func NewEvent[P any](payload P) (*Event[P], error) {
	reg, err := defaultRegistry.lookupByType(categoryEvent, payloadType[P]())
	if err != nil {
		return nil, err
	}
	base, err := newMessage(reg.meta, payload, uuid.Nil, time.Time{})
	if err != nil {
		return nil, err
	}
	return &Event[P]{message: base}, nil
}

func newMessage[P any](meta core.MessageMeta, payload P, reference uuid.UUID, occurredAt time.Time) (message[P], error) {
	if err := validatePayload(payload); err != nil {
		return message[P]{}, err
	}
	if reference == uuid.Nil {
		reference = uuid.New()
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return message[P]{
		payload:    payload,
		reference:  reference,
		occurredAt: occurredAt.UTC(),
		meta:       meta,
	}, nil
}

func validatePayload(payload any) error {
	rv := reflect.ValueOf(payload)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(rv.Interface()); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("payload", err)
	}
	return nil
}

func decodePayload[P any](payload core.Payload) (P, error) {
	var p P
	raw, err := payload.ToJSON()
	if err != nil {
		return p, errs.NewValueIsInvalidErrorWithCause("payload", err)
	}
	if err = json.Unmarshal(raw, &p); err != nil {
		return p, errs.NewValueIsInvalidErrorWithCause("payload", err)
	}
	return p, nil
}

func payloadType[P any]() reflect.Type {
	return reflect.TypeOf((*P)(nil)).Elem()
}
