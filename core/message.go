package core

import (
	"time"

	"github.com/google/uuid"
)

// Message is the contract every command and event satisfies.
//
// Typed messages are declared with the domain package; UniversalMessage
// covers the generic case where the payload shape is only known at runtime,
// for example on a transport boundary.
type Message interface {
	// Domain returns the domain the message belongs to.
	Domain() DomainName
	// Name returns the message name within its domain.
	Name() MessageName
	// Type reports whether the message is a command or an event.
	Type() MessageType
	// Reference returns the unique identifier of this message instance.
	Reference() uuid.UUID
	// OccurredAt returns the creation time of the message, always in UTC.
	OccurredAt() time.Time
	// Payload returns the message data in JSON-safe form.
	Payload() Payload
	// ToJSON renders the message payload as JSON.
	ToJSON() ([]byte, error)
}

// UniversalMessage is a Message whose shape is determined at runtime.
// It carries an arbitrary payload addressed by a full message name, which
// makes it the natural representation for messages arriving over a transport
// before they are upgraded to their typed counterparts.
//
// Example:
//
//	cmd, err := core.NewUniversalMessage(
//	    "navigation.CreateRoute",
//	    core.CommandMessageType,
//	    map[string]any{"from": "a", "to": "b"},
//	)
type UniversalMessage struct {
	domain     DomainName
	name       MessageName
	mtype      MessageType
	payload    Payload
	reference  uuid.UUID
	occurredAt time.Time
}

var _ Message = (*UniversalMessage)(nil)

// NewUniversalMessage builds a message from a full message name, a type and a
// raw payload. A fresh reference and the current UTC time are stamped on the
// message; use LoadUniversalMessage to reconstruct an existing message.
//
// The payload is normalized with NewPayload, so the caller keeps ownership of
// the source map.
func NewUniversalMessage(fullName string, messageType MessageType, payload map[string]any) (*UniversalMessage, error) {
	return LoadUniversalMessage(fullName, messageType, payload, uuid.Nil, time.Time{})
}

// LoadUniversalMessage reconstructs a message with a known reference and
// timestamp, typically read from storage or a wire format. A nil reference is
// replaced with a fresh one and a zero timestamp with the current time.
// Timestamps are converted to UTC.
func LoadUniversalMessage(
	fullName string,
	messageType MessageType,
	payload map[string]any,
	reference uuid.UUID,
	occurredAt time.Time,
) (*UniversalMessage, error) {
	domain, name, err := ParseFullName(fullName)
	if err != nil {
		return nil, err
	}
	if err = messageType.Validate(); err != nil {
		return nil, err
	}
	normalized, err := NewPayload(payload)
	if err != nil {
		return nil, err
	}
	if reference == uuid.Nil {
		reference = uuid.New()
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return &UniversalMessage{
		domain:     domain,
		name:       name,
		mtype:      messageType,
		payload:    normalized,
		reference:  reference,
		occurredAt: occurredAt.UTC(),
	}, nil
}

// Domain returns the domain part of the full message name.
func (m *UniversalMessage) Domain() DomainName {
	return m.domain
}

// Name returns the message name part of the full message name.
func (m *UniversalMessage) Name() MessageName {
	return m.name
}

// Type reports whether the message is a command or an event.
func (m *UniversalMessage) Type() MessageType {
	return m.mtype
}

// Reference returns the unique identifier of this message instance.
func (m *UniversalMessage) Reference() uuid.UUID {
	return m.reference
}

// OccurredAt returns the creation time of the message in UTC.
func (m *UniversalMessage) OccurredAt() time.Time {
	return m.occurredAt
}

// Payload returns a copy of the normalized message data, so the message
// cannot be changed through the returned map.
func (m *UniversalMessage) Payload() Payload {
	// The stored payload is already normalized and acyclic, so copying it
	// through NewPayload cannot fail.
	return MustNewPayload(m.payload)
}

// ToJSON renders the message payload as JSON.
func (m *UniversalMessage) ToJSON() ([]byte, error) {
	return m.payload.ToJSON()
}
