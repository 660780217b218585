package core

import (
	"fmt"
	"regexp"
	"strings"

	"dddkit/pkg/errs"
)

// MessageType distinguishes commands from events.
// Commands are resolved to exactly one handler, events fan out to all subscribers.
type MessageType string

const (
	// CommandMessageType marks a message as a command.
	CommandMessageType MessageType = "COMMAND"
	// EventMessageType marks a message as an event.
	EventMessageType MessageType = "EVENT"
)

// ParseMessageType converts a string into a MessageType.
// The comparison is case-insensitive, so "command" and "COMMAND" are both accepted.
func ParseMessageType(value string) (MessageType, error) {
	mt := MessageType(strings.ToUpper(value))
	if err := mt.Validate(); err != nil {
		return "", err
	}
	return mt, nil
}

// Validate checks that the MessageType is one of the declared constants.
func (t MessageType) Validate() error {
	switch t {
	case CommandMessageType, EventMessageType:
		return nil
	}
	return errs.NewValueIsInvalidErrorWithCause("messageType",
		fmt.Errorf("unknown message type %q", string(t)))
}

func (t MessageType) String() string {
	return string(t)
}

// MessagebusEvent identifies a point in the messagebus lifecycle that
// listeners can subscribe to.
type MessagebusEvent string

const (
	// BeforeRun is emitted before the messagebus starts accepting messages.
	BeforeRun MessagebusEvent = "BEFORE_RUN"
	// AfterRun is emitted once the messagebus is running.
	AfterRun MessagebusEvent = "AFTER_RUN"
	// BeforeStop is emitted before the messagebus begins draining in-flight messages.
	BeforeStop MessagebusEvent = "BEFORE_STOP"
	// AfterStop is emitted once all in-flight messages have completed.
	AfterStop MessagebusEvent = "AFTER_STOP"
	// BeforeClose is emitted before the messagebus shuts down permanently.
	BeforeClose MessagebusEvent = "BEFORE_CLOSE"
	// AfterClose is emitted once the messagebus is closed.
	AfterClose MessagebusEvent = "AFTER_CLOSE"
)

func (e MessagebusEvent) String() string {
	return string(e)
}

var domainSectionRegexp = regexp.MustCompile(`^([a-z]|[a-z0-9]-)+$`)

// DomainName identifies a bounded context. It is a dot-separated name where
// every section consists of lowercase letters, digits and hyphens, a digit or
// hyphen never standing on its own ("navigation", "navigation.routes",
// "geo-billing").
//
// A name with more than one section denotes a subdomain; PartOf returns the
// parent domain.
//
// Example:
//
//	dn, err := core.NewDomainName("navigation.routes")
//	if err != nil {
//	    // handle invalid name
//	}
//	parent, _ := dn.PartOf() // DomainName("navigation")
type DomainName string

// NewDomainName validates a raw string and returns it as a DomainName.
// Every dot-separated section is validated independently.
func NewDomainName(value string) (DomainName, error) {
	if value == "" {
		return "", errs.NewValueIsRequiredError("domainName")
	}
	for _, section := range strings.Split(value, ".") {
		if !domainSectionRegexp.MatchString(section) {
			return "", errs.NewValueIsInvalidErrorWithCause("domainName",
				fmt.Errorf("domain name %q has not allowed symbols in section %q", value, section))
		}
	}
	return DomainName(value), nil
}

// PartOf returns the parent domain of a subdomain.
// The second return value is false when the name has no parent.
func (d DomainName) PartOf() (DomainName, bool) {
	idx := strings.LastIndex(string(d), ".")
	if idx < 0 {
		return "", false
	}
	return DomainName(d[:idx]), true
}

// Validate re-checks the DomainName, which is useful for names produced by
// conversions rather than NewDomainName.
func (d DomainName) Validate() error {
	_, err := NewDomainName(string(d))
	return err
}

func (d DomainName) String() string {
	return string(d)
}

var messageNameRegexp = regexp.MustCompile(`^[A-Z][A-Za-z0-9]+$`)

// MessageName identifies a command or event within a domain. Names are
// CamelCase: an uppercase letter followed by letters and digits
// ("CreateOrder", "OrderCreated").
type MessageName string

// NewMessageName validates a raw string and returns it as a MessageName.
func NewMessageName(value string) (MessageName, error) {
	if value == "" {
		return "", errs.NewValueIsRequiredError("messageName")
	}
	if !messageNameRegexp.MatchString(value) {
		return "", errs.NewValueIsInvalidErrorWithCause("messageName",
			fmt.Errorf("message name %q has not allowed symbols", value))
	}
	return MessageName(value), nil
}

// Validate re-checks the MessageName.
func (n MessageName) Validate() error {
	_, err := NewMessageName(string(n))
	return err
}

func (n MessageName) String() string {
	return string(n)
}

// ParseFullName splits a full message name of the form "domain.sub.Name" into
// its domain and message parts. The message name is everything after the last
// dot, the domain is everything before it.
func ParseFullName(fullName string) (DomainName, MessageName, error) {
	idx := strings.LastIndex(fullName, ".")
	if idx < 0 {
		return "", "", errs.NewValueIsInvalidErrorWithCause("fullName",
			fmt.Errorf("full message name %q must contain a domain and a message name", fullName))
	}
	domain, err := NewDomainName(fullName[:idx])
	if err != nil {
		return "", "", err
	}
	name, err := NewMessageName(fullName[idx+1:])
	if err != nil {
		return "", "", err
	}
	return domain, name, nil
}

// FullName joins a domain and message name into the "domain.Name" form.
func FullName(domain DomainName, name MessageName) string {
	return string(domain) + "." + string(name)
}
