// Package domain provides the building blocks for expressing a domain model:
// typed commands and events, entities and aggregates, and registered domain
// errors.
//
// Command and event payloads are plain Go structs registered once per domain,
// usually from an init function:
//
//	type CreateUser struct {
//	    Name    string `json:"name" validate:"required"`
//	    Surname string `json:"surname" validate:"required"`
//	}
//
//	type UserCreated struct {
//	    Reference uuid.UUID `json:"reference"`
//	    Name      string    `json:"name"`
//	}
//
//	func init() {
//	    domain.MustRegisterCommand[CreateUser]("users")
//	    domain.MustRegisterEvent[UserCreated]("users")
//	}
//
// The message name is derived from the struct type name, so the struct must be
// named like a message: CamelCase starting with an uppercase letter. Payloads
// are validated with github.com/go-playground/validator struct tags when a
// command or event instance is created.
//
// The registry keeps one class per (domain, name) pair and rejects
// registering the same Go type under two different names. It also powers the
// upgrade of generic core.UniversalMessage instances into their typed
// counterparts when the handlers package dispatches them.
package domain
