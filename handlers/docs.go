// Package handlers implements the standard core.HandlersCollection: a set of
// command handlers plus the event subscriptions that feed commands into them.
//
// A handler is registered once per command class. Subscriptions connect an
// event to a registered handler: when the event arrives its payload is
// optionally converted, a fresh command is built from it, and the handler is
// invoked, so event-driven and direct invocations share one code path.
//
// Typical wiring:
//
//	collection := handlers.NewCollection(logger)
//
//	reg, err := handlers.Register(collection, handleCreateUser)
//	if err != nil { ... }
//
//	err = reg.Subscribe("billing.AccountOpened",
//	    handlers.WithCondition(handlers.PayloadEquals("plan", "pro")),
//	    handlers.WithConverter(accountToUser),
//	)
package handlers
