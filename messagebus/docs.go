// Package messagebus runs the in-process message dispatch loop. A Messagebus
// owns one or more handler collections, routes commands to the single handler
// registered for them, fans events out to every subscribed handler, and
// tracks the work it spawned so Stop can drain it.
//
// The bus has a simple lifecycle: collections are included and defaults set
// while it is idle, Run opens it for messages, Stop waits for in-flight
// handlers, and Close retires the instance for good. Lifecycle transitions
// are announced to subscribed listeners.
//
// Handlers receive a context carrying the message being handled. Messages
// published from inside a handler through HandleMessage are accepted even
// while the bus is stopping, so a command can finish its event cascade.
package messagebus
