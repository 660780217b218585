// Package core defines the shared contracts of the dddkit library.
//
// It contains the value types used to address messages (DomainName,
// MessageName, MessageType), the Message interface with its universal
// implementation, the Payload type holding JSON-safe message data, and the
// interfaces connecting the other packages: Messagebus, HandlersCollection,
// Handler and Future.
//
// All other dddkit packages depend on core and core depends on none of them,
// so alternative messagebus or handler-collection implementations can be
// plugged in by implementing the interfaces declared here.
package core
