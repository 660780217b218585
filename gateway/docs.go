// Package gateway exposes a messagebus over HTTP. Commands are posted to
// /commands/:domain/:name with the payload as the JSON body; the gateway
// builds a message, dispatches it and answers with the handler result.
// Events go to /events/:domain/:name and are acknowledged without waiting
// for their handlers.
package gateway
