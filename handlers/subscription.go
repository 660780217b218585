package handlers

import (
	"context"

	"dddkit/core"

	"github.com/cenkalti/backoff/v4"
)

// Converter reshapes an event payload into the payload of the subscribed
// command.
type Converter func(payload core.Payload) core.Payload

type subscription struct {
	registration *Registration
	condition    Condition
	converter    Converter
	newBackOff   func() backoff.BackOff
}

// SubscribeOption customizes a subscription.
type SubscribeOption func(*subscription)

// WithCondition makes the subscription handle only events the condition
// accepts. Rejected events are skipped without any trace.
func WithCondition(condition Condition) SubscribeOption {
	return func(s *subscription) {
		s.condition = condition
	}
}

// WithConverter reshapes the event payload before the command is built from
// it. Without a converter the event payload is used as is.
func WithConverter(converter Converter) SubscribeOption {
	return func(s *subscription) {
		s.converter = converter
	}
}

// WithRetry retries the handler on failure with a fresh backoff policy per
// invocation. Without it the handler runs exactly once.
//
//	reg.Subscribe("orders.OrderPlaced", handlers.WithRetry(func() backoff.BackOff {
//	    return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
//	}))
func WithRetry(newBackOff func() backoff.BackOff) SubscribeOption {
	return func(s *subscription) {
		s.newBackOff = newBackOff
	}
}

// Subscribe connects an event to the registered handler: when an event with
// the given full name arrives, its payload is converted into a fresh command
// and the handler is invoked with it. One handler can subscribe to any
// number of events.
func (r *Registration) Subscribe(fullEventName string, opts ...SubscribeOption) error {
	domain, name, err := core.ParseFullName(fullEventName)
	if err != nil {
		return err
	}

	sub := &subscription{registration: r}
	for _, opt := range opts {
		opt(sub)
	}

	c := r.collection
	key := core.FullName(domain, name)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[key] = append(c.subscriptions[key], sub)
	return nil
}

// MustSubscribe is Subscribe panicking on error, for use in package init
// functions.
func (r *Registration) MustSubscribe(fullEventName string, opts ...SubscribeOption) {
	if err := r.Subscribe(fullEventName, opts...); err != nil {
		panic(err)
	}
}

// withRetry reruns the handler per the backoff policy until it succeeds, the
// policy gives up or the context is cancelled.
func withRetry(handler core.Handler, newBackOff func() backoff.BackOff) core.Handler {
	return func(ctx context.Context) (any, error) {
		var result any
		operation := func() error {
			r, err := handler(ctx)
			if err != nil {
				return err
			}
			result = r
			return nil
		}
		if err := backoff.Retry(operation, backoff.WithContext(newBackOff(), ctx)); err != nil {
			return nil, err
		}
		return result, nil
	}
}
