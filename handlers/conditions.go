package handlers

import (
	"reflect"

	"dddkit/core"
)

// Condition decides whether a subscription handles a given event.
type Condition func(event core.Message) bool

// PayloadEquals accepts events whose payload holds the given value under the
// given key.
func PayloadEquals(key string, value any) Condition {
	return func(event core.Message) bool {
		actual, ok := event.Payload()[key]
		return ok && reflect.DeepEqual(actual, value)
	}
}

// HasPayloadKeys accepts events whose payload holds all the given keys.
func HasPayloadKeys(keys ...string) Condition {
	return func(event core.Message) bool {
		payload := event.Payload()
		for _, key := range keys {
			if _, ok := payload[key]; !ok {
				return false
			}
		}
		return true
	}
}

// And accepts events every given condition accepts.
func And(conditions ...Condition) Condition {
	return func(event core.Message) bool {
		for _, condition := range conditions {
			if !condition(event) {
				return false
			}
		}
		return true
	}
}

// Or accepts events at least one of the given conditions accepts.
func Or(conditions ...Condition) Condition {
	return func(event core.Message) bool {
		for _, condition := range conditions {
			if condition(event) {
				return true
			}
		}
		return false
	}
}

// Not inverts a condition.
func Not(condition Condition) Condition {
	return func(event core.Message) bool {
		return !condition(event)
	}
}
