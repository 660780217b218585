package messagebus

import "sync"

var (
	defaultMu  sync.Mutex
	defaultBus *Messagebus
)

// Default returns the process-wide messagebus, creating it on first use.
// Small applications can use it instead of wiring a bus through their
// composition root.
func Default() *Messagebus {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBus == nil {
		defaultBus = New(nil)
	}
	return defaultBus
}

// SetDefault replaces the process-wide messagebus. It is meant to be called
// once during application startup, before Default is used.
func SetDefault(bus *Messagebus) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultBus = bus
}
