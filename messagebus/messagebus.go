package messagebus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"dddkit/core"
	"dddkit/pkg/errs"
)

var (
	// ErrClosed is returned by operations on a bus that has been closed.
	ErrClosed = errors.New("messagebus is closed")

	// ErrNotRunning is returned by HandleMessage when the bus is not running
	// and the message does not come from inside a handler.
	ErrNotRunning = errors.New("messagebus is not running")

	// ErrNoCollections is returned by Run when no handler collection has
	// been included.
	ErrNoCollections = errors.New("messagebus has no included handler collections")
)

// Messagebus is the standard core.Messagebus implementation.
// The zero value is not usable; create instances with New.
type Messagebus struct {
	// lifecycleMu serializes Run, Stop and Close transitions.
	lifecycleMu sync.Mutex

	stateMu  sync.Mutex
	running  bool
	closed   bool
	defaults map[core.DomainName]core.Dependencies

	collections busCollections
	listeners   *listenerRegistry
	inflight    *inflightTracker
	logger      *slog.Logger
}

var _ core.Messagebus = (*Messagebus)(nil)

// New creates an idle messagebus. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Messagebus {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "messagebus")
	return &Messagebus{
		defaults:  map[core.DomainName]core.Dependencies{},
		listeners: newListenerRegistry(logger),
		inflight:  newInflightTracker(),
		logger:    logger,
	}
}

// IncludeCollection adds a handlers collection to the bus. Collections can
// only be included while the bus is idle.
func (b *Messagebus) IncludeCollection(collection core.HandlersCollection) error {
	if collection == nil {
		return errs.NewValueIsRequiredError("collection")
	}

	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.running {
		return errors.New("collections can be included only before run")
	}
	b.collections.include(collection)
	return nil
}

// SetDefaults stores default dependencies for handlers of the given domain.
// Defaults can only be changed while the bus is idle; they are pushed into
// the included collections when Run is called.
func (b *Messagebus) SetDefaults(domain core.DomainName, deps core.Dependencies) error {
	if err := domain.Validate(); err != nil {
		return err
	}

	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.running {
		return errors.New("defaults can be changed only before run")
	}
	b.defaults[domain] = b.defaults[domain].Merge(deps)
	return nil
}

// Subscribe registers a listener for the given lifecycle events. The
// returned function cancels the subscription.
func (b *Messagebus) Subscribe(listener core.Listener, events ...core.MessagebusEvent) func() {
	return b.listeners.subscribe(listener, events...)
}

// RegisteredCommands lists the commands of all included collections.
func (b *Messagebus) RegisteredCommands() []core.MessageMeta {
	return b.collections.registeredCommands()
}

// IsRunning reports whether the bus currently accepts outside messages.
func (b *Messagebus) IsRunning() bool {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.running
}

// IsClosed reports whether the bus has been closed.
func (b *Messagebus) IsClosed() bool {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.closed
}

// Run starts the messagebus, pushing the stored defaults into the included
// collections. Running an already running bus is a no-op; running a closed
// bus or a bus without collections fails.
func (b *Messagebus) Run(ctx context.Context) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	b.stateMu.Lock()
	if b.closed {
		b.stateMu.Unlock()
		return ErrClosed
	}
	if b.running {
		b.stateMu.Unlock()
		return nil
	}
	b.stateMu.Unlock()
	if b.collections.empty() {
		return ErrNoCollections
	}

	b.listeners.notify(ctx, b, core.BeforeRun)

	b.stateMu.Lock()
	b.collections.updateDefaults(b.defaults)
	b.running = true
	b.stateMu.Unlock()
	b.logger.Info("messagebus started")

	b.listeners.notify(ctx, b, core.AfterRun)
	return nil
}

// Stop stops accepting outside messages and drains every in-flight handler,
// including messages the handlers publish while draining. Stopping an idle
// bus is a no-op.
func (b *Messagebus) Stop(ctx context.Context) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()
	return b.stop(ctx)
}

func (b *Messagebus) stop(ctx context.Context) error {
	b.stateMu.Lock()
	if !b.running {
		b.stateMu.Unlock()
		return nil
	}
	b.stateMu.Unlock()

	b.listeners.notify(ctx, b, core.BeforeStop)

	b.stateMu.Lock()
	b.running = false
	b.stateMu.Unlock()

	if err := b.inflight.wait(ctx); err != nil {
		return fmt.Errorf("draining in-flight messages: %w", err)
	}
	b.logger.Info("messagebus stopped")

	b.listeners.notify(ctx, b, core.AfterStop)
	return nil
}

// Close stops the bus if needed and shuts it down permanently. Closing an
// already closed bus is a no-op.
func (b *Messagebus) Close(ctx context.Context) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	b.stateMu.Lock()
	if b.closed {
		b.stateMu.Unlock()
		return nil
	}
	b.stateMu.Unlock()

	if err := b.stop(ctx); err != nil {
		return err
	}

	b.listeners.notify(ctx, b, core.BeforeClose)

	b.stateMu.Lock()
	b.closed = true
	b.stateMu.Unlock()
	b.logger.Info("messagebus closed")

	b.listeners.notify(ctx, b, core.AfterClose)
	return nil
}

// HandleMessage dispatches a message and returns a Future resolved with the
// handling result. While the bus is not running only messages published from
// inside a handler are accepted; this lets handlers finish their event
// cascades while the bus drains.
func (b *Messagebus) HandleMessage(ctx context.Context, msg core.Message, deps core.Dependencies) (*core.Future, error) {
	if msg == nil {
		return nil, errs.NewValueIsRequiredError("msg")
	}

	b.stateMu.Lock()
	closed, running := b.closed, b.running
	b.stateMu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if !running {
		if _, ok := MessageFromContext(ctx); !ok {
			return nil, ErrNotRunning
		}
	}

	// Messages published from inside a handler inherit the handler's
	// dependency set; per-call dependencies override inherited ones.
	if inherited, ok := DependenciesFromContext(ctx); ok {
		deps = inherited.Merge(deps)
	}

	switch msg.Type() {
	case core.CommandMessageType:
		return b.handleCommand(ctx, msg, deps)
	case core.EventMessageType:
		return b.handleEvent(ctx, msg, deps)
	default:
		return nil, errs.NewValueIsInvalidErrorWithCause("msg",
			fmt.Errorf("unsupported message type %q", msg.Type()))
	}
}

// RunUntilComplete runs the bus, dispatches a single command, stops the bus
// and returns the command result. Only commands are accepted.
func (b *Messagebus) RunUntilComplete(ctx context.Context, cmd core.Message, deps core.Dependencies) (any, error) {
	if cmd == nil {
		return nil, errs.NewValueIsRequiredError("cmd")
	}
	if cmd.Type() != core.CommandMessageType {
		return nil, errs.NewValueIsInvalidErrorWithCause("cmd",
			fmt.Errorf("%s message cannot be run until complete, command expected", cmd.Type()))
	}

	if err := b.Run(ctx); err != nil {
		return nil, err
	}
	future, err := b.HandleMessage(ctx, cmd, deps)
	if err != nil {
		return nil, errors.Join(err, b.Stop(ctx))
	}
	if err = b.Stop(ctx); err != nil {
		return nil, err
	}
	return future.Result(ctx)
}

func (b *Messagebus) handleCommand(ctx context.Context, cmd core.Message, deps core.Dependencies) (*core.Future, error) {
	handler, err := b.collections.commandHandler(cmd, deps)
	if err != nil {
		return nil, err
	}

	future := core.NewFuture()
	handlerCtx := b.handlerContext(ctx, cmd, deps)
	b.inflight.add()
	go func() {
		defer b.inflight.done()
		result, handleErr := b.invoke(handlerCtx, cmd, handler)
		future.Resolve(result, handleErr)
	}()
	return future, nil
}

func (b *Messagebus) handleEvent(ctx context.Context, event core.Message, deps core.Dependencies) (*core.Future, error) {
	handlers := b.collections.eventHandlers(event, deps)

	future := core.NewFuture()
	if len(handlers) == 0 {
		future.Resolve(nil, nil)
		return future, nil
	}

	handlerCtx := b.handlerContext(ctx, event, deps)
	fullName := core.FullName(event.Domain(), event.Name())
	handlerErrs := make([]error, len(handlers))
	var wg sync.WaitGroup
	for i, handler := range handlers {
		b.inflight.add()
		wg.Add(1)
		go func() {
			defer b.inflight.done()
			defer wg.Done()
			if _, err := b.invoke(handlerCtx, event, handler); err != nil {
				b.logger.Error("event handler failed",
					"message", fullName,
					"reference", event.Reference(),
					"error", err)
				handlerErrs[i] = err
			}
		}()
	}
	go func() {
		wg.Wait()
		future.Resolve(nil, errors.Join(handlerErrs...))
	}()
	return future, nil
}

// handlerContext detaches the handler from the caller's cancellation so the
// handler can finish while the bus drains, and marks the context with the
// message being handled.
func (b *Messagebus) handlerContext(ctx context.Context, msg core.Message, deps core.Dependencies) context.Context {
	handlerCtx := context.WithoutCancel(ctx)
	handlerCtx = withMessage(handlerCtx, msg)
	return withDependencies(handlerCtx, deps)
}

func (b *Messagebus) invoke(ctx context.Context, msg core.Message, handler core.Handler) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler for %q panicked: %v",
				core.FullName(msg.Domain(), msg.Name()), r)
		}
	}()
	return handler(ctx)
}

// inflightTracker counts running handlers and lets Stop wait for the count
// to reach zero.
type inflightTracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func newInflightTracker() *inflightTracker {
	idle := make(chan struct{})
	close(idle)
	return &inflightTracker{idle: idle}
}

func (t *inflightTracker) add() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
}

func (t *inflightTracker) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n--
	if t.n == 0 {
		close(t.idle)
	}
}

// wait blocks until no handlers are in flight. Handlers started while
// waiting, for example by other draining handlers, are waited for too.
func (t *inflightTracker) wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		n, idle := t.n, t.idle
		t.mu.Unlock()
		if n == 0 {
			return nil
		}
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
