// Package schedule dispatches messages into a messagebus on cron schedules.
// Each entry pairs a cron spec with a message factory; on every tick a fresh
// message is built and handed to the bus. Dispatch failures are logged and
// never stop the schedule.
package schedule

import (
	"context"
	"log/slog"

	"dddkit/core"
	"dddkit/pkg/errs"

	"github.com/robfig/cron/v3"
)

// MessageFactory builds the message dispatched on a tick. Returning an error
// skips the tick.
type MessageFactory func(ctx context.Context) (core.Message, error)

// Scheduler runs cron entries that publish messages into a messagebus.
type Scheduler struct {
	bus    core.Messagebus
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler creates an idle scheduler over the given messagebus. A nil
// logger falls back to slog.Default. Cron specs use the six-field form with
// a seconds column, for example "*/5 * * * * *".
func NewScheduler(bus core.Messagebus, logger *slog.Logger) (*Scheduler, error) {
	if bus == nil {
		return nil, errs.NewValueIsRequiredError("bus")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		bus:    bus,
		cron:   cron.New(cron.WithSeconds()),
		logger: logger.With("component", "scheduler"),
	}, nil
}

// Add registers a cron entry. On every tick the factory builds a message and
// the scheduler dispatches it, waiting for the result so failures of the
// handler itself are logged too.
func (s *Scheduler) Add(spec string, factory MessageFactory) error {
	if factory == nil {
		return errs.NewValueIsRequiredError("factory")
	}

	_, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		s.dispatch(ctx, factory)
	})
	return err
}

func (s *Scheduler) dispatch(ctx context.Context, factory MessageFactory) {
	msg, err := factory(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "building scheduled message failed", "error", err)
		return
	}

	fullName := core.FullName(msg.Domain(), msg.Name())
	future, err := s.bus.HandleMessage(ctx, msg, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "dispatching scheduled message failed",
			"message", fullName,
			"error", err)
		return
	}
	if _, err = future.Result(ctx); err != nil {
		s.logger.ErrorContext(ctx, "scheduled message handling failed",
			"message", fullName,
			"error", err)
	}
}

// Start begins firing the registered entries.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops firing new ticks and waits for the running ones to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.logger.Info("scheduler stopped")
	return nil
}
