package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"dddkit/core"
	"dddkit/gateway"
	"dddkit/internal/orders"
	"dddkit/messagebus"
	"dddkit/schedule"
	"dddkit/uow"
	"dddkit/uow/gormstore"

	"gorm.io/gorm"
)

// CompositionRoot wires the order domain, the messagebus, the HTTP gateway
// and the scheduler together.
type CompositionRoot struct {
	db        *gorm.DB
	bus       *messagebus.Messagebus
	gateway   *gateway.Server
	scheduler *schedule.Scheduler
	logger    *slog.Logger
}

func NewCompositionRoot(config Config, db *gorm.DB, logger *slog.Logger) (*CompositionRoot, error) {
	factory, err := gormstore.NewFactory(db, func(tx *gormstore.Tx) *orders.Repository {
		return orders.NewRepository(tx)
	})
	if err != nil {
		return nil, err
	}
	builder, err := uow.NewBuilder[*orders.Repository](factory, uow.NewKeyedMutexLocker())
	if err != nil {
		return nil, err
	}

	collection, err := orders.NewCollection(logger)
	if err != nil {
		return nil, err
	}

	bus := messagebus.New(logger)
	if err = bus.IncludeCollection(collection); err != nil {
		return nil, err
	}
	err = bus.SetDefaults(orders.DomainName, core.Dependencies{
		orders.UnitOfWorkDep: builder,
		orders.MessagebusDep: bus,
	})
	if err != nil {
		return nil, err
	}

	server, err := gateway.NewServer(bus, logger)
	if err != nil {
		return nil, err
	}

	scheduler, err := schedule.NewScheduler(bus, logger)
	if err != nil {
		return nil, err
	}
	err = scheduler.Add(config.SweepCron, func(context.Context) (core.Message, error) {
		cmd, cmdErr := core.NewUniversalMessage("orders.SweepOrders", core.CommandMessageType, nil)
		return cmd, cmdErr
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling order sweep: %w", err)
	}

	return &CompositionRoot{
		db:        db,
		bus:       bus,
		gateway:   server,
		scheduler: scheduler,
		logger:    logger,
	}, nil
}

// Start runs the messagebus and the scheduler, then serves HTTP until the
// gateway is shut down.
func (c *CompositionRoot) Start(ctx context.Context, httpPort string) error {
	if err := c.db.AutoMigrate(&orders.OrderRecord{}); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	if err := c.bus.Run(ctx); err != nil {
		return err
	}
	c.scheduler.Start()
	return c.gateway.Start(fmt.Sprintf("0.0.0.0:%s", httpPort))
}

// Shutdown stops the gateway, the scheduler and the messagebus in reverse
// startup order.
func (c *CompositionRoot) Shutdown(ctx context.Context) error {
	if err := c.gateway.Shutdown(ctx); err != nil {
		c.logger.Error("shutting down gateway failed", "error", err)
	}
	if err := c.scheduler.Stop(ctx); err != nil {
		c.logger.Error("stopping scheduler failed", "error", err)
	}
	return c.bus.Close(ctx)
}
