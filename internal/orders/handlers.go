package orders

import (
	"context"
	"fmt"
	"log/slog"

	"dddkit/core"
	"dddkit/domain"
	"dddkit/handlers"
	"dddkit/uow"

	"github.com/google/uuid"
)

// Dependency names the handlers of this domain expect.
const (
	UnitOfWorkDep = "orders.uow"
	MessagebusDep = "orders.bus"
)

// UnitOfWork is the unit of work builder this domain works with.
type UnitOfWork = uow.Builder[*Repository]

// NewCollection wires the handlers of this domain into a fresh collection.
// The unit of work builder and the messagebus are expected as default
// dependencies under UnitOfWorkDep and MessagebusDep.
func NewCollection(logger *slog.Logger) (*handlers.Collection, error) {
	collection := handlers.NewCollection(logger)

	if _, err := handlers.Register(collection, handleCreateOrder); err != nil {
		return nil, err
	}
	complete, err := handlers.Register(collection, handleCompleteOrder)
	if err != nil {
		return nil, err
	}
	if _, err = handlers.Register(collection, handleSweepOrders); err != nil {
		return nil, err
	}

	// Payments settle asynchronously; a paid order is a delivered order.
	if err = complete.Subscribe("orders.OrderPaid"); err != nil {
		return nil, err
	}
	return collection, nil
}

func handleCreateOrder(ctx context.Context, cmd *domain.Command[CreateOrder], deps core.Dependencies) (any, error) {
	builder, err := unitOfWork(deps)
	if err != nil {
		return nil, err
	}
	reference, err := uuid.Parse(cmd.Data().Reference)
	if err != nil {
		return nil, fmt.Errorf("parsing order reference: %w", err)
	}

	scope, err := builder.Open(ctx, reference.String())
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	order, err := NewOrder(reference, cmd.Data().Address, cmd.Data().Volume)
	if err != nil {
		return nil, err
	}
	if err = scope.Repository().Add(ctx, order); err != nil {
		return nil, err
	}
	if err = scope.Apply(ctx); err != nil {
		return nil, err
	}

	publishEvents(ctx, deps, order.CollectEvents())
	return reference.String(), nil
}

func handleCompleteOrder(ctx context.Context, cmd *domain.Command[CompleteOrder], deps core.Dependencies) (any, error) {
	builder, err := unitOfWork(deps)
	if err != nil {
		return nil, err
	}
	reference, err := uuid.Parse(cmd.Data().Reference)
	if err != nil {
		return nil, fmt.Errorf("parsing order reference: %w", err)
	}

	scope, err := builder.Open(ctx, reference.String())
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	order, err := scope.Repository().Get(ctx, reference)
	if err != nil {
		return nil, err
	}
	if err = order.Complete(); err != nil {
		return nil, err
	}
	if err = scope.Repository().Update(ctx, order); err != nil {
		return nil, err
	}
	if err = scope.Apply(ctx); err != nil {
		return nil, err
	}

	publishEvents(ctx, deps, order.CollectEvents())
	return reference.String(), nil
}

func handleSweepOrders(ctx context.Context, _ *domain.Command[SweepOrders], deps core.Dependencies) (any, error) {
	builder, err := unitOfWork(deps)
	if err != nil {
		return nil, err
	}

	scope, err := builder.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	pending, err := scope.Repository().CountInStatus(ctx, StatusCreated)
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func unitOfWork(deps core.Dependencies) (*UnitOfWork, error) {
	builder, ok := deps[UnitOfWorkDep].(*UnitOfWork)
	if !ok {
		return nil, fmt.Errorf("dependency %q is missing or has a wrong type", UnitOfWorkDep)
	}
	return builder, nil
}

// publishEvents hands the aggregate events to the messagebus when one is
// wired in. The handler context carries the command, so the bus accepts the
// events even while draining.
func publishEvents(ctx context.Context, deps core.Dependencies, events []core.Message) {
	bus, ok := deps[MessagebusDep].(core.Messagebus)
	if !ok {
		return
	}
	for _, event := range events {
		// Dispatch failures surface through the bus's own logging.
		_, _ = bus.HandleMessage(ctx, event, nil)
	}
}
