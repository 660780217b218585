// Package orders is the sample domain of the demo application: an order
// aggregate persisted through a GORM-backed unit of work and driven entirely
// by messages.
package orders

import (
	"errors"

	"dddkit/core"
	"dddkit/domain"
	"dddkit/pkg/errs"

	"github.com/google/uuid"
)

// DomainName is the message domain of this package.
const DomainName = "orders"

// CreateOrder creates a new order.
type CreateOrder struct {
	Reference string `json:"reference" validate:"required,uuid"`
	Address   string `json:"address" validate:"required"`
	Volume    int    `json:"volume" validate:"gt=0"`
}

// CompleteOrder marks an order as delivered.
type CompleteOrder struct {
	Reference string `json:"reference" validate:"required,uuid"`
}

// SweepOrders reports how many orders are still waiting for delivery.
type SweepOrders struct{}

// OrderCreated is raised when a new order enters the system.
type OrderCreated struct {
	Reference string `json:"reference"`
	Address   string `json:"address"`
	Volume    int    `json:"volume"`
}

// OrderPaid arrives from the outside and triggers order completion.
type OrderPaid struct {
	Reference string `json:"reference"`
}

// OrderCompleted is raised when an order is delivered.
type OrderCompleted struct {
	Reference string `json:"reference"`
}

// ErrOrderAlreadyCompleted is raised when completing a delivered order.
var ErrOrderAlreadyCompleted = domain.MustRegisterError(DomainName,
	"OrderAlreadyCompleted", "order {reference} is already completed")

func init() {
	domain.MustRegisterCommand[CreateOrder](DomainName)
	domain.MustRegisterCommand[CompleteOrder](DomainName)
	domain.MustRegisterCommand[SweepOrders](DomainName)
	domain.MustRegisterEvent[OrderCreated](DomainName)
	domain.MustRegisterEvent[OrderPaid](DomainName)
	domain.MustRegisterEvent[OrderCompleted](DomainName)
}

// Status is the delivery state of an order.
type Status string

const (
	StatusCreated   Status = "created"
	StatusCompleted Status = "completed"
)

// Order is the aggregate root of this domain.
type Order struct {
	domain.Aggregate[uuid.UUID]

	address string
	volume  int
	status  Status
}

// NewOrder creates an order in the created status and raises OrderCreated.
func NewOrder(reference uuid.UUID, address string, volume int) (*Order, error) {
	var causes []error
	if reference == uuid.Nil {
		causes = append(causes, errs.NewValueIsRequiredError("reference"))
	}
	if address == "" {
		causes = append(causes, errs.NewValueIsRequiredError("address"))
	}
	if volume <= 0 {
		causes = append(causes, errs.NewValueIsOutOfRangeError("volume", volume, 1, nil))
	}
	if len(causes) > 0 {
		return nil, errors.Join(causes...)
	}

	aggregate, err := domain.NewAggregate(DomainName, reference)
	if err != nil {
		return nil, err
	}
	order := &Order{
		Aggregate: aggregate,
		address:   address,
		volume:    volume,
		status:    StatusCreated,
	}
	err = order.RaiseEvent("OrderCreated", core.Payload{
		"reference": reference.String(),
		"address":   address,
		"volume":    volume,
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// RestoreOrder rebuilds an order from storage without raising events.
func RestoreOrder(reference uuid.UUID, address string, volume int, status Status, version domain.Version) (*Order, error) {
	aggregate, err := domain.LoadAggregate(DomainName, reference, version)
	if err != nil {
		return nil, err
	}
	return &Order{
		Aggregate: aggregate,
		address:   address,
		volume:    volume,
		status:    status,
	}, nil
}

// Address returns the delivery address.
func (o *Order) Address() string {
	return o.address
}

// Volume returns the order volume.
func (o *Order) Volume() int {
	return o.volume
}

// Status returns the delivery state.
func (o *Order) Status() Status {
	return o.status
}

// Complete marks the order as delivered and raises OrderCompleted.
// Completing a delivered order fails with ErrOrderAlreadyCompleted.
func (o *Order) Complete() error {
	if o.status == StatusCompleted {
		return ErrOrderAlreadyCompleted.MustNew(core.Payload{
			"reference": o.Reference().String(),
		})
	}
	o.status = StatusCompleted
	return o.RaiseEvent("OrderCompleted", core.Payload{
		"reference": o.Reference().String(),
	})
}
