package orders

import (
	"context"
	"errors"
	"fmt"

	"dddkit/domain"
	"dddkit/pkg/errs"
	"dddkit/uow/gormstore"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRecord is the persistence model of the order aggregate.
type OrderRecord struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	Address string    `gorm:"type:text;not null"`
	Volume  int       `gorm:"not null"`
	Status  string    `gorm:"type:varchar(32);not null"`
	Version int       `gorm:"not null"`
}

func (OrderRecord) TableName() string { return "orders" }

// Repository persists orders inside one unit of work scope.
type Repository struct {
	*gormstore.Tx
}

// NewRepository binds a repository to the scope's transaction.
func NewRepository(tx *gormstore.Tx) *Repository {
	return &Repository{Tx: tx}
}

// Add inserts a new order.
func (r *Repository) Add(ctx context.Context, order *Order) error {
	record := toRecord(order)
	if err := r.DB(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("adding order %s: %w", order.Reference(), err)
	}
	return nil
}

// Update saves an order with an optimistic version check: the row is only
// written when its stored version matches the version the aggregate was
// loaded with.
func (r *Repository) Update(ctx context.Context, order *Order) error {
	currentVersion := int(order.Version())
	order.IncrementVersion()
	record := toRecord(order)

	result := r.DB(ctx).Model(&OrderRecord{}).
		Where("id = ? AND version = ?", record.ID, currentVersion).
		Updates(map[string]any{
			"address": record.Address,
			"volume":  record.Volume,
			"status":  record.Status,
			"version": record.Version,
		})
	if result.Error != nil {
		return fmt.Errorf("updating order %s: %w", order.Reference(), result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NewVersionIsInvalidErrorWithCause("version",
			fmt.Errorf("order %s was changed concurrently", order.Reference()))
	}
	return nil
}

// Get loads an order by reference.
func (r *Repository) Get(ctx context.Context, reference uuid.UUID) (*Order, error) {
	var record OrderRecord
	err := r.DB(ctx).First(&record, "id = ?", reference).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewObjectNotFoundError("reference", reference)
	}
	if err != nil {
		return nil, fmt.Errorf("loading order %s: %w", reference, err)
	}
	return RestoreOrder(record.ID, record.Address, record.Volume,
		Status(record.Status), domain.Version(record.Version))
}

// CountInStatus counts orders in the given delivery state.
func (r *Repository) CountInStatus(ctx context.Context, status Status) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&OrderRecord{}).
		Where("status = ?", string(status)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting %s orders: %w", status, err)
	}
	return count, nil
}

func toRecord(order *Order) OrderRecord {
	return OrderRecord{
		ID:      order.Reference(),
		Address: order.Address(),
		Volume:  order.Volume(),
		Status:  string(order.Status()),
		Version: int(order.Version()),
	}
}
