// Package gormstore binds the unit of work to GORM: every scope runs inside
// one database transaction. A user repository embeds *Tx, gaining the Commit
// and Rollback behavior the uow package expects, and issues its queries
// through Tx.DB.
//
//	type OrderRepository struct {
//	    *gormstore.Tx
//	}
//
//	factory, err := gormstore.NewFactory(db, func(tx *gormstore.Tx) *OrderRepository {
//	    return &OrderRepository{Tx: tx}
//	})
//	builder, err := uow.NewBuilder[*OrderRepository](factory, nil)
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"dddkit/pkg/errs"

	"gorm.io/gorm"
)

// Tx is one open database transaction backing a unit of work scope.
type Tx struct {
	tx   *gorm.DB
	done bool
}

// DB returns the transaction handle queries must go through.
func (t *Tx) DB(ctx context.Context) *gorm.DB {
	return t.tx.WithContext(ctx)
}

// Commit commits the transaction. A finished transaction cannot be
// committed again.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("transaction is already finished")
	}
	if err := t.tx.WithContext(ctx).Commit().Error; err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	t.done = true
	return nil
}

// Rollback discards the transaction. Rolling back a finished transaction is
// a no-op, so Scope.Close stays safe after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.WithContext(ctx).Rollback().Error; err != nil {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

// Factory is a uow.RepositoryBuilder opening one transaction per scope and
// binding the user repository to it.
type Factory[R any] struct {
	db   *gorm.DB
	bind func(tx *Tx) R
}

// NewFactory creates a transaction-per-scope repository factory.
func NewFactory[R any](db *gorm.DB, bind func(tx *Tx) R) (*Factory[R], error) {
	if db == nil {
		return nil, errs.NewValueIsRequiredError("db")
	}
	if bind == nil {
		return nil, errs.NewValueIsRequiredError("bind")
	}
	return &Factory[R]{db: db, bind: bind}, nil
}

// Build opens a transaction and binds the repository to it.
func (f *Factory[R]) Build(ctx context.Context) (R, error) {
	tx := f.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		var zero R
		return zero, fmt.Errorf("beginning transaction: %w", tx.Error)
	}
	return f.bind(&Tx{tx: tx}), nil
}
