package uow

import (
	"context"
	"errors"

	"dddkit/pkg/errs"
)

// Repository is the application-side repository bound to one unit of work
// scope. Commit makes the changes collected during the scope durable.
type Repository interface {
	Commit(ctx context.Context) error
}

// Rollbacker is implemented by repositories that can discard uncommitted
// changes. Scope.Close calls it when the scope was not applied.
type Rollbacker interface {
	Rollback(ctx context.Context) error
}

// RepositoryBuilder creates one repository per unit of work scope.
type RepositoryBuilder[R Repository] interface {
	Build(ctx context.Context) (R, error)
}

// RepositoryBuilderFunc adapts a function to the RepositoryBuilder interface.
type RepositoryBuilderFunc[R Repository] func(ctx context.Context) (R, error)

func (f RepositoryBuilderFunc[R]) Build(ctx context.Context) (R, error) {
	return f(ctx)
}

// Builder opens unit of work scopes: one lock acquisition plus one fresh
// repository per scope.
type Builder[R Repository] struct {
	repositories RepositoryBuilder[R]
	locker       Locker
}

// NewBuilder creates a unit of work builder. A nil locker falls back to the
// no-op NullLocker.
func NewBuilder[R Repository](repositories RepositoryBuilder[R], locker Locker) (*Builder[R], error) {
	if repositories == nil {
		return nil, errs.NewValueIsRequiredError("repositories")
	}
	if locker == nil {
		locker = NullLocker{}
	}
	return &Builder[R]{repositories: repositories, locker: locker}, nil
}

// Open acquires the lock for the given keys, builds a fresh repository and
// returns the scope holding both. The caller must Close the scope.
func (b *Builder[R]) Open(ctx context.Context, lockKeys ...string) (*Scope[R], error) {
	lock, err := b.locker.Acquire(ctx, lockKeys...)
	if err != nil {
		return nil, err
	}
	repository, err := b.repositories.Build(ctx)
	if err != nil {
		return nil, errors.Join(err, lock.Release(ctx))
	}
	return &Scope[R]{repository: repository, lock: lock}, nil
}

// Scope is one open unit of work: a repository plus the lock protecting it.
type Scope[R Repository] struct {
	repository R
	lock       Lock
	applied    bool
	closed     bool
}

// Repository returns the repository bound to this scope.
func (s *Scope[R]) Repository() R {
	return s.repository
}

// Apply commits the repository. A scope can be applied once; applying a
// closed scope is an error.
func (s *Scope[R]) Apply(ctx context.Context) error {
	if s.closed {
		return errors.New("unit of work scope is closed")
	}
	if s.applied {
		return errors.New("unit of work scope is already applied")
	}
	if err := s.repository.Commit(ctx); err != nil {
		return err
	}
	s.applied = true
	return nil
}

// Close releases the scope. When the scope was not applied and the
// repository supports it, uncommitted changes are rolled back first.
// Closing twice is a no-op.
func (s *Scope[R]) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	var rollbackErr error
	if !s.applied {
		if rollbacker, ok := any(s.repository).(Rollbacker); ok {
			rollbackErr = rollbacker.Rollback(ctx)
		}
	}
	return errors.Join(rollbackErr, s.lock.Release(ctx))
}
