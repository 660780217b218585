// Package uow scopes repository work into explicit units: a scope is opened,
// the repository is used, the changes are applied or discarded, the scope is
// closed. An optional locker serializes scopes competing for the same keys.
//
// The package only defines the shape of the unit of work; storage bindings
// live in subpackages, for example gormstore for GORM-backed repositories.
//
//	scope, err := builder.Open(ctx, order.Reference().String())
//	if err != nil {
//	    return err
//	}
//	defer scope.Close(ctx)
//
//	if err := scope.Repository().Save(ctx, order); err != nil {
//	    return err
//	}
//	return scope.Apply(ctx)
package uow
