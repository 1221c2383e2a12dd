package sagactx

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// RollbackName identifies a registered rollback function.
type RollbackName string

// RollbackRegistry is a registry of named rollback functions shared
// across sagas.
//
// It replaces resolving a rollback method by string name at call time:
// callers register every rollback once at startup, so a misspelled or
// missing name is an error surfaced at registration or resolution, never
// a silently skipped compensation.
type RollbackRegistry[T any] struct {
	rollbacks *xsync.MapOf[RollbackName, CompensationFunc[T]]
}

// NewRollbackRegistry creates a new RollbackRegistry.
func NewRollbackRegistry[T any]() *RollbackRegistry[T] {
	return &RollbackRegistry[T]{
		rollbacks: xsync.NewMapOf[RollbackName, CompensationFunc[T]](),
	}
}

// Register adds a rollback function to the registry.
func (r *RollbackRegistry[T]) Register(name RollbackName, fn CompensationFunc[T]) error {
	if fn == nil {
		return fmt.Errorf("rollback '%s': %w", name, ErrNilRollback)
	}
	if _, ok := r.rollbacks.Load(name); ok {
		return fmt.Errorf("rollback with name '%s' already registered", name)
	}
	r.rollbacks.Store(name, fn)
	return nil
}

// Resolve retrieves a rollback function from the registry by its name.
func (r *RollbackRegistry[T]) Resolve(name RollbackName) (CompensationFunc[T], error) {
	fn, ok := r.rollbacks.Load(name)
	if !ok {
		return nil, fmt.Errorf("rollback '%s': %w", name, ErrRollbackNotFound)
	}
	return fn, nil
}
