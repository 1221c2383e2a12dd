package sagactx

import (
	"context"
	"reflect"
)

// RunSaga is the entry boundary for a root saga operation.
//
// It creates a fresh Session, binds it into the context chain for the
// duration of op, and runs op. On success the operation's result is
// returned unchanged. On failure the session's compensation stack is
// rolled back first, then the original error is returned; the rollback
// outcome never replaces or suppresses it. Cancellation of ctx is
// treated like any other failure of op: completed steps are compensated,
// then the cancellation error propagates.
//
// The context object t is required and shared by every step and
// compensation of this execution. The label is advisory.
//
// Concurrent RunSaga calls are fully independent; each gets its own
// Session and binding.
func RunSaga[T, R any](
	ctx context.Context,
	label string,
	t T,
	op func(ctx context.Context) (R, error),
	opts ...Option,
) (R, error) {
	var zero R
	if isNilContextObject(any(t)) {
		return zero, ErrNilSagaContext
	}

	session := NewSession[T](label, opts...)
	ctx = WithSession(ctx, session)

	result, err := op(ctx)
	if err != nil {
		session.observer.SagaFailed(session.id, label, err)
		session.Rollback(ctx, t)
		return zero, err
	}

	session.observer.SagaSucceeded(session.id, label)
	return result, nil
}

// isNilContextObject reports whether the caller-supplied context object
// is absent. A typed nil pointer counts as absent; every compensation
// would otherwise receive it.
func isNilContextObject(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// RunStep associates a rollback function with the step about to run.
//
// If a session is bound in ctx, the compensation is registered before
// step executes, so a later failure of the root operation undoes this
// step. Without a bound session the step still runs exactly as if no
// saga were active, so steps stay callable standalone; an advisory
// warning is logged.
//
// The step's own result and failure propagate unchanged; catching step
// failures is the root wrapper's job.
func RunStep[T, R any](
	ctx context.Context,
	t T,
	rollback CompensationFunc[T],
	label string,
	step func(ctx context.Context) (R, error),
) (R, error) {
	if rollback == nil {
		var zero R
		return zero, ErrNilRollback
	}

	session, ok := SessionFromContext[T](ctx)
	if !ok {
		DefaultObserver().MissingSession(label)
		return step(ctx)
	}

	// Bind the rollback to this step's context object now; the object is
	// shared by the whole root execution, but the binding must not depend
	// on what Rollback is later called with.
	session.RegisterCompensation(label, func(ctx context.Context, _ T) error {
		return rollback(ctx, t)
	})
	return step(ctx)
}

// RunStepNamed is RunStep with the rollback resolved from a registry.
// An unregistered name fails the step up front instead of degrading the
// compensation to a no-op. An empty label defaults to the rollback name.
func RunStepNamed[T, R any](
	ctx context.Context,
	t T,
	registry *RollbackRegistry[T],
	name RollbackName,
	label string,
	step func(ctx context.Context) (R, error),
) (R, error) {
	rollback, err := registry.Resolve(name)
	if err != nil {
		var zero R
		return zero, err
	}
	if label == "" {
		label = string(name)
	}
	return RunStep(ctx, t, rollback, label, step)
}
