// Package sagactx coordinates compensation for single-process sagas.
//
// A saga runs a forward sequence of steps against a shared context
// object. Each step pairs its work with a compensation (undo) action.
// If the root operation fails, the compensations registered so far run
// strictly sequentially in reverse registration order, then the original
// failure is handed back to the caller.
//
// Overview
//
//  1. Wrap your root operation with RunSaga. It creates a Session (the
//     compensation stack), binds it into the context chain, and drives
//     rollback on failure.
//  2. Wrap each step with RunStep (or RunStepNamed with a
//     RollbackRegistry), passing the step's rollback function. The
//     wrapper finds the current Session through the context and
//     registers the compensation before the step runs.
//  3. Steps called outside any saga still run normally; nothing is
//     registered and nothing ever rolls back.
//
// Propagation follows the context chain, never goroutine identity, so a
// step resumed on another goroutine still observes the Session bound by
// its logical ancestor. For frameworks that keep per-request state in
// their own scope, see Carrier and ScopeStore.
//
// Rollback is best effort by contract: a failing compensation is
// reported through the session's Observer and RollbackReport but never
// stops the remaining compensations. Compensations are assumed
// idempotent by the caller. For a runnable, documented example, refer
// to examples/order_saga.
package sagactx
