package sagactx

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// SessionContextKey is the well-known key under which the current
// Session travels. Context-based propagation uses an unexported typed
// key internally; this string form exists for external layers that
// carry per-request state in their own map-like scope (see Carrier).
const SessionContextKey = "sagaContext"

type sessionCtxKey struct{}

// WithSession binds a session into the context chain. Everything
// causally descending from the returned context observes the session,
// regardless of which goroutine it runs on. Propagation follows the
// context chain, never goroutine identity.
func WithSession[T any](ctx context.Context, session *Session[T]) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, session)
}

// SessionFromContext returns the session bound in the caller's current
// logical scope, or false when none is bound (a step invoked outside
// any root saga) or when the bound session carries a different context
// object type.
func SessionFromContext[T any](ctx context.Context) (*Session[T], bool) {
	session, ok := ctx.Value(sessionCtxKey{}).(*Session[T])
	if !ok || session == nil {
		return nil, false
	}
	return session, true
}

// Carrier is the seam for frameworks that keep per-request state in
// their own scope instead of a context.Context. A gin *Context, for
// example, satisfies this shape with its Set/Get pair.
type Carrier interface {
	Set(key string, value any)
	Get(key string) (any, bool)
}

// BindCarrier stores the session in an external per-request carrier
// under SessionContextKey.
func BindCarrier[T any](c Carrier, session *Session[T]) {
	c.Set(SessionContextKey, session)
}

// LookupCarrier retrieves the session a middleware layer bound via
// BindCarrier, or false when no session of the right type is present.
func LookupCarrier[T any](c Carrier) (*Session[T], bool) {
	value, ok := c.Get(SessionContextKey)
	if !ok {
		return nil, false
	}
	session, ok := value.(*Session[T])
	if !ok || session == nil {
		return nil, false
	}
	return session, true
}

// ScopeStore holds live session bindings for substrates that cannot
// thread a context.Context through their call chain. Each concurrently
// running root execution binds its session under its own scope ID;
// bindings are isolated and must be released with Unbind when the root
// execution completes.
type ScopeStore[T any] struct {
	bindings *xsync.MapOf[string, *Session[T]]
}

// NewScopeStore creates an empty ScopeStore.
func NewScopeStore[T any]() *ScopeStore[T] {
	return &ScopeStore[T]{
		bindings: xsync.NewMapOf[string, *Session[T]](),
	}
}

// Bind associates a session with a scope ID for the duration of that
// scope. Exactly one live session may be bound per scope.
func (s *ScopeStore[T]) Bind(scopeID string, session *Session[T]) error {
	if _, loaded := s.bindings.LoadOrStore(scopeID, session); loaded {
		return fmt.Errorf("scope %q already has a bound session", scopeID)
	}
	return nil
}

// Lookup returns the session bound under the given scope ID.
func (s *ScopeStore[T]) Lookup(scopeID string) (*Session[T], bool) {
	return s.bindings.Load(scopeID)
}

// Unbind releases the binding for a scope. Unbinding an unknown scope
// is a no-op.
func (s *ScopeStore[T]) Unbind(scopeID string) {
	s.bindings.Delete(scopeID)
}

// Len returns the number of live bindings.
func (s *ScopeStore[T]) Len() int {
	return s.bindings.Size()
}
