package sagactx

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionContextRoundTrip(t *testing.T) {
	session := NewSession[*BookingState]("booking", WithObserver(NopObserver{}))
	ctx := WithSession(context.Background(), session)

	found, ok := SessionFromContext[*BookingState](ctx)
	require.True(t, ok)
	assert.Same(t, session, found)
}

func TestSessionFromContextWithoutBinding(t *testing.T) {
	_, ok := SessionFromContext[*BookingState](context.Background())
	assert.False(t, ok)
}

func TestSessionFromContextTypeMismatch(t *testing.T) {
	session := NewSession[*BookingState]("booking", WithObserver(NopObserver{}))
	ctx := WithSession(context.Background(), session)

	// A lookup for a different context object type must not observe the
	// binding; the step behaves as if no saga were active.
	_, ok := SessionFromContext[string](ctx)
	assert.False(t, ok)
}

func TestSessionPropagatesAcrossGoroutines(t *testing.T) {
	session := NewSession[*BookingState]("booking", WithObserver(NopObserver{}))
	ctx := WithSession(context.Background(), session)

	results := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, ok := SessionFromContext[*BookingState](ctx)
			results <- ok
		}()
	}

	assert.True(t, <-results)
	assert.True(t, <-results)
}

// mapCarrier mimics a web framework's per-request key/value scope.
type mapCarrier struct {
	mu     sync.Mutex
	values map[string]any
}

func newMapCarrier() *mapCarrier {
	return &mapCarrier{values: make(map[string]any)}
}

func (c *mapCarrier) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

func (c *mapCarrier) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	return value, ok
}

func TestCarrierBindLookup(t *testing.T) {
	session := NewSession[*BookingState]("booking", WithObserver(NopObserver{}))
	carrier := newMapCarrier()

	BindCarrier(carrier, session)

	// The binding lives under the well-known propagation key.
	raw, ok := carrier.Get(SessionContextKey)
	require.True(t, ok)
	assert.Same(t, session, raw)

	found, ok := LookupCarrier[*BookingState](carrier)
	require.True(t, ok)
	assert.Same(t, session, found)
}

func TestCarrierLookupEmpty(t *testing.T) {
	_, ok := LookupCarrier[*BookingState](newMapCarrier())
	assert.False(t, ok)
}

func TestScopeStoreBindLookupUnbind(t *testing.T) {
	store := NewScopeStore[*BookingState]()
	session := NewSession[*BookingState]("booking", WithObserver(NopObserver{}))

	require.NoError(t, store.Bind("scope-1", session))
	assert.Equal(t, 1, store.Len())

	found, ok := store.Lookup("scope-1")
	require.True(t, ok)
	assert.Same(t, session, found)

	_, ok = store.Lookup("scope-2")
	assert.False(t, ok)

	store.Unbind("scope-1")
	_, ok = store.Lookup("scope-1")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestScopeStoreRejectsDoubleBind(t *testing.T) {
	store := NewScopeStore[*BookingState]()
	first := NewSession[*BookingState]("first", WithObserver(NopObserver{}))
	second := NewSession[*BookingState]("second", WithObserver(NopObserver{}))

	require.NoError(t, store.Bind("scope-1", first))
	err := store.Bind("scope-1", second)
	require.Error(t, err, "exactly one live session may be bound per scope")

	found, ok := store.Lookup("scope-1")
	require.True(t, ok)
	assert.Same(t, first, found, "the original binding survives")
}

func TestScopeStoreConcurrentBindings(t *testing.T) {
	const scopes = 32

	store := NewScopeStore[*BookingState]()
	var wg sync.WaitGroup

	for i := 0; i < scopes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scopeID := fmt.Sprintf("scope-%d", i)
			session := NewSession[*BookingState](scopeID, WithObserver(NopObserver{}))
			assert.NoError(t, store.Bind(scopeID, session))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, scopes, store.Len())
	for i := 0; i < scopes; i++ {
		scopeID := fmt.Sprintf("scope-%d", i)
		session, ok := store.Lookup(scopeID)
		require.True(t, ok)
		assert.Equal(t, scopeID, session.Label(), "bindings must not observe each other")
	}
}
