package sagactx

import (
	"sync"

	"go.uber.org/zap"
)

// Observer receives lifecycle events from a saga session. It replaces
// hard-wired log statements so observability can be tested and swapped.
// Implementations must be safe for use from the goroutine running the
// saga; the core never calls an Observer concurrently for one session.
type Observer interface {
	// CompensationRegistered fires when a step's rollback is appended to
	// the session's compensation stack.
	CompensationRegistered(sagaID, label string)
	// MissingSession fires when a step runs with no bound session. The
	// condition is advisory; the step still executes standalone.
	MissingSession(label string)
	// RollbackStarted fires once, before any compensation runs.
	RollbackStarted(sagaID string, steps int)
	// CompensationSucceeded fires after a compensation returns nil.
	CompensationSucceeded(sagaID, label string)
	// CompensationFailed fires after a compensation returns an error.
	// The failure is isolated; remaining compensations still run.
	CompensationFailed(sagaID, label string, err error)
	// RollbackFinished fires once every compensation has been attempted.
	RollbackFinished(sagaID string, attempted, failed int)
	// SagaSucceeded fires when a root operation completes without error.
	SagaSucceeded(sagaID, label string)
	// SagaFailed fires when a root operation fails, before rollback runs.
	SagaFailed(sagaID, label string, err error)
}

var (
	defaultObserverMu sync.RWMutex
	defaultObserver   Observer = NewZapObserver(zap.L())
)

// DefaultObserver returns the observer used wherever none was injected:
// sessions created without WithObserver, and step advisories emitted
// when no session (and therefore no configured observer) is bound.
func DefaultObserver() Observer {
	defaultObserverMu.RLock()
	defer defaultObserverMu.RUnlock()

	return defaultObserver
}

// SetDefaultObserver replaces the package default observer and returns
// the previous one so callers can restore it.
func SetDefaultObserver(observer Observer) Observer {
	defaultObserverMu.Lock()
	defer defaultObserverMu.Unlock()

	previous := defaultObserver
	defaultObserver = observer
	return previous
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) CompensationRegistered(string, string) {}

func (NopObserver) MissingSession(string) {}

func (NopObserver) RollbackStarted(string, int) {}

func (NopObserver) CompensationSucceeded(string, string) {}

func (NopObserver) CompensationFailed(string, string, error) {}

func (NopObserver) RollbackFinished(string, int, int) {}

func (NopObserver) SagaSucceeded(string, string) {}

func (NopObserver) SagaFailed(string, string, error) {}

// ZapObserver emits session lifecycle events as structured log entries.
type ZapObserver struct {
	log *zap.Logger
}

// NewZapObserver creates an Observer backed by the given logger.
func NewZapObserver(log *zap.Logger) *ZapObserver {
	return &ZapObserver{log: log}
}

func (o *ZapObserver) CompensationRegistered(sagaID, label string) {
	o.log.Info("registered compensation step",
		zap.String("saga_id", sagaID),
		zap.String("step", label))
}

func (o *ZapObserver) MissingSession(label string) {
	o.log.Warn("no saga session bound; running step standalone",
		zap.String("step", label))
}

func (o *ZapObserver) RollbackStarted(sagaID string, steps int) {
	o.log.Warn("starting rollback",
		zap.String("saga_id", sagaID),
		zap.Int("steps", steps))
}

func (o *ZapObserver) CompensationSucceeded(sagaID, label string) {
	o.log.Info("compensation succeeded",
		zap.String("saga_id", sagaID),
		zap.String("step", label))
}

func (o *ZapObserver) CompensationFailed(sagaID, label string, err error) {
	o.log.Error("compensation failed",
		zap.String("saga_id", sagaID),
		zap.String("step", label),
		zap.Error(err))
}

func (o *ZapObserver) RollbackFinished(sagaID string, attempted, failed int) {
	o.log.Info("rollback completed",
		zap.String("saga_id", sagaID),
		zap.Int("attempted", attempted),
		zap.Int("failed", failed))
}

func (o *ZapObserver) SagaSucceeded(sagaID, label string) {
	o.log.Info("saga completed",
		zap.String("saga_id", sagaID),
		zap.String("saga", label))
}

func (o *ZapObserver) SagaFailed(sagaID, label string, err error) {
	o.log.Error("saga failed, performing rollback",
		zap.String("saga_id", sagaID),
		zap.String("saga", label),
		zap.Error(err))
}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) CompensationRegistered(sagaID, label string) {
	for _, o := range m {
		o.CompensationRegistered(sagaID, label)
	}
}

func (m MultiObserver) MissingSession(label string) {
	for _, o := range m {
		o.MissingSession(label)
	}
}

func (m MultiObserver) RollbackStarted(sagaID string, steps int) {
	for _, o := range m {
		o.RollbackStarted(sagaID, steps)
	}
}

func (m MultiObserver) CompensationSucceeded(sagaID, label string) {
	for _, o := range m {
		o.CompensationSucceeded(sagaID, label)
	}
}

func (m MultiObserver) CompensationFailed(sagaID, label string, err error) {
	for _, o := range m {
		o.CompensationFailed(sagaID, label, err)
	}
}

func (m MultiObserver) RollbackFinished(sagaID string, attempted, failed int) {
	for _, o := range m {
		o.RollbackFinished(sagaID, attempted, failed)
	}
}

func (m MultiObserver) SagaSucceeded(sagaID, label string) {
	for _, o := range m {
		o.SagaSucceeded(sagaID, label)
	}
}

func (m MultiObserver) SagaFailed(sagaID, label string, err error) {
	for _, o := range m {
		o.SagaFailed(sagaID, label, err)
	}
}
