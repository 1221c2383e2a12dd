package sagactx

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// CompensationFunc is the rollback action paired with one forward step.
// It receives the saga's shared context object and reports failure via
// its error return. Compensations are assumed idempotent by caller
// contract; the core does not deduplicate invocations.
type CompensationFunc[T any] func(ctx context.Context, t T) error

// compensation is one registered step on the session's stack.
type compensation[T any] struct {
	seq   StepSeq
	label string
	fn    CompensationFunc[T]
}

// Session is the compensation stack for one in-flight saga execution.
//
// Steps register their compensations as they run, in real execution
// order. On failure of the root operation the session rolls the stack
// back in exact reverse order, isolating individual compensation
// failures so every registered step gets attempted.
//
// A Session is owned by exactly one root execution and its causal
// descendants. It must never be shared across independent root
// executions or reused after rollback.
type Session[T any] struct {
	id       string
	label    string
	observer Observer
	log      *UnwindLog

	mu            sync.Mutex
	compensations []compensation[T]

	rollbackOnce sync.Once
	report       *RollbackReport
}

// Option configures a Session created by NewSession or RunSaga.
type Option func(*sessionConfig)

type sessionConfig struct {
	observer Observer
}

// WithObserver installs a lifecycle observer on the session. Sessions
// created without one use the package DefaultObserver.
func WithObserver(observer Observer) Option {
	return func(c *sessionConfig) {
		c.observer = observer
	}
}

// NewSession creates an empty compensation stack for one root execution.
// The label is advisory, used only for observability.
func NewSession[T any](label string, opts ...Option) *Session[T] {
	cfg := sessionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.observer == nil {
		cfg.observer = DefaultObserver()
	}

	id := uuid.NewString()
	return &Session[T]{
		id:            id,
		label:         label,
		observer:      cfg.observer,
		log:           NewUnwindLog(id),
		compensations: make([]compensation[T], 0),
	}
}

// ID returns the session's unique identifier.
func (s *Session[T]) ID() string {
	return s.id
}

// Label returns the advisory label given at session creation.
func (s *Session[T]) Label() string {
	return s.label
}

// Len returns the number of registered compensation steps.
func (s *Session[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.compensations)
}

// UnwindLog returns the session's step lifecycle log.
func (s *Session[T]) UnwindLog() *UnwindLog {
	return s.log
}

// RegisterCompensation appends a compensation step to the stack. Labels
// need not be unique; each occurrence rolls back independently.
func (s *Session[T]) RegisterCompensation(label string, fn CompensationFunc[T]) {
	s.mu.Lock()
	seq := StepSeq(len(s.compensations))
	s.compensations = append(s.compensations, compensation[T]{
		seq:   seq,
		label: label,
		fn:    fn,
	})
	s.mu.Unlock()

	// The registration transition is always legal for a fresh sequence.
	_ = s.log.Record(&UnwindEvent{Seq: seq, Label: label, Type: EventRegistered})
	s.observer.CompensationRegistered(s.id, label)
}

// Rollback executes every registered compensation against t, strictly
// sequentially, in exact reverse of registration order. Individual
// failures are reported and do not abort the remaining steps; the pass
// always runs to completion. A session is consumed by its first
// Rollback call; later calls return the same report without re-running
// any compensation.
func (s *Session[T]) Rollback(ctx context.Context, t T) *RollbackReport {
	s.rollbackOnce.Do(func() {
		s.report = s.rollback(ctx, t)
	})
	return s.report
}

func (s *Session[T]) rollback(ctx context.Context, t T) *RollbackReport {
	s.mu.Lock()
	reversed := make([]compensation[T], len(s.compensations))
	for i, comp := range s.compensations {
		reversed[len(s.compensations)-1-i] = comp
	}
	s.mu.Unlock()

	// Compensations must still run when the root execution was
	// cancelled; a cancelled parent context would abort them mid-pass.
	ctx = context.WithoutCancel(ctx)

	report := newRollbackReport(s.id, len(reversed))
	s.observer.RollbackStarted(s.id, len(reversed))

	for _, comp := range reversed {
		_ = s.log.Record(&UnwindEvent{Seq: comp.seq, Label: comp.label, Type: EventUndoStarted})

		if err := comp.fn(ctx, t); err != nil {
			_ = s.log.Record(&UnwindEvent{Seq: comp.seq, Label: comp.label, Type: EventUndoFailed})
			s.observer.CompensationFailed(s.id, comp.label, err)
			report.add(comp.seq, comp.label, err)
			continue
		}

		_ = s.log.Record(&UnwindEvent{Seq: comp.seq, Label: comp.label, Type: EventUndoFinished})
		s.observer.CompensationSucceeded(s.id, comp.label)
		report.add(comp.seq, comp.label, nil)
	}

	s.observer.RollbackFinished(s.id, report.Attempted(), report.Failed())
	return report
}
