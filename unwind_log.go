package sagactx

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/btree"
)

// StepSeq identifies one registered compensation step within a session,
// in registration order. Labels may repeat; sequence numbers never do.
type StepSeq int64

// UnwindEventType defines the lifecycle events recorded for a step.
type UnwindEventType int

const (
	EventRegistered UnwindEventType = iota
	EventUndoStarted
	EventUndoFinished
	EventUndoFailed
)

// String returns the string representation of the UnwindEventType.
func (t UnwindEventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventUndoStarted:
		return "undo_started"
	case EventUndoFinished:
		return "undo_finished"
	case EventUndoFailed:
		return "undo_failed"
	default:
		return fmt.Sprintf("unknown UnwindEventType: %d", t)
	}
}

// StepStatus is the cumulative status of one step as recorded events apply.
type StepStatus int

const (
	StatusUnregistered StepStatus = iota
	StatusRegistered
	StatusUndoStarted
	StatusUndoFinished
	StatusUndoFailed
)

// nextStatus returns the new status for a step after recording the given event.
func (s StepStatus) nextStatus(eventType UnwindEventType) (StepStatus, error) {
	switch s {
	case StatusUnregistered:
		if eventType == EventRegistered {
			return StatusRegistered, nil
		}
	case StatusRegistered:
		if eventType == EventUndoStarted {
			return StatusUndoStarted, nil
		}
	case StatusUndoStarted:
		switch eventType {
		case EventUndoFinished:
			return StatusUndoFinished, nil
		case EventUndoFailed:
			return StatusUndoFailed, nil
		}
	}

	return StatusUnregistered, fmt.Errorf(
		"illegal event type %s for current step status %v",
		eventType, s,
	)
}

// String returns the string representation of the StepStatus.
func (s StepStatus) String() string {
	switch s {
	case StatusUnregistered:
		return "Unregistered"
	case StatusRegistered:
		return "Registered"
	case StatusUndoStarted:
		return "UndoStarted"
	case StatusUndoFinished:
		return "UndoFinished"
	case StatusUndoFailed:
		return "UndoFailed"
	default:
		return fmt.Sprintf("Unknown StepStatus: %d", s)
	}
}

// MarshalJSON implements the json.Marshaler interface for StepStatus.
func (s StepStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for StepStatus.
func (s *StepStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	switch str {
	case "Unregistered":
		*s = StatusUnregistered
	case "Registered":
		*s = StatusRegistered
	case "UndoStarted":
		*s = StatusUndoStarted
	case "UndoFinished":
		*s = StatusUndoFinished
	case "UndoFailed":
		*s = StatusUndoFailed
	default:
		return fmt.Errorf("invalid StepStatus: %s", str)
	}

	return nil
}

// UnwindEvent represents an entry in the unwind log.
type UnwindEvent struct {
	Seq   StepSeq
	Label string
	Type  UnwindEventType
}

// String implements the fmt.Stringer interface for UnwindEvent.
func (e *UnwindEvent) String() string {
	return fmt.Sprintf("S%03d %-16s %s", e.Seq, e.Type.String(), e.Label)
}

// UnwindLog records the lifecycle of every compensation step in one
// session: registration during the forward phase, then per-step undo
// outcomes during rollback. The step status index is ordered by sequence
// so callers can walk steps in registration order.
type UnwindLog struct {
	mu        sync.Mutex
	sagaID    string
	unwinding bool
	events    []*UnwindEvent
	status    *btree.Map[StepSeq, StepStatus]
}

// NewUnwindLog creates a new, empty UnwindLog.
func NewUnwindLog(sagaID string) *UnwindLog {
	return &UnwindLog{
		sagaID: sagaID,
		events: make([]*UnwindEvent, 0),
		status: btree.NewMap[StepSeq, StepStatus](8),
	}
}

// Record adds an event to the UnwindLog, validating that it is a legal
// transition for the step it names.
func (l *UnwindLog) Record(event *UnwindEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	currentStatus := l.statusForStep(event.Seq)
	nextStatus, err := currentStatus.nextStatus(event.Type)
	if err != nil {
		return err
	}

	if nextStatus != StatusRegistered {
		l.unwinding = true
	}

	l.status.Set(event.Seq, nextStatus)
	l.events = append(l.events, event)
	return nil
}

// Unwinding returns true once any undo event has been recorded.
func (l *UnwindLog) Unwinding() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.unwinding
}

// statusForStep returns the StepStatus for a given sequence number.
// Callers must hold l.mu.
func (l *UnwindLog) statusForStep(seq StepSeq) StepStatus {
	status, exists := l.status.Get(seq)
	if !exists {
		return StatusUnregistered
	}
	return status
}

// StatusFor returns the recorded status for one step.
func (l *UnwindLog) StatusFor(seq StepSeq) StepStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.statusForStep(seq)
}

// Statuses returns every step's status in registration order.
func (l *UnwindLog) Statuses() []StepStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	statuses := make([]StepStatus, 0, l.status.Len())
	l.status.Scan(func(_ StepSeq, status StepStatus) bool {
		statuses = append(statuses, status)
		return true
	})
	return statuses
}

// Events returns the slice of events in the UnwindLog.
func (l *UnwindLog) Events() []*UnwindEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := make([]*UnwindEvent, len(l.events))
	copy(events, l.events)
	return events
}

// UnwindLogPretty is a helper for pretty-printing an UnwindLog.
type UnwindLogPretty struct {
	Log *UnwindLog
}

// String implements the fmt.Stringer interface for UnwindLogPretty.
func (p *UnwindLogPretty) String() string {
	p.Log.mu.Lock()
	defer p.Log.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("UNWIND LOG:\n")
	sb.WriteString(fmt.Sprintf("saga id:   %s\n", p.Log.sagaID))
	direction := "forward"
	if p.Log.unwinding {
		direction = "unwinding"
	}
	sb.WriteString(fmt.Sprintf("direction: %s\n", direction))
	sb.WriteString(fmt.Sprintf("events (%d total):\n", len(p.Log.events)))
	sb.WriteString("\n")
	for i, event := range p.Log.events {
		sb.WriteString(fmt.Sprintf("%03d %s\n", i+1, event.String()))
	}
	return sb.String()
}
