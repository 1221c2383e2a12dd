package sagactx

// StepOutcome records the result of one attempted compensation.
type StepOutcome struct {
	Seq   StepSeq
	Label string
	Err   error
}

// RollbackReport summarizes one rollback pass. Outcomes appear in
// execution order, which is the exact reverse of registration order.
// The report is diagnostic: rollback itself always runs to completion
// regardless of how many individual compensations fail.
type RollbackReport struct {
	SagaID   string
	Outcomes []StepOutcome
}

func newRollbackReport(sagaID string, steps int) *RollbackReport {
	return &RollbackReport{
		SagaID:   sagaID,
		Outcomes: make([]StepOutcome, 0, steps),
	}
}

func (r *RollbackReport) add(seq StepSeq, label string, err error) {
	r.Outcomes = append(r.Outcomes, StepOutcome{Seq: seq, Label: label, Err: err})
}

// Attempted returns the number of compensations that were invoked.
func (r *RollbackReport) Attempted() int {
	return len(r.Outcomes)
}

// Failed returns the number of compensations that returned an error.
func (r *RollbackReport) Failed() int {
	failed := 0
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			failed++
		}
	}
	return failed
}

// Err returns an aggregated *CompensationError if any compensation
// failed, or nil when every attempted compensation succeeded.
func (r *RollbackReport) Err() error {
	compErr := new(CompensationError)
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			compErr.addError(outcome.Err)
		}
	}
	if compErr.hasErrors() {
		return compErr
	}
	return nil
}
