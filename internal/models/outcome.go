package models

// OutcomeStatus is the terminal status of one turn.
type OutcomeStatus string

// Terminal statuses. Exactly one is produced per turn.
const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeCancelled OutcomeStatus = "cancelled"
	OutcomeFailed    OutcomeStatus = "failed"
)

// StreamOutcome is the terminal result of a turn, delivered to the
// caller after the last frame has been folded or cancellation took
// effect. Reason is set only for failed outcomes.
type StreamOutcome struct {
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Failed reports whether the turn ended in failure.
func (o StreamOutcome) Failed() bool {
	return o.Status == OutcomeFailed
}
