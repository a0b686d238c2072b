package domain

import "time"

// Outcome is the result recorded for an indexing pass.
type Outcome string

// Available outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// LogEntry is an append-only record of an indexing pass or sub-step failure.
type LogEntry struct {
	// ID is assigned when the entry is appended.
	ID string

	// Timestamp is when the outcome was recorded.
	Timestamp time.Time

	// Outcome is success or failure.
	Outcome Outcome

	// Message is a human-readable description, including error detail on failure.
	Message string
}
