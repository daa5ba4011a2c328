package types

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/attestx/attestx-backend/pkg/types"
)

// TaskStatus is the lifecycle state of a task being verified.
// A task only ever moves Open -> Completed or Open -> Expired.
type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusExpired   TaskStatus = "expired"
)

// TaskMetadata is the frozen per-task snapshot created on first vote.
// PowerRequired is computed once from the total power at the creation
// checkpoint and never recomputed, so every voter is measured against
// the same bar regardless of when they vote.
type TaskMetadata struct {
	PowerRequired     *types.BigInt `json:"power_required"`
	Status            TaskStatus    `json:"status"`
	CreatedCheckpoint uint64        `json:"created_checkpoint"`
	// Measured in UNIX seconds
	ExpiresAt int64 `json:"expires_at"`
}

// IsExpired reports whether the task deadline has passed at the given time.
func (m *TaskMetadata) IsExpired(now time.Time) bool {
	return now.Unix() >= m.ExpiresAt
}

// DerivedStatus returns the status as observed at the given time. Expiry is
// advisory and computed at read time; stored state is never mutated by reads.
func (m *TaskMetadata) DerivedStatus(now time.Time) TaskStatus {
	if m.Status == TaskStatusOpen && m.IsExpired(now) {
		return TaskStatusExpired
	}
	return m.Status
}

// OperatorVote is a single recorded vote. Power is snapshotted at the task's
// creation checkpoint, not at vote time. Result holds the raw submitted
// payload (the grouping key in exact-match mode); Price holds the parsed
// numeric value in median-spread mode.
type OperatorVote struct {
	Power  *types.BigInt   `json:"power"`
	Result string          `json:"result"`
	Price  decimal.Decimal `json:"price"`
}

// VoteRecord pairs a vote with the operator that cast it.
type VoteRecord struct {
	Operator string       `json:"operator"`
	Vote     OperatorVote `json:"vote"`
}

// TaskStatusInfo is what the task registry reports for a task.
type TaskStatusInfo struct {
	Status            TaskStatus `json:"status"`
	CreatedCheckpoint uint64     `json:"created_checkpoint"`
	// Measured in UNIX seconds
	ExpiresAt int64 `json:"expires_at"`
}

// OutcomeStatus classifies the result of a vote submission.
type OutcomeStatus string

const (
	// OutcomeVoteStored: vote recorded, finalization gate not reached yet.
	OutcomeVoteStored OutcomeStatus = "vote_stored"
	// OutcomeFinalized: this vote pushed the task over its threshold.
	OutcomeFinalized OutcomeStatus = "finalized"
	// OutcomeThresholdNotMet: the tally ran but weighted agreement fell short.
	OutcomeThresholdNotMet OutcomeStatus = "threshold_not_met"
	// OutcomeNotAccepted: benign no-op, the task was already completed or
	// expired when the vote arrived. Expected under submission races.
	OutcomeNotAccepted OutcomeStatus = "not_accepted"
)

// Outcome is returned from every vote submission.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	// Result carries the accepted canonical result when Status is finalized.
	Result string `json:"result,omitempty"`
}

// TaskTally is the running weight accumulated behind one distinct result.
type TaskTally struct {
	Result string        `json:"result"`
	Power  *types.BigInt `json:"power"`
}

// TaskInfo is the queryable view of a task under verification.
type TaskInfo struct {
	Status      TaskStatus    `json:"status"`
	PowerNeeded *types.BigInt `json:"power_needed"`
	Tallies     []TaskTally   `json:"tallies"`
}

// PriceResult is the JSON payload median-spread operators submit and the
// shape the accepted median is re-serialized into on finalization.
type PriceResult struct {
	Price decimal.Decimal `json:"price"`
}
