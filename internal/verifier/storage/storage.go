package storage

import (
	"errors"

	"github.com/attestx/attestx-backend/internal/verifier/types"
)

// ErrDuplicateVote is returned when an operator already has a recorded vote
// for the task. Votes are immutable; a duplicate is an error, never an update.
var ErrDuplicateVote = errors.New("operator has already voted for this task")

// TaskRecord pairs task metadata with its composite key.
type TaskRecord struct {
	Registry string
	TaskID   uint64
	Metadata types.TaskMetadata
}

// TaskStore persists the frozen per-task snapshots.
type TaskStore interface {
	// GetTask returns the stored metadata, with found=false when the task
	// has not been initialized yet.
	GetTask(registry string, taskID uint64) (*types.TaskMetadata, bool, error)
	// SaveTask inserts or replaces the metadata for a task.
	SaveTask(registry string, taskID uint64, meta *types.TaskMetadata) error
	// ListOpenTasks returns every task whose stored status is still open.
	ListOpenTasks() ([]TaskRecord, error)
}

// VoteStore is the vote ledger: a durable mapping from (task, operator) to a
// single recorded vote, enforcing at-most-one vote per operator per task.
type VoteStore interface {
	// GetVote returns the operator's vote, with found=false when absent.
	GetVote(registry string, taskID uint64, operator string) (*types.OperatorVote, bool, error)
	// SaveVote records a vote; returns ErrDuplicateVote when one exists.
	SaveVote(registry string, taskID uint64, operator string, vote types.OperatorVote) error
	// ListVotes returns all votes recorded for a task. The tally is
	// order-independent, so no ordering is guaranteed.
	ListVotes(registry string, taskID uint64) ([]types.VoteRecord, error)
}

// SlashStore records operators flagged as outliers for downstream penalty.
// Append-only; enforcement of any penalty lives outside this service.
type SlashStore interface {
	// FlagOperator marks an operator as slashable. Idempotent.
	FlagOperator(operator string) error
	// ListFlagged returns all flagged operators.
	ListFlagged() ([]string, error)
}

// Store bundles the three stores a verifier instance runs against.
type Store interface {
	TaskStore
	VoteStore
	SlashStore
}
