package tally

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/attestx/attestx-backend/internal/verifier/types"
	pkgtypes "github.com/attestx/attestx-backend/pkg/types"
)

// ErrInvalidResultFormat is returned when a submitted result does not parse
// into the shape the configured strategy expects. The submission is rejected
// before any state change.
var ErrInvalidResultFormat = errors.New("invalid result format")

// ErrInvalidConfig is returned for out-of-range strategy parameters at
// construction time.
var ErrInvalidConfig = errors.New("invalid tally config")

// Decision is the outcome of running a strategy over a task's vote set.
type Decision struct {
	Status types.OutcomeStatus
	// Result is the canonical accepted result, set when Status is finalized.
	Result string
	// SlashableOperators are voters whose value fell strictly outside the
	// slashable band. Median-spread only; always empty in exact-match mode.
	SlashableOperators []string
}

// Strategy decides, after each new vote, whether a task has accumulated
// enough weighted agreement to finalize, and on what result.
type Strategy interface {
	// Name identifies the strategy in config and logs.
	Name() string
	// ParseVote validates a submitted result and shapes it into a vote,
	// without touching any state. Returns ErrInvalidResultFormat on bad input.
	ParseVote(result string, power *pkgtypes.BigInt) (types.OperatorVote, error)
	// Evaluate runs the tally over the full vote set for the task. newVote
	// must already be included in votes.
	Evaluate(newVote types.VoteRecord, votes []types.VoteRecord, meta *types.TaskMetadata) (Decision, error)
}

// MeetsThreshold reports whether validPower/totalPower >= threshold. The
// comparison is exact: both sides are scaled decimals over big integers, so
// there is no floating-point drift near the boundary.
func MeetsThreshold(validPower, totalPower *pkgtypes.BigInt, threshold decimal.Decimal) bool {
	if totalPower.IsZero() {
		return false
	}
	valid := decimal.NewFromBigInt(validPower.Int, 0)
	bar := threshold.Mul(decimal.NewFromBigInt(totalPower.Int, 0))
	return valid.Cmp(bar) >= 0
}

// SumPower adds up the power behind the given votes.
func SumPower(votes []types.VoteRecord) *pkgtypes.BigInt {
	total := pkgtypes.NewBigIntFromInt64(0)
	for _, record := range votes {
		total.Add(total, record.Vote.Power)
	}
	return total
}
