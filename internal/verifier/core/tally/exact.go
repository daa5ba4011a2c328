package tally

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/attestx/attestx-backend/internal/verifier/types"
	pkgtypes "github.com/attestx/attestx-backend/pkg/types"
)

// ExactMatch finalizes a task once the operators behind one byte-identical
// result accumulate the task's required power. Only the group sharing the
// new vote's value is summed; minority voters neither block finalization nor
// get flagged (there is no outlier concept in this mode).
type ExactMatch struct{}

var _ Strategy = (*ExactMatch)(nil)

func NewExactMatch() *ExactMatch {
	return &ExactMatch{}
}

func (e *ExactMatch) Name() string { return "exact-match" }

// ParseVote accepts any well-formed JSON payload; the raw string is the
// grouping key, so two results agree only when byte-identical.
func (e *ExactMatch) ParseVote(result string, power *pkgtypes.BigInt) (types.OperatorVote, error) {
	if !json.Valid([]byte(result)) {
		return types.OperatorVote{}, fmt.Errorf("%w: result is not valid JSON", ErrInvalidResultFormat)
	}
	return types.OperatorVote{
		Power:  power,
		Result: result,
		Price:  decimal.Zero,
	}, nil
}

func (e *ExactMatch) Evaluate(newVote types.VoteRecord, votes []types.VoteRecord, meta *types.TaskMetadata) (Decision, error) {
	// Tally only the votes sharing the new vote's value. A task can
	// finalize even if minority voters disagree, as long as one value's
	// supporters alone cross the bar.
	tally := pkgtypes.NewBigIntFromInt64(0)
	for _, record := range votes {
		if record.Vote.Result == newVote.Vote.Result {
			tally.Add(tally, record.Vote.Power)
		}
	}

	if tally.GreaterOrEqual(meta.PowerRequired) {
		return Decision{
			Status: types.OutcomeFinalized,
			Result: newVote.Vote.Result,
		}, nil
	}
	return Decision{Status: types.OutcomeVoteStored}, nil
}
