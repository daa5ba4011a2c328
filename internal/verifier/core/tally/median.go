package tally

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/attestx/attestx-backend/internal/verifier/types"
	pkgtypes "github.com/attestx/attestx-backend/pkg/types"
)

// medianScale is the number of decimal places kept when splitting an
// even-count median, matching the 18-place fixed-point convention of the
// submitted values.
const medianScale = 18

// MedianSpreadConfig are the acceptance and slashing bands for the numeric
// strategy. All three values are fractions in (0, 1], and the slashable
// spread must be strictly wider than the allowed spread.
type MedianSpreadConfig struct {
	ThresholdPercent decimal.Decimal
	AllowedSpread    decimal.Decimal
	SlashableSpread  decimal.Decimal
}

func (c MedianSpreadConfig) Validate() error {
	one := decimal.NewFromInt(1)
	for name, v := range map[string]decimal.Decimal{
		"threshold_percent": c.ThresholdPercent,
		"allowed_spread":    c.AllowedSpread,
		"slashable_spread":  c.SlashableSpread,
	} {
		if v.Sign() <= 0 || v.Cmp(one) > 0 {
			return fmt.Errorf("%w: %s must be in (0, 1], got %s", ErrInvalidConfig, name, v)
		}
	}
	if c.SlashableSpread.Cmp(c.AllowedSpread) <= 0 {
		return fmt.Errorf("%w: slashable_spread %s must exceed allowed_spread %s",
			ErrInvalidConfig, c.SlashableSpread, c.AllowedSpread)
	}
	return nil
}

// MedianSpread aggregates numeric votes by unweighted median and accepts the
// result once the power within the allowed band reaches the threshold ratio
// of all voted power. Voters strictly outside the wider slashable band are
// flagged for downstream penalty.
//
// The median counts each operator's value once regardless of power, while
// acceptance and slashing are power-based. That asymmetry is inherited
// reference behavior; changing it would change consensus outcomes.
type MedianSpread struct {
	cfg MedianSpreadConfig
}

var _ Strategy = (*MedianSpread)(nil)

func NewMedianSpread(cfg MedianSpreadConfig) (*MedianSpread, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MedianSpread{cfg: cfg}, nil
}

func (m *MedianSpread) Name() string { return "median-spread" }

// ParseVote expects a JSON payload {"price": "<decimal>"} with a strictly
// positive price.
func (m *MedianSpread) ParseVote(result string, power *pkgtypes.BigInt) (types.OperatorVote, error) {
	var price types.PriceResult
	if err := json.Unmarshal([]byte(result), &price); err != nil {
		return types.OperatorVote{}, fmt.Errorf("%w: %v", ErrInvalidResultFormat, err)
	}
	if price.Price.Sign() <= 0 {
		return types.OperatorVote{}, fmt.Errorf("%w: price must be positive, got %s", ErrInvalidResultFormat, price.Price)
	}
	return types.OperatorVote{
		Power:  power,
		Result: result,
		Price:  price.Price,
	}, nil
}

func (m *MedianSpread) Evaluate(newVote types.VoteRecord, votes []types.VoteRecord, meta *types.TaskMetadata) (Decision, error) {
	// Gate the aggregation on accumulated power across all votes, whatever
	// their values. Below the bar the vote is stored and the task stays open.
	totalPower := SumPower(votes)
	if !totalPower.GreaterOrEqual(meta.PowerRequired) {
		return Decision{Status: types.OutcomeVoteStored}, nil
	}

	median, slashable, thresholdMet := ProcessVotes(votes, totalPower, m.cfg)

	if !thresholdMet {
		// Not an error: later voters may still push the task over the
		// threshold, or it may be read as expired once the deadline passes.
		return Decision{Status: types.OutcomeThresholdNotMet}, nil
	}

	accepted, err := json.Marshal(types.PriceResult{Price: median})
	if err != nil {
		return Decision{}, fmt.Errorf("marshal accepted median: %w", err)
	}
	return Decision{
		Status:             types.OutcomeFinalized,
		Result:             string(accepted),
		SlashableOperators: slashable,
	}, nil
}

// ProcessVotes runs the full aggregation over a task's vote set: median,
// allowed band filtering, threshold ratio, and slashable outlier detection.
// The slashable band is computed from the same median whether or not the
// threshold was met.
func ProcessVotes(votes []types.VoteRecord, totalPower *pkgtypes.BigInt, cfg MedianSpreadConfig) (decimal.Decimal, []string, bool) {
	values := make([]decimal.Decimal, 0, len(votes))
	for _, record := range votes {
		values = append(values, record.Vote.Price)
	}

	median := CalculateMedian(values)

	allowedMin, allowedMax := CalculateAllowedRange(median, cfg.AllowedSpread)
	validVotes := FilterValidVotes(votes, allowedMin, allowedMax)
	validPower := SumPower(validVotes)

	thresholdMet := MeetsThreshold(validPower, totalPower, cfg.ThresholdPercent)

	slashableMin, slashableMax := CalculateAllowedRange(median, cfg.SlashableSpread)
	slashable := IdentifySlashableOperators(votes, slashableMin, slashableMax)

	return median, slashable, thresholdMet
}

// CalculateMedian returns the positional median of the values. The slice is
// sorted in place. An empty input yields zero, defined rather than an error.
// For an even count the two central elements are averaged with any half
// remainder rounded up, consistent with the ceiling convention used for
// required power.
func CalculateMedian(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	sort.Slice(values, func(i, j int) bool {
		return values[i].Cmp(values[j]) < 0
	})

	mid := len(values) / 2
	if len(values)%2 == 0 {
		sum := values[mid-1].Add(values[mid])
		return sum.DivRound(decimal.NewFromInt(2), medianScale)
	}
	return values[mid]
}

// CalculateAllowedRange returns [median*(1-spread), median*(1+spread)].
func CalculateAllowedRange(median, spread decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	one := decimal.NewFromInt(1)
	minimum := median.Mul(one.Sub(spread))
	maximum := median.Mul(one.Add(spread))
	return minimum, maximum
}

// FilterValidVotes keeps the votes whose value lies within the band,
// inclusive on both ends.
func FilterValidVotes(votes []types.VoteRecord, minimum, maximum decimal.Decimal) []types.VoteRecord {
	var valid []types.VoteRecord
	for _, record := range votes {
		price := record.Vote.Price
		if price.Cmp(minimum) >= 0 && price.Cmp(maximum) <= 0 {
			valid = append(valid, record)
		}
	}
	return valid
}

// IdentifySlashableOperators returns the operators whose value falls strictly
// outside the slashable band.
func IdentifySlashableOperators(votes []types.VoteRecord, minimum, maximum decimal.Decimal) []string {
	var slashable []string
	for _, record := range votes {
		price := record.Vote.Price
		if price.Cmp(minimum) < 0 || price.Cmp(maximum) > 0 {
			slashable = append(slashable, record.Operator)
		}
	}
	return slashable
}
