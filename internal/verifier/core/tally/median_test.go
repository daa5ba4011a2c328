package tally

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestx/attestx-backend/internal/verifier/types"
	pkgtypes "github.com/attestx/attestx-backend/pkg/types"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func decs(t *testing.T, values ...string) []decimal.Decimal {
	t.Helper()
	out := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		out = append(out, dec(t, v))
	}
	return out
}

func priceVote(t *testing.T, operator, price string, power int64) types.VoteRecord {
	t.Helper()
	return types.VoteRecord{
		Operator: operator,
		Vote: types.OperatorVote{
			Power:  pkgtypes.NewBigIntFromInt64(power),
			Result: `{"price":"` + price + `"}`,
			Price:  dec(t, price),
		},
	}
}

func validMedianConfig(t *testing.T) MedianSpreadConfig {
	return MedianSpreadConfig{
		ThresholdPercent: dec(t, "0.67"),
		AllowedSpread:    dec(t, "0.1"),
		SlashableSpread:  dec(t, "0.2"),
	}
}

func TestMedianSpreadConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		threshold string
		allowed   string
		slashable string
		wantErr   bool
	}{
		{"typical config", "0.67", "0.1", "0.2", false},
		{"all bounds at one", "1", "0.5", "1", false},
		{"zero threshold", "0", "0.1", "0.2", true},
		{"negative threshold", "-0.5", "0.1", "0.2", true},
		{"threshold above one", "1.01", "0.1", "0.2", true},
		{"zero allowed spread", "0.67", "0", "0.2", true},
		{"slashable narrower than allowed", "0.67", "0.2", "0.1", true},
		{"slashable equal to allowed", "0.67", "0.1", "0.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MedianSpreadConfig{
				ThresholdPercent: dec(t, tt.threshold),
				AllowedSpread:    dec(t, tt.allowed),
				SlashableSpread:  dec(t, tt.slashable),
			}
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMedianSpread_ParseVote(t *testing.T) {
	strategy, err := NewMedianSpread(validMedianConfig(t))
	require.NoError(t, err)

	power := pkgtypes.NewBigIntFromInt64(10)

	tests := []struct {
		name    string
		result  string
		wantErr bool
	}{
		{"positive integer price", `{"price":"100"}`, false},
		{"fractional price", `{"price":"1.25"}`, false},
		{"zero price rejected", `{"price":"0"}`, true},
		{"negative price rejected", `{"price":"-5"}`, true},
		{"not json", `not json`, true},
		{"wrong shape", `{"value":"100"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vote, err := strategy.ParseVote(tt.result, power)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidResultFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.result, vote.Result)
			assert.Equal(t, power, vote.Power)
		})
	}
}

func TestCalculateMedian(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		expected string
	}{
		{"odd count", []string{"1", "3", "5"}, "3"},
		{"even count", []string{"1", "3", "5", "7"}, "4"},
		{"even count fractional", []string{"1.1", "1.2", "1.3", "1.4"}, "1.25"},
		{"single value", []string{"42"}, "42"},
		{"unsorted input", []string{"5", "1", "3"}, "3"},
		{"empty", nil, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			median := CalculateMedian(decs(t, tt.values...))
			assert.True(t, median.Equal(dec(t, tt.expected)),
				"expected %s, got %s", tt.expected, median)
		})
	}
}

func TestCalculateAllowedRange(t *testing.T) {
	minimum, maximum := CalculateAllowedRange(dec(t, "105"), dec(t, "0.1"))
	assert.True(t, minimum.Equal(dec(t, "94.5")), "got min %s", minimum)
	assert.True(t, maximum.Equal(dec(t, "115.5")), "got max %s", maximum)
}

func TestFilterValidVotes_InclusiveBounds(t *testing.T) {
	votes := []types.VoteRecord{
		priceVote(t, "0xlow", "94.5", 10),
		priceVote(t, "0xmid", "105", 10),
		priceVote(t, "0xhigh", "115.5", 10),
		priceVote(t, "0xbelow", "94.49", 10),
		priceVote(t, "0xabove", "115.51", 10),
	}

	valid := FilterValidVotes(votes, dec(t, "94.5"), dec(t, "115.5"))

	require.Len(t, valid, 3)
	assert.Equal(t, "0xlow", valid[0].Operator)
	assert.Equal(t, "0xmid", valid[1].Operator)
	assert.Equal(t, "0xhigh", valid[2].Operator)
}

func TestIdentifySlashableOperators_StrictBounds(t *testing.T) {
	votes := []types.VoteRecord{
		priceVote(t, "0xonmin", "84", 10),
		priceVote(t, "0xonmax", "126", 10),
		priceVote(t, "0xunder", "83.99", 10),
		priceVote(t, "0xover", "126.01", 10),
	}

	slashable := IdentifySlashableOperators(votes, dec(t, "84"), dec(t, "126"))

	// Values sitting exactly on the band edges are not slashable.
	assert.Equal(t, []string{"0xunder", "0xover"}, slashable)
}

func TestMeetsThreshold(t *testing.T) {
	tests := []struct {
		name      string
		valid     int64
		total     int64
		threshold string
		expected  bool
	}{
		{"exact boundary", 67, 100, "0.67", true},
		{"just below", 66, 100, "0.67", false},
		{"above", 80, 100, "0.67", true},
		{"full agreement at one", 100, 100, "1", true},
		{"eighty percent fails full threshold", 80, 100, "1", false},
		{"zero total power", 0, 0, "0.67", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MeetsThreshold(
				pkgtypes.NewBigIntFromInt64(tt.valid),
				pkgtypes.NewBigIntFromInt64(tt.total),
				dec(t, tt.threshold),
			)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestProcessVotes_OutlierScenario(t *testing.T) {
	// Three operators with weights 50/30/20 voting 100/105/150. The median is
	// 105 and the allowed band [94.5, 115.5], so only the first two count as
	// valid: 80 of 100 total power.
	votes := []types.VoteRecord{
		priceVote(t, "0xaaa", "100", 50),
		priceVote(t, "0xbbb", "105", 30),
		priceVote(t, "0xccc", "150", 20),
	}
	total := SumPower(votes)
	require.Equal(t, "100", total.String())

	t.Run("fails at full threshold", func(t *testing.T) {
		cfg := MedianSpreadConfig{
			ThresholdPercent: dec(t, "1"),
			AllowedSpread:    dec(t, "0.1"),
			SlashableSpread:  dec(t, "0.2"),
		}
		median, slashable, met := ProcessVotes(votes, total, cfg)
		assert.True(t, median.Equal(dec(t, "105")), "got median %s", median)
		assert.False(t, met)
		// The slashable set is computed either way: 150 is outside
		// [84, 126] while 100 is not.
		assert.Equal(t, []string{"0xccc"}, slashable)
	})

	t.Run("finalizes at 0.80", func(t *testing.T) {
		cfg := MedianSpreadConfig{
			ThresholdPercent: dec(t, "0.80"),
			AllowedSpread:    dec(t, "0.1"),
			SlashableSpread:  dec(t, "0.2"),
		}
		median, slashable, met := ProcessVotes(votes, total, cfg)
		assert.True(t, median.Equal(dec(t, "105")))
		assert.True(t, met)
		assert.Equal(t, []string{"0xccc"}, slashable)
	})
}

func TestMedianSpread_Evaluate(t *testing.T) {
	strategy, err := NewMedianSpread(MedianSpreadConfig{
		ThresholdPercent: dec(t, "0.80"),
		AllowedSpread:    dec(t, "0.1"),
		SlashableSpread:  dec(t, "0.2"),
	})
	require.NoError(t, err)

	meta := &types.TaskMetadata{
		PowerRequired: pkgtypes.NewBigIntFromInt64(70),
		Status:        types.TaskStatusOpen,
	}

	t.Run("stores vote below power gate", func(t *testing.T) {
		votes := []types.VoteRecord{priceVote(t, "0xaaa", "100", 50)}
		decision, err := strategy.Evaluate(votes[0], votes, meta)
		require.NoError(t, err)
		assert.Equal(t, types.OutcomeVoteStored, decision.Status)
	})

	t.Run("finalizes and flags outlier", func(t *testing.T) {
		votes := []types.VoteRecord{
			priceVote(t, "0xaaa", "100", 50),
			priceVote(t, "0xbbb", "105", 30),
			priceVote(t, "0xccc", "150", 20),
		}
		decision, err := strategy.Evaluate(votes[2], votes, meta)
		require.NoError(t, err)
		assert.Equal(t, types.OutcomeFinalized, decision.Status)
		assert.JSONEq(t, `{"price":"105"}`, decision.Result)
		assert.Equal(t, []string{"0xccc"}, decision.SlashableOperators)
	})

	t.Run("threshold not met stays open", func(t *testing.T) {
		strict, err := NewMedianSpread(MedianSpreadConfig{
			ThresholdPercent: dec(t, "1"),
			AllowedSpread:    dec(t, "0.1"),
			SlashableSpread:  dec(t, "0.2"),
		})
		require.NoError(t, err)

		votes := []types.VoteRecord{
			priceVote(t, "0xaaa", "100", 50),
			priceVote(t, "0xbbb", "105", 30),
			priceVote(t, "0xccc", "150", 20),
		}
		decision, err := strict.Evaluate(votes[2], votes, meta)
		require.NoError(t, err)
		assert.Equal(t, types.OutcomeThresholdNotMet, decision.Status)
		assert.Empty(t, decision.SlashableOperators)
	})
}
