package verification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/attestx/attestx-backend/internal/verifier/core/tally"
	"github.com/attestx/attestx-backend/internal/verifier/storage"
	"github.com/attestx/attestx-backend/internal/verifier/types"
	"github.com/attestx/attestx-backend/pkg/logging"
	"github.com/attestx/attestx-backend/pkg/metrics"
	pkgtypes "github.com/attestx/attestx-backend/pkg/types"
)

// TaskRegistry is the external task queue the verifier adjudicates for.
type TaskRegistry interface {
	TaskStatus(ctx context.Context, registryRef string, taskID uint64) (*types.TaskStatusInfo, error)
	Complete(ctx context.Context, registryRef string, taskID uint64, result string) error
}

// PowerProvider reports operator voting power pinned to a checkpoint.
type PowerProvider interface {
	VotingPowerAt(ctx context.Context, operator string, checkpoint uint64) (*pkgtypes.BigInt, error)
	TotalPowerAt(ctx context.Context, checkpoint uint64) (*pkgtypes.BigInt, error)
}

// Config is the verifier-level configuration, fixed per deployment.
type Config struct {
	// RequiredPercentage of total power, in (0, 100], that gates
	// finalization (exact-match) or the aggregation run (median-spread).
	RequiredPercentage uint64
}

func (c Config) Validate() error {
	if c.RequiredPercentage == 0 || c.RequiredPercentage > 100 {
		return fmt.Errorf("%w: required_percentage must be in (0, 100], got %d",
			ErrInvalidConfig, c.RequiredPercentage)
	}
	return nil
}

// Verifier is the single entry point for vote submission and task queries.
// It sequences the metadata cache, the vote ledger and the configured tally
// strategy, and dispatches the finalize command to the task registry.
type Verifier struct {
	cfg      Config
	strategy tally.Strategy
	store    storage.Store
	registry TaskRegistry
	power    PowerProvider
	logger   logging.Logger
	metrics  *metrics.VerifierMetrics
	meta     *metadataCache

	// Serializes submissions. The host is expected to serialize per task
	// scope already; this keeps a single instance safe regardless.
	mu sync.Mutex

	now func() time.Time
}

func New(cfg Config, strategy tally.Strategy, store storage.Store, registry TaskRegistry, power PowerProvider, logger logging.Logger, m *metrics.VerifierMetrics) (*Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, fmt.Errorf("%w: tally strategy cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	v := &Verifier{
		cfg:      cfg,
		strategy: strategy,
		store:    store,
		registry: registry,
		power:    power,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
	v.meta = &metadataCache{
		tasks:              store,
		registry:           registry,
		power:              power,
		requiredPercentage: cfg.RequiredPercentage,
		now:                func() time.Time { return v.now() },
	}
	return v, nil
}

// SubmitVote records one operator's result for a task and runs the tally.
// Submissions against completed or expired tasks return the not-accepted
// outcome without touching state. Duplicate votes, zero-power operators and
// malformed results are rejected with no state change.
func (v *Verifier) SubmitVote(ctx context.Context, registryRef string, taskID uint64, operator string, result string) (types.Outcome, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	log := v.logger.With("registry", registryRef, "task_id", taskID, "operator", operator)

	meta, err := v.meta.loadOrInitialize(ctx, registryRef, taskID)
	if err != nil {
		if errors.Is(err, ErrTaskAlreadyCompleted) || errors.Is(err, ErrTaskExpired) {
			// Expected when submissions race finalization or expiry.
			log.Debug("vote not accepted", "reason", err)
			v.metrics.IncVotesNotAccepted()
			return types.Outcome{Status: types.OutcomeNotAccepted}, nil
		}
		return types.Outcome{}, err
	}

	power, err := v.power.VotingPowerAt(ctx, operator, meta.CreatedCheckpoint)
	if err != nil {
		return types.Outcome{}, fmt.Errorf("query voting power for %s: %w", operator, err)
	}
	if power.IsZero() {
		v.metrics.IncVotesRejected("unauthorized")
		return types.Outcome{}, ErrUnauthorized
	}

	vote, err := v.strategy.ParseVote(result, power)
	if err != nil {
		v.metrics.IncVotesRejected("invalid_result")
		return types.Outcome{}, err
	}

	if err := v.store.SaveVote(registryRef, taskID, operator, vote); err != nil {
		if errors.Is(err, storage.ErrDuplicateVote) {
			v.metrics.IncVotesRejected("duplicate")
		}
		return types.Outcome{}, err
	}
	v.metrics.IncVotesStored()

	votes, err := v.store.ListVotes(registryRef, taskID)
	if err != nil {
		return types.Outcome{}, err
	}

	decision, err := v.strategy.Evaluate(types.VoteRecord{Operator: operator, Vote: vote}, votes, meta)
	if err != nil {
		return types.Outcome{}, err
	}

	switch decision.Status {
	case types.OutcomeFinalized:
		return v.finalize(ctx, registryRef, taskID, meta, decision, log)
	case types.OutcomeThresholdNotMet:
		log.Info("threshold not met, task stays open", "votes", len(votes))
		v.metrics.IncThresholdNotMet()
		return types.Outcome{Status: types.OutcomeThresholdNotMet}, nil
	default:
		log.Debug("vote stored", "votes", len(votes))
		return types.Outcome{Status: types.OutcomeVoteStored}, nil
	}
}

func (v *Verifier) finalize(ctx context.Context, registryRef string, taskID uint64, meta *types.TaskMetadata, decision tally.Decision, log logging.Logger) (types.Outcome, error) {
	for _, operator := range decision.SlashableOperators {
		if err := v.store.FlagOperator(operator); err != nil {
			return types.Outcome{}, fmt.Errorf("flag operator %s: %w", operator, err)
		}
		log.Warn("operator flagged as outlier", "flagged", operator)
		v.metrics.IncOperatorsFlagged()
	}

	meta.Status = types.TaskStatusCompleted
	if err := v.store.SaveTask(registryRef, taskID, meta); err != nil {
		return types.Outcome{}, err
	}

	if err := v.registry.Complete(ctx, registryRef, taskID, decision.Result); err != nil {
		return types.Outcome{}, fmt.Errorf("dispatch completion for %s/%d: %w", registryRef, taskID, err)
	}

	log.Info("task finalized", "result", decision.Result)
	v.metrics.IncTasksFinalized()
	return types.Outcome{Status: types.OutcomeFinalized, Result: decision.Result}, nil
}

// TaskInfo returns the derived status, required power and per-result running
// tallies for a task, or nil if the task has never been voted on.
func (v *Verifier) TaskInfo(registryRef string, taskID uint64) (*types.TaskInfo, error) {
	meta, found, err := v.store.GetTask(registryRef, taskID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	votes, err := v.store.ListVotes(registryRef, taskID)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]*pkgtypes.BigInt)
	for _, record := range votes {
		if sum, ok := grouped[record.Vote.Result]; ok {
			sum.Add(sum, record.Vote.Power)
		} else {
			grouped[record.Vote.Result] = record.Vote.Power.Clone()
		}
	}

	tallies := make([]types.TaskTally, 0, len(grouped))
	for result, power := range grouped {
		tallies = append(tallies, types.TaskTally{Result: result, Power: power})
	}
	sort.Slice(tallies, func(i, j int) bool { return tallies[i].Result < tallies[j].Result })

	return &types.TaskInfo{
		Status:      meta.DerivedStatus(v.now()),
		PowerNeeded: meta.PowerRequired,
		Tallies:     tallies,
	}, nil
}

// OperatorVote returns an operator's recorded vote, or nil if absent.
func (v *Verifier) OperatorVote(registryRef string, taskID uint64, operator string) (*types.OperatorVote, error) {
	vote, found, err := v.store.GetVote(registryRef, taskID, operator)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return vote, nil
}

// SlashedOperators returns every operator flagged as an outlier.
func (v *Verifier) SlashedOperators() ([]string, error) {
	return v.store.ListFlagged()
}

// StrategyName reports the configured tally strategy.
func (v *Verifier) StrategyName() string {
	return v.strategy.Name()
}

// RequiredPercentage reports the configured finalization percentage.
func (v *Verifier) RequiredPercentage() uint64 {
	return v.cfg.RequiredPercentage
}
