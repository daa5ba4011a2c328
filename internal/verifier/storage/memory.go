package storage

import (
	"sort"
	"sync"

	"github.com/attestx/attestx-backend/internal/verifier/types"
)

type taskKey struct {
	registry string
	taskID   uint64
}

type voteKey struct {
	registry string
	taskID   uint64
	operator string
}

// MemoryStore is the in-process backend used for development and tests.
// Values are copied in and out, never aliased.
type MemoryStore struct {
	mu      sync.RWMutex
	tasks   map[taskKey]types.TaskMetadata
	votes   map[voteKey]types.OperatorVote
	slashed map[string]bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:   make(map[taskKey]types.TaskMetadata),
		votes:   make(map[voteKey]types.OperatorVote),
		slashed: make(map[string]bool),
	}
}

func (s *MemoryStore) GetTask(registry string, taskID uint64) (*types.TaskMetadata, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.tasks[taskKey{registry, taskID}]
	if !ok {
		return nil, false, nil
	}
	cp := meta
	cp.PowerRequired = meta.PowerRequired.Clone()
	return &cp, true, nil
}

func (s *MemoryStore) SaveTask(registry string, taskID uint64, meta *types.TaskMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *meta
	cp.PowerRequired = meta.PowerRequired.Clone()
	s.tasks[taskKey{registry, taskID}] = cp
	return nil
}

func (s *MemoryStore) ListOpenTasks() ([]TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []TaskRecord
	for key, meta := range s.tasks {
		if meta.Status != types.TaskStatusOpen {
			continue
		}
		cp := meta
		cp.PowerRequired = meta.PowerRequired.Clone()
		records = append(records, TaskRecord{
			Registry: key.registry,
			TaskID:   key.taskID,
			Metadata: cp,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Registry != records[j].Registry {
			return records[i].Registry < records[j].Registry
		}
		return records[i].TaskID < records[j].TaskID
	})
	return records, nil
}

func (s *MemoryStore) GetVote(registry string, taskID uint64, operator string) (*types.OperatorVote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vote, ok := s.votes[voteKey{registry, taskID, operator}]
	if !ok {
		return nil, false, nil
	}
	cp := vote
	cp.Power = vote.Power.Clone()
	return &cp, true, nil
}

func (s *MemoryStore) SaveVote(registry string, taskID uint64, operator string, vote types.OperatorVote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voteKey{registry, taskID, operator}
	if _, exists := s.votes[key]; exists {
		return ErrDuplicateVote
	}
	cp := vote
	cp.Power = vote.Power.Clone()
	s.votes[key] = cp
	return nil
}

func (s *MemoryStore) ListVotes(registry string, taskID uint64) ([]types.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []types.VoteRecord
	for key, vote := range s.votes {
		if key.registry != registry || key.taskID != taskID {
			continue
		}
		cp := vote
		cp.Power = vote.Power.Clone()
		records = append(records, types.VoteRecord{Operator: key.operator, Vote: cp})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Operator < records[j].Operator
	})
	return records, nil
}

func (s *MemoryStore) FlagOperator(operator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slashed[operator] = true
	return nil
}

func (s *MemoryStore) ListFlagged() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	operators := make([]string, 0, len(s.slashed))
	for operator := range s.slashed {
		operators = append(operators, operator)
	}
	sort.Strings(operators)
	return operators, nil
}
