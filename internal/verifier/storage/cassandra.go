package storage

import (
	"errors"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"

	"github.com/attestx/attestx-backend/internal/verifier/types"
	"github.com/attestx/attestx-backend/pkg/database"
	pkgtypes "github.com/attestx/attestx-backend/pkg/types"
)

// CassandraStore persists tasks, votes and slash flags in Cassandra/ScyllaDB.
// Powers are stored as base-10 strings to keep full 256-bit precision.
type CassandraStore struct {
	db *database.Connection
}

var _ Store = (*CassandraStore)(nil)

func NewCassandraStore(db *database.Connection) *CassandraStore {
	return &CassandraStore{db: db}
}

func (s *CassandraStore) GetTask(registry string, taskID uint64) (*types.TaskMetadata, bool, error) {
	var (
		powerRequired     string
		status            string
		createdCheckpoint int64
		expiresAt         int64
	)
	err := s.db.Session().Query(getTaskQuery, registry, int64(taskID)).
		Scan(&powerRequired, &status, &createdCheckpoint, &expiresAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get task %s/%d: %w", registry, taskID, err)
	}

	required, err := pkgtypes.ParseBigInt(powerRequired)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt power_required for task %s/%d: %w", registry, taskID, err)
	}

	return &types.TaskMetadata{
		PowerRequired:     required,
		Status:            types.TaskStatus(status),
		CreatedCheckpoint: uint64(createdCheckpoint),
		ExpiresAt:         expiresAt,
	}, true, nil
}

func (s *CassandraStore) SaveTask(registry string, taskID uint64, meta *types.TaskMetadata) error {
	err := s.db.Session().Query(saveTaskQuery,
		registry, int64(taskID), meta.PowerRequired.String(), string(meta.Status),
		int64(meta.CreatedCheckpoint), meta.ExpiresAt).Exec()
	if err != nil {
		return fmt.Errorf("save task %s/%d: %w", registry, taskID, err)
	}
	return nil
}

func (s *CassandraStore) ListOpenTasks() ([]TaskRecord, error) {
	iter := s.db.Session().Query(listOpenTasksQuery).Iter()

	var records []TaskRecord
	var (
		registry          string
		taskID            int64
		powerRequired     string
		status            string
		createdCheckpoint int64
		expiresAt         int64
	)
	for iter.Scan(&registry, &taskID, &powerRequired, &status, &createdCheckpoint, &expiresAt) {
		required, err := pkgtypes.ParseBigInt(powerRequired)
		if err != nil {
			return nil, fmt.Errorf("corrupt power_required for task %s/%d: %w", registry, taskID, err)
		}
		records = append(records, TaskRecord{
			Registry: registry,
			TaskID:   uint64(taskID),
			Metadata: types.TaskMetadata{
				PowerRequired:     required,
				Status:            types.TaskStatus(status),
				CreatedCheckpoint: uint64(createdCheckpoint),
				ExpiresAt:         expiresAt,
			},
		})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *CassandraStore) GetVote(registry string, taskID uint64, operator string) (*types.OperatorVote, bool, error) {
	var (
		power  string
		result string
		price  string
	)
	err := s.db.Session().Query(getVoteQuery, registry, int64(taskID), operator).
		Scan(&power, &result, &price)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get vote %s/%d/%s: %w", registry, taskID, operator, err)
	}
	vote, err := decodeVote(power, result, price)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt vote %s/%d/%s: %w", registry, taskID, operator, err)
	}
	return vote, true, nil
}

func (s *CassandraStore) SaveVote(registry string, taskID uint64, operator string, vote types.OperatorVote) error {
	applied, err := s.db.Session().Query(saveVoteQuery,
		registry, int64(taskID), operator,
		vote.Power.String(), vote.Result, vote.Price.String()).
		ScanCAS(nil, nil, nil, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("save vote %s/%d/%s: %w", registry, taskID, operator, err)
	}
	if !applied {
		return ErrDuplicateVote
	}
	return nil
}

func (s *CassandraStore) ListVotes(registry string, taskID uint64) ([]types.VoteRecord, error) {
	iter := s.db.Session().Query(listVotesQuery, registry, int64(taskID)).Iter()

	var records []types.VoteRecord
	var (
		operator string
		power    string
		result   string
		price    string
	)
	for iter.Scan(&operator, &power, &result, &price) {
		vote, err := decodeVote(power, result, price)
		if err != nil {
			return nil, fmt.Errorf("corrupt vote %s/%d/%s: %w", registry, taskID, operator, err)
		}
		records = append(records, types.VoteRecord{Operator: operator, Vote: *vote})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *CassandraStore) FlagOperator(operator string) error {
	return s.db.Session().Query(flagOperatorQuery, operator).Exec()
}

func (s *CassandraStore) ListFlagged() ([]string, error) {
	iter := s.db.Session().Query(listFlaggedQuery).Iter()

	var operators []string
	var operator string
	for iter.Scan(&operator) {
		operators = append(operators, operator)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return operators, nil
}

func decodeVote(power, result, price string) (*types.OperatorVote, error) {
	p, err := pkgtypes.ParseBigInt(power)
	if err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	return &types.OperatorVote{Power: p, Result: result, Price: d}, nil
}
