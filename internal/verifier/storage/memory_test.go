package storage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestx/attestx-backend/internal/verifier/types"
	pkgtypes "github.com/attestx/attestx-backend/pkg/types"
)

func TestMemoryStore_Tasks(t *testing.T) {
	store := NewMemoryStore()

	meta := &types.TaskMetadata{
		PowerRequired:     pkgtypes.NewBigIntFromInt64(300),
		Status:            types.TaskStatusOpen,
		CreatedCheckpoint: 7,
		ExpiresAt:         1700000000,
	}

	t.Run("missing task reports not found", func(t *testing.T) {
		got, found, err := store.GetTask("registry-a", 1)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	})

	t.Run("save then get", func(t *testing.T) {
		require.NoError(t, store.SaveTask("registry-a", 1, meta))

		got, found, err := store.GetTask("registry-a", 1)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, types.TaskStatusOpen, got.Status)
		assert.Equal(t, "300", got.PowerRequired.String())
		assert.Equal(t, uint64(7), got.CreatedCheckpoint)
	})

	t.Run("returned metadata is a copy", func(t *testing.T) {
		got, _, err := store.GetTask("registry-a", 1)
		require.NoError(t, err)
		got.Status = types.TaskStatusCompleted
		got.PowerRequired.Add(got.PowerRequired, pkgtypes.NewBigIntFromInt64(1))

		again, _, err := store.GetTask("registry-a", 1)
		require.NoError(t, err)
		assert.Equal(t, types.TaskStatusOpen, again.Status)
		assert.Equal(t, "300", again.PowerRequired.String())
	})

	t.Run("list open tasks skips completed", func(t *testing.T) {
		done := &types.TaskMetadata{
			PowerRequired: pkgtypes.NewBigIntFromInt64(100),
			Status:        types.TaskStatusCompleted,
		}
		require.NoError(t, store.SaveTask("registry-a", 2, done))
		require.NoError(t, store.SaveTask("registry-b", 1, meta))

		records, err := store.ListOpenTasks()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "registry-a", records[0].Registry)
		assert.Equal(t, uint64(1), records[0].TaskID)
		assert.Equal(t, "registry-b", records[1].Registry)
	})
}

func TestMemoryStore_Votes(t *testing.T) {
	store := NewMemoryStore()

	vote := types.OperatorVote{
		Power:  pkgtypes.NewBigIntFromInt64(50),
		Result: `{"price":"100"}`,
		Price:  decimal.NewFromInt(100),
	}

	t.Run("missing vote reports not found", func(t *testing.T) {
		got, found, err := store.GetVote("registry-a", 1, "0xaaa")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	})

	t.Run("save then get", func(t *testing.T) {
		require.NoError(t, store.SaveVote("registry-a", 1, "0xaaa", vote))

		got, found, err := store.GetVote("registry-a", 1, "0xaaa")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, vote.Result, got.Result)
		assert.Equal(t, "50", got.Power.String())
	})

	t.Run("duplicate vote rejected, first wins", func(t *testing.T) {
		second := vote
		second.Result = `{"price":"999"}`
		err := store.SaveVote("registry-a", 1, "0xaaa", second)
		assert.ErrorIs(t, err, ErrDuplicateVote)

		got, _, err := store.GetVote("registry-a", 1, "0xaaa")
		require.NoError(t, err)
		assert.Equal(t, `{"price":"100"}`, got.Result)
	})

	t.Run("list votes is scoped to the task", func(t *testing.T) {
		require.NoError(t, store.SaveVote("registry-a", 1, "0xbbb", vote))
		require.NoError(t, store.SaveVote("registry-a", 2, "0xccc", vote))
		require.NoError(t, store.SaveVote("registry-b", 1, "0xddd", vote))

		records, err := store.ListVotes("registry-a", 1)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "0xaaa", records[0].Operator)
		assert.Equal(t, "0xbbb", records[1].Operator)
	})
}

func TestMemoryStore_Slashing(t *testing.T) {
	store := NewMemoryStore()

	flagged, err := store.ListFlagged()
	require.NoError(t, err)
	assert.Empty(t, flagged)

	require.NoError(t, store.FlagOperator("0xccc"))
	require.NoError(t, store.FlagOperator("0xaaa"))
	// Flagging twice is a no-op.
	require.NoError(t, store.FlagOperator("0xccc"))

	flagged, err = store.ListFlagged()
	require.NoError(t, err)
	assert.Equal(t, []string{"0xaaa", "0xccc"}, flagged)
}
