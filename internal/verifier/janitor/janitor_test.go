package janitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestx/attestx-backend/internal/verifier/storage"
	"github.com/attestx/attestx-backend/internal/verifier/types"
	"github.com/attestx/attestx-backend/pkg/logging"
	pkgtypes "github.com/attestx/attestx-backend/pkg/types"
)

func TestSweep_LeavesStoredStatusUntouched(t *testing.T) {
	store := storage.NewMemoryStore()
	now := time.Unix(1700000000, 0)

	require.NoError(t, store.SaveTask("registry-a", 1, &types.TaskMetadata{
		PowerRequired: pkgtypes.NewBigIntFromInt64(70),
		Status:        types.TaskStatusOpen,
		ExpiresAt:     now.Add(-time.Minute).Unix(),
	}))
	require.NoError(t, store.SaveTask("registry-a", 2, &types.TaskMetadata{
		PowerRequired: pkgtypes.NewBigIntFromInt64(70),
		Status:        types.TaskStatusOpen,
		ExpiresAt:     now.Add(time.Hour).Unix(),
	}))

	j := New(store, logging.NewNoopLogger(), nil, "@every 1m")
	j.now = func() time.Time { return now }

	j.Sweep()

	// The sweep is read-only: the past-deadline task stays stored as open.
	meta, found, err := store.GetTask("registry-a", 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, types.TaskStatusOpen, meta.Status)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	j := New(storage.NewMemoryStore(), logging.NewNoopLogger(), nil, "not a schedule")
	assert.Error(t, j.Start())
}

func TestStartStop(t *testing.T) {
	j := New(storage.NewMemoryStore(), logging.NewNoopLogger(), nil, "@every 1h")
	require.NoError(t, j.Start())
	j.Stop()
}
