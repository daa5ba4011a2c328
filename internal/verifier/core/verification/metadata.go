package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/attestx/attestx-backend/internal/verifier/storage"
	"github.com/attestx/attestx-backend/internal/verifier/types"
)

// metadataCache lazily materializes the frozen per-task snapshot: required
// power and creation checkpoint/expiry, derived once from the task registry
// and the power provider, then reused for the task's lifetime.
type metadataCache struct {
	tasks              storage.TaskStore
	registry           TaskRegistry
	power              PowerProvider
	requiredPercentage uint64
	now                func() time.Time
}

// loadOrInitialize returns the task snapshot, creating it on first sight.
// Completed tasks fail with ErrTaskAlreadyCompleted; tasks past their
// deadline fail with ErrTaskExpired. The expiry check is advisory to the
// caller: reads never write the derived status back.
func (c *metadataCache) loadOrInitialize(ctx context.Context, registryRef string, taskID uint64) (*types.TaskMetadata, error) {
	meta, found, err := c.tasks.GetTask(registryRef, taskID)
	if err != nil {
		return nil, err
	}
	if found {
		switch {
		case meta.Status == types.TaskStatusCompleted:
			return nil, ErrTaskAlreadyCompleted
		case meta.Status == types.TaskStatusExpired:
			return nil, ErrTaskExpired
		case meta.Status == types.TaskStatusOpen && meta.IsExpired(c.now()):
			return nil, ErrTaskExpired
		}
		return meta, nil
	}

	status, err := c.registry.TaskStatus(ctx, registryRef, taskID)
	if err != nil {
		return nil, fmt.Errorf("query task registry for %s/%d: %w", registryRef, taskID, err)
	}

	switch status.Status {
	case types.TaskStatusCompleted:
		return nil, ErrTaskAlreadyCompleted
	case types.TaskStatusExpired:
		return nil, ErrTaskExpired
	}

	totalPower, err := c.power.TotalPowerAt(ctx, status.CreatedCheckpoint)
	if err != nil {
		return nil, fmt.Errorf("query total power at checkpoint %d: %w", status.CreatedCheckpoint, err)
	}

	// The only place required power is computed. It is a pure function of
	// data fixed at task creation, so every later voter is measured against
	// the same bar.
	meta = &types.TaskMetadata{
		PowerRequired:     totalPower.MulCeilPercent(c.requiredPercentage),
		Status:            types.TaskStatusOpen,
		CreatedCheckpoint: status.CreatedCheckpoint,
		ExpiresAt:         status.ExpiresAt,
	}
	if err := c.tasks.SaveTask(registryRef, taskID, meta); err != nil {
		return nil, err
	}
	return meta, nil
}
