package janitor

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/attestx/attestx-backend/internal/verifier/storage"
	"github.com/attestx/attestx-backend/pkg/logging"
	"github.com/attestx/attestx-backend/pkg/metrics"
)

// Janitor periodically reports on tasks that are still stored open. Expiry is
// a derived status: the sweep only reads, logs and updates gauges; it never
// writes an expired status back.
type Janitor struct {
	tasks   storage.TaskStore
	logger  logging.Logger
	metrics *metrics.VerifierMetrics
	cron    *cron.Cron
	spec    string
	now     func() time.Time
}

func New(tasks storage.TaskStore, logger logging.Logger, m *metrics.VerifierMetrics, spec string) *Janitor {
	return &Janitor{
		tasks:   tasks,
		logger:  logger,
		metrics: m,
		cron:    cron.New(),
		spec:    spec,
		now:     time.Now,
	}
}

func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.spec, j.Sweep); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// Sweep counts stored-open tasks and logs the ones past their deadline.
func (j *Janitor) Sweep() {
	records, err := j.tasks.ListOpenTasks()
	if err != nil {
		j.logger.Error("janitor sweep failed", "error", err)
		return
	}

	now := j.now()
	expired := 0
	for _, record := range records {
		if record.Metadata.IsExpired(now) {
			expired++
			j.logger.Debug("open task past deadline",
				"registry", record.Registry,
				"task_id", record.TaskID,
				"expires_at", record.Metadata.ExpiresAt,
			)
		}
	}

	j.metrics.SetOpenTasks(len(records))
	if expired > 0 {
		j.logger.Info("janitor sweep", "open_tasks", len(records), "past_deadline", expired)
	}
}
