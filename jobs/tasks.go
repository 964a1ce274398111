package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReconRun triggers a full reconciliation run.
	TaskReconRun = "recon:run"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// systemActorID marks scheduled runs in the run history.
const systemActorID = 0

// ReconRunPayload parameterises a reconciliation run.
type ReconRunPayload struct {
	ActorID int64 `json:"actor_id"`
}

// NewReconRunTask constructs the reconciliation task.
func NewReconRunTask(actorID int64) (*asynq.Task, error) {
	data, err := json.Marshal(ReconRunPayload{ActorID: actorID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconRun, data), nil
}

// IdempotencyCleanupPayload parameterises key pruning.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
