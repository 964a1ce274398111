package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/campusledger/campusledger/internal/jobs"
	"github.com/campusledger/campusledger/internal/recon"
)

// ReconRunner is the reconciliation engine slice this job drives.
type ReconRunner interface {
	Run(ctx context.Context, actorID int64) (recon.Report, error)
}

// ReconRunJob executes the nightly reconciliation with injected engine and
// clock so tests can drive it without timers.
type ReconRunJob struct {
	Engine  ReconRunner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReconRunJob initialises the reconciliation handler.
func NewReconRunJob(engine ReconRunner, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconRunJob {
	return &ReconRunJob{
		Engine:  engine,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithClock overrides the job clock.
func (j *ReconRunJob) WithClock(clock func() time.Time) { j.clock = clock }

// Handle executes a reconciliation run.
func (j *ReconRunJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Engine == nil {
		return errors.New("recon run: handler not configured")
	}
	var payload ReconRunPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.ActorID < 0 {
		payload.ActorID = systemActorID
	}

	tracker := j.metrics().Track(TaskReconRun)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	report, err := j.Engine.Run(ctx, payload.ActorID)
	if err != nil {
		resultErr = err
		j.logger().Error("reconciliation run failed", slog.Any("error", err))
		return resultErr
	}

	for _, res := range report.Results {
		if res.Status != recon.StatusPass {
			j.metrics().AddFindings(res.Name, string(res.Status), 1)
		}
	}

	logger := j.logger().With(
		slog.Int64("run_id", report.ID),
		slog.String("overall", string(report.Overall)),
		slog.Duration("took", j.now().Sub(start)),
	)
	switch report.Overall {
	case recon.StatusFail:
		logger.Error("reconciliation found integrity failures")
	case recon.StatusWarning:
		logger.Warn("reconciliation finished with warnings")
	default:
		logger.Info("reconciliation clean")
	}
	return nil
}

func (j *ReconRunJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *ReconRunJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *ReconRunJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
