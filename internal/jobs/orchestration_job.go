package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"

	"github.com/robfig/cron/v3"
)

const (
	// DefaultSchedule runs a pass every fifteen minutes.
	DefaultSchedule = "@every 15m"

	// DefaultPassTimeout is the wall-clock budget of one pass.
	DefaultPassTimeout = 30 * time.Second

	// TriggerScheduler names passes started by the cron schedule.
	TriggerScheduler = "scheduler"

	jobName = "orchestration"
)

// ErrPassInProgress is returned by Trigger while another pass is running.
var ErrPassInProgress = errors.New("orchestration pass already in progress")

// PassRunner executes one orchestration pass. It is satisfied by
// commands.OrchestrateDropsCommandHandler.
type PassRunner interface {
	Handle(ctx context.Context, cmd commands.OrchestrateDropsCommand) (commands.OrchestrateDropsResult, error)
}

// OrchestrationJobConfig tunes the scheduled pass.
type OrchestrationJobConfig struct {
	Schedule    string
	PassTimeout time.Duration

	// Options are used by scheduled passes; manual triggers bring their own.
	Options services.Options
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running        bool
	LastTrigger    string
	LastStartedAt  time.Time
	LastFinishedAt time.Time
	LastDuration   time.Duration
	LastError      string
	LastResult     *commands.OrchestrateDropsResult
	Passes         int
	SkippedTicks   int
	NextRunAt      time.Time
}

// OrchestrationJob runs apply passes on a cron schedule. At most one pass runs
// at a time: a tick that fires while a pass is still running is skipped, not
// queued, and a manual Trigger gets ErrPassInProgress.
type OrchestrationJob struct {
	runner  PassRunner
	cfg     OrchestrationJobConfig
	cron    *cron.Cron
	entryID cron.EntryID
	metrics ports.MetricsRecorder
	logger  *slog.Logger

	running atomic.Bool

	mu     sync.Mutex
	status Status
}

// NewOrchestrationJob creates the job. metrics may be nil. Empty schedule and
// non-positive timeout fall back to the defaults.
func NewOrchestrationJob(
	runner PassRunner,
	cfg OrchestrationJobConfig,
	metrics ports.MetricsRecorder,
	logger *slog.Logger,
) *OrchestrationJob {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = DefaultPassTimeout
	}

	return &OrchestrationJob{
		runner:  runner,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
		metrics: metrics,
		logger:  logger.With("component", "orchestration_job"),
	}
}

// Start registers the schedule and starts the cron loop.
func (j *OrchestrationJob) Start() error {
	id, err := j.cron.AddFunc(j.cfg.Schedule, j.tick)
	if err != nil {
		return err
	}
	j.entryID = id

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Orchestration job started", "schedule", j.cfg.Schedule)
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (j *OrchestrationJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Orchestration job stopped")
}

// Trigger runs an apply pass immediately. The pass is detached from ctx
// cancellation so a disconnected caller cannot abort persistence halfway; it
// is still bounded by the pass timeout.
func (j *OrchestrationJob) Trigger(
	ctx context.Context,
	trigger string,
	opts services.Options,
) (commands.OrchestrateDropsResult, error) {
	return j.run(context.WithoutCancel(ctx), trigger, opts)
}

// Status returns a snapshot of the scheduler state.
func (j *OrchestrationJob) Status() Status {
	j.mu.Lock()
	s := j.status
	j.mu.Unlock()

	s.Running = j.running.Load()
	if j.entryID != 0 {
		s.NextRunAt = j.cron.Entry(j.entryID).Next
	}
	return s
}

func (j *OrchestrationJob) tick() {
	ctx := context.Background()

	_, err := j.run(ctx, TriggerScheduler, j.cfg.Options)
	switch {
	case errors.Is(err, ErrPassInProgress):
		j.mu.Lock()
		j.status.SkippedTicks++
		j.mu.Unlock()

		if j.metrics != nil {
			j.metrics.RecordSkippedTick(jobName)
		}
		j.logger.WarnContext(ctx, "Orchestration tick skipped: previous pass still running")
	case err != nil:
		j.logger.ErrorContext(ctx, "Orchestration pass failed", "error", err)
	}
}

func (j *OrchestrationJob) run(
	ctx context.Context,
	trigger string,
	opts services.Options,
) (commands.OrchestrateDropsResult, error) {
	if !j.running.CompareAndSwap(false, true) {
		return commands.OrchestrateDropsResult{}, ErrPassInProgress
	}
	defer j.running.Store(false)

	cmd, err := commands.NewOrchestrateDropsCommand(commands.ModeApply, trigger, opts)
	if err != nil {
		return commands.OrchestrateDropsResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, j.cfg.PassTimeout)
	defer cancel()

	started := time.Now()
	j.mu.Lock()
	j.status.LastTrigger = cmd.Trigger()
	j.status.LastStartedAt = started
	j.mu.Unlock()

	result, err := j.runner.Handle(ctx, cmd)

	finished := time.Now()
	j.mu.Lock()
	j.status.Passes++
	j.status.LastFinishedAt = finished
	j.status.LastDuration = finished.Sub(started)
	j.status.LastError = ""
	if err != nil {
		j.status.LastError = err.Error()
	} else {
		j.status.LastResult = &result
	}
	j.mu.Unlock()

	return result, err
}
