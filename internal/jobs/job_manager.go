package jobs

import (
	"fmt"
)

// JobManager coordinates all scheduled jobs in the application.
type JobManager struct {
	orchestrationJob *OrchestrationJob
}

func NewJobManager(orchestrationJob *OrchestrationJob) *JobManager {
	return &JobManager{orchestrationJob: orchestrationJob}
}

// StartAll starts all scheduled jobs.
func (jm *JobManager) StartAll() error {
	if err := jm.orchestrationJob.Start(); err != nil {
		return fmt.Errorf("failed to start orchestration job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs, waiting for running passes to finish.
func (jm *JobManager) StopAll() {
	jm.orchestrationJob.Stop()
}
