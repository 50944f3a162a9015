// Package jobs provides scheduled background tasks for the dispatch service.
//
// Jobs are built on github.com/robfig/cron/v3.
//
// # Available Jobs
//
// OrchestrationJob runs an apply pass over the pending drop pool on a schedule
// (DefaultSchedule, "@every 15m"). The same job serves manual passes through
// Trigger, so the scheduler and the HTTP API never run two passes at once.
//
// # Usage
//
//	job := jobs.NewOrchestrationJob(handler, jobs.OrchestrationJobConfig{
//		Schedule:    "@every 15m",
//		PassTimeout: 30 * time.Second,
//	}, metrics, logger)
//
//	jobManager := jobs.NewJobManager(job)
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Overlap
//
// An in-progress flag owned by the job guards every pass. A tick that finds a
// pass running is skipped and logged at WARN; it is not queued.
//
// # Error Handling
//
//   - Failed passes are logged and recorded in Status; the schedule continues
//   - Every pass is bounded by the pass timeout; routes not yet persisted when
//     it expires are reported unassigned by the pass itself
package jobs
