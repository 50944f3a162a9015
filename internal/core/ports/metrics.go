package ports

import "time"

// PassSummary is what one orchestration pass reports to the metrics sink.
type PassSummary struct {
	Trigger  string
	Mode     string
	Duration time.Duration
	Failed   bool

	Routes             int
	AssignedDrops      int
	UnassignedByReason map[string]int
	EfficiencyScore    float64
	DegradedEstimates  int
	Conflicts          int
}

// MetricsRecorder receives orchestration telemetry. Implementations must be
// safe for concurrent use.
type MetricsRecorder interface {
	RecordPass(summary PassSummary)
	RecordSkippedTick(job string)
}
