package metrics

import "time"

// ResultLabel enumerates stage and document result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultSkipped  ResultLabel = "skipped"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for job, document and stage metrics.
// Implementations may forward to Prometheus or any other backend.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveJobDuration(d time.Duration)
	IncJobOutcome(outcome string) // outcome: SUCCESS|ERROR
	IncDocumentResult(result ResultLabel)
	ObserveTemplateCloneDuration(d time.Duration, success bool)
	SetWorkers(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}

func (NoopRecorder) IncStageResult(string, ResultLabel) {}

func (NoopRecorder) ObserveJobDuration(time.Duration) {}

func (NoopRecorder) IncJobOutcome(string) {}

func (NoopRecorder) IncDocumentResult(ResultLabel) {}

func (NoopRecorder) ObserveTemplateCloneDuration(time.Duration, bool) {}

func (NoopRecorder) SetWorkers(int) {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
