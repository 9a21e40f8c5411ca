package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// BuildOutcomeLabel is the final status of a build.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeWarning  BuildOutcomeLabel = "warning"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for build, stage and route metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	ObserveRenderDuration(routeKind string, d time.Duration)
	SetPages(n int)
	SetRoutes(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)  {}
func (NoopRecorder) IncStageResult(string, ResultLabel)          {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)          {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)           {}
func (NoopRecorder) ObserveRenderDuration(string, time.Duration) {}
func (NoopRecorder) SetPages(int)                                {}
func (NoopRecorder) SetRoutes(int)                               {}
