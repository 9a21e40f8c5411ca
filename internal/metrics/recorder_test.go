package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopRecorderSatisfiesRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	assert.NotPanics(t, func() {
		r.ObserveStageDuration("transform", time.Second)
		r.IncStageResult("transform", ResultSuccess)
		r.ObserveBuildDuration(time.Second)
		r.IncBuildOutcome(BuildOutcomeSuccess)
		r.ObserveRenderDuration("content", time.Millisecond)
		r.SetPages(3)
		r.SetRoutes(5)
	})
}
