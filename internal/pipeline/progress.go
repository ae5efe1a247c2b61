package pipeline

import (
	"time"

	"longform/internal/core"
	"longform/internal/logger"
)

// progressTracker emits per-stage updates to the run's sink. TotalStages is
// fixed when the tracker is created; stage numbers only ever move forward.
type progressTracker struct {
	sink    ProgressSink // May be nil
	total   int
	current int
}

func newProgressTracker(sink ProgressSink, total int) *progressTracker {
	return &progressTracker{sink: sink, total: total}
}

// advance moves to the next stage and emits its update.
func (t *progressTracker) advance(stage core.Stage, status, details string, metadata map[string]any) {
	if t.current < t.total {
		t.current++
	}
	t.emit(stage, status, details, metadata)
}

// degrade reports a non-fatal stage failure to the sink. The stage keeps its
// number; observers see the start update followed by this one.
func (t *progressTracker) degrade(stage core.Stage, details string) {
	t.emit(stage, "degraded", details, nil)
}

// emit delivers an update for the current stage without advancing, used for
// degraded-status messages on the same stage number.
func (t *progressTracker) emit(stage core.Stage, status, details string, metadata map[string]any) {
	if t.sink == nil {
		return
	}

	update := core.ProgressUpdate{
		Stage:              stage,
		StageNumber:        t.current,
		TotalStages:        t.total,
		ProgressPercentage: float64(t.current) / float64(t.total) * 100,
		Status:             status,
		Details:            details,
		Metadata:           metadata,
		Timestamp:          float64(time.Now().UnixNano()) / 1e9,
	}

	// A broken observer must never take the pipeline down with it.
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Progress sink delivery failed", "stage", string(stage), "panic", r)
		}
	}()
	t.sink.Publish(update)
}
