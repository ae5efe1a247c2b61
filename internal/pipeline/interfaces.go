package pipeline

import (
	"context"

	"longform/internal/core"
	"longform/internal/llm"
	"longform/internal/quality"
	"longform/internal/reconcile"
)

// TextGenerator is the text-generation client contract every mandatory
// stage calls. Satisfied by llm.Client.
type TextGenerator interface {
	// Generate produces text for a prompt; provider errors are typed,
	// never returned as empty content.
	Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error)
}

// QualityScorer computes the optional multi-dimension quality report.
// Satisfied by quality.Scorer.
type QualityScorer interface {
	Score(in quality.Input) *core.QualityReport
}

// Reconciler runs the post-processing repair passes over enhanced content.
// Satisfied by reconcile.Reconciler.
type Reconciler interface {
	Apply(ctx context.Context, content, topic string, targetWords int) (*reconcile.Result, error)
}

// ProgressSink receives ProgressUpdate records out-of-band from the result.
// Delivery is best effort; the pipeline never blocks on or fails from it.
type ProgressSink interface {
	Publish(update core.ProgressUpdate)
}

// ProgressFunc adapts a plain function into a ProgressSink.
type ProgressFunc func(update core.ProgressUpdate)

// Publish implements ProgressSink.
func (f ProgressFunc) Publish(update core.ProgressUpdate) { f(update) }
