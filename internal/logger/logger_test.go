package logger

import (
	"errors"
	"testing"
)

func TestHelpersEmit(t *testing.T) {
	// Each helper binds the logger before chaining events; calling all four
	// exercises every level without panicking.
	Info("info message", "key", "value")
	Warn("warn message", "count", 2)
	Error("error message", errors.New("boom"), "stage", "draft")
	Debug("debug message")
}

func TestGetReturnsInitializedLogger(t *testing.T) {
	l := Get()
	l.Info().Msg("chained from a bound logger")
}

func TestFields(t *testing.T) {
	m := fields([]any{"a", 1, "b", "two"})
	if len(m) != 2 || m["a"] != 1 || m["b"] != "two" {
		t.Errorf("fields = %v", m)
	}

	if got := fields(nil); got != nil {
		t.Errorf("expected nil map for no args, got %v", got)
	}

	// Non-string keys are skipped, a dangling value is ignored.
	m = fields([]any{42, "ignored", "ok", true, "dangling"})
	if len(m) != 1 || m["ok"] != true {
		t.Errorf("fields = %v", m)
	}
}
