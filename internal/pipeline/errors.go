package pipeline

import (
	"fmt"

	"longform/internal/core"
)

// StageError is the fatal failure of a mandatory generation stage. It
// identifies which stage failed and carries the last provider error. No
// partial result accompanies it; a run either fully completes or fully fails.
type StageError struct {
	Stage core.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("mandatory stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
