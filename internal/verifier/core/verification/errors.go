package verification

import "errors"

var (
	// ErrTaskAlreadyCompleted and ErrTaskExpired are internal signals from
	// the metadata cache. The public submission path converts them into the
	// benign not-accepted outcome: submissions racing a just-finalized or
	// just-expired task are expected, not a caller mistake.
	ErrTaskAlreadyCompleted = errors.New("task already completed")
	ErrTaskExpired          = errors.New("task expired")

	// ErrUnauthorized rejects voters with zero power at the task's creation
	// checkpoint.
	ErrUnauthorized = errors.New("operator has no voting power for this task")

	// ErrInvalidConfig aborts construction on an out-of-range percentage.
	ErrInvalidConfig = errors.New("invalid verifier config")
)
