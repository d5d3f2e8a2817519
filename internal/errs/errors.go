package errs

import "errors"

var (
	// ErrValidation marks input rejected before any side effect.
	ErrValidation = errors.New("validation failed")
	// ErrResponder marks a failed or malformed external generation.
	ErrResponder = errors.New("responder failed")
	// ErrStoreUnavailable marks an unreachable persistence layer.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound marks a missing session or ticket reference.
	ErrNotFound = errors.New("not found")
	// ErrSendInFlight marks a submit while a previous send is still pending.
	ErrSendInFlight = errors.New("send already in flight")
	// ErrMaintenanceHold marks a submit rejected because the session is
	// on hold and has already been told to wait.
	ErrMaintenanceHold = errors.New("session on maintenance hold")
)
