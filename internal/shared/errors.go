package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Job lifecycle errors
	ErrAlreadyRunning = fmt.Errorf("job already running")
	ErrJobNotFound    = fmt.Errorf("job not found")
	ErrCancelled      = fmt.Errorf("job cancelled")

	// Engine errors
	ErrEngineFailure        = fmt.Errorf("engine failure")
	ErrEngineUnavailable    = fmt.Errorf("engine unavailable")
	ErrVerificationRequired = fmt.Errorf("verification required")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingSource   = fmt.Errorf("missing source URL")
	ErrMissingLocator  = fmt.Errorf("missing magnet link or locator")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
