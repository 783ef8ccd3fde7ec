package dynamic

import "errors"

var (
	// ErrInvalidConfig wraps every Config validation failure; use
	// errors.Is against this sentinel to detect any bad configuration
	// without matching the specific message.
	ErrInvalidConfig = errors.New("dynamic: invalid configuration")

	// ErrUnsupportedLayoutDeletePolicy is returned by New when Layout is
	// BSM and DeletePolicy is Tagging (Open Question D3, spec.md §9,
	// decided in SPEC_FULL.md §9): BSM's whole-prefix flattening makes
	// locating a record to tag across an unbounded level range
	// impractical, so BSM only supports the tombstone delete policy.
	ErrUnsupportedLayoutDeletePolicy = errors.New("dynamic: BSM layout does not support the tagging delete policy")

	// ErrShutdown names the shut-down state. No function in this package
	// returns it: Insert and Erase report only a bool, and a Query the
	// scheduler rejects resolves with ErrSchedulerRejected.
	ErrShutdown = errors.New("dynamic: extension is shut down")

	// ErrSchedulerRejected is the error a query's failed Future resolves
	// with when the scheduler refuses a job because it is shutting down.
	ErrSchedulerRejected = errors.New("dynamic: scheduler rejected job")
)
