package risk

import "errors"

// Error kinds. Callers match with errors.Is; concrete errors wrap one of
// these with context.
var (
	// ErrInvalidInput rejects a request before any of it is processed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOrdering is a timestamp regression in the ledger. Fatal for the run.
	ErrOrdering = errors.New("ordering error")

	// ErrConfig is raised at construction for unusable thresholds.
	ErrConfig = errors.New("config error")

	// ErrNotFound is surfaced unchanged from collaborators.
	ErrNotFound = errors.New("not found")
)
