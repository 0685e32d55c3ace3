package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrPattern marks a rule template that cannot be compiled. The rule is
	// skipped at load time.
	ErrPattern = errors.New("invalid pattern")

	// ErrInvalidAction marks an action descriptor missing required attributes.
	ErrInvalidAction = errors.New("invalid action")

	// ErrReaction marks an argument that cannot be thought to the end, e.g. an
	// answer phrase with unresolvable variables. Only the idea is rejected.
	ErrReaction = errors.New("reaction failed")

	// ErrCorruptLog marks a persisted awareness log that cannot be read.
	ErrCorruptLog = errors.New("corrupt awareness log")
)
