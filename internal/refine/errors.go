package refine

import (
	"errors"
	"fmt"
)

// ErrAnchorNotFound is returned by Edit.Apply when the anchor occurs zero
// or more than one time in the artifact. Ambiguous anchors are rejected,
// not guessed.
var ErrAnchorNotFound = errors.New("refine: edit anchor not found exactly once")

// ParseError reports generator output that did not contain exactly one
// well-formed command block. The loop treats it like a validation failure.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "refine: parse command: " + e.Reason
}

func parseErrorf(format string, args ...any) error {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

// FatalInitializationError is the only error Initialize surfaces: the
// generator could not produce a parseable artifact within its retry budget.
type FatalInitializationError struct {
	Attempts int
	Last     error
}

func (e *FatalInitializationError) Error() string {
	return fmt.Sprintf("refine: initialization failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *FatalInitializationError) Unwrap() error { return e.Last }
