package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Client defines the interface for LLM providers.
type Client interface {
	Name() string
	Close() error
	CountTokens(text string) int
	TokenCapacity() int
	// GenerateText returns the raw completion for prompt + input.
	GenerateText(ctx context.Context, prompt string, input any) (string, error)
	// GenerateJSON requests a JSON object completion and validates it parses.
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
}

var (
	ErrEmptyCompletion = errors.New("llmclient: empty completion from model")
	ErrInvalidJSON     = errors.New("llmclient: invalid JSON from model")
)

// PermanentError marks an error that must not be retried
// (e.g. context length exceeded, invalid request).
type PermanentError struct {
	Err error
}

func NewPermanentError(err error) *PermanentError { return &PermanentError{Err: err} }

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanent reports whether err wraps a PermanentError.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
