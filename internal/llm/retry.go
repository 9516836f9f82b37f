package llm

import (
	"context"
	"encoding/json"
	"time"

	"autoforge/internal/llmclient"
)

// Retry retries generation up to maxAttempts with exponential backoff
// starting at baseDelay. Permanent errors are not retried, and a canceled
// context stops the loop immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next llmclient.Client) llmclient.Client {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next llmclient.Client
	max  int
	base time.Duration
}

func (r *retrying) Name() string                { return r.next.Name() }
func (r *retrying) Close() error                { return r.next.Close() }
func (r *retrying) CountTokens(text string) int { return r.next.CountTokens(text) }
func (r *retrying) TokenCapacity() int          { return r.next.TokenCapacity() }

func (r *retrying) GenerateText(ctx context.Context, prompt string, input any) (string, error) {
	var out string
	err := r.attempt(ctx, func() error {
		var e error
		out, e = r.next.GenerateText(ctx, prompt, input)
		return e
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (r *retrying) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	var out json.RawMessage
	err := r.attempt(ctx, func() error {
		var e error
		out, e = r.next.GenerateJSON(ctx, prompt, input)
		return e
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *retrying) attempt(ctx context.Context, call func() error) error {
	var last error
	for i := 0; i < r.max; i++ {
		err := call()
		if err == nil {
			return nil
		}
		if llmclient.IsPermanent(err) {
			return err
		}
		last = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.base * time.Duration(1<<i)):
		}
	}
	return last
}
