package llmclient

import (
	"context"
	"encoding/json"
	"sync"
)

// ScriptedClient replays a fixed sequence of completions for offline runs
// and tests. Each call consumes the next step; when the script is exhausted
// the last step repeats.
type ScriptedClient struct {
	mu       sync.Mutex
	steps    []ScriptStep
	pos      int
	tokenCap int
}

// ScriptStep is one canned completion (or error) in a script.
type ScriptStep struct {
	Text string
	Err  error
}

func NewScriptedClient(steps ...ScriptStep) *ScriptedClient {
	return &ScriptedClient{steps: steps, tokenCap: 4096}
}

func (f *ScriptedClient) Name() string { return "scripted" }
func (f *ScriptedClient) Close() error { return nil }
func (f *ScriptedClient) CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return len(text) / 4
}
func (f *ScriptedClient) TokenCapacity() int { return f.tokenCap }

// Calls reports how many completions have been consumed.
func (f *ScriptedClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *ScriptedClient) next() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.steps) == 0 {
		return "", ErrEmptyCompletion
	}
	i := f.pos
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	f.pos++
	step := f.steps[i]
	return step.Text, step.Err
}

func (f *ScriptedClient) GenerateText(ctx context.Context, prompt string, input any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.next()
}

func (f *ScriptedClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txt, err := f.next()
	if err != nil {
		return nil, err
	}
	raw := json.RawMessage(txt)
	var scratch any
	if err := json.Unmarshal(raw, &scratch); err != nil {
		return nil, ErrInvalidJSON
	}
	return raw, nil
}
