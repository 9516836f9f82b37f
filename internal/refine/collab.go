package refine

import "context"

// RoundContext is the accumulated context handed to collaborators when
// proposing or scoring. History is already trimmed to the loop's window.
type RoundContext struct {
	Seed       string         `json:"seed"`
	Artifact   string         `json:"artifact"`
	Round      int            `json:"round"`
	Attempt    int            `json:"attempt"`
	ColdStart  bool           `json:"cold_start"`
	Repair     bool           `json:"repair"`
	Diagnostic string         `json:"diagnostic,omitempty"`
	History    []HistoryEntry `json:"history,omitempty"`
	External   []string       `json:"external,omitempty"`
}

// ValidationResult reports a validator verdict for one candidate.
// Diagnostic carries compiler/runtime output and is only fed back into
// the next generation prompt; it is never persisted beyond the round.
type ValidationResult struct {
	Success    bool   `json:"success"`
	Diagnostic string `json:"diagnostic"`
}

// Generator produces raw text expected to contain exactly one command.
type Generator interface {
	Propose(ctx context.Context, rc RoundContext) (string, error)
}

// Validator executes or compiles a candidate and reports the outcome.
// The error return is reserved for transport failures (sandbox could not
// start, model unreachable); candidate failures go in the result.
type Validator interface {
	Check(ctx context.Context, candidate string) (ValidationResult, error)
}

// Scorer assigns a scalar quality score to a validated candidate.
// Higher is better; the scale is caller-defined but totally ordered.
type Scorer interface {
	Score(ctx context.Context, candidate string, rc RoundContext) (float64, error)
}

// Knowledge is the optional cross-loop sharing interface. Implementations
// are injected; the loop never reaches for a process-wide store.
type Knowledge interface {
	Publish(ctx context.Context, summary string) error
	Query(ctx context.Context, topic string) ([]string, error)
}
