// Package score provides Scorer implementations for the refinement loop.
package score

import (
	"context"
	"encoding/json"
	"fmt"

	"autoforge/internal/llm"
	"autoforge/internal/llmclient"
	"autoforge/internal/prompt"
	"autoforge/internal/refine"
)

// LLMScorer asks a judge model for a scalar rating of a validated
// candidate. Scores are clamped to [0, Scale].
type LLMScorer struct {
	Client llmclient.Client
	Roles  *prompt.Registry
	Scale  float64 // default 10
}

func NewLLMScorer(client llmclient.Client, roles *prompt.Registry) *LLMScorer {
	if roles == nil {
		roles = prompt.NewRegistry()
	}
	return &LLMScorer{Client: client, Roles: roles, Scale: 10}
}

type judgeInput struct {
	Seed      string `json:"seed"`
	Candidate string `json:"candidate"`
	Round     int    `json:"round"`
}

type judgeOutput struct {
	Score float64 `json:"score"`
}

func (s *LLMScorer) Score(ctx context.Context, candidate string, rc refine.RoundContext) (float64, error) {
	instructions, err := s.Roles.Render(prompt.RoleJudge, rc)
	if err != nil {
		return 0, err
	}
	ctx = llm.WithStage(ctx, fmt.Sprintf("judge-%d", rc.Round))
	raw, err := s.Client.GenerateJSON(ctx, instructions, judgeInput{
		Seed:      rc.Seed,
		Candidate: candidate,
		Round:     rc.Round,
	})
	if err != nil {
		return 0, err
	}
	var out judgeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("score: decode judge response: %w", err)
	}
	scale := s.Scale
	if scale <= 0 {
		scale = 10
	}
	if out.Score < 0 {
		return 0, nil
	}
	if out.Score > scale {
		return scale, nil
	}
	return out.Score, nil
}

// Static returns a fixed score; useful offline and in tests.
type Static struct {
	Value float64
}

func (s Static) Score(context.Context, string, refine.RoundContext) (float64, error) {
	return s.Value, nil
}
