// Package generate adapts the LLM client stack to the loop's Generator
// interface: pick a role for the round, render its instructions, and hand
// the accumulated context to the model as JSON input.
package generate

import (
	"context"
	"fmt"

	"autoforge/internal/llm"
	"autoforge/internal/llmclient"
	"autoforge/internal/prompt"
	"autoforge/internal/refine"
)

type LLMGenerator struct {
	Client llmclient.Client
	Roles  *prompt.Registry
}

func New(client llmclient.Client, roles *prompt.Registry) *LLMGenerator {
	if roles == nil {
		roles = prompt.NewRegistry()
	}
	return &LLMGenerator{Client: client, Roles: roles}
}

func (g *LLMGenerator) Propose(ctx context.Context, rc refine.RoundContext) (string, error) {
	role := RoleFor(rc)
	instructions, err := g.Roles.Render(role, rc)
	if err != nil {
		return "", err
	}
	ctx = llm.WithStage(ctx, stageLabel(rc))
	return g.Client.GenerateText(ctx, instructions, rc)
}

// RoleFor maps a round context to the role that should author the next
// command: cold starts propose, failures repair, everything else refines.
func RoleFor(rc refine.RoundContext) string {
	switch {
	case rc.ColdStart:
		return prompt.RoleProposer
	case rc.Repair:
		return prompt.RoleRepairer
	default:
		return prompt.RoleRefiner
	}
}

func stageLabel(rc refine.RoundContext) string {
	if rc.ColdStart {
		return fmt.Sprintf("seed-%d", rc.Attempt)
	}
	if rc.Repair {
		return fmt.Sprintf("round-%d-repair-%d", rc.Round, rc.Attempt-1)
	}
	return fmt.Sprintf("round-%d", rc.Round)
}
