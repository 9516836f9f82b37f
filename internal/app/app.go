// Package app wires configuration into the collaborator stack shared by
// the CLI and the server binary.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"autoforge/internal/archive"
	"autoforge/internal/config"
	"autoforge/internal/generate"
	"autoforge/internal/knowledge"
	"autoforge/internal/llm"
	"autoforge/internal/llmclient"
	"autoforge/internal/prompt"
	"autoforge/internal/refine"
	"autoforge/internal/runstream"
	"autoforge/internal/sandbox"
	"autoforge/internal/score"
)

// NewClient builds the provider client and decorates it with the standard
// middleware chain: logging innermost, then retry, then rate limiting.
func NewClient(ctx context.Context, cfg config.LLMConfig) (llmclient.Client, error) {
	var (
		base llmclient.Client
		err  error
	)
	switch cfg.Provider {
	case "groq":
		base, err = llmclient.NewGroqClient(cfg.APIKey, cfg.Model, 0)
	case "gemini":
		base, err = llmclient.NewGeminiClient(ctx, cfg.APIKey, cfg.Model, 0)
	default:
		return nil, fmt.Errorf("app: unknown LLM provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return llm.Wrap(base,
		llm.RateLimit(cfg.RPS, 1),
		llm.Retry(cfg.Retries, time.Second),
		llm.WithLogging(log.Default()),
	), nil
}

// NewRoles loads the builtin role set plus any custom template overrides.
func NewRoles(cfg config.LoopConfig) (*prompt.Registry, error) {
	roles := prompt.NewRegistry()
	if cfg.PromptDir != "" {
		if err := roles.LoadCustomDir(cfg.PromptDir); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// NewLoopBuilder assembles a per-run loop factory from the shared pieces.
// The knowledge store is shared across runs so loops can learn from each
// other; everything else is per-loop.
func NewLoopBuilder(cfg *config.Config, client llmclient.Client, roles *prompt.Registry, know knowledge.Store) runstream.LoopBuilder {
	gen := generate.New(client, roles)
	val := &sandbox.Runner{
		Command:  cfg.Sandbox.Command,
		Filename: "artifact",
		Timeout:  cfg.Sandbox.Timeout,
	}
	scorer := score.NewLLMScorer(client, roles)

	return func(emit func(refine.Event)) *refine.Loop {
		loopCfg := refine.Config{
			InitRetries:   cfg.Loop.InitRetries,
			MaxRepairs:    cfg.Loop.MaxRepairs,
			HistoryWindow: cfg.Loop.Window,
			RetainCap:     cfg.Loop.RetainCap,
			Events:        emit,
		}
		if know != nil {
			// All runs share one topic so published findings are
			// visible across concurrent loops.
			loopCfg.Topic = sharedTopic
			loopCfg.Knowledge = knowledge.NewBridge(know, sharedTopic)
		}
		return refine.New(gen, val, scorer, loopCfg)
	}
}

const sharedTopic = "runs"

// NewArchive returns the configured archive store, or nil when object
// storage is not configured.
func NewArchive(cfg config.ArchiveConfig) (archive.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return archive.NewS3Store(archive.S3Config{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		UseSSL:    cfg.UseSSL,
	})
}
