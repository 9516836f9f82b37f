package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"autoforge/internal/app"
	"autoforge/internal/config"
	"autoforge/internal/llmclient"
	"autoforge/internal/refine"
	"autoforge/internal/statestore"
)

func main() {
	seed := flag.String("seed", "", "task description to refine an artifact for")
	resume := flag.String("resume", "", "run ID to resume from the state store")
	rounds := flag.Int("rounds", 10, "maximum refinement rounds")
	threshold := flag.Float64("threshold", 0, "stop early once a round scores at least this (0 disables)")
	provider := flag.String("provider", "", "LLM provider: groq or gemini (default from env)")
	model := flag.String("model", "", "model id (default from env)")
	sandboxCmd := flag.String("sandbox", "", "validator command, e.g. \"python3\" (default from env)")
	statePath := flag.String("state", "", "state store path (default from env)")
	outDir := flag.String("out", "out", "output directory for retained artifacts")
	script := flag.String("script", "", "file of canned completions separated by ---; replaces the live model")
	flag.Parse()

	if *seed == "" && *resume == "" {
		log.Fatal("--seed or --resume is required")
	}

	_ = godotenv.Load()
	cfg := cliConfig(*provider, *model, *sandboxCmd, *statePath)

	ctx := context.Background()

	client, err := buildClient(ctx, cfg, *script)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	roles, err := app.NewRoles(cfg.Loop)
	if err != nil {
		log.Fatal(err)
	}

	states := statestore.NewFromEnv(cfg.StatePath)
	defer states.Close()

	build := app.NewLoopBuilder(cfg, client, roles, nil)
	loop := build(printEvent)

	runID := *resume
	if runID == "" {
		runID = fmt.Sprintf("run-%d", time.Now().UnixNano())
		if err := loop.Initialize(ctx, *seed); err != nil {
			log.Fatalf("initialization failed: %v", err)
		}
	} else {
		rec, ok := states.Get(runID)
		if !ok {
			log.Fatalf("run %s not found in state store", runID)
		}
		st, err := refine.DecodeState(rec.Snapshot)
		if err != nil {
			log.Fatalf("corrupt snapshot for %s: %v", runID, err)
		}
		loop.Restore(st)
		*seed = rec.Seed
		log.Printf("resuming %s at round %d", runID, loop.RoundsDone())
	}

	retained, runErr := loop.Run(ctx, *rounds, *threshold)
	saveState(states, runID, *seed, loop, runErr)
	if runErr != nil {
		log.Fatalf("run aborted: %v", runErr)
	}

	if err := writeResults(*outDir, retained); err != nil {
		log.Fatal(err)
	}

	best, _ := retained.Best()
	log.Printf("run %s finished: %d rounds, best score %.2f → %s", runID, loop.RoundsDone(), best.Score, *outDir)
}

// cliConfig mirrors config.Load but lets CLI flags win over env vars.
func cliConfig(provider, model, sandboxCmd, statePath string) *config.Config {
	cfg := &config.Config{
		LLM:       config.LLMFromEnv(),
		Loop:      config.LoopFromEnv(),
		Sandbox:   config.SandboxFromEnv(),
		StatePath: config.StatePathFromEnv(),
	}
	if provider != "" {
		cfg.LLM.Provider = strings.ToLower(provider)
	}
	if model != "" {
		cfg.LLM.Model = model
	}
	if sandboxCmd != "" {
		cfg.Sandbox.Command = strings.Fields(sandboxCmd)
	}
	if statePath != "" {
		cfg.StatePath = statePath
	}
	return cfg
}

func buildClient(ctx context.Context, cfg *config.Config, script string) (llmclient.Client, error) {
	if script == "" {
		return app.NewClient(ctx, cfg.LLM)
	}
	b, err := os.ReadFile(script)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var steps []llmclient.ScriptStep
	for _, part := range strings.Split(string(b), "\n---\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			steps = append(steps, llmclient.ScriptStep{Text: part})
		}
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("script %s has no completions", script)
	}
	return llmclient.NewScriptedClient(steps...), nil
}

func printEvent(evt refine.Event) {
	switch evt.Type {
	case refine.EventScore:
		log.Printf("round %d scored %.2f", evt.Round, evt.Score)
	case refine.EventRepair:
		log.Printf("round %d repair %d: %s", evt.Round, evt.Attempt, firstLine(evt.Message))
	case refine.EventRoundFail:
		log.Printf("round %d abandoned: %s", evt.Round, firstLine(evt.Message))
	case refine.EventTransport:
		log.Printf("round %d transport failure: %s", evt.Round, firstLine(evt.Message))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func saveState(states *statestore.Store, runID, seed string, loop *refine.Loop, runErr error) {
	snap, err := refine.EncodeState(loop.Snapshot())
	if err != nil {
		log.Printf("encode snapshot: %v", err)
		return
	}
	status := statestore.StatusComplete
	if runErr != nil {
		status = statestore.StatusFailed
	}
	var best float64
	if top, ok := loop.Retained().Best(); ok {
		best = top.Score
	}
	rec := statestore.Record{
		RunID:      runID,
		Seed:       seed,
		Status:     status,
		BestScore:  best,
		RoundsDone: loop.RoundsDone(),
		Snapshot:   snap,
		UpdatedAt:  time.Now(),
	}
	if err := states.Put(rec); err != nil {
		log.Printf("persist state: %v", err)
	}
}

func writeResults(dir string, retained *refine.RetainedSet) error {
	if err := os.MkdirAll(filepath.Join(dir, "retained"), 0o755); err != nil {
		return err
	}
	entries := retained.Entries()
	for i, e := range entries {
		name := filepath.Join(dir, "retained", fmt.Sprintf("%d.txt", i))
		if err := os.WriteFile(name, []byte(e.Artifact), 0o644); err != nil {
			return err
		}
	}
	if best, ok := retained.Best(); ok {
		if err := os.WriteFile(filepath.Join(dir, "best.txt"), []byte(best.Artifact), 0o644); err != nil {
			return err
		}
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "retained.json"), b, 0o644)
}
