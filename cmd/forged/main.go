package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autoforge/internal/app"
	"autoforge/internal/config"
	"autoforge/internal/knowledge"
	"autoforge/internal/runstream"
	"autoforge/internal/server"
	"autoforge/internal/statestore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	runCtx, stopRuns := context.WithCancel(context.Background())
	defer stopRuns()

	client, err := app.NewClient(runCtx, cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	defer client.Close()

	roles, err := app.NewRoles(cfg.Loop)
	if err != nil {
		log.Fatalf("Failed to load role templates: %v", err)
	}

	arch, err := app.NewArchive(cfg.Archive)
	if err != nil {
		log.Fatalf("Failed to initialize archive store: %v", err)
	}

	states := statestore.NewFromEnv(cfg.StatePath)
	defer states.Close()

	know := knowledge.NewMemoryStore(0, 0)
	mgr := runstream.NewManager(app.NewLoopBuilder(cfg, client, roles, know), states, arch)

	h := server.NewHandler(runCtx, mgr, states)
	srv := server.New(cfg.Port, h.Routes())

	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopRuns()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
