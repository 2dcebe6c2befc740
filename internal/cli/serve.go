package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyChia88/Text2Cal/internal/engine"
	"github.com/hyChia88/Text2Cal/internal/server"
	"github.com/hyChia88/Text2Cal/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	embedder := newEmbedder(cfg.Embedding)
	llmClient := newLLMClient(cfg.LLM)

	opts := engineOptions(cfg.Engine)
	opts.EmbedRetries = cfg.Embedding.MaxRetries
	eng, err := engine.New(db, embedder, llmClient, opts)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer eng.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if err := eng.Rebuild(ctx); err != nil {
		cancel()
		return fmt.Errorf("rebuild: %w", err)
	}
	cancel()
	fmt.Fprintf(os.Stderr, "  embedder: %s\n", embedder.Model())
	fmt.Fprintf(os.Stderr, "  llm: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)

	// Retry entries whose embedding failed in a previous run
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if n, err := eng.EmbedMissing(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "embed missing: %v\n", err)
		} else if n > 0 {
			fmt.Fprintf(os.Stderr, "  embedded %d pending entries\n", n)
		}
	}()

	srv := server.New(db, eng, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "text2cal serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	return httpServer.Shutdown(shutdownCtx)
}
