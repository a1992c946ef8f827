package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/guidemcp/internal/config"
	"github.com/Aman-CERP/guidemcp/internal/embed"
	"github.com/Aman-CERP/guidemcp/internal/engine"
	"github.com/Aman-CERP/guidemcp/internal/gitsync"
	"github.com/Aman-CERP/guidemcp/internal/logging"
	mcpserver "github.com/Aman-CERP/guidemcp/internal/mcp"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var familyKey string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one guideline family over MCP (stdio)",
		Long: `Start an MCP server for one corpus family on stdio.

Stdout carries JSON-RPC exclusively; all logging goes to the log file
(~/.guidemcp/logs/guidemcp.log). If a previously built index exists it
is served immediately, otherwise the first update_guidelines call (or
'guidemcp update') builds one.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), familyKey)
		},
	}

	cmd.Flags().StringVar(&familyKey, "family", "",
		"Corpus family key to serve (e.g. cpp, rust-api, nodejs)")
	_ = cmd.MarkFlagRequired("family")

	return cmd
}

func runServe(ctx context.Context, familyKey string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// File-only logging before anything else runs. A single stray write to
	// stdout corrupts the JSON-RPC stream.
	cleanup, err := logging.SetupMCPMode(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()
	logger := slog.Default()

	family, err := cfg.Family(familyKey)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := embed.New(ctx, cfg.Embeddings)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	eng, err := engine.New(cfg, family, embedder, gitsync.New(logger), logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	if err := eng.Start(ctx); err != nil {
		// A corrupt on-disk index is not fatal for serving: start empty and
		// let the next update rebuild it.
		logger.Warn("could not load persisted index, starting empty",
			slog.String("error", err.Error()))
	}

	srv, err := mcpserver.NewServer(eng, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
