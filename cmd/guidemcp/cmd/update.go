package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/guidemcp/internal/config"
	"github.com/Aman-CERP/guidemcp/internal/embed"
	"github.com/Aman-CERP/guidemcp/internal/engine"
	"github.com/Aman-CERP/guidemcp/internal/gitsync"
	"github.com/Aman-CERP/guidemcp/internal/logging"
)

// newUpdateCmd creates the update command.
func newUpdateCmd() *cobra.Command {
	var familyKey string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Sync corpora from upstream and rebuild indexes",
		Long: `Sync guideline corpora from their upstream git repositories and
rebuild the search index for every corpus that changed.

With --family only that family is updated; otherwise all configured
families are updated in parallel. Useful from cron, or to warm the
index before the first 'guidemcp serve'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd.Context(), cmd, familyKey)
		},
	}

	cmd.Flags().StringVar(&familyKey, "family", "",
		"Update only this family (default: all)")

	return cmd
}

func runUpdate(ctx context.Context, cmd *cobra.Command, familyKey string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Server.LogLevel
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()

	families := cfg.Families
	if familyKey != "" {
		f, err := cfg.Family(familyKey)
		if err != nil {
			return err
		}
		families = []config.FamilyConfig{f}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := embed.New(ctx, cfg.Embeddings)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	// Families are independent engines; update them in parallel. Failures
	// are reported per family, not short-circuited.
	syncer := gitsync.New(logger)
	lines := make([]string, len(families))
	var g errgroup.Group
	for i, family := range families {
		g.Go(func() error {
			res, err := updateFamily(ctx, cfg, family, embedder, syncer, logger)
			if err != nil {
				lines[i] = fmt.Sprintf("%s: update failed: %v", family.Key, err)
				return err
			}
			if res.Updated {
				lines[i] = fmt.Sprintf("%s: updated to %s (%d guidelines)",
					family.Key, shortRev(res.Revision), res.GuidelineCount)
			} else {
				lines[i] = fmt.Sprintf("%s: already up to date at %s (%d guidelines)",
					family.Key, shortRev(res.Revision), res.GuidelineCount)
			}
			return nil
		})
	}
	err = g.Wait()

	for _, line := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return err
}

func updateFamily(
	ctx context.Context,
	cfg *config.Config,
	family config.FamilyConfig,
	embedder embed.Embedder,
	syncer gitsync.Syncer,
	logger *slog.Logger,
) (engine.UpdateResult, error) {
	eng, err := engine.New(cfg, family, embedder, syncer, logger)
	if err != nil {
		return engine.UpdateResult{}, err
	}
	defer func() { _ = eng.Close() }()

	if err := eng.Start(ctx); err != nil {
		logger.Warn("could not load persisted index, rebuilding",
			slog.String("family", family.Key),
			slog.String("error", err.Error()))
	}

	return eng.Update(ctx)
}

func shortRev(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
