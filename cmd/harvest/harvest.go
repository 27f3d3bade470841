// Package harvest implements the harvest command: one full crawl run across
// the configured sources.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/cafecrawl/cmd/common"
	"github.com/jonesrussell/cafecrawl/internal/domain"
	"github.com/jonesrussell/cafecrawl/internal/sources"
)

// Command returns the harvest command.
func Command() *cobra.Command {
	var sourceName string

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Run one harvest across the configured sources",
		Long: `Harvest logs into each configured source, walks its boards, extracts
new posts within the lookback window, and persists anything not yet seen.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), sourceName)
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "harvest a single source by name")

	return cmd
}

func run(ctx context.Context, sourceName string) error {
	core, err := common.NewCore()
	if err != nil {
		return err
	}

	srcs, err := common.LoadSources(core)
	if err != nil {
		if errors.Is(err, sources.ErrNoSources) {
			core.Logger.Info("No sources configured. Add sources to the sources file first.")
			return nil
		}
		return fmt.Errorf("failed to load sources: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, store, err := common.OpenStore(ctx, core)
	if err != nil {
		return err
	}
	defer db.Close()

	sched, driver, err := common.NewScheduler(core, store, srcs)
	if err != nil {
		return err
	}
	defer driver.Close()

	summary, err := func() (domain.RunSummary, error) {
		if sourceName != "" {
			return sched.RunSource(ctx, sourceName)
		}
		return sched.Run(ctx)
	}()
	if summary.ChallengeRequired {
		core.Logger.Warn("A source reported a login challenge; " +
			"complete a manual login before the next run")
	}
	if err != nil {
		return err
	}

	core.Logger.Info("Harvest finished",
		"sources", summary.SourcesProcessed,
		"harvested", summary.ItemsHarvested,
		"failed", summary.ItemsFailed,
		"auth_failures", summary.AuthFailures)

	return nil
}
