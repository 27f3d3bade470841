// Package scheduler implements the scheduler command: recurring harvest
// runs on a cron expression, with the status API served alongside.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/cafecrawl/cmd/common"
	"github.com/jonesrussell/cafecrawl/cmd/httpd"
	"github.com/jonesrussell/cafecrawl/internal/api"
	"github.com/jonesrussell/cafecrawl/internal/crawler"
)

// DefaultSchedule runs a harvest every six hours.
const DefaultSchedule = "0 */6 * * *"

// Command returns the scheduler command.
func Command() *cobra.Command {
	var (
		schedule string
		serveAPI bool
	)

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run recurring harvests on a cron schedule",
		Long: `Scheduler keeps the process alive and runs a full harvest on the given
cron expression. With --api it also serves the status and posts endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), schedule, serveAPI)
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", DefaultSchedule, "cron expression for harvest runs")
	cmd.Flags().BoolVar(&serveAPI, "api", false, "serve the HTTP API alongside the scheduler")

	return cmd
}

func run(ctx context.Context, schedule string, serveAPI bool) error {
	core, err := common.NewCore()
	if err != nil {
		return err
	}

	srcs, err := common.LoadSources(core)
	if err != nil {
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

	log := core.Logger.WithComponent("scheduler")

	c := cron.New()
	if _, cronErr := c.AddFunc(schedule, func() {
		summary, runErr := sched.Run(ctx)
		if runErr != nil {
			if errors.Is(runErr, crawler.ErrAlreadyRunning) {
				log.Warn("Skipping scheduled run, previous one still in flight")
				return
			}
			log.WithError(runErr).Error("Scheduled harvest failed")
			return
		}
		log.Info("Scheduled harvest complete",
			"harvested", summary.ItemsHarvested,
			"failed", summary.ItemsFailed)
	}); cronErr != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, cronErr)
	}

	c.Start()
	defer c.Stop()
	log.Info("Scheduler started", "schedule", schedule)

	if serveAPI {
		router := api.SetupRouter(core.Logger, store, sched.State())
		srv := api.NewServer(core.Config.GetServerConfig(), router)
		return httpd.Serve(ctx, srv, log)
	}

	<-ctx.Done()
	log.Info("Scheduler stopping")
	return nil
}
