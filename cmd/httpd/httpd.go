// Package httpd implements the httpd command: the read-only HTTP API over
// harvested posts.
package httpd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/cafecrawl/cmd/common"
	"github.com/jonesrussell/cafecrawl/internal/api"
	"github.com/jonesrussell/cafecrawl/internal/crawler"
	"github.com/jonesrussell/cafecrawl/internal/logger"
)

// shutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

// Command returns the httpd command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Serve the read-only posts API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	core, err := common.NewCore()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, store, err := common.OpenStore(ctx, core)
	if err != nil {
		return err
	}
	defer db.Close()

	router := api.SetupRouter(core.Logger, store, crawler.NewState())
	srv := api.NewServer(core.Config.GetServerConfig(), router)

	return Serve(ctx, srv, core.Logger.WithComponent("httpd"))
}

// Serve runs the server until the context ends, then shuts down gracefully.
func Serve(ctx context.Context, srv *http.Server, log logger.Interface) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
		return err
	}
	return nil
}
