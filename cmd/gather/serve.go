package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpAdapter "github.com/cwygoda/gather/internal/adapter/http"
	"github.com/cwygoda/gather/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the working set over HTTP",
	Long: `Start the HTTP API.

Routes:
  GET    /targets             list the working set
  POST   /targets             add {"url": ...} or {"urls": [...]}
  DELETE /targets/{position}  remove by 1-based position
  POST   /runs                run {"task": "info" | "download" | ""}
  GET    /failures            show the failure ledger
  DELETE /failures            clear the failure ledger
  GET    /health, /metrics

With a secret configured, mutating routes require X-Timestamp and
X-Signature headers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			if a.resolveErr != nil {
				a.logger.Warn("runs will fail until the executable is fixed", zap.Error(a.resolveErr))
			}

			srv := httpAdapter.NewServer(a.svc, a.cfg.Listen, a.cfg.Secret, a.logger, metrics.Handler(a.registry))

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("HTTP server listening", zap.String("addr", srv.Addr()))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("HTTP server shutdown", zap.Error(err))
			}
			return nil
		})
	},
}

func init() {
	serveCmd.Flags().String("listen", ":8080", "address to listen on")
}
