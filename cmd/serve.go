package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/atomastery/internal/api"
	"github.com/abhisek/atomastery/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the mastery HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = e.cfg.HTTPAddr
		}

		tc := observability.TracingConfig{ServiceName: "atomastery", Version: version}
		if e.cfg.TraceStdout {
			tc.Writer = os.Stdout
		}
		shutdownTracing, err := observability.InitTracing(e.log, tc)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(ctx)
		}()

		if e.cfg.LogMode == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		router := api.NewRouter(api.RouterConfig{
			MasteryHandler: api.NewMasteryHandler(e.mastery, e.grading),
			WalletHandler:  api.NewWalletHandler(e.gems),
			HealthHandler:  api.NewHealthHandler(e.store.DB().PingContext),
			Logger:         e.log,
		})

		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx := commandContext(cmd)
		errCh := make(chan error, 1)
		go func() {
			e.log.Info("HTTP server listening", "addr", addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		e.log.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides MASTERY_HTTP_ADDR)")
}
