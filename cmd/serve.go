package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iksnae/aichat-history/internal"
	"github.com/iksnae/aichat-history/internal/server"
	"github.com/spf13/cobra"
)

var listenAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	Long: `Run a local HTTP server exposing the session data as a JSON API.

Endpoints:
  GET /api/health          Liveness and version
  GET /api/sources         Source availability
  GET /api/workspaces      Workspaces across sources
  GET /api/sessions        Session listing with filters and pagination
  GET /api/session/{id}    Full conversation for one session
  GET /api/export/{id}     Download a session in an export format

The server binds to localhost by default and only ever reads from disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, cfg, err := newRegistry()
		if err != nil {
			return err
		}

		addr := listenAddr
		if addr == "" {
			addr = cfg.ListenAddr()
		}

		srv := &http.Server{
			Addr:         addr,
			Handler:      server.New(registry, version),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)

		errCh := make(chan error, 1)
		go func() {
			internal.LogInfo("HTTP API listening on http://%s", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-done:
		}

		internal.LogInfo("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default 127.0.0.1:8211 or config)")
}
