package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-indexsync/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sercha-indexsync/internal/adapters/driving/webhook"
	"github.com/custodia-labs/sercha-indexsync/internal/logger"
)

var (
	serveAddr string
	serveMCP  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the webhook server",
	Long: `Runs until interrupted:

  - the scheduler drains the pending queue on an interval, and runs full
    rebuilds when scheduler.rebuild_enabled is set
  - POST /webhook accepts Strapi lifecycle events and queues tasks
  - POST /rebuild queues a full-site reindex
  - GET /metrics serves Prometheus metrics
  - GET /healthz reports whether the search engine is reachable

The collections file is reloaded when it changes. With --mcp the MCP
server is also served at /mcp.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr setting)")
	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "also serve MCP over HTTP at /mcp")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if settingsService == nil || queueService == nil || indexingService == nil {
		return errors.New("services not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	addr := serveAddr
	if addr == "" {
		addr = settings.ServerAddr
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	handler := webhook.NewHandler(queueService, collections, settings.WebhookSecret)
	mux := webhook.NewMux(handler, metricsHandler, engineReachable)

	if serveMCP && searchService != nil {
		mcpServer, err := mcp.NewServer(&mcp.Ports{Search: searchService, Indexing: indexingService, Queue: queueService})
		if err != nil {
			return err
		}
		mux.Handle("/mcp", mcpServer.Handler())
	}

	server := webhook.NewServer(addr, mux)
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("serve: shutdown: %v", err)
		}
	}()

	if collectionWatcher != nil {
		if err := collectionWatcher.Watch(ctx); err != nil {
			logger.Warn("serve: collections will not be reloaded: %v", err)
		}
	}

	schedErr := make(chan error, 1)
	if schedulerSvc != nil && settings.Scheduler.Enabled {
		go func() { schedErr <- schedulerSvc.Start(ctx) }()
		defer func() {
			if err := schedulerSvc.Stop(); err != nil {
				logger.Warn("serve: stopping scheduler: %v", err)
			}
		}()
	}

	cmd.Printf("Listening on http://%s\n", server.Addr())

	select {
	case <-ctx.Done():
		cmd.Println("Shutting down...")
		return nil
	case err := <-server.Errors():
		return fmt.Errorf("server failed: %w", err)
	case err := <-schedErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scheduler failed: %w", err)
		}
		<-ctx.Done()
		return nil
	}
}

// engineReachable backs /healthz.
func engineReachable(ctx context.Context) bool {
	status, err := indexingService.Status(ctx)
	return err == nil && status.Reachable
}
