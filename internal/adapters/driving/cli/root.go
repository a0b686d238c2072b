// Package cli provides the cobra command tree for sercha-indexsync.
//
// Commands talk to the core through driving ports held in package-level
// variables. They are wired from the configuration file on first use, or
// injected directly with SetServices.
package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-indexsync/internal/logger"
)

// annotationNoWiring marks commands that run without building services.
const annotationNoWiring = "no-wiring"

var (
	version = "dev"

	configPath string
	verbose    bool
)

// Driving ports used by the commands.
var (
	settingsService driving.SettingsService
	indexingService driving.IndexingService
	queueService    driving.QueueService
	searchService   driving.SearchService
	schedulerSvc    driving.Scheduler

	configStore driven.ConfigStore
	collections driven.CollectionConfigResolver

	// metricsHandler serves /metrics in serve mode; nil disables it.
	metricsHandler http.Handler

	// collectionWatcher reloads the collection file while serving.
	collectionWatcher interface {
		Watch(ctx context.Context) error
	}

	// closeServices releases whatever the wiring opened.
	closeServices func() error
)

// Services bundles the ports injected by SetServices.
type Services struct {
	Settings    driving.SettingsService
	Indexing    driving.IndexingService
	Queue       driving.QueueService
	Search      driving.SearchService
	Scheduler   driving.Scheduler
	ConfigStore driven.ConfigStore
	Collections driven.CollectionConfigResolver
	Metrics     http.Handler
}

// SetServices injects the driving ports, bypassing configuration wiring.
func SetServices(s Services) {
	settingsService = s.Settings
	indexingService = s.Indexing
	queueService = s.Queue
	searchService = s.Search
	schedulerSvc = s.Scheduler
	configStore = s.ConfigStore
	collections = s.Collections
	metricsHandler = s.Metrics
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "sercha-indexsync",
	Short: "Keep a search index in sync with a headless CMS",
	Long: `sercha-indexsync mirrors content from a Strapi content store into a
search index. Content changes are queued as indexing tasks and applied in
drains; full rebuilds re-populate the index behind a stable alias.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default ~/.sercha-indexsync/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cobra.OnFinalize(finalize)
}

// Execute runs the root command, cancelling its context on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[annotationNoWiring] == "true" || indexingService != nil {
		return nil
	}

	closer, err := wire(cmd.Context(), configPath)
	if err != nil {
		return err
	}
	closeServices = closer
	return nil
}

func finalize() {
	if closeServices == nil {
		return
	}
	if err := closeServices(); err != nil {
		logger.Warn("closing services: %v", err)
	}
	closeServices = nil
}
