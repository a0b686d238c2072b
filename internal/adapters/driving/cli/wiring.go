package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	bleveadapter "github.com/custodia-labs/sercha-indexsync/internal/adapters/driven/bleve"
	"github.com/custodia-labs/sercha-indexsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-indexsync/internal/adapters/driven/content/strapi"
	"github.com/custodia-labs/sercha-indexsync/internal/adapters/driven/elastic"
	"github.com/custodia-labs/sercha-indexsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-indexsync/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/sercha-indexsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexsync/internal/core/services"
	"github.com/custodia-labs/sercha-indexsync/internal/logger"
	"github.com/custodia-labs/sercha-indexsync/internal/observability"
)

// storage groups the persistence ports of one backend.
type storage struct {
	queue     driven.TaskQueue
	oplog     driven.OperationLog
	state     driven.IndexStateStore
	scheduler driven.SchedulerStore
	passLock  driven.PassLock
	close     func() error
}

// wire builds every service from the config file at path and installs
// them in the package variables. The returned function releases them.
func wire(ctx context.Context, path string) (func() error, error) {
	cs, err := file.NewConfigStore(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening config: %w", domain.ErrConfiguration, err)
	}
	settingsSvc := services.NewSettingsService(cs)

	settings, err := services.LoadSettings(cs)
	if err != nil {
		return nil, err
	}

	var closers []func() error
	release := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (func() error, error) {
		_ = release()
		return nil, err
	}

	shutdownTracing, err := observability.InitTracing(settings.TracingExporter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	closers = append(closers, func() error { return shutdownTracing(context.Background()) })

	store, err := openStorage(ctx, settings.Storage)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, store.close)

	gateway, err := openGateway(settings)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, gateway.Close)

	resolver, err := file.NewCollectionResolver(collectionsPath(cs.Path(), settings.CollectionsFile), settings.Indexing.Alias)
	if err != nil {
		return fail(err)
	}

	content, err := strapi.New(strapi.Config{
		BaseURL:   settings.Content.BaseURL,
		Token:     settings.Content.Token,
		RateLimit: settings.Content.RateLimit,
		PageSize:  settings.Content.PageSize,
		Timeout:   settings.Content.Timeout,
		Endpoints: settings.Content.Endpoints,
	})
	if err != nil {
		return fail(err)
	}

	metrics := observability.NewMetrics()
	authority := services.NewIndexAuthority(store.state, settings.Indexing.Prefix, resolver.IndexAliasName())

	indexing := services.NewIndexingService(authority, gateway, store.queue, store.oplog, content, resolver)
	indexing.SetMetrics(metrics)
	indexing.SetStrategy(settings.Indexing.Strategy)
	indexing.SetWorkers(settings.Indexing.Workers)
	indexing.SetPassLock(store.passLock)

	SetServices(Services{
		Settings:    settingsSvc,
		Indexing:    indexing,
		Queue:       services.NewQueueService(store.queue),
		Search:      services.NewSearchService(gateway, resolver.IndexAliasName()),
		Scheduler:   services.NewScheduler(settings.Scheduler, store.scheduler, indexing),
		ConfigStore: cs,
		Collections: resolver,
		Metrics:     metrics.Handler(),
	})
	collectionWatcher = resolver

	logger.WithFields(logger.Fields{
		"backend":     settings.Backend,
		"storage":     settings.Storage.Backend,
		"alias":       resolver.IndexAliasName(),
		"collections": len(resolver.ConfiguredCollections()),
	}).Debug("services wired")

	return release, nil
}

func openStorage(ctx context.Context, s domain.StorageSettings) (*storage, error) {
	switch s.Backend {
	case domain.StorageBackendMemory:
		return &storage{
			queue:     memory.NewTaskQueue(),
			oplog:     memory.NewOperationLog(),
			state:     memory.NewIndexState(),
			scheduler: memory.NewSchedulerStore(),
			close:     func() error { return nil },
		}, nil
	case domain.StorageBackendPostgres:
		st, err := postgres.NewStore(ctx, s.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return &storage{
			queue:     st.TaskQueue(),
			oplog:     st.OperationLog(),
			state:     st.IndexState(),
			scheduler: st.SchedulerStore(),
			passLock:  st.PassLock(),
			close:     st.Close,
		}, nil
	default:
		st, err := sqlite.NewStore(s.DataDir)
		if err != nil {
			return nil, err
		}
		return &storage{
			queue:     st.TaskQueue(),
			oplog:     st.OperationLog(),
			state:     st.IndexState(),
			scheduler: st.SchedulerStore(),
			close:     st.Close,
		}, nil
	}
}

func openGateway(settings *domain.Settings) (driven.SearchGateway, error) {
	if settings.Backend == domain.SearchBackendBleve {
		gw, err := bleveadapter.New(services.MappingSchema())
		if err != nil {
			return nil, err
		}
		return gw, nil
	}
	cfg, err := elastic.ConfigFromSettings(settings.Elasticsearch, services.MappingSchema())
	if err != nil {
		return nil, err
	}
	gw, err := elastic.Connect(cfg)
	if err != nil {
		return nil, err
	}
	return gw, nil
}

// collectionsPath resolves a relative collections file against the
// directory of the config file.
func collectionsPath(configFile, collectionsFile string) string {
	if filepath.IsAbs(collectionsFile) {
		return collectionsFile
	}
	return filepath.Join(filepath.Dir(configFile), collectionsFile)
}
