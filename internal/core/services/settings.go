package services

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyBackend          = "engine.backend"
	keyWorkers          = "engine.workers"
	keyESHost           = "elasticsearch.host"
	keyESUsername       = "elasticsearch.username"
	keyESPassword       = "elasticsearch.password"
	keyESCACert         = "elasticsearch.ca_cert"
	keyESInsecure       = "elasticsearch.insecure_skip_verify"
	keyESTimeout        = "elasticsearch.timeout"
	keyIndexAlias       = "index.alias"
	keyIndexPrefix      = "index.prefix"
	keyIndexStrategy    = "index.strategy"
	keyStorageBackend   = "storage.backend"
	keyStorageDataDir   = "storage.data_dir"
	keyStoragePGDSN     = "storage.postgres_dsn"
	keyContentBaseURL   = "content.base_url"
	keyContentToken     = "content.token"
	keyContentRateLimit = "content.rate_limit"
	keyContentPageSize  = "content.page_size"
	keyContentTimeout   = "content.timeout"
	keyContentEndpoints = "content.endpoints"
	keyCollectionsFile  = "collections.file"
	keyServerAddr       = "server.addr"
	keyWebhookSecret    = "server.webhook_secret"
	keyTracingExporter  = "tracing.exporter"
	keySchedEnabled     = "scheduler.enabled"
	keySchedCheck       = "scheduler.check_interval"
	keySchedDrain       = "scheduler.drain_interval"
	keySchedRebuild     = "scheduler.rebuild_interval"
	keySchedRebuildOn   = "scheduler.rebuild_enabled"
)

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		Backend: domain.SearchBackendElasticsearch,
		Elasticsearch: domain.ElasticsearchSettings{
			Host:    "http://localhost:9200",
			Timeout: 30 * time.Second,
		},
		Indexing: domain.IndexingSettings{
			Alias:    "sercha",
			Prefix:   DefaultIndexPrefix,
			Strategy: domain.RebuildInPlace,
			Workers:  1,
		},
		Storage: domain.StorageSettings{
			Backend: domain.StorageBackendSQLite,
		},
		Content: domain.ContentSettings{
			BaseURL:   "http://localhost:1337",
			RateLimit: 10,
			PageSize:  100,
			Timeout:   30 * time.Second,
		},
		Scheduler:       domain.DefaultSchedulerConfig(),
		CollectionsFile: "collections.toml",
		ServerAddr:      ":8080",
		TracingExporter: "none",
	}
}

// SettingsService reads runtime settings from a ConfigStore.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current settings. Unknown enum values fall back to defaults
// here and are reported by Validate only when they cannot be recovered.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := DefaultSettings()

	settings := &domain.Settings{
		Backend: s.getBackend(defaults.Backend),
		Elasticsearch: domain.ElasticsearchSettings{
			Host:               s.getString(keyESHost, defaults.Elasticsearch.Host),
			Username:           s.configStore.GetString(keyESUsername),
			Password:           s.configStore.GetString(keyESPassword),
			CACertPath:         s.configStore.GetString(keyESCACert),
			InsecureSkipVerify: s.getBool(keyESInsecure, false),
			Timeout:            s.getDuration(keyESTimeout, defaults.Elasticsearch.Timeout),
		},
		Indexing: domain.IndexingSettings{
			Alias:    s.getString(keyIndexAlias, defaults.Indexing.Alias),
			Prefix:   s.getString(keyIndexPrefix, defaults.Indexing.Prefix),
			Strategy: s.getStrategy(defaults.Indexing.Strategy),
			Workers:  s.getInt(keyWorkers, defaults.Indexing.Workers),
		},
		Storage: domain.StorageSettings{
			Backend:     s.getStorageBackend(defaults.Storage.Backend),
			DataDir:     s.configStore.GetString(keyStorageDataDir),
			PostgresDSN: s.configStore.GetString(keyStoragePGDSN),
		},
		Content: domain.ContentSettings{
			BaseURL:   s.getString(keyContentBaseURL, defaults.Content.BaseURL),
			Token:     s.configStore.GetString(keyContentToken),
			RateLimit: s.getFloat(keyContentRateLimit, defaults.Content.RateLimit),
			PageSize:  s.getInt(keyContentPageSize, defaults.Content.PageSize),
			Timeout:   s.getDuration(keyContentTimeout, defaults.Content.Timeout),
			Endpoints: parseEndpoints(s.configStore.GetStringSlice(keyContentEndpoints)),
		},
		Scheduler:       s.GetSchedulerConfig(),
		CollectionsFile: s.getString(keyCollectionsFile, defaults.CollectionsFile),
		ServerAddr:      s.getString(keyServerAddr, defaults.ServerAddr),
		WebhookSecret:   s.configStore.GetString(keyWebhookSecret),
		TracingExporter: s.getString(keyTracingExporter, defaults.TracingExporter),
	}

	return settings, nil
}

// Validate checks settings that have no safe fallback.
func (s *SettingsService) Validate(settings *domain.Settings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings are nil", domain.ErrConfiguration)
	}
	if settings.Indexing.Alias == "" {
		return fmt.Errorf("%w: %s must not be empty", domain.ErrConfiguration, keyIndexAlias)
	}
	if settings.Indexing.Alias == settings.Indexing.Prefix {
		return fmt.Errorf("%w: %s and %s must differ", domain.ErrConfiguration, keyIndexAlias, keyIndexPrefix)
	}
	if settings.Indexing.Workers < 1 {
		return fmt.Errorf("%w: %s must be at least 1", domain.ErrConfiguration, keyWorkers)
	}
	if settings.Backend == domain.SearchBackendElasticsearch {
		if _, err := url.ParseRequestURI(settings.Elasticsearch.Host); err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, keyESHost, err)
		}
	}
	if _, err := url.ParseRequestURI(settings.Content.BaseURL); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, keyContentBaseURL, err)
	}
	if settings.Storage.Backend == domain.StorageBackendPostgres && settings.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: %s is required for postgres storage", domain.ErrConfiguration, keyStoragePGDSN)
	}
	return nil
}

// GetSchedulerConfig returns scheduler configuration from the config store.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()

	cfg.Enabled = s.getBool(keySchedEnabled, cfg.Enabled)
	cfg.CheckInterval = s.getDuration(keySchedCheck, cfg.CheckInterval)

	drain := cfg.GetTaskConfig(domain.TaskIDIndexPending)
	drain.Interval = s.getDuration(keySchedDrain, drain.Interval)
	cfg.TaskConfigs[domain.TaskIDIndexPending] = drain

	rebuild := cfg.GetTaskConfig(domain.TaskIDFullRebuild)
	rebuild.Interval = s.getDuration(keySchedRebuild, rebuild.Interval)
	rebuild.Enabled = s.getBool(keySchedRebuildOn, rebuild.Enabled)
	cfg.TaskConfigs[domain.TaskIDFullRebuild] = rebuild

	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetDuration(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getBackend(defaultVal domain.SearchBackend) domain.SearchBackend {
	val := domain.SearchBackend(s.configStore.GetString(keyBackend))
	if !val.IsValid() {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getStorageBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	val := domain.StorageBackend(s.configStore.GetString(keyStorageBackend))
	if !val.IsValid() {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getStrategy(defaultVal domain.RebuildStrategy) domain.RebuildStrategy {
	val := domain.RebuildStrategy(s.configStore.GetString(keyIndexStrategy))
	if !val.IsValid() {
		return defaultVal
	}
	return val
}

// LoadSettings reads and validates settings in one step.
func LoadSettings(configStore driven.ConfigStore) (*domain.Settings, error) {
	svc := NewSettingsService(configStore)
	settings, err := svc.Get()
	if err != nil {
		return nil, err
	}
	if err := svc.Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// parseEndpoints reads "collection=path" entries. Malformed entries are skipped.
func parseEndpoints(entries []string) map[string]string {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		collection, path, ok := strings.Cut(e, "=")
		collection, path = strings.TrimSpace(collection), strings.Trim(strings.TrimSpace(path), "/")
		if !ok || collection == "" || path == "" {
			continue
		}
		out[collection] = path
	}
	return out
}
