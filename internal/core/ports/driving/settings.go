package driving

import "github.com/custodia-labs/sercha-indexsync/internal/core/domain"

// SettingsService resolves runtime settings from the configuration store.
type SettingsService interface {
	// Get returns the current settings with defaults applied.
	Get() (*domain.Settings, error)

	// Validate checks settings for values the engine cannot run with.
	Validate(settings *domain.Settings) error

	// GetSchedulerConfig returns the scheduler section of the settings.
	GetSchedulerConfig() domain.SchedulerConfig
}
