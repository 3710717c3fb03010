// Package config loads and saves the player's device settings.
package config

// Store persists a Config.
type Store interface {
	// Load returns the stored config, or Default() if none exists.
	Load() (*Config, error)

	// Save persists cfg. Implementations may debounce rapid saves.
	Save(cfg *Config) error

	// Path returns the file path used by this store.
	Path() string

	// Flush forces an immediate write of any pending config.
	Flush() error
}
