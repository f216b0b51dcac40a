package driven

// ConfigStore provides access to application configuration.
// Keys use dot notation (e.g. "index.chunk_size"); implementations handle
// persistence (e.g., TOML files) and type conversion.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string value, or "" when absent.
	GetString(key string) string

	// GetInt retrieves an integer value, or 0 when absent.
	GetInt(key string) int

	// GetFloat retrieves a float value, or 0 when absent.
	// Integer values are converted.
	GetFloat(key string) float64

	// GetBool retrieves a boolean value, or false when absent.
	GetBool(key string) bool

	// Set stores a configuration value in memory.
	Set(key string, value any) error

	// Keys returns all keys in sorted order.
	Keys() []string

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
