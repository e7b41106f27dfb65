package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "DEALDESK_CONFIG"
	EnvStore    = "DEALDESK_DB"
	EnvLogLevel = "DEALDESK_LOG_LEVEL"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // DEALDESK_CONFIG: override config file path
	StorePath  string // DEALDESK_DB: override database path
	LogLevel   string // DEALDESK_LOG_LEVEL: override log level
}

// ReadEnvOverrides reads environment variables and returns any
// overrides found. This does not modify the Config; Resolve applies
// the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		StorePath:  os.Getenv(EnvStore),
		LogLevel:   os.Getenv(EnvLogLevel),
	}
}
