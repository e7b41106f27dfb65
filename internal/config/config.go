// Package config implements TOML configuration loading and validation
// for dealdesk. Overrides follow a three-layer chain: defaults ->
// config file -> environment, with CLI flags applied last by the
// command layer because flags always win.
package config

// Config is the top-level configuration structure parsed from a TOML
// file. Each section maps to one subsystem.
type Config struct {
	Store     StoreConfig     `toml:"store"`
	Session   SessionConfig   `toml:"session"`
	Staleness StalenessConfig `toml:"staleness"`
	Feed      FeedConfig      `toml:"feed"`
	Logging   LoggingConfig   `toml:"logging"`
}

// StoreConfig locates the deal database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// SessionConfig tunes editing-session timing. Durations are strings in
// Go duration syntax ("1500ms", "2s") and validated at load time.
type SessionConfig struct {
	CommitAckInterval string `toml:"commit_ack_interval"`
	DebounceQuiet     string `toml:"debounce_quiet"`
}

// StalenessConfig holds both aging policies. The calendar thresholds
// drive the stale/urgent flags; the two business-day tier scales drive
// the list-row and header displays and are deliberately independent;
// unifying them would silently change displayed behavior.
type StalenessConfig struct {
	YellowDays int `toml:"yellow_days"`
	RedDays    int `toml:"red_days"`

	ListWarnAfter int `toml:"list_warn_after"`
	ListDangerAt  int `toml:"list_danger_at"`

	HeaderWarnAfter int `toml:"header_warn_after"`
	HeaderDangerAt  int `toml:"header_danger_at"`
}

// FeedConfig selects how canonical snapshots reach the session.
type FeedConfig struct {
	// Mode is one of "poll" (re-fetch from the store on an interval),
	// "directory" (watch a drop directory for JSON snapshots), or
	// "websocket" (subscribe to pushed snapshot frames).
	Mode         string `toml:"mode"`
	PollInterval string `toml:"poll_interval"`
	SnapshotDir  string `toml:"snapshot_dir"`
	WebsocketURL string `toml:"websocket_url"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // "auto", "text", or "json"
}

// Default values, the layer-0 of the override chain.
const (
	defaultStorePath         = "~/.local/share/dealdesk/deals.db"
	defaultCommitAckInterval = "1500ms"
	defaultDebounceQuiet     = "800ms"
	defaultYellowDays        = 3
	defaultRedDays           = 5
	defaultListWarnAfter     = 3
	defaultListDangerAt      = 5
	defaultHeaderWarnAfter   = 5
	defaultHeaderDangerAt    = 10
	defaultFeedMode          = "poll"
	defaultPollInterval      = "30s"
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
)

// DefaultConfig returns a Config populated with all default values.
// Used as the starting point for TOML decoding (so unset fields retain
// defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{Path: defaultStorePath},
		Session: SessionConfig{
			CommitAckInterval: defaultCommitAckInterval,
			DebounceQuiet:     defaultDebounceQuiet,
		},
		Staleness: StalenessConfig{
			YellowDays:      defaultYellowDays,
			RedDays:         defaultRedDays,
			ListWarnAfter:   defaultListWarnAfter,
			ListDangerAt:    defaultListDangerAt,
			HeaderWarnAfter: defaultHeaderWarnAfter,
			HeaderDangerAt:  defaultHeaderDangerAt,
		},
		Feed: FeedConfig{
			Mode:         defaultFeedMode,
			PollInterval: defaultPollInterval,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
