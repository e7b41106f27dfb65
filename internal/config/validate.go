package config

import (
	"errors"
	"fmt"
	"time"
)

// Feed modes accepted by [feed] mode.
const (
	FeedModePoll      = "poll"
	FeedModeDirectory = "directory"
	FeedModeWebsocket = "websocket"
)

// Validation bounds.
const (
	minPollInterval = time.Second
	minAckInterval  = 100 * time.Millisecond
	maxAckInterval  = time.Minute
)

// Validate checks all configuration values and returns all errors
// found. It accumulates every error rather than stopping at the first,
// so users see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateSession(&cfg.Session)...)
	errs = append(errs, validateStaleness(&cfg.Staleness)...)
	errs = append(errs, validateFeed(&cfg.Feed)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateSession(s *SessionConfig) []error {
	var errs []error

	ack, err := time.ParseDuration(s.CommitAckInterval)
	if err != nil {
		errs = append(errs, fmt.Errorf("commit_ack_interval: %w", err))
	} else if ack < minAckInterval || ack > maxAckInterval {
		errs = append(errs, fmt.Errorf("commit_ack_interval %s out of range [%s, %s]",
			s.CommitAckInterval, minAckInterval, maxAckInterval))
	}

	if _, err := time.ParseDuration(s.DebounceQuiet); err != nil {
		errs = append(errs, fmt.Errorf("debounce_quiet: %w", err))
	}

	return errs
}

func validateStaleness(s *StalenessConfig) []error {
	var errs []error

	if s.YellowDays < 1 {
		errs = append(errs, fmt.Errorf("yellow_days must be at least 1, got %d", s.YellowDays))
	}

	if s.RedDays < s.YellowDays {
		errs = append(errs, fmt.Errorf("red_days (%d) must be >= yellow_days (%d)",
			s.RedDays, s.YellowDays))
	}

	if s.ListDangerAt <= s.ListWarnAfter {
		errs = append(errs, fmt.Errorf("list_danger_at (%d) must be > list_warn_after (%d)",
			s.ListDangerAt, s.ListWarnAfter))
	}

	if s.HeaderDangerAt <= s.HeaderWarnAfter {
		errs = append(errs, fmt.Errorf("header_danger_at (%d) must be > header_warn_after (%d)",
			s.HeaderDangerAt, s.HeaderWarnAfter))
	}

	return errs
}

func validateFeed(f *FeedConfig) []error {
	var errs []error

	switch f.Mode {
	case FeedModePoll:
		interval, err := time.ParseDuration(f.PollInterval)
		if err != nil {
			errs = append(errs, fmt.Errorf("poll_interval: %w", err))
		} else if interval < minPollInterval {
			errs = append(errs, fmt.Errorf("poll_interval %s below minimum %s",
				f.PollInterval, minPollInterval))
		}

	case FeedModeDirectory:
		if f.SnapshotDir == "" {
			errs = append(errs, errors.New("snapshot_dir is required when feed mode is \"directory\""))
		}

	case FeedModeWebsocket:
		if f.WebsocketURL == "" {
			errs = append(errs, errors.New("websocket_url is required when feed mode is \"websocket\""))
		}

	default:
		errs = append(errs, fmt.Errorf("unknown feed mode %q (want poll, directory, or websocket)", f.Mode))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	switch l.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", l.LogLevel))
	}

	switch l.LogFormat {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q", l.LogFormat))
	}

	return errs
}

// AckInterval returns the parsed commit acknowledgement duration.
// Call after Validate; parse errors fall back to the default.
func (s SessionConfig) AckInterval() time.Duration {
	d, err := time.ParseDuration(s.CommitAckInterval)
	if err != nil {
		d, _ = time.ParseDuration(defaultCommitAckInterval)
	}

	return d
}

// DebounceInterval returns the parsed debounce quiet duration.
func (s SessionConfig) DebounceInterval() time.Duration {
	d, err := time.ParseDuration(s.DebounceQuiet)
	if err != nil {
		d, _ = time.ParseDuration(defaultDebounceQuiet)
	}

	return d
}

// Interval returns the parsed poll interval.
func (f FeedConfig) Interval() time.Duration {
	d, err := time.ParseDuration(f.PollInterval)
	if err != nil {
		d, _ = time.ParseDuration(defaultPollInterval)
	}

	return d
}
