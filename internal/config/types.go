package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the full application configuration.
//
// All durations are Go duration strings (e.g. "30s", "5m").
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Watch    WatchConfig    `json:"watch"`
	Storage  StorageConfig  `json:"storage"`
	Source   SourceConfig   `json:"source"`
	Calendar CalendarConfig `json:"calendar,omitempty"`
}

type TelegramConfig struct {
	// Enabled is a pointer so we can distinguish "omitted" (default true when
	// a token is present) from an explicit false.
	Enabled     *bool  `json:"enabled,omitempty"`
	Token       string `json:"token"`
	AdminChatID int64  `json:"admin_chat_id,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// DeliveryEnabled reports whether notifications may go out at all: an empty
// token or an explicit enabled=false disables delivery (reported as
// "disabled", never as an error).
func (t TelegramConfig) DeliveryEnabled() bool {
	if strings.TrimSpace(t.Token) == "" {
		return false
	}
	return t.Enabled == nil || *t.Enabled
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// WatchConfig controls the periodic diff-and-notify cycle.
type WatchConfig struct {
	Interval   string   `json:"interval,omitempty"` // default "5m"
	Timezone   string   `json:"timezone,omitempty"` // IANA TZ, default "Europe/Moscow"
	Groups     []string `json:"groups"`
	DryRun     bool     `json:"dry_run,omitempty"`
	FutureOnly *bool    `json:"future_only,omitempty"` // default true
	DiffLimit  int      `json:"diff_limit,omitempty"`  // entries per section, default 12
	StateDir   string   `json:"state_dir,omitempty"`   // snapshots + calendars, default "./var/timetable"
}

func (w WatchConfig) FutureOnlyEnabled() bool {
	return w.FutureOnly == nil || *w.FutureOnly
}

// StorageConfig selects the subscriber/group-assignment backend.
//
// Driver values:
//   - "file":   JSON state file (default)
//   - "sqlite": SQLite database file
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// SourceConfig points at the external timetable sheet.
type SourceConfig struct {
	URL      string `json:"url"`
	Headless *bool  `json:"headless,omitempty"` // default true
	Timeout  string `json:"timeout,omitempty"`  // default "45s"
}

func (s SourceConfig) HeadlessEnabled() bool {
	return s.Headless == nil || *s.Headless
}

type CalendarConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen,omitempty"` // HTTP address, default "127.0.0.1:8080"; "none" disables serving
}

// ServeEnabled reports whether the calendar HTTP endpoint should run.
func (c CalendarConfig) ServeEnabled() bool {
	return c.Enabled && strings.TrimSpace(c.Listen) != "none"
}

// Validate checks invariants that would otherwise surface deep inside a
// cycle. Missing optional identifiers are not errors (they disable the
// corresponding step), but nonsense values are rejected at load time.
func (c *Config) Validate() error {
	if len(c.Watch.Groups) == 0 {
		return errors.New("watch.groups must list at least one group")
	}
	if _, err := c.WatchInterval(); err != nil {
		return fmt.Errorf("watch.interval: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("watch.timezone: %w", err)
	}
	if c.Watch.DiffLimit < 0 {
		return errors.New("watch.diff_limit must not be negative")
	}
	if d := strings.TrimSpace(c.Storage.Driver); d != "" && d != "none" && d != "file" && d != "sqlite" && d != "sqlite3" {
		return fmt.Errorf("storage.driver: unknown driver %q", d)
	}
	return nil
}

// WatchInterval parses watch.interval with its default.
func (c *Config) WatchInterval() (time.Duration, error) {
	return parseDuration(c.Watch.Interval, 5*time.Minute)
}

// SourceTimeout parses source.timeout with its default.
func (c *Config) SourceTimeout() (time.Duration, error) {
	return parseDuration(c.Source.Timeout, 45*time.Second)
}

// PollTimeout parses telegram.poll_timeout with its default.
func (c *Config) PollTimeout() (time.Duration, error) {
	return parseDuration(c.Telegram.PollTimeout, 10*time.Second)
}

// StorageBusyTimeout parses storage.busy_timeout; 0 means the storage default.
func (c *Config) StorageBusyTimeout() (time.Duration, error) {
	return parseDuration(c.Storage.BusyTimeout, 0)
}

// Location resolves watch.timezone (default Europe/Moscow).
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Watch.Timezone)
	if tz == "" {
		tz = "Europe/Moscow"
	}
	return time.LoadLocation(tz)
}

// DiffLimit returns the per-section cap for rendered diff summaries.
func (c *Config) DiffLimit() int {
	if c.Watch.DiffLimit > 0 {
		return c.Watch.DiffLimit
	}
	return 12
}

// StateDir returns the snapshot/calendar root with its default.
func (c *Config) StateDir() string {
	if s := strings.TrimSpace(c.Watch.StateDir); s != "" {
		return s
	}
	return "./var/timetable"
}

func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
