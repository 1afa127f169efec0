package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete janos configuration
type Config struct {
	Serial   SerialConfig   `mapstructure:"serial"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Sniffer  SnifferConfig  `mapstructure:"sniffer"`
	Response ResponseConfig `mapstructure:"response"`
	TUI      TUIConfig      `mapstructure:"tui"`
	History  HistoryConfig  `mapstructure:"history"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Paths    PathsConfig    `mapstructure:"paths"`
}

// SerialConfig controls the serial link to the board
type SerialConfig struct {
	// BaudRate is the line speed. JanOS firmware listens at 115200.
	BaudRate int `mapstructure:"baud_rate"`
	// ReadTimeoutMs bounds a single blocking read on the port
	ReadTimeoutMs int `mapstructure:"read_timeout_ms"`
	// WriteTimeoutMs bounds a single command write including drain
	WriteTimeoutMs int `mapstructure:"write_timeout_ms"`
	// CommandGapMs is the pause after each command before the next may be sent
	CommandGapMs int `mapstructure:"command_gap_ms"`
	// PortPatterns restricts which device names are offered by the picker
	// (glob syntax, e.g. "/dev/ttyUSB*"). Empty offers every port.
	PortPatterns []string `mapstructure:"port_patterns"`
}

// ScanConfig controls network scans
type ScanConfig struct {
	// TimeoutSeconds is how long to wait for "Scan results printed"
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// SnifferConfig controls the passive sniffer
type SnifferConfig struct {
	// UpdateIntervalMs is how often the live packet counter is redrawn
	UpdateIntervalMs int `mapstructure:"update_interval_ms"`
	// StopWaitMs is how long stopping waits for the follower goroutine
	StopWaitMs int `mapstructure:"stop_wait_ms"`
}

// ResponseConfig controls how long command output is collected
type ResponseConfig struct {
	// CollectTimeoutSeconds is the collection window for show_*, ping, list_sd and raw commands
	CollectTimeoutSeconds int `mapstructure:"collect_timeout_seconds"`
}

// TUIConfig controls the terminal UI behavior
type TUIConfig struct {
	// Theme is the color theme for the TUI (default: "default")
	// Built-in options or a custom theme file name, see ThemesDir
	Theme string `mapstructure:"theme"`
	// MaxConsoleLines limits how many lines the raw console keeps
	MaxConsoleLines int `mapstructure:"max_console_lines"`
}

// HistoryConfig controls the scan/probe history database
type HistoryConfig struct {
	// Enabled records scans and probes to <data_dir>/history.db
	Enabled bool `mapstructure:"enabled"`
	// RetentionDays prunes records older than this on startup (0 = keep forever)
	RetentionDays int `mapstructure:"retention_days"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled writes a per-session log file
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum level written: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// MaxSizeMB is the log size at which the file is rotated
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep
	MaxBackups int `mapstructure:"max_backups"`
}

// PathsConfig controls where janos keeps its state
type PathsConfig struct {
	// DataDir holds sessions, locks, logs and history.db.
	// Empty means $XDG_DATA_HOME/janos or ~/.local/share/janos.
	// A leading ~ is expanded to the user's home directory.
	DataDir string `mapstructure:"data_dir"`
}

// ResolveDataDir returns the resolved data directory path.
func (p *PathsConfig) ResolveDataDir() string {
	if p.DataDir == "" {
		return DefaultDataDir()
	}

	path := p.DataDir
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}
	return path
}

// DefaultDataDir returns the data directory used when paths.data_dir is unset
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "janos")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".janos"
	}
	return filepath.Join(home, ".local", "share", "janos")
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			BaudRate:       115200,
			ReadTimeoutMs:  2000,
			WriteTimeoutMs: 2000,
			CommandGapMs:   100, // firmware drops input sent back-to-back
			PortPatterns:   []string{},
		},
		Scan: ScanConfig{
			TimeoutSeconds: 15,
		},
		Sniffer: SnifferConfig{
			UpdateIntervalMs: 500,
			StopWaitMs:       2000,
		},
		Response: ResponseConfig{
			CollectTimeoutSeconds: 5,
		},
		TUI: TUIConfig{
			Theme:           "default",
			MaxConsoleLines: 500,
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			DataDir: "", // Empty means use default: $XDG_DATA_HOME/janos
		},
	}
}

// ReadTimeout returns the read timeout as a time.Duration
func (c *SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// WriteTimeout returns the write timeout as a time.Duration
func (c *SerialConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
}

// CommandGap returns the inter-command pause as a time.Duration
func (c *SerialConfig) CommandGap() time.Duration {
	return time.Duration(c.CommandGapMs) * time.Millisecond
}

// Timeout returns the scan timeout as a time.Duration
func (c *ScanConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// UpdateInterval returns the sniffer redraw interval as a time.Duration
func (c *SnifferConfig) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalMs) * time.Millisecond
}

// StopWait returns how long stopping the sniffer waits, as a time.Duration
func (c *SnifferConfig) StopWait() time.Duration {
	return time.Duration(c.StopWaitMs) * time.Millisecond
}

// CollectTimeout returns the response window as a time.Duration
func (c *ResponseConfig) CollectTimeout() time.Duration {
	return time.Duration(c.CollectTimeoutSeconds) * time.Second
}

// Retention returns the history retention as a time.Duration (0 means keep forever)
func (c *HistoryConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Serial defaults
	viper.SetDefault("serial.baud_rate", defaults.Serial.BaudRate)
	viper.SetDefault("serial.read_timeout_ms", defaults.Serial.ReadTimeoutMs)
	viper.SetDefault("serial.write_timeout_ms", defaults.Serial.WriteTimeoutMs)
	viper.SetDefault("serial.command_gap_ms", defaults.Serial.CommandGapMs)
	viper.SetDefault("serial.port_patterns", defaults.Serial.PortPatterns)

	viper.SetDefault("scan.timeout_seconds", defaults.Scan.TimeoutSeconds)

	viper.SetDefault("sniffer.update_interval_ms", defaults.Sniffer.UpdateIntervalMs)
	viper.SetDefault("sniffer.stop_wait_ms", defaults.Sniffer.StopWaitMs)

	viper.SetDefault("response.collect_timeout_seconds", defaults.Response.CollectTimeoutSeconds)

	// TUI defaults
	viper.SetDefault("tui.theme", defaults.TUI.Theme)
	viper.SetDefault("tui.max_console_lines", defaults.TUI.MaxConsoleLines)

	// History defaults
	viper.SetDefault("history.enabled", defaults.History.Enabled)
	viper.SetDefault("history.retention_days", defaults.History.RetentionDays)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Paths defaults
	viper.SetDefault("paths.data_dir", defaults.Paths.DataDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "janos")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".janos"
	}
	return filepath.Join(home, ".config", "janos")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ThemesDir returns the directory holding custom theme files
func ThemesDir() string {
	return filepath.Join(ConfigDir(), "themes")
}

// ValidThemes returns the list of built-in TUI themes
func ValidThemes() []string {
	return []string{"default", "monokai", "dracula", "nord", "gruvbox", "solarized-light"}
}

// IsValidTheme checks if the given theme name is built in or has a file in
// ThemesDir
func IsValidTheme(theme string) bool {
	if slices.Contains(ValidThemes(), theme) {
		return true
	}
	if theme == "" || strings.ContainsAny(theme, `/\`) {
		return false
	}
	for _, ext := range []string{".yaml", ".yml"} {
		if _, err := os.Stat(filepath.Join(ThemesDir(), theme+ext)); err == nil {
			return true
		}
	}
	return false
}

// SampleYAML is the commented file written by "janos config init".
const SampleYAML = `# janos configuration
# Every key can also be set through the environment, e.g. JANOS_SERIAL_BAUD_RATE.

serial:
  # Line speed of the JanOS console
  baud_rate: 115200
  read_timeout_ms: 2000
  write_timeout_ms: 2000
  # Pause after each command; the firmware drops input sent back-to-back
  command_gap_ms: 100
  # Only offer matching devices in the picker (empty = all)
  port_patterns: []
  #  - /dev/ttyUSB*
  #  - /dev/ttyACM*

scan:
  timeout_seconds: 15

sniffer:
  update_interval_ms: 500
  stop_wait_ms: 2000

response:
  collect_timeout_seconds: 5

tui:
  # Options: default, monokai, dracula, nord, gruvbox, solarized-light,
  # or the name of a file in ~/.config/janos/themes
  theme: default
  max_console_lines: 500

history:
  enabled: true
  # 0 keeps history forever
  retention_days: 30

logging:
  enabled: true
  # Options: debug, info, warn, error
  level: info
  max_size_mb: 10
  max_backups: 3

paths:
  # Empty uses $XDG_DATA_HOME/janos (or ~/.local/share/janos)
  data_dir: ""
`
