package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "serial.baud_rate")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidBaudRates returns the line speeds the bridge accepts
func ValidBaudRates() []int {
	return []int{9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateSerial()...)
	errors = append(errors, c.validateTimings()...)
	errors = append(errors, c.validateTUI()...)
	errors = append(errors, c.validateHistory()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validatePaths()...)

	return errors
}

// validateSerial validates the SerialConfig
func (c *Config) validateSerial() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidBaudRates(), c.Serial.BaudRate) {
		errors = append(errors, ValidationError{
			Field:   "serial.baud_rate",
			Value:   c.Serial.BaudRate,
			Message: fmt.Sprintf("must be one of: %s", joinInts(ValidBaudRates())),
		})
	}

	if c.Serial.ReadTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "serial.read_timeout_ms",
			Value:   c.Serial.ReadTimeoutMs,
			Message: "must be positive",
		})
	}

	if c.Serial.WriteTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "serial.write_timeout_ms",
			Value:   c.Serial.WriteTimeoutMs,
			Message: "must be positive",
		})
	}

	// A gap over a few seconds makes every menu action feel hung
	const maxGapMs = 5000
	if c.Serial.CommandGapMs < 0 || c.Serial.CommandGapMs > maxGapMs {
		errors = append(errors, ValidationError{
			Field:   "serial.command_gap_ms",
			Value:   c.Serial.CommandGapMs,
			Message: fmt.Sprintf("must be between 0 and %d", maxGapMs),
		})
	}

	for i, pattern := range c.Serial.PortPatterns {
		field := fmt.Sprintf("serial.port_patterns[%d]", i)
		if strings.TrimSpace(pattern) == "" {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   pattern,
				Message: "must not be empty",
			})
			continue
		}
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}

	return errors
}

// validateTimings validates the scan, sniffer and response windows
func (c *Config) validateTimings() []ValidationError {
	var errors []ValidationError

	const maxScanSeconds = 300
	if c.Scan.TimeoutSeconds <= 0 || c.Scan.TimeoutSeconds > maxScanSeconds {
		errors = append(errors, ValidationError{
			Field:   "scan.timeout_seconds",
			Value:   c.Scan.TimeoutSeconds,
			Message: fmt.Sprintf("must be between 1 and %d", maxScanSeconds),
		})
	}

	if c.Sniffer.UpdateIntervalMs < 50 {
		errors = append(errors, ValidationError{
			Field:   "sniffer.update_interval_ms",
			Value:   c.Sniffer.UpdateIntervalMs,
			Message: "must be at least 50",
		})
	}

	if c.Sniffer.StopWaitMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "sniffer.stop_wait_ms",
			Value:   c.Sniffer.StopWaitMs,
			Message: "must be non-negative",
		})
	}

	if c.Response.CollectTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "response.collect_timeout_seconds",
			Value:   c.Response.CollectTimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

// validateTUI validates the TUIConfig
func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.Theme != "" && !IsValidTheme(c.TUI.Theme) {
		errors = append(errors, ValidationError{
			Field:   "tui.theme",
			Value:   c.TUI.Theme,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidThemes(), ", ")),
		})
	}

	if c.TUI.MaxConsoleLines < 10 {
		errors = append(errors, ValidationError{
			Field:   "tui.max_console_lines",
			Value:   c.TUI.MaxConsoleLines,
			Message: "must be at least 10",
		})
	}

	return errors
}

// validateHistory validates the HistoryConfig
func (c *Config) validateHistory() []ValidationError {
	var errors []ValidationError

	if c.History.RetentionDays < 0 {
		errors = append(errors, ValidationError{
			Field:   "history.retention_days",
			Value:   c.History.RetentionDays,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validatePaths validates the PathsConfig
func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	dir := c.Paths.DataDir
	if dir == "" || dir == "~" || strings.HasPrefix(dir, "~/") {
		return errors
	}
	if !filepath.IsAbs(dir) {
		errors = append(errors, ValidationError{
			Field:   "paths.data_dir",
			Value:   dir,
			Message: "must be an absolute path or start with ~",
		})
	}

	return errors
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
