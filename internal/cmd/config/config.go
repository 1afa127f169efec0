// Package config provides CLI commands for managing janos configuration.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/D3h420/janos-app/internal/config"
)

// Wrapper functions for exec to allow testing
var execLookPath = exec.LookPath
var execCommand = exec.Command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify janos configuration",
	Long: `View or modify janos configuration.

Use 'config show' to display the effective configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  janos config set serial.baud_rate 115200
  janos config set tui.theme nord
  janos config set history.retention_days 7

Valid keys:
  serial.baud_rate                  - Line speed (9600 ... 921600)
  serial.read_timeout_ms            - Blocking read timeout
  serial.write_timeout_ms           - Command write timeout
  serial.command_gap_ms             - Pause after each command
  scan.timeout_seconds              - How long a scan may take
  sniffer.update_interval_ms        - Live packet counter refresh
  sniffer.stop_wait_ms              - Wait for the sniffer to stop
  response.collect_timeout_seconds  - Reply collection window
  tui.theme                         - Color theme
  tui.max_console_lines             - Console scrollback
  history.enabled                   - Record scans and probes (true/false)
  history.retention_days            - Prune history older than this (0 = never)
  logging.enabled                   - Write a session log (true/false)
  logging.level                     - debug, info, warn or error
  logging.max_size_mb               - Rotate the log at this size
  logging.max_backups               - Rotated logs to keep
  paths.data_dir                    - Sessions, locks, logs and history`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/janos/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in your editor",
	Long: `Open the config file in your preferred editor.

Uses $EDITOR environment variable, or falls back to common editors (vim, nano, vi).
If no config file exists, creates one with default values first.`,
	RunE: runConfigEdit,
}

var configResetCmd = &cobra.Command{
	Use:   "reset [key]",
	Short: "Reset configuration to defaults",
	Long: `Reset configuration values to their defaults.

Without arguments, resets all configuration to defaults.
With a key argument, resets only that specific key.

Examples:
  janos config reset                   # Reset all to defaults
  janos config reset serial.baud_rate  # Reset only the baud rate`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigReset,
}

var showYAML bool

func init() {
	configShowCmd.Flags().BoolVar(&showYAML, "yaml", false, "Print the effective configuration as YAML")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configResetCmd)
}

// Register adds all config-related commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

// keyKinds lists the keys "config set" accepts and how their values parse.
var keyKinds = map[string]string{
	"serial.baud_rate":                 "int",
	"serial.read_timeout_ms":           "int",
	"serial.write_timeout_ms":          "int",
	"serial.command_gap_ms":            "int",
	"scan.timeout_seconds":             "int",
	"sniffer.update_interval_ms":       "int",
	"sniffer.stop_wait_ms":             "int",
	"response.collect_timeout_seconds": "int",
	"tui.theme":                        "string",
	"tui.max_console_lines":            "int",
	"history.enabled":                  "bool",
	"history.retention_days":           "int",
	"logging.enabled":                  "bool",
	"logging.level":                    "string",
	"logging.max_size_mb":              "int",
	"logging.max_backups":              "int",
	"paths.data_dir":                   "string",
}

// SettableKeys returns the keys accepted by "config set", sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func defaultValue(key string) any {
	d := appconfig.Default()
	switch key {
	case "serial.baud_rate":
		return d.Serial.BaudRate
	case "serial.read_timeout_ms":
		return d.Serial.ReadTimeoutMs
	case "serial.write_timeout_ms":
		return d.Serial.WriteTimeoutMs
	case "serial.command_gap_ms":
		return d.Serial.CommandGapMs
	case "scan.timeout_seconds":
		return d.Scan.TimeoutSeconds
	case "sniffer.update_interval_ms":
		return d.Sniffer.UpdateIntervalMs
	case "sniffer.stop_wait_ms":
		return d.Sniffer.StopWaitMs
	case "response.collect_timeout_seconds":
		return d.Response.CollectTimeoutSeconds
	case "tui.theme":
		return d.TUI.Theme
	case "tui.max_console_lines":
		return d.TUI.MaxConsoleLines
	case "history.enabled":
		return d.History.Enabled
	case "history.retention_days":
		return d.History.RetentionDays
	case "logging.enabled":
		return d.Logging.Enabled
	case "logging.level":
		return d.Logging.Level
	case "logging.max_size_mb":
		return d.Logging.MaxSizeMB
	case "logging.max_backups":
		return d.Logging.MaxBackups
	case "paths.data_dir":
		return d.Paths.DataDir
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}

	if showYAML {
		data, err := yaml.Marshal(viper.AllSettings())
		if err != nil {
			return fmt.Errorf("encoding configuration: %w", err)
		}
		fmt.Print(string(data))
		return nil
	}

	fmt.Println("Current configuration:")
	fmt.Println()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Printf("Data dir:    %s\n", cfg.Paths.ResolveDataDir())
	fmt.Println()

	fmt.Println("serial:")
	fmt.Printf("  baud_rate: %d\n", cfg.Serial.BaudRate)
	fmt.Printf("  read_timeout_ms: %d\n", cfg.Serial.ReadTimeoutMs)
	fmt.Printf("  write_timeout_ms: %d\n", cfg.Serial.WriteTimeoutMs)
	fmt.Printf("  command_gap_ms: %d\n", cfg.Serial.CommandGapMs)
	if len(cfg.Serial.PortPatterns) > 0 {
		fmt.Printf("  port_patterns: %s\n", strings.Join(cfg.Serial.PortPatterns, ", "))
	}

	fmt.Println("scan:")
	fmt.Printf("  timeout_seconds: %d\n", cfg.Scan.TimeoutSeconds)

	fmt.Println("sniffer:")
	fmt.Printf("  update_interval_ms: %d\n", cfg.Sniffer.UpdateIntervalMs)
	fmt.Printf("  stop_wait_ms: %d\n", cfg.Sniffer.StopWaitMs)

	fmt.Println("response:")
	fmt.Printf("  collect_timeout_seconds: %d\n", cfg.Response.CollectTimeoutSeconds)

	fmt.Println("tui:")
	fmt.Printf("  theme: %s\n", cfg.TUI.Theme)
	fmt.Printf("  max_console_lines: %d\n", cfg.TUI.MaxConsoleLines)

	fmt.Println("history:")
	fmt.Printf("  enabled: %v\n", cfg.History.Enabled)
	fmt.Printf("  retention_days: %d\n", cfg.History.RetentionDays)

	fmt.Println("logging:")
	fmt.Printf("  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Printf("  level: %s\n", cfg.Logging.Level)
	fmt.Printf("  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Printf("  max_backups: %d\n", cfg.Logging.MaxBackups)

	return nil
}

func parseValue(key, value string) (any, error) {
	kind, ok := keyKinds[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'janos config set --help' to see valid keys", key)
	}

	switch kind {
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return n, nil
	}
	return value, nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value, err := parseValue(key, args[1])
	if err != nil {
		return err
	}

	previous := viper.Get(key)
	viper.Set(key, value)
	if _, err := appconfig.Load(); err != nil {
		viper.Set(key, previous)
		return err
	}

	configFile, err := writeConfig()
	if err != nil {
		return err
	}

	fmt.Printf("Set %s = %v\n", key, value)
	fmt.Printf("Config saved to %s\n", configFile)
	return nil
}

func writeConfig() (string, error) {
	if err := os.MkdirAll(appconfig.ConfigDir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = appconfig.ConfigFile()
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return configFile, nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'janos config set' to modify values", configFile)
	}

	if err := os.MkdirAll(appconfig.ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(appconfig.SampleYAML), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	fmt.Println("Edit this file to customize janos.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Default path: %s (not created)\n", appconfig.ConfigFile())
	}

	fmt.Println("\nSearch paths:")
	fmt.Printf("  1. %s\n", appconfig.ConfigFile())
	fmt.Printf("  2. ./config.yaml (current directory)\n")
	fmt.Println("\nEnvironment variables: JANOS_* (e.g., JANOS_SERIAL_BAUD_RATE)")
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		fmt.Printf("Config file doesn't exist, creating with defaults...\n")
		if err := runConfigInit(cmd, args); err != nil {
			return err
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		for _, e := range []string{"vim", "nano", "vi"} {
			if _, err := execLookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Set $EDITOR environment variable")
	}

	editorCmd := execCommand(editor, configFile)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}

	fmt.Printf("Config file saved: %s\n", configFile)
	return nil
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		for _, key := range SettableKeys() {
			viper.Set(key, defaultValue(key))
		}
		fmt.Println("Reset all configuration to defaults.")
	} else {
		key := args[0]
		if _, ok := keyKinds[key]; !ok {
			return fmt.Errorf("unknown configuration key: %s\nRun 'janos config set --help' to see valid keys", key)
		}
		viper.Set(key, defaultValue(key))
		fmt.Printf("Reset %s to default: %v\n", key, defaultValue(key))
	}

	configFile, err := writeConfig()
	if err != nil {
		return err
	}
	fmt.Printf("Config saved to %s\n", configFile)
	return nil
}
