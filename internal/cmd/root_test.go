package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"golang.org/x/term"

	janoserrors "github.com/D3h420/janos-app/internal/errors"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Name() != "janos" {
		t.Errorf("rootCmd.Name() = %q, want %q", rootCmd.Name(), "janos")
	}

	expected := []string{
		"devices", "scan", "sniff", "results", "probes", "ping", "reboot", "sd", "send",
		"config", "history", "sessions", "logs", "version",
	}
	cmdMap := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		cmdMap[c.Name()] = true
	}
	for _, name := range expected {
		if !cmdMap[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "device", "baud", "log-level"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("missing persistent flag --%s", name)
		}
	}
	if f := rootCmd.PersistentFlags().ShorthandLookup("d"); f == nil || f.Name != "device" {
		t.Error("-d should be the --device shorthand")
	}
}

func TestInitConfig_Env(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("JANOS_SERIAL_BAUD_RATE", "921600")
	viper.Reset()
	t.Cleanup(viper.Reset)

	initConfig()

	if got := viper.GetInt("serial.baud_rate"); got != 921600 {
		t.Errorf("serial.baud_rate = %d, want 921600 from the environment", got)
	}
	if got := viper.GetString("tui.theme"); got != "default" {
		t.Errorf("tui.theme = %q, want the default", got)
	}
}

func TestInitConfig_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := dir + "/custom.yaml"
	if err := os.WriteFile(path, []byte("scan:\n  timeout_seconds: 45\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", path)

	initConfig()

	if got := viper.GetInt("scan.timeout_seconds"); got != 45 {
		t.Errorf("scan.timeout_seconds = %d, want 45 from %s", got, path)
	}
}

func TestRunInteractive_NeedsTerminal(t *testing.T) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		t.Skip("stdout is a terminal")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	viper.Reset()
	t.Cleanup(viper.Reset)
	initConfig()

	err := runInteractive(rootCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "terminal") {
		t.Errorf("runInteractive() error = %v, want terminal error", err)
	}
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHint bool
	}{
		{"plain error", errors.New("accepts at most 1 arg(s)"), false},
		{"device error", janoserrors.NewDeviceError("device does not exist", janoserrors.ErrDeviceNotFound), false},
		{"validation error", janoserrors.NewValidationError("device is required"), false},
		{"firmware output", fmt.Errorf("scan: %w",
			janoserrors.NewProtocolError("too few fields", nil).WithLine(`"1","x"`)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatError(tt.err)
			if !strings.HasPrefix(got, "Error: "+tt.err.Error()) {
				t.Errorf("formatError() = %q, want the error message first", got)
			}
			if hint := strings.Contains(got, "janos logs"); hint != tt.wantHint {
				t.Errorf("formatError() = %q, log hint = %v, want %v", got, hint, tt.wantHint)
			}
		})
	}
}
