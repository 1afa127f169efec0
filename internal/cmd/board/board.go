// Package board provides the one-shot CLI commands that open a JanOS board,
// run a single operation and disconnect.
package board

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/D3h420/janos-app/internal/bridge"
	"github.com/D3h420/janos-app/internal/config"
	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/history"
	"github.com/D3h420/janos-app/internal/logging"
	"github.com/D3h420/janos-app/internal/serialport"
)

// closeTimeout bounds the stop/close sequence after an interrupt.
const closeTimeout = 5 * time.Second

// Test seams.
var (
	listPorts   serialport.Enumerator = serialport.SystemPorts
	connectHook func(*bridge.ConnectOptions)
)

// Register adds the board commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(devicesCmd)
	parent.AddCommand(scanCmd)
	parent.AddCommand(sniffCmd)
	parent.AddCommand(resultsCmd)
	parent.AddCommand(probesCmd)
	parent.AddCommand(pingCmd)
	parent.AddCommand(rebootCmd)
	parent.AddCommand(sdCmd)
	parent.AddCommand(sendCmd)
}

// ConnectOptions builds the bridge options for device from the configuration.
func ConnectOptions(cfg *config.Config, device string, bus *event.Bus) bridge.ConnectOptions {
	timings := bridge.DefaultTimings()
	timings.Scan = cfg.Scan.Timeout()
	timings.Collect = cfg.Response.CollectTimeout()
	timings.StopWait = cfg.Sniffer.StopWait()

	opts := bridge.ConnectOptions{
		Device:  device,
		DataDir: cfg.Paths.ResolveDataDir(),
		Serial: serialport.Options{
			BaudRate:    cfg.Serial.BaudRate,
			ReadTimeout: cfg.Serial.ReadTimeout(),
		},
		CommandGap:   cfg.Serial.CommandGap(),
		WriteTimeout: cfg.Serial.WriteTimeout(),
		Timings:      timings,
		Logging: bridge.LogOptions{
			Enabled: cfg.Logging.Enabled,
			Level:   cfg.Logging.Level,
			Rotation: logging.RotationConfig{
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
			},
		},
		History: cfg.History.Enabled,
		Bus:     bus,
	}
	if connectHook != nil {
		connectHook(&opts)
	}
	return opts
}

// PortFilter compiles the configured port patterns.
func PortFilter(cfg *config.Config) (*serialport.Filter, error) {
	if len(cfg.Serial.PortPatterns) == 0 {
		return nil, nil
	}
	return serialport.NewFilter(cfg.Serial.PortPatterns)
}

// PruneHistory applies the configured history retention. Failures are
// reported on stderr and otherwise ignored.
func PruneHistory(ctx context.Context, cfg *config.Config) {
	if !cfg.History.Enabled {
		return
	}
	if _, _, err := history.PruneDataDir(ctx, cfg.Paths.ResolveDataDir(), cfg.History.Retention()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

// resolveDevice returns the --device value, or the only candidate port when
// exactly one is attached (or exactly one looks like an ESP32).
func resolveDevice(cfg *config.Config) (string, error) {
	if dev := viper.GetString("device"); dev != "" {
		return dev, nil
	}

	filter, err := PortFilter(cfg)
	if err != nil {
		return "", err
	}
	ports, err := serialport.List(listPorts, filter)
	if err != nil {
		return "", fmt.Errorf("listing serial devices: %w", err)
	}

	switch len(ports) {
	case 0:
		return "", fmt.Errorf("%w: no serial devices attached", janoserrors.ErrDeviceNotFound)
	case 1:
		return ports[0].Name, nil
	}
	var probable []string
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
		if p.Probable {
			probable = append(probable, p.Name)
		}
	}
	if len(probable) == 1 {
		return probable[0], nil
	}
	return "", fmt.Errorf("several serial devices found, choose one with --device: %s", strings.Join(names, ", "))
}

// withController connects to the configured device, runs fn and closes the
// controller. SIGINT/SIGTERM cancel fn; the close sequence (which stops a
// running sniffer) still runs.
func withController(cmd *cobra.Command, fn func(ctx context.Context, c *bridge.Controller) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	device, err := resolveDevice(cfg)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	PruneHistory(ctx, cfg)
	ctrl, err := bridge.Connect(ctx, ConnectOptions(cfg, device, nil))
	if err != nil {
		return err
	}

	runErr := fn(ctx, ctrl)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	closeErr := ctrl.Close(closeCtx)

	if runErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("interrupted: %w", runErr)
		}
		return runErr
	}
	return closeErr
}

// printLines writes raw firmware output, skipping blank lines.
func printLines(lines []string) {
	printed := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		fmt.Println(l)
		printed++
	}
	if printed == 0 {
		fmt.Println("(no output)")
	}
}
