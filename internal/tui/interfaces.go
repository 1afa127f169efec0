package tui

import (
	"context"

	"github.com/D3h420/janos-app/internal/bridge"
	"github.com/D3h420/janos-app/internal/janos"
)

// Controller is the part of *bridge.Controller the UI drives.
type Controller interface {
	Device() string
	SessionID() string

	Networks() []janos.Network
	ScanDone() bool
	Selected() []int
	SnifferRunning() bool
	Packets() int
	Running() []string
	Lost() error

	Scan(ctx context.Context, progress func(janos.Network)) (*bridge.ScanResult, error)
	Select(ctx context.Context, input string) ([]int, error)
	StartSniffer(ctx context.Context) (bool, error)
	StopSniffer(ctx context.Context) (int, error)
	SnifferResults(ctx context.Context) (*bridge.SnifferResults, error)
	Probes(ctx context.Context) ([]janos.Probe, error)
	Reboot(ctx context.Context) (*bridge.Reply, error)
	Ping(ctx context.Context, host string) (*bridge.Reply, error)
	ListSD(ctx context.Context) ([]janos.SDEntry, *bridge.Reply, error)
	Send(ctx context.Context, raw string) (*bridge.Reply, error)
	StopAll(ctx context.Context) error
	Close(ctx context.Context) error
}

var _ Controller = (*bridge.Controller)(nil)

// ConnectFunc opens device and returns its controller.
type ConnectFunc func(ctx context.Context, device string) (Controller, error)
