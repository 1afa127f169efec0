package bridge

import (
	"context"
	"time"

	"github.com/D3h420/janos-app/internal/device"
	"github.com/D3h420/janos-app/internal/history"
	"github.com/D3h420/janos-app/internal/janos"
)

// Link is the line-protocol connection to a board. *device.Conn satisfies it.
type Link interface {
	// Device returns the serial device path.
	Device() string

	// Send writes one command line.
	Send(ctx context.Context, cmd string) error

	// Exchange sends cmd and collects its reply until until accepts a line
	// or the window passes.
	Exchange(ctx context.Context, cmd string, window time.Duration, until func(string) bool) ([]string, bool, error)

	// Subscribe streams every line received from now on.
	Subscribe() *device.Subscription

	// Close stops the reader and closes the port.
	Close() error
}

// Recorder persists scans and probe captures. *history.Store satisfies it.
type Recorder interface {
	RecordScan(ctx context.Context, sessionID, device string, started time.Time,
		duration time.Duration, completed bool, networks []janos.Network) (*history.ScanRecord, error)

	RecordProbes(ctx context.Context, sessionID, device string, captured time.Time, probes []janos.Probe) error
}

// ScanResult is the outcome of one scan.
type ScanResult struct {
	Networks []janos.Network
	// Completed is false when the done marker never arrived before the
	// timeout; Networks then holds whatever rows were received.
	Completed bool
	Duration  time.Duration
	Lines     []string // raw output, for the console view
}

// SnifferResults is the parsed output of show_sniffer_results.
type SnifferResults struct {
	Packets []janos.Packet
	// Other holds non-empty lines that are not packet rows.
	Other []string
}

// Reply is the raw output of a command that has no structured parser.
type Reply struct {
	Command string
	Lines   []string
}
