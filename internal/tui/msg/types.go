package msg

import (
	"time"

	"github.com/D3h420/janos-app/internal/bridge"
	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/janos"
	"github.com/D3h420/janos-app/internal/serialport"
)

// TickMsg redraws the live sniffer counter and the busy spinner.
type TickMsg time.Time

// ErrMsg wraps an error to be displayed in the status line.
type ErrMsg struct {
	Err error
}

// PortsMsg carries the result of a device enumeration.
type PortsMsg struct {
	Ports []serialport.PortInfo
	Err   error
}

// HotplugMsg reports that device nodes appeared or disappeared.
type HotplugMsg struct{}

// HotplugClosedMsg reports that the hotplug watcher stopped.
type HotplugClosedMsg struct{}

// EventMsg forwards a bus event into the event loop.
type EventMsg struct {
	Event event.Event
}

// ScanDoneMsg is the result of a scan.
type ScanDoneMsg struct {
	Result *bridge.ScanResult
	Err    error
}

// SelectDoneMsg is the result of selecting networks.
type SelectDoneMsg struct {
	Indices []int
	Err     error
}

// SnifferStartedMsg is the result of starting the sniffer.
type SnifferStartedMsg struct {
	NoScan bool
	Err    error
}

// SnifferStoppedMsg is the result of stopping the sniffer.
type SnifferStoppedMsg struct {
	Packets int
	Err     error
}

// SnifferResultsMsg is the result of show_sniffer_results.
type SnifferResultsMsg struct {
	Results *bridge.SnifferResults
	Err     error
}

// ProbesMsg is the result of show_probes.
type ProbesMsg struct {
	Probes []janos.Probe
	Err    error
}

// ReplyMsg is the result of a command answered with plain output (ping,
// reboot, raw console lines).
type ReplyMsg struct {
	Title string
	Reply *bridge.Reply
	Err   error
}

// SDListMsg is the result of list_sd.
type SDListMsg struct {
	Entries []janos.SDEntry
	Reply   *bridge.Reply
	Err     error
}

// StoppedAllMsg is the result of stopping every running activity.
type StoppedAllMsg struct {
	Err error
}

// ClosedMsg reports that the controller was closed and the program may exit.
type ClosedMsg struct {
	Err error
}
