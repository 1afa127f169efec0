package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "scan.completed", "sniffer.stopped")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeDeviceConnected    = "device.connected"
	TypeDeviceDisconnected = "device.disconnected"
	TypeCommandSent        = "command.sent"
	TypeLineReceived       = "line.received"
	TypeScanCompleted      = "scan.completed"
	TypeSelectionChanged   = "selection.changed"
	TypeSnifferStarted     = "sniffer.started"
	TypeSnifferPackets     = "sniffer.packets"
	TypeSnifferStopped     = "sniffer.stopped"
	TypeProbesCollected    = "probes.collected"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Device Events
// -----------------------------------------------------------------------------

// DeviceConnectedEvent is emitted once the serial link to a board is open.
type DeviceConnectedEvent struct {
	baseEvent
	Device    string // Serial device path
	SessionID string
	BaudRate  int
}

// NewDeviceConnectedEvent creates a DeviceConnectedEvent.
func NewDeviceConnectedEvent(device, sessionID string, baudRate int) DeviceConnectedEvent {
	return DeviceConnectedEvent{
		baseEvent: newBaseEvent(TypeDeviceConnected),
		Device:    device,
		SessionID: sessionID,
		BaudRate:  baudRate,
	}
}

// DeviceDisconnectedEvent is emitted when the link is closed or lost.
type DeviceDisconnectedEvent struct {
	baseEvent
	Device string
	Err    error // nil for an orderly close
}

// NewDeviceDisconnectedEvent creates a DeviceDisconnectedEvent.
func NewDeviceDisconnectedEvent(device string, err error) DeviceDisconnectedEvent {
	return DeviceDisconnectedEvent{
		baseEvent: newBaseEvent(TypeDeviceDisconnected),
		Device:    device,
		Err:       err,
	}
}

// CommandSentEvent is emitted after a command line was written to the device.
type CommandSentEvent struct {
	baseEvent
	Device  string
	Command string
}

// NewCommandSentEvent creates a CommandSentEvent.
func NewCommandSentEvent(device, command string) CommandSentEvent {
	return CommandSentEvent{
		baseEvent: newBaseEvent(TypeCommandSent),
		Device:    device,
		Command:   command,
	}
}

// LineReceivedEvent carries one line of device output seen while the sniffer
// or a raw command is running.
type LineReceivedEvent struct {
	baseEvent
	Device string
	Line   string
}

// NewLineReceivedEvent creates a LineReceivedEvent.
func NewLineReceivedEvent(device, line string) LineReceivedEvent {
	return LineReceivedEvent{
		baseEvent: newBaseEvent(TypeLineReceived),
		Device:    device,
		Line:      line,
	}
}

// -----------------------------------------------------------------------------
// Scan Events
// -----------------------------------------------------------------------------

// ScanCompletedEvent is emitted when a network scan finishes or times out.
type ScanCompletedEvent struct {
	baseEvent
	Device       string
	NetworkCount int
	Completed    bool // false when the terminator line never arrived
	Duration     time.Duration
}

// NewScanCompletedEvent creates a ScanCompletedEvent.
func NewScanCompletedEvent(device string, networkCount int, completed bool, duration time.Duration) ScanCompletedEvent {
	return ScanCompletedEvent{
		baseEvent:    newBaseEvent(TypeScanCompleted),
		Device:       device,
		NetworkCount: networkCount,
		Completed:    completed,
		Duration:     duration,
	}
}

// SelectionChangedEvent is emitted when networks are selected on the device.
type SelectionChangedEvent struct {
	baseEvent
	Device  string
	Indices []int // 1-based network indices
}

// NewSelectionChangedEvent creates a SelectionChangedEvent.
func NewSelectionChangedEvent(device string, indices []int) SelectionChangedEvent {
	return SelectionChangedEvent{
		baseEvent: newBaseEvent(TypeSelectionChanged),
		Device:    device,
		Indices:   indices,
	}
}

// -----------------------------------------------------------------------------
// Sniffer Events
// -----------------------------------------------------------------------------

// SnifferStartedEvent is emitted when the passive sniffer is started.
type SnifferStartedEvent struct {
	baseEvent
	Device string
	NoScan bool // started with start_sniffer_noscan
}

// NewSnifferStartedEvent creates a SnifferStartedEvent.
func NewSnifferStartedEvent(device string, noScan bool) SnifferStartedEvent {
	return SnifferStartedEvent{
		baseEvent: newBaseEvent(TypeSnifferStarted),
		Device:    device,
		NoScan:    noScan,
	}
}

// SnifferPacketsEvent reports the latest packet count printed by the firmware.
type SnifferPacketsEvent struct {
	baseEvent
	Device string
	Count  int
}

// NewSnifferPacketsEvent creates a SnifferPacketsEvent.
func NewSnifferPacketsEvent(device string, count int) SnifferPacketsEvent {
	return SnifferPacketsEvent{
		baseEvent: newBaseEvent(TypeSnifferPackets),
		Device:    device,
		Count:     count,
	}
}

// SnifferStoppedEvent is emitted when the sniffer is stopped.
type SnifferStoppedEvent struct {
	baseEvent
	Device  string
	Packets int // last packet count seen
}

// NewSnifferStoppedEvent creates a SnifferStoppedEvent.
func NewSnifferStoppedEvent(device string, packets int) SnifferStoppedEvent {
	return SnifferStoppedEvent{
		baseEvent: newBaseEvent(TypeSnifferStopped),
		Device:    device,
		Packets:   packets,
	}
}

// ProbesCollectedEvent is emitted after show_probes output was parsed.
type ProbesCollectedEvent struct {
	baseEvent
	Device string
	Count  int
}

// NewProbesCollectedEvent creates a ProbesCollectedEvent.
func NewProbesCollectedEvent(device string, count int) ProbesCollectedEvent {
	return ProbesCollectedEvent{
		baseEvent: newBaseEvent(TypeProbesCollected),
		Device:    device,
		Count:     count,
	}
}
