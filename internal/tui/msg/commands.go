package msg

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/serialport"
)

// Tick returns a command that sends a TickMsg after interval.
func Tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// ListPorts enumerates serial devices through enum, keeping those filter
// accepts.
func ListPorts(enum serialport.Enumerator, filter *serialport.Filter) tea.Cmd {
	return func() tea.Msg {
		ports, err := serialport.List(enum, filter)
		return PortsMsg{Ports: ports, Err: err}
	}
}

// WaitForHotplug blocks until the watcher reports a change. It returns
// HotplugClosedMsg once ch is closed; nil ch yields no command.
func WaitForHotplug(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return HotplugClosedMsg{}
		}
		return HotplugMsg{}
	}
}

// WaitForEvent blocks until the next forwarded bus event. A nil or closed
// channel yields nothing.
func WaitForEvent(ch <-chan event.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return EventMsg{Event: e}
	}
}

// Forward subscribes to every event on bus and returns the channel
// WaitForEvent reads from, plus the subscription ID. Events are dropped
// rather than blocking publishers when the UI falls behind.
func Forward(bus *event.Bus, size int) (<-chan event.Event, string) {
	ch := make(chan event.Event, size)
	id := bus.SubscribeAll(func(e event.Event) {
		select {
		case ch <- e:
		default:
		}
	})
	return ch, id
}
