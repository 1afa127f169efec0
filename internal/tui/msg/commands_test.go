package msg

import (
	"errors"
	"testing"
	"time"

	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/serialport"
)

func TestTick(t *testing.T) {
	cmd := Tick(20 * time.Millisecond)
	if cmd == nil {
		t.Fatal("Tick() returned nil command")
	}

	start := time.Now()
	result := cmd()
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Tick() returned too quickly: %v", elapsed)
	}
	if _, ok := result.(TickMsg); !ok {
		t.Errorf("Tick() returned %T, want TickMsg", result)
	}
}

func TestListPorts(t *testing.T) {
	enum := func() ([]serialport.PortInfo, error) {
		return []serialport.PortInfo{{Name: "/dev/ttyUSB0"}, {Name: "/dev/ttyS0"}}, nil
	}
	filter, err := serialport.NewFilter([]string{"/dev/ttyUSB*"})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := ListPorts(enum, filter)().(PortsMsg)
	if !ok {
		t.Fatal("ListPorts() did not return PortsMsg")
	}
	if got.Err != nil || len(got.Ports) != 1 || got.Ports[0].Name != "/dev/ttyUSB0" {
		t.Errorf("PortsMsg = %+v", got)
	}

	failing := func() ([]serialport.PortInfo, error) { return nil, errors.New("boom") }
	if got := ListPorts(failing, nil)().(PortsMsg); got.Err == nil {
		t.Error("enumeration error not reported")
	}
}

func TestWaitForHotplug(t *testing.T) {
	if WaitForHotplug(nil) != nil {
		t.Error("WaitForHotplug(nil) returned a command")
	}

	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	if _, ok := WaitForHotplug(ch)().(HotplugMsg); !ok {
		t.Error("expected HotplugMsg")
	}
	close(ch)
	if _, ok := WaitForHotplug(ch)().(HotplugClosedMsg); !ok {
		t.Error("expected HotplugClosedMsg after close")
	}
}

func TestForwardAndWaitForEvent(t *testing.T) {
	bus := event.NewBus(nil)
	ch, id := Forward(bus, 4)
	if id == "" {
		t.Fatal("Forward() returned empty subscription ID")
	}

	bus.Publish(event.NewSnifferPacketsEvent("/dev/ttyUSB0", 7))
	got, ok := WaitForEvent(ch)().(EventMsg)
	if !ok {
		t.Fatal("WaitForEvent() did not return EventMsg")
	}
	if e, ok := got.Event.(event.SnifferPacketsEvent); !ok || e.Count != 7 {
		t.Errorf("event = %#v", got.Event)
	}

	for i := 0; i < 10; i++ {
		bus.Publish(event.NewSnifferPacketsEvent("/dev/ttyUSB0", i))
	}
	if len(ch) != 4 {
		t.Errorf("buffered %d events, want 4 (extra dropped)", len(ch))
	}
}
