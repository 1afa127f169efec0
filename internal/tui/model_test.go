package tui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/D3h420/janos-app/internal/bridge"
	"github.com/D3h420/janos-app/internal/device"
	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/janos"
	"github.com/D3h420/janos-app/internal/serialport"
	"github.com/D3h420/janos-app/internal/testutil"
	"github.com/D3h420/janos-app/internal/tui/msg"
)

const (
	testDevice = "/dev/ttyFAKE0"
	row1       = `"1","HomeNet","TP-Link","AA:BB:CC:DD:EE:01","6","WPA2","-48","2.4GHz"`
	row2       = `"2","","Unknown","AA:BB:CC:DD:EE:02","36","WPA3","-71","5GHz"`
)

func newController(t *testing.T, port *testutil.FakePort) *bridge.Controller {
	t.Helper()
	conn := device.NewConn(port, testDevice, device.ConnOptions{CommandGap: -1})
	ctrl := bridge.New(conn, bridge.WithTimings(bridge.Timings{
		Scan:     time.Second,
		Collect:  100 * time.Millisecond,
		StopWait: 500 * time.Millisecond,
		Settle:   -1,
	}))
	t.Cleanup(func() { _ = ctrl.Close(context.Background()) })
	return ctrl
}

func testOptions(ports []serialport.PortInfo, connect ConnectFunc) Options {
	return Options{
		Connect:        connect,
		Ports:          func() ([]serialport.PortInfo, error) { return ports, nil },
		UpdateInterval: time.Millisecond,
	}
}

func newTestModel(opts Options) Model {
	m := NewModel(context.Background(), opts)
	m.input.Cursor.SetMode(cursor.CursorStatic)
	return m
}

func connectedModel(t *testing.T, port *testutil.FakePort) Model {
	t.Helper()
	m := newTestModel(testOptions(nil, nil))
	next, _ := m.Update(connectedMsg{device: testDevice, ctrl: newController(t, port)})
	return next.(Model)
}

// exec runs cmd and feeds the results of device operations back into the
// model. Timers, spinner frames and anything still blocked after a few
// seconds are dropped.
func exec(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var message tea.Msg
	select {
	case message = <-done:
	case <-time.After(3 * time.Second):
		return m
	}

	switch message := message.(type) {
	case tea.BatchMsg:
		for _, c := range message {
			m = exec(t, m, c)
		}
		return m
	case connectedMsg, msg.PortsMsg, msg.ScanDoneMsg, msg.SelectDoneMsg, msg.SnifferStartedMsg,
		msg.SnifferStoppedMsg, msg.SnifferResultsMsg, msg.ProbesMsg, msg.ReplyMsg, msg.SDListMsg,
		msg.StoppedAllMsg, msg.ClosedMsg:
		next, c := m.Update(message)
		return exec(t, next.(Model), c)
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends each key and runs whatever command it returns.
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(key(k))
		m = exec(t, next.(Model), cmd)
	}
	return m
}

// submit types value into the open input and presses enter.
func submit(t *testing.T, m Model, value string) Model {
	t.Helper()
	m.input.SetValue(value)
	return press(t, m, "enter")
}

func TestPicker_ConnectsToChosenPort(t *testing.T) {
	port := testutil.NewFakePort()
	var got string
	connect := func(_ context.Context, dev string) (Controller, error) {
		got = dev
		return newController(t, port), nil
	}
	ports := []serialport.PortInfo{{Name: "/dev/ttyUSB0"}, {Name: "/dev/ttyUSB1"}}

	m := newTestModel(testOptions(ports, connect))
	m = exec(t, m, m.Init())
	if len(m.ports) != 2 {
		t.Fatalf("ports = %d, want 2", len(m.ports))
	}

	m = press(t, m, "j", "enter")
	if m.confirm == nil || !strings.Contains(m.confirm.prompt, "/dev/ttyUSB1") {
		t.Fatalf("confirm = %+v, want prompt for /dev/ttyUSB1", m.confirm)
	}

	// Enter takes the default answer, which is yes.
	m = press(t, m, "enter")
	if got != "/dev/ttyUSB1" {
		t.Errorf("connected to %q, want /dev/ttyUSB1", got)
	}
	if m.screen != screenMain || m.ctrl == nil {
		t.Errorf("screen = %v ctrl = %v, want main menu with a controller", m.screen, m.ctrl)
	}
}

func TestPicker_ManualPathDeclined(t *testing.T) {
	calls := 0
	connect := func(context.Context, string) (Controller, error) {
		calls++
		return nil, errors.New("unexpected connect")
	}
	m := newTestModel(testOptions(nil, connect))

	m = press(t, m, "m")
	if m.inputFor != inputManualPath {
		t.Fatalf("inputFor = %v, want manual path", m.inputFor)
	}
	m = submit(t, m, "/dev/ttyACM9")
	if m.confirm == nil || !strings.Contains(m.confirm.prompt, "/dev/ttyACM9") {
		t.Fatalf("confirm = %+v, want prompt for the typed path", m.confirm)
	}

	m = press(t, m, "n")
	if m.confirm != nil || calls != 0 || m.screen != screenPicker {
		t.Errorf("after declining: confirm=%v calls=%d screen=%v", m.confirm, calls, m.screen)
	}
}

func TestPicker_ConnectFailureStaysInPicker(t *testing.T) {
	connect := func(context.Context, string) (Controller, error) {
		return nil, janoserrors.ErrDeviceLocked
	}
	m := newTestModel(testOptions([]serialport.PortInfo{{Name: "/dev/ttyUSB0"}}, connect))
	m = exec(t, m, m.Init())

	m = press(t, m, "enter", "y")
	if m.screen != screenPicker || m.ctrl != nil {
		t.Fatalf("screen = %v, want picker after failed connect", m.screen)
	}
	if !strings.Contains(m.errMsg, "locked") {
		t.Errorf("errMsg = %q, want lock error", m.errMsg)
	}
}

func TestPicker_NoPorts(t *testing.T) {
	m := newTestModel(testOptions(nil, nil))
	m = exec(t, m, m.Init())
	m = press(t, m, "enter")
	if m.confirm != nil || m.errMsg == "" {
		t.Errorf("confirm = %v errMsg = %q, want an error and no dialog", m.confirm, m.errMsg)
	}
}

func TestInit_ConnectsToGivenDevice(t *testing.T) {
	port := testutil.NewFakePort()
	opts := testOptions(nil, func(_ context.Context, dev string) (Controller, error) {
		if dev != testDevice {
			t.Errorf("Connect(%q), want %q", dev, testDevice)
		}
		return newController(t, port), nil
	})
	opts.Device = testDevice

	m := newTestModel(opts)
	m = exec(t, m, m.Init())
	if m.screen != screenMain || m.device != testDevice {
		t.Errorf("screen = %v device = %q, want main menu on %s", m.screen, m.device, testDevice)
	}
}

func TestScanMenu_ScanShowsResults(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand(janos.CmdScanNetworks, "Scanning...", row1, row2, janos.ScanDoneMarker)
	m := connectedModel(t, port)

	m = press(t, m, "1")
	if m.screen != screenScan {
		t.Fatalf("screen = %v, want scan menu", m.screen)
	}
	m = press(t, m, "1")
	if m.busy != "" {
		t.Errorf("busy = %q after scan finished", m.busy)
	}
	if m.screen != screenView || m.view == nil || len(m.view.lines) != 2 {
		t.Fatalf("view = %+v, want two network rows", m.view)
	}
	if !strings.Contains(m.status, "Found 2 networks") {
		t.Errorf("status = %q", m.status)
	}
	if !slices.Contains(m.console, row1) {
		t.Errorf("console = %q, want raw scan output", m.console)
	}

	m = press(t, m, "esc")
	if m.screen != screenScan || m.view != nil {
		t.Errorf("screen = %v after closing the view, want scan menu", m.screen)
	}
}

func TestScanMenu_ShowResultsRequiresScan(t *testing.T) {
	m := connectedModel(t, testutil.NewFakePort())
	m = press(t, m, "1", "2")
	if m.screen != screenScan || m.errMsg == "" {
		t.Errorf("screen = %v errMsg = %q, want an error on the scan menu", m.screen, m.errMsg)
	}
}

func TestScanMenu_SelectNetworks(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand(janos.CmdScanNetworks, row1, row2, janos.ScanDoneMarker)
	m := connectedModel(t, port)

	m = press(t, m, "1", "1", "esc", "3")
	if m.inputFor != inputSelect {
		t.Fatalf("inputFor = %v, want selection input", m.inputFor)
	}
	m = submit(t, m, "all")

	if !strings.Contains(m.status, "Selected networks: 1 2") {
		t.Errorf("status = %q", m.status)
	}
	if !slices.Contains(port.Commands(), "select_networks 1 2") {
		t.Errorf("commands = %q, want select_networks 1 2", port.Commands())
	}
}

func TestScanMenu_InvalidSelection(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand(janos.CmdScanNetworks, row1, janos.ScanDoneMarker)
	m := connectedModel(t, port)

	m = press(t, m, "1", "1", "esc", "3")
	m = submit(t, m, "7")
	if m.errMsg == "" {
		t.Error("errMsg empty for an out-of-range selection")
	}
	for _, c := range port.Commands() {
		if strings.HasPrefix(c, janos.CmdSelectNetworks) {
			t.Errorf("sent %q for an invalid selection", c)
		}
	}
}

func TestSnifferMenu_StartStop(t *testing.T) {
	port := testutil.NewFakePort()
	m := connectedModel(t, port)

	m = press(t, m, "2", "1")
	if !m.ctrl.SnifferRunning() {
		t.Fatal("sniffer not running after Start Sniffer")
	}
	if items := m.menuItems(); items[0].label != "Stop Sniffer" {
		t.Errorf("first item = %q, want Stop Sniffer", items[0].label)
	}
	if !strings.Contains(m.status, "scanning first") {
		t.Errorf("status = %q", m.status)
	}

	m = press(t, m, "1")
	if m.ctrl.SnifferRunning() {
		t.Error("sniffer still running after Stop Sniffer")
	}
	if !slices.Contains(port.Commands(), janos.CmdStop) {
		t.Errorf("commands = %q, want stop", port.Commands())
	}
}

func TestSnifferMenu_Probes(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand(janos.CmdShowProbes,
		"Probe requests:",
		"AA:BB:CC:DD:EE:01 -> CoffeeShop (-55dBm)",
		"Total: 1")
	m := connectedModel(t, port)

	m = press(t, m, "2", "3")
	if m.screen != screenView || m.view == nil || m.view.title != "Probe Requests" {
		t.Fatalf("view = %+v, want probe requests", m.view)
	}
	if len(m.view.lines) != 1 || !strings.Contains(m.view.lines[0], "CoffeeShop") {
		t.Errorf("lines = %q", m.view.lines)
	}
}

func TestStopAll(t *testing.T) {
	port := testutil.NewFakePort()
	m := connectedModel(t, port)

	m = press(t, m, "s")
	if m.status != "Nothing running" {
		t.Errorf("status = %q, want Nothing running", m.status)
	}

	m = press(t, m, "2", "1", "s")
	if m.ctrl.SnifferRunning() {
		t.Error("sniffer still running after stop all")
	}
	if m.status != "All activities stopped" {
		t.Errorf("status = %q", m.status)
	}
}

func TestQuit_AsksWhenSnifferRunning(t *testing.T) {
	port := testutil.NewFakePort()
	m := connectedModel(t, port)
	ctrl := m.ctrl

	m = press(t, m, "2", "1", "q")
	if m.confirm == nil || m.confirm.kind != confirmQuit {
		t.Fatalf("confirm = %+v, want quit dialog", m.confirm)
	}
	if !strings.Contains(m.confirm.prompt, "sniffer") {
		t.Errorf("prompt = %q, want running activities listed", m.confirm.prompt)
	}

	// No returns to the menu with the sniffer left running.
	m = press(t, m, "n")
	if m.quitting || m.confirm != nil || !ctrl.SnifferRunning() {
		t.Fatalf("after no: quitting=%v confirm=%v running=%v", m.quitting, m.confirm, ctrl.SnifferRunning())
	}

	m = press(t, m, "q", "enter")
	if !m.quitting {
		t.Fatal("not quitting after confirming")
	}
	if !slices.Contains(port.Commands(), janos.CmdStop) {
		t.Errorf("commands = %q, want stop before exit", port.Commands())
	}
	if _, err := ctrl.Ping(context.Background(), "8.8.8.8"); !errors.Is(err, janoserrors.ErrNotConnected) {
		t.Errorf("controller not closed on quit: %v", err)
	}
}

func TestQuit_IdleClosesWithoutAsking(t *testing.T) {
	m := connectedModel(t, testutil.NewFakePort())
	m = press(t, m, "q")
	if m.confirm != nil || !m.quitting {
		t.Errorf("confirm = %v quitting = %v, want immediate quit", m.confirm, m.quitting)
	}
}

func TestInterrupt_ClosesController(t *testing.T) {
	port := testutil.NewFakePort()
	m := connectedModel(t, port)
	ctrl := m.ctrl
	m = press(t, m, "2", "1")

	next, cmd := m.Update(interruptMsg{})
	m = exec(t, next.(Model), cmd)
	if !m.quitting {
		t.Fatal("not quitting after interrupt")
	}
	if ctrl.SnifferRunning() {
		t.Error("sniffer still running after interrupt")
	}
}

func TestSystemMenu_RebootDefaultsToNo(t *testing.T) {
	port := testutil.NewFakePort()
	m := connectedModel(t, port)

	m = press(t, m, "3", "1")
	if m.confirm == nil || m.confirm.kind != confirmReboot {
		t.Fatalf("confirm = %+v, want reboot dialog", m.confirm)
	}
	m = press(t, m, "enter")
	if slices.Contains(port.Commands(), janos.CmdReboot) {
		t.Error("reboot sent on the default answer")
	}

	m = press(t, m, "1", "y")
	if !slices.Contains(port.Commands(), janos.CmdReboot) {
		t.Errorf("commands = %q, want reboot", port.Commands())
	}
	if m.screen != screenView || m.view.title != "Reboot" {
		t.Errorf("screen = %v, want reboot output", m.screen)
	}
}

func TestSystemMenu_Ping(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand("ping 8.8.8.8", "Reply from 8.8.8.8: time=21ms")
	m := connectedModel(t, port)

	m = press(t, m, "3", "2")
	if m.inputFor != inputPing {
		t.Fatalf("inputFor = %v, want ping input", m.inputFor)
	}
	m = submit(t, m, "8.8.8.8")
	if m.view == nil || !slices.Contains(m.view.lines, "Reply from 8.8.8.8: time=21ms") {
		t.Fatalf("view = %+v, want ping reply", m.view)
	}

	// Esc returns to the system menu.
	m = press(t, m, "esc")
	if m.screen != screenSystem {
		t.Errorf("screen = %v, want system menu", m.screen)
	}
}

func TestSystemMenu_ListSD(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand(janos.CmdListSD, "Files:", "1 capture.pcap", "2 probes.txt")
	m := connectedModel(t, port)

	m = press(t, m, "3", "3")
	if m.view == nil || len(m.view.lines) != 2 {
		t.Fatalf("view = %+v, want two files", m.view)
	}
	if !strings.Contains(m.status, "2 files") {
		t.Errorf("status = %q", m.status)
	}
}

func TestConsole_SendAppendsReply(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand("help", "Available commands:", "scan_networks")
	m := connectedModel(t, port)

	m = press(t, m, "4")
	if m.screen != screenConsole {
		t.Fatalf("screen = %v, want console", m.screen)
	}
	// Runes go to the input, not the menu bindings.
	m = press(t, m, "q")
	if m.quitting || m.input.Value() != "q" {
		t.Fatalf("quitting = %v input = %q", m.quitting, m.input.Value())
	}

	m = submit(t, m, "help")
	if !slices.Contains(m.console, "Available commands:") {
		t.Errorf("console = %q, want reply lines", m.console)
	}
	if m.input.Value() != "" {
		t.Errorf("input = %q, want cleared after send", m.input.Value())
	}

	m = press(t, m, "esc")
	if m.screen != screenMain || m.cursor != 3 {
		t.Errorf("screen = %v cursor = %d, want main menu on Console", m.screen, m.cursor)
	}
}

func TestConsole_BlankLineNotSent(t *testing.T) {
	port := testutil.NewFakePort()
	m := connectedModel(t, port)

	m = press(t, m, "4")
	m = submit(t, m, "   ")
	if m.busy != "" || len(port.Commands()) != 0 {
		t.Errorf("busy = %q commands = %q, want nothing sent", m.busy, port.Commands())
	}
}

func TestHandleEvent(t *testing.T) {
	m := connectedModel(t, testutil.NewFakePort())

	next, _ := m.handleEvent(event.NewCommandSentEvent(testDevice, "start_sniffer"))
	m = next.(Model)
	next, _ = m.handleEvent(event.NewLineReceivedEvent(testDevice, "\x1b[32mSniffer: 4 packets\x1b[0m"))
	m = next.(Model)

	want := []string{"> start_sniffer", "Sniffer: 4 packets"}
	if !slices.Equal(m.console, want) {
		t.Errorf("console = %q, want %q", m.console, want)
	}
}

func TestHandleEvent_LinkLostReturnsToPicker(t *testing.T) {
	m := connectedModel(t, testutil.NewFakePort())

	next, cmd := m.handleEvent(event.NewDeviceDisconnectedEvent(testDevice, errors.New("device unplugged")))
	m = next.(Model)
	if !strings.Contains(m.errMsg, "device unplugged") {
		t.Errorf("errMsg = %q", m.errMsg)
	}

	m = exec(t, m, cmd)
	if m.screen != screenPicker || m.ctrl != nil {
		t.Errorf("screen = %v ctrl = %v, want picker without controller", m.screen, m.ctrl)
	}
	if m.lost == nil {
		t.Error("lost not recorded")
	}
}

func TestHandleEvent_CleanDisconnectIgnored(t *testing.T) {
	m := connectedModel(t, testutil.NewFakePort())
	next, cmd := m.handleEvent(event.NewDeviceDisconnectedEvent(testDevice, nil))
	m = next.(Model)
	if cmd != nil || m.errMsg != "" || m.ctrl == nil {
		t.Errorf("clean disconnect changed state: errMsg=%q", m.errMsg)
	}
}

func TestAppendConsole_Capped(t *testing.T) {
	m := newTestModel(Options{MaxConsoleLines: 3})
	m.appendConsole("a", "b")
	m.appendConsole("c", "d", "e")
	if want := []string{"c", "d", "e"}; !slices.Equal(m.console, want) {
		t.Errorf("console = %q, want %q", m.console, want)
	}
}

func TestMenu_NavigationWraps(t *testing.T) {
	m := connectedModel(t, testutil.NewFakePort())

	m = press(t, m, "k")
	if m.cursor != 3 {
		t.Errorf("cursor = %d after up from top, want 3", m.cursor)
	}
	m = press(t, m, "j")
	if m.cursor != 0 {
		t.Errorf("cursor = %d after down from bottom, want 0", m.cursor)
	}
	m = press(t, m, "j", "enter")
	if m.screen != screenSniffer {
		t.Errorf("screen = %v, want sniffer menu", m.screen)
	}
	m = press(t, m, "esc")
	if m.screen != screenMain || m.cursor != 1 {
		t.Errorf("screen = %v cursor = %d, want main menu on Sniffer", m.screen, m.cursor)
	}
}

func TestMode(t *testing.T) {
	m := newTestModel(Options{})
	tests := []struct {
		name  string
		setup func(m *Model)
		want  string
	}{
		{"picker", func(m *Model) {}, "picker"},
		{"menu", func(m *Model) { m.screen = screenSystem }, "menu"},
		{"view", func(m *Model) { m.screen = screenView }, "view"},
		{"console", func(m *Model) { m.screen = screenConsole }, "console"},
		{"input wins over screen", func(m *Model) { m.screen = screenScan; m.inputFor = inputPing }, "input"},
		{"confirm wins over input", func(m *Model) { m.inputFor = inputPing; m.confirm = &confirmDialog{} }, "confirm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mm := m
			tt.setup(&mm)
			if got := string(mm.mode()); got != tt.want {
				t.Errorf("mode() = %q, want %q", got, tt.want)
			}
		})
	}
}
