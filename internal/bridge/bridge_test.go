package bridge_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/D3h420/janos-app/internal/bridge"
	"github.com/D3h420/janos-app/internal/device"
	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/history"
	"github.com/D3h420/janos-app/internal/janos"
	"github.com/D3h420/janos-app/internal/testutil"
)

// --- Mock implementations ------------------------------------------------

type mockRecorder struct {
	mu     sync.Mutex
	scans  [][]janos.Network
	probes [][]janos.Probe
	done   []bool
}

func (r *mockRecorder) RecordScan(_ context.Context, _, _ string, _ time.Time, _ time.Duration,
	completed bool, networks []janos.Network) (*history.ScanRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans = append(r.scans, networks)
	r.done = append(r.done, completed)
	return &history.ScanRecord{ID: uint(len(r.scans))}, nil
}

func (r *mockRecorder) RecordProbes(_ context.Context, _, _ string, _ time.Time, probes []janos.Probe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes = append(r.probes, probes)
	return nil
}

func (r *mockRecorder) Scans() [][]janos.Network {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.scans)
}

func (r *mockRecorder) Probes() [][]janos.Probe {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.probes)
}

// --- Helpers -------------------------------------------------------------

const (
	row1 = `"1","HomeNet","TP-Link","AA:BB:CC:DD:EE:01","6","WPA2","-48","2.4GHz"`
	row2 = `"2","","Unknown","AA:BB:CC:DD:EE:02","36","WPA3","-71","5GHz"`
)

func fastTimings() bridge.Timings {
	return bridge.Timings{
		Scan:     time.Second,
		Collect:  150 * time.Millisecond,
		StopWait: 500 * time.Millisecond,
		Settle:   -1,
	}
}

func newTestController(t *testing.T, port *testutil.FakePort, opts ...bridge.Option) *bridge.Controller {
	t.Helper()
	conn := device.NewConn(port, "/dev/ttyFAKE0", device.ConnOptions{CommandGap: -1})
	opts = append([]bridge.Option{bridge.WithTimings(fastTimings())}, opts...)
	ctrl := bridge.New(conn, opts...)
	t.Cleanup(func() { _ = ctrl.Close(context.Background()) })
	return ctrl
}

func scannedController(t *testing.T, port *testutil.FakePort, opts ...bridge.Option) *bridge.Controller {
	t.Helper()
	port.OnCommand(janos.CmdScanNetworks, "Scanning...", row1, row2, janos.ScanDoneMarker)
	ctrl := newTestController(t, port, opts...)
	if _, err := ctrl.Scan(context.Background(), nil); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	return ctrl
}

func waitForEvent(t *testing.T, ch <-chan event.Event, timeout time.Duration) event.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func subscribe(bus *event.Bus, eventType string) <-chan event.Event {
	ch := make(chan event.Event, 16)
	bus.Subscribe(eventType, func(e event.Event) {
		select {
		case ch <- e:
		default:
		}
	})
	return ch
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// --- Tests ---------------------------------------------------------------

func TestNew_PanicsOnNilLink(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New(nil) did not panic")
		}
	}()
	bridge.New(nil)
}

func TestScan_Completes(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand(janos.CmdScanNetworks, "Scanning...", row1, row2, janos.ScanDoneMarker)
	bus := event.NewBus(nil)
	completed := subscribe(bus, event.TypeScanCompleted)
	rec := &mockRecorder{}
	ctrl := newTestController(t, port, bridge.WithBus(bus), bridge.WithRecorder(rec))

	var seen []string
	res, err := ctrl.Scan(context.Background(), func(n janos.Network) { seen = append(seen, n.SSID) })
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if !res.Completed {
		t.Error("Completed = false, want true")
	}
	if len(res.Networks) != 2 {
		t.Fatalf("got %d networks, want 2", len(res.Networks))
	}
	if !slices.Equal(seen, []string{"HomeNet", janos.HiddenSSID}) {
		t.Errorf("progress saw %q", seen)
	}
	if !ctrl.ScanDone() || len(ctrl.Networks()) != 2 {
		t.Errorf("controller state not updated: done=%v networks=%d", ctrl.ScanDone(), len(ctrl.Networks()))
	}

	e := waitForEvent(t, completed, time.Second).(event.ScanCompletedEvent)
	if e.NetworkCount != 2 || !e.Completed {
		t.Errorf("ScanCompletedEvent = %+v", e)
	}
	if scans := rec.Scans(); len(scans) != 1 || len(scans[0]) != 2 {
		t.Errorf("recorder got %v", scans)
	}
}

func TestScan_TimesOutKeepingRows(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand(janos.CmdScanNetworks, row1)
	ctrl := newTestController(t, port, bridge.WithTimings(bridge.Timings{Scan: 200 * time.Millisecond}))

	res, err := ctrl.Scan(context.Background(), nil)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if res.Completed {
		t.Error("Completed = true without the done marker")
	}
	if len(res.Networks) != 1 {
		t.Errorf("got %d networks, want 1", len(res.Networks))
	}
	if ctrl.ScanDone() {
		t.Error("ScanDone() = true after timeout")
	}
}

func TestScan_ClosedMidScan(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand(janos.CmdScanNetworks, row1)
	bus := event.NewBus(nil)
	completed := subscribe(bus, event.TypeScanCompleted)
	rec := &mockRecorder{}
	ctrl := newTestController(t, port, bridge.WithBus(bus), bridge.WithRecorder(rec),
		bridge.WithTimings(bridge.Timings{Scan: 5 * time.Second}))

	type result struct {
		res *bridge.ScanResult
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := ctrl.Scan(context.Background(), nil)
		done <- result{res, err}
	}()
	port.WaitForCommand(t, janos.CmdScanNetworks, time.Second)
	if err := ctrl.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	select {
	case r := <-done:
		if !errors.Is(r.err, janoserrors.ErrNotConnected) {
			t.Fatalf("Scan() = %+v, %v; want ErrNotConnected", r.res, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Scan did not return after Close")
	}
	if scans := rec.Scans(); len(scans) != 0 {
		t.Errorf("recorder got %d scans after close, want 0", len(scans))
	}
	select {
	case e := <-completed:
		t.Errorf("scan.completed published after close: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScan_RefusedWhileSniffing(t *testing.T) {
	port := testutil.NewFakePort()
	ctrl := newTestController(t, port)
	if _, err := ctrl.StartSniffer(context.Background()); err != nil {
		t.Fatalf("StartSniffer() error: %v", err)
	}

	if _, err := ctrl.Scan(context.Background(), nil); !errors.Is(err, janoserrors.ErrSnifferRunning) {
		t.Fatalf("Scan() error = %v, want ErrSnifferRunning", err)
	}
}

func TestSelect(t *testing.T) {
	t.Run("requires scan", func(t *testing.T) {
		ctrl := newTestController(t, testutil.NewFakePort())
		if _, err := ctrl.Select(context.Background(), "1"); !errors.Is(err, janoserrors.ErrNoNetworks) {
			t.Fatalf("Select() error = %v, want ErrNoNetworks", err)
		}
	})

	t.Run("all", func(t *testing.T) {
		port := testutil.NewFakePort()
		bus := event.NewBus(nil)
		changed := subscribe(bus, event.TypeSelectionChanged)
		ctrl := scannedController(t, port, bridge.WithBus(bus))

		got, err := ctrl.Select(context.Background(), "all")
		if err != nil {
			t.Fatalf("Select() error: %v", err)
		}
		if !slices.Equal(got, []int{1, 2}) || !slices.Equal(ctrl.Selected(), []int{1, 2}) {
			t.Errorf("Select() = %v, Selected() = %v", got, ctrl.Selected())
		}
		port.WaitForCommand(t, "select_networks 1 2", time.Second)
		e := waitForEvent(t, changed, time.Second).(event.SelectionChangedEvent)
		if !slices.Equal(e.Indices, []int{1, 2}) {
			t.Errorf("SelectionChangedEvent.Indices = %v", e.Indices)
		}
	})

	t.Run("invalid input sends nothing", func(t *testing.T) {
		port := testutil.NewFakePort()
		ctrl := scannedController(t, port)

		if _, err := ctrl.Select(context.Background(), "1 9"); !errors.Is(err, janoserrors.ErrInvalidSelection) {
			t.Fatalf("Select() error = %v, want ErrInvalidSelection", err)
		}
		if cmds := port.Commands(); len(cmds) != 1 {
			t.Errorf("commands = %q, want only the scan", cmds)
		}
	})
}

func TestSniffer_Lifecycle(t *testing.T) {
	port := testutil.NewFakePort()
	bus := event.NewBus(nil)
	stopped := subscribe(bus, event.TypeSnifferStopped)
	ctrl := newTestController(t, port, bridge.WithBus(bus))
	ctx := context.Background()

	if _, err := ctrl.StopSniffer(ctx); !errors.Is(err, janoserrors.ErrSnifferNotRunning) {
		t.Fatalf("StopSniffer() before start error = %v", err)
	}

	noScan, err := ctrl.StartSniffer(ctx)
	if err != nil {
		t.Fatalf("StartSniffer() error: %v", err)
	}
	if noScan {
		t.Error("noScan = true without a prior scan")
	}
	port.WaitForCommand(t, janos.CmdStartSniffer, time.Second)
	if !ctrl.SnifferRunning() || !slices.Equal(ctrl.Running(), []string{"sniffer"}) {
		t.Error("sniffer not reported running")
	}

	if _, err := ctrl.StartSniffer(ctx); !errors.Is(err, janoserrors.ErrSnifferRunning) {
		t.Errorf("second StartSniffer() error = %v, want ErrSnifferRunning", err)
	}

	port.Emit("Sniffer: 10 packets", "noise", "Captured: 42")
	waitFor(t, "packet count 42", func() bool { return ctrl.Packets() == 42 })

	packets, err := ctrl.StopSniffer(ctx)
	if err != nil {
		t.Fatalf("StopSniffer() error: %v", err)
	}
	if packets != 42 {
		t.Errorf("StopSniffer() = %d, want 42", packets)
	}
	port.WaitForCommand(t, janos.CmdStop, time.Second)
	if ctrl.SnifferRunning() {
		t.Error("sniffer still running after stop")
	}
	e := waitForEvent(t, stopped, time.Second).(event.SnifferStoppedEvent)
	if e.Packets != 42 {
		t.Errorf("SnifferStoppedEvent.Packets = %d", e.Packets)
	}
}

func TestSniffer_StopRetriesFailedWrite(t *testing.T) {
	tests := []struct {
		name     string
		failures []error
		wantErr  bool
		wantStop bool
	}{
		{"one failed write", []error{errors.New("usb hiccup")}, false, true},
		{"persistent failure", nil, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := testutil.NewFakePort()
			ctrl := newTestController(t, port)
			ctx := context.Background()
			if _, err := ctrl.StartSniffer(ctx); err != nil {
				t.Fatalf("StartSniffer() error: %v", err)
			}

			if tt.failures != nil {
				port.FailNextWrite(tt.failures[0])
			} else {
				port.FailWrites(errors.New("device gone"))
				defer port.FailWrites(nil)
			}
			_, err := ctrl.StopSniffer(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("StopSniffer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := slices.Contains(port.Commands(), janos.CmdStop); got != tt.wantStop {
				t.Errorf("stop reached the board = %v, want %v (commands %q)", got, tt.wantStop, port.Commands())
			}
			if ctrl.SnifferRunning() {
				t.Error("sniffer still marked running")
			}
		})
	}
}

func TestSniffer_NoScanAfterScan(t *testing.T) {
	port := testutil.NewFakePort()
	ctrl := scannedController(t, port)

	noScan, err := ctrl.StartSniffer(context.Background())
	if err != nil {
		t.Fatalf("StartSniffer() error: %v", err)
	}
	if !noScan {
		t.Error("noScan = false with networks from a scan")
	}
	port.WaitForCommand(t, janos.CmdStartSnifferNoScan, time.Second)
}

func TestProbes_StopsSnifferFirst(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand(janos.CmdShowProbes,
		"Probe requests:",
		"Client: 11:22:33:44:55:66, SSID: Guest, RSSI: -60 dBm",
		"AA:BB:CC:DD:EE:FF -> Office (-72dBm)",
		"Total: 2",
	)
	rec := &mockRecorder{}
	ctrl := newTestController(t, port, bridge.WithRecorder(rec))
	ctx := context.Background()

	if _, err := ctrl.StartSniffer(ctx); err != nil {
		t.Fatalf("StartSniffer() error: %v", err)
	}
	probes, err := ctrl.Probes(ctx)
	if err != nil {
		t.Fatalf("Probes() error: %v", err)
	}
	if len(probes) != 2 {
		t.Fatalf("got %d probes, want 2: %+v", len(probes), probes)
	}
	if probes[0].SSID != "Guest" || probes[1].SSID != "Office" {
		t.Errorf("probes = %+v", probes)
	}

	want := []string{janos.CmdStartSniffer, janos.CmdStop, janos.CmdShowProbes}
	if got := port.Commands(); !slices.Equal(got, want) {
		t.Errorf("commands = %q, want %q", got, want)
	}
	if ctrl.SnifferRunning() {
		t.Error("sniffer still running")
	}
	if got := rec.Probes(); len(got) != 1 || len(got[0]) != 2 {
		t.Errorf("recorder got %v", got)
	}
}

func TestSnifferResults(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand(janos.CmdShowSnifferResults,
		"Sniffer results:",
		"BEACON AA:BB:CC:DD:EE:01 FF:FF:FF:FF:FF:FF 128 HomeNet",
		"DATA 11:22:33:44:55:66 AA:BB:CC:DD:EE:01 1500 qos",
		"Total packets: 2",
	)
	ctrl := newTestController(t, port)

	res, err := ctrl.SnifferResults(context.Background())
	if err != nil {
		t.Fatalf("SnifferResults() error: %v", err)
	}
	if len(res.Packets) != 2 {
		t.Fatalf("got %d packets, want 2", len(res.Packets))
	}
	if res.Packets[0].Kind != janos.KindBeacon || res.Packets[1].Kind != janos.KindData {
		t.Errorf("kinds = %s, %s", res.Packets[0].Kind, res.Packets[1].Kind)
	}
	if len(res.Other) != 2 {
		t.Errorf("Other = %q, want the two header lines", res.Other)
	}
}

func TestPingAndListSD(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand("ping 8.8.8.8", "64 bytes from 8.8.8.8: time=20ms")
	port.OnCommand(janos.CmdListSD, "SD card files:", "1 index.html", "2 capture.pcap")
	ctrl := newTestController(t, port)
	ctx := context.Background()

	reply, err := ctrl.Ping(ctx, "8.8.8.8")
	if err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
	if len(reply.Lines) != 1 {
		t.Errorf("Ping() lines = %q", reply.Lines)
	}
	if _, err := ctrl.Ping(ctx, "bad host"); !errors.Is(err, janoserrors.ErrInvalidInput) {
		t.Errorf("Ping(bad host) error = %v, want validation error", err)
	}

	entries, reply, err := ctrl.ListSD(ctx)
	if err != nil {
		t.Fatalf("ListSD() error: %v", err)
	}
	if len(entries) != 2 || entries[1].Name != "capture.pcap" {
		t.Errorf("ListSD() entries = %+v", entries)
	}
	if len(reply.Lines) != 3 {
		t.Errorf("ListSD() reply lines = %q", reply.Lines)
	}
}

func TestSend_Raw(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand("help", "commands: scan_networks ...")
	ctrl := newTestController(t, port)
	ctx := context.Background()

	reply, err := ctrl.Send(ctx, "  help ")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if reply.Command != "help" || len(reply.Lines) != 1 {
		t.Errorf("Send() = %+v", reply)
	}
	if _, err := ctrl.Send(ctx, ""); !errors.Is(err, janoserrors.ErrInvalidCommand) {
		t.Errorf("Send(\"\") error = %v, want ErrInvalidCommand", err)
	}

	if _, err := ctrl.StartSniffer(ctx); err != nil {
		t.Fatalf("StartSniffer() error: %v", err)
	}
	if _, err := ctrl.Send(ctx, "stop"); err != nil {
		t.Fatalf("Send(stop) error: %v", err)
	}
	if ctrl.SnifferRunning() {
		t.Error("raw stop did not end the sniffer")
	}
}

func TestReboot_ClearsState(t *testing.T) {
	port := testutil.NewFakePort()
	port.OnCommand(janos.CmdReboot, "ets Jul 29 2019 12:21:46", "JanOS ready")
	ctrl := scannedController(t, port)

	reply, err := ctrl.Reboot(context.Background())
	if err != nil {
		t.Fatalf("Reboot() error: %v", err)
	}
	if len(reply.Lines) != 2 {
		t.Errorf("Reboot() lines = %q", reply.Lines)
	}
	if len(ctrl.Networks()) != 0 || ctrl.ScanDone() {
		t.Error("scan state survived reboot")
	}
}

func TestClose_StopsSnifferAndIsIdempotent(t *testing.T) {
	port := testutil.NewFakePort()
	bus := event.NewBus(nil)
	disconnected := subscribe(bus, event.TypeDeviceDisconnected)
	ctrl := newTestController(t, port, bridge.WithBus(bus))
	ctx := context.Background()

	if _, err := ctrl.StartSniffer(ctx); err != nil {
		t.Fatalf("StartSniffer() error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := ctrl.Close(ctx); err != nil {
			t.Fatalf("Close() #%d error: %v", i+1, err)
		}
	}

	if got := port.Commands(); !slices.Equal(got, []string{janos.CmdStartSniffer, janos.CmdStop}) {
		t.Errorf("commands = %q", got)
	}
	if !port.Closed() {
		t.Error("port not closed")
	}
	select {
	case <-ctrl.Done():
	default:
		t.Error("Done() not closed")
	}
	if e := waitForEvent(t, disconnected, time.Second).(event.DeviceDisconnectedEvent); e.Err != nil {
		t.Errorf("orderly close reported error %v", e.Err)
	}
	if _, err := ctrl.Scan(ctx, nil); !errors.Is(err, janoserrors.ErrNotConnected) {
		t.Errorf("Scan() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestStopAll_NothingRunning(t *testing.T) {
	port := testutil.NewFakePort()
	ctrl := newTestController(t, port)

	if err := ctrl.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll() error: %v", err)
	}
	if len(port.Commands()) != 0 {
		t.Errorf("StopAll() sent %q with nothing running", port.Commands())
	}
}
