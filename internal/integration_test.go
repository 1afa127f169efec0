// Package internal contains integration tests that drive a bridge against a
// scripted board and check that events, session state, locks and history
// agree afterwards.
package internal

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/D3h420/janos-app/internal/bridge"
	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/history"
	"github.com/D3h420/janos-app/internal/janos"
	"github.com/D3h420/janos-app/internal/serialport"
	"github.com/D3h420/janos-app/internal/session"
	"github.com/D3h420/janos-app/internal/testutil"
)

const device = "/dev/ttyFAKE0"

type recorder struct {
	mu    sync.Mutex
	types []string
}

func (r *recorder) handle(e event.Event) {
	r.mu.Lock()
	r.types = append(r.types, e.EventType())
	r.mu.Unlock()
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.types)
}

func (r *recorder) waitFor(t *testing.T, eventType string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if slices.Contains(r.seen(), eventType) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no %s event; got %v", eventType, r.seen())
}

func TestBridgeSessionLifecycle(t *testing.T) {
	dataDir := t.TempDir()
	ctx := context.Background()

	port := testutil.NewFakePort()
	port.OnCommand(janos.CmdScanNetworks,
		"Scanning...",
		`"1","HomeNet","TP-Link","AA:BB:CC:DD:EE:01","6","WPA2","-48","2.4GHz"`,
		`"2","","Unknown","AA:BB:CC:DD:EE:02","36","WPA3","-71","5GHz"`,
		janos.ScanDoneMarker)

	bus := event.NewBus(nil)
	rec := &recorder{}
	bus.SubscribeAll(rec.handle)

	ctrl, err := bridge.Connect(ctx, bridge.ConnectOptions{
		Device:     device,
		DataDir:    dataDir,
		CommandGap: -1,
		Timings: bridge.Timings{
			Scan:     time.Second,
			Collect:  150 * time.Millisecond,
			StopWait: 500 * time.Millisecond,
			Settle:   -1,
		},
		History: true,
		Bus:     bus,
		Opener: func(string, serialport.Options) (serialport.Port, error) {
			return port, nil
		},
	})
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	sessionID := ctrl.SessionID()

	res, err := ctrl.Scan(ctx, nil)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if !res.Completed || len(res.Networks) != 2 {
		t.Fatalf("Scan() = %+v, want two networks", res)
	}
	if _, err := ctrl.Select(ctx, "2"); err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if err := ctrl.Close(ctx); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	rec.waitFor(t, event.TypeDeviceDisconnected)

	// Events arrive in the order the operations ran.
	order := []string{
		event.TypeDeviceConnected,
		event.TypeScanCompleted,
		event.TypeSelectionChanged,
		event.TypeDeviceDisconnected,
	}
	seen := rec.seen()
	last := -1
	for _, typ := range order {
		i := slices.Index(seen, typ)
		if i < 0 || i < last {
			t.Fatalf("event %s out of order in %v", typ, seen)
		}
		last = i
	}

	// The lock is released and the session is marked ended.
	if _, locked := session.IsDeviceLocked(session.GetLocksDir(dataDir), device); locked {
		t.Error("device still locked after Close()")
	}
	info, err := session.GetSessionInfo(dataDir, sessionID)
	if err != nil {
		t.Fatalf("GetSessionInfo() error: %v", err)
	}
	if info.EndedAt == nil || info.Scans != 1 || info.Networks != 2 {
		t.Errorf("session info = %+v, want ended with 1 scan and 2 networks", info)
	}

	// The scan landed in the history database.
	store, err := history.OpenInDataDir(dataDir)
	if err != nil {
		t.Fatalf("OpenInDataDir() error: %v", err)
	}
	defer store.Close()
	scans, err := store.RecentScans(ctx, 0)
	if err != nil {
		t.Fatalf("RecentScans() error: %v", err)
	}
	if len(scans) != 1 || scans[0].SessionID != sessionID || scans[0].NetworkCount != 2 {
		t.Fatalf("RecentScans() = %+v", scans)
	}
	networks, err := store.Networks(ctx, scans[0].ID)
	if err != nil || len(networks) != 2 {
		t.Fatalf("Networks() = %v, %v", networks, err)
	}
}
