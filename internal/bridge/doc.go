// Package bridge is the stateful core of janos: one Controller drives one
// JanOS board over a line-protocol link.
//
// The Controller remembers the last scan and selection, follows the sniffer's
// output in a background goroutine to keep a live packet count, and turns
// each menu action into the command/response exchange the firmware expects.
// It publishes progress on an [event.Bus] and, when a [Recorder] is attached,
// writes scans and probe captures to history.
//
// The Controller depends on the narrow [Link] interface rather than on a
// serial port, so tests drive it with an in-memory fake.
//
// Lifecycle:
//
//	ctrl, err := bridge.Connect(ctx, bridge.ConnectOptions{Device: "/dev/ttyUSB0", ...})
//	defer ctrl.Close(ctx) // stops running activities, releases the device lock
//	res, err := ctrl.Scan(ctx, nil)
//	_, err = ctrl.Select(ctx, "1 3")
//	err = ctrl.StartSniffer(ctx)
package bridge
