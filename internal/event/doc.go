// Package event provides a synchronous pub-sub bus for janos.
//
// The bridge controller publishes what happens on the serial link (device
// connected, command sent, scan finished, sniffer counters) and consumers
// subscribe without the controller knowing about them: the TUI turns events
// into tea messages, the history recorder persists scans, and the CLI prints
// progress.
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine, so they must not block. A panicking handler is
// recovered and logged; the remaining handlers still run.
//
// # Usage
//
//	bus := event.NewBus(logger)
//	bus.Subscribe(event.TypeSnifferPackets, func(e event.Event) {
//	    p := e.(event.SnifferPacketsEvent)
//	    fmt.Printf("\r%d packets", p.Count)
//	})
//	bus.Publish(event.NewSnifferPacketsEvent("/dev/ttyUSB0", 42))
//
// Event types follow the pattern "category.action": device.connected,
// command.sent, scan.completed, sniffer.packets, and so on.
package event
