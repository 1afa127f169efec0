package serialport

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDir is where device nodes appear on Unix systems.
const DefaultWatchDir = "/dev"

// IsSerialName reports whether a device node name looks like a serial port.
func IsSerialName(name string) bool {
	base := filepath.Base(name)
	for _, prefix := range []string{"ttyUSB", "ttyACM", "cu.", "tty.usb", "ttyS", "rfcomm"} {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}
	return false
}

// Watch notifies on the returned channel whenever a serial device node is
// created or removed in dir. Bursts are coalesced: the channel has room for one
// pending notification. The channel is closed when ctx ends.
func Watch(ctx context.Context, dir string, filter *Filter) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) {
					continue
				}
				if !IsSerialName(ev.Name) || !filter.Match(ev.Name) {
					continue
				}
				select {
				case changes <- struct{}{}:
				default:
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return changes, nil
}
