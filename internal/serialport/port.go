// Package serialport finds JanOS boards on the host and opens the serial link
// to them.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.bug.st/serial"

	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/privilege"
)

// DefaultBaudRate is the speed of the JanOS console.
const DefaultBaudRate = 115200

// Port is the subset of a serial port the bridge needs. go.bug.st/serial
// ports satisfy it; tests substitute an in-memory fake.
type Port interface {
	io.ReadWriteCloser
	// Drain blocks until everything written has been transmitted.
	Drain() error
	ResetInputBuffer() error
	ResetOutputBuffer() error
	// SetReadTimeout bounds each Read; a Read that times out returns 0, nil.
	SetReadTimeout(t time.Duration) error
}

// Options configures Open.
type Options struct {
	BaudRate    int
	ReadTimeout time.Duration
}

// DefaultOptions returns 115200-8N1 with a 2s read timeout.
func DefaultOptions() Options {
	return Options{
		BaudRate:    DefaultBaudRate,
		ReadTimeout: 2 * time.Second,
	}
}

// Open validates path, opens it at 8N1 and resets both buffers so stale
// firmware output is not mistaken for a reply.
func Open(path string, opts Options) (Port, error) {
	if opts.BaudRate == 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultOptions().ReadTimeout
	}

	if err := CheckAccess(path); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, classifyOpenError(path, err)
	}

	if err := p.SetReadTimeout(opts.ReadTimeout); err != nil {
		p.Close()
		return nil, janoserrors.NewDeviceError("failed to set read timeout", err).WithDevice(path)
	}
	// Some USB-UART drivers reject buffer resets; the link still works
	_ = p.ResetInputBuffer()
	_ = p.ResetOutputBuffer()

	return p, nil
}

// CheckAccess reports whether path exists and is readable and writable by
// this process, with an actionable message when it is not.
func CheckAccess(path string) error {
	if path == "" {
		return janoserrors.NewDeviceError("no device given", janoserrors.ErrDeviceNotFound)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return janoserrors.NewDeviceError("device does not exist", janoserrors.ErrDeviceNotFound).WithDevice(path)
		}
		return janoserrors.NewDeviceError("failed to stat device", err).WithDevice(path)
	}
	if err := accessRW(path); err != nil {
		return permissionError(path)
	}
	return nil
}

func permissionError(path string) error {
	return janoserrors.NewDeviceError(
		fmt.Sprintf("no read/write access; %s", privilege.Hint()),
		janoserrors.ErrPermissionDenied,
	).WithDevice(path)
}

func classifyOpenError(path string, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PermissionDenied:
			return permissionError(path)
		case serial.PortNotFound:
			return janoserrors.NewDeviceError("device does not exist", janoserrors.ErrDeviceNotFound).WithDevice(path)
		case serial.PortBusy:
			return janoserrors.NewDeviceError("device is busy (another program has it open)", err).
				WithDevice(path).WithRetryable(true).WithSeverity(janoserrors.SeverityWarning)
		case serial.InvalidSpeed:
			return janoserrors.NewDeviceError("unsupported baud rate", janoserrors.ErrInvalidInput).WithDevice(path)
		}
	}
	if os.IsPermission(err) {
		return permissionError(path)
	}
	return janoserrors.NewDeviceError("failed to open serial port", err).WithDevice(path)
}
