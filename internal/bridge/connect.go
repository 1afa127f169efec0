package bridge

import (
	"context"
	"time"

	"github.com/D3h420/janos-app/internal/device"
	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/history"
	"github.com/D3h420/janos-app/internal/logging"
	"github.com/D3h420/janos-app/internal/privilege"
	"github.com/D3h420/janos-app/internal/serialport"
	"github.com/D3h420/janos-app/internal/session"
)

// openRetryDelay is the pause before the single retry of a busy device.
const openRetryDelay = 250 * time.Millisecond

// Opener opens a serial device. serialport.Open is the default.
type Opener func(path string, opts serialport.Options) (serialport.Port, error)

// LogOptions controls the per-session bridge.log.
type LogOptions struct {
	Enabled  bool
	Level    string
	Rotation logging.RotationConfig
}

// ConnectOptions configures Connect.
type ConnectOptions struct {
	Device string
	// DataDir holds sessions, locks, logs and history. Empty keeps
	// everything in memory and takes no device lock.
	DataDir      string
	Serial       serialport.Options
	CommandGap   time.Duration
	WriteTimeout time.Duration
	Timings      Timings
	Logging      LogOptions
	History      bool
	Bus          *event.Bus
	Opener       Opener
}

// Connect opens the device and returns a Controller for it. It creates and
// saves a session, takes the device lock and, when enabled, opens the
// session log and the history database. Everything acquired is released by
// Controller.Close, or immediately if Connect fails.
func Connect(ctx context.Context, opts ConnectOptions) (*Controller, error) {
	if opts.Device == "" {
		return nil, janoserrors.NewValidationError("device is required").WithField("device")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Opener == nil {
		opts.Opener = serialport.Open
	}
	if opts.Serial.BaudRate == 0 {
		opts.Serial.BaudRate = serialport.DefaultBaudRate
	}

	sess := session.New(opts.Device, opts.Serial.BaudRate)
	var cleanup []func() error
	release := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			_ = cleanup[i]()
		}
	}

	var store *session.Store
	logger := logging.NopLogger()
	if opts.DataDir != "" {
		var err error
		store, err = session.NewStore(opts.DataDir)
		if err != nil {
			return nil, err
		}
		if opts.Logging.Enabled {
			l, err := logging.NewLogger(store.SessionDir(sess.ID), opts.Logging.Level, opts.Logging.Rotation)
			if err != nil {
				return nil, err
			}
			logger = l
			cleanup = append(cleanup, l.Close)
		}
	}
	logger = logger.WithSession(sess.ID).WithDevice(opts.Device)

	if st := privilege.Check(); !st.Sufficient() {
		logger.Warn("insufficient privileges for serial access", "uid", st.UID, "group", st.SerialGroup)
	}

	if store != nil {
		lock, err := session.AcquireDeviceLock(session.GetLocksDir(opts.DataDir), opts.Device, sess.ID, logger)
		if err != nil {
			release()
			return nil, err
		}
		cleanup = append(cleanup, lock.Release)
	}

	port, err := openDevice(ctx, opts, logger)
	if err != nil {
		logger.Error("failed to open device", "error", err)
		if store != nil {
			sess.LastError = err.Error()
			sess.End()
			_ = store.Save(ctx, sess)
		}
		release()
		return nil, err
	}

	lost := make(chan error, 1)
	conn := device.NewConn(port, opts.Device, device.ConnOptions{
		CommandGap:   opts.CommandGap,
		WriteTimeout: opts.WriteTimeout,
		Logger:       logger,
		OnError: func(err error) {
			select {
			case lost <- err:
			default:
			}
		},
	})

	ctrlOpts := []Option{
		WithTimings(opts.Timings),
		WithLogger(logger),
		WithBus(opts.Bus),
		WithSession(store, sess),
	}
	if opts.History && opts.DataDir != "" {
		hist, err := history.OpenInDataDir(opts.DataDir)
		if err != nil {
			logger.Warn("history disabled", "error", err)
		} else {
			ctrlOpts = append(ctrlOpts, WithRecorder(hist))
			cleanup = append(cleanup, hist.Close)
		}
	}

	ctrl := New(conn, ctrlOpts...)
	ctrl.onClose = cleanup

	if store != nil {
		if err := store.Create(ctx, sess); err != nil {
			logger.Warn("failed to save session", "error", err)
		}
	}
	logger.Info("device connected", "baud", opts.Serial.BaudRate)
	ctrl.publish(event.NewDeviceConnectedEvent(opts.Device, sess.ID, opts.Serial.BaudRate))

	go func() {
		select {
		case err := <-lost:
			ctrl.linkLost(err)
		case <-ctrl.Done():
		}
	}()

	return ctrl, nil
}

// openDevice opens the port, retrying once when the failure is retryable. A
// board that was just released by another program is often still busy for a
// moment.
func openDevice(ctx context.Context, opts ConnectOptions, logger *logging.Logger) (serialport.Port, error) {
	port, err := opts.Opener(opts.Device, opts.Serial)
	if err == nil || !janoserrors.IsRetryable(err) {
		return port, err
	}
	logger.Warn("device open failed, retrying", "error", err, "delay", openRetryDelay)

	timer := time.NewTimer(openRetryDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return opts.Opener(opts.Device, opts.Serial)
}
