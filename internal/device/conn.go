// Package device speaks the JanOS line protocol over a serial port.
//
// A Conn owns one port. A single reader goroutine splits incoming bytes into
// trimmed text lines and fans them out to subscribers; writers are serialised
// so command lines never interleave. Every command is followed by the short
// pause the firmware needs before it accepts the next one.
//
// Typical use:
//
//	conn := device.NewConn(port, "/dev/ttyUSB0", device.ConnOptions{})
//	defer conn.Close()
//	lines, done, err := conn.Exchange(ctx, "scan_networks", 15*time.Second,
//		func(l string) bool { return l == "Scan results printed" })
package device

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/logging"
	"github.com/D3h420/janos-app/internal/serialport"
)

const (
	// DefaultCommandGap is the pause after each command.
	DefaultCommandGap = 100 * time.Millisecond
	// DefaultWriteTimeout bounds a write plus drain.
	DefaultWriteTimeout = 2 * time.Second

	subscriberBuffer = 1024
	readChunk        = 512
	// maxLineLength caps an unterminated line; longer output is delivered in
	// maxLineLength pieces.
	maxLineLength = bufio.MaxScanTokenSize
	closeWait        = 3 * time.Second
)

// ConnOptions configures a Conn. Zero values select the defaults.
type ConnOptions struct {
	CommandGap   time.Duration
	WriteTimeout time.Duration
	Logger       *logging.Logger
	// OnError is called once, from the reader goroutine, when the port fails.
	OnError func(error)
}

// Conn is a line-oriented connection to a JanOS board.
type Conn struct {
	port   serialport.Port
	device string
	opts   ConnOptions
	logger *logging.Logger

	// writing is a one-slot semaphore serialising writes. Unlike a mutex it
	// can be waited on with a context.
	writing chan struct{}

	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	closed  bool
	readErr error

	done       chan struct{}
	readerDone chan struct{}
	closeOnce  sync.Once
}

// NewConn starts the reader goroutine on port.
func NewConn(port serialport.Port, device string, opts ConnOptions) *Conn {
	if opts.CommandGap < 0 {
		opts.CommandGap = 0
	} else if opts.CommandGap == 0 {
		opts.CommandGap = DefaultCommandGap
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	c := &Conn{
		port:       port,
		device:     device,
		opts:       opts,
		logger:     logger.WithComponent("device").WithDevice(device),
		writing:    make(chan struct{}, 1),
		subs:       make(map[*Subscription]struct{}),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Device returns the device path this Conn was opened on.
func (c *Conn) Device() string {
	return c.device
}

// Err returns the read error that stopped the reader, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Closed reports whether the connection was closed or lost.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || c.readErr != nil
}

func (c *Conn) readLoop() {
	defer close(c.readerDone)

	buf := make([]byte, readChunk)
	var partial []byte
	for {
		select {
		case <-c.done:
			return
		default:
		}

		n, err := c.port.Read(buf)
		if n > 0 {
			partial = append(partial, buf[:n]...)
			for {
				i := bytes.IndexByte(partial, '\n')
				if i < 0 {
					break
				}
				c.dispatch(partial[:i])
				partial = partial[i+1:]
			}
			for len(partial) >= maxLineLength {
				c.logger.Warn("line exceeds maximum length, splitting", "limit", maxLineLength)
				c.dispatch(partial[:maxLineLength])
				partial = partial[maxLineLength:]
			}
			// Compact so the consumed prefix of a long line is released.
			if cap(partial) > maxLineLength && len(partial) < cap(partial)/4 {
				partial = append([]byte(nil), partial...)
			}
		}
		if err != nil {
			select {
			case <-c.done:
				// Close raced the read; the port error is expected.
				return
			default:
			}
			c.fail(err)
			return
		}
	}
}

func (c *Conn) dispatch(raw []byte) {
	line := strings.TrimSpace(strings.ToValidUTF8(string(raw), "�"))
	if line == "" {
		return
	}
	c.logger.Debug("line received", "line", line)

	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.subs {
		select {
		case s.ch <- line:
		default:
			c.logger.Warn("subscriber full, line dropped", "line", line)
		}
	}
}

func (c *Conn) fail(err error) {
	wrapped := janoserrors.NewDeviceError("serial read failed", fmt.Errorf("%w: %w", janoserrors.ErrReadFailed, err)).
		WithDevice(c.device)

	c.mu.Lock()
	c.readErr = wrapped
	c.closeSubsLocked()
	c.mu.Unlock()

	c.logger.Error("reader stopped", "error", err)
	if c.opts.OnError != nil {
		c.opts.OnError(wrapped)
	}
}

func (c *Conn) closeSubsLocked() {
	for s := range c.subs {
		close(s.ch)
		delete(c.subs, s)
	}
}

// Subscribe returns a stream of every line received from now on. The
// channel is closed when the subscription or the connection is closed.
func (c *Conn) Subscribe() *Subscription {
	s := &Subscription{ch: make(chan string, subscriberBuffer), conn: c}
	s.C = s.ch

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.readErr != nil {
		close(s.ch)
		return s
	}
	c.subs[s] = struct{}{}
	return s
}

func (c *Conn) unsubscribe(s *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[s]; ok {
		delete(c.subs, s)
		close(s.ch)
	}
}

// Send writes cmd followed by CRLF, drains the port and waits the command
// gap. Concurrent callers are serialised.
func (c *Conn) Send(ctx context.Context, cmd string) error {
	if strings.ContainsAny(cmd, "\r\n") {
		return janoserrors.NewDeviceError("command must be a single line", janoserrors.ErrInvalidCommand).
			WithDevice(c.device).WithCommand(cmd)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// The write slot is held until the write goroutine finishes, even when
	// Send returns early on a timeout or cancellation, so writes never
	// interleave.
	select {
	case c.writing <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	release := true
	defer func() {
		if release {
			<-c.writing
		}
	}()

	if c.Closed() {
		if err := c.Err(); err != nil {
			return janoserrors.NewDeviceError("connection lost", fmt.Errorf("%w: %w", janoserrors.ErrNotConnected, err)).
				WithDevice(c.device).WithCommand(cmd)
		}
		return janoserrors.NewDeviceError("connection closed", janoserrors.ErrNotConnected).
			WithDevice(c.device).WithCommand(cmd)
	}

	result := make(chan error, 1)
	go func() {
		if _, err := c.port.Write([]byte(cmd + "\r\n")); err != nil {
			result <- err
			return
		}
		result <- c.port.Drain()
	}()

	timer := time.NewTimer(c.opts.WriteTimeout)
	defer timer.Stop()
	select {
	case err := <-result:
		if err != nil {
			c.logger.Error("command write failed", "command", cmd, "error", err)
			return janoserrors.NewDeviceError("failed to send command", fmt.Errorf("%w: %w", janoserrors.ErrWriteFailed, err)).
				WithDevice(c.device).WithCommand(cmd).WithRetryable(true)
		}
	case <-timer.C:
		release = false
		go c.unlockAfter(result)
		c.logger.Error("command write timed out", "command", cmd, "timeout", c.opts.WriteTimeout)
		return janoserrors.NewDeviceError("failed to send command",
			janoserrors.NewTimeoutError("write "+cmd, c.opts.WriteTimeout)).
			WithDevice(c.device).WithCommand(cmd)
	case <-ctx.Done():
		release = false
		go c.unlockAfter(result)
		return ctx.Err()
	}
	c.logger.Debug("command sent", "command", cmd)

	if c.opts.CommandGap > 0 {
		gap := time.NewTimer(c.opts.CommandGap)
		defer gap.Stop()
		select {
		case <-gap.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// unlockAfter frees the write slot once an abandoned write completes.
func (c *Conn) unlockAfter(result <-chan error) {
	if err := <-result; err != nil {
		c.logger.Warn("abandoned command write failed", "error", err)
	}
	<-c.writing
}

// Exchange subscribes, sends cmd and collects the reply. With until nil it
// collects for the whole window; otherwise it stops at the first line until
// accepts and reports done=true. Lines printed between subscribing and the
// write are included.
func (c *Conn) Exchange(ctx context.Context, cmd string, window time.Duration, until func(string) bool) ([]string, bool, error) {
	sub := c.Subscribe()
	defer sub.Close()

	if err := c.Send(ctx, cmd); err != nil {
		return nil, false, err
	}
	return sub.CollectUntil(ctx, window, until)
}

// Close stops the reader and closes the port. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.closeSubsLocked()
		c.mu.Unlock()

		close(c.done)
		err = c.port.Close()

		select {
		case <-c.readerDone:
		case <-time.After(closeWait):
			c.logger.Warn("reader did not exit after close")
		}
		c.logger.Info("connection closed")
	})
	return err
}

// Subscription is a stream of received lines.
type Subscription struct {
	// C delivers lines in arrival order.
	C <-chan string

	ch   chan string
	conn *Conn
	once sync.Once
}

// Close stops delivery. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.conn.unsubscribe(s) })
}

// Collect returns every line received during window.
func (s *Subscription) Collect(ctx context.Context, window time.Duration) ([]string, error) {
	lines, _, err := s.CollectUntil(ctx, window, nil)
	return lines, err
}

// CollectUntil gathers lines until match accepts one (which is included and
// done is true), the window passes, or ctx ends. A connection lost mid-way
// returns the lines gathered so far with the read error.
func (s *Subscription) CollectUntil(ctx context.Context, window time.Duration, match func(string) bool) ([]string, bool, error) {
	timer := time.NewTimer(window)
	defer timer.Stop()

	var lines []string
	for {
		select {
		case line, ok := <-s.C:
			if !ok {
				if err := s.conn.Err(); err != nil {
					return lines, false, err
				}
				return lines, false, nil
			}
			lines = append(lines, line)
			if match != nil && match(line) {
				return lines, true, nil
			}
		case <-timer.C:
			return lines, false, nil
		case <-ctx.Done():
			return lines, false, ctx.Err()
		}
	}
}
