package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/D3h420/janos-app/internal/device"
	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/janos"
	"github.com/D3h420/janos-app/internal/logging"
	"github.com/D3h420/janos-app/internal/session"
)

// Controller drives one JanOS board.
//
// User operations (Scan, Select, Probes, ...) are serialised so their replies
// never interleave. Close may be called concurrently with an operation; the
// operation then fails with ErrNotConnected or returns what it had collected.
type Controller struct {
	link     Link
	device   string
	bus      *event.Bus
	logger   *logging.Logger
	recorder Recorder
	timings  Timings

	store  *session.Store
	sessMu sync.Mutex
	sess   *session.Session

	opMu sync.Mutex

	mu       sync.Mutex
	networks []janos.Network
	scanDone bool
	selected []int
	sniffer  *snifferRun
	packets  int
	closed   bool
	lost     error

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	onClose   []func() error
}

type snifferRun struct {
	sub     *device.Subscription
	noScan  bool
	started time.Time
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// New creates a Controller on link. link must be non-nil.
func New(link Link, opts ...Option) *Controller {
	if link == nil {
		panic("bridge: Link must not be nil")
	}

	cfg := &config{
		timings: DefaultTimings(),
		logger:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NopLogger()
	}

	return &Controller{
		link:     link,
		device:   link.Device(),
		bus:      cfg.bus,
		logger:   cfg.logger.WithComponent("bridge"),
		recorder: cfg.recorder,
		timings:  cfg.timings,
		store:    cfg.store,
		sess:     cfg.session,
		done:     make(chan struct{}),
	}
}

// Device returns the serial device path.
func (c *Controller) Device() string {
	return c.device
}

// SessionID returns the session ID, or "" when no session is attached.
func (c *Controller) SessionID() string {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.ID
}

// Timings returns the firmware waits in use.
func (c *Controller) Timings() Timings {
	return c.timings
}

// Done is closed when the controller is closed.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Networks returns a copy of the networks from the last scan.
func (c *Controller) Networks() []janos.Network {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]janos.Network, len(c.networks))
	copy(out, c.networks)
	return out
}

// ScanDone reports whether the last scan saw the done marker.
func (c *Controller) ScanDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scanDone
}

// Selected returns the network indices last sent with select_networks.
func (c *Controller) Selected() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, len(c.selected))
	copy(out, c.selected)
	return out
}

// SnifferRunning reports whether the sniffer was started and not stopped.
func (c *Controller) SnifferRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sniffer != nil
}

// Packets returns the latest packet count printed by the sniffer.
func (c *Controller) Packets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.packets
}

// Running lists the activities that stopping would end.
func (c *Controller) Running() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	if c.sniffer != nil {
		out = append(out, "sniffer")
	}
	return out
}

// Lost returns the error that ended the link, if the board went away.
func (c *Controller) Lost() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lost
}

func (c *Controller) publish(e event.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}

func (c *Controller) checkOpen(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lost != nil {
		return janoserrors.NewDeviceError("device connection lost", fmt.Errorf("%w: %w", janoserrors.ErrNotConnected, c.lost)).
			WithDevice(c.device).WithCommand(cmd)
	}
	if c.closed {
		return janoserrors.NewDeviceError("controller closed", janoserrors.ErrNotConnected).
			WithDevice(c.device).WithCommand(cmd)
	}
	return nil
}

// updateSession applies fn to the attached session and saves it.
func (c *Controller) updateSession(ctx context.Context, fn func(s *session.Session)) {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()
	if c.sess == nil {
		return
	}
	fn(c.sess)
	if c.store == nil {
		return
	}
	if err := c.store.Save(context.WithoutCancel(ctx), c.sess); err != nil {
		c.logger.Warn("failed to save session", "error", err)
	}
}

func (c *Controller) commandFailed(ctx context.Context, cmd string, err error) {
	c.logger.Error("command failed", "command", cmd, "error", err)
	c.updateSession(ctx, func(s *session.Session) { s.LastError = err.Error() })
}

func (c *Controller) countCommand(ctx context.Context) {
	c.updateSession(ctx, func(s *session.Session) { s.Commands++ })
}

// exchange sends cmd and collects its reply, publishing the command event.
func (c *Controller) exchange(ctx context.Context, cmd string, window time.Duration, until func(string) bool) ([]string, bool, error) {
	lines, done, err := c.link.Exchange(ctx, cmd, window, until)
	if err != nil {
		c.commandFailed(ctx, cmd, err)
		return lines, done, err
	}
	if !done {
		// Close ends the reply early without a read error.
		if err := c.checkOpen(cmd); err != nil {
			return lines, false, err
		}
	}
	c.publish(event.NewCommandSentEvent(c.device, cmd))
	c.countCommand(ctx)
	return lines, done, nil
}

func (c *Controller) send(ctx context.Context, cmd string) error {
	if err := c.link.Send(ctx, cmd); err != nil {
		c.commandFailed(ctx, cmd, err)
		return err
	}
	c.publish(event.NewCommandSentEvent(c.device, cmd))
	c.countCommand(ctx)
	return nil
}

// Scan runs scan_networks and waits for the done marker or the scan timeout.
// progress, if set, is called for every network row as it arrives. A scan
// that times out is not an error: the rows received so far are kept.
func (c *Controller) Scan(ctx context.Context, progress func(janos.Network)) (*ScanResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.checkOpen(janos.CmdScanNetworks); err != nil {
		return nil, err
	}
	if c.SnifferRunning() {
		return nil, janoserrors.NewDeviceError("stop the sniffer before scanning", janoserrors.ErrSnifferRunning).
			WithDevice(c.device).WithCommand(janos.CmdScanNetworks)
	}

	c.mu.Lock()
	c.networks = nil
	c.selected = nil
	c.scanDone = false
	c.mu.Unlock()

	c.logger.Info("scan started", "timeout", c.timings.Scan)
	start := time.Now()

	var nets []janos.Network
	match := func(line string) bool {
		if n, ok := janos.ParseNetwork(line); ok {
			nets = append(nets, n)
			if progress != nil {
				progress(n)
			}
		} else if strings.HasPrefix(line, `"`) {
			c.logger.Warn("skipped scan row", "error",
				janoserrors.NewProtocolError("too few fields", nil).WithCommand(janos.CmdScanNetworks).WithLine(line))
		}
		return strings.Contains(line, janos.ScanDoneMarker)
	}
	lines, completed, err := c.exchange(ctx, janos.CmdScanNetworks, c.timings.Scan, match)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	c.mu.Lock()
	c.networks = nets
	c.scanDone = completed
	c.mu.Unlock()

	if completed {
		c.logger.Info("scan completed", "networks", len(nets), "duration", elapsed)
	} else {
		c.logger.Warn("scan timed out", "networks", len(nets), "timeout", c.timings.Scan)
	}
	c.publish(event.NewScanCompletedEvent(c.device, len(nets), completed, elapsed))
	c.updateSession(ctx, func(s *session.Session) {
		s.Scans++
		s.Networks = len(nets)
	})

	if c.recorder != nil {
		if _, err := c.recorder.RecordScan(ctx, c.SessionID(), c.device, start, elapsed, completed, nets); err != nil {
			c.logger.Warn("failed to record scan", "error", err)
		}
	}

	return &ScanResult{
		Networks:  nets,
		Completed: completed,
		Duration:  elapsed,
		Lines:     lines,
	}, nil
}

// Select parses input ("all" or "1 3 5") against the last scan and sends
// select_networks.
func (c *Controller) Select(ctx context.Context, input string) ([]int, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.checkOpen(janos.CmdSelectNetworks); err != nil {
		return nil, err
	}

	c.mu.Lock()
	count := len(c.networks)
	c.mu.Unlock()
	if count == 0 {
		return nil, fmt.Errorf("run a scan first: %w", janoserrors.ErrNoNetworks)
	}

	indices, err := janos.ParseSelection(input, count)
	if err != nil {
		return nil, err
	}
	cmd, err := janos.SelectNetworks(indices)
	if err != nil {
		return nil, err
	}
	if err := c.send(ctx, cmd); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.selected = indices
	c.mu.Unlock()

	c.logger.Info("networks selected", "indices", indices)
	c.publish(event.NewSelectionChangedEvent(c.device, indices))
	return indices, nil
}

// Reboot sends reboot and returns the boot output seen in the reply window.
// The firmware forgets its scan and stops the sniffer, so local state is
// cleared too.
func (c *Controller) Reboot(ctx context.Context) (*Reply, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.checkOpen(janos.CmdReboot); err != nil {
		return nil, err
	}

	c.mu.Lock()
	run := c.sniffer
	c.mu.Unlock()
	if run != nil {
		c.endSniffer(run)
	}

	lines, _, err := c.exchange(ctx, janos.CmdReboot, c.timings.Collect, nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.networks = nil
	c.selected = nil
	c.scanDone = false
	c.mu.Unlock()

	c.logger.Info("device rebooted")
	return &Reply{Command: janos.CmdReboot, Lines: lines}, nil
}

// Ping asks the board to ping host and returns its output.
func (c *Controller) Ping(ctx context.Context, host string) (*Reply, error) {
	cmd, err := janos.Ping(host)
	if err != nil {
		return nil, err
	}
	return c.collect(ctx, cmd)
}

// ListSD lists the files on the board's SD card. Lines that are not file
// rows are kept in the reply.
func (c *Controller) ListSD(ctx context.Context) ([]janos.SDEntry, *Reply, error) {
	reply, err := c.collect(ctx, janos.CmdListSD)
	if err != nil {
		return nil, nil, err
	}
	var entries []janos.SDEntry
	for _, l := range reply.Lines {
		if e, ok := janos.ParseSDEntry(l); ok {
			entries = append(entries, e)
		}
	}
	return entries, reply, nil
}

// Send relays a free-form console line and returns the reply. Sending
// "stop" also ends the local sniffer follower.
func (c *Controller) Send(ctx context.Context, raw string) (*Reply, error) {
	cmd, err := janos.ValidateRaw(raw)
	if err != nil {
		return nil, err
	}
	reply, err := c.collect(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if cmd == janos.CmdStop {
		c.mu.Lock()
		run := c.sniffer
		c.mu.Unlock()
		if run != nil {
			c.endSniffer(run)
		}
	}
	return reply, nil
}

func (c *Controller) collect(ctx context.Context, cmd string) (*Reply, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.checkOpen(cmd); err != nil {
		return nil, err
	}
	lines, _, err := c.exchange(ctx, cmd, c.timings.Collect, nil)
	if err != nil {
		return nil, err
	}
	return &Reply{Command: cmd, Lines: lines}, nil
}

// StopAll sends stop when an activity is running. It does nothing otherwise.
func (c *Controller) StopAll(ctx context.Context) error {
	c.mu.Lock()
	run := c.sniffer
	c.mu.Unlock()
	if run == nil {
		return nil
	}
	_, err := c.stopSniffer(ctx, run)
	return err
}

// Close stops running activities, closes the link and ends the session.
// It is safe to call more than once and from a signal handler goroutine.
func (c *Controller) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		run := c.sniffer
		lost := c.lost
		c.mu.Unlock()

		if run != nil {
			if lost == nil {
				if err := c.link.Send(ctx, janos.CmdStop); err != nil {
					c.logger.Warn("failed to stop activities on close", "error", err)
				}
			}
			c.endSniffer(run)
		}

		c.closeErr = c.link.Close()
		c.updateSession(ctx, func(s *session.Session) { s.End() })
		if lost == nil {
			c.publish(event.NewDeviceDisconnectedEvent(c.device, nil))
		}
		c.logger.Info("controller closed")
		close(c.done)

		for i := len(c.onClose) - 1; i >= 0; i-- {
			if err := c.onClose[i](); err != nil {
				c.logger.Warn("cleanup failed", "error", err)
			}
		}
	})
	return c.closeErr
}

// linkLost records that the board went away. The sniffer follower is ended
// without sending stop since nothing can be written any more.
func (c *Controller) linkLost(err error) {
	c.mu.Lock()
	if c.lost != nil || c.closed {
		c.mu.Unlock()
		return
	}
	c.lost = err
	run := c.sniffer
	c.mu.Unlock()

	c.logger.Error("device connection lost", "error", err)
	if run != nil {
		c.endSniffer(run)
	}
	c.updateSession(context.Background(), func(s *session.Session) { s.LastError = err.Error() })
	c.publish(event.NewDeviceDisconnectedEvent(c.device, err))
}
