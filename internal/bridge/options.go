package bridge

import (
	"time"

	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/logging"
	"github.com/D3h420/janos-app/internal/session"
)

// Timings are the firmware-facing waits.
type Timings struct {
	// Scan bounds how long a scan waits for the done marker.
	Scan time.Duration
	// Collect is the reply window for show_*, ping, list_sd, reboot and raw commands.
	Collect time.Duration
	// StopWait bounds how long stopping waits for the sniffer follower.
	StopWait time.Duration
	// Settle is the pause after stopping the sniffer before dumping results.
	Settle time.Duration
}

// DefaultTimings returns 15s scan, 5s collect, 2s stop wait and 1s settle.
func DefaultTimings() Timings {
	return Timings{
		Scan:     15 * time.Second,
		Collect:  5 * time.Second,
		StopWait: 2 * time.Second,
		Settle:   time.Second,
	}
}

// Option configures a Controller.
type Option func(*config)

type config struct {
	timings  Timings
	logger   *logging.Logger
	bus      *event.Bus
	recorder Recorder
	store    *session.Store
	session  *session.Session
}

// WithTimings overrides the firmware waits. Zero fields keep their defaults;
// a negative Settle disables the pause.
func WithTimings(t Timings) Option {
	return func(c *config) {
		if t.Scan > 0 {
			c.timings.Scan = t.Scan
		}
		if t.Collect > 0 {
			c.timings.Collect = t.Collect
		}
		if t.StopWait > 0 {
			c.timings.StopWait = t.StopWait
		}
		if t.Settle < 0 {
			c.timings.Settle = 0
		} else if t.Settle > 0 {
			c.timings.Settle = t.Settle
		}
	}
}

// WithLogger sets the logger for the controller.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithBus publishes controller events on bus.
func WithBus(bus *event.Bus) Option {
	return func(c *config) {
		c.bus = bus
	}
}

// WithRecorder records scans and probes to history.
func WithRecorder(r Recorder) Option {
	return func(c *config) {
		c.recorder = r
	}
}

// WithSession keeps s updated with scan, probe and command counts and saves
// it to store after each change. store may be nil to track in memory only.
func WithSession(store *session.Store, s *session.Session) Option {
	return func(c *config) {
		c.store = store
		c.session = s
	}
}
