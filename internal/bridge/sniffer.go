package bridge

import (
	"context"
	"time"

	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/janos"
	"github.com/D3h420/janos-app/internal/session"
)

// StartSniffer starts the passive sniffer. With networks from a previous
// scan it sends start_sniffer_noscan so the firmware reuses them; otherwise
// start_sniffer, which scans first. It returns whether the scan was skipped.
//
// A goroutine follows the output, keeping Packets current and publishing
// sniffer.packets and line.received events until the sniffer is stopped.
func (c *Controller) StartSniffer(ctx context.Context) (bool, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	noScan := len(c.networks) > 0
	running := c.sniffer != nil
	c.mu.Unlock()

	cmd := janos.CmdStartSniffer
	if noScan {
		cmd = janos.CmdStartSnifferNoScan
	}
	if err := c.checkOpen(cmd); err != nil {
		return false, err
	}
	if running {
		return false, janoserrors.NewDeviceError("sniffer already running", janoserrors.ErrSnifferRunning).
			WithDevice(c.device).WithCommand(cmd)
	}

	// Subscribe before sending so the first counter line is not missed.
	sub := c.link.Subscribe()
	if err := c.send(ctx, cmd); err != nil {
		sub.Close()
		return false, err
	}

	run := &snifferRun{
		sub:     sub,
		noScan:  noScan,
		started: time.Now(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	c.mu.Lock()
	c.sniffer = run
	c.packets = 0
	c.mu.Unlock()

	go c.follow(run)

	c.logger.Info("sniffer started", "no_scan", noScan)
	c.publish(event.NewSnifferStartedEvent(c.device, noScan))
	return noScan, nil
}

func (c *Controller) follow(run *snifferRun) {
	defer close(run.done)
	for {
		select {
		case <-run.stop:
			return
		case line, ok := <-run.sub.C:
			if !ok {
				return
			}
			c.publish(event.NewLineReceivedEvent(c.device, line))
			n, ok := janos.ParsePacketCount(line)
			if !ok {
				continue
			}
			c.mu.Lock()
			current := c.sniffer == run
			if current {
				c.packets = n
			}
			c.mu.Unlock()
			if current {
				c.publish(event.NewSnifferPacketsEvent(c.device, n))
			}
		}
	}
}

// StopSniffer sends stop and ends the follower. It returns the last packet
// count seen.
func (c *Controller) StopSniffer(ctx context.Context) (int, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.checkOpen(janos.CmdStop); err != nil {
		return 0, err
	}
	c.mu.Lock()
	run := c.sniffer
	c.mu.Unlock()
	if run == nil {
		return 0, janoserrors.ErrSnifferNotRunning
	}
	return c.stopSniffer(ctx, run)
}

// stopSniffer sends stop for run and ends its follower. stop is idempotent, so
// a retryable write failure is retried once. The follower is ended even when
// the write fails.
func (c *Controller) stopSniffer(ctx context.Context, run *snifferRun) (int, error) {
	err := c.send(ctx, janos.CmdStop)
	if err != nil && janoserrors.IsRetryable(err) && ctx.Err() == nil {
		c.logger.Warn("stop failed, retrying", "error", err)
		err = c.send(ctx, janos.CmdStop)
	}
	packets := c.endSniffer(run)
	return packets, err
}

// endSniffer stops the follower for run, waiting up to StopWait, and clears
// the running state. Safe to call more than once.
func (c *Controller) endSniffer(run *snifferRun) int {
	run.once.Do(func() {
		close(run.stop)
		run.sub.Close()

		timer := time.NewTimer(c.timings.StopWait)
		select {
		case <-run.done:
		case <-timer.C:
			c.logger.Warn("sniffer follower did not stop in time", "wait", c.timings.StopWait)
		}
		timer.Stop()

		c.mu.Lock()
		if c.sniffer == run {
			c.sniffer = nil
		}
		packets := c.packets
		c.mu.Unlock()

		c.logger.Info("sniffer stopped", "packets", packets, "ran", time.Since(run.started))
		c.publish(event.NewSnifferStoppedEvent(c.device, packets))
	})
	return c.Packets()
}

// stopForDump stops a running sniffer and waits for the firmware to settle
// before a show_* command.
func (c *Controller) stopForDump(ctx context.Context) error {
	c.mu.Lock()
	run := c.sniffer
	c.mu.Unlock()
	if run == nil {
		return nil
	}
	if _, err := c.stopSniffer(ctx, run); err != nil {
		return err
	}
	if c.timings.Settle <= 0 {
		return nil
	}
	timer := time.NewTimer(c.timings.Settle)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SnifferResults stops a running sniffer, asks for show_sniffer_results and
// parses the packet rows.
func (c *Controller) SnifferResults(ctx context.Context) (*SnifferResults, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.checkOpen(janos.CmdShowSnifferResults); err != nil {
		return nil, err
	}
	if err := c.stopForDump(ctx); err != nil {
		return nil, err
	}

	lines, _, err := c.exchange(ctx, janos.CmdShowSnifferResults, c.timings.Collect, nil)
	if err != nil {
		return nil, err
	}

	res := &SnifferResults{}
	for _, l := range lines {
		if p, ok := janos.ParsePacket(l); ok {
			res.Packets = append(res.Packets, p)
		} else {
			res.Other = append(res.Other, l)
		}
	}
	c.logger.Info("sniffer results collected", "packets", len(res.Packets))
	return res, nil
}

// Probes stops a running sniffer, asks for show_probes and parses the probe
// requests. They are recorded to history when a recorder is attached.
func (c *Controller) Probes(ctx context.Context) ([]janos.Probe, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.checkOpen(janos.CmdShowProbes); err != nil {
		return nil, err
	}
	if err := c.stopForDump(ctx); err != nil {
		return nil, err
	}

	captured := time.Now()
	lines, _, err := c.exchange(ctx, janos.CmdShowProbes, c.timings.Collect, nil)
	if err != nil {
		return nil, err
	}

	var probes []janos.Probe
	for _, l := range lines {
		if p, ok := janos.ParseProbe(l); ok {
			probes = append(probes, p)
		}
	}

	c.logger.Info("probes collected", "count", len(probes))
	c.publish(event.NewProbesCollectedEvent(c.device, len(probes)))
	c.updateSession(ctx, func(s *session.Session) { s.Probes += len(probes) })

	if c.recorder != nil && len(probes) > 0 {
		if err := c.recorder.RecordProbes(ctx, c.SessionID(), c.device, captured, probes); err != nil {
			c.logger.Warn("failed to record probes", "error", err)
		}
	}
	return probes, nil
}
