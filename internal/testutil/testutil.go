// Package testutil provides testing utilities for janos tests.
package testutil

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// ErrPortClosed is returned by FakePort operations after Close.
var ErrPortClosed = errors.New("fake port closed")

// Responder produces firmware output for a command line. Returning nil emits
// nothing.
type Responder func(cmd string) []string

// FakePort is an in-memory JanOS console. It records every command line
// written to it and replays scripted output, so the line protocol can be
// tested without a board attached.
//
// It satisfies serialport.Port.
type FakePort struct {
	mu           sync.Mutex
	pending      bytes.Buffer // bytes waiting to be read by the host
	written      bytes.Buffer // partial command line written by the host
	commands     []string
	exact        map[string][]string
	prefixes     []prefixResponder
	notify       chan struct{}
	readTimeout  time.Duration
	closed       bool
	writeErr     error
	writeErrNext error
	readErr      error
	drains       int
	resets       int
	hold         chan struct{}
	writing      int
	maxWriting   int
}

type prefixResponder struct {
	prefix string
	fn     Responder
}

// NewFakePort creates a FakePort with a 50ms read timeout.
func NewFakePort() *FakePort {
	return &FakePort{
		exact:       make(map[string][]string),
		notify:      make(chan struct{}),
		readTimeout: 50 * time.Millisecond,
	}
}

// OnCommand scripts the lines emitted when cmd is received.
func (p *FakePort) OnCommand(cmd string, lines ...string) *FakePort {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exact[cmd] = lines
	return p
}

// OnPrefix scripts a responder for every command starting with prefix.
// Exact matches registered with OnCommand take precedence.
func (p *FakePort) OnPrefix(prefix string, fn Responder) *FakePort {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefixes = append(p.prefixes, prefixResponder{prefix: prefix, fn: fn})
	return p
}

// Emit queues lines as if the firmware printed them unprompted. Each line
// is terminated with CRLF.
func (p *FakePort) Emit(lines ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emitLocked(lines)
}

// EmitRaw queues raw bytes, allowing partial lines and invalid UTF-8.
func (p *FakePort) EmitRaw(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending.Write(data)
	p.wakeLocked()
}

func (p *FakePort) emitLocked(lines []string) {
	if len(lines) == 0 {
		return
	}
	for _, l := range lines {
		p.pending.WriteString(l)
		p.pending.WriteString("\r\n")
	}
	p.wakeLocked()
}

// wakeLocked releases every Read blocked on the current notify channel.
func (p *FakePort) wakeLocked() {
	close(p.notify)
	p.notify = make(chan struct{})
}

// Read returns queued output. With nothing queued it blocks up to the read
// timeout and then returns 0, nil, like a real serial port.
func (p *FakePort) Read(b []byte) (int, error) {
	deadline := time.Now().Add(p.currentReadTimeout())
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return 0, ErrPortClosed
		}
		if p.readErr != nil {
			err := p.readErr
			p.mu.Unlock()
			return 0, err
		}
		if p.pending.Len() > 0 {
			n, _ := p.pending.Read(b)
			p.mu.Unlock()
			return n, nil
		}
		wait := p.notify
		p.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-wait:
			timer.Stop()
		case <-timer.C:
			return 0, nil
		}
	}
}

func (p *FakePort) currentReadTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readTimeout
}

// Write records bytes from the host. Every complete CRLF-terminated line is
// stored as a command and answered by the scripted responders.
func (p *FakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.writing++
	p.maxWriting = max(p.maxWriting, p.writing)
	if hold := p.hold; hold != nil {
		p.mu.Unlock()
		<-hold
		p.mu.Lock()
	}
	p.writing--
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPortClosed
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	if err := p.writeErrNext; err != nil {
		p.writeErrNext = nil
		return 0, err
	}

	p.written.Write(b)
	for {
		data := p.written.Bytes()
		i := bytes.Index(data, []byte("\r\n"))
		if i < 0 {
			break
		}
		cmd := string(data[:i])
		p.written.Next(i + 2)
		p.commands = append(p.commands, cmd)
		p.emitLocked(p.respondLocked(cmd))
	}
	return len(b), nil
}

func (p *FakePort) respondLocked(cmd string) []string {
	if lines, ok := p.exact[cmd]; ok {
		return lines
	}
	for _, r := range p.prefixes {
		if strings.HasPrefix(cmd, r.prefix) {
			return r.fn(cmd)
		}
	}
	return nil
}

// Drain counts calls; writes are already "transmitted".
func (p *FakePort) Drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPortClosed
	}
	p.drains++
	return nil
}

// ResetInputBuffer discards queued output.
func (p *FakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending.Reset()
	p.resets++
	return nil
}

// ResetOutputBuffer discards a partially written command.
func (p *FakePort) ResetOutputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written.Reset()
	p.resets++
	return nil
}

// SetReadTimeout sets how long Read blocks with nothing queued.
func (p *FakePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = t
	return nil
}

// Close unblocks pending reads; later operations fail with ErrPortClosed.
func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.wakeLocked()
	return nil
}

// Closed reports whether Close was called.
func (p *FakePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// FailWrites makes every later Write return err. nil restores writes.
func (p *FakePort) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// FailNextWrite makes only the next Write return err.
func (p *FakePort) FailNextWrite(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErrNext = err
}

// HoldWrites blocks every later Write until the returned release func is
// called, simulating a stalled USB bridge.
func (p *FakePort) HoldWrites() (release func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	hold := make(chan struct{})
	p.hold = hold
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.hold = nil
			p.mu.Unlock()
			close(hold)
		})
	}
}

// MaxConcurrentWrites reports the largest number of Write calls that were in
// progress at the same time.
func (p *FakePort) MaxConcurrentWrites() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxWriting
}

// FailReads makes every later Read return err, simulating an unplugged board.
func (p *FakePort) FailReads(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
	p.wakeLocked()
}

// Commands returns the command lines received so far.
func (p *FakePort) Commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.commands))
	copy(out, p.commands)
	return out
}

// Drains returns how many times Drain was called.
func (p *FakePort) Drains() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drains
}

// WaitForCommand polls until cmd has been received or the timeout passes.
func (p *FakePort) WaitForCommand(t *testing.T, cmd string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, c := range p.Commands() {
			if c == cmd {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("command %q not received within %v (got %q)", cmd, timeout, p.Commands())
}
