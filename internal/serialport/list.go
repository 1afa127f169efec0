package serialport

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	// Probable marks ports that look like an ESP32 board.
	Probable bool `json:"probable"`
}

// Label renders the port for pickers: "name - description [VID:PID]".
func (p PortInfo) Label() string {
	label := p.Name
	if p.Description != "" {
		label += " - " + p.Description
	}
	if p.VID != "" {
		label += fmt.Sprintf(" [%s:%s]", strings.ToLower(p.VID), strings.ToLower(p.PID))
	}
	return label
}

var probableKeywords = []string{"esp32", "cp210", "ch340", "silicon labs", "uart"}

// Espressif native USB, Silicon Labs CP210x, WCH CH34x.
var probableVIDs = []string{"303a", "10c4", "1a86"}

// IsProbable applies the ESP32 heuristic to a port.
func IsProbable(p PortInfo) bool {
	haystack := strings.ToLower(p.Name + " " + p.Description)
	for _, kw := range probableKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	vid := strings.ToLower(p.VID)
	for _, known := range probableVIDs {
		if vid == known {
			return true
		}
	}
	return false
}

// Enumerator lists raw ports. The default uses go.bug.st/serial/enumerator.
type Enumerator func() ([]PortInfo, error)

// SystemPorts enumerates the host's serial ports with USB details, falling back
// to bare names when detailed enumeration is unavailable.
func SystemPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		ports := make([]PortInfo, 0, len(details))
		for _, d := range details {
			ports = append(ports, PortInfo{
				Name:         d.Name,
				Description:  d.Product,
				IsUSB:        d.IsUSB,
				VID:          d.VID,
				PID:          d.PID,
				SerialNumber: d.SerialNumber,
			})
		}
		return ports, nil
	}

	names, nerr := serial.GetPortsList()
	if nerr != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	ports := make([]PortInfo, 0, len(names))
	for _, n := range names {
		ports = append(ports, PortInfo{Name: n})
	}
	return ports, nil
}

// Filter restricts port names to a set of glob patterns. The zero Filter
// matches everything.
type Filter struct {
	patterns []string
	globs    []glob.Glob
}

// NewFilter compiles patterns such as "/dev/ttyUSB*".
func NewFilter(patterns []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid port pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, p)
		f.globs = append(f.globs, g)
	}
	return f, nil
}

// Match reports whether name passes the filter.
func (f *Filter) Match(name string) bool {
	if f == nil || len(f.globs) == 0 {
		return true
	}
	for _, g := range f.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	return f.patterns
}

// List enumerates ports through enum (SystemPorts when nil), drops those the
// filter rejects, marks probable boards and sorts probable ones first.
func List(enum Enumerator, filter *Filter) ([]PortInfo, error) {
	if enum == nil {
		enum = SystemPorts
	}
	raw, err := enum()
	if err != nil {
		return nil, err
	}

	ports := make([]PortInfo, 0, len(raw))
	for _, p := range raw {
		if !filter.Match(p.Name) {
			continue
		}
		p.Probable = IsProbable(p)
		ports = append(ports, p)
	}

	sort.SliceStable(ports, func(i, j int) bool {
		if ports[i].Probable != ports[j].Probable {
			return ports[i].Probable
		}
		return ports[i].Name < ports[j].Name
	})
	return ports, nil
}
