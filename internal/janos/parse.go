package janos

import (
	"regexp"
	"strconv"
	"strings"

	janoserrors "github.com/D3h420/janos-app/internal/errors"
)

// HiddenSSID is shown for networks and probes without a name.
const HiddenSSID = "<hidden>"

// Network is one row of scan_networks output.
type Network struct {
	Index   string `json:"index"`
	SSID    string `json:"ssid"`
	Vendor  string `json:"vendor"`
	BSSID   string `json:"bssid"`
	Channel string `json:"channel"`
	Auth    string `json:"auth"`
	RSSI    string `json:"rssi"`
	Band    string `json:"band"`
}

// ParseNetwork parses a quoted CSV row:
//
//	"index","ssid","vendor","bssid","channel","auth","rssi","band"
//
// Anything else (banner text, prompts, the done marker) returns false.
func ParseNetwork(line string) (Network, bool) {
	if !strings.HasPrefix(line, `"`) {
		return Network{}, false
	}
	parts := strings.Split(line, `","`)
	if len(parts) < 8 {
		return Network{}, false
	}
	for i, p := range parts {
		parts[i] = strings.Trim(p, `"`)
	}
	n := Network{
		Index:   parts[0],
		SSID:    parts[1],
		Vendor:  parts[2],
		BSSID:   parts[3],
		Channel: parts[4],
		Auth:    parts[5],
		RSSI:    parts[6],
		Band:    parts[7],
	}
	if n.SSID == "" {
		n.SSID = HiddenSSID
	}
	return n, true
}

var selectionRe = regexp.MustCompile(`^[\d\s]+$`)

// ParseSelection turns user input into 1-based network indices. "all"
// selects 1..count; otherwise the input is whitespace-separated numbers,
// each within range. Duplicates are dropped, first occurrence wins.
func ParseSelection(input string, count int) ([]int, error) {
	input = strings.TrimSpace(input)
	if count <= 0 {
		return nil, janoserrors.ErrNoNetworks
	}
	if strings.EqualFold(input, "all") {
		out := make([]int, count)
		for i := range out {
			out[i] = i + 1
		}
		return out, nil
	}
	if input == "" || !selectionRe.MatchString(input) {
		return nil, janoserrors.NewValidationError("use space-separated numbers or 'all'").
			WithField("selection").WithValue(input).WithCause(janoserrors.ErrInvalidSelection)
	}

	seen := make(map[int]bool)
	var out []int
	for _, f := range strings.Fields(input) {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > count {
			return nil, janoserrors.NewValidationError("index out of range 1-"+strconv.Itoa(count)).
				WithField("selection").WithValue(f).WithCause(janoserrors.ErrInvalidSelection)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}

// FormatSelection renders indices the way select_networks takes them.
func FormatSelection(indices []int) string {
	parts := make([]string, len(indices))
	for i, n := range indices {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}

var (
	packetsRe  = regexp.MustCompile(`(?i)(\d+)\s+packets?`)
	capturedRe = regexp.MustCompile(`(?i)captured:\s*(\d+)`)
)

// ParsePacketCount extracts the running packet counter the sniffer prints,
// e.g. "Sniffer: 152 packets" or "Captured: 152".
func ParsePacketCount(line string) (int, bool) {
	for _, re := range []*regexp.Regexp{packetsRe, capturedRe} {
		if m := re.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// Probe is one probe request from show_probes.
type Probe struct {
	MAC       string `json:"mac"`
	SSID      string `json:"ssid"`
	RSSI      string `json:"rssi"`      // "-55dBm", empty when absent
	Timestamp string `json:"timestamp"` // "hh:mm:ss", empty when absent
}

var (
	macRe  = regexp.MustCompile(`([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})`)
	rssiRe = regexp.MustCompile(`(?i)(-?\d+)\s*dBm?`)
	timeRe = regexp.MustCompile(`\[(\d+:\d+:\d+)\]`)
)

// ParseProbe understands the three layouts the firmware has used:
//
//	Client: AA:BB:CC:DD:EE:FF, SSID: MyNetwork, RSSI: -45 dBm
//	AA:BB:CC:DD:EE:FF -> MyNetwork (-55dBm)
//	Probe: AA:BB:CC:DD:EE:FF looking for MyNetwork
//
// Header and summary lines ("Probe requests:", "Total: 3") are skipped.
func ParseProbe(line string) (Probe, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "Probe") || strings.HasPrefix(line, "Total") {
		return Probe{}, false
	}

	p := Probe{SSID: HiddenSSID}
	if m := macRe.FindString(line); m != "" {
		p.MAC = m
	}

	var ssid string
	switch {
	case strings.Contains(line, "SSID:"):
		ssid, _, _ = strings.Cut(after(line, "SSID:"), ",")
	case strings.Contains(line, "->"):
		ssid, _, _ = strings.Cut(after(line, "->"), "(")
	case strings.Contains(line, "looking for"):
		ssid = after(line, "looking for")
	}
	ssid = strings.TrimSpace(ssid)
	if ssid != "" && ssid != "N/A" && ssid != "unknown" {
		p.SSID = ssid
	}

	if m := rssiRe.FindStringSubmatch(line); m != nil {
		p.RSSI = m[1] + "dBm"
	}
	if m := timeRe.FindStringSubmatch(line); m != nil {
		p.Timestamp = m[1]
	}
	return p, true
}

// after returns the text following the first sep, up to the next sep.
func after(s, sep string) string {
	parts := strings.SplitN(s, sep, 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// PacketKind groups sniffer result rows for display.
type PacketKind string

const (
	KindBeacon PacketKind = "beacon"
	KindProbe  PacketKind = "probe"
	KindData   PacketKind = "data"
	KindAuth   PacketKind = "auth"
	KindOther  PacketKind = "other"
)

// Packet is one row of show_sniffer_results.
type Packet struct {
	Type string     `json:"type"`
	Src  string     `json:"src"`
	Dst  string     `json:"dst"`
	Size string     `json:"size"`
	Info string     `json:"info"`
	Kind PacketKind `json:"kind"`
}

// ParsePacket splits a "TYPE SRC DST SIZE INFO..." row. Rows with fewer than
// five fields, and the "Sniffer"/"Total" header lines, return false.
func ParsePacket(line string) (Packet, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "Sniffer") || strings.HasPrefix(line, "Total") {
		return Packet{}, false
	}
	f := strings.Fields(line)
	if len(f) < 5 {
		return Packet{}, false
	}
	return Packet{
		Type: f[0],
		Src:  f[1],
		Dst:  f[2],
		Size: f[3],
		Info: strings.Join(f[4:], " "),
		Kind: ClassifyPacket(f[0]),
	}, true
}

// ClassifyPacket maps a frame type label to a PacketKind. Deauth frames
// count as auth.
func ClassifyPacket(typ string) PacketKind {
	u := strings.ToUpper(typ)
	switch {
	case strings.Contains(u, "BEACON"):
		return KindBeacon
	case strings.Contains(u, "PROBE"):
		return KindProbe
	case strings.Contains(u, "DATA"):
		return KindData
	case strings.Contains(u, "AUTH"):
		return KindAuth
	default:
		return KindOther
	}
}

// SDEntry is one file listed by list_sd.
type SDEntry struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

var sdEntryRe = regexp.MustCompile(`^\s*(\d+)\s+(\S+)\s*$`)

// ParseSDEntry parses "<n> <filename>" rows of list_sd output.
func ParseSDEntry(line string) (SDEntry, bool) {
	m := sdEntryRe.FindStringSubmatch(line)
	if m == nil {
		return SDEntry{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return SDEntry{}, false
	}
	return SDEntry{Index: n, Name: m[2]}, true
}

// Quality buckets an RSSI reading.
type Quality int

const (
	QualityUnknown Quality = iota
	QualityWeak
	QualityFair
	QualityStrong
)

func (q Quality) String() string {
	switch q {
	case QualityStrong:
		return "strong"
	case QualityFair:
		return "fair"
	case QualityWeak:
		return "weak"
	default:
		return "unknown"
	}
}

// ParseRSSI reads "-67", "-67dBm" or "-67 dBm".
func ParseRSSI(s string) (int, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "dBm"))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SignalQuality: strong at -50 dBm and above, fair at -70 and above, weak below.
func SignalQuality(rssi string) Quality {
	n, ok := ParseRSSI(rssi)
	if !ok {
		return QualityUnknown
	}
	switch {
	case n >= -50:
		return QualityStrong
	case n >= -70:
		return QualityFair
	default:
		return QualityWeak
	}
}
