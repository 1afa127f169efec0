// Package janos holds the JanOS console vocabulary: the commands the bridge
// sends and parsers for the lines the firmware prints back.
package janos

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	janoserrors "github.com/D3h420/janos-app/internal/errors"
)

// Commands understood by the firmware.
const (
	CmdScanNetworks       = "scan_networks"
	CmdSelectNetworks     = "select_networks"
	CmdStartSniffer       = "start_sniffer"
	CmdStartSnifferNoScan = "start_sniffer_noscan"
	CmdShowSnifferResults = "show_sniffer_results"
	CmdShowProbes         = "show_probes"
	CmdListSD             = "list_sd"
	CmdPing               = "ping"
	CmdReboot             = "reboot"
	CmdStop               = "stop"
)

// ScanDoneMarker is printed by the firmware after the last network row.
const ScanDoneMarker = "Scan results printed"

// SelectNetworks builds "select_networks 1 3 5". Indices are 1-based.
func SelectNetworks(indices []int) (string, error) {
	if len(indices) == 0 {
		return "", janoserrors.NewValidationError("no networks selected").
			WithField("selection").WithCause(janoserrors.ErrInvalidSelection)
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		if idx < 1 {
			return "", janoserrors.NewValidationError("network index must be positive").
				WithField("selection").WithValue(idx).WithCause(janoserrors.ErrInvalidSelection)
		}
		parts[i] = strconv.Itoa(idx)
	}
	return CmdSelectNetworks + " " + strings.Join(parts, " "), nil
}

// Ping builds "ping <host>". The host is sent as one token, so whitespace
// and control characters are rejected.
func Ping(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", janoserrors.NewValidationError("host is required").WithField("host")
	}
	for _, r := range host {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", janoserrors.NewValidationError("host must be a single word").
				WithField("host").WithValue(host)
		}
	}
	return CmdPing + " " + host, nil
}

// ValidateRaw checks a free-form console line before relaying it.
func ValidateRaw(line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", janoserrors.NewValidationError("command is empty").
			WithField("command").WithCause(janoserrors.ErrInvalidCommand)
	}
	if strings.ContainsAny(line, "\r\n") {
		return "", janoserrors.NewValidationError("command must be a single line").
			WithField("command").WithCause(janoserrors.ErrInvalidCommand)
	}
	for _, r := range line {
		if unicode.IsControl(r) && r != '\t' {
			return "", janoserrors.NewValidationError(fmt.Sprintf("command contains control character %U", r)).
				WithField("command").WithCause(janoserrors.ErrInvalidCommand)
		}
	}
	return line, nil
}
