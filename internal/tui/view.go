package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/D3h420/janos-app/internal/bridge"
	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/janos"
	"github.com/D3h420/janos-app/internal/tui/keymap"
	"github.com/D3h420/janos-app/internal/tui/styles"
	"github.com/D3h420/janos-app/internal/util"
)

// chromeLines is the height of everything around the body: title, banner,
// status line and help bar.
const chromeLines = 8

func (m Model) pageSize() int {
	if m.height <= 0 {
		return 20
	}
	return max(m.height-chromeLines, 3)
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting && m.busy == "" {
		return ""
	}
	s := styles.Active()

	var b strings.Builder
	b.WriteString(s.Title.Render("JanOS"))
	b.WriteString("  ")
	b.WriteString(s.Subtitle.Render(m.subtitle()))
	b.WriteString("\n")
	b.WriteString(m.renderBanner(s))
	b.WriteString("\n")

	switch {
	case m.showHelp && m.mode() == keymap.ModeMenu:
		b.WriteString(m.renderHelp(s))
	case m.screen == screenPicker:
		b.WriteString(m.renderPicker(s))
	case m.screen == screenView:
		b.WriteString(m.renderView(s))
	case m.screen == screenConsole:
		b.WriteString(m.renderConsole(s))
	default:
		b.WriteString(m.renderMenu(s))
	}

	if m.inputFor != inputNone {
		b.WriteString("\n")
		b.WriteString(m.renderInput(s))
	}
	if m.confirm != nil {
		b.WriteString("\n")
		b.WriteString(s.Dialog.Render(m.confirm.prompt))
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus(s))
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar(s))
	return b.String()
}

func (m Model) subtitle() string {
	if m.screen == screenView && m.view != nil {
		return m.view.title
	}
	return menuTitle(m.screen)
}

func (m Model) renderBanner(s *styles.Styles) string {
	if m.ctrl == nil {
		return s.Banner.Render(s.BannerLabel.Render("Device: ") + s.Muted.Render("not connected"))
	}

	id := m.ctrl.SessionID()
	if len(id) > 8 {
		id = id[:8]
	}
	parts := []string{
		s.BannerLabel.Render("Device: ") + s.BannerValue.Render(m.device),
		s.BannerLabel.Render("Session: ") + s.BannerValue.Render(id),
	}
	if m.ctrl.SnifferRunning() {
		parts = append(parts,
			s.StatusRunning.Render("SNIFFER RUNNING")+" "+s.Counter.Render(fmt.Sprintf("%d packets", m.ctrl.Packets())))
	} else {
		parts = append(parts, s.StatusIdle.Render("IDLE"))
	}
	if sel := m.ctrl.Selected(); len(sel) > 0 {
		parts = append(parts, s.BannerLabel.Render("Selected: ")+s.BannerValue.Render(janos.FormatSelection(sel)))
	}
	return s.Banner.Render(strings.Join(parts, s.Muted.Render(" │ ")))
}

func (m Model) renderPicker(s *styles.Styles) string {
	if len(m.ports) == 0 {
		return s.Muted.Render("No serial devices found. Plug in the board, press r to rescan or m to enter a path.")
	}
	var b strings.Builder
	for i, p := range m.ports {
		line := fmt.Sprintf("%d) %s", i+1, p.Label())
		if i == m.cursor {
			b.WriteString(s.MenuSelected.Render("> " + line))
		} else {
			b.WriteString(s.MenuItem.Render(line))
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderMenu(s *styles.Styles) string {
	var b strings.Builder
	for i, it := range m.menuItems() {
		key := s.MenuKey.Render(strconv.Itoa(i+1) + ")")
		if i == m.cursor {
			b.WriteString(s.MenuSelected.Render("> ") + key + " " + s.MenuSelected.Render(it.label))
		} else {
			b.WriteString("  " + key + " " + s.TableCell.Render(it.label))
		}
		b.WriteString("\n")
	}
	if m.screen == screenScan && m.ctrl.ScanDone() {
		b.WriteString("\n" + s.Muted.Render(fmt.Sprintf("%d networks from last scan", len(m.ctrl.Networks()))))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderView(s *styles.Styles) string {
	v := m.view
	if v == nil {
		return ""
	}
	var b strings.Builder
	if v.header != "" {
		b.WriteString(s.TableHeader.Render(v.header))
		b.WriteString("\n")
	}
	page := m.pageSize()
	end := min(v.offset+page, len(v.lines))
	for _, l := range v.lines[v.offset:end] {
		b.WriteString(l)
		b.WriteString("\n")
	}
	if len(v.lines) > page {
		b.WriteString(s.Muted.Render(fmt.Sprintf("lines %d-%d of %d", v.offset+1, end, len(v.lines))))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderConsole(s *styles.Styles) string {
	page := m.pageSize() - 1
	end := max(len(m.console)-m.consoleOff, 0)
	start := max(end-page, 0)

	var b strings.Builder
	for _, l := range m.console[start:end] {
		if strings.HasPrefix(l, "> ") {
			b.WriteString(s.ConsoleCommand.Render(l))
		} else {
			b.WriteString(s.ConsoleOutput.Render(l))
		}
		b.WriteString("\n")
	}
	b.WriteString(s.InputLine.Render("> ") + m.input.View())
	return b.String()
}

func (m Model) renderInput(s *styles.Styles) string {
	var label string
	switch m.inputFor {
	case inputManualPath:
		label = "Device path: "
	case inputSelect:
		var b strings.Builder
		for _, l := range networksView(m.ctrl.Networks()).lines {
			b.WriteString(l + "\n")
		}
		label = b.String() + "Networks to select: "
	case inputPing:
		label = "Host to ping (IP or domain): "
	}
	return s.InputLine.Render(label) + m.input.View()
}

func (m Model) renderStatus(s *styles.Styles) string {
	switch {
	case m.busy != "":
		text := m.busy + "..."
		if strings.HasPrefix(m.busy, "Scanning") {
			text = fmt.Sprintf("%s %d networks", text, m.scanned.Load())
		}
		return m.spinner.View() + " " + s.Warning.Render(text)
	case m.errMsg != "" && m.errLevel <= janoserrors.SeverityWarning:
		return s.Warning.Render("! " + m.errMsg)
	case m.errMsg != "":
		return s.Error.Render("✗ " + m.errMsg)
	case m.status != "":
		return s.Success.Render("✓ " + m.status)
	}
	return ""
}

func (m Model) renderHelpBar(s *styles.Styles) string {
	entries := m.keymap.HelpEntries(m.mode())
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, s.HelpKey.Render(e[0])+" "+s.Help.Render(e[1]))
	}
	return strings.Join(parts, s.Help.Render(" · "))
}

func (m Model) renderHelp(s *styles.Styles) string {
	var b strings.Builder
	b.WriteString(s.Title.Render("Keys") + "\n")
	seen := make(map[string]bool)
	for _, kb := range m.keymap.GetModeBindings(keymap.ModeMenu) {
		key := kb.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		b.WriteString(s.HelpKey.Render(util.PadANSI(key, 8)) + s.Help.Render(kb.Description) + "\n")
	}
	return s.Box.Render(strings.TrimSuffix(b.String(), "\n"))
}

// row pads each cell to its column width and joins them.
func row(widths []int, cells ...string) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if i < len(widths) {
			out[i] = util.PadANSI(c, widths[i])
		} else {
			out[i] = c
		}
	}
	return strings.TrimRight(strings.Join(out, " "), " ")
}

var networkCols = []int{3, 24, 17, 3, 14, 5, 6}

func networksView(networks []janos.Network) *resultView {
	s := styles.Active()
	v := &resultView{
		title:  "Scan Results",
		header: row(networkCols, "#", "SSID", "BSSID", "CH", "AUTH", "RSSI", "BAND", "VENDOR"),
	}
	for _, n := range networks {
		v.lines = append(v.lines, row(networkCols,
			n.Index, n.SSID, n.BSSID, n.Channel, n.Auth,
			s.Signal(n.RSSI).Render(n.RSSI), n.Band, n.Vendor))
	}
	return v
}

var packetCols = []int{12, 17, 17, 6}

func packetsView(res *bridge.SnifferResults) *resultView {
	s := styles.Active()
	v := &resultView{
		title:  "Sniffer Results",
		header: row(packetCols, "TYPE", "SRC", "DST", "SIZE", "INFO"),
	}
	for _, p := range res.Packets {
		v.lines = append(v.lines, row(packetCols, p.Type, p.Src, p.Dst, p.Size, p.Info))
	}
	if len(res.Packets) == 0 {
		v.lines = append(v.lines, s.Muted.Render("(no packets)"))
	}
	for _, l := range cleanLines(res.Other) {
		v.lines = append(v.lines, s.Muted.Render(l))
	}
	return v
}

var probeCols = []int{17, 28, 8}

func probesView(probes []janos.Probe) *resultView {
	s := styles.Active()
	v := &resultView{
		title:  "Probe Requests",
		header: row(probeCols, "MAC", "SSID", "RSSI", "TIME"),
	}
	for _, p := range probes {
		rssi := p.RSSI
		if rssi != "" {
			rssi = s.Signal(rssi).Render(rssi)
		}
		v.lines = append(v.lines, row(probeCols, p.MAC, p.SSID, rssi, p.Timestamp))
	}
	if len(probes) == 0 {
		v.lines = append(v.lines, s.Muted.Render("(no probe requests)"))
	}
	return v
}

func sdView(entries []janos.SDEntry, reply *bridge.Reply) *resultView {
	v := &resultView{title: "SD Card"}
	if len(entries) == 0 {
		if reply != nil {
			v.lines = cleanLines(reply.Lines)
		}
		v.lines = orNone(v.lines)
		return v
	}
	v.header = row([]int{4}, "#", "NAME")
	for _, e := range entries {
		v.lines = append(v.lines, row([]int{4}, strconv.Itoa(e.Index), e.Name))
	}
	return v
}
