package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/janos"
	"github.com/D3h420/janos-app/internal/tui/keymap"
	"github.com/D3h420/janos-app/internal/tui/msg"
	"github.com/D3h420/janos-app/internal/util"
)

// Update handles messages and updates the model.
func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		m.width = message.Width
		m.height = message.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(message)

	case interruptMsg:
		m.confirm = nil
		m.closeInput()
		return m.quit()

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(message)
		return m, cmd

	case msg.TickMsg:
		return m, msg.Tick(m.opts.UpdateInterval)

	case msg.PortsMsg:
		if message.Err != nil {
			m.setError(fmt.Errorf("list devices: %w", message.Err))
		} else {
			m.ports = message.Ports
		}
		if m.screen == screenPicker && m.cursor >= len(m.ports) {
			m.cursor = max(len(m.ports)-1, 0)
		}
		return m, m.waitHotplug()

	case msg.HotplugMsg:
		m.hotWaiting = false
		if m.screen != screenPicker {
			return m, m.waitHotplug()
		}
		return m, msg.ListPorts(m.opts.Ports, m.opts.Filter)

	case msg.HotplugClosedMsg:
		m.hotWaiting = false
		return m, nil

	case connectedMsg:
		return m.handleConnected(message)

	case msg.EventMsg:
		return m.handleEvent(message.Event)

	case msg.ScanDoneMsg:
		m.busy = ""
		if message.Err != nil {
			m.setError(message.Err)
			return m, nil
		}
		res := message.Result
		m.appendConsole(cleanLines(res.Lines)...)
		if res.Completed {
			m.setStatus(fmt.Sprintf("Found %d networks in %s", len(res.Networks), res.Duration.Round(100*time.Millisecond)))
		} else {
			m.setStatus(fmt.Sprintf("Scan timed out, showing %d networks received", len(res.Networks)))
		}
		if len(res.Networks) > 0 {
			m.openView(networksView(res.Networks))
		}
		return m, nil

	case msg.SelectDoneMsg:
		m.busy = ""
		if message.Err != nil {
			m.setError(message.Err)
			return m, nil
		}
		m.setStatus("Selected networks: " + janos.FormatSelection(message.Indices))
		return m, nil

	case msg.SnifferStartedMsg:
		m.busy = ""
		if message.Err != nil {
			m.setError(message.Err)
			return m, nil
		}
		if message.NoScan {
			m.setStatus("Sniffer started on scanned networks")
		} else {
			m.setStatus("Sniffer started, scanning first")
		}
		return m, nil

	case msg.SnifferStoppedMsg:
		m.busy = ""
		if message.Err != nil {
			m.setError(message.Err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Sniffer stopped after %d packets", message.Packets))
		return m, nil

	case msg.SnifferResultsMsg:
		m.busy = ""
		if message.Err != nil {
			m.setError(message.Err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("%d packets captured", len(message.Results.Packets)))
		m.openView(packetsView(message.Results))
		return m, nil

	case msg.ProbesMsg:
		m.busy = ""
		if message.Err != nil {
			m.setError(message.Err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("%d probe requests", len(message.Probes)))
		m.openView(probesView(message.Probes))
		return m, nil

	case msg.ReplyMsg:
		m.busy = ""
		if message.Err != nil {
			if message.Title == consoleTitle {
				m.appendConsole("! " + message.Err.Error())
			}
			m.setError(message.Err)
			return m, nil
		}
		lines := cleanLines(message.Reply.Lines)
		m.appendConsole(lines...)
		if message.Title == consoleTitle {
			m.consoleOff = 0
			m.errMsg = ""
			return m, nil
		}
		m.setStatus(message.Title + " done")
		m.openView(&resultView{title: message.Title, lines: orNone(lines)})
		return m, nil

	case msg.SDListMsg:
		m.busy = ""
		if message.Err != nil {
			m.setError(message.Err)
			return m, nil
		}
		m.appendConsole(cleanLines(message.Reply.Lines)...)
		m.setStatus(fmt.Sprintf("%d files on SD card", len(message.Entries)))
		m.openView(sdView(message.Entries, message.Reply))
		return m, nil

	case msg.StoppedAllMsg:
		m.busy = ""
		if message.Err != nil {
			m.setError(message.Err)
			return m, nil
		}
		m.setStatus("All activities stopped")
		return m, nil

	case msg.ClosedMsg:
		if message.Err != nil {
			m.logger.Warn("close failed", "error", message.Err)
		}
		if m.quitting {
			return m, tea.Quit
		}
		m.detach()
		return m, msg.ListPorts(m.opts.Ports, m.opts.Filter)
	}

	// Cursor blink and other input housekeeping.
	if m.inputFor != inputNone || m.screen == screenConsole {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(message)
		return m, cmd
	}
	return m, nil
}

func (m *Model) waitHotplug() tea.Cmd {
	if m.hotplug == nil || m.hotWaiting || m.screen != screenPicker {
		return nil
	}
	m.hotWaiting = true
	return msg.WaitForHotplug(m.hotplug)
}

func (m Model) handleConnected(cm connectedMsg) (tea.Model, tea.Cmd) {
	m.busy = ""
	if cm.err != nil {
		m.logger.Warn("connect failed", "device", cm.device, "error", cm.err)
		m.setError(fmt.Errorf("connect %s: %w", cm.device, cm.err))
		m.screen = screenPicker
		return m, msg.ListPorts(m.opts.Ports, m.opts.Filter)
	}

	m.endWatch()
	m.ctrl = cm.ctrl
	m.device = cm.device
	m.lost = nil
	m.screen = screenMain
	m.cursor = 0
	m.setStatus("Connected to " + cm.device)
	m.logger.Info("connected", "device", cm.device, "session", cm.ctrl.SessionID())

	if m.opts.Bus == nil {
		return m, nil
	}
	m.events, m.subID = msg.Forward(m.opts.Bus, eventBuffer)
	return m, msg.WaitForEvent(m.events)
}

func (m Model) handleEvent(e event.Event) (tea.Model, tea.Cmd) {
	next := msg.WaitForEvent(m.events)
	switch e := e.(type) {
	case event.CommandSentEvent:
		m.appendConsole("> " + e.Command)
	case event.LineReceivedEvent:
		m.appendConsole(util.CleanLine(e.Line))
	case event.DeviceDisconnectedEvent:
		if e.Err == nil || m.quitting {
			return m, nil
		}
		m.lost = e.Err
		m.busy = ""
		m.setError(fmt.Errorf("device connection lost: %w", e.Err))
		return m, m.closeCmd()
	}
	return m, next
}

// detach forgets the controller and returns to the picker.
func (m *Model) detach() {
	if m.subID != "" && m.opts.Bus != nil {
		m.opts.Bus.Unsubscribe(m.subID)
	}
	m.subID = ""
	m.events = nil
	m.ctrl = nil
	m.device = ""
	m.screen = screenPicker
	m.cursor = 0
	m.view = nil
	m.confirm = nil
	m.closeInput()
	m.busy = ""
	m.startWatch()
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	mode := m.mode()
	cmd, ok := m.keymap.GetBinding(k, mode)

	switch mode {
	case keymap.ModeInput:
		return m.handleInputKey(k, cmd, ok)
	case keymap.ModeConsole:
		return m.handleConsoleKey(k, cmd, ok)
	}
	if !ok {
		return m, nil
	}

	switch mode {
	case keymap.ModeConfirm:
		return m.handleConfirmKey(cmd)
	case keymap.ModePicker:
		return m.handlePickerKey(cmd)
	case keymap.ModeView:
		return m.handleViewKey(cmd)
	}
	return m.handleMenuKey(cmd, k)
}

func (m Model) handlePickerKey(cmd keymap.Command) (tea.Model, tea.Cmd) {
	switch cmd {
	case keymap.CmdUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case keymap.CmdDown:
		if m.cursor < len(m.ports)-1 {
			m.cursor++
		}
	case keymap.CmdSelect:
		if len(m.ports) == 0 {
			m.fail("no serial devices found, press m to enter a path")
			return m, nil
		}
		m.askConnect(m.ports[m.cursor].Name)
	case keymap.CmdRefresh:
		m.setStatus("Rescanning devices")
		return m, msg.ListPorts(m.opts.Ports, m.opts.Filter)
	case keymap.CmdManualPath:
		return m, m.openInput(inputManualPath, "/dev/ttyUSB0")
	case keymap.CmdQuit:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) askConnect(device string) {
	m.confirm = &confirmDialog{
		kind:     confirmConnect,
		prompt:   fmt.Sprintf("Connect to %s? [Y/n]", device),
		fallback: true,
		device:   device,
	}
}

func (m Model) handleConfirmKey(cmd keymap.Command) (tea.Model, tea.Cmd) {
	d := m.confirm
	var yes bool
	switch cmd {
	case keymap.CmdConfirm:
		yes = true
	case keymap.CmdCancel:
		yes = false
	case keymap.CmdSelect:
		yes = d.fallback
	default:
		return m, nil
	}
	m.confirm = nil
	if !yes {
		return m, nil
	}

	switch d.kind {
	case confirmConnect:
		return m, m.startBusy("Connecting to "+d.device, m.connectCmd(d.device))
	case confirmReboot:
		return m, m.startBusy("Rebooting", m.rebootCmd())
	case confirmQuit:
		return m.quit()
	}
	return m, nil
}

func (m Model) handleMenuKey(cmd keymap.Command, k tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.menuItems()
	switch cmd {
	case keymap.CmdUp:
		m.cursor = (m.cursor - 1 + len(items)) % len(items)
	case keymap.CmdDown:
		m.cursor = (m.cursor + 1) % len(items)
	case keymap.CmdSelect:
		return m.activate(items[m.cursor].action)
	case keymap.CmdShortcut:
		if len(k.Runes) == 0 {
			return m, nil
		}
		i := int(k.Runes[0] - '1')
		if i < 0 || i >= len(items) {
			return m, nil
		}
		m.cursor = i
		return m.activate(items[i].action)
	case keymap.CmdBack:
		if m.screen != screenMain {
			m.toMain()
		}
	case keymap.CmdStopAll:
		if len(m.ctrl.Running()) == 0 {
			m.setStatus("Nothing running")
			return m, nil
		}
		return m, m.startBusy("Stopping", m.stopAllCmd())
	case keymap.CmdHelp:
		m.showHelp = !m.showHelp
	case keymap.CmdQuit:
		return m.requestQuit()
	}
	return m, nil
}

func (m *Model) toMain() {
	switch m.screen {
	case screenScan:
		m.cursor = 0
	case screenSniffer:
		m.cursor = 1
	case screenSystem:
		m.cursor = 2
	case screenConsole:
		m.cursor = 3
	default:
		m.cursor = 0
	}
	m.screen = screenMain
}

// requiresIdle lists the actions that talk to the device.
func requiresIdle(a action) bool {
	switch a {
	case actScan, actSelect, actToggleSniffer, actSnifferResults, actProbes, actReboot, actPing, actListSD:
		return true
	}
	return false
}

func (m Model) activate(a action) (tea.Model, tea.Cmd) {
	if requiresIdle(a) && m.busy != "" {
		m.fail("busy: " + strings.ToLower(m.busy))
		return m, nil
	}

	switch a {
	case actScanMenu:
		m.screen, m.cursor = screenScan, 0
	case actSnifferMenu:
		m.screen, m.cursor = screenSniffer, 0
	case actSystemMenu:
		m.screen, m.cursor = screenSystem, 0
	case actConsole:
		m.screen = screenConsole
		m.consoleOff = 0
		m.input.Reset()
		m.input.Placeholder = "command"
		return m, m.input.Focus()
	case actBack:
		m.toMain()

	case actScan:
		return m, m.startBusy("Scanning", m.scanCmd())
	case actShowScan:
		networks := m.ctrl.Networks()
		if !m.ctrl.ScanDone() || len(networks) == 0 {
			m.fail("no scan results, run a scan first")
			return m, nil
		}
		m.openView(networksView(networks))
	case actSelect:
		if len(m.ctrl.Networks()) == 0 {
			m.fail("no networks scanned, run a scan first")
			return m, nil
		}
		return m, m.openInput(inputSelect, "1 3 5 or all")

	case actToggleSniffer:
		if m.ctrl.SnifferRunning() {
			return m, m.startBusy("Stopping sniffer", m.stopSnifferCmd())
		}
		return m, m.startBusy("Starting sniffer", m.startSnifferCmd())
	case actSnifferResults:
		return m, m.startBusy("Collecting sniffer results", m.snifferResultsCmd())
	case actProbes:
		return m, m.startBusy("Collecting probe requests", m.probesCmd())

	case actReboot:
		m.confirm = &confirmDialog{kind: confirmReboot, prompt: "Reboot the device? [y/N]"}
	case actPing:
		return m, m.openInput(inputPing, "8.8.8.8 or example.com")
	case actListSD:
		return m, m.startBusy("Listing SD card", m.listSDCmd())
	}
	return m, nil
}

func (m *Model) startBusy(what string, cmd tea.Cmd) tea.Cmd {
	m.busy = what
	m.errMsg = ""
	return tea.Batch(cmd, m.spinner.Tick)
}

func (m *Model) openInput(purpose inputPurpose, placeholder string) tea.Cmd {
	m.inputFor = purpose
	m.input.Reset()
	m.input.Placeholder = placeholder
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.inputFor = inputNone
	m.input.Reset()
	m.input.Blur()
}

func (m Model) handleInputKey(k tea.KeyMsg, cmd keymap.Command, ok bool) (tea.Model, tea.Cmd) {
	if !ok {
		var c tea.Cmd
		m.input, c = m.input.Update(k)
		return m, c
	}
	purpose := m.inputFor
	value := strings.TrimSpace(m.input.Value())
	switch cmd {
	case keymap.CmdCancel:
		m.closeInput()
		return m, nil
	case keymap.CmdSubmit:
		m.closeInput()
	default:
		return m, nil
	}

	switch purpose {
	case inputManualPath:
		if value == "" {
			return m, nil
		}
		m.askConnect(value)
	case inputSelect:
		return m, m.startBusy("Selecting networks", m.selectCmd(value))
	case inputPing:
		return m, m.startBusy("Pinging "+value, m.pingCmd(value))
	}
	return m, nil
}

func (m Model) handleConsoleKey(k tea.KeyMsg, cmd keymap.Command, ok bool) (tea.Model, tea.Cmd) {
	if !ok {
		var c tea.Cmd
		m.input, c = m.input.Update(k)
		return m, c
	}
	switch cmd {
	case keymap.CmdSubmit:
		line := strings.TrimSpace(m.input.Value())
		if line == "" {
			return m, nil
		}
		if m.busy != "" {
			m.fail("busy: " + strings.ToLower(m.busy))
			return m, nil
		}
		m.input.Reset()
		return m, m.startBusy("Sending "+line, m.sendCmd(line))
	case keymap.CmdPageUp:
		m.consoleOff = min(m.consoleOff+m.pageSize(), max(len(m.console)-1, 0))
	case keymap.CmdPageDown:
		m.consoleOff = max(m.consoleOff-m.pageSize(), 0)
	case keymap.CmdBack:
		m.input.Blur()
		m.input.Reset()
		m.toMain()
	}
	return m, nil
}

func (m *Model) openView(v *resultView) {
	v.returnTo = m.screen
	if m.screen == screenView && m.view != nil {
		v.returnTo = m.view.returnTo
	}
	m.view = v
	m.screen = screenView
}

func (m Model) handleViewKey(cmd keymap.Command) (tea.Model, tea.Cmd) {
	v := m.view
	if v == nil {
		m.toMain()
		return m, nil
	}
	last := max(len(v.lines)-m.pageSize(), 0)
	switch cmd {
	case keymap.CmdUp:
		v.offset = max(v.offset-1, 0)
	case keymap.CmdDown:
		v.offset = min(v.offset+1, last)
	case keymap.CmdPageUp:
		v.offset = max(v.offset-m.pageSize(), 0)
	case keymap.CmdPageDown:
		v.offset = min(v.offset+m.pageSize(), last)
	case keymap.CmdTop:
		v.offset = 0
	case keymap.CmdBottom:
		v.offset = last
	case keymap.CmdBack:
		m.screen = v.returnTo
		m.view = nil
	case keymap.CmdQuit:
		return m.requestQuit()
	}
	return m, nil
}

// requestQuit asks before stopping running activities. Answering no returns
// to the menu.
func (m Model) requestQuit() (tea.Model, tea.Cmd) {
	if m.ctrl != nil {
		if running := m.ctrl.Running(); len(running) > 0 {
			m.confirm = &confirmDialog{
				kind:     confirmQuit,
				prompt:   fmt.Sprintf("Running: %s. Stop before exit? [Y/n]", strings.Join(running, ", ")),
				fallback: true,
			}
			return m, nil
		}
	}
	return m.quit()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.ctrl == nil {
		return m, tea.Quit
	}
	return m, m.startBusy("Closing", m.closeCmd())
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = util.CleanLine(l); strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func orNone(lines []string) []string {
	if len(lines) == 0 {
		return []string{"(no output)"}
	}
	return lines
}
