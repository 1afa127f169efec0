package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/janos"
	"github.com/D3h420/janos-app/internal/tui/msg"
)

func (m Model) connectCmd(device string) tea.Cmd {
	connect := m.opts.Connect
	ctx := m.ctx
	return func() tea.Msg {
		if connect == nil {
			return connectedMsg{device: device, err: janoserrors.New("no connector configured")}
		}
		ctrl, err := connect(ctx, device)
		return connectedMsg{device: device, ctrl: ctrl, err: err}
	}
}

func (m Model) scanCmd() tea.Cmd {
	ctrl, ctx, counter := m.ctrl, m.ctx, m.scanned
	counter.Store(0)
	return func() tea.Msg {
		res, err := ctrl.Scan(ctx, func(janos.Network) { counter.Add(1) })
		return msg.ScanDoneMsg{Result: res, Err: err}
	}
}

func (m Model) selectCmd(input string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		indices, err := ctrl.Select(ctx, input)
		return msg.SelectDoneMsg{Indices: indices, Err: err}
	}
}

func (m Model) startSnifferCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		noScan, err := ctrl.StartSniffer(ctx)
		return msg.SnifferStartedMsg{NoScan: noScan, Err: err}
	}
}

func (m Model) stopSnifferCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		packets, err := ctrl.StopSniffer(ctx)
		return msg.SnifferStoppedMsg{Packets: packets, Err: err}
	}
}

func (m Model) snifferResultsCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		res, err := ctrl.SnifferResults(ctx)
		return msg.SnifferResultsMsg{Results: res, Err: err}
	}
}

func (m Model) probesCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		probes, err := ctrl.Probes(ctx)
		return msg.ProbesMsg{Probes: probes, Err: err}
	}
}

func (m Model) rebootCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		reply, err := ctrl.Reboot(ctx)
		return msg.ReplyMsg{Title: "Reboot", Reply: reply, Err: err}
	}
}

func (m Model) pingCmd(host string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		reply, err := ctrl.Ping(ctx, host)
		return msg.ReplyMsg{Title: "Ping " + host, Reply: reply, Err: err}
	}
}

func (m Model) listSDCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		entries, reply, err := ctrl.ListSD(ctx)
		return msg.SDListMsg{Entries: entries, Reply: reply, Err: err}
	}
}

// consoleTitle marks replies that belong in the console rather than a view.
const consoleTitle = "console"

func (m Model) sendCmd(raw string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		reply, err := ctrl.Send(ctx, raw)
		return msg.ReplyMsg{Title: consoleTitle, Reply: reply, Err: err}
	}
}

func (m Model) stopAllCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return msg.StoppedAllMsg{Err: ctrl.StopAll(ctx)}
	}
}

// closeCmd closes the controller, which stops anything still running.
func (m Model) closeCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	if ctrl == nil {
		return func() tea.Msg { return msg.ClosedMsg{} }
	}
	return func() tea.Msg {
		return msg.ClosedMsg{Err: ctrl.Close(ctx)}
	}
}
