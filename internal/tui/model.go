// Package tui is the interactive terminal front end. It lists serial
// devices, connects to one and drives the board through menus, result views
// and a raw console, following the bridge's events as they arrive.
package tui

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/logging"
	"github.com/D3h420/janos-app/internal/serialport"
	"github.com/D3h420/janos-app/internal/tui/keymap"
	"github.com/D3h420/janos-app/internal/tui/msg"
	"github.com/D3h420/janos-app/internal/tui/styles"
)

const (
	defaultUpdateInterval  = 500 * time.Millisecond
	defaultMaxConsoleLines = 1000
	eventBuffer            = 256
)

// Options configures the UI.
type Options struct {
	// Device skips the picker and connects straight away.
	Device  string
	Connect ConnectFunc

	Ports  serialport.Enumerator
	Filter *serialport.Filter
	// WatchDir is watched for device hotplug while the picker is shown.
	// Empty disables watching.
	WatchDir string

	Bus             *event.Bus
	MaxConsoleLines int
	UpdateInterval  time.Duration
	Logger          *logging.Logger
}

type screen int

const (
	screenPicker screen = iota
	screenMain
	screenScan
	screenSniffer
	screenSystem
	screenView
	screenConsole
)

type action int

const (
	actScanMenu action = iota
	actSnifferMenu
	actSystemMenu
	actConsole
	actScan
	actShowScan
	actSelect
	actToggleSniffer
	actSnifferResults
	actProbes
	actReboot
	actPing
	actListSD
	actBack
)

type menuItem struct {
	label  string
	action action
}

type inputPurpose int

const (
	inputNone inputPurpose = iota
	inputManualPath
	inputSelect
	inputPing
)

type confirmKind int

const (
	confirmConnect confirmKind = iota
	confirmReboot
	confirmQuit
)

type confirmDialog struct {
	kind     confirmKind
	prompt   string
	fallback bool // answer for enter
	device   string
}

// resultView is a scrollable block of pre-rendered lines.
type resultView struct {
	title    string
	header   string
	lines    []string
	offset   int
	returnTo screen
}

// connectedMsg carries the outcome of opening a device.
type connectedMsg struct {
	device string
	ctrl   Controller
	err    error
}

// Model is the bubbletea model of the UI.
type Model struct {
	ctx    context.Context
	opts   Options
	keymap *keymap.Keymap
	logger *logging.Logger

	width  int
	height int

	screen screen
	cursor int
	ports  []serialport.PortInfo

	ctrl       Controller
	device     string
	events     <-chan event.Event
	subID      string
	hotplug    <-chan struct{}
	hotWaiting bool
	stopWatch  context.CancelFunc

	input      textinput.Model
	inputFor   inputPurpose
	confirm    *confirmDialog
	view       *resultView
	console    []string
	consoleOff int

	busy    string
	spinner spinner.Model
	scanned *atomic.Int64

	status   string
	errMsg   string
	errLevel janoserrors.Severity
	showHelp bool
	lost     error
	quitting bool
}

// NewModel builds the model. ctx bounds device operations and the hotplug
// watcher.
func NewModel(ctx context.Context, opts Options) Model {
	if opts.Ports == nil {
		opts.Ports = serialport.SystemPorts
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = defaultUpdateInterval
	}
	if opts.MaxConsoleLines <= 0 {
		opts.MaxConsoleLines = defaultMaxConsoleLines
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 48

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Active().Warning

	m := Model{
		ctx:     ctx,
		opts:    opts,
		keymap:  keymap.DefaultKeymap(),
		logger:  logger.WithComponent("tui"),
		screen:  screenPicker,
		input:   ti,
		spinner: sp,
		scanned: new(atomic.Int64),
	}
	m.startWatch()
	return m
}

// startWatch follows device hotplug for the picker. Failure only disables
// automatic rescans.
func (m *Model) startWatch() {
	if m.opts.WatchDir == "" || m.hotplug != nil {
		return
	}
	ctx, cancel := context.WithCancel(m.ctx)
	ch, err := serialport.Watch(ctx, m.opts.WatchDir, m.opts.Filter)
	if err != nil {
		cancel()
		m.logger.Warn("device hotplug disabled", "dir", m.opts.WatchDir, "error", err)
		return
	}
	m.hotplug = ch
	m.stopWatch = cancel
}

func (m *Model) endWatch() {
	if m.stopWatch != nil {
		m.stopWatch()
	}
	m.stopWatch = nil
	m.hotplug = nil
	m.hotWaiting = false
}

// Init starts device discovery, or connects when a device was given.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{msg.Tick(m.opts.UpdateInterval)}
	if m.opts.Device != "" {
		cmds = append(cmds, m.connectCmd(m.opts.Device))
	} else {
		cmds = append(cmds, msg.ListPorts(m.opts.Ports, m.opts.Filter))
	}
	return tea.Batch(cmds...)
}

// Controller returns the connected controller, or nil.
func (m Model) Controller() Controller {
	return m.ctrl
}

func (m Model) menuItems() []menuItem {
	switch m.screen {
	case screenMain:
		return []menuItem{
			{"Scan", actScanMenu},
			{"Sniffer", actSnifferMenu},
			{"System", actSystemMenu},
			{"Console", actConsole},
		}
	case screenScan:
		return []menuItem{
			{"Scan Networks", actScan},
			{"Show Scan Results", actShowScan},
			{"Select Networks", actSelect},
			{"Back", actBack},
		}
	case screenSniffer:
		toggle := "Start Sniffer"
		if m.ctrl != nil && m.ctrl.SnifferRunning() {
			toggle = "Stop Sniffer"
		}
		return []menuItem{
			{toggle, actToggleSniffer},
			{"Show Results", actSnifferResults},
			{"Show Probes", actProbes},
			{"Back", actBack},
		}
	case screenSystem:
		return []menuItem{
			{"Reboot Device", actReboot},
			{"Ping Host", actPing},
			{"List SD Card", actListSD},
			{"Back", actBack},
		}
	}
	return nil
}

func menuTitle(s screen) string {
	switch s {
	case screenScan:
		return "Scan"
	case screenSniffer:
		return "Sniffer"
	case screenSystem:
		return "System"
	case screenConsole:
		return "Console"
	case screenPicker:
		return "Select Device"
	}
	return "Main Menu"
}

// mode maps the current state to the keymap mode that handles keys.
func (m Model) mode() keymap.Mode {
	switch {
	case m.confirm != nil:
		return keymap.ModeConfirm
	case m.inputFor != inputNone:
		return keymap.ModeInput
	}
	switch m.screen {
	case screenPicker:
		return keymap.ModePicker
	case screenView:
		return keymap.ModeView
	case screenConsole:
		return keymap.ModeConsole
	}
	return keymap.ModeMenu
}

func (m *Model) appendConsole(lines ...string) {
	m.console = append(m.console, lines...)
	if over := len(m.console) - m.opts.MaxConsoleLines; over > 0 {
		m.console = append(m.console[:0:0], m.console[over:]...)
	}
}

func (m *Model) setError(err error) {
	m.errMsg = err.Error()
	m.errLevel = janoserrors.GetSeverity(err)
	m.status = ""
}

func (m *Model) fail(text string) {
	m.errMsg = text
	m.errLevel = janoserrors.SeverityError
	m.status = ""
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.errMsg = ""
}
