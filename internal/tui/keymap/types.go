// Package keymap provides key binding definitions and lookup for the TUI.
// Bindings are declared per input mode so the help bar and the key handler
// read from the same table.
package keymap

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Mode represents the current input mode of the TUI.
type Mode string

const (
	ModePicker  Mode = "picker"  // Choosing a serial device
	ModeMenu    Mode = "menu"    // Navigating a menu
	ModeView    Mode = "view"    // Reading a table or command output
	ModeInput   Mode = "input"   // Typing into a text field
	ModeConfirm Mode = "confirm" // Yes/no dialog
	ModeConsole Mode = "console" // Raw console with a command line
)

// Command represents a named action that can be triggered by a key binding.
type Command string

// Navigation
const (
	CmdUp       Command = "up"
	CmdDown     Command = "down"
	CmdPageUp   Command = "page_up"
	CmdPageDown Command = "page_down"
	CmdTop      Command = "top"
	CmdBottom   Command = "bottom"
	CmdSelect   Command = "select"
	CmdBack     Command = "back"
	CmdShortcut Command = "shortcut" // 1-9 picks a menu entry directly
)

// Global
const (
	CmdHelp    Command = "help"
	CmdQuit    Command = "quit"
	CmdStopAll Command = "stop_all"
)

// Picker
const (
	CmdRefresh    Command = "refresh"
	CmdManualPath Command = "manual_path"
)

// Dialogs and text fields
const (
	CmdConfirm Command = "confirm"
	CmdCancel  Command = "cancel"
	CmdSubmit  Command = "submit"
)

// Modifier represents keyboard modifiers (Ctrl, Alt, Shift).
type Modifier uint8

const (
	ModNone  Modifier = 0
	ModCtrl  Modifier = 1 << iota
	ModAlt
	ModShift
)

// String returns a human-readable representation of modifiers.
func (m Modifier) String() string {
	if m == ModNone {
		return ""
	}
	var s string
	if m&ModCtrl != 0 {
		s += "ctrl+"
	}
	if m&ModAlt != 0 {
		s += "alt+"
	}
	if m&ModShift != 0 {
		s += "shift+"
	}
	return s
}

// KeyBinding represents a single key binding configuration.
type KeyBinding struct {
	// KeyType is the key. For rune keys use tea.KeyRunes and set Rune.
	KeyType tea.KeyType

	// Rune is the character for rune-based keys. Zero matches any rune.
	Rune rune

	Modifiers Modifier

	Command Command

	// Description is shown in the help overlay.
	Description string

	// Hidden bindings are left out of the one-line help bar.
	Hidden bool
}

// Matches checks if a tea.KeyMsg matches this binding.
func (kb KeyBinding) Matches(msg tea.KeyMsg) bool {
	wantAlt := kb.Modifiers&ModAlt != 0
	if msg.Alt != wantAlt {
		return false
	}

	if kb.KeyType != tea.KeyRunes {
		return msg.Type == kb.KeyType
	}

	if msg.Type != tea.KeyRunes || len(msg.Runes) == 0 {
		return false
	}
	if kb.Rune == 0 {
		return true
	}
	return msg.Runes[0] == kb.Rune
}

// String returns a human-readable representation of the key binding.
func (kb KeyBinding) String() string {
	prefix := kb.Modifiers.String()

	if kb.KeyType != tea.KeyRunes {
		return prefix + kb.KeyType.String()
	}

	switch kb.Rune {
	case ' ':
		return prefix + "space"
	case 0:
		return prefix + "any"
	default:
		return prefix + string(kb.Rune)
	}
}

// ModeBindings holds all key bindings for a specific mode.
type ModeBindings struct {
	Mode     Mode
	Bindings []KeyBinding
}

// GetBinding looks up a command for a key in this mode.
func (mb *ModeBindings) GetBinding(msg tea.KeyMsg) (Command, bool) {
	for _, binding := range mb.Bindings {
		if binding.Matches(msg) {
			return binding.Command, true
		}
	}
	return "", false
}

// Keymap contains all key bindings organized by mode.
type Keymap struct {
	Name  string
	Modes map[Mode]*ModeBindings
}

// GetBinding looks up a command for a key in a specific mode.
func (km *Keymap) GetBinding(msg tea.KeyMsg, mode Mode) (Command, bool) {
	mb, ok := km.Modes[mode]
	if !ok {
		return "", false
	}
	return mb.GetBinding(msg)
}

// GetModeBindings returns all bindings for a specific mode.
func (km *Keymap) GetModeBindings(mode Mode) []KeyBinding {
	mb, ok := km.Modes[mode]
	if !ok {
		return nil
	}
	return mb.Bindings
}

// HelpEntries returns one "key description" pair per command for the help
// bar of mode, in declaration order. Hidden bindings and repeated commands
// are skipped.
func (km *Keymap) HelpEntries(mode Mode) [][2]string {
	seen := make(map[Command]bool)
	var out [][2]string
	for _, b := range km.GetModeBindings(mode) {
		if b.Hidden || seen[b.Command] {
			continue
		}
		seen[b.Command] = true
		out = append(out, [2]string{b.String(), b.Description})
	}
	return out
}
