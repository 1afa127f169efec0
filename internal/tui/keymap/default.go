package keymap

import tea "github.com/charmbracelet/bubbletea"

// DefaultKeymap returns the default key bindings.
func DefaultKeymap() *Keymap {
	return &Keymap{
		Name: "default",
		Modes: map[Mode]*ModeBindings{
			ModePicker:  defaultPickerBindings(),
			ModeMenu:    defaultMenuBindings(),
			ModeView:    defaultViewBindings(),
			ModeInput:   defaultInputBindings(),
			ModeConfirm: defaultConfirmBindings(),
			ModeConsole: defaultConsoleBindings(),
		},
	}
}

func navigation() []KeyBinding {
	return []KeyBinding{
		{KeyType: tea.KeyUp, Command: CmdUp, Description: "up"},
		{KeyType: tea.KeyRunes, Rune: 'k', Command: CmdUp, Description: "up", Hidden: true},
		{KeyType: tea.KeyDown, Command: CmdDown, Description: "down"},
		{KeyType: tea.KeyRunes, Rune: 'j', Command: CmdDown, Description: "down", Hidden: true},
	}
}

func defaultPickerBindings() *ModeBindings {
	b := navigation()
	b = append(b,
		KeyBinding{KeyType: tea.KeyEnter, Command: CmdSelect, Description: "connect"},
		KeyBinding{KeyType: tea.KeyRunes, Rune: 'r', Command: CmdRefresh, Description: "rescan"},
		KeyBinding{KeyType: tea.KeyRunes, Rune: 'm', Command: CmdManualPath, Description: "manual path"},
		KeyBinding{KeyType: tea.KeyRunes, Rune: 'q', Command: CmdQuit, Description: "quit"},
		KeyBinding{KeyType: tea.KeyCtrlC, Command: CmdQuit, Description: "quit", Hidden: true},
	)
	return &ModeBindings{Mode: ModePicker, Bindings: b}
}

func defaultMenuBindings() *ModeBindings {
	b := navigation()
	b = append(b,
		KeyBinding{KeyType: tea.KeyEnter, Command: CmdSelect, Description: "select"},
		KeyBinding{KeyType: tea.KeyRunes, Rune: 'l', Command: CmdSelect, Description: "select", Hidden: true},
	)
	for r := '1'; r <= '9'; r++ {
		b = append(b, KeyBinding{KeyType: tea.KeyRunes, Rune: r, Command: CmdShortcut, Description: "pick", Hidden: true})
	}
	b = append(b,
		KeyBinding{KeyType: tea.KeyEsc, Command: CmdBack, Description: "back"},
		KeyBinding{KeyType: tea.KeyRunes, Rune: 'h', Command: CmdBack, Description: "back", Hidden: true},
		KeyBinding{KeyType: tea.KeyRunes, Rune: 's', Command: CmdStopAll, Description: "stop all"},
		KeyBinding{KeyType: tea.KeyRunes, Rune: '?', Command: CmdHelp, Description: "help"},
		KeyBinding{KeyType: tea.KeyRunes, Rune: 'q', Command: CmdQuit, Description: "quit"},
		KeyBinding{KeyType: tea.KeyCtrlC, Command: CmdQuit, Description: "quit", Hidden: true},
	)
	return &ModeBindings{Mode: ModeMenu, Bindings: b}
}

func defaultViewBindings() *ModeBindings {
	b := navigation()
	b = append(b,
		KeyBinding{KeyType: tea.KeyPgUp, Command: CmdPageUp, Description: "page up", Hidden: true},
		KeyBinding{KeyType: tea.KeyCtrlU, Command: CmdPageUp, Description: "page up", Hidden: true},
		KeyBinding{KeyType: tea.KeyPgDown, Command: CmdPageDown, Description: "page down", Hidden: true},
		KeyBinding{KeyType: tea.KeyCtrlD, Command: CmdPageDown, Description: "page down", Hidden: true},
		KeyBinding{KeyType: tea.KeyRunes, Rune: 'g', Command: CmdTop, Description: "top", Hidden: true},
		KeyBinding{KeyType: tea.KeyRunes, Rune: 'G', Command: CmdBottom, Description: "bottom", Hidden: true},
		KeyBinding{KeyType: tea.KeyEsc, Command: CmdBack, Description: "back"},
		KeyBinding{KeyType: tea.KeyEnter, Command: CmdBack, Description: "back", Hidden: true},
		KeyBinding{KeyType: tea.KeyRunes, Rune: 'q', Command: CmdBack, Description: "back", Hidden: true},
		KeyBinding{KeyType: tea.KeyCtrlC, Command: CmdQuit, Description: "quit", Hidden: true},
	)
	return &ModeBindings{Mode: ModeView, Bindings: b}
}

func defaultInputBindings() *ModeBindings {
	return &ModeBindings{
		Mode: ModeInput,
		Bindings: []KeyBinding{
			{KeyType: tea.KeyEnter, Command: CmdSubmit, Description: "submit"},
			{KeyType: tea.KeyEsc, Command: CmdCancel, Description: "cancel"},
			{KeyType: tea.KeyCtrlC, Command: CmdCancel, Description: "cancel", Hidden: true},
		},
	}
}

func defaultConfirmBindings() *ModeBindings {
	return &ModeBindings{
		Mode: ModeConfirm,
		Bindings: []KeyBinding{
			{KeyType: tea.KeyRunes, Rune: 'y', Command: CmdConfirm, Description: "yes"},
			{KeyType: tea.KeyRunes, Rune: 'Y', Command: CmdConfirm, Description: "yes", Hidden: true},
			{KeyType: tea.KeyRunes, Rune: 'n', Command: CmdCancel, Description: "no"},
			{KeyType: tea.KeyRunes, Rune: 'N', Command: CmdCancel, Description: "no", Hidden: true},
			{KeyType: tea.KeyEsc, Command: CmdCancel, Description: "no", Hidden: true},
			{KeyType: tea.KeyEnter, Command: CmdSelect, Description: "default"},
		},
	}
}

func defaultConsoleBindings() *ModeBindings {
	return &ModeBindings{
		Mode: ModeConsole,
		Bindings: []KeyBinding{
			{KeyType: tea.KeyEnter, Command: CmdSubmit, Description: "send"},
			{KeyType: tea.KeyPgUp, Command: CmdPageUp, Description: "scroll up"},
			{KeyType: tea.KeyPgDown, Command: CmdPageDown, Description: "scroll down"},
			{KeyType: tea.KeyEsc, Command: CmdBack, Description: "back"},
			{KeyType: tea.KeyCtrlC, Command: CmdBack, Description: "back", Hidden: true},
		},
	}
}
