package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
)

// interruptMsg is sent when the process receives a termination signal.
type interruptMsg struct{}

// App runs the terminal UI.
type App struct {
	program *tea.Program
	model   Model
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates the UI application.
func New(ctx context.Context, opts Options) *App {
	ctx, cancel := context.WithCancel(ctx)
	return &App{
		model:  NewModel(ctx, opts),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run starts the TUI and blocks until it exits. A connected device is always
// closed on the way out, which stops anything still running on the board.
func (a *App) Run() error {
	defer a.cancel()

	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	// Handle signals to ensure the board is stopped on unexpected exit
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			a.program.Send(interruptMsg{})
		case <-a.ctx.Done():
		}
	}()

	final, err := a.program.Run()
	if m, ok := final.(Model); ok && m.ctrl != nil {
		if cerr := m.ctrl.Close(context.WithoutCancel(a.ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
