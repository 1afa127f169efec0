// Package styles holds the lipgloss styles and color themes of the terminal
// UI. Styles are built from a ColorPalette; SetActiveTheme swaps the set
// returned by Active.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/D3h420/janos-app/internal/janos"
)

// Styles is the complete style set for one palette.
type Styles struct {
	Palette *ColorPalette

	Title    lipgloss.Style
	Subtitle lipgloss.Style

	// Status banner
	Banner        lipgloss.Style
	BannerLabel   lipgloss.Style
	BannerValue   lipgloss.Style
	StatusRunning lipgloss.Style
	StatusIdle    lipgloss.Style

	// Menus
	MenuItem     lipgloss.Style
	MenuSelected lipgloss.Style
	MenuKey      lipgloss.Style
	MenuDisabled lipgloss.Style

	// Tables
	TableHeader lipgloss.Style
	TableCell   lipgloss.Style

	SignalStrong lipgloss.Style
	SignalFair   lipgloss.Style
	SignalWeak   lipgloss.Style

	ConsoleCommand lipgloss.Style
	ConsoleOutput  lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style

	Box       lipgloss.Style
	Dialog    lipgloss.Style
	Help      lipgloss.Style
	HelpKey   lipgloss.Style
	Counter   lipgloss.Style
	InputLine lipgloss.Style
}

// New builds the style set for p.
func New(p *ColorPalette) *Styles {
	return &Styles{
		Palette: p,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary),
		Subtitle: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true),

		Banner: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		BannerLabel: lipgloss.NewStyle().Foreground(p.Muted),
		BannerValue: lipgloss.NewStyle().Foreground(p.Text).Bold(true),
		StatusRunning: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Surface).
			Background(p.Warning).
			Padding(0, 1),
		StatusIdle: lipgloss.NewStyle().
			Foreground(p.Surface).
			Background(p.Secondary).
			Padding(0, 1),

		MenuItem: lipgloss.NewStyle().
			Foreground(p.Text).
			PaddingLeft(2),
		MenuSelected: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary).
			PaddingLeft(0),
		MenuKey:      lipgloss.NewStyle().Foreground(p.Primary),
		MenuDisabled: lipgloss.NewStyle().Foreground(p.Muted).PaddingLeft(2),

		TableHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(p.Border),
		TableCell: lipgloss.NewStyle().Foreground(p.Text),

		SignalStrong: lipgloss.NewStyle().Foreground(p.SignalStrong),
		SignalFair:   lipgloss.NewStyle().Foreground(p.SignalFair),
		SignalWeak:   lipgloss.NewStyle().Foreground(p.SignalWeak),

		ConsoleCommand: lipgloss.NewStyle().Foreground(p.ConsoleCommand).Bold(true),
		ConsoleOutput:  lipgloss.NewStyle().Foreground(p.ConsoleOutput),

		Success: lipgloss.NewStyle().Foreground(p.Secondary),
		Warning: lipgloss.NewStyle().Foreground(p.Warning),
		Error:   lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(p.Muted),

		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		Dialog: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(p.Warning).
			Padding(1, 2),
		Help:    lipgloss.NewStyle().Foreground(p.Muted),
		HelpKey: lipgloss.NewStyle().Foreground(p.Primary).Bold(true),
		Counter: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Secondary),
		InputLine: lipgloss.NewStyle().Foreground(p.Text),
	}
}

// Signal returns the style for an RSSI reading such as "-61".
func (s *Styles) Signal(rssi string) lipgloss.Style {
	switch janos.SignalQuality(rssi) {
	case janos.QualityStrong:
		return s.SignalStrong
	case janos.QualityFair:
		return s.SignalFair
	case janos.QualityWeak:
		return s.SignalWeak
	default:
		return s.Muted
	}
}

var active = New(DefaultPalette())

// SetActiveTheme switches the style set returned by Active. It is called
// from the Bubble Tea event loop only.
func SetActiveTheme(name ThemeName) {
	active = New(GetPalette(name))
}

// Active returns the current style set.
func Active() *Styles {
	return active
}
