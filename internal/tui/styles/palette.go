package styles

import (
	"slices"

	"github.com/charmbracelet/lipgloss"
)

// ThemeName represents a named color theme.
type ThemeName string

// Available theme names.
const (
	ThemeDefault        ThemeName = "default"         // Purple/green dark theme
	ThemeMonokai        ThemeName = "monokai"         // Classic Monokai editor colors
	ThemeDracula        ThemeName = "dracula"         // Dracula theme colors
	ThemeNord           ThemeName = "nord"            // Nord theme - cool blue-gray
	ThemeGruvbox        ThemeName = "gruvbox"         // Gruvbox retro groove
	ThemeSolarizedLight ThemeName = "solarized-light" // For light terminals
)

// BuiltinThemes returns all built-in theme names.
func BuiltinThemes() []string {
	return []string{
		string(ThemeDefault),
		string(ThemeMonokai),
		string(ThemeDracula),
		string(ThemeNord),
		string(ThemeGruvbox),
		string(ThemeSolarizedLight),
	}
}

// ValidThemes returns all valid theme names (built-in + custom).
func ValidThemes() []string {
	themes := BuiltinThemes()
	themes = append(themes, CustomThemeNames()...)
	return themes
}

// IsValidTheme checks if a theme name is valid (built-in or custom).
func IsValidTheme(name string) bool {
	if slices.Contains(BuiltinThemes(), name) {
		return true
	}
	return IsCustomTheme(name)
}

// ColorPalette defines the color scheme for a theme.
type ColorPalette struct {
	// Primary accent color (titles, the selected menu entry)
	Primary lipgloss.Color
	// Secondary accent color (success, connected state)
	Secondary lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	// Muted color (help text, idle state)
	Muted   lipgloss.Color
	Surface lipgloss.Color
	Text    lipgloss.Color
	Border  lipgloss.Color

	// Signal strength colors for network tables
	SignalStrong lipgloss.Color
	SignalFair   lipgloss.Color
	SignalWeak   lipgloss.Color

	// Console colors
	ConsoleCommand lipgloss.Color
	ConsoleOutput  lipgloss.Color
}

// DefaultPalette returns the default purple/green dark theme palette.
func DefaultPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#A78BFA"), // Purple (violet-400)
		Secondary: lipgloss.Color("#10B981"), // Green
		Warning:   lipgloss.Color("#F59E0B"), // Amber
		Error:     lipgloss.Color("#F87171"), // Red (red-400)
		Muted:     lipgloss.Color("#9CA3AF"), // Gray
		Surface:   lipgloss.Color("#1F2937"), // Dark surface
		Text:      lipgloss.Color("#F9FAFB"), // Light text
		Border:    lipgloss.Color("#6B7280"), // Gray-500

		SignalStrong: lipgloss.Color("#22C55E"),
		SignalFair:   lipgloss.Color("#FBBF24"),
		SignalWeak:   lipgloss.Color("#F87171"),

		ConsoleCommand: lipgloss.Color("#60A5FA"),
		ConsoleOutput:  lipgloss.Color("#E5E7EB"),
	}
}

// MonokaiPalette returns the classic Monokai editor theme palette.
func MonokaiPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#F92672"), // Monokai pink/magenta
		Secondary: lipgloss.Color("#A6E22E"), // Monokai green
		Warning:   lipgloss.Color("#E6DB74"), // Monokai yellow
		Error:     lipgloss.Color("#F92672"),
		Muted:     lipgloss.Color("#75715E"), // Monokai comment gray
		Surface:   lipgloss.Color("#272822"),
		Text:      lipgloss.Color("#F8F8F2"),
		Border:    lipgloss.Color("#49483E"),

		SignalStrong: lipgloss.Color("#A6E22E"),
		SignalFair:   lipgloss.Color("#E6DB74"),
		SignalWeak:   lipgloss.Color("#F92672"),

		ConsoleCommand: lipgloss.Color("#66D9EF"), // Cyan
		ConsoleOutput:  lipgloss.Color("#F8F8F2"),
	}
}

// DraculaPalette returns the Dracula theme palette.
func DraculaPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#BD93F9"), // Dracula purple
		Secondary: lipgloss.Color("#50FA7B"), // Dracula green
		Warning:   lipgloss.Color("#F1FA8C"), // Dracula yellow
		Error:     lipgloss.Color("#FF5555"), // Dracula red
		Muted:     lipgloss.Color("#6272A4"), // Dracula comment
		Surface:   lipgloss.Color("#282A36"),
		Text:      lipgloss.Color("#F8F8F2"),
		Border:    lipgloss.Color("#44475A"),

		SignalStrong: lipgloss.Color("#50FA7B"),
		SignalFair:   lipgloss.Color("#F1FA8C"),
		SignalWeak:   lipgloss.Color("#FF5555"),

		ConsoleCommand: lipgloss.Color("#8BE9FD"),
		ConsoleOutput:  lipgloss.Color("#F8F8F2"),
	}
}

// NordPalette returns the Nord theme palette.
func NordPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#88C0D0"), // Nord frost (cyan)
		Secondary: lipgloss.Color("#A3BE8C"), // Nord aurora green
		Warning:   lipgloss.Color("#EBCB8B"), // Nord aurora yellow
		Error:     lipgloss.Color("#BF616A"), // Nord aurora red
		Muted:     lipgloss.Color("#4C566A"),
		Surface:   lipgloss.Color("#2E3440"),
		Text:      lipgloss.Color("#ECEFF4"),
		Border:    lipgloss.Color("#3B4252"),

		SignalStrong: lipgloss.Color("#A3BE8C"),
		SignalFair:   lipgloss.Color("#EBCB8B"),
		SignalWeak:   lipgloss.Color("#BF616A"),

		ConsoleCommand: lipgloss.Color("#81A1C1"),
		ConsoleOutput:  lipgloss.Color("#D8DEE9"),
	}
}

// GruvboxPalette returns the Gruvbox dark palette.
func GruvboxPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#83A598"), // Gruvbox aqua
		Secondary: lipgloss.Color("#B8BB26"), // Gruvbox green
		Warning:   lipgloss.Color("#FABD2F"), // Gruvbox yellow
		Error:     lipgloss.Color("#FB4934"), // Gruvbox red
		Muted:     lipgloss.Color("#928374"),
		Surface:   lipgloss.Color("#282828"),
		Text:      lipgloss.Color("#EBDBB2"),
		Border:    lipgloss.Color("#3C3836"),

		SignalStrong: lipgloss.Color("#B8BB26"),
		SignalFair:   lipgloss.Color("#FABD2F"),
		SignalWeak:   lipgloss.Color("#FB4934"),

		ConsoleCommand: lipgloss.Color("#FE8019"),
		ConsoleOutput:  lipgloss.Color("#EBDBB2"),
	}
}

// SolarizedLightPalette returns the Solarized Light palette.
func SolarizedLightPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#268BD2"), // Solarized blue
		Secondary: lipgloss.Color("#859900"), // Solarized green
		Warning:   lipgloss.Color("#B58900"), // Solarized yellow
		Error:     lipgloss.Color("#DC322F"), // Solarized red
		Muted:     lipgloss.Color("#93A1A1"),
		Surface:   lipgloss.Color("#FDF6E3"),
		Text:      lipgloss.Color("#657B83"),
		Border:    lipgloss.Color("#EEE8D5"),

		SignalStrong: lipgloss.Color("#859900"),
		SignalFair:   lipgloss.Color("#B58900"),
		SignalWeak:   lipgloss.Color("#DC322F"),

		ConsoleCommand: lipgloss.Color("#2AA198"),
		ConsoleOutput:  lipgloss.Color("#586E75"),
	}
}

// GetPalette returns the color palette for the given theme name.
// Custom themes win over built-ins; unknown names get the default palette.
func GetPalette(name ThemeName) *ColorPalette {
	if custom := GetCustomTheme(name); custom != nil {
		return custom.ToPalette()
	}

	switch name {
	case ThemeMonokai:
		return MonokaiPalette()
	case ThemeDracula:
		return DraculaPalette()
	case ThemeNord:
		return NordPalette()
	case ThemeGruvbox:
		return GruvboxPalette()
	case ThemeSolarizedLight:
		return SolarizedLightPalette()
	default:
		return DefaultPalette()
	}
}
