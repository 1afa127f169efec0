package styles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// ThemeFile represents a custom theme definition loaded from YAML.
type ThemeFile struct {
	Name        string      `yaml:"name"`
	Author      string      `yaml:"author,omitempty"`
	Description string      `yaml:"description,omitempty"`
	Version     string      `yaml:"version"` // currently "1"
	Colors      ThemeColors `yaml:"colors"`
}

// ThemeColors contains all color definitions for a theme, in #RRGGBB or
// #RGB form.
type ThemeColors struct {
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
	Warning   string `yaml:"warning"`
	Error     string `yaml:"error"`
	Muted     string `yaml:"muted"`
	Surface   string `yaml:"surface"`
	Text      string `yaml:"text"`
	Border    string `yaml:"border"`

	// Optional; default to secondary, warning and error.
	Signal ThemeSignalColors `yaml:"signal,omitempty"`
	// Optional; default to primary and text.
	Console ThemeConsoleColors `yaml:"console,omitempty"`
}

// ThemeSignalColors defines the RSSI colors.
type ThemeSignalColors struct {
	Strong string `yaml:"strong,omitempty"`
	Fair   string `yaml:"fair,omitempty"`
	Weak   string `yaml:"weak,omitempty"`
}

// ThemeConsoleColors defines the console view colors.
type ThemeConsoleColors struct {
	Command string `yaml:"command,omitempty"`
	Output  string `yaml:"output,omitempty"`
}

var hexColorRegex = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// LoadThemeFile loads a theme from a YAML file.
func LoadThemeFile(path string) (*ThemeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading theme file: %w", err)
	}

	var theme ThemeFile
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("parsing theme file: %w", err)
	}

	if err := theme.Validate(); err != nil {
		return nil, fmt.Errorf("invalid theme: %w", err)
	}

	return &theme, nil
}

// Validate checks that the theme file is well-formed.
func (t *ThemeFile) Validate() error {
	if t.Name == "" {
		return errors.New("theme name is required")
	}
	if t.Version == "" {
		return errors.New("theme version is required")
	}
	if t.Version != "1" {
		return fmt.Errorf("unsupported theme version: %s (supported: 1)", t.Version)
	}

	required := []struct{ name, value string }{
		{"primary", t.Colors.Primary},
		{"secondary", t.Colors.Secondary},
		{"warning", t.Colors.Warning},
		{"error", t.Colors.Error},
		{"muted", t.Colors.Muted},
		{"surface", t.Colors.Surface},
	}
	for _, c := range required {
		if c.value == "" {
			return fmt.Errorf("required color %q is missing", c.name)
		}
		if !isValidHexColor(c.value) {
			return fmt.Errorf("invalid hex color for %s: %q", c.name, c.value)
		}
	}

	optional := []struct{ name, value string }{
		{"text", t.Colors.Text},
		{"border", t.Colors.Border},
		{"signal.strong", t.Colors.Signal.Strong},
		{"signal.fair", t.Colors.Signal.Fair},
		{"signal.weak", t.Colors.Signal.Weak},
		{"console.command", t.Colors.Console.Command},
		{"console.output", t.Colors.Console.Output},
	}
	for _, c := range optional {
		if c.value != "" && !isValidHexColor(c.value) {
			return fmt.Errorf("invalid hex color for %s: %q", c.name, c.value)
		}
	}
	return nil
}

func isValidHexColor(color string) bool {
	return hexColorRegex.MatchString(color)
}

// ToPalette converts the theme file to a ColorPalette, filling optional
// colors from the base ones.
func (t *ThemeFile) ToPalette() *ColorPalette {
	c := t.Colors
	text := colorOrDefault(c.Text, "#F9FAFB")
	return &ColorPalette{
		Primary:   lipgloss.Color(c.Primary),
		Secondary: lipgloss.Color(c.Secondary),
		Warning:   lipgloss.Color(c.Warning),
		Error:     lipgloss.Color(c.Error),
		Muted:     lipgloss.Color(c.Muted),
		Surface:   lipgloss.Color(c.Surface),
		Text:      text,
		Border:    colorOrDefault(c.Border, c.Muted),

		SignalStrong: colorOrDefault(c.Signal.Strong, c.Secondary),
		SignalFair:   colorOrDefault(c.Signal.Fair, c.Warning),
		SignalWeak:   colorOrDefault(c.Signal.Weak, c.Error),

		ConsoleCommand: colorOrDefault(c.Console.Command, c.Primary),
		ConsoleOutput:  colorOrDefault(c.Console.Output, string(text)),
	}
}

func colorOrDefault(color, defaultColor string) lipgloss.Color {
	if color != "" {
		return lipgloss.Color(color)
	}
	return lipgloss.Color(defaultColor)
}

var customThemes = make(map[ThemeName]*ThemeFile)

// RegisterCustomTheme registers a custom theme by name.
func RegisterCustomTheme(name ThemeName, theme *ThemeFile) {
	customThemes[name] = theme
}

// GetCustomTheme returns a custom theme by name, or nil if not found.
func GetCustomTheme(name ThemeName) *ThemeFile {
	return customThemes[name]
}

// CustomThemeNames returns the registered custom theme names, sorted.
func CustomThemeNames() []string {
	names := make([]string, 0, len(customThemes))
	for name := range customThemes {
		names = append(names, string(name))
	}
	slices.Sort(names)
	return names
}

// ClearCustomThemes removes all registered custom themes.
func ClearCustomThemes() {
	customThemes = make(map[ThemeName]*ThemeFile)
}

// DiscoverCustomThemes loads every *.yaml / *.yml theme in dir. A missing
// directory is not an error. Invalid files are skipped and reported.
func DiscoverCustomThemes(dir string) ([]string, []error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, []error{fmt.Errorf("reading themes directory: %w", err)}
	}

	var loaded []string
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		theme, err := LoadThemeFile(filepath.Join(dir, name))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		themeName := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		if IsBuiltinTheme(themeName) {
			errs = append(errs, fmt.Errorf("%s: cannot override built-in theme '%s'", name, themeName))
			continue
		}

		RegisterCustomTheme(ThemeName(themeName), theme)
		loaded = append(loaded, themeName)
	}
	return loaded, errs
}

// IsBuiltinTheme checks if a theme name is a built-in theme.
func IsBuiltinTheme(name string) bool {
	return slices.Contains(BuiltinThemes(), name)
}

// IsCustomTheme checks if a theme name is a registered custom theme.
func IsCustomTheme(name string) bool {
	_, ok := customThemes[ThemeName(name)]
	return ok
}

// ExportTheme renders a theme as YAML, ready to be edited and dropped into
// the themes directory.
func ExportTheme(name ThemeName) ([]byte, error) {
	if custom := GetCustomTheme(name); custom != nil {
		return yaml.Marshal(custom)
	}
	return yaml.Marshal(paletteToThemeFile(string(name), GetPalette(name)))
}

func paletteToThemeFile(name string, p *ColorPalette) *ThemeFile {
	return &ThemeFile{
		Name:        name,
		Description: fmt.Sprintf("Exported from built-in theme '%s'", name),
		Version:     "1",
		Colors: ThemeColors{
			Primary:   string(p.Primary),
			Secondary: string(p.Secondary),
			Warning:   string(p.Warning),
			Error:     string(p.Error),
			Muted:     string(p.Muted),
			Surface:   string(p.Surface),
			Text:      string(p.Text),
			Border:    string(p.Border),
			Signal: ThemeSignalColors{
				Strong: string(p.SignalStrong),
				Fair:   string(p.SignalFair),
				Weak:   string(p.SignalWeak),
			},
			Console: ThemeConsoleColors{
				Command: string(p.ConsoleCommand),
				Output:  string(p.ConsoleOutput),
			},
		},
	}
}
