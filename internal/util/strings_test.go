package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func TestTruncateANSI(t *testing.T) {
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"fits", "HomeNet", 10, "HomeNet"},
		{"exact", "HomeNet", 7, "HomeNet"},
		{"cut", "CoffeeShop_Guest", 10, "CoffeeS..."},
		{"tiny width", "HomeNet", 2, "..."},
		{"wide runes", "日本語ネットワーク", 9, "日本語..."},
		{"styled", red.Render("-48 dBm signal"), 8, "-48 d..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateANSI(tt.input, tt.maxWidth)
			if plain := ansi.Strip(got); plain != tt.want {
				t.Errorf("TruncateANSI(%q, %d) = %q, want %q", tt.input, tt.maxWidth, plain, tt.want)
			}
			if w := lipgloss.Width(got); w > max(tt.maxWidth, 3) {
				t.Errorf("TruncateANSI(%q, %d) width = %d", tt.input, tt.maxWidth, w)
			}
		})
	}
}

func TestPadANSI(t *testing.T) {
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"pads", "ch", 5, "ch   "},
		{"exact", "WPA2", 4, "WPA2"},
		{"truncates", "AA:BB:CC:DD:EE:01", 8, "AA:BB..."},
		{"zero width", "x", 0, ""},
		{"styled", red.Render("-71"), 5, "-71  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PadANSI(tt.input, tt.width)
			if plain := ansi.Strip(got); plain != tt.want {
				t.Errorf("PadANSI(%q, %d) = %q, want %q", tt.input, tt.width, plain, tt.want)
			}
		})
	}
}

func TestCleanLine(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Scan results printed", "Scan results printed"},
		{"\x1b[32mI (1234) wifi: ok\x1b[0m", "I (1234) wifi: ok"},
		{"col1\tcol2", "col1 col2"},
		{"bell\x07 and nul\x00", "bell and nul"},
		{"trailing\r", "trailing"},
	}
	for _, tt := range tests {
		if got := CleanLine(tt.input); got != tt.want {
			t.Errorf("CleanLine(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
