package styles

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestIsValidHexColor(t *testing.T) {
	tests := []struct {
		color string
		want  bool
	}{
		{"#A78BFA", true},
		{"#a78bfa", true},
		{"#ABC", true},
		{"A78BFA", false},
		{"#AB", false},
		{"#ABCD", false},
		{"#GHIJKL", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isValidHexColor(tt.color); got != tt.want {
			t.Errorf("isValidHexColor(%q) = %v, want %v", tt.color, got, tt.want)
		}
	}
}

func validTheme() ThemeFile {
	return ThemeFile{
		Name:    "Test Theme",
		Version: "1",
		Colors: ThemeColors{
			Primary:   "#A78BFA",
			Secondary: "#10B981",
			Warning:   "#F59E0B",
			Error:     "#F87171",
			Muted:     "#9CA3AF",
			Surface:   "#1F2937",
		},
	}
}

func TestThemeFileValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ThemeFile)
		wantErr string
	}{
		{"valid minimal theme", func(*ThemeFile) {}, ""},
		{"missing name", func(f *ThemeFile) { f.Name = "" }, "name is required"},
		{"missing version", func(f *ThemeFile) { f.Version = "" }, "version is required"},
		{"wrong version", func(f *ThemeFile) { f.Version = "2" }, "unsupported theme version"},
		{"missing primary", func(f *ThemeFile) { f.Colors.Primary = "" }, `"primary" is missing`},
		{"bad required color", func(f *ThemeFile) { f.Colors.Error = "red" }, "invalid hex color for error"},
		{"bad optional color", func(f *ThemeFile) { f.Colors.Signal.Weak = "#12" }, "signal.weak"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validTheme()
			tt.mutate(&f)
			err := f.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestToPalette_FillsOptionalColors(t *testing.T) {
	f := validTheme()
	p := f.ToPalette()

	if p.SignalStrong != p.Secondary || p.SignalFair != p.Warning || p.SignalWeak != p.Error {
		t.Errorf("signal colors not derived from base colors: %+v", p)
	}
	if p.ConsoleCommand != p.Primary {
		t.Errorf("ConsoleCommand = %q, want primary %q", p.ConsoleCommand, p.Primary)
	}
	if p.Border != p.Muted {
		t.Errorf("Border = %q, want muted %q", p.Border, p.Muted)
	}
}

func TestDiscoverCustomThemes(t *testing.T) {
	ClearCustomThemes()
	t.Cleanup(ClearCustomThemes)
	dir := t.TempDir()

	write := func(name string, f ThemeFile) {
		t.Helper()
		data, err := yaml.Marshal(f)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("ocean.yaml", validTheme())
	write("default.yml", validTheme())
	bad := validTheme()
	bad.Version = ""
	write("broken.yaml", bad)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, errs := DiscoverCustomThemes(dir)
	if !slices.Equal(loaded, []string{"ocean"}) {
		t.Errorf("loaded = %v, want [ocean]", loaded)
	}
	if len(errs) != 2 {
		t.Errorf("got %d errors, want 2 (built-in override and invalid): %v", len(errs), errs)
	}
	if !IsValidTheme("ocean") {
		t.Error("ocean not registered")
	}
	if GetPalette("ocean").Primary != "#A78BFA" {
		t.Error("GetPalette did not use the custom theme")
	}
}

func TestDiscoverCustomThemes_MissingDir(t *testing.T) {
	loaded, errs := DiscoverCustomThemes(filepath.Join(t.TempDir(), "missing"))
	if len(loaded) != 0 || len(errs) != 0 {
		t.Errorf("DiscoverCustomThemes(missing) = %v, %v", loaded, errs)
	}
}

func TestExportTheme(t *testing.T) {
	ClearCustomThemes()
	data, err := ExportTheme(ThemeNord)
	if err != nil {
		t.Fatalf("ExportTheme() error: %v", err)
	}

	var f ThemeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		t.Fatalf("exported YAML does not parse: %v", err)
	}
	if err := f.Validate(); err != nil {
		t.Errorf("exported theme invalid: %v", err)
	}
	if f.Colors.Primary != string(NordPalette().Primary) {
		t.Errorf("Primary = %q", f.Colors.Primary)
	}
}
