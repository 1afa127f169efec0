package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	appconfig "github.com/D3h420/janos-app/internal/config"
	"github.com/D3h420/janos-app/internal/tui/styles"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Manage color themes",
	Long: `Manage color themes for the janos TUI.

Besides the built-in themes, custom themes can be dropped into
~/.config/janos/themes/ as YAML files.

Use 'theme list' to see all available themes.
Use 'theme export' to create a template for custom themes.
Use 'theme info' to view details about a specific theme.`,
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available themes",
	RunE:  runThemeList,
}

var themeExportCmd = &cobra.Command{
	Use:   "export <theme-name> [output-file]",
	Short: "Export a theme to YAML",
	Long: `Export a theme to YAML format for customization or sharing.

If no output file is specified, the YAML is printed to stdout.

Examples:
  janos config theme export default                # Print default theme to stdout
  janos config theme export dracula my-theme.yaml  # Save dracula theme to file`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runThemeExport,
}

var themeInfoCmd = &cobra.Command{
	Use:   "info <theme-name>",
	Short: "Show information about a theme",
	Args:  cobra.ExactArgs(1),
	RunE:  runThemeInfo,
}

var themePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the custom themes directory path",
	RunE:  runThemePath,
}

var themeCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new custom theme",
	Long: `Create a new custom theme file in your themes directory, starting from
the colors of an existing theme.

Example:
  janos config theme create midnight --from nord
  # Creates ~/.config/janos/themes/midnight.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runThemeCreate,
}

var createFrom string

func init() {
	themeCreateCmd.Flags().StringVar(&createFrom, "from", string(styles.ThemeDefault), "Theme to copy colors from")

	themeCmd.AddCommand(themeListCmd)
	themeCmd.AddCommand(themeExportCmd)
	themeCmd.AddCommand(themeInfoCmd)
	themeCmd.AddCommand(themePathCmd)
	themeCmd.AddCommand(themeCreateCmd)
	configCmd.AddCommand(themeCmd)
}

// lookupTheme loads the custom themes and checks that name is usable,
// pointing at the broken file when a custom theme failed to load.
func lookupTheme(name string) error {
	_, loadErrs := styles.DiscoverCustomThemes(appconfig.ThemesDir())
	if styles.IsValidTheme(name) {
		return nil
	}
	for _, err := range loadErrs {
		msg := err.Error()
		if strings.HasPrefix(msg, name+".yaml:") || strings.HasPrefix(msg, name+".yml:") {
			return fmt.Errorf("theme '%s' exists but failed to load: %v\n\nFix the errors in your theme file and try again", name, err)
		}
	}
	return fmt.Errorf("unknown theme: %s\n\nRun 'janos config theme list' to see available themes.\nCustom themes should be placed in: %s",
		name, appconfig.ThemesDir())
}

func runThemeList(cmd *cobra.Command, args []string) error {
	_, loadErrs := styles.DiscoverCustomThemes(appconfig.ThemesDir())
	if len(loadErrs) > 0 {
		fmt.Fprintln(os.Stderr, "Warning: Some themes failed to load:")
		for _, err := range loadErrs {
			fmt.Fprintf(os.Stderr, "  - %v\n", err)
		}
		fmt.Fprintln(os.Stderr)
	}

	active := appconfig.Get().TUI.Theme
	mark := func(name string) string {
		if name == active {
			return " (active)"
		}
		return ""
	}

	fmt.Println("Built-in themes:")
	for _, name := range styles.BuiltinThemes() {
		fmt.Printf("  - %s%s\n", name, mark(name))
	}

	customNames := styles.CustomThemeNames()
	if len(customNames) > 0 {
		fmt.Println()
		fmt.Println("Custom themes:")
		sort.Strings(customNames)
		for _, name := range customNames {
			theme := styles.GetCustomTheme(styles.ThemeName(name))
			if theme == nil {
				continue
			}
			if theme.Author != "" {
				fmt.Printf("  - %s (by %s)%s\n", name, theme.Author, mark(name))
			} else {
				fmt.Printf("  - %s%s\n", name, mark(name))
			}
		}
	}

	fmt.Println()
	fmt.Printf("Custom themes directory: %s\n", appconfig.ThemesDir())
	return nil
}

func runThemeExport(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := lookupTheme(name); err != nil {
		return err
	}

	data, err := styles.ExportTheme(styles.ThemeName(name))
	if err != nil {
		return fmt.Errorf("exporting theme: %w", err)
	}

	if len(args) > 1 {
		outputPath := args[1]
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return fmt.Errorf("writing to %s: %w", outputPath, err)
		}
		fmt.Printf("Theme exported to: %s\n", outputPath)
		return nil
	}

	fmt.Println(string(data))
	return nil
}

func runThemeInfo(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := lookupTheme(name); err != nil {
		return err
	}

	fmt.Printf("Theme: %s\n", name)
	fmt.Println()

	if styles.IsBuiltinTheme(name) {
		fmt.Println("Type: Built-in")
	} else {
		fmt.Println("Type: Custom")
		if theme := styles.GetCustomTheme(styles.ThemeName(name)); theme != nil {
			if theme.Author != "" {
				fmt.Printf("Author: %s\n", theme.Author)
			}
			if theme.Description != "" {
				fmt.Printf("Description: %s\n", theme.Description)
			}
		}
	}

	p := styles.GetPalette(styles.ThemeName(name))
	fmt.Println()
	fmt.Println("Colors:")
	fmt.Printf("  Primary:   %s\n", p.Primary)
	fmt.Printf("  Secondary: %s\n", p.Secondary)
	fmt.Printf("  Warning:   %s\n", p.Warning)
	fmt.Printf("  Error:     %s\n", p.Error)
	fmt.Printf("  Muted:     %s\n", p.Muted)
	fmt.Printf("  Surface:   %s\n", p.Surface)
	fmt.Printf("  Text:      %s\n", p.Text)
	fmt.Printf("  Border:    %s\n", p.Border)
	fmt.Println("Signal:")
	fmt.Printf("  Strong:    %s\n", p.SignalStrong)
	fmt.Printf("  Fair:      %s\n", p.SignalFair)
	fmt.Printf("  Weak:      %s\n", p.SignalWeak)
	return nil
}

func runThemePath(cmd *cobra.Command, args []string) error {
	themesDir := appconfig.ThemesDir()
	fmt.Println(themesDir)

	if _, err := os.Stat(themesDir); os.IsNotExist(err) {
		fmt.Println()
		fmt.Println("Note: This directory does not exist yet.")
		fmt.Println("It will be created when you add your first custom theme.")
	}
	return nil
}

func runThemeCreate(cmd *cobra.Command, args []string) error {
	name := args[0]

	if name == "" {
		return fmt.Errorf("theme name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\:*?\"<>|") {
		return fmt.Errorf("theme name contains invalid characters")
	}
	if styles.IsBuiltinTheme(name) {
		return fmt.Errorf("cannot create custom theme with built-in name '%s'", name)
	}

	themesDir := appconfig.ThemesDir()
	themePath := filepath.Join(themesDir, name+".yaml")
	if _, err := os.Stat(themePath); err == nil {
		return fmt.Errorf("theme '%s' already exists at %s", name, themePath)
	}

	if err := lookupTheme(createFrom); err != nil {
		return err
	}
	base, err := styles.ExportTheme(styles.ThemeName(createFrom))
	if err != nil {
		return fmt.Errorf("reading base theme: %w", err)
	}
	var theme styles.ThemeFile
	if err := yaml.Unmarshal(base, &theme); err != nil {
		return fmt.Errorf("reading base theme: %w", err)
	}
	theme.Name = capitalizeFirst(name)
	theme.Author = ""
	theme.Description = fmt.Sprintf("Custom janos theme based on %s", createFrom)

	data, err := yaml.Marshal(&theme)
	if err != nil {
		return fmt.Errorf("creating theme: %w", err)
	}
	if err := os.MkdirAll(themesDir, 0o755); err != nil {
		return fmt.Errorf("creating themes directory: %w", err)
	}
	if err := os.WriteFile(themePath, data, 0o644); err != nil {
		return fmt.Errorf("creating theme: %w", err)
	}

	fmt.Printf("Created new theme: %s\n", themePath)
	fmt.Println()
	fmt.Println("Edit this file to customize your theme colors.")
	fmt.Printf("To use your new theme, run:\n")
	fmt.Printf("  janos config set tui.theme %s\n", name)
	return nil
}

// capitalizeFirst capitalizes the first character of a string.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
