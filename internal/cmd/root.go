package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/D3h420/janos-app/internal/bridge"
	"github.com/D3h420/janos-app/internal/cmd/board"
	cmdconfig "github.com/D3h420/janos-app/internal/cmd/config"
	cmdhistory "github.com/D3h420/janos-app/internal/cmd/history"
	cmdsession "github.com/D3h420/janos-app/internal/cmd/session"
	"github.com/D3h420/janos-app/internal/config"
	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/event"
	"github.com/D3h420/janos-app/internal/serialport"
	"github.com/D3h420/janos-app/internal/tui"
	"github.com/D3h420/janos-app/internal/tui/styles"
)

// Version is set at build time with -ldflags "-X .../internal/cmd.Version=...".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "janos [device]",
	Short: "Serial control bridge for JanOS ESP32 boards",
	Long: `janos drives an ESP32 running the JanOS firmware over its USB serial port.

Without a subcommand it opens the interactive menu: pick a serial device,
then scan for networks, run the packet sniffer, read probe requests or
talk to the board through the raw console. The one-shot subcommands run
a single operation and disconnect.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runInteractive,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the janos version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("janos %s\n", Version)
	},
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), formatError(err))
	}
	return err
}

// formatError renders a command failure for the terminal. Bridge errors that
// are not meant for users, such as unexpected firmware output, carry a pointer
// to the session log where the raw lines are kept.
func formatError(err error) string {
	msg := "Error: " + err.Error()
	var bridgeErr janoserrors.BridgeError
	if janoserrors.As(err, &bridgeErr) && !janoserrors.IsUserFacing(err) {
		msg += "\nDetails are in the session log; see 'janos logs'."
	}
	return msg
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.config/janos/config.yaml)")
	flags.StringP("device", "d", "", "serial device path (e.g. /dev/ttyUSB0)")
	flags.Int("baud", serialport.DefaultBaudRate, "serial baud rate")
	flags.String("log-level", "", "session log level (DEBUG, INFO, WARN, ERROR)")
	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("device", flags.Lookup("device"))
	_ = viper.BindPFlag("serial.baud_rate", flags.Lookup("baud"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
	board.Register(rootCmd)
	cmdconfig.Register(rootCmd)
	cmdhistory.Register(rootCmd)
	cmdsession.Register(rootCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("JANOS")
	// e.g. JANOS_SERIAL_BAUD_RATE for serial.baud_rate
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if _, errs := styles.DiscoverCustomThemes(config.ThemesDir()); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "warning: theme %v\n", e)
		}
	}
	styles.SetActiveTheme(styles.ThemeName(cfg.TUI.Theme))

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("the interactive menu needs a terminal; use a subcommand (see 'janos --help')")
	}

	device := viper.GetString("device")
	if len(args) == 1 {
		device = args[0]
	}

	filter, err := board.PortFilter(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	board.PruneHistory(ctx, cfg)

	bus := event.NewBus(nil)
	connect := func(ctx context.Context, dev string) (tui.Controller, error) {
		c, err := bridge.Connect(ctx, board.ConnectOptions(cfg, dev, bus))
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	app := tui.New(ctx, tui.Options{
		Device:          device,
		Connect:         connect,
		Ports:           serialport.SystemPorts,
		Filter:          filter,
		WatchDir:        serialport.DefaultWatchDir,
		Bus:             bus,
		MaxConsoleLines: cfg.TUI.MaxConsoleLines,
		UpdateInterval:  cfg.Sniffer.UpdateInterval(),
	})
	return app.Run()
}
