package board

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/D3h420/janos-app/internal/bridge"
	"github.com/D3h420/janos-app/internal/janos"
)

var pingCmd = &cobra.Command{
	Use:   "ping <host>",
	Short: "Ping a host from the board",
	Args:  cobra.ExactArgs(1),
	RunE:  runPing,
}

var rebootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Reboot the board",
	Long:  `Reboot the board. Asks for confirmation unless --yes is given.`,
	Args:  cobra.NoArgs,
	RunE:  runReboot,
}

var sdCmd = &cobra.Command{
	Use:   "sd",
	Short: "List the files on the board's SD card",
	Args:  cobra.NoArgs,
	RunE:  runSD,
}

var sendCmd = &cobra.Command{
	Use:   "send <command...>",
	Short: "Send a raw command line to the board",
	Long: `Send a raw command line to the board and print whatever it replies within
the response window. The arguments are joined with spaces.`,
	Example: `  janos send help
  janos send show_sniffer_results`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

var rebootYes bool

// confirmInput is read by the reboot prompt.
var confirmInput io.Reader = os.Stdin

func init() {
	rebootCmd.Flags().BoolVarP(&rebootYes, "yes", "y", false, "Reboot without asking")
}

func runPing(cmd *cobra.Command, args []string) error {
	// Reject bad hosts before touching the device.
	if _, err := janos.Ping(args[0]); err != nil {
		return err
	}
	return withController(cmd, func(ctx context.Context, c *bridge.Controller) error {
		reply, err := c.Ping(ctx, args[0])
		if err != nil {
			return err
		}
		printLines(reply.Lines)
		return nil
	})
}

// confirm asks a yes/no question; anything but y/yes is no.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(confirmInput).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func runReboot(cmd *cobra.Command, args []string) error {
	if !rebootYes && !confirm("Reboot the device?") {
		fmt.Println("Reboot canceled.")
		return nil
	}
	return withController(cmd, func(ctx context.Context, c *bridge.Controller) error {
		reply, err := c.Reboot(ctx)
		if err != nil {
			return err
		}
		fmt.Println("Reboot command sent.")
		for _, l := range reply.Lines {
			if strings.TrimSpace(l) != "" {
				fmt.Println(l)
			}
		}
		return nil
	})
}

func runSD(cmd *cobra.Command, args []string) error {
	return withController(cmd, func(ctx context.Context, c *bridge.Controller) error {
		entries, reply, err := c.ListSD(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			printLines(reply.Lines)
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%4d  %s\n", e.Index, e.Name)
		}
		return nil
	})
}

func runSend(cmd *cobra.Command, args []string) error {
	line, err := janos.ValidateRaw(strings.Join(args, " "))
	if err != nil {
		return err
	}
	return withController(cmd, func(ctx context.Context, c *bridge.Controller) error {
		reply, err := c.Send(ctx, line)
		if err != nil {
			return err
		}
		printLines(reply.Lines)
		return nil
	})
}
