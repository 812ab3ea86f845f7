package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andy/invoicer/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the terminal UI",
	Long:  `Launch the interactive terminal user interface for invoicer.`,
	Run:   launchTUI,
}

func launchTUI(cmd *cobra.Command, args []string) {
	actor, err := currentActor(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "No acting owner: %v\n\n", err)
		fmt.Fprintln(os.Stderr, "Register one first:")
		fmt.Fprintln(os.Stderr, "  invoicer owners add you@example.com \"Your Business\"")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Run 'invoicer --help' for more commands")
		os.Exit(1)
	}

	if err := tui.Run(appInstance, actor); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		os.Exit(1)
	}
}
