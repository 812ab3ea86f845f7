package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andy/invoicer/internal/app"
	"github.com/andy/invoicer/internal/config"
	"github.com/andy/invoicer/internal/domain"
)

var appInstance *app.App

var (
	configPath string
	actingAs   string
)

var rootCmd = &cobra.Command{
	Use:   "invoicer",
	Short: "Invoices and quotations from the terminal",
	Long: `Invoicer keeps clients, invoices and quotations in an encrypted database,
numbers them sequentially and renders them as PDF.

By default, running invoicer without arguments launches the interactive TUI.
Use subcommands for CLI operations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appInstance != nil {
			return nil
		}
		a, err := app.New(cmd.Context(), configPath)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		appInstance = a
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		// Default behavior: launch TUI
		launchTUI(cmd, args)
	},
}

// Execute runs the root command and releases the app afterwards
func Execute() error {
	defer func() {
		if appInstance != nil {
			appInstance.Close()
		}
	}()
	return rootCmd.ExecuteContext(context.Background())
}

// SetApp sets the app instance for commands to use
func SetApp(a *app.App) {
	appInstance = a
}

// currentActor resolves the acting owner from --as, then owner.email
func currentActor(ctx context.Context) (domain.Actor, error) {
	email := actingAs
	if email == "" {
		email = appInstance.Config.Owner.Email
	}
	return appInstance.OwnerService.ResolveActor(ctx, email)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default $"+config.EnvConfigPath+" or ~/.config/invoicer/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&actingAs, "as", "", "Act as the owner with this email")

	rootCmd.AddCommand(ownersCmd)
	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(invoicesCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(tuiCmd)
}
