package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset data in the database (staff only)",
	Long: `Reset data in the database. Only staff owners may reset.

Examples:
  invoicer reset invoices   # Delete all invoices and quotations; numbering restarts at 0001
  invoicer reset all        # Wipe everything: owners, clients, invoices`,
}

var resetInvoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Delete all invoices, quotations and their items",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL invoices and quotations for every owner. Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		// Order matters due to foreign keys
		if err := clearTables(cmd.Context(), "invoice_items", "invoices", "reference_sequences"); err != nil {
			return err
		}

		fmt.Println("All invoices and quotations have been deleted.")
		return nil
	},
}

var resetAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Delete ALL data: owners, clients, invoices, everything",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL data (owners, clients, invoices, everything). Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := clearTables(cmd.Context(), "invoice_items", "invoices", "reference_sequences", "clients", "owners"); err != nil {
			return err
		}

		fmt.Println("All data has been deleted.")
		return nil
	},
}

// clearTables empties the tables in order inside one transaction
func clearTables(ctx context.Context, tables ...string) error {
	actor, err := currentActor(ctx)
	if err != nil {
		return err
	}
	if !actor.Staff {
		return fmt.Errorf("reset requires a staff owner")
	}

	db := appInstance.DB
	err = db.WithinTx(ctx, func(ctx context.Context) error {
		for _, table := range tables {
			if _, err := db.Querier(ctx).ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	appInstance.Log.Warn("database reset", "tables", strings.Join(tables, ","), "owner_id", actor.OwnerID)
	return nil
}

func confirmPrompt(message string) bool {
	fmt.Printf("%s [y/N] ", message)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func init() {
	resetCmd.AddCommand(resetInvoicesCmd)
	resetCmd.AddCommand(resetAllCmd)
}
