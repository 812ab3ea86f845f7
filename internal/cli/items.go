package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/render"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage an invoice's line items",
	Long:  `List, add, edit, and remove line items. Totals are recomputed after every change.`,
}

var itemsListCmd = &cobra.Command{
	Use:   "list [invoice_id]",
	Short: "List line items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		invoiceID, err := parseID("invoice", args[0])
		if err != nil {
			return err
		}

		items, err := appInstance.InvoiceService.ListItems(ctx, actor, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to list items: %w", err)
		}

		if len(items) == 0 {
			fmt.Println("No items")
			return nil
		}

		fmt.Printf("%-5s %-30s %-8s %10s %14s %16s\n", "ID", "Name", "Unit", "Qty", "Unit Price", "Total")
		fmt.Println("-----------------------------------------------------------------------------------------")
		for _, it := range items {
			fmt.Printf("%-5d %-30s %-8s %10s %14s %16s\n",
				it.ID,
				truncate(it.Name, 30),
				truncate(it.Unit, 8),
				render.FormatQuantity(it.Quantity),
				money(it.UnitPrice),
				money(it.TotalPrice),
			)
		}

		fmt.Printf("\nTotal: %d item(s)\n", len(items))
		return nil
	},
}

var itemsAddCmd = &cobra.Command{
	Use:   "add [invoice_id] [name] [unit] [quantity] [unit_price]",
	Short: "Add a line item",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		invoiceID, err := parseID("invoice", args[0])
		if err != nil {
			return err
		}
		qty, err := domain.ParseQuantity(args[3])
		if err != nil {
			return fmt.Errorf("invalid quantity: %w", err)
		}
		price, err := domain.ParseMoney(args[4])
		if err != nil {
			return fmt.Errorf("invalid unit price: %w", err)
		}

		item := domain.NewInvoiceItem(args[1], args[2], qty, price)
		item.Description, _ = cmd.Flags().GetString("description")

		inv, err := appInstance.InvoiceService.AddItem(ctx, actor, invoiceID, item)
		if err != nil {
			return fmt.Errorf("failed to add item: %w", err)
		}

		fmt.Printf("✓ Added %s to %s (%s)\n", item.Name, inv.ReferenceNumber, money(item.TotalPrice))
		printTotals(inv)
		return nil
	},
}

var itemsEditCmd = &cobra.Command{
	Use:   "edit [invoice_id] [item_id]",
	Short: "Edit a line item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		invoiceID, err := parseID("invoice", args[0])
		if err != nil {
			return err
		}
		itemID, err := parseID("item", args[1])
		if err != nil {
			return err
		}

		patch := domain.ItemPatch{
			Name:        stringFlag(cmd, "name"),
			Unit:        stringFlag(cmd, "unit"),
			Description: stringFlag(cmd, "description"),
		}
		if patch.Quantity, err = decimalFlag(cmd, "quantity", domain.ParseQuantity); err != nil {
			return err
		}
		if patch.UnitPrice, err = decimalFlag(cmd, "price", domain.ParseMoney); err != nil {
			return err
		}
		if patch.IsEmpty() {
			return fmt.Errorf("nothing to change: pass at least one flag")
		}

		inv, err := appInstance.InvoiceService.UpdateItem(ctx, actor, invoiceID, itemID, patch)
		if err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}

		fmt.Printf("✓ Item #%d updated on %s\n", itemID, inv.ReferenceNumber)
		printTotals(inv)
		return nil
	},
}

var itemsRemoveCmd = &cobra.Command{
	Use:   "remove [invoice_id] [item_id]",
	Short: "Remove a line item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		invoiceID, err := parseID("invoice", args[0])
		if err != nil {
			return err
		}
		itemID, err := parseID("item", args[1])
		if err != nil {
			return err
		}

		inv, err := appInstance.InvoiceService.RemoveItem(ctx, actor, invoiceID, itemID)
		if err != nil {
			return fmt.Errorf("failed to remove item: %w", err)
		}

		fmt.Printf("✓ Removed item #%d from %s\n", itemID, inv.ReferenceNumber)
		printTotals(inv)
		return nil
	},
}

func init() {
	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsAddCmd)
	itemsCmd.AddCommand(itemsEditCmd)
	itemsCmd.AddCommand(itemsRemoveCmd)

	itemsAddCmd.Flags().String("description", "", "Longer description")

	itemsEditCmd.Flags().String("name", "", "Item name")
	itemsEditCmd.Flags().String("unit", "", "Unit of measure")
	itemsEditCmd.Flags().String("description", "", "Longer description")
	itemsEditCmd.Flags().String("quantity", "", "Quantity")
	itemsEditCmd.Flags().String("price", "", "Unit price")
}
