package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/render"
	"github.com/andy/invoicer/internal/repository"
	"github.com/andy/invoicer/internal/service"
)

var invoicesCmd = &cobra.Command{
	Use:     "invoices",
	Aliases: []string{"invoice", "inv"},
	Short:   "Manage invoices and quotations",
	Long: `Create, list, edit, print and send invoices and quotations.

Invoices and quotations are numbered in separate series (I_SAE-0001,
Q_SAE-0001 by default). Turning a quotation into an invoice draws a new
number from the invoice series.`,
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		var filter repository.InvoiceFilter
		if cmd.Flags().Changed("client") {
			idOrName, _ := cmd.Flags().GetString("client")
			client, err := resolveClient(ctx, actor, idOrName)
			if err != nil {
				return err
			}
			filter.ClientID = &client.ID
		}
		if q := boolFlag(cmd, "quotations"); q != nil {
			s := domain.SeriesFor(*q)
			filter.Series = &s
		}
		filter.Paid = boolFlag(cmd, "paid")
		filter.Search, _ = cmd.Flags().GetString("search")

		invoices, err := appInstance.InvoiceService.ListInvoices(ctx, actor, filter)
		if err != nil {
			return fmt.Errorf("failed to list invoices: %w", err)
		}

		if len(invoices) == 0 {
			fmt.Println("No invoices found")
			return nil
		}

		fmt.Printf("%-5s %-12s %-22s %-11s %16s %-5s\n", "ID", "Reference", "Client", "Date", "Grand Total", "Paid")
		fmt.Println("-----------------------------------------------------------------------------")

		for _, inv := range invoices {
			clientName := fmt.Sprintf("Client #%d", inv.ClientID)
			if inv.Client != nil {
				clientName = inv.Client.Name
			}
			fmt.Printf("%-5d %-12s %-22s %-11s %16s %-5s\n",
				inv.ID,
				inv.ReferenceNumber,
				truncate(clientName, 22),
				render.DisplayDate(inv),
				money(inv.GrandTotal),
				yesNo(inv.IsPaid),
			)
		}

		fmt.Printf("\nTotal: %d invoice(s)\n", len(invoices))
		return nil
	},
}

var invoicesCreateCmd = &cobra.Command{
	Use:   "create [client_id_or_name]",
	Short: "Create a new invoice or quotation",
	Example: `  invoicer invoices create Globex --tax 17 \
    --item "Cement:bag:2:1250" --item "Sand:cft:100:45.50" --transit 1500`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		client, err := resolveClient(ctx, actor, args[0])
		if err != nil {
			return err
		}

		input := service.CreateInvoiceInput{ClientID: client.ID}
		input.IsQuotation, _ = cmd.Flags().GetBool("quotation")
		input.IsTaxed, _ = cmd.Flags().GetBool("taxed")
		input.Notes, _ = cmd.Flags().GetString("notes")

		if input.TaxPercentage, err = decimalFlag(cmd, "tax", domain.ParsePercent); err != nil {
			return err
		}
		transit, err := decimalFlag(cmd, "transit", domain.ParseMoney)
		if err != nil {
			return err
		}
		if transit != nil {
			input.TransitCharges = *transit
		}
		if cmd.Flags().Changed("date") {
			s, _ := cmd.Flags().GetString("date")
			d, err := parseDate(s)
			if err != nil {
				return fmt.Errorf("invalid date: %w", err)
			}
			input.Date = &d
		}

		specs, _ := cmd.Flags().GetStringArray("item")
		for _, spec := range specs {
			item, err := parseItemSpec(spec)
			if err != nil {
				return err
			}
			input.Items = append(input.Items, item)
		}

		inv, err := appInstance.InvoiceService.CreateInvoice(ctx, actor, input)
		if err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		fmt.Printf("✓ %s created: %s (ID: %d)\n", render.Title(inv), inv.ReferenceNumber, inv.ID)
		fmt.Printf("  Client: %s\n", client.Name)
		printTotals(inv)
		return nil
	},
}

var invoicesShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show invoice details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id, err := parseID("invoice", args[0])
		if err != nil {
			return err
		}

		var buf strings.Builder
		if err := appInstance.DocumentService.Render(ctx, actor, id, render.FormatText, &buf); err != nil {
			return fmt.Errorf("failed to show invoice: %w", err)
		}
		fmt.Print(buf.String())

		inv, err := appInstance.InvoiceService.GetInvoice(ctx, actor, id)
		if err != nil {
			return fmt.Errorf("failed to show invoice: %w", err)
		}
		fmt.Printf("\nID: %d  Version: %d  Paid: %s\n", inv.ID, inv.Version, yesNo(inv.IsPaid))
		return nil
	},
}

var invoicesEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit an invoice",
	Long: `Edit invoice fields. Only the flags given are changed.

Pass --version with the version shown by "invoices show" to refuse the edit
when someone else changed the invoice in the meantime.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id, err := parseID("invoice", args[0])
		if err != nil {
			return err
		}

		patch := domain.InvoicePatch{
			Notes:       stringFlag(cmd, "notes"),
			IsTaxed:     boolFlag(cmd, "taxed"),
			IsQuotation: boolFlag(cmd, "quotation"),
			IsPaid:      boolFlag(cmd, "paid"),
		}
		patch.ClearTaxPercentage, _ = cmd.Flags().GetBool("clear-tax")
		patch.ClearDate, _ = cmd.Flags().GetBool("clear-date")

		if cmd.Flags().Changed("client") {
			idOrName, _ := cmd.Flags().GetString("client")
			client, err := resolveClient(ctx, actor, idOrName)
			if err != nil {
				return err
			}
			patch.ClientID = &client.ID
		}
		if patch.TaxPercentage, err = decimalFlag(cmd, "tax", domain.ParsePercent); err != nil {
			return err
		}
		if patch.TransitCharges, err = decimalFlag(cmd, "transit", domain.ParseMoney); err != nil {
			return err
		}
		if cmd.Flags().Changed("date") {
			s, _ := cmd.Flags().GetString("date")
			d, err := parseDate(s)
			if err != nil {
				return fmt.Errorf("invalid date: %w", err)
			}
			patch.Date = &d
		}
		if patch.IsEmpty() {
			return fmt.Errorf("nothing to change: pass at least one flag")
		}

		version, _ := cmd.Flags().GetInt64("version")
		inv, err := appInstance.InvoiceService.UpdateInvoice(ctx, actor, id, version, patch)
		if err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}

		fmt.Printf("✓ %s updated: %s\n", render.Title(inv), inv.ReferenceNumber)
		printTotals(inv)
		return nil
	},
}

var invoicesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an invoice and its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id, err := parseID("invoice", args[0])
		if err != nil {
			return err
		}

		force, _ := cmd.Flags().GetBool("yes")
		if !force && !confirmPrompt(fmt.Sprintf("Delete invoice #%d?", id)) {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := appInstance.InvoiceService.DeleteInvoice(ctx, actor, id); err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}

		fmt.Printf("✓ Invoice #%d deleted\n", id)
		return nil
	},
}

var invoicesMarkPaidCmd = &cobra.Command{
	Use:   "mark-paid [id]",
	Short: "Mark an invoice as paid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id, err := parseID("invoice", args[0])
		if err != nil {
			return err
		}
		unpaid, _ := cmd.Flags().GetBool("unpaid")

		inv, err := appInstance.InvoiceService.MarkPaid(ctx, actor, id, !unpaid)
		if err != nil {
			return fmt.Errorf("failed to mark invoice as paid: %w", err)
		}

		if inv.IsPaid {
			fmt.Printf("✓ %s marked as paid\n", inv.ReferenceNumber)
		} else {
			fmt.Printf("✓ %s marked as unpaid\n", inv.ReferenceNumber)
		}
		return nil
	},
}

var invoicesRecalculateCmd = &cobra.Command{
	Use:   "recalculate [id]",
	Short: "Recompute an invoice's totals from its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id, err := parseID("invoice", args[0])
		if err != nil {
			return err
		}

		inv, err := appInstance.InvoiceService.Recalculate(ctx, actor, id)
		if err != nil {
			return fmt.Errorf("failed to recalculate invoice: %w", err)
		}

		fmt.Printf("✓ Recalculated %s\n", inv.ReferenceNumber)
		printTotals(inv)
		return nil
	},
}

var invoicesPDFCmd = &cobra.Command{
	Use:   "pdf [id]",
	Short: "Render an invoice to a file",
	Long: `Render an invoice into the output directory (invoice.output_dir by
default) as {reference}.pdf, or as plain text with --format txt.
Use --out - to write to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id, err := parseID("invoice", args[0])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		if out == "-" {
			return appInstance.DocumentService.Render(ctx, actor, id, render.Format(format), os.Stdout)
		}

		path, err := appInstance.DocumentService.Export(ctx, actor, id, render.Format(format), out)
		if err != nil {
			return fmt.Errorf("failed to render invoice: %w", err)
		}

		fmt.Printf("✓ Written to %s\n", path)
		return nil
	},
}

var invoicesSendCmd = &cobra.Command{
	Use:   "send [id]",
	Short: "Email an invoice PDF",
	Long:  `Email the invoice as a PDF attachment using the mail.* settings.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		id, err := parseID("invoice", args[0])
		if err != nil {
			return err
		}
		to, _ := cmd.Flags().GetStringSlice("to")

		if err := appInstance.DocumentService.Send(ctx, actor, id, to); err != nil {
			return fmt.Errorf("failed to send invoice: %w", err)
		}

		fmt.Printf("✓ Invoice #%d sent\n", id)
		return nil
	},
}

// printTotals prints the derived amounts of an invoice
func printTotals(inv *domain.Invoice) {
	fmt.Printf("  Total:       %s\n", money(inv.TotalPrice))
	switch {
	case inv.TaxApplies():
		fmt.Printf("  Tax (%s%%): %s\n", inv.TaxPercentage.Decimal.String(), money(inv.Tax))
	case inv.IsTaxed:
		fmt.Println("  Tax:         included")
	}
	fmt.Printf("  Grand Total: %s\n", money(inv.GrandTotal))
}

func init() {
	invoicesCmd.AddCommand(invoicesListCmd)
	invoicesCmd.AddCommand(invoicesCreateCmd)
	invoicesCmd.AddCommand(invoicesShowCmd)
	invoicesCmd.AddCommand(invoicesEditCmd)
	invoicesCmd.AddCommand(invoicesDeleteCmd)
	invoicesCmd.AddCommand(invoicesMarkPaidCmd)
	invoicesCmd.AddCommand(invoicesRecalculateCmd)
	invoicesCmd.AddCommand(invoicesPDFCmd)
	invoicesCmd.AddCommand(invoicesSendCmd)

	// List flags
	invoicesListCmd.Flags().String("client", "", "Filter by client ID or name")
	invoicesListCmd.Flags().Bool("quotations", false, "Only quotations (--quotations=false for only invoices)")
	invoicesListCmd.Flags().Bool("paid", false, "Only paid (--paid=false for only unpaid)")
	invoicesListCmd.Flags().String("search", "", "Match reference, notes or client name; YYYY-MM-DD matches the date")

	// Create flags
	invoicesCreateCmd.Flags().Bool("quotation", false, "Create a quotation instead of an invoice")
	invoicesCreateCmd.Flags().Bool("taxed", false, "Prices already include tax; no tax line is added (excludes --tax)")
	invoicesCreateCmd.Flags().String("tax", "", "Tax percentage charged on the total, e.g. 17 (defaults to invoice.default_tax_percentage)")
	invoicesCreateCmd.Flags().String("transit", "", "Transit charges")
	invoicesCreateCmd.Flags().String("date", "", "Invoice date (YYYY-MM-DD)")
	invoicesCreateCmd.Flags().String("notes", "", "Notes printed on the invoice")
	invoicesCreateCmd.Flags().StringArray("item", nil, "Line item as name:unit:quantity:unit_price (repeatable)")

	// Edit flags
	invoicesEditCmd.Flags().String("client", "", "Move to another client (ID or name)")
	invoicesEditCmd.Flags().String("tax", "", "Tax percentage charged on the total; clears --taxed")
	invoicesEditCmd.Flags().Bool("clear-tax", false, "Remove the tax percentage")
	invoicesEditCmd.Flags().String("transit", "", "Transit charges")
	invoicesEditCmd.Flags().String("date", "", "Invoice date (YYYY-MM-DD)")
	invoicesEditCmd.Flags().Bool("clear-date", false, "Remove the invoice date")
	invoicesEditCmd.Flags().String("notes", "", "Notes printed on the invoice")
	invoicesEditCmd.Flags().Bool("taxed", false, "Prices already include tax; clears the tax percentage")
	invoicesEditCmd.Flags().Bool("quotation", false, "Turn into a quotation (--quotation=false for an invoice)")
	invoicesEditCmd.Flags().Bool("paid", false, "Paid flag")
	invoicesEditCmd.Flags().Int64("version", 0, "Expected version; the edit fails if the invoice changed")

	// Delete flags
	invoicesDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	// Mark paid flags
	invoicesMarkPaidCmd.Flags().Bool("unpaid", false, "Clear the paid flag instead")

	// PDF flags
	invoicesPDFCmd.Flags().String("format", string(render.FormatPDF), "Output format: pdf or txt")
	invoicesPDFCmd.Flags().String("out", "", "Output directory, or - for stdout")

	// Send flags
	invoicesSendCmd.Flags().StringSlice("to", nil, "Recipients (defaults to the client's email)")
}
