package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize billed, paid and outstanding amounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		actor, err := currentActor(ctx)
		if err != nil {
			return err
		}

		totals, err := appInstance.ReportService.Totals(ctx, actor)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}

		fmt.Printf("Invoices:     %d\n", totals.Invoices)
		fmt.Printf("Quotations:   %d\n", totals.Quotations)
		fmt.Printf("Billed:       %s\n", money(totals.Billed))
		fmt.Printf("Paid:         %s\n", money(totals.Paid))
		fmt.Printf("Outstanding:  %s\n", money(totals.Outstanding))
		fmt.Printf("Tax charged:  %s\n", money(totals.Tax))

		if byClient, _ := cmd.Flags().GetBool("by-client"); byClient {
			clients, err := appInstance.ReportService.ByClient(ctx, actor)
			if err != nil {
				return fmt.Errorf("failed to build client report: %w", err)
			}

			fmt.Println()
			fmt.Printf("%-24s %5s %16s %16s\n", "Client", "Inv", "Paid", "Outstanding")
			fmt.Println("----------------------------------------------------------------")
			for _, c := range clients {
				name := c.ClientName
				if name == "" {
					name = fmt.Sprintf("Client #%d", c.ClientID)
				}
				fmt.Printf("%-24s %5d %16s %16s\n", truncate(name, 24), c.Invoices, money(c.Paid), money(c.Outstanding))
			}
		}

		if cmd.Flags().Changed("year") {
			year, _ := cmd.Flags().GetInt("year")
			revenue, err := appInstance.ReportService.RevenueByMonth(ctx, actor, year)
			if err != nil {
				return fmt.Errorf("failed to build revenue report: %w", err)
			}

			fmt.Println()
			fmt.Printf("Paid revenue %d\n", year)
			for m := time.January; m <= time.December; m++ {
				fmt.Printf("  %-10s %16s\n", m.String(), money(revenue[m]))
			}
		}

		return nil
	},
}

func init() {
	reportCmd.Flags().Bool("by-client", false, "Break totals down per client")
	reportCmd.Flags().Int("year", time.Now().Year(), "Show paid revenue per month for this year")
}
