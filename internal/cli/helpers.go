package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/render"
)

// parseID parses a numeric row ID argument
func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID %q", what, s)
	}
	return id, nil
}

// parseDate parses a date string in various formats
func parseDate(s string) (time.Time, error) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch s {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	default:
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("expected format: YYYY-MM-DD, 'today', or 'yesterday'")
		}
		return t, nil
	}
}

// resolveClient resolves a client by ID or name within the actor's clients
func resolveClient(ctx context.Context, actor domain.Actor, idOrName string) (*domain.Client, error) {
	client, err := appInstance.ClientService.Find(ctx, actor, idOrName)
	if err != nil {
		return nil, fmt.Errorf("client %q: %w", idOrName, err)
	}
	return client, nil
}

// stringFlag returns the flag value only when it was set on the command line
func stringFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func boolFlag(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

// decimalFlag parses a decimal flag with the given parser when it was set
func decimalFlag(cmd *cobra.Command, name string, parse func(string) (decimal.Decimal, error)) (*decimal.Decimal, error) {
	s := stringFlag(cmd, name)
	if s == nil {
		return nil, nil
	}
	d, err := parse(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return &d, nil
}

// parseItemSpec parses "name:unit:quantity:unit_price". The name may itself
// contain colons; the last three fields are always unit, quantity and price.
func parseItemSpec(spec string) (*domain.InvoiceItem, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 4 {
		return nil, fmt.Errorf("item %q: expected name:unit:quantity:unit_price", spec)
	}
	n := len(parts)
	name := strings.Join(parts[:n-3], ":")

	qty, err := domain.ParseQuantity(parts[n-2])
	if err != nil {
		return nil, fmt.Errorf("item %q: quantity: %w", spec, err)
	}
	price, err := domain.ParseMoney(parts[n-1])
	if err != nil {
		return nil, fmt.Errorf("item %q: unit price: %w", spec, err)
	}
	return domain.NewInvoiceItem(name, parts[n-3], qty, price), nil
}

func money(d decimal.Decimal) string {
	return render.FormatAmount(appInstance.Config.Invoice.Currency, d)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
