package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/repository"
)

// Summary aggregates a set of invoices. Quotations are counted but never
// billed.
type Summary struct {
	Invoices    int
	Quotations  int
	Billed      decimal.Decimal
	Paid        decimal.Decimal
	Outstanding decimal.Decimal
	Tax         decimal.Decimal
}

// ClientSummary is a Summary for one client
type ClientSummary struct {
	Summary
	ClientID   int64
	ClientName string
}

// ReportService provides aggregations over the actor's invoices
type ReportService interface {
	// Totals summarizes every invoice in scope
	Totals(ctx context.Context, actor domain.Actor) (*Summary, error)

	// ByClient summarizes per client, largest outstanding balance first
	ByClient(ctx context.Context, actor domain.Actor) ([]*ClientSummary, error)

	// RevenueByMonth sums paid invoices per month of the invoice date
	RevenueByMonth(ctx context.Context, actor domain.Actor, year int) (map[time.Month]decimal.Decimal, error)
}

type reportService struct {
	invoices InvoiceService
}

// NewReportService creates a new report service
func NewReportService(invoices InvoiceService) ReportService {
	return &reportService{invoices: invoices}
}

func (s *reportService) list(ctx context.Context, actor domain.Actor) ([]*domain.Invoice, error) {
	return s.invoices.ListInvoices(ctx, actor, repository.InvoiceFilter{})
}

func (s *reportService) Totals(ctx context.Context, actor domain.Actor) (*Summary, error) {
	invoices, err := s.list(ctx, actor)
	if err != nil {
		return nil, err
	}

	summary := newSummary()
	for _, inv := range invoices {
		summary.add(inv)
	}
	return &summary, nil
}

func (s *reportService) ByClient(ctx context.Context, actor domain.Actor) ([]*ClientSummary, error) {
	invoices, err := s.list(ctx, actor)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*ClientSummary)
	for _, inv := range invoices {
		cs, ok := byID[inv.ClientID]
		if !ok {
			cs = &ClientSummary{Summary: newSummary(), ClientID: inv.ClientID}
			if inv.Client != nil {
				cs.ClientName = inv.Client.Name
			}
			byID[inv.ClientID] = cs
		}
		cs.add(inv)
	}

	result := make([]*ClientSummary, 0, len(byID))
	for _, cs := range byID {
		result = append(result, cs)
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].Outstanding.Cmp(result[j].Outstanding); c != 0 {
			return c > 0
		}
		return result[i].ClientName < result[j].ClientName
	})
	return result, nil
}

func (s *reportService) RevenueByMonth(ctx context.Context, actor domain.Actor, year int) (map[time.Month]decimal.Decimal, error) {
	invoices, err := s.list(ctx, actor)
	if err != nil {
		return nil, err
	}

	revenue := make(map[time.Month]decimal.Decimal)

	// Initialize all months to 0
	for m := time.January; m <= time.December; m++ {
		revenue[m] = decimal.Zero
	}

	for _, inv := range invoices {
		if inv.IsQuotation || !inv.IsPaid {
			continue
		}

		// No payment date is kept, so the invoice date stands in for it
		date := inv.CreatedAt
		if inv.Date != nil {
			date = *inv.Date
		}
		if date.Year() == year {
			revenue[date.Month()] = revenue[date.Month()].Add(inv.GrandTotal)
		}
	}

	return revenue, nil
}

func newSummary() Summary {
	return Summary{
		Billed:      decimal.Zero,
		Paid:        decimal.Zero,
		Outstanding: decimal.Zero,
		Tax:         decimal.Zero,
	}
}

func (s *Summary) add(inv *domain.Invoice) {
	if inv.IsQuotation {
		s.Quotations++
		return
	}
	s.Invoices++
	s.Billed = s.Billed.Add(inv.GrandTotal)
	s.Tax = s.Tax.Add(inv.Tax)
	if inv.IsPaid {
		s.Paid = s.Paid.Add(inv.GrandTotal)
	} else {
		s.Outstanding = s.Outstanding.Add(inv.GrandTotal)
	}
}
