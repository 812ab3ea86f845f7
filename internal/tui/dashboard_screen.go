package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/andy/invoicer/internal/app"
	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/render"
	"github.com/andy/invoicer/internal/repository"
	"github.com/andy/invoicer/internal/service"
)

const recentLimit = 8

// DashboardModel represents the dashboard home screen
type DashboardModel struct {
	app   *app.App
	actor domain.Actor

	// Data
	summary *service.Summary
	clients int
	recent  []*domain.Invoice
	owner   *domain.Owner

	loading bool
	err     error
}

type dashboardDataMsg struct {
	summary *service.Summary
	clients int
	recent  []*domain.Invoice
	owner   *domain.Owner
	err     error
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(a *app.App, actor domain.Actor) tea.Model {
	return &DashboardModel{
		app:     a,
		actor:   actor,
		loading: true,
	}
}

func (m *DashboardModel) Init() tea.Cmd {
	return m.loadData()
}

func (m *DashboardModel) loadData() tea.Cmd {
	a, actor := m.app, m.actor
	return func() tea.Msg {
		ctx := context.Background()
		var msg dashboardDataMsg

		summary, err := a.ReportService.Totals(ctx, actor)
		if err != nil {
			msg.err = fmt.Errorf("totals: %w", err)
			return msg
		}
		msg.summary = summary

		invoices, err := a.InvoiceService.ListInvoices(ctx, actor, repository.InvoiceFilter{})
		if err != nil {
			msg.err = fmt.Errorf("invoices: %w", err)
			return msg
		}

		// List is newest first
		if len(invoices) > recentLimit {
			invoices = invoices[:recentLimit]
		}
		msg.recent = invoices

		clients, err := a.ClientService.List(ctx, actor, false)
		if err != nil {
			msg.err = fmt.Errorf("clients: %w", err)
			return msg
		}
		msg.clients = len(clients)

		msg.owner, _ = a.OwnerService.Get(ctx, actor, actor.OwnerID)
		return msg
	}
}

func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		m.loading = false
		m.err = msg.err
		m.summary = msg.summary
		m.clients = msg.clients
		m.recent = msg.recent
		m.owner = msg.owner
		return m, nil

	case RefreshDataMsg:
		m.loading = true
		return m, m.loadData()
	}

	return m, nil
}

func (m *DashboardModel) View() string {
	if m.loading {
		return "Loading dashboard..."
	}

	if m.err != nil {
		return errorTextStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	currency := m.app.Config.Invoice.Currency
	var s string

	if m.owner != nil {
		s += titleStyle.Render(m.owner.Name) + "\n"
		if !m.owner.IsOnboarded {
			s += unpaidStyle.Render("  Profile incomplete: add bank and contact details under Settings") + "\n"
		}
		s += "\n"
	}

	sum := m.summary
	s += fmt.Sprintf("  Invoices:     %-8d  Outstanding:  %s\n",
		sum.Invoices, amountStyle.Render(formatMoney(currency, sum.Outstanding)))
	s += fmt.Sprintf("  Quotations:   %-8d  Paid:         %s\n",
		sum.Quotations, formatMoney(currency, sum.Paid))
	s += fmt.Sprintf("  Clients:      %-8d  Tax charged:  %s\n",
		m.clients, formatMoney(currency, sum.Tax))

	s += "\n" + m.renderRecent(currency)
	return s
}

func (m *DashboardModel) renderRecent(currency string) string {
	header := "  Recent Invoices\n"
	if len(m.recent) == 0 {
		return header + subtitleStyle.Render("  No invoices yet. Press 'i' then 'n' to create one.") + "\n"
	}

	s := header
	for _, inv := range m.recent {
		clientName := fmt.Sprintf("Client #%d", inv.ClientID)
		if inv.Client != nil {
			clientName = inv.Client.Name
		}
		s += fmt.Sprintf("  %-11s %-12s %-22s %16s  %s\n",
			render.DisplayDate(inv),
			inv.ReferenceNumber,
			truncateStr(clientName, 22),
			formatMoney(currency, inv.GrandTotal),
			stateBadge(inv),
		)
	}
	return s
}
