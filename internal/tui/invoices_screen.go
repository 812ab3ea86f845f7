package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/andy/invoicer/internal/app"
	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/render"
	"github.com/andy/invoicer/internal/repository"
	"github.com/andy/invoicer/internal/service"
)

type invoiceViewMode int

const (
	invoiceViewList       invoiceViewMode = iota
	invoiceViewSearch                     // Typing a search term
	invoiceViewDetail                     // Viewing a single invoice
	invoiceViewPickClient                 // New invoice, step 1: pick client
	invoiceViewNewForm                    // New invoice, step 2: header fields
	invoiceViewItemForm                   // Adding a line item
)

// new invoice form fields
const (
	newQuotation = iota
	newTaxed
	newTaxPercent
	newTransit
	newNotes
)

var newInvoiceLabels = []string{"Quotation? (y/n):", "Tax included? (y/n):", "Tax % (blank for default):", "Transit charges:", "Notes:"}

// item form fields
const (
	itemName = iota
	itemUnit
	itemQuantity
	itemPrice
	itemDescription
)

var itemLabels = []string{"Name:", "Unit:", "Quantity:", "Unit price:", "Description:"}

// InvoicesModel displays invoices in list and detail views
type InvoicesModel struct {
	app       *app.App
	actor     domain.Actor
	mode      invoiceViewMode
	invoices  []*domain.Invoice
	cursor    int
	selected  *domain.Invoice
	itemCur   int
	search    string
	loading   bool
	err       error
	statusMsg string

	confirmDelete bool

	searchInput textinput.Model
	form        *form

	// New invoice state
	pickClients []*domain.Client
	pickCursor  int
	pickClient  *domain.Client
}

type invoicesDataMsg struct {
	invoices []*domain.Invoice
	err      error
}

type invoiceDetailMsg struct {
	invoice *domain.Invoice
	status  string
	err     error
}

type pickClientsMsg struct {
	clients []*domain.Client
	err     error
}

type invoiceDeletedMsg struct {
	ref string
	err error
}

// NewInvoicesModel creates a new invoices screen model
func NewInvoicesModel(a *app.App, actor domain.Actor) tea.Model {
	return &InvoicesModel{
		app:     a,
		actor:   actor,
		mode:    invoiceViewList,
		loading: true,
	}
}

// IsCapturingInput returns true while a form or the search box is active
func (m *InvoicesModel) IsCapturingInput() bool {
	switch m.mode {
	case invoiceViewSearch, invoiceViewNewForm, invoiceViewItemForm:
		return true
	}
	return false
}

// stateBadge labels an invoice as a quotation, paid or unpaid
func stateBadge(inv *domain.Invoice) string {
	switch {
	case inv.IsQuotation:
		return quoteStyle.Render("QUOTE")
	case inv.IsPaid:
		return paidStyle.Render("PAID")
	default:
		return unpaidStyle.Render("UNPAID")
	}
}

func (m *InvoicesModel) Init() tea.Cmd {
	return m.loadInvoices()
}

func (m *InvoicesModel) loadInvoices() tea.Cmd {
	a, actor, search := m.app, m.actor, m.search
	return func() tea.Msg {
		invoices, err := a.InvoiceService.ListInvoices(context.Background(), actor, repository.InvoiceFilter{Search: search})
		return invoicesDataMsg{invoices: invoices, err: err}
	}
}

func (m *InvoicesModel) loadDetail(id int64) tea.Cmd {
	a, actor := m.app, m.actor
	return func() tea.Msg {
		inv, err := a.InvoiceService.GetInvoice(context.Background(), actor, id)
		return invoiceDetailMsg{invoice: inv, err: err}
	}
}

func (m *InvoicesModel) loadPickClients() tea.Cmd {
	a, actor := m.app, m.actor
	return func() tea.Msg {
		clients, err := a.ClientService.List(context.Background(), actor, false)
		return pickClientsMsg{clients: clients, err: err}
	}
}

// mutate runs fn against the selected invoice and reloads the detail view
func (m *InvoicesModel) mutate(status string, fn func(ctx context.Context) (*domain.Invoice, error)) tea.Cmd {
	return func() tea.Msg {
		inv, err := fn(context.Background())
		if err != nil {
			return invoiceDetailMsg{err: err}
		}
		return invoiceDetailMsg{invoice: inv, status: status}
	}
}

func (m *InvoicesModel) initNewForm() tea.Cmd {
	m.form = newForm(newInvoiceLabels,
		newField("n", 3, 5),
		newField("n", 3, 5),
		newField(m.app.Config.Invoice.DefaultTaxPercentage, 7, 8),
		newField("0.00", 15, 15),
		newField("Optional notes", 200, 50),
	)
	return m.form.start()
}

func (m *InvoicesModel) initItemForm() tea.Cmd {
	m.form = newForm(itemLabels,
		newField("Cement", 100, 40),
		newField("bag", 20, 10),
		newField("1", 15, 12),
		newField("0.00", 15, 15),
		newField("Optional description", 200, 50),
	)
	return m.form.start()
}

func (m *InvoicesModel) createInvoice() tea.Cmd {
	a, actor, client := m.app, m.actor, m.pickClient
	values := m.form.values()

	return func() tea.Msg {
		input := service.CreateInvoiceInput{
			ClientID:    client.ID,
			IsQuotation: yes(values[newQuotation]),
			IsTaxed:     yes(values[newTaxed]),
			Notes:       values[newNotes],
		}

		pct, err := optionalDecimal(values[newTaxPercent], domain.ParsePercent)
		if err != nil {
			return invoiceDetailMsg{err: fmt.Errorf("tax percentage: %w", err)}
		}
		input.TaxPercentage = pct

		transit, err := optionalDecimal(values[newTransit], domain.ParseMoney)
		if err != nil {
			return invoiceDetailMsg{err: fmt.Errorf("transit charges: %w", err)}
		}
		if transit != nil {
			input.TransitCharges = *transit
		}

		inv, err := a.InvoiceService.CreateInvoice(context.Background(), actor, input)
		if err != nil {
			return invoiceDetailMsg{err: err}
		}
		return invoiceDetailMsg{invoice: inv, status: "Created " + inv.ReferenceNumber}
	}
}

func (m *InvoicesModel) addItem() tea.Cmd {
	a, actor, id := m.app, m.actor, m.selected.ID
	values := m.form.values()

	return func() tea.Msg {
		qty, err := domain.ParseQuantity(values[itemQuantity])
		if err != nil {
			return invoiceDetailMsg{err: fmt.Errorf("quantity: %w", err)}
		}
		price, err := domain.ParseMoney(values[itemPrice])
		if err != nil {
			return invoiceDetailMsg{err: fmt.Errorf("unit price: %w", err)}
		}

		item := domain.NewInvoiceItem(values[itemName], values[itemUnit], qty, price)
		item.Description = values[itemDescription]

		inv, err := a.InvoiceService.AddItem(context.Background(), actor, id, item)
		if err != nil {
			return invoiceDetailMsg{err: err}
		}
		return invoiceDetailMsg{invoice: inv, status: "Added " + item.Name}
	}
}

func (m *InvoicesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		if m.mode == invoiceViewDetail && m.selected != nil {
			return m, m.loadDetail(m.selected.ID)
		}
		m.loading = true
		return m, m.loadInvoices()

	case invoicesDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.invoices = msg.invoices
			if m.cursor >= len(m.invoices) {
				m.cursor = max(0, len(m.invoices)-1)
			}
		}
		return m, nil

	case invoiceDetailMsg:
		m.loading = false
		if msg.err != nil {
			// Keep the form open so the input can be corrected
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.form = nil
		// Item mutations return the invoice without its client
		if msg.invoice.Client == nil && m.selected != nil && m.selected.ID == msg.invoice.ID {
			msg.invoice.Client = m.selected.Client
		}
		m.selected = msg.invoice
		m.statusMsg = msg.status
		if m.itemCur >= len(m.selected.Items) {
			m.itemCur = max(0, len(m.selected.Items)-1)
		}
		m.mode = invoiceViewDetail
		return m, nil

	case pickClientsMsg:
		m.err = msg.err
		m.pickClients = msg.clients
		m.pickCursor = 0
		return m, nil

	case invoiceDeletedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.mode = invoiceViewList
		m.selected = nil
		m.statusMsg = "Deleted " + msg.ref
		m.loading = true
		return m, m.loadInvoices()

	case tea.KeyMsg:
		switch m.mode {
		case invoiceViewList:
			return m.updateList(msg)
		case invoiceViewSearch:
			return m.updateSearch(msg)
		case invoiceViewDetail:
			return m.updateDetail(msg)
		case invoiceViewPickClient:
			return m.updatePickClient(msg)
		}
	}

	switch m.mode {
	case invoiceViewNewForm:
		return m.updateForm(msg, m.createInvoice, invoiceViewPickClient)
	case invoiceViewItemForm:
		return m.updateForm(msg, m.addItem, invoiceViewDetail)
	case invoiceViewSearch:
		// Cursor blinks
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *InvoicesModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	m.statusMsg = ""
	m.err = nil

	switch {
	case key.Matches(msg, DefaultKeyMap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, DefaultKeyMap.Down):
		if m.cursor < len(m.invoices)-1 {
			m.cursor++
		}
	case key.Matches(msg, DefaultKeyMap.Select):
		if m.cursor < len(m.invoices) {
			m.itemCur = 0
			return m, m.loadDetail(m.invoices[m.cursor].ID)
		}
	case key.Matches(msg, DefaultKeyMap.New):
		m.mode = invoiceViewPickClient
		m.pickClients = nil
		return m, m.loadPickClients()
	case key.Matches(msg, DefaultKeyMap.Search):
		m.mode = invoiceViewSearch
		m.searchInput = newField("reference, client, notes or YYYY-MM-DD", 60, 40)
		m.searchInput.SetValue(m.search)
		return m, m.searchInput.Focus()
	case key.Matches(msg, DefaultKeyMap.Back):
		if m.search != "" {
			m.search = ""
			m.loading = true
			return m, m.loadInvoices()
		}
	}
	return m, nil
}

func (m *InvoicesModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = invoiceViewList
		return m, nil
	case "enter":
		m.search = strings.TrimSpace(m.searchInput.Value())
		m.mode = invoiceViewList
		m.cursor = 0
		m.loading = true
		return m, m.loadInvoices()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m *InvoicesModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	inv := m.selected
	a, actor := m.app, m.actor

	if m.confirmDelete {
		m.confirmDelete = false
		if msg.String() != "y" {
			m.statusMsg = "Delete cancelled"
			return m, nil
		}
		return m, func() tea.Msg {
			err := a.InvoiceService.DeleteInvoice(context.Background(), actor, inv.ID)
			return invoiceDeletedMsg{ref: inv.ReferenceNumber, err: err}
		}
	}

	m.statusMsg = ""
	m.err = nil

	switch {
	case key.Matches(msg, DefaultKeyMap.Back):
		m.mode = invoiceViewList
		m.selected = nil
		m.loading = true
		return m, m.loadInvoices()
	case key.Matches(msg, DefaultKeyMap.Up):
		if m.itemCur > 0 {
			m.itemCur--
		}
	case key.Matches(msg, DefaultKeyMap.Down):
		if m.itemCur < len(inv.Items)-1 {
			m.itemCur++
		}
	case msg.String() == "a":
		m.mode = invoiceViewItemForm
		return m, m.initItemForm()
	case key.Matches(msg, DefaultKeyMap.Delete):
		if m.itemCur < len(inv.Items) {
			item := inv.Items[m.itemCur]
			return m, m.mutate("Removed "+item.Name, func(ctx context.Context) (*domain.Invoice, error) {
				return a.InvoiceService.RemoveItem(ctx, actor, inv.ID, item.ID)
			})
		}
	case msg.String() == "X":
		m.confirmDelete = true
		m.statusMsg = fmt.Sprintf("Delete %s and all its items? (y/N)", inv.ReferenceNumber)
	case msg.String() == "m":
		paid := !inv.IsPaid
		status := "Marked paid"
		if !paid {
			status = "Marked unpaid"
		}
		return m, m.mutate(status, func(ctx context.Context) (*domain.Invoice, error) {
			return a.InvoiceService.MarkPaid(ctx, actor, inv.ID, paid)
		})
	case msg.String() == "r":
		return m, m.mutate("Totals recalculated", func(ctx context.Context) (*domain.Invoice, error) {
			return a.InvoiceService.Recalculate(ctx, actor, inv.ID)
		})
	case msg.String() == "f":
		return m, func() tea.Msg {
			path, err := a.DocumentService.Export(context.Background(), actor, inv.ID, render.FormatPDF, "")
			if err != nil {
				return invoiceDetailMsg{err: err}
			}
			return invoiceDetailMsg{invoice: inv, status: "Saved to " + path}
		}
	case msg.String() == "s":
		return m, func() tea.Msg {
			if err := a.DocumentService.Send(context.Background(), actor, inv.ID, nil); err != nil {
				return invoiceDetailMsg{err: err}
			}
			return invoiceDetailMsg{invoice: inv, status: "Sent " + inv.ReferenceNumber}
		}
	}
	return m, nil
}

func (m *InvoicesModel) updatePickClient(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Back):
		m.mode = invoiceViewList
		m.err = nil
	case key.Matches(msg, DefaultKeyMap.Up):
		if m.pickCursor > 0 {
			m.pickCursor--
		}
	case key.Matches(msg, DefaultKeyMap.Down):
		if m.pickCursor < len(m.pickClients)-1 {
			m.pickCursor++
		}
	case key.Matches(msg, DefaultKeyMap.Select):
		if m.pickCursor < len(m.pickClients) {
			m.pickClient = m.pickClients[m.pickCursor]
			m.mode = invoiceViewNewForm
			m.err = nil
			return m, m.initNewForm()
		}
	}
	return m, nil
}

// updateForm feeds msg to the open form, running submit or returning to back
func (m *InvoicesModel) updateForm(msg tea.Msg, submit func() tea.Cmd, back invoiceViewMode) (tea.Model, tea.Cmd) {
	result, cmd := m.form.update(msg)
	switch result {
	case formSubmit:
		return m, submit()
	case formCancel:
		m.mode = back
		m.form = nil
		m.err = nil
	}
	return m, cmd
}

func (m *InvoicesModel) View() string {
	switch m.mode {
	case invoiceViewDetail:
		return m.viewDetail()
	case invoiceViewPickClient:
		return m.viewPickClient()
	case invoiceViewNewForm:
		title := "New Invoice"
		if m.pickClient != nil {
			title += " for " + m.pickClient.Name
		}
		return titleStyle.Render(title) + "\n\n" + m.form.view(m.err)
	case invoiceViewItemForm:
		return titleStyle.Render("Add Item to "+m.selected.ReferenceNumber) + "\n\n" + m.form.view(m.err)
	}
	return m.viewList()
}

func (m *InvoicesModel) viewList() string {
	if m.loading {
		return "Loading invoices..."
	}

	currency := m.app.Config.Invoice.Currency
	var s string

	header := "Invoices"
	if m.search != "" {
		header += subtitleStyle.Render(fmt.Sprintf("  (matching %q, esc to clear)", m.search))
	}
	s += titleStyle.Render(header) + "\n\n"

	if m.mode == invoiceViewSearch {
		s += "  / " + m.searchInput.View() + "\n\n"
	}
	if m.statusMsg != "" {
		s += statusStyle.Render("  "+m.statusMsg) + "\n\n"
	}
	if m.err != nil {
		s += errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
	}

	if len(m.invoices) == 0 {
		s += subtitleStyle.Render("  No invoices found. Press 'n' to create one.") + "\n"
		return s
	}

	for i, inv := range m.invoices {
		indicator := "  "
		if i == m.cursor {
			indicator = "> "
		}
		clientName := fmt.Sprintf("Client #%d", inv.ClientID)
		if inv.Client != nil {
			clientName = inv.Client.Name
		}
		line := fmt.Sprintf("%s%-12s %-11s %-22s %16s",
			indicator,
			inv.ReferenceNumber,
			render.DisplayDate(inv),
			truncateStr(clientName, 22),
			formatMoney(currency, inv.GrandTotal),
		)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		s += line + "  " + stateBadge(inv) + "\n"
	}

	s += "\n" + helpStyle.Render("  j/k: navigate  enter: open  n: new  /: search")
	return s
}

func (m *InvoicesModel) viewDetail() string {
	inv := m.selected
	if inv == nil {
		return "Loading invoice..."
	}

	currency := m.app.Config.Invoice.Currency
	var s string

	s += titleStyle.Render(fmt.Sprintf("%s %s", render.Title(inv), inv.ReferenceNumber)) + "  " + stateBadge(inv) + "\n\n"

	clientName := fmt.Sprintf("Client #%d", inv.ClientID)
	if inv.Client != nil {
		clientName = inv.Client.Name
	}
	s += fmt.Sprintf("  %s %s\n", labelStyle.Render("Client:"), clientName)
	s += fmt.Sprintf("  %s %s\n", labelStyle.Render("Date:  "), render.DisplayDate(inv))
	if inv.Notes != "" {
		s += fmt.Sprintf("  %s %s\n", labelStyle.Render("Notes: "), inv.Notes)
	}
	s += "\n"

	if len(inv.Items) == 0 {
		s += subtitleStyle.Render("  No items yet. Press 'a' to add one.") + "\n"
	} else {
		s += subtitleStyle.Render(fmt.Sprintf("  %-24s %10s %-6s %14s %16s", "Item", "Qty", "Unit", "Price", "Amount")) + "\n"
		for i, it := range inv.Items {
			indicator := "  "
			if i == m.itemCur {
				indicator = "> "
			}
			line := fmt.Sprintf("%s%-24s %10s %-6s %14s %16s",
				indicator,
				truncateStr(it.Name, 24),
				render.FormatQuantity(it.Quantity),
				truncateStr(it.Unit, 6),
				domain.FormatMoney(it.UnitPrice),
				domain.FormatMoney(it.TotalPrice),
			)
			if i == m.itemCur {
				line = selectedStyle.Render(line)
			}
			s += line + "\n"
		}
	}
	s += "\n"

	if !inv.TransitCharges.IsZero() {
		s += fmt.Sprintf("  %-20s %s\n", "Transit:", formatMoney(currency, inv.TransitCharges))
	}
	s += fmt.Sprintf("  %-20s %s\n", "Total:", formatMoney(currency, inv.TotalPrice))
	if inv.TaxApplies() {
		s += fmt.Sprintf("  %-20s %s\n", fmt.Sprintf("Tax (%s%%):", inv.TaxPercentage.Decimal.String()), formatMoney(currency, inv.Tax))
	}
	s += fmt.Sprintf("  %-20s %s\n", "Grand total:", amountStyle.Render(formatMoney(currency, inv.GrandTotal)))

	if m.statusMsg != "" {
		s += "\n" + statusStyle.Render("  "+m.statusMsg) + "\n"
	}
	if m.err != nil {
		s += "\n" + errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n"
	}

	s += "\n" + helpStyle.Render("  a: add item  x: remove item  m: paid/unpaid  r: recalculate  f: save PDF  s: send  X: delete  esc: back")
	return s
}

func (m *InvoicesModel) viewPickClient() string {
	var s string
	s += titleStyle.Render("New Invoice: choose a client") + "\n\n"

	if m.err != nil {
		s += errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
	}

	if m.pickClients == nil {
		return s + "  Loading clients..."
	}
	if len(m.pickClients) == 0 {
		return s + subtitleStyle.Render("  No active clients. Press 'c' to add one first.") + "\n"
	}

	for i, client := range m.pickClients {
		line := "  " + client.Name
		if i == m.pickCursor {
			line = selectedStyle.Render("> " + client.Name)
		}
		s += line + "\n"
	}

	s += "\n" + helpStyle.Render("  j/k: navigate  enter: select  esc: cancel")
	return s
}
