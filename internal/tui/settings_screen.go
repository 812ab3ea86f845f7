package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/andy/invoicer/internal/app"
	"github.com/andy/invoicer/internal/config"
	"github.com/andy/invoicer/internal/domain"
)

type settingsMode int

const (
	settingsModeView settingsMode = iota
	settingsModeProfile
	settingsModeInvoice
)

// profile form field indices
const (
	profileName = iota
	profileAddress
	profilePhone
	profilePhone2
	profileNTN
	profileBank
	profileAccountTitle
	profileIBAN
)

var profileLabels = []string{"Business name:", "Address:", "Phone:", "Second phone:", "NTN:", "Bank:", "Account title:", "IBAN:"}

// invoice settings form field indices
const (
	settingsInvoicePrefix = iota
	settingsQuotationPrefix
	settingsTaxRate
	settingsOutputDir
	settingsCurrency
)

var invoiceSettingLabels = []string{"Invoice prefix:", "Quotation prefix:", "Default tax % (blank for none):", "Output directory:", "Currency:"}

type ownerDataMsg struct {
	owner *domain.Owner
	err   error
}

type settingsSavedMsg struct {
	status  string
	owner   *domain.Owner
	invoice *config.InvoiceConfig
	err     error
}

// SettingsModel shows and edits the owner profile and invoice settings
type SettingsModel struct {
	app       *app.App
	actor     domain.Actor
	owner     *domain.Owner
	mode      settingsMode
	form      *form
	err       error
	statusMsg string
}

// NewSettingsModel creates a new settings screen
func NewSettingsModel(a *app.App, actor domain.Actor) tea.Model {
	return &SettingsModel{
		app:   a,
		actor: actor,
		mode:  settingsModeView,
	}
}

// IsCapturingInput returns true when an edit form is active
func (m *SettingsModel) IsCapturingInput() bool {
	return m.mode != settingsModeView
}

func (m *SettingsModel) Init() tea.Cmd {
	return m.loadOwner()
}

func (m *SettingsModel) loadOwner() tea.Cmd {
	a, actor := m.app, m.actor
	return func() tea.Msg {
		owner, err := a.OwnerService.Get(context.Background(), actor, actor.OwnerID)
		return ownerDataMsg{owner: owner, err: err}
	}
}

func (m *SettingsModel) initProfileForm() tea.Cmd {
	o := m.owner
	m.form = newForm(profileLabels,
		newField("Business name", 100, 40),
		newField("Street, City", 200, 50),
		newField("0123-4567890", 20, 15),
		newField("Optional", 20, 15),
		newField("1234567", 13, 15),
		newField("Bank name", 100, 40),
		newField("Account title", 100, 40),
		newField("PK00BANK0000000000000000", 34, 36),
	)
	for i, v := range []string{o.Name, o.Address, o.Phone, o.Phone2, o.NTNNumber, o.Bank, o.AccountTitle, o.IBAN} {
		m.form.set(i, v)
	}
	return m.form.start()
}

func (m *SettingsModel) initInvoiceForm() tea.Cmd {
	cfg := m.app.Config.Invoice
	m.form = newForm(invoiceSettingLabels,
		newField("I_SAE", 20, 20),
		newField("Q_SAE", 20, 20),
		newField("17", 7, 8),
		newField("/path/to/invoices", 256, 60),
		newField("Rs", 8, 8),
	)
	for i, v := range []string{cfg.InvoicePrefix, cfg.QuotationPrefix, cfg.DefaultTaxPercentage, cfg.OutputDir, cfg.Currency} {
		m.form.set(i, v)
	}
	return m.form.start()
}

func (m *SettingsModel) saveProfile() tea.Cmd {
	a, actor := m.app, m.actor
	v := m.form.values()
	return func() tea.Msg {
		patch := domain.OwnerPatch{
			Name:         &v[profileName],
			Address:      &v[profileAddress],
			Phone:        &v[profilePhone],
			Phone2:       &v[profilePhone2],
			NTNNumber:    &v[profileNTN],
			Bank:         &v[profileBank],
			AccountTitle: &v[profileAccountTitle],
			IBAN:         &v[profileIBAN],
		}
		owner, err := a.OwnerService.Update(context.Background(), actor, actor.OwnerID, patch)
		if err != nil {
			return settingsSavedMsg{err: err}
		}
		return settingsSavedMsg{owner: owner, status: "Profile saved"}
	}
}

// saveInvoiceSettings writes the config file. The running services keep their
// options, so changes apply from the next start.
func (m *SettingsModel) saveInvoiceSettings() tea.Cmd {
	a := m.app
	v := m.form.values()
	return func() tea.Msg {
		if v[settingsInvoicePrefix] == "" || v[settingsQuotationPrefix] == "" {
			return settingsSavedMsg{err: fmt.Errorf("prefixes cannot be empty")}
		}

		next := *a.Config
		next.Invoice.InvoicePrefix = v[settingsInvoicePrefix]
		next.Invoice.QuotationPrefix = v[settingsQuotationPrefix]
		next.Invoice.DefaultTaxPercentage = v[settingsTaxRate]
		next.Invoice.OutputDir = v[settingsOutputDir]
		next.Invoice.Currency = v[settingsCurrency]
		if err := next.Validate(); err != nil {
			return settingsSavedMsg{err: err}
		}

		if err := next.Save(a.ConfigPath); err != nil {
			return settingsSavedMsg{err: fmt.Errorf("failed to save config: %w", err)}
		}
		return settingsSavedMsg{invoice: &next.Invoice, status: "Settings saved (restart to apply)"}
	}
}

func (m *SettingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ownerDataMsg:
		m.err = msg.err
		m.owner = msg.owner
		return m, nil

	case RefreshDataMsg:
		if m.mode == settingsModeView {
			return m, m.loadOwner()
		}
		return m, nil

	case settingsSavedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if msg.owner != nil {
			m.owner = msg.owner
		}
		if msg.invoice != nil {
			m.app.Config.Invoice = *msg.invoice
		}
		m.mode = settingsModeView
		m.form = nil
		m.err = nil
		m.statusMsg = msg.status
		return m, nil

	case tea.KeyMsg:
		if m.mode == settingsModeView {
			m.statusMsg = ""
			switch msg.String() {
			case "p":
				if m.owner != nil {
					m.mode = settingsModeProfile
					m.err = nil
					return m, m.initProfileForm()
				}
			case "e":
				m.mode = settingsModeInvoice
				m.err = nil
				return m, m.initInvoiceForm()
			}
			return m, nil
		}
	}

	if m.form != nil {
		result, cmd := m.form.update(msg)
		switch result {
		case formSubmit:
			if m.mode == settingsModeProfile {
				return m, m.saveProfile()
			}
			return m, m.saveInvoiceSettings()
		case formCancel:
			m.mode = settingsModeView
			m.form = nil
			m.err = nil
		}
		return m, cmd
	}
	return m, nil
}

func (m *SettingsModel) View() string {
	switch m.mode {
	case settingsModeProfile:
		return titleStyle.Render("Edit Profile") + "\n\n" + m.form.view(m.err)
	case settingsModeInvoice:
		return titleStyle.Render("Edit Invoice Settings") + "\n" +
			subtitleStyle.Render("  Saved to the config file; applies the next time invoicer starts.") + "\n\n" +
			m.form.view(m.err)
	}

	var s string
	s += titleStyle.Render("Settings") + "\n\n"

	row := func(label, value string) string {
		if value == "" {
			value = subtitleStyle.Render("(not set)")
		}
		return fmt.Sprintf("  %-20s %s\n", label, value)
	}

	s += labelStyle.Render("  Profile") + "\n"
	if m.owner != nil {
		o := m.owner
		s += row("Email:", o.Email)
		s += row("Business name:", o.Name)
		s += row("Address:", o.Address)
		s += row("Phone:", strings.TrimSpace(o.Phone+"  "+o.Phone2))
		s += row("NTN:", o.NTNNumber)
		s += row("Bank:", o.Bank)
		s += row("Account title:", o.AccountTitle)
		s += row("IBAN:", o.IBAN)
	} else {
		s += subtitleStyle.Render("  Loading profile...") + "\n"
	}
	s += "\n"

	cfg := m.app.Config.Invoice
	s += labelStyle.Render("  Invoices") + "\n"
	s += row("Invoice prefix:", cfg.InvoicePrefix)
	s += row("Quotation prefix:", cfg.QuotationPrefix)
	s += row("Default tax %:", cfg.DefaultTaxPercentage)
	s += row("Output directory:", cfg.OutputDir)
	s += row("Currency:", cfg.Currency)
	s += "\n"

	s += subtitleStyle.Render("  Config file: "+m.app.ConfigPath) + "\n\n"

	if m.statusMsg != "" {
		s += statusStyle.Render("  "+m.statusMsg) + "\n\n"
	}
	if m.err != nil {
		s += errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
	}

	s += helpStyle.Render("  p: edit profile  e: edit invoice settings")
	return s
}
