package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/andy/invoicer/internal/app"
	"github.com/andy/invoicer/internal/domain"
)

// client form fields
const (
	fieldName = iota
	fieldEmail
	fieldPhone
	fieldAddress
	fieldNTN
	fieldNotes
)

var clientFieldLabels = []string{"Name:", "Email:", "Phone:", "Address:", "NTN:", "Notes:"}

// ClientsModel lists the actor's clients and edits them in a form
type ClientsModel struct {
	app   *app.App
	actor domain.Actor

	clients      []*domain.Client
	cursor       int
	showArchived bool
	loading      bool
	err          error
	statusMsg    string

	form       *form // nil while the list is shown
	editing    *domain.Client
	openOnLoad bool // first run: open the form once the list arrives
}

type clientsDataMsg struct {
	clients []*domain.Client
	err     error
}

type clientSavedMsg struct {
	client   *domain.Client
	archived string // set when the save was an archive toggle
	err      error
}

// NewClientsModel creates a new clients screen model
func NewClientsModel(a *app.App, actor domain.Actor) tea.Model {
	return &ClientsModel{app: a, actor: actor, loading: true}
}

// IsCapturingInput returns true when the form is open
func (m *ClientsModel) IsCapturingInput() bool {
	return m.form != nil
}

func (m *ClientsModel) Init() tea.Cmd {
	return m.reload()
}

func (m *ClientsModel) reload() tea.Cmd {
	m.loading = true
	a, actor, archived := m.app, m.actor, m.showArchived
	return func() tea.Msg {
		clients, err := a.ClientService.List(context.Background(), actor, archived)
		return clientsDataMsg{clients: clients, err: err}
	}
}

// openForm starts a blank form, or one prefilled from c
func (m *ClientsModel) openForm(c *domain.Client) tea.Cmd {
	m.editing = c
	m.err = nil
	m.form = newForm(clientFieldLabels,
		newField("Client name", 100, 40),
		newField("billing@example.com", 100, 40),
		newField("0123-4567890", 12, 15),
		newField("Street, City", 200, 50),
		newField("1234567", 13, 15),
		newField("Optional notes", 200, 50),
	)
	if c != nil {
		for i, v := range []string{c.Name, c.Email, c.Phone, c.Address, c.NTNNumber, c.Notes} {
			m.form.set(i, v)
		}
	}
	return m.form.start()
}

func (m *ClientsModel) save() tea.Cmd {
	a, actor, editing := m.app, m.actor, m.editing
	v := m.form.values()

	return func() tea.Msg {
		ctx := context.Background()

		if editing != nil {
			client, err := a.ClientService.Update(ctx, actor, editing.ID, domain.ClientPatch{
				Name:      &v[fieldName],
				Email:     &v[fieldEmail],
				Phone:     &v[fieldPhone],
				Address:   &v[fieldAddress],
				NTNNumber: &v[fieldNTN],
				Notes:     &v[fieldNotes],
			})
			return clientSavedMsg{client: client, err: err}
		}

		client := domain.NewClient(actor.OwnerID, v[fieldName])
		client.Email = v[fieldEmail]
		client.Phone = v[fieldPhone]
		client.Address = v[fieldAddress]
		client.NTNNumber = v[fieldNTN]
		client.Notes = v[fieldNotes]
		if err := a.ClientService.Create(ctx, actor, client); err != nil {
			return clientSavedMsg{err: err}
		}
		return clientSavedMsg{client: client}
	}
}

// toggleArchive flips the selected client between active and archived
func (m *ClientsModel) toggleArchive() tea.Cmd {
	a, actor := m.app, m.actor
	c := m.clients[m.cursor]

	return func() tea.Msg {
		ctx := context.Background()
		archive, verb := a.ClientService.Archive, "Archived"
		if c.IsArchived {
			archive, verb = a.ClientService.Unarchive, "Unarchived"
		}
		if err := archive(ctx, actor, c.ID); err != nil {
			return clientSavedMsg{err: err}
		}
		return clientSavedMsg{client: c, archived: verb}
	}
}

func (m *ClientsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case OpenNewClientFormMsg:
		if m.loading {
			m.openOnLoad = true
			return m, nil
		}
		return m, m.openForm(nil)

	case RefreshDataMsg:
		if m.form != nil {
			return m, nil
		}
		return m, m.reload()

	case clientsDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.clients = msg.clients
			m.cursor = min(m.cursor, max(0, len(m.clients)-1))
		}
		if m.openOnLoad {
			m.openOnLoad = false
			return m, m.openForm(nil)
		}
		return m, nil

	case clientSavedMsg:
		if msg.err != nil {
			// Keep the form open so the input can be corrected
			m.err = msg.err
			return m, nil
		}
		m.form = nil
		m.statusMsg = "Saved: " + msg.client.Name
		if msg.archived != "" {
			m.statusMsg = msg.archived + ": " + msg.client.Name
		}
		return m, m.reload()
	}

	if m.form != nil {
		result, cmd := m.form.update(msg)
		switch result {
		case formSubmit:
			return m, m.save()
		case formCancel:
			m.form = nil
			m.err = nil
		}
		return m, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok || m.loading {
		return m, nil
	}
	m.statusMsg = ""
	m.err = nil

	switch {
	case key.Matches(k, DefaultKeyMap.Up):
		m.cursor = max(0, m.cursor-1)
	case key.Matches(k, DefaultKeyMap.Down):
		m.cursor = min(m.cursor+1, max(0, len(m.clients)-1))
	case key.Matches(k, DefaultKeyMap.New):
		return m, m.openForm(nil)
	case key.Matches(k, DefaultKeyMap.Select):
		if m.cursor < len(m.clients) {
			return m, m.openForm(m.clients[m.cursor])
		}
	case k.String() == "a":
		if m.cursor < len(m.clients) {
			return m, m.toggleArchive()
		}
	case k.String() == "h":
		m.showArchived = !m.showArchived
		m.cursor = 0
		return m, m.reload()
	}
	return m, nil
}

func (m *ClientsModel) View() string {
	if m.form != nil {
		var title string
		switch {
		case m.editing != nil:
			title = titleStyle.Render("Edit "+m.editing.Name) + "\n\n"
		case len(m.clients) == 0:
			title = titleStyle.Render("Welcome to invoicer!") + "\n" +
				subtitleStyle.Render("  Add the first client you will bill.") + "\n\n"
		default:
			title = titleStyle.Render("New Client") + "\n\n"
		}
		return title + m.form.view(m.err)
	}

	if m.loading {
		return "Loading clients..."
	}

	var b strings.Builder
	header := "Clients"
	if m.showArchived {
		header += subtitleStyle.Render("  (including archived)")
	}
	b.WriteString(titleStyle.Render(header) + "\n\n")

	if m.statusMsg != "" {
		b.WriteString(statusStyle.Render("  "+m.statusMsg) + "\n\n")
	}
	if m.err != nil {
		b.WriteString(errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n")
	}

	if len(m.clients) == 0 {
		b.WriteString(subtitleStyle.Render("  No clients. n: add one  h: show archived") + "\n")
		return b.String()
	}

	for i, c := range m.clients {
		b.WriteString(m.renderClient(c, i == m.cursor) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("  j/k: move  n: new  enter: edit  a: archive/restore  h: show archived"))
	return b.String()
}

func (m *ClientsModel) renderClient(c *domain.Client, selected bool) string {
	nameStyle := lipgloss.NewStyle()
	detailStyle := subtitleStyle
	if c.IsArchived {
		nameStyle = nameStyle.Foreground(mutedColor).Italic(true)
	}
	if selected {
		nameStyle = nameStyle.Bold(true).Foreground(primaryColor)
	}

	prefix := "  "
	if selected {
		prefix = "> "
	}
	line := nameStyle.Render(prefix + c.Name)
	if c.IsArchived {
		line += subtitleStyle.Render("  archived")
	}

	var contact []string
	for _, v := range []string{c.Email, c.Phone, c.NTNNumber} {
		if v != "" {
			contact = append(contact, v)
		}
	}
	if len(contact) == 0 && c.Notes != "" {
		contact = append(contact, truncateStr(c.Notes, 40))
	}
	if len(contact) > 0 {
		line += "\n" + detailStyle.Render("    "+strings.Join(contact, "  |  "))
	}
	return line
}
