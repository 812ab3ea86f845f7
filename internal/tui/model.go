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

// Screen represents the current active screen
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenClients
	ScreenInvoices
	ScreenSettings
)

// String returns the screen name
func (s Screen) String() string {
	switch s {
	case ScreenDashboard:
		return "Dashboard"
	case ScreenClients:
		return "Clients"
	case ScreenInvoices:
		return "Invoices"
	case ScreenSettings:
		return "Settings"
	default:
		return "Unknown"
	}
}

// Model is the root Bubble Tea model
type Model struct {
	app           *app.App
	actor         domain.Actor
	currentScreen Screen
	width         int
	height        int

	// Screen models (lazy initialized)
	dashboard tea.Model
	clients   tea.Model
	invoices  tea.Model
	settings  tea.Model

	// First-run state
	checkedFirstRun bool

	err error
}

// New creates a new root model acting as actor
func New(a *app.App, actor domain.Actor) Model {
	return Model{
		app:           a,
		actor:         actor,
		currentScreen: ScreenDashboard,
		dashboard:     NewDashboardModel(a, actor),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.checkFirstRun(),
	}
	if m.dashboard != nil {
		cmds = append(cmds, m.dashboard.Init())
	}
	return tea.Batch(cmds...)
}

// checkFirstRun checks if the acting owner has any clients yet
func (m *Model) checkFirstRun() tea.Cmd {
	a, actor := m.app, m.actor
	return func() tea.Msg {
		clients, err := a.ClientService.List(context.Background(), actor, true)
		if err != nil {
			return firstRunCheckMsg{hasClients: true} // assume yes on error
		}
		return firstRunCheckMsg{hasClients: len(clients) > 0}
	}
}

// initScreen lazy-initializes a screen on first visit,
// and sends a RefreshDataMsg on subsequent visits so screens reload data.
func (m *Model) initScreen(screen Screen) tea.Cmd {
	refresh := func() tea.Msg { return RefreshDataMsg{} }

	switch screen {
	case ScreenDashboard:
		if m.dashboard == nil {
			m.dashboard = NewDashboardModel(m.app, m.actor)
			return m.dashboard.Init()
		}
		return refresh
	case ScreenClients:
		if m.clients == nil {
			m.clients = NewClientsModel(m.app, m.actor)
			return m.clients.Init()
		}
		return refresh
	case ScreenInvoices:
		if m.invoices == nil {
			m.invoices = NewInvoicesModel(m.app, m.actor)
			return m.invoices.Init()
		}
		return refresh
	case ScreenSettings:
		if m.settings == nil {
			m.settings = NewSettingsModel(m.app, m.actor)
			return m.settings.Init()
		}
		return refresh
	}
	return nil
}

// InputCapturer is implemented by screens that capture keyboard input (e.g. text forms).
// When active, global navigation keys (D, C, I, comma, Q) are suppressed.
type InputCapturer interface {
	IsCapturingInput() bool
}

// active returns the model of the current screen
func (m *Model) active() tea.Model {
	switch m.currentScreen {
	case ScreenDashboard:
		return m.dashboard
	case ScreenClients:
		return m.clients
	case ScreenInvoices:
		return m.invoices
	case ScreenSettings:
		return m.settings
	}
	return nil
}

func (m *Model) setActive(screen tea.Model) {
	switch m.currentScreen {
	case ScreenDashboard:
		m.dashboard = screen
	case ScreenClients:
		m.clients = screen
	case ScreenInvoices:
		m.invoices = screen
	case ScreenSettings:
		m.settings = screen
	}
}

// activeScreenCapturingInput returns true if the current screen is capturing text input
func (m *Model) activeScreenCapturingInput() bool {
	if ic, ok := m.active().(InputCapturer); ok {
		return ic.IsCapturingInput()
	}
	return false
}

func (m *Model) switchTo(screen Screen) tea.Cmd {
	m.currentScreen = screen
	m.err = nil
	return m.initScreen(screen)
}

// Update implements tea.Model - routes keys to screens
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		// Skip global navigation when a screen is capturing text input
		if !m.activeScreenCapturingInput() {
			switch {
			case key.Matches(msg, DefaultKeyMap.Quit):
				return m, tea.Quit
			case key.Matches(msg, DefaultKeyMap.Dashboard):
				return m, m.switchTo(ScreenDashboard)
			case key.Matches(msg, DefaultKeyMap.Clients):
				return m, m.switchTo(ScreenClients)
			case key.Matches(msg, DefaultKeyMap.Invoices):
				return m, m.switchTo(ScreenInvoices)
			case key.Matches(msg, DefaultKeyMap.Settings):
				return m, m.switchTo(ScreenSettings)
			}
		}

	case firstRunCheckMsg:
		if !m.checkedFirstRun && !msg.hasClients {
			m.checkedFirstRun = true
			initCmd := m.switchTo(ScreenClients)
			openFormCmd := func() tea.Msg { return OpenNewClientFormMsg{} }
			return m, tea.Batch(initCmd, openFormCmd)
		}
		m.checkedFirstRun = true
		return m, nil

	case SwitchScreenMsg:
		return m, m.switchTo(msg.Screen)

	case ErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	// Route message to current screen
	var cmd tea.Cmd
	if screen := m.active(); screen != nil {
		screen, cmd = screen.Update(msg)
		m.setActive(screen)
	}
	return m, cmd
}

// View implements tea.Model - renders header + current screen + footer
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := headerStyle.Render(fmt.Sprintf("invoicer - %s", m.currentScreen.String()))
	who := subtitleStyle.Render(m.actor.Email)
	if m.actor.Staff {
		who += subtitleStyle.Render(" (staff)")
	}

	footer := footerStyle.Render("[D]ashboard  [C]lients  [I]nvoices  [,] Settings  [Q]uit")

	content := "Loading..."
	if screen := m.active(); screen != nil {
		content = screen.View()
	}

	errorDisplay := ""
	if m.err != nil {
		errorDisplay = errorTextStyle.Render(fmt.Sprintf("\nError: %s", m.err.Error()))
	}

	innerWidth := m.width - 6 // account for border (2) + padding (4)
	if innerWidth < 20 {
		innerWidth = 20
	}
	dividerWidth := innerWidth - 12
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	divider := lipgloss.NewStyle().Foreground(borderColor).Render(
		strings.Repeat("─", dividerWidth),
	)

	body := fmt.Sprintf("%s  %s\n%s\n\n%s%s\n\n%s\n%s", header, who, divider, content, errorDisplay, divider, footer)

	frame := appBorderStyle.
		Width(innerWidth).
		Height(m.height - 4) // leave room for border top/bottom
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, frame.Render(body))
}

// Run starts the TUI acting as actor
func Run(a *app.App, actor domain.Actor) error {
	p := tea.NewProgram(New(a, actor), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
