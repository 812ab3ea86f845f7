package tui

// SwitchScreenMsg requests a screen change
type SwitchScreenMsg struct {
	Screen Screen
}

// RefreshDataMsg requests data refresh
type RefreshDataMsg struct{}

// ErrorMsg carries error information
type ErrorMsg struct {
	Err error
}

// OpenNewClientFormMsg tells the clients screen to open the new client form
type OpenNewClientFormMsg struct{}

// firstRunCheckMsg reports whether the acting owner has any clients
type firstRunCheckMsg struct {
	hasClients bool
}
