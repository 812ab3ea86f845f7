package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formResult int

const (
	formEditing formResult = iota
	formSubmit
	formCancel
)

// form is a vertical list of labelled text inputs with one focused field
type form struct {
	labels []string
	fields []textinput.Model
	focus  int
}

// newForm pairs labels with fields; both must have the same length
func newForm(labels []string, fields ...textinput.Model) *form {
	return &form{labels: labels, fields: fields}
}

// start focuses the first field
func (f *form) start() tea.Cmd {
	f.focus = 0
	return f.fields[0].Focus()
}

func (f *form) set(i int, v string) {
	f.fields[i].SetValue(v)
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.fields[i].Value())
}

// values returns every field, trimmed, in order
func (f *form) values() []string {
	out := make([]string, len(f.fields))
	for i := range f.fields {
		out[i] = f.value(i)
	}
	return out
}

func (f *form) move(delta int) tea.Cmd {
	n := len(f.fields)
	f.fields[f.focus].Blur()
	f.focus = (f.focus + delta + n) % n
	return f.fields[f.focus].Focus()
}

// update handles navigation keys and forwards everything else to the
// focused input. Enter on the last field or ctrl+s submits; esc cancels.
func (f *form) update(msg tea.Msg) (formResult, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			return formCancel, nil
		case "tab", "down":
			return formEditing, f.move(1)
		case "shift+tab", "up":
			return formEditing, f.move(-1)
		case "ctrl+s":
			return formSubmit, nil
		case "enter":
			if f.focus == len(f.fields)-1 {
				return formSubmit, nil
			}
			return formEditing, f.move(1)
		}
	}

	var cmd tea.Cmd
	f.fields[f.focus], cmd = f.fields[f.focus].Update(msg)
	return formEditing, cmd
}

func (f *form) view(err error) string {
	var b strings.Builder
	for i, label := range f.labels {
		indicator := "  "
		style := subtitleStyle
		if i == f.focus {
			indicator = "> "
			style = labelStyle
		}
		fmt.Fprintf(&b, "%s%s\n  %s\n\n", indicator, style.Render(label), f.fields[i].View())
	}

	if err != nil {
		b.WriteString(errorTextStyle.Render(fmt.Sprintf("  Error: %v", err)) + "\n\n")
	}

	b.WriteString(helpStyle.Render("  tab/shift+tab: move  enter: next  ctrl+s: save  esc: cancel"))
	return b.String()
}
