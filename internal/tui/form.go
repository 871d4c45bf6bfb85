// Package tui provides the interactive credential form used when linking or
// re-verifying an institution.
package tui

import (
	"strings"

	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Credentials are the values a user entered for an institution.
type Credentials struct {
	Username string
	Password string
	PIN      string
}

type field int

const (
	fieldUsername field = iota
	fieldPassword
	fieldPIN
)

// FormModel is a bubbletea model collecting an institution's credentials.
// The PIN field only appears when the institution asks for one.
type FormModel struct {
	theme       Theme
	keymap      KeyMap
	help        help.Model
	institution model.Institution
	errMsg      string
	labels      []string
	fields      []field
	inputs      []textinput.Model
	focus       int
	submitted   bool
	canceled    bool
}

// NewFormModel builds the form for an institution.
func NewFormModel(inst model.Institution, theme Theme) FormModel {
	m := FormModel{
		theme:       theme,
		keymap:      DefaultKeyMap(),
		help:        help.New(),
		institution: inst,
	}

	m.addField(fieldUsername, labelOr(inst.Credentials.Username, "Username"), false)
	m.addField(fieldPassword, labelOr(inst.Credentials.Password, "Password"), true)
	if inst.RequiresPIN() {
		m.addField(fieldPIN, inst.Credentials.PIN, true)
	}

	m.inputs[0].Focus()
	m.applyFocusStyles()
	return m
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}

func (m *FormModel) addField(f field, label string, secret bool) {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 128
	input.Placeholder = strings.ToLower(label)
	if secret {
		input.EchoMode = textinput.EchoPassword
		input.EchoCharacter = '•'
	}

	m.fields = append(m.fields, f)
	m.labels = append(m.labels, label)
	m.inputs = append(m.inputs, input)
}

// Init starts the cursor blinking.
func (m FormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key presses. Enter on the last field submits.
func (m FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keymap.Quit):
			m.canceled = true
			return m, tea.Quit

		case key.Matches(keyMsg, m.keymap.Submit):
			if m.focus < len(m.inputs)-1 {
				return m, m.moveFocus(1)
			}
			if missing := m.firstMissing(); missing >= 0 {
				m.errMsg = m.labels[missing] + " is required"
				return m, m.setFocus(missing)
			}
			m.submitted = true
			return m, tea.Quit

		case key.Matches(keyMsg, m.keymap.Next):
			return m, m.moveFocus(1)

		case key.Matches(keyMsg, m.keymap.Prev):
			return m, m.moveFocus(-1)
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// moveFocus cycles focus by delta, wrapping at both ends.
func (m *FormModel) moveFocus(delta int) tea.Cmd {
	n := len(m.inputs)
	return m.setFocus(((m.focus+delta)%n + n) % n)
}

func (m *FormModel) setFocus(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.applyFocusStyles()
	return m.inputs[m.focus].Focus()
}

func (m *FormModel) applyFocusStyles() {
	for i := range m.inputs {
		if i == m.focus {
			m.inputs[i].PromptStyle = m.theme.Focused
			m.inputs[i].TextStyle = m.theme.Focused
			continue
		}
		m.inputs[i].PromptStyle = m.theme.Blurred
		m.inputs[i].TextStyle = m.theme.Blurred
	}
}

// firstMissing returns the index of the first empty field, or -1.
func (m FormModel) firstMissing() int {
	for i, input := range m.inputs {
		if strings.TrimSpace(input.Value()) == "" {
			return i
		}
	}
	return -1
}

// View renders the form.
func (m FormModel) View() string {
	var b strings.Builder

	b.WriteString(m.theme.Title.Render("Link " + m.institution.Name))
	b.WriteString("\n")

	for i, input := range m.inputs {
		b.WriteString(m.theme.Label.Render(m.labels[i]))
		b.WriteString("\n")
		b.WriteString(input.View())
		b.WriteString("\n\n")
	}

	if m.errMsg != "" {
		b.WriteString(m.theme.Error.Render(m.errMsg))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keymap))

	return m.theme.Box.Render(b.String())
}

// Submitted reports whether the user completed the form.
func (m FormModel) Submitted() bool {
	return m.submitted
}

// Canceled reports whether the user left the form.
func (m FormModel) Canceled() bool {
	return m.canceled
}

// Credentials returns the entered values. PIN is empty when not asked for.
func (m FormModel) Credentials() Credentials {
	var creds Credentials
	for i, f := range m.fields {
		value := m.inputs[i].Value()
		switch f {
		case fieldUsername:
			creds.Username = value
		case fieldPassword:
			creds.Password = value
		case fieldPIN:
			creds.PIN = value
		}
	}
	return creds
}
