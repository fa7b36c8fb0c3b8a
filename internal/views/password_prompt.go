package views

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rhystmorgan/fxTerm/internal/security"
	"rhystmorgan/fxTerm/internal/storage"
	"rhystmorgan/fxTerm/internal/utils"
)

// PasswordPromptModel unlocks the sealed session with its passphrase.
type PasswordPromptModel struct {
	sessions *security.SessionManager

	input       textinput.Model
	attempts    int
	maxAttempts int

	visible     bool
	loading     bool
	error       string
	title       string
	description string
}

type PasswordVerificationMsg struct {
	Success bool
	Session security.Session
	Error   error
}

func NewPasswordPromptModel(sessions *security.SessionManager) *PasswordPromptModel {
	input := textinput.New()
	input.Placeholder = "Passphrase"
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '*'
	input.CharLimit = 128
	input.Width = 36
	input.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Accent))
	input.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Text))

	return &PasswordPromptModel{
		sessions:    sessions,
		input:       input,
		maxAttempts: 3,
	}
}

func (m *PasswordPromptModel) Show(title, description string) {
	m.visible = true
	m.title = title
	m.description = description
	m.input.Reset()
	m.input.Focus()
	m.error = ""
	m.loading = false
}

func (m *PasswordPromptModel) Hide() {
	m.visible = false
	m.input.Reset()
	m.input.Blur()
	m.error = ""
	m.loading = false
}

func (m *PasswordPromptModel) IsVisible() bool {
	return m.visible
}

func (m PasswordPromptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m PasswordPromptModel) Update(msg tea.Msg) (PasswordPromptModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}

		switch msg.String() {
		case "esc":
			m.Hide()
			return m, NavigateTo(ViewLogin, nil)

		case "enter":
			if m.input.Value() == "" {
				m.error = "Passphrase cannot be empty"
				return m, nil
			}

			if m.attempts >= m.maxAttempts {
				m.error = "Too many failed attempts. Press Esc to sign in again."
				return m, nil
			}

			m.loading = true
			m.error = ""
			return m, m.verifyPassphrase(m.input.Value())

		case "ctrl+u":
			m.input.Reset()
			return m, nil
		}

	case PasswordVerificationMsg:
		m.loading = false
		if msg.Success {
			m.Hide()
			session := msg.Session
			return m, func() tea.Msg { return SessionStartedMsg{Session: session} }
		}

		m.input.Reset()
		if !errors.Is(msg.Error, storage.ErrInvalidPassphrase) {
			m.error = fmt.Sprintf("Could not unlock session: %v", msg.Error)
			return m, nil
		}

		m.attempts++
		if m.attempts >= m.maxAttempts {
			m.error = "Too many failed attempts. Press Esc to sign in again."
		} else {
			m.error = fmt.Sprintf("Incorrect passphrase (%d/%d attempts)", m.attempts, m.maxAttempts)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *PasswordPromptModel) View() string {
	if !m.visible {
		return ""
	}

	overlayStyle := lipgloss.NewStyle().
		Width(60).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(utils.Colours.Accent)).
		Padding(1).
		Align(lipgloss.Center)

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Accent)).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Text)).
		Margin(1, 0)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Error)).
		Bold(true)

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Muted)).
		Italic(true)

	var content strings.Builder

	content.WriteString(titleStyle.Render(m.title))
	content.WriteString("\n")

	if m.description != "" {
		content.WriteString(descStyle.Render(m.description))
		content.WriteString("\n")
	}

	if m.loading {
		content.WriteString("Unlocking session...")
	} else {
		content.WriteString(m.input.View())
	}
	content.WriteString("\n\n")

	if m.error != "" {
		content.WriteString(errorStyle.Render(m.error))
		content.WriteString("\n\n")
	}

	if !m.loading {
		content.WriteString(helpStyle.Render("Enter: unlock • Esc: sign in again • Ctrl+U: clear"))
	}

	return overlayStyle.Render(content.String())
}

func (m *PasswordPromptModel) verifyPassphrase(passphrase string) tea.Cmd {
	sessions := m.sessions
	return func() tea.Msg {
		session, err := sessions.Unlock(passphrase)
		if err != nil {
			return PasswordVerificationMsg{Error: err}
		}
		return PasswordVerificationMsg{Success: true, Session: *session}
	}
}
