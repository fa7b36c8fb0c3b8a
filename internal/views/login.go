package views

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rhystmorgan/fxTerm/internal/ledger"
	"rhystmorgan/fxTerm/internal/security"
	"rhystmorgan/fxTerm/internal/utils"
)

const (
	loginUsername = iota
	loginPassword
	loginPassphrase
	loginFieldCount
)

// LoginModel signs in against the ledger service and seals the resulting
// credential under a local passphrase.
type LoginModel struct {
	client   *ledger.Client
	sessions *security.SessionManager

	inputs  []textinput.Model
	focus   int
	spinner spinner.Model
	loading bool
	error   string
}

type loginResultMsg struct {
	session security.Session
	err     error
}

func NewLoginModel(client *ledger.Client, sessions *security.SessionManager) *LoginModel {
	inputs := make([]textinput.Model, loginFieldCount)
	for i := range inputs {
		in := textinput.New()
		in.CharLimit = 128
		in.Width = 36
		in.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Accent))
		in.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Text))
		inputs[i] = in
	}
	inputs[loginUsername].Placeholder = "Username"
	inputs[loginPassword].Placeholder = "Password"
	inputs[loginPassword].EchoMode = textinput.EchoPassword
	inputs[loginPassphrase].Placeholder = "Local passphrase (protects the saved session)"
	inputs[loginPassphrase].EchoMode = textinput.EchoPassword
	inputs[loginUsername].Focus()

	return &LoginModel{
		client:   client,
		sessions: sessions,
		inputs:   inputs,
		spinner:  newSpinner(),
	}
}

func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m LoginModel) Update(msg tea.Msg) (LoginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}

		switch msg.String() {
		case "tab", "down":
			m.setFocus((m.focus + 1) % loginFieldCount)
			return m, nil
		case "shift+tab", "up":
			m.setFocus((m.focus + loginFieldCount - 1) % loginFieldCount)
			return m, nil
		case "enter":
			if m.focus < loginPassphrase {
				m.setFocus(m.focus + 1)
				return m, nil
			}
			return m.submit()
		}

	case loginResultMsg:
		m.loading = false
		if msg.err != nil {
			m.error = ledger.ClassifyError(msg.err).UserMessage()
			m.inputs[loginPassword].Reset()
			m.setFocus(loginPassword)
			return m, nil
		}
		session := msg.session
		return m, func() tea.Msg { return SessionStartedMsg{Session: session} }

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *LoginModel) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

func (m LoginModel) submit() (LoginModel, tea.Cmd) {
	username := strings.TrimSpace(m.inputs[loginUsername].Value())
	password := m.inputs[loginPassword].Value()
	passphrase := m.inputs[loginPassphrase].Value()

	switch {
	case username == "" || password == "":
		m.error = "Username and password are required"
		return m, nil
	case passphrase == "":
		m.error = "Choose a passphrase to protect the saved session"
		return m, nil
	}

	m.loading = true
	m.error = ""

	client, sessions := m.client, m.sessions
	login := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		cred, err := security.Authenticate(ctx, client, username, password)
		if err != nil {
			return loginResultMsg{err: err}
		}
		session, err := sessions.Start(cred)
		if err != nil {
			return loginResultMsg{err: err}
		}
		if err := sessions.Save(passphrase); err != nil {
			return loginResultMsg{err: err}
		}
		return loginResultMsg{session: *session}
	}

	return m, tea.Batch(login, m.spinner.Tick)
}

func (m *LoginModel) View() string {
	containerStyle := lipgloss.NewStyle().
		Width(60).
		Padding(1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(utils.Colours.Accent))

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Accent)).
		Bold(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Error)).
		Bold(true)

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Muted)).
		Italic(true)

	var content strings.Builder
	content.WriteString(titleStyle.Render("fxTerm - Sign in"))
	content.WriteString("\n\n")

	for _, in := range m.inputs {
		content.WriteString(in.View())
		content.WriteString("\n")
	}
	content.WriteString("\n")

	if m.loading {
		content.WriteString(m.spinner.View() + " Signing in...")
		content.WriteString("\n\n")
	}

	if m.error != "" {
		content.WriteString(errorStyle.Render(m.error))
		content.WriteString("\n\n")
	}

	content.WriteString(helpStyle.Render("Tab: next field • Enter: sign in • Ctrl+C: quit"))

	return containerStyle.Render(content.String())
}
