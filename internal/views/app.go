package views

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"rhystmorgan/fxTerm/internal/audit"
	"rhystmorgan/fxTerm/internal/ledger"
	"rhystmorgan/fxTerm/internal/logging"
	"rhystmorgan/fxTerm/internal/security"
	"rhystmorgan/fxTerm/internal/transfer"
	"rhystmorgan/fxTerm/internal/utils"
)

type ViewState int

const (
	ViewLogin ViewState = iota
	ViewUnlock
	ViewDashboard
	ViewTransfer
)

func (v ViewState) String() string {
	switch v {
	case ViewLogin:
		return "login"
	case ViewUnlock:
		return "unlock"
	case ViewDashboard:
		return "dashboard"
	case ViewTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// Deps are the long-lived services the views share.
type Deps struct {
	Client   *ledger.Client
	Sessions *security.SessionManager
	Auditor  *audit.TransferAuditor
	Logger   *log.Logger
	FeeRate  *decimal.Decimal
}

type AppModel struct {
	state  ViewState
	width  int
	height int
	deps   Deps

	login     *LoginModel
	unlock    *PasswordPromptModel
	dashboard *DashboardModel
	transfer  *SendTransferModel

	err error
}

type NavigateMsg struct {
	State ViewState
	Data  interface{}
}

// TransferOptions is the NavigateMsg payload for ViewTransfer.
type TransferOptions struct {
	CryptoPreselected bool
}

type ErrorMsg struct {
	Err error
}

// SessionStartedMsg is sent once a login or unlock produced a session.
type SessionStartedMsg struct {
	Session security.Session
}

func NewAppModel(deps Deps) *AppModel {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}

	app := &AppModel{deps: deps}
	app.login = NewLoginModel(deps.Client, deps.Sessions)
	app.unlock = NewPasswordPromptModel(deps.Sessions)

	switch {
	case deps.Sessions.Status() == security.SessionStatusActive || deps.Sessions.Status() == security.SessionStatusExpiring:
		app.state = ViewDashboard
		app.dashboard = NewDashboardModel(deps)
	case deps.Sessions.HasSaved():
		app.state = ViewUnlock
		app.unlock.Show("Unlock fxTerm", "Enter the passphrase protecting your saved session")
	default:
		app.state = ViewLogin
	}

	return app
}

func (m AppModel) Init() tea.Cmd {
	switch m.state {
	case ViewDashboard:
		return m.dashboard.Init()
	case ViewLogin:
		return m.login.Init()
	case ViewUnlock:
		return m.unlock.Init()
	}
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case NavigateMsg:
		return m.navigateTo(msg.State, msg.Data)

	case ErrorMsg:
		m.err = msg.Err
		return m, nil

	case SessionStartedMsg:
		m.deps.Client.SetToken(msg.Session.AccessToken)
		m.deps.Logger.Info("session started", "user_id", msg.Session.UserID)
		return m.navigateTo(ViewDashboard, nil)

	case LoggedOutMsg:
		m.deps.Client.SetToken("")
		m.transfer = nil
		m.dashboard = nil
		next, cmd := m.navigateTo(ViewLogin, nil)
		if msg.Err != nil {
			m.deps.Logger.Error("logout failed", "err", msg.Err)
			return next, tea.Batch(cmd, ShowError(msg.Err))
		}
		return next, cmd
	}

	switch m.state {
	case ViewLogin:
		if m.login != nil {
			*m.login, cmd = m.login.Update(msg)
		}
	case ViewUnlock:
		if m.unlock != nil {
			*m.unlock, cmd = m.unlock.Update(msg)
		}
	case ViewDashboard:
		if m.dashboard != nil {
			*m.dashboard, cmd = m.dashboard.Update(msg)
		}
	case ViewTransfer:
		if m.transfer != nil {
			*m.transfer, cmd = m.transfer.Update(msg)
		}
	}

	return m, cmd
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content string

	switch m.state {
	case ViewLogin:
		if m.login != nil {
			content = m.login.View()
		}
	case ViewUnlock:
		if m.unlock != nil {
			content = m.unlock.View()
		}
	case ViewDashboard:
		if m.dashboard != nil {
			content = m.dashboard.View()
		}
	case ViewTransfer:
		if m.transfer != nil {
			content = m.transfer.View()
		}
	default:
		content = "Unknown view"
	}

	if m.err != nil {
		errorStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(utils.Colours.Error)).
			Bold(true).
			Padding(1)
		content += "\n" + errorStyle.Render(fmt.Sprintf("Error: %s", m.err.Error()))
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m AppModel) navigateTo(state ViewState, data interface{}) (tea.Model, tea.Cmd) {
	m.deps.Logger.Debug("navigate", "from", m.state, "to", state)
	m.state = state
	m.err = nil

	size := tea.WindowSizeMsg{Width: m.width, Height: m.height}

	switch state {
	case ViewLogin:
		m.deps.Sessions.Close()
		m.login = NewLoginModel(m.deps.Client, m.deps.Sessions)
		if notice, ok := data.(string); ok {
			m.login.error = notice
		}
		return m, m.login.Init()

	case ViewUnlock:
		m.unlock = NewPasswordPromptModel(m.deps.Sessions)
		m.unlock.Show("Unlock fxTerm", "Enter the passphrase protecting your saved session")
		return m, m.unlock.Init()

	case ViewDashboard:
		if m.dashboard == nil {
			m.dashboard = NewDashboardModel(m.deps)
		}
		*m.dashboard, _ = m.dashboard.Update(size)
		if notice, ok := data.(string); ok && notice != "" {
			m.dashboard.showFeedback(FeedbackInfo, notice, noticeDuration)
			return m, tea.Batch(m.dashboard.Init(), m.dashboard.feedbackMessage.timeout())
		}
		return m, m.dashboard.Init()

	case ViewTransfer:
		opts, _ := data.(TransferOptions)
		wfOpts := transfer.Options{
			FeeRate:           m.deps.FeeRate,
			CryptoPreselected: opts.CryptoPreselected,
			Logger:            m.deps.Logger,
		}
		if m.deps.Auditor != nil {
			wfOpts.Recorder = m.deps.Auditor
		}
		m.transfer = NewSendTransferModel(m.deps.Client, m.deps.Sessions, wfOpts)
		*m.transfer, _ = m.transfer.Update(size)
		return m, m.transfer.Init()
	}

	return m, nil
}

func NavigateTo(state ViewState, data interface{}) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{State: state, Data: data}
	}
}

func ShowError(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Err: err}
	}
}
