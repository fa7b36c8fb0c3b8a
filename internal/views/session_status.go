package views

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rhystmorgan/fxTerm/internal/security"
	"rhystmorgan/fxTerm/internal/utils"
)

// SessionStatusModel is the session badge shown in the dashboard header. It
// polls the session manager once a second.
type SessionStatusModel struct {
	sessions      *security.SessionManager
	status        security.SessionStatus
	timeRemaining time.Duration
	warningShown  bool
	expired       bool
	ticking       bool
}

type sessionTickMsg time.Time

type SessionTimeoutWarningMsg struct {
	TimeRemaining time.Duration
}

type SessionExpiredMsg struct{}

func NewSessionStatusModel(sessions *security.SessionManager) *SessionStatusModel {
	m := &SessionStatusModel{sessions: sessions}
	m.refresh()
	return m
}

// Start begins polling unless a poll loop is already running.
func (m *SessionStatusModel) Start() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return m.tick()
}

func (m SessionStatusModel) Update(msg tea.Msg) (SessionStatusModel, tea.Cmd) {
	if _, ok := msg.(sessionTickMsg); !ok {
		return m, nil
	}

	m.refresh()

	switch {
	case m.status == security.SessionStatusExpired && !m.expired:
		m.expired = true
		m.ticking = false
		return m, func() tea.Msg { return SessionExpiredMsg{} }
	case m.status == security.SessionStatusExpiring && !m.warningShown:
		m.warningShown = true
		remaining := m.timeRemaining
		return m, tea.Batch(m.tick(), func() tea.Msg {
			return SessionTimeoutWarningMsg{TimeRemaining: remaining}
		})
	}

	if m.expired || m.status == security.SessionStatusInactive {
		m.ticking = false
		return m, nil
	}
	return m, m.tick()
}

func (m *SessionStatusModel) refresh() {
	if m.sessions == nil {
		m.status = security.SessionStatusInactive
		return
	}
	m.status = m.sessions.Status()
	m.timeRemaining = m.sessions.TimeRemaining()
}

func (m SessionStatusModel) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return sessionTickMsg(t) })
}

func (m SessionStatusModel) View() string {
	var statusText, color string

	switch m.status {
	case security.SessionStatusActive:
		statusText, color = "●", utils.Colours.Success
	case security.SessionStatusExpiring:
		statusText, color = "●", utils.Colours.Warning
	case security.SessionStatusExpired:
		statusText, color = "●", utils.Colours.Error
	default:
		statusText, color = "○", utils.Colours.Faint
	}

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(color)).
		Bold(true)

	detail := fmt.Sprintf("Session %s", m.status)
	if m.timeRemaining > 0 {
		detail += fmt.Sprintf(" (%s left)", formatSessionDuration(m.timeRemaining))
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		statusStyle.Render(statusText),
		lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Muted)).Padding(0, 1).Render(detail),
	)
}

func formatSessionDuration(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}

	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
