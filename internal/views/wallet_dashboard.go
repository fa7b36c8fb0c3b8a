package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rhystmorgan/fxTerm/internal/audit"
	"rhystmorgan/fxTerm/internal/ledger"
	"rhystmorgan/fxTerm/internal/models"
	"rhystmorgan/fxTerm/internal/utils"
)

const historyLimit = 5

const (
	menuSend = iota
	menuSendCrypto
	menuRefresh
	menuLogout
	menuQuit
)

// DashboardModel is the signed-in home screen: wallets, recent transfers and
// the entry points into the transfer workflow.
type DashboardModel struct {
	deps Deps

	session *SessionStatusModel
	spinner spinner.Model

	wallets        []models.Wallet
	walletsLoading bool
	walletsErr     string
	history        []audit.Entry
	ledgerStatus   ledger.Status

	menuItems          []string
	selectedMenuItem   int
	feedbackMessage    *FeedbackMessage
	lastRefreshRequest time.Time

	terminalWidth  int
	terminalHeight int
}

type dashboardDataMsg struct {
	wallets []models.Wallet
	history []audit.Entry
	err     error
}

type LoggedOutMsg struct {
	Err error
}

func NewDashboardModel(deps Deps) *DashboardModel {
	return &DashboardModel{
		deps:           deps,
		session:        NewSessionStatusModel(deps.Sessions),
		spinner:        newSpinner(),
		walletsLoading: true,
		menuItems: []string{
			"Send transfer",
			"Send crypto",
			"Refresh",
			"Log out",
			"Quit",
		},
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		m.refresh(),
		m.session.Start(),
		m.spinner.Tick,
	)
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.terminalWidth = msg.Width
		m.terminalHeight = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.selectedMenuItem > 0 {
				m.selectedMenuItem--
			}
		case "down", "j":
			if m.selectedMenuItem < len(m.menuItems)-1 {
				m.selectedMenuItem++
			}
		case "enter", " ":
			return m.activate(m.selectedMenuItem)
		case "s":
			return m.activate(menuSend)
		case "c":
			return m.activate(menuSendCrypto)
		case "r", "R":
			return m.activate(menuRefresh)
		case "q":
			return m, tea.Quit
		}

	case dashboardDataMsg:
		m.walletsLoading = false
		m.history = msg.history
		if msg.err != nil {
			m.walletsErr = ledger.ClassifyError(msg.err).UserMessage()
		} else {
			m.walletsErr = ""
			m.wallets = msg.wallets
		}

	case SessionTimeoutWarningMsg:
		m.showFeedback(FeedbackWarning,
			fmt.Sprintf("Session expires in %s. Sign in again soon.", formatSessionDuration(msg.TimeRemaining)),
			noticeDuration)
		cmds = append(cmds, m.feedbackMessage.timeout())

	case SessionExpiredMsg:
		return m, NavigateTo(ViewLogin, "Session expired, please sign in again")

	case sessionTickMsg:
		var cmd tea.Cmd
		*m.session, cmd = m.session.Update(msg)
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		if m.walletsLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case FeedbackTimeoutMsg:
		if m.feedbackMessage.Expired() {
			m.feedbackMessage = nil
		}
	}

	if m.deps.Client != nil {
		m.ledgerStatus = m.deps.Client.GetStatus()
	}

	return m, tea.Batch(cmds...)
}

func (m DashboardModel) activate(item int) (DashboardModel, tea.Cmd) {
	switch item {
	case menuSend:
		return m, NavigateTo(ViewTransfer, TransferOptions{})
	case menuSendCrypto:
		return m, NavigateTo(ViewTransfer, TransferOptions{CryptoPreselected: true})
	case menuRefresh:
		if time.Since(m.lastRefreshRequest) < 2*time.Second {
			m.showFeedback(FeedbackWarning, "Please wait before refreshing again", 2*time.Second)
			return m, m.feedbackMessage.timeout()
		}
		m.lastRefreshRequest = time.Now()
		m.walletsLoading = true
		return m, tea.Batch(m.refresh(), m.spinner.Tick)
	case menuLogout:
		sessions := m.deps.Sessions
		return m, func() tea.Msg { return LoggedOutMsg{Err: sessions.Logout()} }
	case menuQuit:
		return m, tea.Quit
	}
	return m, nil
}

func (m DashboardModel) refresh() tea.Cmd {
	client, sessions, auditor := m.deps.Client, m.deps.Sessions, m.deps.Auditor
	return func() tea.Msg {
		var msg dashboardDataMsg

		if auditor != nil {
			if history, err := auditor.History(0); err == nil {
				if len(history) > historyLimit {
					history = history[len(history)-historyLimit:]
				}
				msg.history = history
			}
		}

		userID, ok := sessions.CurrentUserID()
		if !ok {
			msg.err = fmt.Errorf("no active session")
			return msg
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		wallets, err := client.Wallets(ctx, userID)
		if err != nil && !ledger.IsType(err, ledger.ErrNotFound) {
			msg.err = err
			return msg
		}
		msg.wallets = models.FilterOwned(wallets, userID)
		return msg
	}
}

func (m *DashboardModel) View() string {
	containerStyle := lipgloss.NewStyle().
		Padding(1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(utils.Colours.Accent))

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Accent)).
		Bold(true)

	var content strings.Builder

	title := "fxTerm"
	if session, ok := m.deps.Sessions.Current(); ok && session.Username != "" {
		title = fmt.Sprintf("fxTerm - %s", session.Username)
	}
	content.WriteString(titleStyle.Render(title))
	content.WriteString("\n")
	content.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, m.session.View(), "  ", m.renderLedgerStatus()))
	content.WriteString("\n\n")

	content.WriteString(m.renderWallets())
	content.WriteString("\n\n")

	content.WriteString(m.renderHistory())
	content.WriteString("\n\n")

	content.WriteString(m.renderMenu())
	content.WriteString("\n\n")

	content.WriteString(lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Muted)).
		Italic(true).
		Render("s: send • c: send crypto • r: refresh • ↑/↓: navigate • enter: select • q: quit"))

	if m.feedbackMessage != nil {
		content.WriteString("\n\n")
		content.WriteString(renderFeedback(m.feedbackMessage))
	}

	return containerStyle.Render(content.String())
}

func (m *DashboardModel) renderLedgerStatus() string {
	color, label := utils.Colours.Success, "Ledger connected"
	switch {
	case m.ledgerStatus.BreakerState == "open":
		color, label = utils.Colours.Error, "Ledger unavailable (circuit open)"
	case !m.ledgerStatus.Connected && m.ledgerStatus.LastError != "":
		color, label = utils.Colours.Warning, "Ledger unreachable"
	}

	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●") +
		lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Muted)).Padding(0, 1).Render(label)
}

func (m *DashboardModel) renderWallets() string {
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Text)).
		Bold(true)

	var content strings.Builder
	content.WriteString(labelStyle.Render("Wallets"))
	content.WriteString("\n")

	switch {
	case m.walletsLoading:
		content.WriteString(m.spinner.View() + " Loading wallets...")
	case m.walletsErr != "":
		content.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Error)).Render(m.walletsErr))
	case len(m.wallets) == 0:
		content.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Muted)).
			Render("No wallets yet. Create one with the ledger service, then refresh."))
	default:
		for _, w := range m.wallets {
			content.WriteString("  " + utils.FormatWalletLabel(w) + "\n")
		}
	}

	return strings.TrimRight(content.String(), "\n")
}

func (m *DashboardModel) renderHistory() string {
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Text)).
		Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Muted))

	var content strings.Builder
	content.WriteString(labelStyle.Render("Recent activity"))
	content.WriteString("\n")

	if len(m.history) == 0 {
		content.WriteString(mutedStyle.Render("No transfers yet"))
		return content.String()
	}

	for i := len(m.history) - 1; i >= 0; i-- {
		e := m.history[i]
		line := fmt.Sprintf("%s  %-16s %s %s -> #%d",
			e.Timestamp.Local().Format("Jan 02 15:04"), e.Action, e.Amount, e.Code, e.RecipientID)
		if e.TransactionID != "" {
			line += "  tx " + utils.FormatTransactionID(e.TransactionID)
		}
		content.WriteString(mutedStyle.Render(line))
		content.WriteString("\n")
	}

	return strings.TrimRight(content.String(), "\n")
}

func (m *DashboardModel) renderMenu() string {
	itemStyle := lipgloss.NewStyle().Padding(0, 2)
	selectedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Success)).
		Background(lipgloss.Color(utils.Colours.Surface)).
		Padding(0, 2)

	var items []string
	for i, item := range m.menuItems {
		if i == m.selectedMenuItem {
			items = append(items, selectedStyle.Render("> "+item))
		} else {
			items = append(items, itemStyle.Render("  "+item))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (m *DashboardModel) showFeedback(feedbackType FeedbackType, message string, duration time.Duration) {
	m.feedbackMessage = newFeedback(feedbackType, message, duration)
}
