package views

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rhystmorgan/fxTerm/internal/models"
	"rhystmorgan/fxTerm/internal/utils"
)

// WalletSelectorModel lists the source wallets. Enter is left to the parent.
type WalletSelectorModel struct {
	wallets []models.Wallet
	cursor  int
}

func NewWalletSelectorModel(wallets []models.Wallet) *WalletSelectorModel {
	return &WalletSelectorModel{wallets: wallets}
}

// SetWallets replaces the list and keeps the cursor on selectedID when it
// is still present.
func (m *WalletSelectorModel) SetWallets(wallets []models.Wallet, selectedID int64) {
	m.wallets = wallets
	for i, w := range wallets {
		if w.ID == selectedID {
			m.cursor = i
			return
		}
	}
	if m.cursor >= len(wallets) {
		m.cursor = 0
	}
}

func (m WalletSelectorModel) Current() (models.Wallet, bool) {
	if m.cursor < 0 || m.cursor >= len(m.wallets) {
		return models.Wallet{}, false
	}
	return m.wallets[m.cursor], true
}

func (m WalletSelectorModel) Init() tea.Cmd {
	return nil
}

func (m WalletSelectorModel) Update(msg tea.Msg) (WalletSelectorModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.wallets)-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

func (m WalletSelectorModel) View() string {
	itemStyle := lipgloss.NewStyle().
		Padding(0, 2)

	selectedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Success)).
		Background(lipgloss.Color(utils.Colours.Surface)).
		Padding(0, 2)

	if len(m.wallets) == 0 {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(utils.Colours.Muted)).
			Render("No wallets found. Create a wallet to get started.")
	}

	content := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Text)).
		Render("Select a source wallet:") + "\n\n"

	for i, wallet := range m.wallets {
		cursor := " "
		style := itemStyle
		if m.cursor == i {
			cursor = ">"
			style = selectedStyle
		}
		content += style.Render(cursor+" "+utils.FormatWalletLabel(wallet)) + "\n"
	}

	return content
}
