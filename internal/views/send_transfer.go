package views

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rhystmorgan/fxTerm/internal/models"
	"rhystmorgan/fxTerm/internal/transfer"
	"rhystmorgan/fxTerm/internal/utils"
)

const createWalletNotice = "No wallets yet. Create one with the ledger service, then refresh."

// Resolve step focus order. The code selector has no text input.
const (
	focusRecipient = iota
	focusAmount
	focusCode
	focusDescription
	focusCount
)

const (
	inputRecipient = iota
	inputAmount
	inputDescription
	inputCount
)

var fieldOrder = []string{
	transfer.FieldWallet,
	transfer.FieldRecipient,
	transfer.FieldAmount,
	transfer.FieldCurrency,
	transfer.FieldCryptoAsset,
}

// SendTransferModel is the three-step transfer wizard. Every state change goes
// through the workflow; the model only mirrors its snapshot.
type SendTransferModel struct {
	workflow *transfer.Workflow
	nav      *navSink

	snap    transfer.Snapshot
	preview transfer.Preview
	summary *transfer.Summary

	selector *WalletSelectorModel
	inputs   []textinput.Model
	focus    int
	spinner  spinner.Model

	busy            bool
	feedbackMessage *FeedbackMessage
	terminalWidth   int
	terminalHeight  int
}

// navSink captures the workflow's navigator calls so Update can turn them
// into NavigateMsgs.
type navSink struct {
	pending []transfer.Destination
}

func (n *navSink) navigate(dest transfer.Destination) {
	n.pending = append(n.pending, dest)
}

type transferStartedMsg struct{ err error }

type walletsReloadedMsg struct{ err error }

type quoteResultMsg struct{ err error }

type stepResultMsg struct{ err error }

type submitResultMsg struct {
	receipt *models.TransferReceipt
	err     error
}

func NewSendTransferModel(l transfer.Ledger, session transfer.Session, opts transfer.Options) *SendTransferModel {
	nav := &navSink{}
	opts.Navigator = nav.navigate

	inputs := make([]textinput.Model, inputCount)
	for i := range inputs {
		in := textinput.New()
		in.Width = 40
		in.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Accent))
		in.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Text))
		inputs[i] = in
	}
	inputs[inputRecipient].Placeholder = "Recipient username or wallet address"
	inputs[inputRecipient].CharLimit = 128
	inputs[inputAmount].Placeholder = "0.00"
	inputs[inputAmount].CharLimit = 32
	inputs[inputDescription].Placeholder = "Description (optional)"
	inputs[inputDescription].CharLimit = 200

	m := &SendTransferModel{
		workflow: transfer.New(l, session, opts),
		nav:      nav,
		selector: NewWalletSelectorModel(nil),
		inputs:   inputs,
		spinner:  newSpinner(),
		busy:     true,
	}
	m.sync()
	return m
}

func (m SendTransferModel) Init() tea.Cmd {
	return tea.Batch(m.start(), m.spinner.Tick, textinput.Blink)
}

func (m SendTransferModel) start() tea.Cmd {
	wf := m.workflow
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return transferStartedMsg{err: wf.Start(ctx)}
	}
}

func (m SendTransferModel) Update(msg tea.Msg) (SendTransferModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.terminalWidth = msg.Width
		m.terminalHeight = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		cmds = append(cmds, m.handleKey(msg))

	case transferStartedMsg:
		m.busy = false
		m.sync()

	case walletsReloadedMsg:
		m.busy = false
		m.sync()
		if msg.err != nil && !errors.Is(msg.err, transfer.ErrStaleResult) {
			cmds = append(cmds, m.showFeedback(FeedbackError, "Could not load wallets"))
		}

	case quoteResultMsg:
		m.sync()

	case stepResultMsg:
		m.busy = false
		m.sync()
		cmds = append(cmds, m.afterStep(msg))

	case submitResultMsg:
		m.busy = false
		m.sync()
		switch {
		case msg.err == nil:
			cmds = append(cmds, m.showFeedback(FeedbackSuccess, "Transfer sent"))
		case errors.Is(msg.err, transfer.ErrSubmissionInFlight):
		case m.snap.SubmitError != "":
			cmds = append(cmds, m.showFeedback(FeedbackError, m.snap.SubmitError))
		default:
			cmds = append(cmds, m.showFeedback(FeedbackError, msg.err.Error()))
		}

	case spinner.TickMsg:
		if m.busy || m.snap.Submitting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case FeedbackTimeoutMsg:
		if m.feedbackMessage.Expired() {
			m.feedbackMessage = nil
		}

	default:
		if m.snap.Step == transfer.StepResolve {
			if idx, ok := inputForFocus(m.focus); ok {
				var cmd tea.Cmd
				m.inputs[idx], cmd = m.inputs[idx].Update(msg)
				cmds = append(cmds, cmd)
			}
		}
	}

	cmds = append(cmds, m.takeNavigation())

	return m, tea.Batch(cmds...)
}

func (m *SendTransferModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.snap.Step {
	case transfer.StepSelect:
		return m.handleSelectKey(msg)
	case transfer.StepResolve:
		return m.handleResolveKey(msg)
	case transfer.StepConfirm:
		return m.handleConfirmKey(msg)
	case transfer.StepSuccess:
		return m.handleSuccessKey(msg)
	case transfer.StepAuthRequired:
		if msg.String() == "enter" || msg.String() == "esc" {
			return m.actionFailed(m.workflow.Finish())
		}
	}
	return nil
}

func (m *SendTransferModel) handleSelectKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		return NavigateTo(ViewDashboard, nil)
	case "r", "R":
		return m.reloadWallets()
	case "c", "C":
		if m.workflow.NeedsWallet() {
			return m.actionFailed(m.workflow.CreateWallet())
		}
		return nil
	case "enter", " ":
		if m.workflow.NeedsWallet() {
			return m.actionFailed(m.workflow.CreateWallet())
		}
		wallet, ok := m.selector.Current()
		if !ok {
			return nil
		}
		if err := m.workflow.SelectWallet(wallet.ID); err != nil {
			m.sync()
			return m.actionFailed(err)
		}
		err := m.workflow.Next(context.Background())
		m.sync()
		if err != nil {
			if transfer.IsKind(err, transfer.KindValidation) {
				return nil
			}
			return m.actionFailed(err)
		}
		m.loadInputs()
		return m.refreshQuote()
	}

	*m.selector, _ = m.selector.Update(msg)
	return nil
}

func (m *SendTransferModel) handleResolveKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		err := m.workflow.Back()
		m.sync()
		return m.actionFailed(err)
	case "tab", "down":
		m.setFocus((m.focus + 1) % focusCount)
		return nil
	case "shift+tab", "up":
		m.setFocus((m.focus + focusCount - 1) % focusCount)
		return nil
	case "ctrl+t":
		if err := m.workflow.SetCryptoMode(!m.snap.Draft.IsCrypto()); err != nil {
			return m.actionFailed(err)
		}
		m.sync()
		return m.refreshQuote()
	case "enter":
		m.busy = true
		return tea.Batch(m.runNext(), m.spinner.Tick)
	}

	if m.focus == focusCode {
		switch msg.String() {
		case "left", "h":
			return m.cycleCode(-1)
		case "right", "l", " ":
			return m.cycleCode(1)
		}
		return nil
	}

	idx, _ := inputForFocus(m.focus)
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	m.pushInput(idx)
	m.sync()
	return cmd
}

func (m *SendTransferModel) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "b":
		if err := m.workflow.Back(); err != nil {
			return m.actionFailed(err)
		}
		m.sync()
		m.loadInputs()
		return nil
	case "enter", "y":
		m.busy = true
		return tea.Batch(m.submit(), m.spinner.Tick)
	}
	return nil
}

func (m *SendTransferModel) handleSuccessKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter", "esc":
		return m.actionFailed(m.workflow.Finish())
	case "n", "N":
		if err := m.workflow.SendAnother(); err != nil {
			return m.actionFailed(err)
		}
		m.sync()
		m.clearInputs()
		return m.reloadWallets()
	}
	return nil
}

func (m *SendTransferModel) afterStep(msg stepResultMsg) tea.Cmd {
	switch {
	case msg.err == nil:
		m.feedbackMessage = nil
	case errors.Is(msg.err, transfer.ErrStaleResult):
		return m.showFeedback(FeedbackWarning, "Details changed while checking, press Enter again")
	case transfer.IsKind(msg.err, transfer.KindResolution):
		m.setFocus(focusRecipient)
	case transfer.IsKind(msg.err, transfer.KindValidation):
		m.focusFirstInvalid()
	default:
		return m.showFeedback(FeedbackError, msg.err.Error())
	}
	return nil
}

func (m *SendTransferModel) runNext() tea.Cmd {
	wf := m.workflow
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return stepResultMsg{err: wf.Next(ctx)}
	}
}

func (m *SendTransferModel) submit() tea.Cmd {
	wf := m.workflow
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		receipt, err := wf.Submit(ctx)
		return submitResultMsg{receipt: receipt, err: err}
	}
}

func (m *SendTransferModel) reloadWallets() tea.Cmd {
	m.busy = true
	wf := m.workflow
	reload := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return walletsReloadedMsg{err: wf.LoadWallets(ctx)}
	}
	return tea.Batch(reload, m.spinner.Tick)
}

// refreshQuote asks for a fresh rate in fiat mode. Results for an older
// currency choice are dropped by the workflow.
func (m *SendTransferModel) refreshQuote() tea.Cmd {
	if m.snap.Step != transfer.StepResolve || m.snap.Draft.IsCrypto() {
		return nil
	}
	wf := m.workflow
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := wf.RefreshQuote(ctx)
		return quoteResultMsg{err: err}
	}
}

func (m *SendTransferModel) cycleCode(delta int) tea.Cmd {
	draft := m.snap.Draft
	catalogue := models.FiatCurrencies
	if draft.IsCrypto() {
		catalogue = models.CryptoAssets
	}

	idx := -1
	for i, c := range catalogue {
		if c == draft.Code() {
			idx = i
			break
		}
	}
	if idx < 0 && delta < 0 {
		idx = 0
	}
	next := catalogue[(idx+delta+len(catalogue))%len(catalogue)]

	var err error
	if draft.IsCrypto() {
		err = m.workflow.SetCryptoAsset(next)
	} else {
		err = m.workflow.SetCurrency(next)
	}
	if err != nil {
		return m.actionFailed(err)
	}
	m.sync()
	return m.refreshQuote()
}

func (m *SendTransferModel) pushInput(idx int) {
	value := m.inputs[idx].Value()
	switch idx {
	case inputRecipient:
		m.workflow.SetRecipient(value)
	case inputAmount:
		m.workflow.SetAmount(value)
	case inputDescription:
		m.workflow.SetDescription(value)
	}
}

func (m *SendTransferModel) loadInputs() {
	d := m.snap.Draft
	m.inputs[inputRecipient].SetValue(d.Recipient)
	m.inputs[inputAmount].SetValue(d.Amount)
	m.inputs[inputDescription].SetValue(d.Description)
	m.setFocus(focusRecipient)
}

func (m *SendTransferModel) clearInputs() {
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	m.setFocus(focusRecipient)
}

func (m *SendTransferModel) setFocus(focus int) {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.focus = focus
	if idx, ok := inputForFocus(focus); ok {
		m.inputs[idx].Focus()
	}
}

func (m *SendTransferModel) focusFirstInvalid() {
	switch {
	case m.snap.Fields[transfer.FieldRecipient] != "":
		m.setFocus(focusRecipient)
	case m.snap.Fields[transfer.FieldAmount] != "":
		m.setFocus(focusAmount)
	case m.snap.Fields[transfer.FieldCurrency] != "", m.snap.Fields[transfer.FieldCryptoAsset] != "":
		m.setFocus(focusCode)
	}
}

func inputForFocus(focus int) (int, bool) {
	switch focus {
	case focusRecipient:
		return inputRecipient, true
	case focusAmount:
		return inputAmount, true
	case focusDescription:
		return inputDescription, true
	}
	return 0, false
}

// sync refreshes the mirrored workflow state.
func (m *SendTransferModel) sync() {
	m.snap = m.workflow.Snapshot()
	m.preview = m.workflow.Preview()
	m.summary = nil
	if m.snap.Step == transfer.StepConfirm {
		if s, err := m.workflow.Summary(); err == nil {
			m.summary = &s
		}
	}
	m.selector.SetWallets(m.snap.Wallets, m.snap.Draft.SourceWalletID)
}

func (m *SendTransferModel) takeNavigation() tea.Cmd {
	if len(m.nav.pending) == 0 {
		return nil
	}
	dest := m.nav.pending[len(m.nav.pending)-1]
	m.nav.pending = nil

	switch dest {
	case transfer.DestinationLogin:
		return NavigateTo(ViewLogin, nil)
	case transfer.DestinationCreateWallet:
		return NavigateTo(ViewDashboard, createWalletNotice)
	default:
		return NavigateTo(ViewDashboard, nil)
	}
}

// actionFailed reports a refused workflow action. A nil err is a no-op.
func (m *SendTransferModel) actionFailed(err error) tea.Cmd {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, transfer.ErrSubmissionInFlight):
		return m.showFeedback(FeedbackWarning, "A transfer is already being sent")
	case errors.Is(err, transfer.ErrWrongStep):
		return m.showFeedback(FeedbackWarning, "That action is not available right now")
	default:
		return m.showFeedback(FeedbackError, err.Error())
	}
}

func (m *SendTransferModel) showFeedback(feedbackType FeedbackType, message string) tea.Cmd {
	m.feedbackMessage = newFeedback(feedbackType, message, noticeDuration)
	return m.feedbackMessage.timeout()
}

func (m SendTransferModel) View() string {
	containerStyle := lipgloss.NewStyle().
		Padding(1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(utils.Colours.Accent))

	var content strings.Builder

	content.WriteString(m.renderHeader())
	content.WriteString("\n\n")

	switch m.snap.Step {
	case transfer.StepSelect:
		content.WriteString(m.renderSelectStep())
	case transfer.StepResolve:
		content.WriteString(m.renderResolveStep())
	case transfer.StepConfirm:
		content.WriteString(m.renderConfirmStep())
	case transfer.StepSuccess:
		content.WriteString(m.renderSuccessStep())
	case transfer.StepAuthRequired:
		content.WriteString(m.renderAuthRequired())
	}

	content.WriteString("\n\n")
	content.WriteString(m.renderHelpText())

	if m.feedbackMessage != nil {
		content.WriteString("\n\n")
		content.WriteString(renderFeedback(m.feedbackMessage))
	}

	return containerStyle.Render(content.String())
}

func (m *SendTransferModel) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Accent)).
		Bold(true)

	stepStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Muted))

	title := "Send Transfer"
	if m.snap.Draft.IsCrypto() {
		title = "Send Crypto"
	}

	current := int(m.snap.Step)
	if m.snap.Step.Terminal() {
		current = len(transfer.StepNames)
	}
	if m.snap.Step == transfer.StepAuthRequired {
		current = 0
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(title))
	content.WriteString("\n")
	content.WriteString(stepStyle.Render(utils.FormatStepIndicator(current, len(transfer.StepNames), transfer.StepNames)))
	return content.String()
}

func (m *SendTransferModel) renderSelectStep() string {
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Error))

	switch {
	case !m.snap.WalletsLoaded && m.snap.LoadError == "":
		return m.spinner.View() + " Loading wallets..."
	case m.snap.LoadError != "":
		return errorStyle.Render("✗ " + m.snap.LoadError)
	}

	var content strings.Builder
	content.WriteString(m.selector.View())
	if msg := m.snap.Fields[transfer.FieldWallet]; msg != "" {
		content.WriteString("\n")
		content.WriteString(errorStyle.Render("✗ " + msg))
	}
	return content.String()
}

func (m *SendTransferModel) renderResolveStep() string {
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Text)).
		Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Muted))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Error))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Warning))
	focusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Highlight)).Bold(true)

	draft := m.snap.Draft
	var content strings.Builder

	for _, w := range m.snap.Wallets {
		if w.ID == draft.SourceWalletID {
			content.WriteString(mutedStyle.Render("From: " + utils.FormatWalletLabel(w)))
			content.WriteString("\n\n")
		}
	}

	fieldError := func(key string) {
		if msg := m.snap.Fields[key]; msg != "" {
			content.WriteString(errorStyle.Render("✗ " + msg))
			content.WriteString("\n")
		}
	}

	content.WriteString(labelStyle.Render("Recipient:"))
	content.WriteString("\n")
	content.WriteString(m.inputs[inputRecipient].View())
	content.WriteString("\n")
	fieldError(transfer.FieldRecipient)
	if draft.Profile != nil {
		content.WriteString(mutedStyle.Render(draft.Profile.DisplayName()))
		content.WriteString("\n")
	}
	content.WriteString("\n")

	content.WriteString(labelStyle.Render("Amount:"))
	content.WriteString("\n")
	content.WriteString(m.inputs[inputAmount].View())
	content.WriteString("\n")
	fieldError(transfer.FieldAmount)
	content.WriteString("\n")

	codeLabel, codeKey := "Currency:", transfer.FieldCurrency
	if draft.IsCrypto() {
		codeLabel, codeKey = "Asset:", transfer.FieldCryptoAsset
	}
	content.WriteString(labelStyle.Render(codeLabel))
	content.WriteString("\n")
	code := fmt.Sprintf("‹ %s ›", draft.Code())
	if m.focus == focusCode {
		content.WriteString(focusStyle.Render(code))
	} else {
		content.WriteString(mutedStyle.Render(code))
	}
	content.WriteString("\n")
	fieldError(codeKey)

	switch {
	case m.preview.Crypto:
		content.WriteString(mutedStyle.Render(fmt.Sprintf("Crypto transfer: %s is sent asset-for-asset, no conversion applies.", draft.Code())))
		content.WriteString("\n")
	case m.preview.Available:
		content.WriteString(mutedStyle.Render(fmt.Sprintf("Sending %s ≈ %s  (%s)",
			utils.FormatMoney(m.preview.Amount, m.preview.Code),
			utils.FormatMoney(m.preview.SourceAmount, m.preview.SourceCode),
			utils.FormatRate(m.preview.Rate, m.preview.SourceCode, m.preview.Code))))
		content.WriteString("\n")
	case m.snap.QuoteError != "":
		content.WriteString(warnStyle.Render("⚠ " + m.snap.QuoteError))
		content.WriteString("\n")
	}
	content.WriteString("\n")

	content.WriteString(labelStyle.Render("Description:"))
	content.WriteString("\n")
	content.WriteString(m.inputs[inputDescription].View())

	if m.busy {
		content.WriteString("\n\n")
		content.WriteString(m.spinner.View() + " Checking recipient...")
	}

	return content.String()
}

func (m *SendTransferModel) renderConfirmStep() string {
	if m.summary == nil {
		return ""
	}
	s := m.summary

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(utils.Colours.Success)).
		Padding(1)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Text)).
		Bold(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Error))

	var content strings.Builder
	content.WriteString(labelStyle.Render("Review Transfer"))
	content.WriteString("\n\n")
	content.WriteString(cardStyle.Render(summaryDetails(*s)))

	if m.snap.Submitting {
		content.WriteString("\n\n")
		content.WriteString(m.spinner.View() + " Sending...")
	} else if m.snap.SubmitError != "" {
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render("✗ " + m.snap.SubmitError))
	}

	return content.String()
}

func summaryDetails(s transfer.Summary) string {
	var details strings.Builder
	details.WriteString(fmt.Sprintf("From:        Wallet #%d (%s)\n", s.WalletID, s.SourceCurrency))
	details.WriteString(fmt.Sprintf("To:          %s\n", utils.FormatRecipient(s.Recipient, s.RecipientName)))
	details.WriteString(fmt.Sprintf("Amount:      %s\n", utils.FormatMoney(s.Amount, s.Code)))
	details.WriteString(fmt.Sprintf("Fee:         %s\n", utils.FormatMoney(s.Fee, s.Code)))
	details.WriteString(fmt.Sprintf("Total:       %s\n", utils.FormatMoney(s.Total, s.Code)))
	if s.Quote != nil && !s.Crypto && s.Quote.From != s.Quote.To {
		details.WriteString(fmt.Sprintf("Rate:        %s\n", utils.FormatRate(s.Quote.Rate, s.Quote.From, s.Quote.To)))
	}
	details.WriteString(fmt.Sprintf("Description: %s", s.Description))
	if s.TransactionID != "" {
		details.WriteString(fmt.Sprintf("\nReference:   %s", s.TransactionID))
	}
	return details.String()
}

func (m *SendTransferModel) renderSuccessStep() string {
	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Success)).
		Bold(true)

	var content strings.Builder
	content.WriteString(successStyle.Render("✓ Transfer Sent Successfully!"))
	content.WriteString("\n\n")
	if m.snap.Completed != nil {
		content.WriteString(summaryDetails(*m.snap.Completed))
	}
	return content.String()
}

func (m *SendTransferModel) renderAuthRequired() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Warning)).
		Render("You need to sign in before sending money.")
}

func (m *SendTransferModel) renderHelpText() string {
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Muted)).
		Italic(true)

	var helpText string
	switch {
	case m.busy:
		helpText = "Please wait..."
	case m.snap.Step == transfer.StepSelect && m.snap.WalletsLoaded && len(m.snap.Wallets) == 0:
		helpText = "c: create wallet • r: reload • Esc: back"
	case m.snap.Step == transfer.StepSelect:
		helpText = "↑/↓: choose wallet • Enter: next • r: reload • Esc: back"
	case m.snap.Step == transfer.StepResolve:
		helpText = "Tab: next field • ←/→: change currency • Ctrl+T: fiat/crypto • Enter: review • Esc: back"
	case m.snap.Step == transfer.StepConfirm:
		helpText = "Enter: send • Esc: edit"
	case m.snap.Step == transfer.StepSuccess:
		helpText = "Enter: dashboard • n: send another"
	case m.snap.Step == transfer.StepAuthRequired:
		helpText = "Enter: sign in"
	}

	return helpStyle.Render(helpText)
}
