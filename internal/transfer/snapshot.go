package transfer

import (
	"github.com/shopspring/decimal"

	"rhystmorgan/fxTerm/internal/models"
)

// Summary is the frozen view of a transfer shown on Confirm and Success.
type Summary struct {
	WalletID       int64
	SourceCurrency string
	SourceBalance  decimal.Decimal
	Recipient      string
	RecipientName  string
	Amount         decimal.Decimal
	Code           string
	Crypto         bool
	Fee            decimal.Decimal
	Total          decimal.Decimal
	Description    string
	Quote          *models.ConversionQuote
	TransactionID  string
}

func buildSummary(wallet models.Wallet, d models.TransferDraft) Summary {
	amount, _ := ParseAmount(d.Amount)
	s := Summary{
		WalletID:       wallet.ID,
		SourceCurrency: wallet.Currency(),
		SourceBalance:  wallet.Balance(),
		Recipient:      d.Recipient,
		RecipientName:  "Unknown recipient",
		Amount:         amount,
		Code:           d.Code(),
		Crypto:         d.IsCrypto(),
		Fee:            d.Fee,
		Total:          d.Total,
		Description:    d.DescriptionOrDefault(),
	}
	if d.IsCrypto() {
		s.SourceBalance = wallet.AssetBalance(d.Code())
	}
	if d.Profile != nil {
		s.RecipientName = d.Profile.DisplayName()
	}
	if d.Quote != nil {
		q := *d.Quote
		s.Quote = &q
	}
	return s
}

// Snapshot is a copy of the workflow state for rendering.
type Snapshot struct {
	Step          Step
	Wallets       []models.Wallet
	WalletsLoaded bool
	LoadError     string
	Draft         models.TransferDraft
	Fields        map[string]string
	QuoteError    string
	Submitting    bool
	SubmitError   string
	Completed     *Summary
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		Step:          w.step,
		Wallets:       append([]models.Wallet(nil), w.wallets...),
		WalletsLoaded: w.walletsLoaded,
		LoadError:     w.loadErr,
		Draft:         w.draft,
		Fields:        copyFields(w.fields),
		QuoteError:    w.quoteErr,
		Submitting:    w.submitting,
		SubmitError:   w.submitErr,
	}
	if w.draft.Quote != nil {
		q := *w.draft.Quote
		s.Draft.Quote = &q
	}
	if w.draft.Profile != nil {
		p := *w.draft.Profile
		s.Draft.Profile = &p
	}
	if w.completed != nil {
		c := *w.completed
		s.Completed = &c
	}
	return s
}

func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Summary describes the draft as it stands on Confirm.
func (w *Workflow) Summary() (Summary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepConfirm {
		return Summary{}, ErrWrongStep
	}
	wallet, ok := models.FindWallet(w.wallets, w.draft.SourceWalletID)
	if !ok {
		return Summary{}, ErrWrongStep
	}
	return buildSummary(wallet, w.draft), nil
}

// Wallet returns the selected source wallet, if any.
func (w *Workflow) Wallet() (models.Wallet, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return models.FindWallet(w.wallets, w.draft.SourceWalletID)
}
