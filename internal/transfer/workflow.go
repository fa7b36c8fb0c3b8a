package transfer

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"rhystmorgan/fxTerm/internal/audit"
	"rhystmorgan/fxTerm/internal/ledger"
	"rhystmorgan/fxTerm/internal/logging"
	"rhystmorgan/fxTerm/internal/models"
)

// Ledger is the slice of the remote ledger service the workflow consumes.
type Ledger interface {
	Wallets(ctx context.Context, userID int64) ([]models.Wallet, error)
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
	LookupRecipient(ctx context.Context, handle string) (*models.RecipientProfile, error)
	Transfer(ctx context.Context, req models.TransferRequest) (*models.TransferReceipt, error)
	CryptoTransfer(ctx context.Context, req models.CryptoTransferRequest) (*models.TransferReceipt, error)
}

// Session reports the signed-in user. It is consulted once, at Start.
type Session interface {
	CurrentUserID() (int64, bool)
}

type Recorder interface {
	Record(entry audit.Entry) error
}

type Options struct {
	// FeeRate overrides DefaultFeeRate when set. A zero rate is honoured.
	FeeRate           *decimal.Decimal
	CryptoPreselected bool
	Logger            *log.Logger
	Recorder          Recorder
	Navigator         Navigator
}

// Workflow drives one transfer from wallet selection to submission. All
// methods are safe to call from the goroutines that deliver async results;
// remote calls are made without holding the lock and their results are only
// applied if the draft still matches the inputs that issued them.
type Workflow struct {
	ledger            Ledger
	session           Session
	navigate          Navigator
	logger            *log.Logger
	recorder          Recorder
	feeRate           decimal.Decimal
	cryptoPreselected bool

	mu            sync.Mutex
	step          Step
	userID        int64
	wallets       []models.Wallet
	walletsLoaded bool
	loadErr       string
	draft         models.TransferDraft
	fiatCode      string
	cryptoCode    string
	fields        map[string]string
	quoteErr      string
	submitting    bool
	submitErr     string
	completed     *Summary

	walletGen uint64
	quoteGen  uint64
	editGen   uint64
}

func New(l Ledger, session Session, opts Options) *Workflow {
	feeRate := DefaultFeeRate
	if opts.FeeRate != nil {
		feeRate = *opts.FeeRate
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	w := &Workflow{
		ledger:            l,
		session:           session,
		navigate:          opts.Navigator,
		logger:            logger,
		recorder:          opts.Recorder,
		feeRate:           feeRate,
		cryptoPreselected: opts.CryptoPreselected,
	}
	w.resetLocked()
	return w
}

func (w *Workflow) resetLocked() {
	w.step = StepSelect
	w.draft = models.NewDraft(w.cryptoPreselected)
	w.fiatCode = models.DefaultCurrency
	w.cryptoCode = models.DefaultCryptoAsset
	if w.cryptoPreselected {
		w.cryptoCode = models.PreselectedAsset
	}
	w.fields = make(map[string]string)
	w.quoteErr = ""
	w.submitting = false
	w.submitErr = ""
	w.completed = nil
	w.quoteGen++
	w.editGen++
}

// Start checks the session and loads the caller's wallets. Without a
// session the workflow parks in StepAuthRequired.
func (w *Workflow) Start(ctx context.Context) error {
	w.mu.Lock()
	w.resetLocked()
	w.wallets = nil
	w.walletsLoaded = false
	w.loadErr = ""

	var userID int64
	ok := false
	if w.session != nil {
		userID, ok = w.session.CurrentUserID()
	}
	if !ok || userID <= 0 {
		w.step = StepAuthRequired
		w.mu.Unlock()
		w.logger.Info("no authenticated session", "step", StepAuthRequired)
		return NewSessionError()
	}
	w.userID = userID
	w.mu.Unlock()

	w.logger.Info("transfer workflow started", "step", StepSelect, "crypto", w.cryptoPreselected)
	return w.LoadWallets(ctx)
}

// LoadWallets (re)fetches the wallet list. A wallet that vanished from the
// list is deselected and the workflow falls back to StepSelect.
func (w *Workflow) LoadWallets(ctx context.Context) error {
	w.mu.Lock()
	if w.step == StepAuthRequired {
		w.mu.Unlock()
		return NewSessionError()
	}
	w.walletGen++
	gen := w.walletGen
	userID := w.userID
	w.mu.Unlock()

	wallets, err := w.ledger.Wallets(ctx, userID)
	if err != nil && ledger.IsType(err, ledger.ErrNotFound) {
		wallets, err = nil, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.walletGen {
		w.logger.Debug("discarding stale wallet list", "generation", gen)
		return ErrStaleResult
	}
	if err != nil {
		w.loadErr = ledger.ClassifyError(err).UserMessage()
		w.logger.Error("wallet fetch failed", "step", w.step, "err", err)
		return &Error{Kind: KindWalletsUnavailable, Message: "failed to load wallets", Cause: err}
	}

	owned := models.FilterOwned(wallets, userID)
	if dropped := len(wallets) - len(owned); dropped > 0 {
		w.logger.Warn("ignoring wallets not owned by the session user", "dropped", dropped)
	}
	w.wallets = owned
	w.walletsLoaded = true
	w.loadErr = ""
	w.logger.Info("wallets loaded", "count", len(owned))

	if id := w.draft.SourceWalletID; id != 0 {
		if _, ok := models.FindWallet(owned, id); !ok {
			w.draft.SourceWalletID = 0
			w.invalidateQuoteLocked()
			if w.step == StepResolve || w.step == StepConfirm {
				w.step = StepSelect
			}
		}
	}
	return nil
}

// NeedsWallet is true once the list is loaded and empty; the host should
// offer wallet creation instead of the selector.
func (w *Workflow) NeedsWallet() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step == StepSelect && w.walletsLoaded && len(w.wallets) == 0
}

func (w *Workflow) SelectWallet(id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepSelect {
		return ErrWrongStep
	}

	wallet, ok := models.FindWallet(w.wallets, id)
	if !ok || !wallet.OwnedBy(w.userID) {
		w.fields[FieldWallet] = MsgInvalidSource
		return NewValidationError("unknown source wallet", map[string]string{FieldWallet: MsgInvalidSource})
	}

	if w.draft.SourceWalletID != id {
		w.draft.SourceWalletID = id
		if cur := wallet.Currency(); cur != "" {
			w.fiatCode = cur
			if !w.draft.IsCrypto() {
				w.draft.Terms = models.FiatTerms{Currency: cur}
			}
		}
		w.invalidateQuoteLocked()
		w.editGen++
	}
	delete(w.fields, FieldWallet)
	w.logger.Debug("wallet selected", "step", w.step, "wallet_id", id)
	return nil
}

func (w *Workflow) SetRecipient(handle string) error {
	return w.edit(func() error {
		if w.draft.Recipient != handle {
			w.draft.Recipient = handle
			w.draft.Profile = nil
			w.draft.RecipientID = 0
			delete(w.fields, FieldRecipient)
		}
		return nil
	})
}

func (w *Workflow) SetAmount(amount string) error {
	return w.edit(func() error {
		w.draft.Amount = amount
		delete(w.fields, FieldAmount)
		return nil
	})
}

func (w *Workflow) SetDescription(description string) error {
	return w.edit(func() error {
		w.draft.Description = description
		return nil
	})
}

// SetCryptoMode toggles between fiat and crypto terms. Each mode remembers
// its last code. Crypto transfers never use a conversion quote.
func (w *Workflow) SetCryptoMode(on bool) error {
	return w.edit(func() error {
		if w.draft.IsCrypto() == on {
			return nil
		}
		if on {
			w.fiatCode = w.draft.Code()
			w.draft.Terms = models.CryptoTerms{Asset: w.cryptoCode}
		} else {
			w.cryptoCode = w.draft.Code()
			w.draft.Terms = models.FiatTerms{Currency: w.fiatCode}
		}
		w.invalidateQuoteLocked()
		delete(w.fields, FieldAmount)
		delete(w.fields, FieldCurrency)
		delete(w.fields, FieldCryptoAsset)
		return nil
	})
}

func (w *Workflow) SetCurrency(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	return w.edit(func() error {
		if w.draft.IsCrypto() {
			return ErrWrongStep
		}
		if w.draft.Code() == code {
			return nil
		}
		w.fiatCode = code
		w.draft.Terms = models.FiatTerms{Currency: code}
		w.invalidateQuoteLocked()
		delete(w.fields, FieldCurrency)
		delete(w.fields, FieldAmount)
		return nil
	})
}

func (w *Workflow) SetCryptoAsset(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	return w.edit(func() error {
		if !w.draft.IsCrypto() {
			return ErrWrongStep
		}
		w.cryptoCode = code
		w.draft.Terms = models.CryptoTerms{Asset: code}
		delete(w.fields, FieldCryptoAsset)
		delete(w.fields, FieldAmount)
		return nil
	})
}

func (w *Workflow) edit(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepResolve {
		return ErrWrongStep
	}
	if err := fn(); err != nil {
		return err
	}
	w.editGen++
	return nil
}

// Next validates the current step and advances. On Confirm it submits.
func (w *Workflow) Next(ctx context.Context) error {
	w.mu.Lock()
	step := w.step
	w.mu.Unlock()

	switch step {
	case StepSelect:
		return w.leaveSelect()
	case StepResolve:
		return w.leaveResolve(ctx)
	case StepConfirm:
		_, err := w.Submit(ctx)
		return err
	default:
		return ErrWrongStep
	}
}

func (w *Workflow) leaveSelect() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepSelect {
		return ErrWrongStep
	}
	if _, ok := models.FindWallet(w.wallets, w.draft.SourceWalletID); !ok {
		w.fields[FieldWallet] = MsgSelectWallet
		w.logger.Info("validation failed", "step", StepSelect, "fields", FieldWallet)
		return NewValidationError("no source wallet selected", map[string]string{FieldWallet: MsgSelectWallet})
	}

	w.step = StepResolve
	w.logger.Debug("step advanced", "step", w.step, "wallet_id", w.draft.SourceWalletID)
	return nil
}

func (w *Workflow) leaveResolve(ctx context.Context) error {
	w.mu.Lock()
	if w.step != StepResolve {
		w.mu.Unlock()
		return ErrWrongStep
	}
	req, fetch, _ := w.beginQuoteLocked(false)
	w.mu.Unlock()

	if fetch {
		rate, err := w.ledger.Rate(ctx, req.from, req.to)
		w.mu.Lock()
		_, qerr := w.applyQuoteLocked(req, rate, err)
		w.mu.Unlock()
		if qerr == ErrStaleResult {
			return ErrStaleResult
		}
	}

	w.mu.Lock()
	if w.step != StepResolve {
		w.mu.Unlock()
		return ErrWrongStep
	}
	wallet, ok := models.FindWallet(w.wallets, w.draft.SourceWalletID)
	if !ok {
		w.step = StepSelect
		w.fields[FieldWallet] = MsgSelectWallet
		w.mu.Unlock()
		return NewValidationError("no source wallet selected", map[string]string{FieldWallet: MsgSelectWallet})
	}

	amount, fields := validateTerms(w.draft, wallet, w.draft.Quote)
	if len(fields) > 0 {
		w.fields = fields
		w.mu.Unlock()
		w.logger.Info("validation failed", "step", StepResolve, "fields", fieldNames(fields))
		return NewValidationError("invalid transfer details", copyFields(fields))
	}
	w.fields = make(map[string]string)
	gen := w.editGen
	handle := strings.TrimSpace(w.draft.Recipient)
	w.mu.Unlock()

	profile, err := w.ledger.LookupRecipient(ctx, handle)

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.editGen || w.step != StepResolve {
		w.logger.Debug("discarding stale recipient lookup", "generation", gen)
		return ErrStaleResult
	}
	if err != nil {
		w.fields[FieldRecipient] = MsgInvalidRecipient
		w.draft.Profile = nil
		w.draft.RecipientID = 0
		w.logger.Info("recipient resolution failed", "step", StepResolve, "err", err)
		return NewResolutionError(handle, err)
	}
	if profile == nil {
		profile = &models.RecipientProfile{}
	}

	w.draft.Profile = profile
	w.draft.RecipientID, _ = models.RecipientID(profile, handle)
	w.draft.Fee, w.draft.Total = computeFee(amount, w.feeRate)
	w.step = StepConfirm
	w.logger.Debug("step advanced", "step", w.step, "wallet_id", wallet.ID, "pair", wallet.Currency()+"/"+w.draft.Code())
	return nil
}

// Back moves one step toward StepSelect. It is refused on Select, on the
// terminal states, and while a submission is outstanding.
func (w *Workflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmissionInFlight
	}
	switch w.step {
	case StepResolve:
		w.step = StepSelect
	case StepConfirm:
		w.step = StepResolve
		w.submitErr = ""
	default:
		return ErrWrongStep
	}
	w.editGen++
	return nil
}

// SendAnother resets to an empty draft after a successful transfer. The
// wallet list is kept; callers usually follow with LoadWallets.
func (w *Workflow) SendAnother() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepSuccess {
		return ErrWrongStep
	}
	w.resetLocked()
	return nil
}

// Finish leaves the workflow from a terminal state through the navigator.
func (w *Workflow) Finish() error {
	w.mu.Lock()
	var dest Destination
	switch w.step {
	case StepSuccess:
		dest = DestinationDashboard
	case StepAuthRequired:
		dest = DestinationLogin
	default:
		w.mu.Unlock()
		return ErrWrongStep
	}
	navigate := w.navigate
	w.mu.Unlock()

	if navigate != nil {
		navigate(dest)
	}
	return nil
}

// CreateWallet follows the empty-list call to action.
func (w *Workflow) CreateWallet() error {
	if !w.NeedsWallet() {
		return ErrWrongStep
	}
	if w.navigate != nil {
		w.navigate(DestinationCreateWallet)
	}
	return nil
}

func (w *Workflow) invalidateQuoteLocked() {
	w.draft.Quote = nil
	w.quoteErr = ""
	w.quoteGen++
}

func fieldNames(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
