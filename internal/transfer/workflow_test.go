package transfer

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhystmorgan/fxTerm/internal/audit"
	"rhystmorgan/fxTerm/internal/ledger"
	"rhystmorgan/fxTerm/internal/ledger/ledgertest"
	"rhystmorgan/fxTerm/internal/models"
)

type userSession int64

func (s userSession) CurrentUserID() (int64, bool) {
	return int64(s), s > 0
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *memoryRecorder) Record(entry audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memoryRecorder) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Action, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

var usdWallet = models.Wallet{
	ID:                1,
	UserID:            7,
	BaseCurrency:      "USD",
	FiatBalance:       decimal.NewFromInt(100),
	StablecoinBalance: decimal.NewFromInt(10),
}

func newFixture(t *testing.T, session Session, opts Options) (*ledgertest.Server, *Workflow) {
	t.Helper()
	srv := ledgertest.NewServer()
	t.Cleanup(srv.Close)

	client, err := ledger.NewClient(ledger.Config{
		BaseURL:    srv.URL,
		RetryCount: 1,
		RetryDelay: time.Millisecond,
	}, nil)
	require.NoError(t, err)

	return srv, New(client, session, opts)
}

// toResolve starts the workflow and moves to the Resolve step with wallet 1.
func toResolve(t *testing.T, w *Workflow) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.SelectWallet(1))
	require.NoError(t, w.Next(ctx))
	require.Equal(t, StepResolve, w.Step())
}

func TestStartWithoutSession(t *testing.T) {
	var navigated []Destination
	srv, w := newFixture(t, userSession(0), Options{Navigator: func(d Destination) { navigated = append(navigated, d) }})

	err := w.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSession))
	assert.Equal(t, StepAuthRequired, w.Step())
	assert.Equal(t, 0, srv.Count(ledgertest.RouteWallets))

	assert.ErrorIs(t, w.Next(context.Background()), ErrWrongStep)
	assert.ErrorIs(t, w.Back(), ErrWrongStep)

	require.NoError(t, w.Finish())
	assert.Equal(t, []Destination{DestinationLogin}, navigated)
}

func TestWalletSelectorOnlyOffersOwnedWallets(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7,
		usdWallet,
		models.Wallet{ID: 2, UserID: 8, BaseCurrency: "EUR", FiatBalance: decimal.NewFromInt(1000)},
		models.Wallet{ID: 3, UserID: 7, BaseCurrency: "GBP", FiatBalance: decimal.NewFromInt(5)},
	)

	require.NoError(t, w.Start(context.Background()))

	snap := w.Snapshot()
	require.Len(t, snap.Wallets, 2)
	for _, wallet := range snap.Wallets {
		assert.Equal(t, int64(7), wallet.UserID)
	}

	err := w.SelectWallet(2)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, MsgInvalidSource, w.Snapshot().Fields[FieldWallet])
}

func TestNoWalletsOffersCreation(t *testing.T) {
	var navigated []Destination
	srv, w := newFixture(t, userSession(7), Options{Navigator: func(d Destination) { navigated = append(navigated, d) }})
	srv.SetWallets(7)

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.NeedsWallet())
	require.NoError(t, w.CreateWallet())
	assert.Equal(t, []Destination{DestinationCreateWallet}, navigated)
}

func TestWalletNotFoundIsEmptyList(t *testing.T) {
	_, w := newFixture(t, userSession(9), Options{})

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.NeedsWallet())
}

func TestWalletFetchFailure(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.Fail(ledgertest.RouteWallets, http.StatusInternalServerError, "database down")

	err := w.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindWalletsUnavailable))
	assert.Equal(t, "database down", w.Snapshot().LoadError)
	assert.False(t, w.NeedsWallet())
}

func TestSelectStepRequiresWallet(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	require.NoError(t, w.Start(context.Background()))

	err := w.Next(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, StepSelect, w.Step())
	assert.Equal(t, MsgSelectWallet, w.Snapshot().Fields[FieldWallet])
}

func TestSelectingWalletSeedsCurrency(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, models.Wallet{ID: 4, UserID: 7, BaseCurrency: "eur", FiatBalance: decimal.NewFromInt(10)})
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, w.SelectWallet(4))
	snap := w.Snapshot()
	assert.Equal(t, "EUR", snap.Draft.Code())
	assert.False(t, snap.Draft.IsCrypto())
}

func TestSameCurrencyTransfer(t *testing.T) {
	recorder := &memoryRecorder{}
	srv, w := newFixture(t, userSession(7), Options{Recorder: recorder})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42, Name: "Ada", WalletAddress: "0xabcdef0123456789"})
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("50"))
	require.NoError(t, w.SetCurrency("USD"))

	quote, err := w.RefreshQuote(ctx)
	require.NoError(t, err)
	assert.True(t, quote.Rate.Equal(decimal.NewFromInt(1)))

	require.NoError(t, w.Next(ctx))
	require.Equal(t, StepConfirm, w.Step())

	summary, err := w.Summary()
	require.NoError(t, err)
	assert.Equal(t, "0.50", summary.Fee.StringFixed(2))
	assert.Equal(t, "50.50", summary.Total.StringFixed(2))
	assert.Equal(t, "Ada (0xabcdef...)", summary.RecipientName)
	assert.Equal(t, "Standard transfer", summary.Description)

	receipt, err := w.Submit(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.TransactionID)

	sent := srv.Transfers()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(7), sent[0].SenderID)
	assert.Equal(t, int64(42), sent[0].RecipientID)
	assert.Equal(t, "50", sent[0].Amount.String())
	assert.Equal(t, "USD", sent[0].SourceCurrency)
	assert.Equal(t, "USD", sent[0].TargetCurrency)
	assert.Equal(t, "Standard transfer", sent[0].Description)

	assert.Equal(t, 0, srv.Count(ledgertest.RouteRate))
	assert.Empty(t, srv.CryptoTransfers())

	snap := w.Snapshot()
	assert.Equal(t, StepSuccess, snap.Step)
	require.NotNil(t, snap.Completed)
	assert.Equal(t, receipt.TransactionID, snap.Completed.TransactionID)
	assert.Equal(t, "", snap.Draft.Amount)
	assert.Equal(t, "", snap.Draft.Recipient)
	assert.Nil(t, snap.Draft.Profile)

	assert.Equal(t, []audit.Action{audit.ActionSubmitAttempt, audit.ActionSubmitSuccess}, recorder.actions())
	assert.ErrorIs(t, w.Back(), ErrWrongStep)
}

func TestInsufficientFunds(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("150"))

	err := w.Next(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, StepResolve, w.Step())
	assert.Equal(t, MsgInsufficientFunds, w.Snapshot().Fields[FieldAmount])
	assert.Equal(t, 0, srv.Count(ledgertest.RouteLookup))
}

func TestInvalidAmountsNeverAdvance(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"", MsgAmountRequired},
		{"   ", MsgAmountRequired},
		{"0", MsgAmountPositive},
		{"-5", MsgAmountPositive},
		{"abc", MsgAmountPositive},
		{"1e", MsgAmountPositive},
		{"1e-50", MsgAmountPrecision},
		{"1e-50000000", MsgAmountPrecision},
		{"0.001", MsgAmountPrecision},
		{"1e50000000", MsgAmountTooLarge},
		{"1000000000000000", MsgAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			srv, w := newFixture(t, userSession(7), Options{})
			srv.SetWallets(7, usdWallet)
			srv.AddRecipient("42", models.RecipientProfile{UserID: 42})

			toResolve(t, w)
			require.NoError(t, w.SetRecipient("42"))
			require.NoError(t, w.SetAmount(tt.amount))

			err := w.Next(context.Background())
			require.Error(t, err)
			var werr *Error
			require.True(t, errors.As(err, &werr))
			assert.Equal(t, tt.want, werr.Fields[FieldAmount])
			assert.Equal(t, StepResolve, w.Step())
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		msg  string
	}{
		{"50", "50", ""},
		{" 12.50 ", "12.5", ""},
		{"1.50000000000", "1.5", ""},
		{"1e3", "1000", ""},
		{"0.00000001", "0.00000001", ""},
		{"0.000000001", "", MsgAmountPrecision},
		{"999999999999999", "999999999999999", ""},
		{"1e15", "", MsgAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			amount, msg := ParseAmount(tt.raw)
			assert.Equal(t, tt.msg, msg)
			if tt.msg == "" {
				assert.Equal(t, tt.want, amount.String())
			}
		})
	}
}

func TestAmountScaleFollowsCurrency(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetCryptoMode(true))
	require.NoError(t, w.SetCryptoAsset("USDT"))
	require.NoError(t, w.SetAmount("0.001"))

	require.NoError(t, w.Next(ctx))
	assert.Equal(t, StepConfirm, w.Step())
}

func TestMissingFieldsReported(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)

	toResolve(t, w)
	require.NoError(t, w.SetCurrency(""))

	err := w.Next(context.Background())
	require.Error(t, err)
	fields := w.Snapshot().Fields
	assert.Equal(t, MsgRecipientRequired, fields[FieldRecipient])
	assert.Equal(t, MsgAmountRequired, fields[FieldAmount])
	assert.Equal(t, MsgCurrencyRequired, fields[FieldCurrency])

	require.NoError(t, w.SetCryptoMode(true))
	require.NoError(t, w.SetCryptoAsset(""))
	require.Error(t, w.Next(context.Background()))
	assert.Equal(t, MsgCryptoRequired, w.Snapshot().Fields[FieldCryptoAsset])
}

func TestCryptoTransfer(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.SetRate("USD", "EUR", "0.9")
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetCryptoMode(true))
	require.NoError(t, w.SetCryptoAsset("usdt"))
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("5"))

	quote, err := w.RefreshQuote(ctx)
	require.NoError(t, err)
	assert.Nil(t, quote)
	assert.True(t, w.Preview().Crypto)

	require.NoError(t, w.Next(ctx))
	require.Equal(t, StepConfirm, w.Step())

	summary, err := w.Summary()
	require.NoError(t, err)
	assert.Equal(t, "0.05", summary.Fee.StringFixed(2))
	assert.True(t, summary.Crypto)
	assert.Equal(t, "USDT", summary.Code)

	require.NoError(t, w.Next(ctx))
	assert.Equal(t, StepSuccess, w.Step())

	sent := srv.CryptoTransfers()
	require.Len(t, sent, 1)
	assert.Equal(t, "USDT", sent[0].CryptoCurrency)
	assert.Equal(t, "Crypto transfer", sent[0].Description)
	assert.Equal(t, int64(42), sent[0].RecipientID)
	assert.Empty(t, srv.Transfers())
	assert.Equal(t, 0, srv.Count(ledgertest.RouteRate))
}

func TestCryptoInsufficientFunds(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{CryptoPreselected: true})
	srv.SetWallets(7, usdWallet)

	toResolve(t, w)
	snap := w.Snapshot()
	require.True(t, snap.Draft.IsCrypto())
	assert.Equal(t, "BTC", snap.Draft.Code())

	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("11"))
	require.Error(t, w.Next(context.Background()))
	assert.Equal(t, "Insufficient BTC funds in the source wallet", w.Snapshot().Fields[FieldAmount])
}

func TestUnknownRecipient(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("unknown"))
	require.NoError(t, w.SetAmount("10"))

	err := w.Next(ctx)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindResolution))

	snap := w.Snapshot()
	assert.Equal(t, StepResolve, snap.Step)
	assert.Equal(t, MsgInvalidRecipient, snap.Fields[FieldRecipient])
	assert.Nil(t, snap.Draft.Profile)
	assert.Equal(t, 1, srv.Count(ledgertest.RouteLookup))

	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.Next(ctx))
	assert.Equal(t, StepConfirm, w.Step())
}

func TestExactlyOneSubmission(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("50"))
	require.NoError(t, w.Next(ctx))

	release := srv.Hold(ledgertest.RouteTransfer)
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return srv.Count(ledgertest.RouteTransfer) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, w.Snapshot().Submitting)

	for i := 0; i < 3; i++ {
		_, err := w.Submit(ctx)
		assert.ErrorIs(t, err, ErrSubmissionInFlight)
		assert.ErrorIs(t, w.Next(ctx), ErrSubmissionInFlight)
	}
	assert.ErrorIs(t, w.Back(), ErrSubmissionInFlight)

	release()
	require.NoError(t, <-done)

	assert.Equal(t, 1, srv.Count(ledgertest.RouteTransfer))
	assert.Len(t, srv.Transfers(), 1)
	assert.Equal(t, StepSuccess, w.Step())
}

func TestSubmissionFailureKeepsDraft(t *testing.T) {
	recorder := &memoryRecorder{}
	srv, w := newFixture(t, userSession(7), Options{Recorder: recorder})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("50"))
	require.NoError(t, w.Next(ctx))

	srv.Fail(ledgertest.RouteTransfer, http.StatusBadRequest, "Insufficient balance")
	_, err := w.Submit(ctx)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSubmission))

	snap := w.Snapshot()
	assert.Equal(t, StepConfirm, snap.Step)
	assert.Equal(t, "Insufficient balance", snap.SubmitError)
	assert.Equal(t, "50", snap.Draft.Amount)
	assert.Equal(t, "42", snap.Draft.Recipient)
	assert.NotNil(t, snap.Draft.Profile)
	assert.False(t, snap.Submitting)

	srv.Fail(ledgertest.RouteTransfer, http.StatusUnauthorized, "")
	_, err = w.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, GenericSubmitFailure, w.Snapshot().SubmitError)

	srv.ClearFailure(ledgertest.RouteTransfer)
	_, err = w.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepSuccess, w.Step())
	assert.Equal(t, 3, srv.Count(ledgertest.RouteTransfer))

	assert.Equal(t, []audit.Action{
		audit.ActionSubmitAttempt, audit.ActionSubmitFailure,
		audit.ActionSubmitAttempt, audit.ActionSubmitFailure,
		audit.ActionSubmitAttempt, audit.ActionSubmitSuccess,
	}, recorder.actions())
}

func TestSubmitRejectsForeignWallet(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("50"))
	require.NoError(t, w.Next(ctx))

	w.mu.Lock()
	w.wallets[0].UserID = 99
	w.mu.Unlock()

	_, err := w.Submit(ctx)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSubmission))
	assert.Equal(t, MsgInvalidSource, w.Snapshot().SubmitError)
	assert.Equal(t, 0, srv.Count(ledgertest.RouteTransfer))
}

func TestRecipientIDFallsBackToHandle(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{Name: "Ada"})
	srv.AddRecipient("bob", models.RecipientProfile{Name: "Bob"})
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("bob"))
	require.NoError(t, w.SetAmount("5"))
	require.NoError(t, w.Next(ctx))
	assert.Equal(t, int64(0), w.Snapshot().Draft.RecipientID)

	_, err := w.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, MsgUnknownRecipientID, w.Snapshot().SubmitError)

	require.NoError(t, w.Back())
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.Next(ctx))
	assert.Equal(t, int64(42), w.Snapshot().Draft.RecipientID)
	require.NoError(t, w.Next(ctx))

	sent := srv.Transfers()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(42), sent[0].RecipientID)
}

func TestCrossCurrencyBalanceCheck(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.SetRate("USD", "EUR", "0.5")
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetCurrency("EUR"))
	require.NoError(t, w.SetAmount("60"))

	err := w.Next(ctx)
	require.Error(t, err)
	assert.Equal(t, MsgInsufficientFunds, w.Snapshot().Fields[FieldAmount])
	assert.Equal(t, 1, srv.Count(ledgertest.RouteRate))

	require.NoError(t, w.SetAmount("40"))
	preview := w.Preview()
	require.True(t, preview.Available)
	assert.True(t, preview.SourceAmount.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, "USD", preview.SourceCode)

	require.NoError(t, w.Next(ctx))
	assert.Equal(t, StepConfirm, w.Step())
	assert.Equal(t, 1, srv.Count(ledgertest.RouteRate))

	summary, err := w.Summary()
	require.NoError(t, err)
	assert.Equal(t, "0.40", summary.Fee.StringFixed(2))
	require.NotNil(t, summary.Quote)
	assert.Equal(t, "USD/EUR", summary.Quote.Pair())

	require.NoError(t, w.Next(ctx))
	sent := srv.Transfers()
	require.Len(t, sent, 1)
	assert.Equal(t, "USD", sent[0].SourceCurrency)
	assert.Equal(t, "EUR", sent[0].TargetCurrency)
}

func TestQuoteUnavailableIsNotFatal(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetCurrency("JPY"))
	require.NoError(t, w.SetAmount("50"))

	_, err := w.RefreshQuote(ctx)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindQuoteUnavailable))
	assert.Equal(t, MsgQuoteUnavailable, w.Snapshot().QuoteError)
	assert.False(t, w.Preview().Available)

	require.NoError(t, w.Next(ctx))
	assert.Equal(t, StepConfirm, w.Step())
}

func TestStaleQuoteDiscarded(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.SetRate("USD", "EUR", "0.9")
	srv.SetRate("USD", "GBP", "0.8")
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetCurrency("EUR"))

	release := srv.Hold(ledgertest.RouteRate)
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := w.RefreshQuote(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return srv.Count(ledgertest.RouteRate) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, w.SetCurrency("GBP"))
	release()

	assert.ErrorIs(t, <-done, ErrStaleResult)
	assert.Nil(t, w.Snapshot().Draft.Quote)

	quote, err := w.RefreshQuote(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USD/GBP", quote.Pair())
	assert.True(t, quote.Rate.Equal(decimal.RequireFromString("0.8")))
}

func TestOlderQuoteLosesToNewerRequest(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)

	toResolve(t, w)
	require.NoError(t, w.SetCurrency("EUR"))

	w.mu.Lock()
	first, fetch, _ := w.beginQuoteLocked(true)
	require.True(t, fetch)
	second, _, _ := w.beginQuoteLocked(true)
	_, err := w.applyQuoteLocked(second, decimal.RequireFromString("0.91"), nil)
	require.NoError(t, err)
	_, err = w.applyQuoteLocked(first, decimal.RequireFromString("0.50"), nil)
	w.mu.Unlock()

	assert.ErrorIs(t, err, ErrStaleResult)
	snap := w.Snapshot()
	require.NotNil(t, snap.Draft.Quote)
	assert.True(t, snap.Draft.Quote.Rate.Equal(decimal.RequireFromString("0.91")))
}

func TestSwitchingToCryptoDropsQuote(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.SetRate("USD", "EUR", "0.9")
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetCurrency("EUR"))
	_, err := w.RefreshQuote(ctx)
	require.NoError(t, err)
	require.NotNil(t, w.Snapshot().Draft.Quote)

	require.NoError(t, w.SetCryptoMode(true))
	assert.Nil(t, w.Snapshot().Draft.Quote)
	assert.ErrorIs(t, w.SetCurrency("GBP"), ErrWrongStep)

	require.NoError(t, w.SetCryptoMode(false))
	assert.Equal(t, "EUR", w.Snapshot().Draft.Code())
	assert.ErrorIs(t, w.SetCryptoAsset("BTC"), ErrWrongStep)
}

func TestBackNavigation(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	assert.ErrorIs(t, w.Back(), ErrWrongStep)

	require.NoError(t, w.SelectWallet(1))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("10"))
	require.NoError(t, w.Next(ctx))
	require.Equal(t, StepConfirm, w.Step())

	assert.ErrorIs(t, w.SetAmount("20"), ErrWrongStep)

	require.NoError(t, w.Back())
	assert.Equal(t, StepResolve, w.Step())
	assert.Equal(t, "10", w.Snapshot().Draft.Amount)

	require.NoError(t, w.Back())
	assert.Equal(t, StepSelect, w.Step())
	assert.ErrorIs(t, w.SetAmount("20"), ErrWrongStep)
}

func TestFeeRecomputedOnReentry(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("10"))
	require.NoError(t, w.Next(ctx))

	summary, err := w.Summary()
	require.NoError(t, err)
	assert.Equal(t, "0.10", summary.Fee.StringFixed(2))

	require.NoError(t, w.Back())
	require.NoError(t, w.SetAmount("80"))
	require.NoError(t, w.Next(ctx))

	summary, err = w.Summary()
	require.NoError(t, err)
	assert.Equal(t, "0.80", summary.Fee.StringFixed(2))
	assert.Equal(t, "80.80", summary.Total.StringFixed(2))
}

func TestSendAnotherAndFinish(t *testing.T) {
	var navigated []Destination
	srv, w := newFixture(t, userSession(7), Options{Navigator: func(d Destination) { navigated = append(navigated, d) }})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})
	ctx := context.Background()

	assert.ErrorIs(t, w.SendAnother(), ErrWrongStep)

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("10"))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))
	require.Equal(t, StepSuccess, w.Step())

	require.NoError(t, w.Finish())
	assert.Equal(t, []Destination{DestinationDashboard}, navigated)

	require.NoError(t, w.SendAnother())
	snap := w.Snapshot()
	assert.Equal(t, StepSelect, snap.Step)
	assert.Equal(t, int64(0), snap.Draft.SourceWalletID)
	assert.Nil(t, snap.Completed)
	assert.Len(t, snap.Wallets, 1)
	assert.ErrorIs(t, w.Finish(), ErrWrongStep)
}

func TestReloadDropsVanishedWallet(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	ctx := context.Background()

	toResolve(t, w)

	srv.SetWallets(7, models.Wallet{ID: 5, UserID: 7, BaseCurrency: "EUR"})
	require.NoError(t, w.LoadWallets(ctx))

	snap := w.Snapshot()
	assert.Equal(t, StepSelect, snap.Step)
	assert.Equal(t, int64(0), snap.Draft.SourceWalletID)
}

func TestCustomFeeRate(t *testing.T) {
	rate := decimal.RequireFromString("0.02")
	srv, w := newFixture(t, userSession(7), Options{FeeRate: &rate})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("50"))
	require.NoError(t, w.Next(context.Background()))

	summary, err := w.Summary()
	require.NoError(t, err)
	assert.Equal(t, "1.00", summary.Fee.StringFixed(2))
}

func TestZeroFeeRate(t *testing.T) {
	rate := decimal.Zero
	srv, w := newFixture(t, userSession(7), Options{FeeRate: &rate})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("50"))
	require.NoError(t, w.Next(context.Background()))

	summary, err := w.Summary()
	require.NoError(t, err)
	assert.True(t, summary.Fee.IsZero())
	assert.Equal(t, "50.00", summary.Total.StringFixed(2))
}

func TestDefaultFeeRateWhenUnset(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42})

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("50"))
	require.NoError(t, w.Next(context.Background()))

	summary, err := w.Summary()
	require.NoError(t, err)
	assert.Equal(t, "0.50", summary.Fee.StringFixed(2))
}

func TestStaleRecipientLookupDiscarded(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	srv.AddRecipient("42", models.RecipientProfile{UserID: 42, Name: "Ada"})
	srv.AddRecipient("43", models.RecipientProfile{UserID: 43, Name: "Bob"})
	ctx := context.Background()

	toResolve(t, w)
	require.NoError(t, w.SetRecipient("42"))
	require.NoError(t, w.SetAmount("50"))

	release := srv.Hold(ledgertest.RouteLookup)
	defer release()

	done := make(chan error, 1)
	go func() {
		done <- w.Next(ctx)
	}()

	require.Eventually(t, func() bool {
		return srv.Count(ledgertest.RouteLookup) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, w.SetRecipient("43"))
	require.NoError(t, w.SetAmount("60"))
	release()

	assert.ErrorIs(t, <-done, ErrStaleResult)
	snap := w.Snapshot()
	assert.Equal(t, StepResolve, snap.Step)
	assert.Nil(t, snap.Draft.Profile)
	assert.True(t, snap.Draft.Fee.IsZero())

	require.NoError(t, w.Next(ctx))
	summary, err := w.Summary()
	require.NoError(t, err)
	assert.Equal(t, "43", summary.Recipient)
	assert.Contains(t, summary.RecipientName, "Bob")
	assert.Equal(t, "60.60", summary.Total.StringFixed(2))
}

func TestStaleWalletListDiscarded(t *testing.T) {
	srv, w := newFixture(t, userSession(7), Options{})
	srv.SetWallets(7, usdWallet)
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	require.Equal(t, 1, srv.Count(ledgertest.RouteWallets))

	release := srv.Hold(ledgertest.RouteWallets)
	defer release()

	first := make(chan error, 1)
	go func() {
		first <- w.LoadWallets(ctx)
	}()
	require.Eventually(t, func() bool {
		return srv.Count(ledgertest.RouteWallets) == 2
	}, 2*time.Second, 5*time.Millisecond)

	eur := models.Wallet{ID: 5, UserID: 7, BaseCurrency: "EUR", FiatBalance: decimal.NewFromInt(20)}
	srv.SetWallets(7, usdWallet, eur)

	second := make(chan error, 1)
	go func() {
		second <- w.LoadWallets(ctx)
	}()
	require.Eventually(t, func() bool {
		return srv.Count(ledgertest.RouteWallets) == 3
	}, 2*time.Second, 5*time.Millisecond)

	release()

	assert.ErrorIs(t, <-first, ErrStaleResult)
	assert.NoError(t, <-second)

	snap := w.Snapshot()
	assert.True(t, snap.WalletsLoaded)
	assert.Len(t, snap.Wallets, 2)
}
