package transfer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"rhystmorgan/fxTerm/internal/models"
)

const MsgQuoteUnavailable = "Conversion rate unavailable"

// quoteRequest fingerprints the draft state a rate fetch was issued for.
type quoteRequest struct {
	walletID int64
	from     string
	to       string
	gen      uint64
}

func (r quoteRequest) pair() string {
	return r.from + "/" + r.to
}

// RefreshQuote fetches the rate between the source wallet's currency and
// the chosen target currency. Same-currency pairs are one-to-one without a
// fetch and crypto mode never fetches. A result whose inputs changed while
// it was in flight is dropped with ErrStaleResult.
func (w *Workflow) RefreshQuote(ctx context.Context) (*models.ConversionQuote, error) {
	w.mu.Lock()
	req, fetch, quote := w.beginQuoteLocked(true)
	w.mu.Unlock()

	if !fetch {
		return quote, nil
	}

	rate, err := w.ledger.Rate(ctx, req.from, req.to)

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.applyQuoteLocked(req, rate, err)
}

// beginQuoteLocked decides whether a fetch is needed. Without force an
// existing quote for the current pair is reused.
func (w *Workflow) beginQuoteLocked(force bool) (quoteRequest, bool, *models.ConversionQuote) {
	if w.step.Terminal() || w.draft.IsCrypto() {
		return quoteRequest{}, false, nil
	}
	wallet, ok := models.FindWallet(w.wallets, w.draft.SourceWalletID)
	if !ok {
		return quoteRequest{}, false, nil
	}

	from, to := wallet.Currency(), w.draft.Code()
	if from == "" || to == "" {
		return quoteRequest{}, false, nil
	}
	if from == to {
		q := models.OneToOne(from)
		w.draft.Quote = &q
		w.quoteErr = ""
		return quoteRequest{}, false, &q
	}
	if !force && w.draft.Quote != nil && w.draft.Quote.Matches(from, to) {
		q := *w.draft.Quote
		return quoteRequest{}, false, &q
	}

	w.quoteGen++
	return quoteRequest{walletID: wallet.ID, from: from, to: to, gen: w.quoteGen}, true, nil
}

func (w *Workflow) applyQuoteLocked(req quoteRequest, rate decimal.Decimal, err error) (*models.ConversionQuote, error) {
	if !w.quoteCurrentLocked(req) {
		w.logger.Debug("discarding stale quote", "pair", req.pair(), "generation", req.gen)
		return nil, ErrStaleResult
	}

	if err != nil {
		w.draft.Quote = nil
		w.quoteErr = MsgQuoteUnavailable
		w.logger.Warn("quote unavailable", "pair", req.pair(), "err", err)
		return nil, NewQuoteUnavailableError(req.pair(), err)
	}

	q := models.ConversionQuote{From: req.from, To: req.to, Rate: rate, FetchedAt: time.Now()}
	w.draft.Quote = &q
	w.quoteErr = ""
	w.logger.Debug("quote fetched", "pair", req.pair(), "rate", rate.String(), "generation", req.gen)
	return &q, nil
}

func (w *Workflow) quoteCurrentLocked(req quoteRequest) bool {
	if req.gen != w.quoteGen || w.draft.IsCrypto() || w.draft.SourceWalletID != req.walletID {
		return false
	}
	wallet, ok := models.FindWallet(w.wallets, req.walletID)
	if !ok {
		return false
	}
	return wallet.Currency() == req.from && w.draft.Code() == req.to
}

// Preview is the conversion hint shown while terms are being entered.
type Preview struct {
	Crypto       bool
	Amount       decimal.Decimal
	Code         string
	SourceAmount decimal.Decimal
	SourceCode   string
	Rate         decimal.Decimal
	Available    bool
}

// Preview reports what the current amount costs in the source currency. It
// is only available in fiat mode with a quote for a cross-currency pair.
func (w *Workflow) Preview() Preview {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := Preview{Crypto: w.draft.IsCrypto(), Code: w.draft.Code()}
	if p.Crypto {
		return p
	}

	wallet, ok := models.FindWallet(w.wallets, w.draft.SourceWalletID)
	if !ok {
		return p
	}
	p.SourceCode = wallet.Currency()

	amount, msg := ParseAmount(w.draft.Amount)
	q := w.draft.Quote
	if msg != "" || q == nil || p.SourceCode == p.Code || !q.Matches(p.SourceCode, p.Code) {
		return p
	}

	p.Amount = amount
	p.Rate = q.Rate
	p.SourceAmount = q.ToSource(amount)
	p.Available = true
	return p
}
