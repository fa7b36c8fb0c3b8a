package transfer

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"rhystmorgan/fxTerm/internal/audit"
	"rhystmorgan/fxTerm/internal/models"
)

// Submit sends the confirmed draft to the ledger. Only one submission may be
// outstanding; repeated calls while one is in flight return
// ErrSubmissionInFlight without touching the network. On failure the draft
// is kept intact on StepConfirm.
func (w *Workflow) Submit(ctx context.Context) (*models.TransferReceipt, error) {
	w.mu.Lock()
	if w.step != StepConfirm {
		w.mu.Unlock()
		return nil, ErrWrongStep
	}
	if w.submitting {
		w.mu.Unlock()
		w.logger.Debug("submission ignored, one already in flight", "step", StepConfirm)
		return nil, ErrSubmissionInFlight
	}

	draft := w.draft
	userID := w.userID
	entry := audit.Entry{
		UserID:   userID,
		WalletID: draft.SourceWalletID,
		Code:     draft.Code(),
		Crypto:   draft.IsCrypto(),
		Amount:   draft.Amount,
	}

	wallet, ok := models.FindWallet(w.wallets, draft.SourceWalletID)
	if !ok || !wallet.OwnedBy(userID) {
		w.submitErr = MsgInvalidSource
		w.mu.Unlock()
		w.logger.Warn("submission rejected", "wallet_id", draft.SourceWalletID, "err", MsgInvalidSource)
		entry.Action, entry.Error = audit.ActionRejected, MsgInvalidSource
		w.record(entry)
		return nil, NewSubmissionError(MsgInvalidSource, nil)
	}

	amount, msg := ParseAmount(draft.Amount)
	if msg != "" {
		w.submitErr = msg
		w.mu.Unlock()
		return nil, NewSubmissionError(msg, nil)
	}

	recipientID := draft.RecipientID
	if recipientID <= 0 {
		w.submitErr = MsgUnknownRecipientID
		w.mu.Unlock()
		w.logger.Warn("submission rejected", "wallet_id", wallet.ID, "err", MsgUnknownRecipientID)
		entry.Action, entry.Error = audit.ActionRejected, MsgUnknownRecipientID
		w.record(entry)
		return nil, NewSubmissionError(MsgUnknownRecipientID, nil)
	}

	w.submitting = true
	w.submitErr = ""
	w.mu.Unlock()

	entry.RecipientID = recipientID
	entry.Amount = amount.String()
	entry.Action = audit.ActionSubmitAttempt
	w.record(entry)
	w.logger.Info("submitting transfer", "wallet_id", wallet.ID, "pair", wallet.Currency()+"/"+draft.Code(), "crypto", draft.IsCrypto())

	receipt, err := w.send(ctx, userID, recipientID, amount, wallet, draft)

	w.mu.Lock()
	w.submitting = false
	if err != nil {
		message := submitMessage(err)
		w.submitErr = message
		w.mu.Unlock()

		w.logger.Error("transfer failed", "wallet_id", wallet.ID, "err", err)
		entry.Action, entry.Error = audit.ActionSubmitFailure, message
		w.record(entry)
		return nil, NewSubmissionError(message, err)
	}

	summary := buildSummary(wallet, draft)
	summary.TransactionID = receipt.TransactionID
	w.resetLocked()
	w.step = StepSuccess
	w.completed = &summary
	w.mu.Unlock()

	w.logger.Info("transfer submitted", "wallet_id", wallet.ID, "tx_id", receipt.TransactionID)
	entry.Action, entry.TransactionID = audit.ActionSubmitSuccess, receipt.TransactionID
	w.record(entry)
	return receipt, nil
}

func (w *Workflow) send(ctx context.Context, userID, recipientID int64, amount decimal.Decimal, wallet models.Wallet, draft models.TransferDraft) (*models.TransferReceipt, error) {
	if draft.IsCrypto() {
		return w.ledger.CryptoTransfer(ctx, models.CryptoTransferRequest{
			SenderID:       userID,
			RecipientID:    recipientID,
			Amount:         json.Number(amount.String()),
			CryptoCurrency: draft.Code(),
			Description:    draft.DescriptionOrDefault(),
		})
	}

	return w.ledger.Transfer(ctx, models.TransferRequest{
		SenderID:       userID,
		RecipientID:    recipientID,
		Amount:         json.Number(amount.String()),
		SourceCurrency: wallet.Currency(),
		TargetCurrency: draft.Code(),
		Description:    draft.DescriptionOrDefault(),
	})
}

func (w *Workflow) record(entry audit.Entry) {
	if w.recorder == nil {
		return
	}
	if err := w.recorder.Record(entry); err != nil {
		w.logger.Warn("audit record failed", "err", err)
	}
}
