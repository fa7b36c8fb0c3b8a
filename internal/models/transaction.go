package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusFailed    TransferStatus = "failed"
)

func (s TransferStatus) String() string {
	switch s {
	case TransferStatusPending:
		return "Pending"
	case TransferStatusCompleted:
		return "Completed"
	case TransferStatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// TransferRequest is the body of POST /transaction/.
type TransferRequest struct {
	SenderID       int64       `json:"sender_id"`
	RecipientID    int64       `json:"recipient_id"`
	Amount         json.Number `json:"amount"`
	SourceCurrency string      `json:"source_currency"`
	TargetCurrency string      `json:"target_currency"`
	Description    string      `json:"description"`
}

// CryptoTransferRequest is the body of POST /transaction/crypto/.
type CryptoTransferRequest struct {
	SenderID       int64       `json:"sender_id"`
	RecipientID    int64       `json:"recipient_id"`
	Amount         json.Number `json:"amount"`
	CryptoCurrency string      `json:"crypto_currency"`
	Description    string      `json:"description"`
}

// TransferReceipt is what the ledger returns for an accepted transfer.
// Some ledger versions return the id as a number.
type TransferReceipt struct {
	TransactionID string         `json:"-"`
	Status        TransferStatus `json:"status,omitempty"`
	ReceivedAt    time.Time      `json:"-"`
}

func (r *TransferReceipt) UnmarshalJSON(data []byte) error {
	var raw struct {
		TransactionID json.RawMessage `json:"transaction_id"`
		ID            json.RawMessage `json:"id"`
		Status        TransferStatus  `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id := raw.TransactionID
	if len(id) == 0 || string(id) == "null" {
		id = raw.ID
	}
	if len(id) == 0 || string(id) == "null" {
		return fmt.Errorf("transfer receipt has no transaction id")
	}

	var s string
	if err := json.Unmarshal(id, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(id, &n); err != nil {
			return fmt.Errorf("invalid transaction id %s: %w", id, err)
		}
		s = n.String()
	}

	r.TransactionID = s
	r.Status = raw.Status
	r.ReceivedAt = time.Now()
	return nil
}
