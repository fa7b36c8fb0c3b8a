package audit

import (
	"time"
)

// Action is what happened to a transfer.
type Action string

const (
	ActionSubmitAttempt Action = "submit_attempt"
	ActionSubmitSuccess Action = "submit_success"
	ActionSubmitFailure Action = "submit_failure"
	ActionRejected      Action = "submit_rejected"
)

// Terminal reports whether the action closes out an attempt.
func (a Action) Terminal() bool {
	return a == ActionSubmitSuccess || a == ActionSubmitFailure || a == ActionRejected
}

// Entry is a single line of the transfer audit trail.
type Entry struct {
	ID            string                 `json:"id"`
	Action        Action                 `json:"action"`
	Timestamp     time.Time              `json:"timestamp"`
	UserID        int64                  `json:"user_id,omitempty"`
	WalletID      int64                  `json:"wallet_id,omitempty"`
	RecipientID   int64                  `json:"recipient_id,omitempty"`
	Amount        string                 `json:"amount,omitempty"`
	Code          string                 `json:"code,omitempty"`
	Crypto        bool                   `json:"crypto,omitempty"`
	TransactionID string                 `json:"transaction_id,omitempty"`
	Error         string                 `json:"error,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
}
