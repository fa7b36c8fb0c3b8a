package ledger

import (
	"encoding/json"
	"time"
)

type Config struct {
	BaseURL         string
	Timeout         time.Duration
	RetryCount      int
	RetryDelay      time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

type ErrorType string

const (
	ErrNetworkConnection ErrorType = "network_connection"
	ErrTimeout           ErrorType = "timeout"
	ErrUnauthorized      ErrorType = "unauthorized"
	ErrNotFound          ErrorType = "not_found"
	ErrBadRequest        ErrorType = "bad_request"
	ErrServerError       ErrorType = "server_error"
	ErrRateLimited       ErrorType = "rate_limited"
	ErrCircuitOpen       ErrorType = "circuit_open"
	ErrDecode            ErrorType = "decode"
)

// APIError is any failure talking to the ledger service. Detail carries the
// service's own explanation when the response had one.
type APIError struct {
	Type    ErrorType
	Message string
	Status  int
	Detail  string
	Cause   error
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

type Status struct {
	Connected    bool
	BaseURL      string
	LastChecked  time.Time
	LastError    string
	BreakerState string
}

// User is the authenticated account returned by GET /user/user/.
type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type rateResponse struct {
	Rate json.Number `json:"rate"`
}

type errorResponse struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}
