package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

func NewAPIError(errType ErrorType, message string, cause error) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

func NewNetworkError(message string, cause error) *APIError {
	return NewAPIError(ErrNetworkConnection, message, cause)
}

func NewTimeoutError(operation string, timeout time.Duration) *APIError {
	return NewAPIError(ErrTimeout,
		fmt.Sprintf("operation %s timed out after %v", operation, timeout), nil)
}

func NewDecodeError(operation string, cause error) *APIError {
	return NewAPIError(ErrDecode, fmt.Sprintf("unexpected %s response", operation), cause)
}

// NewStatusError maps a non-2xx response to an APIError, pulling the
// service's detail message out of the body when it has one.
func NewStatusError(operation string, status int, body []byte) *APIError {
	var errType ErrorType
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		errType = ErrUnauthorized
	case status == http.StatusNotFound:
		errType = ErrNotFound
	case status == http.StatusTooManyRequests:
		errType = ErrRateLimited
	case status >= 500:
		errType = ErrServerError
	default:
		errType = ErrBadRequest
	}

	return &APIError{
		Type:    errType,
		Message: fmt.Sprintf("%s failed with status %d", operation, status),
		Status:  status,
		Detail:  extractDetail(body),
	}
}

// extractDetail understands FastAPI-style bodies: a string detail, a list of
// validation errors with "msg", or a plain "message".
func extractDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}

	if len(resp.Detail) > 0 && string(resp.Detail) != "null" {
		var s string
		if err := json.Unmarshal(resp.Detail, &s); err == nil {
			return s
		}

		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(resp.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}

	return resp.Message
}

func ClassifyError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return NewAPIError(ErrCircuitOpen, "ledger service temporarily disabled", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewAPIError(ErrTimeout, "request timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewAPIError(ErrTimeout, "request timed out", err)
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return NewAPIError(ErrTimeout, "request timed out", err)
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host"):
		return NewNetworkError("connection failed", err)
	default:
		return NewNetworkError("unknown network error", err)
	}
}

func (e *APIError) IsRetryable() bool {
	switch e.Type {
	case ErrNetworkConnection, ErrTimeout, ErrRateLimited, ErrServerError:
		return true
	default:
		return false
	}
}

// countsAsFailure decides what trips the breaker. Client errors mean the
// service answered and is healthy.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	apiErr := ClassifyError(err)
	switch apiErr.Type {
	case ErrNetworkConnection, ErrTimeout, ErrServerError:
		return true
	default:
		return false
	}
}

func (e *APIError) UserMessage() string {
	if e.Detail != "" {
		return e.Detail
	}

	switch e.Type {
	case ErrNetworkConnection:
		return "Could not reach the ledger service. Please check your connection."
	case ErrTimeout:
		return "Request timed out. Please try again."
	case ErrUnauthorized:
		return "Your session is no longer valid. Please log in again."
	case ErrNotFound:
		return "The requested record was not found."
	case ErrBadRequest:
		return "The ledger service rejected the request."
	case ErrServerError:
		return "The ledger service is temporarily unavailable."
	case ErrRateLimited:
		return "Too many requests. Please wait a moment and try again."
	case ErrCircuitOpen:
		return "The ledger service is unavailable. Please try again shortly."
	case ErrDecode:
		return "The ledger service returned an unexpected response."
	default:
		return "An unexpected error occurred."
	}
}

func IsType(err error, errType ErrorType) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == errType
}
