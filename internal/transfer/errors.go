package transfer

import (
	"errors"
	"sort"
	"strings"

	"rhystmorgan/fxTerm/internal/ledger"
)

type Kind string

const (
	KindValidation         Kind = "validation"
	KindResolution         Kind = "resolution"
	KindQuoteUnavailable   Kind = "quote_unavailable"
	KindSubmission         Kind = "submission"
	KindSession            Kind = "session"
	KindWalletsUnavailable Kind = "wallets_unavailable"
)

var (
	ErrSubmissionInFlight = errors.New("submission already in progress")
	ErrStaleResult        = errors.New("result no longer matches the draft")
	ErrWrongStep          = errors.New("action not available at this step")
)

const GenericSubmitFailure = "Failed to send funds. Please try again."

// Error is a workflow failure. Fields holds per-field messages for
// validation and resolution failures.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewValidationError(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func NewResolutionError(handle string, cause error) *Error {
	return &Error{
		Kind:    KindResolution,
		Message: "recipient " + handle + " could not be resolved",
		Fields:  map[string]string{FieldRecipient: MsgInvalidRecipient},
		Cause:   cause,
	}
}

func NewQuoteUnavailableError(pair string, cause error) *Error {
	return &Error{Kind: KindQuoteUnavailable, Message: "conversion rate unavailable for " + pair, Cause: cause}
}

func NewSubmissionError(message string, cause error) *Error {
	return &Error{Kind: KindSubmission, Message: message, Cause: cause}
}

func NewSessionError() *Error {
	return &Error{Kind: KindSession, Message: "no authenticated session"}
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// submitMessage is what the user sees for a failed submission: the ledger's
// own detail when it gave one.
func submitMessage(err error) string {
	var apiErr *ledger.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return GenericSubmitFailure
}
