package gateway

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindPolicy      Kind = "policy"
	KindConnection  Kind = "connection"
	KindQuery       Kind = "query"
	KindUnsupported Kind = "unsupported"
	KindInternal    Kind = "internal"
)

// Status is the HTTP status a caller should answer with for this kind.
func (k Kind) Status() int {
	if k == KindInternal {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

const (
	MessageUnsupported     = "Unsupported database type"
	MessageInvalidConfig   = "Invalid configuration provided"
	MessageQueryRequired   = "Configuration and query are required"
	MessageInternalQuery   = "Internal server error during query execution"
	MessageInternalConnect = "Internal server error during connection test"
)

// Error is the classified failure of a gateway call. Message is always safe
// to return to a client.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the classification of err, or KindInternal for errors that
// did not come from the gateway.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindInternal
}
