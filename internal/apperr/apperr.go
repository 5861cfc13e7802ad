// Package apperr classifies failures of the ordering core so the HTTP layer
// can map them to status codes without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindItemUnavailable   Kind = "item_unavailable"
	KindIllegalTransition Kind = "illegal_transition"
	KindOrderNotPayable   Kind = "order_not_payable"
	KindOrderNotReady     Kind = "order_not_ready"
	KindAlreadyFinalized  Kind = "already_finalized"
	KindAmountTooLow      Kind = "amount_too_low"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindGatewayFailure    Kind = "gateway_failure"
	KindStorageFailure    Kind = "storage_failure"
)

// Sentinels for errors.Is checks; an *Error matches the sentinel of its kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrItemUnavailable   = &Error{Kind: KindItemUnavailable}
	ErrIllegalTransition = &Error{Kind: KindIllegalTransition}
	ErrOrderNotPayable   = &Error{Kind: KindOrderNotPayable}
	ErrOrderNotReady     = &Error{Kind: KindOrderNotReady}
	ErrAlreadyFinalized  = &Error{Kind: KindAlreadyFinalized}
	ErrAmountTooLow      = &Error{Kind: KindAmountTooLow}
	ErrGatewayFailure    = &Error{Kind: KindGatewayFailure}
	ErrStorageFailure    = &Error{Kind: KindStorageFailure}
)

type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Fields == nil
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "request validation failed", Fields: fields}
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Storage(err error, op string) *Error {
	return Wrap(KindStorageFailure, err, "%s", op)
}

// KindOf returns the kind of the first *Error in err's chain. Unclassified
// errors are reported as storage failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageFailure
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindItemUnavailable, KindIllegalTransition, KindOrderNotPayable,
		KindOrderNotReady, KindAlreadyFinalized, KindAmountTooLow:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindGatewayFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
