package services

import (
	"errors"
	"net/http"

	"pos-payment-service/models"
	"pos-payment-service/providers"
	"pos-payment-service/repository"
)

// ErrorKind classifies a failure so callers can tell retriable gateway errors
// from local rejections without matching strings.
type ErrorKind string

const (
	KindInvalidAmount    ErrorKind = "InvalidAmount"
	KindInvalidState     ErrorKind = "InvalidState"
	KindGateway          ErrorKind = "GatewayError"
	KindSignatureInvalid ErrorKind = "SignatureInvalid"
	KindNotFound         ErrorKind = "NotFound"
	KindInvalidRequest   ErrorKind = "InvalidRequest"
	KindBusy             ErrorKind = "Busy"
	KindInternal         ErrorKind = "Internal"
)

// ServiceError is a typed error with an HTTP status code. Message is safe to
// show to clients; Err carries the detail that only goes to the logs.
type ServiceError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Retriable reports whether repeating the call may succeed.
func (e *ServiceError) Retriable() bool {
	return e.Kind == KindGateway || e.Kind == KindBusy
}

var kindStatus = map[ErrorKind]int{
	KindInvalidAmount:    http.StatusBadRequest,
	KindInvalidRequest:   http.StatusBadRequest,
	KindSignatureInvalid: http.StatusBadRequest,
	KindNotFound:         http.StatusNotFound,
	KindInvalidState:     http.StatusConflict,
	KindGateway:          http.StatusBadGateway,
	KindBusy:             http.StatusServiceUnavailable,
	KindInternal:         http.StatusInternalServerError,
}

func newError(kind ErrorKind, message string, err error) *ServiceError {
	return &ServiceError{Kind: kind, StatusCode: kindStatus[kind], Message: message, Err: err}
}

// classify turns model and gateway errors into a ServiceError. fallback is the
// client-facing message for gateway and internal failures.
func classify(err error, fallback string) *ServiceError {
	var se *ServiceError
	var ge *providers.GatewayError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &se):
		return se
	case errors.Is(err, models.ErrInvalidAmount):
		return newError(KindInvalidAmount, "Invalid amount", err)
	case errors.Is(err, models.ErrInvalidState):
		return newError(KindInvalidState, "Operation not allowed in the current payment state", err)
	case errors.Is(err, providers.ErrSignatureInvalid):
		return newError(KindSignatureInvalid, "Invalid webhook", err)
	case errors.Is(err, repository.ErrSessionNotFound), providers.IsNotFound(err):
		return newError(KindNotFound, "Payment not found", err)
	case errors.As(err, &ge):
		return newError(KindGateway, fallback, err)
	default:
		return newError(KindInternal, fallback, err)
	}
}
