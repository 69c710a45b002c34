package providers

import (
	"context"
	"errors"
	"fmt"

	"pos-payment-service/models"
)

// ErrSignatureInvalid is returned when a webhook payload fails verification.
var ErrSignatureInvalid = errors.New("webhook signature invalid")

// Gateway error codes produced by the adapters themselves.
const (
	CodeNotFound    = "resource_missing"
	CodeTimeout     = "timeout"
	CodeUnavailable = "unavailable"
	CodeUnknown     = "unknown"
)

// GatewayError is a failed call to the payment provider.
type GatewayError struct {
	Code    string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("gateway %s: %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a gateway "no such object" error.
func IsNotFound(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Code == CodeNotFound
}

// PaymentGateway is the provider-facing contract the payment service depends on.
// Implementations must not retry on their own.
type PaymentGateway interface {
	// CreateIntent opens a payment intent for the given amount.
	CreateIntent(ctx context.Context, params models.CreateIntentParams) (*models.Intent, error)

	// RetrieveIntent fetches the provider's current view of an intent.
	RetrieveIntent(ctx context.Context, intentID string) (*models.Intent, error)

	// CreateRefund refunds all or part of a succeeded intent.
	CreateRefund(ctx context.Context, params models.CreateRefundParams) (*models.Refund, error)

	// FindOrCreateCustomer returns the first customer with the given email, or a new one.
	FindOrCreateCustomer(ctx context.Context, params models.CustomerParams) (*models.Customer, error)

	// VerifyWebhookSignature authenticates a webhook body and decodes it.
	VerifyWebhookSignature(payload []byte, sigHeader, secret string) (*models.WebhookEvent, error)
}
