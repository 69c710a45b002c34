package providers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"pos-payment-service/models"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"go.uber.org/zap"
)

// StripeGateway implements PaymentGateway on the Stripe API. Each instance
// owns its client; nothing is set on the package-level stripe.Key.
type StripeGateway struct {
	api    *client.API
	logger *zap.Logger
}

// NewStripeGateway builds a gateway whose HTTP calls are bounded by timeout and
// never retried by the SDK.
func NewStripeGateway(secretKey string, timeout time.Duration, logger *zap.Logger) *StripeGateway {
	return &StripeGateway{
		api:    client.New(secretKey, newStripeBackends(timeout, nil, logger)),
		logger: logger,
	}
}

// NewStripeGatewayWithURL points the gateway at another API base URL
// (stripe-mock or a test server).
func NewStripeGatewayWithURL(secretKey, baseURL string, timeout time.Duration, logger *zap.Logger) *StripeGateway {
	return &StripeGateway{
		api:    client.New(secretKey, newStripeBackends(timeout, stripe.String(baseURL), logger)),
		logger: logger,
	}
}

func newStripeBackends(timeout time.Duration, baseURL *string, logger *zap.Logger) *stripe.Backends {
	httpClient := &http.Client{Timeout: timeout}
	config := func() *stripe.BackendConfig {
		return &stripe.BackendConfig{
			HTTPClient:        httpClient,
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     logger.Sugar(),
			URL:               baseURL,
		}
	}
	return &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, config()),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, config()),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, config()),
	}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, p models.CreateIntentParams) (*models.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.AmountCents),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if p.CustomerID != nil && *p.CustomerID != "" {
		params.Customer = stripe.String(*p.CustomerID)
	}
	for k, v := range p.Metadata.ToMap() {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, mapStripeError("create payment intent", err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (*models.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, mapStripeError("retrieve payment intent", err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, p models.CreateRefundParams) (*models.Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(p.IntentID),
	}
	if p.AmountCents != nil {
		params.Amount = stripe.Int64(*p.AmountCents)
	}
	if p.Reason != "" {
		params.Reason = stripe.String(p.Reason)
	}
	for k, v := range p.Metadata.ToMap() {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	params.Context = ctx

	r, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, mapStripeError("create refund", err)
	}
	return &models.Refund{
		RefundID:    r.ID,
		AmountCents: r.Amount,
		Status:      string(r.Status),
		Reason:      string(r.Reason),
	}, nil
}

// FindOrCreateCustomer returns the first customer listed for the email. No
// merging is attempted when several exist.
func (g *StripeGateway) FindOrCreateCustomer(ctx context.Context, p models.CustomerParams) (*models.Customer, error) {
	list := &stripe.CustomerListParams{Email: stripe.String(p.Email)}
	list.Limit = stripe.Int64(1)
	list.Context = ctx

	it := g.api.Customers.List(list)
	if it.Next() {
		c := it.Customer()
		return &models.Customer{CustomerID: c.ID, Email: c.Email, Name: c.Name, Phone: c.Phone}, nil
	}
	if err := it.Err(); err != nil {
		return nil, mapStripeError("list customers", err)
	}

	params := &stripe.CustomerParams{Email: stripe.String(p.Email)}
	if p.Name != "" {
		params.Name = stripe.String(p.Name)
	}
	if p.Phone != "" {
		params.Phone = stripe.String(p.Phone)
	}
	params.Context = ctx

	c, err := g.api.Customers.New(params)
	if err != nil {
		return nil, mapStripeError("create customer", err)
	}
	g.logger.Info("Stripe customer created", zap.String("customer_id", c.ID))
	return &models.Customer{CustomerID: c.ID, Email: c.Email, Name: c.Name, Phone: c.Phone, Created: true}, nil
}

func (g *StripeGateway) VerifyWebhookSignature(payload []byte, sigHeader, secret string) (*models.WebhookEvent, error) {
	return verifyStripeSignature(payload, sigHeader, secret)
}

func toIntent(pi *stripe.PaymentIntent) *models.Intent {
	in := &models.Intent{
		IntentID:     pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       models.IntentStatus(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
		Created:      time.Unix(pi.Created, 0).UTC(),
	}
	if pi.Customer != nil {
		in.CustomerID = pi.Customer.ID
	}
	if pi.PaymentMethod != nil {
		in.PaymentMethod = pi.PaymentMethod.ID
	}
	return in
}

// mapStripeError keeps the SDK error as the cause; callers decide what, if
// anything, reaches the client.
func mapStripeError(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		code := string(se.Code)
		if code == "" {
			code = string(se.Type)
		}
		return &GatewayError{Code: code, Message: op + " failed", Err: err}
	}

	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &GatewayError{Code: CodeTimeout, Message: op + " timed out", Err: err}
	}
	return &GatewayError{Code: CodeUnavailable, Message: op + " failed", Err: err}
}
