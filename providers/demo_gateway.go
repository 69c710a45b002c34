package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pos-payment-service/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DemoGateway is an in-memory PaymentGateway for local development and demos.
// Config validation refuses it in production.
type DemoGateway struct {
	mu          sync.Mutex
	delay       time.Duration
	autoSucceed bool
	intents     map[string]*models.Intent
	refunded    map[string]int64
	customers   []models.Customer
	idempotent  map[string]any
	logger      *zap.Logger
}

// NewDemoGateway builds a demo gateway. Every call sleeps for delay; when
// autoSucceed is set new intents are created already succeeded.
func NewDemoGateway(delay time.Duration, autoSucceed bool, logger *zap.Logger) *DemoGateway {
	return &DemoGateway{
		delay:       delay,
		autoSucceed: autoSucceed,
		intents:     make(map[string]*models.Intent),
		refunded:    make(map[string]int64),
		idempotent:  make(map[string]any),
		logger:      logger,
	}
}

func (g *DemoGateway) wait(ctx context.Context) error {
	if g.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(g.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return &GatewayError{Code: CodeTimeout, Message: "demo gateway call timed out", Err: ctx.Err()}
	}
}

func (g *DemoGateway) CreateIntent(ctx context.Context, p models.CreateIntentParams) (*models.Intent, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	if p.AmountCents <= 0 {
		return nil, &GatewayError{Code: "amount_too_small", Message: "amount must be positive"}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.idempotent[p.IdempotencyKey].(*models.Intent); ok && p.IdempotencyKey != "" {
		cp := *prev
		return &cp, nil
	}

	id := "pi_demo_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	status := models.IntentStatusRequiresPaymentMethod
	if g.autoSucceed {
		status = models.IntentStatusSucceeded
	}
	in := &models.Intent{
		IntentID:     id,
		ClientSecret: id + "_secret_" + uuid.NewString()[:8],
		Status:       status,
		AmountCents:  p.AmountCents,
		Currency:     p.Currency,
		Metadata:     p.Metadata.ToMap(),
		Created:      time.Now().UTC(),
	}
	if p.CustomerID != nil {
		in.CustomerID = *p.CustomerID
	}
	g.intents[id] = in
	if p.IdempotencyKey != "" {
		g.idempotent[p.IdempotencyKey] = in
	}
	g.logger.Debug("Demo intent created", zap.String("intent_id", id), zap.Int64("amount", p.AmountCents))

	cp := *in
	return &cp, nil
}

func (g *DemoGateway) RetrieveIntent(ctx context.Context, intentID string) (*models.Intent, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	in, ok := g.intents[intentID]
	if !ok {
		return nil, &GatewayError{Code: CodeNotFound, Message: "no such payment intent: " + intentID}
	}
	cp := *in
	return &cp, nil
}

// SetIntentStatus stands in for the customer confirming (or abandoning) the
// payment on the client.
func (g *DemoGateway) SetIntentStatus(intentID string, status models.IntentStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	in, ok := g.intents[intentID]
	if !ok {
		return &GatewayError{Code: CodeNotFound, Message: "no such payment intent: " + intentID}
	}
	in.Status = status
	return nil
}

func (g *DemoGateway) CreateRefund(ctx context.Context, p models.CreateRefundParams) (*models.Refund, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.idempotent[p.IdempotencyKey].(*models.Refund); ok && p.IdempotencyKey != "" {
		cp := *prev
		return &cp, nil
	}

	in, ok := g.intents[p.IntentID]
	if !ok {
		return nil, &GatewayError{Code: CodeNotFound, Message: "no such payment intent: " + p.IntentID}
	}
	if in.Status != models.IntentStatusSucceeded {
		return nil, &GatewayError{Code: "charge_not_refundable", Message: "intent has not succeeded"}
	}
	remaining := in.AmountCents - g.refunded[p.IntentID]
	amount := remaining
	if p.AmountCents != nil {
		amount = *p.AmountCents
	}
	if amount <= 0 || amount > remaining {
		return nil, &GatewayError{Code: "amount_too_large", Message: fmt.Sprintf("refund %d exceeds remaining %d", amount, remaining)}
	}
	g.refunded[p.IntentID] += amount

	r := &models.Refund{
		RefundID:    "re_demo_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		AmountCents: amount,
		Status:      "succeeded",
		Reason:      p.Reason,
	}
	if p.IdempotencyKey != "" {
		g.idempotent[p.IdempotencyKey] = r
	}
	cp := *r
	return &cp, nil
}

func (g *DemoGateway) FindOrCreateCustomer(ctx context.Context, p models.CustomerParams) (*models.Customer, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, c := range g.customers {
		if strings.EqualFold(c.Email, p.Email) {
			cp := c
			cp.Created = false
			return &cp, nil
		}
	}
	c := models.Customer{
		CustomerID: "cus_demo_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Email:      p.Email,
		Name:       p.Name,
		Phone:      p.Phone,
		Created:    true,
	}
	g.customers = append(g.customers, c)
	return &c, nil
}

// VerifyWebhookSignature accepts Stripe-format signed payloads so the same
// tooling can drive the demo.
func (g *DemoGateway) VerifyWebhookSignature(payload []byte, sigHeader, secret string) (*models.WebhookEvent, error) {
	return verifyStripeSignature(payload, sigHeader, secret)
}
