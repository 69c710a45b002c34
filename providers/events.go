package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"pos-payment-service/models"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
)

// SignatureHeader is the header carrying the provider's webhook signature.
const SignatureHeader = "Stripe-Signature"

// DecodeEvent parses a provider event that arrived over an already trusted
// channel (EventBridge → SQS). Webhook bodies must go through
// VerifyWebhookSignature instead.
func DecodeEvent(payload []byte) (*models.WebhookEvent, error) {
	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return normalizeEvent(ev)
}

func verifyStripeSignature(payload []byte, sigHeader, secret string) (*models.WebhookEvent, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrSignatureInvalid)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return normalizeEvent(ev)
}

func normalizeEvent(ev stripe.Event) (*models.WebhookEvent, error) {
	out := &models.WebhookEvent{EventID: ev.ID, Type: string(ev.Type)}
	if !strings.HasPrefix(out.Type, "payment_intent.") || ev.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent from event %s: %w", ev.ID, err)
	}
	out.IntentID = pi.ID
	out.IntentStatus = models.IntentStatus(pi.Status)
	out.Metadata = pi.Metadata
	return out, nil
}
