package models

import "time"

// IntentStatus mirrors the provider's payment intent statuses.
type IntentStatus string

const (
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentStatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentStatusRequiresAction        IntentStatus = "requires_action"
	IntentStatusProcessing            IntentStatus = "processing"
	IntentStatusRequiresCapture       IntentStatus = "requires_capture"
	IntentStatusSucceeded             IntentStatus = "succeeded"
	IntentStatusCanceled              IntentStatus = "canceled"
)

// Reserved metadata keys. Extra entries never override these.
const (
	MetadataSessionID   = "session_id"
	MetadataVenueID     = "venue_id"
	MetadataTableNumber = "table_number"
	MetadataKind        = "kind"
)

// Metadata is attached to every provider object created for a session.
type Metadata struct {
	SessionID   string            `json:"sessionId"`
	VenueID     string            `json:"venueId"`
	TableNumber string            `json:"tableNumber"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// ToMap flattens the metadata for the provider.
func (m Metadata) ToMap() map[string]string {
	out := make(map[string]string, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}
	out[MetadataSessionID] = m.SessionID
	out[MetadataVenueID] = m.VenueID
	out[MetadataTableNumber] = m.TableNumber
	return out
}

// MetadataFromMap is the inverse of ToMap.
func MetadataFromMap(raw map[string]string) Metadata {
	m := Metadata{
		SessionID:   raw[MetadataSessionID],
		VenueID:     raw[MetadataVenueID],
		TableNumber: raw[MetadataTableNumber],
	}
	for k, v := range raw {
		switch k {
		case MetadataSessionID, MetadataVenueID, MetadataTableNumber:
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]string)
		}
		m.Extra[k] = v
	}
	return m
}

// CreateIntentParams is the input for PaymentGateway.CreateIntent.
type CreateIntentParams struct {
	AmountCents    int64
	Currency       string
	CustomerID     *string
	Metadata       Metadata
	IdempotencyKey string
}

// Intent is the normalized view of a provider payment intent.
type Intent struct {
	IntentID      string            `json:"id"`
	ClientSecret  string            `json:"-"`
	Status        IntentStatus      `json:"status"`
	AmountCents   int64             `json:"amount"`
	Currency      string            `json:"currency"`
	CustomerID    string            `json:"customer,omitempty"`
	Metadata      map[string]string `json:"metadata"`
	Created       time.Time         `json:"created"`
	PaymentMethod string            `json:"paymentMethod,omitempty"`
}

// CreateRefundParams is the input for PaymentGateway.CreateRefund. A nil
// AmountCents refunds whatever remains on the intent.
type CreateRefundParams struct {
	IntentID       string
	AmountCents    *int64
	Reason         string
	Metadata       Metadata
	IdempotencyKey string
}

// Refund is the normalized view of a provider refund.
type Refund struct {
	RefundID    string `json:"refundId"`
	AmountCents int64  `json:"amount"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
}

// CustomerParams is the input for PaymentGateway.FindOrCreateCustomer.
type CustomerParams struct {
	Email string
	Name  string
	Phone string
}

// Customer is the provider's customer record.
type Customer struct {
	CustomerID string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Created    bool   `json:"created"`
}

// WebhookEvent is a verified provider event reduced to what the session
// machine needs.
type WebhookEvent struct {
	EventID      string
	Type         string
	IntentID     string
	IntentStatus IntentStatus
	Metadata     map[string]string
}

// IsIntentEvent reports whether the event carries a payment intent.
func (e WebhookEvent) IsIntentEvent() bool {
	return e.IntentID != ""
}
