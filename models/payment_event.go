package models

import (
	"encoding/json"
	"time"
)

// Payment event types published after a committed session transition.
const (
	EventIntentCreated     = "payment_intent_created"
	EventPaymentSucceeded  = "payment_succeeded"
	EventPaymentFailed     = "payment_failed"
	EventTipAdded          = "tip_added"
	EventPartiallyRefunded = "payment_partially_refunded"
	EventRefunded          = "payment_refunded"
)

type PaymentEvent struct {
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	VenueID     string    `json:"venue_id"`
	TableNumber string    `json:"table_number"`
	IntentID    string    `json:"intent_id,omitempty"`
	Status      string    `json:"status"` // session status after the transition
	Amount      int64     `json:"amount"` // smallest currency unit, amount moved by this event
	Total       int64     `json:"total"`
	Currency    string    `json:"currency"`
	Timestamp   time.Time `json:"timestamp"` // UTC event time
}

// NewPaymentEvent snapshots a session into an event.
func NewPaymentEvent(eventType string, s *PaymentSession, intentID string, amount int64) PaymentEvent {
	return PaymentEvent{
		Type:        eventType,
		SessionID:   s.SessionID,
		VenueID:     s.VenueID,
		TableNumber: s.TableNumber,
		IntentID:    intentID,
		Status:      string(s.Status),
		Amount:      amount,
		Total:       s.TotalCents,
		Currency:    s.Currency,
		Timestamp:   time.Now().UTC(),
	}
}

// EventBridgeEnvelope is the SQS body produced when provider events are routed
// through an EventBridge partner bus. Detail holds the provider event verbatim.
type EventBridgeEnvelope struct {
	ID         string          `json:"id"`
	DetailType string          `json:"detail-type"`
	Source     string          `json:"source"`
	Detail     json.RawMessage `json:"detail"`
}
