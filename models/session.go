package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidState is returned when an operation is attempted in a status that
// does not allow it.
var ErrInvalidState = errors.New("invalid session state")

// SessionStatus is the lifecycle position of a checkout.
type SessionStatus string

const (
	SessionStatusPending       SessionStatus = "pending"
	SessionStatusIntentCreated SessionStatus = "intent_created"
	SessionStatusConfirmed     SessionStatus = "confirmed"
	SessionStatusTipPending    SessionStatus = "tip_pending"
	SessionStatusRefunded      SessionStatus = "refunded"
	SessionStatusFailed        SessionStatus = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusRefunded || s == SessionStatusFailed
}

// Refund reasons accepted by the provider.
const (
	RefundReasonDuplicate           = "duplicate"
	RefundReasonFraudulent          = "fraudulent"
	RefundReasonRequestedByCustomer = "requested_by_customer"
)

// IsValidRefundReason reports whether the provider accepts the reason.
func IsValidRefundReason(reason string) bool {
	switch reason {
	case RefundReasonDuplicate, RefundReasonFraudulent, RefundReasonRequestedByCustomer:
		return true
	}
	return false
}

// PaymentSession is one checkout at a table. Rows are kept as an audit record
// and are never deleted.
type PaymentSession struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	SessionID     string          `gorm:"type:varchar(128);uniqueIndex;not null" json:"session_id"`
	VenueID       string          `gorm:"type:varchar(128);index" json:"venue_id"`
	TableNumber   string          `gorm:"type:varchar(32)" json:"table_number"`
	CustomerID    *string         `gorm:"type:varchar(128)" json:"customer_id,omitempty"`
	IntentID      *string         `gorm:"type:varchar(255);uniqueIndex" json:"intent_id,omitempty"`
	TipIntentID   *string         `gorm:"type:varchar(255)" json:"tip_intent_id,omitempty"`
	Status        SessionStatus   `gorm:"type:varchar(20);not null" json:"status"`
	Currency      string          `gorm:"type:varchar(10);not null" json:"currency"`
	SubtotalCents int64           `gorm:"not null" json:"-"`
	TaxCents      int64           `gorm:"not null" json:"-"`
	TipCents      int64           `gorm:"not null" json:"-"`
	TotalCents    int64           `gorm:"not null" json:"-"`
	ChargedCents  int64           `gorm:"not null" json:"-"` // amount of the primary intent
	RefundedCents int64           `gorm:"not null" json:"-"`
	TipCount      int             `gorm:"not null" json:"-"`
	Refunds       []SessionRefund `gorm:"foreignKey:SessionRef;references:ID" json:"refunds"`
	ConfirmedAt   *time.Time      `json:"confirmed_at,omitempty"`
	FailedAt      *time.Time      `json:"failed_at,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// SessionRefund is one refund issued against a session's primary intent.
type SessionRefund struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	SessionRef  uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	RefundID    string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"refund_id"`
	AmountCents int64     `gorm:"not null" json:"-"`
	Reason      string    `gorm:"type:varchar(64)" json:"reason"`
	Status      string    `gorm:"type:varchar(32)" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// NewPaymentSession builds a pending session for the given totals.
func NewPaymentSession(sessionID string, meta Metadata, totals TotalsBreakdown, customerID *string) *PaymentSession {
	return &PaymentSession{
		ID:            uuid.New(),
		SessionID:     sessionID,
		VenueID:       meta.VenueID,
		TableNumber:   meta.TableNumber,
		CustomerID:    customerID,
		Status:        SessionStatusPending,
		Currency:      totals.Total.Currency,
		SubtotalCents: totals.Subtotal.Amount,
		TaxCents:      totals.Tax.Amount,
		TipCents:      totals.Tip.Amount,
		TotalCents:    totals.Total.Amount,
	}
}

// Totals returns the current breakdown, tips included.
func (s *PaymentSession) Totals() TotalsBreakdown {
	return TotalsBreakdown{
		Subtotal: Money{Amount: s.SubtotalCents, Currency: s.Currency},
		Tax:      Money{Amount: s.TaxCents, Currency: s.Currency},
		Tip:      Money{Amount: s.TipCents, Currency: s.Currency},
		Total:    Money{Amount: s.TotalCents, Currency: s.Currency},
	}
}

// SetTotals replaces the breakdown of a session that has not been charged yet.
func (s *PaymentSession) SetTotals(totals TotalsBreakdown) error {
	if s.Status != SessionStatusPending {
		return fmt.Errorf("%w: totals are fixed once an intent exists (status %s)", ErrInvalidState, s.Status)
	}
	s.Currency = totals.Total.Currency
	s.SubtotalCents = totals.Subtotal.Amount
	s.TaxCents = totals.Tax.Amount
	s.TipCents = totals.Tip.Amount
	s.TotalCents = totals.Total.Amount
	return nil
}

// Metadata returns the provider metadata for this session.
func (s *PaymentSession) Metadata() Metadata {
	return Metadata{SessionID: s.SessionID, VenueID: s.VenueID, TableNumber: s.TableNumber}
}

// MarkIntentCreated records the primary intent: pending → intent_created.
func (s *PaymentSession) MarkIntentCreated(intentID string, chargedCents int64) error {
	if s.Status != SessionStatusPending {
		return fmt.Errorf("%w: cannot create intent in status %s", ErrInvalidState, s.Status)
	}
	if s.TotalCents <= 0 || chargedCents <= 0 {
		return fmt.Errorf("%w: total must be greater than zero", ErrInvalidAmount)
	}
	s.IntentID = &intentID
	s.ChargedCents = chargedCents
	s.Status = SessionStatusIntentCreated
	return nil
}

// ApplyIntentStatus folds a provider-reported status into the session and
// reports whether anything changed. Repeating a status is a no-op.
func (s *PaymentSession) ApplyIntentStatus(status IntentStatus, at time.Time) bool {
	switch {
	case status == IntentStatusSucceeded && s.Status == SessionStatusIntentCreated:
		s.Status = SessionStatusConfirmed
		s.ConfirmedAt = &at
		return true
	case status == IntentStatusCanceled && (s.Status == SessionStatusPending || s.Status == SessionStatusIntentCreated):
		// a succeeded intent cannot be canceled, so confirmed sessions are left alone
		s.Status = SessionStatusFailed
		s.FailedAt = &at
		return true
	}
	return false
}

// BeginTip moves a confirmed session into tip_pending while the tip intent is
// created.
func (s *PaymentSession) BeginTip(amountCents int64) error {
	if s.Status != SessionStatusConfirmed {
		return fmt.Errorf("%w: tips require a confirmed payment (status %s)", ErrInvalidState, s.Status)
	}
	if amountCents <= 0 {
		return fmt.Errorf("%w: tip must be greater than zero", ErrInvalidAmount)
	}
	s.Status = SessionStatusTipPending
	return nil
}

// CompleteTip records the tip intent and returns the session to confirmed.
func (s *PaymentSession) CompleteTip(tipIntentID string, amountCents int64) error {
	if s.Status != SessionStatusTipPending {
		return fmt.Errorf("%w: no tip in progress (status %s)", ErrInvalidState, s.Status)
	}
	s.TipIntentID = &tipIntentID
	s.TipCents += amountCents
	s.TotalCents += amountCents
	s.TipCount++
	s.Status = SessionStatusConfirmed
	return nil
}

// AbortTip returns a tip_pending session to confirmed without changes.
func (s *PaymentSession) AbortTip() {
	if s.Status == SessionStatusTipPending {
		s.Status = SessionStatusConfirmed
	}
}

// RefundableCents is what is left to refund on the primary intent.
func (s *PaymentSession) RefundableCents() int64 {
	return s.ChargedCents - s.RefundedCents
}

// ValidateRefund checks a refund request without mutating the session.
func (s *PaymentSession) ValidateRefund(amountCents int64) error {
	if s.Status != SessionStatusConfirmed {
		return fmt.Errorf("%w: refunds require a confirmed payment (status %s)", ErrInvalidState, s.Status)
	}
	if amountCents <= 0 {
		return fmt.Errorf("%w: refund must be greater than zero", ErrInvalidAmount)
	}
	if amountCents > s.RefundableCents() {
		return fmt.Errorf("%w: refund %d exceeds refundable %d", ErrInvalidAmount, amountCents, s.RefundableCents())
	}
	return nil
}

// RecordRefund appends a completed refund; the session becomes refunded once
// the whole charge has been returned.
func (s *PaymentSession) RecordRefund(r SessionRefund) error {
	if err := s.ValidateRefund(r.AmountCents); err != nil {
		return err
	}
	r.SessionRef = s.ID
	s.Refunds = append(s.Refunds, r)
	s.RefundedCents += r.AmountCents
	if s.RefundedCents == s.ChargedCents {
		s.Status = SessionStatusRefunded
	}
	return nil
}
