package models

// Amounts in these payloads are major units (dollars). Conversion to minor
// units happens in the service layer.

// RequestMetadata is the client-supplied part of Metadata.
type RequestMetadata struct {
	VenueID     string            `json:"venueId"`
	TableNumber string            `json:"tableNumber"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// LineItemRequest is one bill line in a calculate-total request.
type LineItemRequest struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice" binding:"gte=0"`
	Quantity  int     `json:"quantity" binding:"gt=0"`
}

// CalculateTotalRequest is the payload for POST /api/payments/calculate-total.
// Either Subtotal or Items must be set; TipAmount wins over TipPercentage.
type CalculateTotalRequest struct {
	Subtotal      *float64          `json:"subtotal"`
	Items         []LineItemRequest `json:"items" binding:"omitempty,dive"`
	TipPercentage *float64          `json:"tipPercentage"`
	TipAmount     *float64          `json:"tipAmount"`
	TaxRate       *float64          `json:"taxRate"`
	Currency      string            `json:"currency"`
}

// CreatePaymentIntentRequest is the payload for
// POST /api/payments/create-payment-intent. Amount is the client's own preview
// of the total; when Subtotal is sent the server recomputes and the two must
// agree.
type CreatePaymentIntentRequest struct {
	SessionID     string          `json:"sessionId"`
	Amount        *float64        `json:"amount"`
	Subtotal      *float64        `json:"subtotal"`
	TipPercentage *float64        `json:"tipPercentage"`
	TipAmount     *float64        `json:"tipAmount"`
	TaxRate       *float64        `json:"taxRate"`
	Currency      string          `json:"currency"`
	CustomerID    *string         `json:"customerId"`
	Metadata      RequestMetadata `json:"metadata"`
}

// CreateCustomerRequest is the payload for POST /api/payments/create-customer.
type CreateCustomerRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// AddTipRequest is the payload for POST /api/payments/add-tip.
type AddTipRequest struct {
	PaymentIntentID string  `json:"paymentIntentId" binding:"required"`
	TipAmount       float64 `json:"tipAmount"`
}

// RefundRequest is the payload for POST /api/payments/refund. A nil Amount
// refunds the remaining balance.
type RefundRequest struct {
	PaymentIntentID string   `json:"paymentIntentId" binding:"required"`
	Amount          *float64 `json:"amount"`
	Reason          string   `json:"reason"`
}

// IntentView is returned after creating a primary or tip intent.
type IntentView struct {
	ClientSecret    string  `json:"clientSecret"`
	PaymentIntentID string  `json:"paymentIntentId"`
	Amount          float64 `json:"amount"`
	Status          string  `json:"status"`
}

// CreateIntentResult bundles the intent with the session it belongs to.
type CreateIntentResult struct {
	Intent  IntentView      `json:"paymentIntent"`
	Session *PaymentSession `json:"-"`
	Totals  TotalsBreakdown `json:"-"`
}

// RefundView is returned from POST /api/payments/refund.
type RefundView struct {
	RefundID string  `json:"refundId"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status"`
	Reason   string  `json:"reason"`
}

// PaymentView is returned from GET /api/payments/payment/:paymentIntentId.
type PaymentView struct {
	ID            string            `json:"id"`
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	Customer      string            `json:"customer,omitempty"`
	Metadata      map[string]string `json:"metadata"`
	Created       int64             `json:"created"`
	PaymentMethod string            `json:"paymentMethod,omitempty"`
}

// NewPaymentView renders a provider intent for clients.
func NewPaymentView(in *Intent) PaymentView {
	return PaymentView{
		ID:            in.IntentID,
		Amount:        MajorUnits(in.AmountCents),
		Currency:      in.Currency,
		Status:        string(in.Status),
		Customer:      in.CustomerID,
		Metadata:      in.Metadata,
		Created:       in.Created.Unix(),
		PaymentMethod: in.PaymentMethod,
	}
}

// SessionView is returned from the session endpoints.
type SessionView struct {
	SessionID   string       `json:"sessionId"`
	VenueID     string       `json:"venueId"`
	TableNumber string       `json:"tableNumber"`
	CustomerID  string       `json:"customerId,omitempty"`
	IntentID    string       `json:"paymentIntentId,omitempty"`
	TipIntentID string       `json:"tipIntentId,omitempty"`
	Status      string       `json:"status"`
	Totals      TotalsView   `json:"totals"`
	Refunded    float64      `json:"refunded"`
	Refunds     []RefundView `json:"refunds"`
}

// NewSessionView renders a session for clients.
func NewSessionView(s *PaymentSession) SessionView {
	v := SessionView{
		SessionID:   s.SessionID,
		VenueID:     s.VenueID,
		TableNumber: s.TableNumber,
		CustomerID:  deref(s.CustomerID),
		IntentID:    deref(s.IntentID),
		TipIntentID: deref(s.TipIntentID),
		Status:      string(s.Status),
		Totals:      s.Totals().View(),
		Refunded:    MajorUnits(s.RefundedCents),
		Refunds:     make([]RefundView, 0, len(s.Refunds)),
	}
	for _, r := range s.Refunds {
		v.Refunds = append(v.Refunds, RefundView{
			RefundID: r.RefundID,
			Amount:   MajorUnits(r.AmountCents),
			Status:   r.Status,
			Reason:   r.Reason,
		})
	}
	return v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
