package models_test

import (
	"testing"
	"time"

	"pos-payment-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmedSession(t *testing.T, totalCents int64) *models.PaymentSession {
	t.Helper()
	s := models.NewPaymentSession("sess-1", models.Metadata{SessionID: "sess-1", VenueID: "v1", TableNumber: "7"},
		models.TotalsBreakdown{
			Subtotal: models.Money{Amount: totalCents, Currency: "usd"},
			Total:    models.Money{Amount: totalCents, Currency: "usd"},
		}, nil)
	require.NoError(t, s.MarkIntentCreated("pi_1", totalCents))
	require.True(t, s.ApplyIntentStatus(models.IntentStatusSucceeded, time.Now()))
	return s
}

func TestMarkIntentCreated(t *testing.T) {
	s := models.NewPaymentSession("sess-1", models.Metadata{}, models.TotalsBreakdown{
		Total: models.Money{Amount: 6300, Currency: "usd"},
	}, nil)
	assert.Equal(t, models.SessionStatusPending, s.Status)

	require.NoError(t, s.MarkIntentCreated("pi_1", 6300))
	assert.Equal(t, models.SessionStatusIntentCreated, s.Status)
	assert.Equal(t, "pi_1", *s.IntentID)
	assert.Equal(t, int64(6300), s.ChargedCents)

	err := s.MarkIntentCreated("pi_2", 6300)
	assert.ErrorIs(t, err, models.ErrInvalidState)
	assert.Equal(t, "pi_1", *s.IntentID)
}

func TestMarkIntentCreated_ZeroTotal(t *testing.T) {
	s := models.NewPaymentSession("sess-1", models.Metadata{}, models.TotalsBreakdown{}, nil)
	err := s.MarkIntentCreated("pi_1", 0)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
	assert.Equal(t, models.SessionStatusPending, s.Status)
	assert.Nil(t, s.IntentID)
}

func TestApplyIntentStatus_SucceededIsIdempotent(t *testing.T) {
	s := models.NewPaymentSession("sess-1", models.Metadata{}, models.TotalsBreakdown{Total: models.Money{Amount: 100}}, nil)
	require.NoError(t, s.MarkIntentCreated("pi_1", 100))

	first := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, s.ApplyIntentStatus(models.IntentStatusSucceeded, first))
	assert.False(t, s.ApplyIntentStatus(models.IntentStatusSucceeded, first.Add(time.Minute)))
	assert.Equal(t, models.SessionStatusConfirmed, s.Status)
	assert.Equal(t, first, *s.ConfirmedAt)
}

func TestApplyIntentStatus_NonTerminalStatusesLeaveSession(t *testing.T) {
	for _, st := range []models.IntentStatus{
		models.IntentStatusRequiresPaymentMethod,
		models.IntentStatusRequiresAction,
		models.IntentStatusProcessing,
		models.IntentStatusRequiresCapture,
	} {
		s := models.NewPaymentSession("sess-1", models.Metadata{}, models.TotalsBreakdown{Total: models.Money{Amount: 100}}, nil)
		require.NoError(t, s.MarkIntentCreated("pi_1", 100))
		assert.False(t, s.ApplyIntentStatus(st, time.Now()), st)
		assert.Equal(t, models.SessionStatusIntentCreated, s.Status, st)
	}
}

func TestApplyIntentStatus_Canceled(t *testing.T) {
	s := models.NewPaymentSession("sess-1", models.Metadata{}, models.TotalsBreakdown{Total: models.Money{Amount: 100}}, nil)
	require.NoError(t, s.MarkIntentCreated("pi_1", 100))
	assert.True(t, s.ApplyIntentStatus(models.IntentStatusCanceled, time.Now()))
	assert.Equal(t, models.SessionStatusFailed, s.Status)
	assert.True(t, s.Status.IsTerminal())
	assert.NotNil(t, s.FailedAt)

	// failed is terminal
	assert.False(t, s.ApplyIntentStatus(models.IntentStatusSucceeded, time.Now()))
	assert.Equal(t, models.SessionStatusFailed, s.Status)

	c := confirmedSession(t, 100)
	assert.False(t, c.ApplyIntentStatus(models.IntentStatusCanceled, time.Now()))
	assert.Equal(t, models.SessionStatusConfirmed, c.Status)
}

func TestTipFlow(t *testing.T) {
	s := confirmedSession(t, 6300)

	require.NoError(t, s.BeginTip(500))
	assert.Equal(t, models.SessionStatusTipPending, s.Status)
	assert.ErrorIs(t, s.BeginTip(500), models.ErrInvalidState)

	require.NoError(t, s.CompleteTip("pi_tip_1", 500))
	assert.Equal(t, models.SessionStatusConfirmed, s.Status)
	assert.Equal(t, "pi_tip_1", *s.TipIntentID)
	assert.Equal(t, int64(500), s.TipCents)
	assert.Equal(t, int64(6800), s.TotalCents)
	assert.Equal(t, 1, s.TipCount)
	assert.Equal(t, int64(6300), s.ChargedCents, "tips are separate charges")

	totals := s.Totals()
	assert.Equal(t, totals.Subtotal.Amount+totals.Tax.Amount+totals.Tip.Amount, totals.Total.Amount)
}

func TestBeginTip_Guards(t *testing.T) {
	pending := models.NewPaymentSession("sess-1", models.Metadata{}, models.TotalsBreakdown{Total: models.Money{Amount: 100}}, nil)
	assert.ErrorIs(t, pending.BeginTip(100), models.ErrInvalidState)
	assert.Equal(t, models.SessionStatusPending, pending.Status)

	s := confirmedSession(t, 100)
	assert.ErrorIs(t, s.BeginTip(0), models.ErrInvalidAmount)
	assert.Equal(t, models.SessionStatusConfirmed, s.Status)

	require.NoError(t, s.BeginTip(50))
	s.AbortTip()
	assert.Equal(t, models.SessionStatusConfirmed, s.Status)
	assert.Equal(t, int64(100), s.TotalCents)
}

func TestRefunds_PartialThenFull(t *testing.T) {
	s := confirmedSession(t, 6300)

	require.NoError(t, s.RecordRefund(models.SessionRefund{RefundID: "re_1", AmountCents: 3000, Reason: "requested_by_customer"}))
	assert.Equal(t, models.SessionStatusConfirmed, s.Status)
	require.Len(t, s.Refunds, 1)
	assert.Equal(t, int64(3000), s.Refunds[0].AmountCents)
	assert.Equal(t, s.ID, s.Refunds[0].SessionRef)

	require.NoError(t, s.RecordRefund(models.SessionRefund{RefundID: "re_2", AmountCents: 3300}))
	assert.Equal(t, models.SessionStatusRefunded, s.Status)
	assert.Equal(t, int64(6300), s.RefundedCents)
	assert.Len(t, s.Refunds, 2)

	assert.ErrorIs(t, s.ValidateRefund(1), models.ErrInvalidState)
}

func TestRefund_ExceedsRefundable(t *testing.T) {
	s := confirmedSession(t, 6300)
	require.NoError(t, s.RecordRefund(models.SessionRefund{RefundID: "re_1", AmountCents: 3000}))

	err := s.RecordRefund(models.SessionRefund{RefundID: "re_2", AmountCents: 3301})
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
	assert.Equal(t, models.SessionStatusConfirmed, s.Status)
	assert.Equal(t, int64(3000), s.RefundedCents)
	assert.Len(t, s.Refunds, 1)

	assert.ErrorIs(t, s.ValidateRefund(0), models.ErrInvalidAmount)
}

func TestRefund_RequiresConfirmed(t *testing.T) {
	s := models.NewPaymentSession("sess-1", models.Metadata{}, models.TotalsBreakdown{Total: models.Money{Amount: 100}}, nil)
	require.NoError(t, s.MarkIntentCreated("pi_1", 100))
	assert.ErrorIs(t, s.ValidateRefund(50), models.ErrInvalidState)
}

func TestSetTotals_OnlyWhilePending(t *testing.T) {
	s := models.NewPaymentSession("sess-1", models.Metadata{}, models.TotalsBreakdown{Total: models.Money{Amount: 100}}, nil)
	require.NoError(t, s.SetTotals(models.TotalsBreakdown{Total: models.Money{Amount: 200, Currency: "usd"}}))
	assert.Equal(t, int64(200), s.TotalCents)

	require.NoError(t, s.MarkIntentCreated("pi_1", 200))
	assert.ErrorIs(t, s.SetTotals(models.TotalsBreakdown{Total: models.Money{Amount: 300}}), models.ErrInvalidState)
	assert.Equal(t, int64(200), s.TotalCents)
}

func TestIsValidRefundReason(t *testing.T) {
	assert.True(t, models.IsValidRefundReason("duplicate"))
	assert.True(t, models.IsValidRefundReason("requested_by_customer"))
	assert.False(t, models.IsValidRefundReason("changed_my_mind"))
}
