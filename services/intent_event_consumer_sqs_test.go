package services_test

import (
	"context"
	"errors"
	"testing"

	"pos-payment-service/models"
	aws_pkg "pos-payment-service/pkg/aws"
	"pos-payment-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubService only implements ApplyIntentEvent; other methods panic.
type stubService struct {
	services.PaymentService
	applied []*models.WebhookEvent
	result  *services.ServiceError
}

func (s *stubService) ApplyIntentEvent(_ context.Context, ev *models.WebhookEvent) *services.ServiceError {
	s.applied = append(s.applied, ev)
	return s.result
}

type stubPoller struct {
	bodies []string
	errs   []error
}

func (p *stubPoller) StartPolling(ctx context.Context, handler aws_pkg.MessageHandler) error {
	for _, b := range p.bodies {
		p.errs = append(p.errs, handler(ctx, b))
	}
	return nil
}

const succeededEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "payment_intent.succeeded",
  "data": {"object": {"id": "pi_1", "object": "payment_intent", "status": "succeeded", "metadata": {"session_id": "table-7"}}}
}`

func TestIntentEventConsumer_RawEvent(t *testing.T) {
	svc := &stubService{}
	c := services.NewIntentEventConsumer(&stubPoller{}, svc, nil, zap.NewNop())

	require.NoError(t, c.HandleMessage(context.Background(), succeededEvent))
	require.Len(t, svc.applied, 1)
	assert.Equal(t, "evt_1", svc.applied[0].EventID)
	assert.Equal(t, "pi_1", svc.applied[0].IntentID)
	assert.Equal(t, models.IntentStatusSucceeded, svc.applied[0].IntentStatus)
	assert.Equal(t, "table-7", svc.applied[0].Metadata[models.MetadataSessionID])
}

func TestIntentEventConsumer_EventBridgeEnvelope(t *testing.T) {
	svc := &stubService{}
	c := services.NewIntentEventConsumer(&stubPoller{}, svc, nil, zap.NewNop())

	body := `{"id":"eb-1","detail-type":"payment_intent.succeeded","source":"aws.partner/stripe.com","detail":` + succeededEvent + `}`
	require.NoError(t, c.HandleMessage(context.Background(), body))
	require.Len(t, svc.applied, 1)
	assert.Equal(t, "pi_1", svc.applied[0].IntentID)
}

func TestIntentEventConsumer_DropsGarbage(t *testing.T) {
	svc := &stubService{}
	c := services.NewIntentEventConsumer(&stubPoller{}, svc, nil, zap.NewNop())

	assert.NoError(t, c.HandleMessage(context.Background(), "not json"))
	assert.Empty(t, svc.applied)
}

func TestIntentEventConsumer_ErrorHandling(t *testing.T) {
	tests := []struct {
		name    string
		result  *services.ServiceError
		wantErr bool
	}{
		{"applied", nil, false},
		{"internal is retried", &services.ServiceError{Kind: services.KindInternal, Err: errors.New("db down")}, true},
		{"busy is retried", &services.ServiceError{Kind: services.KindBusy}, true},
		{"invalid state is dropped", &services.ServiceError{Kind: services.KindInvalidState}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{result: tt.result}
			poller := &stubPoller{bodies: []string{succeededEvent}}
			c := services.NewIntentEventConsumer(poller, svc, nil, zap.NewNop())

			c.Start(context.Background())

			require.Len(t, poller.errs, 1)
			if tt.wantErr {
				assert.Error(t, poller.errs[0])
			} else {
				assert.NoError(t, poller.errs[0])
			}
		})
	}
}
