package services

import (
	"context"
	"encoding/json"

	"pos-payment-service/models"
	aws_pkg "pos-payment-service/pkg/aws"
	"pos-payment-service/providers"

	"go.uber.org/zap"
)

// MessagePoller is implemented by aws_pkg.SQSConsumer.
type MessagePoller interface {
	StartPolling(ctx context.Context, handler aws_pkg.MessageHandler) error
}

// IntentEventConsumer applies provider events delivered through an
// EventBridge rule into SQS. It is a second delivery path next to the
// webhook; both converge on ApplyIntentEvent, so duplicates are harmless.
type IntentEventConsumer struct {
	poller  MessagePoller
	service PaymentService
	metrics MetricsRecorder
	logger  *zap.Logger
}

func NewIntentEventConsumer(poller MessagePoller, service PaymentService, metrics MetricsRecorder, logger *zap.Logger) *IntentEventConsumer {
	return &IntentEventConsumer{poller: poller, service: service, metrics: metrics, logger: logger}
}

// Start blocks until ctx is cancelled.
func (c *IntentEventConsumer) Start(ctx context.Context) {
	c.logger.Info("Starting IntentEventConsumer (SQS)")
	if err := c.poller.StartPolling(ctx, c.HandleMessage); err != nil && ctx.Err() == nil {
		c.logger.Error("IntentEventConsumer stopped", zap.Error(err))
	}
}

// HandleMessage processes one SQS body. Bodies that can never be applied are
// dropped; transient failures are returned so SQS redelivers them.
func (c *IntentEventConsumer) HandleMessage(ctx context.Context, body string) error {
	payload := []byte(body)

	var env models.EventBridgeEnvelope
	if err := json.Unmarshal(payload, &env); err == nil && len(env.Detail) > 0 {
		payload = env.Detail
	}

	ev, err := providers.DecodeEvent(payload)
	if err != nil {
		c.logger.Warn("Dropping undecodable provider event", zap.Int("bytes", len(body)), zap.Error(err))
		return nil
	}

	if se := c.service.ApplyIntentEvent(ctx, ev); se != nil {
		if se.Kind == KindInternal || se.Retriable() {
			c.logger.Warn("Provider event will be retried", zap.String("event_id", ev.EventID), zap.Error(se))
			return se
		}
		c.logger.Warn("Dropping provider event", zap.String("event_id", ev.EventID), zap.Error(se))
		return nil
	}

	if c.metrics != nil {
		_ = c.metrics.RecordCount(ctx, aws_pkg.MetricSQSMessages, map[string]string{"Queue": "provider-events"})
	}
	c.logger.Debug("Provider event applied", zap.String("event_id", ev.EventID), zap.String("type", ev.Type))
	return nil
}
