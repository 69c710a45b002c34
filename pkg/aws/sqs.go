package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// SQSAPI is the subset of the SQS client the consumer uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

const (
	defaultErrorBackoff = time.Second
	maxErrorBackoff     = 30 * time.Second
)

// SQSConsumer long-polls one queue.
type SQSConsumer struct {
	client       SQSAPI
	queueURL     string
	logger       *zap.Logger
	errorBackoff time.Duration
}

// NewSQSConsumer creates a consumer for the given queue URL.
func NewSQSConsumer(cfg sdkaws.Config, queueURL string, logger *zap.Logger) *SQSConsumer {
	return NewSQSConsumerWithClient(sqs.NewFromConfig(cfg), queueURL, logger)
}

func NewSQSConsumerWithClient(client SQSAPI, queueURL string, logger *zap.Logger) *SQSConsumer {
	return &SQSConsumer{client: client, queueURL: queueURL, logger: logger, errorBackoff: defaultErrorBackoff}
}

// WithErrorBackoff sets the first wait after a failed receive. Consecutive
// failures double it up to 30s.
func (c *SQSConsumer) WithErrorBackoff(d time.Duration) *SQSConsumer {
	c.errorBackoff = d
	return c
}

// MessageHandler processes one message body. A nil return deletes the message;
// an error leaves it to reappear after the visibility timeout.
type MessageHandler func(ctx context.Context, body string) error

// StartPolling runs until ctx is cancelled.
func (c *SQSConsumer) StartPolling(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Starting SQS polling", zap.String("queue_url", c.queueURL))
	backoff := c.errorBackoff
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("SQS polling stopped", zap.String("queue_url", c.queueURL))
			return ctx.Err()
		default:
		}
		err := c.PollOnce(ctx, handler)
		if err == nil || errors.Is(err, context.Canceled) {
			backoff = c.errorBackoff
			continue
		}

		c.logger.Warn("Error polling SQS", zap.Duration("retry_in", backoff), zap.Error(err))
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info("SQS polling stopped", zap.String("queue_url", c.queueURL))
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, maxErrorBackoff)
	}
}

// PollOnce receives one batch and hands each message to handler.
func (c *SQSConsumer) PollOnce(ctx context.Context, handler MessageHandler) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            sdkaws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   30,
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, msg := range result.Messages {
		if msg.Body == nil {
			continue
		}
		if err := handler(ctx, *msg.Body); err != nil {
			c.logger.Warn("Failed to process SQS message", zap.String("message_id", sdkaws.ToString(msg.MessageId)), zap.Error(err))
			continue
		}
		if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      sdkaws.String(c.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			c.logger.Warn("Failed to delete SQS message", zap.Error(err))
		}
	}
	return nil
}
