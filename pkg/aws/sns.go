package aws

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// EventPublisher delivers a serialized payment event to a topic. Both the SNS
// client and the Kafka producer implement it.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, message []byte) error
}

type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes payment events to SNS. The event type becomes a message
// attribute so subscribers can filter; FIFO topics are grouped by session.
type SNSClient struct {
	client snsAPI
}

func NewSNSClient(cfg sdkaws.Config) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg)}
}

func NewSNSClientWithAPI(client snsAPI) *SNSClient {
	return &SNSClient{client: client}
}

// eventHeader is the part of a payment event the publisher routes on.
type eventHeader struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

func (s *SNSClient) Publish(ctx context.Context, topicArn string, message []byte) error {
	if topicArn == "" {
		return fmt.Errorf("sns publish: empty topic arn")
	}

	var hdr eventHeader
	_ = json.Unmarshal(message, &hdr)

	in := &sns.PublishInput{
		TopicArn: sdkaws.String(topicArn),
		Message:  sdkaws.String(string(message)),
	}
	if hdr.Type != "" {
		in.MessageAttributes = map[string]types.MessageAttributeValue{
			"event_type": {DataType: sdkaws.String("String"), StringValue: sdkaws.String(hdr.Type)},
		}
	}
	if strings.HasSuffix(topicArn, ".fifo") {
		group := hdr.SessionID
		if group == "" {
			group = "payments"
		}
		sum := sha256.Sum256(message)
		in.MessageGroupId = sdkaws.String(group)
		in.MessageDeduplicationId = sdkaws.String(hex.EncodeToString(sum[:]))
	}

	if _, err := s.client.Publish(ctx, in); err != nil {
		return fmt.Errorf("sns publish to %s: %w", topicArn, err)
	}
	return nil
}
