package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names published by the payment service.
const (
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"

	MetricIntentsCreated   = "PaymentIntentsCreated"
	MetricPaymentSucceeded = "PaymentSucceeded"
	MetricPaymentFailed    = "PaymentFailed"
	MetricTipAdded         = "TipAdded"
	MetricPaymentRefunded  = "PaymentRefunded"
	MetricGatewayErrors    = "GatewayErrors"
	MetricGatewayLatency   = "GatewayLatency"
	MetricSQSMessages      = "SQSMessagesProcessed"
)

type metricsAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsClient publishes CloudWatch metrics. A disabled client accepts every
// call and sends nothing.
type MetricsClient struct {
	client    metricsAPI
	namespace string
	enabled   bool
}

func NewMetricsClient(cfg sdkaws.Config, namespace string, enabled bool) *MetricsClient {
	if namespace == "" {
		namespace = "POSPayments"
	}
	return &MetricsClient{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		enabled:   enabled,
	}
}

// NewDisabledMetricsClient is used when CloudWatch is off.
func NewDisabledMetricsClient() *MetricsClient {
	return &MetricsClient{namespace: "POSPayments"}
}

func (m *MetricsClient) PutMetric(ctx context.Context, name string, value float64, unit types.StandardUnit, dimensions map[string]string) error {
	if !m.enabled {
		return nil
	}

	dims := make([]types.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, types.Dimension{Name: sdkaws.String(k), Value: sdkaws.String(v)})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(m.namespace),
		MetricData: []types.MetricDatum{{
			MetricName: sdkaws.String(name),
			Value:      sdkaws.Float64(value),
			Unit:       unit,
			Timestamp:  sdkaws.Time(time.Now()),
			Dimensions: dims,
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to put metric %s: %w", name, err)
	}
	return nil
}

func (m *MetricsClient) RecordCount(ctx context.Context, name string, dimensions map[string]string) error {
	return m.PutMetric(ctx, name, 1, types.StandardUnitCount, dimensions)
}

func (m *MetricsClient) RecordLatency(ctx context.Context, name string, d time.Duration, dimensions map[string]string) error {
	return m.PutMetric(ctx, name, float64(d.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}

func (m *MetricsClient) IsEnabled() bool {
	return m.enabled
}
