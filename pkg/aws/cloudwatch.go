package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// CloudWatchLogsWriter ships each write as one log event. It satisfies
// io.Writer so it can back a zap core.
type CloudWatchLogsWriter struct {
	client        *cloudwatchlogs.Client
	logGroupName  string
	logStreamName string

	mu            sync.Mutex
	sequenceToken *string
}

// NewCloudWatchLogsWriter creates the log group (if needed) and a fresh stream
// named after the service and start time.
func NewCloudWatchLogsWriter(ctx context.Context, cfg sdkaws.Config, logGroup, serviceName string) (*CloudWatchLogsWriter, error) {
	if logGroup == "" {
		logGroup = "/pos/payments"
	}
	w := &CloudWatchLogsWriter{
		client:        cloudwatchlogs.NewFromConfig(cfg),
		logGroupName:  logGroup,
		logStreamName: fmt.Sprintf("%s-%d", serviceName, time.Now().Unix()),
	}
	if err := w.ensureLogGroup(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure log group: %w", err)
	}
	if _, err := w.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  sdkaws.String(w.logGroupName),
		LogStreamName: sdkaws.String(w.logStreamName),
	}); err != nil {
		return nil, fmt.Errorf("failed to create log stream: %w", err)
	}
	return w, nil
}

func (w *CloudWatchLogsWriter) ensureLogGroup(ctx context.Context) error {
	_, err := w.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: sdkaws.String(w.logGroupName),
	})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return err
	}
	// payment logs are kept for 90 days
	_, err = w.client.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    sdkaws.String(w.logGroupName),
		RetentionInDays: sdkaws.Int32(90),
	})
	return err
}

func (w *CloudWatchLogsWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := w.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  sdkaws.String(w.logGroupName),
		LogStreamName: sdkaws.String(w.logStreamName),
		SequenceToken: w.sequenceToken,
		LogEvents: []types.InputLogEvent{{
			Message:   sdkaws.String(string(p)),
			Timestamp: sdkaws.Int64(time.Now().UnixMilli()),
		}},
	})
	if err != nil {
		// a lost log line must not take the request down with it
		fmt.Fprintf(os.Stderr, "cloudwatch logs write failed: %v\n", err)
		return len(p), nil
	}
	w.sequenceToken = out.NextSequenceToken
	return len(p), nil
}
