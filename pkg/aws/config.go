package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const defaultRegion = "us-east-1"

// LoadAWSConfig loads the default AWS config. Explicit AWS_ACCESS_KEY_ID /
// AWS_SECRET_ACCESS_KEY pairs are used as static credentials. When
// AWS_ENDPOINT (or the service-specific AWS_SQS_ENDPOINT / AWS_SNS_ENDPOINT)
// is set, every client built from the config targets that URL, which is how
// LocalStack is used in development.
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = defaultRegion
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}

	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secret, os.Getenv("AWS_SESSION_TOKEN")),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	if endpoint := firstEnv("AWS_SQS_ENDPOINT", "AWS_SNS_ENDPOINT", "AWS_ENDPOINT"); endpoint != "" {
		cfg.BaseEndpoint = sdkaws.String(endpoint)
	}
	return cfg, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
