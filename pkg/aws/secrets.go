package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type secretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient resolves the service's credentials (database, payment
// provider keys, staff token secret) from Secrets Manager. Values are read
// once per process.
type SecretsClient struct {
	api   secretsAPI
	mu    sync.RWMutex
	cache map[string]string
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return NewSecretsClientWithAPI(secretsmanager.NewFromConfig(cfg))
}

func NewSecretsClientWithAPI(api secretsAPI) *SecretsClient {
	return &SecretsClient{api: api, cache: make(map[string]string)}
}

func (s *SecretsClient) cached(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cache[name]
	return v, ok
}

// GetSecret returns the string value of the named secret.
func (s *SecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	if v, ok := s.cached(name); ok {
		return v, nil
	}

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(name)})
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", name, err)
	}
	value := sdkaws.ToString(out.SecretString)
	if value == "" {
		return "", fmt.Errorf("secret %s is empty or binary", name)
	}

	s.mu.Lock()
	s.cache[name] = value
	s.mu.Unlock()
	return value, nil
}

// GetSecretMap reads a secret stored as a flat JSON object, the layout used
// for the DB and provider credential bundles.
func (s *SecretsClient) GetSecretMap(ctx context.Context, name string) (map[string]string, error) {
	raw, err := s.GetSecret(ctx, name)
	if err != nil {
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("secret %s is not a JSON object: %w", name, err)
	}
	return m, nil
}
