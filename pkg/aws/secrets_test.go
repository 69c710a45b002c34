package aws_test

import (
	"context"
	"errors"
	"testing"

	aws_pkg "pos-payment-service/pkg/aws"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretsManager struct {
	values map[string]string
	calls  int
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[sdkaws.ToString(in.SecretId)]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: sdkaws.String(v)}, nil
}

func TestSecretsClient_CachesValues(t *testing.T) {
	fake := &fakeSecretsManager{values: map[string]string{"payments/STAFF_JWT_SECRET": "s3cret"}}
	c := aws_pkg.NewSecretsClientWithAPI(fake)

	for i := 0; i < 3; i++ {
		v, err := c.GetSecret(context.Background(), "payments/STAFF_JWT_SECRET")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)
	}
	assert.Equal(t, 1, fake.calls)
}

func TestSecretsClient_GetSecretMap(t *testing.T) {
	fake := &fakeSecretsManager{values: map[string]string{
		"payments/STRIPE": `{"STRIPE_API_KEY":"sk_test_1","STRIPE_WEBHOOK_SECRET":"whsec_1"}`,
		"payments/BROKEN": `sk_test_1`,
	}}
	c := aws_pkg.NewSecretsClientWithAPI(fake)

	m, err := c.GetSecretMap(context.Background(), "payments/STRIPE")
	require.NoError(t, err)
	assert.Equal(t, "whsec_1", m["STRIPE_WEBHOOK_SECRET"])

	_, err = c.GetSecretMap(context.Background(), "payments/BROKEN")
	assert.Error(t, err)

	_, err = c.GetSecret(context.Background(), "payments/MISSING")
	assert.ErrorContains(t, err, "payments/MISSING")
}
