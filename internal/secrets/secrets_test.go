package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVault struct {
	values map[string]string
	err    error
}

func (f fakeVault) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	if f.err != nil {
		return azsecrets.GetSecretResponse{}, f.err
	}
	var resp azsecrets.GetSecretResponse
	if v, ok := f.values[name]; ok {
		resp.Value = &v
	}
	return resp, nil
}

func TestFallbackProvider_IgnoresName(t *testing.T) {
	p, err := New(Options{UseFallback: true, VaultName: "blog-vault", FallbackValue: "s3cret"})
	require.NoError(t, err)

	for _, name := range []string{"db-password", "anything", ""} {
		got, err := p.GetSecret(context.Background(), name)
		require.NoError(t, err)
		assert.Equal(t, "s3cret", got)
	}
}

func TestFallbackProvider_NoVaultConfigured(t *testing.T) {
	p, err := New(Options{})
	require.NoError(t, err)

	_, err = p.GetSecret(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoFallback)
}

func TestOptions_ImplicitFallback(t *testing.T) {
	assert.True(t, Options{}.ImplicitFallback(), "no vault and no explicit choice")
	assert.False(t, Options{UseFallback: true}.ImplicitFallback())
	assert.False(t, Options{VaultName: "blog-vault"}.ImplicitFallback())
	assert.False(t, Options{VaultName: "blog-vault", UseFallback: true}.ImplicitFallback())
}

func TestVaultProvider(t *testing.T) {
	p := &VaultProvider{client: fakeVault{values: map[string]string{"api-key": "abc"}}}

	got, err := p.GetSecret(context.Background(), "api-key")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	_, err = p.GetSecret(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestVaultProvider_ErrorPropagates(t *testing.T) {
	p := &VaultProvider{client: fakeVault{err: errors.New("403 Forbidden")}}

	got, err := p.GetSecret(context.Background(), "api-key")
	assert.Error(t, err)
	assert.Empty(t, got)
	assert.Contains(t, err.Error(), "403 Forbidden")
}
