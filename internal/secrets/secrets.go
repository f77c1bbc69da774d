package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

var (
	ErrNoFallback = errors.New("no fallback secret configured")
	ErrEmpty      = errors.New("secret has no value")
)

// Provider resolves a named secret.
type Provider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Options selects and configures a Provider.
type Options struct {
	VaultName    string
	TenantID     string
	ClientID     string
	ClientSecret string

	// UseFallback skips the vault and always answers with FallbackValue.
	UseFallback   bool
	FallbackValue string
}

// ImplicitFallback reports whether New falls back only because no vault is
// configured, not because the fallback was asked for.
func (o Options) ImplicitFallback() bool {
	return !o.UseFallback && o.VaultName == ""
}

// New returns the fallback provider when it is enabled or no vault is
// configured, and the Key Vault provider otherwise.
func New(opts Options) (Provider, error) {
	if opts.UseFallback || opts.VaultName == "" {
		return FallbackProvider{Value: opts.FallbackValue}, nil
	}
	return NewVaultProvider(opts)
}

// FallbackProvider answers every request with one configured value, whatever
// name was asked for.
type FallbackProvider struct {
	Value string
}

func (p FallbackProvider) GetSecret(ctx context.Context, name string) (string, error) {
	if p.Value == "" {
		return "", ErrNoFallback
	}
	return p.Value, nil
}

type secretGetter interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// VaultProvider reads the latest version of a secret from Azure Key Vault.
type VaultProvider struct {
	client secretGetter
}

func NewVaultProvider(opts Options) (*VaultProvider, error) {
	var (
		cred azcore.TokenCredential
		err  error
	)
	if opts.TenantID != "" && opts.ClientID != "" && opts.ClientSecret != "" {
		cred, err = azidentity.NewClientSecretCredential(opts.TenantID, opts.ClientID, opts.ClientSecret, nil)
	} else {
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", opts.VaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("key vault client: %w", err)
	}
	return &VaultProvider{client: client}, nil
}

func (p *VaultProvider) GetSecret(ctx context.Context, name string) (string, error) {
	resp, err := p.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("get secret %q: %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("get secret %q: %w", name, ErrEmpty)
	}
	return *resp.Value, nil
}
