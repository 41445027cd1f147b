package keys

import (
	"context"
	"fmt"
	"strings"

	smpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	sol "github.com/gagliardetto/solana-go"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SecretClient is the subset of the Secret Manager client the provider
// uses. *secretmanager.Client satisfies it.
type SecretClient interface {
	AccessSecretVersion(ctx context.Context, req *smpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*smpb.AccessSecretVersionResponse, error)
	AddSecretVersion(ctx context.Context, req *smpb.AddSecretVersionRequest, opts ...gax.CallOption) (*smpb.SecretVersion, error)
}

// SecretManagerProvider stores the key as the latest version of a Secret
// Manager secret. The secret itself is created out of band.
type SecretManagerProvider struct {
	client SecretClient
	secret string // projects/<project>/secrets/<id>
}

// NewSecretManagerProvider creates a provider for secret, given either as
// a full resource name or as project and secret id.
func NewSecretManagerProvider(client SecretClient, project, secret string) (*SecretManagerProvider, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("secret name is empty")
	}
	if !strings.HasPrefix(secret, "projects/") {
		if strings.TrimSpace(project) == "" {
			return nil, fmt.Errorf("project is empty for secret %q", secret)
		}
		secret = fmt.Sprintf("projects/%s/secrets/%s", project, secret)
	}
	return &SecretManagerProvider{client: client, secret: secret}, nil
}

func (p *SecretManagerProvider) String() string {
	return "secretmanager:" + p.secret
}

// Load reads the latest secret version.
func (p *SecretManagerProvider) Load(ctx context.Context) (sol.PrivateKey, error) {
	name := p.secret + "/versions/latest"
	res, err := p.client.AccessSecretVersion(ctx, &smpb.AccessSecretVersionRequest{Name: name})
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: %s", ErrNoKey, name)
	}
	if err != nil {
		return nil, fmt.Errorf("access secret version %s: %w", name, err)
	}
	if res == nil || res.Payload == nil || len(res.Payload.Data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoKey, name)
	}
	return ParsePrivateKey(res.Payload.Data)
}

// GenerateAndPersist adds the first version of the secret. A secret that
// already has a version is left untouched.
func (p *SecretManagerProvider) GenerateAndPersist(ctx context.Context) (sol.PrivateKey, error) {
	if _, err := p.Load(ctx); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyExists, p.secret)
	} else if !isNoKey(err) {
		return nil, err
	}

	key, err := generate()
	if err != nil {
		return nil, err
	}
	if _, err := p.client.AddSecretVersion(ctx, &smpb.AddSecretVersionRequest{
		Parent:  p.secret,
		Payload: &smpb.SecretPayload{Data: EncodeJSON(key)},
	}); err != nil {
		return nil, fmt.Errorf("add secret version %s: %w", p.secret, err)
	}
	return key, nil
}
