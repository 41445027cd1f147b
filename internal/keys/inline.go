package keys

import (
	"context"
	"strings"

	sol "github.com/gagliardetto/solana-go"
)

// InlineProvider parses secret material passed through configuration,
// usually the HOOKLAB_SECRET_KEY environment variable.
type InlineProvider struct {
	Secret string
}

func (p *InlineProvider) String() string {
	return "inline"
}

// Load parses the secret.
func (p *InlineProvider) Load(_ context.Context) (sol.PrivateKey, error) {
	if strings.TrimSpace(p.Secret) == "" {
		return nil, ErrNoKey
	}
	return ParsePrivateKey([]byte(p.Secret))
}

// GenerateAndPersist is not supported for inline secrets.
func (p *InlineProvider) GenerateAndPersist(_ context.Context) (sol.PrivateKey, error) {
	return nil, ErrReadOnly
}
