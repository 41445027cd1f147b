package keys

import (
	"context"
	"errors"
	"testing"

	smpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	sol "github.com/gagliardetto/solana-go"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeSecrets struct {
	versions map[string][][]byte
	accessed []string
	failWith error
}

func (f *fakeSecrets) AccessSecretVersion(_ context.Context, req *smpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*smpb.AccessSecretVersionResponse, error) {
	f.accessed = append(f.accessed, req.Name)
	if f.failWith != nil {
		return nil, f.failWith
	}
	parent := req.Name[:len(req.Name)-len("/versions/latest")]
	v := f.versions[parent]
	if len(v) == 0 {
		return nil, status.Error(codes.NotFound, "no versions")
	}
	return &smpb.AccessSecretVersionResponse{Payload: &smpb.SecretPayload{Data: v[len(v)-1]}}, nil
}

func (f *fakeSecrets) AddSecretVersion(_ context.Context, req *smpb.AddSecretVersionRequest, _ ...gax.CallOption) (*smpb.SecretVersion, error) {
	f.versions[req.Parent] = append(f.versions[req.Parent], req.Payload.Data)
	return &smpb.SecretVersion{Name: req.Parent + "/versions/1"}, nil
}

func TestSecretManagerProvider_GenerateAndLoad(t *testing.T) {
	ctx := context.Background()
	client := &fakeSecrets{versions: map[string][][]byte{}}

	p, err := NewSecretManagerProvider(client, "lab", "hooklab-signer")
	require.NoError(t, err)
	assert.Equal(t, "secretmanager:projects/lab/secrets/hooklab-signer", p.String())

	_, err = p.Load(ctx)
	require.ErrorIs(t, err, ErrNoKey)

	key, err := p.GenerateAndPersist(ctx)
	require.NoError(t, err)

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), loaded.PublicKey())

	_, err = p.GenerateAndPersist(ctx)
	require.ErrorIs(t, err, ErrKeyExists)
	assert.Len(t, client.versions["projects/lab/secrets/hooklab-signer"], 1)
}

func TestSecretManagerProvider_LoadsExistingJSON(t *testing.T) {
	key := sol.NewWallet().PrivateKey
	client := &fakeSecrets{versions: map[string][][]byte{
		"projects/lab/secrets/signer": {EncodeJSON(key)},
	}}
	p, err := NewSecretManagerProvider(client, "", "projects/lab/secrets/signer")
	require.NoError(t, err)

	loaded, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), loaded.PublicKey())
	assert.Equal(t, []string{"projects/lab/secrets/signer/versions/latest"}, client.accessed)
}

func TestSecretManagerProvider_AccessError(t *testing.T) {
	client := &fakeSecrets{failWith: errors.New("permission denied")}
	p, err := NewSecretManagerProvider(client, "lab", "signer")
	require.NoError(t, err)

	_, err = p.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoKey)

	_, err = p.GenerateAndPersist(context.Background())
	require.Error(t, err)
}

func TestNewSecretManagerProvider_Validation(t *testing.T) {
	_, err := NewSecretManagerProvider(&fakeSecrets{}, "", "signer")
	require.Error(t, err)
	_, err = NewSecretManagerProvider(&fakeSecrets{}, "lab", " ")
	require.Error(t, err)
}
