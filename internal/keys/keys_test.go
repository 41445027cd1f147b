package keys

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrivateKey_Formats(t *testing.T) {
	key := sol.NewWallet().PrivateKey

	fromJSON, err := ParsePrivateKey(EncodeJSON(key))
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), fromJSON.PublicKey())

	fromBase58, err := ParsePrivateKey([]byte("  " + key.String() + "\n"))
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), fromBase58.PublicKey())
}

func TestParsePrivateKey_Invalid(t *testing.T) {
	key := sol.NewWallet().PrivateKey
	tampered := append(sol.PrivateKey(nil), key...)
	tampered[40] ^= 0xff

	tests := []struct {
		name   string
		secret []byte
	}{
		{"empty", nil},
		{"short json", []byte("[1,2,3]")},
		{"out of range", []byte("[256" + strings.Repeat(",0", 63) + "]")},
		{"bad base58", []byte("0OIl")},
		{"mismatched public half", EncodeJSON(tampered)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePrivateKey(tt.secret)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestFileProvider_GenerateOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "id.json")
	p := NewFileProvider(path)

	_, err := p.Load(ctx)
	require.ErrorIs(t, err, ErrNoKey)

	key, err := p.GenerateAndPersist(ctx)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), loaded.PublicKey())

	_, err = p.GenerateAndPersist(ctx)
	require.ErrorIs(t, err, ErrKeyExists)

	again, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), again.PublicKey(), "existing key must not be overwritten")
}

func TestFileProvider_FailedWriteLeavesNoKeyFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "id.json")
	p := NewFileProvider(path)

	syncKeyFile = func(*os.File) error { return errors.New("disk full") }
	_, err := p.GenerateAndPersist(ctx)
	syncKeyFile = (*os.File).Sync
	require.Error(t, err)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging file must be removed")

	_, err = p.Load(ctx)
	require.ErrorIs(t, err, ErrNoKey)

	key, err := p.GenerateAndPersist(ctx)
	require.NoError(t, err)
	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), loaded.PublicKey())

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "id.json", entries[0].Name())
}

func TestInlineProvider(t *testing.T) {
	ctx := context.Background()
	key := sol.NewWallet().PrivateKey

	loaded, err := (&InlineProvider{Secret: key.String()}).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), loaded.PublicKey())

	_, err = (&InlineProvider{}).Load(ctx)
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = (&InlineProvider{Secret: key.String()}).GenerateAndPersist(ctx)
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestResolve_Precedence(t *testing.T) {
	ctx := context.Background()
	fileKey := sol.NewWallet().PrivateKey
	inlineKey := sol.NewWallet().PrivateKey

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, EncodeJSON(fileKey), 0o600))
	persist := NewMemoryProvider(nil)

	key, origin, err := Resolve(ctx, Source{File: path, Inline: inlineKey.String(), Persist: persist})
	require.NoError(t, err)
	assert.Equal(t, OriginFile, origin)
	assert.Equal(t, fileKey.PublicKey(), key.PublicKey())

	key, origin, err = Resolve(ctx, Source{Inline: inlineKey.String(), Persist: persist})
	require.NoError(t, err)
	assert.Equal(t, OriginInline, origin)
	assert.Equal(t, inlineKey.PublicKey(), key.PublicKey())

	assert.Equal(t, 0, persist.Generated())
}

func TestResolve_GenerateThenReuse(t *testing.T) {
	ctx := context.Background()
	persist := NewMemoryProvider(nil)

	first, origin, err := Resolve(ctx, Source{Persist: persist})
	require.NoError(t, err)
	assert.Equal(t, OriginGenerated, origin)

	second, origin, err := Resolve(ctx, Source{Persist: persist})
	require.NoError(t, err)
	assert.Equal(t, OriginPersisted, origin)
	assert.Equal(t, first.PublicKey(), second.PublicKey())
	assert.Equal(t, 1, persist.Generated())
}

func TestResolve_MissingFileIsAnError(t *testing.T) {
	_, _, err := Resolve(context.Background(), Source{
		File:    filepath.Join(t.TempDir(), "absent.json"),
		Persist: NewMemoryProvider(nil),
	})
	require.ErrorIs(t, err, ErrNoKey)
}

func TestResolve_NoSource(t *testing.T) {
	_, _, err := Resolve(context.Background(), Source{})
	require.ErrorIs(t, err, ErrNoKey)
}
