// Package keys loads and persists the operating signer. Every backend
// implements Provider; Resolve applies the identity source precedence.
package keys

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sol "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

var (
	// ErrNoKey is returned by Load when the backend holds no key.
	ErrNoKey = errors.New("no key material")
	// ErrKeyExists is returned by GenerateAndPersist when a key is already stored.
	ErrKeyExists = errors.New("key already persisted")
	// ErrInvalidKey is returned for malformed secret material.
	ErrInvalidKey = errors.New("invalid key material")
	// ErrReadOnly is returned by providers that cannot persist.
	ErrReadOnly = errors.New("key provider is read-only")
)

// Provider is a source of the signing keypair.
type Provider interface {
	// Load returns the stored key, or ErrNoKey.
	Load(ctx context.Context) (sol.PrivateKey, error)
	// GenerateAndPersist creates a fresh key and stores it exactly once.
	GenerateAndPersist(ctx context.Context) (sol.PrivateKey, error)
	// String names the backend for logs.
	String() string
}

// ParsePrivateKey accepts a solana-keygen JSON array or a base58 string.
func ParsePrivateKey(secret []byte) (sol.PrivateKey, error) {
	s := bytes.TrimSpace(secret)
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	var raw []byte
	if s[0] == '[' {
		var ints []int
		if err := json.Unmarshal(s, &ints); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: byte %d out of range", ErrInvalidKey, i)
			}
			raw[i] = byte(v)
		}
	} else {
		decoded, err := base58.Decode(strings.TrimSpace(string(s)))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		raw = decoded
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidKey, len(raw), ed25519.PrivateKeySize)
	}
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: public half does not match secret", ErrInvalidKey)
	}
	return sol.PrivateKey(raw), nil
}

// EncodeJSON renders key in the solana-keygen JSON array format.
func EncodeJSON(key sol.PrivateKey) []byte {
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	out, _ := json.Marshal(ints)
	return out
}

func generate() (sol.PrivateKey, error) {
	key, err := sol.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}
