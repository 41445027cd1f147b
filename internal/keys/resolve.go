package keys

import (
	"context"
	"errors"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
)

// Origin records where the resolved key came from.
type Origin string

const (
	OriginFile      Origin = "file"
	OriginInline    Origin = "inline"
	OriginPersisted Origin = "persisted"
	OriginGenerated Origin = "generated"
)

// Source is the identity hint: an explicit key file, inline secret
// material, or neither, in which case Persist is used.
type Source struct {
	File   string
	Inline string

	// Persist loads a previously generated key or stores a new one.
	Persist Provider
}

// Resolve applies the precedence explicit file > inline secret >
// generate-and-persist. A key already stored by Persist is reused.
func Resolve(ctx context.Context, src Source) (sol.PrivateKey, Origin, error) {
	if src.File != "" {
		key, err := NewFileProvider(src.File).Load(ctx)
		if err != nil {
			return nil, "", err
		}
		return key, OriginFile, nil
	}
	if src.Inline != "" {
		key, err := (&InlineProvider{Secret: src.Inline}).Load(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("inline secret: %w", err)
		}
		return key, OriginInline, nil
	}
	if src.Persist == nil {
		return nil, "", fmt.Errorf("%w: no identity source configured", ErrNoKey)
	}

	key, err := src.Persist.Load(ctx)
	if err == nil {
		return key, OriginPersisted, nil
	}
	if !isNoKey(err) {
		return nil, "", fmt.Errorf("load %s: %w", src.Persist, err)
	}
	key, err = src.Persist.GenerateAndPersist(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("persist %s: %w", src.Persist, err)
	}
	return key, OriginGenerated, nil
}

func isNoKey(err error) bool {
	return errors.Is(err, ErrNoKey)
}
