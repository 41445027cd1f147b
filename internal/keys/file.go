package keys

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	sol "github.com/gagliardetto/solana-go"
)

// FileProvider stores the key as a solana-keygen JSON file.
type FileProvider struct {
	Path string
}

// NewFileProvider creates a provider for path. A leading ~ expands to the
// home directory.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: expandHome(path)}
}

func (p *FileProvider) String() string {
	return "file:" + p.Path
}

// Load reads the key file.
func (p *FileProvider) Load(_ context.Context) (sol.PrivateKey, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoKey, p.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	key, err := ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("key file %s: %w", p.Path, err)
	}
	return key, nil
}

// syncKeyFile flushes the staged key before it is linked into place.
var syncKeyFile = (*os.File).Sync

// GenerateAndPersist writes a new key with owner-only permissions. The key is
// staged in a temporary file and hard-linked into place, so the path either
// holds a complete key or does not exist. An existing file is never
// overwritten.
func (p *FileProvider) GenerateAndPersist(_ context.Context) (sol.PrivateKey, error) {
	dir := filepath.Dir(p.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	if _, err := os.Lstat(p.Path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyExists, p.Path)
	}

	key, err := generate()
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p.Path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create key file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("chmod key file: %w", err)
	}
	if _, err := tmp.Write(EncodeJSON(key)); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write key file: %w", err)
	}
	if err := syncKeyFile(tmp); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("sync key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close key file: %w", err)
	}

	// Link fails on an existing target, unlike Rename.
	if err := os.Link(tmp.Name(), p.Path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyExists, p.Path)
		}
		return nil, fmt.Errorf("persist key file: %w", err)
	}
	return key, nil
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
