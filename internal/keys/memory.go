package keys

import (
	"context"
	"sync"

	sol "github.com/gagliardetto/solana-go"
)

// MemoryProvider keeps the key in process memory.
type MemoryProvider struct {
	mu        sync.Mutex
	key       sol.PrivateKey
	generated int
}

// NewMemoryProvider returns a provider holding key, which may be nil.
func NewMemoryProvider(key sol.PrivateKey) *MemoryProvider {
	return &MemoryProvider{key: key}
}

func (p *MemoryProvider) String() string {
	return "memory"
}

// Load returns the held key.
func (p *MemoryProvider) Load(_ context.Context) (sol.PrivateKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key == nil {
		return nil, ErrNoKey
	}
	return p.key, nil
}

// GenerateAndPersist creates a key if none is held.
func (p *MemoryProvider) GenerateAndPersist(_ context.Context) (sol.PrivateKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key != nil {
		return nil, ErrKeyExists
	}
	key, err := generate()
	if err != nil {
		return nil, err
	}
	p.key = key
	p.generated++
	return key, nil
}

// Generated returns how many keys were generated.
func (p *MemoryProvider) Generated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generated
}
