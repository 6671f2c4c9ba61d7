package keystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/cryptox"
)

// MemoryProvider keeps a randomly generated key for the lifetime of the
// process. Data sealed with it cannot be read after a restart.
type MemoryProvider struct {
	alias string

	mu  sync.Mutex
	key *Key
}

func NewMemoryProvider(alias string) *MemoryProvider {
	if alias == "" {
		alias = DefaultAlias
	}
	return &MemoryProvider{alias: alias}
}

func (p *MemoryProvider) GetOrCreateKey(ctx context.Context) (*Key, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil {
		return p.key, nil
	}

	raw := common.GenerateRandByteArray(cryptox.KeySize)
	defer common.WipeByteArray(raw)

	key, err := newKey(p.alias, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
	}
	p.key = key
	return key, nil
}
