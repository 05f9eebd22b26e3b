package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	mints map[solana.PublicKey]MintHookMeta
	pools map[string]PoolDescriptor
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mints: make(map[solana.PublicKey]MintHookMeta),
		pools: make(map[string]PoolDescriptor),
	}
}

func (s *MemoryStore) PutMint(ctx context.Context, m *MintHookMeta) error {
	if err := m.Validate(); err != nil {
		return err
	}
	cp := *m
	cp.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.mints[m.Mint] = cp
	s.mu.Unlock()

	m.UpdatedAt = cp.UpdatedAt
	return nil
}

func (s *MemoryStore) GetMint(ctx context.Context, mint solana.PublicKey) (*MintHookMeta, error) {
	s.mu.RLock()
	m, ok := s.mints[mint]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) ListMints(ctx context.Context) ([]*MintHookMeta, error) {
	s.mu.RLock()
	out := make([]*MintHookMeta, 0, len(s.mints))
	for _, m := range s.mints {
		m := m
		out = append(out, &m)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Mint.String() < out[j].Mint.String() })
	return out, nil
}

func (s *MemoryStore) DeleteMint(ctx context.Context, mint solana.PublicKey) error {
	s.mu.Lock()
	delete(s.mints, mint)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) PutPool(ctx context.Context, p *PoolDescriptor) error {
	if err := p.Validate(); err != nil {
		return err
	}
	cp := *p
	if p.Reserves != nil {
		r := *p.Reserves
		cp.Reserves = &r
	}
	cp.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.pools[p.ID] = cp
	s.mu.Unlock()

	p.UpdatedAt = cp.UpdatedAt
	return nil
}

func (s *MemoryStore) GetPool(ctx context.Context, key string) (*PoolDescriptor, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	p, ok := s.pools[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if p.Reserves != nil {
		r := *p.Reserves
		p.Reserves = &r
	}
	return &p, nil
}

func (s *MemoryStore) ListPools(ctx context.Context) ([]*PoolDescriptor, error) {
	s.mu.RLock()
	out := make([]*PoolDescriptor, 0, len(s.pools))
	for _, p := range s.pools {
		p := p
		if p.Reserves != nil {
			r := *p.Reserves
			p.Reserves = &r
		}
		out = append(out, &p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeletePool(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.pools, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
