package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

// FileStore persists the registry as one JSON document holding the known
// mints and pools lists. Every write rewrites the document atomically.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type document struct {
	Mints []*MintHookMeta   `json:"hook_demo_mints"`
	Pools []*PoolDescriptor `json:"hook_demo_pools"`
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("registry path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) load() (*document, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var doc document
	if len(raw) == 0 {
		return &doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode registry %s: %w", s.path, err)
	}
	return &doc, nil
}

func (s *FileStore) save(doc *document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

func (s *FileStore) update(fn func(doc *document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	fn(doc)
	return s.save(doc)
}

func (s *FileStore) read() (*document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) PutMint(ctx context.Context, m *MintHookMeta) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()
	return s.update(func(doc *document) {
		for i, existing := range doc.Mints {
			if existing.Mint.Equals(m.Mint) {
				doc.Mints[i] = m
				return
			}
		}
		doc.Mints = append(doc.Mints, m)
	})
}

func (s *FileStore) GetMint(ctx context.Context, mint solana.PublicKey) (*MintHookMeta, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, m := range doc.Mints {
		if m.Mint.Equals(mint) {
			return m, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) ListMints(ctx context.Context) ([]*MintHookMeta, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	out := append([]*MintHookMeta{}, doc.Mints...)
	sort.Slice(out, func(i, j int) bool { return out[i].Mint.String() < out[j].Mint.String() })
	return out, nil
}

func (s *FileStore) DeleteMint(ctx context.Context, mint solana.PublicKey) error {
	return s.update(func(doc *document) {
		kept := doc.Mints[:0]
		for _, m := range doc.Mints {
			if !m.Mint.Equals(mint) {
				kept = append(kept, m)
			}
		}
		doc.Mints = kept
	})
}

func (s *FileStore) PutPool(ctx context.Context, p *PoolDescriptor) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	return s.update(func(doc *document) {
		for i, existing := range doc.Pools {
			if existing.ID == p.ID {
				doc.Pools[i] = p
				return
			}
		}
		doc.Pools = append(doc.Pools, p)
	})
}

func (s *FileStore) GetPool(ctx context.Context, key string) (*PoolDescriptor, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, p := range doc.Pools {
		if p.ID == key {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) ListPools(ctx context.Context) ([]*PoolDescriptor, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	out := append([]*PoolDescriptor{}, doc.Pools...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FileStore) DeletePool(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.update(func(doc *document) {
		kept := doc.Pools[:0]
		for _, p := range doc.Pools {
			if p.ID != key {
				kept = append(kept, p)
			}
		}
		doc.Pools = kept
	})
}

func (s *FileStore) Close() error { return nil }
