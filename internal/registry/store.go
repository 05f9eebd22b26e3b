// Package registry stores known hooked mints and pool descriptors.
// Writes are last-writer-wins per key.
package registry

import (
	"context"
	"fmt"
	"regexp"

	"github.com/gagliardetto/solana-go"
)

var keyRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,200}$`)

// ValidateKey checks a pool key.
func ValidateKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Store is the registry's key-value surface.
type Store interface {
	PutMint(ctx context.Context, m *MintHookMeta) error
	GetMint(ctx context.Context, mint solana.PublicKey) (*MintHookMeta, error)
	ListMints(ctx context.Context) ([]*MintHookMeta, error)
	DeleteMint(ctx context.Context, mint solana.PublicKey) error

	PutPool(ctx context.Context, p *PoolDescriptor) error
	GetPool(ctx context.Context, key string) (*PoolDescriptor, error)
	ListPools(ctx context.Context) ([]*PoolDescriptor, error)
	DeletePool(ctx context.Context, key string) error

	Close() error
}
