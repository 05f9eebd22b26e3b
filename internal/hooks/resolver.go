// Package hooks resolves the extra accounts transfer-hook mints need.
package hooks

import (
	"context"
	"errors"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/registry"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/spl"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// MintLookup is the registry read the resolver needs.
type MintLookup interface {
	GetMint(ctx context.Context, mint solana.PublicKey) (*registry.MintHookMeta, error)
}

// Resolver maps mints to the hook accounts their transfers must carry.
// An unregistered mint resolves to no accounts.
type Resolver struct {
	lookup MintLookup
	logger *logrus.Logger
}

func NewResolver(lookup MintLookup, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{lookup: lookup, logger: logger}
}

// HookProgram returns the registered hook program for mint.
func (r *Resolver) HookProgram(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, bool) {
	if r.lookup == nil {
		return solana.PublicKey{}, false
	}
	meta, err := r.lookup.GetMint(ctx, mint)
	if err != nil {
		if !errors.Is(err, registry.ErrNotFound) {
			r.logger.WithFields(logrus.Fields{
				"mint":  mint.String(),
				"error": err,
			}).Warn("hook registry lookup failed, resolving without hook accounts")
		}
		return solana.PublicKey{}, false
	}
	return meta.HookProgramID, true
}

// Resolve returns the extra accounts for a transfer of mint: the hook
// program as a read-only non-signer, or nothing.
func (r *Resolver) Resolve(ctx context.Context, mint solana.PublicKey) solana.AccountMetaSlice {
	program, ok := r.HookProgram(ctx, mint)
	if !ok {
		return solana.AccountMetaSlice{}
	}
	return solana.AccountMetaSlice{solana.Meta(program)}
}

// ResolveAll resolves several mints, skipping duplicate hook programs.
func (r *Resolver) ResolveAll(ctx context.Context, mints ...solana.PublicKey) solana.AccountMetaSlice {
	out := solana.AccountMetaSlice{}
	seen := make(map[solana.PublicKey]bool)
	for _, mint := range mints {
		for _, meta := range r.Resolve(ctx, mint) {
			if seen[meta.PublicKey] {
				continue
			}
			seen[meta.PublicKey] = true
			out = append(out, meta)
		}
	}
	return out
}

// TransferChecked builds a transfer of mint with any hook accounts
// appended after the four token-program accounts.
func (r *Resolver) TransferChecked(
	ctx context.Context,
	source, mint, destination, owner solana.PublicKey,
	amount uint64,
	decimals uint8,
	tokenProgramID solana.PublicKey,
) solana.Instruction {
	ix := spl.NewTransferCheckedIx(source, mint, destination, owner, amount, decimals, tokenProgramID)
	ix.AccountValues = append(ix.AccountValues, r.Resolve(ctx, mint)...)
	return ix
}
