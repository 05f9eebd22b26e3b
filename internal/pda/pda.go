// Package pda derives the program addresses used by the AMM and the
// transfer-hook program. Every derivation here must match the on-chain
// seed conventions byte for byte.
package pda

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/gagliardetto/solana-go"
)

// ErrInvalidSeed is returned for empty or oversized seed parts and for
// zero or malformed public keys.
var ErrInvalidSeed = errors.New("invalid seed")

// Derive returns the canonical program address for seeds under programID.
func Derive(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := DeriveWithBump(seeds, programID)
	return addr, err
}

// DeriveWithBump is Derive plus the bump that produced the address.
func DeriveWithBump(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	if programID.IsZero() {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: program id is zero", ErrInvalidSeed)
	}
	// One seed slot is reserved for the bump.
	if len(seeds) == 0 || len(seeds) > solana.MaxSeeds-1 {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: %d seed parts", ErrInvalidSeed, len(seeds))
	}
	for i, s := range seeds {
		if len(s) == 0 {
			return solana.PublicKey{}, 0, fmt.Errorf("%w: seed %d is empty", ErrInvalidSeed, i)
		}
		if len(s) > solana.MaxSeedLength {
			return solana.PublicKey{}, 0, fmt.Errorf("%w: seed %d is %d bytes", ErrInvalidSeed, i, len(s))
		}
	}

	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("find program address: %w", err)
	}
	return addr, bump, nil
}

// U64Seed encodes v as a fixed 8-byte little-endian seed.
func U64Seed(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// ParseAddress parses a base58 address and rejects the zero key.
func ParseAddress(s string) (solana.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: empty address", ErrInvalidSeed)
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %q: %v", ErrInvalidSeed, s, err)
	}
	if pk.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("%w: zero address", ErrInvalidSeed)
	}
	return pk, nil
}

func requireKey(pk solana.PublicKey, name string) error {
	if pk.IsZero() {
		return fmt.Errorf("%w: %s is zero", ErrInvalidSeed, name)
	}
	return nil
}

// Config derives the pool config account: ["config", le64(seed)].
func Config(programID solana.PublicKey, seed uint64) (solana.PublicKey, error) {
	return Derive([][]byte{[]byte(constants.SeedConfig), U64Seed(seed)}, programID)
}

// LPMint derives the pool LP mint: ["lp", config].
func LPMint(programID, config solana.PublicKey) (solana.PublicKey, error) {
	if err := requireKey(config, "config"); err != nil {
		return solana.PublicKey{}, err
	}
	return Derive([][]byte{[]byte(constants.SeedLP), config.Bytes()}, programID)
}

// SolVault derives the native SOL vault: ["sol_vault", config].
func SolVault(programID, config solana.PublicKey) (solana.PublicKey, error) {
	if err := requireKey(config, "config"); err != nil {
		return solana.PublicKey{}, err
	}
	return Derive([][]byte{[]byte(constants.SeedSolVault), config.Bytes()}, programID)
}

// HookFeeVault derives the pool hook-fee vault: ["hook_fees", config].
func HookFeeVault(programID, config solana.PublicKey) (solana.PublicKey, error) {
	if err := requireKey(config, "config"); err != nil {
		return solana.PublicKey{}, err
	}
	return Derive([][]byte{[]byte(constants.SeedHookFees), config.Bytes()}, programID)
}

// ExtraAccountMetas derives the hook validation account for mint,
// owned by the hook program: ["extra-account-metas", mint].
func ExtraAccountMetas(mint, hookProgramID solana.PublicKey) (solana.PublicKey, error) {
	if err := requireKey(mint, "mint"); err != nil {
		return solana.PublicKey{}, err
	}
	return Derive([][]byte{[]byte(constants.SeedExtraAccountMetas), mint.Bytes()}, hookProgramID)
}

// Delegate derives the hook program's fee authority: ["delegate"].
func Delegate(hookProgramID solana.PublicKey) (solana.PublicKey, error) {
	return Derive([][]byte{[]byte(constants.SeedDelegate)}, hookProgramID)
}

// AssociatedAddress derives the associated token account for (mint, owner)
// under tokenProgramID. Seeds: [owner, tokenProgram, mint] under the
// associated token account program.
func AssociatedAddress(mint, owner, tokenProgramID solana.PublicKey) (solana.PublicKey, error) {
	if err := requireKey(mint, "mint"); err != nil {
		return solana.PublicKey{}, err
	}
	if err := requireKey(owner, "owner"); err != nil {
		return solana.PublicKey{}, err
	}
	if err := requireKey(tokenProgramID, "token program"); err != nil {
		return solana.PublicKey{}, err
	}
	return Derive(
		[][]byte{owner.Bytes(), tokenProgramID.Bytes(), mint.Bytes()},
		constants.AssociatedTokenProgramID,
	)
}

// PoolAddresses is every account derived from a pool seed.
type PoolAddresses struct {
	ProgramID    solana.PublicKey
	Seed         uint64
	Config       solana.PublicKey
	LPMint       solana.PublicKey
	SolVault     solana.PublicKey
	HookFeeVault solana.PublicKey
	VaultX       solana.PublicKey
	VaultY       solana.PublicKey
}

// Pool derives all pool addresses. Vaults are the config's associated
// token accounts for each mint under that mint's token program.
func Pool(programID solana.PublicKey, seed uint64, mintX, mintY, tokenProgramX, tokenProgramY solana.PublicKey) (*PoolAddresses, error) {
	config, err := Config(programID, seed)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	lp, err := LPMint(programID, config)
	if err != nil {
		return nil, fmt.Errorf("lp mint: %w", err)
	}
	solVault, err := SolVault(programID, config)
	if err != nil {
		return nil, fmt.Errorf("sol vault: %w", err)
	}
	hookFees, err := HookFeeVault(programID, config)
	if err != nil {
		return nil, fmt.Errorf("hook fee vault: %w", err)
	}
	vaultX, err := AssociatedAddress(mintX, config, tokenProgramX)
	if err != nil {
		return nil, fmt.Errorf("vault x: %w", err)
	}
	vaultY, err := AssociatedAddress(mintY, config, tokenProgramY)
	if err != nil {
		return nil, fmt.Errorf("vault y: %w", err)
	}

	return &PoolAddresses{
		ProgramID:    programID,
		Seed:         seed,
		Config:       config,
		LPMint:       lp,
		SolVault:     solVault,
		HookFeeVault: hookFees,
		VaultX:       vaultX,
		VaultY:       vaultY,
	}, nil
}
