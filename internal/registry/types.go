package registry

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/pda"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrNotFound   = errors.New("registry entry not found")
	ErrInvalid    = errors.New("invalid registry entry")
	ErrInvalidKey = errors.New("invalid registry key")
)

// MintHookMeta records the transfer-hook program registered for a mint.
type MintHookMeta struct {
	Mint          solana.PublicKey `json:"mint"`
	HookProgramID solana.PublicKey `json:"hookProgramId"`
	Name          string           `json:"name,omitempty"`
	Symbol        string           `json:"symbol,omitempty"`
	Decimals      *uint8           `json:"decimals,omitempty"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func (m *MintHookMeta) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil mint", ErrInvalid)
	}
	if m.Mint.IsZero() {
		return fmt.Errorf("%w: mint is required", ErrInvalid)
	}
	if m.HookProgramID.IsZero() {
		return fmt.Errorf("%w: hook program is required", ErrInvalid)
	}
	return nil
}

// Reserves is the last observed vault state of a pool.
type Reserves struct {
	X         uint64    `json:"x"`
	Y         uint64    `json:"y"`
	LPSupply  uint64    `json:"lpSupply"`
	HumanX    string    `json:"humanX,omitempty"`
	HumanY    string    `json:"humanY,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PoolDescriptor identifies a pool and every address derived from its seed.
type PoolDescriptor struct {
	ID            string           `json:"id"`
	ProgramID     solana.PublicKey `json:"programId"`
	Seed          uint64           `json:"seed"`
	Authority     solana.PublicKey `json:"authority"`
	MintX         solana.PublicKey `json:"mintX"`
	MintY         solana.PublicKey `json:"mintY"`
	FeeBps        uint16           `json:"feeBps"`
	TokenProgramX solana.PublicKey `json:"tokenProgramX"`
	TokenProgramY solana.PublicKey `json:"tokenProgramY"`
	Config        solana.PublicKey `json:"config"`
	LPMint        solana.PublicKey `json:"lpMint"`
	VaultX        solana.PublicKey `json:"vaultX"`
	VaultY        solana.PublicKey `json:"vaultY"`
	HookFees      bool             `json:"hookFees,omitempty"`

	// Custodian is set for pair-keyed pools whose vaults are the
	// custodian's own associated accounts rather than program PDAs.
	Custodian solana.PublicKey `json:"custodian,omitempty"`
	Reserves  *Reserves        `json:"reserves,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// PoolParams identifies a pool before its addresses are derived.
type PoolParams struct {
	ProgramID     solana.PublicKey
	Seed          uint64
	Authority     solana.PublicKey
	MintX         solana.PublicKey
	MintY         solana.PublicKey
	TokenProgramX solana.PublicKey
	TokenProgramY solana.PublicKey
	FeeBps        uint16
}

// NewPoolDescriptor derives the pool's addresses from its seed.
func NewPoolDescriptor(params PoolParams) (*PoolDescriptor, error) {
	addrs, err := pda.Pool(params.ProgramID, params.Seed, params.MintX, params.MintY, params.TokenProgramX, params.TokenProgramY)
	if err != nil {
		return nil, err
	}
	return &PoolDescriptor{
		ID:            SeedKey(params.Seed),
		ProgramID:     params.ProgramID,
		Seed:          params.Seed,
		Authority:     params.Authority,
		MintX:         params.MintX,
		MintY:         params.MintY,
		FeeBps:        params.FeeBps,
		TokenProgramX: params.TokenProgramX,
		TokenProgramY: params.TokenProgramY,
		Config:        addrs.Config,
		LPMint:        addrs.LPMint,
		VaultX:        addrs.VaultX,
		VaultY:        addrs.VaultY,
	}, nil
}

// NewCustodialPool describes a pool held in custodian's associated
// accounts, keyed by mint pair and custodian.
func NewCustodialPool(mintX, mintY, custodian, tokenProgramX, tokenProgramY solana.PublicKey, feeBps uint16) (*PoolDescriptor, error) {
	vaultX, err := pda.AssociatedAddress(mintX, custodian, tokenProgramX)
	if err != nil {
		return nil, fmt.Errorf("vault x: %w", err)
	}
	vaultY, err := pda.AssociatedAddress(mintY, custodian, tokenProgramY)
	if err != nil {
		return nil, fmt.Errorf("vault y: %w", err)
	}
	return &PoolDescriptor{
		ID:            PairKey(mintX, mintY, custodian),
		MintX:         mintX,
		MintY:         mintY,
		FeeBps:        feeBps,
		TokenProgramX: tokenProgramX,
		TokenProgramY: tokenProgramY,
		VaultX:        vaultX,
		VaultY:        vaultY,
		Custodian:     custodian,
	}, nil
}

// IsCustodial reports whether the pool is held by a custodian wallet.
func (p *PoolDescriptor) IsCustodial() bool {
	return !p.Custodian.IsZero()
}

// Addresses re-derives the full address set.
func (p *PoolDescriptor) Addresses() (*pda.PoolAddresses, error) {
	return pda.Pool(p.ProgramID, p.Seed, p.MintX, p.MintY, p.TokenProgramX, p.TokenProgramY)
}

// Validate checks required fields and that the stored addresses match
// their derivations.
func (p *PoolDescriptor) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil pool", ErrInvalid)
	}
	if err := ValidateKey(p.ID); err != nil {
		return err
	}
	if p.FeeBps > 10_000 {
		return fmt.Errorf("%w: fee %d bps", ErrInvalid, p.FeeBps)
	}
	if p.IsCustodial() {
		return p.validateCustodial()
	}
	addrs, err := p.Addresses()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch {
	case !addrs.Config.Equals(p.Config):
		return fmt.Errorf("%w: config %s does not match seed %d", ErrInvalid, p.Config, p.Seed)
	case !addrs.LPMint.Equals(p.LPMint):
		return fmt.Errorf("%w: lp mint %s does not match config", ErrInvalid, p.LPMint)
	case !addrs.VaultX.Equals(p.VaultX), !addrs.VaultY.Equals(p.VaultY):
		return fmt.Errorf("%w: vaults do not match config", ErrInvalid)
	}
	return nil
}

func (p *PoolDescriptor) validateCustodial() error {
	want, err := NewCustodialPool(p.MintX, p.MintY, p.Custodian, p.TokenProgramX, p.TokenProgramY, p.FeeBps)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !want.VaultX.Equals(p.VaultX) || !want.VaultY.Equals(p.VaultY) {
		return fmt.Errorf("%w: vaults are not the custodian's associated accounts", ErrInvalid)
	}
	return nil
}

// SeedKey is the registry key of a pool identified by its seed.
func SeedKey(seed uint64) string {
	return strconv.FormatUint(seed, 10)
}

// PairKey is the composite key used for pools registered by mint pair.
func PairKey(mintA, mintB, owner solana.PublicKey) string {
	return mintA.String() + "_" + mintB.String() + "_" + owner.String()
}
