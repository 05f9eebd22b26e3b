// Package tokenstd classifies mints as plain SPL Token or Token-2022.
package tokenstd

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/rpc"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/spl"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// ErrMintNotFound is returned when no token program owns a valid mint at
// the address.
var ErrMintNotFound = errors.New("mint not found")

// Standard is the token program family a mint belongs to.
type Standard int

const (
	Plain Standard = iota + 1
	ExtensionBearing
)

func (s Standard) String() string {
	switch s {
	case Plain:
		return "token"
	case ExtensionBearing:
		return "token-2022"
	default:
		return "unknown"
	}
}

// ProgramID is the token program that owns mints of this standard.
func (s Standard) ProgramID() solana.PublicKey {
	if s == ExtensionBearing {
		return constants.Token2022ProgramID
	}
	return constants.TokenProgramID
}

// MintInfo is a classified mint.
type MintInfo struct {
	Mint      solana.PublicKey
	Standard  Standard
	ProgramID solana.PublicKey
	Decimals  uint8
	Supply    uint64
	// Zero unless the mint carries a TransferHook extension.
	TransferHookProgram solana.PublicKey
}

func (m *MintInfo) HasTransferHook() bool {
	return !m.TransferHookProgram.IsZero()
}

// AccountReader is the ledger read the detector needs.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey, commitment string) (*rpc.AccountInfo, error)
}

// Detector resolves a mint's standard on every call. Results are not
// cached.
type Detector struct {
	reader     AccountReader
	commitment string
	logger     *logrus.Logger
}

func NewDetector(reader AccountReader, commitment string, logger *logrus.Logger) *Detector {
	if logger == nil {
		logger = logrus.New()
	}
	return &Detector{reader: reader, commitment: commitment, logger: logger}
}

type probe struct {
	standard Standard
	program  solana.PublicKey
}

// extension-bearing first
var probes = []probe{
	{standard: ExtensionBearing, program: constants.Token2022ProgramID},
	{standard: Plain, program: constants.TokenProgramID},
}

// Detect reads the mint account and classifies it.
func (d *Detector) Detect(ctx context.Context, mint solana.PublicKey) (*MintInfo, error) {
	if mint.IsZero() {
		return nil, fmt.Errorf("%w: zero address", ErrMintNotFound)
	}

	acc, err := d.reader.GetAccountInfo(ctx, mint, d.commitment)
	if err != nil {
		return nil, fmt.Errorf("read mint %s: %w", mint, err)
	}
	if acc == nil {
		return nil, fmt.Errorf("%w: %s does not exist", ErrMintNotFound, mint)
	}

	var probeErrs []error
	for _, p := range probes {
		info, err := p.read(mint, acc)
		if err == nil {
			d.logger.WithFields(logrus.Fields{
				"mint":     mint.String(),
				"standard": info.Standard.String(),
				"hook":     info.HasTransferHook(),
			}).Debug("mint classified")
			return info, nil
		}
		probeErrs = append(probeErrs, err)
	}

	return nil, fmt.Errorf("%w: %s: %w", ErrMintNotFound, mint, errors.Join(probeErrs...))
}

func (p probe) read(mint solana.PublicKey, acc *rpc.AccountInfo) (*MintInfo, error) {
	if !acc.Owner.Equals(p.program) {
		return nil, fmt.Errorf("%s: owner is %s", p.standard, acc.Owner)
	}
	m, err := spl.DecodeMint(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.standard, err)
	}

	info := &MintInfo{
		Mint:      mint,
		Standard:  p.standard,
		ProgramID: p.program,
		Decimals:  m.Decimals,
		Supply:    m.Supply,
	}
	if p.standard == ExtensionBearing {
		if hook, ok := spl.TransferHookProgram(acc.Data); ok {
			info.TransferHookProgram = hook
		}
	}
	return info, nil
}
