// Package provision tops up a wrapped-SOL account so an instruction that
// spends it has enough balance.
package provision

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/pda"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/rpc"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/spl"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// AccountReader is the ledger read the provisioner needs.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey, commitment string) (*rpc.AccountInfo, error)
}

// Result describes the instructions that make Account hold at least
// Required. Create is always present; TopUp is empty when Delta is zero.
type Result struct {
	Account  solana.PublicKey
	Create   solana.Instruction
	TopUp    []solana.Instruction
	Current  uint64
	Required uint64
	Delta    uint64
}

// Instructions returns the create followed by any top-up.
func (r *Result) Instructions() []solana.Instruction {
	out := make([]solana.Instruction, 0, 1+len(r.TopUp))
	out = append(out, r.Create)
	return append(out, r.TopUp...)
}

// Provisioner wraps native SOL into the owner's associated account for a
// wrapped mint.
type Provisioner struct {
	reader       AccountReader
	mint         solana.PublicKey
	tokenProgram solana.PublicKey
	commitment   string
	logger       *logrus.Logger
}

func NewProvisioner(reader AccountReader, mint, tokenProgram solana.PublicKey, commitment string, logger *logrus.Logger) *Provisioner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Provisioner{
		reader:       reader,
		mint:         mint,
		tokenProgram: tokenProgram,
		commitment:   commitment,
		logger:       logger,
	}
}

// Mint is the wrapped mint this provisioner funds.
func (p *Provisioner) Mint() solana.PublicKey { return p.mint }

// TokenProgram owns the wrapped mint.
func (p *Provisioner) TokenProgram() solana.PublicKey { return p.tokenProgram }

// Ensure provisions the default wrapped mint.
func (p *Provisioner) Ensure(ctx context.Context, owner solana.PublicKey, required uint64) (*Result, error) {
	return p.EnsureFor(ctx, owner, p.mint, p.tokenProgram, required)
}

// EnsureFor provisions owner's associated account for mint so its token
// amount reaches required. A missing account counts as zero.
func (p *Provisioner) EnsureFor(ctx context.Context, owner, mint, tokenProgram solana.PublicKey, required uint64) (*Result, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("owner is required")
	}
	ata, err := pda.AssociatedAddress(mint, owner, tokenProgram)
	if err != nil {
		return nil, fmt.Errorf("wrapped account: %w", err)
	}

	current, err := p.balance(ctx, ata)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Account:  ata,
		Create:   spl.NewCreateATAIdempotentIx(owner, ata, owner, mint, tokenProgram),
		Current:  current,
		Required: required,
	}
	if current >= required {
		return res, nil
	}

	res.Delta = required - current
	transfer, err := spl.NewSystemTransferIx(owner, ata, res.Delta)
	if err != nil {
		return nil, err
	}
	res.TopUp = []solana.Instruction{transfer, spl.NewSyncNativeIx(ata, tokenProgram)}

	p.logger.WithFields(logrus.Fields{
		"account":  ata.String(),
		"current":  current,
		"required": required,
		"delta":    res.Delta,
	}).Debug("wrapped balance top-up")

	return res, nil
}

func (p *Provisioner) balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	info, err := p.reader.GetAccountInfo(ctx, account, p.commitment)
	if err != nil {
		return 0, fmt.Errorf("read wrapped account: %w", err)
	}
	if info == nil || len(info.Data) == 0 {
		return 0, nil
	}
	acc, err := spl.DecodeTokenAccount(info.Data)
	if err != nil {
		return 0, fmt.Errorf("wrapped account %s: %w", account, err)
	}
	return acc.Amount, nil
}
