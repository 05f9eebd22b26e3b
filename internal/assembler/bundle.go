package assembler

import (
	"context"
	"fmt"
	"math"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/amm"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/hooks"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pda"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pricing"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/registry"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/spl"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/tokenstd"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Intent is a user request the assembler can run. Implementations live in
// this package.
type Intent interface {
	Name() string
	quote(ctx context.Context, a *Assembler, exec *Execution) error
	build(ctx context.Context, a *Assembler, exec *Execution) (*bundle, error)
}

// bundle is the ordered instruction list for one attempt. Account
// creations are collected separately so they always precede the
// instructions that depend on them.
type bundle struct {
	setup   []solana.Instruction
	created map[solana.PublicKey]bool

	// wrapped-SOL the bundle spends, provisioned once in finalize
	wrapped      uint64
	approvals    []solana.Instruction
	body         []solana.Instruction
	instructions []solana.Instruction
	coSigners    []solana.PrivateKey
	onConfirmed  func(ctx context.Context) error
}

func newBundle() *bundle {
	return &bundle{created: map[solana.PublicKey]bool{}}
}

// createATA adds an idempotent associated-account creation once per
// address.
func (b *bundle) createATA(payer, owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	ata, err := pda.AssociatedAddress(mint, owner, tokenProgram)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if !b.created[ata] {
		b.created[ata] = true
		b.setup = append(b.setup, spl.NewCreateATAIdempotentIx(payer, ata, owner, mint, tokenProgram))
	}
	return ata, nil
}

// addSetup appends non-creation setup such as wrapped-SOL top-ups. An
// associated-account creation already present is skipped.
func (b *bundle) addSetup(create solana.Instruction, account solana.PublicKey, rest ...solana.Instruction) {
	if !b.created[account] {
		b.created[account] = true
		b.setup = append(b.setup, create)
	}
	b.setup = append(b.setup, rest...)
}

// spend adds amount to the wrapped SOL the bundle must provision.
func (b *bundle) spend(amount uint64) error {
	if b.wrapped > math.MaxUint64-amount {
		return fmt.Errorf("%w: wrapped SOL needed exceeds u64", pricing.ErrOverflow)
	}
	b.wrapped += amount
	return nil
}

func (b *bundle) add(ixs ...solana.Instruction) {
	b.body = append(b.body, ixs...)
}

func (b *bundle) seal() *bundle {
	b.instructions = make([]solana.Instruction, 0, len(b.setup)+len(b.body))
	b.instructions = append(b.instructions, b.setup...)
	b.instructions = append(b.instructions, b.body...)
	return b
}

// detect classifies mint and compares its on-chain transfer hook with the
// registered one. A mismatch is a warning: transfers proceed with the
// registered accounts.
func (a *Assembler) detect(ctx context.Context, exec *Execution, mint solana.PublicKey) (*tokenstd.MintInfo, error) {
	info, err := a.detector.Detect(ctx, mint)
	if err != nil {
		return nil, err
	}

	registered, ok := a.resolver.HookProgram(ctx, mint)
	switch {
	case info.HasTransferHook() && !ok:
		exec.warn(fmt.Sprintf("mint %s has transfer hook %s but none is registered", mint, info.TransferHookProgram))
	case info.HasTransferHook() && !registered.Equals(info.TransferHookProgram):
		exec.warn(fmt.Sprintf("mint %s hook %s differs from registered %s", mint, info.TransferHookProgram, registered))
	case !info.HasTransferHook() && ok:
		exec.warn(fmt.Sprintf("mint %s is registered with hook %s but has none on-chain", mint, registered))
	default:
		return info, nil
	}
	a.logger.WithFields(logrus.Fields{
		"execution": exec.ID,
		"mint":      mint.String(),
		"onchain":   info.TransferHookProgram.String(),
		"registry":  registered.String(),
	}).Warn("transfer hook registry mismatch")
	return info, nil
}

// poolAccounts detects both mints of p and derives the AMM account view.
// Vaults are re-derived with the detected token programs.
func (a *Assembler) poolAccounts(ctx context.Context, exec *Execution, p *registry.PoolDescriptor) (amm.Pool, *tokenstd.MintInfo, *tokenstd.MintInfo, error) {
	infoX, err := a.detect(ctx, exec, p.MintX)
	if err != nil {
		return amm.Pool{}, nil, nil, err
	}
	infoY, err := a.detect(ctx, exec, p.MintY)
	if err != nil {
		return amm.Pool{}, nil, nil, err
	}

	addrs, err := pda.Pool(p.ProgramID, p.Seed, p.MintX, p.MintY, infoX.ProgramID, infoY.ProgramID)
	if err != nil {
		return amm.Pool{}, nil, nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if !addrs.VaultX.Equals(p.VaultX) || !addrs.VaultY.Equals(p.VaultY) {
		exec.warn(fmt.Sprintf("pool %s vaults re-derived for detected token programs", p.ID))
	}

	exec.Accounts["config"] = addrs.Config
	exec.Accounts["lpMint"] = addrs.LPMint
	exec.Accounts["vaultX"] = addrs.VaultX
	exec.Accounts["vaultY"] = addrs.VaultY

	return amm.Pool{
		ProgramID:    p.ProgramID,
		Config:       addrs.Config,
		LPMint:       addrs.LPMint,
		MintX:        p.MintX,
		MintY:        p.MintY,
		VaultX:       addrs.VaultX,
		VaultY:       addrs.VaultY,
		TokenProgram: a.opts.AMMTokenProgram,
	}, infoX, infoY, nil
}

// userAccounts adds idempotent creations for the owner's X, Y and LP
// accounts.
func (a *Assembler) userAccounts(b *bundle, exec *Execution, pool amm.Pool, infoX, infoY *tokenstd.MintInfo) (amm.User, error) {
	owner := a.wallet.PublicKey()
	userX, err := b.createATA(owner, owner, pool.MintX, infoX.ProgramID)
	if err != nil {
		return amm.User{}, err
	}
	userY, err := b.createATA(owner, owner, pool.MintY, infoY.ProgramID)
	if err != nil {
		return amm.User{}, err
	}
	userLP, err := b.createATA(owner, owner, pool.LPMint, pool.TokenProgram)
	if err != nil {
		return amm.User{}, err
	}
	exec.Accounts["userX"] = userX
	exec.Accounts["userY"] = userY
	exec.Accounts["userLP"] = userLP
	return amm.User{Signer: owner, UserX: userX, UserY: userY, UserLP: userLP}, nil
}

// wrap records that the bundle spends amount of mint when mint is the
// wrapped-SOL mint.
func (a *Assembler) wrap(b *bundle, mint solana.PublicKey, amount uint64) error {
	if !mint.Equals(a.provisioner.Mint()) {
		return nil
	}
	return b.spend(amount)
}

// approveHookFees lets the hook of mint draw up to allowance wrapped SOL
// from the owner. Unregistered mints need no approval.
func (a *Assembler) approveHookFees(ctx context.Context, b *bundle, mint solana.PublicKey, allowance uint64) error {
	if allowance == 0 {
		return nil
	}
	program, ok := a.resolver.HookProgram(ctx, mint)
	if !ok {
		return nil
	}
	ix, err := hooks.ApproveFeeDelegateIx(a.wallet.PublicKey(), program, allowance, a.opts.Wrapped)
	if err != nil {
		return err
	}
	if err := b.spend(allowance); err != nil {
		return err
	}
	b.approvals = append(b.approvals, ix)
	return nil
}

// finalize provisions the wrapped SOL the bundle needs and orders it:
// account creations, top-up, approvals, then the intent's instructions.
func (a *Assembler) finalize(ctx context.Context, b *bundle) (*bundle, error) {
	if b.wrapped > 0 {
		res, err := a.provisioner.Ensure(ctx, a.wallet.PublicKey(), b.wrapped)
		if err != nil {
			return nil, err
		}
		b.addSetup(res.Create, res.Account, res.TopUp...)
	}
	b.setup = append(b.setup, b.approvals...)
	return b.seal(), nil
}
