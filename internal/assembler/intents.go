package assembler

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/amm"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/hooks"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pricing"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/registry"
	"github.com/gagliardetto/solana-go"
)

// InitializeIntent creates a pool for (MintX, MintY) at Seed.
type InitializeIntent struct {
	Seed   uint64
	MintX  solana.PublicKey
	MintY  solana.PublicKey
	FeeBps uint16
	// Authority defaults to the signer unless NoAuthority is set.
	Authority   solana.PublicKey
	NoAuthority bool
}

func (i *InitializeIntent) Name() string { return "initialize" }

func (i *InitializeIntent) quote(ctx context.Context, a *Assembler, exec *Execution) error {
	if i.MintX.IsZero() || i.MintY.IsZero() {
		return fmt.Errorf("%w: both mints are required", ErrValidation)
	}
	if i.MintX.Equals(i.MintY) {
		return fmt.Errorf("%w: mints must differ", ErrValidation)
	}
	if uint64(i.FeeBps) > constants.BpsDenominator {
		return fmt.Errorf("%w: %d bps", pricing.ErrInvalidFee, i.FeeBps)
	}
	exec.Quote = map[string]any{"seed": i.Seed, "feeBps": i.FeeBps}
	return nil
}

func (i *InitializeIntent) build(ctx context.Context, a *Assembler, exec *Execution) (*bundle, error) {
	infoX, err := a.detect(ctx, exec, i.MintX)
	if err != nil {
		return nil, err
	}
	infoY, err := a.detect(ctx, exec, i.MintY)
	if err != nil {
		return nil, err
	}

	owner := a.wallet.PublicKey()
	authority := i.Authority
	if authority.IsZero() && !i.NoAuthority {
		authority = owner
	}
	if i.NoAuthority {
		authority = solana.PublicKey{}
	}

	desc, err := registry.NewPoolDescriptor(registry.PoolParams{
		ProgramID:     a.opts.AMMProgramID,
		Seed:          i.Seed,
		Authority:     authority,
		MintX:         i.MintX,
		MintY:         i.MintY,
		TokenProgramX: infoX.ProgramID,
		TokenProgramY: infoY.ProgramID,
		FeeBps:        i.FeeBps,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	ix, err := amm.Initialize(amm.Pool{
		ProgramID:    desc.ProgramID,
		Config:       desc.Config,
		LPMint:       desc.LPMint,
		MintX:        desc.MintX,
		MintY:        desc.MintY,
		VaultX:       desc.VaultX,
		VaultY:       desc.VaultY,
		TokenProgram: a.opts.AMMTokenProgram,
	}, owner, i.Seed, i.FeeBps, authority)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	exec.Accounts["config"] = desc.Config
	exec.Accounts["lpMint"] = desc.LPMint
	exec.Accounts["vaultX"] = desc.VaultX
	exec.Accounts["vaultY"] = desc.VaultY

	b := newBundle()
	b.add(ix)
	b.onConfirmed = func(ctx context.Context) error {
		return a.registry.PutPool(ctx, desc)
	}
	return a.finalize(ctx, b)
}

// DepositIntent mints AmountL LP tokens from pool PoolKey. For an empty
// pool MaxX and MaxY are the seed amounts.
type DepositIntent struct {
	PoolKey string
	AmountL uint64
	MaxX    uint64
	MaxY    uint64

	pool *registry.PoolDescriptor
	q    *pricing.DepositQuote
}

func (d *DepositIntent) Name() string { return "deposit" }

func (d *DepositIntent) quote(ctx context.Context, a *Assembler, exec *Execution) error {
	p, err := a.pool(ctx, d.PoolKey)
	if err != nil {
		return err
	}
	if p.IsCustodial() {
		return fmt.Errorf("%w: pool %s is custodial", ErrValidation, p.ID)
	}
	res, err := a.reserves(ctx, exec, p)
	if err != nil {
		return err
	}
	q, err := pricing.Deposit(res.X, res.Y, res.LPSupply, d.AmountL, d.MaxX, d.MaxY)
	if err != nil {
		return err
	}
	d.pool, d.q = p, q
	exec.Quote = q
	return nil
}

func (d *DepositIntent) build(ctx context.Context, a *Assembler, exec *Execution) (*bundle, error) {
	b := newBundle()
	pool, infoX, infoY, err := a.poolAccounts(ctx, exec, d.pool)
	if err != nil {
		return nil, err
	}
	user, err := a.userAccounts(b, exec, pool, infoX, infoY)
	if err != nil {
		return nil, err
	}
	if err := a.wrap(b, pool.MintX, d.q.MaxX); err != nil {
		return nil, err
	}
	if err := a.wrap(b, pool.MintY, d.q.MaxY); err != nil {
		return nil, err
	}

	ix, err := amm.Deposit(pool, user, d.q.AmountL, d.q.MaxX, d.q.MaxY, a.resolver.ResolveAll(ctx, pool.MintX, pool.MintY))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	b.add(ix)
	return a.finalize(ctx, b)
}

// SwapIntent trades AmountIn of InputMint through pool PoolKey.
type SwapIntent struct {
	PoolKey     string
	InputMint   solana.PublicKey
	AmountIn    uint64
	SlippageBps uint16
	// CollectHookFees routes the swap through the pool's hook-fee
	// accounts; the owner's wrapped-SOL account is funded for the fee.
	CollectHookFees bool
	// HookFeeAllowance approves the input mint's hook delegate for this
	// much wrapped SOL. Zero approves nothing.
	HookFeeAllowance uint64

	pool *registry.PoolDescriptor
	isX  bool
	q    *pricing.Quote
}

func (s *SwapIntent) Name() string { return "swap" }

func (s *SwapIntent) quote(ctx context.Context, a *Assembler, exec *Execution) error {
	p, err := a.pool(ctx, s.PoolKey)
	if err != nil {
		return err
	}
	if p.IsCustodial() {
		return fmt.Errorf("%w: pool %s is custodial, use a direct swap", ErrValidation, p.ID)
	}
	isX, err := direction(p, s.InputMint)
	if err != nil {
		return err
	}
	res, err := a.reserves(ctx, exec, p)
	if err != nil {
		return err
	}
	rin, rout := res.X, res.Y
	if !isX {
		rin, rout = res.Y, res.X
	}
	q, err := pricing.QuoteSwap(rin, rout, s.AmountIn, p.FeeBps, s.SlippageBps)
	if err != nil {
		return err
	}
	s.pool, s.isX, s.q = p, isX, q
	exec.Quote = q
	return nil
}

func (s *SwapIntent) build(ctx context.Context, a *Assembler, exec *Execution) (*bundle, error) {
	b := newBundle()
	pool, infoX, infoY, err := a.poolAccounts(ctx, exec, s.pool)
	if err != nil {
		return nil, err
	}
	user, err := a.userAccounts(b, exec, pool, infoX, infoY)
	if err != nil {
		return nil, err
	}
	if err := a.wrap(b, s.InputMint, s.AmountIn); err != nil {
		return nil, err
	}

	var fee *amm.FeeAccounts
	if s.CollectHookFees {
		fee, err = hooks.FeeAccounts(pool.ProgramID, pool.Config, user.Signer, a.opts.Wrapped)
		if err != nil {
			return nil, err
		}
		if err := b.spend(hookFeeEstimate(s.AmountIn)); err != nil {
			return nil, err
		}
	}
	if err := a.approveHookFees(ctx, b, s.InputMint, s.HookFeeAllowance); err != nil {
		return nil, err
	}

	ix, err := amm.Swap(pool, user, s.AmountIn, s.isX, s.q.MinOut, fee, a.resolver.ResolveAll(ctx, pool.MintX, pool.MintY))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	b.add(ix)
	return a.finalize(ctx, b)
}

// WithdrawIntent burns AmountL LP tokens. Zero minima are computed from
// current reserves with SlippageBps.
type WithdrawIntent struct {
	PoolKey     string
	AmountL     uint64
	MinX        uint64
	MinY        uint64
	SlippageBps uint16

	pool *registry.PoolDescriptor
	q    *pricing.WithdrawQuote
}

func (w *WithdrawIntent) Name() string { return "withdraw" }

func (w *WithdrawIntent) quote(ctx context.Context, a *Assembler, exec *Execution) error {
	p, err := a.pool(ctx, w.PoolKey)
	if err != nil {
		return err
	}
	if p.IsCustodial() {
		return fmt.Errorf("%w: pool %s is custodial", ErrValidation, p.ID)
	}
	res, err := a.reserves(ctx, exec, p)
	if err != nil {
		return err
	}
	minX, minY := w.MinX, w.MinY
	if minX == 0 && minY == 0 {
		minX, minY, err = pricing.WithdrawMinima(res.X, res.Y, res.LPSupply, w.AmountL, w.SlippageBps)
		if err != nil {
			return err
		}
	}
	q, err := pricing.Withdraw(res.X, res.Y, res.LPSupply, w.AmountL, minX, minY)
	if err != nil {
		return err
	}
	w.pool, w.q = p, q
	exec.Quote = q
	return nil
}

func (w *WithdrawIntent) build(ctx context.Context, a *Assembler, exec *Execution) (*bundle, error) {
	b := newBundle()
	pool, infoX, infoY, err := a.poolAccounts(ctx, exec, w.pool)
	if err != nil {
		return nil, err
	}
	user, err := a.userAccounts(b, exec, pool, infoX, infoY)
	if err != nil {
		return nil, err
	}
	ix, err := amm.Withdraw(pool, user, w.q.AmountL, w.q.MinX, w.q.MinY, a.resolver.ResolveAll(ctx, pool.MintX, pool.MintY))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	b.add(ix)
	return a.finalize(ctx, b)
}

// EnableHooksIntent switches on hook-fee collection for a pool. The
// wallet must be the pool authority.
type EnableHooksIntent struct {
	PoolKey string

	pool *registry.PoolDescriptor
}

func (e *EnableHooksIntent) Name() string { return "enable_hooks" }

func (e *EnableHooksIntent) quote(ctx context.Context, a *Assembler, exec *Execution) error {
	p, err := a.pool(ctx, e.PoolKey)
	if err != nil {
		return err
	}
	if p.IsCustodial() {
		return fmt.Errorf("%w: pool %s is custodial", ErrValidation, p.ID)
	}
	if !p.Authority.IsZero() && !p.Authority.Equals(a.wallet.PublicKey()) {
		return fmt.Errorf("%w: wallet is not the authority of pool %s", ErrValidation, p.ID)
	}
	e.pool = p
	return nil
}

func (e *EnableHooksIntent) build(ctx context.Context, a *Assembler, exec *Execution) (*bundle, error) {
	owner := a.wallet.PublicKey()
	fee, err := hooks.FeeAccounts(e.pool.ProgramID, e.pool.Config, owner, a.opts.Wrapped)
	if err != nil {
		return nil, err
	}
	ix, err := amm.EnableHooks(e.pool.ProgramID, owner, e.pool.Config, *fee, a.opts.Wrapped.TokenProgram)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	exec.Accounts["hookFeeVault"] = fee.HookFeeVault
	exec.Accounts["poolWrappedVault"] = fee.PoolWrappedVault

	b := newBundle()
	b.add(ix)
	b.onConfirmed = func(ctx context.Context) error {
		e.pool.HookFees = true
		return a.registry.PutPool(ctx, e.pool)
	}
	return a.finalize(ctx, b)
}

func direction(p *registry.PoolDescriptor, input solana.PublicKey) (bool, error) {
	switch {
	case input.Equals(p.MintX):
		return true, nil
	case input.Equals(p.MintY):
		return false, nil
	default:
		return false, fmt.Errorf("%w: mint %s is not in pool %s", ErrValidation, input, p.ID)
	}
}

// hookFeeEstimate is the wrapped SOL kept available for the hook fee on a
// transfer of amount.
func hookFeeEstimate(amount uint64) uint64 {
	fee := pricing.HookFee(amount)
	if fee < constants.MinHookFeeLamports {
		return constants.MinHookFeeLamports
	}
	return fee
}
