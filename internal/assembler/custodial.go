package assembler

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/hooks"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pda"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pricing"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/registry"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/spl"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/tokenstd"
	"github.com/gagliardetto/solana-go"
)

// CreateHookedMintIntent creates a Token-2022 mint whose transfers invoke
// HookProgramID, mints Amount to the wallet and registers the mint.
type CreateHookedMintIntent struct {
	Decimals      uint8
	Amount        uint64
	HookProgramID solana.PublicKey
	TokenName     string
	Symbol        string
	// InitMetaList also creates the hook's extra-account-meta list.
	InitMetaList bool

	mint solana.PrivateKey
}

func (c *CreateHookedMintIntent) Name() string { return "create_hooked_mint" }

// Mint is the address of the mint being created, zero before quoting.
func (c *CreateHookedMintIntent) Mint() solana.PublicKey {
	if c.mint == nil {
		return solana.PublicKey{}
	}
	return c.mint.PublicKey()
}

func (c *CreateHookedMintIntent) quote(ctx context.Context, a *Assembler, exec *Execution) error {
	if c.HookProgramID.IsZero() {
		c.HookProgramID = a.opts.HookProgramID
	}
	if c.Amount == 0 {
		return fmt.Errorf("%w: mint amount", pricing.ErrInvalidAmount)
	}
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return fmt.Errorf("mint keypair: %w", err)
	}
	c.mint = key
	exec.Accounts["mint"] = key.PublicKey()
	exec.Quote = map[string]any{
		"decimals": c.Decimals,
		"amount":   c.Amount,
		"human":    pricing.ToHuman(c.Amount, c.Decimals).String(),
	}
	return nil
}

func (c *CreateHookedMintIntent) build(ctx context.Context, a *Assembler, exec *Execution) (*bundle, error) {
	owner := a.wallet.PublicKey()
	mint := c.mint.PublicKey()
	program := constants.Token2022ProgramID

	rent, err := a.ledger.GetMinimumBalanceForRentExemption(ctx, spl.MintWithTransferHook)
	if err != nil {
		return nil, err
	}
	create, err := spl.NewCreateAccountIx(owner, mint, program, rent, spl.MintWithTransferHook)
	if err != nil {
		return nil, err
	}

	ata, err := pda.AssociatedAddress(mint, owner, program)
	if err != nil {
		return nil, err
	}
	exec.Accounts["ata"] = ata

	// The extension is initialised before the mint, and the mint must
	// exist before its associated account.
	b := newBundle()
	b.add(
		create,
		spl.NewInitializeTransferHookIx(mint, owner, c.HookProgramID),
		spl.NewInitializeMint2Ix(mint, c.Decimals, owner, owner, program),
		spl.NewCreateATAIdempotentIx(owner, ata, owner, mint, program),
		spl.NewMintToIx(mint, ata, owner, c.Amount, program),
	)

	if c.InitMetaList {
		ix, err := hooks.InitializeExtraAccountMetaListIx(owner, mint, c.HookProgramID, a.opts.Wrapped)
		if err != nil {
			return nil, err
		}
		b.add(ix)
	}

	b.coSigners = append(b.coSigners, c.mint)
	decimals := c.Decimals
	meta := &registry.MintHookMeta{
		Mint:          mint,
		HookProgramID: c.HookProgramID,
		Name:          c.TokenName,
		Symbol:        c.Symbol,
		Decimals:      &decimals,
	}
	b.onConfirmed = func(ctx context.Context) error {
		return a.registry.PutMint(ctx, meta)
	}
	return b.seal(), nil
}

// CustodialPoolIntent seeds a wallet-held pool: the vaults are the
// wallet's own associated accounts and reserves move with hooked
// transfers. The pool is registered under its mint-pair key.
type CustodialPoolIntent struct {
	MintX   solana.PublicKey
	MintY   solana.PublicKey
	AmountX uint64
	AmountY uint64
	FeeBps  uint16

	infoX, infoY *tokenstd.MintInfo
}

func (c *CustodialPoolIntent) Name() string { return "create_custodial_pool" }

func (c *CustodialPoolIntent) quote(ctx context.Context, a *Assembler, exec *Execution) error {
	if c.MintX.IsZero() || c.MintY.IsZero() || c.MintX.Equals(c.MintY) {
		return fmt.Errorf("%w: two distinct mints are required", ErrValidation)
	}
	if c.AmountX == 0 || c.AmountY == 0 {
		return fmt.Errorf("%w: initial reserves", pricing.ErrInvalidAmount)
	}
	if uint64(c.FeeBps) > constants.BpsDenominator {
		return fmt.Errorf("%w: %d bps", pricing.ErrInvalidFee, c.FeeBps)
	}
	if c.FeeBps == 0 {
		c.FeeBps = constants.DefaultFeeBps
	}
	exec.Quote = map[string]any{"x": c.AmountX, "y": c.AmountY, "feeBps": c.FeeBps}
	return nil
}

func (c *CustodialPoolIntent) build(ctx context.Context, a *Assembler, exec *Execution) (*bundle, error) {
	var err error
	if c.infoX, err = a.detect(ctx, exec, c.MintX); err != nil {
		return nil, err
	}
	if c.infoY, err = a.detect(ctx, exec, c.MintY); err != nil {
		return nil, err
	}

	owner := a.wallet.PublicKey()
	desc, err := registry.NewCustodialPool(c.MintX, c.MintY, owner, c.infoX.ProgramID, c.infoY.ProgramID, c.FeeBps)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	b := newBundle()
	userX, err := b.createATA(owner, owner, c.MintX, c.infoX.ProgramID)
	if err != nil {
		return nil, err
	}
	userY, err := b.createATA(owner, owner, c.MintY, c.infoY.ProgramID)
	if err != nil {
		return nil, err
	}
	exec.Accounts["vaultX"] = desc.VaultX
	exec.Accounts["vaultY"] = desc.VaultY

	b.add(
		a.resolver.TransferChecked(ctx, userX, c.MintX, desc.VaultX, owner, c.AmountX, c.infoX.Decimals, c.infoX.ProgramID),
		a.resolver.TransferChecked(ctx, userY, c.MintY, desc.VaultY, owner, c.AmountY, c.infoY.Decimals, c.infoY.ProgramID),
	)
	b.onConfirmed = func(ctx context.Context) error {
		return a.registry.PutPool(ctx, desc)
	}
	return a.finalize(ctx, b)
}

// DirectSwapIntent trades against a custodial pool with two hooked
// transfers: the input into its vault and the output back out. The
// wallet must be the pool's custodian.
type DirectSwapIntent struct {
	PoolKey          string
	InputMint        solana.PublicKey
	AmountIn         uint64
	SlippageBps      uint16
	HookFeeAllowance uint64

	pool *registry.PoolDescriptor
	isX  bool
	q    *pricing.Quote
}

func (d *DirectSwapIntent) Name() string { return "direct_swap" }

func (d *DirectSwapIntent) quote(ctx context.Context, a *Assembler, exec *Execution) error {
	p, err := a.pool(ctx, d.PoolKey)
	if err != nil {
		return err
	}
	if !p.IsCustodial() {
		return fmt.Errorf("%w: pool %s is program-owned, use a swap", ErrValidation, p.ID)
	}
	if !p.Custodian.Equals(a.wallet.PublicKey()) {
		return fmt.Errorf("%w: wallet is not the custodian of pool %s", ErrValidation, p.ID)
	}
	isX, err := direction(p, d.InputMint)
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
	q, err := pricing.QuoteSwap(rin, rout, d.AmountIn, p.FeeBps, d.SlippageBps)
	if err != nil {
		return err
	}
	d.pool, d.isX, d.q = p, isX, q
	exec.Quote = q
	return nil
}

func (d *DirectSwapIntent) build(ctx context.Context, a *Assembler, exec *Execution) (*bundle, error) {
	mintIn, mintOut := d.pool.MintX, d.pool.MintY
	vaultIn, vaultOut := d.pool.VaultX, d.pool.VaultY
	if !d.isX {
		mintIn, mintOut = mintOut, mintIn
		vaultIn, vaultOut = vaultOut, vaultIn
	}
	infoIn, err := a.detect(ctx, exec, mintIn)
	if err != nil {
		return nil, err
	}
	infoOut, err := a.detect(ctx, exec, mintOut)
	if err != nil {
		return nil, err
	}

	owner := a.wallet.PublicKey()
	b := newBundle()
	userIn, err := b.createATA(owner, owner, mintIn, infoIn.ProgramID)
	if err != nil {
		return nil, err
	}
	userOut, err := b.createATA(owner, owner, mintOut, infoOut.ProgramID)
	if err != nil {
		return nil, err
	}
	exec.Accounts["userIn"] = userIn
	exec.Accounts["userOut"] = userOut
	exec.Accounts["vaultIn"] = vaultIn
	exec.Accounts["vaultOut"] = vaultOut

	if err := a.wrap(b, mintIn, d.AmountIn); err != nil {
		return nil, err
	}
	if err := a.approveHookFees(ctx, b, mintIn, d.HookFeeAllowance); err != nil {
		return nil, err
	}
	b.add(
		a.resolver.TransferChecked(ctx, userIn, mintIn, vaultIn, owner, d.AmountIn, infoIn.Decimals, infoIn.ProgramID),
		a.resolver.TransferChecked(ctx, vaultOut, mintOut, userOut, owner, d.q.AmountOut, infoOut.Decimals, infoOut.ProgramID),
	)
	return a.finalize(ctx, b)
}
