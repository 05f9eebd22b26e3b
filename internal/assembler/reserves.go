package assembler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/amm"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pda"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pricing"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/registry"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/spl"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// ErrPoolNotReady is returned when a pool's vaults do not exist on-chain.
var ErrPoolNotReady = errors.New("pool vaults not found")

// ReadReserves reads vault balances, mint decimals and LP supply for p in
// one request.
func (a *Assembler) ReadReserves(ctx context.Context, p *registry.PoolDescriptor) (*registry.Reserves, error) {
	keys := []solana.PublicKey{p.VaultX, p.VaultY, p.MintX, p.MintY}
	if !p.IsCustodial() {
		keys = append(keys, p.LPMint)
	}

	accs, err := a.ledger.GetMultipleAccounts(ctx, keys, a.opts.Commitment)
	if err != nil {
		return nil, fmt.Errorf("read pool %s: %w", p.ID, err)
	}
	if accs[0] == nil || accs[1] == nil {
		return nil, fmt.Errorf("%w: pool %s", ErrPoolNotReady, p.ID)
	}

	vaultX, err := spl.DecodeTokenAccount(accs[0].Data)
	if err != nil {
		return nil, fmt.Errorf("vault x: %w", err)
	}
	vaultY, err := spl.DecodeTokenAccount(accs[1].Data)
	if err != nil {
		return nil, fmt.Errorf("vault y: %w", err)
	}

	res := &registry.Reserves{
		X:         vaultX.Amount,
		Y:         vaultY.Amount,
		UpdatedAt: time.Now().UTC(),
	}
	if accs[2] != nil {
		if m, err := spl.DecodeMint(accs[2].Data); err == nil {
			res.HumanX = pricing.ToHuman(res.X, m.Decimals).String()
		}
	}
	if accs[3] != nil {
		if m, err := spl.DecodeMint(accs[3].Data); err == nil {
			res.HumanY = pricing.ToHuman(res.Y, m.Decimals).String()
		}
	}
	if len(accs) > 4 && accs[4] != nil {
		lp, err := spl.DecodeMint(accs[4].Data)
		if err != nil {
			return nil, fmt.Errorf("lp mint: %w", err)
		}
		res.LPSupply = lp.Supply
	}
	return res, nil
}

// RefreshReserves re-reads every registered pool and stores the result.
// A pool that cannot be read is logged and skipped.
func (a *Assembler) RefreshReserves(ctx context.Context) (int, error) {
	pools, err := a.registry.ListPools(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pools: %w", err)
	}

	updated := 0
	for _, p := range pools {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		res, err := a.ReadReserves(ctx, p)
		if err != nil {
			a.logger.WithFields(logrus.Fields{
				"pool":  p.ID,
				"error": err,
			}).Warn("reserve refresh failed")
			continue
		}
		p.Reserves = res
		if err := a.registry.PutPool(ctx, p); err != nil {
			a.logger.WithFields(logrus.Fields{
				"pool":  p.ID,
				"error": err,
			}).Warn("reserve store failed")
			continue
		}
		updated++
	}

	a.logger.WithFields(logrus.Fields{
		"pools":   len(pools),
		"updated": updated,
	}).Info("pool reserves refreshed")
	return updated, nil
}

// reserves reads fresh reserves for a quote and records them on the
// execution.
func (a *Assembler) reserves(ctx context.Context, exec *Execution, p *registry.PoolDescriptor) (*registry.Reserves, error) {
	res, err := a.ReadReserves(ctx, p)
	if err != nil {
		return nil, err
	}
	a.logger.WithFields(logrus.Fields{
		"execution": exec.ID,
		"pool":      p.ID,
		"x":         res.X,
		"y":         res.Y,
		"lp":        res.LPSupply,
	}).Debug("reserves read")
	return res, nil
}

// ImportPool registers a pool that already exists on-chain. Fee and
// authority are taken from its config account.
func (a *Assembler) ImportPool(ctx context.Context, seed uint64, mintX, mintY solana.PublicKey) (*registry.PoolDescriptor, error) {
	config, err := pda.Config(a.opts.AMMProgramID, seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	acc, err := a.ledger.GetAccountInfo(ctx, config, a.opts.Commitment)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("%w: no config account for seed %d", ErrPoolNotReady, seed)
	}
	cfg, err := amm.DecodeConfig(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", config, err)
	}
	if cfg.Seed != seed {
		return nil, fmt.Errorf("config %s holds seed %d, want %d", config, cfg.Seed, seed)
	}

	infoX, err := a.detector.Detect(ctx, mintX)
	if err != nil {
		return nil, err
	}
	infoY, err := a.detector.Detect(ctx, mintY)
	if err != nil {
		return nil, err
	}

	desc, err := registry.NewPoolDescriptor(registry.PoolParams{
		ProgramID:     a.opts.AMMProgramID,
		Seed:          seed,
		Authority:     cfg.Authority,
		MintX:         mintX,
		MintY:         mintY,
		TokenProgramX: infoX.ProgramID,
		TokenProgramY: infoY.ProgramID,
		FeeBps:        cfg.Fee,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := a.registry.PutPool(ctx, desc); err != nil {
		return nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"pool":   desc.ID,
		"config": config.String(),
		"feeBps": cfg.Fee,
		"locked": cfg.Locked,
	}).Info("pool imported")
	return desc, nil
}
