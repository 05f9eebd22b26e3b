package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/app"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/history"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/hooks"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pda"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pricing"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/registry"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/server"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func deriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive pool or hook addresses without touching the network",
	}

	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Derive a pool's config, LP mint and vaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			mintX, err := keyFlag(cmd, "mint-x", true)
			if err != nil {
				return err
			}
			mintY, err := keyFlag(cmd, "mint-y", true)
			if err != nil {
				return err
			}
			progX, err := keyFlag(cmd, "token-program-x", false)
			if err != nil {
				return err
			}
			progY, err := keyFlag(cmd, "token-program-y", false)
			if err != nil {
				return err
			}
			if progX.IsZero() {
				progX = solana.TokenProgramID
			}
			if progY.IsZero() {
				progY = solana.TokenProgramID
			}
			seed, _ := cmd.Flags().GetUint64("seed")

			addrs, err := pda.Pool(app.AssemblerOptions(cfg).AMMProgramID, seed, mintX, mintY, progX, progY)
			if err != nil {
				return err
			}
			return printJSON(server.PoolAddressesResponse{
				ProgramID:    addrs.ProgramID.String(),
				Seed:         addrs.Seed,
				Config:       addrs.Config.String(),
				LPMint:       addrs.LPMint.String(),
				SolVault:     addrs.SolVault.String(),
				HookFeeVault: addrs.HookFeeVault.String(),
				VaultX:       addrs.VaultX.String(),
				VaultY:       addrs.VaultY.String(),
			})
		},
	}
	poolCmd.Flags().Uint64("seed", 0, "pool seed")
	poolCmd.Flags().String("mint-x", "", "first mint")
	poolCmd.Flags().String("mint-y", "", "second mint")
	poolCmd.Flags().String("token-program-x", "", "token program of mint x (default legacy)")
	poolCmd.Flags().String("token-program-y", "", "token program of mint y (default legacy)")

	hookCmd := &cobra.Command{
		Use:   "hook",
		Short: "Derive the extra accounts a hooked transfer needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			mint, err := keyFlag(cmd, "mint", true)
			if err != nil {
				return err
			}
			owner, err := keyFlag(cmd, "owner", true)
			if err != nil {
				return err
			}
			opts := app.AssemblerOptions(cfg)
			program, err := keyFlag(cmd, "hook-program", false)
			if err != nil {
				return err
			}
			if program.IsZero() {
				program = opts.HookProgramID
			}

			acc, err := hooks.DeriveExecuteAccounts(mint, owner, program, opts.Wrapped)
			if err != nil {
				return err
			}
			return printJSON(server.HookAddressesResponse{
				Mint:            mint.String(),
				Owner:           owner.String(),
				HookProgram:     acc.HookProgram.String(),
				MetaList:        acc.MetaList.String(),
				WrappedMint:     acc.WrappedMint.String(),
				Delegate:        acc.Delegate.String(),
				DelegateWrapped: acc.DelegateWrapped.String(),
				SenderWrapped:   acc.SenderWrapped.String(),
			})
		},
	}
	hookCmd.Flags().String("mint", "", "hooked mint")
	hookCmd.Flags().String("owner", "", "sender of the transfer")
	hookCmd.Flags().String("hook-program", "", "hook program (defaults to HOOK_PROGRAM_ID)")

	cmd.AddCommand(poolCmd, hookCmd)
	return cmd
}

// withPool bootstraps without optional backends and resolves --pool.
func withPool(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, p *registry.PoolDescriptor, res *registry.Reserves) error) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := bootstrap(ctx, cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	key, _ := cmd.Flags().GetString("pool")
	p, err := a.Registry.GetPool(ctx, key)
	if err != nil {
		return fmt.Errorf("pool %q: %w", key, err)
	}
	res, err := a.Assembler.ReadReserves(ctx, p)
	if err != nil {
		return err
	}
	return fn(ctx, a, p, res)
}

func quoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price an operation against live reserves",
	}

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Quote a swap",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := keyFlag(cmd, "input-mint", true)
			if err != nil {
				return err
			}
			return withPool(cmd, func(ctx context.Context, a *app.App, p *registry.PoolDescriptor, res *registry.Reserves) error {
				rin, rout := res.Y, res.X
				switch input {
				case p.MintX:
					rin, rout = res.X, res.Y
				case p.MintY:
				default:
					return fmt.Errorf("%s is not in pool %s", input, p.ID)
				}
				amount, err := amountFlag(ctx, cmd, a, "amount", input)
				if err != nil {
					return err
				}
				slippage, _ := cmd.Flags().GetUint16("slippage-bps")
				q, err := pricing.QuoteSwap(rin, rout, amount, p.FeeBps, slippage)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"pool": p.ID, "quote": q, "reserves": res})
			})
		},
	}
	swapCmd.Flags().String("pool", "", "pool id or config address")
	swapCmd.Flags().String("input-mint", "", "mint being sold")
	swapCmd.Flags().String("amount", "", "amount in (raw units, or human with --ui)")
	swapCmd.Flags().Bool("ui", false, "treat --amount as a decimal scaled by the mint's decimals")
	swapCmd.Flags().Uint16("slippage-bps", constants.DefaultSlippageBps, "slippage tolerance")

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Quote minting LP tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			amountL, _ := cmd.Flags().GetUint64("amount-l")
			maxX, _ := cmd.Flags().GetUint64("max-x")
			maxY, _ := cmd.Flags().GetUint64("max-y")
			return withPool(cmd, func(ctx context.Context, a *app.App, p *registry.PoolDescriptor, res *registry.Reserves) error {
				q, err := pricing.Deposit(res.X, res.Y, res.LPSupply, amountL, maxX, maxY)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"pool": p.ID, "quote": q, "reserves": res})
			})
		},
	}
	depositCmd.Flags().String("pool", "", "pool id or config address")
	depositCmd.Flags().Uint64("amount-l", 0, "LP tokens to mint")
	depositCmd.Flags().Uint64("max-x", 0, "most of X to deposit")
	depositCmd.Flags().Uint64("max-y", 0, "most of Y to deposit")

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Quote burning LP tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			amountL, _ := cmd.Flags().GetUint64("amount-l")
			slippage, _ := cmd.Flags().GetUint16("slippage-bps")
			return withPool(cmd, func(ctx context.Context, a *app.App, p *registry.PoolDescriptor, res *registry.Reserves) error {
				minX, minY, err := pricing.WithdrawMinima(res.X, res.Y, res.LPSupply, amountL, slippage)
				if err != nil {
					return err
				}
				q, err := pricing.Withdraw(res.X, res.Y, res.LPSupply, amountL, minX, minY)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"pool": p.ID, "quote": q, "reserves": res})
			})
		},
	}
	withdrawCmd.Flags().String("pool", "", "pool id or config address")
	withdrawCmd.Flags().Uint64("amount-l", 0, "LP tokens to burn")
	withdrawCmd.Flags().Uint16("slippage-bps", constants.DefaultSlippageBps, "slippage tolerance for the minima")

	cmd.AddCommand(swapCmd, depositCmd, withdrawCmd)
	return cmd
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-read reserves of every registered pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := bootstrap(ctx, cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Assembler.RefreshReserves(ctx)
			if err != nil {
				return err
			}
			return printJSON(server.RefreshResponse{Updated: n})
		},
	}
}

func importPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-pool",
		Short: "Register an existing on-chain pool by seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			mintX, err := keyFlag(cmd, "mint-x", true)
			if err != nil {
				return err
			}
			mintY, err := keyFlag(cmd, "mint-y", true)
			if err != nil {
				return err
			}
			seed, _ := cmd.Flags().GetUint64("seed")

			ctx, stop := signalContext()
			defer stop()

			a, err := bootstrap(ctx, cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.Assembler.ImportPool(ctx, seed, mintX, mintY)
			if err != nil {
				return err
			}
			return printJSON(p)
		},
	}
	cmd.Flags().Uint64("seed", 0, "pool seed")
	cmd.Flags().String("mint-x", "", "first mint")
	cmd.Flags().String("mint-y", "", "second mint")
	return cmd
}

func airdropCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "airdrop",
		Short: "Request devnet or localnet SOL and wait for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := keyFlag(cmd, "to", false)
			if err != nil {
				return err
			}
			amount, _ := cmd.Flags().GetString("sol")
			sol, err := decimal.NewFromString(amount)
			if err != nil || !sol.IsPositive() {
				return fmt.Errorf("--sol must be a positive decimal")
			}
			lamports, err := pricing.DecimalToRaw(sol, 9)
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			a, err := bootstrap(ctx, cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if to.IsZero() {
				to = a.Wallet.PublicKey()
			}
			sig, err := a.RPC.RequestAirdrop(ctx, to, lamports)
			if err != nil {
				return err
			}
			a.Logger.WithFields(logrus.Fields{
				"to":        to,
				"lamports":  lamports,
				"signature": sig,
			}).Info("airdrop requested")

			if err := a.Wallet.ConfirmTransaction(ctx, sig); err != nil {
				return err
			}
			return printJSON(map[string]any{"to": to, "lamports": lamports, "signature": sig})
		},
	}
	cmd.Flags().String("to", "", "recipient (defaults to the wallet)")
	cmd.Flags().String("sol", "2", "SOL to request")
	return cmd
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream finished executions from Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := bootstrap(ctx, cmd, app.Options{Events: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if a.PubSub == nil {
				return fmt.Errorf("redis is not reachable at %s", a.Config.RedisAddr)
			}

			pattern, _ := cmd.Flags().GetString("pattern")
			err = a.PubSub.Follow(ctx, pattern, func(rec *history.Record) {
				if perr := printJSON(rec); perr != nil {
					a.Logger.WithError(perr).Warn("failed to print execution")
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().String("pattern", constants.PubSubChannelExecutions+"*", "channel pattern")
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent executions from ClickHouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := bootstrap(ctx, cmd, app.Options{History: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if a.History == nil {
				return fmt.Errorf("execution history needs CLICKHOUSE_ADDR")
			}

			limit, _ := cmd.Flags().GetInt("limit")
			qctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			recs, err := a.History.Recent(qctx, limit)
			if err != nil {
				return err
			}
			return printJSON(recs)
		},
	}
	cmd.Flags().Int("limit", 20, "rows to show")
	return cmd
}

func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the wallet's SOL balance and, per --mint, its token account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := bootstrap(ctx, cmd, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			sol, err := a.Wallet.GetBalanceSOL(ctx)
			if err != nil {
				return err
			}
			out := map[string]any{"owner": a.Wallet.Address(), "sol": sol}

			mints, _ := cmd.Flags().GetStringSlice("mint")
			accounts := make([]map[string]any, 0, len(mints))
			for _, m := range mints {
				mint, err := pda.ParseAddress(m)
				if err != nil {
					return fmt.Errorf("--mint: %w", err)
				}
				info, err := a.Assembler.Detector().Detect(ctx, mint)
				if err != nil {
					return err
				}
				ata, err := pda.AssociatedAddress(mint, a.Wallet.PublicKey(), info.ProgramID)
				if err != nil {
					return err
				}
				exists, err := a.Wallet.AccountExists(ctx, ata)
				if err != nil {
					return err
				}
				accounts = append(accounts, map[string]any{
					"mint":     mint,
					"standard": info.Standard.String(),
					"account":  ata,
					"exists":   exists,
				})
			}
			if len(accounts) > 0 {
				out["accounts"] = accounts
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringSlice("mint", nil, "mints whose associated account to check (comma-separated)")
	return cmd
}
