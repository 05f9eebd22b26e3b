package main

import (
	"context"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/app"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/assembler"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/spf13/cobra"
)

type intentBuilder func(ctx context.Context, cmd *cobra.Command, a *app.App) (assembler.Intent, error)

type intentResult struct {
	Execution *assembler.Execution `json:"execution,omitempty"`
	Mint      string               `json:"mint,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// intentCommand wraps build in the shared run loop: bootstrap, Prepare or
// Execute, print the execution. A failed execution is still printed.
func intentCommand(use, short string, build intentBuilder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			events, _ := cmd.Flags().GetBool("record")
			a, err := bootstrap(ctx, cmd, app.Options{History: events, Events: events})
			if err != nil {
				return err
			}
			defer a.Close()

			intent, err := build(ctx, cmd, a)
			if err != nil {
				return err
			}

			var exec *assembler.Execution
			if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
				exec, err = a.Assembler.Prepare(ctx, intent)
			} else {
				exec, err = a.Assembler.Execute(ctx, intent)
			}

			res := intentResult{Execution: exec}
			if m, ok := intent.(*assembler.CreateHookedMintIntent); ok && !m.Mint().IsZero() {
				res.Mint = m.Mint().String()
			}
			if err != nil {
				res.Error = err.Error()
			}
			if perr := printJSON(res); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().Bool("dry-run", false, "stop after simulation; nothing is signed or sent")
	cmd.Flags().Bool("record", false, "publish the outcome to ClickHouse and Redis when configured")
	return cmd
}

func intentCmds() []*cobra.Command {
	initCmd := intentCommand("initialize", "Create a pool for two mints", func(ctx context.Context, cmd *cobra.Command, a *app.App) (assembler.Intent, error) {
		mintX, err := keyFlag(cmd, "mint-x", true)
		if err != nil {
			return nil, err
		}
		mintY, err := keyFlag(cmd, "mint-y", true)
		if err != nil {
			return nil, err
		}
		authority, err := keyFlag(cmd, "authority", false)
		if err != nil {
			return nil, err
		}
		seed, _ := cmd.Flags().GetUint64("seed")
		fee, _ := cmd.Flags().GetUint16("fee-bps")
		noAuth, _ := cmd.Flags().GetBool("no-authority")
		return &assembler.InitializeIntent{
			Seed:        seed,
			MintX:       mintX,
			MintY:       mintY,
			FeeBps:      fee,
			Authority:   authority,
			NoAuthority: noAuth,
		}, nil
	})
	initCmd.Flags().Uint64("seed", 0, "pool seed")
	initCmd.Flags().String("mint-x", "", "first mint")
	initCmd.Flags().String("mint-y", "", "second mint")
	initCmd.Flags().Uint16("fee-bps", constants.DefaultFeeBps, "swap fee in basis points")
	initCmd.Flags().String("authority", "", "pool authority (defaults to the wallet)")
	initCmd.Flags().Bool("no-authority", false, "create the pool without an authority")

	depositCmd := intentCommand("deposit", "Mint LP tokens for both reserves", func(ctx context.Context, cmd *cobra.Command, a *app.App) (assembler.Intent, error) {
		pool, _ := cmd.Flags().GetString("pool")
		amountL, _ := cmd.Flags().GetUint64("amount-l")
		maxX, _ := cmd.Flags().GetUint64("max-x")
		maxY, _ := cmd.Flags().GetUint64("max-y")
		return &assembler.DepositIntent{PoolKey: pool, AmountL: amountL, MaxX: maxX, MaxY: maxY}, nil
	})
	depositCmd.Flags().String("pool", "", "pool id or config address")
	depositCmd.Flags().Uint64("amount-l", 0, "LP tokens to mint")
	depositCmd.Flags().Uint64("max-x", 0, "most of X to deposit")
	depositCmd.Flags().Uint64("max-y", 0, "most of Y to deposit")

	swapCmd := intentCommand("swap", "Swap through a pool", func(ctx context.Context, cmd *cobra.Command, a *app.App) (assembler.Intent, error) {
		input, err := keyFlag(cmd, "input-mint", true)
		if err != nil {
			return nil, err
		}
		amount, err := amountFlag(ctx, cmd, a, "amount", input)
		if err != nil {
			return nil, err
		}
		pool, _ := cmd.Flags().GetString("pool")
		slippage, _ := cmd.Flags().GetUint16("slippage-bps")
		collect, _ := cmd.Flags().GetBool("collect-hook-fees")
		allowance, _ := cmd.Flags().GetUint64("hook-fee-allowance")
		return &assembler.SwapIntent{
			PoolKey:          pool,
			InputMint:        input,
			AmountIn:         amount,
			SlippageBps:      slippage,
			CollectHookFees:  collect,
			HookFeeAllowance: allowance,
		}, nil
	})
	swapFlags(swapCmd)
	swapCmd.Flags().Bool("collect-hook-fees", false, "route the swap through the pool's hook-fee accounts")

	withdrawCmd := intentCommand("withdraw", "Burn LP tokens for both reserves", func(ctx context.Context, cmd *cobra.Command, a *app.App) (assembler.Intent, error) {
		pool, _ := cmd.Flags().GetString("pool")
		amountL, _ := cmd.Flags().GetUint64("amount-l")
		minX, _ := cmd.Flags().GetUint64("min-x")
		minY, _ := cmd.Flags().GetUint64("min-y")
		slippage, _ := cmd.Flags().GetUint16("slippage-bps")
		return &assembler.WithdrawIntent{
			PoolKey:     pool,
			AmountL:     amountL,
			MinX:        minX,
			MinY:        minY,
			SlippageBps: slippage,
		}, nil
	})
	withdrawCmd.Flags().String("pool", "", "pool id or config address")
	withdrawCmd.Flags().Uint64("amount-l", 0, "LP tokens to burn")
	withdrawCmd.Flags().Uint64("min-x", 0, "least X to receive; 0 derives it from slippage")
	withdrawCmd.Flags().Uint64("min-y", 0, "least Y to receive; 0 derives it from slippage")
	withdrawCmd.Flags().Uint16("slippage-bps", constants.DefaultSlippageBps, "slippage tolerance for derived minima")

	enableCmd := intentCommand("enable-hooks", "Turn on hook-fee collection for a pool", func(ctx context.Context, cmd *cobra.Command, a *app.App) (assembler.Intent, error) {
		pool, _ := cmd.Flags().GetString("pool")
		return &assembler.EnableHooksIntent{PoolKey: pool}, nil
	})
	enableCmd.Flags().String("pool", "", "pool id or config address")

	mintCmd := intentCommand("create-mint", "Create a Token-2022 mint with a transfer hook", func(ctx context.Context, cmd *cobra.Command, a *app.App) (assembler.Intent, error) {
		hook, err := keyFlag(cmd, "hook-program", false)
		if err != nil {
			return nil, err
		}
		decimals, _ := cmd.Flags().GetUint8("decimals")
		amount, _ := cmd.Flags().GetUint64("amount")
		name, _ := cmd.Flags().GetString("name")
		symbol, _ := cmd.Flags().GetString("symbol")
		metaList, _ := cmd.Flags().GetBool("init-meta-list")
		return &assembler.CreateHookedMintIntent{
			Decimals:      decimals,
			Amount:        amount,
			HookProgramID: hook,
			TokenName:     name,
			Symbol:        symbol,
			InitMetaList:  metaList,
		}, nil
	})
	mintCmd.Flags().Uint8("decimals", 9, "mint decimals")
	mintCmd.Flags().Uint64("amount", 0, "raw amount minted to the wallet")
	mintCmd.Flags().String("hook-program", "", "hook program (defaults to HOOK_PROGRAM_ID)")
	mintCmd.Flags().String("name", "", "registry display name")
	mintCmd.Flags().String("symbol", "", "registry symbol")
	mintCmd.Flags().Bool("init-meta-list", true, "also create the hook's extra-account-meta list")

	custodialCmd := intentCommand("custodial-pool", "Create a wallet-custodied pool for direct swaps", func(ctx context.Context, cmd *cobra.Command, a *app.App) (assembler.Intent, error) {
		mintX, err := keyFlag(cmd, "mint-x", true)
		if err != nil {
			return nil, err
		}
		mintY, err := keyFlag(cmd, "mint-y", true)
		if err != nil {
			return nil, err
		}
		amountX, _ := cmd.Flags().GetUint64("amount-x")
		amountY, _ := cmd.Flags().GetUint64("amount-y")
		fee, _ := cmd.Flags().GetUint16("fee-bps")
		return &assembler.CustodialPoolIntent{
			MintX:   mintX,
			MintY:   mintY,
			AmountX: amountX,
			AmountY: amountY,
			FeeBps:  fee,
		}, nil
	})
	custodialCmd.Flags().String("mint-x", "", "first mint")
	custodialCmd.Flags().String("mint-y", "", "second mint")
	custodialCmd.Flags().Uint64("amount-x", 0, "initial X reserve")
	custodialCmd.Flags().Uint64("amount-y", 0, "initial Y reserve")
	custodialCmd.Flags().Uint16("fee-bps", constants.DefaultFeeBps, "swap fee in basis points")

	directCmd := intentCommand("direct-swap", "Swap against a custodial pool", func(ctx context.Context, cmd *cobra.Command, a *app.App) (assembler.Intent, error) {
		input, err := keyFlag(cmd, "input-mint", true)
		if err != nil {
			return nil, err
		}
		amount, err := amountFlag(ctx, cmd, a, "amount", input)
		if err != nil {
			return nil, err
		}
		pool, _ := cmd.Flags().GetString("pool")
		slippage, _ := cmd.Flags().GetUint16("slippage-bps")
		allowance, _ := cmd.Flags().GetUint64("hook-fee-allowance")
		return &assembler.DirectSwapIntent{
			PoolKey:          pool,
			InputMint:        input,
			AmountIn:         amount,
			SlippageBps:      slippage,
			HookFeeAllowance: allowance,
		}, nil
	})
	swapFlags(directCmd)

	return []*cobra.Command{initCmd, depositCmd, swapCmd, withdrawCmd, enableCmd, mintCmd, custodialCmd, directCmd}
}

func swapFlags(cmd *cobra.Command) {
	cmd.Flags().String("pool", "", "pool id or config address")
	cmd.Flags().String("input-mint", "", "mint being sold")
	cmd.Flags().String("amount", "", "amount in (raw units, or human with --ui)")
	cmd.Flags().Bool("ui", false, "treat --amount as a decimal scaled by the mint's decimals")
	cmd.Flags().Uint16("slippage-bps", constants.DefaultSlippageBps, "slippage tolerance")
	cmd.Flags().Uint64("hook-fee-allowance", 0, "wrapped SOL the hook delegate may pull")
}
