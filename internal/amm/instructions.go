// Package amm builds instructions for the constant-product AMM program and
// decodes its accounts and errors.
package amm

import (
	"encoding/binary"
	"fmt"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/anchor"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction names as exposed by the program.
const (
	IxInitialize  = "initialize"
	IxDeposit     = "deposit"
	IxSwap        = "swap"
	IxWithdraw    = "withdraw"
	IxEnableHooks = "enable_hooks"
)

// Pool is the set of pool accounts every instruction names.
type Pool struct {
	ProgramID    solana.PublicKey
	Config       solana.PublicKey
	LPMint       solana.PublicKey
	MintX        solana.PublicKey
	MintY        solana.PublicKey
	VaultX       solana.PublicKey
	VaultY       solana.PublicKey
	TokenProgram solana.PublicKey
}

// User is the trader's side of a deposit, swap or withdraw.
type User struct {
	Signer solana.PublicKey
	UserX  solana.PublicKey
	UserY  solana.PublicKey
	UserLP solana.PublicKey
}

// FeeAccounts are the optional accounts that switch on hook-fee
// collection.
type FeeAccounts struct {
	HookFeeVault       solana.PublicKey
	WrappedMint        solana.PublicKey
	PoolWrappedVault   solana.PublicKey
	UserWrappedAccount solana.PublicKey
}

func (p *Pool) validate() error {
	for name, key := range map[string]solana.PublicKey{
		"program": p.ProgramID, "config": p.Config, "lp mint": p.LPMint,
		"mint x": p.MintX, "mint y": p.MintY, "vault x": p.VaultX,
		"vault y": p.VaultY, "token program": p.TokenProgram,
	} {
		if key.IsZero() {
			return fmt.Errorf("pool %s is required", name)
		}
	}
	return nil
}

func (u *User) validate(withTokens bool) error {
	if u.Signer.IsZero() {
		return fmt.Errorf("signer is required")
	}
	if withTokens && (u.UserX.IsZero() || u.UserY.IsZero() || u.UserLP.IsZero()) {
		return fmt.Errorf("user token accounts are required")
	}
	return nil
}

func programAccounts(tokenProgram solana.PublicKey) solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.Meta(constants.SystemProgramID),
		solana.Meta(tokenProgram),
		solana.Meta(constants.AssociatedTokenProgramID),
	}
}

// Initialize creates the pool config, LP mint and vaults. A zero
// authority initializes a pool without an update authority.
func Initialize(pool Pool, signer solana.PublicKey, seed uint64, feeBps uint16, authority solana.PublicKey) (*solana.GenericInstruction, error) {
	if err := pool.validate(); err != nil {
		return nil, err
	}
	if signer.IsZero() {
		return nil, fmt.Errorf("signer is required")
	}
	if uint64(feeBps) > constants.BpsDenominator {
		return nil, fmt.Errorf("fee %d bps exceeds %d", feeBps, constants.BpsDenominator)
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(signer).SIGNER().WRITE(),
		solana.Meta(pool.MintX),
		solana.Meta(pool.MintY),
		solana.Meta(pool.LPMint).WRITE(),
		solana.Meta(pool.VaultX).WRITE(),
		solana.Meta(pool.VaultY).WRITE(),
		solana.Meta(pool.Config).WRITE(),
	}
	accounts = append(accounts, programAccounts(pool.TokenProgram)...)

	return anchor.NewInstruction(pool.ProgramID, IxInitialize, accounts, func(enc *bin.Encoder) error {
		if err := enc.WriteUint64(seed, binary.LittleEndian); err != nil {
			return err
		}
		if err := enc.WriteUint16(feeBps, binary.LittleEndian); err != nil {
			return err
		}
		return anchor.WriteOptionalKey(enc, authority)
	})
}

// Deposit mints amount LP tokens, pulling at most maxX and maxY.
func Deposit(pool Pool, user User, amount, maxX, maxY uint64, remaining solana.AccountMetaSlice) (*solana.GenericInstruction, error) {
	if err := pool.validate(); err != nil {
		return nil, err
	}
	if err := user.validate(true); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, fmt.Errorf("deposit amount is zero")
	}

	accounts := liquidityAccounts(pool, user)
	accounts = append(accounts, remaining...)

	return anchor.NewInstruction(pool.ProgramID, IxDeposit, accounts, u64Args(amount, maxX, maxY))
}

// Withdraw burns amount LP tokens and requires at least minX and minY back.
func Withdraw(pool Pool, user User, amount, minX, minY uint64, remaining solana.AccountMetaSlice) (*solana.GenericInstruction, error) {
	if err := pool.validate(); err != nil {
		return nil, err
	}
	if err := user.validate(true); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, fmt.Errorf("withdraw amount is zero")
	}

	accounts := liquidityAccounts(pool, user)
	accounts = append(accounts, remaining...)

	return anchor.NewInstruction(pool.ProgramID, IxWithdraw, accounts, u64Args(amount, minX, minY))
}

func liquidityAccounts(pool Pool, user User) solana.AccountMetaSlice {
	accounts := solana.AccountMetaSlice{
		solana.Meta(user.Signer).SIGNER().WRITE(),
		solana.Meta(pool.MintX),
		solana.Meta(pool.MintY),
		solana.Meta(pool.LPMint).WRITE(),
		solana.Meta(pool.VaultX).WRITE(),
		solana.Meta(pool.VaultY).WRITE(),
		solana.Meta(user.UserX).WRITE(),
		solana.Meta(user.UserY).WRITE(),
		solana.Meta(user.UserLP).WRITE(),
		solana.Meta(pool.Config).WRITE(),
	}
	return append(accounts, programAccounts(pool.TokenProgram)...)
}

// Swap trades amount of X for Y when isX, otherwise Y for X. fee, when
// non-nil, switches on hook-fee collection. remaining accounts (hook
// programs) follow everything else.
func Swap(pool Pool, user User, amount uint64, isX bool, minReceive uint64, fee *FeeAccounts, remaining solana.AccountMetaSlice) (*solana.GenericInstruction, error) {
	if err := pool.validate(); err != nil {
		return nil, err
	}
	if err := user.validate(true); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, fmt.Errorf("swap amount is zero")
	}
	if minReceive == 0 {
		return nil, fmt.Errorf("swap min receive is zero")
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(user.Signer).SIGNER().WRITE(),
		solana.Meta(pool.MintX),
		solana.Meta(pool.MintY),
		solana.Meta(user.UserX).WRITE(),
		solana.Meta(user.UserY).WRITE(),
		solana.Meta(user.UserLP).WRITE(),
		solana.Meta(pool.LPMint).WRITE(),
		solana.Meta(pool.VaultX).WRITE(),
		solana.Meta(pool.VaultY).WRITE(),
		solana.Meta(pool.Config).WRITE(),
	}
	accounts = append(accounts, programAccounts(pool.TokenProgram)...)
	if fee != nil {
		accounts = append(accounts, fee.metas()...)
	}
	accounts = append(accounts, remaining...)

	return anchor.NewInstruction(pool.ProgramID, IxSwap, accounts, func(enc *bin.Encoder) error {
		if err := enc.WriteUint64(amount, binary.LittleEndian); err != nil {
			return err
		}
		if err := enc.WriteBool(isX); err != nil {
			return err
		}
		return enc.WriteUint64(minReceive, binary.LittleEndian)
	})
}

// EnableHooks turns on hook-fee collection for a pool. Only the pool
// authority may sign.
func EnableHooks(programID, authority, config solana.PublicKey, fee FeeAccounts, wrappedTokenProgram solana.PublicKey) (*solana.GenericInstruction, error) {
	if programID.IsZero() || authority.IsZero() || config.IsZero() {
		return nil, fmt.Errorf("program, authority and config are required")
	}
	if fee.HookFeeVault.IsZero() || fee.WrappedMint.IsZero() || fee.PoolWrappedVault.IsZero() {
		return nil, fmt.Errorf("hook fee accounts are required")
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(authority).SIGNER().WRITE(),
		solana.Meta(config).WRITE(),
		solana.Meta(fee.HookFeeVault).WRITE(),
		solana.Meta(fee.WrappedMint),
		solana.Meta(fee.PoolWrappedVault).WRITE(),
	}
	accounts = append(accounts, programAccounts(wrappedTokenProgram)...)

	return anchor.NewInstruction(programID, IxEnableHooks, accounts, nil)
}

func (f *FeeAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.Meta(f.HookFeeVault).WRITE(),
		solana.Meta(f.WrappedMint),
		solana.Meta(f.PoolWrappedVault).WRITE(),
		solana.Meta(f.UserWrappedAccount).WRITE(),
	}
}

func u64Args(values ...uint64) anchor.ArgsWriter {
	return func(enc *bin.Encoder) error {
		for _, v := range values {
			if err := enc.WriteUint64(v, binary.LittleEndian); err != nil {
				return err
			}
		}
		return nil
	}
}
