package hooks

import (
	"fmt"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/amm"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/anchor"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pda"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/spl"
	"github.com/gagliardetto/solana-go"
)

// Wrapped identifies the wrapped-SOL mint the hook charges fees in.
type Wrapped struct {
	Mint         solana.PublicKey
	TokenProgram solana.PublicKey
}

// DefaultWrapped is wrapped SOL under Token-2022.
var DefaultWrapped = Wrapped{Mint: constants.NativeMint2022, TokenProgram: constants.Token2022ProgramID}

// FeeAccounts derives the accounts that switch a swap into hook-fee
// collection mode for the pool at config.
func FeeAccounts(programID, config, owner solana.PublicKey, wrapped Wrapped) (*amm.FeeAccounts, error) {
	vault, err := pda.HookFeeVault(programID, config)
	if err != nil {
		return nil, fmt.Errorf("hook fee vault: %w", err)
	}
	poolWrapped, err := pda.AssociatedAddress(wrapped.Mint, config, wrapped.TokenProgram)
	if err != nil {
		return nil, fmt.Errorf("pool wrapped vault: %w", err)
	}
	userWrapped, err := pda.AssociatedAddress(wrapped.Mint, owner, wrapped.TokenProgram)
	if err != nil {
		return nil, fmt.Errorf("user wrapped account: %w", err)
	}
	return &amm.FeeAccounts{
		HookFeeVault:       vault,
		WrappedMint:        wrapped.Mint,
		PoolWrappedVault:   poolWrapped,
		UserWrappedAccount: userWrapped,
	}, nil
}

// ExecuteAccounts is what the hook program reads on every transfer after
// the four token-program accounts (source, mint, destination, owner).
type ExecuteAccounts struct {
	MetaList          solana.PublicKey // 4
	WrappedMint       solana.PublicKey // 5
	TokenProgram      solana.PublicKey // 6
	AssociatedProgram solana.PublicKey // 7
	Delegate          solana.PublicKey // 8
	DelegateWrapped   solana.PublicKey // 9
	SenderWrapped     solana.PublicKey // 10
	HookProgram       solana.PublicKey
}

// DeriveExecuteAccounts derives the hook's extra accounts for transfers of
// mint sent by owner.
func DeriveExecuteAccounts(mint, owner, hookProgramID solana.PublicKey, wrapped Wrapped) (*ExecuteAccounts, error) {
	metaList, err := pda.ExtraAccountMetas(mint, hookProgramID)
	if err != nil {
		return nil, fmt.Errorf("meta list: %w", err)
	}
	delegate, err := pda.Delegate(hookProgramID)
	if err != nil {
		return nil, fmt.Errorf("delegate: %w", err)
	}
	delegateWrapped, err := pda.AssociatedAddress(wrapped.Mint, delegate, wrapped.TokenProgram)
	if err != nil {
		return nil, fmt.Errorf("delegate wrapped account: %w", err)
	}
	senderWrapped, err := pda.AssociatedAddress(wrapped.Mint, owner, wrapped.TokenProgram)
	if err != nil {
		return nil, fmt.Errorf("sender wrapped account: %w", err)
	}
	return &ExecuteAccounts{
		MetaList:          metaList,
		WrappedMint:       wrapped.Mint,
		TokenProgram:      wrapped.TokenProgram,
		AssociatedProgram: constants.AssociatedTokenProgramID,
		Delegate:          delegate,
		DelegateWrapped:   delegateWrapped,
		SenderWrapped:     senderWrapped,
		HookProgram:       hookProgramID,
	}, nil
}

// Metas lists the accounts in the order the hook validates them, followed
// by the hook program itself.
func (e *ExecuteAccounts) Metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.Meta(e.MetaList),
		solana.Meta(e.WrappedMint),
		solana.Meta(e.TokenProgram),
		solana.Meta(e.AssociatedProgram),
		solana.Meta(e.Delegate).WRITE(),
		solana.Meta(e.DelegateWrapped).WRITE(),
		solana.Meta(e.SenderWrapped).WRITE(),
		solana.Meta(e.HookProgram),
	}
}

// InitializeExtraAccountMetaListIx creates the validation account the
// token program consults before invoking the hook for mint.
func InitializeExtraAccountMetaListIx(payer, mint, hookProgramID solana.PublicKey, wrapped Wrapped) (*solana.GenericInstruction, error) {
	metaList, err := pda.ExtraAccountMetas(mint, hookProgramID)
	if err != nil {
		return nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.Meta(payer).SIGNER().WRITE(),
		solana.Meta(metaList).WRITE(),
		solana.Meta(mint),
		solana.Meta(wrapped.Mint),
		solana.Meta(wrapped.TokenProgram),
		solana.Meta(constants.AssociatedTokenProgramID),
		solana.Meta(constants.SystemProgramID),
	}
	return anchor.NewInstruction(hookProgramID, "initialize_extra_account_meta_list", accounts, nil)
}

// ApproveFeeDelegateIx lets the hook's delegate PDA draw up to allowance
// from owner's wrapped-SOL account. Hooked transfers fail without it.
func ApproveFeeDelegateIx(owner, hookProgramID solana.PublicKey, allowance uint64, wrapped Wrapped) (solana.Instruction, error) {
	delegate, err := pda.Delegate(hookProgramID)
	if err != nil {
		return nil, err
	}
	source, err := pda.AssociatedAddress(wrapped.Mint, owner, wrapped.TokenProgram)
	if err != nil {
		return nil, err
	}
	return spl.NewApproveIx(source, delegate, owner, allowance, wrapped.TokenProgram), nil
}
