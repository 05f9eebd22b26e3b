// Package spl builds the token-program and associated-token-account
// instructions the AMM client needs. Builders take the token program id
// explicitly so the same code serves Token and Token-2022.
package spl

import (
	"encoding/binary"
	"fmt"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// Token instruction indices (shared by Token and Token-2022).
const (
	ixApprove              = 4
	ixMintTo               = 7
	ixCloseAccount         = 9
	ixTransferChecked      = 12
	ixSyncNative           = 17
	ixInitializeMint2      = 20
	ixTransferHookExt      = 36
	transferHookInitialize = 0

	ataCreateIdempotent = 1
)

// Account sizes for Token-2022 mints carrying the TransferHook extension:
// base mint padded to the account length, one account-type byte, a TLV
// header and the 64-byte extension body.
const (
	MintSize             = 82
	TokenAccountSize     = 165
	MintWithTransferHook = TokenAccountSize + 1 + 4 + 64
)

// NewCreateATAIdempotentIx creates the associated token account for
// (owner, mint) if it is missing and succeeds if it already exists.
// Account order:
// 0. payer (signer, writable)
// 1. ata (writable)
// 2. owner
// 3. mint
// 4. system_program
// 5. token_program
func NewCreateATAIdempotentIx(payer, ata, owner, mint, tokenProgramID solana.PublicKey) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: ata, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: tokenProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(constants.AssociatedTokenProgramID, accounts, []byte{ataCreateIdempotent})
}

// NewSystemTransferIx moves lamports between system accounts.
func NewSystemTransferIx(from, to solana.PublicKey, lamports uint64) (solana.Instruction, error) {
	ix, err := system.NewTransferInstruction(lamports, from, to).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("system transfer: %w", err)
	}
	return ix, nil
}

// NewCreateAccountIx allocates space owned by owner, funded by payer.
func NewCreateAccountIx(payer, newAccount, owner solana.PublicKey, lamports, space uint64) (solana.Instruction, error) {
	ix, err := system.NewCreateAccountInstruction(lamports, space, owner, payer, newAccount).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return ix, nil
}

// NewSyncNativeIx refreshes a wrapped-SOL account's token amount from its
// lamport balance.
func NewSyncNativeIx(nativeAccount, tokenProgramID solana.PublicKey) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: nativeAccount, IsSigner: false, IsWritable: true},
	}
	return solana.NewInstruction(tokenProgramID, accounts, []byte{ixSyncNative})
}

// NewApproveIx lets delegate spend up to amount from source.
func NewApproveIx(source, delegate, owner solana.PublicKey, amount uint64, tokenProgramID solana.PublicKey) solana.Instruction {
	data := make([]byte, 1+8)
	data[0] = ixApprove
	binary.LittleEndian.PutUint64(data[1:], amount)

	accounts := []*solana.AccountMeta{
		{PublicKey: source, IsSigner: false, IsWritable: true},
		{PublicKey: delegate, IsSigner: false, IsWritable: false},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}
	return solana.NewInstruction(tokenProgramID, accounts, data)
}

// NewCloseAccountIx closes account and sends its lamports to destination.
func NewCloseAccountIx(account, destination, owner, tokenProgramID solana.PublicKey) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: account, IsSigner: false, IsWritable: true},
		{PublicKey: destination, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}
	return solana.NewInstruction(tokenProgramID, accounts, []byte{ixCloseAccount})
}

// NewTransferCheckedIx transfers amount of mint from source to destination.
// Extra accounts (hook program, validation list) are appended by callers.
func NewTransferCheckedIx(
	source, mint, destination, owner solana.PublicKey,
	amount uint64,
	decimals uint8,
	tokenProgramID solana.PublicKey,
) *solana.GenericInstruction {
	data := make([]byte, 1+8+1)
	data[0] = ixTransferChecked
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals

	accounts := []*solana.AccountMeta{
		{PublicKey: source, IsSigner: false, IsWritable: true},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: destination, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}
	return solana.NewInstruction(tokenProgramID, accounts, data)
}

// NewMintToIx mints amount to destination.
func NewMintToIx(mint, destination, authority solana.PublicKey, amount uint64, tokenProgramID solana.PublicKey) solana.Instruction {
	data := make([]byte, 1+8)
	data[0] = ixMintTo
	binary.LittleEndian.PutUint64(data[1:], amount)

	accounts := []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
		{PublicKey: destination, IsSigner: false, IsWritable: true},
		{PublicKey: authority, IsSigner: true, IsWritable: false},
	}
	return solana.NewInstruction(tokenProgramID, accounts, data)
}

// NewInitializeMint2Ix initialises a mint without requiring the rent sysvar.
// A zero freezeAuthority encodes as None.
func NewInitializeMint2Ix(mint solana.PublicKey, decimals uint8, mintAuthority, freezeAuthority, tokenProgramID solana.PublicKey) solana.Instruction {
	data := make([]byte, 0, 2+32+1+32)
	data = append(data, ixInitializeMint2, decimals)
	data = append(data, mintAuthority.Bytes()...)
	if freezeAuthority.IsZero() {
		data = append(data, 0)
		data = append(data, make([]byte, 32)...)
	} else {
		data = append(data, 1)
		data = append(data, freezeAuthority.Bytes()...)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
	}
	return solana.NewInstruction(tokenProgramID, accounts, data)
}

// NewInitializeTransferHookIx sets the transfer-hook program on an
// uninitialised Token-2022 mint. Must precede InitializeMint2.
func NewInitializeTransferHookIx(mint, authority, hookProgramID solana.PublicKey) solana.Instruction {
	data := make([]byte, 0, 2+32+32)
	data = append(data, ixTransferHookExt, transferHookInitialize)
	data = append(data, authority.Bytes()...)
	data = append(data, hookProgramID.Bytes()...)

	accounts := []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
	}
	return solana.NewInstruction(constants.Token2022ProgramID, accounts, data)
}
