package spl

import (
	"encoding/binary"
	"testing"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/spl/spltest"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	payer = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	mint  = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	other = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
)

func mustData(t *testing.T, ix solana.Instruction) []byte {
	t.Helper()
	data, err := ix.Data()
	require.NoError(t, err)
	return data
}

func TestNewCreateATAIdempotentIx(t *testing.T) {
	ix := NewCreateATAIdempotentIx(payer, other, payer, mint, constants.Token2022ProgramID)

	assert.Equal(t, constants.AssociatedTokenProgramID, ix.ProgramID())
	assert.Equal(t, []byte{1}, mustData(t, ix))

	accs := ix.Accounts()
	require.Len(t, accs, 6)
	assert.True(t, accs[0].IsSigner && accs[0].IsWritable)
	assert.True(t, accs[1].IsWritable)
	assert.Equal(t, solana.SystemProgramID, accs[4].PublicKey)
	assert.Equal(t, constants.Token2022ProgramID, accs[5].PublicKey)
}

func TestNewSystemTransferIx(t *testing.T) {
	ix, err := NewSystemTransferIx(payer, other, 2_000_000_000)
	require.NoError(t, err)

	data := mustData(t, ix)
	require.Len(t, data, 12)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[0:4]))
	assert.Equal(t, uint64(2_000_000_000), binary.LittleEndian.Uint64(data[4:12]))
	assert.Equal(t, solana.SystemProgramID, ix.ProgramID())
}

func TestNewSyncNativeIx(t *testing.T) {
	ix := NewSyncNativeIx(other, constants.Token2022ProgramID)
	assert.Equal(t, []byte{17}, mustData(t, ix))
	assert.Equal(t, constants.Token2022ProgramID, ix.ProgramID())
}

func TestNewTransferCheckedIx(t *testing.T) {
	ix := NewTransferCheckedIx(payer, mint, other, payer, 1234, 6, constants.Token2022ProgramID)

	data := mustData(t, ix)
	require.Len(t, data, 10)
	assert.Equal(t, byte(12), data[0])
	assert.Equal(t, uint64(1234), binary.LittleEndian.Uint64(data[1:9]))
	assert.Equal(t, byte(6), data[9])

	accs := ix.Accounts()
	require.Len(t, accs, 4)
	assert.True(t, accs[3].IsSigner)
	assert.False(t, accs[1].IsWritable)
}

func TestNewInitializeMint2Ix(t *testing.T) {
	data := mustData(t, NewInitializeMint2Ix(mint, 9, payer, solana.PublicKey{}, constants.Token2022ProgramID))
	require.Len(t, data, 67)
	assert.Equal(t, byte(20), data[0])
	assert.Equal(t, byte(9), data[1])
	assert.Equal(t, payer.Bytes(), data[2:34])
	assert.Equal(t, byte(0), data[34])

	data = mustData(t, NewInitializeMint2Ix(mint, 9, payer, other, constants.Token2022ProgramID))
	assert.Equal(t, byte(1), data[34])
	assert.Equal(t, other.Bytes(), data[35:67])
}

func TestNewInitializeTransferHookIx(t *testing.T) {
	ix := NewInitializeTransferHookIx(mint, payer, constants.DefaultHookProgramID)
	data := mustData(t, ix)
	require.Len(t, data, 66)
	assert.Equal(t, []byte{36, 0}, data[:2])
	assert.Equal(t, constants.DefaultHookProgramID.Bytes(), data[34:66])
	assert.Equal(t, constants.Token2022ProgramID, ix.ProgramID())
}

func TestNewApproveIx(t *testing.T) {
	ix := NewApproveIx(other, mint, payer, 5_000, constants.Token2022ProgramID)
	data := mustData(t, ix)
	require.Len(t, data, 9)
	assert.Equal(t, byte(4), data[0])
	assert.Equal(t, uint64(5_000), binary.LittleEndian.Uint64(data[1:]))

	accs := ix.Accounts()
	require.Len(t, accs, 3)
	assert.True(t, accs[0].IsWritable)
	assert.False(t, accs[1].IsWritable || accs[1].IsSigner)
	assert.True(t, accs[2].IsSigner)
}

func TestNewCloseAccountIx(t *testing.T) {
	ix := NewCloseAccountIx(other, payer, payer, constants.TokenProgramID)
	assert.Equal(t, []byte{9}, mustData(t, ix))
	assert.Len(t, ix.Accounts(), 3)
}

func TestNewMintToIx(t *testing.T) {
	data := mustData(t, NewMintToIx(mint, other, payer, 99, constants.Token2022ProgramID))
	assert.Equal(t, byte(7), data[0])
	assert.Equal(t, uint64(99), binary.LittleEndian.Uint64(data[1:]))
}

func TestDecodeMint(t *testing.T) {
	m, err := DecodeMint(spltest.MintData(6, 1_000, payer, solana.PublicKey{}))
	require.NoError(t, err)
	assert.Equal(t, uint8(6), m.Decimals)
	assert.Equal(t, uint64(1_000), m.Supply)

	_, err = DecodeMint(make([]byte, 10))
	assert.Error(t, err)
	_, err = DecodeMint(make([]byte, MintSize))
	assert.Error(t, err)
}

func TestDecodeTokenAccount(t *testing.T) {
	acc, err := DecodeTokenAccount(spltest.TokenAccountData(mint, payer, 42))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), acc.Amount)
	assert.Equal(t, mint, acc.Mint)
	assert.Equal(t, payer, acc.Owner)
}

func TestTransferHookProgram(t *testing.T) {
	data := spltest.MintData(9, 0, payer, constants.DefaultHookProgramID)
	require.Len(t, data, MintWithTransferHook)

	prog, ok := TransferHookProgram(data)
	require.True(t, ok)
	assert.Equal(t, constants.DefaultHookProgramID, prog)

	_, ok = TransferHookProgram(spltest.MintData(9, 0, payer, solana.PublicKey{}))
	assert.False(t, ok)
}
