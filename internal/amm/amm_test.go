package amm

import (
	"encoding/binary"
	"testing"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/anchor"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/pda"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mintX  = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	mintY  = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	signer = solana.MustPublicKeyFromBase58("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
)

func testPool(t *testing.T) Pool {
	t.Helper()
	addrs, err := pda.Pool(constants.DefaultAMMProgramID, 77, mintX, mintY, constants.TokenProgramID, constants.TokenProgramID)
	require.NoError(t, err)
	return Pool{
		ProgramID:    constants.DefaultAMMProgramID,
		Config:       addrs.Config,
		LPMint:       addrs.LPMint,
		MintX:        mintX,
		MintY:        mintY,
		VaultX:       addrs.VaultX,
		VaultY:       addrs.VaultY,
		TokenProgram: constants.TokenProgramID,
	}
}

func testUser(t *testing.T, pool Pool) User {
	t.Helper()
	x, err := pda.AssociatedAddress(mintX, signer, constants.TokenProgramID)
	require.NoError(t, err)
	y, err := pda.AssociatedAddress(mintY, signer, constants.TokenProgramID)
	require.NoError(t, err)
	lp, err := pda.AssociatedAddress(pool.LPMint, signer, constants.TokenProgramID)
	require.NoError(t, err)
	return User{Signer: signer, UserX: x, UserY: y, UserLP: lp}
}

func ixData(t *testing.T, ix *solana.GenericInstruction) []byte {
	t.Helper()
	data, err := ix.Data()
	require.NoError(t, err)
	return data
}

func hasDiscriminator(t *testing.T, data []byte, name string) {
	t.Helper()
	d := anchor.Discriminator(name)
	require.GreaterOrEqual(t, len(data), 8)
	assert.Equal(t, d[:], data[:8])
}

func TestInitialize(t *testing.T) {
	pool := testPool(t)

	ix, err := Initialize(pool, signer, 77, 30, signer)
	require.NoError(t, err)

	data := ixData(t, ix)
	hasDiscriminator(t, data, IxInitialize)
	require.Len(t, data, 8+8+2+1+32)
	assert.Equal(t, uint64(77), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint16(30), binary.LittleEndian.Uint16(data[16:18]))
	assert.Equal(t, byte(1), data[18])
	assert.Equal(t, signer.Bytes(), data[19:51])

	accs := ix.Accounts()
	require.Len(t, accs, 10)
	assert.True(t, accs[0].IsSigner)
	assert.Equal(t, pool.LPMint, accs[3].PublicKey)
	assert.Equal(t, pool.Config, accs[6].PublicKey)
	assert.Equal(t, constants.AssociatedTokenProgramID, accs[9].PublicKey)

	noAuth, err := Initialize(pool, signer, 77, 30, solana.PublicKey{})
	require.NoError(t, err)
	assert.Len(t, ixData(t, noAuth), 8+8+2+1)

	_, err = Initialize(pool, signer, 77, 10_001, signer)
	assert.Error(t, err)
}

func TestDepositAndWithdraw(t *testing.T) {
	pool := testPool(t)
	user := testUser(t, pool)
	hook := solana.AccountMetaSlice{solana.Meta(constants.DefaultHookProgramID)}

	dep, err := Deposit(pool, user, 1_000, 500, 600, hook)
	require.NoError(t, err)
	data := ixData(t, dep)
	hasDiscriminator(t, data, IxDeposit)
	require.Len(t, data, 8+24)
	assert.Equal(t, uint64(1_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(500), binary.LittleEndian.Uint64(data[16:24]))
	assert.Equal(t, uint64(600), binary.LittleEndian.Uint64(data[24:32]))

	accs := dep.Accounts()
	require.Len(t, accs, 14)
	assert.Equal(t, user.UserLP, accs[8].PublicKey)
	assert.Equal(t, constants.DefaultHookProgramID, accs[13].PublicKey)
	assert.False(t, accs[13].IsSigner || accs[13].IsWritable)

	wd, err := Withdraw(pool, user, 10, 1, 2, nil)
	require.NoError(t, err)
	hasDiscriminator(t, ixData(t, wd), IxWithdraw)
	assert.Len(t, wd.Accounts(), 13)

	_, err = Deposit(pool, user, 0, 1, 1, nil)
	assert.Error(t, err)
	_, err = Withdraw(pool, User{Signer: signer}, 1, 0, 0, nil)
	assert.Error(t, err)
}

func TestSwap(t *testing.T) {
	pool := testPool(t)
	user := testUser(t, pool)

	plain, err := Swap(pool, user, 100, true, 89, nil, nil)
	require.NoError(t, err)
	data := ixData(t, plain)
	hasDiscriminator(t, data, IxSwap)
	require.Len(t, data, 8+8+1+8)
	assert.Equal(t, uint64(100), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, byte(1), data[16])
	assert.Equal(t, uint64(89), binary.LittleEndian.Uint64(data[17:25]))
	require.Len(t, plain.Accounts(), 13)
	assert.Equal(t, user.UserX, plain.Accounts()[3].PublicKey)

	hook := solana.AccountMetaSlice{solana.Meta(constants.DefaultHookProgramID)}
	hooked, err := Swap(pool, user, 100, true, 89, nil, hook)
	require.NoError(t, err)
	assert.Equal(t, ixData(t, plain), ixData(t, hooked))
	require.Len(t, hooked.Accounts(), 14)
	assert.Equal(t, plain.Accounts(), hooked.Accounts()[:13])

	fee := &FeeAccounts{HookFeeVault: mintX, WrappedMint: constants.NativeMint2022, PoolWrappedVault: mintY, UserWrappedAccount: signer}
	withFees, err := Swap(pool, user, 100, false, 89, fee, hook)
	require.NoError(t, err)
	accs := withFees.Accounts()
	require.Len(t, accs, 18)
	assert.Equal(t, constants.NativeMint2022, accs[14].PublicKey)
	assert.Equal(t, constants.DefaultHookProgramID, accs[17].PublicKey)
	assert.Equal(t, byte(0), ixData(t, withFees)[16])

	_, err = Swap(pool, user, 100, true, 0, nil, nil)
	assert.Error(t, err)
}

func TestEnableHooks(t *testing.T) {
	pool := testPool(t)
	fee := FeeAccounts{HookFeeVault: mintX, WrappedMint: constants.NativeMint2022, PoolWrappedVault: mintY}

	ix, err := EnableHooks(pool.ProgramID, signer, pool.Config, fee, constants.Token2022ProgramID)
	require.NoError(t, err)
	data := ixData(t, ix)
	hasDiscriminator(t, data, IxEnableHooks)
	assert.Len(t, data, 8)
	accs := ix.Accounts()
	require.Len(t, accs, 8)
	assert.Equal(t, constants.Token2022ProgramID, accs[6].PublicKey)

	_, err = EnableHooks(pool.ProgramID, signer, pool.Config, FeeAccounts{}, constants.Token2022ProgramID)
	assert.Error(t, err)
}

func TestConfigRoundTrip(t *testing.T) {
	in := &Config{
		Seed:         42,
		Authority:    signer,
		Mint:         mintX,
		Fee:          30,
		Locked:       true,
		ConfigBump:   254,
		WrappedMint:  constants.NativeMint2022,
		SolVaultBump: 253,
		LPBump:       252,
	}
	data, err := EncodeConfig(in)
	require.NoError(t, err)

	out, err := DecodeConfig(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	in.Authority = solana.PublicKey{}
	data, err = EncodeConfig(in)
	require.NoError(t, err)
	out, err = DecodeConfig(data)
	require.NoError(t, err)
	assert.True(t, out.Authority.IsZero())
	assert.Equal(t, uint8(252), out.LPBump)

	_, err = DecodeConfig(data[:20])
	assert.Error(t, err)
	data[0] ^= 0xff
	_, err = DecodeConfig(data)
	assert.Error(t, err)
}

func TestErrorByCode(t *testing.T) {
	e, ok := ErrorByCode(6003)
	require.True(t, ok)
	assert.Equal(t, "SlippageExceded", e.Name)
	assert.Contains(t, e.Error(), "6003")

	e, ok = ErrorByCode(6017)
	require.True(t, ok)
	assert.Equal(t, "ZeroBalance", e.Name)

	_, ok = ErrorByCode(6018)
	assert.False(t, ok)
	_, ok = ErrorByCode(1)
	assert.False(t, ok)
}
