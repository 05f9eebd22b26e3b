package pda

import (
	"testing"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testProgram = constants.DefaultAMMProgramID
	testMintX   = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	testMintY   = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
)

func TestDerive_Deterministic(t *testing.T) {
	seeds := [][]byte{[]byte("config"), U64Seed(42)}

	a, err := Derive(seeds, testProgram)
	require.NoError(t, err)
	b, err := Derive(seeds, testProgram)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDerive_AnyByteChangesAddress(t *testing.T) {
	base := [][]byte{[]byte("config"), U64Seed(42)}
	want, err := Derive(base, testProgram)
	require.NoError(t, err)

	for part := range base {
		for i := range base[part] {
			mutated := [][]byte{append([]byte(nil), base[0]...), append([]byte(nil), base[1]...)}
			mutated[part][i] ^= 0x01

			got, err := Derive(mutated, testProgram)
			require.NoError(t, err)
			assert.NotEqual(t, want, got, "part %d byte %d", part, i)
		}
	}

	other, err := Derive(base, constants.DefaultHookProgramID)
	require.NoError(t, err)
	assert.NotEqual(t, want, other)
}

func TestDerive_InvalidSeeds(t *testing.T) {
	tests := []struct {
		name  string
		seeds [][]byte
		prog  solana.PublicKey
	}{
		{"no seeds", nil, testProgram},
		{"empty part", [][]byte{[]byte("config"), {}}, testProgram},
		{"oversized part", [][]byte{make([]byte, 33)}, testProgram},
		{"zero program", [][]byte{[]byte("config")}, solana.PublicKey{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Derive(tt.seeds, tt.prog)
			assert.ErrorIs(t, err, ErrInvalidSeed)
		})
	}
}

func TestU64Seed_LittleEndian(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0, 0, 0, 0, 0, 0, 0}, U64Seed(1))
	assert.Equal(t, []byte{0xef, 0xcd, 0xab, 0x89, 0x67, 0x45, 0x23, 0x01}, U64Seed(0x0123456789abcdef))
	assert.Len(t, U64Seed(0), 8)
}

func TestConfig_MatchesRawSeeds(t *testing.T) {
	want, _, err := solana.FindProgramAddress([][]byte{[]byte("config"), U64Seed(7)}, testProgram)
	require.NoError(t, err)

	got, err := Config(testProgram, 7)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAssociatedAddress_MatchesLibrary(t *testing.T) {
	owner := solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")

	want, _, err := solana.FindAssociatedTokenAddress(owner, testMintX)
	require.NoError(t, err)

	got, err := AssociatedAddress(testMintX, owner, solana.TokenProgramID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got2022, err := AssociatedAddress(testMintX, owner, constants.Token2022ProgramID)
	require.NoError(t, err)
	assert.NotEqual(t, got, got2022)
}

func TestAssociatedAddress_RejectsZeroKeys(t *testing.T) {
	_, err := AssociatedAddress(solana.PublicKey{}, testMintY, solana.TokenProgramID)
	assert.ErrorIs(t, err, ErrInvalidSeed)
	_, err = AssociatedAddress(testMintX, solana.PublicKey{}, solana.TokenProgramID)
	assert.ErrorIs(t, err, ErrInvalidSeed)
}

func TestPool_DerivesConsistentSet(t *testing.T) {
	p, err := Pool(testProgram, 1234, testMintX, testMintY, solana.TokenProgramID, constants.Token2022ProgramID)
	require.NoError(t, err)

	config, err := Config(testProgram, 1234)
	require.NoError(t, err)
	assert.Equal(t, config, p.Config)

	lp, err := Derive([][]byte{[]byte("lp"), config.Bytes()}, testProgram)
	require.NoError(t, err)
	assert.Equal(t, lp, p.LPMint)

	fees, err := Derive([][]byte{[]byte("hook_fees"), config.Bytes()}, testProgram)
	require.NoError(t, err)
	assert.Equal(t, fees, p.HookFeeVault)

	vaultX, err := AssociatedAddress(testMintX, config, solana.TokenProgramID)
	require.NoError(t, err)
	assert.Equal(t, vaultX, p.VaultX)

	vaultY, err := AssociatedAddress(testMintY, config, constants.Token2022ProgramID)
	require.NoError(t, err)
	assert.Equal(t, vaultY, p.VaultY)
	assert.NotEqual(t, p.VaultX, p.VaultY)
}

func TestExtraAccountMetas_UnderHookProgram(t *testing.T) {
	hook := constants.DefaultHookProgramID
	want, err := Derive([][]byte{[]byte("extra-account-metas"), testMintX.Bytes()}, hook)
	require.NoError(t, err)

	got, err := ExtraAccountMetas(testMintX, hook)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ExtraAccountMetas(solana.PublicKey{}, hook)
	assert.ErrorIs(t, err, ErrInvalidSeed)
}

func TestParseAddress(t *testing.T) {
	pk, err := ParseAddress("  " + testMintX.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, testMintX, pk)

	for _, bad := range []string{"", "not-base58!", "11111111111111111111111111111111"} {
		_, err := ParseAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidSeed, bad)
	}
}
