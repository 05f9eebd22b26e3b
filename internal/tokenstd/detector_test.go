package tokenstd

import (
	"context"
	"errors"
	"testing"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/rpc"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/spl/spltest"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	accounts map[solana.PublicKey]*rpc.AccountInfo
	err      error
	calls    int
}

func (f *fakeReader) GetAccountInfo(ctx context.Context, pk solana.PublicKey, commitment string) (*rpc.AccountInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.accounts[pk], nil
}

var (
	authority = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	plainMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	extMint   = solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU")
	hookMint  = solana.MustPublicKeyFromBase58("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
)

func newReader() *fakeReader {
	return &fakeReader{accounts: map[solana.PublicKey]*rpc.AccountInfo{
		plainMint: {Owner: constants.TokenProgramID, Data: spltest.MintData(6, 500, authority, solana.PublicKey{})},
		extMint:   {Owner: constants.Token2022ProgramID, Data: spltest.MintData(9, 7, authority, solana.PublicKey{})},
		hookMint:  {Owner: constants.Token2022ProgramID, Data: spltest.MintData(9, 1, authority, constants.DefaultHookProgramID)},
	}}
}

func TestDetect(t *testing.T) {
	d := NewDetector(newReader(), rpc.CommitmentConfirmed, nil)
	ctx := context.Background()

	info, err := d.Detect(ctx, plainMint)
	require.NoError(t, err)
	assert.Equal(t, Plain, info.Standard)
	assert.Equal(t, constants.TokenProgramID, info.ProgramID)
	assert.Equal(t, uint8(6), info.Decimals)
	assert.Equal(t, uint64(500), info.Supply)
	assert.False(t, info.HasTransferHook())

	info, err = d.Detect(ctx, extMint)
	require.NoError(t, err)
	assert.Equal(t, ExtensionBearing, info.Standard)
	assert.Equal(t, constants.Token2022ProgramID, info.ProgramID)
	assert.False(t, info.HasTransferHook())

	info, err = d.Detect(ctx, hookMint)
	require.NoError(t, err)
	assert.Equal(t, ExtensionBearing, info.Standard)
	assert.Equal(t, constants.DefaultHookProgramID, info.TransferHookProgram)
}

func TestDetectNotCached(t *testing.T) {
	r := newReader()
	d := NewDetector(r, "", nil)

	for i := 0; i < 3; i++ {
		_, err := d.Detect(context.Background(), plainMint)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, r.calls)
}

func TestDetectMintNotFound(t *testing.T) {
	r := newReader()
	wallet := solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	r.accounts[wallet] = &rpc.AccountInfo{Owner: constants.SystemProgramID}
	broken := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	r.accounts[broken] = &rpc.AccountInfo{Owner: constants.TokenProgramID, Data: []byte{1, 2}}

	d := NewDetector(r, "", nil)
	ctx := context.Background()

	_, err := d.Detect(ctx, authority)
	assert.ErrorIs(t, err, ErrMintNotFound)

	_, err = d.Detect(ctx, wallet)
	assert.ErrorIs(t, err, ErrMintNotFound)

	_, err = d.Detect(ctx, broken)
	assert.ErrorIs(t, err, ErrMintNotFound)

	_, err = d.Detect(ctx, solana.PublicKey{})
	assert.ErrorIs(t, err, ErrMintNotFound)
}

func TestDetectPropagatesReadErrors(t *testing.T) {
	netErr := &rpc.NetworkError{Method: "getAccountInfo", Err: errors.New("connection refused")}
	d := NewDetector(&fakeReader{err: netErr}, "", nil)

	_, err := d.Detect(context.Background(), plainMint)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMintNotFound)

	var target *rpc.NetworkError
	assert.ErrorAs(t, err, &target)
}

func TestStandardString(t *testing.T) {
	assert.Equal(t, "token", Plain.String())
	assert.Equal(t, "token-2022", ExtensionBearing.String())
	assert.Equal(t, constants.Token2022ProgramID, ExtensionBearing.ProgramID())
}
