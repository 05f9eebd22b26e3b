package assembler

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/registry"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/rpc"
	"github.com/aman-zulfiqar/solana-hook-amm/internal/spl/spltest"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var (
	mintX = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	mintY = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	wsol  = constants.NativeMint2022
)

const simOK = `{"err":null,"logs":["Program log: ok"],"unitsConsumed":4200}`

type fakeLedger struct {
	mu        sync.Mutex
	accounts  map[solana.PublicKey]*rpc.AccountInfo
	sim       string
	simErr    error
	simulated int
	reads     int
}

func newLedger() *fakeLedger {
	return &fakeLedger{accounts: map[solana.PublicKey]*rpc.AccountInfo{}, sim: simOK}
}

func (l *fakeLedger) put(pk, owner solana.PublicKey, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[pk] = &rpc.AccountInfo{Lamports: 1_000_000, Owner: owner, Data: data}
}

func (l *fakeLedger) GetAccountInfo(ctx context.Context, pk solana.PublicKey, commitment string) (*rpc.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads++
	return l.accounts[pk], nil
}

func (l *fakeLedger) GetMultipleAccounts(ctx context.Context, pks []solana.PublicKey, commitment string) ([]*rpc.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads++
	out := make([]*rpc.AccountInfo, len(pks))
	for i, pk := range pks {
		out[i] = l.accounts[pk]
	}
	return out, nil
}

func (l *fakeLedger) GetLatestBlockhash(ctx context.Context, commitment string) (*rpc.Blockhash, error) {
	return &rpc.Blockhash{Hash: solana.Hash{7}, LastValidBlockHeight: 100}, nil
}

func (l *fakeLedger) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	return 1_461_600, nil
}

func (l *fakeLedger) SimulateTransaction(ctx context.Context, tx *solana.Transaction, opts rpc.SimulateOptions) (*rpc.SimulationValue, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.simulated++
	if l.simErr != nil {
		return nil, l.simErr
	}
	var v rpc.SimulationValue
	if err := json.Unmarshal([]byte(l.sim), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

type fakeWallet struct {
	key        solana.PrivateKey
	signed     int
	sent       int
	confirmed  int
	sendErr    error
	confirmErr error
}

func newWallet(t *testing.T) *fakeWallet {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return &fakeWallet{key: key}
}

func (w *fakeWallet) PublicKey() solana.PublicKey { return w.key.PublicKey() }

func (w *fakeWallet) Sign(tx *solana.Transaction, coSigners ...solana.PrivateKey) error {
	w.signed++
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.key.PublicKey()) {
			return &w.key
		}
		for i := range coSigners {
			if key.Equals(coSigners[i].PublicKey()) {
				return &coSigners[i]
			}
		}
		return nil
	})
	return err
}

func (w *fakeWallet) SendTx(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	w.sent++
	if w.sendErr != nil {
		return solana.Signature{}, w.sendErr
	}
	return tx.Signatures[0], nil
}

func (w *fakeWallet) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	w.confirmed++
	return w.confirmErr
}

type recorder struct {
	transitions []State
	finished    int
}

func (r *recorder) OnTransition(exec *Execution, from, to State) {
	r.transitions = append(r.transitions, to)
}

func (r *recorder) OnFinish(ctx context.Context, exec *Execution) { r.finished++ }

type fixture struct {
	ledger *fakeLedger
	wallet *fakeWallet
	store  *registry.MemoryStore
	asm    *Assembler
	pool   *registry.PoolDescriptor
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newFixture serves a 1000/1000 pool at seed 42 between a plain mint X
// and a hooked Token-2022 mint Y, with Y registered in the registry.
func newFixture(t *testing.T, tweak ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		ledger: newLedger(),
		wallet: newWallet(t),
		store:  registry.NewMemoryStore(),
	}
	owner := f.wallet.PublicKey()
	ctx := context.Background()

	f.ledger.put(mintX, constants.TokenProgramID, spltest.MintData(6, 1_000_000, owner, solana.PublicKey{}))
	f.ledger.put(mintY, constants.Token2022ProgramID, spltest.MintData(6, 1_000_000, owner, constants.DefaultHookProgramID))
	f.ledger.put(wsol, constants.Token2022ProgramID, spltest.MintData(9, 0, solana.PublicKey{}, solana.PublicKey{}))
	require.NoError(t, f.store.PutMint(ctx, &registry.MintHookMeta{Mint: mintY, HookProgramID: constants.DefaultHookProgramID}))

	f.pool = f.addPool(t, 42, mintX, mintY, constants.TokenProgramID, constants.Token2022ProgramID, 1000, 1000, 1000)

	opts := DefaultOptions()
	for _, fn := range tweak {
		fn(&opts)
	}
	asm, err := New(f.ledger, f.wallet, f.store, opts, quietLogger())
	require.NoError(t, err)
	f.asm = asm
	return f
}

func (f *fixture) addPool(t *testing.T, seed uint64, mx, my, tpx, tpy solana.PublicKey, x, y, supply uint64) *registry.PoolDescriptor {
	t.Helper()
	desc, err := registry.NewPoolDescriptor(registry.PoolParams{
		ProgramID:     constants.DefaultAMMProgramID,
		Seed:          seed,
		Authority:     f.wallet.PublicKey(),
		MintX:         mx,
		MintY:         my,
		TokenProgramX: tpx,
		TokenProgramY: tpy,
		FeeBps:        30,
	})
	require.NoError(t, err)
	f.ledger.put(desc.VaultX, tpx, spltest.TokenAccountData(mx, desc.Config, x))
	f.ledger.put(desc.VaultY, tpy, spltest.TokenAccountData(my, desc.Config, y))
	f.ledger.put(desc.LPMint, constants.TokenProgramID, spltest.MintData(6, supply, desc.Config, solana.PublicKey{}))
	require.NoError(t, f.store.PutPool(context.Background(), desc))
	return desc
}

func states(exec *Execution) []State {
	out := make([]State, len(exec.Timeline))
	for i, tr := range exec.Timeline {
		out[i] = tr.State
	}
	return out
}

func ixData(t *testing.T, ix solana.Instruction) []byte {
	t.Helper()
	data, err := ix.Data()
	require.NoError(t, err)
	return data
}

// indexOf returns the position of the first instruction matching fn, or -1.
func indexOf(ixs []solana.Instruction, fn func(solana.Instruction) bool) int {
	for i, ix := range ixs {
		if fn(ix) {
			return i
		}
	}
	return -1
}
