package coinflip_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-pool/internal/coinflip"
	"github.com/radieske/coinflip-pool/internal/flip-service/memstore"
	"github.com/radieske/coinflip-pool/pkg/contracts/events"
)

const (
	testAsset = "SOL"
	testNonce = uint8(254)
)

// fakeNotifier guarda os eventos publicados
type fakeNotifier struct {
	mu    sync.Mutex
	pools []events.PoolInitialized
	flips []events.FlipSettled
	err   error
}

func (n *fakeNotifier) PublishPoolInitialized(_ context.Context, e events.PoolInitialized) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pools = append(n.pools, e)
	return n.err
}

func (n *fakeNotifier) PublishFlipSettled(_ context.Context, e events.FlipSettled) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flips = append(n.flips, e)
	return n.err
}

func fixedClock(ts int64) coinflip.Clock {
	return coinflip.ClockFunc(func(context.Context) (int64, error) { return ts, nil })
}

// failingStore falha a n-ésima transferência de cada unidade de trabalho
type failingStore struct {
	*memstore.Store
	failOn int
}

func (f failingStore) WithinTx(ctx context.Context, fn func(tx coinflip.Tx) error) error {
	return f.Store.WithinTx(ctx, func(tx coinflip.Tx) error {
		return fn(&failingTx{Tx: tx, failOn: f.failOn})
	})
}

type failingTx struct {
	coinflip.Tx
	n, failOn int
}

func (t *failingTx) Transfer(ctx context.Context, tr coinflip.Transfer) error {
	t.n++
	if t.n == t.failOn {
		return errors.New("ledger offline")
	}
	return t.Tx.Transfer(ctx, tr)
}

type fixture struct {
	store       *memstore.Store
	pool        *coinflip.Pool
	player      string
	playerAcc   string
	custody     string
	notifier    *fakeNotifier
	initializer *coinflip.Initializer
}

// newFixture cria um pool com custódia custodyFunds e um jogador com playerFunds
func newFixture(t *testing.T, custodyFunds, playerFunds uint64) *fixture {
	t.Helper()
	ctx := context.Background()

	st := memstore.New()
	n := &fakeNotifier{}
	poolID := "pool-" + t.Name()

	custody, err := st.OpenAccount(ctx, coinflip.DeriveAuthority(poolID, testNonce), testAsset)
	require.NoError(t, err)
	if custodyFunds > 0 {
		_, err = st.Deposit(ctx, custody.ID, custodyFunds)
		require.NoError(t, err)
	}

	player := "player-wallet"
	acc, err := st.OpenAccount(ctx, player, testAsset)
	require.NoError(t, err)
	if playerFunds > 0 {
		_, err = st.Deposit(ctx, acc.ID, playerFunds)
		require.NoError(t, err)
	}

	ini := coinflip.NewInitializer(zap.NewNop(), st, n)
	pool, err := ini.Initialize(ctx, coinflip.InitializeParams{
		PoolID:         poolID,
		Signer:         "house",
		AssetID:        testAsset,
		CustodyAccount: custody.ID,
		Nonce:          testNonce,
	})
	require.NoError(t, err)

	return &fixture{
		store:       st,
		pool:        pool,
		player:      player,
		playerAcc:   acc.ID,
		custody:     custody.ID,
		notifier:    n,
		initializer: ini,
	}
}

func (f *fixture) settler(s coinflip.Store, c coinflip.Clock) *coinflip.Settler {
	return coinflip.NewSettler(zap.NewNop(), s, coinflip.NewOracle(c), f.notifier)
}

func (f *fixture) flip(amount uint64) coinflip.FlipParams {
	return coinflip.FlipParams{
		PoolID:             f.pool.ID,
		Signer:             f.player,
		ParticipantAccount: f.playerAcc,
		CustodyAccount:     f.custody,
		Amount:             amount,
	}
}

func (f *fixture) balance(t *testing.T, id string) uint64 {
	t.Helper()
	a, err := f.store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.Balance
}
