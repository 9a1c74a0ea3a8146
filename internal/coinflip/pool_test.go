package coinflip_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-pool/internal/coinflip"
	"github.com/radieske/coinflip-pool/internal/flip-service/memstore"
)

func TestInitializePool(t *testing.T) {
	f := newFixture(t, 0, 0)

	assert.Equal(t, coinflip.DefaultWinReturnPercent, f.pool.WinReturnPercent)
	assert.Equal(t, uint64(90), f.pool.WinReturnPercent)
	assert.Equal(t, testAsset, f.pool.AssetID)
	assert.Equal(t, f.custody, f.pool.CustodyAccount)
	assert.Equal(t, testNonce, f.pool.AuthorityNonce)

	stored, err := f.store.GetPool(context.Background(), f.pool.ID)
	require.NoError(t, err)
	assert.Equal(t, f.pool.ID, stored.ID)
	assert.Equal(t, uint64(90), stored.WinReturnPercent)

	require.Len(t, f.notifier.pools, 1)
	ev := f.notifier.pools[0]
	assert.Equal(t, f.pool.ID, ev.PoolID)
	assert.Equal(t, coinflip.DeriveAuthority(f.pool.ID, testNonce), ev.Authority)
	assert.Equal(t, "house", ev.InitializedBy)

	// nenhum fundo se move na inicialização
	assert.Zero(t, f.balance(t, f.custody))
	assert.Empty(t, f.store.Entries())
}

func TestInitializePoolTwice(t *testing.T) {
	f := newFixture(t, 0, 0)

	_, err := f.initializer.Initialize(context.Background(), coinflip.InitializeParams{
		PoolID:         f.pool.ID,
		Signer:         "someone-else",
		AssetID:        testAsset,
		CustodyAccount: f.custody,
		Nonce:          testNonce,
	})
	require.ErrorIs(t, err, coinflip.ErrAlreadyInitialized)

	stored, err := f.store.GetPool(context.Background(), f.pool.ID)
	require.NoError(t, err)
	assert.Equal(t, "house", stored.InitializedBy)
}

func TestInitializePoolRejectsCustody(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	ini := coinflip.NewInitializer(zap.NewNop(), st, nil)

	const poolID = "pool-x"
	good, err := st.OpenAccount(ctx, coinflip.DeriveAuthority(poolID, 1), testAsset)
	require.NoError(t, err)
	otherAsset, err := st.OpenAccount(ctx, coinflip.DeriveAuthority(poolID, 1), "USDC")
	require.NoError(t, err)
	userOwned, err := st.OpenAccount(ctx, "some-user", testAsset)
	require.NoError(t, err)

	cases := []struct {
		name    string
		custody string
		nonce   uint8
		wantErr error
	}{
		{"asset differs", otherAsset.ID, 1, coinflip.ErrAccountMismatch},
		{"owner is not the derived authority", userOwned.ID, 1, coinflip.ErrAccountMismatch},
		{"wrong nonce", good.ID, 2, coinflip.ErrAccountMismatch},
		{"unknown account", "missing", 1, coinflip.ErrAccountMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ini.Initialize(ctx, coinflip.InitializeParams{
				PoolID:         poolID,
				Signer:         "house",
				AssetID:        testAsset,
				CustodyAccount: tc.custody,
				Nonce:          tc.nonce,
			})
			require.ErrorIs(t, err, tc.wantErr)
			_, err = st.GetPool(ctx, poolID)
			require.ErrorIs(t, err, coinflip.ErrPoolNotFound)
		})
	}
}

func TestInitializePoolRequiresID(t *testing.T) {
	ini := coinflip.NewInitializer(zap.NewNop(), memstore.New(), nil)
	_, err := ini.Initialize(context.Background(), coinflip.InitializeParams{AssetID: testAsset})
	require.ErrorIs(t, err, coinflip.ErrInvalidPoolID)
}

func TestInitializePoolPublishErrorIsNotFatal(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	n := &fakeNotifier{err: errors.New("broker down")}

	custody, err := st.OpenAccount(ctx, coinflip.DeriveAuthority("pool-p", 0), testAsset)
	require.NoError(t, err)

	pool, err := coinflip.NewInitializer(zap.NewNop(), st, n).Initialize(ctx, coinflip.InitializeParams{
		PoolID: "pool-p", Signer: "house", AssetID: testAsset, CustodyAccount: custody.ID, Nonce: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, "pool-p", pool.ID)
}
