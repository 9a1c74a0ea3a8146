package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-pool/internal/coinflip"
	"github.com/radieske/coinflip-pool/internal/flip-service/dto"
	"github.com/radieske/coinflip-pool/internal/flip-service/memstore"
)

type testAPI struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestAPI(t *testing.T, clock int64) *testAPI {
	t.Helper()
	log := zap.NewNop()
	st := memstore.New()
	oracle := coinflip.NewOracle(coinflip.ClockFunc(func(context.Context) (int64, error) { return clock, nil }))

	s := NewServer(log,
		coinflip.NewInitializer(log, st, nil),
		coinflip.NewSettler(log, st, oracle, nil),
		st, nil)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &testAPI{t: t, srv: srv}
}

func (a *testAPI) call(method, path string, in, out any) int {
	a.t.Helper()
	var body bytes.Buffer
	if in != nil {
		require.NoError(a.t, json.NewEncoder(&body).Encode(in))
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &body)
	require.NoError(a.t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

// setupPool abre custódia e jogador financiados e inicializa o pool
func (a *testAPI) setupPool(poolID string, custodyFunds, playerFunds uint64) (custody, player string) {
	a.t.Helper()
	var auth dto.AuthorityResponse
	require.Equal(a.t, http.StatusOK, a.call(http.MethodGet, "/v1/pools/"+poolID+"/authority?nonce=255", nil, &auth))

	var c, p dto.AccountResponse
	require.Equal(a.t, http.StatusCreated, a.call(http.MethodPost, "/v1/accounts", dto.OpenAccountRequest{Owner: auth.Authority, AssetID: "SOL"}, &c))
	require.Equal(a.t, http.StatusCreated, a.call(http.MethodPost, "/v1/accounts", dto.OpenAccountRequest{Owner: "player", AssetID: "SOL"}, &p))
	a.deposit(c.AccountID, custodyFunds)
	a.deposit(p.AccountID, playerFunds)

	nonce := uint8(255)
	var pool dto.PoolResponse
	require.Equal(a.t, http.StatusCreated, a.call(http.MethodPost, "/v1/pools/"+poolID, dto.InitializePoolRequest{
		Signer: "house", Nonce: &nonce, AssetID: "SOL", CustodyAccount: c.AccountID,
	}, &pool))
	require.Equal(a.t, uint64(90), pool.WinReturnPercent)
	require.Equal(a.t, auth.Authority, pool.Authority)
	return c.AccountID, p.AccountID
}

func (a *testAPI) deposit(accountID string, amount uint64) {
	a.t.Helper()
	if amount == 0 {
		return
	}
	require.Equal(a.t, http.StatusOK, a.call(http.MethodPost, "/v1/accounts/"+accountID+"/deposit", dto.DepositRequest{Amount: amount}, nil))
}

func TestFlipWinFlow(t *testing.T) {
	api := newTestAPI(t, 1_700_000_000)
	custody, player := api.setupPool("p1", 1000, 500)

	var res dto.FlipResponse
	status := api.call(http.MethodPost, "/v1/pools/p1/flip", dto.FlipRequest{
		Signer: "player", ParticipantAccount: player, CustodyAccount: custody, Amount: 100,
	}, &res)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "WIN", res.Outcome)
	assert.Equal(t, uint64(190), res.PayoutAmount)
	assert.Equal(t, uint64(910), res.CustodyBalance)
	assert.Equal(t, "congratulations, you won", res.Message)

	var acc dto.AccountResponse
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/v1/accounts/"+custody, nil, &acc))
	assert.Equal(t, uint64(910), acc.Balance)
}

func TestFlipLoseFlow(t *testing.T) {
	api := newTestAPI(t, 1_700_000_001)
	custody, player := api.setupPool("p1", 1000, 500)

	var res dto.FlipResponse
	require.Equal(t, http.StatusOK, api.call(http.MethodPost, "/v1/pools/p1/flip", dto.FlipRequest{
		Signer: "player", ParticipantAccount: player, CustodyAccount: custody, Amount: 100,
	}, &res))
	assert.Equal(t, "LOSE", res.Outcome)
	assert.Equal(t, "sorry, you lost", res.Message)
	assert.Equal(t, uint64(1100), res.CustodyBalance)
}

func TestGetPool(t *testing.T) {
	api := newTestAPI(t, 2)
	custody, _ := api.setupPool("p1", 0, 0)

	var pool dto.PoolResponse
	require.Equal(t, http.StatusOK, api.call(http.MethodGet, "/v1/pools/p1", nil, &pool))
	assert.Equal(t, custody, pool.CustodyAccount)
	assert.Equal(t, uint8(255), pool.AuthorityNonce)

	var e dto.ErrorResponse
	require.Equal(t, http.StatusNotFound, api.call(http.MethodGet, "/v1/pools/nope", nil, &e))
	assert.Equal(t, coinflip.ErrPoolNotFound.Error(), e.Error)
}

func TestErrorStatuses(t *testing.T) {
	api := newTestAPI(t, 2)
	custody, player := api.setupPool("p1", 1000, 50)
	nonce := uint8(255)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"zero amount", http.MethodPost, "/v1/pools/p1/flip", dto.FlipRequest{Signer: "player", ParticipantAccount: player, CustodyAccount: custody, Amount: 0}, http.StatusBadRequest},
		{"missing fields", http.MethodPost, "/v1/pools/p1/flip", dto.FlipRequest{Amount: 1}, http.StatusBadRequest},
		{"wrong custody", http.MethodPost, "/v1/pools/p1/flip", dto.FlipRequest{Signer: "player", ParticipantAccount: player, CustodyAccount: player, Amount: 1}, http.StatusConflict},
		{"custody as participant", http.MethodPost, "/v1/pools/p1/flip", dto.FlipRequest{Signer: "player", ParticipantAccount: custody, CustodyAccount: custody, Amount: 1}, http.StatusConflict},
		{"insufficient funds", http.MethodPost, "/v1/pools/p1/flip", dto.FlipRequest{Signer: "player", ParticipantAccount: player, CustodyAccount: custody, Amount: 51}, http.StatusConflict},
		{"unknown pool", http.MethodPost, "/v1/pools/nope/flip", dto.FlipRequest{Signer: "player", ParticipantAccount: player, CustodyAccount: custody, Amount: 1}, http.StatusNotFound},
		{"already initialized", http.MethodPost, "/v1/pools/p1", dto.InitializePoolRequest{Signer: "house", Nonce: &nonce, AssetID: "SOL", CustodyAccount: custody}, http.StatusConflict},
		{"nonce missing", http.MethodPost, "/v1/pools/p2", dto.InitializePoolRequest{Signer: "house", AssetID: "SOL", CustodyAccount: custody}, http.StatusBadRequest},
		{"custody not owned by authority", http.MethodPost, "/v1/pools/p2", dto.InitializePoolRequest{Signer: "house", Nonce: &nonce, AssetID: "SOL", CustodyAccount: player}, http.StatusConflict},
		{"bad nonce", http.MethodGet, "/v1/pools/p1/authority?nonce=256", nil, http.StatusBadRequest},
		{"unknown account", http.MethodGet, "/v1/accounts/nope", nil, http.StatusNotFound},
		{"zero deposit", http.MethodPost, "/v1/accounts/" + player + "/deposit", dto.DepositRequest{Amount: 0}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var e dto.ErrorResponse
			assert.Equal(t, tc.want, api.call(tc.method, tc.path, tc.body, &e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestBadJSON(t *testing.T) {
	api := newTestAPI(t, 2)
	res, err := http.Post(api.srv.URL+"/v1/accounts", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
