package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-pool/internal/coinflip"
	"github.com/radieske/coinflip-pool/internal/flip-service/dto"
)

// Ledger define as operações de conta e leitura de pool usadas pelo handler HTTP
type Ledger interface {
	OpenAccount(ctx context.Context, owner, assetID string) (*coinflip.Account, error)
	Deposit(ctx context.Context, accountID string, amount uint64) (*coinflip.Account, error)
	GetAccount(ctx context.Context, accountID string) (*coinflip.Account, error)
	GetPool(ctx context.Context, poolID string) (*coinflip.Pool, error)
}

// PoolCache é opcional; sem ele GET /pools/{id} vai sempre ao store
type PoolCache interface {
	GetPool(ctx context.Context, poolID string) (*coinflip.Pool, bool, error)
	SetPool(ctx context.Context, p *coinflip.Pool) error
}

// Server expõe os endpoints REST de pools, flips e contas
type Server struct {
	log     *zap.Logger
	init    *coinflip.Initializer
	settler *coinflip.Settler
	ledger  Ledger
	cache   PoolCache
}

func NewServer(log *zap.Logger, i *coinflip.Initializer, s *coinflip.Settler, l Ledger, c PoolCache) *Server {
	return &Server{log: log, init: i, settler: s, ledger: l, cache: c}
}

// Router retorna o roteador HTTP com os endpoints REST
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/pools/{id}/authority", s.authority) // GET ?nonce=N
	r.Post("/v1/pools/{id}", s.initializePool)
	r.Get("/v1/pools/{id}", s.getPool)
	r.Post("/v1/pools/{id}/flip", s.flip)

	r.Post("/v1/accounts", s.openAccount)
	r.Get("/v1/accounts/{id}", s.getAccount)
	r.Post("/v1/accounts/{id}/deposit", s.deposit)
	return r
}

// authority devolve a autoridade derivada para (pool, nonce), usada para abrir a conta de custódia
func (s *Server) authority(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	nonce, err := strconv.ParseUint(r.URL.Query().Get("nonce"), 10, 8)
	if err != nil {
		writeError(w, http.StatusBadRequest, "nonce must be 0..255")
		return
	}
	writeJSON(w, http.StatusOK, dto.AuthorityResponse{
		PoolID:    id,
		Nonce:     uint8(nonce),
		Authority: coinflip.DeriveAuthority(id, uint8(nonce)),
	})
}

func (s *Server) initializePool(w http.ResponseWriter, r *http.Request) {
	var req dto.InitializePoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Signer == "" || req.Nonce == nil || req.AssetID == "" || req.CustodyAccount == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	pool, err := s.init.Initialize(r.Context(), coinflip.InitializeParams{
		PoolID:         chi.URLParam(r, "id"),
		Signer:         req.Signer,
		AssetID:        req.AssetID,
		CustodyAccount: req.CustodyAccount,
		Nonce:          *req.Nonce,
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.cachePool(r.Context(), pool)
	writeJSON(w, http.StatusCreated, poolResponse(pool))
}

// getPool retorna o pool, preferencialmente do cache
func (s *Server) getPool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.cache != nil {
		if p, ok, err := s.cache.GetPool(r.Context(), id); err == nil && ok {
			writeJSON(w, http.StatusOK, poolResponse(p))
			return
		} else if err != nil {
			s.log.Debug("pool cache get failed", zap.String("pool_id", id), zap.Error(err))
		}
	}

	pool, err := s.ledger.GetPool(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.cachePool(r.Context(), pool)
	writeJSON(w, http.StatusOK, poolResponse(pool))
}

func (s *Server) flip(w http.ResponseWriter, r *http.Request) {
	var req dto.FlipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Signer == "" || req.ParticipantAccount == "" || req.CustodyAccount == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := s.settler.Flip(r.Context(), coinflip.FlipParams{
		PoolID:             chi.URLParam(r, "id"),
		Signer:             req.Signer,
		ParticipantAccount: req.ParticipantAccount,
		CustodyAccount:     req.CustodyAccount,
		Amount:             req.Amount,
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}

	out := dto.FlipResponse{
		Outcome:        string(res.Outcome),
		PayoutAmount:   res.PayoutAmount,
		Degraded:       res.Degraded,
		CustodyBalance: res.CustodyBalance,
	}
	switch {
	case res.Outcome == coinflip.OutcomeLose:
		out.Message = "sorry, you lost"
	case res.Degraded:
		out.Message = "you won, but the pool could not cover the full reward: paid out everything left in custody"
	default:
		out.Message = "congratulations, you won"
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) openAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Owner == "" || req.AssetID == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	a, err := s.ledger.OpenAccount(r.Context(), req.Owner, req.AssetID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountResponse(a))
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.ledger.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(a))
}

// deposit adiciona saldo à conta (cunhagem para ambientes de teste e simulação)
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	a, err := s.ledger.Deposit(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(a))
}

func (s *Server) cachePool(ctx context.Context, p *coinflip.Pool) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetPool(ctx, p); err != nil {
		s.log.Debug("pool cache set failed", zap.String("pool_id", p.ID), zap.Error(err))
	}
}

// writeErr traduz os erros do domínio para status HTTP
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, coinflip.ErrInvalidAmount), errors.Is(err, coinflip.ErrInvalidPoolID):
		return http.StatusBadRequest
	case errors.Is(err, coinflip.ErrPoolNotFound), errors.Is(err, coinflip.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, coinflip.ErrAccountMismatch),
		errors.Is(err, coinflip.ErrPoolMismatch),
		errors.Is(err, coinflip.ErrAlreadyInitialized),
		errors.Is(err, coinflip.ErrTransferFailure):
		return http.StatusConflict
	case errors.Is(err, coinflip.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func poolResponse(p *coinflip.Pool) dto.PoolResponse {
	return dto.PoolResponse{
		PoolID:           p.ID,
		WinReturnPercent: p.WinReturnPercent,
		AssetID:          p.AssetID,
		CustodyAccount:   p.CustodyAccount,
		AuthorityNonce:   p.AuthorityNonce,
		Authority:        p.Authority(),
		CreatedAt:        p.CreatedAt,
	}
}

func accountResponse(a *coinflip.Account) dto.AccountResponse {
	return dto.AccountResponse{AccountID: a.ID, AssetID: a.AssetID, Owner: a.Owner, Balance: a.Balance}
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}
