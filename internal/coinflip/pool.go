package coinflip

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/coinflip-pool/pkg/contracts/events"
)

// DefaultWinReturnPercent é o bônus aplicado a todo pool novo.
const DefaultWinReturnPercent uint64 = 90

// Pool é o registro persistido de um pool de apostas.
// Nenhum campo muda depois da inicialização; os stores não têm caminho de update.
type Pool struct {
	ID               string
	WinReturnPercent uint64
	AssetID          string
	CustodyAccount   string
	AuthorityNonce   uint8
	InitializedBy    string
	CreatedAt        time.Time
}

// Authority recalcula a autoridade derivada que controla a custódia.
func (p *Pool) Authority() string { return DeriveAuthority(p.ID, p.AuthorityNonce) }

type InitializeParams struct {
	PoolID         string
	Signer         string
	AssetID        string
	CustodyAccount string
	Nonce          uint8
}

// Notifier publica os registros informativos depois do commit.
type Notifier interface {
	PublishPoolInitialized(ctx context.Context, e events.PoolInitialized) error
	PublishFlipSettled(ctx context.Context, e events.FlipSettled) error
}

// Initializer cria pools.
type Initializer struct {
	store Store
	log   *zap.Logger
	publ  Notifier
}

func NewInitializer(log *zap.Logger, s Store, p Notifier) *Initializer {
	return &Initializer{store: s, log: log, publ: p}
}

// Initialize valida a conta de custódia e grava o pool. Não movimenta fundos.
func (i *Initializer) Initialize(ctx context.Context, p InitializeParams) (*Pool, error) {
	if p.PoolID == "" {
		return nil, ErrInvalidPoolID
	}

	var pool *Pool
	err := i.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.Pool(ctx, p.PoolID); err == nil {
			return ErrAlreadyInitialized
		} else if !errors.Is(err, ErrPoolNotFound) {
			return err
		}

		custody, err := tx.Account(ctx, p.CustodyAccount)
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountMismatch
		}
		if err != nil {
			return err
		}
		if custody.AssetID != p.AssetID {
			return ErrAccountMismatch
		}
		if custody.Owner != DeriveAuthority(p.PoolID, p.Nonce) {
			return ErrAccountMismatch
		}

		pool = &Pool{
			ID:               p.PoolID,
			WinReturnPercent: DefaultWinReturnPercent,
			AssetID:          p.AssetID,
			CustodyAccount:   p.CustodyAccount,
			AuthorityNonce:   p.Nonce,
			InitializedBy:    p.Signer,
			CreatedAt:        time.Now().UTC(),
		}
		return tx.InsertPool(ctx, pool)
	})
	if err != nil {
		return nil, err
	}

	i.log.Info("pool initialized",
		zap.String("pool_id", pool.ID),
		zap.String("asset_id", pool.AssetID),
		zap.String("custody_account", pool.CustodyAccount),
	)

	if i.publ != nil {
		if err := i.publ.PublishPoolInitialized(ctx, events.PoolInitialized{
			PoolID:           pool.ID,
			AssetID:          pool.AssetID,
			CustodyAccount:   pool.CustodyAccount,
			Authority:        pool.Authority(),
			AuthorityNonce:   pool.AuthorityNonce,
			WinReturnPercent: pool.WinReturnPercent,
			InitializedBy:    pool.InitializedBy,
			Ts:               pool.CreatedAt,
		}); err != nil {
			i.log.Warn("publish pool_initialized failed", zap.String("pool_id", pool.ID), zap.Error(err))
		}
	}
	return pool, nil
}
