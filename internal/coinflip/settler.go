package coinflip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/coinflip-pool/pkg/contracts/events"
)

type FlipParams struct {
	PoolID             string
	Signer             string
	ParticipantAccount string
	CustodyAccount     string
	Amount             uint64
}

// Result é o Wager já liquidado. Não é persistido.
type Result struct {
	PoolID             string
	ParticipantAccount string
	Amount             uint64
	Outcome            Outcome
	PayoutAmount       uint64
	Degraded           bool
	TimeValue          int64
	CustodyBalance     uint64 // saldo da custódia ao final do flip
}

// Settler executa flips contra um pool.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa.
type Settler struct {
	store  Store
	oracle *Oracle
	log    *zap.Logger
	publ   Notifier

	OnSettled func(Result)  // métricas
	OnError   func(string) // métricas por fase
}

func NewSettler(log *zap.Logger, s Store, o *Oracle, p Notifier) *Settler {
	return &Settler{store: s, oracle: o, log: log, publ: p}
}

// Flip executa, nesta ordem e numa única unidade de trabalho:
// 1. valida valor e conta de custódia
// 2. transfere o stake do participante para a custódia (autorizado pelo participante)
// 3. consulta o oráculo
// 4. em vitória, paga o valor calculado com a autoridade derivada do pool
// Qualquer erro depois do passo 2 desfaz também a coleta do stake.
func (s *Settler) Flip(ctx context.Context, p FlipParams) (*Result, error) {
	if p.Amount == 0 {
		s.fail("validate")
		return nil, ErrInvalidAmount
	}

	var (
		res   Result
		stage = "validate"
	)
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		pool, err := tx.Pool(ctx, p.PoolID)
		if err != nil {
			return err
		}
		if p.CustodyAccount != pool.CustodyAccount || p.ParticipantAccount == pool.CustodyAccount {
			return ErrPoolMismatch
		}
		custody, err := tx.Account(ctx, pool.CustodyAccount)
		if errors.Is(err, ErrAccountNotFound) {
			return ErrPoolMismatch
		}
		if err != nil {
			return err
		}
		authority := pool.Authority()
		if custody.Owner != authority || custody.AssetID != pool.AssetID {
			return ErrPoolMismatch
		}

		// Coleta do stake: acontece antes do resultado e nunca é estornada em derrota.
		stage = "stake"
		if err := tx.Transfer(ctx, Transfer{
			From:       p.ParticipantAccount,
			To:         pool.CustodyAccount,
			Authorizer: p.Signer,
			Amount:     p.Amount,
			Memo:       "flip:stake:" + pool.ID,
		}); err != nil {
			return fmt.Errorf("%w: collect stake: %w", ErrTransferFailure, err)
		}

		custody, err = tx.Account(ctx, pool.CustodyAccount)
		if err != nil {
			return err
		}

		stage = "clock"
		outcome, ts, err := s.oracle.Decide(ctx)
		if err != nil {
			return err
		}

		res = Result{
			PoolID:             pool.ID,
			ParticipantAccount: p.ParticipantAccount,
			Amount:             p.Amount,
			Outcome:            outcome,
			TimeValue:          ts,
			CustodyBalance:     custody.Balance,
		}
		if outcome == OutcomeLose {
			return nil
		}

		stage = "payout"
		amount, degraded, err := Payout(p.Amount, pool.WinReturnPercent, custody.Balance)
		if err != nil {
			return err
		}
		if amount > 0 {
			stage = "transfer"
			if err := tx.Transfer(ctx, Transfer{
				From:          pool.CustodyAccount,
				To:            p.ParticipantAccount,
				Authorizer:    authority,
				Amount:        amount,
				Memo:          "flip:payout:" + pool.ID,
				ProgramSigned: true,
			}); err != nil {
				return fmt.Errorf("%w: payout: %w", ErrTransferFailure, err)
			}
		}
		res.PayoutAmount = amount
		res.Degraded = degraded
		res.CustodyBalance = custody.Balance - amount
		return nil
	})
	if err != nil {
		s.fail(stage)
		if !errors.Is(err, ErrPoolNotFound) {
			s.log.Warn("flip aborted",
				zap.String("pool_id", p.PoolID),
				zap.String("stage", stage),
				zap.Uint64("amount", p.Amount),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.record(ctx, p, res)
	return &res, nil
}

// record emite o registro informativo do flip: log, métricas e evento.
func (s *Settler) record(ctx context.Context, p FlipParams, res Result) {
	fields := []zap.Field{
		zap.String("pool_id", res.PoolID),
		zap.String("participant", res.ParticipantAccount),
		zap.Uint64("amount", res.Amount),
		zap.Int64("time_value", res.TimeValue),
	}
	switch {
	case res.Outcome == OutcomeLose:
		s.log.Info("flip lost", fields...)
	case res.Degraded:
		s.log.Warn("flip won, insufficient pool funds: paying out remaining custody balance",
			append(fields, zap.Uint64("payout", res.PayoutAmount))...)
	default:
		s.log.Info("flip won", append(fields, zap.Uint64("payout", res.PayoutAmount))...)
	}

	if s.OnSettled != nil {
		s.OnSettled(res)
	}

	if s.publ == nil {
		return
	}
	if err := s.publ.PublishFlipSettled(ctx, events.FlipSettled{
		PoolID:             res.PoolID,
		ParticipantAccount: res.ParticipantAccount,
		Signer:             p.Signer,
		Amount:             res.Amount,
		Outcome:            string(res.Outcome),
		PayoutAmount:       res.PayoutAmount,
		Degraded:           res.Degraded,
		TimeValue:          res.TimeValue,
		CustodyBalance:     res.CustodyBalance,
		Ts:                 time.Now().UTC(),
	}); err != nil {
		s.log.Warn("publish flip_settled failed", zap.String("pool_id", res.PoolID), zap.Error(err))
	}
}

func (s *Settler) fail(stage string) {
	if s.OnError != nil {
		s.OnError(stage)
	}
}
