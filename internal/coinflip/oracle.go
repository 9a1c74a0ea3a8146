package coinflip

import (
	"context"
	"fmt"
	"time"
)

type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLose Outcome = "LOSE"
)

// Clock é a fonte de tempo externa e monotônica consultada no momento do flip.
type Clock interface {
	Now(ctx context.Context) (int64, error)
}

// SystemClock usa o relógio do host em segundos unix.
type SystemClock struct{}

func (SystemClock) Now(context.Context) (int64, error) { return time.Now().Unix(), nil }

// ClockFunc adapta uma função comum para Clock.
type ClockFunc func(ctx context.Context) (int64, error)

func (f ClockFunc) Now(ctx context.Context) (int64, error) { return f(ctx) }

// Oracle deriva o resultado da paridade do relógio.
//
// O sinal é observável e previsível antes do flip ser finalizado; é reproduzido
// como está e não deve ser tratado como aleatoriedade. Uma variante de produção
// precisaria de commit-reveal.
type Oracle struct {
	Clock Clock
}

func NewOracle(c Clock) *Oracle { return &Oracle{Clock: c} }

// Decide lê o relógio uma vez: valor par ganha, ímpar perde.
func (o *Oracle) Decide(ctx context.Context) (Outcome, int64, error) {
	ts, err := o.Clock.Now(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrClockUnavailable, err)
	}
	return OutcomeFor(ts), ts, nil
}

// OutcomeFor é a regra pura de paridade (vale também para valores negativos).
func OutcomeFor(ts int64) Outcome {
	if ts%2 == 0 {
		return OutcomeWin
	}
	return OutcomeLose
}
