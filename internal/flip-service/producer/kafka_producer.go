package producer

import (
	"context"
	"encoding/json"

	skafka "github.com/radieske/coinflip-pool/internal/shared/kafka"
	"github.com/radieske/coinflip-pool/pkg/contracts/events"
)

// KafkaPublisher publica os eventos de pool e de flip.
// A chave da mensagem é o PoolID: eventos do mesmo pool ficam na mesma partição, em ordem.
type KafkaPublisher struct {
	Pools skafka.MessageWriter
	Flips skafka.MessageWriter
}

func NewKafkaPublisher(pools, flips skafka.MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Pools: pools, Flips: flips}
}

func (p *KafkaPublisher) PublishPoolInitialized(ctx context.Context, e events.PoolInitialized) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return skafka.WriteJSON(ctx, p.Pools, e.PoolID, b)
}

func (p *KafkaPublisher) PublishFlipSettled(ctx context.Context, e events.FlipSettled) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return skafka.WriteJSON(ctx, p.Flips, e.PoolID, b)
}

// Close finaliza os writers e libera recursos associados.
func (p *KafkaPublisher) Close() error {
	err := p.Pools.Close()
	if ferr := p.Flips.Close(); err == nil {
		err = ferr
	}
	return err
}
