package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/coinflip-pool/internal/coinflip"
)

// PoolCache guarda o registro do pool no Redis. O pool não muda depois de
// inicializado, então o TTL só limita o uso de memória.
type PoolCache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *PoolCache { return &PoolCache{R: r, TTL: ttl} }

func keyPool(poolID string) string { return "coinflip:pool:" + poolID }

func (c *PoolCache) GetPool(ctx context.Context, poolID string) (*coinflip.Pool, bool, error) {
	b, err := c.R.Get(ctx, keyPool(poolID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var p coinflip.Pool
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (c *PoolCache) SetPool(ctx context.Context, p *coinflip.Pool) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyPool(p.ID), b, c.TTL).Err()
}
