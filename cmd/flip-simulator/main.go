package main

import (
	"context"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-pool/internal/flip-service/client"
	"github.com/radieske/coinflip-pool/internal/flip-service/dto"
	"github.com/radieske/coinflip-pool/internal/shared/config"
	"github.com/radieske/coinflip-pool/internal/shared/logger"
	"github.com/radieske/coinflip-pool/internal/shared/metrics"
)

const (
	simAsset       = "SIM"
	poolFunding    = 100_000
	playerFunding  = 5_000
	playerCount    = 4
	maxStake       = 500
	authorityNonce = 255
)

var (
	// Métricas Prometheus do simulador
	simFlips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flip_sim_flips_total",
		Help: "Flips enviados pelo simulador por resultado",
	}, []string{"outcome"})
	simErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flip_sim_errors_total",
		Help: "Flips recusados pelo flip-service",
	})
	simCustody = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flip_sim_custody_balance",
		Help: "Saldo da conta de custódia observado após o último flip",
	})
)

// player é um participante simulado: a chave de assinatura é o próprio owner da conta
type player struct {
	signer  string
	account string
}

// setup cria a custódia do pool, inicializa o pool e abre as contas dos jogadores
func setup(ctx context.Context, c *client.Client, log *zap.Logger) (poolID, custody string, players []player, err error) {
	poolID = uuid.NewString()

	authority, err := c.Authority(ctx, poolID, authorityNonce)
	if err != nil {
		return "", "", nil, err
	}
	acc, err := c.OpenAccount(ctx, authority, simAsset)
	if err != nil {
		return "", "", nil, err
	}
	nonce := uint8(authorityNonce)
	if _, err = c.InitializePool(ctx, poolID, dto.InitializePoolRequest{
		Signer:         "sim-house",
		Nonce:          &nonce,
		AssetID:        simAsset,
		CustodyAccount: acc.AccountID,
	}); err != nil {
		return "", "", nil, err
	}
	// fundos entram depois do vínculo: a partir daí só o settler debita a custódia
	if _, err = c.Deposit(ctx, acc.AccountID, poolFunding); err != nil {
		return "", "", nil, err
	}
	log.Info("pool ready", zap.String("pool_id", poolID), zap.String("custody", acc.AccountID))

	for i := 0; i < playerCount; i++ {
		signer := "sim-player-" + uuid.NewString()[:8]
		pa, err := c.OpenAccount(ctx, signer, simAsset)
		if err != nil {
			return "", "", nil, err
		}
		if _, err = c.Deposit(ctx, pa.AccountID, playerFunding); err != nil {
			return "", "", nil, err
		}
		players = append(players, player{signer: signer, account: pa.AccountID})
	}
	return poolID, acc.AccountID, players, nil
}

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "flip-simulator"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(simFlips, simErrors, simCustody)
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, nil)
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := client.New(cfg.FlipServiceURL)

	// Aguarda o flip-service subir antes de montar o pool
	var (
		poolID, custody string
		players         []player
	)
	for {
		poolID, custody, players, err = setup(ctx, c, log)
		if err == nil {
			break
		}
		log.Warn("setup failed, retrying", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(cfg.SimInterval)
	defer ticker.Stop()

	log.Info("flip-simulator started", zap.String("target", cfg.FlipServiceURL), zap.Duration("interval", cfg.SimInterval))
	for {
		select {
		case <-ctx.Done():
			log.Info("flip-simulator stopped")
			return
		case <-ticker.C:
		}

		p := players[rng.Intn(len(players))]
		amount := uint64(1 + rng.Intn(maxStake))
		res, err := c.Flip(ctx, poolID, dto.FlipRequest{
			Signer:             p.signer,
			ParticipantAccount: p.account,
			CustodyAccount:     custody,
			Amount:             amount,
		})
		if err != nil {
			simErrors.Inc()
			log.Warn("flip rejected", zap.String("player", p.signer), zap.Uint64("amount", amount), zap.Error(err))
			continue
		}

		simFlips.WithLabelValues(res.Outcome).Inc()
		simCustody.Set(float64(res.CustodyBalance))
		log.Info("flip",
			zap.String("player", p.signer),
			zap.Uint64("amount", amount),
			zap.String("outcome", res.Outcome),
			zap.Uint64("payout", res.PayoutAmount),
			zap.Bool("degraded", res.Degraded),
		)
	}
}
