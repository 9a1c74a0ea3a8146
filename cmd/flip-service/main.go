package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-pool/internal/coinflip"
	fcache "github.com/radieske/coinflip-pool/internal/flip-service/cache"
	fhttp "github.com/radieske/coinflip-pool/internal/flip-service/http"
	"github.com/radieske/coinflip-pool/internal/flip-service/memstore"
	"github.com/radieske/coinflip-pool/internal/flip-service/producer"
	"github.com/radieske/coinflip-pool/internal/flip-service/repo"
	"github.com/radieske/coinflip-pool/internal/shared/cache"
	"github.com/radieske/coinflip-pool/internal/shared/config"
	"github.com/radieske/coinflip-pool/internal/shared/db"
	"github.com/radieske/coinflip-pool/internal/shared/kafka"
	"github.com/radieske/coinflip-pool/internal/shared/logger"
	"github.com/radieske/coinflip-pool/internal/shared/metrics"
)

// backend é o store do núcleo somado às operações de conta expostas via HTTP
type backend interface {
	coinflip.Store
	fhttp.Ledger
}

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "flip-service"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var checks []metrics.HealthFunc

	// Store: Postgres em produção, memória para rodar localmente sem dependências
	var store backend
	switch cfg.LedgerBackend {
	case "memory":
		store = memstore.New()
		log.Warn("using in-memory ledger: balances are lost on restart")
	default:
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		if err := repo.Migrate(ctx, pg); err != nil {
			log.Fatal("postgres migrate", zap.Error(err))
		}
		store = repo.NewPostgres(pg)
		checks = append(checks, pg.PingContext)
		log.Info("postgres connected")
	}

	// Redis: cache de leitura dos pools (opcional)
	var poolCache fhttp.PoolCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		poolCache = fcache.New(rdb, cfg.PoolCacheTTL)
		checks = append(checks, func(ctx context.Context) error { return pingRedis(ctx, rdb) })
		log.Info("redis connected")
	}

	// Kafka: eventos pool_initialized / flip_settled (opcional)
	var notifier coinflip.Notifier
	if cfg.KafkaBrokers != "" {
		publ := producer.NewKafkaPublisher(
			kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPoolInitialized),
			kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicFlipSettled),
		)
		defer publ.Close()
		notifier = publ
		log.Info("kafka writers ready",
			zap.String("pools", cfg.TopicPoolInitialized),
			zap.String("flips", cfg.TopicFlipSettled),
		)
	}

	// Métricas Prometheus dos flips
	flips := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "coinflip_flips_total", Help: "flips liquidados por resultado"}, []string{"outcome"})
	paid := prometheus.NewCounter(prometheus.CounterOpts{Name: "coinflip_payout_units_total", Help: "unidades pagas pela custódia"})
	degraded := prometheus.NewCounter(prometheus.CounterOpts{Name: "coinflip_degraded_payouts_total", Help: "vitórias pagas com o saldo restante da custódia"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "coinflip_errors_total", Help: "flips abortados por estágio"}, []string{"stage"})
	prometheus.MustRegister(flips, paid, degraded, errorsBy)

	initializer := coinflip.NewInitializer(log, store, notifier)
	settler := coinflip.NewSettler(log, store, coinflip.NewOracle(coinflip.SystemClock{}), notifier)
	settler.OnSettled = func(r coinflip.Result) {
		flips.WithLabelValues(string(r.Outcome)).Inc()
		paid.Add(float64(r.PayoutAmount))
		if r.Degraded {
			degraded.Inc()
		}
	}
	settler.OnError = func(stage string) { errorsBy.WithLabelValues(stage).Inc() }

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	api := fhttp.NewServer(log, initializer, settler, store, poolCache)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutdown signal received")
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = apiSrv.Shutdown(sctx)
		_ = metricsSrv.Shutdown(sctx)
	}()

	log.Info("flip-service listening", zap.String("addr", apiSrv.Addr), zap.String("ledger", cfg.LedgerBackend))
	if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api", zap.Error(err))
	}
	log.Info("flip-service stopped")
}

func pingRedis(ctx context.Context, rdb *redis.Client) error {
	return rdb.Ping(ctx).Err()
}
