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
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/internal/market/repo"
	"github.com/radieske/esports-prediction-poc/internal/notification/publisher"
	"github.com/radieske/esports-prediction-poc/internal/prediction-service/cache"
	"github.com/radieske/esports-prediction-poc/internal/prediction-service/pubsub"
	sharedcache "github.com/radieske/esports-prediction-poc/internal/shared/cache"
	"github.com/radieske/esports-prediction-poc/internal/shared/config"
	"github.com/radieske/esports-prediction-poc/internal/shared/db"
	"github.com/radieske/esports-prediction-poc/internal/shared/kafka"
	"github.com/radieske/esports-prediction-poc/internal/shared/logger"
	"github.com/radieske/esports-prediction-poc/internal/shared/metrics"
	"github.com/radieske/esports-prediction-poc/internal/window-closer/lock"
	"github.com/radieske/esports-prediction-poc/internal/window-closer/scheduler"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.StoreBackend == "memory" {
		log.Fatal("window-closer-worker needs STORE_BACKEND=postgres; with the memory store the sweep runs inside prediction-service")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	notifWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicNotifications)
	defer notifWriter.Close()

	// Métricas Prometheus do fechamento
	sweeps := prometheus.NewCounter(prometheus.CounterOpts{Name: "closer_sweeps_total", Help: "sweeps executados"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "closer_sweeps_skipped_total", Help: "ticks ignorados por lock em outra réplica"})
	closedTotal := prometheus.NewCounter(prometheus.CounterOpts{Name: "closer_matches_closed_total", Help: "partidas fechadas"})
	notified := prometheus.NewCounter(prometheus.CounterOpts{Name: "closer_notifications_sent_total", Help: "avisos match_starting enviados"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "closer_sweep_duration_seconds", Help: "duração do sweep", Buckets: prometheus.DefBuckets})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "closer_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(sweeps, skipped, closedTotal, notified, duration, errorsBy)

	// Fechamento muda odds e flags dos tipos: invalida o cache e avisa os clientes WebSocket
	store := repo.NewPostgres(pg)
	refresher := &pubsub.PoolRefresher{
		Source:    store,
		Cache:     cache.New(rdb, cfg.OddsCacheTTL),
		Publisher: pubsub.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel),
	}

	svc := market.NewService(store, publisher.NewKafkaNotifier(notifWriter), log,
		market.WithHooks(market.Hooks{
			OnClosed: func(matchID string) {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := refresher.MatchChanged(ctx, matchID); err != nil {
					errorsBy.WithLabelValues("pool_refresh").Inc()
					log.Warn("pool refresh after close failed", zap.String("matchId", matchID), zap.Error(err))
				}
			},
			OnNotifyError: func(stage string) { errorsBy.WithLabelValues("notify_" + stage).Inc() },
		}),
	)

	sched := &scheduler.Scheduler{
		Log:     log,
		Sweeper: svc,
		Locker:  lock.NewRedisLocker(rdb),
		LockTTL: cfg.SweepLockTTL,
		OnSweep: func(rep market.SweepReport, took time.Duration) {
			sweeps.Inc()
			closedTotal.Add(float64(rep.Closed))
			notified.Add(float64(rep.Notified))
			duration.Observe(took.Seconds())
			if rep.Failed > 0 {
				errorsBy.WithLabelValues("close").Add(float64(rep.Failed))
			}
		},
		OnSkipped: func() { skipped.Inc() },
		OnError:   func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.NewMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		return rdb.Ping(ctx).Err()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			_ = metricsSrv.Shutdown(sctx)
		}()
		return sched.Run(gctx, cfg.SweepSchedule)
	})

	log.Info("window-closer-worker started")
	if err := g.Wait(); err != nil {
		log.Fatal("window-closer-worker stopped with error", zap.Error(err))
	}
	log.Info("window-closer-worker stopped")
}
