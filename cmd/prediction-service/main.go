package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/internal/market/memstore"
	"github.com/radieske/esports-prediction-poc/internal/market/repo"
	"github.com/radieske/esports-prediction-poc/internal/notification/publisher"
	"github.com/radieske/esports-prediction-poc/internal/notification/repository"
	"github.com/radieske/esports-prediction-poc/internal/prediction-service/cache"
	httpapi "github.com/radieske/esports-prediction-poc/internal/prediction-service/http"
	"github.com/radieske/esports-prediction-poc/internal/prediction-service/producer"
	"github.com/radieske/esports-prediction-poc/internal/prediction-service/pubsub"
	"github.com/radieske/esports-prediction-poc/internal/prediction-service/ws"
	sharedcache "github.com/radieske/esports-prediction-poc/internal/shared/cache"
	"github.com/radieske/esports-prediction-poc/internal/shared/config"
	"github.com/radieske/esports-prediction-poc/internal/shared/db"
	"github.com/radieske/esports-prediction-poc/internal/shared/kafka"
	"github.com/radieske/esports-prediction-poc/internal/shared/logger"
	"github.com/radieske/esports-prediction-poc/internal/shared/metrics"
	"github.com/radieske/esports-prediction-poc/internal/window-closer/scheduler"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Store: Postgres em produção, memória para rodar local sem banco
	var (
		store market.Store
		pg    *sql.DB
	)
	switch cfg.StoreBackend {
	case "memory":
		store = memstore.New()
		log.Warn("using in-memory store, state is lost on restart")
	default:
		pg, err = db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		if cfg.RunMigrations {
			if err := repo.RunMigrations(ctx, pg); err != nil {
				log.Fatal("migrations", zap.Error(err))
			}
		}
		store = repo.NewPostgres(pg)
	}

	rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writers (bet_placed e notifications)
	betWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer betWriter.Close()
	notifWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicNotifications)
	defer notifWriter.Close()

	// Métricas Prometheus
	placed := prometheus.NewCounter(prometheus.CounterOpts{Name: "prediction_bets_placed_total", Help: "apostas aceitas"})
	staked := prometheus.NewCounter(prometheus.CounterOpts{Name: "prediction_staked_amount_total", Help: "valor total apostado"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "prediction_bets_rejected_total", Help: "rejeições por tipo de erro"}, []string{"kind"})
	closed := prometheus.NewCounter(prometheus.CounterOpts{Name: "prediction_matches_closed_total", Help: "partidas com apostas fechadas"})
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "prediction_predictions_settled_total", Help: "predições liquidadas por status"}, []string{"status"})
	paid := prometheus.NewCounter(prometheus.CounterOpts{Name: "prediction_rewards_paid_total", Help: "valor pago em recompensas"})
	notifyErrors := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "prediction_notify_errors_total", Help: "falhas de notificação por estágio"}, []string{"stage"})
	prometheus.MustRegister(placed, staked, rejected, closed, settled, paid, notifyErrors)

	// Cache de odds e broadcast de pools, também usados quando o sweep roda neste processo
	oddsCache := cache.New(rdb, cfg.OddsCacheTTL)
	broadcaster := pubsub.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel)
	refresher := &pubsub.PoolRefresher{Source: store, Cache: oddsCache, Publisher: broadcaster}

	svc := market.NewService(store, publisher.NewKafkaNotifier(notifWriter), log,
		market.WithHooks(market.Hooks{
			OnPlaced: func(b *market.Bet) {
				placed.Inc()
				staked.Add(float64(b.TotalBet))
			},
			OnRejected: func(kind market.ErrorKind) { rejected.WithLabelValues(string(kind)).Inc() },
			OnClosed: func(matchID string) {
				closed.Inc()
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := refresher.MatchChanged(ctx, matchID); err != nil {
					log.Warn("pool refresh after close failed", zap.String("matchId", matchID), zap.Error(err))
				}
			},
			OnSettled:    func(st market.PredictionStatus) { settled.WithLabelValues(string(st)).Inc() },
			OnRewardPaid: func(amount decimal.Decimal) { paid.Add(amount.InexactFloat64()) },
			OnNotifyError: func(stage string) {
				notifyErrors.WithLabelValues(stage).Inc()
			},
		}),
	)

	// WebSocket: hub local alimentado pelo canal Redis de pools
	var allowOrigin func(*http.Request) bool
	if cfg.Env == "local" {
		allowOrigin = func(*http.Request) bool { return true }
	}
	hub := ws.NewHub(log, allowOrigin)

	api := &httpapi.API{
		Log:         log,
		Market:      svc,
		Publisher:   producer.NewKafkaPublisher(betWriter),
		Cache:       oddsCache,
		Broadcaster: broadcaster,
		Snapshot:    refresher.Snapshot,
		WS:          hub.HandleWS,
	}
	if pg != nil {
		api.Notifications = repository.NewPostgresRepo(pg)
	}

	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.NewMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if pg != nil {
			if err := pg.PingContext(ctx); err != nil {
				return fmt.Errorf("pg: %w", err)
			}
		}
		return rdb.Ping(ctx).Err()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("prediction-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := ws.RunRedisSubscriber(gctx, rdb, cfg.RedisPubSubChannel, hub, log)
		if gctx.Err() != nil {
			return nil
		}
		return err
	})
	// Com store em memória o window-closer não enxerga o estado: o sweep roda aqui mesmo
	if cfg.StoreBackend == "memory" {
		sched := &scheduler.Scheduler{Log: log, Sweeper: svc}
		g.Go(func() error { return sched.Run(gctx, cfg.SweepSchedule) })
	}
	g.Go(func() error {
		<-gctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		_ = apiSrv.Shutdown(sctx)
		_ = metricsSrv.Shutdown(sctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal("prediction-service stopped with error", zap.Error(err))
	}
	log.Info("prediction-service stopped")
}
