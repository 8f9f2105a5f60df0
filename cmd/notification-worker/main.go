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

	"github.com/radieske/esports-prediction-poc/internal/market/repo"
	"github.com/radieske/esports-prediction-poc/internal/notification/consumer"
	"github.com/radieske/esports-prediction-poc/internal/notification/repository"
	"github.com/radieske/esports-prediction-poc/internal/shared/config"
	"github.com/radieske/esports-prediction-poc/internal/shared/db"
	"github.com/radieske/esports-prediction-poc/internal/shared/kafka"
	"github.com/radieske/esports-prediction-poc/internal/shared/logger"
	"github.com/radieske/esports-prediction-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if cfg.RunMigrations {
		if err := repo.RunMigrations(ctx, pg); err != nil {
			log.Fatal("migrations", zap.Error(err))
		}
	}

	// Consumer group notification-worker + DLQ
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicNotifications, "notification-worker")
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicNotificationsDLQ)
	defer dlq.Close()

	// Métricas Prometheus
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "notif_messages_consumed_total", Help: "mensagens consumidas"})
	stored := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "notif_stored_total", Help: "notificações gravadas por tipo"}, []string{"kind"})
	dead := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "notif_dlq_total", Help: "mensagens enviadas para a DLQ"}, []string{"reason"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "notif_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, stored, dead, errorsBy)

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Store:       repository.NewPostgresRepo(pg),
		DLQ:         dlq,
		MaxAttempts: 3,
		Backoff:     200 * time.Millisecond,
		OnConsumed:  func() { consumed.Inc() },
		OnStored:    func(kind string) { stored.WithLabelValues(kind).Inc() },
		OnDLQ:       func(reason string) { dead.WithLabelValues(reason).Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.NewMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
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
		if err := proc.Run(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})

	log.Info("notification-worker started")
	if err := g.Wait(); err != nil {
		log.Fatal("notification-worker stopped with error", zap.Error(err))
	}
	log.Info("notification-worker stopped")
}
