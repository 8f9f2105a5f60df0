package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	simulator "github.com/radieske/esports-prediction-poc/internal/draft-simulator"
	"github.com/radieske/esports-prediction-poc/internal/shared/config"
	"github.com/radieske/esports-prediction-poc/internal/shared/logger"
	"github.com/radieske/esports-prediction-poc/internal/shared/metrics"
)

// Métricas Prometheus das rodadas simuladas
var (
	roundsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_rounds_total",
		Help: "Rodadas simuladas por desfecho",
	}, []string{"outcome"})
	betsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_bets_total",
		Help: "Apostas enviadas por desfecho",
	}, []string{"outcome"})
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(roundsTotal, betsTotal)

	baseURL := os.Getenv("PREDICTION_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8083"
	}
	users, _ := strconv.Atoi(os.Getenv("SIM_USERS"))
	if users <= 0 {
		users = 8
	}
	interval, err := time.ParseDuration(os.Getenv("SIM_INTERVAL"))
	if err != nil || interval <= 0 {
		interval = 10 * time.Second
	}

	s := &simulator.Scenario{
		Log:     log,
		API:     simulator.NewClient(baseURL),
		Rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
		Users:   users,
		Deposit: "1000.00",
		OnBet: func(accepted bool) {
			if accepted {
				betsTotal.WithLabelValues("accepted").Inc()
				return
			}
			betsTotal.WithLabelValues("rejected").Inc()
		},
	}

	metricsSrv := metrics.NewMetricsServer(cfg.MetricsPort, nil)
	go func() {
		log.Info("draft simulator (metrics) running", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("metrics server error", zap.Error(err))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("draft simulator running",
		zap.String("target", baseURL),
		zap.Int("users", users),
		zap.Duration("interval", interval),
	)

	// Uma partida completa a cada intervalo; o sufixo de tempo evita colisão de ids entre execuções
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	base := int(time.Now().Unix() % 100000 * 100)
	for seq := 0; ; seq++ {
		rep, err := s.Round(ctx, base+seq, time.Now().UTC())
		if err != nil {
			roundsTotal.WithLabelValues("error").Inc()
			log.Warn("simulated round failed", zap.Int("seq", seq), zap.Error(err))
		} else {
			roundsTotal.WithLabelValues("ok").Inc()
			fields := []zap.Field{
				zap.String("matchId", rep.MatchID),
				zap.Int("placed", rep.Placed),
				zap.Int("rejected", rep.Rejected),
				zap.Int("winningBets", rep.Results.WinningBets),
			}
			if rep.Rewards != nil {
				fields = append(fields, zap.String("rewards", rep.Rewards.TotalRewardsDistributed))
			}
			log.Info("simulated round done", fields...)
		}

		select {
		case <-ctx.Done():
			sctx, scancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer scancel()
			_ = metricsSrv.Shutdown(sctx)
			log.Info("draft simulator stopped")
			return
		case <-ticker.C:
		}
	}
}
