package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/esports-prediction-poc/internal/market"
)

// LockName é a chave do lock que garante um único sweep por vez entre réplicas.
const LockName = "window-closer:sweep"

type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (market.SweepReport, error)
	Now() time.Time
}

// Scheduler dispara Sweep na agenda configurada.
// Locker nil roda sem lock (uma réplica só). Os callbacks On* são opcionais.
type Scheduler struct {
	Log     *zap.Logger
	Sweeper Sweeper
	Locker  market.Locker
	LockTTL time.Duration

	OnSweep   func(rep market.SweepReport, took time.Duration)
	OnSkipped func()
	OnError   func(stage string)
}

// Tick executa um sweep protegido pelo lock. Devolve false quando outro processo já está varrendo.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if s.Locker != nil {
		ttl := s.LockTTL
		if ttl <= 0 {
			ttl = 30 * time.Second
		}
		unlock, err := s.Locker.Acquire(ctx, LockName, ttl)
		if errors.Is(err, market.ErrLockHeld) {
			s.Log.Debug("sweep skipped, lock held elsewhere")
			if s.OnSkipped != nil {
				s.OnSkipped()
			}
			return false
		}
		if err != nil {
			s.Log.Error("sweep lock failed", zap.Error(err))
			s.fail("lock")
			return false
		}
		defer unlock()
	}

	start := time.Now()
	rep, err := s.Sweeper.Sweep(ctx, s.Sweeper.Now())
	took := time.Since(start)
	if err != nil {
		s.Log.Error("sweep failed", zap.Error(err))
		s.fail("sweep")
		return true
	}

	if rep.Candidates > 0 {
		s.Log.Info("sweep done",
			zap.Int("candidates", rep.Candidates),
			zap.Int("closed", rep.Closed),
			zap.Int("failed", rep.Failed),
			zap.Int("notified", rep.Notified),
			zap.Int("notifyFailed", rep.NotifyFailed),
			zap.Duration("took", took),
		)
	}
	if s.OnSweep != nil {
		s.OnSweep(rep, took)
	}
	return true
}

func (s *Scheduler) fail(stage string) {
	if s.OnError != nil {
		s.OnError(stage)
	}
}

// Run registra o sweep na agenda (sintaxe cron de 5 campos ou descritores como "@every 1m")
// e bloqueia até ctx ser cancelado, esperando o sweep em andamento terminar.
func (s *Scheduler) Run(ctx context.Context, spec string) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	s.Log.Info("window closer scheduled",
		zap.String("schedule", spec),
		zap.Duration("maxLateness", MaxLateness(sched, time.Now())),
		zap.Duration("cutoff", market.BettingCutoff),
	)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, cron.FuncJob(func() { s.Tick(ctx) }))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// MaxLateness é o atraso máximo de fechamento: o intervalo entre dois disparos a partir de from.
func MaxLateness(sched cron.Schedule, from time.Time) time.Duration {
	next := sched.Next(from)
	return sched.Next(next).Sub(next)
}
