package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/internal/market/memstore"
)

type fakeLocker struct {
	err      error
	acquired int
	released int
}

func (l *fakeLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func() { l.released++ }, nil
}

type countingSweeper struct {
	calls int
	err   error
}

func (c *countingSweeper) Sweep(context.Context, time.Time) (market.SweepReport, error) {
	c.calls++
	return market.SweepReport{}, c.err
}

func (c *countingSweeper) Now() time.Time { return time.Now() }

func TestTick_Lock(t *testing.T) {
	tests := []struct {
		name      string
		lockErr   error
		sweepErr  error
		wantRan   bool
		wantCalls int
		wantStage string
		wantSkip  bool
	}{
		{name: "runs under lock", wantRan: true, wantCalls: 1},
		{name: "lock held", lockErr: market.ErrLockHeld, wantSkip: true},
		{name: "lock backend down", lockErr: errors.New("dial tcp"), wantStage: "lock"},
		{name: "sweep error", sweepErr: errors.New("db down"), wantRan: true, wantCalls: 1, wantStage: "sweep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locker := &fakeLocker{err: tt.lockErr}
			sw := &countingSweeper{err: tt.sweepErr}
			var stage string
			var skipped bool
			s := &Scheduler{
				Log:       zap.NewNop(),
				Sweeper:   sw,
				Locker:    locker,
				OnError:   func(st string) { stage = st },
				OnSkipped: func() { skipped = true },
			}

			ran := s.Tick(context.Background())
			assert.Equal(t, tt.wantRan, ran)
			assert.Equal(t, tt.wantCalls, sw.calls)
			assert.Equal(t, tt.wantStage, stage)
			assert.Equal(t, tt.wantSkip, skipped)
			assert.Equal(t, locker.acquired, locker.released)
		})
	}
}

func TestTick_ClosesDueMatches(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	store := memstore.New()
	svc := market.NewService(store, nil, zap.NewNop(), market.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := svc.CreateMatch(ctx, market.NewMatch{
		ID: "m1", Game: "lol", Team1: "T1", Team2: "G2", StartTime: now.Add(3 * time.Minute),
		PredictionTypes: []market.NewPredictionType{{Type: "most_banned", Options: []string{"Ahri", "Zed"}}},
	})
	require.NoError(t, err)
	_, err = svc.CreateMatch(ctx, market.NewMatch{
		ID: "m2", Game: "lol", Team1: "T1", Team2: "G2", StartTime: now.Add(time.Hour),
		PredictionTypes: []market.NewPredictionType{{Type: "most_banned", Options: []string{"Ahri", "Zed"}}},
	})
	require.NoError(t, err)

	var rep market.SweepReport
	s := &Scheduler{
		Log:     zap.NewNop(),
		Sweeper: svc,
		OnSweep: func(r market.SweepReport, _ time.Duration) { rep = r },
	}
	require.True(t, s.Tick(ctx))
	assert.Equal(t, 1, rep.Closed)

	m1, err := svc.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, market.StatusLive, m1.Status)
	assert.True(t, m1.PredictionTypes[0].Closed)

	m2, err := svc.GetMatch(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, market.StatusUpcoming, m2.Status)

	// segunda passada não fecha de novo
	require.True(t, s.Tick(ctx))
	assert.Equal(t, 0, rep.Closed)
}

func TestMaxLateness(t *testing.T) {
	sched, err := cron.ParseStandard("@every 1m")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, MaxLateness(sched, time.Now()))

	sched, err = cron.ParseStandard("*/5 * * * *")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, MaxLateness(sched, time.Date(2026, 1, 1, 0, 2, 0, 0, time.UTC)))
}

func TestRun_InvalidSchedule(t *testing.T) {
	s := &Scheduler{Log: zap.NewNop(), Sweeper: &countingSweeper{}}
	assert.Error(t, s.Run(context.Background(), "not a schedule"))
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := &Scheduler{Log: zap.NewNop(), Sweeper: &countingSweeper{}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "@every 1h") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
