package market_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/internal/market/memstore"
)

var t0 = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu        sync.Mutex
	starting  []string // userID:matchID
	results   []string // userID:betID
	failUsers map[string]bool
}

func (n *recordingNotifier) NotifyMatchStarting(_ context.Context, userID, matchID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failUsers[userID] {
		return errors.New("push gateway down")
	}
	n.starting = append(n.starting, userID+":"+matchID)
	return nil
}

func (n *recordingNotifier) NotifyPredictionResult(_ context.Context, userID, betID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failUsers[userID] {
		return errors.New("push gateway down")
	}
	n.results = append(n.results, userID+":"+betID)
	return nil
}

type fixture struct {
	store    *memstore.Store
	svc      *market.Service
	notifier *recordingNotifier
	clock    time.Time

	mu       sync.Mutex
	rejected []market.ErrorKind
}

func newFixture(t *testing.T, opts ...market.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    memstore.New(),
		notifier: &recordingNotifier{failUsers: map[string]bool{}},
		clock:    t0,
	}
	base := []market.Option{
		market.WithClock(func() time.Time { return f.clock }),
		market.WithHooks(market.Hooks{
			OnRejected: func(k market.ErrorKind) {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.rejected = append(f.rejected, k)
			},
		}),
	}
	f.svc = market.NewService(f.store, f.notifier, zap.NewNop(), append(base, opts...)...)
	return f
}

// rejections devolve uma cópia das rejeições registradas pelo hook.
func (f *fixture) rejections() []market.ErrorKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]market.ErrorKind(nil), f.rejected...)
}

func draftTypes() []market.NewPredictionType {
	return []market.NewPredictionType{
		{Type: "first_ban_team1", Options: []string{"Hero1", "Hero2", "Hero3"}},
		{Type: "most_banned", Options: []string{"Hero1", "Hero2"}},
		{Type: "pick_team1_core", Options: []string{"Hero1", "Hero2", "Hero3"}},
	}
}

// createMatch cadastra uma partida que começa em start.
func (f *fixture) createMatch(t *testing.T, id string, start time.Time) *market.Match {
	t.Helper()
	m, err := f.svc.CreateMatch(context.Background(), market.NewMatch{
		ID:              id,
		Game:            "dota2",
		Team1:           "Falcons",
		Team2:           "Liquid",
		StartTime:       start,
		PredictionTypes: draftTypes(),
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) fund(userID string, amount int64) {
	f.store.SeedAccount(userID, decimal.NewFromInt(amount))
}

func (f *fixture) place(t *testing.T, userID, matchID string, preds ...market.PredictionRequest) *market.Bet {
	t.Helper()
	b, err := f.svc.PlaceBet(context.Background(), userID, market.BetRequest{MatchID: matchID, Predictions: preds})
	require.NoError(t, err)
	return b
}

func (f *fixture) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	acc, err := f.store.GetAccount(context.Background(), userID)
	require.NoError(t, err)
	return acc.Balance
}

// goLive fecha a janela e marca a partida como live.
func (f *fixture) goLive(t *testing.T, matchID string) {
	t.Helper()
	m, err := f.store.GetMatch(context.Background(), matchID)
	require.NoError(t, err)
	_, err = f.svc.CloseMatchIfDue(context.Background(), matchID, m.StartTime.Add(-time.Minute))
	require.NoError(t, err)
}

func pred(typ, choice string, amount int64) market.PredictionRequest {
	return market.PredictionRequest{Type: typ, Choice: choice, BetAmount: amount}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireKind(t *testing.T, err error, want market.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	kind, ok := market.KindOf(err)
	require.True(t, ok, "expected a market.Error, got %v", err)
	require.Equal(t, want, kind, err.Error())
}
