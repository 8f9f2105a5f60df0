package market_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/esports-prediction-poc/internal/market"
)

func TestCloseIfDue(t *testing.T) {
	start := t0.Add(time.Hour)
	m := &market.Match{
		ID:        "m1",
		StartTime: start,
		Status:    market.StatusUpcoming,
		PredictionTypes: []market.PredictionType{
			{Type: "first_ban_team1", Options: []string{"a", "b"}},
			{Type: "most_banned", Options: []string{"a", "b"}},
		},
	}

	assert.False(t, market.CloseIfDue(m, start.Add(-10*time.Minute)))
	assert.Equal(t, market.StatusUpcoming, m.Status)
	for _, pt := range m.PredictionTypes {
		assert.False(t, pt.Closed)
	}

	assert.True(t, market.CloseIfDue(m, start.Add(-4*time.Minute)))
	assert.Equal(t, market.StatusLive, m.Status)
	for _, pt := range m.PredictionTypes {
		assert.True(t, pt.Closed)
	}

	// segunda chamada não muda nada
	before := m.Clone()
	assert.False(t, market.CloseIfDue(m, start.Add(-3*time.Minute)))
	assert.Equal(t, before, *m)
}

func TestCloseIfDue_KeepsLaterStatus(t *testing.T) {
	m := &market.Match{
		StartTime:       t0,
		Status:          market.StatusDraftPhase,
		PredictionTypes: []market.PredictionType{{Type: "most_banned"}},
	}
	assert.True(t, market.CloseIfDue(m, t0))
	assert.Equal(t, market.StatusDraftPhase, m.Status)
	assert.True(t, m.PredictionTypes[0].Closed)
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	f.createMatch(t, "soon", t0.Add(20*time.Minute))
	f.createMatch(t, "later", t0.Add(3*time.Hour))
	for _, u := range []string{"u1", "u2", "u3"} {
		f.fund(u, 1000)
		f.place(t, u, "soon", pred("most_banned", "Hero1", 10))
	}
	f.notifier.failUsers["u2"] = true

	ctx := context.Background()

	rep, err := f.svc.Sweep(ctx, t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, market.SweepReport{}, rep, "nothing is due yet")

	rep, err = f.svc.Sweep(ctx, t0.Add(16*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Candidates)
	assert.Equal(t, 1, rep.Closed)
	assert.Equal(t, 2, rep.Notified)
	assert.Equal(t, 1, rep.NotifyFailed)
	assert.ElementsMatch(t, []string{"u1:soon", "u3:soon"}, f.notifier.starting)

	soon, err := f.svc.GetMatch(ctx, "soon")
	require.NoError(t, err)
	assert.Equal(t, market.StatusLive, soon.Status)
	later, err := f.svc.GetMatch(ctx, "later")
	require.NoError(t, err)
	assert.Equal(t, market.StatusUpcoming, later.Status)

	// já live: não entra de novo no sweep
	rep, err = f.svc.Sweep(ctx, t0.Add(17*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Closed)
	assert.Len(t, f.notifier.starting, 2)
}

func TestSweep_ClosedMatchRejectsBets(t *testing.T) {
	f := newFixture(t)
	f.createMatch(t, "m1", t0.Add(time.Hour))
	f.fund("u1", 1000)

	_, err := f.svc.Sweep(context.Background(), t0.Add(56*time.Minute))
	require.NoError(t, err)

	_, err = f.svc.PlaceBet(context.Background(), "u1", market.BetRequest{
		MatchID:     "m1",
		Predictions: []market.PredictionRequest{pred("most_banned", "Hero1", 10)},
	})
	requireKind(t, err, market.KindBettingClosed)
}

func TestCloseMatchIfDue_UnknownMatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CloseMatchIfDue(context.Background(), "ghost", t0)
	requireKind(t, err, market.KindMatchNotFound)
}
