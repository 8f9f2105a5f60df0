package market_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/esports-prediction-poc/internal/market"
)

func TestMatchStats(t *testing.T) {
	f := newFixture(t)
	f.createMatch(t, "m1", t0.Add(time.Hour))
	f.fund("u1", 1000)
	f.fund("u2", 1000)
	f.fund("u3", 1000)
	f.place(t, "u1", "m1", pred("most_banned", "Hero1", 100), pred("first_ban_team1", "Hero3", 10))
	f.place(t, "u2", "m1", pred("most_banned", "Hero1", 50))
	f.place(t, "u3", "m1", pred("most_banned", "Hero2", 50))

	st, err := f.svc.MatchStats(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalBets)
	assert.Equal(t, int64(210), st.TotalAmount)
	require.Len(t, st.Types, 3)

	mb := st.Types[1]
	assert.Equal(t, "most_banned", mb.Type)
	assert.Equal(t, 3, mb.TotalBets)
	assert.Equal(t, int64(200), mb.TotalAmount)
	assert.Equal(t, 3, mb.Participants)
	require.Len(t, mb.Options, 2)
	assert.Equal(t, "Hero1", mb.Options[0].Choice)
	assert.Equal(t, 2, mb.Options[0].BetsCount)
	assert.Equal(t, int64(150), mb.Options[0].Amount)
	assert.Equal(t, "75.00", mb.Options[0].Percentage.StringFixed(2))
	assert.Equal(t, "25.00", mb.Options[1].Percentage.StringFixed(2))

	fb := st.Types[0]
	assert.Equal(t, 1, fb.Participants)
	assert.Equal(t, "0.00", fb.Options[0].Percentage.StringFixed(2))
	assert.Equal(t, "100.00", fb.Options[2].Percentage.StringFixed(2))

	pick := st.Types[2]
	assert.Equal(t, 0, pick.TotalBets)
	for _, o := range pick.Options {
		assert.True(t, o.Percentage.IsZero())
	}

	_, err = f.svc.MatchStats(context.Background(), "ghost")
	requireKind(t, err, market.KindMatchNotFound)
}

func TestBuildStats_RoundsPercentages(t *testing.T) {
	m := &market.Match{
		ID:              "m1",
		PredictionTypes: []market.PredictionType{{Type: "most_banned", Options: []string{"a", "b", "c"}}},
	}
	bets := []market.Bet{
		{UserID: "u1", Predictions: []market.Prediction{{Type: "most_banned", Choice: "a", BetAmount: 10}}},
		{UserID: "u2", Predictions: []market.Prediction{{Type: "most_banned", Choice: "b", BetAmount: 10}}},
		{UserID: "u3", Predictions: []market.Prediction{{Type: "most_banned", Choice: "c", BetAmount: 10}}},
	}
	st := market.BuildStats(m, bets)
	for _, o := range st.Types[0].Options {
		assert.Equal(t, "33.33", o.Percentage.StringFixed(2))
	}
}
