package market_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/esports-prediction-poc/internal/market"
)

func TestCreateMatch_Validation(t *testing.T) {
	valid := func() market.NewMatch {
		return market.NewMatch{
			ID: "m1", Game: "dota2", Team1: "Falcons", Team2: "Liquid",
			StartTime: t0.Add(time.Hour), PredictionTypes: draftTypes(),
		}
	}
	tests := []struct {
		name   string
		mutate func(*market.NewMatch)
		want   market.ErrorKind
	}{
		{"missing id", func(m *market.NewMatch) { m.ID = "" }, market.KindInvalidData},
		{"missing team", func(m *market.NewMatch) { m.Team2 = " " }, market.KindInvalidTeam},
		{"same team", func(m *market.NewMatch) { m.Team2 = "falcons" }, market.KindInvalidTeam},
		{"start in the past", func(m *market.NewMatch) { m.StartTime = t0.Add(-time.Minute) }, market.KindInvalidData},
		{"no types", func(m *market.NewMatch) { m.PredictionTypes = nil }, market.KindInvalidData},
		{"single option", func(m *market.NewMatch) {
			m.PredictionTypes = []market.NewPredictionType{{Type: "most_banned", Options: []string{"a"}}}
		}, market.KindInvalidData},
		{"repeated option", func(m *market.NewMatch) {
			m.PredictionTypes = []market.NewPredictionType{{Type: "most_banned", Options: []string{"a", "a"}}}
		}, market.KindInvalidData},
		{"repeated type", func(m *market.NewMatch) {
			m.PredictionTypes = append(m.PredictionTypes, market.NewPredictionType{Type: "most_banned", Options: []string{"a", "b"}})
		}, market.KindInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			nm := valid()
			tt.mutate(&nm)
			_, err := f.svc.CreateMatch(context.Background(), nm)
			requireKind(t, err, tt.want)
		})
	}

	f := newFixture(t)
	m, err := f.svc.CreateMatch(context.Background(), valid())
	require.NoError(t, err)
	assert.Equal(t, market.StatusUpcoming, m.Status)
	assert.Len(t, m.PredictionTypes, 3)

	_, err = f.svc.CreateMatch(context.Background(), valid())
	requireKind(t, err, market.KindInvalidData)
}

func TestStartDraftPhase(t *testing.T) {
	f := newFixture(t)
	f.createMatch(t, "m1", t0.Add(time.Hour))
	ctx := context.Background()

	m, err := f.svc.StartDraftPhase(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, market.StatusDraftPhase, m.Status)
	for _, pt := range m.PredictionTypes {
		assert.True(t, pt.Closed)
	}

	_, err = f.svc.StartDraftPhase(ctx, "m1")
	requireKind(t, err, market.KindInvalidMatchStatus)

	_, err = f.svc.CancelMatch(ctx, "m1")
	requireKind(t, err, market.KindInvalidMatchStatus)
}

func TestCancelMatch_RefundsStakes(t *testing.T) {
	f := newFixture(t)
	f.createMatch(t, "m1", t0.Add(time.Hour))
	f.fund("u1", 1000)
	f.fund("u2", 1000)
	f.place(t, "u1", "m1", pred("most_banned", "Hero1", 100), pred("first_ban_team1", "Hero2", 40))
	f.place(t, "u2", "m1", pred("most_banned", "Hero2", 300))

	ctx := context.Background()
	res, err := f.svc.CancelMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.RefundedBets)
	assert.Equal(t, "440.00", res.RefundedAmount.StringFixed(2))
	assert.True(t, f.balance(t, "u1").Equal(decimal.NewFromInt(1000)))
	assert.True(t, f.balance(t, "u2").Equal(decimal.NewFromInt(1000)))

	m, err := f.svc.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, market.StatusCancelled, m.Status)

	_, err = f.svc.CancelMatch(ctx, "m1")
	requireKind(t, err, market.KindInvalidMatchStatus)
}

func TestBetLookups(t *testing.T) {
	f := newFixture(t)
	f.createMatch(t, "m1", t0.Add(time.Hour))
	f.fund("u1", 1000)
	b := f.place(t, "u1", "m1", pred("most_banned", "Hero1", 100))
	ctx := context.Background()

	got, err := f.svc.UserBet(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = f.svc.UserBet(ctx, "u2", "m1")
	requireKind(t, err, market.KindBetNotFound)
	_, err = f.svc.GetBet(ctx, "missing")
	requireKind(t, err, market.KindBetNotFound)

	q, err := f.svc.QuoteOdds(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "1.10", q["most_banned"]["Hero1"].StringFixed(2))
	assert.Equal(t, "2.00", q["first_ban_team1"]["Hero1"].StringFixed(2))
}

func TestDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acc, err := f.svc.Deposit(ctx, "u9", dec("250.50"), "pix-1")
	require.NoError(t, err)
	assert.Equal(t, "250.50", acc.Balance.StringFixed(2))

	acc, err = f.svc.Deposit(ctx, "u9", dec("49.50"), "pix-2")
	require.NoError(t, err)
	assert.Equal(t, "300.00", acc.Balance.StringFixed(2))

	_, err = f.svc.Deposit(ctx, "u9", dec("-1"), "x")
	requireKind(t, err, market.KindInvalidData)
	_, err = f.svc.Deposit(ctx, "u9", dec("1.001"), "x")
	requireKind(t, err, market.KindInvalidData)

	empty, err := f.svc.GetAccount(ctx, "nobody")
	require.NoError(t, err)
	assert.True(t, empty.Balance.IsZero())
}
