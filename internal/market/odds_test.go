package market_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/radieske/esports-prediction-poc/internal/market"
)

func matchWithPool(pool int64) *market.Match {
	return &market.Match{
		ID: "m1",
		PredictionTypes: []market.PredictionType{
			{Type: "most_banned", Options: []string{"Hero1", "Hero2", "Hero3"}, RewardPool: pool},
		},
	}
}

func betOn(user, choice string, amount int64) market.Bet {
	return market.Bet{
		UserID:  user,
		MatchID: "m1",
		Predictions: []market.Prediction{
			{Type: "most_banned", Choice: choice, BetAmount: amount},
		},
	}
}

func TestComputeOdds(t *testing.T) {
	tests := []struct {
		name   string
		pool   int64
		bets   []market.Bet
		typ    string
		choice string
		want   string
	}{
		{"empty pool", 0, nil, "most_banned", "Hero1", "2.00"},
		{"unknown type", 500, nil, "first_pick_team2", "Hero1", "2.00"},
		{"single bet clamps to floor", 100, []market.Bet{betOn("u1", "Hero1", 100)}, "most_banned", "Hero1", "1.10"},
		{"uncontested option", 100, []market.Bet{betOn("u1", "Hero1", 100)}, "most_banned", "Hero2", "10.00"},
		{"proportional", 300, []market.Bet{betOn("u1", "Hero1", 100), betOn("u2", "Hero2", 200)}, "most_banned", "Hero1", "2.85"},
		{"rounded to cents", 300, []market.Bet{betOn("u1", "Hero1", 200), betOn("u2", "Hero2", 100)}, "most_banned", "Hero1", "1.43"},
		{"capped at ceiling", 10000, []market.Bet{betOn("u1", "Hero1", 10), betOn("u2", "Hero2", 9990)}, "most_banned", "Hero1", "10.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := market.ComputeOdds(matchWithPool(tt.pool), tt.bets, tt.typ, tt.choice)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestComputeOdds_AlwaysWithinBounds(t *testing.T) {
	for option := int64(10); option <= 5000; option += 137 {
		for other := int64(0); other <= 5000; other += 251 {
			bets := []market.Bet{betOn("u1", "Hero1", option)}
			if other > 0 {
				bets = append(bets, betOn("u2", "Hero2", other))
			}
			got := market.ComputeOdds(matchWithPool(option+other), bets, "most_banned", "Hero1")
			msg := fmt.Sprintf("option=%d other=%d odds=%s", option, other, got)
			assert.True(t, got.GreaterThanOrEqual(market.MinOdds), msg)
			assert.True(t, got.LessThanOrEqual(market.MaxOdds), msg)
			assert.True(t, got.Equal(got.Round(2)), msg)
		}
	}
}

func TestQuoteMatch(t *testing.T) {
	m := matchWithPool(100)
	q := market.QuoteMatch(m, []market.Bet{betOn("u1", "Hero1", 100)})

	assert.Equal(t, "1.10", q["most_banned"]["Hero1"].StringFixed(2))
	assert.Equal(t, "10.00", q["most_banned"]["Hero2"].StringFixed(2))
	assert.Equal(t, "10.00", q["most_banned"]["Hero3"].StringFixed(2))
}
