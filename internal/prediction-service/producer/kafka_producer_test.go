package producer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/pkg/contracts/events"
)

type captureWriter struct{ msgs []kafka.Message }

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func TestPublishBetPlaced(t *testing.T) {
	w := &captureWriter{}
	p := NewKafkaPublisher(w)

	err := p.PublishBetPlaced(context.Background(), &market.Bet{
		ID: "b1", UserID: "u1", MatchID: "m1", TotalBet: 110,
		Predictions: []market.Prediction{
			{Type: "most_banned", Choice: "Io", BetAmount: 100, Odds: decimal.RequireFromString("1.1")},
			{Type: "first_ban_team1", Choice: "Pudge", BetAmount: 10, Odds: decimal.RequireFromString("10")},
		},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "m1", string(w.msgs[0].Key))

	var ev events.BetPlaced
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, "b1", ev.BetID)
	assert.Equal(t, int64(110), ev.TotalBet)
	require.Len(t, ev.Predictions, 2)
	assert.Equal(t, "1.10", ev.Predictions[0].Odds)
	assert.Equal(t, "10.00", ev.Predictions[1].Odds)
	assert.NotZero(t, ev.TsUnixMs)
}
