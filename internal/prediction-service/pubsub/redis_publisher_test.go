package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/pkg/contracts/events"
)

func TestBuildPoolUpdate(t *testing.T) {
	m := &market.Match{
		ID: "m1",
		PredictionTypes: []market.PredictionType{
			{Type: "most_banned", Options: []string{"Io", "Pudge"}, RewardPool: 100, BetsCount: 1},
			{Type: "first_ban_team1", Options: []string{"Io", "Pudge"}, Closed: true},
		},
	}
	bets := []market.Bet{{UserID: "u1", Predictions: []market.Prediction{{Type: "most_banned", Choice: "Io", BetAmount: 100}}}}
	now := time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC)

	u := BuildPoolUpdate(m, bets, now)
	assert.Equal(t, "m1", u.MatchID)
	assert.Equal(t, now, u.UpdatedAt)
	require.Len(t, u.Types, 2)
	assert.Equal(t, map[string]string{"Io": "1.10", "Pudge": "10.00"}, u.Types[0].Odds)
	assert.Equal(t, int64(100), u.Types[0].RewardPool)
	assert.Equal(t, map[string]string{"Io": "2.00", "Pudge": "2.00"}, u.Types[1].Odds)
	assert.True(t, u.Types[1].Closed)
}

func TestPublishPoolUpdate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "pool_updates_broadcast")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	b := NewRedisBroadcaster(rdb, "pool_updates_broadcast")
	require.NoError(t, b.PublishPoolUpdate(ctx, events.PoolUpdate{MatchID: "m1"}))

	select {
	case msg := <-sub.Channel():
		var got events.PoolUpdate
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "m1", got.MatchID)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
