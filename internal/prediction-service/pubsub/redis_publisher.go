package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/pkg/contracts/events"
)

// RedisBroadcaster publica o estado dos pools no canal lido pelo hub WebSocket.
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) PublishPoolUpdate(ctx context.Context, u events.PoolUpdate) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}

// BuildPoolUpdate junta pools, contagens e odds correntes de cada tipo da partida.
func BuildPoolUpdate(m *market.Match, bets []market.Bet, now time.Time) events.PoolUpdate {
	quote := market.QuoteMatch(m, bets)
	u := events.PoolUpdate{MatchID: m.ID, UpdatedAt: now}
	for _, pt := range m.PredictionTypes {
		odds := make(map[string]string, len(pt.Options))
		for choice, o := range quote[pt.Type] {
			odds[choice] = o.StringFixed(2)
		}
		u.Types = append(u.Types, events.TypePoolUpdate{
			Type:       pt.Type,
			RewardPool: pt.RewardPool,
			BetsCount:  pt.BetsCount,
			Closed:     pt.Closed,
			Odds:       odds,
		})
	}
	return u
}
