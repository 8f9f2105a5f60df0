package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/pkg/contracts/events"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica bet_placed com matchID como chave.
type KafkaPublisher struct {
	Writer MessageWriter
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, b *market.Bet) error {
	e := events.BetPlaced{
		BetID:    b.ID,
		UserID:   b.UserID,
		MatchID:  b.MatchID,
		TotalBet: b.TotalBet,
		TsUnixMs: time.Now().UnixMilli(),
	}
	for _, pr := range b.Predictions {
		e.Predictions = append(e.Predictions, events.PlacedSelection{
			Type:      pr.Type,
			Choice:    pr.Choice,
			BetAmount: pr.BetAmount,
			Odds:      pr.Odds.StringFixed(2),
		})
	}
	v, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(b.MatchID), Value: v})
}
