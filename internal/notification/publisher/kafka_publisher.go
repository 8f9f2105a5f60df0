// Package publisher publica notificações de partida e resultado no Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/pkg/contracts/events"
)

// MessageWriter é satisfeito por *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier implementa market.Notifier escrevendo events.Notification no tópico
// de notificações, com o userID como chave (mesmo usuário, mesma partição).
type KafkaNotifier struct {
	w   MessageWriter
	now func() time.Time
}

var _ market.Notifier = (*KafkaNotifier)(nil)

func NewKafkaNotifier(w MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{w: w, now: time.Now}
}

func (n *KafkaNotifier) NotifyMatchStarting(ctx context.Context, userID, matchID string) error {
	return n.publish(ctx, events.Notification{
		Kind:    events.NotificationMatchStarting,
		UserID:  userID,
		MatchID: matchID,
	})
}

func (n *KafkaNotifier) NotifyPredictionResult(ctx context.Context, userID, betID string) error {
	return n.publish(ctx, events.Notification{
		Kind:   events.NotificationPredictionResult,
		UserID: userID,
		BetID:  betID,
	})
}

func (n *KafkaNotifier) publish(ctx context.Context, ev events.Notification) error {
	ev.ID = uuid.NewString()
	ev.Ts = n.now().UTC()
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.UserID),
		Value: b,
		Time:  ev.Ts,
	})
}
