// Package consumer lê notificações do Kafka e as persiste, mandando para a DLQ
// o que não puder ser decodificado ou gravado.
package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/esports-prediction-poc/pkg/contracts/events"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Store interface {
	Save(ctx context.Context, ev events.Notification) error
}

// Processor consome o tópico de notificações. Callbacks de métricas podem ficar nil.
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Store  Store
	DLQ    MessageWriter

	MaxAttempts int           // tentativas de gravação antes da DLQ (padrão 3)
	Backoff     time.Duration // espera entre tentativas (padrão 200ms)

	OnConsumed func()
	OnStored   func(kind string)
	OnDLQ      func(reason string)
	OnError    func(stage string)
}

// Run roda até o contexto ser cancelado.
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem; nunca devolve erro, o destino final é o banco ou a DLQ.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	if p.OnConsumed != nil {
		p.OnConsumed()
	}

	var ev events.Notification
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.Log.Warn("invalid notification", zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m, "decode")
		return
	}
	if ev.ID == "" || ev.UserID == "" || ev.Kind == "" {
		p.Log.Warn("notification missing fields", zap.String("id", ev.ID), zap.String("kind", ev.Kind))
		p.fail("validate")
		p.deadLetter(ctx, m, "validate")
		return
	}

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = p.Store.Save(ctx, ev); err == nil {
			break
		}
		p.Log.Warn("store notification failed",
			zap.String("id", ev.ID), zap.Int("attempt", i), zap.Error(err))
		p.fail("store")
		if i < attempts && !sleep(ctx, backoff*time.Duration(i)) {
			break
		}
	}
	if err != nil {
		p.deadLetter(ctx, m, "store")
		return
	}

	if p.OnStored != nil {
		p.OnStored(ev.Kind)
	}
	p.Log.Debug("notification stored",
		zap.String("id", ev.ID), zap.String("kind", ev.Kind), zap.String("userId", ev.UserID))
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, reason string) {
	if p.DLQ == nil {
		return
	}
	msg := kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: append(append([]kafka.Header(nil), m.Headers...), kafka.Header{Key: "dlq_reason", Value: []byte(reason)}),
		Time:    time.Now(),
	}
	if err := p.DLQ.WriteMessages(ctx, msg); err != nil {
		p.Log.Error("dlq write failed", zap.String("reason", reason), zap.Error(err))
		p.fail("dlq")
		return
	}
	if p.OnDLQ != nil {
		p.OnDLQ(reason)
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

// sleep devolve false se o contexto acabou antes.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
