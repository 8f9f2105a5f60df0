package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/esports-prediction-poc/pkg/contracts/events"
)

type fakeStore struct {
	failures int
	saved    []events.Notification
	calls    int
}

func (s *fakeStore) Save(_ context.Context, ev events.Notification) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("db unavailable")
	}
	s.saved = append(s.saved, ev)
	return nil
}

type fakeDLQ struct{ msgs []kafka.Message }

func (d *fakeDLQ) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	d.msgs = append(d.msgs, msgs...)
	return nil
}

type sliceReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func message(t *testing.T, ev events.Notification) kafka.Message {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(ev.UserID), Value: b}
}

func newProcessor(store Store, dlq MessageWriter) (*Processor, map[string]int) {
	counts := map[string]int{}
	return &Processor{
		Log:         zap.NewNop(),
		Store:       store,
		DLQ:         dlq,
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		OnConsumed:  func() { counts["consumed"]++ },
		OnStored:    func(kind string) { counts["stored:"+kind]++ },
		OnDLQ:       func(reason string) { counts["dlq:"+reason]++ },
		OnError:     func(stage string) { counts["error:"+stage]++ },
	}, counts
}

func TestHandle(t *testing.T) {
	valid := events.Notification{ID: "n1", Kind: events.NotificationMatchStarting, UserID: "u1", MatchID: "m1", Ts: time.Now()}

	tests := []struct {
		name      string
		msg       func(t *testing.T) kafka.Message
		failures  int
		wantSaved int
		wantDLQ   string
		wantCount map[string]int
	}{
		{
			name:      "stores valid notification",
			msg:       func(t *testing.T) kafka.Message { return message(t, valid) },
			wantSaved: 1,
			wantCount: map[string]int{"consumed": 1, "stored:match_starting": 1},
		},
		{
			name:      "retries transient store failure",
			msg:       func(t *testing.T) kafka.Message { return message(t, valid) },
			failures:  2,
			wantSaved: 1,
			wantCount: map[string]int{"consumed": 1, "error:store": 2, "stored:match_starting": 1},
		},
		{
			name:      "gives up after max attempts",
			msg:       func(t *testing.T) kafka.Message { return message(t, valid) },
			failures:  5,
			wantDLQ:   "store",
			wantCount: map[string]int{"consumed": 1, "error:store": 3, "dlq:store": 1},
		},
		{
			name:      "malformed payload",
			msg:       func(*testing.T) kafka.Message { return kafka.Message{Value: []byte("{")} },
			wantDLQ:   "decode",
			wantCount: map[string]int{"consumed": 1, "error:decode": 1, "dlq:decode": 1},
		},
		{
			name: "missing user",
			msg: func(t *testing.T) kafka.Message {
				return message(t, events.Notification{ID: "n2", Kind: events.NotificationPredictionResult})
			},
			wantDLQ:   "validate",
			wantCount: map[string]int{"consumed": 1, "error:validate": 1, "dlq:validate": 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{failures: tt.failures}
			dlq := &fakeDLQ{}
			p, counts := newProcessor(store, dlq)

			p.Handle(context.Background(), tt.msg(t))

			assert.Len(t, store.saved, tt.wantSaved)
			assert.Equal(t, tt.wantCount, counts)
			if tt.wantDLQ == "" {
				assert.Empty(t, dlq.msgs)
				return
			}
			require.Len(t, dlq.msgs, 1)
			require.NotEmpty(t, dlq.msgs[0].Headers)
			last := dlq.msgs[0].Headers[len(dlq.msgs[0].Headers)-1]
			assert.Equal(t, "dlq_reason", last.Key)
			assert.Equal(t, tt.wantDLQ, string(last.Value))
		})
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &fakeStore{}
	p, _ := newProcessor(store, &fakeDLQ{})
	p.Reader = &sliceReader{
		msgs: []kafka.Message{
			message(t, events.Notification{ID: "a", Kind: events.NotificationMatchStarting, UserID: "u1"}),
			message(t, events.Notification{ID: "b", Kind: events.NotificationPredictionResult, UserID: "u2"}),
		},
		cancel: cancel,
	}

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, store.saved, 2)
}
