package market

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Hooks recebe callbacks de métricas; qualquer campo pode ficar nil.
type Hooks struct {
	OnPlaced      func(b *Bet)
	OnRejected    func(kind ErrorKind)
	OnClosed      func(matchID string)
	OnSettled     func(status PredictionStatus)
	OnRewardPaid  func(amount decimal.Decimal)
	OnNotifyError func(stage string)
}

// Service concentra as operações de aposta e liquidação de um mercado de predições.
// Construído uma vez no main e compartilhado por referência.
type Service struct {
	store    Store
	notifier Notifier
	rules    *RuleSet
	log      *zap.Logger
	hooks    Hooks
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithRules(rs *RuleSet) Option          { return func(s *Service) { s.rules = rs } }
func WithHooks(h Hooks) Option              { return func(s *Service) { s.hooks = h } }

func NewService(store Store, notifier Notifier, log *zap.Logger, opts ...Option) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:    store,
		notifier: notifier,
		rules:    DefaultRules(),
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now expõe o relógio do serviço (o scheduler usa o mesmo relógio no sweep).
func (s *Service) Now() time.Time { return s.now() }

// observe registra o desfecho de uma operação: erros esperados viram métrica/debug,
// erros internos viram log de erro.
func (s *Service) observe(op string, err error, fields ...zap.Field) {
	if kind, ok := KindOf(err); ok {
		if s.hooks.OnRejected != nil {
			s.hooks.OnRejected(kind)
		}
		s.log.Debug(op+" rejected", append(fields, zap.String("kind", string(kind)), zap.Error(err))...)
		return
	}
	s.log.Error(op+" failed", append(fields, zap.Error(err))...)
}

func (s *Service) notifyFailed(stage string, err error, fields ...zap.Field) {
	if s.hooks.OnNotifyError != nil {
		s.hooks.OnNotifyError(stage)
	}
	s.log.Warn("notification failed", append(fields, zap.String("stage", stage), zap.Error(err))...)
}
