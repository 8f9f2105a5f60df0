package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type MatchStore interface {
	GetMatch(ctx context.Context, id string) (*Match, error)
	// LockMatch lê a partida reservando-a para escrita até o fim da transação.
	LockMatch(ctx context.Context, id string) (*Match, error)
	InsertMatch(ctx context.Context, m *Match) error
	// SaveMatch persiste status, resultado do draft e os acumuladores dos tipos.
	SaveMatch(ctx context.Context, m *Match) error
	ListUpcomingStartingBefore(ctx context.Context, t time.Time) ([]Match, error)
}

type BetStore interface {
	GetBet(ctx context.Context, id string) (*Bet, error)
	FindBet(ctx context.Context, userID, matchID string) (*Bet, error)
	BetExists(ctx context.Context, userID, matchID string) (bool, error)
	// ListBetsByMatch devolve as apostas em ordem de criação.
	ListBetsByMatch(ctx context.Context, matchID string) ([]Bet, error)
	InsertBet(ctx context.Context, b *Bet) error
	// SaveBetSettlement persiste status/recompensa das predições e o TotalReward.
	SaveBetSettlement(ctx context.Context, b *Bet) error
}

type AccountStore interface {
	GetAccount(ctx context.Context, userID string) (*Account, error)
	// DebitAccount falha com ErrInsufficientFunds se o saldo não cobrir amount.
	DebitAccount(ctx context.Context, userID string, amount decimal.Decimal, ref string) error
	CreditAccount(ctx context.Context, userID string, amount decimal.Decimal, ref string) error
	// EnsureAccount cria a conta com saldo zero se ainda não existir.
	EnsureAccount(ctx context.Context, userID string) error
}

type Repository interface {
	MatchStore
	BetStore
	AccountStore
}

// Store executa fn numa única transação: erro em fn desfaz tudo que fn escreveu.
type Store interface {
	Repository
	WithTx(ctx context.Context, fn func(r Repository) error) error
}

// Notifier é o colaborador externo de notificações.
type Notifier interface {
	NotifyMatchStarting(ctx context.Context, userID, matchID string) error
	NotifyPredictionResult(ctx context.Context, userID, betID string) error
}

type nopNotifier struct{}

func (nopNotifier) NotifyMatchStarting(context.Context, string, string) error    { return nil }
func (nopNotifier) NotifyPredictionResult(context.Context, string, string) error { return nil }

// Locker é um lock distribuído com TTL. Acquire devolve ErrLockHeld quando outro processo detém a chave.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
