package market

import (
	"time"

	"github.com/shopspring/decimal"
)

type PredictionStatus string

const (
	PredictionPending PredictionStatus = "pending"
	PredictionWon     PredictionStatus = "won"
	PredictionLost    PredictionStatus = "lost"
)

// Prediction pertence a uma Bet. Odds é capturada na colocação e não muda mais.
type Prediction struct {
	Type      string           `json:"type"`
	Choice    string           `json:"choice"`
	BetAmount int64            `json:"betAmount"`
	Odds      decimal.Decimal  `json:"odds"`
	Status    PredictionStatus `json:"status"`
	Reward    decimal.Decimal  `json:"reward"`
}

// Bet: uma por (usuário, partida). TotalBet é fixado na criação.
type Bet struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	MatchID     string          `json:"matchId"`
	Predictions []Prediction    `json:"predictions"`
	TotalBet    int64           `json:"totalBet"`
	TotalReward decimal.Decimal `json:"totalReward"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (b Bet) Clone() Bet {
	out := b
	out.Predictions = append([]Prediction(nil), b.Predictions...)
	return out
}

// Account é a entidade externa de saldo do usuário.
type Account struct {
	UserID  string          `json:"userId"`
	Balance decimal.Decimal `json:"balance"`
}

type PredictionRequest struct {
	Type      string `json:"type"`
	Choice    string `json:"choice"`
	BetAmount int64  `json:"betAmount"`
}

type BetRequest struct {
	MatchID     string              `json:"matchId"`
	Predictions []PredictionRequest `json:"predictions"`
}
