package market

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinBetAmount int64 = 10
	MaxBetAmount int64 = 10000

	// BettingCutoff: apostas fecham quando faltam 5 minutos ou menos para o início.
	BettingCutoff = 5 * time.Minute
)

// Admission é o resultado de uma validação aprovada.
// Match é a partida lida (e travada, dentro de transação) durante a validação.
type Admission struct {
	TotalBet int64
	Match    *Match
}

// Validator aplica as regras de admissão de uma aposta, na ordem, parando na primeira falha.
type Validator struct {
	repo Repository
	now  func() time.Time
}

func NewValidator(repo Repository, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{repo: repo, now: now}
}

func (v *Validator) Validate(ctx context.Context, userID, matchID string, preds []PredictionRequest) (*Admission, error) {
	// 1. partida existe
	m, err := v.repo.LockMatch(ctx, matchID)
	if errors.Is(err, ErrMatchNotFound) {
		return nil, wrapError(KindMatchNotFound, err, "match %s not found", matchID)
	}
	if err != nil {
		return nil, err
	}

	// 2. status exatamente upcoming
	if m.Status != StatusUpcoming {
		return nil, newError(KindBettingClosed, "betting is closed for this match (status %s)", m.Status)
	}

	// 3. mais de 5 minutos até o início
	if m.StartTime.Sub(v.now()) <= BettingCutoff {
		return nil, newError(KindBettingClosed, "betting closes %s before match start", BettingCutoff)
	}

	// 4. pelo menos uma predição
	if len(preds) == 0 {
		return nil, newError(KindNoPredictions, "at least one prediction is required")
	}

	// 5. cada predição
	var total int64
	seen := make(map[string]struct{}, len(preds))
	for _, p := range preds {
		if p.BetAmount < MinBetAmount || p.BetAmount > MaxBetAmount {
			return nil, newError(KindInvalidBetAmount, "bet amount must be between %d and %d, got %d",
				MinBetAmount, MaxBetAmount, p.BetAmount)
		}
		pt := m.PredictionType(p.Type)
		if pt == nil {
			return nil, newError(KindInvalidPredictionType, "unknown prediction type %q", p.Type)
		}
		if _, dup := seen[p.Type]; dup {
			return nil, newError(KindInvalidPredictionType, "prediction type %q appears more than once", p.Type)
		}
		seen[p.Type] = struct{}{}
		if pt.Closed {
			return nil, newError(KindBettingClosed, "prediction type %q is closed", p.Type)
		}
		if !pt.HasOption(p.Choice) {
			return nil, newError(KindInvalidChoice, "invalid choice %q for %s; valid options: %s",
				p.Choice, p.Type, strings.Join(pt.Options, ", "))
		}
		total += p.BetAmount
	}

	// 6. saldo
	acc, err := v.repo.GetAccount(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, wrapError(KindInsufficientFunds, err, "no account for user %s", userID)
	}
	if err != nil {
		return nil, err
	}
	if decimal.NewFromInt(total).GreaterThan(acc.Balance) {
		return nil, newError(KindInsufficientFunds, "total bet %d exceeds balance %s", total, acc.Balance.StringFixed(2))
	}

	// 7. uma aposta por (usuário, partida)
	exists, err := v.repo.BetExists(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, newError(KindDuplicateBet, "user %s already has a bet on match %s", userID, matchID)
	}

	return &Admission{TotalBet: total, Match: m}, nil
}
