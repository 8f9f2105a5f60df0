package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NewMatch é o cadastro de uma partida feito pelo admin.
type NewMatch struct {
	ID              string              `json:"id"`
	Game            string              `json:"game"`
	Team1           string              `json:"team1"`
	Team2           string              `json:"team2"`
	StartTime       time.Time           `json:"startTime"`
	PredictionTypes []NewPredictionType `json:"predictionTypes"`
}

type NewPredictionType struct {
	Type    string   `json:"type"`
	Options []string `json:"options"`
}

func validateNewMatch(nm NewMatch, now time.Time) error {
	if strings.TrimSpace(nm.ID) == "" {
		return newError(KindInvalidData, "match id is required")
	}
	t1, t2 := strings.TrimSpace(nm.Team1), strings.TrimSpace(nm.Team2)
	if t1 == "" || t2 == "" {
		return newError(KindInvalidTeam, "both teams are required")
	}
	if strings.EqualFold(t1, t2) {
		return newError(KindInvalidTeam, "a team cannot play against itself (%s)", t1)
	}
	if !nm.StartTime.After(now) {
		return newError(KindInvalidData, "start time must be in the future")
	}
	if len(nm.PredictionTypes) == 0 {
		return newError(KindInvalidData, "at least one prediction type is required")
	}
	tags := make(map[string]struct{}, len(nm.PredictionTypes))
	for _, pt := range nm.PredictionTypes {
		if strings.TrimSpace(pt.Type) == "" {
			return newError(KindInvalidData, "prediction type tag is required")
		}
		if _, dup := tags[pt.Type]; dup {
			return newError(KindInvalidData, "prediction type %q declared twice", pt.Type)
		}
		tags[pt.Type] = struct{}{}
		if len(pt.Options) < 2 {
			return newError(KindInvalidData, "prediction type %q needs at least 2 options", pt.Type)
		}
		opts := make(map[string]struct{}, len(pt.Options))
		for _, o := range pt.Options {
			if o == "" {
				return newError(KindInvalidData, "prediction type %q has an empty option", pt.Type)
			}
			if _, dup := opts[o]; dup {
				return newError(KindInvalidData, "prediction type %q repeats option %q", pt.Type, o)
			}
			opts[o] = struct{}{}
		}
	}
	return nil
}

// CreateMatch cadastra uma partida upcoming com pools zerados.
func (s *Service) CreateMatch(ctx context.Context, nm NewMatch) (*Match, error) {
	now := s.now()
	if err := validateNewMatch(nm, now); err != nil {
		s.observe("create match", err, zap.String("matchId", nm.ID))
		return nil, err
	}

	m := &Match{
		ID:        nm.ID,
		Game:      nm.Game,
		Team1:     strings.TrimSpace(nm.Team1),
		Team2:     strings.TrimSpace(nm.Team2),
		StartTime: nm.StartTime.UTC(),
		Status:    StatusUpcoming,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, pt := range nm.PredictionTypes {
		m.PredictionTypes = append(m.PredictionTypes, PredictionType{
			Type:    pt.Type,
			Options: append([]string(nil), pt.Options...),
		})
	}

	if err := s.store.InsertMatch(ctx, m); err != nil {
		if errors.Is(err, ErrMatchExists) {
			err = wrapError(KindInvalidData, err, "match %s already exists", m.ID)
		}
		s.observe("create match", err, zap.String("matchId", m.ID))
		return nil, err
	}
	s.log.Info("match created", zap.String("matchId", m.ID), zap.Time("startTime", m.StartTime))
	return m, nil
}

// StartDraftPhase move a partida para draft_phase, fechando a janela se ainda estiver aberta.
func (s *Service) StartDraftPhase(ctx context.Context, matchID string) (*Match, error) {
	var out *Match
	err := s.store.WithTx(ctx, func(r Repository) error {
		m, err := r.LockMatch(ctx, matchID)
		if errors.Is(err, ErrMatchNotFound) {
			return wrapError(KindMatchNotFound, err, "match %s not found", matchID)
		}
		if err != nil {
			return err
		}
		if err := m.transition(StatusDraftPhase); err != nil {
			return err
		}
		for i := range m.PredictionTypes {
			m.PredictionTypes[i].Closed = true
		}
		m.UpdatedAt = s.now()
		if err := r.SaveMatch(ctx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		s.observe("start draft phase", err, zap.String("matchId", matchID))
		return nil, err
	}
	s.log.Info("draft phase started", zap.String("matchId", matchID))
	return out, nil
}

// CancelResult traz quantas apostas foram estornadas e o total devolvido.
type CancelResult struct {
	RefundedBets   int             `json:"refundedBets"`
	RefundedAmount decimal.Decimal `json:"refundedAmount"`
}

// CancelMatch cancela a partida e devolve o TotalBet de cada aposta na mesma transação.
// As predições continuam pending e sem recompensa.
func (s *Service) CancelMatch(ctx context.Context, matchID string) (CancelResult, error) {
	res := CancelResult{RefundedAmount: decimal.Zero}
	err := s.store.WithTx(ctx, func(r Repository) error {
		m, err := r.LockMatch(ctx, matchID)
		if errors.Is(err, ErrMatchNotFound) {
			return wrapError(KindMatchNotFound, err, "match %s not found", matchID)
		}
		if err != nil {
			return err
		}
		if err := m.transition(StatusCancelled); err != nil {
			return err
		}
		for i := range m.PredictionTypes {
			m.PredictionTypes[i].Closed = true
		}
		m.UpdatedAt = s.now()
		if err := r.SaveMatch(ctx, m); err != nil {
			return err
		}

		bets, err := r.ListBetsByMatch(ctx, matchID)
		if err != nil {
			return err
		}
		for _, b := range bets {
			amt := decimal.NewFromInt(b.TotalBet)
			if err := r.CreditAccount(ctx, b.UserID, amt, "refund:"+b.ID); err != nil {
				return fmt.Errorf("refund bet %s: %w", b.ID, err)
			}
			res.RefundedBets++
			res.RefundedAmount = res.RefundedAmount.Add(amt)
		}
		return nil
	})
	if err != nil {
		s.observe("cancel match", err, zap.String("matchId", matchID))
		return CancelResult{}, err
	}
	s.log.Info("match cancelled",
		zap.String("matchId", matchID),
		zap.Int("refundedBets", res.RefundedBets),
		zap.String("refundedAmount", res.RefundedAmount.StringFixed(2)),
	)
	return res, nil
}

func (s *Service) GetMatch(ctx context.Context, matchID string) (*Match, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if errors.Is(err, ErrMatchNotFound) {
		return nil, wrapError(KindMatchNotFound, err, "match %s not found", matchID)
	}
	return m, err
}

func (s *Service) GetBet(ctx context.Context, betID string) (*Bet, error) {
	b, err := s.store.GetBet(ctx, betID)
	if errors.Is(err, ErrBetNotFound) {
		return nil, wrapError(KindBetNotFound, err, "bet %s not found", betID)
	}
	return b, err
}

// UserBet devolve a aposta do usuário na partida.
func (s *Service) UserBet(ctx context.Context, userID, matchID string) (*Bet, error) {
	b, err := s.store.FindBet(ctx, userID, matchID)
	if errors.Is(err, ErrBetNotFound) {
		return nil, wrapError(KindBetNotFound, err, "user %s has no bet on match %s", userID, matchID)
	}
	return b, err
}

// QuoteOdds devolve a odd corrente de cada (tipo, opção) da partida.
func (s *Service) QuoteOdds(ctx context.Context, matchID string) (map[string]map[string]decimal.Decimal, error) {
	m, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	bets, err := s.store.ListBetsByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return QuoteMatch(m, bets), nil
}

// Deposit credita saldo na conta do usuário, criando-a se preciso.
func (s *Service) Deposit(ctx context.Context, userID string, amount decimal.Decimal, ref string) (*Account, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, newError(KindInvalidData, "user id is required")
	}
	if !amount.IsPositive() {
		return nil, newError(KindInvalidData, "deposit amount must be positive")
	}
	if !amount.Equal(amount.Truncate(2)) {
		return nil, newError(KindInvalidData, "deposit amount has more than 2 decimal places")
	}

	var acc *Account
	err := s.store.WithTx(ctx, func(r Repository) error {
		if err := r.EnsureAccount(ctx, userID); err != nil {
			return err
		}
		if err := r.CreditAccount(ctx, userID, amount, "deposit:"+ref); err != nil {
			return err
		}
		var err error
		acc, err = r.GetAccount(ctx, userID)
		return err
	})
	if err != nil {
		s.observe("deposit", err, zap.String("userId", userID))
		return nil, err
	}
	s.log.Info("deposit", zap.String("userId", userID), zap.String("amount", amount.StringFixed(2)))
	return acc, nil
}

// GetAccount devolve o saldo; conta inexistente aparece com saldo zero.
func (s *Service) GetAccount(ctx context.Context, userID string) (*Account, error) {
	acc, err := s.store.GetAccount(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return &Account{UserID: userID, Balance: decimal.Zero}, nil
	}
	return acc, err
}
