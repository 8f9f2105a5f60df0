package market

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlaceBet valida a aposta, congela as odds de cada predição e grava aposta, débito
// e incremento dos pools numa única transação. A partida fica travada desde a validação
// até o commit, então a odd calculada reflete o pool no momento da admissão.
func (s *Service) PlaceBet(ctx context.Context, userID string, req BetRequest) (*Bet, error) {
	var placed *Bet

	err := s.store.WithTx(ctx, func(r Repository) error {
		adm, err := NewValidator(r, s.now).Validate(ctx, userID, req.MatchID, req.Predictions)
		if err != nil {
			return err
		}

		bets, err := r.ListBetsByMatch(ctx, req.MatchID)
		if err != nil {
			return err
		}

		now := s.now()
		bet := &Bet{
			ID:          uuid.NewString(),
			UserID:      userID,
			MatchID:     req.MatchID,
			TotalBet:    adm.TotalBet,
			TotalReward: decimal.Zero,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		// todas as odds saem do mesmo snapshot, antes de mexer nos pools
		for _, p := range req.Predictions {
			bet.Predictions = append(bet.Predictions, Prediction{
				Type:      p.Type,
				Choice:    p.Choice,
				BetAmount: p.BetAmount,
				Odds:      ComputeOdds(adm.Match, bets, p.Type, p.Choice),
				Status:    PredictionPending,
				Reward:    decimal.Zero,
			})
		}

		if err := r.InsertBet(ctx, bet); err != nil {
			if errors.Is(err, ErrDuplicateBet) {
				return wrapError(KindDuplicateBet, err, "user %s already has a bet on match %s", userID, req.MatchID)
			}
			return err
		}

		if err := r.DebitAccount(ctx, userID, decimal.NewFromInt(adm.TotalBet), "bet:"+bet.ID); err != nil {
			if errors.Is(err, ErrInsufficientFunds) {
				return wrapError(KindInsufficientFunds, err, "total bet %d exceeds balance", adm.TotalBet)
			}
			return err
		}

		for _, p := range bet.Predictions {
			pt := adm.Match.PredictionType(p.Type)
			pt.RewardPool += p.BetAmount
			pt.BetsCount++
		}
		adm.Match.UpdatedAt = now
		if err := r.SaveMatch(ctx, adm.Match); err != nil {
			return err
		}

		placed = bet
		return nil
	})
	if err != nil {
		s.observe("place bet", err, zap.String("userId", userID), zap.String("matchId", req.MatchID))
		return nil, err
	}

	if s.hooks.OnPlaced != nil {
		s.hooks.OnPlaced(placed)
	}
	s.log.Info("bet placed",
		zap.String("betId", placed.ID),
		zap.String("userId", userID),
		zap.String("matchId", req.MatchID),
		zap.Int64("totalBet", placed.TotalBet),
	)
	return placed, nil
}
