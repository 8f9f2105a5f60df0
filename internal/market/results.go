package market

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type ResultsSummary struct {
	ProcessedBets int `json:"processedBets"`
	WinningBets   int `json:"winningBets"`
}

// ProcessResults grava o resultado do draft, encerra a partida e resolve toda predição
// pendente pela tabela de regras. Não mexe em saldo: DistributeRewards é chamado depois.
func (s *Service) ProcessResults(ctx context.Context, matchID string, results DraftResults) (ResultsSummary, error) {
	var sum ResultsSummary
	settled := map[PredictionStatus]int{}

	err := s.store.WithTx(ctx, func(r Repository) error {
		m, err := r.LockMatch(ctx, matchID)
		if errors.Is(err, ErrMatchNotFound) {
			return wrapError(KindMatchNotFound, err, "match %s not found", matchID)
		}
		if err != nil {
			return err
		}
		if m.DraftOutcome.Completed {
			return newError(KindInvalidMatchStatus, "results for match %s were already submitted", matchID)
		}
		if err := m.transition(StatusCompleted); err != nil {
			return err
		}

		now := s.now()
		m.DraftOutcome = DraftOutcome{Results: results, Completed: true, CompletedAt: &now}
		m.UpdatedAt = now
		if err := r.SaveMatch(ctx, m); err != nil {
			return err
		}

		bets, err := r.ListBetsByMatch(ctx, matchID)
		if err != nil {
			return err
		}
		for i := range bets {
			b := &bets[i]
			touched, won := false, false
			for j := range b.Predictions {
				p := &b.Predictions[j]
				if p.Status != PredictionPending {
					continue
				}
				p.Status = s.rules.Resolve(p.Type, p.Choice, results)
				settled[p.Status]++
				touched = true
				if p.Status == PredictionWon {
					won = true
				}
			}
			if !touched {
				continue
			}
			b.UpdatedAt = now
			if err := r.SaveBetSettlement(ctx, b); err != nil {
				return err
			}
			sum.ProcessedBets++
			if won {
				sum.WinningBets++
			}
		}
		return nil
	})
	if err != nil {
		s.observe("process results", err, zap.String("matchId", matchID))
		return ResultsSummary{}, err
	}

	if s.hooks.OnSettled != nil {
		for st, n := range settled {
			for i := 0; i < n; i++ {
				s.hooks.OnSettled(st)
			}
		}
	}
	s.log.Info("results processed",
		zap.String("matchId", matchID),
		zap.Int("processedBets", sum.ProcessedBets),
		zap.Int("winningBets", sum.WinningBets),
	)
	return sum, nil
}
