package market

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// CloseIfDue fecha a janela de apostas da partida quando faltam BettingCutoff ou menos
// para o início: todos os tipos ficam closed e upcoming vira live.
// Devolve true só se algo mudou; uma segunda chamada não altera nada e devolve false.
func CloseIfDue(m *Match, now time.Time) bool {
	if m.StartTime.Sub(now) > BettingCutoff {
		return false
	}

	changed := false
	for i := range m.PredictionTypes {
		if !m.PredictionTypes[i].Closed {
			m.PredictionTypes[i].Closed = true
			changed = true
		}
	}
	if m.Status == StatusUpcoming {
		m.Status = StatusLive
		changed = true
	}
	return changed
}

// CloseMatchIfDue aplica CloseIfDue na partida travada e persiste se houve mudança.
func (s *Service) CloseMatchIfDue(ctx context.Context, matchID string, now time.Time) (bool, error) {
	closed := false
	err := s.store.WithTx(ctx, func(r Repository) error {
		m, err := r.LockMatch(ctx, matchID)
		if errors.Is(err, ErrMatchNotFound) {
			return wrapError(KindMatchNotFound, err, "match %s not found", matchID)
		}
		if err != nil {
			return err
		}
		if !CloseIfDue(m, now) {
			return nil
		}
		m.UpdatedAt = now
		if err := r.SaveMatch(ctx, m); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if closed && s.hooks.OnClosed != nil {
		s.hooks.OnClosed(matchID)
	}
	return closed, nil
}

// SweepReport resume um tick do fechamento de apostas.
type SweepReport struct {
	Candidates   int `json:"candidates"`
	Closed       int `json:"closed"`
	Failed       int `json:"failed"`
	Notified     int `json:"notified"`
	NotifyFailed int `json:"notifyFailed"`
}

// Sweep busca partidas upcoming que começam em até BettingCutoff a partir de now e fecha
// cada uma na sua própria transação. Falha numa partida não interrompe as demais.
// Depois de fechar, avisa cada apostador da partida (best-effort).
func (s *Service) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	var rep SweepReport

	matches, err := s.store.ListUpcomingStartingBefore(ctx, now.Add(BettingCutoff))
	if err != nil {
		return rep, err
	}
	rep.Candidates = len(matches)

	for _, m := range matches {
		closed, err := s.CloseMatchIfDue(ctx, m.ID, now)
		if err != nil {
			rep.Failed++
			s.log.Error("close match failed", zap.String("matchId", m.ID), zap.Error(err))
			continue
		}
		if !closed {
			continue
		}
		rep.Closed++
		s.log.Info("betting closed", zap.String("matchId", m.ID), zap.Time("startTime", m.StartTime))

		sent, failed := s.notifyMatchStarting(ctx, m.ID)
		rep.Notified += sent
		rep.NotifyFailed += failed
	}

	return rep, nil
}

func (s *Service) notifyMatchStarting(ctx context.Context, matchID string) (sent, failed int) {
	bets, err := s.store.ListBetsByMatch(ctx, matchID)
	if err != nil {
		s.notifyFailed("match_starting_list", err, zap.String("matchId", matchID))
		return 0, 1
	}
	for _, b := range bets {
		if err := s.notifier.NotifyMatchStarting(ctx, b.UserID, matchID); err != nil {
			failed++
			s.notifyFailed("match_starting", err, zap.String("userId", b.UserID), zap.String("matchId", matchID))
			continue
		}
		sent++
	}
	return sent, failed
}
