package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TypeReward resume a distribuição de um tipo de predição.
type TypeReward struct {
	Type              string          `json:"type"`
	RewardPool        int64           `json:"rewardPool"`
	Distributed       decimal.Decimal `json:"distributed"`
	Winners           int             `json:"winners"`
	UndistributedPool int64           `json:"undistributedPool"`
}

type RewardSummary struct {
	TotalRewardsDistributed decimal.Decimal `json:"totalRewardsDistributed"`
	UsersRewarded           int             `json:"usersRewarded"`
	Types                   []TypeReward    `json:"types"`
	NotificationsSent       int             `json:"notificationsSent"`
	NotificationsFailed     int             `json:"notificationsFailed"`
}

// SplitPool divide pool×0.95 entre as stakes vencedoras, proporcional à stake.
// Cada parte é truncada em 2 casas, então a soma nunca passa do distribuível.
func SplitPool(pool int64, stakes []int64) []decimal.Decimal {
	var total int64
	for _, st := range stakes {
		total += st
	}
	out := make([]decimal.Decimal, len(stakes))
	if total == 0 {
		for i := range out {
			out[i] = decimal.Zero
		}
		return out
	}
	distributable := decimal.NewFromInt(pool).Mul(payoutRate)
	t := decimal.NewFromInt(total)
	for i, st := range stakes {
		out[i] = decimal.NewFromInt(st).Mul(distributable).Div(t).Truncate(2)
	}
	return out
}

type winnerRef struct {
	bet  int
	pred int
}

// DistributeRewards paga os vencedores de cada tipo da partida. Tipo sem vencedor
// fica com o pool na casa e aparece em UndistributedPool. Só pode rodar uma vez.
// As partes são truncadas (não arredondadas) em 2 casas via SplitPool, para que a soma
// por tipo nunca passe de pool×0.95.
func (s *Service) DistributeRewards(ctx context.Context, matchID string) (RewardSummary, error) {
	sum := RewardSummary{TotalRewardsDistributed: decimal.Zero}
	var bets []Bet
	var paid []decimal.Decimal

	err := s.store.WithTx(ctx, func(r Repository) error {
		m, err := r.LockMatch(ctx, matchID)
		if errors.Is(err, ErrMatchNotFound) {
			return wrapError(KindMatchNotFound, err, "match %s not found", matchID)
		}
		if err != nil {
			return err
		}
		if !m.DraftOutcome.Completed {
			return newError(KindResultsNotCompleted, "draft results for match %s are not completed", matchID)
		}
		if m.RewardsDistributed {
			return newError(KindAlreadyDistributed, "rewards for match %s were already distributed", matchID)
		}

		bets, err = r.ListBetsByMatch(ctx, matchID)
		if err != nil {
			return err
		}

		now := s.now()
		dirty := make(map[int]bool)
		users := make(map[string]struct{})
		total := decimal.Zero
		types := make([]TypeReward, 0, len(m.PredictionTypes))
		paid = paid[:0]

		for _, pt := range m.PredictionTypes {
			tr := TypeReward{Type: pt.Type, RewardPool: pt.RewardPool, Distributed: decimal.Zero}

			var refs []winnerRef
			var stakes []int64
			for i := range bets {
				for j, p := range bets[i].Predictions {
					if p.Type == pt.Type && p.Status == PredictionWon {
						refs = append(refs, winnerRef{bet: i, pred: j})
						stakes = append(stakes, p.BetAmount)
					}
				}
			}
			if len(refs) == 0 {
				tr.UndistributedPool = pt.RewardPool
				types = append(types, tr)
				continue
			}

			for k, reward := range SplitPool(pt.RewardPool, stakes) {
				b := &bets[refs[k].bet]
				p := &b.Predictions[refs[k].pred]
				p.Reward = reward
				b.TotalReward = b.TotalReward.Add(reward)
				b.UpdatedAt = now
				dirty[refs[k].bet] = true

				if reward.IsPositive() {
					ref := fmt.Sprintf("reward:%s:%s", b.ID, p.Type)
					if err := r.CreditAccount(ctx, b.UserID, reward, ref); err != nil {
						return fmt.Errorf("credit %s: %w", b.UserID, err)
					}
					paid = append(paid, reward)
				}
				users[b.UserID] = struct{}{}
				tr.Distributed = tr.Distributed.Add(reward)
				tr.Winners++
			}
			total = total.Add(tr.Distributed)
			types = append(types, tr)
		}

		for i := range bets {
			if !dirty[i] {
				continue
			}
			if err := r.SaveBetSettlement(ctx, &bets[i]); err != nil {
				return err
			}
		}

		m.RewardsDistributed = true
		m.UpdatedAt = now
		if err := r.SaveMatch(ctx, m); err != nil {
			return err
		}

		sum.TotalRewardsDistributed = total
		sum.UsersRewarded = len(users)
		sum.Types = types
		return nil
	})
	if err != nil {
		s.observe("distribute rewards", err, zap.String("matchId", matchID))
		return RewardSummary{}, err
	}

	if s.hooks.OnRewardPaid != nil {
		for _, amt := range paid {
			s.hooks.OnRewardPaid(amt)
		}
	}

	for _, b := range bets {
		if err := s.notifier.NotifyPredictionResult(ctx, b.UserID, b.ID); err != nil {
			sum.NotificationsFailed++
			s.notifyFailed("prediction_result", err, zap.String("userId", b.UserID), zap.String("betId", b.ID))
			continue
		}
		sum.NotificationsSent++
	}

	var kept int64
	for _, t := range sum.Types {
		kept += t.UndistributedPool
	}
	s.log.Info("rewards distributed",
		zap.String("matchId", matchID),
		zap.String("total", sum.TotalRewardsDistributed.StringFixed(2)),
		zap.Int("usersRewarded", sum.UsersRewarded),
		zap.Int64("undistributedPool", kept),
	)
	return sum, nil
}
