package dto

import (
	"time"

	"github.com/radieske/esports-prediction-poc/internal/market"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type PredictionResponse struct {
	Type      string `json:"type"`
	Choice    string `json:"choice"`
	BetAmount int64  `json:"betAmount"`
	Odds      string `json:"odds"`
	Status    string `json:"status"`
	Reward    string `json:"reward"`
}

type BetResponse struct {
	ID          string               `json:"id"`
	UserID      string               `json:"userId"`
	MatchID     string               `json:"matchId"`
	Predictions []PredictionResponse `json:"predictions"`
	TotalBet    int64                `json:"totalBet"`
	TotalReward string               `json:"totalReward"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// FromBet formata valores decimais com 2 casas.
func FromBet(b *market.Bet) BetResponse {
	out := BetResponse{
		ID:          b.ID,
		UserID:      b.UserID,
		MatchID:     b.MatchID,
		TotalBet:    b.TotalBet,
		TotalReward: b.TotalReward.StringFixed(2),
		CreatedAt:   b.CreatedAt,
	}
	for _, p := range b.Predictions {
		out.Predictions = append(out.Predictions, PredictionResponse{
			Type:      p.Type,
			Choice:    p.Choice,
			BetAmount: p.BetAmount,
			Odds:      p.Odds.StringFixed(2),
			Status:    string(p.Status),
			Reward:    p.Reward.StringFixed(2),
		})
	}
	return out
}

// OddsResponse é também o valor guardado no cache Redis.
type OddsResponse struct {
	MatchID string                       `json:"matchId"`
	Odds    map[string]map[string]string `json:"odds"` // type -> choice -> odd
	AsOf    time.Time                    `json:"asOf"`
}

type AccountResponse struct {
	UserID  string `json:"userId"`
	Balance string `json:"balance"`
}

func FromAccount(a *market.Account) AccountResponse {
	return AccountResponse{UserID: a.UserID, Balance: a.Balance.StringFixed(2)}
}

type ResultsResponse struct {
	Results market.ResultsSummary `json:"results"`
	Rewards *RewardsResponse      `json:"rewards,omitempty"`
}

type TypeRewardResponse struct {
	Type              string `json:"type"`
	RewardPool        int64  `json:"rewardPool"`
	Distributed       string `json:"distributed"`
	Winners           int    `json:"winners"`
	UndistributedPool int64  `json:"undistributedPool"`
}

type RewardsResponse struct {
	TotalRewardsDistributed string               `json:"totalRewardsDistributed"`
	UsersRewarded           int                  `json:"usersRewarded"`
	Types                   []TypeRewardResponse `json:"types"`
	NotificationsSent       int                  `json:"notificationsSent"`
	NotificationsFailed     int                  `json:"notificationsFailed"`
}

func FromRewards(s market.RewardSummary) RewardsResponse {
	out := RewardsResponse{
		TotalRewardsDistributed: s.TotalRewardsDistributed.StringFixed(2),
		UsersRewarded:           s.UsersRewarded,
		NotificationsSent:       s.NotificationsSent,
		NotificationsFailed:     s.NotificationsFailed,
	}
	for _, t := range s.Types {
		out.Types = append(out.Types, TypeRewardResponse{
			Type:              t.Type,
			RewardPool:        t.RewardPool,
			Distributed:       t.Distributed.StringFixed(2),
			Winners:           t.Winners,
			UndistributedPool: t.UndistributedPool,
		})
	}
	return out
}

type CancelResponse struct {
	MatchID        string `json:"matchId"`
	RefundedBets   int    `json:"refundedBets"`
	RefundedAmount string `json:"refundedAmount"`
}
