// Package simulator gera partidas de draft com apostadores aleatórios e conduz
// o ciclo completo (criação, apostas, draft, resultado) pela API REST.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/internal/prediction-service/dto"
)

// Catálogo fixo de confrontos e heróis usados nas partidas simuladas
var (
	fixtures = [][2]string{
		{"Team Liquid", "Gaimin Gladiators"},
		{"Team Spirit", "Tundra Esports"},
		{"BetBoom Team", "Team Falcons"},
		{"Xtreme Gaming", "Shopify Rebellion"},
	}
	heroes = []string{"Io", "Pudge", "Invoker", "Mars", "Tiny", "Lina", "Rubick", "Magnus"}
)

type API interface {
	CreateMatch(ctx context.Context, nm market.NewMatch) error
	Deposit(ctx context.Context, userID, amount, ref string) (dto.AccountResponse, error)
	PlaceBet(ctx context.Context, userID string, req dto.PlaceBetRequest) (dto.BetResponse, error)
	StartDraft(ctx context.Context, matchID string) error
	SubmitResults(ctx context.Context, matchID string, r market.DraftResults) (dto.ResultsResponse, error)
}

// Report resume uma rodada simulada.
type Report struct {
	MatchID  string
	Placed   int
	Rejected int
	Results  market.ResultsSummary
	Rewards  *dto.RewardsResponse
}

// Scenario conduz uma partida por rodada. OnBet é opcional (métricas).
type Scenario struct {
	Log     *zap.Logger
	API     API
	Rand    *rand.Rand
	Users   int
	Deposit string // saldo depositado por usuário antes de apostar

	OnBet func(accepted bool)
}

// Round cria a partida, faz cada usuário apostar, inicia o draft e envia um resultado sorteado.
func (s *Scenario) Round(ctx context.Context, seq int, now time.Time) (Report, error) {
	fx := fixtures[seq%len(fixtures)]
	matchID := fmt.Sprintf("SIM_%04d", seq)
	rep := Report{MatchID: matchID}

	nm := market.NewMatch{
		ID:        matchID,
		Game:      "dota2",
		Team1:     fx[0],
		Team2:     fx[1],
		StartTime: now.Add(time.Hour),
		PredictionTypes: []market.NewPredictionType{
			{Type: "first_ban_team1", Options: heroes[:4]},
			{Type: "first_pick_team2", Options: heroes[4:]},
			{Type: "most_banned", Options: heroes},
			{Type: "pick_team1_core", Options: heroes},
		},
	}
	if err := s.API.CreateMatch(ctx, nm); err != nil {
		return rep, fmt.Errorf("create match %s: %w", matchID, err)
	}

	for u := 0; u < s.Users; u++ {
		userID := fmt.Sprintf("sim-user-%02d", u)
		if _, err := s.API.Deposit(ctx, userID, s.Deposit, matchID+":"+userID); err != nil {
			return rep, fmt.Errorf("deposit %s: %w", userID, err)
		}

		_, err := s.API.PlaceBet(ctx, userID, s.randomBet(matchID, nm.PredictionTypes))
		var apiErr *APIError
		switch {
		case err == nil:
			rep.Placed++
		case errors.As(err, &apiErr):
			// rejeições de negócio fazem parte da simulação
			rep.Rejected++
			s.Log.Debug("bet rejected", zap.String("userId", userID), zap.String("code", apiErr.Code))
		default:
			return rep, err
		}
		if s.OnBet != nil {
			s.OnBet(err == nil)
		}
	}

	if err := s.API.StartDraft(ctx, matchID); err != nil {
		return rep, fmt.Errorf("start draft %s: %w", matchID, err)
	}

	res, err := s.API.SubmitResults(ctx, matchID, s.randomResults())
	if err != nil {
		return rep, fmt.Errorf("submit results %s: %w", matchID, err)
	}
	rep.Results = res.Results
	rep.Rewards = res.Rewards
	return rep, nil
}

// randomBet escolhe de 1 a todos os tipos, com valores entre 10 e 200.
func (s *Scenario) randomBet(matchID string, types []market.NewPredictionType) dto.PlaceBetRequest {
	req := dto.PlaceBetRequest{MatchID: matchID}
	n := 1 + s.Rand.Intn(len(types))
	for _, i := range s.Rand.Perm(len(types))[:n] {
		pt := types[i]
		req.Predictions = append(req.Predictions, market.PredictionRequest{
			Type:      pt.Type,
			Choice:    pt.Options[s.Rand.Intn(len(pt.Options))],
			BetAmount: int64(10 + s.Rand.Intn(191)),
		})
	}
	return req
}

func (s *Scenario) randomResults() market.DraftResults {
	pick := func(opts []string) string { return opts[s.Rand.Intn(len(opts))] }
	order := s.Rand.Perm(len(heroes))
	team1 := []string{heroes[order[0]], heroes[order[1]], heroes[order[2]]}
	return market.DraftResults{
		FirstBan:   market.TeamPair{Team1: pick(heroes[:4]), Team2: pick(heroes)},
		FirstPick:  market.TeamPair{Team1: pick(heroes), Team2: pick(heroes[4:])},
		MostBanned: pick(heroes),
		Picks:      market.TeamPicks{Team1: team1},
	}
}
