package market

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type OptionStats struct {
	Choice     string          `json:"choice"`
	BetsCount  int             `json:"betsCount"`
	Amount     int64           `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

type TypeStats struct {
	Type         string        `json:"type"`
	TotalBets    int           `json:"totalBets"`
	TotalAmount  int64         `json:"totalAmount"`
	Participants int           `json:"participants"`
	Options      []OptionStats `json:"options"`
}

type MatchStats struct {
	MatchID     string      `json:"matchId"`
	Status      MatchStatus `json:"status"`
	TotalBets   int         `json:"totalBets"`
	TotalAmount int64       `json:"totalAmount"`
	Types       []TypeStats `json:"types"`
}

var hundred = decimal.NewFromInt(100)

// BuildStats agrega as apostas por tipo e opção. Opções sem aposta aparecem zeradas;
// escolhas fora da lista de opções (não deveriam existir) entram no fim.
func BuildStats(m *Match, bets []Bet) MatchStats {
	out := MatchStats{MatchID: m.ID, Status: m.Status, TotalBets: len(bets)}

	for _, pt := range m.PredictionTypes {
		ts := TypeStats{Type: pt.Type}
		idx := make(map[string]int, len(pt.Options))
		for _, o := range pt.Options {
			idx[o] = len(ts.Options)
			ts.Options = append(ts.Options, OptionStats{Choice: o})
		}

		users := make(map[string]struct{})
		for _, b := range bets {
			for _, p := range b.Predictions {
				if p.Type != pt.Type {
					continue
				}
				i, ok := idx[p.Choice]
				if !ok {
					i = len(ts.Options)
					idx[p.Choice] = i
					ts.Options = append(ts.Options, OptionStats{Choice: p.Choice})
				}
				ts.Options[i].BetsCount++
				ts.Options[i].Amount += p.BetAmount
				ts.TotalBets++
				ts.TotalAmount += p.BetAmount
				users[b.UserID] = struct{}{}
			}
		}
		ts.Participants = len(users)

		for i := range ts.Options {
			ts.Options[i].Percentage = decimal.Zero
			if ts.TotalAmount > 0 {
				ts.Options[i].Percentage = decimal.NewFromInt(ts.Options[i].Amount).
					Mul(hundred).
					Div(decimal.NewFromInt(ts.TotalAmount)).
					Round(2)
			}
		}
		out.TotalAmount += ts.TotalAmount
		out.Types = append(out.Types, ts)
	}
	return out
}

// MatchStats calcula as estatísticas na hora; nada é persistido.
func (s *Service) MatchStats(ctx context.Context, matchID string) (MatchStats, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if errors.Is(err, ErrMatchNotFound) {
		return MatchStats{}, wrapError(KindMatchNotFound, err, "match %s not found", matchID)
	}
	if err != nil {
		return MatchStats{}, err
	}
	bets, err := s.store.ListBetsByMatch(ctx, matchID)
	if err != nil {
		return MatchStats{}, err
	}
	return BuildStats(m, bets), nil
}
