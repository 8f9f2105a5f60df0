package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/radieske/esports-prediction-poc/internal/market"
)

const betSelect = `
	SELECT b.id, b.user_id, b.match_id, b.total_bet, b.total_reward, b.created_at, b.updated_at,
	       p.type, p.choice, p.bet_amount, p.odds, p.status, p.reward
	FROM bets b
	JOIN predictions p ON p.bet_id = b.id`

// queryBets monta as apostas a partir do join, preservando a ordem das linhas.
func (p *Postgres) queryBets(ctx context.Context, where string, args ...any) ([]market.Bet, error) {
	rows, err := p.q().QueryContext(ctx, betSelect+" "+where+" ORDER BY b.created_at, b.id, p.position", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Bet
	idx := make(map[string]int)
	for rows.Next() {
		var b market.Bet
		var pr market.Prediction
		var status string
		if err := rows.Scan(&b.ID, &b.UserID, &b.MatchID, &b.TotalBet, &b.TotalReward, &b.CreatedAt, &b.UpdatedAt,
			&pr.Type, &pr.Choice, &pr.BetAmount, &pr.Odds, &status, &pr.Reward); err != nil {
			return nil, err
		}
		pr.Status = market.PredictionStatus(status)

		i, ok := idx[b.ID]
		if !ok {
			i = len(out)
			idx[b.ID] = i
			out = append(out, b)
		}
		out[i].Predictions = append(out[i].Predictions, pr)
	}
	return out, rows.Err()
}

func (p *Postgres) GetBet(ctx context.Context, id string) (*market.Bet, error) {
	bets, err := p.queryBets(ctx, "WHERE b.id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(bets) == 0 {
		return nil, market.ErrBetNotFound
	}
	return &bets[0], nil
}

func (p *Postgres) FindBet(ctx context.Context, userID, matchID string) (*market.Bet, error) {
	bets, err := p.queryBets(ctx, "WHERE b.user_id = $1 AND b.match_id = $2", userID, matchID)
	if err != nil {
		return nil, err
	}
	if len(bets) == 0 {
		return nil, market.ErrBetNotFound
	}
	return &bets[0], nil
}

func (p *Postgres) BetExists(ctx context.Context, userID, matchID string) (bool, error) {
	var exists bool
	err := p.q().QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bets WHERE user_id = $1 AND match_id = $2)`, userID, matchID).Scan(&exists)
	return exists, err
}

func (p *Postgres) ListBetsByMatch(ctx context.Context, matchID string) ([]market.Bet, error) {
	return p.queryBets(ctx, "WHERE b.match_id = $1", matchID)
}

// InsertBet grava a aposta e suas predições; a unique (user_id, match_id) vira ErrDuplicateBet.
func (p *Postgres) InsertBet(ctx context.Context, b *market.Bet) error {
	return p.atomic(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO bets (id, user_id, match_id, total_bet, total_reward, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			b.ID, b.UserID, b.MatchID, b.TotalBet, b.TotalReward, b.CreatedAt, b.UpdatedAt)
		if isUniqueViolation(err) {
			return market.ErrDuplicateBet
		}
		if err != nil {
			return err
		}

		for i, pr := range b.Predictions {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO predictions (bet_id, position, type, choice, bet_amount, odds, status, reward)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				b.ID, i, pr.Type, pr.Choice, pr.BetAmount, pr.Odds, string(pr.Status), pr.Reward); err != nil {
				return fmt.Errorf("insert prediction %d of bet %s: %w", i, b.ID, err)
			}
		}
		return nil
	})
}

// SaveBetSettlement só toca status e recompensa; status terminal não é sobrescrito.
func (p *Postgres) SaveBetSettlement(ctx context.Context, b *market.Bet) error {
	return p.atomic(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `UPDATE bets SET total_reward=$2, updated_at=$3 WHERE id=$1`,
			b.ID, b.TotalReward, b.UpdatedAt)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return market.ErrBetNotFound
		}

		for i, pr := range b.Predictions {
			if _, err := q.ExecContext(ctx, `
				UPDATE predictions
				SET status = CASE WHEN status = 'pending' THEN $3 ELSE status END,
				    reward = $4
				WHERE bet_id=$1 AND position=$2`,
				b.ID, i, string(pr.Status), pr.Reward); err != nil {
				return fmt.Errorf("update prediction %d of bet %s: %w", i, b.ID, err)
			}
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
