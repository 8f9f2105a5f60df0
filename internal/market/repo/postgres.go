// Package repo implementa market.Store sobre Postgres.
package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/radieske/esports-prediction-poc/internal/market"
)

// querier é o que *sql.DB e *sql.Tx têm em comum.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres implementa market.Store. Dentro de WithTx todas as chamadas usam a mesma *sql.Tx.
type Postgres struct {
	db *sql.DB
	tx *sql.Tx
}

var _ market.Store = (*Postgres)(nil)

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) q() querier {
	if p.tx != nil {
		return p.tx
	}
	return p.db
}

// WithTx abre a transação, roda fn e faz commit; qualquer erro faz rollback.
func (p *Postgres) WithTx(ctx context.Context, fn func(r market.Repository) error) error {
	if p.tx != nil {
		return fn(p)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&Postgres{db: p.db, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// atomic roda fn numa transação própria quando ainda não há uma aberta.
func (p *Postgres) atomic(ctx context.Context, fn func(q querier) error) error {
	if p.tx != nil {
		return fn(p.tx)
	}
	return p.WithTx(ctx, func(r market.Repository) error {
		return fn(r.(*Postgres).tx)
	})
}

const matchColumns = `id, game, team1, team2, start_time, status, draft_results,
	draft_completed, draft_completed_at, rewards_distributed, created_at, updated_at`

func scanMatch(row interface{ Scan(...any) error }) (*market.Match, error) {
	var (
		m           market.Match
		status      string
		results     []byte
		completedAt sql.NullTime
	)
	if err := row.Scan(&m.ID, &m.Game, &m.Team1, &m.Team2, &m.StartTime, &status, &results,
		&m.DraftOutcome.Completed, &completedAt, &m.RewardsDistributed, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Status = market.MatchStatus(status)
	if len(results) > 0 {
		if err := json.Unmarshal(results, &m.DraftOutcome.Results); err != nil {
			return nil, fmt.Errorf("decode draft results of %s: %w", m.ID, err)
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		m.DraftOutcome.CompletedAt = &t
	}
	return &m, nil
}

func (p *Postgres) getMatch(ctx context.Context, id string, lock bool) (*market.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	m, err := scanMatch(p.q().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, market.ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	types, err := p.loadTypes(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	m.PredictionTypes = types[id]
	return m, nil
}

func (p *Postgres) GetMatch(ctx context.Context, id string) (*market.Match, error) {
	return p.getMatch(ctx, id, false)
}

// LockMatch usa SELECT ... FOR UPDATE; fora de WithTx o lock dura só a consulta.
func (p *Postgres) LockMatch(ctx context.Context, id string) (*market.Match, error) {
	return p.getMatch(ctx, id, true)
}

func (p *Postgres) loadTypes(ctx context.Context, matchIDs []string) (map[string][]market.PredictionType, error) {
	rows, err := p.q().QueryContext(ctx, `
		SELECT match_id, type, options, reward_pool, bets_count, closed
		FROM prediction_types
		WHERE match_id = ANY($1)
		ORDER BY match_id, position`, pq.Array(matchIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]market.PredictionType, len(matchIDs))
	for rows.Next() {
		var matchID string
		var pt market.PredictionType
		if err := rows.Scan(&matchID, &pt.Type, pq.Array(&pt.Options), &pt.RewardPool, &pt.BetsCount, &pt.Closed); err != nil {
			return nil, err
		}
		out[matchID] = append(out[matchID], pt)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertMatch(ctx context.Context, m *market.Match) error {
	return p.atomic(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `
			INSERT INTO matches (id, game, team1, team2, start_time, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (id) DO NOTHING`,
			m.ID, m.Game, m.Team1, m.Team2, m.StartTime, string(m.Status), m.CreatedAt, m.UpdatedAt)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return market.ErrMatchExists
		}

		for i, pt := range m.PredictionTypes {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO prediction_types (match_id, type, position, options, reward_pool, bets_count, closed)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				m.ID, pt.Type, i, pq.Array(pt.Options), pt.RewardPool, pt.BetsCount, pt.Closed); err != nil {
				return fmt.Errorf("insert prediction type %s: %w", pt.Type, err)
			}
		}
		return nil
	})
}

// SaveMatch grava status, resultado e acumuladores. Os acumuladores nunca diminuem
// e closed nunca volta para false, mesmo que o chamador mande valores menores.
func (p *Postgres) SaveMatch(ctx context.Context, m *market.Match) error {
	var results any
	if m.DraftOutcome.Completed {
		b, err := json.Marshal(m.DraftOutcome.Results)
		if err != nil {
			return err
		}
		results = b
	}
	return p.atomic(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `
			UPDATE matches
			SET status=$2, draft_results=$3, draft_completed=$4, draft_completed_at=$5,
			    rewards_distributed=$6, updated_at=$7
			WHERE id=$1`,
			m.ID, string(m.Status), results, m.DraftOutcome.Completed, m.DraftOutcome.CompletedAt,
			m.RewardsDistributed, m.UpdatedAt)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return market.ErrMatchNotFound
		}

		for _, pt := range m.PredictionTypes {
			if _, err := q.ExecContext(ctx, `
				UPDATE prediction_types
				SET reward_pool = GREATEST(reward_pool, $3),
				    bets_count  = GREATEST(bets_count, $4),
				    closed      = closed OR $5
				WHERE match_id=$1 AND type=$2`,
				m.ID, pt.Type, pt.RewardPool, pt.BetsCount, pt.Closed); err != nil {
				return fmt.Errorf("update prediction type %s: %w", pt.Type, err)
			}
		}
		return nil
	})
}

func (p *Postgres) ListUpcomingStartingBefore(ctx context.Context, t time.Time) ([]market.Match, error) {
	rows, err := p.q().QueryContext(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE status = $1 AND start_time <= $2
		ORDER BY start_time`, string(market.StatusUpcoming), t)
	if err != nil {
		return nil, err
	}
	var out []market.Match
	var ids []string
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *m)
		ids = append(ids, m.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	types, err := p.loadTypes(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].PredictionTypes = types[out[i].ID]
	}
	return out, nil
}
