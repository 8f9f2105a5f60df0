// Package repository guarda as notificações entregues pelo worker.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/radieske/esports-prediction-poc/pkg/contracts/events"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	UserID     string    `json:"userId"`
	MatchID    string    `json:"matchId,omitempty"`
	BetID      string    `json:"betId,omitempty"`
	SentAt     time.Time `json:"sentAt"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type PostgresRepo struct{ db *sql.DB }

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// Save é idempotente por id: reentregas do Kafka não duplicam linhas.
func (r *PostgresRepo) Save(ctx context.Context, ev events.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, kind, user_id, match_id, bet_id, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.Kind, ev.UserID, ev.MatchID, ev.BetID, ev.Ts)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	err := r.db.QueryRowContext(ctx, `
		SELECT id, kind, user_id, match_id, bet_id, sent_at, received_at
		FROM notifications WHERE id = $1`, id).
		Scan(&n.ID, &n.Kind, &n.UserID, &n.MatchID, &n.BetID, &n.SentAt, &n.ReceivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser devolve as mais recentes primeiro.
func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, user_id, match_id, bet_id, sent_at, received_at
		FROM notifications WHERE user_id = $1
		ORDER BY sent_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Kind, &n.UserID, &n.MatchID, &n.BetID, &n.SentAt, &n.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
