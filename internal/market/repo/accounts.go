package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/radieske/esports-prediction-poc/internal/market"
)

func (p *Postgres) GetAccount(ctx context.Context, userID string) (*market.Account, error) {
	acc := market.Account{UserID: userID}
	err := p.q().QueryRowContext(ctx, `SELECT balance FROM accounts WHERE user_id = $1`, userID).Scan(&acc.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, market.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (p *Postgres) EnsureAccount(ctx context.Context, userID string) error {
	_, err := p.q().ExecContext(ctx,
		`INSERT INTO accounts (user_id, balance) VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

// DebitAccount só debita se o saldo cobrir o valor; o movimento vai para o ledger.
func (p *Postgres) DebitAccount(ctx context.Context, userID string, amount decimal.Decimal, ref string) error {
	return p.atomic(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `
			UPDATE accounts SET balance = balance - $2, updated_at = NOW()
			WHERE user_id = $1 AND balance >= $2`, userID, amount)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			var exists bool
			if err := q.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM accounts WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return market.ErrAccountNotFound
			}
			return market.ErrInsufficientFunds
		}
		return insertLedger(ctx, q, userID, "DEBIT", amount, ref)
	})
}

func (p *Postgres) CreditAccount(ctx context.Context, userID string, amount decimal.Decimal, ref string) error {
	return p.atomic(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `
			UPDATE accounts SET balance = balance + $2, updated_at = NOW()
			WHERE user_id = $1`, userID, amount)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return market.ErrAccountNotFound
		}
		return insertLedger(ctx, q, userID, "CREDIT", amount, ref)
	})
}

func insertLedger(ctx context.Context, q querier, userID, op string, amount decimal.Decimal, ref string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO account_ledger (user_id, operation_type, amount, ref) VALUES ($1,$2,$3,$4)`,
		userID, op, amount, ref)
	return err
}
