package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pertamax98/bot-vpn/types"
)

func (s *PostgresStore) UpsertUser(ctx context.Context, userID int64, username string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (user_id, username)
VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET
  username = EXCLUDED.username,
  updated_at = NOW();
`, userID, strings.TrimSpace(username))
	return err
}

func (s *PostgresStore) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var u types.User
	err := s.pool.QueryRow(ctx, `
SELECT user_id, username, saldo, role, reseller_level, trial_count_today, last_trial_date, created_at, updated_at
FROM users
WHERE user_id = $1
`, userID).Scan(&u.UserID, &u.Username, &u.Balance, &u.Role, &u.Tier,
		&u.TrialCountToday, &u.LastTrialDate, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetBalance reports 0 for accounts that do not exist yet; the first
// interaction upserts the row.
func (s *PostgresStore) GetBalance(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var balance int64
	err := s.pool.QueryRow(ctx, `
SELECT saldo FROM users WHERE user_id = $1
`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

// AdjustBalance applies delta under a row lock. A delta that would drive the
// balance negative fails with ErrInsufficientFunds and changes nothing.
func (s *PostgresStore) AdjustBalance(ctx context.Context, userID int64, delta int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	newBalance, err := adjustBalanceTx(ctx, tx, userID, delta)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// adjustBalanceTx is the shared debit/credit primitive; callers that need
// the adjustment atomic with other writes run it inside their own
// transaction.
func adjustBalanceTx(ctx context.Context, tx pgx.Tx, userID int64, delta int64) (int64, error) {
	_, err := tx.Exec(ctx, `
INSERT INTO users (user_id) VALUES ($1)
ON CONFLICT (user_id) DO NOTHING
`, userID)
	if err != nil {
		return 0, err
	}

	var balance int64
	err = tx.QueryRow(ctx, `
SELECT saldo FROM users WHERE user_id = $1 FOR UPDATE
`, userID).Scan(&balance)
	if err != nil {
		return 0, err
	}

	if balance+delta < 0 {
		return 0, ErrInsufficientFunds
	}
	balance += delta

	_, err = tx.Exec(ctx, `
UPDATE users SET saldo = $2, updated_at = NOW() WHERE user_id = $1
`, userID, balance)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *PostgresStore) SetBalance(ctx context.Context, userID int64, value int64) error {
	if value < 0 {
		return ErrInsufficientFunds
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (user_id, saldo) VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET saldo = EXCLUDED.saldo, updated_at = NOW()
`, userID, value)
	return err
}

func (s *PostgresStore) SetRole(ctx context.Context, userID int64, role types.Role, tier types.Tier) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
UPDATE users SET role = $2, reseller_level = $3, updated_at = NOW() WHERE user_id = $1
`, userID, role, tier)
	return err
}

func (s *PostgresStore) SetTier(ctx context.Context, userID int64, tier types.Tier) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
UPDATE users SET reseller_level = $2, updated_at = NOW() WHERE user_id = $1
`, userID, tier)
	return err
}

func (s *PostgresStore) ResetTrialCount(ctx context.Context, userID int64, today string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
UPDATE users SET trial_count_today = 0, last_trial_date = $2, updated_at = NOW() WHERE user_id = $1
`, userID, today)
	return err
}

func (s *PostgresStore) IncrementTrialCount(ctx context.Context, userID int64, today string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
UPDATE users SET trial_count_today = trial_count_today + 1, last_trial_date = $2, updated_at = NOW() WHERE user_id = $1
`, userID, today)
	return err
}
