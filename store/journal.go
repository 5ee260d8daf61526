package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pertamax98/bot-vpn/types"
)

// Charge debits the buyer and records the charged journal row in one
// transaction. Until the row is settled or refunded it marks money taken
// for an account that may never have been delivered.
func (s *PostgresStore) Charge(ctx context.Context, j types.ProvisionJournal) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	newBalance, err := adjustBalanceTx(ctx, tx, j.UserID, -j.Amount)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
INSERT INTO provision_journal (id, user_id, amount, akun_type, username, action, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, j.ID, j.UserID, j.Amount, j.Protocol, j.Username, j.Action, types.JournalCharged)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Refund reverses the debit of a still-charged row. Flipping the status
// first, guarded on it being charged, makes a second Refund of the same row
// a no-op.
func (s *PostgresStore) Refund(ctx context.Context, journalID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var userID, amount int64
	err = tx.QueryRow(ctx, `
UPDATE provision_journal
SET status = $2
WHERE id = $1 AND status = $3
RETURNING user_id, amount
`, journalID, types.JournalRefunded, types.JournalCharged).Scan(&userID, &amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already settled or refunded; nothing to reverse.
			return nil
		}
		return err
	}

	if _, err := adjustBalanceTx(ctx, tx, userID, amount); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Settle(ctx context.Context, journalID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE provision_journal SET status = $2 WHERE id = $1 AND status = $3
`, journalID, types.JournalSettled, types.JournalCharged)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrJournalNotFound
	}
	return nil
}

func (s *PostgresStore) StaleCharged(ctx context.Context, olderThan time.Duration) ([]types.ProvisionJournal, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, amount, akun_type, username, action, status, created_at
FROM provision_journal
WHERE status = $1 AND created_at < $2
ORDER BY created_at
`, types.JournalCharged, time.Now().Add(-olderThan))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.ProvisionJournal
	for rows.Next() {
		var j types.ProvisionJournal
		if err := rows.Scan(&j.ID, &j.UserID, &j.Amount, &j.Protocol, &j.Username,
			&j.Action, &j.Status, &j.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, j)
	}
	return entries, rows.Err()
}
