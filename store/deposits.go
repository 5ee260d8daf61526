package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pertamax98/bot-vpn/types"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) InsertPending(ctx context.Context, d types.PendingDeposit) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO pending_deposits (unique_code, user_id, original_amount, amount, qr_message_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, d.Code, d.UserID, d.Amount, d.ProviderAmount, d.QRMessageID, d.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAmountTaken
		}
		return err
	}
	return nil
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]types.PendingDeposit, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT unique_code, user_id, original_amount, amount, qr_message_id, created_at
FROM pending_deposits
ORDER BY created_at
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deposits []types.PendingDeposit
	for rows.Next() {
		var d types.PendingDeposit
		if err := rows.Scan(&d.Code, &d.UserID, &d.Amount, &d.ProviderAmount, &d.QRMessageID, &d.CreatedAt); err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}

func (s *PostgresStore) UpdateQRMessageID(ctx context.Context, code string, messageID int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
UPDATE pending_deposits SET qr_message_id = $2 WHERE unique_code = $1
`, code, messageID)
	return err
}

func (s *PostgresStore) DeletePending(ctx context.Context, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
DELETE FROM pending_deposits WHERE unique_code = $1
`, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CreditDeposit is the commit point of a confirmed payment. The provider
// reference insert and the pending-row delete both guard against rerunning
// the same confirmation: whichever is gone first turns the whole call into
// a no-op, and everything rides one transaction.
func (s *PostgresStore) CreditDeposit(ctx context.Context, d types.PendingDeposit, reference string) (types.CreditOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.CreditOutcome{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
INSERT INTO processed_references (reference, amount)
VALUES ($1, $2)
ON CONFLICT (reference) DO NOTHING
`, reference, d.ProviderAmount)
	if err != nil {
		return types.CreditOutcome{}, err
	}
	if tag.RowsAffected() == 0 {
		return types.CreditOutcome{Credited: false}, nil
	}

	tag, err = tx.Exec(ctx, `
DELETE FROM pending_deposits WHERE unique_code = $1
`, d.Code)
	if err != nil {
		return types.CreditOutcome{}, err
	}
	if tag.RowsAffected() == 0 {
		return types.CreditOutcome{Credited: false}, nil
	}

	// The user is credited the requested amount; the surcharge only served
	// to disambiguate the payer.
	newBalance, err := adjustBalanceTx(ctx, tx, d.UserID, d.Amount)
	if err != nil {
		return types.CreditOutcome{}, err
	}

	var username string
	err = tx.QueryRow(ctx, `
SELECT username FROM users WHERE user_id = $1
`, d.UserID).Scan(&username)
	if err != nil {
		username = ""
	}

	_, err = tx.Exec(ctx, `
INSERT INTO topup_log (user_id, username, amount, reference)
VALUES ($1, $2, $3, $4)
`, d.UserID, username, d.Amount, reference)
	if err != nil {
		return types.CreditOutcome{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.CreditOutcome{}, err
	}
	return types.CreditOutcome{Credited: true, NewBalance: newBalance}, nil
}
