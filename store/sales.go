package store

import (
	"context"
	"time"

	"github.com/pertamax98/bot-vpn/types"
)

func (s *PostgresStore) AppendSale(ctx context.Context, sale types.SaleRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO reseller_sales (reseller_id, buyer_id, akun_type, username, komisi)
VALUES ($1, $2, $3, $4, $5)
`, sale.ResellerID, sale.BuyerID, sale.Protocol, sale.Username, sale.Commission)
	return err
}

func (s *PostgresStore) TotalCommission(ctx context.Context, resellerID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var total int64
	err := s.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(komisi), 0) FROM reseller_sales WHERE reseller_id = $1
`, resellerID).Scan(&total)
	return total, err
}

func (s *PostgresStore) RecentSales(ctx context.Context, resellerID int64, limit int) ([]types.SaleRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT id, reseller_id, buyer_id, akun_type, username, komisi, created_at
FROM reseller_sales
WHERE reseller_id = $1
ORDER BY created_at DESC
LIMIT $2
`, resellerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []types.SaleRecord
	for rows.Next() {
		var sale types.SaleRecord
		if err := rows.Scan(&sale.ID, &sale.ResellerID, &sale.BuyerID, &sale.Protocol,
			&sale.Username, &sale.Commission, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// ResetAllSales wipes the commission history and drops every reseller back
// to silver. One transaction: a sale recorded concurrently lands either
// fully before or fully after the reset.
func (s *PostgresStore) ResetAllSales(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM reseller_sales`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
UPDATE users SET reseller_level = $1, updated_at = NOW() WHERE role = $2
`, types.TierSilver, types.RoleReseller); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) AppendInvoice(ctx context.Context, inv types.Invoice) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO invoice_log (user_id, username, layanan, akun, hari, harga, komisi)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, inv.UserID, inv.BuyerName, inv.Protocol, inv.Username, inv.Days, inv.Price, inv.Commission)
	return err
}

func (s *PostgresStore) AppendTrialLog(ctx context.Context, l types.TrialLog) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO trial_logs (user_id, username, jenis)
VALUES ($1, $2, $3)
`, l.UserID, l.Username, l.Protocol)
	return err
}

func (s *PostgresStore) AppendUpgradeLog(ctx context.Context, userID int64, amount int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO upgrade_log (user_id, amount) VALUES ($1, $2)
`, userID, amount)
	return err
}

func (s *PostgresStore) MarkActive(ctx context.Context, username string, protocol types.Protocol) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO akun_aktif (username, jenis)
VALUES ($1, $2)
ON CONFLICT (username, jenis) DO UPDATE SET created_at = NOW()
`, username, protocol)
	return err
}

func (s *PostgresStore) IsActive(ctx context.Context, username string, protocol types.Protocol) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var active bool
	err := s.pool.QueryRow(ctx, `
SELECT EXISTS(SELECT 1 FROM akun_aktif WHERE username = $1 AND jenis = $2)
`, username, protocol).Scan(&active)
	return active, err
}
