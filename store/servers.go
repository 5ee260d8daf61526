package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pertamax98/bot-vpn/types"
)

func (s *PostgresStore) AddServer(ctx context.Context, srv types.Server) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO servers (nama_server, domain, auth, harga, quota, iplimit, batas_create_akun)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`, srv.Name, srv.Domain, srv.AuthSecret, srv.PricePerDay, srv.QuotaGB, srv.IPLimit, srv.AccountLimit).Scan(&id)
	return id, err
}

func (s *PostgresStore) GetServer(ctx context.Context, id int64) (*types.Server, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var srv types.Server
	err := s.pool.QueryRow(ctx, `
SELECT id, nama_server, domain, auth, harga, quota, iplimit, batas_create_akun, total_create_akun
FROM servers
WHERE id = $1
`, id).Scan(&srv.ID, &srv.Name, &srv.Domain, &srv.AuthSecret, &srv.PricePerDay,
		&srv.QuotaGB, &srv.IPLimit, &srv.AccountLimit, &srv.AccountsCreated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServerNotFound
		}
		return nil, err
	}
	return &srv, nil
}

func (s *PostgresStore) ListServers(ctx context.Context) ([]types.Server, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT id, nama_server, domain, auth, harga, quota, iplimit, batas_create_akun, total_create_akun
FROM servers
ORDER BY id
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []types.Server
	for rows.Next() {
		var srv types.Server
		if err := rows.Scan(&srv.ID, &srv.Name, &srv.Domain, &srv.AuthSecret, &srv.PricePerDay,
			&srv.QuotaGB, &srv.IPLimit, &srv.AccountLimit, &srv.AccountsCreated); err != nil {
			return nil, err
		}
		servers = append(servers, srv)
	}
	return servers, rows.Err()
}

func (s *PostgresStore) UpdatePrice(ctx context.Context, id int64, price int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE servers SET harga = $2 WHERE id = $1
`, id, price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrServerNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteServer(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
DELETE FROM servers WHERE id = $1
`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrServerNotFound
	}
	return nil
}

// TryReserveSlot is the guarded counter increment: it only succeeds while
// the server still has capacity, so two concurrent purchases cannot both
// take the last slot.
func (s *PostgresStore) TryReserveSlot(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE servers
SET total_create_akun = total_create_akun + 1
WHERE id = $1 AND total_create_akun < batas_create_akun
`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrServerFull
	}
	return nil
}

func (s *PostgresStore) ReleaseSlot(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
UPDATE servers
SET total_create_akun = total_create_akun - 1
WHERE id = $1 AND total_create_akun > 0
`, id)
	return err
}
