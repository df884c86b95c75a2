package sqlite

import (
	"context"

	"github.com/govsignin/accountsvc/internal/accounts/store"
)

type frontendSessionsRepo struct {
	db dbtx
}

func (r *frontendSessionsRepo) SetFrontendSession(ctx context.Context, id string, payload []byte, expiresAt int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO frontend_sessions (id, payload, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		id, string(payload), expiresAt,
	)
	return err
}

func (r *frontendSessionsRepo) GetFrontendSession(ctx context.Context, id string) ([]byte, int64, error) {
	var (
		payload   string
		expiresAt int64
	)
	row := r.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM frontend_sessions WHERE id = ?`, id,
	)
	if err := row.Scan(&payload, &expiresAt); err != nil {
		return nil, 0, mapNotFound(err)
	}
	return []byte(payload), expiresAt, nil
}

func (r *frontendSessionsRepo) DeleteFrontendSession(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM frontend_sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *frontendSessionsRepo) DeleteExpiredFrontendSessions(ctx context.Context, now int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM frontend_sessions WHERE expires_at <= ?`, now)
	return err
}
