package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/internal/accounts/store"
)

type apiSessionsRepo struct {
	db dbtx
}

func (r *apiSessionsRepo) CreateAPISession(ctx context.Context, s domain.APISession) error {
	claims, err := json.Marshal(s.Claims)
	if err != nil {
		return fmt.Errorf("encode api session claims: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO api_sessions (id, claims, expires_at) VALUES (?, ?, ?)`,
		s.ID, string(claims), s.ExpiresAt,
	)
	return mapConflict(err)
}

func (r *apiSessionsRepo) GetAPISession(ctx context.Context, id string) (domain.APISession, error) {
	var (
		s      domain.APISession
		claims string
	)
	row := r.db.QueryRowContext(ctx,
		`SELECT id, claims, expires_at FROM api_sessions WHERE id = ?`, id,
	)
	if err := row.Scan(&s.ID, &claims, &s.ExpiresAt); err != nil {
		return domain.APISession{}, mapNotFound(err)
	}
	if err := json.Unmarshal([]byte(claims), &s.Claims); err != nil {
		return domain.APISession{}, fmt.Errorf("decode api session claims: %w", err)
	}
	return s, nil
}

func (r *apiSessionsRepo) DeleteAPISession(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *apiSessionsRepo) DeleteExpiredAPISessions(ctx context.Context, now int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM api_sessions WHERE expires_at <= ?`, now)
	return err
}
