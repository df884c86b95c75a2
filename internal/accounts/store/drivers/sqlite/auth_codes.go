package sqlite

import (
	"context"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/internal/accounts/store"
)

type authCodesRepo struct {
	db dbtx
}

func (r *authCodesRepo) CreateAuthCode(ctx context.Context, c domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_codes (code_hash, outcome_id, client_id, sub, redirect_uri, expires_at, used)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		c.CodeHash, c.OutcomeID, c.ClientID, c.Sub, c.RedirectURI, c.ExpiresAt,
	)
	return mapConflict(err)
}

func (r *authCodesRepo) GetAuthCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	var c domain.AuthorizationCode
	row := r.db.QueryRowContext(ctx,
		`SELECT code_hash, outcome_id, client_id, sub, redirect_uri, expires_at, used
		 FROM auth_codes WHERE code_hash = ?`, hash,
	)
	if err := row.Scan(&c.CodeHash, &c.OutcomeID, &c.ClientID, &c.Sub, &c.RedirectURI, &c.ExpiresAt, &c.Used); err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	return c, nil
}

// MarkAuthCodeUsed flips used atomically; the WHERE clause is the
// serialization point that makes redemption exactly-once.
func (r *authCodesRepo) MarkAuthCodeUsed(ctx context.Context, hash string, now int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auth_codes SET used = 1 WHERE code_hash = ? AND used = 0 AND expires_at > ?`,
		hash, now,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *authCodesRepo) DeleteExpiredAuthCodes(ctx context.Context, now int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_codes WHERE expires_at <= ?`, now)
	return err
}
