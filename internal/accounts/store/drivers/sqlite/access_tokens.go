package sqlite

import (
	"context"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
)

type accessTokensRepo struct {
	db dbtx
}

func (r *accessTokensRepo) CreateAccessToken(ctx context.Context, t domain.AccessToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_tokens (token_hash, outcome_id, expires_at) VALUES (?, ?, ?)`,
		t.TokenHash, t.OutcomeID, t.ExpiresAt,
	)
	return mapConflict(err)
}

func (r *accessTokensRepo) GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	var t domain.AccessToken
	row := r.db.QueryRowContext(ctx,
		`SELECT token_hash, outcome_id, expires_at FROM access_tokens WHERE token_hash = ?`, hash,
	)
	if err := row.Scan(&t.TokenHash, &t.OutcomeID, &t.ExpiresAt); err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *accessTokensRepo) DeleteExpiredAccessTokens(ctx context.Context, now int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE expires_at <= ?`, now)
	return err
}
