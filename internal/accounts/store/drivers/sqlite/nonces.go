package sqlite

import "context"

type noncesRepo struct {
	db dbtx
}

func (r *noncesRepo) PutNonce(ctx context.Context, nonce string, expiresAt int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO nonces (nonce, expires_at) VALUES (?, ?)`,
		nonce, expiresAt,
	)
	return mapConflict(err)
}

func (r *noncesRepo) DeleteExpiredNonces(ctx context.Context, now int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM nonces WHERE expires_at <= ?`, now)
	return err
}
