package sqlite

import (
	"context"
	"database/sql"

	"github.com/govsignin/accountsvc/internal/accounts/store"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits/rollbacks; outer DB stays open

// Ping is a no-op for transactions; the connection already exists.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return sql.ErrTxDone
}

func (t *txStore) ApplyMigrations() error { return nil } // applied before any tx starts

func (t *txStore) Nonces() store.Nonces                     { return &noncesRepo{db: t.tx} }
func (t *txStore) APISessions() store.APISessions           { return &apiSessionsRepo{db: t.tx} }
func (t *txStore) FrontendSessions() store.FrontendSessions { return &frontendSessionsRepo{db: t.tx} }
func (t *txStore) Outcomes() store.Outcomes                 { return &outcomesRepo{db: t.tx} }
func (t *txStore) AuthCodes() store.AuthCodes               { return &authCodesRepo{db: t.tx} }
func (t *txStore) AccessTokens() store.AccessTokens         { return &accessTokensRepo{db: t.tx} }
