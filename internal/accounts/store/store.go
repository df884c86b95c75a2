package store

import (
	"context"
	"errors"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// It exposes sub-repositories to keep concerns tidy and testable.
type Store interface {
	Nonces() Nonces
	APISessions() APISessions
	FrontendSessions() FrontendSessions
	Outcomes() Outcomes
	AuthCodes() AuthCodes
	AccessTokens() AccessTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to do multi-record writes that must be atomic
	// (nonce + api session, outcome + auth code, code redemption).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Nonces is the replay store. A nonce may be inserted at most once, ever.
type Nonces interface {
	// PutNonce inserts the nonce if absent. A second insert with the same
	// nonce returns ErrAlreadyExists; any other failure is an
	// infrastructure error, never a replay.
	PutNonce(ctx context.Context, nonce string, expiresAt int64) error

	DeleteExpiredNonces(ctx context.Context, now int64) error
}

type APISessions interface {
	// CreateAPISession inserts a new api session record.
	CreateAPISession(ctx context.Context, s domain.APISession) error

	// GetAPISession returns the record regardless of expiry; the caller
	// decides what expired means.
	GetAPISession(ctx context.Context, id string) (domain.APISession, error)

	DeleteAPISession(ctx context.Context, id string) error
	DeleteExpiredAPISessions(ctx context.Context, now int64) error
}

// FrontendSessions stores opaque session payloads for the session
// middleware contract. The payload is JSON produced by the session service.
type FrontendSessions interface {
	SetFrontendSession(ctx context.Context, id string, payload []byte, expiresAt int64) error
	GetFrontendSession(ctx context.Context, id string) (payload []byte, expiresAt int64, err error)
	DeleteFrontendSession(ctx context.Context, id string) error
	DeleteExpiredFrontendSessions(ctx context.Context, now int64) error
}

type Outcomes interface {
	CreateOutcome(ctx context.Context, o domain.JourneyOutcome) error
	GetOutcome(ctx context.Context, id string) (domain.JourneyOutcome, error)
	DeleteExpiredOutcomes(ctx context.Context, now int64) error
}

type AuthCodes interface {
	CreateAuthCode(ctx context.Context, c domain.AuthorizationCode) error
	GetAuthCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// MarkAuthCodeUsed flips the code to used. It returns ErrNotFound when
	// the code does not exist, is expired at now, or was already used, so a
	// code can be redeemed exactly once even under racing requests.
	MarkAuthCodeUsed(ctx context.Context, hash string, now int64) error

	DeleteExpiredAuthCodes(ctx context.Context, now int64) error
}

type AccessTokens interface {
	CreateAccessToken(ctx context.Context, t domain.AccessToken) error
	GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error)
	DeleteExpiredAccessTokens(ctx context.Context, now int64) error
}
