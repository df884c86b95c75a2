package service

import (
	"context"
	"errors"
	"time"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/internal/accounts/store"
	"github.com/govsignin/accountsvc/pkg/cryptox"
)

// CategoryNotFound is used by the outcome endpoint's 404 body.
const CategoryNotFound Category = "not_found"

// OutcomeService reads journey outcomes by bearer access token.
type OutcomeService struct {
	Store store.Store

	// Now is swappable for tests. Defaults to time.Now.
	Now func() time.Time
}

// GetByAccessToken resolves the bearer token to its outcome record. An
// unknown or expired token, or a missing outcome, yields the stable
// not-found failure rather than leaking which of the three it was.
func (s *OutcomeService) GetByAccessToken(ctx context.Context, token string) (*domain.JourneyOutcome, error) {
	now := time.Now().Unix()
	if s.Now != nil {
		now = s.Now().Unix()
	}

	notFound := func(cause error) error {
		return newFailure(CategoryNotFound, CodeOutcomeNotFound, cause)
	}

	at, err := s.Store.AccessTokens().GetAccessTokenByHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(err)
		}
		return nil, err
	}
	if at.ExpiresAt <= now {
		return nil, notFound(errors.New("access token expired"))
	}

	outcome, err := s.Store.Outcomes().GetOutcome(ctx, at.OutcomeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(err)
		}
		return nil, err
	}
	if outcome.ExpiresAt <= now {
		return nil, notFound(errors.New("outcome expired"))
	}

	return &outcome, nil
}
