package service

import (
	"context"
	"time"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/internal/accounts/store"
	"github.com/govsignin/accountsvc/pkg/cryptox"
	"github.com/govsignin/accountsvc/pkg/idx"
	"github.com/govsignin/accountsvc/pkg/metricsx"
	"github.com/govsignin/accountsvc/pkg/slogx"
)

// CompletionService persists the journey outcome and issues the one-time
// authorization code.
type CompletionService struct {
	Store store.Store

	OutcomeTTL  time.Duration
	AuthCodeTTL time.Duration

	// Now is swappable for tests. Defaults to time.Now.
	Now func() time.Time
}

// CompletionRedirect is where the browser goes after a completed journey.
type CompletionRedirect struct {
	Code        string
	RedirectURI string
	State       string
}

// CompleteJourney writes the outcome record and the authorization code in
// one transaction. A redeemable code without a recorded outcome (or the
// reverse) must be impossible, so a failure of either write rolls back
// both and the caller sends the user back to the client with an error.
func (s *CompletionService) CompleteJourney(ctx context.Context, claims domain.RequestObjectClaims, steps []domain.JourneyStep, success bool) (*CompletionRedirect, error) {
	log := slogx.FromContext(ctx)

	now := s.Now
	if now == nil {
		now = time.Now
	}
	nowSec := now().Unix()

	code, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		metricsx.JourneyCompletionFailures.Inc()
		return nil, newFailure(CategoryServerError, CodeCompletionFailed, err)
	}
	outcomeID := idx.New().String()

	outcome := domain.JourneyOutcome{
		ID:        outcomeID,
		Sub:       claims.Sub,
		Email:     claims.Email,
		Scope:     claims.Scope,
		Success:   success,
		Journeys:  steps,
		ExpiresAt: nowSec + int64(s.OutcomeTTL.Seconds()),
	}
	authCode := domain.AuthorizationCode{
		CodeHash:    cryptox.FingerprintToken(code),
		OutcomeID:   outcomeID,
		ClientID:    claims.ClientID,
		Sub:         claims.Sub,
		RedirectURI: claims.RedirectURI,
		ExpiresAt:   nowSec + int64(s.AuthCodeTTL.Seconds()),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Outcomes().CreateOutcome(ctx, outcome); err != nil {
			return err
		}
		return tx.AuthCodes().CreateAuthCode(ctx, authCode)
	})
	if err != nil {
		log.Error("journey completion failed",
			"client_id", claims.ClientID,
			"scope", claims.Scope,
			"error", err,
		)
		metricsx.JourneyCompletionFailures.Inc()
		return nil, newFailure(CategoryServerError, CodeCompletionFailed, err)
	}

	metricsx.JourneysCompleted.WithLabelValues(claims.Scope).Inc()
	log.Info("journey completed", "scope", claims.Scope, "client_id", claims.ClientID, "success", success)

	return &CompletionRedirect{
		Code:        code,
		RedirectURI: claims.RedirectURI,
		State:       claims.State,
	}, nil
}
