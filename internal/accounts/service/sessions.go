package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/internal/accounts/store"
	"github.com/govsignin/accountsvc/pkg/cryptox"
	"github.com/govsignin/accountsvc/pkg/metricsx"
	"github.com/govsignin/accountsvc/pkg/slogx"
)

// Frontend session expiry bounds in seconds. The derived token expiry is
// clamped into [min, max]; without a derivable token expiry the floor is
// used as-is. The literal constants are the source of truth.
const (
	frontendSessionMin = 1800
	frontendSessionMax = 3600
)

// SessionService owns the api-session and frontend-session lifecycle.
type SessionService struct {
	Store store.Store

	NonceTTL      time.Duration // jti replay window
	APISessionTTL time.Duration

	// Now is swappable for tests. Defaults to time.Now.
	Now func() time.Time
}

func (s *SessionService) now() int64 {
	if s.Now != nil {
		return s.Now().Unix()
	}
	return time.Now().Unix()
}

// CheckReplayAndCreateSession records the claims' jti and creates the api
// session in one transaction, so a verified request object can never be
// accepted without its nonce being burned. A reused jti returns an
// invalid_request Failure with the replay code; every other failure is a
// server error, never a replay.
func (s *SessionService) CheckReplayAndCreateSession(ctx context.Context, claims domain.RequestObjectClaims) (string, error) {
	log := slogx.FromContext(ctx)
	now := s.now()

	sessionID, err := cryptox.GenerateHexToken(cryptox.TokenSize192)
	if err != nil {
		return "", newFailure(CategoryServerError, CodeSessionCreateFailed, err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Nonces().PutNonce(ctx, claims.JTI, now+int64(s.NonceTTL.Seconds())); err != nil {
			return err
		}
		return tx.APISessions().CreateAPISession(ctx, domain.APISession{
			ID:        sessionID,
			Claims:    claims,
			ExpiresAt: now + int64(s.APISessionTTL.Seconds()),
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Warn("request object already used", "jti", claims.JTI, "client_id", claims.ClientID)
			metricsx.AuthorizeFailures.WithLabelValues("RequestObjectAlreadyUsed").Inc()
			return "", newFailure(CategoryInvalidRequest, CodeRequestObjectUsed, err)
		}
		return "", newFailure(CategoryServerError, CodeSessionCreateFailed, err)
	}

	metricsx.SessionsCreated.Inc()
	return sessionID, nil
}

// Promote exchanges a valid api session for a new frontend session and
// deletes the api session, making it single-use. The frontend session's
// expiry is derived from the access token carried in the claims, clamped
// into the configured window.
func (s *SessionService) Promote(ctx context.Context, apiSessionID string) (*domain.FrontendSession, error) {
	now := s.now()

	api, err := s.Store.APISessions().GetAPISession(ctx, apiSessionID)
	if err != nil {
		return nil, fmt.Errorf("get api session: %w", err)
	}
	if api.ExpiresAt <= now {
		_ = s.Store.APISessions().DeleteAPISession(ctx, apiSessionID)
		return nil, store.ErrNotFound
	}

	id, err := cryptox.GenerateHexToken(cryptox.TokenSize192)
	if err != nil {
		return nil, fmt.Errorf("generate frontend session id: %w", err)
	}

	claims := api.Claims
	session := &domain.FrontendSession{
		ID:        id,
		Claims:    &claims,
		UserID:    claims.Sub,
		ExpiresAt: frontendExpiry(claims, now),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		payload, err := json.Marshal(session)
		if err != nil {
			return err
		}
		if err := tx.FrontendSessions().SetFrontendSession(ctx, id, payload, session.ExpiresAt); err != nil {
			return err
		}
		return tx.APISessions().DeleteAPISession(ctx, apiSessionID)
	})
	if err != nil {
		return nil, fmt.Errorf("promote session: %w", err)
	}

	metricsx.SessionsPromoted.Inc()
	return session, nil
}

// frontendExpiry derives the session expiry from the exp of the tokens in
// the claims, taking the minimum when more than one token is present, then
// clamps into [now+min, now+max]. Without any derivable expiry it returns
// the floor.
func frontendExpiry(claims domain.RequestObjectClaims, now int64) int64 {
	floor := now + frontendSessionMin
	ceil := now + frontendSessionMax

	tokens := []string{}
	if claims.AccessToken != "" {
		tokens = append(tokens, claims.AccessToken)
	}
	if claims.RefreshToken != nil && *claims.RefreshToken != "" {
		tokens = append(tokens, *claims.RefreshToken)
	}

	var derived int64
	for _, tok := range tokens {
		exp, ok := tokenExpiry(tok)
		if !ok {
			continue
		}
		if derived == 0 || exp < derived {
			derived = exp
		}
	}
	if derived == 0 {
		return floor
	}
	if derived < floor {
		return floor
	}
	if derived > ceil {
		return ceil
	}
	return derived
}

func tokenExpiry(token string) (int64, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, false
	}
	return exp.Unix(), true
}

// Get implements the session middleware contract: a session whose expiry
// has passed (expires <= now) is destroyed and reported absent, never
// returned as valid. A failed destroy surfaces as an error rather than
// returning stale data.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.FrontendSession, error) {
	payload, expiresAt, err := s.Store.FrontendSessions().GetFrontendSession(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if expiresAt <= s.now() {
		if err := s.Store.FrontendSessions().DeleteFrontendSession(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("destroy expired session: %w", err)
		}
		return nil, nil
	}

	var session domain.FrontendSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}
	session.ID = id
	session.ExpiresAt = expiresAt
	return &session, nil
}

// Set writes the session under id. A session without its own expiry gets
// the default window from now.
func (s *SessionService) Set(ctx context.Context, id string, session *domain.FrontendSession) error {
	if session.ExpiresAt == 0 {
		session.ExpiresAt = s.now() + frontendSessionMin
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session payload: %w", err)
	}
	return s.Store.FrontendSessions().SetFrontendSession(ctx, id, payload, session.ExpiresAt)
}

// Destroy removes the session. Destroying an absent session is not an error.
func (s *SessionService) Destroy(ctx context.Context, id string) error {
	err := s.Store.FrontendSessions().DeleteFrontendSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
