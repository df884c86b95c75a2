package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/internal/accounts/registry"
	"github.com/govsignin/accountsvc/internal/accounts/store"
	"github.com/govsignin/accountsvc/pkg/cryptox"
	"github.com/govsignin/accountsvc/pkg/jwtx"
	"github.com/govsignin/accountsvc/pkg/metricsx"
	"github.com/govsignin/accountsvc/pkg/slogx"
)

const clientAssertionTypeJWT = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

// TokenService redeems authorization codes for opaque bearer access tokens.
// Clients authenticate with a private_key_jwt assertion verified against the
// same JWKS used for their request objects.
type TokenService struct {
	Store    store.Store
	Registry *registry.Registry
	Verifier *jwtx.Verifier

	// TokenURL is the expected aud of client assertions.
	TokenURL string

	AccessTokenTTL time.Duration

	// Now is swappable for tests. Defaults to time.Now.
	Now func() time.Time
}

// TokenRequest is the parsed form body of a token exchange.
type TokenRequest struct {
	GrantType           string
	Code                string
	RedirectURI         string
	ClientAssertionType string
	ClientAssertion     string
}

// TokenResponse is the success body of the token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Exchange validates the client assertion, redeems the code exactly once
// and mints an access token bound to the journey outcome. Code redemption
// and token creation commit in one transaction.
func (s *TokenService) Exchange(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	log := slogx.FromContext(ctx)

	if req.GrantType != "authorization_code" {
		metricsx.TokenExchangeFailures.WithLabelValues("UnsupportedGrantType").Inc()
		return nil, newFailure(CategoryInvalidRequest, CodeUnsupportedGrant,
			fmt.Errorf("grant_type %q not supported", req.GrantType))
	}

	clientID, err := s.verifyClientAssertion(ctx, req)
	if err != nil {
		log.Warn("client assertion rejected", "error", err)
		metricsx.TokenExchangeFailures.WithLabelValues("InvalidClientAssertion").Inc()
		return nil, newFailure(CategoryUnauthorizedClient, CodeInvalidClientAssert, err)
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	nowSec := now.Unix()

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		metricsx.TokenExchangeFailures.WithLabelValues("ServerError").Inc()
		return nil, newFailure(CategoryServerError, CodeUnknownError, err)
	}

	codeHash := cryptox.FingerprintToken(req.Code)
	var redeemErr *Failure

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		code, err := tx.AuthCodes().GetAuthCodeByHash(ctx, codeHash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				redeemErr = newFailure(CategoryInvalidRequest, CodeInvalidCode, err)
			}
			return err
		}
		if code.ClientID != clientID {
			redeemErr = newFailure(CategoryInvalidRequest, CodeInvalidCode,
				errors.New("code was issued to a different client"))
			return redeemErr
		}
		if code.RedirectURI != req.RedirectURI {
			redeemErr = newFailure(CategoryInvalidRequest, CodeRedirectURIMismatch,
				errors.New("redirect_uri does not match the code"))
			return redeemErr
		}

		// The conditional update is the exactly-once point: expired or
		// already-used codes fail here even under racing redemptions.
		if err := tx.AuthCodes().MarkAuthCodeUsed(ctx, codeHash, nowSec); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				redeemErr = newFailure(CategoryInvalidRequest, CodeInvalidCode, err)
			}
			return err
		}

		return tx.AccessTokens().CreateAccessToken(ctx, domain.AccessToken{
			TokenHash: cryptox.FingerprintToken(token),
			OutcomeID: code.OutcomeID,
			ExpiresAt: nowSec + int64(s.AccessTokenTTL.Seconds()),
		})
	})
	if err != nil {
		if redeemErr != nil {
			reason := "InvalidCode"
			if redeemErr.Code == CodeRedirectURIMismatch {
				reason = "RedirectUriMismatch"
			}
			log.Warn("code redemption rejected", "client_id", clientID, "code", redeemErr.Code)
			metricsx.TokenExchangeFailures.WithLabelValues(reason).Inc()
			return nil, redeemErr
		}
		log.Error("token exchange failed", "client_id", clientID, "error", err)
		metricsx.TokenExchangeFailures.WithLabelValues("ServerError").Inc()
		return nil, newFailure(CategoryServerError, CodeUnknownError, err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.AccessTokenTTL.Seconds()),
	}, nil
}

// verifyClientAssertion checks the private_key_jwt assertion: signed by the
// client's published key, iss and sub equal to the client_id, aud equal to
// the token endpoint URL.
func (s *TokenService) verifyClientAssertion(ctx context.Context, req TokenRequest) (string, error) {
	if req.ClientAssertionType != clientAssertionTypeJWT {
		return "", fmt.Errorf("client_assertion_type %q not supported", req.ClientAssertionType)
	}
	if req.ClientAssertion == "" {
		return "", errors.New("client_assertion is required")
	}

	// The issuer identifies the client, and with it the key set to verify
	// against. Reading it unverified is safe: nothing is trusted until the
	// signature checks out below.
	unverified := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(req.ClientAssertion, unverified); err != nil {
		return "", fmt.Errorf("parse client assertion: %w", err)
	}
	iss, _ := unverified["iss"].(string)
	if iss == "" {
		return "", errors.New("client assertion has no issuer")
	}

	client, ok := s.Registry.Lookup(iss)
	if !ok {
		return "", fmt.Errorf("unknown client %q", iss)
	}

	claims, err := s.Verifier.Verify(ctx, req.ClientAssertion, client.ClientID, client.JWKSURI)
	if err != nil {
		return "", fmt.Errorf("verify client assertion: %w", err)
	}

	if sub, _ := claims["sub"].(string); sub != client.ClientID {
		return "", errors.New("client assertion sub must equal client_id")
	}
	if !audienceMatches(claims["aud"], s.TokenURL) {
		return "", errors.New("client assertion aud must be the token endpoint")
	}

	return client.ClientID, nil
}

func audienceMatches(aud any, want string) bool {
	switch v := aud.(type) {
	case string:
		return v == want
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}
