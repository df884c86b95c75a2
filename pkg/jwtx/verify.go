package jwtx

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// DefaultAllowedAlgorithms lists the signing algorithms clients may use for
// request objects.
var DefaultAllowedAlgorithms = []string{"RS256", "PS256", "ES256"}

// Verifier checks compact JWS request objects against a client's remote key
// set. It performs signature and standard temporal validation only; shape
// validation of the payload is the caller's concern.
type Verifier struct {
	Keys *RemoteKeySets

	// AllowedAlgorithms defaults to DefaultAllowedAlgorithms when nil.
	AllowedAlgorithms []string

	// Leeway tolerates small clock skew on exp/nbf/iat.
	Leeway time.Duration
}

// Verify validates the token's signature and temporal claims against the
// client's JWKS and returns the raw decoded payload. Failures are returned
// as exactly one sentinel from the package taxonomy.
func (v *Verifier) Verify(ctx context.Context, token, clientID, jwksURL string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}

	parser := jwt.NewParser(
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.Leeway),
	)

	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.resolveKey(ctx, t, clientID, jwksURL)
	})
	if err != nil {
		return nil, v.classify(err)
	}

	return claims, nil
}

// ExpiredAt extracts the exp claim from a token without verifying it. Used
// to log the expired timestamp when classification reports ErrTokenExpired.
func ExpiredAt(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// resolveKey enforces the algorithm allowlist, then finds exactly one key in
// the client's JWKS matching the token's kid header.
func (v *Verifier) resolveKey(ctx context.Context, t *jwt.Token, clientID, jwksURL string) (any, error) {
	allowed := v.AllowedAlgorithms
	if allowed == nil {
		allowed = DefaultAllowedAlgorithms
	}
	if !slices.Contains(allowed, t.Method.Alg()) {
		return nil, fmt.Errorf("%w: %s", ErrAlgNotAllowed, t.Method.Alg())
	}

	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("%w: missing kid header", ErrNoMatchingKey)
	}

	set, err := v.Keys.Lookup(ctx, clientID, jwksURL)
	if err != nil {
		return nil, err
	}

	matches := 0
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		if id, ok := key.KeyID(); ok && id == kid {
			matches++
		}
	}
	switch {
	case matches == 0:
		return nil, fmt.Errorf("%w: kid %q", ErrNoMatchingKey, kid)
	case matches > 1:
		return nil, fmt.Errorf("%w: kid %q", ErrMultipleMatchingKeys, kid)
	}

	key, _ := set.LookupKeyID(kid)
	var rawKey any
	if err := jwk.Export(key, &rawKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyInvalid, err)
	}

	return rawKey, nil
}

// classify maps golang-jwt failures onto the package taxonomy. Keyfunc
// sentinels pass through unchanged; everything else is inspected with
// errors.Is. Unrecognised failures come back as ErrProtocol.
func (v *Verifier) classify(err error) error {
	for _, sentinel := range []error{
		ErrJWKSFetchTimeout, ErrJWKSInvalid,
		ErrNoMatchingKey, ErrMultipleMatchingKeys,
		ErrKeyInvalid, ErrAlgNotAllowed,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %v", ErrClaimValidation, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		// A malformed signature segment is distinguished from a generally
		// malformed token so the two emit different error codes.
		if strings.Contains(err.Error(), "signature") {
			return fmt.Errorf("%w: %v", ErrSignatureMalformed, err)
		}
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrKeyInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
}
