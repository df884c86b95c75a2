package service

import (
	"context"
	"errors"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/pkg/jwtx"
	"github.com/govsignin/accountsvc/pkg/metricsx"
	"github.com/govsignin/accountsvc/pkg/slogx"
)

// VerifierService verifies signed request objects against the client's
// published key set and validates the decoded claims. Side effects are
// metrics and log emission only.
type VerifierService struct {
	Verifier *jwtx.Verifier

	// AuthorizeURL is the expected aud claim. Required; Config.Validate
	// refuses to start without it.
	AuthorizeURL string
}

// verifyClassifications maps every verification failure the underlying
// library can raise to its own stable code, category and metric reason. No
// two entries share a code; the catch-all unknown bucket is applied when
// nothing here matches.
var verifyClassifications = []struct {
	sentinel error
	code     string
	category Category
	reason   string
}{
	{jwtx.ErrJWKSFetchTimeout, CodeJWKSFetchTimeout, CategoryServerError, "JwksFetchTimeout"},
	{jwtx.ErrJWKSInvalid, CodeJWKSInvalid, CategoryServerError, "JwksInvalid"},
	{jwtx.ErrNoMatchingKey, CodeNoMatchingKey, CategoryUnauthorizedClient, "NoMatchingKey"},
	{jwtx.ErrMultipleMatchingKeys, CodeMultipleMatchingKeys, CategoryUnauthorizedClient, "MultipleMatchingKeys"},
	{jwtx.ErrKeyInvalid, CodeKeyInvalid, CategoryUnauthorizedClient, "KeyInvalid"},
	{jwtx.ErrAlgNotAllowed, CodeAlgNotAllowed, CategoryUnauthorizedClient, "AlgNotAllowed"},
	{jwtx.ErrSignatureMalformed, CodeSignatureMalformed, CategoryInvalidRequest, "SignatureMalformed"},
	{jwtx.ErrSignatureInvalid, CodeSignatureInvalid, CategoryAccessDenied, "SignatureVerificationFailed"},
	{jwtx.ErrTokenMalformed, CodeTokenMalformed, CategoryInvalidRequest, "TokenMalformed"},
	{jwtx.ErrTokenExpired, CodeTokenExpired, CategoryAccessDenied, "TokenExpired"},
	{jwtx.ErrClaimValidation, CodeClaimValidationFailed, CategoryInvalidRequest, "ClaimValidationFailed"},
	{jwtx.ErrProtocol, CodeProtocolError, CategoryInvalidRequest, "ProtocolError"},
}

// VerifyRequestObject verifies the compact JWS and validates its payload
// against the request-shaped schema for (client, redirectURI, state). On
// failure it returns a *Failure whose code identifies the exact branch.
func (s *VerifierService) VerifyRequestObject(ctx context.Context, compact string, client domain.Client, redirectURI, state string) (domain.RequestObjectClaims, error) {
	log := slogx.FromContext(ctx)

	payload, err := s.Verifier.Verify(ctx, compact, client.ClientID, client.JWKSURI)
	if err != nil {
		f := classifyVerifyError(err)
		attrs := []any{"client_id", client.ClientID, "code", f.Code, "error", err}
		if f.Code == CodeTokenExpired {
			if expiredAt, ok := jwtx.ExpiredAt(compact); ok {
				attrs = append(attrs, "expired_at", expiredAt.Unix())
			}
		}
		log.Warn("request object verification failed", attrs...)
		return domain.RequestObjectClaims{}, f
	}

	claims, violations := ValidateClaims(payload, client, s.AuthorizeURL, redirectURI, state)
	if len(violations) > 0 {
		for _, v := range violations {
			metricsx.ClaimsDiscrepancies.WithLabelValues(v.Metric).Inc()
			log.Warn("request object claim discrepancy",
				"client_id", client.ClientID,
				"field", v.Field,
				"reason", v.Reason,
			)
		}
		return domain.RequestObjectClaims{}, newFailure(
			CategoryInvalidRequest, CodeClaimsSchemaFailed,
			errors.New("request object claims failed schema validation"),
		)
	}

	return claims, nil
}

func classifyVerifyError(err error) *Failure {
	for _, c := range verifyClassifications {
		if errors.Is(err, c.sentinel) {
			metricsx.AuthorizeFailures.WithLabelValues(c.reason).Inc()
			return newFailure(c.category, c.code, err)
		}
	}
	metricsx.AuthorizeFailures.WithLabelValues("UnknownError").Inc()
	return newFailure(CategoryServerError, CodeUnknownError, err)
}
