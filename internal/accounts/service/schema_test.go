package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
)

func schemaClient() domain.Client {
	return domain.Client{
		ClientID:     "client-a",
		Scope:        "am-account-delete am-testing-journey",
		RedirectURIs: []string{testRedirectURI},
	}
}

func validPayload() map[string]any {
	return map[string]any{
		"client_id":               "client-a",
		"iss":                     "client-a",
		"aud":                     testAuthorizeURL,
		"response_type":           "code",
		"scope":                   domain.ScopeAccountDelete,
		"state":                   "st",
		"jti":                     "jti-1",
		"sub":                     "user-1",
		"email":                   "user@example.com",
		"access_token":            "tok",
		"govuk_signin_journey_id": "journey-1",
	}
}

func TestValidateClaimsAccepts(t *testing.T) {
	payload := validPayload()

	claims, violations := ValidateClaims(payload, schemaClient(), testAuthorizeURL, testRedirectURI, "st")
	require.Empty(t, violations)
	require.Equal(t, "client-a", claims.ClientID)
	require.Equal(t, "jti-1", claims.JTI)
	require.Equal(t, "user@example.com", claims.Email)

	// validation performed no coercion on the payload itself
	require.Equal(t, validPayload(), payload)
}

func TestValidateClaimsIsExhaustive(t *testing.T) {
	payload := validPayload()
	payload["client_id"] = "someone-else" // ClientIdDiscrepancy
	payload["response_type"] = "token"    // ResponseTypeDiscrepancy
	payload["jti"] = ""                   // JtiDiscrepancy
	payload["email"] = "not-an-email"     // EmailDiscrepancy

	_, violations := ValidateClaims(payload, schemaClient(), testAuthorizeURL, testRedirectURI, "st")
	require.Len(t, violations, 4)

	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
		require.NotEmpty(t, v.Metric)
	}
	require.ElementsMatch(t, []string{"client_id", "response_type", "jti", "email"}, fields)
}

func TestValidateClaimsStateBinding(t *testing.T) {
	t.Run("mismatched state", func(t *testing.T) {
		payload := validPayload()
		payload["state"] = "other"
		_, violations := ValidateClaims(payload, schemaClient(), testAuthorizeURL, testRedirectURI, "st")
		require.Len(t, violations, 1)
		require.Equal(t, "state", violations[0].Field)
	})

	t.Run("state absent on both sides", func(t *testing.T) {
		payload := validPayload()
		delete(payload, "state")
		_, violations := ValidateClaims(payload, schemaClient(), testAuthorizeURL, testRedirectURI, "")
		require.Empty(t, violations)
	})

	t.Run("state in claims but not in request", func(t *testing.T) {
		payload := validPayload()
		_, violations := ValidateClaims(payload, schemaClient(), testAuthorizeURL, testRedirectURI, "")
		require.Len(t, violations, 1)
		require.Equal(t, "state", violations[0].Field)
	})
}

func TestValidateClaimsScopeRules(t *testing.T) {
	t.Run("scope not allowed for client", func(t *testing.T) {
		payload := validPayload()
		payload["scope"] = domain.ScopePasskeyCreate // not in client's scope list
		_, violations := ValidateClaims(payload, schemaClient(), testAuthorizeURL, testRedirectURI, "st")
		require.NotEmpty(t, violations)
		require.Equal(t, "scope", violations[0].Field)
	})

	t.Run("testing journey needs no email or access token", func(t *testing.T) {
		payload := validPayload()
		payload["scope"] = domain.ScopeTestingJourney
		delete(payload, "email")
		delete(payload, "access_token")
		_, violations := ValidateClaims(payload, schemaClient(), testAuthorizeURL, testRedirectURI, "st")
		require.Empty(t, violations)
	})

	t.Run("account delete requires journey claims", func(t *testing.T) {
		payload := validPayload()
		delete(payload, "email")
		delete(payload, "access_token")
		delete(payload, "govuk_signin_journey_id")
		_, violations := ValidateClaims(payload, schemaClient(), testAuthorizeURL, testRedirectURI, "st")
		require.Len(t, violations, 3)
	})
}

func TestValidateClaimsRedirectURIBinding(t *testing.T) {
	payload := validPayload()
	payload["redirect_uri"] = "https://evil.example/cb"

	_, violations := ValidateClaims(payload, schemaClient(), testAuthorizeURL, testRedirectURI, "st")
	require.Len(t, violations, 1)
	require.Equal(t, "redirect_uri", violations[0].Field)
	require.Equal(t, "RedirectUriDiscrepancy", violations[0].Metric)
}

func TestClassifierCodesAreDisjoint(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range verifyClassifications {
		require.False(t, seen[c.code], "code %s mapped twice", c.code)
		require.False(t, seen[c.reason], "reason %s mapped twice", c.reason)
		seen[c.code] = true
		seen[c.reason] = true
	}
}
