package domain

import (
	"encoding/json"
	"fmt"
)

// Journey scopes accepted by the authorize endpoints. Each one identifies a
// multi-step user journey with its own state machine.
const (
	ScopeAccountDelete  = "am-account-delete"
	ScopePasskeyCreate  = "am-passkey-create"
	ScopeTestingJourney = "am-testing-journey"
)

// RequestObjectClaims is the decoded payload of a signed request object.
// Standard temporal claims (exp, iat) are checked during signature
// verification and are not carried here.
type RequestObjectClaims struct {
	ClientID     string `json:"client_id"`
	Issuer       string `json:"iss"`
	Audience     string `json:"aud"`
	ResponseType string `json:"response_type"`
	Scope        string `json:"scope"`
	State        string `json:"state,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	JTI          string `json:"jti"`
	Sub          string `json:"sub"`

	// Scope-specific claims. Which are required depends on Scope.
	Email                string  `json:"email,omitempty"`
	AccessToken          string  `json:"access_token,omitempty"`
	RefreshToken         *string `json:"refresh_token,omitempty"`
	GovUKSigninJourneyID string  `json:"govuk_signin_journey_id,omitempty"`
}

// ClaimsFromMap converts a decoded JWT payload into RequestObjectClaims. The
// conversion is lossless for all recognized fields and performs no coercion
// of their values.
func ClaimsFromMap(m map[string]any) (RequestObjectClaims, error) {
	var claims RequestObjectClaims
	buf, err := json.Marshal(m)
	if err != nil {
		return claims, fmt.Errorf("encode claims: %w", err)
	}
	if err := json.Unmarshal(buf, &claims); err != nil {
		return claims, fmt.Errorf("decode claims: %w", err)
	}
	return claims, nil
}
