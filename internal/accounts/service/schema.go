package service

import (
	"fmt"
	"net/mail"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
)

// Violation is one claims-schema failure. Validation is exhaustive, so one
// payload can produce many of these; each increments its own metric.
type Violation struct {
	Field  string
	Metric string
	Reason string
}

// journeyRequiredClaims lists the scope-conditional required claims per
// journey scope. refresh_token is deliberately absent: it is optional and
// nullable everywhere.
var journeyRequiredClaims = map[string][]string{
	domain.ScopeAccountDelete:  {"sub", "email", "access_token", "govuk_signin_journey_id"},
	domain.ScopePasskeyCreate:  {"sub", "email", "access_token", "govuk_signin_journey_id"},
	domain.ScopeTestingJourney: {"sub", "govuk_signin_journey_id"},
}

var claimMetrics = map[string]string{
	"client_id":               "ClientIdDiscrepancy",
	"iss":                     "IssuerDiscrepancy",
	"aud":                     "AudienceDiscrepancy",
	"response_type":           "ResponseTypeDiscrepancy",
	"scope":                   "ScopeDiscrepancy",
	"state":                   "StateDiscrepancy",
	"jti":                     "JtiDiscrepancy",
	"sub":                     "SubDiscrepancy",
	"email":                   "EmailDiscrepancy",
	"access_token":            "AccessTokenDiscrepancy",
	"govuk_signin_journey_id": "JourneyIdDiscrepancy",
	"redirect_uri":            "RedirectUriDiscrepancy",
	"claims":                  "ClaimsShapeDiscrepancy",
}

// ValidateClaims checks a decoded request-object payload against the schema
// for (client, redirectURI, state). It collects every violation rather than
// stopping at the first, and never mutates or coerces the payload.
func ValidateClaims(payload map[string]any, client domain.Client, authorizeURL, redirectURI, state string) (domain.RequestObjectClaims, []Violation) {
	var violations []Violation

	add := func(field, reason string) {
		violations = append(violations, Violation{
			Field:  field,
			Metric: claimMetrics[field],
			Reason: reason,
		})
	}

	requireEqual := func(field, want string) string {
		got, ok := stringClaim(payload, field)
		switch {
		case !ok:
			add(field, "missing or not a string")
		case got != want:
			add(field, fmt.Sprintf("got %q, want %q", got, want))
		}
		return got
	}

	requireEqual("client_id", client.ClientID)
	requireEqual("iss", client.ClientID)
	requireEqual("aud", authorizeURL)
	requireEqual("response_type", "code")

	scope, ok := stringClaim(payload, "scope")
	switch {
	case !ok:
		add("scope", "missing or not a string")
	case !client.AllowsScope(scope):
		add("scope", fmt.Sprintf("scope %q not allowed for client", scope))
	}

	if state != "" {
		requireEqual("state", state)
	} else if _, present := payload["state"]; present {
		add("state", "state present in claims but not in request")
	}

	if _, present := payload["redirect_uri"]; present {
		requireEqual("redirect_uri", redirectURI)
	}

	jti, ok := stringClaim(payload, "jti")
	if !ok || jti == "" {
		add("jti", "missing or empty")
	}

	for _, field := range journeyRequiredClaims[scope] {
		val, ok := stringClaim(payload, field)
		if !ok || val == "" {
			add(field, "missing or empty")
			continue
		}
		if field == "email" {
			if _, err := mail.ParseAddress(val); err != nil {
				add(field, "not a valid email address")
			}
		}
	}

	if len(violations) > 0 {
		return domain.RequestObjectClaims{}, violations
	}

	claims, err := domain.ClaimsFromMap(payload)
	if err != nil {
		add("claims", err.Error())
		return domain.RequestObjectClaims{}, violations
	}
	return claims, nil
}

func stringClaim(payload map[string]any, key string) (string, bool) {
	v, ok := payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
