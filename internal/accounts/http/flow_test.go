package http

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/internal/accounts/service"
)

// TestAccountDeleteFlow walks the full api-variant journey: authorize with
// an encrypted request object, promote the session, confirm the deletion,
// redeem the code and read the outcome back.
func TestAccountDeleteFlow(t *testing.T) {
	f := newRouterFixture(t)

	jar := f.encryptJAR(t, f.signJAR(t, f.jarClaims("jti-flow-1", "st-1")))
	resp := f.get(t, "/authorize?"+f.authorizeQuery(jar, "st-1").Encode())

	loc := locationURL(t, resp)
	require.True(t, strings.HasPrefix(loc.Path, "/frontend/start-session"),
		"authorize should hand the browser to the session starter, got %s", loc)
	assert.Equal(t, "client-a", loc.Query().Get("client_id"))
	assert.Equal(t, testRedirectURI, loc.Query().Get("redirect_uri"))
	assert.Equal(t, "st-1", loc.Query().Get("state"))

	apiCookie := cookieNamed(t, resp, apiSessionCookie)
	assert.Len(t, apiCookie.Value, 48)
	assert.True(t, apiCookie.HttpOnly)

	resp = f.get(t, "/frontend/start-session", apiCookie)
	loc = locationURL(t, resp)
	require.Equal(t, "/frontend/account-delete/confirm", loc.Path)
	session := cookieNamed(t, resp, sessionCookie)

	// the api session is single use
	again := f.get(t, "/frontend/start-session", apiCookie)
	require.Equal(t, http.StatusFound, again.StatusCode)
	assert.Contains(t, again.Header.Get("Location"), "/frontend/error")

	resp = f.get(t, "/frontend/account-delete/confirm", session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Journey string `json:"journey"`
		State   string `json:"state"`
	}
	decodeJSON(t, resp, &page)
	assert.Equal(t, domain.ScopeAccountDelete, page.Journey)
	assert.Equal(t, "confirm-deletion", page.State)

	// a step that is not legal yet bounces back to the canonical path
	resp = f.get(t, "/frontend/account-delete/done", session)
	loc = locationURL(t, resp)
	assert.Equal(t, "/frontend/account-delete/confirm", loc.Path)

	resp = f.postForm(t, "/frontend/account-delete/continue",
		url.Values{"event": {"confirm"}}, session)
	loc = locationURL(t, resp)
	require.True(t, strings.HasPrefix(loc.String(), testRedirectURI),
		"completion should redirect to the client, got %s", loc)
	code := loc.Query().Get("code")
	require.NotEmpty(t, code)
	assert.Equal(t, "st-1", loc.Query().Get("state"))

	// the session died with the journey
	resp = f.get(t, "/frontend/account-delete/done", session)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/frontend/error")

	resp = f.postForm(t, "/token", url.Values{
		"grant_type":            {"authorization_code"},
		"code":                  {code},
		"redirect_uri":          {testRedirectURI},
		"client_assertion_type": {"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"},
		"client_assertion":      {f.clientAssertion(t)},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var token service.TokenResponse
	decodeJSON(t, resp, &token)
	require.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.EqualValues(t, 600, token.ExpiresIn)

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/journey-outcome", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	resp = f.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var outcome JourneyOutcomeResponse
	decodeJSON(t, resp, &outcome)
	assert.Equal(t, "user-1", outcome.Sub)
	assert.Equal(t, domain.ScopeAccountDelete, outcome.Scope)
	assert.True(t, outcome.Success)
	require.Len(t, outcome.Journeys, 1)
	assert.Equal(t, domain.ScopeAccountDelete, outcome.Journeys[0].Journey)

	// the code was burned by the first exchange
	resp = f.postForm(t, "/token", url.Values{
		"grant_type":            {"authorization_code"},
		"code":                  {code},
		"redirect_uri":          {testRedirectURI},
		"client_assertion_type": {"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"},
		"client_assertion":      {f.clientAssertion(t)},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errResp ErrorResponse
	decodeJSON(t, resp, &errResp)
	assert.Equal(t, "invalid_request", errResp.Error)
	assert.Equal(t, "E6002", errResp.ErrorDescription)
}

// TestAuthorizeReplay reuses a jti and expects the second attempt to be
// bounced to the client with the replay code and its own state echoed.
func TestAuthorizeReplay(t *testing.T) {
	f := newRouterFixture(t)

	first := f.encryptJAR(t, f.signJAR(t, f.jarClaims("jti-replayed", "st-first")))
	resp := f.get(t, "/authorize?"+f.authorizeQuery(first, "st-first").Encode())
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Location"), "/frontend/start-session")

	second := f.encryptJAR(t, f.signJAR(t, f.jarClaims("jti-replayed", "st-second")))
	resp = f.get(t, "/authorize?"+f.authorizeQuery(second, "st-second").Encode())

	loc := locationURL(t, resp)
	require.True(t, strings.HasPrefix(loc.String(), testRedirectURI))
	assert.Equal(t, "invalid_request", loc.Query().Get("error"))
	assert.Equal(t, "E2010", loc.Query().Get("error_description"))
	assert.Equal(t, "st-second", loc.Query().Get("state"))
}

// TestFrontendAuthorize exercises the variant that takes a bare signed
// request object and dispatches straight into the journey.
func TestFrontendAuthorize(t *testing.T) {
	f := newRouterFixture(t)

	jar := f.signJAR(t, f.jarClaims("jti-frontend-1", "st-fe"))
	resp := f.get(t, "/frontend/authorize?"+f.authorizeQuery(jar, "st-fe").Encode())

	loc := locationURL(t, resp)
	require.Equal(t, "/frontend/account-delete/confirm", loc.Path)
	session := cookieNamed(t, resp, sessionCookie)

	resp = f.get(t, "/frontend/account-delete/confirm", session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthorizeUnknownClientGoesToErrorPage(t *testing.T) {
	f := newRouterFixture(t)

	jar := f.encryptJAR(t, f.signJAR(t, f.jarClaims("jti-unknown", "st")))
	q := f.authorizeQuery(jar, "st")
	q.Set("client_id", "client-b")

	resp := f.get(t, "/authorize?"+q.Encode())
	loc := locationURL(t, resp)
	require.True(t, strings.HasPrefix(loc.Path, "/frontend/error"))
	assert.Equal(t, "unauthorized_client", loc.Query().Get("error"))
	assert.Equal(t, "E1002", loc.Query().Get("error_description"))
	assert.Empty(t, loc.Query().Get("state"), "pre-trust failures must not echo state")
}

func TestJourneyWithoutSession(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.get(t, "/frontend/account-delete/confirm")
	loc := locationURL(t, resp)
	assert.True(t, strings.HasPrefix(loc.Path, "/frontend/error"))
	assert.Equal(t, "E4003", loc.Query().Get("error_description"))
}

// TestJourneyUnknownEvent posts an event name the state machine does not
// know and expects a bounce back to the current step with nothing advanced.
func TestJourneyUnknownEvent(t *testing.T) {
	f := newRouterFixture(t)

	jar := f.encryptJAR(t, f.signJAR(t, f.jarClaims("jti-event-1", "st-ev")))
	resp := f.get(t, "/authorize?"+f.authorizeQuery(jar, "st-ev").Encode())
	apiCookie := cookieNamed(t, resp, apiSessionCookie)
	resp = f.get(t, "/frontend/start-session", apiCookie)
	session := cookieNamed(t, resp, sessionCookie)

	resp = f.postForm(t, "/frontend/account-delete/continue",
		url.Values{"event": {"restart"}}, session)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc := locationURL(t, resp)
	assert.Equal(t, "/frontend/account-delete/confirm", loc.Path)

	// the journey did not move
	resp = f.get(t, "/frontend/account-delete/confirm", session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		State string `json:"state"`
	}
	decodeJSON(t, resp, &page)
	assert.Equal(t, "confirm-deletion", page.State)
}

func TestUtilityPagesRenderWithoutSession(t *testing.T) {
	f := newRouterFixture(t)

	for _, path := range []string{"/frontend/error", "/frontend/cookies", "/frontend/signed-out"} {
		resp := f.get(t, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestJourneyOutcomeAuth(t *testing.T) {
	f := newRouterFixture(t)

	t.Run("missing header", func(t *testing.T) {
		resp := f.get(t, "/journey-outcome")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown token", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/journey-outcome", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer not-a-real-token")
		resp := f.do(t, req)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		var errResp ErrorResponse
		decodeJSON(t, resp, &errResp)
		assert.Equal(t, "not_found", errResp.Error)
		assert.Equal(t, "E404", errResp.ErrorDescription)
	})
}

func TestTokenRejectsBadGrantType(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.postForm(t, "/token", url.Values{
		"grant_type": {"client_credentials"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	decodeJSON(t, resp, &errResp)
	assert.Equal(t, "invalid_request", errResp.Error)
	assert.Equal(t, "E6001", errResp.ErrorDescription)
}

func TestHealthEndpoints(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.get(t, "/livez")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health HealthResponse
	decodeJSON(t, resp, &health)
	assert.Equal(t, "ok", health.Status)

	resp = f.get(t, "/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &health)
	assert.Equal(t, "ok", health.Status)
	require.NotNil(t, health.Checks)
	assert.Equal(t, "ok", health.Checks.Database)
	assert.Equal(t, "ok", health.Checks.Registry)
}
