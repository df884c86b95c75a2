package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
)

func newTestAuthorize(t *testing.T) (*AuthorizeService, func(jti, state string) string) {
	t.Helper()

	key := newTestKey(t)
	reg, _ := newTestClientSetup(t, key)
	st := newTestStore(t)

	svc := &AuthorizeService{
		Registry: reg,
		Verifier: newTestVerifier(t),
		Sessions: newTestSessions(st),
	}
	sign := func(jti, state string) string {
		return signJAR(t, key, validJARClaims(jti, state))
	}
	return svc, sign
}

func validParams(request, state string) AuthorizeParams {
	return AuthorizeParams{
		ClientID:     "client-a",
		RedirectURI:  testRedirectURI,
		Scope:        domain.ScopeAccountDelete,
		ResponseType: "code",
		Request:      request,
		State:        state,
	}
}

func TestAuthorizeHappyPath(t *testing.T) {
	svc, sign := newTestAuthorize(t)

	out, aerr := svc.Authorize(context.Background(), AuthorizeVariant{Name: "api"}, validParams(sign("jti-1", "xyz"), "xyz"))
	require.Nil(t, aerr)
	require.NotNil(t, out)
	require.Len(t, out.SessionID, 48)
	require.Equal(t, "client-a", out.Claims.ClientID)
	require.Equal(t, testRedirectURI, out.Claims.RedirectURI)
	require.Equal(t, "xyz", out.State)

	// the api session is retrievable under the returned id
	sess, err := svc.Sessions.Store.APISessions().GetAPISession(context.Background(), out.SessionID)
	require.NoError(t, err)
	require.Equal(t, "user-1", sess.Claims.Sub)
}

func TestAuthorizeReplayedRequestObject(t *testing.T) {
	svc, sign := newTestAuthorize(t)
	ctx := context.Background()

	_, aerr := svc.Authorize(ctx, AuthorizeVariant{Name: "api"}, validParams(sign("jti-replay", "s1"), "s1"))
	require.Nil(t, aerr)

	// a second request object with the same jti is a replay, reported to
	// the client as invalid_request with the dedicated code
	aerr2 := func() *AuthorizeError {
		_, e := svc.Authorize(ctx, AuthorizeVariant{Name: "api"}, validParams(sign("jti-replay", "s1"), "s1"))
		return e
	}()
	require.NotNil(t, aerr2)
	require.Equal(t, CategoryInvalidRequest, aerr2.Category)
	require.Equal(t, CodeRequestObjectUsed, aerr2.Code)
	require.True(t, aerr2.ToClient)
	require.Equal(t, testRedirectURI, aerr2.RedirectURI)
	require.Equal(t, "s1", aerr2.State)
}

func TestAuthorizePreTrustFailures(t *testing.T) {
	svc, sign := newTestAuthorize(t)
	ctx := context.Background()
	jws := sign("jti-pre", "")

	cases := []struct {
		name   string
		params AuthorizeParams
		code   string
	}{
		{"missing client_id", AuthorizeParams{RedirectURI: testRedirectURI, Scope: "x", ResponseType: "code", Request: jws}, CodeMalformedQuery},
		{"missing request", AuthorizeParams{ClientID: "client-a", RedirectURI: testRedirectURI, Scope: "x", ResponseType: "code"}, CodeMalformedQuery},
		{"bad response_type", AuthorizeParams{ClientID: "client-a", RedirectURI: testRedirectURI, Scope: "x", ResponseType: "token", Request: jws}, CodeMalformedQuery},
		{"relative redirect_uri", AuthorizeParams{ClientID: "client-a", RedirectURI: "/cb", Scope: "x", ResponseType: "code", Request: jws}, CodeMalformedQuery},
		{"unknown client", AuthorizeParams{ClientID: "nobody", RedirectURI: testRedirectURI, Scope: "x", ResponseType: "code", Request: jws}, CodeUnknownClient},
		{"unregistered redirect_uri", AuthorizeParams{ClientID: "client-a", RedirectURI: "https://evil.example/cb", Scope: "x", ResponseType: "code", Request: jws}, CodeMalformedQuery},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, aerr := svc.Authorize(ctx, AuthorizeVariant{Name: "api"}, tc.params)
			require.Nil(t, out)
			require.NotNil(t, aerr)
			require.Equal(t, tc.code, aerr.Code)
			// pre-trust failures never go to the supplied redirect_uri
			require.False(t, aerr.ToClient)
		})
	}
}

func TestAuthorizeDecryptFailureGoesToClient(t *testing.T) {
	svc, sign := newTestAuthorize(t)

	variant := AuthorizeVariant{
		Name:    "api",
		Decrypt: func(string) (string, error) { return "", errors.New("kms unavailable") },
	}
	out, aerr := svc.Authorize(context.Background(), variant, validParams(sign("jti-dec", "st"), "st"))
	require.Nil(t, out)
	require.NotNil(t, aerr)
	require.Equal(t, CodeDecryptionFailed, aerr.Code)
	require.Equal(t, CategoryInvalidRequest, aerr.Category)
	require.True(t, aerr.ToClient)
	require.Equal(t, "st", aerr.State)
}

func TestAuthorizeVariantDecryptIsApplied(t *testing.T) {
	svc, sign := newTestAuthorize(t)
	jws := sign("jti-enc", "st")

	// stand-in for JWE: the variant unwraps a reversed wrapper
	variant := AuthorizeVariant{
		Name: "api",
		Decrypt: func(wrapped string) (string, error) {
			return wrapped[len("wrapped:"):], nil
		},
	}
	out, aerr := svc.Authorize(context.Background(), variant, validParams("wrapped:"+jws, "st"))
	require.Nil(t, aerr)
	require.Equal(t, "user-1", out.Claims.Sub)
}

func TestAuthorizePanicIsRecovered(t *testing.T) {
	svc, sign := newTestAuthorize(t)

	variant := AuthorizeVariant{
		Name:    "api",
		Decrypt: func(string) (string, error) { panic("boom") },
	}
	out, aerr := svc.Authorize(context.Background(), variant, validParams(sign("jti-panic", ""), ""))
	require.Nil(t, out)
	require.NotNil(t, aerr)
	require.Equal(t, CodePipelineFailure, aerr.Code)
	require.False(t, aerr.ToClient)
}

func TestAuthorizeBadSignatureGoesToClient(t *testing.T) {
	svc, _ := newTestAuthorize(t)

	// signed by a key the JWKS does not publish
	other := newTestKey(t)
	jws := signJAR(t, other, validJARClaims("jti-sig", "st"))

	out, aerr := svc.Authorize(context.Background(), AuthorizeVariant{Name: "frontend"}, validParams(jws, "st"))
	require.Nil(t, out)
	require.NotNil(t, aerr)
	require.Equal(t, CodeSignatureInvalid, aerr.Code)
	require.Equal(t, CategoryAccessDenied, aerr.Category)
	require.True(t, aerr.ToClient)
}
