package http

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/require"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/internal/accounts/registry"
	"github.com/govsignin/accountsvc/internal/accounts/service"
	"github.com/govsignin/accountsvc/internal/accounts/store"
	"github.com/govsignin/accountsvc/internal/accounts/store/drivers/sqlite"
	"github.com/govsignin/accountsvc/pkg/jwtx"
	"github.com/govsignin/accountsvc/pkg/slogx"
)

const (
	testAuthorizeURL = "https://accounts.example/authorize"
	testTokenURL     = "https://accounts.example/token"
	testRedirectURI  = "https://client-a.example/callback"
	testKid          = "test-key-1"
)

// routerFixture wires the full router over an in-memory store, a JWKS
// server for one registered client, and a fresh request-object
// encryption key.
type routerFixture struct {
	srv *httptest.Server

	store  store.Store
	client domain.Client

	// clientKey signs request objects and client assertions; encKey is
	// the service-side key encrypted request objects are wrapped to.
	clientKey *rsa.PrivateKey
	encKey    *rsa.PrivateKey
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clientKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	encKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	reg, client := newTestRegistry(t, clientKey)

	keys, err := jwtx.NewRemoteKeySets(context.Background(), 5*time.Second, 0, 0)
	require.NoError(t, err)
	verifier := &jwtx.Verifier{Keys: keys}

	sessions := &service.SessionService{
		Store:         st,
		NonceTTL:      15 * time.Minute,
		APISessionTTL: 5 * time.Minute,
	}

	router := NewRouter("test", st, reg, slogx.Discard())
	router.EncryptionKey = encKey
	router.StartSessionURL = "/frontend/start-session"
	router.ErrorPageURL = "/frontend/error"

	router.SessionService = sessions
	router.AuthorizeService = &service.AuthorizeService{
		Registry: reg,
		Verifier: &service.VerifierService{
			Verifier:     verifier,
			AuthorizeURL: testAuthorizeURL,
		},
		Sessions: sessions,
	}
	router.JourneyService = &service.JourneyService{
		Registry: reg,
		Sessions: sessions,
	}
	router.CompletionService = &service.CompletionService{
		Store:       st,
		OutcomeTTL:  30 * time.Minute,
		AuthCodeTTL: 5 * time.Minute,
	}
	router.TokenService = &service.TokenService{
		Store:          st,
		Registry:       reg,
		Verifier:       verifier,
		TokenURL:       testTokenURL,
		AccessTokenTTL: 10 * time.Minute,
	}
	router.OutcomeService = &service.OutcomeService{Store: st}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &routerFixture{
		srv:       srv,
		store:     st,
		client:    client,
		clientKey: clientKey,
		encKey:    encKey,
	}
}

func newTestRegistry(t *testing.T, key *rsa.PrivateKey) (*registry.Registry, domain.Client) {
	t.Helper()

	set := jwk.NewSet()
	pub, err := jwk.Import(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, testKid))
	require.NoError(t, pub.Set(jwk.AlgorithmKey, "RS256"))
	require.NoError(t, set.AddKey(pub))

	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		buf, err := json.Marshal(set)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(buf)
	}))
	t.Cleanup(jwks.Close)

	client := domain.Client{
		ClientID:     "client-a",
		ClientName:   "Client A",
		Scope:        "am-account-delete am-passkey-create am-testing-journey",
		RedirectURIs: []string{testRedirectURI},
		JWKSURI:      jwks.URL,
	}

	buf, err := json.Marshal([]domain.Client{client})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "clients.json")
	require.NoError(t, os.WriteFile(path, buf, 0o600))

	reg, err := registry.Load(path)
	require.NoError(t, err)
	return reg, client
}

func (f *routerFixture) signJAR(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid
	signed, err := token.SignedString(f.clientKey)
	require.NoError(t, err)
	return signed
}

// encryptJAR wraps the signed request object in a JWE addressed to the
// service's encryption key, the form the api authorize variant expects.
func (f *routerFixture) encryptJAR(t *testing.T, signed string) string {
	t.Helper()

	enc, err := jose.NewEncrypter(
		jose.A128CBC_HS256,
		jose.Recipient{Algorithm: jose.RSA_OAEP, Key: &f.encKey.PublicKey},
		nil,
	)
	require.NoError(t, err)

	obj, err := enc.Encrypt([]byte(signed))
	require.NoError(t, err)
	compact, err := obj.CompactSerialize()
	require.NoError(t, err)
	return compact
}

func (f *routerFixture) jarClaims(jti, state string) jwt.MapClaims {
	return jwt.MapClaims{
		"client_id":               "client-a",
		"iss":                     "client-a",
		"aud":                     testAuthorizeURL,
		"response_type":           "code",
		"scope":                   domain.ScopeAccountDelete,
		"state":                   state,
		"jti":                     jti,
		"sub":                     "user-1",
		"email":                   "user@example.com",
		"access_token":            f.userAccessToken(time.Now().Add(45 * time.Minute)),
		"govuk_signin_journey_id": "journey-123",
		"iat":                     time.Now().Add(-time.Minute).Unix(),
		"exp":                     time.Now().Add(5 * time.Minute).Unix(),
	}
}

// userAccessToken fakes the upstream access token whose exp drives the
// frontend session expiry. Only its exp claim matters here.
func (f *routerFixture) userAccessToken(exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	signed, _ := token.SignedString([]byte("test-secret"))
	return signed
}

func (f *routerFixture) clientAssertion(t *testing.T) string {
	t.Helper()

	return f.signJAR(t, jwt.MapClaims{
		"iss": "client-a",
		"sub": "client-a",
		"aud": testTokenURL,
		"jti": "assertion-" + time.Now().Format(time.RFC3339Nano),
		"iat": time.Now().Add(-time.Minute).Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	})
}

func (f *routerFixture) authorizeQuery(request, state string) url.Values {
	return url.Values{
		"client_id":     {"client-a"},
		"redirect_uri":  {testRedirectURI},
		"scope":         {domain.ScopeAccountDelete},
		"response_type": {"code"},
		"state":         {state},
		"request":       {request},
	}
}

// noRedirect issues the request without following redirects, carrying the
// given cookies. Session cookies are Secure so the default jar would drop
// them over the test server's plain http.
func (f *routerFixture) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	for _, c := range cookies {
		req.AddCookie(c)
	}

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *routerFixture) get(t *testing.T, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	require.NoError(t, err)
	return f.do(t, req, cookies...)
}

func (f *routerFixture) postForm(t *testing.T, path string, form url.Values, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(t, req, cookies...)
}

func cookieNamed(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()

	for _, c := range resp.Cookies() {
		if c.Name == name && c.Value != "" {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", name)
	return nil
}

func locationURL(t *testing.T, resp *http.Response) *url.URL {
	t.Helper()

	require.Equal(t, http.StatusFound, resp.StatusCode)
	u, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return u
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v))
}
