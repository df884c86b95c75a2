package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/require"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/internal/accounts/registry"
	"github.com/govsignin/accountsvc/internal/accounts/store"
	"github.com/govsignin/accountsvc/internal/accounts/store/drivers/sqlite"
	"github.com/govsignin/accountsvc/pkg/jwtx"
)

const (
	testAuthorizeURL = "https://accounts.example/authorize"
	testRedirectURI  = "https://client-a.example/callback"
	testKid          = "test-key-1"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newTestClientSetup spins up a JWKS server publishing the given key and a
// registry containing one client bound to it.
func newTestClientSetup(t *testing.T, key *rsa.PrivateKey) (*registry.Registry, domain.Client) {
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

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func signJAR(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func validJARClaims(jti, state string) jwt.MapClaims {
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
		"access_token":            signAccessToken(time.Now().Add(45 * time.Minute)),
		"govuk_signin_journey_id": "journey-123",
		"iat":                     time.Now().Add(-time.Minute).Unix(),
		"exp":                     time.Now().Add(5 * time.Minute).Unix(),
	}
}

// signAccessToken builds an unsigned-verification-irrelevant JWT whose exp
// drives the frontend session expiry derivation.
func signAccessToken(exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	signed, _ := token.SignedString([]byte("test-secret"))
	return signed
}

func newTestVerifier(t *testing.T) *VerifierService {
	t.Helper()

	keys, err := jwtx.NewRemoteKeySets(context.Background(), 5*time.Second, 0, 0)
	require.NoError(t, err)
	return &VerifierService{
		Verifier:     &jwtx.Verifier{Keys: keys},
		AuthorizeURL: testAuthorizeURL,
	}
}

func newTestSessions(st store.Store) *SessionService {
	return &SessionService{
		Store:         st,
		NonceTTL:      15 * time.Minute,
		APISessionTTL: 5 * time.Minute,
	}
}
