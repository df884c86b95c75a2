package http

import (
	"crypto/rsa"
	"net/http"
	"net/url"
	"time"

	"github.com/govsignin/accountsvc/internal/accounts/service"
	"github.com/govsignin/accountsvc/pkg/jwtx"
)

// Cookie names. The api session cookie bridges authorize to start-session
// and is short-lived; the session cookie backs the journey UI.
const (
	apiSessionCookie = "accountsvc_api_session"
	sessionCookie    = "accountsvc_session"
)

// AuthorizeHandler serves both authorize variants over one pipeline: the
// API variant receives the request object JWE-encrypted to this service,
// the frontend variant receives the bare JWS.
type AuthorizeHandler struct {
	Authorize *service.AuthorizeService
	Sessions  *service.SessionService

	// EncryptionKey decrypts the API variant's request objects.
	EncryptionKey *rsa.PrivateKey

	// StartSessionURL is where the API variant sends the browser next.
	StartSessionURL string
	ErrorPageURL    string
	CookieDomain    string
}

func params(r *http.Request) service.AuthorizeParams {
	q := r.URL.Query()
	return service.AuthorizeParams{
		ClientID:     q.Get("client_id"),
		RedirectURI:  q.Get("redirect_uri"),
		Scope:        q.Get("scope"),
		ResponseType: q.Get("response_type"),
		Request:      q.Get("request"),
		State:        q.Get("state"),
	}
}

// HandleAPI godoc
//
//	@Summary		Authorize (API variant)
//	@Description	Validates an encrypted signed request object (JAR), burns its jti and creates a single-use api session.
//	@Description	On success redirects to the frontend start-session endpoint with the api session cookie set.
//	@Tags			Authorize
//	@Param			client_id		query	string	true	"Client identifier"
//	@Param			redirect_uri	query	string	true	"Registered redirect URI"
//	@Param			scope			query	string	true	"Journey scope"
//	@Param			response_type	query	string	true	"Must be code"
//	@Param			request			query	string	true	"Encrypted signed request object"
//	@Param			state			query	string	false	"Opaque client state, echoed back"
//	@Success		302	"Redirect to frontend start-session, or error redirect"
//	@Router			/authorize [get]
func (h *AuthorizeHandler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	variant := service.AuthorizeVariant{
		Name: "api",
		Decrypt: func(compact string) (string, error) {
			return jwtx.DecryptJWE(compact, h.EncryptionKey)
		},
	}

	p := params(r)
	out, aerr := h.Authorize.Authorize(r.Context(), variant, p)
	if aerr != nil {
		redirectWithError(w, r, aerr, h.ErrorPageURL)
		return
	}

	h.setSessionCookie(w, apiSessionCookie, out.SessionID, h.Sessions.APISessionTTL)

	next, err := url.Parse(h.StartSessionURL)
	if err != nil {
		http.Error(w, "configuration error", http.StatusInternalServerError)
		return
	}
	q := next.Query()
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", p.RedirectURI)
	if p.State != "" {
		q.Set("state", p.State)
	}
	next.RawQuery = q.Encode()

	http.Redirect(w, r, next.String(), http.StatusFound)
}

// HandleFrontend godoc
//
//	@Summary		Authorize (frontend variant)
//	@Description	Validates a bare signed request object, creates and immediately promotes the session,
//	@Description	then dispatches straight into the journey for the requested scope.
//	@Tags			Authorize
//	@Param			client_id		query	string	true	"Client identifier"
//	@Param			redirect_uri	query	string	true	"Registered redirect URI"
//	@Param			scope			query	string	true	"Journey scope"
//	@Param			response_type	query	string	true	"Must be code"
//	@Param			request			query	string	true	"Signed request object"
//	@Param			state			query	string	false	"Opaque client state, echoed back"
//	@Success		302	"Redirect into the journey, or error redirect"
//	@Router			/frontend/authorize [get]
func (h *AuthorizeHandler) HandleFrontend(w http.ResponseWriter, r *http.Request) {
	out, aerr := h.Authorize.Authorize(r.Context(), service.AuthorizeVariant{Name: "frontend"}, params(r))
	if aerr != nil {
		redirectWithError(w, r, aerr, h.ErrorPageURL)
		return
	}

	// The frontend variant has no separate start-session hop: promote the
	// api session immediately and drop straight into the journey.
	session, err := h.Sessions.Promote(r.Context(), out.SessionID)
	if err != nil {
		redirectWithError(w, r, &service.AuthorizeError{
			Category: service.CategoryServerError,
			Code:     service.CodeSessionCreateFailed,
		}, h.ErrorPageURL)
		return
	}

	path, ok := service.InitialJourneyPath(out.Claims.Scope)
	if !ok {
		redirectWithError(w, r, &service.AuthorizeError{
			Category: service.CategoryInvalidRequest,
			Code:     service.CodeJourneyClaimsMissing,
		}, h.ErrorPageURL)
		return
	}

	h.setSessionCookie(w, sessionCookie, session.ID, time.Until(time.Unix(session.ExpiresAt, 0)))
	http.Redirect(w, r, path, http.StatusFound)
}

func (h *AuthorizeHandler) setSessionCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   h.CookieDomain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
