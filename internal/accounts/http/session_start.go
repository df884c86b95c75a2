package http

import (
	"net/http"
	"time"

	"github.com/govsignin/accountsvc/internal/accounts/service"
	"github.com/govsignin/accountsvc/pkg/slogx"
)

// StartSessionHandler promotes the single-use api session delivered by the
// authorize redirect into a frontend session and hands the browser to the
// journey for the claims' scope.
type StartSessionHandler struct {
	Sessions     *service.SessionService
	ErrorPageURL string
	CookieDomain string
}

// ServeHTTP godoc
//
//	@Summary		Start a frontend session
//	@Description	Promotes the api session cookie to a frontend session cookie, deleting the api session,
//	@Description	and redirects into the first journey step for the session's scope.
//	@Tags			Sessions
//	@Success		302	"Redirect into the journey, or to the error page"
//	@Router			/frontend/start-session [get]
func (h *StartSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	toErrorPage := func(code string) {
		redirectWithError(w, r, &service.AuthorizeError{
			Category: service.CategoryInvalidRequest,
			Code:     code,
		}, h.ErrorPageURL)
	}

	cookie, err := r.Cookie(apiSessionCookie)
	if err != nil || cookie.Value == "" {
		toErrorPage(service.CodeJourneyClaimsMissing)
		return
	}

	session, err := h.Sessions.Promote(ctx, cookie.Value)
	if err != nil {
		log.Warn("session promotion failed", "error", err)
		toErrorPage(service.CodeJourneyClaimsMissing)
		return
	}

	path, ok := service.InitialJourneyPath(session.Claims.Scope)
	if !ok {
		toErrorPage(service.CodeJourneyClaimsMissing)
		return
	}

	// expire the consumed api session cookie
	http.SetCookie(w, &http.Cookie{
		Name:     apiSessionCookie,
		Value:    "",
		Domain:   h.CookieDomain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID,
		Domain:   h.CookieDomain,
		Path:     "/",
		MaxAge:   int(time.Until(time.Unix(session.ExpiresAt, 0)).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, path, http.StatusFound)
}
