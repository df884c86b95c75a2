package http

import (
	"net/http"
	"net/url"
	"time"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/internal/accounts/service"
	"github.com/govsignin/accountsvc/pkg/httpx"
	"github.com/govsignin/accountsvc/pkg/slogx"
)

// JourneyHandler serves the journey pages and event posts. Every request is
// gated against the session's state machine; rendering is a minimal JSON
// page descriptor, the visual layer lives elsewhere.
type JourneyHandler struct {
	Sessions   *service.SessionService
	Journeys   *service.JourneyService
	Completion *service.CompletionService

	ErrorPageURL string
	CookieDomain string
}

// journeyPage describes the current step to the rendering layer.
type journeyPage struct {
	Journey    string   `json:"journey"`
	State      string   `json:"state"`
	Path       string   `json:"path"`
	LegalPaths []string `json:"legal_paths"`
}

func (h *JourneyHandler) session(r *http.Request) *domain.FrontendSession {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	session, err := h.Sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		slogx.FromContext(r.Context()).Error("session load failed", "error", err)
		return nil
	}
	return session
}

// HandlePage godoc
//
//	@Summary		Journey step page
//	@Description	Gated journey page. Requests for a path that is not legal in the machine's current state
//	@Description	are redirected to the canonical path for that state.
//	@Tags			Journeys
//	@Produce		json
//	@Success		200	{object}	journeyPage
//	@Success		302	"Redirect to the canonical path, the client, or the error page"
//	@Router			/frontend/{journey}/{step} [get]
func (h *JourneyHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	// the error, cookies and signed-out pages render for everyone
	if service.UtilityPath(r.URL.Path) {
		httpx.WriteJSON(w, http.StatusOK, journeyPage{Path: r.URL.Path})
		return
	}

	session := h.session(r)

	result, aerr := h.Journeys.Gate(r.Context(), session, r.URL.Path)
	if aerr != nil {
		redirectWithError(w, r, aerr, h.ErrorPageURL)
		return
	}
	if result.RedirectTo != "" {
		http.Redirect(w, r, result.RedirectTo, http.StatusFound)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, journeyPage{
		Journey:    result.Definition.Scope,
		State:      result.Snapshot.State,
		Path:       r.URL.Path,
		LegalPaths: result.Definition.Paths[service.State(result.Snapshot.State)],
	})
}

// HandleEvent godoc
//
//	@Summary		Advance a journey
//	@Description	Applies the posted event to the session's state machine. Reaching the final state completes
//	@Description	the journey: the outcome and a one-time authorization code are written atomically and the
//	@Description	browser is redirected to the client with code and state.
//	@Tags			Journeys
//	@Accept			application/x-www-form-urlencoded
//	@Param			event	formData	string	false	"Event name (continue or confirm), defaults to continue"
//	@Success		302	"Redirect to the next step or to the client redirect_uri"
//	@Router			/frontend/{journey}/continue [post]
func (h *JourneyHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	session := h.session(r)

	result, aerr := h.Journeys.Gate(ctx, session, "")
	if aerr != nil {
		redirectWithError(w, r, aerr, h.ErrorPageURL)
		return
	}

	var event service.Event
	switch raw := r.FormValue("event"); raw {
	case "", string(service.EventContinue):
		event = service.EventContinue
	case string(service.EventConfirm):
		event = service.EventConfirm
	default:
		// an unknown event gets the same treatment as an illegal one:
		// back to the current step, no state change
		log.Warn("journey event unrecognized", "event", raw)
		http.Redirect(w, r, result.Definition.CanonicalPath(result.Snapshot.State), http.StatusFound)
		return
	}

	snapshot, final, err := h.Journeys.Advance(ctx, session, event)
	if err != nil {
		// an illegal event is an out-of-order browser, not an outage:
		// send it back to the current step
		log.Warn("journey event rejected", "event", event, "error", err)
		http.Redirect(w, r, result.Definition.CanonicalPath(result.Snapshot.State), http.StatusFound)
		return
	}

	if !final {
		http.Redirect(w, r, result.Definition.CanonicalPath(snapshot.State), http.StatusFound)
		return
	}

	h.complete(w, r, session, result)
}

func (h *JourneyHandler) complete(w http.ResponseWriter, r *http.Request, session *domain.FrontendSession, result *service.GateResult) {
	ctx := r.Context()
	claims := *session.Claims

	steps := []domain.JourneyStep{{
		Journey:   claims.Scope,
		Timestamp: time.Now().Unix(),
		Success:   true,
	}}

	redirect, err := h.Completion.CompleteJourney(ctx, claims, steps, true)
	if err != nil {
		redirectWithError(w, r, &service.AuthorizeError{
			Category:    service.CategoryServerError,
			Code:        service.CodeCompletionFailed,
			ToClient:    true,
			RedirectURI: claims.RedirectURI,
			State:       claims.State,
		}, h.ErrorPageURL)
		return
	}

	// the journey is over; the session has served its purpose
	if err := h.Sessions.Destroy(ctx, session.ID); err != nil {
		slogx.FromContext(ctx).Warn("session destroy failed", "error", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Domain:   h.CookieDomain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	u, err := url.Parse(redirect.RedirectURI)
	if err != nil {
		http.Error(w, "configuration error", http.StatusInternalServerError)
		return
	}
	q := u.Query()
	q.Set("code", redirect.Code)
	if redirect.State != "" {
		q.Set("state", redirect.State)
	}
	u.RawQuery = q.Encode()

	http.Redirect(w, r, u.String(), http.StatusFound)
}
