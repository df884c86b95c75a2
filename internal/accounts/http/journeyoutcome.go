package http

import (
	"errors"
	"net/http"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/internal/accounts/service"
	"github.com/govsignin/accountsvc/pkg/httpx"
)

// JourneyOutcomeResponse is returned to relying parties polling for the
// result of a completed account management journey.
type JourneyOutcomeResponse struct {
	Sub      string               `json:"sub"`
	Email    string               `json:"email,omitempty"`
	Scope    string               `json:"scope"`
	Success  bool                 `json:"success"`
	Journeys []domain.JourneyStep `json:"journeys"`
}

// JourneyOutcomeHandler serves GET /journey-outcome, authenticated with
// the bearer access token issued by the token endpoint.
type JourneyOutcomeHandler struct {
	Outcomes *service.OutcomeService
}

// ServeHTTP godoc
//
//	@Summary		Journey Outcome
//	@Description	Returns the recorded outcome of the journey the presented access token was issued for.
//	@Tags			OAuth2
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	JourneyOutcomeResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/journey-outcome [get]
func (h *JourneyOutcomeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := httpx.ExtractBearerToken(r)
	if token == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            string(service.CategoryInvalidRequest),
			ErrorDescription: "missing or malformed Authorization header",
		})
		return
	}

	outcome, err := h.Outcomes.GetByAccessToken(r.Context(), token)
	if err != nil {
		var f *service.Failure
		if errors.As(err, &f) && f.Category == service.CategoryNotFound {
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:            string(f.Category),
				ErrorDescription: f.Code,
			})
			return
		}
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:            string(service.CategoryServerError),
			ErrorDescription: service.CodeUnknownError,
		})
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, JourneyOutcomeResponse{
		Sub:      outcome.Sub,
		Email:    outcome.Email,
		Scope:    outcome.Scope,
		Success:  outcome.Success,
		Journeys: outcome.Journeys,
	})
}
