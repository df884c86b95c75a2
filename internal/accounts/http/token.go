package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/govsignin/accountsvc/internal/accounts/service"
	"github.com/govsignin/accountsvc/pkg/httpx"
)

// TokenHandler serves POST /token. Accepts
// application/x-www-form-urlencoded per RFC 6749.
type TokenHandler struct {
	Tokens *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Token Endpoint
//	@Description	Redeems a one-time authorization code for an opaque bearer access token.
//	@Description	Clients authenticate with a private_key_jwt client assertion verified against their JWKS.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type				formData	string	true	"Must be authorization_code"
//	@Param			code					formData	string	true	"Authorization code"
//	@Param			redirect_uri			formData	string	true	"Redirect URI the code was issued for"
//	@Param			client_assertion_type	formData	string	true	"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
//	@Param			client_assertion		formData	string	true	"Signed client assertion"
//	@Success		200	{object}	service.TokenResponse
//	@Failure		400	{object}	ErrorResponse
//	@Router			/token [post]
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            string(service.CategoryInvalidRequest),
			ErrorDescription: service.CodeUnsupportedGrant,
		})
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            string(service.CategoryInvalidRequest),
			ErrorDescription: service.CodeUnsupportedGrant,
		})
		return
	}

	req := service.TokenRequest{
		GrantType:           strings.TrimSpace(r.Form.Get("grant_type")),
		Code:                strings.TrimSpace(r.Form.Get("code")),
		RedirectURI:         strings.TrimSpace(r.Form.Get("redirect_uri")),
		ClientAssertionType: strings.TrimSpace(r.Form.Get("client_assertion_type")),
		ClientAssertion:     strings.TrimSpace(r.Form.Get("client_assertion")),
	}

	resp, err := h.Tokens.Exchange(r.Context(), req)
	if err != nil {
		var f *service.Failure
		if errors.As(err, &f) {
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
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
	httpx.WriteJSON(w, http.StatusOK, resp)
}
