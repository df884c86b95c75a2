package http

import (
	"net/http"
	"net/url"

	"github.com/govsignin/accountsvc/internal/accounts/service"
)

// ErrorResponse is the JSON error body of the token and journey-outcome
// endpoints.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// HealthResponse is returned by the health probe endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Registry string `json:"registry"`
}

// redirectWithError sends the browser to the right place for a failed
// authorize or journey step: the client's validated redirect_uri when the
// failure is post-trust, otherwise the operator-controlled error page.
func redirectWithError(w http.ResponseWriter, r *http.Request, aerr *service.AuthorizeError, errorPageURL string) {
	target := errorPageURL
	if aerr.ToClient && aerr.RedirectURI != "" {
		target = aerr.RedirectURI
	}

	u, err := url.Parse(target)
	if err != nil {
		http.Error(w, "configuration error", http.StatusInternalServerError)
		return
	}
	q := u.Query()
	q.Set("error", string(aerr.Category))
	q.Set("error_description", aerr.Code)
	if aerr.ToClient && aerr.State != "" {
		q.Set("state", aerr.State)
	}
	u.RawQuery = q.Encode()

	http.Redirect(w, r, u.String(), http.StatusFound)
}
