package domain

import "strings"

// Client is a registered relying party, loaded from the client registry.
// Lookup by ClientID is case-sensitive.
type Client struct {
	ClientID             string   `json:"client_id"`
	ClientName           string   `json:"client_name"`
	Scope                string   `json:"scope"` // space-delimited allowed scopes
	RedirectURIs         []string `json:"redirect_uris"`
	JWKSURI              string   `json:"jwks_uri"`
	ConsiderUserLoggedIn bool     `json:"consider_user_logged_in,omitempty"`
}

// AllowedScopes splits the client's scope string into individual scopes.
func (c Client) AllowedScopes() []string {
	return strings.Fields(c.Scope)
}

// AllowsScope reports whether scope is one of the client's allowed scopes.
func (c Client) AllowsScope(scope string) bool {
	for _, s := range c.AllowedScopes() {
		if s == scope {
			return true
		}
	}
	return false
}

// AllowsRedirectURI reports whether uri is registered for the client.
func (c Client) AllowsRedirectURI(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}
