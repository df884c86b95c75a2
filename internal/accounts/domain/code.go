package domain

// AuthorizationCode is a one-time code issued on journey completion,
// redeemable at the token endpoint. The plaintext code is never stored, only
// its fingerprint.
type AuthorizationCode struct {
	CodeHash    string
	OutcomeID   string
	ClientID    string
	Sub         string
	RedirectURI string
	ExpiresAt   int64 // unix seconds
	Used        bool
}

// AccessToken is an opaque bearer token minted at the token endpoint, stored
// by fingerprint and pointing at the journey outcome it grants access to.
type AccessToken struct {
	TokenHash string
	OutcomeID string
	ExpiresAt int64 // unix seconds
}
