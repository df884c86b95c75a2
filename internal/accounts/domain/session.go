package domain

// APISession bridges the authorize step to the frontend session-start step.
// It is single-use: promotion to a frontend session deletes it.
type APISession struct {
	ID        string
	Claims    RequestObjectClaims
	ExpiresAt int64 // unix seconds
}

// FrontendSession backs the multi-step journey UI. The journey snapshot is
// persisted inside the session so the state machine survives across requests.
type FrontendSession struct {
	ID        string               `json:"-"`
	Claims    *RequestObjectClaims `json:"claims,omitempty"`
	UserID    string               `json:"user_id,omitempty"`
	Journey   *JourneySnapshot     `json:"journey,omitempty"`
	ExpiresAt int64                `json:"expires,omitempty"` // unix seconds
}

// Expired reports whether the record is past its expiry at the given unix
// second. A record whose expiry equals now is already expired.
func (s FrontendSession) Expired(now int64) bool {
	return s.ExpiresAt <= now
}
