package domain

// JourneySnapshot is the serializable state of a journey state machine,
// stored inside the frontend session between requests.
type JourneySnapshot struct {
	Scope   string            `json:"scope"`
	State   string            `json:"state"`
	Context map[string]string `json:"context,omitempty"`
}

// JourneyStep records one completed journey inside an outcome.
type JourneyStep struct {
	Journey   string `json:"journey"`
	Timestamp int64  `json:"timestamp"`
	Success   bool   `json:"success"`
	Details   string `json:"details,omitempty"`
}

// JourneyOutcome is the record written when a journey completes, read back
// by the journey-outcome endpoint after code redemption.
type JourneyOutcome struct {
	ID        string
	Sub       string
	Email     string
	Scope     string
	Success   bool
	Journeys  []JourneyStep
	ExpiresAt int64 // unix seconds
}
