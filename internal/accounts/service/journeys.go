package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/internal/accounts/registry"
	"github.com/govsignin/accountsvc/pkg/slogx"
)

// State and Event drive the per-journey machines. Snapshots persist the
// state name as a plain string so resumption is just JSON decoding.
type (
	State string
	Event string
)

const (
	EventContinue Event = "continue"
	EventConfirm  Event = "confirm"
)

// JourneyDefinition is an explicit state/transition table for one journey
// scope. Paths lists the legal URL paths per state; the first entry is the
// canonical path users are redirected to when they deep-link out of order.
type JourneyDefinition struct {
	Scope       string
	Initial     State
	Final       State
	Transitions map[State]map[Event]State
	Paths       map[State][]string
}

// otherPaths are legal in every state of every journey.
var otherPaths = []string{
	"/frontend/error",
	"/frontend/cookies",
	"/frontend/signed-out",
}

var journeyDefinitions = map[string]*JourneyDefinition{
	domain.ScopeAccountDelete: {
		Scope:   domain.ScopeAccountDelete,
		Initial: "confirm-deletion",
		Final:   "deletion-done",
		Transitions: map[State]map[Event]State{
			"confirm-deletion": {EventConfirm: "deletion-done"},
		},
		Paths: map[State][]string{
			"confirm-deletion": {"/frontend/account-delete/confirm"},
			"deletion-done":    {"/frontend/account-delete/done"},
		},
	},
	domain.ScopePasskeyCreate: {
		Scope:   domain.ScopePasskeyCreate,
		Initial: "passkey-intro",
		Final:   "passkey-created",
		Transitions: map[State]map[Event]State{
			"passkey-intro": {EventConfirm: "passkey-created"},
		},
		Paths: map[State][]string{
			"passkey-intro":   {"/frontend/passkey-create/intro"},
			"passkey-created": {"/frontend/passkey-create/done"},
		},
	},
	domain.ScopeTestingJourney: {
		Scope:   domain.ScopeTestingJourney,
		Initial: "testing-start",
		Final:   "testing-done",
		Transitions: map[State]map[Event]State{
			"testing-start":  {EventContinue: "testing-middle"},
			"testing-middle": {EventContinue: "testing-done"},
		},
		Paths: map[State][]string{
			"testing-start":  {"/frontend/testing/start"},
			"testing-middle": {"/frontend/testing/middle"},
			"testing-done":   {"/frontend/testing/done"},
		},
	},
}

// CanonicalPath returns the first legal path for a state.
func (d *JourneyDefinition) CanonicalPath(state string) string {
	paths := d.Paths[State(state)]
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

// UtilityPath reports whether path is one of the pages reachable in every
// state, session or not. The error page in particular must render without
// a session or failed sessions would redirect to it forever.
func UtilityPath(path string) bool {
	for _, p := range otherPaths {
		if p == path {
			return true
		}
	}
	return false
}

// InitialJourneyPath returns the entry path for a journey scope.
func InitialJourneyPath(scope string) (string, bool) {
	def, ok := journeyDefinitions[scope]
	if !ok {
		return "", false
	}
	return def.CanonicalPath(string(def.Initial)), true
}

// JourneyService gates every journey-scoped request against the state
// machine for the session's scope and keeps the persisted snapshot current.
type JourneyService struct {
	Registry *registry.Registry
	Sessions *SessionService
}

// GateResult tells the handler how to proceed. A non-empty RedirectTo means
// the browser asked for a path that is not legal in the current state and
// must be redirected before anything else happens.
type GateResult struct {
	RedirectTo string
	Definition *JourneyDefinition
	Snapshot   domain.JourneySnapshot
	Client     domain.Client
}

// Gate runs the per-request journey checks: claims present, client still
// registered, journey claims intact, snapshot resumable, path legal for the
// current state. The (possibly newly created) snapshot is persisted back
// into the session before returning so the next request resumes correctly.
// An empty path skips the path check; event posts rely on the transition
// table to reject out-of-order requests instead.
func (s *JourneyService) Gate(ctx context.Context, session *domain.FrontendSession, path string) (*GateResult, *AuthorizeError) {
	log := slogx.FromContext(ctx)

	if session == nil || session.Claims == nil {
		return nil, &AuthorizeError{Category: CategoryInvalidRequest, Code: CodeJourneyClaimsMissing}
	}
	claims := *session.Claims

	client, ok := s.Registry.Lookup(claims.ClientID)
	if !ok {
		log.Warn("journey client no longer registered", "client_id", claims.ClientID)
		return nil, &AuthorizeError{Category: CategoryUnauthorizedClient, Code: CodeUnknownClient}
	}

	if err := requireJourneyClaims(claims); err != nil {
		log.Warn("journey claims incomplete", "client_id", claims.ClientID, "error", err)
		return nil, &AuthorizeError{Category: CategoryInvalidRequest, Code: CodeJourneyClaimsMissing}
	}

	def, ok := journeyDefinitions[claims.Scope]
	if !ok {
		return nil, &AuthorizeError{Category: CategoryInvalidRequest, Code: CodeJourneyClaimsMissing}
	}

	// At this point the client redirect_uri is known and trusted, so
	// snapshot failures can be reported to the client directly.
	snapshotError := func(cause string) *AuthorizeError {
		log.Error("journey snapshot restore failed", "client_id", claims.ClientID, "cause", cause)
		return &AuthorizeError{
			Category:    CategoryServerError,
			Code:        CodeSnapshotRestoreFailed,
			ToClient:    true,
			RedirectURI: journeyRedirectURI(client, claims),
			State:       claims.State,
		}
	}

	snapshot, err := resumeSnapshot(def, session.Journey)
	if err != nil {
		return nil, snapshotError(err.Error())
	}

	result := &GateResult{Definition: def, Snapshot: snapshot, Client: client}

	if path != "" && !pathLegal(def, snapshot.State, path) {
		result.RedirectTo = def.Paths[State(snapshot.State)][0]
	}

	session.Journey = &snapshot
	if err := s.Sessions.Set(ctx, session.ID, session); err != nil {
		return nil, snapshotError(fmt.Sprintf("persist snapshot: %v", err))
	}

	return result, nil
}

// Advance applies event to the session's journey and persists the new
// snapshot. It reports whether the machine reached its final state.
func (s *JourneyService) Advance(ctx context.Context, session *domain.FrontendSession, event Event) (domain.JourneySnapshot, bool, error) {
	if session == nil || session.Claims == nil || session.Journey == nil {
		return domain.JourneySnapshot{}, false, errors.New("no journey in session")
	}

	def, ok := journeyDefinitions[session.Journey.Scope]
	if !ok {
		return domain.JourneySnapshot{}, false, fmt.Errorf("unknown journey scope %q", session.Journey.Scope)
	}

	current := State(session.Journey.State)
	next, ok := def.Transitions[current][event]
	if !ok {
		return domain.JourneySnapshot{}, false, fmt.Errorf("event %q not allowed in state %q", event, current)
	}

	snapshot := *session.Journey
	snapshot.State = string(next)
	session.Journey = &snapshot

	if err := s.Sessions.Set(ctx, session.ID, session); err != nil {
		return domain.JourneySnapshot{}, false, fmt.Errorf("persist snapshot: %w", err)
	}
	return snapshot, next == def.Final, nil
}

// resumeSnapshot restores the persisted snapshot or creates a fresh one at
// the journey's initial state. A snapshot with the wrong scope or an
// unknown state is malformed.
func resumeSnapshot(def *JourneyDefinition, persisted *domain.JourneySnapshot) (domain.JourneySnapshot, error) {
	if persisted == nil {
		return domain.JourneySnapshot{Scope: def.Scope, State: string(def.Initial)}, nil
	}
	if persisted.Scope != def.Scope {
		return domain.JourneySnapshot{}, fmt.Errorf("snapshot scope %q does not match journey %q", persisted.Scope, def.Scope)
	}
	if _, ok := def.Paths[State(persisted.State)]; !ok {
		return domain.JourneySnapshot{}, fmt.Errorf("snapshot state %q unknown", persisted.State)
	}
	return *persisted, nil
}

func pathLegal(def *JourneyDefinition, state, path string) bool {
	for _, p := range def.Paths[State(state)] {
		if p == path {
			return true
		}
	}
	for _, p := range otherPaths {
		if p == path {
			return true
		}
	}
	return false
}

func requireJourneyClaims(claims domain.RequestObjectClaims) error {
	for _, field := range journeyRequiredClaims[claims.Scope] {
		var val string
		switch field {
		case "sub":
			val = claims.Sub
		case "email":
			val = claims.Email
		case "access_token":
			val = claims.AccessToken
		case "govuk_signin_journey_id":
			val = claims.GovUKSigninJourneyID
		}
		if val == "" {
			return fmt.Errorf("claim %s missing", field)
		}
	}
	return nil
}

// journeyRedirectURI picks the client redirect target for post-trust journey
// failures: the redirect_uri validated at authorize time, falling back to
// the client's first registered URI.
func journeyRedirectURI(client domain.Client, claims domain.RequestObjectClaims) string {
	if claims.RedirectURI != "" {
		return claims.RedirectURI
	}
	if len(client.RedirectURIs) > 0 {
		return client.RedirectURIs[0]
	}
	return ""
}
