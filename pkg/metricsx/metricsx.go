// Package metricsx defines the service's Prometheus metrics. Every failure
// branch in the authorize pipeline increments its own named counter so
// operators can tell a replay from a signature failure from an outage
// without reading logs.
package metricsx

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AuthorizeFailures counts authorize pipeline failures by classification
	// (e.g. "JwksFetchTimeout", "SignatureVerificationFailed",
	// "RequestObjectAlreadyUsed").
	AuthorizeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accountsvc_authorize_failures_total",
		Help: "Authorize pipeline failures by classification.",
	}, []string{"reason"})

	// ClaimsDiscrepancies counts individual claims-schema violations by field
	// (e.g. "ClientIdDiscrepancy", "ScopeDiscrepancy"). One payload can
	// increment several of these; that is deliberate.
	ClaimsDiscrepancies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accountsvc_claims_discrepancies_total",
		Help: "Request object claim validation discrepancies by field.",
	}, []string{"field"})

	// SessionsCreated counts API sessions created by a successful authorize.
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accountsvc_api_sessions_created_total",
		Help: "API sessions created after successful request object verification.",
	})

	// SessionsPromoted counts API sessions promoted to frontend sessions.
	SessionsPromoted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accountsvc_sessions_promoted_total",
		Help: "API sessions promoted to frontend sessions.",
	})

	// JourneysCompleted counts successfully completed journeys by scope.
	JourneysCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accountsvc_journeys_completed_total",
		Help: "Completed journeys by scope.",
	}, []string{"scope"})

	// JourneyCompletionFailures counts journeys that could not be persisted.
	JourneyCompletionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accountsvc_journey_completion_failures_total",
		Help: "Journey completions that failed to persist outcome and auth code.",
	})

	// TokenExchangeFailures counts token endpoint failures by reason.
	TokenExchangeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accountsvc_token_exchange_failures_total",
		Help: "Token endpoint failures by reason.",
	}, []string{"reason"})
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
