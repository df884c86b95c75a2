package service

import (
	"context"
	"errors"
	"net/url"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
	"github.com/govsignin/accountsvc/internal/accounts/registry"
	"github.com/govsignin/accountsvc/pkg/metricsx"
	"github.com/govsignin/accountsvc/pkg/slogx"
)

// AuthorizeService runs the authorize pipeline: parameter validation,
// client lookup, optional request-object decryption, JWT verification,
// claims validation, then the atomic replay-check plus session creation.
type AuthorizeService struct {
	Registry *registry.Registry
	Verifier *VerifierService
	Sessions *SessionService
}

// AuthorizeParams are the raw authorize query parameters.
type AuthorizeParams struct {
	ClientID     string
	RedirectURI  string
	Scope        string
	ResponseType string
	Request      string
	State        string
}

// AuthorizeVariant parameterizes the pipeline. The API variant receives the
// request object encrypted and supplies Decrypt; the frontend variant
// consumes the JWS directly and leaves it nil.
type AuthorizeVariant struct {
	Name    string
	Decrypt func(compact string) (string, error)
}

// AuthorizeOutcome is the success result. The caller builds the redirect
// (API variant) or dispatches into the journey (frontend variant) from it.
type AuthorizeOutcome struct {
	SessionID string
	Claims    domain.RequestObjectClaims
	Client    domain.Client
	State     string
}

// AuthorizeError is a terminal pipeline failure. When ToClient is false the
// client's redirect_uri is not yet trusted and the failure goes to the
// operator-controlled fallback error page instead.
type AuthorizeError struct {
	Category    Category
	Code        string
	ToClient    bool
	RedirectURI string
	State       string
}

// Authorize runs the pipeline to completion. A panic anywhere inside is
// caught, logged and converted into the fallback-error-page response; the
// pipeline never propagates a panic to the HTTP server.
func (s *AuthorizeService) Authorize(ctx context.Context, variant AuthorizeVariant, params AuthorizeParams) (out *AuthorizeOutcome, aerr *AuthorizeError) {
	log := slogx.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("authorize pipeline panic", "variant", variant.Name, "panic", r)
			metricsx.AuthorizeFailures.WithLabelValues("UnhandledPipelineFailure").Inc()
			out = nil
			aerr = &AuthorizeError{Category: CategoryInvalidRequest, Code: CodePipelineFailure}
		}
	}()

	// Step 1: parameter validation. The redirect_uri cannot be trusted yet,
	// so every failure here lands on the fallback error page.
	if err := validateParams(params); err != nil {
		log.Warn("authorize rejected", "variant", variant.Name, "step", "params", "error", err)
		metricsx.AuthorizeFailures.WithLabelValues("MalformedQueryParams").Inc()
		return nil, &AuthorizeError{Category: CategoryInvalidRequest, Code: CodeMalformedQuery}
	}

	// Step 2: client lookup, and the redirect_uri must be registered for it.
	client, ok := s.Registry.Lookup(params.ClientID)
	if !ok {
		log.Warn("authorize rejected", "variant", variant.Name, "step", "client", "client_id", params.ClientID)
		metricsx.AuthorizeFailures.WithLabelValues("UnknownClient").Inc()
		return nil, &AuthorizeError{Category: CategoryUnauthorizedClient, Code: CodeUnknownClient}
	}
	if !client.AllowsRedirectURI(params.RedirectURI) {
		log.Warn("authorize rejected", "variant", variant.Name, "step", "redirect_uri", "client_id", params.ClientID)
		metricsx.AuthorizeFailures.WithLabelValues("MalformedQueryParams").Inc()
		return nil, &AuthorizeError{Category: CategoryInvalidRequest, Code: CodeMalformedQuery}
	}

	// From here the redirect_uri is validated and errors go to the client.
	toClient := func(cat Category, code string) *AuthorizeError {
		return &AuthorizeError{
			Category:    cat,
			Code:        code,
			ToClient:    true,
			RedirectURI: params.RedirectURI,
			State:       params.State,
		}
	}

	// Step 3: decrypt the request object when this variant carries it
	// encrypted.
	compact := params.Request
	if variant.Decrypt != nil {
		jws, err := variant.Decrypt(compact)
		if err != nil {
			log.Warn("request object decryption failed", "client_id", client.ClientID, "error", err)
			metricsx.AuthorizeFailures.WithLabelValues("DecryptionFailed").Inc()
			return nil, toClient(CategoryInvalidRequest, CodeDecryptionFailed)
		}
		compact = jws
	}

	// Step 4: signature verification and claims schema validation.
	claims, err := s.Verifier.VerifyRequestObject(ctx, compact, client, params.RedirectURI, params.State)
	if err != nil {
		var f *Failure
		if errors.As(err, &f) {
			return nil, toClient(f.Category, f.Code)
		}
		return nil, toClient(CategoryServerError, CodeUnknownError)
	}

	// The validated redirect_uri travels with the claims so downstream
	// journey steps know where completion redirects go.
	claims.RedirectURI = params.RedirectURI

	// Step 5: burn the nonce and create the api session atomically.
	sessionID, err := s.Sessions.CheckReplayAndCreateSession(ctx, claims)
	if err != nil {
		var f *Failure
		if errors.As(err, &f) {
			return nil, toClient(f.Category, f.Code)
		}
		return nil, toClient(CategoryServerError, CodeSessionCreateFailed)
	}

	log.Info("authorize accepted",
		"variant", variant.Name,
		"client_id", client.ClientID,
		"scope", claims.Scope,
	)
	return &AuthorizeOutcome{
		SessionID: sessionID,
		Claims:    claims,
		Client:    client,
		State:     params.State,
	}, nil
}

func validateParams(p AuthorizeParams) error {
	if p.ClientID == "" {
		return errors.New("client_id is required")
	}
	if p.Request == "" {
		return errors.New("request is required")
	}
	if p.ResponseType != "code" {
		return errors.New("response_type must be code")
	}
	if p.Scope == "" {
		return errors.New("scope is required")
	}
	u, err := url.Parse(p.RedirectURI)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.New("redirect_uri must be an absolute URL")
	}
	return nil
}
