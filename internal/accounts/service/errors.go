package service

import "fmt"

// Category is the OAuth2 error category carried back to the client on the
// error redirect, per RFC 6749.
type Category string

const (
	CategoryInvalidRequest     Category = "invalid_request"
	CategoryUnauthorizedClient Category = "unauthorized_client"
	CategoryAccessDenied       Category = "access_denied"
	CategoryServerError        Category = "server_error"
)

// Stable failure codes. Integration tests and clients match on these, so
// each code identifies exactly one failure branch and must never be reused.
const (
	// Pre-trust failures, always sent to the fallback error page.
	CodeMalformedQuery  = "E1001"
	CodeUnknownClient   = "E1002"
	CodePipelineFailure = "E1003"

	// Request object verification failures.
	CodeJWKSFetchTimeout      = "E2001"
	CodeJWKSInvalid           = "E2002"
	CodeNoMatchingKey         = "E2003"
	CodeMultipleMatchingKeys  = "E2004"
	CodeKeyInvalid            = "E2005"
	CodeAlgNotAllowed         = "E2006"
	CodeSignatureMalformed    = "E2007"
	CodeSignatureInvalid      = "E2008"
	CodeTokenMalformed        = "E2009"
	CodeRequestObjectUsed     = "E2010"
	CodeTokenExpired          = "E2011"
	CodeClaimValidationFailed = "E2012"
	CodeProtocolError         = "E2013"
	CodeUnknownError          = "E2014"

	CodeClaimsSchemaFailed = "E3001"
	CodeDecryptionFailed   = "E4001"

	// Journey failures.
	CodeSnapshotRestoreFailed = "E4002"
	CodeJourneyClaimsMissing  = "E4003"
	CodeCompletionFailed      = "E5001"
	CodeSessionCreateFailed   = "E5002"

	// Token endpoint failures.
	CodeUnsupportedGrant    = "E6001"
	CodeInvalidCode         = "E6002"
	CodeRedirectURIMismatch = "E6003"
	CodeInvalidClientAssert = "E6004"

	CodeOutcomeNotFound = "E404"
)

// Failure is a classified failure with a stable external code. It is the
// error type every service operation returns for business failures;
// anything else reaching the HTTP layer is an infrastructure error.
type Failure struct {
	Category Category
	Code     string
	cause    error
}

func newFailure(cat Category, code string, cause error) *Failure {
	return &Failure{Category: cat, Code: code, cause: cause}
}

func (f *Failure) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s (%s): %v", f.Code, f.Category, f.cause)
	}
	return fmt.Sprintf("%s (%s)", f.Code, f.Category)
}

func (f *Failure) Unwrap() error { return f.cause }
