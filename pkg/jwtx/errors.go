// Package jwtx verifies signed request objects against per-client remote
// key sets and maps every library failure mode onto a stable taxonomy.
package jwtx

import "errors"

// Verification failure taxonomy. Each sentinel maps to exactly one external
// (error, error_description) pair and one metric; callers dispatch with
// errors.Is and must never collapse two of these into the same outcome.
var (
	ErrJWKSFetchTimeout     = errors.New("jwtx: jwks fetch timed out")
	ErrJWKSInvalid          = errors.New("jwtx: jwks unavailable or malformed")
	ErrNoMatchingKey        = errors.New("jwtx: no key matches kid")
	ErrMultipleMatchingKeys = errors.New("jwtx: multiple keys match kid")
	ErrKeyInvalid           = errors.New("jwtx: key material invalid")
	ErrAlgNotAllowed        = errors.New("jwtx: algorithm not allowed")
	ErrSignatureMalformed   = errors.New("jwtx: signature malformed")
	ErrSignatureInvalid     = errors.New("jwtx: signature verification failed")
	ErrTokenMalformed       = errors.New("jwtx: token malformed")
	ErrTokenExpired         = errors.New("jwtx: token expired")
	ErrClaimValidation      = errors.New("jwtx: claim validation failed")
	ErrProtocol             = errors.New("jwtx: protocol error")
)
