package jwtx

import (
	"crypto/rsa"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
)

// DecryptJWE decrypts a compact JWE and returns the plaintext, which for
// encrypted request objects is the nested compact JWS. The algorithm
// allowlist is fixed to what registered clients are permitted to use.
func DecryptJWE(compact string, key *rsa.PrivateKey) (string, error) {
	obj, err := jose.ParseEncrypted(compact,
		[]jose.KeyAlgorithm{jose.RSA_OAEP, jose.RSA_OAEP_256},
		[]jose.ContentEncryption{jose.A128CBC_HS256, jose.A256GCM},
	)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to parse JWE: %w", err)
	}

	plaintext, err := obj.Decrypt(key)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to decrypt JWE: %w", err)
	}

	return string(plaintext), nil
}
