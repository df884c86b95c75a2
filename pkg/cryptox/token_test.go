package cryptox

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := GenerateToken(0)
		require.Error(t, err)
		_, err = GenerateToken(-1)
		require.Error(t, err)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		a, err := GenerateToken(TokenSize128)
		require.NoError(t, err)
		b, err := GenerateToken(TokenSize128)
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})
}

func TestGenerateHexTokenHasFixedLength(t *testing.T) {
	t.Parallel()

	token, err := GenerateHexToken(TokenSize192)
	require.NoError(t, err)
	require.Len(t, token, TokenSize192*2)

	_, err = hex.DecodeString(token)
	require.NoError(t, err)
}

func TestFingerprintTokenIsDeterministic(t *testing.T) {
	t.Parallel()

	require.Equal(t, FingerprintToken("abc"), FingerprintToken("abc"))
	require.NotEqual(t, FingerprintToken("abc"), FingerprintToken("abd"))
	require.Len(t, FingerprintToken("abc"), 43)
}

func TestEncryptDecryptPrivateKeyRoundTrip(t *testing.T) {
	pemData, err := GenerateRSAKey(2048)
	require.NoError(t, err)

	encrypted, err := EncryptPrivateKey(pemData)
	require.NoError(t, err)
	require.NotEqual(t, pemData, encrypted)

	decrypted, err := DecryptPrivateKey(encrypted)
	require.NoError(t, err)
	require.Equal(t, pemData, decrypted)

	key, err := ParseRSAPrivateKey(decrypted)
	require.NoError(t, err)
	require.NotNil(t, key)
}
