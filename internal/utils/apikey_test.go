package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIKeyShape(t *testing.T) {
	gen, err := NewAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gen.Plain, APIKeyPrefix))
	assert.Len(t, gen.Plain, len(APIKeyPrefix)+64)
	assert.Len(t, gen.KeyPrefix, apiKeyDisplayLen)
	assert.True(t, strings.HasPrefix(gen.Plain, gen.KeyPrefix))

	// Stored form is the digest of the full plaintext, never the plaintext.
	sum := sha256.Sum256([]byte(gen.Plain))
	assert.Equal(t, hex.EncodeToString(sum[:]), gen.Hash)
	assert.NotContains(t, gen.Hash, APIKeyPrefix)
}

func TestNewAPIKeyIsUnique(t *testing.T) {
	a, err := NewAPIKey()
	require.NoError(t, err)
	b, err := NewAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, a.Plain, b.Plain)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestHasAPIKeyPrefix(t *testing.T) {
	assert.True(t, HasAPIKeyPrefix("ink_abcdef"))
	assert.False(t, HasAPIKeyPrefix("sk_abcdef"))
	assert.False(t, HasAPIKeyPrefix(""))
}

func TestNewResetToken(t *testing.T) {
	tok, err := NewResetToken()
	require.NoError(t, err)
	assert.Len(t, tok, 64)
	_, err = hex.DecodeString(tok)
	assert.NoError(t, err)

	other, err := NewResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}
