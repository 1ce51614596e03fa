package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/apperr"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	digest, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", digest)

	assert.True(t, h.Verify(digest, "secret1"))
	assert.False(t, h.Verify(digest, "secret2"))
	assert.False(t, h.Verify(digest, ""))
	assert.False(t, h.Verify(digest, "Secret1"))
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBcryptHasher_DefaultCost(t *testing.T) {
	digest, err := BcryptHasher{}.Hash("secret1")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, 10, cost)
}

func TestBcryptHasher_VerifyCorruptHash(t *testing.T) {
	assert.False(t, BcryptHasher{}.Verify("not-a-bcrypt-hash", "secret1"))
	assert.False(t, BcryptHasher{}.Verify("", ""))
}

func TestBcryptHasher_HashFailureIsInternal(t *testing.T) {
	_, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash(strings.Repeat("x", maxPasswordBytes+1))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.Code(err))
}
