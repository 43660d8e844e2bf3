package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewBcryptHasher_Cost(t *testing.T) {
	assert.Equal(t, bcrypt.MinCost, NewBcryptHasher(bcrypt.MinCost).Cost())
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).Cost())
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(bcrypt.MaxCost+1).Cost())
}

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	digest, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$2"), "digest should be self-describing")
	assert.NotContains(t, digest, "s3cret-pass")

	assert.True(t, h.Verify("s3cret-pass", digest))
	assert.False(t, h.Verify("s3cret-pasS", digest))
	assert.False(t, h.Verify("", digest))
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	a, err := h.Hash("same password")
	require.NoError(t, err)
	b, err := h.Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("same password", a))
	assert.True(t, h.Verify("same password", b))
}

func TestBcryptHasher_VerifyAcrossCosts(t *testing.T) {
	digest, err := NewBcryptHasher(bcrypt.MinCost).Hash("pw-123456")
	require.NoError(t, err)

	assert.True(t, NewBcryptHasher(bcrypt.MinCost+2).Verify("pw-123456", digest))
}

func TestBcryptHasher_Rejects(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash("")
	assert.Error(t, err)

	assert.False(t, h.Verify("anything", ""))
	assert.False(t, h.Verify("anything", "not-a-digest"))
	assert.False(t, h.Verify("anything", "$2a$04$truncated"))
}
