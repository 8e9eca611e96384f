package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchelor-project/batchelor/dispatch"
)

func signToken(t *testing.T, secret []byte, grants []grantClaim) string {
	t.Helper()
	claims := grantClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Grants:           grants,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestAuthenticateBearerProducesGrants(t *testing.T) {
	secret := []byte("test-secret")
	v := New(secret, nil, "")

	token := signToken(t, secret, []grantClaim{{Namespace: "ns1", Role: "execute"}})
	grants, err := v.Authenticate("Bearer " + token)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, dispatch.RoleGrant{Namespace: "ns1", Role: dispatch.RoleExecute}, grants[0])
}

func TestAuthenticateBearerRejectsWrongSecret(t *testing.T) {
	v := New([]byte("real-secret"), nil, "")
	token := signToken(t, []byte("wrong-secret"), []grantClaim{{Namespace: "*", Role: "read-only"}})

	_, err := v.Authenticate("Bearer " + token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticateBasicSuccess(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	v := New(nil, map[string]BasicUser{
		"alice": {PasswordHash: hash, Grants: []dispatch.RoleGrant{{Namespace: "*", Role: dispatch.RoleReadOnly}}},
	}, "")

	grants, err := v.Authenticate("Basic " + basicAuthHeader("alice", "hunter2"))
	require.NoError(t, err)
	require.Len(t, grants, 1)
}

func TestAuthenticateBasicWrongPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	v := New(nil, map[string]BasicUser{"alice": {PasswordHash: hash}}, "")
	_, err = v.Authenticate("Basic " + basicAuthHeader("alice", "wrong"))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticateMalformedHeader(t *testing.T) {
	v := New(nil, nil, "")
	_, err := v.Authenticate("Token abc")
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestAuthenticateEmptyHeader(t *testing.T) {
	v := New(nil, nil, "")
	_, err := v.Authenticate("")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func basicAuthHeader(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}
