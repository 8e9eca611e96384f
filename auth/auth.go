// Package auth verifies the Authorization header (Bearer JWT or Basic
// bcrypt-hashed credentials) and produces the []dispatch.RoleGrant set the
// dispatch service checks on every call (spec §6/§7).
package auth

import (
	"encoding/base64"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/batchelor-project/batchelor/dispatch"
)

// ErrMalformedHeader maps to a 400 response (spec §7); ErrUnauthorized maps
// to a 401 with the WWW-Authenticate header.
var (
	ErrMalformedHeader = errors.New("malformed authorization header")
	ErrUnauthorized    = errors.New("invalid credentials")
)

// BasicUser is one configured basic-auth principal.
type BasicUser struct {
	PasswordHash []byte // bcrypt hash
	Grants       []dispatch.RoleGrant
}

// Verifier checks an Authorization header and returns the grants it proves.
type Verifier struct {
	jwtSecret  []byte
	basicUsers map[string]BasicUser
	realm      string
}

func New(jwtSecret []byte, basicUsers map[string]BasicUser, realm string) *Verifier {
	if realm == "" {
		realm = "batchelor"
	}
	return &Verifier{jwtSecret: jwtSecret, basicUsers: basicUsers, realm: realm}
}

func (v *Verifier) Realm() string { return v.realm }

// Authenticate parses the raw Authorization header value and returns the
// caller's role grants.
func (v *Verifier) Authenticate(header string) ([]dispatch.RoleGrant, error) {
	if header == "" {
		return nil, ErrUnauthorized
	}

	switch {
	case strings.HasPrefix(header, "Bearer "):
		return v.verifyBearer(strings.TrimPrefix(header, "Bearer "))
	case strings.HasPrefix(header, "Basic "):
		return v.verifyBasic(strings.TrimPrefix(header, "Basic "))
	default:
		return nil, ErrMalformedHeader
	}
}

// grantClaims is the custom claim set a Bearer token carries: one or more
// (namespace, role) grants alongside the standard registered claims.
type grantClaims struct {
	jwt.RegisteredClaims
	Grants []grantClaim `json:"grants"`
}

type grantClaim struct {
	Namespace string `json:"ns"`
	Role      string `json:"role"`
}

func (v *Verifier) verifyBearer(token string) ([]dispatch.RoleGrant, error) {
	if token == "" {
		return nil, ErrMalformedHeader
	}

	claims := &grantClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.Wrap(ErrUnauthorized, "invalid bearer token")
	}

	grants := make([]dispatch.RoleGrant, 0, len(claims.Grants))
	for _, g := range claims.Grants {
		grants = append(grants, dispatch.RoleGrant{Namespace: g.Namespace, Role: dispatch.Role(g.Role)})
	}
	return grants, nil
}

func (v *Verifier) verifyBasic(encoded string) ([]dispatch.RoleGrant, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformedHeader
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, ErrMalformedHeader
	}

	principal, ok := v.basicUsers[user]
	if !ok {
		return nil, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(principal.PasswordHash, []byte(pass)); err != nil {
		return nil, ErrUnauthorized
	}
	return principal.Grants, nil
}

// HashPassword bcrypt-hashes a plaintext password for storing in config.
func HashPassword(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
}
