package utils // package utils provides helper functions for token creation and hashing

import (
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"
)

// Claims is the payload carried by both access and refresh tokens. The two
// token kinds are signed with independent secrets, so compromise of one
// secret does not allow forging the other kind. Issuance and expiry are
// stamped through RegisteredClaims by the signing step; handlers never set
// timestamps by hand.
type Claims struct {
	UserID   uint64 `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// SignedToken pairs a serialized JWT with its expiration time.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 access token. Access tokens are
// short-lived; a stolen one is only useful until Exp.
func NewAccessToken(secret string, userID uint64, email, username, role string, ttl time.Duration) (SignedToken, error) {
	return sign(secret, userID, email, username, role, ttl)
}

// NewRefreshToken builds and signs an HS256 refresh token with the refresh
// secret. The signature expiry here is the outer bound; the session row in
// the database can (and on login does) expire sooner, and the row is what
// governs revocation.
func NewRefreshToken(secret string, userID uint64, email, username, role string, ttl time.Duration) (SignedToken, error) {
	return sign(secret, userID, email, username, role, ttl)
}

func sign(secret string, userID uint64, email, username, role string, ttl time.Duration) (SignedToken, error) {
	exp := time.Now().UTC().Add(ttl)
	claims := Claims{
		UserID:   userID,
		Email:    email,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti makes every issuance unique. Timestamps alone have second
			// granularity, and two refresh tokens minted for one user in the
			// same second would otherwise be byte-identical, so rotation
			// would swap a token for itself.
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// VerifyToken parses and validates a token against the given secret. It
// returns the decoded claims, or nil for any signature, expiry or
// malformed-input error. A token signed with the other secret fails here
// because the signature check fails.
func VerifyToken(secret, raw string) *Claims {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens using a different signing algorithm.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil
	}
	return claims
}
