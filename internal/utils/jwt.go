package utils // package utils provides token, password, TOTP and device helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Token verification failures. Handlers and services map these onto 401
// responses; everything else coming out of VerifyToken is a library error.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the payload carried by both access and refresh tokens:
// {userId, username, iat, exp}. Clients depend on these exact claim names.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SignedToken pairs a serialized JWT with its expiration time so callers
// can set cookie lifetimes without re-parsing the token.
type SignedToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs a short-lived HS256 access token for a user.
func NewAccessToken(secret, userID, username string, ttlMin int) (SignedToken, error) {
	return signToken(secret, userID, username, time.Duration(ttlMin)*time.Minute)
}

// NewRefreshToken signs a long-lived HS256 refresh token for a user. Refresh
// tokens use the same claim shape and secret as access tokens; what makes
// them refresh tokens is the session row they are bound to.
func NewRefreshToken(secret, userID, username string, ttlDays int) (SignedToken, error) {
	return signToken(secret, userID, username, time.Duration(ttlDays)*24*time.Hour)
}

func signToken(secret, userID, username string, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// VerifyToken parses and validates a token produced by NewAccessToken or
// NewRefreshToken. It distinguishes expiry from every other failure so the
// caller can report ErrTokenExpired separately. Pure function of the secret
// and the clock; no side effects.
func VerifyToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC to prevent
		// algorithm-substitution tricks.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !tok.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
