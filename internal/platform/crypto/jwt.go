package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify the holder of an API bearer token.
type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// StateClaims travel through the OAuth consent round trip as the state value.
type StateClaims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

var ErrInvalidState = errors.New("invalid oauth state")

func generateJTI() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateToken returns the signed token and its jti.
func GenerateToken(secret, subject, role string, ttl time.Duration) (string, string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", "", err
	}

	now := time.Now()
	c := Claims{
		Sub:  subject,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	tokenStr, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}
	return tokenStr, jti, nil
}

func ParseToken(secret, tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, hmacKey(secret), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	if claims, ok := t.Claims.(*Claims); ok && t.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// GenerateStateToken signs a short-lived nonce bound to the requested scopes.
func GenerateStateToken(secret string, scopes []string, ttl time.Duration) (string, error) {
	nonce, err := generateJTI()
	if err != nil {
		return "", err
	}
	now := time.Now()
	c := StateClaims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        nonce,
			Subject:   "oauth-state",
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

func ParseStateToken(secret, state string) (*StateClaims, error) {
	t, err := jwt.ParseWithClaims(state, &StateClaims{}, hmacKey(secret),
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithSubject("oauth-state"),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidState, err)
	}
	claims, ok := t.Claims.(*StateClaims)
	if !ok || !t.Valid {
		return nil, ErrInvalidState
	}
	return claims, nil
}

func hmacKey(secret string) jwt.Keyfunc {
	return func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}
}
