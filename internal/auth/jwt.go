package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer          = "bookstore-auth"
	accessAudience  = "bookstore-admin"
	sessionAudience = "bookstore-session"

	AccessTTL = 15 * time.Minute
)

var ErrInvalidToken = errors.New("invalid token")

type TokenMaker struct {
	secret []byte
}

func NewTokenMaker(secret string) *TokenMaker {
	return &TokenMaker{secret: []byte(secret)}
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (t *TokenMaker) New(userID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{accessAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return t.sign(claims)
}

func (t *TokenMaker) Parse(tokenStr string) (Claims, error) {
	var c Claims
	if err := t.parse(tokenStr, accessAudience, &c); err != nil {
		return Claims{}, err
	}
	return c, nil
}

func (t *TokenMaker) NewSession(sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()

	return t.sign(jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{sessionAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
}

func (t *TokenMaker) ParseSession(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	if err := t.parse(tokenStr, sessionAudience, &c); err != nil {
		return "", err
	}
	if c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}

func (t *TokenMaker) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *TokenMaker) parse(tokenStr, audience string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || token == nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
