package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingSecret = errors.New("jwt secret is empty")
)

// Claims identifies the actor behind a request. Tokens are issued by the
// identity service; this package only verifies them.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	Roles  []string  `json:"roles,omitempty"`
}

type JWTService interface {
	ValidateToken(token string) (*Claims, error)
}

type hmacVerifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewJWTVerifier validates HMAC-signed access tokens. An empty issuer
// accepts any issuer.
func NewJWTVerifier(secret, issuer string, leeway time.Duration) (JWTService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &hmacVerifier{secret: []byte(secret), issuer: issuer, leeway: leeway}, nil
}

func (v *hmacVerifier) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == uuid.Nil {
		subject, err := uuid.Parse(claims.Subject)
		if err != nil {
			return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
		}
		claims.UserID = subject
	}
	return claims, nil
}
