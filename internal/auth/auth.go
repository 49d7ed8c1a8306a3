// Package auth issues and validates the JWT tokens that protect the write API.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/internal/config"
	"github.com/verustcode/glance/pkg/errors"
	"github.com/verustcode/glance/pkg/logger"
)

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Token is an issued token
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Authenticator checks credentials against the auth configuration
type Authenticator struct {
	cfg *config.AuthConfig
	now func() time.Time
}

// New creates an authenticator
func New(cfg *config.AuthConfig) *Authenticator {
	return &Authenticator{cfg: cfg, now: time.Now}
}

// Enabled reports whether the write API requires a token
func (a *Authenticator) Enabled() bool {
	return a.cfg != nil && a.cfg.Enabled
}

// Login verifies username and password and issues a token
func (a *Authenticator) Login(username, password string) (*Token, error) {
	if !a.Enabled() {
		return nil, errors.ErrUnauthorized("authentication is not enabled")
	}
	if a.cfg.PasswordHash == "" {
		return nil, errors.New(errors.ErrCodeAuthCredentialsEmpty, "no password is configured")
	}
	if username != a.cfg.Username {
		logger.Warn("Invalid login attempt", zap.String("username", username))
		return nil, errors.New(errors.ErrCodeInvalidCredentials, "invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.cfg.PasswordHash), []byte(password)); err != nil {
		logger.Warn("Invalid login attempt", zap.String("username", username))
		return nil, errors.New(errors.ErrCodeInvalidCredentials, "invalid username or password")
	}

	token, err := a.Issue(username, a.cfg.TokenExpiry())
	if err != nil {
		return nil, err
	}
	logger.Info("Token issued", zap.String("username", username))
	return token, nil
}

// Issue signs a token for username without checking a password.
// Used by the CLI, which has access to the config file anyway.
func (a *Authenticator) Issue(username string, ttl time.Duration) (*Token, error) {
	if a.cfg == nil || a.cfg.JWTSecret == "" {
		return nil, errors.New(errors.ErrCodeJWTSecretInvalid, "JWT secret not configured")
	}

	now := a.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    consts.ServiceName,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.JWTSecret))
	if err != nil {
		logger.Error("Failed to generate JWT token", zap.Error(err))
		return nil, errors.ErrInternal("failed to generate token", err)
	}
	return &Token{Token: signed, ExpiresAt: expiresAt}, nil
}

// ValidateToken validates a JWT token and returns the username.
// Implements middleware.TokenValidator.
func (a *Authenticator) ValidateToken(tokenString string) (string, error) {
	if a.cfg == nil || a.cfg.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(a.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(a.now), jwt.WithIssuer(consts.ServiceName))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.Wrap(errors.ErrCodeTokenExpired, "token expired", err)
		}
		return "", errors.Wrap(errors.ErrCodeTokenInvalid, "invalid token", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims.Username, nil
	}
	return "", errors.New(errors.ErrCodeTokenInvalid, "invalid token")
}

// HashPassword returns the bcrypt hash stored in auth.password_hash
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
