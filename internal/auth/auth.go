// Package auth authenticates operators of the collection API
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/alexbotov/pagacollect/internal/audit"
	"github.com/alexbotov/pagacollect/internal/config"
	"github.com/alexbotov/pagacollect/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
)

// Service provides authentication functionality
type Service struct {
	config *config.AuthConfig
	audit  *audit.Service
}

// New creates a new auth service
func New(cfg *config.AuthConfig, auditSvc *audit.Service) *Service {
	return &Service{
		config: cfg,
		audit:  auditSvc,
	}
}

// Token is an issued operator token
type Token struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims identifies the operator behind a validated token
type Claims struct {
	TokenID    string
	OperatorID string
	ExpiresAt  time.Time
}

// HashSecret returns the bcrypt hash to configure for an operator secret
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// Login checks operator credentials and issues a token
func (s *Service) Login(ctx context.Context, operatorID, secret, ip string) (*Token, error) {
	idOK := subtle.ConstantTimeCompare([]byte(operatorID), []byte(s.config.OperatorID)) == 1
	secretErr := bcrypt.CompareHashAndPassword([]byte(s.config.OperatorSecretHash), []byte(secret))
	if !idOK || secretErr != nil {
		s.log(ctx, audit.EventOperatorLoginError, domain.SeverityWarning,
			"Operator authentication failed", audit.WithIP(ip))
		return nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(operatorID)
	if err != nil {
		return nil, err
	}

	s.log(ctx, audit.EventOperatorLogin, domain.SeverityInfo,
		fmt.Sprintf("Operator logged in: %s", operatorID),
		audit.WithOperator(operatorID), audit.WithIP(ip))

	return token, nil
}

// IssueToken signs a token for the operator
func (s *Service) IssueToken(operatorID string) (*Token, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.config.TokenExpiry)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti":         uuid.New().String(),
		"operator_id": operatorID,
		"exp":         expiresAt.Unix(),
		"iat":         now.Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{
		Token:     tokenString,
		TokenType: "Bearer",
		ExpiresAt: time.Unix(expiresAt.Unix(), 0).UTC(),
	}, nil
}

// ValidateToken validates a token and returns its claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	operatorID, ok := claims["operator_id"].(string)
	if !ok || operatorID == "" {
		return nil, ErrInvalidToken
	}
	tokenID, _ := claims["jti"].(string)

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}

	return &Claims{
		TokenID:    tokenID,
		OperatorID: operatorID,
		ExpiresAt:  exp.Time.UTC(),
	}, nil
}

func (s *Service) log(ctx context.Context, eventType string, severity domain.EventSeverity, description string, opts ...audit.EventOption) {
	if s.audit == nil {
		return
	}
	s.audit.Log(ctx, eventType, severity, description, nil, append(opts, audit.WithComponent("auth"))...)
}
