// Package service holds the registration, certificate, webhook and admin
// use cases. Services depend only on ports.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/infra/observability"
	"github.com/boddenberg/workshop-registration-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const (
	maxFailedAttempts = 5
	tokenIssuer       = "workshop-registration"
	tokenTypeAccess   = "access"
)

// AuthService authenticates admins and issues access tokens.
type AuthService struct {
	store     port.AdminStore
	attempts  port.AttemptCounter
	jwtSecret []byte
	accessTTL time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger

	now func() time.Time
}

// NewAuthService creates a new auth service. attempts must expire its
// entries after the lockout window.
func NewAuthService(store port.AdminStore, attempts port.AttemptCounter, jwtSecret string, accessTTL time.Duration, metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:     store,
		attempts:  attempts,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// ============================================================
// Login: POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if len(s.jwtSecret) == 0 {
		return nil, &domain.ErrConfiguration{Setting: "JWT_SECRET", Message: "segredo JWT não configurado"}
	}
	if req == nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "e-mail e senha são obrigatórios"}
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if n, ok := s.attempts.Get(email); ok && n >= maxFailedAttempts {
		s.logger.Warn("admin login blocked", zap.String("email", email), zap.Int("attempts", n))
		return nil, &domain.ErrUnauthorized{Message: "Muitas tentativas. Tente novamente mais tarde"}
	}

	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		return nil, storeError("get admin", err)
	}

	if admin == nil || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		n := s.attempts.Update(email, func(current int, _ bool) int { return current + 1 })
		if s.metrics != nil {
			s.metrics.IncrLoginFailure()
		}
		s.logger.Warn("admin login failed", zap.String("email", email), zap.Int("attempts", n))
		return nil, &domain.ErrUnauthorized{Message: "E-mail ou senha inválidos"}
	}

	s.attempts.Delete(email)

	token, err := s.signAccessToken(admin)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.logger.Info("admin logged in", zap.String("admin_id", admin.ID))
	return &domain.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.accessTTL.Seconds()),
		AdminID:     admin.ID,
		Email:       admin.Email,
	}, nil
}

// HashPassword returns the bcrypt hash stored in admin_users.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// ============================================================
// ValidateAccessToken: used by middleware
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	if len(s.jwtSecret) == 0 {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	if claims.Type != tokenTypeAccess {
		return nil, &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(admin *domain.AdminUser) (string, error) {
	now := s.now()
	claims := JWTClaims{
		Sub:   admin.ID,
		Email: admin.Email,
		Type:  tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
