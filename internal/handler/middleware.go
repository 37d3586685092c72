package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/boddenberg/workshop-registration-go/internal/service"
	"go.uber.org/zap"
)

type contextKey string

const adminIDKey contextKey = "adminID"

// webhookTokenHeader is the header Asaas sends with the token configured
// on the webhook.
const webhookTokenHeader = "asaas-access-token"

// JWTAuthMiddleware validates Bearer tokens and injects the admin id into context.
func JWTAuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			claims, err := authSvc.ValidateAccessToken(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), adminIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminIDFromContext extracts the authenticated admin ID from context.
func AdminIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(adminIDKey).(string)
	return v
}

// WebhookTokenMiddleware rejects notifications whose token header does not
// match. An empty token disables the check.
func WebhookTokenMiddleware(token string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(webhookTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				logger.Warn("webhook: invalid token", zap.String("remote_addr", r.RemoteAddr))
				writeError(w, http.StatusUnauthorized, "token de webhook inválido")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
