package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wattwise/wattwise/pkg/log"
)

type contextKey string

const adminEmailContextKey contextKey = "adminEmail"

// adminMiddleware only lets through requests carrying a Google ID token whose
// email is one of the admin emails.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.bypassAuth {
			log.Ctx(ctx).DebugContext(ctx, "bypassing admin auth")
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Ctx(ctx).WarnContext(ctx, "missing auth header")
			writeJSONError(w, r, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Ctx(ctx).WarnContext(ctx, "invalid auth header")
			writeJSONError(w, r, "invalid auth header", http.StatusBadRequest)
			return
		}

		email, subject, err := s.authenticateToken(ctx, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "admin token validation failed", slog.Any("error", err))
			writeJSONError(w, r, "invalid auth token", http.StatusUnauthorized)
			return
		}
		if !s.isAdmin(email) {
			log.Ctx(ctx).WarnContext(ctx, "non-admin access to admin api", slog.String("email", email), slog.String("subject", subject))
			writeJSONError(w, r, "forbidden", http.StatusForbidden)
			return
		}

		ctx = log.WithAttrs(ctx, slog.String("authEmail", email))
		ctx = context.WithValue(ctx, adminEmailContextKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticateToken verifies the token and returns its email and subject.
func (s *Server) authenticateToken(ctx context.Context, token string) (string, string, error) {
	if s.oidcVerifier == nil {
		return "", "", errors.New("no oidc audience configured")
	}
	idToken, err := s.oidcVerifier(ctx, token)
	if err != nil {
		return "", "", fmt.Errorf("failed to verify id token: %w", err)
	}
	var claims struct {
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", "", fmt.Errorf("failed to parse id token claims: %w", err)
	}
	if claims.Email == "" {
		return "", "", errors.New("id token has no email")
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return "", "", fmt.Errorf("email %s is not verified", claims.Email)
	}
	return claims.Email, idToken.Subject, nil
}

func (s *Server) isAdmin(email string) bool {
	for _, admin := range s.adminEmails {
		if subtle.ConstantTimeCompare([]byte(email), []byte(admin)) == 1 {
			return true
		}
	}
	return false
}

func adminEmail(r *http.Request) string {
	email, _ := r.Context().Value(adminEmailContextKey).(string)
	return email
}
