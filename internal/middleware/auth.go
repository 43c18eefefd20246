package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"tableorder-service/internal/apperr"
	"tableorder-service/internal/auth"
	"tableorder-service/internal/customer"

	"github.com/google/uuid"
)

type contextKey string

const (
	staffContextKey    contextKey = "staffContext"
	customerContextKey contextKey = "customerSession"
)

const sessionHeader = "X-Session-Token"

type StaffContext struct {
	StaffID      uuid.UUID
	Email        string
	Role         auth.StaffRole
	RestaurantID uuid.UUID
}

func WithStaff(ctx context.Context, staff *StaffContext) context.Context {
	return context.WithValue(ctx, staffContextKey, staff)
}

func GetStaff(ctx context.Context) (*StaffContext, bool) {
	staff, ok := ctx.Value(staffContextKey).(*StaffContext)
	return staff, ok && staff != nil
}

func WithCustomerSession(ctx context.Context, session *customer.Session) context.Context {
	return context.WithValue(ctx, customerContextKey, session)
}

func GetCustomerSession(ctx context.Context) (*customer.Session, bool) {
	session, ok := ctx.Value(customerContextKey).(*customer.Session)
	return session, ok && session != nil
}

// SessionValidator resolves a customer session token.
type SessionValidator interface {
	VerifySession(ctx context.Context, token string) (customer.Session, error)
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	writeAuthErrorDebug(w, status, message, "")
}

func writeAuthErrorDebug(w http.ResponseWriter, status int, message string, debug string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	code := "UNAUTHORIZED"
	if status == http.StatusForbidden {
		code = "FORBIDDEN"
	}
	payload := map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	}

	if os.Getenv("APP_ENV") == "development" && strings.TrimSpace(debug) != "" {
		payload["debug"] = debug
	}

	_ = json.NewEncoder(w).Encode(payload)
}

// StaffFromToken verifies a staff JWT and converts its claims.
func StaffFromToken(token, jwtSecret string) (*StaffContext, error) {
	claims, err := auth.VerifyAccessToken(token, jwtSecret)
	if err != nil {
		return nil, err
	}
	staffID, err := uuid.Parse(claims.StaffID)
	if err != nil {
		return nil, err
	}
	restaurantID, err := uuid.Parse(claims.RestaurantID)
	if err != nil {
		return nil, err
	}
	return &StaffContext{
		StaffID:      staffID,
		Email:        claims.Email,
		Role:         claims.Role,
		RestaurantID: restaurantID,
	}, nil
}

func StaffAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			staff, err := StaffFromToken(token, jwtSecret)
			if err != nil {
				writeAuthErrorDebug(w, http.StatusUnauthorized, "Authorization token required", err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithStaff(r.Context(), staff)))
		})
	}
}

// RequireRoles must run after StaffAuth.
func RequireRoles(roles ...auth.StaffRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			staff, ok := GetStaff(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}
			if !auth.HasRole(staff.Role, roles...) {
				writeAuthError(w, http.StatusForbidden, "You do not have permission to access this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func readSessionToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(sessionHeader)); token != "" {
		return token
	}
	if token := auth.ParseBearerToken(r.Header.Get("Authorization")); strings.HasPrefix(token, "session_") {
		return token
	}
	return ""
}

// CustomerSession revalidates the customer session on every request.
func CustomerSession(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := readSessionToken(r)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "Session token required")
				return
			}
			session, err := sessions.VerifySession(r.Context(), token)
			if err != nil {
				writeSessionError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCustomerSession(r.Context(), &session)))
		})
	}
}

// AnyAuth admits either a staff JWT or a customer session.
func AnyAuth(jwtSecret string, sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := readSessionToken(r); token != "" {
				session, err := sessions.VerifySession(r.Context(), token)
				if err != nil {
					writeSessionError(w, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithCustomerSession(r.Context(), &session)))
				return
			}

			staff, err := StaffFromToken(auth.ParseBearerToken(r.Header.Get("Authorization")), jwtSecret)
			if err != nil {
				writeAuthErrorDebug(w, http.StatusUnauthorized, "Authorization required", err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithStaff(r.Context(), staff)))
		})
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	if appErr, ok := apperr.As(err); ok {
		writeAuthError(w, http.StatusUnauthorized, appErr.Message)
		return
	}
	writeAuthErrorDebug(w, http.StatusUnauthorized, "Invalid session", err.Error())
}
