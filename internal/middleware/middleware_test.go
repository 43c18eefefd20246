package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tableorder-service/internal/apperr"
	"tableorder-service/internal/auth"
	"tableorder-service/internal/customer"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret"

type stubSessions map[string]customer.Session

func (s stubSessions) VerifySession(_ context.Context, token string) (customer.Session, error) {
	session, ok := s[token]
	if !ok {
		return customer.Session{}, apperr.Unauthorized("Invalid session")
	}
	return session, nil
}

func staffToken(t *testing.T, role auth.StaffRole) (string, uuid.UUID) {
	t.Helper()
	restaurantID := uuid.New()
	token, err := auth.IssueAccessToken(uuid.New(), "staff@example.com", role, restaurantID, testSecret, time.Hour, time.Now())
	require.NoError(t, err)
	return token, restaurantID
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	code, _ := body["error"].(string)
	return code
}

func TestStaffAuthAndRoles(t *testing.T) {
	var seen *StaffContext
	handler := StaffAuth(testSecret)(RequireRoles(auth.BillingRoles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetStaff(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	cashier, restaurantID := staffToken(t, auth.RoleCashier)
	req := httptest.NewRequest(http.MethodPost, "/api/billing/payment", nil)
	req.Header.Set("Authorization", "Bearer "+cashier)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, restaurantID, seen.RestaurantID)

	waiter, _ := staffToken(t, auth.RoleWaiter)
	req = httptest.NewRequest(http.MethodPost, "/api/billing/payment", nil)
	req.Header.Set("Authorization", "Bearer "+waiter)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	req = httptest.NewRequest(http.MethodPost, "/api/billing/payment", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
}

func TestCustomerSession(t *testing.T) {
	tableID := uuid.New()
	sessions := stubSessions{"session_ok": {Token: "session_ok", TableID: tableID}}

	var seen *customer.Session
	handler := CustomerSession(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetCustomerSession(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.Header.Set("X-Session-Token", "session_ok")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, tableID, seen.TableID)

	req = httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer session_gone")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnyAuth(t *testing.T) {
	sessions := stubSessions{"session_ok": {Token: "session_ok"}}
	var staffSeen, customerSeen bool
	handler := AnyAuth(testSecret, sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, staffSeen = GetStaff(r.Context())
		_, customerSeen = GetCustomerSession(r.Context())
	}))

	token, _ := staffToken(t, auth.RoleKitchen)
	req := httptest.NewRequest(http.MethodGet, "/api/orders/tables/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, staffSeen)
	assert.False(t, customerSeen)

	req = httptest.NewRequest(http.MethodGet, "/api/orders/tables/x", nil)
	req.Header.Set("X-Session-Token", "session_ok")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, staffSeen)
	assert.True(t, customerSeen)

	req = httptest.NewRequest(http.MethodGet, "/api/orders/tables/x", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestIDAndTelemetry(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := chi.NewRouter()
	r.Use(RequestID())
	r.Use(Telemetry(zap.New(core)))
	r.Get("/api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/123", nil)
	req.Header.Set("X-Correlation-Id", "corr-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "corr-1", rec.Header().Get("X-Request-Id"))
	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/orders/{id}", fields["routePattern"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, "corr-1", fields["requestId"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/9", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
