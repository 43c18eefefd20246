package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tableorder-service/internal/apperr"
	"tableorder-service/internal/middleware"
	"tableorder-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func readPathString(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}

func readPathUUID(r *http.Request, key string) (uuid.UUID, error) {
	value := readPathString(r, key)
	if value == "" {
		return uuid.Nil, errMissingParam
	}
	return uuid.Parse(value)
}

var errMissingParam = errors.New("missing param")

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := apperr.As(err); ok {
		response.Error(w, appErr.StatusCode, string(appErr.Code), appErr.Message)
		return
	}
	h.Logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

func writeBadRequest(w http.ResponseWriter, message string) {
	response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", message)
}

func writeForbidden(w http.ResponseWriter) {
	response.Error(w, http.StatusForbidden, "FORBIDDEN", "You do not have access to this resource")
}

// staffOwns rejects staff acting outside their own restaurant.
func staffOwns(w http.ResponseWriter, r *http.Request, restaurantID uuid.UUID) bool {
	staff, ok := middleware.GetStaff(r.Context())
	if !ok || staff.RestaurantID != restaurantID {
		writeForbidden(w)
		return false
	}
	return true
}

// callerCanSeeTable admits the customer seated at the table or staff of its restaurant.
func callerCanSeeTable(r *http.Request, tableID, restaurantID uuid.UUID) bool {
	if session, ok := middleware.GetCustomerSession(r.Context()); ok {
		return session.TableID == tableID
	}
	if staff, ok := middleware.GetStaff(r.Context()); ok {
		return staff.RestaurantID == restaurantID
	}
	return false
}
