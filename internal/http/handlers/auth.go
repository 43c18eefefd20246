package handlers

import (
	"errors"
	"net/http"
	"strings"

	"tableorder-service/internal/auth"
	"tableorder-service/internal/customer"
	"tableorder-service/pkg/response"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type staffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type staffRestaurant struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type staffUser struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Role         auth.StaffRole  `json:"role"`
	RestaurantID uuid.UUID       `json:"restaurantId"`
	Restaurant   staffRestaurant `json:"restaurant"`
}

func (h *Handler) StaffLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body staffLoginRequest
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || body.Password == "" {
		writeBadRequest(w, "Email and password are required")
		return
	}

	var (
		user         staffUser
		passwordHash string
		role         string
		active       bool
	)
	err := h.DB.QueryRow(ctx, `
		select s.id, s.name, s.email, s.password_hash, s.role, s.is_active, s.restaurant_id, r.name
		from staff s
		join restaurants r on r.id = s.restaurant_id
		where lower(s.email) = $1
	`, email).Scan(&user.ID, &user.Name, &user.Email, &passwordHash, &role, &active, &user.RestaurantID, &user.Restaurant.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials")
			return
		}
		h.Logger.Error("staff lookup failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	if !active {
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Account is inactive")
		return
	}
	if !auth.CheckPassword(passwordHash, body.Password) {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials")
		return
	}

	user.Role = auth.StaffRole(role)
	user.Restaurant.ID = user.RestaurantID

	token, err := auth.IssueAccessToken(user.ID, user.Email, user.Role, user.RestaurantID, h.Config.JWTSecret, h.Config.JWTExpiry, h.now())
	if err != nil {
		h.Logger.Error("issue access token failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	h.Logger.Info("staff logged in", zap.String("staffId", user.ID.String()), zap.String("role", role))
	response.Success(w, map[string]any{
		"token": token,
		"user":  user,
	})
}

type otpRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

func (h *Handler) CustomerRequestOTP(w http.ResponseWriter, r *http.Request) {
	var body otpRequest
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	issued, err := h.Customers.RequestOTP(r.Context(), body.Phone, body.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, issued)
}

func (h *Handler) CustomerVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body customer.VerifyInput
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	session, err := h.Customers.VerifyOTP(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, session)
}

type sessionRequest struct {
	SessionToken string `json:"sessionToken"`
}

func (h *Handler) CustomerVerifySession(w http.ResponseWriter, r *http.Request) {
	var body sessionRequest
	if err := decodeJSON(r, &body); err != nil || strings.TrimSpace(body.SessionToken) == "" {
		writeBadRequest(w, "Session token is required")
		return
	}
	session, err := h.Customers.VerifySession(r.Context(), strings.TrimSpace(body.SessionToken))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, session)
}

func (h *Handler) CustomerLogout(w http.ResponseWriter, r *http.Request) {
	var body sessionRequest
	if err := decodeJSON(r, &body); err != nil || strings.TrimSpace(body.SessionToken) == "" {
		writeBadRequest(w, "Session token is required")
		return
	}
	if err := h.Customers.Logout(r.Context(), strings.TrimSpace(body.SessionToken)); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, map[string]string{"message": "Logged out successfully"})
}
