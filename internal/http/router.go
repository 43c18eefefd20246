package httpapi

import (
	"net/http"

	"tableorder-service/internal/auth"
	"tableorder-service/internal/http/handlers"
	"tableorder-service/internal/metrics"
	"tableorder-service/internal/middleware"
	"tableorder-service/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
)

func NewRouter(h *handlers.Handler, hub *ws.Hub, registry *prometheus.Registry) http.Handler {
	cfg := h.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(h.Logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"X-Session-Token",
				"Cache-Control",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	staffAuth := middleware.StaffAuth(cfg.JWTSecret)
	sessionAuth := middleware.CustomerSession(h.Customers)
	anyAuth := middleware.AnyAuth(cfg.JWTSecret, h.Customers)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if registry != nil {
		r.Handle("/metrics", metrics.Handler(registry))
	}

	if hub != nil {
		r.Get("/ws/restaurant", hub.RestaurantWS)
		r.Get("/ws/table", hub.TableWS)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/staff/login", h.StaffLogin)
		r.Post("/customer/request-otp", h.CustomerRequestOTP)
		r.Post("/customer/verify-otp", h.CustomerVerifyOTP)
		r.Post("/customer/verify-session", h.CustomerVerifySession)
		r.Post("/customer/logout", h.CustomerLogout)
	})

	r.Get("/api/menu/restaurants/{restaurantId}", h.MenuList)
	r.Get("/api/restaurants/{id}", h.RestaurantDetail)
	r.With(staffAuth).Get("/api/analytics/restaurants/{restaurantId}", h.RestaurantAnalytics)

	r.Route("/api/tables", func(r chi.Router) {
		r.Use(staffAuth)
		r.Get("/restaurants/{restaurantId}", h.TableList)
		r.Get("/{id}", h.TableDetail)
		r.With(middleware.RequireRoles(auth.TableManagers...)).Post("/", h.TableCreate)
		r.With(middleware.RequireRoles(auth.TableManagers...)).Put("/{id}", h.TableUpdate)
		r.With(middleware.RequireRoles(auth.RoleAdmin)).Delete("/{id}", h.TableDelete)
		r.Patch("/{id}/status", h.TableUpdateStatus)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.With(sessionAuth).Post("/", h.OrderCreate)
		r.With(anyAuth).Get("/{id}", h.OrderDetail)
		r.With(anyAuth).Get("/tables/{tableId}", h.OrderListByTable)
		r.Group(func(r chi.Router) {
			r.Use(staffAuth)
			r.Get("/restaurants/{restaurantId}/active", h.OrderListActive)
			r.Get("/restaurants/{restaurantId}/history", h.OrderHistory)
			r.Patch("/{id}/status", h.OrderUpdateStatus)
		})
	})

	r.Route("/api/kots", func(r chi.Router) {
		r.Use(staffAuth)
		r.Post("/", h.KOTCreate)
		r.Get("/{id}", h.KOTDetail)
		r.Get("/restaurants/{restaurantId}/active", h.KOTListActive)
		r.Patch("/{id}/status", h.KOTUpdateStatus)
	})

	r.Route("/api/billing", func(r chi.Router) {
		r.With(sessionAuth).Post("/request", h.BillRequest)
		r.With(anyAuth).Get("/tables/{tableId}/bill.pdf", h.BillPDF)
		r.Group(func(r chi.Router) {
			r.Use(staffAuth)
			r.Post("/generate", h.BillGenerate)
			r.With(middleware.RequireRoles(auth.BillingRoles...)).Post("/discount", h.BillDiscount)
			r.With(middleware.RequireRoles(auth.BillingRoles...)).Post("/payment", h.BillPayment)
		})
	})

	return r
}
