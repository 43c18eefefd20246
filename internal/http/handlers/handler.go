package handlers

import (
	"context"
	"time"

	"tableorder-service/internal/config"
	"tableorder-service/internal/customer"
	"tableorder-service/internal/ordering"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// DB is the read access handlers need outside the ordering service.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Handler struct {
	DB        DB
	Orders    *ordering.Service
	Customers *customer.Service
	Logger    *zap.Logger
	Config    config.Config
	Now       func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
