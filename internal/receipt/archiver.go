package receipt

import (
	"context"
	"fmt"

	"tableorder-service/internal/ordering"

	"go.uber.org/zap"
)

type objectPutter interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string, cacheControl string) (string, error)
}

// Archiver stores a PDF receipt for every paid order.
type Archiver struct {
	store  objectPutter
	db     rowQuerier
	logger *zap.Logger
	render func(ordering.Order, Header) ([]byte, error)
}

func NewArchiver(store objectPutter, db rowQuerier, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{store: store, db: db, logger: logger, render: RenderReceipt}
}

func Key(order ordering.Order) string {
	return fmt.Sprintf("receipts/%s/%s.pdf", order.RestaurantID, order.OrderNumber)
}

func (a *Archiver) ArchiveReceipt(ctx context.Context, order ordering.Order) error {
	header, err := LoadHeader(ctx, a.db, order.TableID)
	if err != nil {
		a.logger.Warn("receipt header unavailable", zap.String("orderNumber", order.OrderNumber), zap.Error(err))
	}
	body, err := a.render(order, header)
	if err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	url, err := a.store.PutObject(ctx, Key(order), body, "application/pdf", "")
	if err != nil {
		return fmt.Errorf("store receipt: %w", err)
	}
	a.logger.Info("receipt archived", zap.String("orderNumber", order.OrderNumber), zap.String("url", url))
	return nil
}
