package ordering

import (
	"context"
	"errors"
	"fmt"

	"tableorder-service/internal/apperr"
	"tableorder-service/internal/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

func kotNotFound(err error, action string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(apperr.CodeKOTNotFound, "KOT not found")
	}
	return fmt.Errorf("%s: %w", action, err)
}

// GenerateKOT opens a kitchen ticket for an existing order.
func (s *Service) GenerateKOT(ctx context.Context, orderID uuid.UUID) (KOT, error) {
	if orderID == uuid.Nil {
		return KOT{}, apperr.Validation("Order ID is required")
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return KOT{}, fmt.Errorf("begin generate kot: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := getOrder(ctx, tx, orderID, false)
	if err != nil {
		return KOT{}, err
	}

	var seq int64
	if err := tx.QueryRow(ctx, `select nextval('kot_number_seq')`).Scan(&seq); err != nil {
		return KOT{}, fmt.Errorf("next kot number: %w", err)
	}

	now := s.timestamp()
	kot, err := scanKOT(tx.QueryRow(ctx, `
		insert into kots as k (id, order_id, kot_number, status, created_at, updated_at)
		values ($1, $2, $3, 'PENDING', $4, $4)
		returning `+kotColumns,
		uuid.New(), order.ID, FormatKOTNumber(seq), now,
	))
	if err != nil {
		return KOT{}, fmt.Errorf("insert kot: %w", err)
	}

	orders := []Order{order}
	if err := attachItems(ctx, tx, orders); err != nil {
		return KOT{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return KOT{}, fmt.Errorf("commit generate kot: %w", err)
	}

	kot.Order = &orders[0]
	metrics.KOTsGenerated.Inc()
	s.logger.Info("kot generated", zap.String("kotNumber", kot.KOTNumber), zap.String("orderNumber", order.OrderNumber))
	s.broadcaster.EmitKOTStatus(ctx, order.RestaurantID, order.TableID, kot)
	return kot, nil
}

// UpdateKOTStatus advances a ticket and mirrors kitchen progress onto the
// parent order. The order never moves backwards.
func (s *Service) UpdateKOTStatus(ctx context.Context, id uuid.UUID, status KOTStatus) (KOT, error) {
	if _, ok := kotStatusRank[status]; !ok {
		return KOT{}, apperr.Validation("Invalid KOT status")
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return KOT{}, fmt.Errorf("begin kot status: %w", err)
	}
	defer tx.Rollback(ctx)

	kot, err := scanKOT(tx.QueryRow(ctx, `select `+kotColumns+` from kots k where k.id = $1 for update`, id))
	if err != nil {
		return KOT{}, kotNotFound(err, "lock kot")
	}
	if !CanAdvanceKOT(kot.Status, status) {
		return KOT{}, apperr.Conflict(apperr.CodeInvalidTransition,
			fmt.Sprintf("KOT cannot move from %s to %s", kot.Status, status))
	}

	order, err := getOrder(ctx, tx, kot.OrderID, true)
	if err != nil {
		return KOT{}, err
	}

	kotChanged := kot.Status != status
	orderChanged := false
	if kotChanged {
		now := s.timestamp()
		printedAt, completedAt := kot.PrintedAt, kot.CompletedAt
		if status == KOTPrinted && printedAt == nil {
			printedAt = &now
		}
		if status == KOTReady || status == KOTServed {
			completedAt = &now
		}

		kot, err = scanKOT(tx.QueryRow(ctx, `
			update kots k set status = $2, printed_at = $3, completed_at = $4, updated_at = $5
			where k.id = $1
			returning `+kotColumns,
			id, string(status), printedAt, completedAt, now,
		))
		if err != nil {
			return KOT{}, kotNotFound(err, "update kot status")
		}

		if target, ok := kotOrderStatus[status]; ok && orderStatusRank[target] > orderStatusRank[order.Status] {
			order, err = setOrderStatus(ctx, tx, order.ID, target, now)
			if err != nil {
				return KOT{}, err
			}
			orderChanged = true
		}
	}

	orders := []Order{order}
	if err := attachItems(ctx, tx, orders); err != nil {
		return KOT{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return KOT{}, fmt.Errorf("commit kot status: %w", err)
	}

	kot.Order = &orders[0]
	if kotChanged {
		s.broadcaster.EmitKOTStatus(ctx, order.RestaurantID, order.TableID, kot)
	}
	if orderChanged {
		s.broadcaster.EmitOrderStatus(ctx, orders[0])
	}
	return kot, nil
}

func (s *Service) GetKOT(ctx context.Context, id uuid.UUID) (KOT, error) {
	kot, err := scanKOT(s.db.QueryRow(ctx, `select `+kotColumns+` from kots k where k.id = $1`, id))
	if err != nil {
		return KOT{}, kotNotFound(err, "get kot")
	}
	order, err := s.GetOrder(ctx, kot.OrderID)
	if err != nil {
		return KOT{}, err
	}
	kot.Order = &order
	return kot, nil
}

// ListActiveKOTs returns the tickets the kitchen still has to finish, oldest
// first.
func (s *Service) ListActiveKOTs(ctx context.Context, restaurantID uuid.UUID) ([]KOT, error) {
	rows, err := s.db.Query(ctx, `
		select `+kotColumns+`
		from kots k
		join orders o on o.id = k.order_id
		where o.restaurant_id = $1 and k.status in ('PENDING', 'PRINTED', 'PREPARING')
		order by k.created_at asc
	`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list active kots: %w", err)
	}

	kots := make([]KOT, 0)
	orderIDs := make([]uuid.UUID, 0)
	for rows.Next() {
		kot, err := scanKOT(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan kot: %w", err)
		}
		kots = append(kots, kot)
		orderIDs = append(orderIDs, kot.OrderID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(kots) == 0 {
		return kots, nil
	}

	orders, err := s.listOrders(ctx, s.db, `o.id = any($1)`, orderIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*Order, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
	}
	for i := range kots {
		kots[i].Order = byID[kots[i].OrderID]
	}
	return kots, nil
}
