package ordering

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"tableorder-service/internal/apperr"
	"tableorder-service/internal/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PlaceOrderInput struct {
	RestaurantID        uuid.UUID       `json:"restaurantId"`
	TableID             uuid.UUID       `json:"tableId"`
	CustomerID          uuid.UUID       `json:"customerId"`
	Items               []LineItemInput `json:"items"`
	SpecialInstructions *string         `json:"specialInstructions,omitempty"`
}

func (in PlaceOrderInput) validate() error {
	if in.RestaurantID == uuid.Nil || in.TableID == uuid.Nil || in.CustomerID == uuid.Nil || len(in.Items) == 0 {
		return apperr.Validation("Missing required fields")
	}
	return nil
}

// PlaceOrder prices the requested lines against one catalog snapshot and
// persists the order, its items and the table occupancy atomically.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (Order, error) {
	if err := in.validate(); err != nil {
		return Order{}, err
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("begin place order: %w", err)
	}
	defer tx.Rollback(ctx)

	catalog, err := loadCatalog(ctx, tx, in.RestaurantID, menuItemIDs(in.Items))
	if err != nil {
		return Order{}, err
	}

	table, err := lockTable(ctx, tx, in.TableID)
	if err != nil {
		return Order{}, err
	}
	if table.RestaurantID != in.RestaurantID {
		return Order{}, apperr.NotFound(apperr.CodeTableNotFound, "Table not found")
	}

	priced, subtotal, err := priceLines(catalog, in.Items)
	if err != nil {
		return Order{}, err
	}
	tax, total := orderTotals(subtotal, 0)

	var seq int64
	if err := tx.QueryRow(ctx, `select nextval('order_number_seq')`).Scan(&seq); err != nil {
		return Order{}, fmt.Errorf("next order number: %w", err)
	}

	now := s.timestamp()
	order := Order{
		ID:                  uuid.New(),
		RestaurantID:        in.RestaurantID,
		TableID:             in.TableID,
		CustomerID:          in.CustomerID,
		OrderNumber:         FormatOrderNumber(seq),
		Items:               make([]OrderItem, 0, len(priced)),
		Subtotal:            subtotal,
		Tax:                 tax,
		Total:               total,
		Status:              OrderPlaced,
		PaymentStatus:       PaymentUnpaid,
		SpecialInstructions: in.SpecialInstructions,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if _, err := tx.Exec(ctx, `
		insert into orders (
		  id, restaurant_id, table_id, customer_id, order_number,
		  subtotal, tax, discount, total, status, payment_status,
		  special_instructions, created_at, updated_at
		) values ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, $11, $12, $12)
	`, order.ID, order.RestaurantID, order.TableID, order.CustomerID, order.OrderNumber,
		order.Subtotal, order.Tax, order.Total, string(order.Status), string(order.PaymentStatus),
		order.SpecialInstructions, now,
	); err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	for i, line := range priced {
		addonIDs := line.Input.AddonIDs
		if addonIDs == nil {
			addonIDs = make([]uuid.UUID, 0)
		}
		item := OrderItem{
			ID:                  uuid.New(),
			OrderID:             order.ID,
			MenuItemID:          line.Input.MenuItemID,
			VariationID:         line.Input.VariationID,
			Name:                line.Name,
			UnitPrice:           line.UnitPrice,
			Quantity:            line.Input.Quantity,
			AddonIDs:            addonIDs,
			SpecialInstructions: line.Input.SpecialInstructions,
		}
		if _, err := tx.Exec(ctx, `
			insert into order_items (
			  id, order_id, position, menu_item_id, variation_id, name, price, quantity, addon_ids, special_instructions
			) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, item.ID, item.OrderID, int32(i), item.MenuItemID, item.VariationID, item.Name,
			item.UnitPrice, item.Quantity, item.AddonIDs, item.SpecialInstructions,
		); err != nil {
			return Order{}, fmt.Errorf("insert order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	table, err = occupyTable(ctx, tx, table.ID, order.Total, now)
	if err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit place order: %w", err)
	}

	metrics.OrdersPlaced.Inc()
	s.logger.Info("order placed",
		zap.String("orderNumber", order.OrderNumber),
		zap.String("tableId", order.TableID.String()),
		zap.Float64("total", order.Total),
	)
	s.broadcaster.EmitNewOrder(ctx, order)
	s.broadcaster.EmitTableStatus(ctx, table)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	order, err := getOrder(ctx, s.db, id, false)
	if err != nil {
		return Order{}, err
	}
	orders := []Order{order}
	if err := attachItems(ctx, s.db, orders); err != nil {
		return Order{}, err
	}
	return orders[0], nil
}

func (s *Service) listOrders(ctx context.Context, q querier, where string, args ...any) ([]Order, error) {
	rows, err := q.Query(ctx, `select `+orderColumns+` from orders o where `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	if err := attachItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListTableOrders returns the unpaid orders of a table, newest first.
func (s *Service) ListTableOrders(ctx context.Context, tableID uuid.UUID) ([]Order, error) {
	return s.listOrders(ctx, s.db, `o.table_id = $1 and o.payment_status = 'UNPAID' order by o.created_at desc`, tableID)
}

// ListActiveOrders returns every unpaid order of a restaurant, newest first.
func (s *Service) ListActiveOrders(ctx context.Context, restaurantID uuid.UUID) ([]Order, error) {
	return s.listOrders(ctx, s.db, `o.restaurant_id = $1 and o.payment_status = 'UNPAID' order by o.created_at desc`, restaurantID)
}

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

type HistoryFilter struct {
	RestaurantID  uuid.UUID
	Status        *OrderStatus
	PaymentStatus *PaymentStatus
	From          *time.Time
	To            *time.Time
	Page          int
	Limit         int
}

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

type HistoryPage struct {
	Orders     []Order    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func (f HistoryFilter) normalized() HistoryFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultHistoryLimit
	}
	if f.Limit > maxHistoryLimit {
		f.Limit = maxHistoryLimit
	}
	return f
}

func (f HistoryFilter) where() (string, []any) {
	conds := []string{"o.restaurant_id = $1"}
	args := []any{f.RestaurantID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != nil {
		add("o.status = $%d", string(*f.Status))
	}
	if f.PaymentStatus != nil {
		add("o.payment_status = $%d", string(*f.PaymentStatus))
	}
	if f.From != nil {
		add("o.created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("o.created_at <= $%d", *f.To)
	}
	return strings.Join(conds, " and "), args
}

// OrderHistory pages through a restaurant's orders, newest first.
func (s *Service) OrderHistory(ctx context.Context, filter HistoryFilter) (HistoryPage, error) {
	filter = filter.normalized()
	where, args := filter.where()

	var total int64
	if err := s.db.QueryRow(ctx, `select count(*) from orders o where `+where, args...).Scan(&total); err != nil {
		return HistoryPage{}, fmt.Errorf("count order history: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	pageArgs := append(args, filter.Limit, offset)
	orders, err := s.listOrders(ctx, s.db,
		fmt.Sprintf("%s order by o.created_at desc limit $%d offset $%d", where, len(args)+1, len(args)+2),
		pageArgs...,
	)
	if err != nil {
		return HistoryPage{}, err
	}

	return HistoryPage{
		Orders: orders,
		Pagination: Pagination{
			Total:      total,
			Page:       filter.Page,
			Limit:      filter.Limit,
			TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		},
	}, nil
}

// UpdateOrderStatus moves an order forward through its lifecycle. Setting
// the current status again is accepted and changes nothing.
func (s *Service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus) (Order, error) {
	if _, ok := orderStatusRank[status]; !ok {
		return Order{}, apperr.Validation("Invalid order status")
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("begin order status: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := getOrder(ctx, tx, id, true)
	if err != nil {
		return Order{}, err
	}
	if !CanAdvanceOrder(order.Status, status) {
		return Order{}, apperr.Conflict(apperr.CodeInvalidTransition,
			fmt.Sprintf("Order cannot move from %s to %s", order.Status, status))
	}

	changed := order.Status != status
	if changed {
		order, err = setOrderStatus(ctx, tx, id, status, s.timestamp())
		if err != nil {
			return Order{}, err
		}
	}

	orders := []Order{order}
	if err := attachItems(ctx, tx, orders); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit order status: %w", err)
	}

	if changed {
		s.broadcaster.EmitOrderStatus(ctx, orders[0])
	}
	return orders[0], nil
}

func setOrderStatus(ctx context.Context, q querier, id uuid.UUID, status OrderStatus, now time.Time) (Order, error) {
	order, err := scanOrder(q.QueryRow(ctx, `
		update orders o set status = $2, updated_at = $3
		where o.id = $1
		returning `+orderColumns,
		id, string(status), now,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound(apperr.CodeOrderNotFound, "Order not found")
	}
	if err != nil {
		return Order{}, fmt.Errorf("update order status: %w", err)
	}
	return order, nil
}
