package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tableorder-service/internal/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `
	o.id, o.restaurant_id, o.table_id, o.customer_id, o.order_number,
	o.subtotal, o.tax, o.discount, o.discount_reason, o.total,
	o.status, o.payment_status, o.payment_method, o.paid_at,
	o.special_instructions, o.created_at, o.updated_at
`

const tableColumns = `t.id, t.restaurant_id, t.table_number, t.capacity, t.status, t.current_amount, t.updated_at`

const kotColumns = `k.id, k.order_id, k.kot_number, k.status, k.printed_at, k.completed_at, k.created_at, k.updated_at`

func textPtr(v pgtype.Text) *string {
	if v.Valid {
		return &v.String
	}
	return nil
}

func timePtr(v pgtype.Timestamptz) *time.Time {
	if v.Valid {
		t := v.Time
		return &t
	}
	return nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		order          Order
		status         string
		paymentStatus  string
		paymentMethod  pgtype.Text
		discountReason pgtype.Text
		instructions   pgtype.Text
		paidAt         pgtype.Timestamptz
	)
	if err := row.Scan(
		&order.ID,
		&order.RestaurantID,
		&order.TableID,
		&order.CustomerID,
		&order.OrderNumber,
		&order.Subtotal,
		&order.Tax,
		&order.Discount,
		&discountReason,
		&order.Total,
		&status,
		&paymentStatus,
		&paymentMethod,
		&paidAt,
		&instructions,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return Order{}, err
	}
	order.Status = OrderStatus(status)
	order.PaymentStatus = PaymentStatus(paymentStatus)
	if paymentMethod.Valid {
		method := PaymentMethod(paymentMethod.String)
		order.PaymentMethod = &method
	}
	order.DiscountReason = textPtr(discountReason)
	order.SpecialInstructions = textPtr(instructions)
	order.PaidAt = timePtr(paidAt)
	order.Items = make([]OrderItem, 0)
	return order, nil
}

func scanOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	orders := make([]Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func scanTable(row pgx.Row) (Table, error) {
	var (
		table  Table
		status string
	)
	if err := row.Scan(
		&table.ID,
		&table.RestaurantID,
		&table.TableNumber,
		&table.Capacity,
		&status,
		&table.CurrentAmount,
		&table.UpdatedAt,
	); err != nil {
		return Table{}, err
	}
	table.Status = TableStatus(status)
	return table, nil
}

func scanKOT(row pgx.Row, extra ...any) (KOT, error) {
	var (
		kot         KOT
		status      string
		printedAt   pgtype.Timestamptz
		completedAt pgtype.Timestamptz
	)
	dest := []any{
		&kot.ID,
		&kot.OrderID,
		&kot.KOTNumber,
		&status,
		&printedAt,
		&completedAt,
		&kot.CreatedAt,
		&kot.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return KOT{}, err
	}
	kot.Status = KOTStatus(status)
	kot.PrintedAt = timePtr(printedAt)
	kot.CompletedAt = timePtr(completedAt)
	return kot, nil
}

func getOrder(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (Order, error) {
	query := `select ` + orderColumns + ` from orders o where o.id = $1`
	if forUpdate {
		query += ` for update`
	}
	order, err := scanOrder(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound(apperr.CodeOrderNotFound, "Order not found")
	}
	if err != nil {
		return Order{}, fmt.Errorf("load order %s: %w", id, err)
	}
	return order, nil
}

// attachItems loads line items for every order in one round trip.
func attachItems(ctx context.Context, q querier, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := q.Query(ctx, `
		select id, order_id, menu_item_id, variation_id, name, price, quantity, addon_ids, special_instructions
		from order_items
		where order_id = any($1)
		order by order_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item         OrderItem
			variationID  uuid.NullUUID
			instructions pgtype.Text
		)
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.MenuItemID,
			&variationID,
			&item.Name,
			&item.UnitPrice,
			&item.Quantity,
			&item.AddonIDs,
			&instructions,
		); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if variationID.Valid {
			id := variationID.UUID
			item.VariationID = &id
		}
		if item.AddonIDs == nil {
			item.AddonIDs = make([]uuid.UUID, 0)
		}
		item.SpecialInstructions = textPtr(instructions)
		if i, ok := index[item.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return rows.Err()
}
