package ordering

import (
	"context"
	"fmt"

	"tableorder-service/internal/apperr"
	"tableorder-service/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func summarize(tableID uuid.UUID, orders []Order) Bill {
	bill := Bill{TableID: tableID, Orders: orders}
	for _, o := range orders {
		bill.Subtotal = round2(bill.Subtotal + o.Subtotal)
		bill.Tax = round2(bill.Tax + o.Tax)
		bill.Discount = round2(bill.Discount + o.Discount)
		bill.ItemCount += len(o.Items)
	}
	bill.Total = round2(bill.Subtotal + bill.Tax - bill.Discount)
	return bill
}

// GenerateBill aggregates every unpaid order of a table. It does not write.
func (s *Service) GenerateBill(ctx context.Context, tableID uuid.UUID) (Bill, error) {
	if tableID == uuid.Nil {
		return Bill{}, apperr.Validation("Table ID is required")
	}
	orders, err := s.listOrders(ctx, s.db, `o.table_id = $1 and o.payment_status = 'UNPAID' order by o.created_at asc`, tableID)
	if err != nil {
		return Bill{}, err
	}
	if len(orders) == 0 {
		return Bill{}, apperr.NotFound(apperr.CodeNoUnpaidOrders, "No unpaid orders found for this table")
	}
	return summarize(tableID, orders), nil
}

// RequestBill notifies the staff of a table that the guests want to settle.
func (s *Service) RequestBill(ctx context.Context, tableID uuid.UUID) (Bill, error) {
	bill, err := s.GenerateBill(ctx, tableID)
	if err != nil {
		return Bill{}, err
	}
	s.broadcaster.EmitBillRequest(ctx, bill.Orders[0].RestaurantID, BillRequestPayload{
		TableID:     tableID,
		OrderCount:  len(bill.Orders),
		ItemCount:   bill.ItemCount,
		Total:       bill.Total,
		RequestedAt: s.timestamp(),
	})
	return bill, nil
}

type DiscountInput struct {
	OrderID uuid.UUID `json:"orderId"`
	Amount  *float64  `json:"discount"`
	Reason  *string   `json:"reason,omitempty"`
}

// ApplyDiscount replaces the discount of an unpaid order and moves the
// table's running amount by the same change in total.
func (s *Service) ApplyDiscount(ctx context.Context, in DiscountInput) (Order, error) {
	if in.OrderID == uuid.Nil || in.Amount == nil {
		return Order{}, apperr.Validation("Order ID and discount amount are required")
	}
	if *in.Amount < 0 {
		return Order{}, apperr.Validation("Discount cannot be negative")
	}
	amount := round2(*in.Amount)

	tx, err := s.begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("begin discount: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := getOrder(ctx, tx, in.OrderID, true)
	if err != nil {
		return Order{}, err
	}
	if order.PaymentStatus == PaymentPaid {
		return Order{}, apperr.Conflict(apperr.CodeOrderAlreadyPaid, "Order already paid")
	}

	total := round2(order.Subtotal + order.Tax - amount)
	if total < 0 {
		return Order{}, apperr.Validation("Discount exceeds order total")
	}
	delta := round2(total - order.Total)

	now := s.timestamp()
	updated, err := scanOrder(tx.QueryRow(ctx, `
		update orders o set discount = $2, discount_reason = $3, total = $4, updated_at = $5
		where o.id = $1
		returning `+orderColumns,
		order.ID, amount, in.Reason, total, now,
	))
	if err != nil {
		return Order{}, fmt.Errorf("update order discount: %w", err)
	}

	table, err := adjustTableAmount(ctx, tx, order.TableID, delta, now)
	if err != nil {
		return Order{}, err
	}

	orders := []Order{updated}
	if err := attachItems(ctx, tx, orders); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit discount: %w", err)
	}

	s.broadcaster.EmitOrderStatus(ctx, orders[0])
	s.broadcaster.EmitTableStatus(ctx, table)
	return orders[0], nil
}

type PaymentResult struct {
	Order         Order `json:"order"`
	Table         Table `json:"table"`
	TableReleased bool  `json:"tableReleased"`
}

// ProcessPayment settles one order. The table is released in the same
// transaction once no unpaid order remains on it. The order row is always
// locked before the table row.
func (s *Service) ProcessPayment(ctx context.Context, orderID uuid.UUID, method PaymentMethod) (PaymentResult, error) {
	if orderID == uuid.Nil {
		return PaymentResult{}, apperr.Validation("Order ID is required")
	}
	if _, ok := ParsePaymentMethod(string(method)); !ok {
		return PaymentResult{}, apperr.Validation("Invalid payment method")
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("begin payment: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := getOrder(ctx, tx, orderID, true)
	if err != nil {
		return PaymentResult{}, err
	}
	if order.PaymentStatus == PaymentPaid {
		return PaymentResult{}, apperr.Conflict(apperr.CodeOrderAlreadyPaid, "Order already paid")
	}

	now := s.timestamp()
	paid, err := scanOrder(tx.QueryRow(ctx, `
		update orders o set payment_status = 'PAID', payment_method = $2, paid_at = $3, updated_at = $3
		where o.id = $1
		returning `+orderColumns,
		order.ID, string(method), now,
	))
	if err != nil {
		return PaymentResult{}, fmt.Errorf("mark order paid: %w", err)
	}

	table, err := lockTable(ctx, tx, order.TableID)
	if err != nil {
		return PaymentResult{}, err
	}

	var unpaid int64
	if err := tx.QueryRow(ctx, `
		select count(*) from orders where table_id = $1 and payment_status = 'UNPAID'
	`, order.TableID).Scan(&unpaid); err != nil {
		return PaymentResult{}, fmt.Errorf("count unpaid orders: %w", err)
	}

	released := unpaid == 0
	if released {
		table, err = releaseTable(ctx, tx, table.ID, now)
		if err != nil {
			return PaymentResult{}, err
		}
	}

	orders := []Order{paid}
	if err := attachItems(ctx, tx, orders); err != nil {
		return PaymentResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return PaymentResult{}, fmt.Errorf("commit payment: %w", err)
	}

	metrics.Payments.WithLabelValues(string(method)).Inc()
	s.logger.Info("payment processed",
		zap.String("orderNumber", paid.OrderNumber),
		zap.String("method", string(method)),
		zap.Bool("tableReleased", released),
	)
	s.broadcaster.EmitOrderStatus(ctx, orders[0])
	s.broadcaster.EmitTableStatus(ctx, table)

	if s.archiver != nil {
		if err := s.archiver.ArchiveReceipt(ctx, orders[0]); err != nil {
			s.logger.Warn("archive receipt failed", zap.String("orderNumber", paid.OrderNumber), zap.Error(err))
		}
	}

	return PaymentResult{Order: orders[0], Table: table, TableReleased: released}, nil
}
