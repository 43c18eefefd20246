package ordering

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC)

type publishedEvent struct {
	Room    string
	Event   string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, room, event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Room: room, Event: event, Payload: payload})
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Event + "@" + e.Room
	}
	return out
}

func newTestService(t *testing.T, opts ...Option) (*Service, pgxmock.PgxPoolIface, *recordingPublisher) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	pub := &recordingPublisher{}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewService(mock, NewBroadcaster(pub, nil), nil, opts...), mock, pub
}

func expectBegin(mock pgxmock.PgxPoolIface) {
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
}

var orderRowColumns = []string{
	"id", "restaurant_id", "table_id", "customer_id", "order_number",
	"subtotal", "tax", "discount", "discount_reason", "total",
	"status", "payment_status", "payment_method", "paid_at",
	"special_instructions", "created_at", "updated_at",
}

func orderRows(orders ...Order) *pgxmock.Rows {
	rows := pgxmock.NewRows(orderRowColumns)
	for _, o := range orders {
		var reason, method, paidAt any
		if o.DiscountReason != nil {
			reason = *o.DiscountReason
		}
		if o.PaymentMethod != nil {
			method = string(*o.PaymentMethod)
		}
		if o.PaidAt != nil {
			paidAt = *o.PaidAt
		}
		rows.AddRow(
			o.ID, o.RestaurantID, o.TableID, o.CustomerID, o.OrderNumber,
			o.Subtotal, o.Tax, o.Discount, reason, o.Total,
			string(o.Status), string(o.PaymentStatus), method, paidAt,
			nil, o.CreatedAt, o.UpdatedAt,
		)
	}
	return rows
}

func itemRows(items ...OrderItem) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "order_id", "menu_item_id", "variation_id", "name", "price", "quantity", "addon_ids", "special_instructions",
	})
	for _, it := range items {
		var variation any
		if it.VariationID != nil {
			variation = it.VariationID.String()
		}
		addons := it.AddonIDs
		if addons == nil {
			addons = []uuid.UUID{}
		}
		rows.AddRow(it.ID, it.OrderID, it.MenuItemID, variation, it.Name, it.UnitPrice, it.Quantity, addons, nil)
	}
	return rows
}

func tableRows(tables ...Table) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "restaurant_id", "table_number", "capacity", "status", "current_amount", "updated_at",
	})
	for _, tb := range tables {
		rows.AddRow(tb.ID, tb.RestaurantID, tb.TableNumber, tb.Capacity, string(tb.Status), tb.CurrentAmount, tb.UpdatedAt)
	}
	return rows
}

func kotRows(kots ...KOT) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "order_id", "kot_number", "status", "printed_at", "completed_at", "created_at", "updated_at",
	})
	for _, k := range kots {
		var printedAt, completedAt any
		if k.PrintedAt != nil {
			printedAt = *k.PrintedAt
		}
		if k.CompletedAt != nil {
			completedAt = *k.CompletedAt
		}
		rows.AddRow(k.ID, k.OrderID, k.KOTNumber, string(k.Status), printedAt, completedAt, k.CreatedAt, k.UpdatedAt)
	}
	return rows
}

type fixture struct {
	restaurantID uuid.UUID
	table        Table
	customerID   uuid.UUID
	coffee       MenuItem
	large        Variation
	extraShot    Addon
}

func newFixture() fixture {
	restaurantID := uuid.New()
	menuItemID := uuid.New()
	large := Variation{ID: uuid.New(), Name: "Large", Price: 229}
	regular := Variation{ID: uuid.New(), Name: "Regular", Price: 179}
	extraShot := Addon{ID: uuid.New(), Name: "Extra Shot", Price: 40}
	return fixture{
		restaurantID: restaurantID,
		customerID:   uuid.New(),
		table: Table{
			ID:           uuid.New(),
			RestaurantID: restaurantID,
			TableNumber:  "T1",
			Capacity:     4,
			Status:       TableAvailable,
			UpdatedAt:    testNow.Add(-time.Hour),
		},
		coffee: MenuItem{
			ID:             menuItemID,
			RestaurantID:   restaurantID,
			Category:       "Beverages",
			Name:           "Cappuccino",
			Price:          179,
			Dietary:        DietaryVeg,
			IsCustomizable: true,
			IsAvailable:    true,
			Variations:     []Variation{regular, large},
			Addons:         []Addon{extraShot},
		},
		large:     large,
		extraShot: extraShot,
	}
}

func (f fixture) catalog() map[uuid.UUID]MenuItem {
	return map[uuid.UUID]MenuItem{f.coffee.ID: f.coffee}
}

// order is the priced coffee order: 2 x (229 + 40).
func (f fixture) order(status OrderStatus, payment PaymentStatus) Order {
	return Order{
		ID:            uuid.New(),
		RestaurantID:  f.restaurantID,
		TableID:       f.table.ID,
		CustomerID:    f.customerID,
		OrderNumber:   "ORD000042",
		Subtotal:      538,
		Tax:           96.84,
		Total:         634.84,
		Status:        status,
		PaymentStatus: payment,
		CreatedAt:     testNow.Add(-30 * time.Minute),
		UpdatedAt:     testNow.Add(-30 * time.Minute),
	}
}

func (f fixture) item(orderID uuid.UUID) OrderItem {
	variation := f.large.ID
	return OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		MenuItemID:  f.coffee.ID,
		VariationID: &variation,
		Name:        "Cappuccino (Large)",
		UnitPrice:   269,
		Quantity:    2,
		AddonIDs:    []uuid.UUID{f.extraShot.ID},
	}
}
