package ordering

import (
	"context"
	"errors"
	"testing"

	"tableorder-service/internal/apperr"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubArchiver struct {
	archived []string
	err      error
}

func (a *stubArchiver) ArchiveReceipt(_ context.Context, order Order) error {
	a.archived = append(a.archived, order.OrderNumber)
	return a.err
}

func paidCopy(o Order) Order {
	method := PaymentCash
	paid := o
	paid.PaymentStatus = PaymentPaid
	paid.PaymentMethod = &method
	paid.PaidAt = &testNow
	paid.UpdatedAt = testNow
	return paid
}

func TestProcessPaymentReleasesTable(t *testing.T) {
	archiver := &stubArchiver{err: errors.New("bucket unavailable")}
	svc, mock, pub := newTestService(t, WithReceiptArchiver(archiver))
	f := newFixture()
	order := f.order(OrderServed, PaymentUnpaid)
	occupied := f.table
	occupied.Status = TableOccupied
	occupied.CurrentAmount = order.Total
	released := f.table
	released.UpdatedAt = testNow

	expectBegin(mock)
	mock.ExpectQuery(q("from orders o where o.id = $1 for update")).WillReturnRows(orderRows(order))
	mock.ExpectQuery(q("set payment_status = 'PAID'")).
		WithArgs(order.ID, "CASH", testNow).
		WillReturnRows(orderRows(paidCopy(order)))
	mock.ExpectQuery(q("from tables t where t.id = $1 for update")).WillReturnRows(tableRows(occupied))
	mock.ExpectQuery(q("select count(*) from orders where table_id = $1 and payment_status = 'UNPAID'")).
		WithArgs(f.table.ID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(q("update tables t set status = 'AVAILABLE', current_amount = 0")).
		WillReturnRows(tableRows(released))
	mock.ExpectQuery(q("from order_items")).WillReturnRows(itemRows(f.item(order.ID)))
	mock.ExpectCommit()

	result, err := svc.ProcessPayment(context.Background(), order.ID, PaymentCash)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.True(t, result.TableReleased)
	assert.Equal(t, TableAvailable, result.Table.Status)
	assert.Equal(t, 0.0, result.Table.CurrentAmount)
	assert.Equal(t, PaymentPaid, result.Order.PaymentStatus)
	require.NotNil(t, result.Order.PaymentMethod)
	assert.Equal(t, PaymentCash, *result.Order.PaymentMethod)
	assert.Equal(t, []string{"ORD000042"}, archiver.archived)
	assert.Equal(t, []string{
		EventOrderStatus + "@" + TableRoom(f.table.ID),
		EventTableStatus + "@" + RestaurantRoom(f.restaurantID),
	}, pub.names())
}

func TestProcessPaymentKeepsTableWithSiblingUnpaid(t *testing.T) {
	svc, mock, _ := newTestService(t)
	f := newFixture()
	order := f.order(OrderServed, PaymentUnpaid)
	occupied := f.table
	occupied.Status = TableOccupied
	occupied.CurrentAmount = 1269.68

	expectBegin(mock)
	mock.ExpectQuery(q("from orders o where o.id = $1 for update")).WillReturnRows(orderRows(order))
	mock.ExpectQuery(q("set payment_status = 'PAID'")).WillReturnRows(orderRows(paidCopy(order)))
	mock.ExpectQuery(q("from tables t where t.id = $1 for update")).WillReturnRows(tableRows(occupied))
	mock.ExpectQuery(q("select count(*) from orders")).WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(q("from order_items")).WillReturnRows(itemRows(f.item(order.ID)))
	mock.ExpectCommit()

	result, err := svc.ProcessPayment(context.Background(), order.ID, PaymentCash)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.False(t, result.TableReleased)
	assert.Equal(t, TableOccupied, result.Table.Status)
	assert.Equal(t, 1269.68, result.Table.CurrentAmount)
}

func TestProcessPaymentAlreadyPaid(t *testing.T) {
	svc, mock, pub := newTestService(t)
	f := newFixture()
	order := paidCopy(f.order(OrderServed, PaymentUnpaid))

	expectBegin(mock)
	mock.ExpectQuery(q("for update")).WillReturnRows(orderRows(order))
	mock.ExpectRollback()

	_, err := svc.ProcessPayment(context.Background(), order.ID, PaymentUPI)
	assert.True(t, apperr.IsCode(err, apperr.CodeOrderAlreadyPaid))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, pub.names())
}

func TestProcessPaymentUnknownMethod(t *testing.T) {
	svc, mock, _ := newTestService(t)
	_, err := svc.ProcessPayment(context.Background(), uuid.New(), PaymentMethod("CHEQUE"))
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDiscount(t *testing.T) {
	svc, mock, pub := newTestService(t)
	f := newFixture()
	order := f.order(OrderServed, PaymentUnpaid)
	reason := "loyalty"
	discounted := order
	discounted.Discount = 50
	discounted.DiscountReason = &reason
	discounted.Total = 584.84
	table := f.table
	table.Status = TableOccupied
	table.CurrentAmount = 584.84

	expectBegin(mock)
	mock.ExpectQuery(q("from orders o where o.id = $1 for update")).WillReturnRows(orderRows(order))
	mock.ExpectQuery(q("update orders o set discount = $2")).
		WithArgs(order.ID, 50.0, &reason, 584.84, testNow).
		WillReturnRows(orderRows(discounted))
	mock.ExpectQuery(q("set current_amount = greatest(current_amount + $2, 0)")).
		WithArgs(f.table.ID, -50.0, testNow).
		WillReturnRows(tableRows(table))
	mock.ExpectQuery(q("from order_items")).WillReturnRows(itemRows(f.item(order.ID)))
	mock.ExpectCommit()

	got, err := svc.ApplyDiscount(context.Background(), DiscountInput{OrderID: order.ID, Amount: discountOf(50), Reason: &reason})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 584.84, got.Total)
	assert.InDelta(t, got.Subtotal+got.Tax-got.Discount, got.Total, 0.001)
	assert.Len(t, pub.names(), 2)
}

func discountOf(v float64) *float64 {
	return &v
}

func TestApplyDiscountRejections(t *testing.T) {
	f := newFixture()

	t.Run("missing amount", func(t *testing.T) {
		svc, mock, pub := newTestService(t)
		_, err := svc.ApplyDiscount(context.Background(), DiscountInput{OrderID: uuid.New()})
		assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
		require.NoError(t, mock.ExpectationsWereMet())
		assert.Empty(t, pub.names())
	})

	t.Run("negative", func(t *testing.T) {
		svc, mock, _ := newTestService(t)
		_, err := svc.ApplyDiscount(context.Background(), DiscountInput{OrderID: uuid.New(), Amount: discountOf(-1)})
		assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exceeds total", func(t *testing.T) {
		svc, mock, _ := newTestService(t)
		order := f.order(OrderServed, PaymentUnpaid)
		expectBegin(mock)
		mock.ExpectQuery(q("for update")).WillReturnRows(orderRows(order))
		mock.ExpectRollback()

		_, err := svc.ApplyDiscount(context.Background(), DiscountInput{OrderID: order.ID, Amount: discountOf(700)})
		assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already paid", func(t *testing.T) {
		svc, mock, _ := newTestService(t)
		order := paidCopy(f.order(OrderServed, PaymentUnpaid))
		expectBegin(mock)
		mock.ExpectQuery(q("for update")).WillReturnRows(orderRows(order))
		mock.ExpectRollback()

		_, err := svc.ApplyDiscount(context.Background(), DiscountInput{OrderID: order.ID, Amount: discountOf(10)})
		assert.True(t, apperr.IsCode(err, apperr.CodeOrderAlreadyPaid))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGenerateBillIsIdempotent(t *testing.T) {
	svc, mock, _ := newTestService(t)
	f := newFixture()
	first := f.order(OrderServed, PaymentUnpaid)
	second := f.order(OrderPlaced, PaymentUnpaid)
	second.OrderNumber = "ORD000043"

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(q("o.table_id = $1 and o.payment_status = 'UNPAID' order by o.created_at asc")).
			WithArgs(f.table.ID).
			WillReturnRows(orderRows(first, second))
		mock.ExpectQuery(q("from order_items")).
			WillReturnRows(itemRows(f.item(first.ID), f.item(second.ID), f.item(second.ID)))
	}

	a, err := svc.GenerateBill(context.Background(), f.table.ID)
	require.NoError(t, err)
	b, err := svc.GenerateBill(context.Background(), f.table.ID)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 1076.0, a.Subtotal)
	assert.Equal(t, 193.68, a.Tax)
	assert.Equal(t, 1269.68, a.Total)
	assert.Equal(t, 3, a.ItemCount)
	assert.Equal(t, a.Total, b.Total)
	assert.Equal(t, a.ItemCount, b.ItemCount)
}

func TestGenerateBillWithoutUnpaidOrders(t *testing.T) {
	svc, mock, _ := newTestService(t)
	mock.ExpectQuery(q("o.payment_status = 'UNPAID'")).WillReturnRows(orderRows())

	_, err := svc.GenerateBill(context.Background(), uuid.New())
	assert.True(t, apperr.IsCode(err, apperr.CodeNoUnpaidOrders))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestBillNotifiesRestaurant(t *testing.T) {
	svc, mock, pub := newTestService(t)
	f := newFixture()
	order := f.order(OrderServed, PaymentUnpaid)

	mock.ExpectQuery(q("o.payment_status = 'UNPAID'")).WillReturnRows(orderRows(order))
	mock.ExpectQuery(q("from order_items")).WillReturnRows(itemRows(f.item(order.ID)))

	_, err := svc.RequestBill(context.Background(), f.table.ID)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, pub.events, 1)
	assert.Equal(t, RestaurantRoom(f.restaurantID), pub.events[0].Room)
	payload, ok := pub.events[0].Payload.(BillRequestPayload)
	require.True(t, ok)
	assert.Equal(t, 634.84, payload.Total)
	assert.Equal(t, 1, payload.ItemCount)
}
