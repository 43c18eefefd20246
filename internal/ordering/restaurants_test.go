package ordering

import (
	"context"
	"testing"
	"time"

	"tableorder-service/internal/apperr"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRestaurant(t *testing.T) {
	svc, mock, _ := newTestService(t)
	id := uuid.New()
	mock.ExpectQuery(q("select id, name, logo, created_at from restaurants where id = $1")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "logo", "created_at"}).AddRow(id, "Blue Cafe", nil, testNow))

	restaurant, err := svc.GetRestaurant(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "Blue Cafe", restaurant.Name)
	assert.Nil(t, restaurant.Logo)
}

func TestGetRestaurantNotFound(t *testing.T) {
	svc, mock, _ := newTestService(t)
	mock.ExpectQuery(q("from restaurants")).WillReturnRows(pgxmock.NewRows([]string{"id", "name", "logo", "created_at"}))

	_, err := svc.GetRestaurant(context.Background(), uuid.New())
	assert.True(t, apperr.IsCode(err, apperr.CodeRestaurantNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRestaurantStatsCoversToday(t *testing.T) {
	svc, mock, _ := newTestService(t)
	id := uuid.New()
	dayStart := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("count(*) filter (where payment_status = 'PAID')")).
		WithArgs(id, dayStart, dayStart.AddDate(0, 0, 1)).
		WillReturnRows(pgxmock.NewRows([]string{"active", "tables", "revenue", "orders", "paid"}).
			AddRow(int64(4), int64(3), 1269.6800000001, int64(9), int64(5)))

	stats, err := svc.RestaurantStats(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, RestaurantStats{
		ActiveOrders:    4,
		ActiveTables:    3,
		TodayRevenue:    1269.68,
		TodayOrderCount: 9,
		TodayPaidOrders: 5,
	}, stats)
}
