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

type Restaurant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Logo      *string   `json:"logo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Service) GetRestaurant(ctx context.Context, id uuid.UUID) (Restaurant, error) {
	var (
		restaurant Restaurant
		logo       pgtype.Text
	)
	err := s.db.QueryRow(ctx, `select id, name, logo, created_at from restaurants where id = $1`, id).
		Scan(&restaurant.ID, &restaurant.Name, &logo, &restaurant.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Restaurant{}, apperr.NotFound(apperr.CodeRestaurantNotFound, "Restaurant not found")
	}
	if err != nil {
		return Restaurant{}, fmt.Errorf("get restaurant: %w", err)
	}
	restaurant.Logo = textPtr(logo)
	return restaurant, nil
}

// RestaurantStats is the dashboard summary. ActiveOrders counts every unpaid
// order; the Today fields cover orders created since local midnight.
type RestaurantStats struct {
	ActiveOrders    int64   `json:"totalOrders"`
	ActiveTables    int64   `json:"activeTables"`
	TodayRevenue    float64 `json:"todayRevenue"`
	TodayOrderCount int64   `json:"todayOrderCount"`
	TodayPaidOrders int64   `json:"todayPaidOrders"`
}

func (s *Service) RestaurantStats(ctx context.Context, restaurantID uuid.UUID) (RestaurantStats, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var stats RestaurantStats
	err := s.db.QueryRow(ctx, `
		select
		  (select count(*) from orders where restaurant_id = $1 and payment_status = 'UNPAID'),
		  (select count(*) from tables where restaurant_id = $1 and status = 'OCCUPIED'),
		  coalesce(sum(total) filter (where payment_status = 'PAID'), 0),
		  count(*),
		  count(*) filter (where payment_status = 'PAID')
		from orders
		where restaurant_id = $1 and created_at >= $2 and created_at < $3
	`, restaurantID, dayStart, dayEnd).Scan(
		&stats.ActiveOrders,
		&stats.ActiveTables,
		&stats.TodayRevenue,
		&stats.TodayOrderCount,
		&stats.TodayPaidOrders,
	)
	if err != nil {
		return RestaurantStats{}, fmt.Errorf("restaurant stats: %w", err)
	}
	stats.TodayRevenue = round2(stats.TodayRevenue)
	return stats, nil
}
