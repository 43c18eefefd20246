package receipt

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LoadHeader reads the restaurant name and table label printed on documents
// for tableID.
func LoadHeader(ctx context.Context, q rowQuerier, tableID uuid.UUID) (Header, error) {
	var header Header
	err := q.QueryRow(ctx, `
		select r.name, t.table_number
		from tables t
		join restaurants r on r.id = t.restaurant_id
		where t.id = $1
	`, tableID).Scan(&header.RestaurantName, &header.TableNumber)
	if err != nil {
		return Header{}, fmt.Errorf("load receipt header: %w", err)
	}
	return header, nil
}
