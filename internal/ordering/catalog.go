package ordering

import (
	"context"
	"fmt"
	"strings"

	"tableorder-service/internal/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Variations and addons are aggregated in the same statement so a single
// snapshot prices the whole order.
const catalogSelect = `
	select
	  m.id, m.restaurant_id, m.category, m.name, m.description, m.price,
	  m.dietary_type, m.is_customizable, m.is_available,
	  coalesce((
	    select json_agg(json_build_object('id', v.id, 'name', v.name, 'price', v.price) order by v.price)
	    from menu_variations v where v.menu_item_id = m.id
	  ), '[]'::json),
	  coalesce((
	    select json_agg(json_build_object('id', a.id, 'name', a.name, 'price', a.price) order by a.name)
	    from menu_addons a where a.menu_item_id = m.id
	  ), '[]'::json)
	from menu_items m
`

func scanMenuItems(rows pgx.Rows) ([]MenuItem, error) {
	defer rows.Close()

	items := make([]MenuItem, 0)
	for rows.Next() {
		var (
			item    MenuItem
			dietary string
		)
		if err := rows.Scan(
			&item.ID,
			&item.RestaurantID,
			&item.Category,
			&item.Name,
			&item.Description,
			&item.Price,
			&dietary,
			&item.IsCustomizable,
			&item.IsAvailable,
			&item.Variations,
			&item.Addons,
		); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		item.Dietary = Dietary(dietary)
		if item.Variations == nil {
			item.Variations = make([]Variation, 0)
		}
		if item.Addons == nil {
			item.Addons = make([]Addon, 0)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func loadCatalog(ctx context.Context, q querier, restaurantID uuid.UUID, menuItemIDs []uuid.UUID) (map[uuid.UUID]MenuItem, error) {
	rows, err := q.Query(ctx, catalogSelect+` where m.restaurant_id = $1 and m.id = any($2)`, restaurantID, menuItemIDs)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	items, err := scanMenuItems(rows)
	if err != nil {
		return nil, err
	}

	catalog := make(map[uuid.UUID]MenuItem, len(items))
	for _, item := range items {
		catalog[item.ID] = item
	}
	return catalog, nil
}

type MenuFilter struct {
	Dietary string
	Search  string
}

type MenuCategory struct {
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListMenu returns the available menu of a restaurant grouped by category.
// Search matches name or description, case-insensitively.
func (s *Service) ListMenu(ctx context.Context, restaurantID uuid.UUID, filter MenuFilter) ([]MenuCategory, error) {
	query := catalogSelect + ` where m.restaurant_id = $1 and m.is_available`
	args := []any{restaurantID}

	if value := strings.TrimSpace(filter.Dietary); value != "" {
		dietary, ok := ParseDietary(value)
		if !ok {
			return nil, apperr.Validation("Invalid dietary filter")
		}
		args = append(args, string(dietary))
		query += fmt.Sprintf(` and m.dietary_type = $%d`, len(args))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
		query += fmt.Sprintf(` and (m.name ilike $%[1]d or m.description ilike $%[1]d)`, len(args))
	}
	query += ` order by m.category, m.name`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	items, err := scanMenuItems(rows)
	if err != nil {
		return nil, err
	}
	return groupByCategory(items), nil
}

// groupByCategory expects items already ordered by category.
func groupByCategory(items []MenuItem) []MenuCategory {
	categories := make([]MenuCategory, 0)
	for _, item := range items {
		last := len(categories) - 1
		if last < 0 || categories[last].Name != item.Category {
			categories = append(categories, MenuCategory{Name: item.Category, Items: make([]MenuItem, 0)})
			last++
		}
		categories[last].Items = append(categories[last].Items, item)
	}
	return categories
}

func menuItemIDs(lines []LineItemInput) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.MenuItemID]; ok {
			continue
		}
		seen[line.MenuItemID] = struct{}{}
		ids = append(ids, line.MenuItemID)
	}
	return ids
}
