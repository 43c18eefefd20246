package ordering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tableorder-service/internal/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const defaultTableCapacity = 4

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func tableNotFound(err error, action string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(apperr.CodeTableNotFound, "Table not found")
	}
	return fmt.Errorf("%s: %w", action, err)
}

func lockTable(ctx context.Context, q querier, id uuid.UUID) (Table, error) {
	table, err := scanTable(q.QueryRow(ctx, `select `+tableColumns+` from tables t where t.id = $1 for update`, id))
	if err != nil {
		return Table{}, tableNotFound(err, "lock table")
	}
	return table, nil
}

func occupyTable(ctx context.Context, q querier, id uuid.UUID, amount float64, now time.Time) (Table, error) {
	table, err := scanTable(q.QueryRow(ctx, `
		update tables t set status = 'OCCUPIED', current_amount = current_amount + $2, updated_at = $3
		where t.id = $1
		returning `+tableColumns,
		id, amount, now,
	))
	if err != nil {
		return Table{}, tableNotFound(err, "occupy table")
	}
	return table, nil
}

func adjustTableAmount(ctx context.Context, q querier, id uuid.UUID, delta float64, now time.Time) (Table, error) {
	table, err := scanTable(q.QueryRow(ctx, `
		update tables t set current_amount = greatest(current_amount + $2, 0), updated_at = $3
		where t.id = $1
		returning `+tableColumns,
		id, delta, now,
	))
	if err != nil {
		return Table{}, tableNotFound(err, "adjust table amount")
	}
	return table, nil
}

func releaseTable(ctx context.Context, q querier, id uuid.UUID, now time.Time) (Table, error) {
	table, err := scanTable(q.QueryRow(ctx, `
		update tables t set status = 'AVAILABLE', current_amount = 0, updated_at = $2
		where t.id = $1
		returning `+tableColumns,
		id, now,
	))
	if err != nil {
		return Table{}, tableNotFound(err, "release table")
	}
	return table, nil
}

func (s *Service) GetTable(ctx context.Context, id uuid.UUID) (TableDetail, error) {
	table, err := scanTable(s.db.QueryRow(ctx, `select `+tableColumns+` from tables t where t.id = $1`, id))
	if err != nil {
		return TableDetail{}, tableNotFound(err, "get table")
	}
	orders, err := s.ListTableOrders(ctx, id)
	if err != nil {
		return TableDetail{}, err
	}
	return TableDetail{Table: table, Orders: orders}, nil
}

func (s *Service) ListTables(ctx context.Context, restaurantID uuid.UUID) ([]Table, error) {
	rows, err := s.db.Query(ctx, `select `+tableColumns+` from tables t where t.restaurant_id = $1 order by t.table_number`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := make([]Table, 0)
	for rows.Next() {
		table, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, table)
	}
	return tables, rows.Err()
}

type CreateTableInput struct {
	RestaurantID uuid.UUID `json:"restaurantId"`
	TableNumber  string    `json:"tableNumber"`
	Capacity     int32     `json:"capacity"`
}

func (s *Service) CreateTable(ctx context.Context, in CreateTableInput) (Table, error) {
	in.TableNumber = strings.TrimSpace(in.TableNumber)
	if in.RestaurantID == uuid.Nil || in.TableNumber == "" {
		return Table{}, apperr.Validation("Restaurant ID and table number are required")
	}
	if in.Capacity < 0 {
		return Table{}, apperr.Validation("Capacity cannot be negative")
	}
	if in.Capacity == 0 {
		in.Capacity = defaultTableCapacity
	}

	now := s.timestamp()
	table, err := scanTable(s.db.QueryRow(ctx, `
		insert into tables as t (id, restaurant_id, table_number, capacity, status, current_amount, created_at, updated_at)
		values ($1, $2, $3, $4, 'AVAILABLE', 0, $5, $5)
		returning `+tableColumns,
		uuid.New(), in.RestaurantID, in.TableNumber, in.Capacity, now,
	))
	if err != nil {
		if hasPgCode(err, pgUniqueViolation) {
			return Table{}, apperr.Conflict(apperr.CodeDuplicate, fmt.Sprintf("Table %s already exists", in.TableNumber))
		}
		return Table{}, fmt.Errorf("create table: %w", err)
	}
	return table, nil
}

type UpdateTableInput struct {
	TableNumber *string `json:"tableNumber"`
	Capacity    *int32  `json:"capacity"`
}

// UpdateTable edits the label or capacity of a table. Fields left nil keep
// their current value.
func (s *Service) UpdateTable(ctx context.Context, id uuid.UUID, in UpdateTableInput) (Table, error) {
	if in.TableNumber == nil && in.Capacity == nil {
		return Table{}, apperr.Validation("Table number or capacity is required")
	}
	if in.TableNumber != nil {
		trimmed := strings.TrimSpace(*in.TableNumber)
		if trimmed == "" {
			return Table{}, apperr.Validation("Table number cannot be empty")
		}
		in.TableNumber = &trimmed
	}
	if in.Capacity != nil && *in.Capacity <= 0 {
		return Table{}, apperr.Validation("Capacity must be positive")
	}

	table, err := scanTable(s.db.QueryRow(ctx, `
		update tables t set table_number = coalesce($2, table_number), capacity = coalesce($3, capacity), updated_at = $4
		where t.id = $1
		returning `+tableColumns,
		id, in.TableNumber, in.Capacity, s.timestamp(),
	))
	if err != nil {
		if hasPgCode(err, pgUniqueViolation) {
			return Table{}, apperr.Conflict(apperr.CodeDuplicate, fmt.Sprintf("Table %s already exists", *in.TableNumber))
		}
		return Table{}, tableNotFound(err, "update table")
	}

	s.broadcaster.EmitTableStatus(ctx, table)
	return table, nil
}

// DeleteTable removes an idle table and its stale customer sessions. A table
// that is occupied or has order history is kept.
func (s *Service) DeleteTable(ctx context.Context, id uuid.UUID) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete table: %w", err)
	}
	defer tx.Rollback(ctx)

	table, err := lockTable(ctx, tx, id)
	if err != nil {
		return err
	}
	if table.Status == TableOccupied {
		return apperr.Conflict(apperr.CodeTableInUse, "Table is occupied")
	}

	if _, err := tx.Exec(ctx, `delete from customer_sessions where table_id = $1`, id); err != nil {
		return fmt.Errorf("delete table sessions: %w", err)
	}
	if _, err := tx.Exec(ctx, `delete from tables where id = $1`, id); err != nil {
		if hasPgCode(err, pgForeignKeyViolation) {
			return apperr.Conflict(apperr.CodeTableInUse, "Table has order history and cannot be deleted")
		}
		return fmt.Errorf("delete table: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete table: %w", err)
	}
	return nil
}

type TableStatusInput struct {
	Status        TableStatus
	CurrentAmount *float64
}

// UpdateTableStatus is the staff override for a table's status. The running
// amount is only touched when supplied.
func (s *Service) UpdateTableStatus(ctx context.Context, id uuid.UUID, in TableStatusInput) (Table, error) {
	if _, ok := ParseTableStatus(string(in.Status)); !ok {
		return Table{}, apperr.Validation("Invalid table status")
	}
	if in.CurrentAmount != nil && *in.CurrentAmount < 0 {
		return Table{}, apperr.Validation("Current amount cannot be negative")
	}

	table, err := scanTable(s.db.QueryRow(ctx, `
		update tables t set status = $2, current_amount = coalesce($3, current_amount), updated_at = $4
		where t.id = $1
		returning `+tableColumns,
		id, string(in.Status), in.CurrentAmount, s.timestamp(),
	))
	if err != nil {
		return Table{}, tableNotFound(err, "update table status")
	}

	s.broadcaster.EmitTableStatus(ctx, table)
	return table, nil
}
