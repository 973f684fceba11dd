package db

import (
	"context"
	"errors"
	"fmt"

	"callcentre-bot/internal/models"

	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, rk, city, COALESCE(avito_name, ''), phone, type_order,
	client_name, address, date_meeting, type_equipment, problem, status_order,
	master_id, result::float8, expenditure::float8, clean::float8,
	master_change::float8, create_date, closing_data`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.RK, &o.City, &o.AvitoName, &o.Phone, &o.TypeOrder,
		&o.ClientName, &o.Address, &o.DateMeeting, &o.TypeEquipment, &o.Problem,
		&o.Status, &o.MasterID, &o.Result, &o.Expenditure, &o.Clean,
		&o.MasterChange, &o.CreatedAt, &o.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrder loads one order by id. Returns (nil, nil) when it does not exist.
func (d *DB) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	o, err := scanOrder(d.Pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

// ListOrders returns orders in the given statuses and cities, soonest
// meeting first.
func (d *DB) ListOrders(ctx context.Context, statuses []models.Status, cities []string, limit int) ([]models.Order, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status_order = ANY($1) AND city = ANY($2)
		ORDER BY date_meeting ASC
		LIMIT $3`,
		statuses, cities, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return collectOrders(rows)
}

// ListMasterOrders returns the master's own orders in the given statuses.
func (d *DB) ListMasterOrders(ctx context.Context, masterID int64, statuses []models.Status, cities []string, limit int) ([]models.Order, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status_order = ANY($1) AND city = ANY($2) AND master_id = $3
		ORDER BY date_meeting ASC
		LIMIT $4`,
		statuses, cities, masterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list master orders: %w", err)
	}
	return collectOrders(rows)
}

// SearchOrders matches by exact id, phone substring or client name substring,
// restricted to the given cities.
func (d *DB) SearchOrders(ctx context.Context, query string, cities []string, limit int) ([]models.Order, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE (id::text = $1 OR phone LIKE $2 OR LOWER(client_name) LIKE LOWER($2))
		AND city = ANY($3)
		ORDER BY date_meeting ASC
		LIMIT $4`,
		query, "%"+query+"%", cities, limit)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]models.Order, error) {
	defer rows.Close()
	var out []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// SetOrderMaster assigns (or clears, with nil) the master and sets the
// status in a single statement.
func (d *DB) SetOrderMaster(ctx context.Context, orderID int64, masterID *int64, status models.Status) error {
	_, err := d.Pool.Exec(ctx,
		`UPDATE orders SET master_id = $1, status_order = $2 WHERE id = $3`,
		masterID, status, orderID)
	if err != nil {
		return fmt.Errorf("set order master: %w", err)
	}
	return nil
}

// UpdateOrderStatus moves the order to status without touching anything else.
func (d *DB) UpdateOrderStatus(ctx context.Context, orderID int64, status models.Status) error {
	_, err := d.Pool.Exec(ctx,
		`UPDATE orders SET status_order = $1 WHERE id = $2`,
		status, orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// FinalizeOrder applies a closing (or Modern) status together with the
// settlement figures and, when entry is non-nil, appends the cash row in the
// same transaction. The order can never close without its ledger line.
func (d *DB) FinalizeOrder(ctx context.Context, order *models.Order, entry *models.CashEntry) error {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin finalize: %w", err)
	}
	defer tx.Rollback(ctx)

	if order.Status.Closing() {
		_, err = tx.Exec(ctx, `
			UPDATE orders
			SET status_order = $1, result = $2, expenditure = $3, clean = $4,
			    master_change = $5, closing_data = NOW()
			WHERE id = $6`,
			order.Status, order.Result, order.Expenditure, order.Clean,
			order.MasterChange, order.ID)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE orders SET status_order = $1 WHERE id = $2`,
			order.Status, order.ID)
	}
	if err != nil {
		return fmt.Errorf("finalize order %d: %w", order.ID, err)
	}

	if entry != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO cash (name, amount, city, note, name_create, payment_purpose, date_create)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
			entry.Type, entry.Amount, entry.City, entry.Note, entry.CreatedBy, entry.PaymentPurpose)
		if err != nil {
			return fmt.Errorf("append settlement cash row: %w", err)
		}
	}

	return tx.Commit(ctx)
}
