package db

import (
	"context"
	"fmt"
	"time"

	"callcentre-bot/internal/models"
)

// AddCashEntry appends a ledger line and returns its id.
func (d *DB) AddCashEntry(ctx context.Context, e *models.CashEntry) (int64, error) {
	var id int64
	err := d.Pool.QueryRow(ctx, `
		INSERT INTO cash (name, amount, city, note, name_create, payment_purpose, date_create)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id`,
		e.Type, e.Amount, e.City, e.Note, e.CreatedBy, e.PaymentPurpose).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add cash entry: %w", err)
	}
	return id, nil
}

// CashBalance returns income minus expense for one city.
func (d *DB) CashBalance(ctx context.Context, city string) (float64, error) {
	var balance float64
	err := d.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN name = $1 THEN amount ELSE -amount END), 0)::float8
		FROM cash WHERE city = $2`,
		models.CashIncome, city).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("cash balance %s: %w", city, err)
	}
	return balance, nil
}

// CashHistory returns ledger lines for the cities within [from, to), newest
// first.
func (d *DB) CashHistory(ctx context.Context, cities []string, from, to time.Time) ([]models.CashEntry, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, name, amount::float8, city, COALESCE(payment_purpose, ''),
		       COALESCE(note, ''), COALESCE(name_create, ''), date_create
		FROM cash
		WHERE city = ANY($1) AND date_create >= $2 AND date_create < $3
		ORDER BY date_create DESC`,
		cities, from, to)
	if err != nil {
		return nil, fmt.Errorf("cash history: %w", err)
	}
	defer rows.Close()

	var out []models.CashEntry
	for rows.Next() {
		var e models.CashEntry
		if err := rows.Scan(&e.ID, &e.Type, &e.Amount, &e.City, &e.PaymentPurpose,
			&e.Note, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
