package db

import (
	"context"
	"errors"
	"fmt"

	"callcentre-bot/internal/models"

	"github.com/jackc/pgx/v5"
)

const masterColumns = `id, name, cities, status_work, chat_id, tg_id, COALESCE(note, ''), create_date`

func scanMaster(row pgx.Row) (*models.Master, error) {
	var m models.Master
	err := row.Scan(&m.ID, &m.Name, &m.Cities, &m.StatusWork, &m.ChatID,
		&m.TgID, &m.Note, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMaster loads one master by id. Returns (nil, nil) when absent.
func (d *DB) GetMaster(ctx context.Context, id int64) (*models.Master, error) {
	m, err := scanMaster(d.Pool.QueryRow(ctx,
		`SELECT `+masterColumns+` FROM master WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get master %d: %w", id, err)
	}
	return m, nil
}

// GetMasterByTgID resolves a Telegram account to a master record.
func (d *DB) GetMasterByTgID(ctx context.Context, tgID int64) (*models.Master, error) {
	m, err := scanMaster(d.Pool.QueryRow(ctx,
		`SELECT `+masterColumns+` FROM master WHERE tg_id = $1`, tgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get master by tg %d: %w", tgID, err)
	}
	return m, nil
}

// ListActiveMasters returns employed masters whose city set intersects
// cities, ordered by name, paginated.
func (d *DB) ListActiveMasters(ctx context.Context, cities []string, limit, offset int) ([]models.Master, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT `+masterColumns+` FROM master
		WHERE status_work = $1 AND cities && $2
		ORDER BY name ASC
		LIMIT $3 OFFSET $4`,
		models.MasterStatusActive, cities, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list masters: %w", err)
	}
	return collectMasters(rows)
}

// CountActiveMasters counts employed masters visible from cities.
func (d *DB) CountActiveMasters(ctx context.Context, cities []string) (int, error) {
	var n int
	err := d.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM master
		WHERE status_work = $1 AND cities && $2`,
		models.MasterStatusActive, cities).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count masters: %w", err)
	}
	return n, nil
}

// SearchMastersByName matches employed masters by name substring within the
// given cities.
func (d *DB) SearchMastersByName(ctx context.Context, name string, cities []string) ([]models.Master, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT `+masterColumns+` FROM master
		WHERE status_work = $1 AND cities && $2 AND LOWER(name) LIKE LOWER($3)
		ORDER BY name ASC`,
		models.MasterStatusActive, cities, "%"+name+"%")
	if err != nil {
		return nil, fmt.Errorf("search masters: %w", err)
	}
	return collectMasters(rows)
}

func collectMasters(rows pgx.Rows) ([]models.Master, error) {
	defer rows.Close()
	var out []models.Master
	for rows.Next() {
		m, err := scanMaster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// CreateMaster inserts a new employed master and returns its id.
func (d *DB) CreateMaster(ctx context.Context, m *models.Master) (int64, error) {
	var id int64
	err := d.Pool.QueryRow(ctx, `
		INSERT INTO master (name, cities, status_work, chat_id, tg_id, note, create_date)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id`,
		m.Name, m.Cities, models.MasterStatusActive, m.ChatID, m.TgID, m.Note).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create master: %w", err)
	}
	return id, nil
}

// UpdateMasterStatus sets status_work, used to fire or rehire a master.
func (d *DB) UpdateMasterStatus(ctx context.Context, id int64, statusWork string) error {
	_, err := d.Pool.Exec(ctx,
		`UPDATE master SET status_work = $1 WHERE id = $2`, statusWork, id)
	if err != nil {
		return fmt.Errorf("update master status: %w", err)
	}
	return nil
}

// UpdateMasterContacts rebinds the master's Telegram identifiers.
func (d *DB) UpdateMasterContacts(ctx context.Context, id int64, chatID, tgID *int64) error {
	_, err := d.Pool.Exec(ctx,
		`UPDATE master SET chat_id = $1, tg_id = $2 WHERE id = $3`, chatID, tgID, id)
	if err != nil {
		return fmt.Errorf("update master contacts: %w", err)
	}
	return nil
}
