package db

import (
	"context"
	"errors"
	"fmt"

	"callcentre-bot/internal/models"

	"github.com/jackc/pgx/v5"
)

const directorColumns = `id, name, login, cities, tg_id`

func scanDirector(row pgx.Row) (*models.Director, error) {
	var d models.Director
	err := row.Scan(&d.ID, &d.Name, &d.Login, &d.Cities, &d.TgID)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDirectorByTgID resolves a Telegram account to a director record.
func (d *DB) GetDirectorByTgID(ctx context.Context, tgID int64) (*models.Director, error) {
	dir, err := scanDirector(d.Pool.QueryRow(ctx,
		`SELECT `+directorColumns+` FROM director WHERE tg_id = $1`, tgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get director by tg %d: %w", tgID, err)
	}
	return dir, nil
}

// GetDirectorByCity returns the first director whose city set contains city
// and who has a bound Telegram account. Used by the webhook receiver to pick
// a notification target.
func (d *DB) GetDirectorByCity(ctx context.Context, city string) (*models.Director, error) {
	dir, err := scanDirector(d.Pool.QueryRow(ctx, `
		SELECT `+directorColumns+` FROM director
		WHERE $1 = ANY(cities) AND tg_id IS NOT NULL
		ORDER BY id ASC
		LIMIT 1`, city))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get director for city %s: %w", city, err)
	}
	return dir, nil
}
