package db

import (
	"context"
	"errors"
	"fmt"

	"callcentre-bot/internal/models"

	"github.com/jackc/pgx/v5"
)

// EnsureCardsTable creates the card pointer table when it does not exist.
// The rest of the schema belongs to the CRM; this table is ours alone.
func (d *DB) EnsureCardsTable(ctx context.Context) error {
	_, err := d.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS order_cards (
			order_id   BIGINT NOT NULL,
			audience   TEXT   NOT NULL,
			chat_id    BIGINT NOT NULL,
			message_id INT    NOT NULL,
			PRIMARY KEY (order_id, audience)
		)`)
	if err != nil {
		return fmt.Errorf("ensure order_cards: %w", err)
	}
	return nil
}

// GetCard returns the active card pointer for one audience, or (nil, nil).
func (d *DB) GetCard(ctx context.Context, orderID int64, audience string) (*models.CardRef, error) {
	var ref models.CardRef
	err := d.Pool.QueryRow(ctx, `
		SELECT order_id, audience, chat_id, message_id
		FROM order_cards WHERE order_id = $1 AND audience = $2`,
		orderID, audience).
		Scan(&ref.OrderID, &ref.Audience, &ref.ChatID, &ref.MessageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get card %d/%s: %w", orderID, audience, err)
	}
	return &ref, nil
}

// SaveCard records (or replaces) the active card pointer for one audience.
func (d *DB) SaveCard(ctx context.Context, ref *models.CardRef) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO order_cards (order_id, audience, chat_id, message_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, audience)
		DO UPDATE SET chat_id = EXCLUDED.chat_id, message_id = EXCLUDED.message_id`,
		ref.OrderID, ref.Audience, ref.ChatID, ref.MessageID)
	if err != nil {
		return fmt.Errorf("save card %d/%s: %w", ref.OrderID, ref.Audience, err)
	}
	return nil
}

// DeleteCard drops the card pointer for one audience.
func (d *DB) DeleteCard(ctx context.Context, orderID int64, audience string) error {
	_, err := d.Pool.Exec(ctx,
		`DELETE FROM order_cards WHERE order_id = $1 AND audience = $2`,
		orderID, audience)
	if err != nil {
		return fmt.Errorf("delete card %d/%s: %w", orderID, audience, err)
	}
	return nil
}
