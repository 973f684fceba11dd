package bot

import (
	"context"

	"callcentre-bot/internal/models"
)

// actor is the resolved caller for one update. Directors win over masters
// when a Telegram account is bound to both.
type actor struct {
	director *models.Director
	master   *models.Master
}

// resolveActor looks the Telegram account up on every update, so a fired
// master loses access immediately. Returns nil for strangers.
func (b *Bot) resolveActor(ctx context.Context, tgID int64) (*actor, error) {
	dir, err := b.db.GetDirectorByTgID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if dir != nil {
		return &actor{director: dir}, nil
	}

	m, err := b.db.GetMasterByTgID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if m != nil && m.Active() {
		return &actor{master: m}, nil
	}
	return nil, nil
}
