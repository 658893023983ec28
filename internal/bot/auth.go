package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// authorize returns ErrUnauthorized unless userID is in the authorization store.
// Admins pass too when allowAdmin is set.
func (b *Bot) authorize(ctx context.Context, userID int64, allowAdmin bool) error {
	if allowAdmin && b.cfg.IsAdmin(userID) {
		return nil
	}
	ok, err := b.db.IsAuthorizedUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check authorization: %w", err)
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// adminOnly runs fn when the sender is an admin. Other users are ignored.
func (b *Bot) adminOnly(ctx context.Context, m *tgbotapi.Message, fn func(context.Context, *tgbotapi.Message)) {
	if !b.cfg.IsAdmin(m.From.ID) {
		b.logger.Debug("Ignoring admin command from non-admin", "command", m.Command(), "user", m.From.ID)
		return
	}
	fn(ctx, m)
}

func (b *Bot) handleCheckAuth(ctx context.Context, m *tgbotapi.Message) {
	ok, err := b.db.IsAuthorizedUser(ctx, m.From.ID)
	if err != nil {
		b.logger.Error("Failed to check authorization", "user", m.From.ID, "error", err)
		b.reply(ctx, m, msgDatabaseError)
		return
	}
	b.reply(ctx, m, checkAuthText(ok, b.cfg.SupportChat))
}
