package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleSetter(ctx context.Context, m *tgbotapi.Message, s setter) {
	value := m.CommandArguments()
	if strings.TrimSpace(value) == "" {
		b.reply(ctx, m, s.usage())
		return
	}
	if err := b.db.SetSetting(ctx, m.From.ID, s.field, value); err != nil {
		b.logger.Error("Failed to save setting", "user", m.From.ID, "field", s.field, "error", err)
		b.reply(ctx, m, msgDatabaseError)
		return
	}
	b.logger.Debug("Saved setting", "user", m.From.ID, "field", s.field)
	b.reply(ctx, m, s.saved())
}

func (b *Bot) handleMetadata(ctx context.Context, m *tgbotapi.Message) {
	settings, err := b.db.GetUserSettings(ctx, m.From.ID)
	if err != nil {
		b.logger.Error("Failed to load settings", "user", m.From.ID, "error", err)
		b.reply(ctx, m, msgDatabaseError)
		return
	}
	b.reply(ctx, m, metadataText(settings))
}
