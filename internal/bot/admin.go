package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mergestat/timediff"
)

const userIDLength = 10

// ParseUserIDs parses space separated user ids as given to the admin commands.
// All ids must be valid, otherwise nothing is returned.
func ParseUserIDs(args string) ([]int64, []string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return nil, nil, fmt.Errorf("%w: no user ids", ErrInvalidInput)
	}

	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		if len(f) != userIDLength || strings.IndexFunc(f, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			return nil, nil, fmt.Errorf("%w: %q is not a %d digit user id", ErrInvalidInput, f, userIDLength)
		}
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		ids = append(ids, id)
	}
	return ids, fields, nil
}

func (b *Bot) handleAddUsers(ctx context.Context, m *tgbotapi.Message) {
	ids, raw, err := ParseUserIDs(m.CommandArguments())
	if err != nil {
		b.logger.Debug("Invalid add command", "error", err)
		b.reply(ctx, m, msgInvalidCommand)
		return
	}
	for _, id := range ids {
		if err := b.db.AddAuthorizedUser(ctx, id); err != nil {
			b.logger.Error("Failed to add authorized user", "user", id, "error", err)
			b.reply(ctx, m, msgDatabaseError)
			return
		}
	}
	b.logger.Info("Added authorized users", "admin", m.From.ID, "users", ids)
	b.reply(ctx, m, usersAddedText(raw))
}

func (b *Bot) handleRemoveUsers(ctx context.Context, m *tgbotapi.Message) {
	ids, raw, err := ParseUserIDs(m.CommandArguments())
	if err != nil {
		b.logger.Debug("Invalid remove command", "error", err)
		b.reply(ctx, m, msgInvalidCommand)
		return
	}
	for _, id := range ids {
		if err := b.db.RemoveAuthorizedUser(ctx, id); err != nil {
			b.logger.Error("Failed to remove authorized user", "user", id, "error", err)
			b.reply(ctx, m, msgDatabaseError)
			return
		}
	}
	b.logger.Info("Removed authorized users", "admin", m.From.ID, "users", ids)
	b.reply(ctx, m, usersRemovedText(raw))
}

func (b *Bot) handleListUsers(ctx context.Context, m *tgbotapi.Message) {
	users, err := b.db.GetAuthorizedUsers(ctx)
	if err != nil {
		b.logger.Error("Failed to list authorized users", "error", err)
		b.reply(ctx, m, msgDatabaseError)
		return
	}
	if len(users) == 0 {
		b.reply(ctx, m, msgNoUsers)
		return
	}

	var sb strings.Builder
	sb.WriteString("🚻 <b>AUTHORIZED USERS:</b> 🌀\n\n")
	for _, u := range users {
		fmt.Fprintf(&sb, "<code>%d</code>", u.UserID)
		if !u.AddedAt.IsZero() {
			fmt.Fprintf(&sb, " <i>added %s</i>", timediff.TimeDiff(u.AddedAt))
		}
		sb.WriteString("\n")
	}
	b.reply(ctx, m, strings.TrimRight(sb.String(), "\n"))
}
