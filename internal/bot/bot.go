package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/zippdf/zippdf/internal/cache"
	"github.com/zippdf/zippdf/internal/config"
	"github.com/zippdf/zippdf/internal/convert"
	"github.com/zippdf/zippdf/internal/database"
)

// Bot dispatches Telegram updates to the command handlers and the conversion flows.
type Bot struct {
	cfg     *config.Config
	db      database.DB
	pending *cache.PendingCache
	conv    *convert.Orchestrator
	msg     Messenger
	waiters *WaitRegistry
	logger  *log.Logger

	awaitTimeout time.Duration

	wg sync.WaitGroup
}

// New creates a new Bot.
func New(cfg *config.Config, db database.DB, pending *cache.PendingCache, conv *convert.Orchestrator, msg Messenger) *Bot {
	await := 30 * time.Second
	if cfg.Conversion != nil && cfg.Conversion.AwaitTimeout > 0 {
		await = cfg.Conversion.AwaitTimeout
	}
	return &Bot{
		cfg:          cfg,
		db:           db,
		pending:      pending,
		conv:         conv,
		msg:          msg,
		waiters:      NewWaitRegistry(),
		logger:       log.Default().WithPrefix("bot"),
		awaitTimeout: await,
	}
}

// Waiters returns the wait registry of the interactive flow.
func (b *Bot) Waiters() *WaitRegistry {
	return b.waiters
}

// Run handles updates until ctx is done or the channel is closed.
// Every update is handled in its own goroutine, Run waits for them before it returns.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, u)
			}()
		}
	}
}

// HandleUpdate handles a single update. A panic in a handler is logged and doesn't stop the bot.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in update handler", "update", u.UpdateID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.Chat == nil || !m.Chat.IsPrivate() {
		return
	}
	if b.waiters.Deliver(m) {
		b.logger.Debug("Message consumed by waiting request", "chat", m.Chat.ID, "message", m.MessageID)
		return
	}
	if m.IsCommand() {
		b.handleCommand(ctx, m)
		return
	}
	if attachmentOf(m) != nil {
		b.handleFile(ctx, m)
	}
}

func (b *Bot) handleCommand(ctx context.Context, m *tgbotapi.Message) {
	cmd := m.Command()
	b.logger.Debug("Handling command", "command", cmd, "user", m.From.ID)

	switch cmd {
	case "start", "help":
		b.reply(ctx, m, helpText)
	case "addautho_user":
		b.adminOnly(ctx, m, b.handleAddUsers)
	case "delautho_user":
		b.adminOnly(ctx, m, b.handleRemoveUsers)
	case "autho_users":
		b.adminOnly(ctx, m, b.handleListUsers)
	case "check_autho":
		b.handleCheckAuth(ctx, m)
	case "pdf":
		b.handlePDF(ctx, m)
	case "metadata":
		b.handleMetadata(ctx, m)
	default:
		if s, ok := setters[cmd]; ok {
			b.handleSetter(ctx, m, s)
		}
	}
}

// reply answers m, errors are logged.
func (b *Bot) reply(ctx context.Context, m *tgbotapi.Message, text string) {
	if _, err := b.msg.Send(ctx, m.Chat.ID, m.MessageID, text); err != nil {
		b.logger.Error("Failed to send reply", "chat", m.Chat.ID, "error", err)
	}
}

func (b *Bot) edit(ctx context.Context, chatID int64, messageID int, text string) {
	if err := b.msg.Edit(ctx, chatID, messageID, text); err != nil {
		b.logger.Error("Failed to edit message", "chat", chatID, "message", messageID, "error", err)
	}
}

func (b *Bot) answer(ctx context.Context, cq *tgbotapi.CallbackQuery, text string, alert bool) {
	if err := b.msg.AnswerCallback(ctx, cq.ID, text, alert); err != nil {
		b.logger.Error("Failed to answer callback", "callback", cq.ID, "error", err)
	}
}

// attachment is a file carried by a message.
type attachment struct {
	kind   string
	fileID string
	name   string
	size   int64
}

func attachmentOf(m *tgbotapi.Message) *attachment {
	switch {
	case m.Document != nil:
		return &attachment{kind: "document", fileID: m.Document.FileID, name: m.Document.FileName, size: int64(m.Document.FileSize)}
	case m.Video != nil:
		return &attachment{kind: "video", fileID: m.Video.FileID, name: m.Video.FileName, size: int64(m.Video.FileSize)}
	case m.Audio != nil:
		return &attachment{kind: "audio", fileID: m.Audio.FileID, name: m.Audio.FileName, size: int64(m.Audio.FileSize)}
	default:
		return nil
	}
}

func (a *attachment) String() string {
	return fmt.Sprintf("%s %q", a.kind, a.name)
}
