package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/zippdf/zippdf/internal/config"
	"github.com/zippdf/zippdf/internal/convert"
)

var (
	_ Messenger         = (*Telegram)(nil)
	_ convert.Fetcher   = (*Telegram)(nil)
	_ convert.Deliverer = (*Telegram)(nil)
)

// Telegram is the Bot API transport. It sends messages, downloads archives
// and uploads the finished documents.
type Telegram struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
	logger      *log.Logger
}

// NewTelegram logs in to the Bot API with the configured token.
func NewTelegram(cfg *config.TelegramConfig) (*Telegram, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	api.Debug = cfg.Debug

	logger := log.Default().WithPrefix("telegram")
	logger.Info("Authorized on telegram", "username", api.Self.UserName)

	return &Telegram{
		api:         api,
		pollTimeout: cfg.PollTimeout,
		logger:      logger,
	}, nil
}

// Username returns the username of the bot account.
func (t *Telegram) Username() string {
	return t.api.Self.UserName
}

// Updates starts long polling. The channel is closed by StopUpdates.
func (t *Telegram) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.pollTimeout
	u.AllowedUpdates = []string{"message", "callback_query"}
	return t.api.GetUpdatesChan(u)
}

// StopUpdates stops long polling.
func (t *Telegram) StopUpdates() {
	t.api.StopReceivingUpdates()
}

func (t *Telegram) Send(_ context.Context, chatID int64, replyTo int, text string, buttons ...Button) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = replyTo
	msg.AllowSendingWithoutReply = true
	if len(buttons) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, b := range buttons {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data)))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

func (t *Telegram) Edit(_ context.Context, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := t.api.Send(edit); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func (t *Telegram) Delete(_ context.Context, chatID int64, messageID int) error {
	if _, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (t *Telegram) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	if _, err := t.api.Request(cb); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// Fetch downloads the file identified by src.FileID to path.
func (t *Telegram) Fetch(ctx context.Context, src convert.Source, path string) error {
	url, err := t.api.GetFileDirectURL(src.FileID)
	if err != nil {
		return fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := t.api.Client.Do(req)
	if err != nil {
		// the url contains the bot token
		return fmt.Errorf("failed to download file %s", src.FileName)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to download file %s: %w", src.FileName, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	t.logger.Debug("Downloaded file", "name", src.FileName, "size", humanize.IBytes(uint64(n))) //nolint:gosec
	return nil
}

// Deliver uploads the PDF as a reply to the message that carried the archive.
func (t *Telegram) Deliver(_ context.Context, job *convert.Job, pdfPath string) error {
	doc := tgbotapi.NewDocument(job.ChatID, tgbotapi.FilePath(pdfPath))
	doc.Caption = fmt.Sprintf(captionPDF, job.PDFName())
	doc.ReplyToMessageID = job.ReplyTo
	doc.AllowSendingWithoutReply = true
	if _, err := t.api.Send(doc); err != nil {
		return fmt.Errorf("failed to upload document: %w", err)
	}
	return nil
}
