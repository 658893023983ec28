package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/zippdf/zippdf/internal/cache"
	"github.com/zippdf/zippdf/internal/convert"
	"github.com/zippdf/zippdf/internal/database"
)

const (
	callbackConvert = "convert_pdf_"
	callbackClose   = "close_"
)

var stageTexts = map[convert.Stage]string{
	convert.StageExtract:  "📦 Extracting archive...",
	convert.StageAssemble: "🖨️ Building PDF...",
	convert.StageUpload:   "📤 Uploading PDF...",
}

func isZipName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}

func isZipDocument(m *tgbotapi.Message) bool {
	return m.Document != nil && isZipName(m.Document.FileName)
}

// handleFile answers a file posted by an authorized user with the action prompt.
func (b *Bot) handleFile(ctx context.Context, m *tgbotapi.Message) {
	if err := b.authorize(ctx, m.From.ID, false); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			b.reply(ctx, m, notAuthorizedText(b.cfg.SupportChat))
			return
		}
		b.logger.Error("Failed to check authorization", "user", m.From.ID, "error", err)
		b.reply(ctx, m, msgDatabaseError)
		return
	}

	att := attachmentOf(m)
	id := uuid.NewString()
	promptID, err := b.msg.Send(ctx, m.Chat.ID, m.MessageID, msgFileReceived,
		Button{Text: buttonConvert, Data: callbackConvert + id},
		Button{Text: buttonClose, Data: callbackClose + id},
	)
	if err != nil {
		b.logger.Error("Failed to send prompt", "chat", m.Chat.ID, "error", err)
		return
	}

	if err := b.pending.Put(ctx, cache.PendingFile{
		ID:              id,
		ChatID:          m.Chat.ID,
		MessageID:       m.MessageID,
		PromptMessageID: promptID,
		UserID:          m.From.ID,
		Kind:            att.kind,
		FileID:          att.fileID,
		FileName:        att.name,
		FileSize:        att.size,
	}); err != nil {
		b.logger.Error("Failed to store pending file", "id", id, "error", err)
		b.edit(ctx, m.Chat.ID, promptID, msgDatabaseError)
		return
	}
	b.logger.Debug("Prompted for received file", "id", id, "file", att, "user", m.From.ID)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil {
		return
	}
	switch {
	case strings.HasPrefix(cq.Data, callbackConvert):
		b.handleConvertCallback(ctx, cq, strings.TrimPrefix(cq.Data, callbackConvert))
	case strings.HasPrefix(cq.Data, callbackClose):
		b.handleCloseCallback(ctx, cq, strings.TrimPrefix(cq.Data, callbackClose))
	default:
		b.answer(ctx, cq, "", false)
	}
}

func (b *Bot) handleCloseCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, id string) {
	if err := b.pending.Delete(ctx, id); err != nil {
		b.logger.Warn("Failed to forget pending file", "id", id, "error", err)
	}
	if cq.Message != nil && cq.Message.Chat != nil {
		if err := b.msg.Delete(ctx, cq.Message.Chat.ID, cq.Message.MessageID); err != nil {
			b.logger.Warn("Failed to delete prompt", "error", err)
		}
	}
	b.answer(ctx, cq, msgClosed, false)
}

func (b *Bot) handleConvertCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, id string) {
	if err := b.authorize(ctx, cq.From.ID, false); err != nil {
		if !errors.Is(err, ErrUnauthorized) {
			b.logger.Error("Failed to check authorization", "user", cq.From.ID, "error", err)
		}
		b.answer(ctx, cq, msgNotAllowed, true)
		return
	}

	pf, err := b.pending.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			b.logger.Error("Failed to load pending file", "id", id, "error", err)
		}
		b.answer(ctx, cq, msgExpired, true)
		return
	}
	if pf.UserID != cq.From.ID {
		b.answer(ctx, cq, msgNotAllowed, true)
		return
	}
	if pf.Kind != "document" {
		b.answer(ctx, cq, msgNoDocument, true)
		return
	}
	if !isZipName(pf.FileName) {
		b.answer(ctx, cq, msgNotZip, true)
		return
	}

	// the request is consumed, a second click finds nothing
	if err := b.pending.Delete(ctx, id); err != nil {
		b.logger.Warn("Failed to forget pending file", "id", id, "error", err)
	}
	b.answer(ctx, cq, "", false)

	statusID := pf.PromptMessageID
	if cq.Message != nil {
		statusID = cq.Message.MessageID
	}
	b.edit(ctx, pf.ChatID, statusID, msgProcessing)

	job := &convert.Job{
		UserID:  pf.UserID,
		ChatID:  pf.ChatID,
		ReplyTo: pf.MessageID,
		Source: convert.Source{
			FileID:   pf.FileID,
			FileName: pf.FileName,
			Size:     pf.FileSize,
		},
	}
	b.runJob(ctx, job, statusID)
}

// handlePDF runs the interactive flow: ask for an archive and wait for it.
func (b *Bot) handlePDF(ctx context.Context, m *tgbotapi.Message) {
	if err := b.authorize(ctx, m.From.ID, true); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			b.reply(ctx, m, notAllowedCommandText(b.cfg.SupportChat))
			return
		}
		b.logger.Error("Failed to check authorization", "user", m.From.ID, "error", err)
		b.reply(ctx, m, msgDatabaseError)
		return
	}

	b.reply(ctx, m, awaitText(b.awaitTimeout))

	zipMsg, err := b.waiters.Wait(ctx, m.Chat.ID, m.From.ID, b.awaitTimeout, isZipDocument)
	if err != nil {
		if errors.Is(err, convert.ErrAwaitTimeout) {
			b.conv.Tracker().Failed(convert.StageAwaitUpload)
			b.logger.Debug("No archive received in time", "user", m.From.ID)
			b.reply(ctx, m, timeoutText(b.awaitTimeout))
		}
		return
	}

	statusID, err := b.msg.Send(ctx, m.Chat.ID, zipMsg.MessageID, msgProcessing)
	if err != nil {
		b.logger.Error("Failed to send status message", "chat", m.Chat.ID, "error", err)
		return
	}

	job := &convert.Job{
		UserID:  m.From.ID,
		ChatID:  m.Chat.ID,
		ReplyTo: zipMsg.MessageID,
		Source: convert.Source{
			FileID:   zipMsg.Document.FileID,
			FileName: zipMsg.Document.FileName,
			Size:     int64(zipMsg.Document.FileSize),
		},
	}
	b.runJob(ctx, job, statusID)
}

// runJob converts job and reports the outcome in the status message.
func (b *Bot) runJob(ctx context.Context, job *convert.Job, statusID int) {
	if settings, err := b.db.GetUserSettings(ctx, job.UserID); err != nil {
		b.logger.Warn("Failed to load settings, converting without metadata", "user", job.UserID, "error", err)
	} else {
		job.Title = settings.Get(database.SettingTitle)
		job.Author = settings.Get(database.SettingAuthor)
	}

	obs := convert.ObserverFunc(func(ctx context.Context, _ *convert.Job, stage convert.Stage) {
		if text, ok := stageTexts[stage]; ok {
			b.edit(ctx, job.ChatID, statusID, text)
		}
	})

	res, err := b.conv.Run(ctx, job, obs)
	if err != nil {
		b.edit(ctx, job.ChatID, statusID, stageFailedText(err))
		return
	}
	b.logger.Info("Sent PDF", "user", job.UserID, "file", job.PDFName(), "pages", res.Pages, "took", res.Duration.Round(time.Millisecond))
	b.edit(ctx, job.ChatID, statusID, msgDone)
}
