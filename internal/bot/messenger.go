package bot

import (
	"context"
	"errors"
)

var (
	// ErrUnauthorized is returned when a user is not allowed to run an action.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput is returned for malformed command arguments.
	ErrInvalidInput = errors.New("invalid input")
)

// Button is an inline keyboard button. Data is sent back in the callback query.
type Button struct {
	Text string
	Data string
}

// Messenger sends messages through the chat transport.
// Texts are formatted as HTML.
type Messenger interface {
	// Send sends text to chatID and returns the id of the new message.
	// replyTo is optional, every button is put in its own row.
	Send(ctx context.Context, chatID int64, replyTo int, text string, buttons ...Button) (int, error)
	// Edit replaces the text of a message and removes its buttons.
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	// AnswerCallback acknowledges a callback query, alert shows text in a dialog.
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}
