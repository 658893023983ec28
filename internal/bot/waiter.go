package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/zippdf/zippdf/internal/convert"
)

// MatchFunc decides whether a message satisfies a subscription.
type MatchFunc func(*tgbotapi.Message) bool

type subscription struct {
	id     string
	seq    uint64
	chatID int64
	userID int64
	match  MatchFunc
	ch     chan *tgbotapi.Message
}

// WaitRegistry hands the next qualifying message of a chat to a waiting handler.
// A delivered message is consumed and not processed any further.
type WaitRegistry struct {
	mu   sync.Mutex
	seq  uint64
	subs map[string]*subscription
}

// NewWaitRegistry creates an empty registry.
func NewWaitRegistry() *WaitRegistry {
	return &WaitRegistry{subs: make(map[string]*subscription)}
}

// Subscribe registers interest in the next message from userID in chatID that match accepts.
// The returned channel receives at most one message.
func (r *WaitRegistry) Subscribe(chatID, userID int64, match MatchFunc) (string, <-chan *tgbotapi.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	sub := &subscription{
		id:     uuid.NewString(),
		seq:    r.seq,
		chatID: chatID,
		userID: userID,
		match:  match,
		ch:     make(chan *tgbotapi.Message, 1),
	}
	r.subs[sub.id] = sub
	return sub.id, sub.ch
}

// Cancel removes a subscription. It is a no-op for unknown ids.
func (r *WaitRegistry) Cancel(id string) {
	r.mu.Lock()
	delete(r.subs, id)
	r.mu.Unlock()
}

// Deliver passes msg to the oldest matching subscription and reports whether it was consumed.
func (r *WaitRegistry) Deliver(msg *tgbotapi.Message) bool {
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return false
	}

	r.mu.Lock()
	var target *subscription
	for _, sub := range r.subs {
		if sub.chatID != msg.Chat.ID || sub.userID != msg.From.ID {
			continue
		}
		if sub.match != nil && !sub.match(msg) {
			continue
		}
		if target == nil || sub.seq < target.seq {
			target = sub
		}
	}
	if target != nil {
		delete(r.subs, target.id)
	}
	r.mu.Unlock()

	if target == nil {
		return false
	}
	select {
	case target.ch <- msg:
	default:
	}
	return true
}

// Len returns the number of open subscriptions.
func (r *WaitRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Wait blocks until a matching message arrives, the timeout passes or ctx is done.
// On timeout it returns convert.ErrAwaitTimeout.
func (r *WaitRegistry) Wait(ctx context.Context, chatID, userID int64, timeout time.Duration, match MatchFunc) (*tgbotapi.Message, error) {
	id, ch := r.Subscribe(chatID, userID, match)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case msg := <-ch:
		return msg, nil
	case <-timer.C:
		err = convert.ErrAwaitTimeout
	case <-ctx.Done():
		err = ctx.Err()
	}

	r.Cancel(id)
	// a message may have been delivered right before the subscription was removed
	select {
	case msg := <-ch:
		return msg, nil
	default:
		return nil, err
	}
}
