package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zippdf/zippdf/internal/convert"
)

func TestWaitRegistryDeliversToMatchingChat(t *testing.T) {
	r := NewWaitRegistry()
	_, ch := r.Subscribe(userID, userID, isZipDocument)

	assert.False(t, r.Deliver(documentMessage(otherID, "f", "other.zip")), "other chat")
	assert.False(t, r.Deliver(documentMessage(userID, "f", "notes.pdf")), "no zip")
	assert.False(t, r.Deliver(privateMessage(userID, "hello")), "no document")
	assert.Equal(t, 1, r.Len())

	msg := documentMessage(userID, "f", "photos.ZIP")
	assert.True(t, r.Deliver(msg))
	assert.Zero(t, r.Len())

	select {
	case got := <-ch:
		assert.Same(t, msg, got)
	default:
		t.Fatal("message not delivered")
	}

	// consumed once
	assert.False(t, r.Deliver(documentMessage(userID, "f", "photos.zip")))
}

func TestWaitRegistryOldestFirst(t *testing.T) {
	r := NewWaitRegistry()
	_, first := r.Subscribe(userID, userID, nil)
	_, second := r.Subscribe(userID, userID, nil)

	require.True(t, r.Deliver(privateMessage(userID, "a")))
	require.True(t, r.Deliver(privateMessage(userID, "b")))

	assert.Equal(t, "a", (<-first).Text)
	assert.Equal(t, "b", (<-second).Text)
}

func TestWaitRegistryWaitTimeout(t *testing.T) {
	r := NewWaitRegistry()

	start := time.Now()
	msg, err := r.Wait(context.Background(), userID, userID, 30*time.Millisecond, nil)
	assert.Nil(t, msg)
	require.ErrorIs(t, err, convert.ErrAwaitTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Zero(t, r.Len())
}

func TestWaitRegistryWaitCanceled(t *testing.T) {
	r := NewWaitRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Wait(ctx, userID, userID, time.Minute, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, r.Len())
}

func TestWaitRegistryWaitReceives(t *testing.T) {
	r := NewWaitRegistry()

	var (
		wg  sync.WaitGroup
		got *tgbotapi.Message
		err error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, err = r.Wait(context.Background(), userID, userID, 5*time.Second, isZipDocument)
	}()

	require.Eventually(t, func() bool { return r.Len() == 1 }, time.Second, time.Millisecond)
	require.True(t, r.Deliver(documentMessage(userID, "f", "photos.zip")))
	wg.Wait()

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "photos.zip", got.Document.FileName)
}
