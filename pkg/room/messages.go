package room

import (
	"context"
	"errors"
	"strings"

	"pagepair/pkg/domain"
	"pagepair/pkg/store"
)

const (
	// MaxMessageText is the longest chat text stored; longer input is
	// truncated, not rejected.
	MaxMessageText = 2000
	// DefaultMessageWindow is how many recent messages the live view shows.
	// It is a read limit; older messages stay in storage.
	DefaultMessageWindow = 100
)

// ErrEmptyMessage rejects chat messages with no visible content.
var ErrEmptyMessage = errors.New("message text is empty")

// SendMessage validates and truncates text, then appends a message carrying
// the sender's identity and current page. The store assigns the timestamp.
func SendMessage(ctx context.Context, s store.Store, roomID string, from Identity, text string, page int) (domain.Message, error) {
	text = truncateText(strings.TrimSpace(text), MaxMessageText)
	if text == "" {
		return domain.Message{}, ErrEmptyMessage
	}
	return s.AppendMessage(ctx, domain.Message{
		RoomID: roomID,
		UserID: from.ID,
		Name:   from.Name,
		Color:  from.Color,
		Text:   text,
		Page:   page,
	})
}

// truncateText cuts text to at most max runes, never splitting one.
func truncateText(text string, max int) string {
	runes := []rune(text)
	if len(runes) > max {
		runes = runes[:max]
	}
	return string(runes)
}
