package room

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"pagepair/pkg/store"
)

func TestSendMessageTruncatesLongText(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemoryStore()
	if err := m.CreateRoom(ctx, domainRoomFixture("R1")); err != nil {
		t.Fatal(err)
	}

	long := strings.Repeat("é", MaxMessageText+500)
	msg, err := SendMessage(ctx, m, "R1", Identity{ID: "u", Name: "U"}, long, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := utf8.RuneCountInString(msg.Text); got != MaxMessageText {
		t.Fatalf("stored %d runes, want %d", got, MaxMessageText)
	}
	if !utf8.ValidString(msg.Text) {
		t.Fatal("truncation split a rune")
	}
}

func TestSendMessageRejectsBlankText(t *testing.T) {
	m := store.NewMemoryStore()
	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := SendMessage(context.Background(), m, "R1", Identity{ID: "u"}, text, 0); err != ErrEmptyMessage {
			t.Fatalf("text %q err = %v, want ErrEmptyMessage", text, err)
		}
	}
}
