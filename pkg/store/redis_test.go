package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"pagepair/pkg/domain"
)

func newBusFixture(t *testing.T) (*MemoryStore, *RedisBus) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	reader := NewMemoryStore()
	return reader, NewRedisBus(client, reader)
}

func TestRedisBusWatchRoomRereadsOnNotification(t *testing.T) {
	ctx := context.Background()
	reader, bus := newBusFixture(t)
	if err := reader.CreateRoom(ctx, newTestRoom("R1")); err != nil {
		t.Fatal(err)
	}

	ch, cancel := bus.WatchRoom(ctx, "R1")
	defer cancel()

	initial := recv(t, ch)
	if initial.HasPartner() {
		t.Fatalf("initial read: %+v", initial)
	}

	if _, err := reader.AttachPartner(ctx, "R1", "partner-1", "Ben"); err != nil {
		t.Fatal(err)
	}
	// The bus only wakes on its notification, the way GormStore drives it.
	bus.RoomChanged("R1")

	updated := recv(t, ch)
	if updated.PartnerID != "partner-1" {
		t.Fatalf("notification did not trigger a re-read: %+v", updated)
	}
}

func TestRedisBusWatchProgressAndMessages(t *testing.T) {
	ctx := context.Background()
	reader, bus := newBusFixture(t)
	if err := reader.CreateRoom(ctx, newTestRoom("R1")); err != nil {
		t.Fatal(err)
	}

	pch, pcancel := bus.WatchProgress(ctx, "R1", "host-1")
	defer pcancel()
	if p := recv(t, pch); p.CurrentPage != 0 {
		t.Fatalf("initial progress: %+v", p)
	}
	if err := reader.SaveProgress(ctx, "R1", "host-1", 17); err != nil {
		t.Fatal(err)
	}
	bus.ProgressChanged("R1", "host-1")
	if p := recv(t, pch); p.CurrentPage != 17 {
		t.Fatalf("progress after notify: %+v", p)
	}

	mch, mcancel := bus.WatchMessages(ctx, "R1", 10)
	defer mcancel()
	recv(t, mch) // initial empty window
	if _, err := reader.AppendMessage(ctx, domain.Message{RoomID: "R1", UserID: "host-1", Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	bus.MessagesChanged("R1")
	window := recv(t, mch)
	if len(window) != 1 || window[0].Text != "hi" {
		t.Fatalf("message window after notify: %+v", window)
	}
}

func TestRedisBusCancelStopsDelivery(t *testing.T) {
	ctx := context.Background()
	reader, bus := newBusFixture(t)
	if err := reader.CreateRoom(ctx, newTestRoom("R1")); err != nil {
		t.Fatal(err)
	}

	ch, cancel := bus.WatchRoom(ctx, "R1")
	recv(t, ch)
	cancel()

	// The goroutine shuts down and closes the channel.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}
