package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"pagepair/pkg/domain"
	"pagepair/pkg/store"
)

func domainRoomFixture(id string) domain.Room {
	return domain.Room{ID: id, HostID: "host-1", HostName: "Ana", Title: "Dune", PageCount: 412, ChunkCount: 1}
}

// countingStore counts durable progress writes.
type countingStore struct {
	*store.MemoryStore
	mu     sync.Mutex
	writes int
}

func (c *countingStore) SaveProgress(ctx context.Context, roomID, userID string, page int) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.MemoryStore.SaveProgress(ctx, roomID, userID, page)
}

func (c *countingStore) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func newCountingStore(t *testing.T, roomID string) *countingStore {
	t.Helper()
	m := store.NewMemoryStore()
	err := m.CreateRoom(context.Background(), domainRoomFixture(roomID))
	if err != nil {
		t.Fatal(err)
	}
	return &countingStore{MemoryStore: m}
}

func TestDebounceCoalescesRapidSaves(t *testing.T) {
	cs := newCountingStore(t, "R1")
	w := NewPositionWriter(cs, "R1", "host-1", 40*time.Millisecond)

	for page := 1; page <= 10; page++ {
		w.Save(page)
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, func() bool { return cs.writeCount() == 1 })
	p, err := cs.GetProgress(context.Background(), "R1", "host-1")
	if err != nil {
		t.Fatal(err)
	}
	if p.CurrentPage != 10 {
		t.Fatalf("durable page = %d, want the last value 10", p.CurrentPage)
	}
	// Settle: no second write appears later.
	time.Sleep(80 * time.Millisecond)
	if got := cs.writeCount(); got != 1 {
		t.Fatalf("writes = %d, want exactly 1", got)
	}
}

func TestDebounceFlushWritesImmediately(t *testing.T) {
	cs := newCountingStore(t, "R1")
	w := NewPositionWriter(cs, "R1", "host-1", time.Hour)

	w.Save(7)
	w.Flush()
	if got := cs.writeCount(); got != 1 {
		t.Fatalf("writes after flush = %d, want 1", got)
	}
	// A flush with nothing pending is a no-op.
	w.Flush()
	if got := cs.writeCount(); got != 1 {
		t.Fatalf("idle flush wrote: %d", got)
	}
}

func TestDebounceStopDiscardsPendingWrite(t *testing.T) {
	cs := newCountingStore(t, "R1")
	w := NewPositionWriter(cs, "R1", "host-1", 20*time.Millisecond)

	w.Save(3)
	w.Stop()
	time.Sleep(60 * time.Millisecond)
	if got := cs.writeCount(); got != 0 {
		t.Fatalf("writes after stop = %d, want 0", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
