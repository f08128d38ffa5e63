package room

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pagepair/pkg/domain"
	"pagepair/pkg/store"
)

func TestRegistryCreateGeneratesReadableCode(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(store.NewMemoryStore())

	room, err := reg.Create(ctx, "host-1", "Ana", "Dune", 412, 3)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(room.ID) != codeLength {
		t.Fatalf("code length = %d, want %d", len(room.ID), codeLength)
	}
	for _, r := range room.ID {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("code %q contains %q outside the alphabet", room.ID, r)
		}
	}
	if room.CreatedAt.IsZero() || room.ChunkCount != 3 {
		t.Fatalf("room not fully recorded: %+v", room)
	}
}

func TestRegistryCreateRetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemoryStore()
	collider := &collideOnce{MemoryStore: m}
	reg := NewRegistry(collider)

	room, err := reg.Create(ctx, "host-1", "Ana", "Dune", 412, 1)
	if err != nil {
		t.Fatalf("create with one collision: %v", err)
	}
	if collider.attempts != 2 {
		t.Fatalf("attempts = %d, want 2", collider.attempts)
	}
	if _, err := m.GetRoom(ctx, room.ID); err != nil {
		t.Fatalf("room missing after retry: %v", err)
	}
}

func TestRegistryDeleteRefusesNonHost(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemoryStore()
	reg := NewRegistry(m)
	room, err := reg.Create(ctx, "host-1", "Ana", "Dune", 412, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Join(ctx, room.ID, "partner-1", "Ben"); err != nil {
		t.Fatal(err)
	}

	if err := reg.Delete(ctx, room.ID, "partner-1"); !errors.Is(err, ErrNotHost) {
		t.Fatalf("partner delete err = %v, want ErrNotHost", err)
	}
	if _, err := m.GetRoom(ctx, room.ID); err != nil {
		t.Fatalf("room gone after refused delete: %v", err)
	}

	if err := reg.Delete(ctx, room.ID, "host-1"); err != nil {
		t.Fatalf("host delete: %v", err)
	}
	if _, err := m.GetRoom(ctx, room.ID); !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("room survived host delete: %v", err)
	}
}

func TestRegistryJoinUnknownRoom(t *testing.T) {
	reg := NewRegistry(store.NewMemoryStore())
	if _, err := reg.Join(context.Background(), "NOPE42", "u", "U"); !errors.Is(err, store.ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
}

// collideOnce fails the first CreateRoom with ErrRoomExists to exercise the
// code retry loop.
type collideOnce struct {
	*store.MemoryStore
	attempts int
}

func (c *collideOnce) CreateRoom(ctx context.Context, room domain.Room) error {
	c.attempts++
	if c.attempts == 1 {
		return store.ErrRoomExists
	}
	return c.MemoryStore.CreateRoom(ctx, room)
}
