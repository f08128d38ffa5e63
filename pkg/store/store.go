// Package store defines the document store the synchronization core runs
// against: keyed records with atomic multi-record batches and push-based
// change subscriptions. MemoryStore serves tests and local development;
// GormStore plus a Redis notifier serves production.
package store

import (
	"context"

	"pagepair/pkg/domain"
)

// CancelFunc releases one live subscription. Safe to call more than once.
type CancelFunc func()

// Store defines persistence operations for rooms, chunks, progress,
// messages, and reader profiles.
type Store interface {
	// CreateRoom writes the room record and the host's initial progress
	// record (page 0) in one atomic batch: either both exist afterwards or
	// neither does. Returns ErrRoomExists on an id collision.
	CreateRoom(ctx context.Context, room domain.Room) error
	GetRoom(ctx context.Context, roomID string) (domain.Room, error)
	// AttachPartner claims the partner seat. First join wins: an empty seat
	// is taken, a re-join by the same user refreshes the stored name, and a
	// different user against an occupied seat gets ErrRoomFull. The
	// partner's progress record is created if absent, never reset. Returns
	// the updated room snapshot so the joiner can resolve the host
	// immediately.
	AttachPartner(ctx context.Context, roomID, userID, userName string) (domain.Room, error)
	// DeleteRoom removes the room record, every chunk, and every progress
	// record in one atomic batch. Partial deletion is the one forbidden
	// outcome.
	DeleteRoom(ctx context.Context, roomID string) error

	PutChunk(ctx context.Context, roomID string, index int, data string) error
	// GetChunk returns a ChunkMissingError naming the index when the record
	// is absent.
	GetChunk(ctx context.Context, roomID string, index int) (string, error)

	// SaveProgress upserts one user's position, last write wins.
	SaveProgress(ctx context.Context, roomID, userID string, page int) error
	GetProgress(ctx context.Context, roomID, userID string) (domain.Progress, error)

	// AppendMessage stores msg with a store-assigned id (when empty) and a
	// store-assigned monotonically increasing SentAt, and returns the stored
	// record.
	AppendMessage(ctx context.Context, msg domain.Message) (domain.Message, error)
	// ListMessages returns the most recent limit messages ordered by SentAt
	// ascending. The limit is a read window, not a retention policy: older
	// rows are kept.
	ListMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error)

	UpsertUser(ctx context.Context, user domain.User) (domain.User, error)
	GetUser(ctx context.Context, userID string) (domain.User, error)
	UpdateUser(ctx context.Context, userID, name, color string) (domain.User, error)
}

// Watcher provides push-based change subscriptions. Each watch delivers the
// current value immediately (when one exists) and again after every change.
// Delivery is latest-wins: a slow consumer sees the newest state, not every
// intermediate one. Within one watch, values arrive in store order.
type Watcher interface {
	WatchRoom(ctx context.Context, roomID string) (<-chan domain.Room, CancelFunc)
	WatchProgress(ctx context.Context, roomID, userID string) (<-chan domain.Progress, CancelFunc)
	// WatchMessages re-delivers the full ordered window on every change, not
	// a diff.
	WatchMessages(ctx context.Context, roomID string, limit int) (<-chan []domain.Message, CancelFunc)
}

// LiveStore is the full contract the session controller needs.
type LiveStore interface {
	Store
	Watcher
}
