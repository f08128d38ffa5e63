// Package room implements the synchronization core for a two-party reading
// room: the registry that creates, joins and deletes rooms, membership
// resolution, debounced position writes, the capped chat window, and the
// session controller that composes them.
package room

import (
	"context"
	"errors"
	"fmt"

	"pagepair/pkg/domain"
	"pagepair/pkg/store"
)

var (
	// ErrNotHost rejects a room deletion requested by anyone but the host.
	ErrNotHost = errors.New("only the host may delete a room")
	// ErrCodeExhausted indicates the creation retry loop could not find a
	// free room code.
	ErrCodeExhausted = errors.New("could not allocate a unique room code")
)

// createAttempts bounds the code-collision retry loop. With a 32^6 code
// space a second collision in a row means something is very wrong.
const createAttempts = 5

// Registry creates rooms, admits partners by code, and tears rooms down.
type Registry struct {
	store store.Store
}

// NewRegistry builds a registry over the given store.
func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s}
}

// Create allocates a room code and writes the room record together with the
// host's initial progress record in one atomic batch. The host must never
// observe a room without its own progress record.
func (r *Registry) Create(ctx context.Context, hostID, hostName, title string, pageCount, chunkCount int) (domain.Room, error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		code, err := newCode()
		if err != nil {
			return domain.Room{}, err
		}
		room := domain.Room{
			ID:         code,
			HostID:     hostID,
			HostName:   hostName,
			Title:      title,
			PageCount:  pageCount,
			ChunkCount: chunkCount,
		}
		err = r.store.CreateRoom(ctx, room)
		if errors.Is(err, store.ErrRoomExists) {
			continue
		}
		if err != nil {
			return domain.Room{}, fmt.Errorf("create room: %w", err)
		}
		return r.store.GetRoom(ctx, code)
	}
	return domain.Room{}, ErrCodeExhausted
}

// Join admits userID as the room's partner. First join wins; a re-join by
// the same user is idempotent and never resets their position. The returned
// snapshot lets the joiner resolve the host immediately, without waiting for
// a subscription tick.
func (r *Registry) Join(ctx context.Context, roomID, userID, userName string) (domain.Room, error) {
	return r.store.AttachPartner(ctx, roomID, userID, userName)
}

// Get reads the current room snapshot.
func (r *Registry) Get(ctx context.Context, roomID string) (domain.Room, error) {
	return r.store.GetRoom(ctx, roomID)
}

// Delete removes the room and all of its chunk and progress records in one
// atomic batch. Only the host may delete; the room is left untouched on any
// failure.
func (r *Registry) Delete(ctx context.Context, roomID, requesterID string) error {
	room, err := r.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.HostID != requesterID {
		return ErrNotHost
	}
	return r.store.DeleteRoom(ctx, roomID)
}
