package store

import (
	"errors"
	"fmt"
)

var (
	// ErrRoomNotFound indicates the room id is unknown.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomExists indicates a room id collision on creation.
	ErrRoomExists = errors.New("room already exists")
	// ErrRoomFull indicates a join attempt against a room whose partner seat
	// is taken by someone else.
	ErrRoomFull = errors.New("room already has a partner")
	// ErrUserNotFound indicates an unknown user id.
	ErrUserNotFound = errors.New("user not found")
)

// ChunkMissingError reports a gap in a room's chunk sequence. Downloads
// treat any gap as fatal, so the error names the first missing index.
type ChunkMissingError struct {
	RoomID string
	Index  int
}

func (e *ChunkMissingError) Error() string {
	return fmt.Sprintf("room %s: missing chunk %d", e.RoomID, e.Index)
}

// IsChunkMissing reports whether err wraps a ChunkMissingError.
func IsChunkMissing(err error) bool {
	var cm *ChunkMissingError
	return errors.As(err, &cm)
}
