package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pagepair/pkg/store"
)

// DefaultDebounce is how long a position write is held back waiting for the
// next page turn. Long enough to coalesce fast flipping, short enough that
// the counterparty's view stays close.
const DefaultDebounce = 700 * time.Millisecond

// PositionWriter coalesces rapid position saves into one durable write
// carrying the latest value. It owns exactly one timer, replaced (never
// stacked) on each save. Writes that fail are logged, not retried.
type PositionWriter struct {
	store  store.Store
	roomID string
	userID string
	delay  time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	page    int
	pending bool
}

// NewPositionWriter builds a writer for one (room, user) pair. A
// non-positive delay falls back to DefaultDebounce.
func NewPositionWriter(s store.Store, roomID, userID string, delay time.Duration) *PositionWriter {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &PositionWriter{store: s, roomID: roomID, userID: userID, delay: delay}
}

// Save records page locally and schedules the durable write. It returns
// immediately; the network is never on this path.
func (w *PositionWriter) Save(page int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.page = page
	w.pending = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.write)
}

// Flush performs any pending write right away.
func (w *PositionWriter) Flush() {
	w.write()
}

// Stop discards any pending write without performing it.
func (w *PositionWriter) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = false
}

func (w *PositionWriter) write() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	page := w.page
	w.pending = false
	w.mu.Unlock()

	if err := w.store.SaveProgress(context.Background(), w.roomID, w.userID, page); err != nil {
		slog.Warn("position write failed", "room", w.roomID, "user", w.userID, "page", page, "error", err)
	}
}
