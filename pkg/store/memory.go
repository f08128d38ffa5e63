package store

import (
	"context"
	"sync"
	"time"

	"pagepair/internal/util"
	"pagepair/pkg/domain"
)

// MemoryStore keeps every record in-process. It backs tests and local
// development and implements the same watch semantics as the Redis-notified
// store: immediate snapshot, then latest-wins change delivery.
type MemoryStore struct {
	mu       sync.Mutex
	rooms    map[string]domain.Room
	chunks   map[string]map[int]string
	progress map[string]map[string]domain.Progress
	messages map[string][]domain.Message
	users    map[string]domain.User

	lastTS  time.Time
	nextSub int

	roomSubs     map[string]map[int]chan domain.Room
	progressSubs map[string]map[int]chan domain.Progress
	messageSubs  map[string]map[int]*messageSub
}

type messageSub struct {
	ch    chan []domain.Message
	limit int
}

var _ LiveStore = (*MemoryStore)(nil)

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:        make(map[string]domain.Room),
		chunks:       make(map[string]map[int]string),
		progress:     make(map[string]map[string]domain.Progress),
		messages:     make(map[string][]domain.Message),
		users:        make(map[string]domain.User),
		roomSubs:     make(map[string]map[int]chan domain.Room),
		progressSubs: make(map[string]map[int]chan domain.Progress),
		messageSubs:  make(map[string]map[int]*messageSub),
	}
}

// tick returns a strictly increasing UTC timestamp, the in-process stand-in
// for server-assigned monotonic time. Callers hold mu.
func (m *MemoryStore) tick() time.Time {
	now := time.Now().UTC()
	if !now.After(m.lastTS) {
		now = m.lastTS.Add(time.Microsecond)
	}
	m.lastTS = now
	return now
}

// offer replaces any undelivered value so a slow consumer sees the newest
// state instead of a backlog.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func (m *MemoryStore) CreateRoom(_ context.Context, room domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rooms[room.ID]; exists {
		return ErrRoomExists
	}
	now := m.tick()
	room.CreatedAt = now
	room.UpdatedAt = now
	m.rooms[room.ID] = room
	m.progress[room.ID] = map[string]domain.Progress{
		room.HostID: {RoomID: room.ID, UserID: room.HostID, CurrentPage: 0, UpdatedAt: now},
	}
	m.notifyRoom(room)
	m.notifyProgress(m.progress[room.ID][room.HostID])
	return nil
}

func (m *MemoryStore) GetRoom(_ context.Context, roomID string) (domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return domain.Room{}, ErrRoomNotFound
	}
	return room, nil
}

func (m *MemoryStore) AttachPartner(_ context.Context, roomID, userID, userName string) (domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return domain.Room{}, ErrRoomNotFound
	}
	if room.PartnerID != "" && room.PartnerID != userID {
		return domain.Room{}, ErrRoomFull
	}
	now := m.tick()
	room.PartnerID = userID
	room.PartnerName = userName
	room.UpdatedAt = now
	m.rooms[roomID] = room
	if _, exists := m.progress[roomID][userID]; !exists {
		m.progress[roomID][userID] = domain.Progress{RoomID: roomID, UserID: userID, CurrentPage: 0, UpdatedAt: now}
		m.notifyProgress(m.progress[roomID][userID])
	}
	m.notifyRoom(room)
	return room, nil
}

func (m *MemoryStore) DeleteRoom(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return ErrRoomNotFound
	}
	delete(m.rooms, roomID)
	delete(m.chunks, roomID)
	delete(m.progress, roomID)
	delete(m.messages, roomID)
	return nil
}

func (m *MemoryStore) PutChunk(_ context.Context, roomID string, index int, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chunks[roomID] == nil {
		m.chunks[roomID] = make(map[int]string)
	}
	m.chunks[roomID][index] = data
	return nil
}

func (m *MemoryStore) GetChunk(_ context.Context, roomID string, index int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.chunks[roomID][index]
	if !ok {
		return "", &ChunkMissingError{RoomID: roomID, Index: index}
	}
	return data, nil
}

func (m *MemoryStore) SaveProgress(_ context.Context, roomID, userID string, page int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return ErrRoomNotFound
	}
	if m.progress[roomID] == nil {
		m.progress[roomID] = make(map[string]domain.Progress)
	}
	p := domain.Progress{RoomID: roomID, UserID: userID, CurrentPage: page, UpdatedAt: m.tick()}
	m.progress[roomID][userID] = p
	m.notifyProgress(p)
	return nil
}

// GetProgress reads as page 0 when no record exists yet: a participant who
// never turned a page is on the first one.
func (m *MemoryStore) GetProgress(_ context.Context, roomID, userID string) (domain.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.progress[roomID][userID]; ok {
		return p, nil
	}
	return domain.Progress{RoomID: roomID, UserID: userID}, nil
}

func (m *MemoryStore) AppendMessage(_ context.Context, msg domain.Message) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[msg.RoomID]; !ok {
		return domain.Message{}, ErrRoomNotFound
	}
	if msg.ID == "" {
		msg.ID = util.NewID()
	}
	msg.SentAt = m.tick()
	m.messages[msg.RoomID] = append(m.messages[msg.RoomID], msg)
	m.notifyMessages(msg.RoomID)
	return msg, nil
}

func (m *MemoryStore) ListMessages(_ context.Context, roomID string, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.windowLocked(roomID, limit), nil
}

// windowLocked copies the most recent limit messages in SentAt order.
func (m *MemoryStore) windowLocked(roomID string, limit int) []domain.Message {
	all := m.messages[roomID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]domain.Message, len(all))
	copy(out, all)
	return out
}

func (m *MemoryStore) UpsertUser(_ context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	existing, ok := m.users[user.ID]
	if !ok {
		user.CreatedAt = now
		user.LastSeen = now
		m.users[user.ID] = user
		return user, nil
	}
	existing.LastSeen = now
	m.users[user.ID] = existing
	return existing, nil
}

func (m *MemoryStore) GetUser(_ context.Context, userID string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, userID, name, color string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	if name != "" {
		user.Name = name
	}
	if color != "" {
		user.Color = color
	}
	user.LastSeen = m.tick()
	m.users[userID] = user
	return user, nil
}

func (m *MemoryStore) WatchRoom(ctx context.Context, roomID string) (<-chan domain.Room, CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan domain.Room, 1)
	cancel := addSub(m, ctx, m.roomSubs, roomID, ch)
	if room, ok := m.rooms[roomID]; ok {
		offer(ch, room)
	}
	return ch, cancel
}

func (m *MemoryStore) WatchProgress(ctx context.Context, roomID, userID string) (<-chan domain.Progress, CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan domain.Progress, 1)
	cancel := addSub(m, ctx, m.progressSubs, progressKey(roomID, userID), ch)
	if p, ok := m.progress[roomID][userID]; ok {
		offer(ch, p)
	}
	return ch, cancel
}

func (m *MemoryStore) WatchMessages(ctx context.Context, roomID string, limit int) (<-chan []domain.Message, CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := &messageSub{ch: make(chan []domain.Message, 1), limit: limit}
	if m.messageSubs[roomID] == nil {
		m.messageSubs[roomID] = make(map[int]*messageSub)
	}
	id := m.nextSub
	m.nextSub++
	m.messageSubs[roomID][id] = sub
	var once sync.Once
	release := func() {
		once.Do(func() {
			delete(m.messageSubs[roomID], id)
			close(sub.ch)
		})
	}
	m.watchContext(ctx, release)
	offer(sub.ch, m.windowLocked(roomID, limit))
	return sub.ch, m.cancelFunc(release)
}

// addSub registers ch under key and returns a cancel that removes the
// subscription and closes the channel, exactly once, whichever of the cancel
// func or ctx fires first. Callers hold mu.
func addSub[T any](m *MemoryStore, ctx context.Context, subs map[string]map[int]chan T, key string, ch chan T) CancelFunc {
	if subs[key] == nil {
		subs[key] = make(map[int]chan T)
	}
	id := m.nextSub
	m.nextSub++
	subs[key][id] = ch
	var once sync.Once
	release := func() {
		once.Do(func() {
			delete(subs[key], id)
			close(ch)
		})
	}
	m.watchContext(ctx, release)
	return m.cancelFunc(release)
}

// watchContext releases the subscription when ctx is cancelled. A background
// context has a nil Done channel and costs nothing.
func (m *MemoryStore) watchContext(ctx context.Context, release func()) {
	done := ctx.Done()
	if done == nil {
		return
	}
	go func() {
		<-done
		m.mu.Lock()
		defer m.mu.Unlock()
		release()
	}()
}

// cancelFunc wraps an idempotent release with the store lock.
func (m *MemoryStore) cancelFunc(release func()) CancelFunc {
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		release()
	}
}

func (m *MemoryStore) notifyRoom(room domain.Room) {
	for _, ch := range m.roomSubs[room.ID] {
		offer(ch, room)
	}
}

func (m *MemoryStore) notifyProgress(p domain.Progress) {
	for _, ch := range m.progressSubs[progressKey(p.RoomID, p.UserID)] {
		offer(ch, p)
	}
}

func (m *MemoryStore) notifyMessages(roomID string) {
	for _, sub := range m.messageSubs[roomID] {
		offer(sub.ch, m.windowLocked(roomID, sub.limit))
	}
}

func progressKey(roomID, userID string) string {
	return roomID + "/" + userID
}
