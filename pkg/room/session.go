package room

import (
	"context"
	"sync"
	"time"

	"pagepair/pkg/domain"
	"pagepair/pkg/store"
)

// Identity is the local participant as seen by the rest of the room.
type Identity struct {
	ID    string
	Name  string
	Color string
}

// State is the session's coherent view of the room, re-delivered whole on
// every change.
type State struct {
	Room             domain.Room          `json:"room"`
	Membership       domain.Membership    `json:"membership"`
	Counterparty     *domain.Counterparty `json:"counterparty,omitempty"`
	MyPage           int                  `json:"myPage"`
	CounterpartyPage int                  `json:"counterpartyPage"`
	Messages         []domain.Message     `json:"messages"`
}

// Options tunes a session. Zero values pick the defaults.
type Options struct {
	Debounce      time.Duration
	MessageWindow int
}

// Session composes membership resolution, position sync, and the message
// stream for one participant in one room. All subscription callbacks funnel
// through one mutex, so a room update that rewires the counterparty watch
// can never race a progress delivery.
type Session struct {
	store   store.LiveStore
	roomID  string
	me      Identity
	writer  *PositionWriter
	updates chan State

	mu             sync.Mutex
	state          State
	counterpartyID string
	closed         bool

	cancelRoom     store.CancelFunc
	cancelMine     store.CancelFunc
	cancelOther    store.CancelFunc
	cancelMessages store.CancelFunc
}

// Open starts a session for me in roomID. It fails if the room is unknown;
// otherwise it wires the room, own-progress, and message watches, resolves
// the counterparty from the initial snapshot, and watches their progress too
// once one exists.
func Open(ctx context.Context, s store.LiveStore, roomID string, me Identity, opts Options) (*Session, error) {
	snapshot, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	window := opts.MessageWindow
	if window <= 0 {
		window = DefaultMessageWindow
	}

	sess := &Session{
		store:   s,
		roomID:  roomID,
		me:      me,
		writer:  NewPositionWriter(s, roomID, me.ID, opts.Debounce),
		updates: make(chan State, 1),
	}
	sess.state = State{Room: snapshot, Membership: domain.MembershipWaiting}

	roomCh, cancelRoom := s.WatchRoom(ctx, roomID)
	mineCh, cancelMine := s.WatchProgress(ctx, roomID, me.ID)
	msgCh, cancelMessages := s.WatchMessages(ctx, roomID, window)
	sess.cancelRoom = cancelRoom
	sess.cancelMine = cancelMine
	sess.cancelMessages = cancelMessages

	// Resolve the counterparty from the snapshot we already hold so a
	// joining partner sees the host without waiting for a subscription
	// tick. Applied before the consumers start so a newer watch-delivered
	// snapshot can only ever land after this one.
	sess.mu.Lock()
	sess.applyRoom(snapshot)
	sess.mu.Unlock()

	go sess.consumeRooms(roomCh)
	go sess.consumeMine(mineCh)
	go sess.consumeMessages(msgCh)

	return sess, nil
}

// Updates delivers the latest session state. Delivery is latest-wins: a slow
// consumer skips intermediate states, never blocks the core. The channel is
// closed by Close.
func (s *Session) Updates() <-chan State {
	return s.updates
}

// SavePosition updates the local page synchronously and schedules the
// debounced durable write.
func (s *Session) SavePosition(page int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.MyPage = page
	s.publish()
	s.mu.Unlock()
	s.writer.Save(page)
}

// Send appends a chat message at the current page.
func (s *Session) Send(ctx context.Context, text string) (domain.Message, error) {
	s.mu.Lock()
	page := s.state.MyPage
	s.mu.Unlock()
	return SendMessage(ctx, s.store, s.roomID, s.me, text, page)
}

// Close releases every watch the session currently holds, including ones
// re-created by counterparty switches, and flushes the pending position
// write so the last page turn is not lost.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancels := []store.CancelFunc{s.cancelRoom, s.cancelMine, s.cancelOther, s.cancelMessages}
	s.cancelOther = nil
	close(s.updates)
	s.mu.Unlock()

	for _, cancel := range cancels {
		if cancel != nil {
			cancel()
		}
	}
	s.writer.Flush()
}

func (s *Session) consumeRooms(ch <-chan domain.Room) {
	for snapshot := range ch {
		s.mu.Lock()
		if !s.closed {
			s.applyRoom(snapshot)
		}
		s.mu.Unlock()
	}
}

func (s *Session) consumeMine(ch <-chan domain.Progress) {
	for p := range ch {
		s.mu.Lock()
		if !s.closed {
			s.state.MyPage = p.CurrentPage
			s.publish()
		}
		s.mu.Unlock()
	}
}

func (s *Session) consumeOther(counterpartyID string, ch <-chan domain.Progress) {
	for p := range ch {
		s.mu.Lock()
		// Guard against a stale stream delivering after a counterparty
		// switch: only the currently resolved counterparty may move the
		// needle.
		if !s.closed && s.counterpartyID == counterpartyID {
			s.state.CounterpartyPage = p.CurrentPage
			s.publish()
		}
		s.mu.Unlock()
	}
}

func (s *Session) consumeMessages(ch <-chan []domain.Message) {
	for window := range ch {
		s.mu.Lock()
		if !s.closed {
			s.state.Messages = window
			s.publish()
		}
		s.mu.Unlock()
	}
}

// applyRoom recomputes membership from scratch and, when the counterparty id
// changed, swaps the counterparty progress watch: cancel the old one first,
// then install the new one. The message watch is never touched. Callers
// hold mu.
func (s *Session) applyRoom(snapshot domain.Room) {
	membership, counterparty, ok := Resolve(snapshot, s.me.ID)
	s.state.Room = snapshot
	s.state.Membership = membership
	if !ok {
		s.state.Counterparty = nil
	} else {
		cp := counterparty
		s.state.Counterparty = &cp
	}

	newID := ""
	if ok {
		newID = counterparty.ID
	}
	if newID != s.counterpartyID {
		if s.cancelOther != nil {
			s.cancelOther()
			s.cancelOther = nil
		}
		s.counterpartyID = newID
		s.state.CounterpartyPage = 0
		if newID != "" {
			ch, cancel := s.store.WatchProgress(context.Background(), s.roomID, newID)
			s.cancelOther = cancel
			go s.consumeOther(newID, ch)
		}
	}
	s.publish()
}

// publish hands the consumer the newest state, replacing any undelivered
// one. Callers hold mu.
func (s *Session) publish() {
	if s.closed {
		return
	}
	state := s.state
	for {
		select {
		case s.updates <- state:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}
