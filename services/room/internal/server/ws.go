package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pagepair/pkg/room"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Cross-origin browsers are allowed; auth happens via reader token.
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingPeriod   = 45 * time.Second
)

// clientFrame is what the reader client sends over the socket.
type clientFrame struct {
	Type string `json:"type"` // "position" or "chat"
	Page int    `json:"page,omitempty"`
	Text string `json:"text,omitempty"`
}

// serverFrame is what the server pushes: the full session state on every
// change.
type serverFrame struct {
	Type  string      `json:"type"` // "state"
	State *room.State `json:"state,omitempty"`
}

func (s *Server) handleSessionSocket(w http.ResponseWriter, r *http.Request, me room.Identity, roomID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	session, err := s.app.OpenSession(r.Context(), roomID, me, room.Options{})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		session.Close()
		return
	}
	defer session.Close()

	logger := slog.Default().With("room", roomID, "user", me.ID)
	logger.Info("session socket opened")

	done := make(chan struct{})

	go func() {
		defer close(done)
		defer conn.Close()
		conn.SetReadLimit(1 << 16)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		})
		for {
			var frame clientFrame
			if err := conn.ReadJSON(&frame); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("session socket read", "err", err)
				}
				return
			}
			// Only this loop reads; all writes happen on the update loop
			// below, so rejected frames are just logged.
			switch frame.Type {
			case "position":
				session.SavePosition(frame.Page)
			case "chat":
				if _, err := session.Send(r.Context(), frame.Text); err != nil {
					logger.Warn("send chat message", "err", err)
				}
			default:
				logger.Warn("unknown frame type", "type", frame.Type)
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case state, ok := <-session.Updates():
			if !ok {
				_ = conn.Close()
				<-done
				logger.Info("session socket closed")
				return
			}
			if !writeFrame(conn, serverFrame{Type: "state", State: &state}) {
				_ = conn.Close()
				<-done
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				<-done
				return
			}
		case <-done:
			logger.Info("session socket closed")
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, frame serverFrame) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	payload, err := json.Marshal(frame)
	if err != nil {
		return false
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return false
	}
	return true
}
