package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pagepair/internal/ratelimit"
	"pagepair/internal/readertoken"
	"pagepair/internal/util"
	"pagepair/pkg/archive"
	"pagepair/pkg/asset"
	"pagepair/pkg/room"
	"pagepair/pkg/store"
	"pagepair/services/room/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Tokens         *readertoken.Manager
	CreateLimiter  *ratelimit.FixedWindowLimiter
	TrustedProxies *util.TrustedProxies
	MaxUploadBytes int64
}

// Server exposes HTTP endpoints for the room service.
type Server struct {
	app            *app.App
	tokens         *readertoken.Manager
	createLimiter  *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
	mux            *http.ServeMux
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server requires an app core")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("server requires a token manager")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 * 1024 * 1024
	}
	s := &Server{
		app:            cfg.App,
		tokens:         cfg.Tokens,
		createLimiter:  cfg.CreateLimiter,
		trustedProxies: cfg.TrustedProxies,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("room", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// users
	s.mux.HandleFunc("/users", s.handleUsers)
	s.mux.Handle("/users/me", s.withReader(s.handleMe))

	// rooms
	s.mux.Handle("/rooms", s.withReader(s.handleRooms))
	s.mux.Handle("/rooms/", s.withReader(s.handleRoomByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type readerHandler func(http.ResponseWriter, *http.Request, room.Identity)

func (s *Server) withReader(next readerHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		id, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, room.Identity{ID: id.UserID, Name: id.Name, Color: id.Color})
	})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.RegisterUser(r.Context(), req.Name, req.Color)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	signed, err := s.tokens.Issue(readertoken.Identity{UserID: user.ID, Name: user.Name, Color: user.Color})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  user,
		"token": signed,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, me room.Identity) {
	switch r.Method {
	case http.MethodGet:
		user, err := s.app.GetUser(r.Context(), me.ID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPatch:
		var req struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user, err := s.app.UpdateProfile(r.Context(), me.ID, req.Name, req.Color)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		// Hand back a token carrying the new profile so the client can swap it in.
		signed, err := s.tokens.Issue(readertoken.Identity{UserID: user.ID, Name: user.Name, Color: user.Color})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user":  user,
			"token": signed,
		})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request, me room.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.createLimiter != nil {
		if !s.createLimiter.Allow(util.ClientIP(r, s.trustedProxies)) {
			writeError(w, http.StatusTooManyRequests, "too many rooms created, slow down")
			return
		}
	}
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	payload, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable upload")
		return
	}
	created, err := s.app.CreateRoom(r.Context(), me, header.Filename, payload, nil)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"room":    created,
		"joinUrl": s.app.JoinURL(created.ID),
	})
}

// /rooms/{id}, /rooms/{id}/join, /rooms/{id}/document, /rooms/{id}/original, /rooms/{id}/ws
func (s *Server) handleRoomByID(w http.ResponseWriter, r *http.Request, me room.Identity) {
	path := strings.TrimPrefix(r.URL.Path, "/rooms/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		notFound(w, "not found")
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "join":
			s.handleJoinRoom(w, r, me, id)
		case "document":
			s.handleDocument(w, r, me, id)
		case "original":
			s.handleOriginal(w, r, me, id)
		case "ws":
			s.handleSessionSocket(w, r, me, id)
		default:
			notFound(w, "not found")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetRoom(w, r, me, id)
	case http.MethodDelete:
		if err := s.app.DeleteRoom(r.Context(), id, me.ID); err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request, me room.Identity, id string) {
	current, err := s.app.GetRoom(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	membership, counterparty, known := room.Resolve(current, me.ID)
	resp := map[string]any{
		"room":       current,
		"membership": membership,
	}
	if known {
		resp["counterparty"] = counterparty
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request, me room.Identity, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	joined, err := s.app.JoinRoom(r.Context(), id, me)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joined)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request, _ room.Identity, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	payload, title, err := s.app.DownloadDocument(r.Context(), id, nil)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", title+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) handleOriginal(w http.ResponseWriter, r *http.Request, _ room.Identity, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	url, err := s.app.OriginalURL(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "room not found")
	case errors.Is(err, store.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, store.ErrRoomFull):
		writeError(w, http.StatusConflict, "room is full")
	case errors.Is(err, room.ErrNotHost):
		writeError(w, http.StatusForbidden, "only the host can do that")
	case errors.Is(err, room.ErrCodeExhausted):
		writeError(w, http.StatusServiceUnavailable, "could not allocate a room code")
	case errors.Is(err, asset.ErrEmptyPayload):
		writeError(w, http.StatusBadRequest, "empty document payload")
	case errors.Is(err, archive.ErrArchiveDisabled):
		writeError(w, http.StatusNotFound, "original document not archived")
	case store.IsChunkMissing(err):
		writeError(w, http.StatusBadGateway, "document is incomplete")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCodeForRoom(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCodeForRoom(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "unauthorized":
		return "AUTH_INVALID_TOKEN"
	case message == "room not found":
		return "ROOM_NOT_FOUND"
	case message == "user not found":
		return "USER_NOT_FOUND"
	case message == "room is full":
		return "ROOM_FULL"
	case message == "only the host can do that":
		return "ROOM_NOT_HOST"
	case message == "could not allocate a room code":
		return "ROOM_CODE_EXHAUSTED"
	case message == "document is incomplete":
		return "ROOM_DOCUMENT_INCOMPLETE"
	case message == "empty document payload":
		return "ROOM_EMPTY_DOCUMENT"
	case message == "original document not archived":
		return "ROOM_ORIGINAL_UNAVAILABLE"
	case strings.Contains(message, "too many rooms"):
		return "ROOM_RATE_LIMITED"
	case message == "name required":
		return "USER_NAME_REQUIRED"
	case strings.Contains(message, "file is required"):
		return "ROOM_FILE_REQUIRED"
	case message == "invalid form data":
		return "ROOM_INVALID_UPLOAD_FORM"
	case message == "invalid json body":
		return "ROOM_INVALID_REQUEST"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found":
		return "SYSTEM_NOT_FOUND"
	}

	switch status {
	case http.StatusBadRequest:
		return "ROOM_INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusForbidden:
		return "ROOM_NOT_HOST"
	case http.StatusNotFound:
		return "ROOM_NOT_FOUND"
	case http.StatusConflict:
		return "ROOM_FULL"
	case http.StatusTooManyRequests:
		return "ROOM_RATE_LIMITED"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token != "" {
			return token, true
		}
	}
	// Browser WebSocket clients cannot set headers; accept ?token= there.
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token, true
	}
	return "", false
}
