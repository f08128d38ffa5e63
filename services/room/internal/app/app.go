package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pagepair/pkg/archive"
	"pagepair/pkg/asset"
	"pagepair/pkg/chunk"
	"pagepair/pkg/domain"
	"pagepair/pkg/room"
	"pagepair/pkg/store"
	"pagepair/services/room/internal/config"
)

// Config holds runtime configuration for the core application.
type Config struct {
	// Store overrides backend selection when set; tests use this.
	Store store.LiveStore

	StoreBackend  string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	PublicBaseURL string
	FragmentSize  int
	Debounce      time.Duration
}

// App wires the document store, chunk transport, room registry, and the
// original-document archive into one application core.
type App struct {
	store     store.LiveStore
	transport *asset.Transport
	rooms     *room.Registry
	originals archive.Archive
	redis     *redis.Client

	publicBaseURL string
	presignExpiry time.Duration
	debounce      time.Duration
}

// New constructs the application around the configured store backend.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	var redisClient *redis.Client
	if dataStore == nil {
		switch cfg.StoreBackend {
		case config.BackendMemory:
			dataStore = store.NewMemoryStore()
		case config.BackendPostgres:
			if cfg.DatabaseURL == "" {
				return nil, errors.New("database URL required")
			}
			if cfg.RedisAddr == "" {
				return nil, errors.New("redis addr required")
			}
			gormStore, err := store.NewGormStore(cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("init postgres store: %w", err)
			}
			redisClient = redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
			})
			dataStore = store.NewRedisLiveStore(gormStore, redisClient)
		default:
			return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
		}
	}

	var originals archive.Archive = archive.Disabled{}
	if cfg.MinioEndpoint != "" {
		minioArchive, err := archive.NewMinioArchive(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init archive: %w", err)
		}
		originals = minioArchive
	}

	return &App{
		store:         dataStore,
		transport:     asset.New(dataStore, cfg.FragmentSize),
		rooms:         room.NewRegistry(dataStore),
		originals:     originals,
		redis:         redisClient,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		presignExpiry: 15 * time.Minute,
		debounce:      cfg.Debounce,
	}, nil
}

// Redis returns the backend Redis client, nil for the memory backend.
func (a *App) Redis() *redis.Client {
	return a.redis
}

// RegisterUser creates or refreshes a reader profile.
func (a *App) RegisterUser(ctx context.Context, name, color string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, errors.New("name required")
	}
	return a.store.UpsertUser(ctx, domain.User{
		ID:    uuid.NewString(),
		Name:  name,
		Color: color,
	})
}

// GetUser returns the stored reader profile.
func (a *App) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return a.store.GetUser(ctx, userID)
}

// UpdateProfile renames or recolors a reader profile.
func (a *App) UpdateProfile(ctx context.Context, userID, name, color string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, errors.New("name required")
	}
	return a.store.UpdateUser(ctx, userID, name, color)
}

// CreateRoom creates a room for the host's document: the room record first,
// then the chunked payload, then the original into the archive. A failed
// chunk upload rolls the room back so no half-readable room survives.
func (a *App) CreateRoom(ctx context.Context, host room.Identity, filename string, payload []byte, onProgress asset.ProgressFunc) (domain.Room, error) {
	if len(payload) == 0 {
		return domain.Room{}, asset.ErrEmptyPayload
	}
	title, pageCount := documentInfo(payload, filename)
	chunkCount := chunk.Count(base64.StdEncoding.EncodedLen(len(payload)), a.transport.FragmentSize())

	created, err := a.rooms.Create(ctx, host.ID, host.Name, title, pageCount, chunkCount)
	if err != nil {
		return domain.Room{}, err
	}
	if _, err := a.transport.Upload(ctx, payload, created.ID, onProgress); err != nil {
		if delErr := a.store.DeleteRoom(context.WithoutCancel(ctx), created.ID); delErr != nil {
			slog.Warn("rollback after failed upload", "room", created.ID, "err", delErr)
		}
		return domain.Room{}, fmt.Errorf("upload document: %w", err)
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := a.originals.PutOriginal(ctx, created.ID, bytes.NewReader(payload), int64(len(payload)), contentType); err != nil {
		slog.Warn("archive original", "room", created.ID, "err", err)
	}
	return created, nil
}

// JoinRoom claims the partner seat for user.
func (a *App) JoinRoom(ctx context.Context, roomID string, user room.Identity) (domain.Room, error) {
	return a.rooms.Join(ctx, roomID, user.ID, user.Name)
}

// GetRoom returns the current room snapshot.
func (a *App) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	return a.rooms.Get(ctx, roomID)
}

// DownloadDocument reassembles the room's document payload.
func (a *App) DownloadDocument(ctx context.Context, roomID string, onProgress asset.ProgressFunc) ([]byte, string, error) {
	current, err := a.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, "", err
	}
	payload, err := a.transport.Download(ctx, roomID, current.ChunkCount, onProgress)
	if err != nil {
		return nil, "", err
	}
	return payload, current.Title, nil
}

// DeleteRoom ends the room. Only the host may do this.
func (a *App) DeleteRoom(ctx context.Context, roomID, requesterID string) error {
	if err := a.rooms.Delete(ctx, roomID, requesterID); err != nil {
		return err
	}
	if err := a.originals.DeleteOriginal(ctx, roomID); err != nil {
		slog.Warn("delete archived original", "room", roomID, "err", err)
	}
	return nil
}

// OriginalURL returns a pre-signed URL for the archived original document.
func (a *App) OriginalURL(ctx context.Context, roomID string) (string, error) {
	if _, err := a.rooms.Get(ctx, roomID); err != nil {
		return "", err
	}
	return a.originals.PresignOriginal(ctx, roomID, a.presignExpiry)
}

// JoinURL is the shareable link the host sends to the partner.
func (a *App) JoinURL(roomID string) string {
	if a.publicBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/join/%s", a.publicBaseURL, roomID)
}

// OpenSession starts a live reading session for one participant.
func (a *App) OpenSession(ctx context.Context, roomID string, me room.Identity, opts room.Options) (*room.Session, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = a.debounce
	}
	return room.Open(ctx, a.store, roomID, me, opts)
}
