package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"pagepair/internal/util"
	"pagepair/pkg/domain"
)

// Notifier is told after each committed mutation so a watcher layer can wake
// its subscribers. A nil notifier is fine for batch tools.
type Notifier interface {
	RoomChanged(roomID string)
	ProgressChanged(roomID, userID string)
	MessagesChanged(roomID string)
}

// GormStore implements Store on Postgres. Atomic multi-record batches map to
// database transactions; timestamps come from the server clock.
type GormStore struct {
	db       *gorm.DB
	notifier Notifier
}

var _ Store = (*GormStore)(nil)

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&RoomModel{}, &ChunkModel{}, &ProgressModel{}, &MessageModel{}, &UserModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SetNotifier installs the change notifier. Call before serving traffic.
func (g *GormStore) SetNotifier(n Notifier) {
	g.notifier = n
}

func (g *GormStore) CreateRoom(ctx context.Context, room domain.Room) error {
	now := time.Now().UTC()
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := RoomModel{
			ID:         room.ID,
			HostID:     room.HostID,
			HostName:   room.HostName,
			Title:      room.Title,
			PageCount:  room.PageCount,
			ChunkCount: room.ChunkCount,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrRoomExists
			}
			return fmt.Errorf("insert room: %w", err)
		}
		progress := ProgressModel{RoomID: room.ID, UserID: room.HostID, CurrentPage: 0, UpdatedAt: now}
		if err := tx.Create(&progress).Error; err != nil {
			return fmt.Errorf("insert host progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if g.notifier != nil {
		g.notifier.RoomChanged(room.ID)
		g.notifier.ProgressChanged(room.ID, room.HostID)
	}
	return nil
}

func (g *GormStore) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	var model RoomModel
	err := g.db.WithContext(ctx).First(&model, "id = ?", roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("load room: %w", err)
	}
	return model.toDomain(), nil
}

func (g *GormStore) AttachPartner(ctx context.Context, roomID, userID, userName string) (domain.Room, error) {
	var attached RoomModel
	var progressCreated bool
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model RoomModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "id = ?", roomID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("lock room: %w", err)
		}
		if model.PartnerID != "" && model.PartnerID != userID {
			return ErrRoomFull
		}
		model.PartnerID = userID
		model.PartnerName = userName
		model.UpdatedAt = time.Now().UTC()
		if err := tx.Save(&model).Error; err != nil {
			return fmt.Errorf("update room: %w", err)
		}

		// Create the partner's progress only if absent so a re-join never
		// resets an existing position.
		progress := ProgressModel{RoomID: roomID, UserID: userID, CurrentPage: 0, UpdatedAt: model.UpdatedAt}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&progress)
		if res.Error != nil {
			return fmt.Errorf("ensure partner progress: %w", res.Error)
		}
		progressCreated = res.RowsAffected > 0
		attached = model
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	if g.notifier != nil {
		g.notifier.RoomChanged(roomID)
		if progressCreated {
			g.notifier.ProgressChanged(roomID, userID)
		}
	}
	return attached.toDomain(), nil
}

func (g *GormStore) DeleteRoom(ctx context.Context, roomID string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&RoomModel{}, "id = ?", roomID)
		if res.Error != nil {
			return fmt.Errorf("delete room: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrRoomNotFound
		}
		if err := tx.Delete(&ChunkModel{}, "room_id = ?", roomID).Error; err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
		if err := tx.Delete(&ProgressModel{}, "room_id = ?", roomID).Error; err != nil {
			return fmt.Errorf("delete progress: %w", err)
		}
		return nil
	})
}

func (g *GormStore) PutChunk(ctx context.Context, roomID string, index int, data string) error {
	model := ChunkModel{RoomID: roomID, Idx: index, Data: data}
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	return nil
}

func (g *GormStore) GetChunk(ctx context.Context, roomID string, index int) (string, error) {
	var model ChunkModel
	err := g.db.WithContext(ctx).First(&model, "room_id = ? AND idx = ?", roomID, index).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", &ChunkMissingError{RoomID: roomID, Index: index}
	}
	if err != nil {
		return "", fmt.Errorf("load chunk: %w", err)
	}
	return model.Data, nil
}

func (g *GormStore) SaveProgress(ctx context.Context, roomID, userID string, page int) error {
	model := ProgressModel{RoomID: roomID, UserID: userID, CurrentPage: page, UpdatedAt: time.Now().UTC()}
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	if g.notifier != nil {
		g.notifier.ProgressChanged(roomID, userID)
	}
	return nil
}

// GetProgress reads as page 0 when no record exists yet.
func (g *GormStore) GetProgress(ctx context.Context, roomID, userID string) (domain.Progress, error) {
	var model ProgressModel
	err := g.db.WithContext(ctx).First(&model, "room_id = ? AND user_id = ?", roomID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Progress{RoomID: roomID, UserID: userID}, nil
	}
	if err != nil {
		return domain.Progress{}, fmt.Errorf("load progress: %w", err)
	}
	return model.toDomain(), nil
}

func (g *GormStore) AppendMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if msg.ID == "" {
		msg.ID = util.NewID()
	}
	msg.SentAt = time.Now().UTC()
	model := MessageModel{
		ID:     msg.ID,
		RoomID: msg.RoomID,
		UserID: msg.UserID,
		Name:   msg.Name,
		Color:  msg.Color,
		Text:   msg.Text,
		Page:   msg.Page,
		SentAt: msg.SentAt,
	}
	if err := g.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}
	if g.notifier != nil {
		g.notifier.MessagesChanged(msg.RoomID)
	}
	return msg, nil
}

func (g *GormStore) ListMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	var models []MessageModel
	q := g.db.WithContext(ctx).Where("room_id = ?", roomID).Order("sent_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	// Query newest-first to apply the window, deliver oldest-first.
	out := make([]domain.Message, len(models))
	for i, m := range models {
		out[len(models)-1-i] = m.toDomain()
	}
	return out, nil
}

func (g *GormStore) UpsertUser(ctx context.Context, user domain.User) (domain.User, error) {
	now := time.Now().UTC()
	model := UserModel{ID: user.ID, Name: user.Name, Color: user.Color, CreatedAt: now, LastSeen: now}
	// First contact creates the profile; later contacts only refresh
	// last_seen, never the profile fields.
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{"last_seen": now}),
		}).
		Create(&model).Error
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return g.GetUser(ctx, user.ID)
}

func (g *GormStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var model UserModel
	err := g.db.WithContext(ctx).First(&model, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return model.toDomain(), nil
}

func (g *GormStore) UpdateUser(ctx context.Context, userID, name, color string) (domain.User, error) {
	updates := map[string]any{"last_seen": time.Now().UTC()}
	if name != "" {
		updates["name"] = name
	}
	if color != "" {
		updates["color"] = color
	}
	res := g.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return domain.User{}, fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.User{}, ErrUserNotFound
	}
	return g.GetUser(ctx, userID)
}
