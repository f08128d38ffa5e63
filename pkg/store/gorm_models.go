package store

import (
	"time"

	"pagepair/pkg/domain"
)

// GORM models used for persistence.
type RoomModel struct {
	ID          string `gorm:"primaryKey;size:16"`
	HostID      string `gorm:"not null;index"`
	HostName    string `gorm:"not null"`
	PartnerID   string
	PartnerName string
	Title       string `gorm:"not null"`
	PageCount   int    `gorm:"not null"`
	ChunkCount  int    `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (RoomModel) TableName() string { return "rooms" }

// ChunkModel holds one document fragment. The index column is named idx to
// stay clear of the SQL keyword.
type ChunkModel struct {
	RoomID string `gorm:"primaryKey;size:16"`
	Idx    int    `gorm:"primaryKey;autoIncrement:false"`
	Data   string `gorm:"type:text;not null"`
}

func (ChunkModel) TableName() string { return "chunks" }

type ProgressModel struct {
	RoomID      string `gorm:"primaryKey;size:16"`
	UserID      string `gorm:"primaryKey"`
	CurrentPage int    `gorm:"not null"`
	UpdatedAt   time.Time
}

func (ProgressModel) TableName() string { return "progress" }

type MessageModel struct {
	ID     string `gorm:"primaryKey"`
	RoomID string `gorm:"not null;index:idx_messages_room_sent,priority:1"`
	UserID string `gorm:"not null"`
	Name   string
	Color  string
	Text   string    `gorm:"type:text;not null"`
	Page   int       `gorm:"not null"`
	SentAt time.Time `gorm:"not null;index:idx_messages_room_sent,priority:2"`
}

func (MessageModel) TableName() string { return "messages" }

type UserModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Color     string `gorm:"not null"`
	CreatedAt time.Time
	LastSeen  time.Time
}

func (UserModel) TableName() string { return "users" }

func (m RoomModel) toDomain() domain.Room {
	return domain.Room{
		ID:          m.ID,
		HostID:      m.HostID,
		HostName:    m.HostName,
		PartnerID:   m.PartnerID,
		PartnerName: m.PartnerName,
		Title:       m.Title,
		PageCount:   m.PageCount,
		ChunkCount:  m.ChunkCount,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (m ProgressModel) toDomain() domain.Progress {
	return domain.Progress{
		RoomID:      m.RoomID,
		UserID:      m.UserID,
		CurrentPage: m.CurrentPage,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (m MessageModel) toDomain() domain.Message {
	return domain.Message{
		ID:     m.ID,
		RoomID: m.RoomID,
		UserID: m.UserID,
		Name:   m.Name,
		Color:  m.Color,
		Text:   m.Text,
		Page:   m.Page,
		SentAt: m.SentAt,
	}
}

func (m UserModel) toDomain() domain.User {
	return domain.User{
		ID:        m.ID,
		Name:      m.Name,
		Color:     m.Color,
		CreatedAt: m.CreatedAt,
		LastSeen:  m.LastSeen,
	}
}
