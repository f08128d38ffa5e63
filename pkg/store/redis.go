package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"pagepair/pkg/domain"
)

// topicPrefix namespaces all change topics on a shared Redis.
const topicPrefix = "pagepair"

// RedisBus carries change notifications between store writers and watchers
// over Redis pub/sub. The payload is irrelevant; a notification only means
// "re-read this record now", which keeps every watcher's view consistent
// with the database rather than with whoever published last.
type RedisBus struct {
	client *redis.Client
	reader Store
}

// NewRedisBus builds a bus that re-reads through reader on every
// notification.
func NewRedisBus(client *redis.Client, reader Store) *RedisBus {
	return &RedisBus{client: client, reader: reader}
}

var _ Notifier = (*RedisBus)(nil)
var _ Watcher = (*RedisBus)(nil)

func (b *RedisBus) RoomChanged(roomID string) {
	b.publish(topicRoom(roomID))
}

func (b *RedisBus) ProgressChanged(roomID, userID string) {
	b.publish(topicProgress(roomID, userID))
}

func (b *RedisBus) MessagesChanged(roomID string) {
	b.publish(topicMessages(roomID))
}

func (b *RedisBus) publish(topic string) {
	if err := b.client.Publish(context.Background(), topic, "1").Err(); err != nil {
		slog.Warn("change notification dropped", "topic", topic, "error", err)
	}
}

func (b *RedisBus) WatchRoom(ctx context.Context, roomID string) (<-chan domain.Room, CancelFunc) {
	return watch(ctx, b, topicRoom(roomID), func(ctx context.Context) (domain.Room, bool) {
		room, err := b.reader.GetRoom(ctx, roomID)
		return room, err == nil
	})
}

func (b *RedisBus) WatchProgress(ctx context.Context, roomID, userID string) (<-chan domain.Progress, CancelFunc) {
	return watch(ctx, b, topicProgress(roomID, userID), func(ctx context.Context) (domain.Progress, bool) {
		p, err := b.reader.GetProgress(ctx, roomID, userID)
		return p, err == nil
	})
}

func (b *RedisBus) WatchMessages(ctx context.Context, roomID string, limit int) (<-chan []domain.Message, CancelFunc) {
	return watch(ctx, b, topicMessages(roomID), func(ctx context.Context) ([]domain.Message, bool) {
		window, err := b.reader.ListMessages(ctx, roomID, limit)
		return window, err == nil
	})
}

// watch subscribes to one topic and delivers the freshly read state once up
// front and again after every notification. Latest-wins, like MemoryStore.
func watch[T any](ctx context.Context, b *RedisBus, topic string, read func(context.Context) (T, bool)) (<-chan T, CancelFunc) {
	ch := make(chan T, 1)
	watchCtx, stop := context.WithCancel(ctx)
	sub := b.client.Subscribe(watchCtx, topic)

	go func() {
		defer close(ch)
		defer sub.Close()
		if v, ok := read(watchCtx); ok {
			offer(ch, v)
		}
		notifications := sub.Channel()
		for {
			select {
			case <-watchCtx.Done():
				return
			case _, ok := <-notifications:
				if !ok {
					return
				}
				if v, ok := read(watchCtx); ok {
					offer(ch, v)
				}
			}
		}
	}()

	var once sync.Once
	return ch, func() { once.Do(stop) }
}

// NewRedisLiveStore composes a durable store with a Redis bus into the full
// live contract, and wires the store's mutations to the bus.
func NewRedisLiveStore(s *GormStore, client *redis.Client) LiveStore {
	bus := NewRedisBus(client, s)
	s.SetNotifier(bus)
	return struct {
		*GormStore
		*RedisBus
	}{s, bus}
}

func topicRoom(roomID string) string {
	return topicPrefix + ".room." + roomID
}

func topicProgress(roomID, userID string) string {
	return topicPrefix + ".progress." + roomID + "." + userID
}

func topicMessages(roomID string) string {
	return topicPrefix + ".messages." + roomID
}
