package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-event-booker/internal/domain/event"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// cachedEvent はキャッシュに保存するイベントの不変属性
// reserved は保存しない
type cachedEvent struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Date              time.Time `json:"date"`
	Capacity          int       `json:"capacity"`
	BookingTTLSeconds int64     `json:"booking_ttl_seconds"`
	CreatedAt         time.Time `json:"created_at"`
}

// EventCache はイベント属性のキャッシュを管理する
type EventCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventCache は新しいEventCacheインスタンスを作成する
func NewEventCache(client *redis.Client, ttl time.Duration) *EventCache {
	return &EventCache{client: client, ttl: ttl}
}

// Get はイベント属性をキャッシュから取得する。Reserved は常に 0
func (c *EventCache) Get(ctx context.Context, id string) (*event.Event, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	var v cachedEvent
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("キャッシュの復元に失敗: %w", err)
	}
	return &event.Event{
		ID:         v.ID,
		Name:       v.Name,
		Date:       v.Date,
		Capacity:   v.Capacity,
		BookingTTL: time.Duration(v.BookingTTLSeconds) * time.Second,
		CreatedAt:  v.CreatedAt,
	}, nil
}

// Set はイベント属性をキャッシュに保存する
func (c *EventCache) Set(ctx context.Context, e *event.Event) error {
	raw, err := json.Marshal(cachedEvent{
		ID:                e.ID,
		Name:              e.Name,
		Date:              e.Date,
		Capacity:          e.Capacity,
		BookingTTLSeconds: int64(e.BookingTTL / time.Second),
		CreatedAt:         e.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("キャッシュの変換に失敗: %w", err)
	}
	if err := c.client.Set(ctx, c.key(e.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

func (c *EventCache) key(id string) string {
	return fmt.Sprintf("events:meta:%s", id)
}
