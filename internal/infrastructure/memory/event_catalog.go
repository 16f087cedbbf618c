package memory

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-booker/internal/domain/event"
	"github.com/sanosuguru/go-event-booker/internal/pkg/logger"
)

// eventSlot はイベント単位の排他領域
type eventSlot struct {
	mu    sync.Mutex
	event event.Event
}

// EventCatalog はプロセスメモリ上のイベントカタログ
// reserved の更新はイベントごとの mutex で直列化される
type EventCatalog struct {
	mu     sync.RWMutex
	events map[string]*eventSlot
}

// NewEventCatalog は空のカタログを作成する
func NewEventCatalog() *EventCatalog {
	return &EventCatalog{events: make(map[string]*eventSlot)}
}

// Create は新しいイベントを登録する
func (c *EventCatalog) Create(ctx context.Context, e *event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.events[e.ID]; ok {
		return event.ErrEventAlreadyExists
	}
	c.events[e.ID] = &eventSlot{event: *e}
	return nil
}

// GetByID はIDからイベントを取得する
func (c *EventCatalog) GetByID(ctx context.Context, id string) (*event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slot, ok := c.slot(id)
	if !ok {
		return nil, event.ErrEventNotFound
	}
	slot.mu.Lock()
	e := slot.event
	slot.mu.Unlock()
	return &e, nil
}

// List は開催日時の降順でイベント一覧を取得する
func (c *EventCatalog) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	slots := make([]*eventSlot, 0, len(c.events))
	for _, s := range c.events {
		slots = append(slots, s)
	}
	c.mu.RUnlock()

	events := make([]*event.Event, 0, len(slots))
	for _, s := range slots {
		s.mu.Lock()
		e := s.event
		s.mu.Unlock()
		events = append(events, &e)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].ID < events[j].ID
		}
		return events[i].Date.After(events[j].Date)
	})

	if offset >= len(events) {
		return []*event.Event{}, nil
	}
	end := len(events)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return events[offset:end], nil
}

// TryReserve は空席があれば reserved を n 増やす
func (c *EventCatalog) TryReserve(ctx context.Context, id string, n int) (bool, error) {
	if n <= 0 {
		return false, event.ErrInvalidSeatCount
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	slot, ok := c.slot(id)
	if !ok {
		return false, event.ErrEventNotFound
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.event.Reserved+n > slot.event.Capacity {
		return false, nil
	}
	slot.event.Reserved += n
	onRollback(ctx, func() { slot.add(-n) })
	return true, nil
}

// Release は reserved を n 減らす
func (c *EventCatalog) Release(ctx context.Context, id string, n int) error {
	if n <= 0 {
		return event.ErrInvalidSeatCount
	}
	slot, ok := c.slot(id)
	if !ok {
		return event.ErrEventNotFound
	}
	if released := slot.add(-n); released > 0 {
		onRollback(ctx, func() { slot.add(released) })
	}
	return nil
}

// add は reserved に delta を加え、実際に減った座席数を返す
// reserved は0未満にならない
func (s *eventSlot) add(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.event.Reserved
	s.event.Reserved += delta
	if s.event.Reserved < 0 {
		logger.Warn("reserved が負になるため0に補正",
			zap.String("event_id", s.event.ID),
			zap.Int("reserved", s.event.Reserved),
		)
		s.event.Reserved = 0
	}
	return before - s.event.Reserved
}

func (c *EventCatalog) slot(id string) (*eventSlot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.events[id]
	return s, ok
}

// インターフェースを満たしているか確認
var _ event.Catalog = (*EventCatalog)(nil)
