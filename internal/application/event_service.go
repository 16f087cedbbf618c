package application

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-booker/internal/domain/event"
	"github.com/sanosuguru/go-event-booker/internal/pkg/logger"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type EventService struct {
	catalog    event.Catalog
	clock      clockwork.Clock
	defaultTTL time.Duration
	cache      EventCache
	sweeper    ExpiredBookingSweeper
}

// NewEventService は EventService を作成する
// cache と sweeper は nil でもよい
func NewEventService(catalog event.Catalog, clk clockwork.Clock, defaultTTL time.Duration, cache EventCache, sweeper ExpiredBookingSweeper) *EventService {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if defaultTTL <= 0 {
		defaultTTL = event.DefaultBookingTTL
	}
	return &EventService{
		catalog:    catalog,
		clock:      clk,
		defaultTTL: defaultTTL,
		cache:      cache,
		sweeper:    sweeper,
	}
}

type CreateEventInput struct {
	Name       string
	Date       time.Time
	Capacity   int
	BookingTTL time.Duration
}

func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*event.Event, error) {
	ttl := input.BookingTTL
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	now := s.clock.Now()
	e := event.NewEvent(input.Name, input.Date, input.Capacity, ttl, now)
	if err := e.Validate(now); err != nil {
		return nil, err
	}
	if err := s.catalog.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, e); err != nil {
			logger.Warn("イベントのキャッシュ保存に失敗", zap.String("event_id", e.ID), zap.Error(err))
		}
	}
	logger.Info("イベントを作成しました",
		zap.String("event_id", e.ID),
		zap.Int("capacity", e.Capacity),
		zap.Duration("booking_ttl", e.BookingTTL),
	)
	return e, nil
}

// GetEvent は期限切れの仮押さえを回収してからイベントを返す
func (s *EventService) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	if s.sweeper != nil {
		if _, err := s.sweeper.SweepExpired(ctx); err != nil {
			logger.Warn("読み取り時の期限切れ回収に失敗", zap.Error(err))
		}
	}
	return s.catalog.GetByID(ctx, id)
}

func (s *EventService) ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.catalog.List(ctx, limit, offset)
}
