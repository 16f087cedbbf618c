package application

import (
	"context"

	"github.com/sanosuguru/go-event-booker/internal/domain/booking"
	"github.com/sanosuguru/go-event-booker/internal/domain/event"
)

// EventPublisher は予約のライフサイクルイベントを外部へ送る
type EventPublisher interface {
	Publish(ctx context.Context, msg booking.LifecycleEvent) error
}

// EventCache はイベントの不変な属性（名前・日時・定員・TTL）をキャッシュする
// Reserved は保持しないため、空席数の参照には使わない
type EventCache interface {
	Get(ctx context.Context, id string) (*event.Event, error)
	Set(ctx context.Context, e *event.Event) error
}

// ExpiredBookingSweeper は期限切れの pending 予約を回収する
type ExpiredBookingSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}
