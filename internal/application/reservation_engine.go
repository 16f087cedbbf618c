package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-booker/internal/domain/apperror"
	"github.com/sanosuguru/go-event-booker/internal/domain/booking"
	"github.com/sanosuguru/go-event-booker/internal/domain/event"
	"github.com/sanosuguru/go-event-booker/internal/domain/transaction"
	"github.com/sanosuguru/go-event-booker/internal/pkg/logger"
	"github.com/sanosuguru/go-event-booker/internal/pkg/metrics"
)

// ReservationEngine は座席の仮押さえ・支払確定・期限切れ回収を行う
// event.Reserved と booking.Status を変更するのはこのエンジンだけ
// 座席数と予約状態をまたぐ更新は txManager のトランザクション内で行う
type ReservationEngine struct {
	catalog   event.Catalog
	ledger    booking.Ledger
	clock     clockwork.Clock
	txManager transaction.Manager
	cache     EventCache
	publisher EventPublisher
	metrics   *metrics.Metrics
	lazySweep bool
	lazyMu    sync.Mutex
}

// EngineOption は ReservationEngine の任意設定
type EngineOption func(*ReservationEngine)

// WithTxManager は座席数と予約状態をまとめて更新するためのトランザクションを設定する
// 未設定の場合、途中で失敗した更新は巻き戻らない
func WithTxManager(m transaction.Manager) EngineOption {
	return func(e *ReservationEngine) { e.txManager = m }
}

// WithEventCache はイベント属性のキャッシュを設定する
func WithEventCache(c EventCache) EngineOption {
	return func(e *ReservationEngine) { e.cache = c }
}

// WithPublisher はライフサイクルイベントの送信先を設定する
func WithPublisher(p EventPublisher) EngineOption {
	return func(e *ReservationEngine) { e.publisher = p }
}

// WithMetrics はメトリクスを設定する
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *ReservationEngine) { e.metrics = m }
}

// WithLazySweep は読み取り経路での期限切れ回収を有効にする
func WithLazySweep(enabled bool) EngineOption {
	return func(e *ReservationEngine) { e.lazySweep = enabled }
}

// NewReservationEngine は ReservationEngine を作成する
func NewReservationEngine(catalog event.Catalog, ledger booking.Ledger, clk clockwork.Clock, opts ...EngineOption) *ReservationEngine {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	e := &ReservationEngine{catalog: catalog, ledger: ledger, clock: clk}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BookInput は予約の入力
type BookInput struct {
	EventID   string
	UserID    string
	ContactID string
}

// Availability はイベントの空席状況
type Availability struct {
	EventID   string
	Capacity  int
	Available int
}

// Book は座席を1つ仮押さえし、pending の予約を作成する
func (e *ReservationEngine) Book(ctx context.Context, input BookInput) (*booking.Booking, error) {
	if input.EventID == "" {
		e.metrics.ObserveBooking(metrics.ResultInvalid)
		return nil, booking.ErrEventIDRequired
	}
	if input.UserID == "" {
		e.metrics.ObserveBooking(metrics.ResultInvalid)
		return nil, booking.ErrUserIDRequired
	}

	ev, err := e.eventAttributes(ctx, input.EventID)
	if err != nil {
		e.metrics.ObserveBooking(resultOf(err))
		return nil, err
	}

	now := e.clock.Now()
	if ev.HasStarted(now) {
		e.metrics.ObserveBooking(metrics.ResultInvalid)
		return nil, event.ErrEventAlreadyStarted
	}

	b, err := e.reserve(ctx, ev, input, now)
	if errors.Is(err, booking.ErrCapacityExceeded) && e.lazySweep {
		// 期限切れの仮押さえが残っていれば回収してから1回だけ再試行する
		if n, _ := e.SweepExpired(ctx); n > 0 {
			b, err = e.reserve(ctx, ev, input, now)
		}
	}
	if err != nil {
		e.metrics.ObserveBooking(resultOf(err))
		return nil, err
	}

	e.metrics.ObserveBooking(metrics.ResultSuccess)
	e.publish(ctx, booking.EventTypeCreated, b)
	return b, nil
}

// reserve は座席の確保と予約の登録を1つのトランザクションで行う
func (e *ReservationEngine) reserve(ctx context.Context, ev *event.Event, input BookInput, now time.Time) (*booking.Booking, error) {
	var b *booking.Booking
	err := transaction.Run(ctx, e.txManager, func(ctx context.Context) error {
		ok, err := e.catalog.TryReserve(ctx, ev.ID, 1)
		if err != nil {
			return err
		}
		if !ok {
			return booking.ErrCapacityExceeded
		}
		b = booking.NewBooking(ev.ID, input.UserID, input.ContactID, now, ev.BookingTTL)
		if err := e.ledger.Insert(ctx, b); err != nil {
			if e.txManager == nil {
				e.releaseUnrecorded(ctx, b)
			}
			return fmt.Errorf("予約登録に失敗: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// releaseUnrecorded は台帳に残らなかった座席を戻す
// トランザクションが無い構成でのみ使う
func (e *ReservationEngine) releaseUnrecorded(ctx context.Context, b *booking.Booking) {
	if err := e.catalog.Release(context.WithoutCancel(ctx), b.EventID, 1); err != nil {
		logger.Error("予約登録失敗後の座席解放に失敗",
			zap.String("event_id", b.EventID),
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
	}
}

// Confirm は支払期限内であれば予約を confirmed にする
// 既に confirmed の予約は成功として扱う
func (e *ReservationEngine) Confirm(ctx context.Context, eventID, bookingID string) (*booking.Booking, error) {
	if bookingID == "" {
		e.metrics.ObserveConfirmation(metrics.ResultInvalid)
		return nil, booking.ErrBookingIDRequired
	}

	b, err := e.ledger.GetByID(ctx, bookingID)
	if err != nil {
		e.metrics.ObserveConfirmation(resultOf(err))
		return nil, err
	}
	if b.EventID != eventID {
		e.metrics.ObserveConfirmation(metrics.ResultNotFound)
		return nil, booking.ErrBookingNotFound
	}

	switch b.Status {
	case booking.StatusConfirmed:
		e.metrics.ObserveConfirmation(metrics.ResultAlreadyConfirmed)
		return b, nil
	case booking.StatusExpired:
		e.metrics.ObserveConfirmation(metrics.ResultDeadlineExceeded)
		return nil, booking.ErrPaymentDeadlinePassed
	}

	if b.IsPastDeadline(e.clock.Now()) {
		expired, err := e.expire(ctx, b, metrics.ExpiredByConfirm)
		if err != nil {
			e.metrics.ObserveConfirmation(metrics.ResultError)
			return nil, err
		}
		if !expired {
			return e.settleLostTransition(ctx, bookingID)
		}
		e.metrics.ObserveConfirmation(metrics.ResultDeadlineExceeded)
		return nil, booking.ErrPaymentDeadlinePassed
	}

	ok, err := e.ledger.CompareAndTransition(ctx, bookingID, booking.StatusPending, booking.StatusConfirmed)
	if err != nil {
		e.metrics.ObserveConfirmation(resultOf(err))
		return nil, fmt.Errorf("予約確定に失敗: %w", err)
	}
	if !ok {
		return e.settleLostTransition(ctx, bookingID)
	}

	b.Status = booking.StatusConfirmed
	e.metrics.ObserveConfirmation(metrics.ResultSuccess)
	e.publish(ctx, booking.EventTypeConfirmed, b)
	return b, nil
}

// settleLostTransition は並行する呼び出しに遷移を先取りされた場合の結果を決める
func (e *ReservationEngine) settleLostTransition(ctx context.Context, bookingID string) (*booking.Booking, error) {
	current, err := e.ledger.GetByID(ctx, bookingID)
	if err != nil {
		e.metrics.ObserveConfirmation(resultOf(err))
		return nil, err
	}
	if current.Status == booking.StatusConfirmed {
		e.metrics.ObserveConfirmation(metrics.ResultAlreadyConfirmed)
		return current, nil
	}
	e.metrics.ObserveConfirmation(metrics.ResultDeadlineExceeded)
	return nil, booking.ErrPaymentDeadlinePassed
}

// GetAvailability は定員と空席数を返す
// 空席数は pending と confirmed の両方を差し引いた値
func (e *ReservationEngine) GetAvailability(ctx context.Context, eventID string) (*Availability, error) {
	e.sweepLazily(ctx)
	ev, err := e.catalog.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &Availability{EventID: ev.ID, Capacity: ev.Capacity, Available: ev.Available()}, nil
}

// SweepExpired は支払期限を過ぎた pending 予約を expired にし、座席を戻す
// 予約単位で完結するため、途中でキャンセルされても不整合は残らない
func (e *ReservationEngine) SweepExpired(ctx context.Context) (int, error) {
	start := e.clock.Now()
	defer func() { e.metrics.ObserveSweep(e.clock.Since(start)) }()

	var (
		count int
		errs  []error
	)
	for id, err := range e.ledger.ListPendingExpiredAsOf(ctx, start) {
		if err != nil {
			errs = append(errs, fmt.Errorf("期限切れ予約の取得に失敗: %w", err))
			break
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		b, err := e.ledger.GetByID(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("予約 %s の取得に失敗: %w", id, err))
			continue
		}
		expired, err := e.expire(ctx, b, metrics.ExpiredBySweeper)
		if expired {
			count++
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return count, errors.Join(errs...)
}

// expire は pending -> expired の遷移と座席の返却を1つのトランザクションで行う
// 座席の返却に失敗した場合は遷移も取り消され、予約は pending のまま次の回収を待つ
func (e *ReservationEngine) expire(ctx context.Context, b *booking.Booking, source string) (bool, error) {
	var transitioned bool
	err := transaction.Run(ctx, e.txManager, func(ctx context.Context) error {
		ok, err := e.ledger.CompareAndTransition(ctx, b.ID, booking.StatusPending, booking.StatusExpired)
		if err != nil {
			return fmt.Errorf("予約 %s の期限切れ処理に失敗: %w", b.ID, err)
		}
		if !ok {
			return nil
		}
		transitioned = true
		if err := e.catalog.Release(ctx, b.EventID, 1); err != nil {
			return fmt.Errorf("予約 %s の座席解放に失敗: %w", b.ID, err)
		}
		return nil
	})
	if err != nil {
		logger.Error("期限切れ予約の処理に失敗",
			zap.String("event_id", b.EventID),
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
		// トランザクションが無ければ遷移は確定済み
		return transitioned && e.txManager == nil, err
	}
	if !transitioned {
		return false, nil
	}

	b.Status = booking.StatusExpired
	e.metrics.ObserveExpired(source, 1)
	e.publish(ctx, booking.EventTypeExpired, b)
	logger.Debug("予約を期限切れにしました",
		zap.String("event_id", b.EventID),
		zap.String("booking_id", b.ID),
		zap.String("source", source),
	)
	return true, nil
}

func (e *ReservationEngine) sweepLazily(ctx context.Context) {
	if !e.lazySweep {
		return
	}
	// 同時に走る読み取り時回収は1つに絞る
	if !e.lazyMu.TryLock() {
		return
	}
	defer e.lazyMu.Unlock()
	if _, err := e.SweepExpired(ctx); err != nil {
		logger.Warn("読み取り時の期限切れ回収に失敗", zap.Error(err))
	}
}

// eventAttributes はキャッシュを優先してイベントの不変属性を取得する
func (e *ReservationEngine) eventAttributes(ctx context.Context, id string) (*event.Event, error) {
	if e.cache != nil {
		if ev, err := e.cache.Get(ctx, id); err == nil {
			return ev, nil
		}
	}
	ev, err := e.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		if err := e.cache.Set(ctx, ev); err != nil {
			logger.Warn("イベントのキャッシュ保存に失敗", zap.String("event_id", id), zap.Error(err))
		}
	}
	return ev, nil
}

func (e *ReservationEngine) publish(ctx context.Context, t booking.LifecycleEventType, b *booking.Booking) {
	if e.publisher == nil {
		return
	}
	msg := booking.NewLifecycleEvent(t, b, e.clock.Now())
	if err := e.publisher.Publish(ctx, msg); err != nil {
		logger.Warn("ライフサイクルイベントの送信に失敗",
			zap.String("type", string(t)),
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
	}
}

// resultOf はエラー種別をメトリクスのラベルに変換する
func resultOf(err error) string {
	switch apperror.KindOf(err) {
	case apperror.ErrNotFound:
		return metrics.ResultNotFound
	case apperror.ErrInvalidInput:
		return metrics.ResultInvalid
	case apperror.ErrCapacityExceeded:
		return metrics.ResultCapacityExceeded
	case apperror.ErrDeadlineExceeded:
		return metrics.ResultDeadlineExceeded
	}
	return metrics.ResultError
}
