package memory

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/sanosuguru/go-event-booker/internal/domain/booking"
)

// bookingSlot は予約単位の排他領域
type bookingSlot struct {
	mu      sync.Mutex
	booking booking.Booking
}

// BookingLedger はプロセスメモリ上の予約台帳
// 状態遷移は予約ごとの mutex で直列化される
type BookingLedger struct {
	mu       sync.RWMutex
	bookings map[string]*bookingSlot
}

// NewBookingLedger は空の台帳を作成する
func NewBookingLedger() *BookingLedger {
	return &BookingLedger{bookings: make(map[string]*bookingSlot)}
}

// Insert は pending の予約を登録する
func (l *BookingLedger) Insert(ctx context.Context, b *booking.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.Status != booking.StatusPending {
		return booking.ErrInvalidTransition
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.bookings[b.ID]; ok {
		return booking.ErrBookingAlreadyExists
	}
	l.bookings[b.ID] = &bookingSlot{booking: *b}
	onRollback(ctx, func() { l.remove(b.ID) })
	return nil
}

// GetByID はIDから予約を取得する
func (l *BookingLedger) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slot, ok := l.slot(id)
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	slot.mu.Lock()
	b := slot.booking
	slot.mu.Unlock()
	return &b, nil
}

// CompareAndTransition は現在の状態が expected の場合のみ next に更新する
func (l *BookingLedger) CompareAndTransition(ctx context.Context, id string, expected, next booking.Status) (bool, error) {
	if !booking.CanTransition(expected, next) {
		return false, booking.ErrInvalidTransition
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	slot, ok := l.slot(id)
	if !ok {
		return false, booking.ErrBookingNotFound
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.booking.Status != expected {
		return false, nil
	}
	slot.booking.Status = next
	onRollback(ctx, func() { slot.revert(next, expected) })
	return true, nil
}

// ListPendingExpiredAsOf は期限切れの pending 予約IDを列挙する
// 対象の候補は range 開始時点の台帳から取得する
func (l *BookingLedger) ListPendingExpiredAsOf(ctx context.Context, now time.Time) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		l.mu.RLock()
		slots := make([]*bookingSlot, 0, len(l.bookings))
		for _, s := range l.bookings {
			slots = append(slots, s)
		}
		l.mu.RUnlock()

		for _, s := range slots {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			s.mu.Lock()
			id := s.booking.ID
			expired := s.booking.Status == booking.StatusPending && s.booking.PaymentDeadline.Before(now)
			s.mu.Unlock()
			if !expired {
				continue
			}
			if !yield(id, nil) {
				return
			}
		}
	}
}

func (l *BookingLedger) remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.bookings, id)
}

// revert はロールバック用。遷移規則を通さずに状態を戻す
func (s *bookingSlot) revert(from, to booking.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.booking.Status == from {
		s.booking.Status = to
	}
}

func (l *BookingLedger) slot(id string) (*bookingSlot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.bookings[id]
	return s, ok
}

var _ booking.Ledger = (*BookingLedger)(nil)
