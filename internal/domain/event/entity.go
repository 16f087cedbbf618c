package event

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultBookingTTL は payment_ttl 未指定時の仮押さえ期間
const DefaultBookingTTL = 300 * time.Second

// 仮押さえ期間として受け付ける範囲
const (
	MinBookingTTL = time.Second
	MaxBookingTTL = 365 * 24 * time.Hour
)

// MaxNameLength はイベント名の最大文字数
const MaxNameLength = 255

// Event はイベントエンティティを表す
// Reserved 以外は作成後に変更されない
type Event struct {
	ID         string
	Name       string
	Date       time.Time
	Capacity   int
	BookingTTL time.Duration
	Reserved   int // pending + confirmed の予約が保持している座席数
	CreatedAt  time.Time
}

// NewEvent は新しいイベントを作成する
// ttl が 0 の場合は DefaultBookingTTL を使用する
func NewEvent(name string, date time.Time, capacity int, ttl time.Duration, now time.Time) *Event {
	if ttl == 0 {
		ttl = DefaultBookingTTL
	}
	return &Event{
		ID:         uuid.NewString(),
		Name:       name,
		Date:       date,
		Capacity:   capacity,
		BookingTTL: ttl,
		CreatedAt:  now,
	}
}

// Validate はイベントの検証を行う
func (e *Event) Validate(now time.Time) error {
	if e.Name == "" {
		return ErrEventNameRequired
	}
	if utf8.RuneCountInString(e.Name) > MaxNameLength {
		return ErrEventNameTooLong
	}
	if e.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if !e.Date.After(now) {
		return ErrEventDateInPast
	}
	if e.BookingTTL < MinBookingTTL || e.BookingTTL > MaxBookingTTL {
		return ErrInvalidBookingTTL
	}
	return nil
}

// Available は空席数を返す
func (e *Event) Available() int {
	if e.Reserved >= e.Capacity {
		return 0
	}
	return e.Capacity - e.Reserved
}

// HasStarted はイベント日時を過ぎているかを返す
func (e *Event) HasStarted(now time.Time) bool {
	return !e.Date.After(now)
}
