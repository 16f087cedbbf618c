package booking

import (
	"time"

	"github.com/google/uuid"
)

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusExpired   Status = "expired"
)

// IsTerminal は終端状態かを返す
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusExpired
}

// IsValid は既知の状態かを返す
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusExpired:
		return true
	}
	return false
}

// CanTransition は from から to への遷移が許可されているかを返す
// 許可されるのは pending -> confirmed と pending -> expired のみ
func CanTransition(from, to Status) bool {
	return from == StatusPending && to.IsTerminal()
}

// Booking は予約エンティティを表す
type Booking struct {
	ID              string
	EventID         string
	UserID          string
	ContactID       string
	Status          Status
	CreatedAt       time.Time
	PaymentDeadline time.Time
}

// NewBooking は pending 状態の予約を作成する
// 支払期限は createdAt + ttl で固定される
func NewBooking(eventID, userID, contactID string, createdAt time.Time, ttl time.Duration) *Booking {
	return &Booking{
		ID:              uuid.NewString(),
		EventID:         eventID,
		UserID:          userID,
		ContactID:       contactID,
		Status:          StatusPending,
		CreatedAt:       createdAt,
		PaymentDeadline: createdAt.Add(ttl),
	}
}

// IsPending は予約が保留中かを返す
func (b *Booking) IsPending() bool {
	return b.Status == StatusPending
}

// IsPastDeadline は now が支払期限を過ぎているかを返す
func (b *Booking) IsPastDeadline(now time.Time) bool {
	return now.After(b.PaymentDeadline)
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.EventID == "" {
		return ErrEventIDRequired
	}
	if b.UserID == "" {
		return ErrUserIDRequired
	}
	if !b.PaymentDeadline.After(b.CreatedAt) {
		return ErrInvalidDeadline
	}
	return nil
}
