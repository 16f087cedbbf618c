package booking

import "time"

// LifecycleEventType は予約のライフサイクルイベント種別
type LifecycleEventType string

const (
	EventTypeCreated   LifecycleEventType = "booking.created"
	EventTypeConfirmed LifecycleEventType = "booking.confirmed"
	EventTypeExpired   LifecycleEventType = "booking.expired"
)

// LifecycleEvent は予約の状態変化を外部に通知するためのメッセージ
type LifecycleEvent struct {
	Type            LifecycleEventType `json:"type"`
	BookingID       string             `json:"booking_id"`
	EventID         string             `json:"event_id"`
	UserID          string             `json:"user_id"`
	ContactID       string             `json:"contact_id,omitempty"`
	Status          Status             `json:"status"`
	PaymentDeadline time.Time          `json:"payment_deadline"`
	OccurredAt      time.Time          `json:"occurred_at"`
}

// NewLifecycleEvent は予約の現在の状態からメッセージを作成する
func NewLifecycleEvent(t LifecycleEventType, b *Booking, at time.Time) LifecycleEvent {
	return LifecycleEvent{
		Type:            t,
		BookingID:       b.ID,
		EventID:         b.EventID,
		UserID:          b.UserID,
		ContactID:       b.ContactID,
		Status:          b.Status,
		PaymentDeadline: b.PaymentDeadline,
		OccurredAt:      at,
	}
}
