package handler

import (
	"context"

	"github.com/sanosuguru/go-event-booker/internal/application"
	"github.com/sanosuguru/go-event-booker/internal/domain/booking"
	"github.com/sanosuguru/go-event-booker/internal/domain/event"
)

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error)
	GetEvent(ctx context.Context, id string) (*event.Event, error)
	ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error)
}

// BookingServiceInterface は予約エンジンのインターフェース
type BookingServiceInterface interface {
	Book(ctx context.Context, input application.BookInput) (*booking.Booking, error)
	Confirm(ctx context.Context, eventID, bookingID string) (*booking.Booking, error)
}
