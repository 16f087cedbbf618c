package handler

import "github.com/labstack/echo/v4"

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Event   *EventHandler
	Booking *BookingHandler
	Health  *HealthHandler
}

// RegisterRoutes は /api 配下にルートを登録する
func RegisterRoutes(e *echo.Echo, h Handlers) {
	g := e.Group("/api")

	g.GET("/health", h.Health.Check)

	events := g.Group("/events")
	events.POST("", h.Event.Create)
	events.GET("", h.Event.List)
	events.GET("/:id", h.Event.GetByID)
	events.POST("/:id/book", h.Booking.Book)
	events.POST("/:id/confirm", h.Booking.Confirm)
}
