package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-event-booker/internal/application"
)

type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

// BookRequest の telegram_id は期限通知の送り先
type BookRequest struct {
	UserID     string `json:"user_id" validate:"required,uuid" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	TelegramID int64  `json:"telegram_id" validate:"min=0" example:"123456789"`
}

type BookResponse struct {
	ID              string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status          string    `json:"status" example:"pending"`
	PaymentDeadline time.Time `json:"payment_deadline" example:"2026-04-01T10:05:00Z"`
}

type ConfirmRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
}

type ConfirmResponse struct {
	Status string `json:"status" example:"confirmed"`
}

// Book godoc
// @Summary 座席を仮押さえ
// @Description payment_deadline までに confirm しない予約は期限切れになります
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path string true "イベントID"
// @Param request body BookRequest true "予約情報"
// @Success 201 {object} BookResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "満席"
// @Router /events/{id}/book [post]
func (h *BookingHandler) Book(c echo.Context) error {
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	eventID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	input := application.BookInput{EventID: eventID, UserID: req.UserID}
	if req.TelegramID != 0 {
		input.ContactID = strconv.FormatInt(req.TelegramID, 10)
	}
	b, err := h.service.Book(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, BookResponse{
		ID:              b.ID,
		Status:          string(b.Status),
		PaymentDeadline: b.PaymentDeadline,
	})
}

// Confirm godoc
// @Summary 支払いを確定
// @Description 確定済みの予約に対しては何度呼んでも成功します
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path string true "イベントID"
// @Param request body ConfirmRequest true "予約ID"
// @Success 200 {object} ConfirmResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 410 {object} api.ErrorResponse "支払期限切れ"
// @Router /events/{id}/confirm [post]
func (h *BookingHandler) Confirm(c echo.Context) error {
	var req ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	eventID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	b, err := h.service.Confirm(c.Request().Context(), eventID, req.BookingID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ConfirmResponse{Status: string(b.Status)})
}
