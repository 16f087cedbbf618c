package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-event-booker/internal/application"
	"github.com/sanosuguru/go-event-booker/internal/domain/event"
)

type EventHandler struct {
	eventService EventServiceInterface
}

func NewEventHandler(eventService EventServiceInterface) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// CreateEventRequest の payment_ttl は秒数。省略時はサーバーの既定値
type CreateEventRequest struct {
	Name       string    `json:"name" validate:"required,min=1,max=255" example:"武道館ライブ2026"`
	Date       time.Time `json:"date" validate:"required" example:"2026-12-31T18:00:00+09:00"`
	Capacity   int       `json:"capacity" validate:"required,min=1" example:"100"`
	PaymentTTL int       `json:"payment_ttl" validate:"min=0,max=31536000" example:"300"`
}

type CreateEventResponse struct {
	ID string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

type EventResponse struct {
	ID         string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name       string    `json:"name" example:"武道館ライブ2026"`
	Date       time.Time `json:"date" example:"2026-12-31T18:00:00+09:00"`
	Capacity   int       `json:"capacity" example:"100"`
	Available  int       `json:"available" example:"42"`
	PaymentTTL int       `json:"payment_ttl" example:"300"`
}

func toEventResponse(e *event.Event) *EventResponse {
	return &EventResponse{
		ID:         e.ID,
		Name:       e.Name,
		Date:       e.Date,
		Capacity:   e.Capacity,
		Available:  e.Available(),
		PaymentTTL: int(e.BookingTTL / time.Second),
	}
}

// Create godoc
// @Summary イベントを作成
// @Description 定員と支払期限（秒）を指定してイベントを作成します
// @Tags events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "イベント情報"
// @Success 201 {object} CreateEventResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /events [post]
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	e, err := h.eventService.CreateEvent(c.Request().Context(), application.CreateEventInput{
		Name:       req.Name,
		Date:       req.Date,
		Capacity:   req.Capacity,
		BookingTTL: time.Duration(req.PaymentTTL) * time.Second,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, CreateEventResponse{ID: e.ID})
}

// GetByID godoc
// @Summary イベントを取得
// @Description 定員と現在の空席数を返します
// @Tags events
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	e, err := h.eventService.GetEvent(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// List godoc
// @Summary イベント一覧を取得
// @Tags events
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} EventResponse
// @Router /events [get]
func (h *EventHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	events, err := h.eventService.ListEvents(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}

	responses := make([]*EventResponse, len(events))
	for i, e := range events {
		responses[i] = toEventResponse(e)
	}
	return c.JSON(http.StatusOK, responses)
}

// pathUUID はパスパラメータを UUID として検証する
func pathUUID(c echo.Context, name string) (string, error) {
	v := c.Param(name)
	if _, err := uuid.Parse(v); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "IDの形式が不正です")
	}
	return v, nil
}
