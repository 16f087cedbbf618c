package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-event-booker/internal/application"
	"github.com/sanosuguru/go-event-booker/internal/domain/booking"
	"github.com/sanosuguru/go-event-booker/internal/domain/event"
)

const (
	testUserID    = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	testBookingID = "16fd2706-8baf-433b-82eb-8c7fada847da"
)

// MockBookingService はBookingServiceInterfaceのモック
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Book(ctx context.Context, input application.BookInput) (*booking.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) Confirm(ctx context.Context, eventID, bookingID string) (*booking.Booking, error) {
	args := m.Called(ctx, eventID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func newBookingContext(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(testEventID)
	return c, rec
}

func TestBookingHandler_Book(t *testing.T) {
	e := NewTestEcho()
	created := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	t.Run("仮押さえして支払期限を返す", func(t *testing.T) {
		mockService := new(MockBookingService)
		b := booking.NewBooking(testEventID, testUserID, "123456789", created, 5*time.Minute)
		mockService.On("Book", mock.Anything, application.BookInput{
			EventID:   testEventID,
			UserID:    testUserID,
			ContactID: "123456789",
		}).Return(b, nil)

		c, rec := newBookingContext(e, "/api/events/"+testEventID+"/book",
			`{"user_id":"`+testUserID+`","telegram_id":123456789}`)
		serve(e, c, NewBookingHandler(mockService).Book)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp BookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, b.ID, resp.ID)
		assert.Equal(t, "pending", resp.Status)
		assert.True(t, created.Add(5*time.Minute).Equal(resp.PaymentDeadline))
		mockService.AssertExpectations(t)
	})

	t.Run("telegram_id省略時は連絡先なし", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("Book", mock.Anything, application.BookInput{
			EventID: testEventID,
			UserID:  testUserID,
		}).Return(booking.NewBooking(testEventID, testUserID, "", created, time.Minute), nil)

		c, rec := newBookingContext(e, "/api/events/"+testEventID+"/book", `{"user_id":"`+testUserID+`"}`)
		serve(e, c, NewBookingHandler(mockService).Book)

		assert.Equal(t, http.StatusCreated, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("満席は409", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("Book", mock.Anything, mock.Anything).Return(nil, booking.ErrCapacityExceeded)

		c, rec := newBookingContext(e, "/api/events/"+testEventID+"/book", `{"user_id":"`+testUserID+`"}`)
		serve(e, c, NewBookingHandler(mockService).Book)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, booking.ErrCapacityExceeded.Error(), decodeError(t, rec))
	})

	t.Run("存在しないイベントは404", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("Book", mock.Anything, mock.Anything).Return(nil, event.ErrEventNotFound)

		c, rec := newBookingContext(e, "/api/events/"+testEventID+"/book", `{"user_id":"`+testUserID+`"}`)
		serve(e, c, NewBookingHandler(mockService).Book)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("開催済みイベントは400", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("Book", mock.Anything, mock.Anything).Return(nil, event.ErrEventAlreadyStarted)

		c, rec := newBookingContext(e, "/api/events/"+testEventID+"/book", `{"user_id":"`+testUserID+`"}`)
		serve(e, c, NewBookingHandler(mockService).Book)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("user_idが不正なら呼び出さない", func(t *testing.T) {
		for _, body := range []string{`{}`, `{"user_id":"abc"}`, `{"user_id":`} {
			mockService := new(MockBookingService)
			c, rec := newBookingContext(e, "/api/events/"+testEventID+"/book", body)
			serve(e, c, NewBookingHandler(mockService).Book)

			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			mockService.AssertNotCalled(t, "Book", mock.Anything, mock.Anything)
		}
	})
}

func TestBookingHandler_Confirm(t *testing.T) {
	e := NewTestEcho()
	body := `{"booking_id":"` + testBookingID + `"}`

	t.Run("確定済みステータスを返す", func(t *testing.T) {
		mockService := new(MockBookingService)
		b := booking.NewBooking(testEventID, testUserID, "", time.Now(), time.Minute)
		b.Status = booking.StatusConfirmed
		mockService.On("Confirm", mock.Anything, testEventID, testBookingID).Return(b, nil)

		c, rec := newBookingContext(e, "/api/events/"+testEventID+"/confirm", body)
		serve(e, c, NewBookingHandler(mockService).Confirm)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"confirmed"}`, rec.Body.String())
	})

	t.Run("期限切れは410", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("Confirm", mock.Anything, testEventID, testBookingID).Return(nil, booking.ErrPaymentDeadlinePassed)

		c, rec := newBookingContext(e, "/api/events/"+testEventID+"/confirm", body)
		serve(e, c, NewBookingHandler(mockService).Confirm)

		assert.Equal(t, http.StatusGone, rec.Code)
		assert.Equal(t, booking.ErrPaymentDeadlinePassed.Error(), decodeError(t, rec))
	})

	t.Run("存在しない予約は404", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("Confirm", mock.Anything, testEventID, testBookingID).Return(nil, booking.ErrBookingNotFound)

		c, rec := newBookingContext(e, "/api/events/"+testEventID+"/confirm", body)
		serve(e, c, NewBookingHandler(mockService).Confirm)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("booking_idなしは400", func(t *testing.T) {
		mockService := new(MockBookingService)

		c, rec := newBookingContext(e, "/api/events/"+testEventID+"/confirm", `{}`)
		serve(e, c, NewBookingHandler(mockService).Confirm)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything)
	})
}
