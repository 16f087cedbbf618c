package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-event-booker/internal/domain/apperror"
	"github.com/sanosuguru/go-event-booker/internal/domain/event"
)

var baseTime = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func TestNewEventService(t *testing.T) {
	service := NewEventService(new(MockCatalog), nil, 0, nil, nil)
	assert.NotNil(t, service)
	assert.Equal(t, event.DefaultBookingTTL, service.defaultTTL)
}

func TestEventService_CreateEvent_Success(t *testing.T) {
	mockCatalog := new(MockCatalog)
	clk := clockwork.NewFakeClockAt(baseTime)
	service := NewEventService(mockCatalog, clk, 5*time.Minute, nil, nil)

	input := CreateEventInput{
		Name:       "テストイベント",
		Date:       baseTime.Add(24 * time.Hour),
		Capacity:   100,
		BookingTTL: 2 * time.Minute,
	}
	mockCatalog.On("Create", mock.Anything, mock.AnythingOfType("*event.Event")).Return(nil)

	result, err := service.CreateEvent(context.Background(), input)

	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, input.Name, result.Name)
	assert.Equal(t, input.Capacity, result.Capacity)
	assert.Equal(t, 2*time.Minute, result.BookingTTL)
	assert.Equal(t, 0, result.Reserved)
	assert.Equal(t, baseTime, result.CreatedAt)
	mockCatalog.AssertExpectations(t)
}

func TestEventService_CreateEvent_DefaultTTL(t *testing.T) {
	mockCatalog := new(MockCatalog)
	service := NewEventService(mockCatalog, clockwork.NewFakeClockAt(baseTime), 7*time.Minute, nil, nil)
	mockCatalog.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := service.CreateEvent(context.Background(), CreateEventInput{
		Name:     "TTL未指定",
		Date:     baseTime.Add(time.Hour),
		Capacity: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, 7*time.Minute, result.BookingTTL)
}

func TestEventService_CreateEvent_ValidationError(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateEventInput
		wantErr error
	}{
		{
			name:    "名前が空",
			input:   CreateEventInput{Name: "", Date: baseTime.Add(time.Hour), Capacity: 10},
			wantErr: event.ErrEventNameRequired,
		},
		{
			name:    "支払期限が負",
			input:   CreateEventInput{Name: "ライブ", Date: baseTime.Add(time.Hour), Capacity: 10, BookingTTL: -time.Second},
			wantErr: event.ErrInvalidBookingTTL,
		},
		{
			name:    "支払期限が1年を超える",
			input:   CreateEventInput{Name: "ライブ", Date: baseTime.Add(time.Hour), Capacity: 10, BookingTTL: event.MaxBookingTTL + time.Second},
			wantErr: event.ErrInvalidBookingTTL,
		},
		{
			name:    "名前が長すぎる",
			input:   CreateEventInput{Name: strings.Repeat("a", event.MaxNameLength+1), Date: baseTime.Add(time.Hour), Capacity: 10},
			wantErr: event.ErrEventNameTooLong,
		},
		{
			name:    "定員が0",
			input:   CreateEventInput{Name: "イベント", Date: baseTime.Add(time.Hour), Capacity: 0},
			wantErr: event.ErrInvalidCapacity,
		},
		{
			name:    "定員が負",
			input:   CreateEventInput{Name: "イベント", Date: baseTime.Add(time.Hour), Capacity: -1},
			wantErr: event.ErrInvalidCapacity,
		},
		{
			name:    "日時が未指定",
			input:   CreateEventInput{Name: "イベント", Capacity: 10},
			wantErr: event.ErrInvalidDate,
		},
		{
			name:    "日時が過去",
			input:   CreateEventInput{Name: "イベント", Date: baseTime.Add(-time.Hour), Capacity: 10},
			wantErr: event.ErrEventDateInPast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCatalog := new(MockCatalog)
			service := NewEventService(mockCatalog, clockwork.NewFakeClockAt(baseTime), 0, nil, nil)

			result, err := service.CreateEvent(context.Background(), tt.input)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, apperror.ErrInvalidInput)
			mockCatalog.AssertNotCalled(t, "Create")
		})
	}
}

func TestEventService_CreateEvent_CatalogError(t *testing.T) {
	mockCatalog := new(MockCatalog)
	service := NewEventService(mockCatalog, clockwork.NewFakeClockAt(baseTime), 0, nil, nil)
	mockCatalog.On("Create", mock.Anything, mock.Anything).Return(errors.New("database error"))

	result, err := service.CreateEvent(context.Background(), CreateEventInput{
		Name: "イベント", Date: baseTime.Add(time.Hour), Capacity: 10,
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "イベント作成に失敗しました")
}

func TestEventService_CreateEvent_CachesAttributes(t *testing.T) {
	mockCatalog := new(MockCatalog)
	mockCache := new(MockEventCache)
	service := NewEventService(mockCatalog, clockwork.NewFakeClockAt(baseTime), 0, mockCache, nil)

	mockCatalog.On("Create", mock.Anything, mock.Anything).Return(nil)
	// キャッシュ失敗は作成結果に影響しない
	mockCache.On("Set", mock.Anything, mock.AnythingOfType("*event.Event")).Return(errors.New("redis down"))

	result, err := service.CreateEvent(context.Background(), CreateEventInput{
		Name: "イベント", Date: baseTime.Add(time.Hour), Capacity: 10,
	})

	require.NoError(t, err)
	assert.NotNil(t, result)
	mockCache.AssertExpectations(t)
}

func TestEventService_GetEvent(t *testing.T) {
	t.Run("期限切れ回収の後に取得する", func(t *testing.T) {
		mockCatalog := new(MockCatalog)
		mockSweeper := new(MockSweeper)
		service := NewEventService(mockCatalog, nil, 0, nil, mockSweeper)

		expected := &event.Event{ID: "event-1", Name: "イベント", Capacity: 10, Reserved: 3}
		mockSweeper.On("SweepExpired", mock.Anything).Return(2, nil).Once()
		mockCatalog.On("GetByID", mock.Anything, "event-1").Return(expected, nil)

		result, err := service.GetEvent(context.Background(), "event-1")

		require.NoError(t, err)
		assert.Equal(t, 7, result.Available())
		mockSweeper.AssertExpectations(t)
	})

	t.Run("回収失敗でも取得は成功する", func(t *testing.T) {
		mockCatalog := new(MockCatalog)
		mockSweeper := new(MockSweeper)
		service := NewEventService(mockCatalog, nil, 0, nil, mockSweeper)

		mockSweeper.On("SweepExpired", mock.Anything).Return(0, errors.New("boom"))
		mockCatalog.On("GetByID", mock.Anything, "event-1").Return(&event.Event{ID: "event-1"}, nil)

		result, err := service.GetEvent(context.Background(), "event-1")

		require.NoError(t, err)
		assert.Equal(t, "event-1", result.ID)
	})

	t.Run("存在しないイベント", func(t *testing.T) {
		mockCatalog := new(MockCatalog)
		service := NewEventService(mockCatalog, nil, 0, nil, nil)
		mockCatalog.On("GetByID", mock.Anything, "missing").Return(nil, event.ErrEventNotFound)

		result, err := service.GetEvent(context.Background(), "missing")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestEventService_ListEvents(t *testing.T) {
	tests := []struct {
		name           string
		limit          int
		offset         int
		expectedLimit  int
		expectedOffset int
	}{
		{name: "デフォルト値", limit: 0, offset: 0, expectedLimit: 20, expectedOffset: 0},
		{name: "上限を超える", limit: 500, offset: 10, expectedLimit: 100, expectedOffset: 10},
		{name: "負のオフセット", limit: 5, offset: -3, expectedLimit: 5, expectedOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCatalog := new(MockCatalog)
			service := NewEventService(mockCatalog, nil, 0, nil, nil)
			events := []*event.Event{{ID: "event-1"}, {ID: "event-2"}}
			mockCatalog.On("List", mock.Anything, tt.expectedLimit, tt.expectedOffset).Return(events, nil)

			result, err := service.ListEvents(context.Background(), tt.limit, tt.offset)

			require.NoError(t, err)
			assert.Len(t, result, 2)
			mockCatalog.AssertExpectations(t)
		})
	}
}
