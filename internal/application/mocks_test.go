package application

import (
	"context"
	"iter"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-event-booker/internal/domain/booking"
	"github.com/sanosuguru/go-event-booker/internal/domain/event"
)

// MockCatalog は event.Catalog のモック
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Create(ctx context.Context, e *event.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockCatalog) GetByID(ctx context.Context, id string) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockCatalog) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockCatalog) TryReserve(ctx context.Context, id string, n int) (bool, error) {
	args := m.Called(ctx, id, n)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalog) Release(ctx context.Context, id string, n int) error {
	args := m.Called(ctx, id, n)
	return args.Error(0)
}

// MockLedger は booking.Ledger のモック
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Insert(ctx context.Context, b *booking.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockLedger) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockLedger) CompareAndTransition(ctx context.Context, id string, expected, next booking.Status) (bool, error) {
	args := m.Called(ctx, id, expected, next)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) ListPendingExpiredAsOf(ctx context.Context, now time.Time) iter.Seq2[string, error] {
	args := m.Called(ctx, now)
	ids, _ := args.Get(0).([]string)
	err := args.Error(1)
	return func(yield func(string, error) bool) {
		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}

// MockPublisher は EventPublisher のモック
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg booking.LifecycleEvent) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockEventCache は EventCache のモック
type MockEventCache struct {
	mock.Mock
}

func (m *MockEventCache) Get(ctx context.Context, id string) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventCache) Set(ctx context.Context, e *event.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

// MockSweeper は ExpiredBookingSweeper のモック
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

var (
	_ event.Catalog         = (*MockCatalog)(nil)
	_ booking.Ledger        = (*MockLedger)(nil)
	_ EventPublisher        = (*MockPublisher)(nil)
	_ EventCache            = (*MockEventCache)(nil)
	_ ExpiredBookingSweeper = (*MockSweeper)(nil)
)
