package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-event-booker/internal/domain/event"
)

// eventRow はDBの行を表す構造体
type eventRow struct {
	ID                string    `db:"id"`
	Name              string    `db:"name"`
	Date              time.Time `db:"date"`
	Capacity          int       `db:"capacity"`
	BookingTTLSeconds int       `db:"booking_ttl_seconds"`
	Reserved          int       `db:"reserved"`
	CreatedAt         time.Time `db:"created_at"`
}

// toEntity はeventRowをEventエンティティに変換する
func (r *eventRow) toEntity() *event.Event {
	return &event.Event{
		ID:         r.ID,
		Name:       r.Name,
		Date:       r.Date,
		Capacity:   r.Capacity,
		BookingTTL: time.Duration(r.BookingTTLSeconds) * time.Second,
		Reserved:   r.Reserved,
		CreatedAt:  r.CreatedAt,
	}
}

const eventColumns = `id, name, date, capacity, booking_ttl_seconds, reserved, created_at`

// EventCatalog はイベントカタログのPostgreSQL実装
// reserved の増減は条件付き UPDATE 1文で行い、行ロックで直列化される
type EventCatalog struct {
	db *sqlx.DB
}

// NewEventCatalog はEventCatalogを作成する
func NewEventCatalog(db *sqlx.DB) *EventCatalog {
	return &EventCatalog{db: db}
}

// Create は新しいイベントを作成する
func (c *EventCatalog) Create(ctx context.Context, e *event.Event) error {
	query := `
		INSERT INTO events (id, name, date, capacity, booking_ttl_seconds, reserved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := conn(ctx, c.db).ExecContext(ctx, query,
		e.ID, e.Name, e.Date, e.Capacity, int(e.BookingTTL/time.Second), e.Reserved, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return event.ErrEventAlreadyExists
		}
		return fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return nil
}

// GetByID はIDからイベントを取得する
func (c *EventCatalog) GetByID(ctx context.Context, id string) (*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	var row eventRow
	if err := sqlx.GetContext(ctx, conn(ctx, c.db), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, event.ErrEventNotFound
		}
		return nil, fmt.Errorf("イベント取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// List はイベント一覧を取得する
func (c *EventCatalog) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY date DESC, id LIMIT $1 OFFSET $2`

	var rows []eventRow
	if err := sqlx.SelectContext(ctx, conn(ctx, c.db), &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("イベント一覧取得に失敗しました: %w", err)
	}

	events := make([]*event.Event, len(rows))
	for i := range rows {
		events[i] = rows[i].toEntity()
	}
	return events, nil
}

// TryReserve は空席があれば reserved を n 増やす
func (c *EventCatalog) TryReserve(ctx context.Context, id string, n int) (bool, error) {
	if n <= 0 {
		return false, event.ErrInvalidSeatCount
	}
	query := `UPDATE events SET reserved = reserved + $1 WHERE id = $2 AND reserved + $1 <= capacity`

	result, err := conn(ctx, c.db).ExecContext(ctx, query, n, id)
	if err != nil {
		if isInvalidID(err) {
			return false, event.ErrEventNotFound
		}
		return false, fmt.Errorf("座席確保に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 1 {
		return true, nil
	}

	// 満席か存在しないかを区別する
	if err := c.exists(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// Release は reserved を n 減らす。0 未満にはならない
func (c *EventCatalog) Release(ctx context.Context, id string, n int) error {
	if n <= 0 {
		return event.ErrInvalidSeatCount
	}
	query := `UPDATE events SET reserved = GREATEST(reserved - $1, 0) WHERE id = $2`

	result, err := conn(ctx, c.db).ExecContext(ctx, query, n, id)
	if err != nil {
		if isInvalidID(err) {
			return event.ErrEventNotFound
		}
		return fmt.Errorf("座席解放に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return event.ErrEventNotFound
	}
	return nil
}

func (c *EventCatalog) exists(ctx context.Context, id string) error {
	var found bool
	if err := sqlx.GetContext(ctx, conn(ctx, c.db), &found, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("イベント存在確認に失敗しました: %w", err)
	}
	if !found {
		return event.ErrEventNotFound
	}
	return nil
}

// インターフェースを満たしているか確認
var _ event.Catalog = (*EventCatalog)(nil)
