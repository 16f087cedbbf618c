package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-event-booker/internal/domain/booking"
	"github.com/sanosuguru/go-event-booker/internal/domain/event"
)

type bookingRow struct {
	ID              string    `db:"id"`
	EventID         string    `db:"event_id"`
	UserID          string    `db:"user_id"`
	ContactID       string    `db:"contact_id"`
	Status          string    `db:"status"`
	CreatedAt       time.Time `db:"created_at"`
	PaymentDeadline time.Time `db:"payment_deadline"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	return &booking.Booking{
		ID:              r.ID,
		EventID:         r.EventID,
		UserID:          r.UserID,
		ContactID:       r.ContactID,
		Status:          booking.Status(r.Status),
		CreatedAt:       r.CreatedAt,
		PaymentDeadline: r.PaymentDeadline,
	}
}

// BookingLedger は予約台帳のPostgreSQL実装
// 状態遷移は WHERE status = 期待値 の UPDATE で比較と更新を1文にまとめる
type BookingLedger struct {
	db *sqlx.DB
}

func NewBookingLedger(db *sqlx.DB) *BookingLedger {
	return &BookingLedger{db: db}
}

func (l *BookingLedger) Insert(ctx context.Context, b *booking.Booking) error {
	if b.Status != booking.StatusPending {
		return booking.ErrInvalidTransition
	}
	query := `
		INSERT INTO bookings (id, event_id, user_id, contact_id, status, created_at, payment_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := conn(ctx, l.db).ExecContext(ctx, query,
		b.ID, b.EventID, b.UserID, b.ContactID, string(b.Status), b.CreatedAt, b.PaymentDeadline,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return booking.ErrBookingAlreadyExists
		case isForeignKeyViolation(err), isInvalidID(err):
			return event.ErrEventNotFound
		}
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (l *BookingLedger) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	var row bookingRow
	query := `SELECT id, event_id, user_id, contact_id, status, created_at, payment_deadline FROM bookings WHERE id = $1`
	if err := sqlx.GetContext(ctx, conn(ctx, l.db), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// CompareAndTransition は現在の状態が expected の場合のみ next に更新する
func (l *BookingLedger) CompareAndTransition(ctx context.Context, id string, expected, next booking.Status) (bool, error) {
	if !booking.CanTransition(expected, next) {
		return false, booking.ErrInvalidTransition
	}
	result, err := conn(ctx, l.db).ExecContext(ctx,
		`UPDATE bookings SET status = $1 WHERE id = $2 AND status = $3`,
		string(next), id, string(expected),
	)
	if err != nil {
		if isInvalidID(err) {
			return false, booking.ErrBookingNotFound
		}
		return false, fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	if rows == 1 {
		return true, nil
	}

	// 遷移できなかった理由が存在しないことなのかを確認する
	var found bool
	if err := sqlx.GetContext(ctx, conn(ctx, l.db), &found, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("予約存在確認に失敗: %w", err)
	}
	if !found {
		return false, booking.ErrBookingNotFound
	}
	return false, nil
}

// expiredScanBatch は期限切れ予約IDを1回のクエリで読み出す上限
const expiredScanBatch = 500

type expiredKey struct {
	ID              string    `db:"id"`
	PaymentDeadline time.Time `db:"payment_deadline"`
}

// ListPendingExpiredAsOf は期限切れの pending 予約IDを列挙する
// IDはバッチ単位で読み切ってから yield するため、列挙中に接続を占有しない
func (l *BookingLedger) ListPendingExpiredAsOf(ctx context.Context, now time.Time) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var last *expiredKey
		for {
			batch, err := l.pendingExpiredBatch(ctx, now, last)
			if err != nil {
				yield("", fmt.Errorf("期限切れ予約取得に失敗: %w", err))
				return
			}
			for _, k := range batch {
				if !yield(k.ID, nil) {
					return
				}
			}
			if len(batch) < expiredScanBatch {
				return
			}
			last = &batch[len(batch)-1]
		}
	}
}

// pendingExpiredBatch は (payment_deadline, id) が after より後の行を最大 expiredScanBatch 件返す
func (l *BookingLedger) pendingExpiredBatch(ctx context.Context, now time.Time, after *expiredKey) ([]expiredKey, error) {
	var batch []expiredKey
	if after == nil {
		err := sqlx.SelectContext(ctx, l.db, &batch,
			`SELECT id, payment_deadline FROM bookings
			 WHERE status = 'pending' AND payment_deadline < $1
			 ORDER BY payment_deadline, id LIMIT $2`,
			now, expiredScanBatch,
		)
		return batch, err
	}
	err := sqlx.SelectContext(ctx, l.db, &batch,
		`SELECT id, payment_deadline FROM bookings
		 WHERE status = 'pending' AND payment_deadline < $1 AND (payment_deadline, id) > ($2, $3)
		 ORDER BY payment_deadline, id LIMIT $4`,
		now, after.PaymentDeadline, after.ID, expiredScanBatch,
	)
	return batch, err
}

var _ booking.Ledger = (*BookingLedger)(nil)
