package booking

import (
	"context"
	"iter"
	"time"
)

// Ledger は予約レコードを保持するストア
// Status を変更できるのは CompareAndTransition のみ
type Ledger interface {
	// Insert は pending の予約を登録する。ID が重複した場合は ErrBookingAlreadyExists
	Insert(ctx context.Context, booking *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// CompareAndTransition は現在の状態が expected の場合のみ next に更新する
	// 更新しなかった場合は false を返す
	CompareAndTransition(ctx context.Context, id string, expected, next Status) (bool, error)

	// ListPendingExpiredAsOf は status = pending かつ payment_deadline < now の予約IDを列挙する
	// range するたびに新しくスキャンする
	ListPendingExpiredAsOf(ctx context.Context, now time.Time) iter.Seq2[string, error]
}
