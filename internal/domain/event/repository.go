package event

import "context"

// Catalog はイベントと空席カウンタを保持するストア
// Reserved を変更できるのは TryReserve と Release のみ
type Catalog interface {
	// Create は新しいイベントを登録する
	Create(ctx context.Context, event *Event) error

	// GetByID はIDからイベントを取得する
	GetByID(ctx context.Context, id string) (*Event, error)

	// List はイベント一覧を取得する
	List(ctx context.Context, limit, offset int) ([]*Event, error)

	// TryReserve は reserved+n <= capacity の場合のみ reserved を n 増やす
	// 確認と加算はアトミックに行われ、false の場合は何も変更しない
	TryReserve(ctx context.Context, id string, n int) (bool, error)

	// Release は reserved を n 減らす（0 未満にはならない）
	Release(ctx context.Context, id string, n int) error
}
