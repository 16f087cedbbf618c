package memory

import (
	"context"
	"errors"

	"github.com/sanosuguru/go-event-booker/internal/domain/transaction"
)

// ErrTxDone は終了済みのトランザクションを操作した場合のエラー
var ErrTxDone = errors.New("トランザクションは既に終了しています")

// journalTx はロールバック時に取り消し処理を逆順に実行するトランザクション
// 1つのゴルーチンからのみ使われる前提
type journalTx struct {
	undo []func()
	done bool
}

// Commit は取り消し処理を破棄する
func (t *journalTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.undo = nil
	return nil
}

// Rollback は登録済みの取り消し処理を逆順に実行する
func (t *journalTx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	return nil
}

// TxManager はインメモリストア用のトランザクションマネージャー
type TxManager struct{}

// NewTxManager は新しい TxManager を作成する
func NewTxManager() *TxManager {
	return &TxManager{}
}

// Begin は新しいトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &journalTx{}, nil
}

// onRollback はコンテキスト上のトランザクションに取り消し処理を登録する
// トランザクション外では何もしない
func onRollback(ctx context.Context, fn func()) {
	if tx, ok := transaction.FromContext(ctx).(*journalTx); ok && !tx.done {
		tx.undo = append(tx.undo, fn)
	}
}

var _ transaction.Manager = (*TxManager)(nil)
