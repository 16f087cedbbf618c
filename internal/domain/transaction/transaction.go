package transaction

import (
	"context"
	"errors"
)

// Tx はトランザクションを表すインターフェース
// ドメイン層がインフラ層（sqlx等）に依存しないようにするための抽象化
type Tx interface {
	// Commit はトランザクションをコミットする
	Commit() error
	// Rollback はトランザクションをロールバックする
	Rollback() error
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	// Begin は新しいトランザクションを開始する
	Begin(ctx context.Context) (Tx, error)
}

type txKey struct{}

// WithTx はトランザクションを載せたコンテキストを返す
func WithTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// FromContext はコンテキスト上のトランザクションを返す。無ければ nil
func FromContext(ctx context.Context) Tx {
	tx, _ := ctx.Value(txKey{}).(Tx)
	return tx
}

// Run は fn を1つのトランザクション内で実行する
// fn がエラーを返せばロールバックし、そうでなければコミットする
// m が nil の場合や、既にトランザクション内の場合は fn をそのまま実行する
func Run(ctx context.Context, m Manager, fn func(ctx context.Context) error) error {
	if m == nil || FromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(WithTx(ctx, tx)); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return tx.Commit()
}
