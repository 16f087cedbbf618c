package apperror

import "errors"

// エラー種別。ドメインエラーはいずれかの種別に分類される
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrDeadlineExceeded = errors.New("deadline exceeded")
	ErrConflict         = errors.New("conflict")
)

// Error は種別付きのドメインエラー
// Error() はメッセージのみを返し、errors.Is で種別を判定できる
type Error struct {
	kind    error
	message string
}

// New は種別付きのドメインエラーを作成する
func New(kind error, message string) *Error {
	return &Error{kind: kind, message: message}
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.kind
}

// Kind はエラーの種別を返す
func (e *Error) Kind() error {
	return e.kind
}

// KindOf はエラーチェーンから種別を取り出す。分類できない場合は nil
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrInvalidInput, ErrCapacityExceeded, ErrDeadlineExceeded, ErrConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
