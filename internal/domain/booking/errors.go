package booking

import "github.com/sanosuguru/go-event-booker/internal/domain/apperror"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound       = apperror.New(apperror.ErrNotFound, "予約が見つかりません")
	ErrBookingAlreadyExists  = apperror.New(apperror.ErrConflict, "同じIDの予約が既に存在します")
	ErrCapacityExceeded      = apperror.New(apperror.ErrCapacityExceeded, "空席がありません")
	ErrPaymentDeadlinePassed = apperror.New(apperror.ErrDeadlineExceeded, "支払期限が過ぎています")
	ErrEventIDRequired       = apperror.New(apperror.ErrInvalidInput, "イベントIDは必須です")
	ErrUserIDRequired        = apperror.New(apperror.ErrInvalidInput, "ユーザーIDは必須です")
	ErrBookingIDRequired     = apperror.New(apperror.ErrInvalidInput, "予約IDは必須です")
	ErrInvalidDeadline       = apperror.New(apperror.ErrInvalidInput, "支払期限は作成日時より後である必要があります")
	ErrInvalidTransition     = apperror.New(apperror.ErrInvalidInput, "許可されていない状態遷移です")
)
