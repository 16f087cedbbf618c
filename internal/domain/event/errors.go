package event

import "github.com/sanosuguru/go-event-booker/internal/domain/apperror"

// Event ドメインのエラー定義
var (
	ErrEventNotFound       = apperror.New(apperror.ErrNotFound, "イベントが見つかりません")
	ErrEventNameRequired   = apperror.New(apperror.ErrInvalidInput, "イベント名は必須です")
	ErrEventNameTooLong    = apperror.New(apperror.ErrInvalidInput, "イベント名は255文字以内である必要があります")
	ErrInvalidCapacity     = apperror.New(apperror.ErrInvalidInput, "座席数は1以上である必要があります")
	ErrInvalidDate         = apperror.New(apperror.ErrInvalidInput, "開催日時が不正です")
	ErrEventDateInPast     = apperror.New(apperror.ErrInvalidInput, "開催日時は未来である必要があります")
	ErrInvalidBookingTTL   = apperror.New(apperror.ErrInvalidInput, "支払期限は1秒以上1年以内である必要があります")
	ErrEventAlreadyStarted = apperror.New(apperror.ErrInvalidInput, "イベントは既に開催済みです")
	ErrEventAlreadyExists  = apperror.New(apperror.ErrConflict, "同じIDのイベントが既に存在します")
	ErrInvalidSeatCount    = apperror.New(apperror.ErrInvalidInput, "座席数の指定が不正です")
)
