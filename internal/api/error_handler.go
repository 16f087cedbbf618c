package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-booker/internal/domain/apperror"
	"github.com/sanosuguru/go-event-booker/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusOf はエラーに対応するHTTPステータスを返す
func StatusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	switch apperror.KindOf(err) {
	case apperror.ErrNotFound:
		return http.StatusNotFound
	case apperror.ErrInvalidInput:
		return http.StatusBadRequest
	case apperror.ErrCapacityExceeded, apperror.ErrConflict:
		return http.StatusConflict
	case apperror.ErrDeadlineExceeded:
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
// ドメインエラーは種別に応じたステータスとメッセージで返す
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := StatusOf(err)
	message := "内部サーバーエラー"

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	case code < http.StatusInternalServerError:
		message = err.Error()
	}

	// エラーログを出力（5xx エラーの場合）
	if code >= http.StatusInternalServerError {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Error: message})
	}
	if err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
