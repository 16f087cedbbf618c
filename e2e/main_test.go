package e2e

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-event-booker/internal/api"
	"github.com/sanosuguru/go-event-booker/internal/api/handler"
	"github.com/sanosuguru/go-event-booker/internal/api/middleware"
	"github.com/sanosuguru/go-event-booker/internal/application"
	"github.com/sanosuguru/go-event-booker/internal/config"
	"github.com/sanosuguru/go-event-booker/internal/domain/booking"
	"github.com/sanosuguru/go-event-booker/internal/domain/event"
	"github.com/sanosuguru/go-event-booker/internal/domain/transaction"
	"github.com/sanosuguru/go-event-booker/internal/infrastructure/memory"
	"github.com/sanosuguru/go-event-booker/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-event-booker/internal/pkg/metrics"
)

// TestServer はE2Eテスト用のサーバー
// 時計は偽物で、Clock.Advance で支払期限を過ぎさせる
type TestServer struct {
	Echo    *echo.Echo
	Clock   *clockwork.FakeClock
	Engine  *application.ReservationEngine
	Metrics *metrics.Metrics
}

func newTestServer(t *testing.T, catalog event.Catalog, ledger booking.Ledger, tm transaction.Manager) *TestServer {
	t.Helper()
	clk := clockwork.NewFakeClockAt(time.Now().UTC().Truncate(time.Second))

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	engine := application.NewReservationEngine(catalog, ledger, clk,
		application.WithMetrics(m),
		application.WithLazySweep(true),
		application.WithTxManager(tm),
	)
	eventService := application.NewEventService(catalog, clk, event.DefaultBookingTTL, nil, engine)

	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e)
	e.Use(middleware.PrometheusMiddleware(m))

	handler.RegisterRoutes(e, handler.Handlers{
		Event:   handler.NewEventHandler(eventService),
		Booking: handler.NewBookingHandler(engine),
		Health:  handler.NewHealthHandler(nil),
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		middleware.MetricsBasicAuth(config.MetricsConfig{}))

	return &TestServer{Echo: e, Clock: clk, Engine: engine, Metrics: m}
}

// newMemoryServer はインメモリストアのサーバーを作成
func newMemoryServer(t *testing.T) *TestServer {
	t.Helper()
	return newTestServer(t, memory.NewEventCatalog(), memory.NewBookingLedger(), memory.NewTxManager())
}

// newPostgresServer はPostgreSQLストアのサーバーを作成
// DB未起動時はスキップ
func newPostgresServer(t *testing.T) *TestServer {
	t.Helper()
	if testing.Short() {
		t.Skip("shortモードではDBテストをスキップ")
	}
	cfg := config.Load()
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		t.Skipf("DB接続エラー: %v", err)
	}
	require.NoError(t, postgres.RunMigrations(db.DB, "../migrations"))
	t.Cleanup(func() {
		db.Exec("DELETE FROM bookings")
		db.Exec("DELETE FROM events")
		db.Close()
	})
	return newTestServer(t, postgres.NewEventCatalog(db), postgres.NewBookingLedger(db), postgres.NewTxManager(db))
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// decode はレスポンスボディを map に変換する
func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}
