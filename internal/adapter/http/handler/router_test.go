package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"till-bot/internal/adapter/chat"
	"till-bot/internal/adapter/export"
	"till-bot/internal/adapter/http/handler"
	"till-bot/internal/adapter/http/middleware"
	"till-bot/internal/adapter/storage/memory"
	redisStore "till-bot/internal/adapter/storage/redis"
	"till-bot/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "hook-secret"

type testApp struct {
	router *gin.Engine
	nextID int64
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := zerolog.Nop()
	ctx := t.Context()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ledger := service.NewLedgerService(memory.NewMovementLog(), nil, log)
	operators := service.NewOperatorService(memory.NewOperatorRepo(), log)
	require.NoError(t, operators.Load(ctx, "@alice"))
	reports := service.NewReportService("EUR", "", "csv", log, export.NewCSV(), export.NewPDF("till-bot"))
	tokens := service.NewJWTTokenService("test-secret-at-least-32-bytes-long!", time.Hour, "till-bot")

	dispatcher := chat.NewDispatcher(chat.Deps{
		Ledger:    ledger,
		Operators: operators,
		Reports:   reports,
		Tokens:    tokens,
	}, chat.Options{BotName: "till_bot", Currency: "EUR"}, log)

	router := handler.SetupRouter(handler.RouterDeps{
		Dispatcher:     dispatcher,
		UpdateDeduper:  redisStore.NewUpdateDeduper(client),
		ReplyCache:     redisStore.NewReplyCache(client),
		Ledger:         ledger,
		Reports:        reports,
		Operators:      operators,
		TokenSvc:       tokens,
		RateLimitStore: redisStore.NewRateLimitStore(client),
		HealthCheckers: nil,
		WebhookSecret:  webhookSecret,
		Currency:       "EUR",
		ExportFormat:   "csv",
		Mode:           gin.TestMode,
		Logger:         log,
	})
	return &testApp{router: router, nextID: 1}
}

func (a *testApp) send(t *testing.T, username, text string) string {
	t.Helper()
	a.nextID++
	return a.deliver(t, a.nextID, username, text)
}

func (a *testApp) deliver(t *testing.T, updateID int64, username, text string) string {
	t.Helper()
	body := fmt.Sprintf(`{"update_id": %d, "message": {"message_id": 1, "from": {"id": %d, "username": %q}, "chat": {"id": 500, "type": "group"}, "text": %q}}`,
		updateID, len(username), username, text)

	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderTelegramSecret, webhookSecret)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	text, _ = resp["text"].(string)
	return text
}

func (a *testApp) get(t *testing.T, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestRouter_CloseScenario(t *testing.T) {
	app := newTestApp(t)

	assert.Contains(t, app.send(t, "alice", "/a 100"), "Balance: 100.00 EUR")
	assert.Contains(t, app.send(t, "alice", "/s 30"), "Balance: 70.00 EUR")
	assert.Contains(t, app.send(t, "bob", "/a 5"), "not authorized")
	assert.Equal(t, "Balance: 70.00 EUR (2 movements)", app.send(t, "alice", "/total"))

	closing := app.send(t, "alice", "/stop")
	assert.Contains(t, closing, "Balance: 70.00 EUR")
	assert.Contains(t, closing, "balance reset to 0.00 EUR")

	assert.Equal(t, "Balance: 0.00 EUR (0 movements)", app.send(t, "alice", "/total"))
}

func TestRouter_RedeliveredUpdateIsNotRecordedTwice(t *testing.T) {
	app := newTestApp(t)

	first := app.deliver(t, 9000, "alice", "/a 10")
	again := app.deliver(t, 9000, "alice", "/a 10")

	assert.Equal(t, first, again)
	assert.Equal(t, "Balance: 10.00 EUR (1 movement)", app.send(t, "alice", "/total"))
}

func TestRouter_WebhookSecretRequired(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(`{"update_id": 1}`))
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_DashboardWithIssuedToken(t *testing.T) {
	app := newTestApp(t)
	app.send(t, "alice", "/a 12.50")

	assert.Equal(t, http.StatusUnauthorized, app.get(t, "/api/v1/ledger/balance", "").Code)

	reply := app.send(t, "alice", "/token")
	lines := strings.Split(reply, "\n")
	require.Len(t, lines, 2, reply)
	token := lines[1]

	w := app.get(t, "/api/v1/ledger/balance", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":"12.50"`)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

	w = app.get(t, "/api/v1/ledger/export?format=csv", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "net_balance,,,,12.50,")

	w = app.get(t, "/api/v1/ledger/export?format=xlsx", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_DashboardTokenRevokedWithOperator(t *testing.T) {
	app := newTestApp(t)
	app.send(t, "alice", "/add_operator @bob")

	reply := app.send(t, "bob", "/token")
	lines := strings.Split(reply, "\n")
	require.Len(t, lines, 2, reply)
	token := lines[1]
	require.Equal(t, http.StatusOK, app.get(t, "/api/v1/ledger/report", token).Code)

	assert.Equal(t, "@bob removed from the operators.", app.send(t, "alice", "/rm_operator @bob"))

	w := app.get(t, "/api/v1/ledger/report", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_001")
	assert.Equal(t, http.StatusForbidden, app.get(t, "/api/v1/ledger/export", token).Code)
}

func TestRouter_Health(t *testing.T) {
	app := newTestApp(t)

	w := app.get(t, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}
