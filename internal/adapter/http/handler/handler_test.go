package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"till-bot/internal/core/domain"
	"till-bot/internal/core/ports"
	"till-bot/internal/core/ports/mocks"
	"till-bot/internal/service"
	"till-bot/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const commandUpdate = `{
	"update_id": 1001,
	"message": {
		"message_id": 7,
		"from": {"id": 42, "is_bot": false, "first_name": "Alice", "username": "alice"},
		"chat": {"id": -100, "type": "group"},
		"date": 1760000000,
		"text": "/a 100"
	}
}`

func postUpdate(h *TelegramHandler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhook/telegram", bytes.NewReader([]byte(body)))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Webhook(c)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- Telegram Handler Tests ---

func TestWebhook_DispatchesCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockCommandDispatcher(ctrl)
	dispatcher.EXPECT().Dispatch(gomock.Any(), ports.InboundMessage{
		UpdateID: 1001,
		ChatID:   -100,
		UserID:   42,
		Username: "alice",
		Text:     "/a 100",
	}).Return("@alice added 100.00. Balance: 100.00 EUR")

	w := postUpdate(NewTelegramHandler(dispatcher, nil, nil, nil, zerolog.Nop()), commandUpdate)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "sendMessage", resp["method"])
	assert.Equal(t, float64(-100), resp["chat_id"])
	assert.Equal(t, float64(7), resp["reply_to_message_id"])
	assert.Equal(t, "@alice added 100.00. Balance: 100.00 EUR", resp["text"])
}

func TestWebhook_InvalidBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTelegramHandler(mocks.NewMockCommandDispatcher(ctrl), nil, nil, nil, zerolog.Nop())

	assert.Equal(t, http.StatusBadRequest, postUpdate(h, `{"message": {}}`).Code)
	assert.Equal(t, http.StatusBadRequest, postUpdate(h, `not json`).Code)
}

func TestWebhook_IgnoredUpdates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTelegramHandler(mocks.NewMockCommandDispatcher(ctrl), nil, nil, nil, zerolog.Nop())

	bodies := map[string]string{
		"edited message": `{"update_id": 1, "edited_message": {"message_id": 1, "from": {"id": 1}, "chat": {"id": 1}, "text": "/a 5"}}`,
		"from bot":       `{"update_id": 2, "message": {"message_id": 1, "from": {"id": 1, "is_bot": true}, "chat": {"id": 1}, "text": "/a 5"}}`,
		"no sender":      `{"update_id": 3, "message": {"message_id": 1, "chat": {"id": 1}, "text": "/a 5"}}`,
		"no text":        `{"update_id": 4, "message": {"message_id": 1, "from": {"id": 1}, "chat": {"id": 1}}}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			w := postUpdate(h, body)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{}`, w.Body.String())
		})
	}
}

func TestWebhook_NoReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockCommandDispatcher(ctrl)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return("")

	w := postUpdate(NewTelegramHandler(dispatcher, nil, nil, nil, zerolog.Nop()), commandUpdate)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestWebhook_FirstDeliveryCachesReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockCommandDispatcher(ctrl)
	dedup := mocks.NewMockUpdateDeduper(ctrl)
	replies := mocks.NewMockReplyCache(ctrl)

	dedup.EXPECT().FirstSeen(gomock.Any(), int64(1001), UpdateTTL).Return(true, nil)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return("ok")
	replies.EXPECT().Set(gomock.Any(), int64(1001), "ok", UpdateTTL).Return(nil)

	w := postUpdate(NewTelegramHandler(dispatcher, dedup, replies, nil, zerolog.Nop()), commandUpdate)
	assert.Equal(t, "ok", decodeBody(t, w)["text"])
}

func TestWebhook_RedeliveryReplaysCachedReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockCommandDispatcher(ctrl)
	dedup := mocks.NewMockUpdateDeduper(ctrl)
	replies := mocks.NewMockReplyCache(ctrl)

	dedup.EXPECT().FirstSeen(gomock.Any(), int64(1001), UpdateTTL).Return(false, nil)
	replies.EXPECT().Get(gomock.Any(), int64(1001)).Return("@alice added 100.00", true, nil)

	w := postUpdate(NewTelegramHandler(dispatcher, dedup, replies, nil, zerolog.Nop()), commandUpdate)
	assert.Equal(t, "@alice added 100.00", decodeBody(t, w)["text"])
}

func TestWebhook_RedeliveryWithoutCachedReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dedup := mocks.NewMockUpdateDeduper(ctrl)
	replies := mocks.NewMockReplyCache(ctrl)

	dedup.EXPECT().FirstSeen(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
	replies.EXPECT().Get(gomock.Any(), int64(1001)).Return("", false, nil)

	h := NewTelegramHandler(mocks.NewMockCommandDispatcher(ctrl), dedup, replies, nil, zerolog.Nop())
	assert.JSONEq(t, `{}`, postUpdate(h, commandUpdate).Body.String())
}

func TestWebhook_DedupFailureFailsOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockCommandDispatcher(ctrl)
	dedup := mocks.NewMockUpdateDeduper(ctrl)
	replies := mocks.NewMockReplyCache(ctrl)

	dedup.EXPECT().FirstSeen(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return("Balance: 0.00 EUR (0 movements)")
	replies.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	w := postUpdate(NewTelegramHandler(dispatcher, dedup, replies, nil, zerolog.Nop()), commandUpdate)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Balance: 0.00 EUR (0 movements)", decodeBody(t, w)["text"])
}

func longStatement(movements int) string {
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	rows := make([]domain.Movement, 0, movements)
	for i := 0; i < movements; i++ {
		rows = append(rows, domain.NewMovement("@alice", domain.MovementKindCredit, decimal.NewFromInt(int64(i+1)), at.Add(time.Duration(i)*time.Minute)))
	}
	reports := service.NewReportService("EUR", "", "csv", zerolog.Nop())
	return reports.Report(domain.NewSnapshot(rows, at))
}

func withoutNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "")
}

func TestWebhook_LongReplySentInParts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	statement := longStatement(150)
	require.Greater(t, utf8.RuneCountInString(statement), MaxMessageRunes)

	dispatcher := mocks.NewMockCommandDispatcher(ctrl)
	sender := mocks.NewMockMessageSender(ctrl)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(statement)

	var parts []string
	var replyTo []int64
	sender.EXPECT().SendMessage(gomock.Any(), int64(-100), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, text string, to int64) error {
			parts = append(parts, text)
			replyTo = append(replyTo, to)
			return nil
		}).MinTimes(2)

	w := postUpdate(NewTelegramHandler(dispatcher, nil, nil, sender, zerolog.Nop()), commandUpdate)

	assert.JSONEq(t, `{}`, w.Body.String())
	for _, p := range parts {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), MaxMessageRunes)
	}
	assert.Equal(t, withoutNewlines(statement), withoutNewlines(strings.Join(parts, "")))
	assert.Contains(t, parts[len(parts)-1], "Balance: 11325.00 EUR")
	assert.Equal(t, int64(7), replyTo[0])
	assert.Equal(t, int64(0), replyTo[1])
}

func TestWebhook_LongReplySendFailureFallsBackToWebhookAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockCommandDispatcher(ctrl)
	sender := mocks.NewMockMessageSender(ctrl)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(longStatement(150))
	sender.EXPECT().SendMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("telegram down"))

	w := postUpdate(NewTelegramHandler(dispatcher, nil, nil, sender, zerolog.Nop()), commandUpdate)

	text, _ := decodeBody(t, w)["text"].(string)
	assert.True(t, strings.HasPrefix(text, "Till statement, 150 movements"))
	assert.LessOrEqual(t, utf8.RuneCountInString(text), MaxMessageRunes)
}

func TestWebhook_LongReplyWithoutSenderIsTruncated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockCommandDispatcher(ctrl)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(longStatement(150))

	w := postUpdate(NewTelegramHandler(dispatcher, nil, nil, nil, zerolog.Nop()), commandUpdate)

	text, _ := decodeBody(t, w)["text"].(string)
	assert.LessOrEqual(t, utf8.RuneCountInString(text), MaxMessageRunes)
	assert.True(t, strings.HasSuffix(text, truncatedNote))
}

func TestSplitReply(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitReply("short", 10))
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, splitReply("aaaa\nbbbb\ncccc", 10))
	assert.Equal(t, []string{"éééé", "éé"}, splitReply("éééééé", 4))
}

// --- Ledger Handler Tests ---

func sampleSnapshot() *domain.Snapshot {
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	return domain.NewSnapshot([]domain.Movement{
		domain.NewMovement("@alice", domain.MovementKindCredit, decimal.RequireFromString("100"), at),
		domain.NewMovement("@alice", domain.MovementKindDebit, decimal.RequireFromString("30"), at),
	}, at)
}

func getLedger(handler gin.HandlerFunc, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	handler(c)
	return w
}

func TestLedgerHandler_Balance(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerService(ctrl)
	ledger.EXPECT().Snapshot(gomock.Any()).Return(sampleSnapshot())

	h := NewLedgerHandler(ledger, mocks.NewMockReportService(ctrl), "EUR", "")
	w := getLedger(h.Balance, "/api/v1/ledger/balance")

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "70.00", data["balance"])
	assert.Equal(t, "100.00", data["credits"])
	assert.Equal(t, float64(2), data["movements"])
	assert.Equal(t, "EUR", data["currency"])
}

func TestLedgerHandler_Report(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	snap := sampleSnapshot()
	ledger := mocks.NewMockLedgerService(ctrl)
	reports := mocks.NewMockReportService(ctrl)
	ledger.EXPECT().Snapshot(gomock.Any()).Return(snap)
	reports.EXPECT().Report(snap).Return("Till statement, 2 movements")

	w := getLedger(NewLedgerHandler(ledger, reports, "EUR", "csv").Report, "/api/v1/ledger/report")

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "Till statement, 2 movements", data["text"])
	items := data["movements"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "-30.00", items[1].(map[string]any)["signed_amount"])
}

func TestLedgerHandler_Export(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	snap := sampleSnapshot()
	ledger := mocks.NewMockLedgerService(ctrl)
	reports := mocks.NewMockReportService(ctrl)
	ledger.EXPECT().Snapshot(gomock.Any()).Return(snap)
	reports.EXPECT().Export(snap, "pdf").Return(&ports.ExportFile{
		Filename:    "till-20261015-090000.pdf",
		ContentType: "application/pdf",
		Body:        []byte("%PDF-1.3"),
	}, nil)

	w := getLedger(NewLedgerHandler(ledger, reports, "EUR", "pdf").Export, "/api/v1/ledger/export")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="till-20261015-090000.pdf"`)
	assert.Equal(t, "%PDF-1.3", w.Body.String())
}

func TestLedgerHandler_Export_QueryFormat(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerService(ctrl)
	reports := mocks.NewMockReportService(ctrl)
	ledger.EXPECT().Snapshot(gomock.Any()).Return(sampleSnapshot())
	reports.EXPECT().Export(gomock.Any(), "CSV").Return(&ports.ExportFile{
		Filename: "till.csv", ContentType: "text/csv; charset=utf-8", Body: []byte("index\n"),
	}, nil)

	w := getLedger(NewLedgerHandler(ledger, reports, "EUR", "pdf").Export, "/api/v1/ledger/export?format=CSV")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLedgerHandler_Export_InvalidFormat(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewLedgerHandler(mocks.NewMockLedgerService(ctrl), mocks.NewMockReportService(ctrl), "EUR", "csv")
	w := getLedger(h.Export, "/api/v1/ledger/export?format=xlsx")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "LED_001", decodeBody(t, w)["error_code"])
}

func TestLedgerHandler_Export_RenderFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerService(ctrl)
	reports := mocks.NewMockReportService(ctrl)
	ledger.EXPECT().Snapshot(gomock.Any()).Return(sampleSnapshot())
	reports.EXPECT().Export(gomock.Any(), "csv").Return(nil, apperror.ErrExportFailure(errors.New("boom")))

	w := getLedger(NewLedgerHandler(ledger, reports, "EUR", "").Export, "/api/v1/ledger/export")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SYS_002", decodeBody(t, w)["error_code"])
}

// --- Health Check Tests ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthCheck(t *testing.T) {
	w := getLedger(HealthCheck(stubChecker{name: "redis"}), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeBody(t, w)["status"])

	w = getLedger(HealthCheck(stubChecker{name: "redis"}, stubChecker{name: "postgresql", err: errors.New("down")}), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]any)
	assert.Equal(t, "unhealthy", deps["postgresql"].(map[string]any)["status"])
}
