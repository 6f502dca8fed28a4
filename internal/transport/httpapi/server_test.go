package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbr39/kaizen/internal/bot"
	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/repository"
	"github.com/arbr39/kaizen/internal/service"
	"github.com/arbr39/kaizen/internal/testutil"
)

type recordingHandler struct {
	events []bot.Event
	resp   bot.Response
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, ev bot.Event) (bot.Response, error) {
	h.events = append(h.events, ev)
	return h.resp, h.err
}

type fixture struct {
	handler *recordingHandler
	ledger  service.LedgerService
	srv     http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	ledger := service.NewLedgerService(
		repository.NewSQLiteAccountRepo(database),
		repository.NewSQLiteTransactionRepo(database),
		repository.NewSQLiteDailyEntryRepo(database),
		testutil.NewTestTxRunner(database),
		nil,
	)
	testutil.SeedAccount(t, database, "http:alice", 0)
	h := &recordingHandler{}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("kaizen_up 1\n"))
	})
	s := NewServer(h, ledger, WithClock(func() time.Time { return testutil.Now }), WithMetrics(metrics))
	return &fixture{handler: h, ledger: ledger, srv: s.Handler()}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthzAndMetrics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kaizen_up")
}

func TestPostEvent_TextIsParsed(t *testing.T) {
	f := newFixture(t)
	f.handler.resp = bot.Response{Reply: &dialog.Reply{Definition: "morning_kaizen", Step: "wake_time", Prompt: "When did you wake up?", Input: "text"}}

	rec := f.do(t, http.MethodPost, "/v1/accounts/http:alice/events", `{"text":"/begin morning","display_name":"Alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.handler.events, 1)
	ev := f.handler.events[0]
	assert.Equal(t, "http:alice", ev.AccountID)
	assert.Equal(t, "Alice", ev.DisplayName)
	assert.Equal(t, bot.CmdBegin, ev.Command)
	assert.Equal(t, "morning", ev.Arg)

	var body eventResponse
	decode(t, rec, &body)
	require.NotNil(t, body.Reply)
	assert.Equal(t, "wake_time", body.Reply.Step)
}

func TestPostEvent_ExplicitCommand(t *testing.T) {
	f := newFixture(t)
	f.handler.resp = bot.Response{Text: "Skipped."}

	rec := f.do(t, http.MethodPost, "/v1/accounts/http:alice/events", `{"command":"skip"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bot.Event{AccountID: "http:alice", Command: bot.CmdSkip}, f.handler.events[0])

	var body eventResponse
	decode(t, rec, &body)
	assert.Equal(t, "Skipped.", body.Text)
	assert.Nil(t, body.Reply)
}

func TestPostEvent_PinnedToStep(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/accounts/http:alice/events",
		`{"command":"submit","arg":"yes","session":"ab12cd34","step":"inbox"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dialog.Expect{Session: "ab12cd34", Step: "inbox"}, f.handler.events[0].At)
}

func TestPostEvent_BadRequests(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/accounts/http:alice/events", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/accounts/http:alice/events", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.handler.events)
}

func TestPostEvent_HandlerFailureIs500(t *testing.T) {
	f := newFixture(t)
	f.handler.err = errors.New("disk on fire")

	rec := f.do(t, http.MethodPost, "/v1/accounts/http:alice/events", `{"text":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ledger.Earn(ctx, service.EarnRequest{
		AccountID: "http:alice",
		Trigger:   domain.TriggerMorningKaizen,
		DedupKey:  domain.DedupKey(domain.TriggerMorningKaizen, "2024-05-08"),
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/v1/accounts/http:alice/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"account_id":"http:alice","balance":50}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/v1/accounts/http:nobody/balance", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, day := range []string{"2024-05-07", "2024-05-08"} {
		_, err := f.ledger.Earn(ctx, service.EarnRequest{
			AccountID: "http:alice",
			Trigger:   domain.TriggerEveningReflection,
			DedupKey:  domain.DedupKey(domain.TriggerEveningReflection, day),
		})
		require.NoError(t, err)
	}

	rec := f.do(t, http.MethodGet, "/v1/accounts/http:alice/stats?days=30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st statsResponse
	decode(t, rec, &st)
	assert.Equal(t, int64(100), st.Balance)
	assert.Equal(t, int64(100), st.TotalEarned)
	assert.Equal(t, 30, st.WindowDays)

	rec = f.do(t, http.MethodGet, "/v1/accounts/http:alice/history?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist struct {
		Transactions []transactionJSON `json:"transactions"`
	}
	decode(t, rec, &hist)
	require.Len(t, hist.Transactions, 1)
	assert.Equal(t, "evening_reflection", hist.Transactions[0].Trigger)
	assert.Equal(t, int64(50), hist.Transactions[0].Amount)
}

type clockLedger struct {
	service.LedgerService
	now time.Time
}

func (c *clockLedger) Stats(_ context.Context, _ string, now time.Time, days int) (*domain.LedgerStats, error) {
	c.now = now
	return &domain.LedgerStats{WindowDays: days}, nil
}

func TestStats_DayFollowsLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	ledger := &clockLedger{}
	srv := NewServer(&recordingHandler{}, ledger,
		WithClock(func() time.Time { return testutil.Now }),
		WithLocation(tokyo),
	).Handler()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/accounts/http:alice/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tokyo, ledger.now.Location())
	assert.Equal(t, "2024-05-09", domain.DateKey(ledger.now), "21:30 UTC is already tomorrow in Tokyo")
}

func TestQueryValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/accounts/http:alice/stats?days=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/accounts/http:alice/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
