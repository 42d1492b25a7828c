package http

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

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/stats"
	"ledger/internal/store"
	"ledger/internal/store/memory"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

// brokenKV reads fine but fails every write.
type brokenKV struct {
	*memory.KV
}

func (brokenKV) Update(context.Context, func(store.KVTx) error) error {
	return errors.New("disk full")
}

func newTestEnv(t *testing.T, kv store.KV, perMinute int) *Server {
	t.Helper()
	st := store.New(kv, store.Options{IDs: core.NewSequenceGenerator(0), Logger: log.Discard()})
	svc := services.NewLedgerService(st, services.Options{
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
		Logger:   log.Discard(),
	})
	_, err := svc.EnsureSeeded(context.Background())
	require.NoError(t, err)

	srv := NewServer(":0", svc, Options{Logger: log.Discard(), RateLimitPerMinute: perMinute, Version: "ledger v1.0.2"})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func newSeededServer(t *testing.T) *Server {
	return newTestEnv(t, memory.New(), 1000)
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorBody](t, rec).Error
}

func TestHealthAndReady(t *testing.T) {
	srv := newSeededServer(t)

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "ledger v1.0.2", health["version"])

	rec = do(t, srv, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[map[string]any](t, rec)["status"])

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestListBillsNewestFirst(t *testing.T) {
	srv := newSeededServer(t)

	rec := do(t, srv, http.MethodGet, "/api/bills", "")
	require.Equal(t, http.StatusOK, rec.Code)
	bills := decode[[]core.Bill](t, rec)
	require.Len(t, bills, 5)
	for i := 1; i < len(bills); i++ {
		assert.GreaterOrEqual(t, bills[i-1].Timestamp, bills[i].Timestamp)
	}
}

func TestCreateBill(t *testing.T) {
	srv := newSeededServer(t)

	rec := do(t, srv, http.MethodPost, "/api/bills", `{"type":"expense","amount":"18.80","category":"娱乐","remark":"电影"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[core.Bill](t, rec)
	assert.Equal(t, int64(6), created.ID)
	assert.Equal(t, int64(1880), created.Amount.Cents)
	assert.Equal(t, testNow.UnixMilli(), created.Timestamp, "timestamp defaults to now")
	assert.Equal(t, "/api/bills/6", rec.Header().Get("Location"))

	bills := decode[[]core.Bill](t, do(t, srv, http.MethodGet, "/api/bills", ""))
	assert.Len(t, bills, 6)
}

func TestCreateBillErrors(t *testing.T) {
	srv := newSeededServer(t)

	tests := []struct {
		name    string
		body    string
		code    int
		message string
	}{
		{"malformed json", `{"type":`, http.StatusBadRequest, ""},
		{"empty body", ``, http.StatusBadRequest, ""},
		{"unknown field", `{"type":"expense","amount":1,"category":"x","extra":true}`, http.StatusBadRequest, ""},
		{"negative amount", `{"type":"expense","amount":-1,"category":"餐饮"}`, http.StatusUnprocessableEntity, core.ErrInvalidAmount.Error()},
		{"unparsable amount", `{"type":"expense","amount":"ten","category":"餐饮"}`, http.StatusUnprocessableEntity, core.ErrInvalidAmount.Error()},
		{"amount beyond int64", `{"type":"expense","amount":1e20,"category":"餐饮"}`, http.StatusUnprocessableEntity, core.ErrInvalidAmount.Error()},
		{"amount above cap", `{"type":"expense","amount":100000000000.01,"category":"餐饮"}`, http.StatusUnprocessableEntity, core.ErrInvalidAmount.Error()},
		{"missing amount", `{"type":"expense","category":"餐饮"}`, http.StatusUnprocessableEntity, core.ErrInvalidAmount.Error()},
		{"bad type", `{"type":"gift","amount":1,"category":"餐饮"}`, http.StatusUnprocessableEntity, core.ErrInvalidType.Error()},
		{"blank category", `{"type":"income","amount":1,"category":"   "}`, http.StatusUnprocessableEntity, core.ErrEmptyCategory.Error()},
		{"remark too long", `{"type":"income","amount":1,"category":"工资","remark":"` + strings.Repeat("长", 201) + `"}`, http.StatusUnprocessableEntity, core.ErrRemarkTooLong.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/bills", tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			msg := errorOf(t, rec)
			if tt.message != "" {
				assert.Equal(t, tt.message, msg)
			}
		})
	}

	assert.Len(t, decode[[]core.Bill](t, do(t, srv, http.MethodGet, "/api/bills", "")), 5, "nothing was stored")
}

func TestUpdateBill(t *testing.T) {
	srv := newSeededServer(t)
	ts := testNow.Add(-time.Hour).UnixMilli()

	rec := do(t, srv, http.MethodPut, "/api/bills/1", `{"type":"expense","amount":30,"category":"餐饮","remark":"午餐+饮料","timestamp":`+itoa(ts)+`}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	bills := decode[[]core.Bill](t, do(t, srv, http.MethodGet, "/api/bills", ""))
	var got core.Bill
	for _, b := range bills {
		if b.ID == 1 {
			got = b
		}
	}
	assert.Equal(t, int64(3000), got.Amount.Cents)
	assert.Equal(t, "午餐+饮料", got.Remark)
	assert.Equal(t, ts, got.Timestamp)

	// Unknown ids are a silent no-op.
	rec = do(t, srv, http.MethodPut, "/api/bills/999", `{"type":"expense","amount":1,"category":"餐饮","timestamp":`+itoa(ts)+`}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, decode[[]core.Bill](t, do(t, srv, http.MethodGet, "/api/bills", "")), 5)

	rec = do(t, srv, http.MethodPut, "/api/bills/abc", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPut, "/api/bills/1", `{"type":"expense","amount":1,"category":"餐饮"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "a full replace needs a timestamp")
	assert.Equal(t, core.ErrInvalidTimestamp.Error(), errorOf(t, rec))
}

func TestDeleteBill(t *testing.T) {
	srv := newSeededServer(t)

	rec := do(t, srv, http.MethodDelete, "/api/bills/2", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	bills := decode[[]core.Bill](t, do(t, srv, http.MethodGet, "/api/bills", ""))
	require.Len(t, bills, 4)
	for _, b := range bills {
		assert.NotEqual(t, int64(2), b.ID)
	}

	rec = do(t, srv, http.MethodDelete, "/api/bills/2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "deleting twice is a no-op")
}

func TestSummary(t *testing.T) {
	srv := newSeededServer(t)

	rec := do(t, srv, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"period":{"year":2024,"month":3},"income":5000.00,"expense":202.50,"balance":4797.50}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/summary?year=2024&month=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[stats.Summary](t, rec)
	assert.True(t, summary.Income.IsZero())
	assert.True(t, summary.Expense.IsZero())

	rec = do(t, srv, http.MethodGet, "/api/summary?month=13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryStats(t *testing.T) {
	srv := newSeededServer(t)

	rec := do(t, srv, http.MethodGet, "/api/stats/categories?year=2024&month=3&type=expense", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sums := decode[[]stats.CategorySum](t, rec)
	require.Len(t, sums, 3)
	assert.Equal(t, "购物", sums[0].Category)
	assert.Equal(t, int64(12000), sums[0].Total.Cents)
	assert.Equal(t, "餐饮", sums[1].Category)
	assert.Equal(t, int64(7050), sums[1].Total.Cents)
	assert.Equal(t, core.IconUtensils, sums[1].Icon)

	rec = do(t, srv, http.MethodGet, "/api/stats/categories?year=2024&type=income", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sums = decode[[]stats.CategorySum](t, rec)
	require.Len(t, sums, 1)
	assert.Equal(t, "工资", sums[0].Category)

	rec = do(t, srv, http.MethodGet, "/api/stats/categories?type=transfer", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeries(t *testing.T) {
	srv := newSeededServer(t)

	rec := do(t, srv, http.MethodGet, "/api/stats/series?year=2024&month=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	series := decode[stats.Series](t, rec)
	assert.Equal(t, stats.ModeMonth, series.Mode)
	assert.Len(t, series.Values, 29, "leap February")
	assert.Equal(t, "1日", series.Labels[0])

	rec = do(t, srv, http.MethodGet, "/api/stats/series?year=2024&type=income", "")
	require.Equal(t, http.StatusOK, rec.Code)
	series = decode[stats.Series](t, rec)
	assert.Equal(t, stats.ModeYear, series.Mode)
	require.Len(t, series.Values, 12)
	assert.Equal(t, int64(500000), series.Values[2].Cents)
	assert.Equal(t, "3月", series.Labels[2])
}

func TestDays(t *testing.T) {
	srv := newSeededServer(t)

	rec := do(t, srv, http.MethodGet, "/api/days", "")
	require.Equal(t, http.StatusOK, rec.Code)
	days := decode[[]stats.DayGroup](t, rec)
	require.Len(t, days, 5)
	assert.Equal(t, "2024/3/15", days[0].Key)
	assert.Equal(t, "2024/3/11", days[4].Key)

	rec = do(t, srv, http.MethodGet, "/api/days?year=2023", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]stats.DayGroup](t, rec))

	rec = do(t, srv, http.MethodGet, "/api/days?month=3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "a month needs a year when listing days")
}

func TestCategories(t *testing.T) {
	srv := newSeededServer(t)

	rec := do(t, srv, http.MethodGet, "/api/categories?type=income", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[[]core.Category](t, rec)
	require.Len(t, cats, 5)
	assert.Equal(t, core.Category{Name: "工资", Icon: core.IconWallet}, cats[0])

	rec = do(t, srv, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Category](t, rec), 8)
}

func TestReset(t *testing.T) {
	srv := newSeededServer(t)
	do(t, srv, http.MethodDelete, "/api/bills/1", "")

	for _, body := range []string{"", `{}`, `{"confirm":"yes"}`} {
		rec := do(t, srv, http.MethodPost, "/api/reset", body)
		assert.Equal(t, http.StatusConflict, rec.Code, "body %q", body)
	}
	assert.Len(t, decode[[]core.Bill](t, do(t, srv, http.MethodGet, "/api/bills", "")), 4, "unconfirmed reset changes nothing")

	rec := do(t, srv, http.MethodPost, "/api/reset", `{"confirm":"RESET"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"reset":true,"seeded":true}`, rec.Body.String())
	assert.Len(t, decode[[]core.Bill](t, do(t, srv, http.MethodGet, "/api/bills", "")), 5)
}

func TestStoreFailureIsReportedAsCouldNotSave(t *testing.T) {
	srv := newTestEnv(t, brokenKV{KV: memory.New()}, 1000)

	rec := do(t, srv, http.MethodPost, "/api/bills", `{"type":"expense","amount":1,"category":"餐饮"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "could not save", errorOf(t, rec))

	rec = do(t, srv, http.MethodGet, "/api/bills", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Bill](t, rec), 5, "previous data is intact")
}

func TestRateLimitOnlyGuardsAPI(t *testing.T) {
	srv := newTestEnv(t, memory.New(), 2)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/bills", "").Code)
	}
	rec := do(t, srv, http.MethodGet, "/api/bills", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, errorOf(t, rec))

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", "").Code)

	metrics := do(t, srv, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, metrics, "rate_limit_hits_total 1\n")
}

func TestMetricsCountMutations(t *testing.T) {
	srv := newSeededServer(t)
	do(t, srv, http.MethodPost, "/api/bills", `{"type":"income","amount":100,"category":"红包"}`)
	do(t, srv, http.MethodDelete, "/api/bills/1", "")
	do(t, srv, http.MethodDelete, "/api/bills/12345", "")
	do(t, srv, http.MethodGet, "/api/nope", "")

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "bills_created_total 1\n")
	assert.Contains(t, body, "bills_deleted_total 1\n")
	assert.Contains(t, body, "http_requests_total 4\n")
	assert.Contains(t, body, "http_client_errors_total 1\n")
}

func TestUnknownRoute(t *testing.T) {
	srv := newSeededServer(t)
	for _, path := range []string{"/nope", "/api/nope"} {
		rec := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, errorOf(t, rec), path)
	}
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
