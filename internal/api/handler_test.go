package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hilayankonsky/movemix/internal/api"
	"github.com/hilayankonsky/movemix/internal/middleware"
	"github.com/hilayankonsky/movemix/internal/stats"
	"github.com/hilayankonsky/movemix/internal/storage"
	"github.com/hilayankonsky/movemix/internal/store"
	"github.com/hilayankonsky/movemix/internal/telemetry/metrics"

	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	router  *mux.Router
	store   *store.Store
	mem     *storage.Memory
	metrics *metrics.Manager
}

func newTestEnv(t *testing.T, limiter *fakeLimiter) *testEnv {
	t.Helper()

	var mu sync.Mutex
	n := 0
	ids := func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("s%d", n)
	}

	mem := storage.NewMemory()
	st := store.New(mem, store.WithIDFunc(ids))
	clock := func() time.Time { return testNow }
	engine := stats.NewEngine(st, clock, time.UTC)
	metricsManager := metrics.NewTestManager()

	handler := api.NewHandler(st, engine, metricsManager, clock, time.UTC)
	r := mux.NewRouter()
	if limiter != nil {
		handler.SetupRoutes(r, limiter, 10)
	} else {
		handler.SetupRoutes(r, nil, 0)
	}

	return &testEnv{
		router:  r,
		store:   st,
		mem:     mem,
		metrics: metricsManager,
	}
}

func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, path, nil)
	} else {
		req, err = http.NewRequest(method, path, strings.NewReader(body))
	}
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m), rr.Body.String())
	return m
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, "GET", "/settings", "")
	require.Equal(t, http.StatusOK, rr.Code)
	settings := decode(t, rr)
	assert.Nil(t, settings["weightKg"])
	assert.Equal(t, 8.0, settings["MET"].(map[string]any)["tennis"])

	rr = env.do(t, "PUT", "/settings", `{"weightKg": 70}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 70.0, decode(t, rr)["weightKg"])

	rr = env.do(t, "PUT", "/settings", `{"weightKg": 20}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, "PUT", "/settings", `{"MET": {"tennis": 9}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	settings = decode(t, rr)
	assert.Equal(t, 70.0, settings["weightKg"])
	assert.Equal(t, 9.0, settings["MET"].(map[string]any)["tennis"])

	rr = env.do(t, "PUT", "/settings", `{"weightKg": null}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, decode(t, rr)["weightKg"])

	rr = env.do(t, "DELETE", "/settings", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 8.0, decode(t, rr)["MET"].(map[string]any)["tennis"])

	rr = env.do(t, "PUT", "/settings", `weight please`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Equal(t, 4.0, testutil.ToFloat64(env.metrics.CounterSettingsUpdates))
}

func TestAddSession_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	for name, body := range map[string]string{
		"unknown type":    `{"type":"boxing","date":"2024-05-15","durationMin":30}`,
		"bad date":        `{"type":"tennis","date":"15/05/2024","durationMin":30}`,
		"short duration":  `{"type":"tennis","date":"2024-05-15","durationMin":0}`,
		"negative manual": `{"type":"tennis","date":"2024-05-15","durationMin":30,"caloriesManual":-5}`,
		"not json":        `tennis for an hour`,
		"not an object":   `[1,2,3]`,
	} {
		t.Run(name, func(t *testing.T) {
			rr := env.do(t, "POST", "/sessions", body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	doc, err := env.store.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc.Sessions)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.do(t, "PUT", "/settings", `{"weightKg": 70}`).Code)

	rr := env.do(t, "POST", "/sessions", `{"type":"tennis","date":"2024-05-15","durationMin":60,"intensity":3,"notes":"doubles"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	added := decode(t, rr)
	assert.Equal(t, "s1", added["id"])
	assert.Equal(t, 560.0, added["caloriesFixed"])
	assert.Equal(t, 70.0, added["weightAtLog"])
	assert.Equal(t, 8.0, added["metAtLog"])
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.GaugeStoredSessions))

	rr = env.do(t, "GET", "/sessions/s1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "doubles", decode(t, rr)["notes"])

	rr = env.do(t, "PUT", "/sessions/s1", `{"caloriesManual": 300}`)
	require.Equal(t, http.StatusOK, rr.Code)
	updated := decode(t, rr)
	assert.Equal(t, 300.0, updated["caloriesManual"])
	assert.NotContains(t, updated, "caloriesFixed")

	rr = env.do(t, "PUT", "/sessions/s1", `{"caloriesManual": null, "durationMin": 30}`)
	require.Equal(t, http.StatusOK, rr.Code)
	updated = decode(t, rr)
	assert.NotContains(t, updated, "caloriesManual")
	assert.Equal(t, 280.0, updated["caloriesFixed"])

	rr = env.do(t, "PUT", "/sessions/s1", `{"durationMin": 0}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, "PUT", "/sessions/nope", `{"notes": "x"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, "DELETE", "/sessions/s1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, "GET", "/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.GaugeStoredSessions))

	rr = env.do(t, "DELETE", "/sessions/s1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CounterSessionMutations.WithLabelValues("add")))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.CounterSessionMutations.WithLabelValues("update")))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.CounterSessionMutations.WithLabelValues("remove")))
}

func TestListSessions(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, body := range []string{
		`{"type":"tennis","date":"2024-05-13","durationMin":30,"notes":"serve drills"}`,
		`{"type":"yoga","date":"2024-05-15","durationMin":20}`,
		`{"type":"other","customLabel":"climbing","date":"2024-05-10","durationMin":45}`,
	} {
		require.Equal(t, http.StatusCreated, env.do(t, "POST", "/sessions", body).Code)
	}

	rr := env.do(t, "GET", "/sessions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Sessions []stats.HistoryRow `json:"sessions"`
		Total    int                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, "s2", list.Sessions[0].ID)
	assert.Equal(t, "Other - climbing", list.Sessions[2].Label)
	assert.Zero(t, list.Sessions[2].ResolvedCalories, "no weight configured")

	rr = env.do(t, "GET", "/sessions?q=DRILL", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, "s1", list.Sessions[0].ID)

	rr = env.do(t, "GET", "/sessions?from=2024-05-11&to=2024-05-14", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	rr = env.do(t, "GET", "/sessions?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportImportClear(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusCreated, env.do(t, "POST", "/sessions",
		`{"type":"pilates","date":"2024-05-14","durationMin":50}`).Code)

	rr := env.do(t, "GET", "/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="movemix_backup_2024-05-15.json"`, rr.Header().Get("Content-Disposition"))
	exported := rr.Body.String()
	assert.Len(t, decode(t, rr)["sessions"], 1)

	rr = env.do(t, "DELETE", "/data", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	_, err := env.mem.Get(context.Background(), store.DefaultKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	rr = env.do(t, "POST", "/import", "definitely not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	_, err = env.mem.Get(context.Background(), store.DefaultKey)
	assert.ErrorIs(t, err, storage.ErrNotFound, "a rejected import writes nothing")

	rr = env.do(t, "POST", "/import", exported)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["sessions"], 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CounterImports))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.GaugeStoredSessions))

	rr = env.do(t, "GET", "/sessions/s1", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestStatsRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, "GET", "/stats/onboarding", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode(t, rr)["showWelcome"])

	require.Equal(t, http.StatusOK, env.do(t, "PUT", "/settings", `{"weightKg": 70}`).Code)
	for _, body := range []string{
		`{"type":"tennis","date":"2024-05-13","durationMin":30}`,
		`{"type":"tennis","date":"2024-05-14","durationMin":20}`,
		`{"type":"yoga","date":"2024-05-15","durationMin":10}`,
		`{"type":"strength","date":"2024-05-02","durationMin":60}`,
	} {
		require.Equal(t, http.StatusCreated, env.do(t, "POST", "/sessions", body).Code)
	}

	rr = env.do(t, "GET", "/stats/kpis/week", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var week stats.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &week))
	assert.Equal(t, 3, week.Workouts)
	assert.Equal(t, 60.0, week.Minutes)
	// 280 + 187 + 35
	assert.Equal(t, 502, week.Calories)

	rr = env.do(t, "GET", "/stats/kpis/month", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &week))
	assert.Equal(t, 4, week.Workouts)

	rr = env.do(t, "GET", "/stats/kpis/yearly", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, "GET", "/stats/types/week", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var chart stats.ChartData
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &chart))
	assert.Equal(t, []string{"Tennis", "Strength", "Pilates", "Yoga", "Other"}, chart.Labels)
	assert.Equal(t, []float64{50, 0, 0, 10, 0}, chart.Values)

	rr = env.do(t, "GET", "/stats/types/all", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &chart))
	assert.Equal(t, []float64{50, 60, 0, 10, 0}, chart.Values)

	rr = env.do(t, "GET", "/stats/weekly", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var report stats.WeeklyReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, []string{"2024-W18", "2024-W20"}, report.Chart.Labels)
	assert.Equal(t, []float64{60, 60}, report.Chart.Values)

	rr = env.do(t, "GET", "/stats/onboarding", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["showWelcome"])
}

type fakeLimiter struct {
	allowed bool
	keys    []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	l.keys = append(l.keys, key)
	res := &redis_rate.Result{Limit: limit, RetryAfter: time.Second}
	if l.allowed {
		res.Allowed = 1
		res.Remaining = limit.Rate - 1
	}
	return res, nil
}

func TestRateLimitedRoutes(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	env := newTestEnv(t, limiter)

	rr := env.do(t, "POST", "/sessions", `{"type":"yoga","date":"2024-05-15","durationMin":20}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CounterRateLimitedRequests))

	// reads are never limited
	rr = env.do(t, "GET", "/sessions", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, limiter.keys, 1)
	assert.True(t, strings.HasPrefix(limiter.keys[0], "movemix:rate:add-session:"))

	limiter.allowed = true
	rr = env.do(t, "POST", "/sessions", `{"type":"yoga","date":"2024-05-15","durationMin":20}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "9", rr.Header().Get("X-RateLimit-Remaining"))
}

func TestOversizedBodiesWithoutLength(t *testing.T) {
	env := newTestEnv(t, nil)
	limited := middleware.LimitRequestBody(64)(env.router)
	snapshot := `{"sessions":[{"id":"x","type":"yoga","date":"2024-05-14","durationMin":30,"notes":"` +
		strings.Repeat("stretch ", 20) + `"}]}`

	for _, tc := range []struct{ method, path string }{
		{"POST", "/import"},
		{"POST", "/sessions"},
		{"PUT", "/sessions/s1"},
		{"PUT", "/settings"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(snapshot))
		req.ContentLength = -1
		rr := httptest.NewRecorder()
		limited.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, "%s %s", tc.method, tc.path)
	}

	_, err := env.mem.Get(context.Background(), store.DefaultKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAddSession_IdsAndDates(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, "POST", "/sessions", `{"id":"dup","type":"tennis","date":"2024-05-14","durationMin":30}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "dup", decode(t, rr)["id"])

	rr = env.do(t, "POST", "/sessions", `{"id":"dup","type":"yoga","date":"2024-05-15","durationMin":10}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "s1", decode(t, rr)["id"])

	for _, date := range []string{"2024-02-31", "2024-5-9"} {
		rr = env.do(t, "POST", "/sessions", `{"type":"tennis","date":"`+date+`","durationMin":30}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code, date)
	}

	rr = env.do(t, "GET", "/sessions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2.0, decode(t, rr)["total"])
}
