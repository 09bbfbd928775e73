package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/islandcalc/islandcalc/internal/app/calculator"
	"github.com/islandcalc/islandcalc/internal/app/session"
	"github.com/islandcalc/islandcalc/internal/health"
	"github.com/islandcalc/islandcalc/internal/infra/pricefeed"
	"github.com/islandcalc/islandcalc/internal/infra/sqlite"
)

type testEnv struct {
	srv      *Server
	handler  http.Handler
	feedHits *atomic.Int32
	feedUp   *atomic.Bool
}

// newTestServer wires a server against a local fake price feed that
// answers 0.04 while feedUp is true and 503 otherwise.
func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var hits atomic.Int32
	var up atomic.Bool
	up.Store(true)
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !up.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"island-token":{"usd":0.04}}`))
	}))
	t.Cleanup(feed.Close)

	econ := calculator.DefaultEconomy()
	client := pricefeed.NewClient(pricefeed.ClientConfig{BaseURL: feed.URL})
	prices := pricefeed.NewSource(client, client.TokenID(), db, 0)
	store := session.NewStore(econ, 16, time.Minute)

	srv := NewServer(econ, store, prices)
	srv.EnableMetrics()
	return &testEnv{srv: srv, handler: srv.Handler(), feedHits: &hits, feedUp: &up}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ─── Health & Version ───────────────────────────────────────────────────────

func TestAPI_Health(t *testing.T) {
	env := newTestServer(t)

	w := env.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]interface{}](t, w)["status"])
}

func TestAPI_HealthDegraded(t *testing.T) {
	env := newTestServer(t)
	econ := calculator.DefaultEconomy()
	econ.CyclesPerYear = 0
	checker := health.NewChecker(nil, t.TempDir(), nil, econ)
	env.srv.SetHealth(checker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go checker.Run(ctx)

	assert.Eventually(t, func() bool {
		return env.do(t, "GET", "/health", "").Code == http.StatusServiceUnavailable
	}, time.Second, 10*time.Millisecond)

	body := decode[map[string]interface{}](t, env.do(t, "GET", "/health", ""))
	assert.Equal(t, "degraded", body["status"])
	assert.NotEmpty(t, body["checks"])
}

func TestAPI_Version(t *testing.T) {
	env := newTestServer(t)

	w := env.do(t, "GET", "/api/version", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, Version, decode[map[string]string](t, w)["version"])
}

func TestAPI_Metrics(t *testing.T) {
	env := newTestServer(t)
	env.do(t, "POST", "/api/calculate", `{}`)

	w := env.do(t, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "islandcalc_calculations_total")
}

func TestAPI_CORSPreflight(t *testing.T) {
	env := newTestServer(t)

	w := env.do(t, "OPTIONS", "/api/calculate", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestAPI_CORSRestricted(t *testing.T) {
	env := newTestServer(t)
	env.srv.SetCORSOrigins([]string{"https://calc.example"})
	handler := env.srv.Handler()

	req := httptest.NewRequest("GET", "/api/version", nil)
	req.Header.Set("Origin", "https://calc.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, "https://calc.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/api/version", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// ─── Tables & Calculate ─────────────────────────────────────────────────────

func TestAPI_Tables(t *testing.T) {
	env := newTestServer(t)

	w := env.do(t, "GET", "/api/tables", "")
	require.Equal(t, http.StatusOK, w.Code)

	var econ calculator.Economy
	require.NoError(t, json.NewDecoder(w.Body).Decode(&econ))
	assert.Len(t, econ.Intensities, 4)
	assert.Len(t, econ.BoostTiers, 7)
	assert.Len(t, econ.StakeTiers, 5)
	assert.Equal(t, int64(100), econ.BaseCap)
}

func TestAPI_Calculate_Defaults(t *testing.T) {
	env := newTestServer(t)

	w := env.do(t, "POST", "/api/calculate", `{}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[calculateResponse](t, w)
	assert.Equal(t, 0.05, resp.Inputs.TokenPriceUSD)
	assert.Equal(t, 1.0, resp.Results.EarnRate)
	assert.Equal(t, int64(100), resp.Results.MaxCap)
	assert.InDelta(t, 15.0, resp.Results.Projection.Cycle.PostCap, 1e-9)
	assert.InDelta(t, 547.5, resp.Results.Projection.Yearly.Tokens, 1e-9)
	assert.False(t, resp.Results.Projection.Cycle.Capped)
}

func TestAPI_Calculate_WithBoosts(t *testing.T) {
	env := newTestServer(t)

	body := `{"intensity":"super","staked_amount":1000,"boosts":[{"tier":"ultra","count":1},{"tier":"none","count":3}]}`
	w := env.do(t, "POST", "/api/calculate", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[calculateResponse](t, w)
	assert.Len(t, resp.Inputs.Boosts, 1, "placeholder tier is dropped")
	assert.Equal(t, 2.0, resp.Results.EarnRate)
	assert.Equal(t, int64(160+6400), resp.Results.MaxCap)
}

func TestAPI_Calculate_ClampsNegatives(t *testing.T) {
	env := newTestServer(t)

	w := env.do(t, "POST", "/api/calculate", `{"token_price_usd":-3,"staked_amount":-10,"compound_rate_percent":250}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[calculateResponse](t, w)
	assert.Equal(t, 0.0, resp.Inputs.TokenPriceUSD)
	assert.Equal(t, 0.0, resp.Inputs.StakedAmount)
	assert.Equal(t, 100, resp.Inputs.CompoundRatePercent)
}

func TestAPI_Calculate_Errors(t *testing.T) {
	env := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{not json`},
		{"unknown tier", `{"boosts":[{"tier":"diamond","count":1}]}`},
		{"unknown intensity", `{"intensity":"frantic"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/api/calculate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			e := decode[errorBody](t, w)
			assert.NotEmpty(t, e.Error.Message)
			assert.Equal(t, "invalid_request_error", e.Error.Type)
		})
	}
}

// ─── Sessions ───────────────────────────────────────────────────────────────

func createSession(t *testing.T, env *testEnv, body string) sessionResponse {
	t.Helper()
	w := env.do(t, "POST", "/api/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[sessionResponse](t, w)
}

func TestAPI_CreateSession_SeedsPriceFromFeed(t *testing.T) {
	env := newTestServer(t)

	sess := createSession(t, env, "")
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, 0.04, sess.Inputs.TokenPriceUSD)
	assert.Equal(t, 0.04, sess.Results.TokenPriceUSD)
	assert.Equal(t, int32(1), env.feedHits.Load())
}

func TestAPI_CreateSession_FeedDownKeepsDefault(t *testing.T) {
	env := newTestServer(t)
	env.feedUp.Store(false)

	sess := createSession(t, env, "")
	assert.Equal(t, 0.05, sess.Inputs.TokenPriceUSD)
}

func TestAPI_CreateSession_ExplicitPrice(t *testing.T) {
	env := newTestServer(t)

	sess := createSession(t, env, `{"token_price_usd":0.2}`)
	assert.Equal(t, 0.2, sess.Inputs.TokenPriceUSD)
	assert.Equal(t, int32(0), env.feedHits.Load(), "explicit price skips the feed")
}

func TestAPI_SessionLifecycle(t *testing.T) {
	env := newTestServer(t)
	sess := createSession(t, env, "")
	path := "/api/sessions/" + sess.ID

	w := env.do(t, "PATCH", path, `{"intensity":"custom","custom_blooms_per_day":2000,"staked_amount":10000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[sessionResponse](t, w)
	assert.Equal(t, int64(20000), got.Results.Intensity.BloomsPerCycle)
	assert.Equal(t, 8.0, got.Results.EarnRate)

	w = env.do(t, "POST", path+"/boosts", `{"tier":"gold","count":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	got = decode[sessionResponse](t, w)
	require.Len(t, got.Inputs.Boosts, 1)
	assert.Equal(t, int64(237+3400), got.Results.MaxCap)

	w = env.do(t, "GET", path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[sessionResponse](t, w).Inputs.Boosts, 1)

	w = env.do(t, "DELETE", path+"/boosts/0", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[sessionResponse](t, w).Inputs.Boosts)

	w = env.do(t, "DELETE", path, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "GET", path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found_error", decode[errorBody](t, w).Error.Type)
}

func TestAPI_SessionErrors(t *testing.T) {
	env := newTestServer(t)
	sess := createSession(t, env, "")
	path := "/api/sessions/" + sess.ID

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown session", "GET", "/api/sessions/nope", "", http.StatusNotFound},
		{"delete unknown", "DELETE", "/api/sessions/nope", "", http.StatusNotFound},
		{"patch bad json", "PATCH", path, `{`, http.StatusBadRequest},
		{"patch unknown intensity", "PATCH", path, `{"intensity":"frantic"}`, http.StatusBadRequest},
		{"unknown tier", "POST", path + "/boosts", `{"tier":"diamond","count":1}`, http.StatusBadRequest},
		{"index out of range", "DELETE", path + "/boosts/3", "", http.StatusBadRequest},
		{"index not a number", "DELETE", path + "/boosts/x", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestAPI_AddBoost_PlaceholderIsNoop(t *testing.T) {
	env := newTestServer(t)
	sess := createSession(t, env, "")

	w := env.do(t, "POST", "/api/sessions/"+sess.ID+"/boosts", `{"tier":"none","count":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[sessionResponse](t, w).Inputs.Boosts)

	w = env.do(t, "POST", "/api/sessions/"+sess.ID+"/boosts", `{"tier":"iron","count":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[sessionResponse](t, w).Inputs.Boosts)
}

// ─── Price ──────────────────────────────────────────────────────────────────

func TestAPI_Price(t *testing.T) {
	env := newTestServer(t)

	w := env.do(t, "GET", "/api/price", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[priceResponse](t, w)
	assert.Equal(t, 0.04, resp.Quote.USD)
	assert.Equal(t, "island-token", resp.Quote.TokenID)
}

func TestAPI_Price_Unavailable(t *testing.T) {
	env := newTestServer(t)
	env.feedUp.Store(false)

	w := env.do(t, "GET", "/api/price", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAPI_Price_Disabled(t *testing.T) {
	econ := calculator.DefaultEconomy()
	srv := NewServer(econ, session.NewStore(econ, 4, time.Minute), nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/price", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/price/history", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_RefreshPrice_KeepsLastOnFailure(t *testing.T) {
	env := newTestServer(t)

	w := env.do(t, "POST", "/api/price/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[priceResponse](t, w).Refreshed)

	env.feedUp.Store(false)
	w = env.do(t, "POST", "/api/price/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[priceResponse](t, w)
	assert.False(t, resp.Refreshed)
	assert.Equal(t, 0.04, resp.Quote.USD)
}

func TestAPI_PriceHistory(t *testing.T) {
	env := newTestServer(t)
	env.do(t, "POST", "/api/price/refresh", "")
	env.do(t, "POST", "/api/price/refresh", "")

	w := env.do(t, "GET", "/api/price/history?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Quotes []struct {
			USD float64 `json:"usd"`
		} `json:"quotes"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Len(t, body.Quotes, 1)

	w = env.do(t, "GET", "/api/price/history?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
