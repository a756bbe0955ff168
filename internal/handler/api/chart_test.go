package api

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinChart/internal/chart/series"
	"CoinChart/internal/chart/surface"
	"CoinChart/internal/domain/models"
	"CoinChart/internal/service/ratelimit"
	"CoinChart/internal/usecase"
	xhttp "CoinChart/pkg/http"
)

type mapSource struct {
	data    map[string][]models.Candle
	symbols []models.Symbol
}

func (s mapSource) GetCandles(_ context.Context, symbol string) ([]models.Candle, error) {
	if c, ok := s.data[symbol]; ok {
		return c, nil
	}
	return nil, errors.New("HTTP error! status: 404")
}

func (s mapSource) GetSymbols(context.Context) ([]models.Symbol, error) {
	return s.symbols, nil
}

func testCandles(n int, base float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		p := base + float64(i%9)
		out[i] = models.Candle{
			Time:   int64(1_700_000_000_000 + i*3_600_000),
			Open:   p,
			High:   p + 3,
			Low:    p - 3,
			Close:  p + 1,
			Volume: float64(100 + i),
			Oscillators: map[string]float64{
				"DSS_UP": 80, "DSS_DOWN": 20, "DSS_4H": float64(i % 100),
			},
			Buy:  i%10 == 0,
			Sell: i%25 == 0,
		}
	}
	return out
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fixture struct {
	t       *testing.T
	server  *xhttp.Server
	manager *usecase.SessionManager
}

func newFixture(t *testing.T, maxSessions int, limiter *ratelimit.Limiter) *fixture {
	t.Helper()
	src := mapSource{data: map[string][]models.Candle{
		"BTCUSDT": testCandles(50, 100),
		"ETHUSDT": testCandles(30, 10),
	}}
	deps := usecase.SessionDeps{
		Factory: surface.NewFactory(series.DefaultTheme),
		Source:  src,
		Waiter:  usecase.NewLayoutWaiter(time.Second),
	}
	manager := usecase.NewSessionManager(deps, usecase.NewSymbolCatalog(src, nil), maxSessions)
	t.Cleanup(manager.Close)
	if limiter == nil {
		limiter = ratelimit.New(100, 100)
	}
	h := NewChartHandler(nil, manager, src, limiter)
	return &fixture{t: t, server: xhttp.NewServer(h), manager: manager}
}

func (f *fixture) do(method, target, body string) (*httptest.ResponseRecorder, envelope) {
	f.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Echo().ServeHTTP(rec, req)
	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (f *fixture) view(method, target, body string, wantCode int) usecase.View {
	f.t.Helper()
	rec, env := f.do(method, target, body)
	require.Equal(f.t, wantCode, rec.Code, rec.Body.String())
	var v usecase.View
	require.NoError(f.t, json.Unmarshal(env.Data, &v))
	return v
}

func TestSymbolsAndCandles(t *testing.T) {
	f := newFixture(t, 0, nil)

	rec, env := f.do(http.MethodGet, "/api/symbols?q=eth", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []string `json:"rows"`
		Total int64    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, []string{"ETHUSDT"}, list.Rows)
	assert.Equal(t, int64(1), list.Total)

	rec, env = f.do(http.MethodGet, "/api/candles/BTCUSDT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "private, max-age=60", rec.Header().Get("Cache-Control"))
	var candles struct {
		Rows  []models.Candle `json:"rows"`
		Total int64           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &candles))
	assert.Equal(t, int64(50), candles.Total)
	require.Len(t, candles.Rows, 50)
	assert.Equal(t, testCandles(50, 100), candles.Rows)
	first, last := candles.Rows[0], candles.Rows[49]
	assert.Equal(t, int64(1_700_000_000_000), first.Time)
	assert.True(t, first.Buy)
	assert.True(t, first.Sell)
	assert.InDelta(t, 80.0, first.Oscillators["DSS_UP"], 1e-9)
	assert.Equal(t, int64(1_700_000_000_000+49*3_600_000), last.Time)
	assert.InDelta(t, 149.0, last.Volume, 1e-9)

	rec, env = f.do(http.MethodGet, "/api/candles/DOGEUSDT", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, http.StatusBadGateway, env.Status)

	rec, env = f.do(http.MethodGet, "/api/candles/BTCUSDT/annotations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ann annotationsResponse
	require.NoError(t, json.Unmarshal(env.Data, &ann))
	assert.Len(t, ann.Markers, 7)
	require.Len(t, ann.Rectangles, 2)
	assert.Equal(t, "#FF0000", ann.Rectangles[0].Style.FillColor)
	assert.Equal(t, models.BorderDashed, ann.Rectangles[1].Style.BorderStyle)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t, 0, nil)

	v := f.view(http.MethodPost, "/api/sessions", `{"symbol":"BTCUSDT","width":800,"height":600}`, http.StatusCreated)
	id := v.ID
	assert.Equal(t, "BTCUSDT", v.Status.Symbol)
	assert.Equal(t, "Added box annotations", v.Status.Debug)
	assert.Equal(t, 50, v.Candles)
	assert.Len(t, v.Markers, 7)
	require.Len(t, v.Overlay, 2)
	assert.Equal(t, "Box 1", v.Overlay[0].Label)
	require.Len(t, v.Panes, 3)

	base := "/api/sessions/" + id
	v = f.view(http.MethodPut, base+"/range", `{"pane":"volume","from":5,"to":20}`, http.StatusOK)
	for _, p := range v.Panes {
		require.NotNil(t, p.Range, p.ID)
		assert.Equal(t, models.LogicalRange{From: 5, To: 20}, *p.Range, p.ID)
	}

	rec, _ := f.do(http.MethodPut, base+"/range", `{"pane":"volume","from":20,"to":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = f.do(http.MethodPut, base+"/range", `{"pane":"depth","from":1,"to":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.view(http.MethodPost, base+"/crosshair", `{"x":120,"y":40}`, http.StatusOK)

	v = f.view(http.MethodPost, base+"/rectangles",
		`{"x_min":1700000000000,"x_max":1700036000000,"y_min":99,"y_max":104,"style":{"fill_color":"#00FF00"}}`,
		http.StatusCreated)
	require.Len(t, v.Rectangles, 3)
	assert.Equal(t, models.BorderSolid, v.Rectangles[2].Style.BorderStyle)

	v = f.view(http.MethodDelete, base+"/rectangles", "", http.StatusOK)
	assert.Empty(t, v.Overlay)

	v = f.view(http.MethodPost, base+"/refresh", "", http.StatusOK)
	assert.Len(t, v.Overlay, 2)
	assert.Equal(t, "Refreshed box annotations", v.Status.Debug)

	rec, _ = f.do(http.MethodGet, base+"/panes/price", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec, _ = f.do(http.MethodGet, base+"/panes/oscillator?format=svg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))

	rec, _ = f.do(http.MethodGet, base+"/panes/depth", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	v = f.view(http.MethodPut, base+"/symbol", `{"symbol":"DOGEUSDT"}`, http.StatusOK)
	assert.Equal(t, "Failed to load data from API: HTTP error! status: 404. Please try another symbol or try again later.", v.Status.Error)
	assert.Zero(t, v.Candles)

	rec, _ = f.do(http.MethodPost, base+"/refresh", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	v = f.view(http.MethodDelete, base+"/error", "", http.StatusOK)
	assert.Empty(t, v.Status.Error)

	rec, _ = f.do(http.MethodGet, base+"/panes/price", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	v = f.view(http.MethodPut, base+"/symbol", `{"symbol":"ETHUSDT"}`, http.StatusOK)
	assert.Empty(t, v.Status.Error)
	assert.Equal(t, 30, v.Candles)

	v = f.view(http.MethodPut, base+"/size", `{"width":1000,"height":500}`, http.StatusOK)
	require.Len(t, v.Panes, 3)
	assert.Equal(t, 1000.0, v.Panes[0].Width)
	assert.Equal(t, 225.0, v.Panes[0].Height)
	rec, _ = f.do(http.MethodPut, base+"/size", `{"width":10,"height":500}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, env := f.do(http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.Status)

	rec, _ = f.do(http.MethodGet, "/api/sessions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionLimits(t *testing.T) {
	f := newFixture(t, 1, ratelimit.New(1, 0))

	v := f.view(http.MethodPost, "/api/sessions", `{"symbol":"ETHUSDT"}`, http.StatusCreated)
	assert.Equal(t, 30, v.Candles)
	require.Len(t, v.Panes, 3)
	assert.Equal(t, 1200.0, v.Panes[0].Width)

	rec, env := f.do(http.MethodPost, "/api/sessions", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, http.StatusTooManyRequests, env.Status)

	target := "/api/sessions/" + v.ID + "/panes/volume"
	rec, _ = f.do(http.MethodGet, target, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(http.MethodGet, target, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAddRectangleCornerBounds(t *testing.T) {
	f := newFixture(t, 0, nil)
	v := f.view(http.MethodPost, "/api/sessions", `{"symbol":"BTCUSDT","width":800,"height":600}`, http.StatusCreated)
	target := "/api/sessions/" + v.ID + "/rectangles"

	v = f.view(http.MethodPost, target, `{"x_min":0,"x_max":1700036000000,"y_min":99,"y_max":104}`, http.StatusCreated)
	require.Len(t, v.Rectangles, 3)
	assert.Equal(t, int64(0), v.Rectangles[2].XMin)

	rec, env := f.do(http.MethodPost, target, `{"x_min":-1,"x_max":1700036000000,"y_min":99,"y_max":104}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errs []xhttp.ValidationError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_GTE", errs[0].Code)
}

func TestCreateSessionValidation(t *testing.T) {
	f := newFixture(t, 0, nil)
	rec, env := f.do(http.MethodPost, "/api/sessions", `{"width":50}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errs []xhttp.ValidationError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_GTE", errs[0].Code)
	assert.Empty(t, f.manager.IDs())
}
