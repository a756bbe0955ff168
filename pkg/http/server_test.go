package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rangeBody struct {
	Pane string  `json:"pane" default:"price" validate:"oneof=price volume oscillator"`
	From float64 `json:"from"`
	To   float64 `json:"to" validate:"gtfield=From"`
}

type testHandler struct{}

func (testHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/range", func(c echo.Context) error {
		var req rangeBody
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return BadRequestResponse(c, errs)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/sessions/:id", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundErrorf("session %s not found", c.Param("id")))
	})
	e.GET("/panic", func(c echo.Context) error {
		panic("boom")
	})
	e.GET("/image", func(c echo.Context) error {
		return BlobResponse(c, "image/svg+xml", []byte("<svg/>"))
	})
	e.GET("/opaque", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("db password in message"))
	})
}

func do(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	var resp APIResponse
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestServerRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(testHandler{}, WithMetrics(reg, "/metrics"))

	rec, resp := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", resp.Message)

	rec, resp = do(t, s, http.MethodPost, "/range", `{"from":2,"to":8}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "price", resp.Data.(map[string]interface{})["pane"])

	rec, resp = do(t, s, http.MethodPost, "/range", `{"pane":"depth","from":8,"to":2}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	errs := resp.Data.([]interface{})
	require.Len(t, errs, 2)

	rec, resp = do(t, s, http.MethodGet, "/sessions/abc", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	rec, _ = do(t, s, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `coinchart_http_requests_total{method="GET",route="/sessions/:id",status="404"} 1`)
}

func TestBlobAndOpaqueErrorResponses(t *testing.T) {
	s := NewServer(testHandler{})

	rec, _ := do(t, s, http.MethodGet, "/image", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
	assert.Equal(t, "<svg/>", rec.Body.String())

	rec, resp := do(t, s, http.MethodGet, "/opaque", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Something went wrong", resp.Data)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestValidateStruct(t *testing.T) {
	req := rangeBody{From: 1, To: 5}
	assert.Nil(t, ValidateStruct(context.Background(), &req))
	assert.Equal(t, "price", req.Pane)

	bad := rangeBody{Pane: "price", From: 5, To: 1}
	errs := ValidateStruct(context.Background(), &bad)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_GTFIELD", errs[0].Code)
	assert.Equal(t, "To must be greater than From", errs[0].Message)
}

func TestServerCORSPreflight(t *testing.T) {
	s := NewServer(testHandler{})
	req := httptest.NewRequest(http.MethodOptions, "/range", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPut)
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))
}
