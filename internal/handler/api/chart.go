package api

import (
	"bytes"
	"errors"

	"github.com/labstack/echo/v4"

	"CoinChart/internal/chart/annotation"
	"CoinChart/internal/chart/surface"
	"CoinChart/internal/domain/models"
	domrepo "CoinChart/internal/domain/repository"
	"CoinChart/internal/service/ratelimit"
	"CoinChart/internal/usecase"
	xhttp "CoinChart/pkg/http"
	xlogger "CoinChart/pkg/logger"
)

// ChartHandler exposes chart sessions over HTTP.
type ChartHandler struct {
	logger   *xlogger.Logger
	manager  *usecase.SessionManager
	candles  domrepo.CandleSource
	limiter  *ratelimit.Limiter
	gestures *GestureHandler
}

func NewChartHandler(logger *xlogger.Logger, manager *usecase.SessionManager, candles domrepo.CandleSource, limiter *ratelimit.Limiter) *ChartHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ChartHandler{
		logger:   logger,
		manager:  manager,
		candles:  candles,
		limiter:  limiter,
		gestures: NewGestureHandler(logger, manager),
	}
}

func (h *ChartHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/symbols", h.Symbols)
	g.GET("/candles/:symbol", h.Candles)
	g.GET("/candles/:symbol/annotations", h.Annotations)

	s := g.Group("/sessions")
	s.POST("", h.CreateSession)
	s.GET("/:id", h.GetSession)
	s.DELETE("/:id", h.DeleteSession)
	s.PUT("/:id/symbol", h.SelectSymbol)
	s.PUT("/:id/range", h.SetRange)
	s.POST("/:id/crosshair", h.Crosshair)
	s.POST("/:id/rectangles", h.AddRectangle)
	s.DELETE("/:id/rectangles", h.ClearRectangles)
	s.POST("/:id/refresh", h.Refresh)
	s.PUT("/:id/size", h.Resize)
	s.DELETE("/:id/error", h.DismissError)
	s.GET("/:id/panes/:pane", h.RenderPane)

	e.GET("/ws/sessions/:id", h.gestures.Serve)
}

func (h *ChartHandler) Symbols(c echo.Context) error {
	req := &models.SymbolsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	catalog := h.manager.Catalog()
	catalog.Refresh(c.Request().Context())
	rows := catalog.Search(req.Query)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ChartHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	candles, err := h.candles.GetCandles(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("candles fetch failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError(err.Error()).WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.ListResponse(c, candles, int64(len(candles)))
}

type annotationsResponse struct {
	Symbol     string             `json:"symbol"`
	Markers    []models.Marker    `json:"markers"`
	Rectangles []models.Rectangle `json:"rectangles"`
}

func (h *ChartHandler) Annotations(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	candles, err := h.candles.GetCandles(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("candles fetch failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError(err.Error()).WithError(err))
	}
	return xhttp.SuccessResponse(c, annotationsResponse{
		Symbol:     req.Symbol,
		Markers:    annotation.BuildMarkers(candles),
		Rectangles: annotation.BuildRectangles(candles),
	})
}

// CreateSession answers 201 with the session view even when the first load
// failed; the failure is reported in the view status.
func (h *ChartHandler) CreateSession(c echo.Context) error {
	req := &models.CreateSessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.manager.Create(c.Request().Context(), req.Symbol, float64(req.Width), float64(req.Height))
	if s == nil {
		return h.fail(c, err)
	}
	if err != nil {
		h.logger.Warn("session created with errors", xlogger.String("session", s.ID()), xlogger.Error(err))
	}
	return xhttp.CreatedResponse(c, s.View())
}

func (h *ChartHandler) GetSession(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.manager.Get(req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *ChartHandler) DeleteSession(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.manager.Delete(req.ID); err != nil {
		return h.fail(c, err)
	}
	if h.limiter != nil {
		h.limiter.Forget(req.ID)
	}
	return xhttp.NoContentResponse(c)
}

// SelectSymbol answers 409 when a newer selection overtook this one.
func (h *ChartHandler) SelectSymbol(c echo.Context) error {
	req := &models.SelectSymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.manager.Get(req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	if err := s.SelectSymbol(c.Request().Context(), req.Symbol); isRequestError(err) {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *ChartHandler) SetRange(c echo.Context) error {
	req := &models.RangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.manager.Get(req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	if err := s.Pan(models.PaneID(req.Pane), models.LogicalRange{From: req.From, To: req.To}); err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *ChartHandler) Crosshair(c echo.Context) error {
	req := &models.CrosshairRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.manager.Get(req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	if err := s.Crosshair(models.PaneID(req.Pane), req.X, req.Y); err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *ChartHandler) AddRectangle(c echo.Context) error {
	req := &models.AddRectangleRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.manager.Get(req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	if err := s.AddRectangle(req.Rectangle); err != nil {
		return h.fail(c, err)
	}
	return xhttp.CreatedResponse(c, s.View())
}

func (h *ChartHandler) ClearRectangles(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.manager.Get(req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	if err := s.ClearRectangles(); err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *ChartHandler) Refresh(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.manager.Get(req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	if !s.RefreshMarkers() || !s.RefreshBoxAnnotations() {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("session has no data to annotate"))
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *ChartHandler) Resize(c echo.Context) error {
	req := &models.ResizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.manager.Get(req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	if err := s.Resize(float64(req.Width), float64(req.Height)); err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *ChartHandler) DismissError(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.manager.Get(req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	s.DismissError()
	return xhttp.SuccessResponse(c, s.View())
}

func (h *ChartHandler) RenderPane(c echo.Context) error {
	req := &models.RenderRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.limiter != nil && !h.limiter.Allow(req.ID) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("render rate exceeded"))
	}
	s, err := h.manager.Get(req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	var buf bytes.Buffer
	if err := s.Render(models.PaneID(req.Pane), req.Format, &buf); err != nil {
		return h.fail(c, err)
	}
	contentType := "image/png"
	if req.Format == surface.FormatSVG {
		contentType = "image/svg+xml"
	}
	return xhttp.BlobResponse(c, contentType, buf.Bytes())
}

func (h *ChartHandler) fail(c echo.Context, err error) error {
	return xhttp.AppErrorResponse(c, toAppError(h.logger, err))
}

// isRequestError reports whether a SelectSymbol error belongs in the response
// code. Fetch and layout failures are reported in the view status instead.
func isRequestError(err error) bool {
	return errors.Is(err, usecase.ErrStaleResult) || errors.Is(err, usecase.ErrSessionClosed)
}

func toAppError(logger *xlogger.Logger, err error) *xhttp.AppError {
	msg := err.Error()
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, usecase.ErrSessionNotFound), errors.Is(err, usecase.ErrSessionClosed):
		appErr = xhttp.NotFoundError(msg)
	case errors.Is(err, usecase.ErrTooManySessions):
		appErr = xhttp.TooManyRequestsError(msg)
	case errors.Is(err, usecase.ErrStaleResult):
		appErr = xhttp.ConflictError(msg)
	case errors.Is(err, usecase.ErrUnknownPane), errors.Is(err, usecase.ErrInvalidRange):
		appErr = xhttp.BadRequestError(msg)
	case errors.Is(err, surface.ErrNoData):
		appErr = xhttp.NotFoundError(msg)
	default:
		logger.Error("chart request failed", xlogger.Error(err))
		appErr = xhttp.InternalError("Something went wrong")
	}
	return appErr.WithError(err)
}
