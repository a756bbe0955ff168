package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"CoinChart/internal/domain/models"
	"CoinChart/internal/usecase"
	xhttp "CoinChart/pkg/http"
	xlogger "CoinChart/pkg/logger"
)

const (
	wsReadTimeout  = 90 * time.Second
	wsPingInterval = 45 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsOutboxSize   = 64
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

// Outbound websocket message types.
const (
	msgView  = "view"
	msgError = "error"
)

type outbound struct {
	Type   string                  `json:"type"`
	View   *usecase.View           `json:"view,omitempty"`
	Errors []xhttp.ValidationError `json:"errors,omitempty"`
}

// GestureHandler drives a session from websocket messages and answers each
// one with a view snapshot.
type GestureHandler struct {
	logger  *xlogger.Logger
	manager *usecase.SessionManager
}

func NewGestureHandler(logger *xlogger.Logger, manager *usecase.SessionManager) *GestureHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &GestureHandler{logger: logger, manager: manager}
}

func (h *GestureHandler) Serve(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.manager.Get(req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(h.logger, err))
	}

	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.String("session", req.ID), xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	logger := h.logger.With(xlogger.String("session", req.ID))
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request().Context()))
	defer cancel()

	out := make(chan outbound, wsOutboxSize)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writeLoop(ctx, conn, out, logger)
	}()

	send := func(m outbound) {
		select {
		case out <- m:
		case <-ctx.Done():
		}
	}
	view := s.View()
	send(outbound{Type: msgView, View: &view})

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket closed", xlogger.Error(err))
			}
			break
		}
		if mt != websocket.TextMessage {
			continue
		}
		var msg models.GestureMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			send(outbound{Type: msgError, Errors: []xhttp.ValidationError{{Code: "ERR_BAD_MESSAGE", Message: err.Error()}}})
			continue
		}
		if verr := xhttp.ValidateStruct(ctx, &msg); verr != nil {
			send(outbound{Type: msgError, Errors: verr})
			continue
		}

		if msg.Type == models.GestureSelect {
			// Selections run concurrently so a newer one can overtake an
			// in-flight fetch; the overtaken one produces no snapshot.
			wg.Add(1)
			go func(symbol string) {
				defer wg.Done()
				err := s.SelectSymbol(ctx, symbol)
				if errors.Is(err, usecase.ErrStaleResult) {
					return
				}
				if isRequestError(err) {
					send(errorMessage(err))
					return
				}
				v := s.View()
				send(outbound{Type: msgView, View: &v})
			}(msg.Symbol)
			continue
		}

		if err := applyGesture(s, msg); err != nil {
			send(errorMessage(err))
			continue
		}
		v := s.View()
		send(outbound{Type: msgView, View: &v})
	}

	cancel()
	wg.Wait()
	return nil
}

func applyGesture(s *usecase.Session, msg models.GestureMessage) error {
	pane := models.PaneID(msg.Pane)
	switch msg.Type {
	case models.GestureRange:
		return s.Pan(pane, models.LogicalRange{From: msg.From, To: msg.To})
	case models.GestureCrosshair:
		return s.Crosshair(pane, msg.X, msg.Y)
	case models.GestureRefresh:
		s.RefreshMarkers()
		s.RefreshBoxAnnotations()
	}
	return nil
}

func errorMessage(err error) outbound {
	return outbound{Type: msgError, Errors: []xhttp.ValidationError{{Code: "ERR_GESTURE", Message: err.Error()}}}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan outbound, logger *xlogger.Logger) {
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case m := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(m); err != nil {
				logger.Debug("websocket write failed", xlogger.Error(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}
