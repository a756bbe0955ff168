package models

// Requests for chart HTTP endpoints. Defined in domain for consistency and reuse.

type SymbolsRequest struct {
	Query string `query:"q" json:"q" validate:"max=32"`
}

type CandlesRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=32"`
}

type CreateSessionRequest struct {
	Symbol string `json:"symbol" validate:"max=32"`
	Width  int    `json:"width" default:"1200" validate:"gte=200,lte=4000"`
	Height int    `json:"height" default:"800" validate:"gte=200,lte=4000"`
}

type SessionRequest struct {
	ID string `param:"id" json:"-" validate:"required,uuid"`
}

type SelectSymbolRequest struct {
	ID     string `param:"id" json:"-" validate:"required,uuid"`
	Symbol string `json:"symbol" validate:"required,max=32"`
}

type RangeRequest struct {
	ID   string  `param:"id" json:"-" validate:"required,uuid"`
	Pane string  `json:"pane" default:"price" validate:"oneof=price volume oscillator"`
	From float64 `json:"from"`
	To   float64 `json:"to" validate:"gtfield=From"`
}

type CrosshairRequest struct {
	ID   string  `param:"id" json:"-" validate:"required,uuid"`
	Pane string  `json:"pane" default:"price" validate:"oneof=price volume oscillator"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type AddRectangleRequest struct {
	ID        string `param:"id" json:"-" validate:"required,uuid"`
	Rectangle
}

type RenderRequest struct {
	ID     string `param:"id" json:"-" validate:"required,uuid"`
	Pane   string `param:"pane" json:"-" validate:"oneof=price volume oscillator"`
	Format string `query:"format" json:"-" default:"png" validate:"oneof=png svg"`
}

// Gesture message types carried by the session websocket.
const (
	GestureRange     = "range"
	GestureCrosshair = "crosshair"
	GestureSelect    = "select"
	GestureRefresh   = "refresh"
)

// GestureMessage is one inbound websocket message. Fields not used by Type
// are ignored.
type GestureMessage struct {
	Type   string  `json:"type" validate:"oneof=range crosshair select refresh"`
	Pane   string  `json:"pane" default:"price" validate:"oneof=price volume oscillator"`
	From   float64 `json:"from"`
	To     float64 `json:"to"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Symbol string  `json:"symbol" validate:"required_if=Type select,max=32"`
}

type ResizeRequest struct {
	ID     string `param:"id" json:"-" validate:"required,uuid"`
	Width  int    `json:"width" validate:"gte=200,lte=4000"`
	Height int    `json:"height" validate:"gte=200,lte=4000"`
}
