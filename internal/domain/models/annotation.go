package models

// BorderStyle is the line style of a rectangle border.
type BorderStyle string

const (
	BorderSolid  BorderStyle = "solid"
	BorderDotted BorderStyle = "dotted"
	BorderDashed BorderStyle = "dashed"
)

// RectangleStyle describes how a rectangle is painted.
type RectangleStyle struct {
	FillColor     string      `json:"fill_color" default:"#2962FF" validate:"hexcolor"`
	FillOpacity   float64     `json:"fill_opacity" default:"0.2" validate:"gte=0,lte=1"`
	BorderColor   string      `json:"border_color" default:"#2962FF" validate:"hexcolor"`
	BorderWidth   float64     `json:"border_width" default:"1" validate:"gte=0,lte=20"`
	BorderStyle   BorderStyle `json:"border_style" default:"solid" validate:"oneof=solid dotted dashed"`
	BorderVisible *bool       `json:"border_visible,omitempty"`
}

// ShowBorder reports whether the border is drawn. An unset flag means visible.
func (s RectangleStyle) ShowBorder() bool {
	return s.BorderVisible == nil || *s.BorderVisible
}

// Rectangle is a time/price bounding box drawn on the price pane overlay.
// Corners may be given in any order.
type Rectangle struct {
	XMin  int64          `json:"x_min" validate:"gte=0"`
	XMax  int64          `json:"x_max" validate:"gte=0"`
	YMin  float64        `json:"y_min"`
	YMax  float64        `json:"y_max"`
	Style RectangleStyle `json:"style"`
}

// MarkerPosition places a marker relative to its bar.
type MarkerPosition string

const (
	BelowBar MarkerPosition = "belowBar"
	AboveBar MarkerPosition = "aboveBar"
)

// MarkerShape is the glyph drawn for a marker.
type MarkerShape string

const (
	ArrowUp   MarkerShape = "arrowUp"
	ArrowDown MarkerShape = "arrowDown"
)

// Marker is a per-bar signal glyph derived from candle flags.
type Marker struct {
	Time     int64          `json:"time"`
	Position MarkerPosition `json:"position"`
	Color    string         `json:"color"`
	Shape    MarkerShape    `json:"shape"`
	Text     string         `json:"text"`
	Size     int            `json:"size"`
}
