package repository

import (
	"io"

	"CoinChart/internal/domain/models"
)

// Subscription is the handle returned by every Subscribe call.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() { f() }

// TimeScale is the horizontal axis of a pane.
type TimeScale interface {
	// TimeToCoordinate maps epoch millis to a pane x offset. ok is false when t
	// is outside the representable range or layout has not been computed.
	TimeToCoordinate(t int64) (x float64, ok bool)
	VisibleLogicalRange() (models.LogicalRange, bool)
	// SetVisibleLogicalRange applies a range programmatically. Hosts may notify
	// range listeners for programmatic changes too.
	SetVisibleLogicalRange(r models.LogicalRange)
	SubscribeVisibleLogicalRangeChange(fn func(models.LogicalRange)) Subscription
}

// PriceScaler is implemented by panes exposing their true price-to-pixel mapping.
type PriceScaler interface {
	PriceToCoordinate(p float64) (y float64, ok bool)
}

// LayoutSignaler is implemented by panes that announce layout readiness.
// The channel is closed once the current data has been laid out.
type LayoutSignaler interface {
	LayoutReadyC() <-chan struct{}
}

// OverlayElement is one positioned box of an overlay layer, in pane pixels.
type OverlayElement struct {
	Index         int                `json:"index"`
	Left          float64            `json:"left"`
	Top           float64            `json:"top"`
	Width         float64            `json:"width"`
	Height        float64            `json:"height"`
	Fill          string             `json:"fill"` // #RRGGBBAA
	BorderColor   string             `json:"border_color,omitempty"`
	BorderWidth   float64            `json:"border_width,omitempty"`
	BorderStyle   models.BorderStyle `json:"border_style,omitempty"`
	BorderVisible bool               `json:"border_visible"`
	Label         string             `json:"label"`
}

// OverlayLayer is a decorative layer above a pane; it never intercepts pointer input.
type OverlayLayer interface {
	Replace(elements []OverlayElement)
	Elements() []OverlayElement
	Release()
}

// Surface is the rendering surface of one pane as consumed by overlays and
// synchronization.
type Surface interface {
	ID() models.PaneID
	TimeScale() TimeScale
	Height() float64
	Width() float64
	LayoutReady() bool
	SubscribeCrosshairMove(fn func(models.CrosshairEvent)) Subscription
	AttachOverlay() OverlayLayer
}

// Pane is the full host pane: a surface plus its series and lifecycle.
type Pane interface {
	Surface
	SetCandles(candles []models.Candle)
	SetVolume(candles []models.Candle)
	SetOscillators(candles []models.Candle, fields []string)
	SetMarkers(markers []models.Marker)
	Markers() []models.Marker
	MoveCrosshair(x, y float64)
	Resize(width, height float64)
	Render(format string, w io.Writer) error
	Remove()
}

// PaneFactory creates panes; it plays the role of the host's create(pane).
type PaneFactory interface {
	Create(id models.PaneID, width, height float64) (Pane, error)
}
