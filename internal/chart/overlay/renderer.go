// Package overlay draws rectangle annotations on a decorative layer above a pane.
package overlay

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"CoinChart/internal/chart/projector"
	"CoinChart/internal/domain/models"
	domrepo "CoinChart/internal/domain/repository"
	xlogger "CoinChart/pkg/logger"
)

// DefaultOpacity replaces a zero or negative fill opacity.
const DefaultOpacity = 0.2

// Renderer owns the active rectangle set of one pane and keeps the overlay
// layer in sync with the pane's view. Every redraw recomputes all boxes and
// replaces the layer content, so redundant redraws are harmless.
type Renderer struct {
	mu sync.Mutex

	surface    domrepo.Surface
	projector  *projector.Projector
	layer      domrepo.OverlayLayer
	subs       []domrepo.Subscription
	rects      []models.Rectangle
	priceRange *models.PriceRange
	elements   []domrepo.OverlayElement
	destroyed  bool

	projOpts []projector.Option
	logger   *xlogger.Logger
	metrics  domrepo.Metrics
}

type Option func(*Renderer)

func WithLogger(l *xlogger.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(r *Renderer) { r.metrics = m }
}

// WithProjectorOptions forwards options to the renderer's projector.
func WithProjectorOptions(opts ...projector.Option) Option {
	return func(r *Renderer) { r.projOpts = append(r.projOpts, opts...) }
}

// New attaches an overlay layer to surface and redraws it on every visible
// range change and crosshair move until Destroy is called.
func New(surface domrepo.Surface, opts ...Option) *Renderer {
	r := &Renderer{surface: surface}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = xlogger.Nop()
	}
	r.projector = projector.New(surface, r.projOpts...)
	r.layer = surface.AttachOverlay()
	r.subs = []domrepo.Subscription{
		surface.TimeScale().SubscribeVisibleLogicalRangeChange(func(models.LogicalRange) { r.Redraw() }),
		surface.SubscribeCrosshairMove(func(models.CrosshairEvent) { r.Redraw() }),
	}
	return r
}

// SetRectangles replaces the active set.
func (r *Renderer) SetRectangles(rects []models.Rectangle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rects = append([]models.Rectangle(nil), rects...)
	r.redrawLocked()
}

// AddRectangle appends one rectangle to the active set.
func (r *Renderer) AddRectangle(rect models.Rectangle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rects = append(r.rects, rect)
	r.redrawLocked()
}

// Clear removes every rectangle.
func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rects = nil
	r.redrawLocked()
}

// SetPriceRange sets the vertical domain used when the pane has no usable
// price scale of its own.
func (r *Renderer) SetPriceRange(min, max float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.priceRange = &models.PriceRange{Min: min, Max: max}
	r.redrawLocked()
}

// Rectangles returns a copy of the active set.
func (r *Renderer) Rectangles() []models.Rectangle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Rectangle(nil), r.rects...)
}

// Elements returns the boxes placed by the last redraw.
func (r *Renderer) Elements() []domrepo.OverlayElement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domrepo.OverlayElement(nil), r.elements...)
}

// Redraw recomputes every box from the current view.
func (r *Renderer) Redraw() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redrawLocked()
}

// Destroy detaches listeners and releases the layer. It is safe to call twice.
func (r *Renderer) Destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	subs := r.subs
	r.subs = nil
	r.rects = nil
	r.elements = nil
	r.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	r.layer.Release()
}

func (r *Renderer) redrawLocked() {
	if r.destroyed {
		return
	}
	elements := make([]domrepo.OverlayElement, 0, len(r.rects))
	skipped := 0
	for i, rect := range r.rects {
		el, ok := r.place(i, rect)
		if !ok {
			skipped++
			continue
		}
		elements = append(elements, el)
	}
	r.elements = elements
	r.layer.Replace(elements)

	if skipped > 0 {
		r.logger.Debug("overlay rectangles skipped",
			xlogger.String("pane", string(r.surface.ID())),
			xlogger.Int("skipped", skipped),
			xlogger.Int("drawn", len(elements)),
		)
	}
	if r.metrics != nil {
		r.metrics.RecordRedraw(string(r.surface.ID()), len(elements), skipped)
	}
}

// place projects all four corners of rect. Any failed projection drops the
// whole rectangle.
func (r *Renderer) place(i int, rect models.Rectangle) (domrepo.OverlayElement, bool) {
	x1, ok1 := r.projector.TimeToX(rect.XMin)
	x2, ok2 := r.projector.TimeToX(rect.XMax)
	if !ok1 || !ok2 {
		return domrepo.OverlayElement{}, false
	}

	domain := models.PriceRange{Min: math.Min(rect.YMin, rect.YMax), Max: math.Max(rect.YMin, rect.YMax)}
	if r.priceRange != nil {
		domain = *r.priceRange
	}
	y1, ok1 := r.projector.PriceToY(rect.YMin, domain)
	y2, ok2 := r.projector.PriceToY(rect.YMax, domain)
	if !ok1 || !ok2 {
		return domrepo.OverlayElement{}, false
	}

	left, right := math.Min(x1, x2), math.Max(x1, x2)
	top, bottom := math.Min(y1, y2), math.Max(y1, y2)

	el := domrepo.OverlayElement{
		Index:         i,
		Left:          left,
		Top:           top,
		Width:         right - left,
		Height:        bottom - top,
		Fill:          FillColor(rect.Style.FillColor, rect.Style.FillOpacity),
		BorderVisible: rect.Style.ShowBorder(),
		Label:         fmt.Sprintf("Box %d", i+1),
	}
	if el.BorderVisible {
		el.BorderColor = rect.Style.BorderColor
		el.BorderWidth = rect.Style.BorderWidth
		el.BorderStyle = rect.Style.BorderStyle
		if el.BorderStyle == "" {
			el.BorderStyle = models.BorderSolid
		}
	}
	return el, true
}

// FillColor encodes opacity as the alpha byte of color, giving #RRGGBBAA.
// Opacity at or below zero falls back to DefaultOpacity; above one it clamps.
func FillColor(color string, opacity float64) string {
	if math.IsNaN(opacity) || opacity <= 0 {
		opacity = DefaultOpacity
	}
	if opacity > 1 {
		opacity = 1
	}
	alpha := int(math.Round(opacity * 255))
	return fmt.Sprintf("#%s%02X", rgbHex(color), alpha)
}

// rgbHex returns the six RRGGBB digits of a #RGB, #RRGGBB or #RRGGBBAA color.
func rgbHex(color string) string {
	hex := strings.ToUpper(strings.TrimPrefix(color, "#"))
	switch len(hex) {
	case 3:
		return string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 8:
		return hex[:6]
	case 6:
		return hex
	default:
		return "000000"
	}
}
