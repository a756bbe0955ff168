// Package surface is the chart host: panes with a logical time scale, an
// auto-scaled price scale, series data, overlay layers and PNG/SVG rendering
// through go-chart.
package surface

import (
	"errors"
	"io"
	"math"
	"sort"
	"sync"

	"CoinChart/internal/chart/projector"
	"CoinChart/internal/chart/series"
	"CoinChart/internal/domain/models"
	domrepo "CoinChart/internal/domain/repository"
)

var (
	ErrNoData      = errors.New("pane has no data")
	ErrPaneRemoved = errors.New("pane removed")
)

type kind int

const (
	kindCandles kind = iota
	kindVolume
	kindLines
)

type line struct {
	field  string
	color  string
	points []series.LinePoint
}

// Pane is one chart pane. All methods are safe for concurrent use; listeners
// are invoked after the pane lock is released, on the calling goroutine.
type Pane struct {
	mu sync.Mutex

	id            models.PaneID
	theme         series.Theme
	width, height float64

	kind    kind
	times   []int64
	candles []series.CandlePoint
	volume  []series.ValuePoint
	lines   []line
	markers []models.Marker

	rng       models.LogicalRange
	hasRange  bool
	crosshair *models.CrosshairEvent

	ready       chan struct{}
	readyClosed bool

	rangeSubs     map[int]func(models.LogicalRange)
	crosshairSubs map[int]func(models.CrosshairEvent)
	nextSub       int
	layers        []*layer

	removed bool
}

var (
	_ domrepo.Pane           = (*Pane)(nil)
	_ domrepo.PriceScaler    = (*Pane)(nil)
	_ domrepo.LayoutSignaler = (*Pane)(nil)
)

// NewPane creates an empty pane of the given size.
func NewPane(id models.PaneID, width, height float64, theme series.Theme) *Pane {
	return &Pane{
		id:            id,
		theme:         theme,
		width:         width,
		height:        height,
		ready:         make(chan struct{}),
		rangeSubs:     map[int]func(models.LogicalRange){},
		crosshairSubs: map[int]func(models.CrosshairEvent){},
	}
}

func (p *Pane) ID() models.PaneID { return p.id }

func (p *Pane) TimeScale() domrepo.TimeScale { return p }

func (p *Pane) Width() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width
}

func (p *Pane) Height() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}

// LayoutReady reports whether the pane has data and a drawable size.
func (p *Pane) LayoutReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layoutReadyLocked()
}

// LayoutReadyC returns a channel closed once the current data is laid out.
// Every data change hands out a fresh channel.
func (p *Pane) LayoutReadyC() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *Pane) layoutReadyLocked() bool {
	return !p.removed && len(p.times) > 0 && p.width > 0 && p.height > 0
}

// relayoutLocked re-arms the ready channel on data changes or lost layout and
// closes it when the pane can be laid out.
func (p *Pane) relayoutLocked(dataChanged bool) {
	if p.readyClosed && (dataChanged || !p.layoutReadyLocked()) {
		p.ready = make(chan struct{})
		p.readyClosed = false
	}
	if !p.readyClosed && p.layoutReadyLocked() {
		close(p.ready)
		p.readyClosed = true
	}
}

// SetCandles makes this a candlestick pane.
func (p *Pane) SetCandles(candles []models.Candle) {
	sorted := models.SortedByTime(candles)
	p.mu.Lock()
	p.kind = kindCandles
	p.candles = series.Candles(sorted)
	p.setTimesLocked(sorted)
	p.mu.Unlock()
}

// SetVolume makes this a volume histogram pane.
func (p *Pane) SetVolume(candles []models.Candle) {
	sorted := models.SortedByTime(candles)
	p.mu.Lock()
	p.kind = kindVolume
	p.volume = series.Volume(sorted)
	p.setTimesLocked(sorted)
	p.mu.Unlock()
}

// SetOscillators makes this a line pane with one line per field.
func (p *Pane) SetOscillators(candles []models.Candle, fields []string) {
	sorted := models.SortedByTime(candles)
	lines := make([]line, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, line{field: f, color: series.OscillatorColor(f), points: series.Oscillator(sorted, f)})
	}
	p.mu.Lock()
	p.kind = kindLines
	p.lines = lines
	p.setTimesLocked(sorted)
	p.mu.Unlock()
}

// setTimesLocked replaces the time axis and fits the content.
func (p *Pane) setTimesLocked(sorted []models.Candle) {
	p.times = make([]int64, len(sorted))
	for i, c := range sorted {
		p.times[i] = c.Time
	}
	p.markers = nil
	p.hasRange = len(p.times) > 0
	p.rng = fitRange(len(p.times))
	p.relayoutLocked(true)
}

// fitRange shows every bar. A single bar gets half a bar of room on each side.
func fitRange(n int) models.LogicalRange {
	if n <= 1 {
		return models.LogicalRange{From: -0.5, To: 0.5}
	}
	return models.LogicalRange{From: 0, To: float64(n - 1)}
}

func (p *Pane) SetMarkers(markers []models.Marker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markers = append([]models.Marker(nil), markers...)
}

func (p *Pane) Markers() []models.Marker {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Marker(nil), p.markers...)
}

// Resize changes the pane size. Non-positive sizes leave the pane not ready.
func (p *Pane) Resize(width, height float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width, p.height = width, height
	p.relayoutLocked(false)
}

// TimeToCoordinate maps t onto the pane width through the visible logical
// range. Times between two bars are interpolated; times outside the dataset
// are not representable.
func (p *Pane) TimeToCoordinate(t int64) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.layoutReadyLocked() || !p.hasRange {
		return 0, false
	}
	idx, ok := p.logicalIndexLocked(t)
	if !ok {
		return 0, false
	}
	return (idx - p.rng.From) / p.rng.Span() * p.width, true
}

func (p *Pane) logicalIndexLocked(t int64) (float64, bool) {
	n := len(p.times)
	if n == 0 || t < p.times[0] || t > p.times[n-1] {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return p.times[i] >= t })
	if p.times[i] == t {
		return float64(i), true
	}
	prev, next := p.times[i-1], p.times[i]
	return float64(i-1) + float64(t-prev)/float64(next-prev), true
}

func (p *Pane) VisibleLogicalRange() (models.LogicalRange, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng, p.hasRange
}

// SetVisibleLogicalRange applies r and notifies range listeners, whether the
// change came from a gesture or from code.
func (p *Pane) SetVisibleLogicalRange(r models.LogicalRange) {
	if !r.Valid() {
		return
	}
	p.mu.Lock()
	if p.removed {
		p.mu.Unlock()
		return
	}
	p.rng = r
	p.hasRange = true
	subs := make([]func(models.LogicalRange), 0, len(p.rangeSubs))
	for _, id := range sortedKeys(p.rangeSubs) {
		subs = append(subs, p.rangeSubs[id])
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(r)
	}
}

func (p *Pane) SubscribeVisibleLogicalRangeChange(fn func(models.LogicalRange)) domrepo.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.rangeSubs[id] = fn
	return domrepo.SubscriptionFunc(func() {
		p.mu.Lock()
		delete(p.rangeSubs, id)
		p.mu.Unlock()
	})
}

func (p *Pane) SubscribeCrosshairMove(fn func(models.CrosshairEvent)) domrepo.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.crosshairSubs[id] = fn
	return domrepo.SubscriptionFunc(func() {
		p.mu.Lock()
		delete(p.crosshairSubs, id)
		p.mu.Unlock()
	})
}

// MoveCrosshair records a pointer position in pane pixels and notifies
// crosshair listeners.
func (p *Pane) MoveCrosshair(x, y float64) {
	p.mu.Lock()
	if p.removed {
		p.mu.Unlock()
		return
	}
	ev := models.CrosshairEvent{Pane: p.id, X: x, Y: y}
	p.crosshair = &ev
	subs := make([]func(models.CrosshairEvent), 0, len(p.crosshairSubs))
	for _, id := range sortedKeys(p.crosshairSubs) {
		subs = append(subs, p.crosshairSubs[id])
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// PriceToCoordinate maps a value onto the pane height using the auto-scaled
// domain of the visible bars, margins included.
func (p *Pane) PriceToCoordinate(v float64) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.layoutReadyLocked() {
		return 0, false
	}
	domain, ok := p.scaleDomainLocked()
	if !ok {
		return 0, false
	}
	return projector.PriceToY(v, domain, p.height)
}

// scaleDomainLocked returns the value domain of the visible bars widened by the
// theme margins.
func (p *Pane) scaleDomainLocked() (models.PriceRange, bool) {
	lo, hi := p.visibleIndexesLocked()
	if lo > hi {
		return models.PriceRange{}, false
	}
	vmin, vmax := math.Inf(1), math.Inf(-1)
	switch p.kind {
	case kindCandles:
		for _, c := range p.candles[lo : hi+1] {
			vmin = math.Min(vmin, c.Low)
			vmax = math.Max(vmax, c.High)
		}
	case kindVolume:
		vmin = 0
		for _, v := range p.volume[lo : hi+1] {
			vmax = math.Max(vmax, v.Value)
		}
	case kindLines:
		for _, l := range p.lines {
			for _, pt := range l.points {
				if pt.Index >= lo && pt.Index <= hi {
					vmin = math.Min(vmin, pt.Value)
					vmax = math.Max(vmax, pt.Value)
				}
			}
		}
	}
	if math.IsInf(vmin, 0) || math.IsInf(vmax, 0) {
		return models.PriceRange{}, false
	}
	if vmax <= vmin {
		pad := math.Max(math.Abs(vmin)*0.01, 1)
		vmin, vmax = vmin-pad, vmax+pad
	}
	return withMargins(models.PriceRange{Min: vmin, Max: vmax}, p.theme.MarginTop, p.theme.MarginBottom), true
}

// withMargins widens r so that r itself fills the pane minus top and bottom
// fractions.
func withMargins(r models.PriceRange, top, bottom float64) models.PriceRange {
	inner := 1 - top - bottom
	if inner <= 0 {
		return r
	}
	span := (r.Max - r.Min) / inner
	return models.PriceRange{Min: r.Min - span*bottom, Max: r.Max + span*top}
}

// visibleIndexesLocked returns the bar indexes inside the visible range,
// clamped to the dataset. lo > hi means no bar is visible.
func (p *Pane) visibleIndexesLocked() (int, int) {
	n := len(p.times)
	if n == 0 || !p.hasRange {
		return 0, -1
	}
	lo := int(math.Max(0, math.Ceil(p.rng.From)))
	hi := int(math.Min(float64(n-1), math.Floor(p.rng.To)))
	return lo, hi
}

// AttachOverlay returns a new overlay layer drawn above this pane.
func (p *Pane) AttachOverlay() domrepo.OverlayLayer {
	l := &layer{pane: p}
	p.mu.Lock()
	p.layers = append(p.layers, l)
	p.mu.Unlock()
	return l
}

func (p *Pane) detach(l *layer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, cur := range p.layers {
		if cur == l {
			p.layers = append(p.layers[:i], p.layers[i+1:]...)
			return
		}
	}
}

// Remove drops all listeners and layers. The pane is unusable afterwards.
func (p *Pane) Remove() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = true
	p.rangeSubs = map[int]func(models.LogicalRange){}
	p.crosshairSubs = map[int]func(models.CrosshairEvent){}
	p.layers = nil
}

// Render draws the pane in format ("png" or "svg") to w.
func (p *Pane) Render(format string, w io.Writer) error {
	p.mu.Lock()
	snap, err := p.snapshotLocked()
	p.mu.Unlock()
	if err != nil {
		return err
	}
	return renderSnapshot(snap, format, w)
}

type layer struct {
	mu       sync.Mutex
	pane     *Pane
	elements []domrepo.OverlayElement
	released bool
}

func (l *layer) Replace(elements []domrepo.OverlayElement) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return
	}
	l.elements = append([]domrepo.OverlayElement(nil), elements...)
}

func (l *layer) Elements() []domrepo.OverlayElement {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domrepo.OverlayElement(nil), l.elements...)
}

func (l *layer) Release() {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	l.elements = nil
	l.mu.Unlock()
	l.pane.detach(l)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
