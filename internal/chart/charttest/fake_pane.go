// Package charttest provides an in-memory pane for tests of chart components.
package charttest

import (
	"io"
	"sort"
	"sync"

	"CoinChart/internal/domain/models"
	domrepo "CoinChart/internal/domain/repository"
)

// FakePane is a deterministic pane. Times are mapped to x by bar index over
// the visible logical range, like a real time scale. Every SetVisibleLogicalRange
// notifies listeners, including programmatic ones, to expose feedback loops.
type FakePane struct {
	mu sync.Mutex

	id            models.PaneID
	width, height float64
	times         []int64
	rng           models.LogicalRange
	hasRange      bool
	ready         bool

	rangeSubs     map[int]func(models.LogicalRange)
	crosshairSubs map[int]func(models.CrosshairEvent)
	nextSub       int

	SetRangeCalls []models.LogicalRange
	Overlays      []*FakeLayer
	markers       []models.Marker
	Removed       bool

	// PriceScale, when set, is returned by PriceToCoordinate via HostScaled.
	PriceScale func(p float64) (float64, bool)
}

// NewFakePane creates a ready pane of the given size whose bars sit at times.
func NewFakePane(id models.PaneID, width, height float64, times []int64) *FakePane {
	p := &FakePane{
		id:            id,
		width:         width,
		height:        height,
		rangeSubs:     map[int]func(models.LogicalRange){},
		crosshairSubs: map[int]func(models.CrosshairEvent){},
	}
	p.setTimes(times)
	return p
}

func (p *FakePane) setTimes(times []int64) {
	p.times = append([]int64(nil), times...)
	if len(times) > 0 {
		p.rng = models.LogicalRange{From: 0, To: float64(len(times) - 1)}
		p.hasRange = len(times) > 1
		p.ready = p.hasRange
	}
}

// SetReady overrides layout readiness.
func (p *FakePane) SetReady(ready bool) {
	p.mu.Lock()
	p.ready = ready
	p.mu.Unlock()
}

func (p *FakePane) ID() models.PaneID { return p.id }
func (p *FakePane) TimeScale() domrepo.TimeScale { return p }
func (p *FakePane) Height() float64 { return p.height }
func (p *FakePane) Width() float64 { return p.width }
func (p *FakePane) LayoutReady() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.ready }
func (p *FakePane) Markers() []models.Marker { return p.markers }
func (p *FakePane) SetMarkers(markers []models.Marker) { p.markers = markers }
func (p *FakePane) Resize(width, height float64) { p.width, p.height = width, height }
func (p *FakePane) Remove() { p.Removed = true }
func (p *FakePane) Render(string, io.Writer) error { return nil }

func (p *FakePane) SetCandles(candles []models.Candle) {
	times := make([]int64, len(candles))
	for i, c := range candles {
		times[i] = c.Time
	}
	p.mu.Lock()
	p.setTimes(times)
	p.mu.Unlock()
}

func (p *FakePane) SetVolume(candles []models.Candle) { p.SetCandles(candles) }
func (p *FakePane) SetOscillators(candles []models.Candle, _ []string) { p.SetCandles(candles) }

func (p *FakePane) TimeToCoordinate(t int64) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := sort.Search(len(p.times), func(i int) bool { return p.times[i] >= t })
	if i >= len(p.times) || p.times[i] != t || !p.hasRange {
		return 0, false
	}
	return (float64(i) - p.rng.From) / p.rng.Span() * p.width, true
}

func (p *FakePane) VisibleLogicalRange() (models.LogicalRange, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng, p.hasRange
}

func (p *FakePane) SetVisibleLogicalRange(r models.LogicalRange) {
	p.mu.Lock()
	p.SetRangeCalls = append(p.SetRangeCalls, r)
	p.mu.Unlock()
	p.applyRange(r)
}

// UserSetRange simulates a pan/zoom gesture on this pane.
func (p *FakePane) UserSetRange(r models.LogicalRange) { p.applyRange(r) }

func (p *FakePane) applyRange(r models.LogicalRange) {
	p.mu.Lock()
	p.rng = r
	p.hasRange = true
	subs := make([]func(models.LogicalRange), 0, len(p.rangeSubs))
	for _, fn := range p.rangeSubs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(r)
	}
}

func (p *FakePane) SubscribeVisibleLogicalRangeChange(fn func(models.LogicalRange)) domrepo.Subscription {
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

func (p *FakePane) SubscribeCrosshairMove(fn func(models.CrosshairEvent)) domrepo.Subscription {
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

// RangeListeners returns the number of live range subscriptions.
func (p *FakePane) RangeListeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rangeSubs)
}

// CrosshairListeners returns the number of live crosshair subscriptions.
func (p *FakePane) CrosshairListeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.crosshairSubs)
}

func (p *FakePane) MoveCrosshair(x, y float64) {
	p.mu.Lock()
	subs := make([]func(models.CrosshairEvent), 0, len(p.crosshairSubs))
	for _, fn := range p.crosshairSubs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	ev := models.CrosshairEvent{Pane: p.id, X: x, Y: y}
	for _, fn := range subs {
		fn(ev)
	}
}

func (p *FakePane) AttachOverlay() domrepo.OverlayLayer {
	l := &FakeLayer{}
	p.Overlays = append(p.Overlays, l)
	return l
}

// HostScaled wraps the pane so it also implements PriceScaler.
func (p *FakePane) HostScaled() domrepo.Surface { return hostScaled{p} }

type hostScaled struct{ *FakePane }

func (h hostScaled) PriceToCoordinate(v float64) (float64, bool) {
	if h.PriceScale == nil {
		return 0, false
	}
	return h.PriceScale(v)
}

// FakeLayer records overlay replacements.
type FakeLayer struct {
	mu       sync.Mutex
	elements []domrepo.OverlayElement
	Replaces int
	Released bool
}

func (l *FakeLayer) Replace(elements []domrepo.OverlayElement) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.elements = elements
	l.Replaces++
}

func (l *FakeLayer) Elements() []domrepo.OverlayElement {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.elements
}

func (l *FakeLayer) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Released = true
	l.elements = nil
}

// FakeFactory hands out FakePanes and remembers them.
type FakeFactory struct {
	Panes map[models.PaneID]*FakePane
}

func NewFakeFactory() *FakeFactory {
	return &FakeFactory{Panes: map[models.PaneID]*FakePane{}}
}

func (f *FakeFactory) Create(id models.PaneID, width, height float64) (domrepo.Pane, error) {
	p := NewFakePane(id, width, height, nil)
	f.Panes[id] = p
	return p, nil
}
