package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"CoinChart/internal/chart/annotation"
	"CoinChart/internal/chart/overlay"
	"CoinChart/internal/chart/projector"
	"CoinChart/internal/chart/rangesync"
	"CoinChart/internal/chart/series"
	"CoinChart/internal/domain/models"
	domrepo "CoinChart/internal/domain/repository"
	xlogger "CoinChart/pkg/logger"
)

var (
	ErrUnknownPane   = errors.New("unknown pane")
	ErrInvalidRange  = errors.New("invalid visible range")
	ErrSessionClosed = errors.New("session closed")
)

const (
	msgAddedBoxes     = "Added box annotations"
	msgRefreshedBoxes = "Refreshed box annotations"
)

// SessionDeps are the collaborators shared by every session.
type SessionDeps struct {
	Factory domrepo.PaneFactory
	Source  domrepo.CandleSource
	Waiter  LayoutWaiter
	Logger  *xlogger.Logger
	Metrics domrepo.Metrics
}

// Status is the user-facing state line of a session.
type Status struct {
	Symbol      string `json:"symbol"`
	Loading     bool   `json:"loading"`
	Error       string `json:"error,omitempty"`
	Debug       string `json:"debug,omitempty"`
	LayoutError string `json:"layout_error,omitempty"`
}

// PaneView is the read model of one pane.
type PaneView struct {
	ID     models.PaneID        `json:"id"`
	Width  float64              `json:"width"`
	Height float64              `json:"height"`
	Ready  bool                 `json:"ready"`
	Range  *models.LogicalRange `json:"range,omitempty"`
}

// View is a consistent snapshot of a session.
type View struct {
	ID         string                   `json:"id"`
	Status     Status                   `json:"status"`
	Candles    int                      `json:"candles"`
	Buys       int                      `json:"buys"`
	Sells      int                      `json:"sells"`
	Panes      []PaneView               `json:"panes"`
	Markers    []models.Marker          `json:"markers"`
	Rectangles []models.Rectangle       `json:"rectangles"`
	Overlay    []domrepo.OverlayElement `json:"overlay"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

// Session is one chart instance: three synchronized panes, a rectangle overlay
// on the price pane and the dataset of the selected symbol. Pane mutations are
// serialized by the session lock, so range synchronization always runs on a
// single goroutine at a time.
type Session struct {
	mu sync.Mutex

	id      string
	panes   map[models.PaneID]domrepo.Pane
	sync    *rangesync.Synchronizer
	overlay *overlay.Renderer
	loader  *Loader
	waiter  LayoutWaiter

	width, height float64
	dataset       models.Dataset
	dataGen       uint64
	status        Status
	updatedAt     time.Time
	closed        bool

	logger  *xlogger.Logger
	metrics domrepo.Metrics
}

// NewSession creates the panes of a chart of the given total size.
func NewSession(id string, width, height float64, deps SessionDeps) (*Session, error) {
	logger := deps.Logger
	if logger == nil {
		logger = xlogger.Nop()
	}
	logger = logger.With(xlogger.String("session", id))

	s := &Session{
		id:        id,
		panes:     make(map[models.PaneID]domrepo.Pane, len(models.AllPanes)),
		sync:      rangesync.New(rangesync.WithLogger(logger), rangesync.WithMetrics(deps.Metrics)),
		loader:    NewLoader(deps.Source, logger, deps.Metrics),
		waiter:    deps.Waiter,
		width:     width,
		height:    height,
		updatedAt: time.Now(),
		logger:    logger,
		metrics:   deps.Metrics,
	}
	for _, pid := range models.AllPanes {
		p, err := deps.Factory.Create(pid, width, series.PaneHeight(pid, height))
		if err != nil {
			s.removePanes()
			return nil, fmt.Errorf("new session: %w", err)
		}
		s.panes[pid] = p
		s.sync.Register(pid, p.TimeScale())
	}
	s.overlay = overlay.New(s.panes[models.PanePrice],
		overlay.WithLogger(logger),
		overlay.WithMetrics(deps.Metrics),
		overlay.WithProjectorOptions(projector.WithHostPriceScale(true)),
	)
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Symbol returns the symbol of the displayed dataset.
func (s *Session) Symbol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Symbol
}

// SelectSymbol loads the dataset of symbol and then applies markers and box
// annotations once the price pane is laid out. A fetch overtaken by a newer
// selection returns ErrStaleResult and leaves the session untouched. Fetch
// failures clear the dataset and are kept as the inline error. If ctx ends
// first the previous dataset and status stay in place.
func (s *Session) SelectSymbol(ctx context.Context, symbol string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.status.Loading = true
	s.status.Debug = "Fetching data..."
	s.touchLocked()
	s.mu.Unlock()

	var gen uint64
	var loaded bool
	commit := func(candles []models.Candle, err error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		if err != nil {
			s.failLocked(symbol, err)
			return
		}
		gen = s.setDatasetLocked(symbol, candles)
		loaded = len(candles) > 0
	}
	abort := func(err error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.status.Loading = false
		s.status.Debug = fmt.Sprintf("Loading %s cancelled: %s", symbol, err)
		s.touchLocked()
	}
	err := s.loader.Load(ctx, symbol, commit, abort)
	switch {
	case err == nil:
	case errors.Is(err, ErrStaleResult):
		return err
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		s.logger.Debug("select abandoned", xlogger.String("symbol", symbol), xlogger.Error(err))
		return err
	default:
		s.logger.Error("load dataset failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return err
	}
	if !loaded {
		return nil
	}
	return s.annotate(context.WithoutCancel(ctx), gen)
}

func (s *Session) failLocked(symbol string, err error) {
	s.dataGen++
	s.dataset = models.Dataset{Symbol: symbol}
	for _, pid := range models.AllPanes {
		s.setPaneDataLocked(pid, nil)
	}
	s.overlay.Clear()
	s.status.Symbol = symbol
	s.status.Loading = false
	s.status.LayoutError = ""
	s.status.Error = fmt.Sprintf("Failed to load data from API: %s. Please try another symbol or try again later.", err)
	if s.metrics != nil {
		s.metrics.RecordError("load_dataset")
	}
	s.touchLocked()
}

func (s *Session) setDatasetLocked(symbol string, candles []models.Candle) uint64 {
	s.dataGen++
	s.dataset = models.Dataset{Symbol: symbol, Candles: models.SortedByTime(candles)}
	for _, pid := range models.AllPanes {
		s.setPaneDataLocked(pid, s.dataset.Candles)
	}
	s.overlay.Redraw()

	buys, sells := s.dataset.SignalCounts()
	s.status.Symbol = symbol
	s.status.Loading = false
	s.status.Error = ""
	s.status.LayoutError = ""
	s.status.Debug = fmt.Sprintf("Loaded from API: %d buy signals and %d sell signals", buys, sells)
	s.logger.Debug(s.status.Debug, xlogger.String("symbol", symbol), xlogger.Int("candles", len(candles)))
	s.touchLocked()
	return s.dataGen
}

func (s *Session) setPaneDataLocked(pid models.PaneID, candles []models.Candle) {
	p := s.panes[pid]
	switch pid {
	case models.PanePrice:
		p.SetCandles(candles)
	case models.PaneVolume:
		p.SetVolume(candles)
	case models.PaneOscillator:
		p.SetOscillators(candles, series.PlotFields(candles))
	}
}

// annotate waits for the price pane layout and then applies markers and boxes
// for dataset generation gen, unless a newer dataset arrived meanwhile.
func (s *Session) annotate(ctx context.Context, gen uint64) error {
	if err := s.waiter.Wait(ctx, s.panes[models.PanePrice]); err != nil {
		s.logger.Warn("annotations not applied", xlogger.Error(err))
		s.mu.Lock()
		if gen == s.dataGen {
			s.status.LayoutError = err.Error()
			s.touchLocked()
		}
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordError("layout")
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.dataGen {
		return nil
	}
	s.applyMarkersLocked()
	s.applyBoxesLocked(msgAddedBoxes)
	return nil
}

func (s *Session) applyMarkersLocked() {
	s.panes[models.PanePrice].SetMarkers(annotation.BuildMarkers(s.dataset.Candles))
}

func (s *Session) applyBoxesLocked(msg string) {
	bounds, ok := models.PriceBounds(s.dataset.Candles)
	if !ok {
		return
	}
	s.overlay.SetPriceRange(bounds.Min, bounds.Max)
	s.overlay.SetRectangles(annotation.BuildRectangles(s.dataset.Candles))
	s.status.Debug = msg
	s.touchLocked()
}

// RefreshMarkers rebuilds markers from the current dataset. It reports false
// when there is no dataset.
func (s *Session) RefreshMarkers() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.dataset.Len() == 0 {
		return false
	}
	s.applyMarkersLocked()
	s.touchLocked()
	return true
}

// RefreshBoxAnnotations rebuilds the box annotations from the current dataset,
// replacing the active rectangle set. It reports false when there is no dataset.
func (s *Session) RefreshBoxAnnotations() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.dataset.Len() == 0 {
		return false
	}
	s.applyBoxesLocked(msgRefreshedBoxes)
	return true
}

// Pan applies a visible range to one pane; the other panes follow.
func (s *Session) Pan(pane models.PaneID, r models.LogicalRange) error {
	if !r.Valid() {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, r.From, r.To)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.paneLocked(pane)
	if err != nil {
		return err
	}
	p.TimeScale().SetVisibleLogicalRange(r)
	s.touchLocked()
	return nil
}

// Crosshair moves the pointer over a pane.
func (s *Session) Crosshair(pane models.PaneID, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.paneLocked(pane)
	if err != nil {
		return err
	}
	p.MoveCrosshair(x, y)
	s.touchLocked()
	return nil
}

// AddRectangle appends an externally supplied rectangle to the overlay.
func (s *Session) AddRectangle(rect models.Rectangle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.overlay.AddRectangle(rect)
	s.touchLocked()
	return nil
}

// ClearRectangles empties the overlay.
func (s *Session) ClearRectangles() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.overlay.Clear()
	s.touchLocked()
	return nil
}

// Resize changes the total chart size; pane heights keep their shares.
func (s *Session) Resize(width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize: invalid size %vx%v", width, height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.width, s.height = width, height
	for _, pid := range models.AllPanes {
		s.panes[pid].Resize(width, series.PaneHeight(pid, height))
	}
	s.overlay.Redraw()
	s.touchLocked()
	return nil
}

// DismissError clears the inline error.
func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Error = ""
	s.touchLocked()
}

// Dataset returns the loaded dataset.
func (s *Session) Dataset() models.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	buys, sells := s.dataset.SignalCounts()
	v := View{
		ID:         s.id,
		Status:     s.status,
		Candles:    s.dataset.Len(),
		Buys:       buys,
		Sells:      sells,
		Panes:      make([]PaneView, 0, len(s.panes)),
		Markers:    []models.Marker{},
		Rectangles: s.overlay.Rectangles(),
		Overlay:    s.overlay.Elements(),
		UpdatedAt:  s.updatedAt,
	}
	if s.closed {
		return v
	}
	for _, pid := range models.AllPanes {
		p := s.panes[pid]
		pv := PaneView{ID: pid, Width: p.Width(), Height: p.Height(), Ready: p.LayoutReady()}
		if r, ok := p.TimeScale().VisibleLogicalRange(); ok {
			pv.Range = &r
		}
		v.Panes = append(v.Panes, pv)
	}
	v.Markers = append(v.Markers, s.panes[models.PanePrice].Markers()...)
	return v
}

// Render draws one pane.
func (s *Session) Render(pane models.PaneID, format string, w io.Writer) error {
	s.mu.Lock()
	p, err := s.paneLocked(pane)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := p.Render(format, w); err != nil {
		return fmt.Errorf("render %s: %w", pane, err)
	}
	if s.metrics != nil {
		s.metrics.RecordRender(string(pane), format)
	}
	return nil
}

// Close cancels any fetch, destroys the overlay, stops synchronization and
// removes the panes. It is safe to call twice.
func (s *Session) Close() {
	s.loader.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.overlay.Destroy()
	s.sync.Close()
	s.removePanes()
}

func (s *Session) removePanes() {
	for _, p := range s.panes {
		p.Remove()
	}
}

func (s *Session) paneLocked(id models.PaneID) (domrepo.Pane, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	p, ok := s.panes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPane, id)
	}
	return p, nil
}

func (s *Session) touchLocked() { s.updatedAt = time.Now() }
