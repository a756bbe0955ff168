package surface

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"CoinChart/internal/chart/series"
	"CoinChart/internal/domain/models"
	domrepo "CoinChart/internal/domain/repository"
)

const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// snapshot is an immutable copy of everything a render needs, taken under the
// pane lock so go-chart runs without it.
type snapshot struct {
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
	lo, hi    int
	domain    models.PriceRange
	crosshair *models.CrosshairEvent
	overlay   []domrepo.OverlayElement
}

func (p *Pane) snapshotLocked() (*snapshot, error) {
	if p.removed {
		return nil, ErrPaneRemoved
	}
	if len(p.times) == 0 {
		return nil, ErrNoData
	}
	if p.width <= 0 || p.height <= 0 {
		return nil, fmt.Errorf("pane %s has no size", p.id)
	}
	domain, ok := p.scaleDomainLocked()
	if !ok {
		// Nothing visible: keep the axes sensible.
		domain = withMargins(models.PriceRange{Min: 0, Max: 1}, p.theme.MarginTop, p.theme.MarginBottom)
	}
	lo, hi := p.visibleIndexesLocked()
	s := &snapshot{
		id:      p.id,
		theme:   p.theme,
		width:   p.width,
		height:  p.height,
		kind:    p.kind,
		times:   p.times,
		candles: p.candles,
		volume:  p.volume,
		lines:   p.lines,
		markers: append([]models.Marker(nil), p.markers...),
		rng:     p.rng,
		lo:      lo,
		hi:      hi,
		domain:  domain,
	}
	if p.crosshair != nil {
		ev := *p.crosshair
		s.crosshair = &ev
	}
	for _, l := range p.layers {
		s.overlay = append(s.overlay, l.Elements()...)
	}
	return s, nil
}

func renderSnapshot(s *snapshot, format string, w io.Writer) error {
	var provider chart.RendererProvider
	switch strings.ToLower(format) {
	case FormatPNG, "":
		provider = chart.PNG
	case FormatSVG:
		provider = chart.SVG
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	bg := hexColor(s.theme.Background)
	axis := chart.Style{
		StrokeColor: hexColor(s.theme.Border),
		FontColor:   hexColor(s.theme.Text),
		FontSize:    8,
	}
	grid := chart.Style{StrokeColor: hexColor(s.theme.Grid), StrokeWidth: 1}

	c := chart.Chart{
		Width:      int(s.width),
		Height:     int(s.height),
		Background: chart.Style{FillColor: bg, Padding: chart.Box{Top: 10, Left: 8, Right: 8, Bottom: 4}},
		Canvas:     chart.Style{FillColor: bg},
		XAxis: chart.XAxis{
			Style:          axis,
			Range:          &chart.ContinuousRange{Min: s.rng.From, Max: s.rng.To},
			ValueFormatter: s.timeLabel,
			GridMajorStyle: grid,
			GridMinorStyle: chart.Style{Hidden: true},
		},
		YAxis: chart.YAxis{
			Style:          axis,
			Range:          &chart.ContinuousRange{Min: s.domain.Min, Max: s.domain.Max},
			ValueFormatter: s.valueLabel,
			GridMajorStyle: grid,
			GridMinorStyle: chart.Style{Hidden: true},
		},
		Series:   s.series(),
		Elements: []chart.Renderable{s.renderOverlay},
	}
	if err := c.Render(provider, w); err != nil {
		return fmt.Errorf("render pane %s: %w", s.id, err)
	}
	return nil
}

func (s *snapshot) series() []chart.Series {
	var out []chart.Series
	switch s.kind {
	case kindCandles:
		out = append(out,
			&candleSeries{chartSeries: chartSeries{name: "candles"}, snap: s},
			&markerSeries{chartSeries: chartSeries{name: "markers"}, snap: s},
		)
	case kindVolume:
		out = append(out, &volumeSeries{chartSeries: chartSeries{name: "volume"}, snap: s})
	case kindLines:
		for _, l := range s.lines {
			xs, ys := s.visibleLine(l)
			if len(xs) == 0 {
				continue
			}
			out = append(out, chart.ContinuousSeries{
				Name:    l.field,
				Style:   chart.Style{StrokeColor: hexColor(l.color), StrokeWidth: 2},
				XValues: xs,
				YValues: ys,
			})
		}
	}
	// Always present, so go-chart has a series even when nothing is visible.
	return append(out, &crosshairSeries{chartSeries: chartSeries{name: "crosshair"}, snap: s})
}

// visibleLine returns the points of l inside the visible bars. go-chart does
// not clip to the canvas, so off-screen points are dropped here.
func (s *snapshot) visibleLine(l line) ([]float64, []float64) {
	var xs, ys []float64
	for _, pt := range l.points {
		if pt.Index < s.lo || pt.Index > s.hi {
			continue
		}
		xs = append(xs, float64(pt.Index))
		ys = append(ys, pt.Value)
	}
	return xs, ys
}

func (s *snapshot) timeLabel(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	i := int(math.Round(f))
	if i < 0 || i >= len(s.times) {
		return ""
	}
	return time.UnixMilli(s.times[i]).UTC().Format("01-02 15:04")
}

func (s *snapshot) valueLabel(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	if s.kind == kindVolume {
		switch {
		case math.Abs(f) >= 1e6:
			return strconv.FormatFloat(f/1e6, 'f', 2, 64) + "M"
		case math.Abs(f) >= 1e3:
			return strconv.FormatFloat(f/1e3, 'f', 2, 64) + "K"
		}
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// barHalfWidth is a third of the pixel distance between two bars.
func barHalfWidth(canvasBox chart.Box, xrange chart.Range) int {
	delta := xrange.GetDelta()
	if delta <= 0 {
		return 1
	}
	step := float64(canvasBox.Width()) / delta
	return int(math.Max(1, step/3))
}

// chartSeries carries the parts of chart.Series shared by the custom series.
type chartSeries struct {
	name string
}

func (cs chartSeries) GetName() string           { return cs.name }
func (cs chartSeries) GetStyle() chart.Style     { return chart.Style{StrokeWidth: 1} }
func (cs chartSeries) GetYAxis() chart.YAxisType { return chart.YAxisPrimary }
func (cs chartSeries) Validate() error           { return nil }

type candleSeries struct {
	chartSeries
	snap *snapshot
}

var (
	_ chart.Series = (*candleSeries)(nil)
	_ chart.Series = (*volumeSeries)(nil)
	_ chart.Series = (*markerSeries)(nil)
	_ chart.Series = (*crosshairSeries)(nil)
)

func (cs *candleSeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, _ chart.Style) {
	s := cs.snap
	half := barHalfWidth(canvasBox, xrange)
	up, down := hexColor(s.theme.Up), hexColor(s.theme.Down)
	for i := s.lo; i <= s.hi; i++ {
		c := s.candles[i]
		col := down
		if c.Up() {
			col = up
		}
		x := canvasBox.Left + xrange.Translate(float64(i))
		yHigh := canvasBox.Bottom - yrange.Translate(c.High)
		yLow := canvasBox.Bottom - yrange.Translate(c.Low)
		yOpen := canvasBox.Bottom - yrange.Translate(c.Open)
		yClose := canvasBox.Bottom - yrange.Translate(c.Close)

		r.SetStrokeDashArray(nil)
		r.SetStrokeColor(col)
		r.SetStrokeWidth(1)
		r.MoveTo(x, yHigh)
		r.LineTo(x, yLow)
		r.Stroke()

		top, bottom := yOpen, yClose
		if top > bottom {
			top, bottom = bottom, top
		}
		if bottom == top {
			bottom = top + 1
		}
		r.SetFillColor(col)
		r.SetStrokeColor(col)
		fillRect(r, x-half, top, x+half, bottom)
		r.FillStroke()
	}
}

type volumeSeries struct {
	chartSeries
	snap *snapshot
}

func (vs *volumeSeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, _ chart.Style) {
	s := vs.snap
	half := barHalfWidth(canvasBox, xrange)
	base := canvasBox.Bottom - yrange.Translate(0)
	for i := s.lo; i <= s.hi; i++ {
		v := s.volume[i]
		col := hexColor(v.Color)
		x := canvasBox.Left + xrange.Translate(float64(i))
		y := canvasBox.Bottom - yrange.Translate(v.Value)
		r.SetFillColor(col)
		r.SetStrokeColor(col)
		r.SetStrokeWidth(0)
		fillRect(r, x-half, y, x+half, base)
		r.Fill()
	}
}

// markerSeries draws buy/sell arrows next to their bars.
type markerSeries struct {
	chartSeries
	snap *snapshot
}

func (ms *markerSeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, style chart.Style) {
	s := ms.snap
	if style.Font != nil {
		r.SetFont(style.Font)
	}
	r.SetFontSize(7)
	for _, m := range s.markers {
		i, ok := s.barIndex(m.Time)
		if !ok || i < s.lo || i > s.hi {
			continue
		}
		c := s.candles[i]
		col := hexColor(m.Color)
		x := canvasBox.Left + xrange.Translate(float64(i))
		size := 3 * m.Size
		if size <= 0 {
			size = 9
		}
		r.SetFillColor(col)
		r.SetStrokeColor(col)
		r.SetStrokeWidth(1)
		r.SetFontColor(col)
		tw := r.MeasureText(m.Text).Width()

		switch m.Position {
		case models.AboveBar:
			tip := canvasBox.Bottom - yrange.Translate(c.High) - 4
			r.MoveTo(x, tip)
			r.LineTo(x-size/2, tip-size)
			r.LineTo(x+size/2, tip-size)
			r.Close()
			r.FillStroke()
			r.Text(m.Text, x-tw/2, tip-size-3)
		default:
			tip := canvasBox.Bottom - yrange.Translate(c.Low) + 4
			r.MoveTo(x, tip)
			r.LineTo(x-size/2, tip+size)
			r.LineTo(x+size/2, tip+size)
			r.Close()
			r.FillStroke()
			r.Text(m.Text, x-tw/2, tip+size+10)
		}
	}
}

func (s *snapshot) barIndex(t int64) (int, bool) {
	lo, hi := 0, len(s.times)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case s.times[mid] == t:
			return mid, true
		case s.times[mid] < t:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0, false
}

// crosshairSeries draws dashed crosshair lines at the last pointer position.
type crosshairSeries struct {
	chartSeries
	snap *snapshot
}

func (xs *crosshairSeries) Render(r chart.Renderer, canvasBox chart.Box, _, _ chart.Range, _ chart.Style) {
	s := xs.snap
	if s.crosshair == nil {
		return
	}
	x := canvasBox.Left + int(s.crosshair.X/s.width*float64(canvasBox.Width()))
	y := canvasBox.Top + int(s.crosshair.Y/s.height*float64(canvasBox.Height()))
	r.SetStrokeColor(hexColor(s.theme.Crosshair))
	r.SetStrokeWidth(1)
	r.SetStrokeDashArray([]float64{4, 4})
	if x >= canvasBox.Left && x <= canvasBox.Right {
		r.MoveTo(x, canvasBox.Top)
		r.LineTo(x, canvasBox.Bottom)
		r.Stroke()
	}
	if y >= canvasBox.Top && y <= canvasBox.Bottom {
		r.MoveTo(canvasBox.Left, y)
		r.LineTo(canvasBox.Right, y)
		r.Stroke()
	}
	r.SetStrokeDashArray(nil)
}

// renderOverlay paints the overlay elements. Elements are positioned in pane
// pixels and are scaled into the plot area.
func (s *snapshot) renderOverlay(r chart.Renderer, canvasBox chart.Box, defaults chart.Style) {
	if len(s.overlay) == 0 {
		return
	}
	sx := float64(canvasBox.Width()) / s.width
	sy := float64(canvasBox.Height()) / s.height
	if defaults.Font != nil {
		r.SetFont(defaults.Font)
	}
	r.SetFontSize(8)
	for _, el := range s.overlay {
		left := canvasBox.Left + int(el.Left*sx)
		top := canvasBox.Top + int(el.Top*sy)
		right := canvasBox.Left + int((el.Left+el.Width)*sx)
		bottom := canvasBox.Top + int((el.Top+el.Height)*sy)

		r.SetFillColor(hexColor(el.Fill))
		r.SetStrokeWidth(0)
		fillRect(r, left, top, right, bottom)
		r.Fill()

		if el.BorderVisible && el.BorderWidth > 0 {
			r.SetStrokeColor(hexColor(el.BorderColor))
			r.SetStrokeWidth(el.BorderWidth)
			r.SetStrokeDashArray(dashArray(el.BorderStyle))
			fillRect(r, left, top, right, bottom)
			r.Stroke()
			r.SetStrokeDashArray(nil)
		}

		r.SetFontColor(hexColor(s.theme.Text))
		r.Text(el.Label, left+4, top+12)
	}
}

func dashArray(style models.BorderStyle) []float64 {
	switch style {
	case models.BorderDashed:
		return []float64{6, 4}
	case models.BorderDotted:
		return []float64{2, 2}
	default:
		return nil
	}
}

// fillRect traces a closed rectangle path.
func fillRect(r chart.Renderer, left, top, right, bottom int) {
	r.MoveTo(left, top)
	r.LineTo(right, top)
	r.LineTo(right, bottom)
	r.LineTo(left, bottom)
	r.LineTo(left, top)
	r.Close()
}

// hexColor parses #RGB, #RRGGBB and #RRGGBBAA.
func hexColor(s string) drawing.Color {
	hex := strings.TrimPrefix(s, "#")
	switch len(hex) {
	case 3:
		return drawing.ColorFromHex(hex)
	case 6:
		return drawing.ColorFromHex(hex)
	case 8:
		c := drawing.ColorFromHex(hex[:6])
		if a, err := strconv.ParseUint(hex[6:], 16, 8); err == nil {
			c = c.WithAlpha(uint8(a))
		}
		return c
	default:
		return drawing.ColorTransparent
	}
}
