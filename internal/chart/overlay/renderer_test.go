package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinChart/internal/chart/charttest"
	"CoinChart/internal/domain/models"
)

var barTimes = []int64{1000, 2000, 3000, 4000, 5000}

func newPane() *charttest.FakePane {
	return charttest.NewFakePane(models.PanePrice, 400, 200, barTimes)
}

func rect(xMin, xMax int64, yMin, yMax float64) models.Rectangle {
	return models.Rectangle{
		XMin: xMin, XMax: xMax, YMin: yMin, YMax: yMax,
		Style: models.RectangleStyle{
			FillColor:   "#FF0000",
			FillOpacity: 0.5,
			BorderColor: "#FF0000",
			BorderWidth: 2,
			BorderStyle: models.BorderDashed,
		},
	}
}

func TestRendererNormalizesCorners(t *testing.T) {
	pane := newPane()
	r := New(pane)
	r.SetPriceRange(0, 200)

	for _, rc := range []models.Rectangle{
		rect(2000, 4000, 50, 150),
		rect(4000, 2000, 150, 50),
		rect(2000, 4000, 150, 50),
		rect(4000, 2000, 50, 150),
	} {
		r.SetRectangles([]models.Rectangle{rc})
		els := r.Elements()
		require.Len(t, els, 1)
		el := els[0]
		assert.Equal(t, 100.0, el.Left)
		assert.Equal(t, 200.0, el.Width)
		assert.Equal(t, 50.0, el.Top)
		assert.Equal(t, 100.0, el.Height)
		assert.GreaterOrEqual(t, el.Width, 0.0)
		assert.GreaterOrEqual(t, el.Height, 0.0)
	}
}

func TestRendererSkipsUnprojectableRectangle(t *testing.T) {
	pane := newPane()
	m := charttest.NewMetrics()
	r := New(pane, WithMetrics(m))
	r.SetPriceRange(0, 200)

	r.SetRectangles([]models.Rectangle{
		rect(2500, 4000, 50, 150),
		rect(1000, 2000, 50, 150),
	})

	els := r.Elements()
	require.Len(t, els, 1)
	assert.Equal(t, "Box 2", els[0].Label)
	assert.Equal(t, 1, els[0].Index)
	assert.Equal(t, els, pane.Overlays[0].Elements())
	assert.Equal(t, 1, m.Skipped)
}

func TestRendererStyle(t *testing.T) {
	pane := newPane()
	r := New(pane)
	r.SetPriceRange(0, 200)

	hidden := false
	noBorder := rect(1000, 2000, 10, 20)
	noBorder.Style.BorderVisible = &hidden
	noBorder.Style.FillOpacity = 0

	r.SetRectangles([]models.Rectangle{rect(1000, 2000, 10, 20), noBorder})
	els := r.Elements()
	require.Len(t, els, 2)

	assert.Equal(t, "#FF000080", els[0].Fill)
	assert.True(t, els[0].BorderVisible)
	assert.Equal(t, 2.0, els[0].BorderWidth)
	assert.Equal(t, models.BorderDashed, els[0].BorderStyle)
	assert.Equal(t, "Box 1", els[0].Label)

	assert.Equal(t, "#FF000033", els[1].Fill)
	assert.False(t, els[1].BorderVisible)
	assert.Zero(t, els[1].BorderWidth)
}

func TestFillColor(t *testing.T) {
	assert.Equal(t, "#2962FF33", FillColor("#2962ff", 0))
	assert.Equal(t, "#2962FF33", FillColor("#2962FF", -1))
	assert.Equal(t, "#2962FFFF", FillColor("#2962FF", 3))
	assert.Equal(t, "#AABBCCFF", FillColor("#abc", 1))
	assert.Equal(t, "#11223380", FillColor("#112233EE", 0.5))
}

func TestRendererWithoutPriceRangeUsesOwnBounds(t *testing.T) {
	pane := newPane()
	r := New(pane)

	r.SetRectangles([]models.Rectangle{rect(1000, 3000, 10, 20)})
	els := r.Elements()
	require.Len(t, els, 1)
	assert.Equal(t, 0.0, els[0].Top)
	assert.Equal(t, 200.0, els[0].Height)

	r.SetRectangles([]models.Rectangle{rect(1000, 3000, 10, 10)})
	assert.Empty(t, r.Elements())
}

func TestRendererPrefersHostPriceScale(t *testing.T) {
	pane := newPane()
	pane.PriceScale = func(v float64) (float64, bool) { return 100 - v, true }
	r := New(pane.HostScaled())
	r.SetPriceRange(0, 1)

	r.SetRectangles([]models.Rectangle{rect(1000, 2000, 10, 30)})
	els := r.Elements()
	require.Len(t, els, 1)
	assert.Equal(t, 70.0, els[0].Top)
	assert.Equal(t, 20.0, els[0].Height)
}

func TestRendererRedrawsOnViewChanges(t *testing.T) {
	pane := newPane()
	r := New(pane)
	r.SetPriceRange(0, 200)
	r.SetRectangles([]models.Rectangle{rect(1000, 2000, 50, 150)})
	layer := pane.Overlays[0]
	before := layer.Replaces

	pane.UserSetRange(models.LogicalRange{From: 0, To: 2})
	assert.Equal(t, before+1, layer.Replaces)
	els := r.Elements()
	require.Len(t, els, 1)
	assert.Equal(t, 200.0, els[0].Width)

	pane.MoveCrosshair(10, 10)
	assert.Equal(t, before+2, layer.Replaces)
}

func TestRendererWaitsForLayout(t *testing.T) {
	pane := newPane()
	pane.SetReady(false)
	r := New(pane)
	r.SetPriceRange(0, 200)
	r.SetRectangles([]models.Rectangle{rect(1000, 2000, 50, 150)})
	assert.Empty(t, r.Elements())

	pane.SetReady(true)
	r.Redraw()
	assert.Len(t, r.Elements(), 1)
}

func TestRendererAddAndClear(t *testing.T) {
	pane := newPane()
	r := New(pane)
	r.SetPriceRange(0, 200)

	r.AddRectangle(rect(1000, 2000, 50, 150))
	r.AddRectangle(rect(2000, 3000, 50, 150))
	assert.Len(t, r.Elements(), 2)
	assert.Len(t, r.Rectangles(), 2)

	r.Clear()
	assert.Empty(t, r.Elements())
	assert.Empty(t, pane.Overlays[0].Elements())
}

func TestRendererDestroy(t *testing.T) {
	pane := newPane()
	r := New(pane)
	r.SetPriceRange(0, 200)
	r.SetRectangles([]models.Rectangle{rect(1000, 2000, 50, 150)})
	require.Equal(t, 1, pane.RangeListeners())
	require.Equal(t, 1, pane.CrosshairListeners())

	r.Destroy()
	layer := pane.Overlays[0]
	assert.True(t, layer.Released)
	assert.Zero(t, pane.RangeListeners())
	assert.Zero(t, pane.CrosshairListeners())

	replaces := layer.Replaces
	pane.UserSetRange(models.LogicalRange{From: 1, To: 3})
	r.AddRectangle(rect(1000, 2000, 50, 150))
	assert.Equal(t, replaces, layer.Replaces)
	assert.Empty(t, r.Elements())

	r.Destroy()
}
