package series

import (
	"math"

	"CoinChart/internal/domain/models"
)

const (
	VolumeUpColor   = "#26a69a80"
	VolumeDownColor = "#ef535080"

	// DefaultHeight is the total height of the three stacked panes.
	DefaultHeight = 800
)

// Theme holds the colors shared by all panes.
type Theme struct {
	Background string
	Text       string
	Grid       string
	Border     string
	Crosshair  string
	Up         string
	Down       string

	// Price scale margins as fractions of the pane height.
	MarginTop    float64
	MarginBottom float64
}

var DefaultTheme = Theme{
	Background:   "#131722",
	Text:         "#d1d4dc",
	Grid:         "#242832",
	Border:       "#485c7b",
	Crosshair:    "#758696",
	Up:           "#26a69a",
	Down:         "#ef5350",
	MarginTop:    0.1,
	MarginBottom: 0.1,
}

var paneShares = map[models.PaneID]float64{
	models.PanePrice:      0.45,
	models.PaneVolume:     0.2,
	models.PaneOscillator: 0.35,
}

// PaneHeight returns the height of pane when the stack is total pixels high.
func PaneHeight(pane models.PaneID, total float64) float64 {
	return math.Floor(total * paneShares[pane])
}
