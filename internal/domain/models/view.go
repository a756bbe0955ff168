package models

import (
	"fmt"
	"math"
)

// PaneID names one pane of a chart.
type PaneID string

const (
	PanePrice      PaneID = "price"
	PaneVolume     PaneID = "volume"
	PaneOscillator PaneID = "oscillator"
)

// AllPanes lists the panes of a chart in layout order.
var AllPanes = []PaneID{PanePrice, PaneVolume, PaneOscillator}

// ParsePaneID validates a raw pane name.
func ParsePaneID(s string) (PaneID, error) {
	switch PaneID(s) {
	case PanePrice, PaneVolume, PaneOscillator:
		return PaneID(s), nil
	default:
		return "", fmt.Errorf("unknown pane %q", s)
	}
}

// LogicalRange is a visible window expressed in bar indexes, not wall-clock time.
type LogicalRange struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// Valid reports whether the range is finite and non-empty.
func (r LogicalRange) Valid() bool {
	if math.IsNaN(r.From) || math.IsNaN(r.To) || math.IsInf(r.From, 0) || math.IsInf(r.To, 0) {
		return false
	}
	return r.To > r.From
}

// Span returns To-From.
func (r LogicalRange) Span() float64 { return r.To - r.From }

// PriceRange is the price domain used for vertical projection.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Valid reports whether the range can be projected: finite and Max > Min.
func (r PriceRange) Valid() bool {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return false
	}
	return r.Max > r.Min
}

// CrosshairEvent is a pointer movement over a pane, in pane pixels.
type CrosshairEvent struct {
	Pane PaneID  `json:"pane"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}
