// Package projector maps time/price domain coordinates to pane pixels.
package projector

import (
	"math"

	"CoinChart/internal/domain/models"
	domrepo "CoinChart/internal/domain/repository"
)

// Projector projects domain coordinates onto one pane.
//
// Horizontal projection always goes through the pane's own time scale.
// Vertical projection prefers the pane's true price scale when it exposes one
// and otherwise falls back to a linear mapping over a caller supplied domain.
// The fallback ignores the pane's auto-scaling and margins, so boxes drawn with
// it are an approximation of the rendered price axis.
type Projector struct {
	surface      domrepo.Surface
	useHostScale bool
}

type Option func(*Projector)

// WithHostPriceScale toggles use of the pane's PriceToCoordinate when available.
func WithHostPriceScale(enabled bool) Option {
	return func(p *Projector) { p.useHostScale = enabled }
}

// New creates a projector for surface.
func New(surface domrepo.Surface, opts ...Option) *Projector {
	p := &Projector{surface: surface, useHostScale: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TimeToX returns the x offset of t, or ok=false when the pane cannot place it.
func (p *Projector) TimeToX(t int64) (float64, bool) {
	if p.surface == nil || !p.surface.LayoutReady() {
		return 0, false
	}
	x, ok := p.surface.TimeScale().TimeToCoordinate(t)
	if !ok || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

// PriceToY returns the y offset of price using the host scale when possible,
// else the linear approximation over domain.
func (p *Projector) PriceToY(price float64, domain models.PriceRange) (float64, bool) {
	if p.useHostScale {
		if ps, ok := p.surface.(domrepo.PriceScaler); ok {
			if y, ok := ps.PriceToCoordinate(price); ok {
				return clamp(y, 0, p.surface.Height()), true
			}
		}
	}
	return PriceToY(price, domain, p.surface.Height())
}

// PriceToY is the linear approximation (1 - (p-min)/(max-min)) * height clamped
// to [0, height]. ok is false when the domain has no extent or inputs are not finite.
func PriceToY(price float64, domain models.PriceRange, height float64) (float64, bool) {
	if !domain.Valid() || height <= 0 || math.IsNaN(price) || math.IsInf(price, 0) || math.IsInf(height, 0) {
		return 0, false
	}
	pct := 1 - (price-domain.Min)/(domain.Max-domain.Min)
	return clamp(pct*height, 0, height), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
