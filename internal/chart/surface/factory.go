package surface

import (
	"fmt"

	"CoinChart/internal/chart/series"
	"CoinChart/internal/domain/models"
	domrepo "CoinChart/internal/domain/repository"
)

// Factory creates go-chart backed panes sharing one theme.
type Factory struct {
	theme series.Theme
}

var _ domrepo.PaneFactory = (*Factory)(nil)

func NewFactory(theme series.Theme) *Factory {
	return &Factory{theme: theme}
}

func (f *Factory) Create(id models.PaneID, width, height float64) (domrepo.Pane, error) {
	if _, err := models.ParsePaneID(string(id)); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("create pane %s: invalid size %vx%v", id, width, height)
	}
	return NewPane(id, width, height, f.theme), nil
}
