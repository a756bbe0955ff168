// Package rangesync keeps the visible logical range of several panes locked together.
package rangesync

import (
	"CoinChart/internal/domain/models"
	domrepo "CoinChart/internal/domain/repository"
	xlogger "CoinChart/pkg/logger"
)

type member struct {
	id    models.PaneID
	scale domrepo.TimeScale
	sub   domrepo.Subscription
}

// Synchronizer propagates a range change of any registered pane to every other
// registered pane.
//
// Hosts may notify listeners for programmatic range changes too, so while a
// propagation is in progress the synchronizer is marked as syncing and every
// notification it receives is ignored. One change on a pane therefore yields
// exactly one programmatic update per other pane.
//
// A Synchronizer is not safe for concurrent use. Notifications arrive on the
// goroutine that changed the range, and callers must serialize range changes.
type Synchronizer struct {
	members []*member
	syncing bool
	origin  models.PaneID

	logger  *xlogger.Logger
	metrics domrepo.Metrics
}

type Option func(*Synchronizer)

func WithLogger(l *xlogger.Logger) Option {
	return func(s *Synchronizer) { s.logger = l }
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(s *Synchronizer) { s.metrics = m }
}

func New(opts ...Option) *Synchronizer {
	s := &Synchronizer{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = xlogger.Nop()
	}
	return s
}

// Register subscribes to range changes of scale under id. Registering an id
// twice replaces the previous scale.
func (s *Synchronizer) Register(id models.PaneID, scale domrepo.TimeScale) {
	s.Unregister(id)
	m := &member{id: id, scale: scale}
	m.sub = scale.SubscribeVisibleLogicalRangeChange(func(r models.LogicalRange) {
		s.onRangeChange(id, r)
	})
	s.members = append(s.members, m)
}

// Unregister drops id and its subscription. Unknown ids are ignored.
func (s *Synchronizer) Unregister(id models.PaneID) {
	for i, m := range s.members {
		if m.id == id {
			m.sub.Unsubscribe()
			s.members = append(s.members[:i], s.members[i+1:]...)
			return
		}
	}
}

// Close unregisters every pane.
func (s *Synchronizer) Close() {
	for _, m := range s.members {
		m.sub.Unsubscribe()
	}
	s.members = nil
}

// Panes returns the registered pane ids in registration order.
func (s *Synchronizer) Panes() []models.PaneID {
	ids := make([]models.PaneID, len(s.members))
	for i, m := range s.members {
		ids[i] = m.id
	}
	return ids
}

// Syncing reports whether a propagation is in progress.
func (s *Synchronizer) Syncing() bool { return s.syncing }

func (s *Synchronizer) onRangeChange(origin models.PaneID, r models.LogicalRange) {
	if s.syncing {
		return
	}
	if !r.Valid() {
		s.logger.Debug("range sync: ignoring invalid range",
			xlogger.String("origin", string(origin)),
			xlogger.Float64("from", r.From),
			xlogger.Float64("to", r.To),
		)
		return
	}

	s.syncing = true
	s.origin = origin
	defer func() {
		s.syncing = false
		s.origin = ""
	}()

	// Snapshot so a listener unregistering a pane does not disturb the loop.
	targets := make([]*member, 0, len(s.members))
	for _, m := range s.members {
		if m.id != origin {
			targets = append(targets, m)
		}
	}
	for _, m := range targets {
		m.scale.SetVisibleLogicalRange(r)
	}
	if s.metrics != nil {
		s.metrics.RecordSyncUpdate(string(origin), len(targets))
	}
}
