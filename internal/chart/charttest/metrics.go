package charttest

import "sync"

// Metrics records calls for assertions.
type Metrics struct {
	mu sync.Mutex

	Fetches       map[string]int // kind/outcome
	Errors        map[string]int
	Drawn         int
	Skipped       int
	Redraws       int
	SyncUpdates   int
	SyncTargets   int
	StaleDiscards []string
	Renders       int
}

func NewMetrics() *Metrics {
	return &Metrics{Fetches: map[string]int{}, Errors: map[string]int{}}
}

func (m *Metrics) RecordFetch(kind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetches[kind+"/"+outcome]++
}

func (m *Metrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[kind]++
}

func (m *Metrics) RecordLatency(string, float64) {}

func (m *Metrics) RecordRedraw(_ string, drawn, skipped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Redraws++
	m.Drawn += drawn
	m.Skipped += skipped
}

func (m *Metrics) RecordSyncUpdate(_ string, targets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SyncUpdates++
	m.SyncTargets += targets
}

func (m *Metrics) RecordStaleDiscard(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StaleDiscards = append(m.StaleDiscards, symbol)
}

func (m *Metrics) RecordRender(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Renders++
}
