package health

import (
	"sort"
	"sync"
	"time"
)

// Monitor collects statuses from several sources. Sources are either pushed
// with Update or pulled on demand through Register.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	checks   map[string]func() Status
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
		checks:   make(map[string]func() Status),
	}
}

// Update stores status under name.
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.statuses[name] = status
}

// Register adds a status source evaluated on every read. It replaces a pushed
// status of the same name.
func (m *Monitor) Register(name string, check func() Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.statuses, name)
	m.checks[name] = check
}

// Get returns the current status for name.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	check, pulled := m.checks[name]
	status, pushed := m.statuses[name]
	m.mu.RUnlock()

	if pulled {
		s := check()
		s.Component = name
		return s, true
	}
	return status, pushed
}

// Remove stops tracking name.
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.statuses, name)
	delete(m.checks, name)
}

// ListComponents returns the tracked names in sorted order.
func (m *Monitor) ListComponents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.statuses)+len(m.checks))
	for name := range m.statuses {
		names = append(names, name)
	}
	for name := range m.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AggregateHealth evaluates every source and aggregates them under systemName.
func (m *Monitor) AggregateHealth(systemName string) Status {
	names := m.ListComponents()

	subs := make([]Status, 0, len(names))
	for _, name := range names {
		if s, ok := m.Get(name); ok {
			subs = append(subs, s)
		}
	}
	return Aggregate(systemName, subs)
}
