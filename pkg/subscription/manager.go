package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Manager owns the subscription registry of one client session.
type Manager struct {
	// opMu serializes Subscribe and UnsubscribeAll.
	opMu sync.Mutex

	mu sync.RWMutex

	config Config
	caps   CapabilityProvider
	stream StreamProtocol
	logger *slog.Logger
	now    func() time.Time

	// Registered handles by test point id
	handles map[string]*Handle

	onChange func(Change)
}

// NewManager creates a manager with default configuration.
func NewManager(caps CapabilityProvider, stream StreamProtocol) *Manager {
	return NewManagerWithConfig(caps, stream, DefaultConfig())
}

// NewManagerWithConfig creates a manager with custom configuration.
func NewManagerWithConfig(caps CapabilityProvider, stream StreamProtocol, config Config) *Manager {
	if config.MaxConcurrentLookups <= 0 {
		config.MaxConcurrentLookups = DefaultMaxConcurrentLookups
	}
	return &Manager{
		config:  config,
		caps:    caps,
		stream:  stream,
		logger:  slog.Default(),
		now:     time.Now,
		handles: make(map[string]*Handle),
	}
}

// SetLogger replaces the logger. A nil logger restores slog.Default.
func (m *Manager) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	m.mu.Lock()
	m.logger = l
	m.mu.Unlock()
}

// Subscribe enables streaming for the candidates that can stream and
// registers a handle for every requested id the server accepted. The enable
// request is sent even when no candidate qualifies. With resetFirst, all
// existing subscriptions are torn down before. It reports whether any
// subscription is registered afterwards.
func (m *Manager) Subscribe(ctx context.Context, candidates []Candidate, resetFirst bool) (bool, error) {
	if m.caps == nil || m.stream == nil {
		return false, ErrNoProvider
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if resetFirst {
		if err := m.unsubscribeAll(ctx); err != nil {
			return false, err
		}
	}

	desired, handlers, err := m.qualify(ctx, candidates)
	if err != nil {
		return m.Count() > 0, err
	}
	if desired == nil {
		desired = []string{}
	}

	accepted, err := m.stream.SetStream(ctx, desired, true)
	if err != nil {
		return m.Count() > 0, fmt.Errorf("enable stream: %w", err)
	}

	now := m.now()
	var added []string
	m.mu.Lock()
	for _, id := range accepted {
		h, ok := handlers[id]
		if !ok {
			continue
		}
		m.handles[id] = &Handle{TestPointID: id, CreatedAt: now, Handler: h}
		added = append(added, id)
	}
	n := len(m.handles)
	onChange := m.onChange
	logger := m.logger
	m.mu.Unlock()

	logger.Debug("streams enabled", "requested", len(desired), "accepted", len(added), "active", n)
	if onChange != nil && len(added) > 0 {
		onChange(Change{Enabled: true, IDs: added})
	}
	return n > 0, nil
}

// qualify returns the ids of enabled candidates whose data source can
// stream, in candidate order, and the handler for each.
func (m *Manager) qualify(ctx context.Context, candidates []Candidate) ([]string, map[string]Handler, error) {
	type partition struct {
		equipmentID string
		sources     []string
		qualified   map[string]bool
	}

	var parts []*partition
	byEquipment := make(map[string]*partition)
	var enabled []Candidate
	for _, c := range candidates {
		tp := c.TestPoint
		if !tp.Enabled {
			continue
		}
		enabled = append(enabled, c)

		p, ok := byEquipment[tp.EquipmentID]
		if !ok {
			p = &partition{equipmentID: tp.EquipmentID}
			byEquipment[tp.EquipmentID] = p
			parts = append(parts, p)
		}
		if !slices.Contains(p.sources, tp.DataSourceID) {
			p.sources = append(p.sources, tp.DataSourceID)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.MaxConcurrentLookups)
	for _, p := range parts {
		g.Go(func() error {
			sources, err := m.caps.DataSources(gctx, p.equipmentID, p.sources)
			if err != nil {
				return fmt.Errorf("data sources of equipment %s: %w", p.equipmentID, err)
			}
			p.qualified = make(map[string]bool, len(sources))
			for _, ds := range sources {
				if !ds.Enabled {
					continue
				}
				if plugin, ok := m.caps.Plugin(ds.Plugin); ok && plugin.PushStream {
					p.qualified[ds.ID] = true
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var ids []string
	handlers := make(map[string]Handler)
	for _, c := range enabled {
		tp := c.TestPoint
		if !byEquipment[tp.EquipmentID].qualified[tp.DataSourceID] {
			continue
		}
		if _, dup := handlers[tp.ID]; dup {
			continue
		}
		ids = append(ids, tp.ID)
		handlers[tp.ID] = c.Handler
	}
	return ids, handlers, nil
}

// UnsubscribeAll disables every registered stream and clears the registry.
// It is a no-op when nothing is registered. The registry is cleared even
// when the disable request fails.
func (m *Manager) UnsubscribeAll(ctx context.Context) error {
	if m.stream == nil {
		return ErrNoProvider
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.unsubscribeAll(ctx)
}

func (m *Manager) unsubscribeAll(ctx context.Context) error {
	ids := m.IDs()
	if len(ids) == 0 {
		return nil
	}

	_, err := m.stream.SetStream(ctx, ids, false)

	m.mu.Lock()
	m.handles = make(map[string]*Handle)
	onChange := m.onChange
	logger := m.logger
	m.mu.Unlock()

	logger.Debug("streams disabled", "count", len(ids))
	if onChange != nil {
		onChange(Change{Enabled: false, IDs: ids})
	}
	if err != nil {
		return fmt.Errorf("disable stream: %w", err)
	}
	return nil
}

// Poll fetches one batch of frames and dispatches it to the registered
// handlers. Entries without a handle are dropped.
func (m *Manager) Poll(ctx context.Context) (PollResult, error) {
	var res PollResult
	if m.stream == nil {
		return res, ErrNoProvider
	}

	batches, err := m.stream.PollFrames(ctx)
	if err != nil {
		return res, fmt.Errorf("poll frames: %w", err)
	}

	for _, b := range batches {
		m.mu.RLock()
		h, ok := m.handles[b.ID]
		logger := m.logger
		m.mu.RUnlock()

		if !ok {
			res.Dropped++
			logger.Debug("dropping frames for unknown test point", "id", b.ID)
			continue
		}
		h.deliver(b.Frames)
		res.Delivered++
	}
	return res, nil
}

// Count returns the number of registered handles.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}

// Get returns the handle for a test point id.
func (m *Manager) Get(testPointID string) (*Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, exists := m.handles[testPointID]
	if !exists {
		return nil, ErrHandleNotFound
	}
	return h, nil
}

// IDs returns the registered test point ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// OnChange sets the callback for registry changes.
func (m *Manager) OnChange(fn func(Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}
