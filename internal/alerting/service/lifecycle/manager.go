// Package lifecycle owns every mutation of the alert store: creation,
// escalation, suppression, operator resolution, and auto-resolution. All
// transitions for a zone are serialized so at most one ACTIVE alert exists
// per zone at any time.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/slopewatch/slopewatch/internal/alerting/model"
	"github.com/slopewatch/slopewatch/internal/monitoring/metrics"
	monmodel "github.com/slopewatch/slopewatch/internal/monitoring/model"
	"github.com/slopewatch/slopewatch/internal/zoneconfig"
)

// improvementRatio is the auto-resolve cutoff: an alert resolves once the
// current risk score drops below this fraction of the score it fired at.
const improvementRatio = 0.7

// Store is the durable alert repository. Implementations must assign
// monotonic, never-reused ids on Insert and keep resolved alerts forever.
type Store interface {
	Insert(ctx context.Context, a *model.Alert) error
	Resolve(ctx context.Context, id int64, at time.Time, notes string) error
	ActiveByZone(ctx context.Context, zoneID string) (*model.Alert, error)
	Active(ctx context.Context) ([]*model.Alert, error)
	Since(ctx context.Context, since time.Time) ([]*model.Alert, error)
	ByZoneSince(ctx context.Context, zoneID string, since time.Time) ([]*model.Alert, error)
	Count(ctx context.Context) (int, error)
}

// Dispatcher receives alerts after a committed state transition. Calls must
// not block; failures must stay inside the dispatcher.
type Dispatcher interface {
	AlertCreated(a *model.Alert)
	AlertResolved(a *model.Alert)
}

type noopDispatcher struct{}

func (noopDispatcher) AlertCreated(*model.Alert)  {}
func (noopDispatcher) AlertResolved(*model.Alert) {}

type Manager struct {
	store      Store
	zones      zoneconfig.Provider
	dispatcher Dispatcher

	retries int
	backoff time.Duration

	// overridable for tests
	nowFn   func() time.Time
	sleepFn func(time.Duration)

	mu        sync.Mutex
	zoneLocks map[string]*sync.Mutex
}

type Option func(*Manager)

func WithDispatcher(d Dispatcher) Option {
	return func(m *Manager) {
		if d != nil {
			m.dispatcher = d
		}
	}
}

// WithRetry configures the bounded store-write retry. backoff doubles per
// attempt.
func WithRetry(retries int, backoff time.Duration) Option {
	return func(m *Manager) {
		if retries > 0 {
			m.retries = retries
		}
		if backoff > 0 {
			m.backoff = backoff
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.nowFn = now }
}

func NewManager(store Store, zones zoneconfig.Provider, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		zones:      zones,
		dispatcher: noopDispatcher{},
		retries:    3,
		backoff:    200 * time.Millisecond,
		nowFn:      time.Now,
		sleepFn:    time.Sleep,
		zoneLocks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) lockZone(zoneID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.zoneLocks[zoneID]
	if !ok {
		l = &sync.Mutex{}
		m.zoneLocks[zoneID] = l
	}
	return l
}

// Apply drives one zone's transition for a cycle that produced a candidate.
// Returns the newly created alert, or nil when the candidate was suppressed
// by an existing ACTIVE alert.
func (m *Manager) Apply(ctx context.Context, cand *model.Candidate, reading monmodel.SensorReading) (*model.Alert, error) {
	if cand == nil {
		return nil, nil
	}
	zoneID := reading.ZoneID
	l := m.lockZone(zoneID)
	l.Lock()
	defer l.Unlock()

	existing, err := m.store.ActiveByZone(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("load active alert for zone %s: %w", zoneID, err)
	}

	if existing != nil {
		// CRITICAL is terminal until resolved; an equal or lower candidate
		// is suppressed without touching the existing alert.
		if existing.Level == model.LevelCritical || cand.Level == model.LevelWarning {
			log.Debug().Str("zone", zoneID).Str("alert", existing.DisplayID()).
				Str("existing_level", string(existing.Level)).Str("candidate_level", string(cand.Level)).
				Msg("candidate suppressed by existing active alert")
			return nil, nil
		}
		// WARNING -> CRITICAL escalation: resolve the old alert, then create
		// the replacement at the higher level.
		if err := m.resolveAlert(ctx, existing, "Escalated to critical", "escalation"); err != nil {
			return nil, err
		}
	}

	return m.createAlert(ctx, zoneID, cand, reading)
}

func (m *Manager) createAlert(ctx context.Context, zoneID string, cand *model.Candidate, reading monmodel.SensorReading) (*model.Alert, error) {
	zoneName := zoneID
	if z, ok := m.zones.Zone(zoneID); ok {
		zoneName = z.Name
	}

	a := &model.Alert{
		ZoneID:            zoneID,
		ZoneName:          zoneName,
		Level:             cand.Level,
		RiskScore:         cand.RiskScore,
		TriggerReasons:    append([]string(nil), cand.TriggerReasons...),
		RecommendedAction: model.RecommendedAction(cand.Level, cand.TriggerReasons),
		Status:            model.StatusActive,
		CreatedAt:         m.nowFn(),
		Snapshot:          reading.Snapshot(),
	}

	if err := m.withRetry(ctx, "insert alert", func() error {
		return m.store.Insert(ctx, a)
	}); err != nil {
		return nil, err
	}

	metrics.AlertsCreated.WithLabelValues(string(a.Level)).Inc()
	metrics.ActiveAlerts.Inc()
	log.Info().Str("alert", a.DisplayID()).Str("zone", zoneID).Str("level", string(a.Level)).
		Strs("reasons", a.TriggerReasons).Float64("risk_score", a.RiskScore).
		Msg("alert created")

	m.dispatcher.AlertCreated(a)
	return a, nil
}

// AutoResolve evaluates the improvement rules for a zone that produced no
// candidate this cycle. Returns the resolved alert, or nil when the zone has
// no ACTIVE alert or conditions have not improved enough.
func (m *Manager) AutoResolve(ctx context.Context, zoneID string, assessment *monmodel.RiskAssessment) (*model.Alert, error) {
	if assessment == nil {
		return nil, nil
	}
	l := m.lockZone(zoneID)
	l.Lock()
	defer l.Unlock()

	existing, err := m.store.ActiveByZone(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("load active alert for zone %s: %w", zoneID, err)
	}
	if existing == nil {
		return nil, nil
	}

	var reason string
	switch {
	case assessment.Category == monmodel.RiskLow:
		reason = "Risk level decreased to low"
	case assessment.Score < improvementRatio*existing.RiskScore:
		reason = fmt.Sprintf("Risk score improved from %.1f to %.1f", existing.RiskScore, assessment.Score)
	default:
		return nil, nil
	}

	if err := m.resolveAlert(ctx, existing, "Auto-resolved: "+reason, "auto"); err != nil {
		return nil, err
	}
	return existing, nil
}

// ResolveByOperator closes an ACTIVE alert on operator request.
func (m *Manager) ResolveByOperator(ctx context.Context, id int64, notes string) error {
	active, err := m.store.Active(ctx)
	if err != nil {
		return fmt.Errorf("load active alerts: %w", err)
	}
	for _, a := range active {
		if a.ID == id {
			l := m.lockZone(a.ZoneID)
			l.Lock()
			defer l.Unlock()
			if notes == "" {
				notes = "Resolved by operator"
			}
			return m.resolveAlert(ctx, a, notes, "operator")
		}
	}
	return model.ErrNoActiveAlert
}

func (m *Manager) resolveAlert(ctx context.Context, a *model.Alert, notes, kind string) error {
	resolvedAt := m.nowFn()
	if err := m.withRetry(ctx, "resolve alert", func() error {
		return m.store.Resolve(ctx, a.ID, resolvedAt, notes)
	}); err != nil {
		return err
	}

	a.Status = model.StatusResolved
	a.ResolvedAt = &resolvedAt
	a.ResolutionNotes = notes

	metrics.AlertsResolved.WithLabelValues(kind).Inc()
	metrics.ActiveAlerts.Dec()
	log.Info().Str("alert", a.DisplayID()).Str("zone", a.ZoneID).Str("kind", kind).
		Str("notes", notes).Msg("alert resolved")

	m.dispatcher.AlertResolved(a)
	return nil
}

// withRetry runs a store write with bounded doubling backoff. Exhausted
// retries surface as a fatal error for that zone's cycle; the alert state is
// left as the store last committed it.
func (m *Manager) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := m.backoff
	var err error
	for attempt := 0; attempt < m.retries; attempt++ {
		if attempt > 0 {
			m.sleepFn(backoff)
			backoff *= 2
		}
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, model.ErrNoActiveAlert) || ctx.Err() != nil {
			return err
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("alert store write failed")
	}
	return fmt.Errorf("%s: retries exhausted: %w", op, err)
}

// ActiveAlerts lists all ACTIVE alerts.
func (m *Manager) ActiveAlerts(ctx context.Context) ([]*model.Alert, error) {
	return m.store.Active(ctx)
}

// AlertsSince lists alerts created in the window, newest first.
func (m *Manager) AlertsSince(ctx context.Context, since time.Time) ([]*model.Alert, error) {
	return m.store.Since(ctx, since)
}

// ZoneHistory lists one zone's alerts over the trailing number of days.
func (m *Manager) ZoneHistory(ctx context.Context, zoneID string, days int) ([]*model.Alert, error) {
	if days <= 0 {
		days = 7
	}
	since := m.nowFn().Add(-time.Duration(days) * 24 * time.Hour)
	return m.store.ByZoneSince(ctx, zoneID, since)
}

// Summary aggregates totals and the trailing 24h alert counts by level.
func (m *Manager) Summary(ctx context.Context) (*model.Summary, error) {
	total, err := m.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	active, err := m.store.Active(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := m.store.Since(ctx, m.nowFn().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	s := &model.Summary{
		TotalAlerts:    total,
		ActiveAlerts:   len(active),
		RecentAlerts24: len(recent),
	}
	for _, a := range recent {
		switch a.Level {
		case model.LevelCritical:
			s.Critical24h++
		case model.LevelWarning:
			s.Warning24h++
		}
	}
	return s, nil
}
