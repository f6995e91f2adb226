package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/slopewatch/slopewatch/internal/alerting/database"
	"github.com/slopewatch/slopewatch/internal/alerting/model"
	monmodel "github.com/slopewatch/slopewatch/internal/monitoring/model"
	"github.com/slopewatch/slopewatch/internal/zoneconfig"
)

type fixedZones map[string]string

func (z fixedZones) Zones() []zoneconfig.Zone {
	out := make([]zoneconfig.Zone, 0, len(z))
	for id, name := range z {
		out = append(out, zoneconfig.Zone{ID: id, Name: name})
	}
	return out
}

func (z fixedZones) Zone(id string) (zoneconfig.Zone, bool) {
	name, ok := z[id]
	return zoneconfig.Zone{ID: id, Name: name}, ok
}

func (z fixedZones) Thresholds(id string) (zoneconfig.Thresholds, bool) {
	_, ok := z[id]
	return zoneconfig.Thresholds{}, ok
}

func (z fixedZones) Stability(string) float64 { return zoneconfig.DefaultStability }

// flakyStore fails the first failures writes, then delegates.
type flakyStore struct {
	Store
	failures int
	calls    int
}

func (s *flakyStore) Insert(ctx context.Context, a *model.Alert) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("connection reset")
	}
	return s.Store.Insert(ctx, a)
}

type recordingDispatcher struct {
	created  []*model.Alert
	resolved []*model.Alert
}

func (d *recordingDispatcher) AlertCreated(a *model.Alert)  { d.created = append(d.created, a) }
func (d *recordingDispatcher) AlertResolved(a *model.Alert) { d.resolved = append(d.resolved, a) }

func testZones() fixedZones {
	return fixedZones{"zone_a": "North Pit Wall", "zone_b": "South Slope"}
}

func warningCandidate(score float64) *model.Candidate {
	return &model.Candidate{
		Level:          model.LevelWarning,
		TriggerReasons: []string{model.ReasonHighDisplacement},
		RiskScore:      score,
	}
}

func criticalCandidate(score float64) *model.Candidate {
	return &model.Candidate{
		Level:          model.LevelCritical,
		TriggerReasons: []string{model.ReasonCriticalDisplacement},
		RiskScore:      score,
	}
}

func zoneReading(zoneID string) monmodel.SensorReading {
	return monmodel.SensorReading{
		ZoneID:         zoneID,
		Timestamp:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		DisplacementMM: 6.0,
		VibrationMMS:   0.5,
		TemperatureC:   18,
		HumidityPct:    55,
	}
}

func TestApplyCreatesAlert(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()
	disp := &recordingDispatcher{}
	now := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	m := NewManager(store, testZones(), WithDispatcher(disp), WithClock(func() time.Time { return now }))

	a, err := m.Apply(ctx, warningCandidate(6.5), zoneReading("zone_a"))
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, "ALT001", a.DisplayID())
	assert.Equal(t, "North Pit Wall", a.ZoneName)
	assert.Equal(t, model.LevelWarning, a.Level)
	assert.Equal(t, model.StatusActive, a.Status)
	assert.Equal(t, now, a.CreatedAt)
	assert.Equal(t, 6.0, a.Snapshot.DisplacementMM)
	assert.NotEmpty(t, a.RecommendedAction)
	require.Len(t, disp.created, 1)
	assert.Empty(t, disp.resolved)
}

func TestApplySuppressesWhileActive(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()
	m := NewManager(store, testZones())

	first, err := m.Apply(ctx, warningCandidate(6.5), zoneReading("zone_a"))
	require.NoError(t, err)
	require.NotNil(t, first)

	// Repeated warnings for the same zone are suppressed.
	again, err := m.Apply(ctx, warningCandidate(6.8), zoneReading("zone_a"))
	require.NoError(t, err)
	assert.Nil(t, again)

	// A critical alert suppresses everything, including another critical.
	crit, err := m.Apply(ctx, criticalCandidate(9.0), zoneReading("zone_b"))
	require.NoError(t, err)
	require.NotNil(t, crit)
	for _, cand := range []*model.Candidate{criticalCandidate(9.5), warningCandidate(6.5)} {
		got, err := m.Apply(ctx, cand, zoneReading("zone_b"))
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	active, err := store.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestApplyEscalatesWarningToCritical(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()
	disp := &recordingDispatcher{}
	m := NewManager(store, testZones(), WithDispatcher(disp))

	warn, err := m.Apply(ctx, warningCandidate(6.5), zoneReading("zone_a"))
	require.NoError(t, err)
	require.NotNil(t, warn)

	crit, err := m.Apply(ctx, criticalCandidate(9.0), zoneReading("zone_a"))
	require.NoError(t, err)
	require.NotNil(t, crit)

	assert.Equal(t, model.LevelCritical, crit.Level)
	assert.Greater(t, crit.ID, warn.ID)

	// The warning is closed with the escalation note, not deleted.
	history, err := store.ByZoneSince(ctx, "zone_a", time.Time{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	old := history[1]
	assert.Equal(t, warn.ID, old.ID)
	assert.Equal(t, model.StatusResolved, old.Status)
	assert.Equal(t, "Escalated to critical", old.ResolutionNotes)
	require.NotNil(t, old.ResolvedAt)

	require.Len(t, disp.created, 2)
	require.Len(t, disp.resolved, 1)
	assert.Equal(t, warn.ID, disp.resolved[0].ID)
}

func TestAutoResolveOnLowCategory(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()
	m := NewManager(store, testZones())

	_, err := m.Apply(ctx, warningCandidate(6.5), zoneReading("zone_a"))
	require.NoError(t, err)

	resolved, err := m.AutoResolve(ctx, "zone_a", &monmodel.RiskAssessment{
		ZoneID: "zone_a", Score: 2.0, Category: monmodel.RiskLow,
	})
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "Auto-resolved: Risk level decreased to low", resolved.ResolutionNotes)

	active, err := store.Active(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestAutoResolveOnScoreImprovement(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()
	m := NewManager(store, testZones())

	_, err := m.Apply(ctx, criticalCandidate(8.5), zoneReading("zone_a"))
	require.NoError(t, err)

	// 6.5 is above 70% of 8.5, so the alert stays open.
	kept, err := m.AutoResolve(ctx, "zone_a", &monmodel.RiskAssessment{
		ZoneID: "zone_a", Score: 6.5, Category: monmodel.RiskCritical,
	})
	require.NoError(t, err)
	assert.Nil(t, kept)

	resolved, err := m.AutoResolve(ctx, "zone_a", &monmodel.RiskAssessment{
		ZoneID: "zone_a", Score: 5.0, Category: monmodel.RiskHigh,
	})
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "Auto-resolved: Risk score improved from 8.5 to 5.0", resolved.ResolutionNotes)
}

func TestAutoResolveWithoutActiveAlert(t *testing.T) {
	m := NewManager(database.NewMemStore(), testZones())
	resolved, err := m.AutoResolve(context.Background(), "zone_a", &monmodel.RiskAssessment{
		ZoneID: "zone_a", Score: 1.0, Category: monmodel.RiskLow,
	})
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestApplyRetriesTransientStoreFailures(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: database.NewMemStore(), failures: 2}
	m := NewManager(store, testZones(), WithRetry(3, time.Millisecond))
	var slept []time.Duration
	m.sleepFn = func(d time.Duration) { slept = append(slept, d) }

	a, err := m.Apply(ctx, warningCandidate(6.5), zoneReading("zone_a"))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 3, store.calls)
	// Backoff doubles between attempts.
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, slept)
}

func TestApplyGivesUpAfterRetriesExhausted(t *testing.T) {
	ctx := context.Background()
	mem := database.NewMemStore()
	store := &flakyStore{Store: mem, failures: 10}
	m := NewManager(store, testZones(), WithRetry(3, time.Millisecond))
	m.sleepFn = func(time.Duration) {}

	a, err := m.Apply(ctx, warningCandidate(6.5), zoneReading("zone_a"))
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "retries exhausted")

	// No alert was committed.
	count, err := mem.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestResolveByOperator(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()
	m := NewManager(store, testZones())

	a, err := m.Apply(ctx, warningCandidate(6.5), zoneReading("zone_a"))
	require.NoError(t, err)

	require.NoError(t, m.ResolveByOperator(ctx, a.ID, "Crew inspected the bench"))

	history, err := store.ByZoneSince(ctx, "zone_a", time.Time{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.StatusResolved, history[0].Status)
	assert.Equal(t, "Crew inspected the bench", history[0].ResolutionNotes)

	// Resolving again, or resolving an id that never existed, reports no
	// active alert.
	assert.ErrorIs(t, m.ResolveByOperator(ctx, a.ID, ""), model.ErrNoActiveAlert)
	assert.ErrorIs(t, m.ResolveByOperator(ctx, 999, ""), model.ErrNoActiveAlert)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemStore()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	m := NewManager(store, testZones(), WithClock(func() time.Time { return now }))

	_, err := m.Apply(ctx, criticalCandidate(9.0), zoneReading("zone_a"))
	require.NoError(t, err)
	warn, err := m.Apply(ctx, warningCandidate(6.5), zoneReading("zone_b"))
	require.NoError(t, err)
	require.NoError(t, m.ResolveByOperator(ctx, warn.ID, ""))

	s, err := m.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalAlerts)
	assert.Equal(t, 1, s.ActiveAlerts)
	assert.Equal(t, 1, s.Critical24h)
	assert.Equal(t, 1, s.Warning24h)
	assert.Equal(t, 2, s.RecentAlerts24)
}

func TestAtMostOneActiveAlertPerZone(t *testing.T) {
	zoneIDs := []string{"zone_a", "zone_b"}

	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		store := database.NewMemStore()
		m := NewManager(store, testZones())

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			zoneID := rapid.SampledFrom(zoneIDs).Draw(t, "zone")
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				_, err := m.Apply(ctx, warningCandidate(rapid.Float64Range(6, 8).Draw(t, "score")), zoneReading(zoneID))
				require.NoError(t, err)
			case 1:
				_, err := m.Apply(ctx, criticalCandidate(rapid.Float64Range(8, 10).Draw(t, "score")), zoneReading(zoneID))
				require.NoError(t, err)
			case 2:
				score := rapid.Float64Range(0, 10).Draw(t, "resolve_score")
				_, err := m.AutoResolve(ctx, zoneID, &monmodel.RiskAssessment{
					ZoneID: zoneID, Score: score, Category: monmodel.CategoryForScore(score),
				})
				require.NoError(t, err)
			}

			active, err := store.Active(ctx)
			require.NoError(t, err)
			perZone := make(map[string]int)
			for _, a := range active {
				perZone[a.ZoneID]++
			}
			for zone, n := range perZone {
				require.LessOrEqual(t, n, 1, "zone %s has %d active alerts", zone, n)
			}
		}
	})
}
