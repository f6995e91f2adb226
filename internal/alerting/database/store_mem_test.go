package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slopewatch/slopewatch/internal/alerting/model"
)

func memAlert(zoneID string, created time.Time) *model.Alert {
	return &model.Alert{
		ZoneID:         zoneID,
		ZoneName:       zoneID,
		Level:          model.LevelWarning,
		RiskScore:      6.5,
		TriggerReasons: []string{model.ReasonHighDisplacement},
		Status:         model.StatusActive,
		CreatedAt:      created,
	}
}

func TestMemStoreAssignsMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a := memAlert("zone_a", base)
	b := memAlert("zone_b", base)
	require.NoError(t, store.Insert(ctx, a))
	require.NoError(t, store.Insert(ctx, b))

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)

	// Resolving never frees an id for reuse.
	require.NoError(t, store.Resolve(ctx, a.ID, base.Add(time.Hour), "done"))
	c := memAlert("zone_a", base.Add(2*time.Hour))
	require.NoError(t, store.Insert(ctx, c))
	assert.Equal(t, int64(3), c.ID)
}

func TestMemStoreResolve(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a := memAlert("zone_a", base)
	require.NoError(t, store.Insert(ctx, a))

	at := base.Add(time.Hour)
	require.NoError(t, store.Resolve(ctx, a.ID, at, "operator ack"))

	got, err := store.ActiveByZone(ctx, "zone_a")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, store.Resolve(ctx, a.ID, at, "again"), model.ErrNoActiveAlert)
	assert.ErrorIs(t, store.Resolve(ctx, 999, at, "missing"), model.ErrNoActiveAlert)
}

func TestMemStoreCopiesOnRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, memAlert("zone_a", base)))

	got, err := store.ActiveByZone(ctx, "zone_a")
	require.NoError(t, err)
	require.NotNil(t, got)
	got.Status = model.StatusResolved

	again, err := store.ActiveByZone(ctx, "zone_a")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, model.StatusActive, again.Status)
}

func TestMemStoreOrderingAndWindows(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, zone := range []string{"zone_a", "zone_b", "zone_a"} {
		a := memAlert(zone, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, store.Insert(ctx, a))
	}
	require.NoError(t, store.Resolve(ctx, 1, base.Add(90*time.Minute), "superseded"))

	active, err := store.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	// Active is oldest first.
	assert.Equal(t, int64(2), active[0].ID)
	assert.Equal(t, int64(3), active[1].ID)

	// Since and ByZoneSince are newest first and inclusive of the cutoff.
	since, err := store.Since(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, int64(3), since[0].ID)

	zoneHist, err := store.ByZoneSince(ctx, "zone_a", base)
	require.NoError(t, err)
	require.Len(t, zoneHist, 2)
	assert.Equal(t, int64(3), zoneHist[0].ID)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
