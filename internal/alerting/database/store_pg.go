package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/slopewatch/slopewatch/internal/alerting/model"
)

// PgStore is the PostgreSQL-backed alert store. The alerts table is
// append-only: rows are inserted once and only ever transition status to
// RESOLVED. Alert ids come from a BIGSERIAL so they are monotonic and never
// reused.
type PgStore struct {
	DB *Database
}

func NewPgStore(db *Database) *PgStore { return &PgStore{DB: db} }

const alertColumns = `id, zone_id, zone_name, alert_level, risk_score, trigger_reasons,
recommended_action, status, created_at, resolved_at, resolution_notes, sensor_snapshot`

// Insert persists a new ACTIVE alert and assigns its id.
func (s *PgStore) Insert(ctx context.Context, a *model.Alert) error {
	snapshot, err := json.Marshal(a.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal sensor snapshot: %w", err)
	}
	const q = `
	INSERT INTO alerts(zone_id, zone_name, alert_level, risk_score, trigger_reasons,
		recommended_action, status, created_at, sensor_snapshot)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
	RETURNING id`
	row := s.DB.QueryRowContext(ctx, q,
		a.ZoneID, a.ZoneName, string(a.Level), a.RiskScore, pq.Array(a.TriggerReasons),
		a.RecommendedAction, string(a.Status), a.CreatedAt, string(snapshot))
	if err := row.Scan(&a.ID); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Resolve marks an alert RESOLVED. Resolving an already-resolved or unknown
// alert returns model.ErrNoActiveAlert.
func (s *PgStore) Resolve(ctx context.Context, id int64, at time.Time, notes string) error {
	const q = `
	UPDATE alerts SET status = 'RESOLVED', resolved_at = $2, resolution_notes = $3
	WHERE id = $1 AND status = 'ACTIVE'
	RETURNING id`
	var resolved int64
	if err := s.DB.QueryRowContext(ctx, q, id, at, notes).Scan(&resolved); err != nil {
		if err == sql.ErrNoRows {
			return model.ErrNoActiveAlert
		}
		return fmt.Errorf("resolve alert %d: %w", id, err)
	}
	return nil
}

// ActiveByZone returns the zone's ACTIVE alert, or nil when the zone is quiet.
func (s *PgStore) ActiveByZone(ctx context.Context, zoneID string) (*model.Alert, error) {
	q := fmt.Sprintf(`SELECT %s FROM alerts WHERE zone_id = $1 AND status = 'ACTIVE' ORDER BY id DESC LIMIT 1`, alertColumns)
	rows, err := s.DB.QueryContext(ctx, q, zoneID)
	if err != nil {
		return nil, fmt.Errorf("query active alert for zone %s: %w", zoneID, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanAlert(rows)
}

// Active lists all ACTIVE alerts ordered by creation.
func (s *PgStore) Active(ctx context.Context) ([]*model.Alert, error) {
	q := fmt.Sprintf(`SELECT %s FROM alerts WHERE status = 'ACTIVE' ORDER BY id ASC`, alertColumns)
	return s.queryAlerts(ctx, q)
}

// Since lists alerts created at or after the cutoff, newest first.
func (s *PgStore) Since(ctx context.Context, since time.Time) ([]*model.Alert, error) {
	q := fmt.Sprintf(`SELECT %s FROM alerts WHERE created_at >= $1 ORDER BY id DESC`, alertColumns)
	return s.queryAlerts(ctx, q, since)
}

// ByZoneSince lists one zone's alerts created at or after the cutoff, newest first.
func (s *PgStore) ByZoneSince(ctx context.Context, zoneID string, since time.Time) ([]*model.Alert, error) {
	q := fmt.Sprintf(`SELECT %s FROM alerts WHERE zone_id = $1 AND created_at >= $2 ORDER BY id DESC`, alertColumns)
	return s.queryAlerts(ctx, q, zoneID, since)
}

// Count returns the total number of alert records ever created.
func (s *PgStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return n, nil
}

func (s *PgStore) queryAlerts(ctx context.Context, q string, args ...any) ([]*model.Alert, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()
	var out []*model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAlert(rows *sql.Rows) (*model.Alert, error) {
	var a model.Alert
	var level, status string
	var reasons pq.StringArray
	var resolvedAt sql.NullTime
	var notes sql.NullString
	var snapshot []byte
	if err := rows.Scan(&a.ID, &a.ZoneID, &a.ZoneName, &level, &a.RiskScore, &reasons,
		&a.RecommendedAction, &status, &a.CreatedAt, &resolvedAt, &notes, &snapshot); err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	a.Level = model.Level(level)
	a.Status = model.Status(status)
	a.TriggerReasons = []string(reasons)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	if notes.Valid {
		a.ResolutionNotes = notes.String
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &a.Snapshot); err != nil {
			return nil, fmt.Errorf("decode sensor snapshot: %w", err)
		}
	}
	return &a, nil
}
