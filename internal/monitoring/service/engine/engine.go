// Package engine runs evaluation cycles: one ingested batch flows through
// cleaning, feature engineering, risk scoring, anomaly detection, threshold
// evaluation, and the alert lifecycle, zone by zone.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/slopewatch/slopewatch/internal/alerting/service/evaluator"
	"github.com/slopewatch/slopewatch/internal/alerting/service/lifecycle"
	"github.com/slopewatch/slopewatch/internal/monitoring/cache"
	"github.com/slopewatch/slopewatch/internal/monitoring/classifier"
	"github.com/slopewatch/slopewatch/internal/monitoring/metrics"
	"github.com/slopewatch/slopewatch/internal/monitoring/model"
	"github.com/slopewatch/slopewatch/internal/monitoring/service/pipeline"
	"github.com/slopewatch/slopewatch/internal/zoneconfig"
)

type Engine struct {
	zones      zoneconfig.Provider
	lifecycle  *lifecycle.Manager
	riskCache  *cache.RiskCache
	classifier classifier.Classifier
	workers    int

	mu          sync.RWMutex
	assessments map[string]*model.RiskAssessment
	lastReport  *model.CycleReport
}

type Option func(*Engine)

// WithClassifier wires the optional risk classifier. The rule-based path is
// fully functional without one.
func WithClassifier(c classifier.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

func WithRiskCache(rc *cache.RiskCache) Option {
	return func(e *Engine) { e.riskCache = rc }
}

// WithWorkers bounds the number of zones evaluated concurrently per cycle.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func New(zones zoneconfig.Provider, lc *lifecycle.Manager, opts ...Option) *Engine {
	e := &Engine{
		zones:       zones,
		lifecycle:   lc,
		workers:     4,
		assessments: make(map[string]*model.RiskAssessment),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type zoneResult struct {
	zoneID     string
	summary    model.ZoneSummary
	assessment *model.RiskAssessment
	anomalies  []model.Anomaly
	err        error
}

// RunCycle processes one batch. Zones are independent and evaluated
// concurrently; each zone's lifecycle transition is a single atomic commit,
// so cancelling the context mid-cycle abandons unprocessed zones without
// corrupting state. Per-zone failures are joined into the returned error but
// do not stop other zones.
func (e *Engine) RunCycle(ctx context.Context, batch []model.RawReading) (*model.CycleReport, error) {
	started := time.Now()
	cycleID := uuid.NewString()

	cleaned := pipeline.Clean(batch, e.zones)
	metrics.ReadingsDropped.Add(float64(cleaned.Dropped))

	report := &model.CycleReport{
		CycleID:        cycleID,
		ProcessedAt:    started,
		TotalRecords:   len(batch) - cleaned.Dropped,
		DroppedRecords: cleaned.Dropped,
		ZonesProcessed: len(cleaned.ByZone),
		ZoneSummaries:  make(map[string]model.ZoneSummary, len(cleaned.ByZone)),
	}

	zoneIDs := make(chan string)
	results := make(chan zoneResult, len(cleaned.ByZone))

	var wg sync.WaitGroup
	workers := e.workers
	if workers > len(cleaned.ByZone) && len(cleaned.ByZone) > 0 {
		workers = len(cleaned.ByZone)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for zoneID := range zoneIDs {
				results <- e.processZone(ctx, zoneID, cleaned.ByZone[zoneID])
			}
		}()
	}

feed:
	for zoneID := range cleaned.ByZone {
		select {
		case <-ctx.Done():
			break feed
		case zoneIDs <- zoneID:
		}
	}
	close(zoneIDs)
	wg.Wait()
	close(results)

	var errs []error
	for res := range results {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("zone %s: %w", res.zoneID, res.err))
			continue
		}
		report.ZoneSummaries[res.zoneID] = res.summary
		report.Anomalies = append(report.Anomalies, res.anomalies...)
		if res.assessment != nil {
			e.mu.Lock()
			e.assessments[res.zoneID] = res.assessment
			e.mu.Unlock()
		}
	}

	e.mu.Lock()
	e.lastReport = report
	e.mu.Unlock()

	metrics.ReadingsProcessed.Add(float64(report.TotalRecords))
	metrics.CycleDuration.Observe(time.Since(started).Seconds())
	log.Info().Str("cycle", cycleID).Int("records", report.TotalRecords).
		Int("dropped", report.DroppedRecords).Int("zones", report.ZonesProcessed).
		Int("anomalies", len(report.Anomalies)).Dur("took", time.Since(started)).
		Msg("evaluation cycle complete")

	if ctxErr := ctx.Err(); ctxErr != nil {
		errs = append(errs, ctxErr)
	}
	return report, errors.Join(errs...)
}

func (e *Engine) processZone(ctx context.Context, zoneID string, readings []model.SensorReading) zoneResult {
	res := zoneResult{zoneID: zoneID}

	featured := pipeline.EngineerFeatures(readings, e.zones)
	assessment := pipeline.ScoreZone(featured)
	anomalies := pipeline.DetectAnomalies(featured)
	for _, an := range anomalies {
		metrics.AnomaliesDetected.WithLabelValues(an.Type, string(an.Severity)).Inc()
	}

	if e.classifier != nil && assessment != nil {
		latest := featured[len(featured)-1]
		if pred, err := e.classifier.Predict(ctx, latest.Features, assessment); err != nil {
			log.Warn().Err(err).Str("zone", zoneID).Msg("classifier unavailable, using rule-based score")
		} else {
			classifier.Apply(assessment, pred)
		}
	}

	res.assessment = assessment
	res.anomalies = anomalies
	res.summary = summarize(readings, assessment, len(anomalies))
	if assessment != nil {
		metrics.ZoneRiskScore.WithLabelValues(zoneID).Set(assessment.Score)
		if e.riskCache != nil {
			if err := e.riskCache.Put(ctx, assessment); err != nil {
				log.Warn().Err(err).Str("zone", zoneID).Msg("risk cache write failed")
			}
		}
	}

	thresholds, ok := e.zones.Thresholds(zoneID)
	if !ok {
		// Without thresholds no alert may be raised or resolved this cycle.
		log.Warn().Str("zone", zoneID).Msg("no thresholds configured, skipping threshold evaluation")
		return res
	}

	latest := featured[len(featured)-1]
	cand := evaluator.Evaluate(latest.SensorReading, assessment, anomalies, thresholds)
	if cand != nil {
		if _, err := e.lifecycle.Apply(ctx, cand, latest.SensorReading); err != nil {
			res.err = err
		}
		return res
	}
	if _, err := e.lifecycle.AutoResolve(ctx, zoneID, assessment); err != nil {
		res.err = err
	}
	return res
}

func summarize(readings []model.SensorReading, assessment *model.RiskAssessment, anomalyCount int) model.ZoneSummary {
	s := model.ZoneSummary{RecordCount: len(readings), AnomalyCount: anomalyCount}
	if len(readings) == 0 {
		return s
	}
	var dSum, vSum float64
	for _, r := range readings {
		dSum += r.DisplacementMM
		vSum += r.VibrationMMS
		if r.DisplacementMM > s.MaxDisplacement {
			s.MaxDisplacement = r.DisplacementMM
		}
		if r.VibrationMMS > s.MaxVibration {
			s.MaxVibration = r.VibrationMMS
		}
	}
	s.AvgDisplacement = dSum / float64(len(readings))
	s.AvgVibration = vSum / float64(len(readings))
	if assessment != nil {
		s.RiskScore = assessment.Score
		s.RiskCategory = assessment.Category
	}
	return s
}

// Assessment returns the most recent risk assessment for a zone, if any.
func (e *Engine) Assessment(zoneID string) (*model.RiskAssessment, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.assessments[zoneID]
	return a, ok
}

// LastReport returns the most recent cycle report, if a cycle has run.
func (e *Engine) LastReport() *model.CycleReport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastReport
}
