package zoneconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultStability is assumed for zones without a configured stability rating
// and for zone IDs not present in the config at all.
const DefaultStability = 0.5

// Thresholds holds the per-zone alerting thresholds. Values are positive
// sensor levels; a zero value disables the corresponding check.
type Thresholds struct {
	DisplacementWarning  float64 `json:"displacement_warning" yaml:"displacement_warning"`
	DisplacementCritical float64 `json:"displacement_critical" yaml:"displacement_critical"`
	VibrationWarning     float64 `json:"vibration_warning" yaml:"vibration_warning"`
	VibrationCritical    float64 `json:"vibration_critical" yaml:"vibration_critical"`
}

type Characteristics struct {
	StabilityRating float64 `json:"stability_rating" yaml:"stability_rating"`
}

// Zone is one monitored area with its descriptive metadata and thresholds.
type Zone struct {
	ID              string          `json:"zone_id" yaml:"zone_id"`
	Name            string          `json:"zone_name" yaml:"zone_name"`
	Characteristics Characteristics `json:"characteristics" yaml:"characteristics"`
	Thresholds      Thresholds      `json:"risk_thresholds" yaml:"risk_thresholds"`
}

// Provider is the read-only view the engine consumes.
type Provider interface {
	Zones() []Zone
	Zone(id string) (Zone, bool)
	Thresholds(id string) (Thresholds, bool)
	Stability(id string) float64
}

// Store holds an atomically swappable snapshot of the zone config.
type Store struct {
	path string

	mu    sync.RWMutex
	zones []Zone
	byID  map[string]Zone
}

type zonesFile struct {
	Zones []Zone `json:"zones" yaml:"zones"`
}

// Load reads the zone file at path and returns a Store backed by it.
// Both JSON and YAML files are accepted; the top level may be either a bare
// array of zones or an object with a "zones" key.
func Load(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing file and swaps the snapshot.
func (s *Store) Reload() error {
	zones, err := readZones(s.path)
	if err != nil {
		return err
	}
	byID := make(map[string]Zone, len(zones))
	for _, z := range zones {
		byID[z.ID] = z
	}
	s.mu.Lock()
	s.zones = zones
	s.byID = byID
	s.mu.Unlock()
	return nil
}

func readZones(path string) ([]Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones file %s: %w", path, err)
	}

	unmarshal := json.Unmarshal
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	}

	var wrapped zonesFile
	if err := unmarshal(data, &wrapped); err == nil && len(wrapped.Zones) > 0 {
		return validate(wrapped.Zones, path)
	}
	var bare []Zone
	if err := unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("parse zones file %s: %w", path, err)
	}
	return validate(bare, path)
}

func validate(zones []Zone, path string) ([]Zone, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("zones file %s contains no zones", path)
	}
	for i, z := range zones {
		if z.ID == "" {
			return nil, fmt.Errorf("zones file %s: zone %d missing zone_id", path, i)
		}
	}
	return zones, nil
}

func (s *Store) Zones() []Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Zone, len(s.zones))
	copy(out, s.zones)
	return out
}

func (s *Store) Zone(id string) (Zone, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.byID[id]
	return z, ok
}

func (s *Store) Thresholds(id string) (Thresholds, bool) {
	z, ok := s.Zone(id)
	return z.Thresholds, ok
}

// Stability returns the zone stability multiplier in (0,1]. Unknown zones and
// zones with no configured rating fall back to DefaultStability.
func (s *Store) Stability(id string) float64 {
	z, ok := s.Zone(id)
	if !ok || z.Characteristics.StabilityRating <= 0 {
		return DefaultStability
	}
	return z.Characteristics.StabilityRating
}
