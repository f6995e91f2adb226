package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/slopewatch/slopewatch/internal/alerting/model"
)

// MemStore is a map-backed alert store for tests and store-less runs. It
// keeps full append-only history and assigns monotonic ids from a counter.
type MemStore struct {
	mu     sync.Mutex
	nextID int64
	alerts map[int64]*model.Alert
}

func NewMemStore() *MemStore {
	return &MemStore{nextID: 1, alerts: make(map[int64]*model.Alert)}
}

func (s *MemStore) Insert(ctx context.Context, a *model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID
	s.nextID++
	cp := *a
	s.alerts[cp.ID] = &cp
	return nil
}

func (s *MemStore) Resolve(ctx context.Context, id int64, at time.Time, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok || a.Status != model.StatusActive {
		return model.ErrNoActiveAlert
	}
	a.Status = model.StatusResolved
	t := at
	a.ResolvedAt = &t
	a.ResolutionNotes = notes
	return nil
}

func (s *MemStore) ActiveByZone(ctx context.Context, zoneID string) (*model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.Alert
	for _, a := range s.alerts {
		if a.ZoneID == zoneID && a.Status == model.StatusActive {
			if latest == nil || a.ID > latest.ID {
				latest = a
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *MemStore) Active(ctx context.Context) ([]*model.Alert, error) {
	return s.filter(func(a *model.Alert) bool { return a.Status == model.StatusActive }, true), nil
}

func (s *MemStore) Since(ctx context.Context, since time.Time) ([]*model.Alert, error) {
	return s.filter(func(a *model.Alert) bool { return !a.CreatedAt.Before(since) }, false), nil
}

func (s *MemStore) ByZoneSince(ctx context.Context, zoneID string, since time.Time) ([]*model.Alert, error) {
	return s.filter(func(a *model.Alert) bool {
		return a.ZoneID == zoneID && !a.CreatedAt.Before(since)
	}, false), nil
}

func (s *MemStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts), nil
}

func (s *MemStore) filter(keep func(*model.Alert) bool, ascending bool) []*model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Alert
	for _, a := range s.alerts {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})
	return out
}
