package zoneconfig

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch reloads the store whenever the backing file changes. It blocks until
// ctx is cancelled, so callers normally run it in a goroutine. The directory
// is watched rather than the file itself so atomic rename-style rewrites are
// picked up.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	base := filepath.Base(s.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := s.Reload(); err != nil {
				log.Error().Err(err).Str("file", s.path).Msg("zone config reload failed, keeping previous snapshot")
				continue
			}
			log.Info().Str("file", s.path).Int("zones", len(s.Zones())).Msg("zone config reloaded")
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(werr).Msg("zone config watcher error")
		}
	}
}
