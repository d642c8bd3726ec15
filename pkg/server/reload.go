package server

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/getmockd/soapd/pkg/config"
	"github.com/getmockd/soapd/pkg/scripted"
)

// ReloadDebounce coalesces bursts of file events into one reload.
const ReloadDebounce = 150 * time.Millisecond

// ErrNoSource is returned by Reload when the config was not loaded from a file.
var ErrNoSource = errors.New("config has no source file")

// Reload re-reads the service file and replaces the registered operations.
// On any error the running operations are kept. Only operations are
// reloaded; endpoint settings need a restart.
func (s *Server) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	err := s.reload()
	if s.metrics != nil {
		s.metrics.ObserveReload(err)
	}
	if err != nil {
		s.logger.Error("config reload failed, keeping old operations", "error", err)
		return err
	}
	return nil
}

func (s *Server) reload() error {
	prev := s.Config()
	path := prev.Source()
	if path == "" {
		return ErrNoSource
	}
	s.logger.Info("reloading configuration", "path", path)

	next, err := config.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	ops, err := scripted.BuildAll(next.Operations, s.compiler)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	before := s.engine.Registry().Len()
	if err := s.engine.Registry().Replace(ops); err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	s.updateOperationsGauge()
	logChanges(s.logger, prev, next)
	s.cfg.Store(prev.WithOperationsFrom(next))

	s.logger.Info("configuration reloaded",
		"operations_before", before,
		"operations_after", len(ops),
	)
	if s.watcher != nil {
		s.watchDirs(next.Files())
	}
	return nil
}

func logChanges(logger *slog.Logger, prev, next *config.ServiceConfig) {
	if prev.Address != next.Address {
		logger.Warn("address changed, restart required", "old", prev.Address, "new", next.Address)
	}
	if prev.Path != next.Path {
		logger.Warn("path changed, restart required", "old", prev.Path, "new", next.Path)
	}
	if prev.Namespace != next.Namespace || prev.Name != next.Name {
		logger.Warn("service identity changed, restart required")
	}
}

// Watch starts reloading whenever the service file or an included file
// changes. It returns ErrNoSource for configs not loaded from a file.
func (s *Server) Watch() error {
	cfg := s.Config()
	if cfg.Source() == "" {
		return ErrNoSource
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	s.reloadMu.Lock()
	s.watcher = watcher
	s.watchDirs(cfg.Files())
	s.reloadMu.Unlock()

	go s.watchLoop(watcher)

	s.logger.Info("watching config files for changes", "files", len(cfg.Files()))
	return nil
}

// watchDirs adds the directory of every file. Directories are watched
// instead of files so atomic saves are seen.
func (s *Server) watchDirs(files []string) {
	watched := make(map[string]bool)
	for _, p := range s.watcher.WatchList() {
		watched[p] = true
	}
	for _, f := range files {
		dir := filepath.Dir(absPath(f))
		if watched[dir] {
			continue
		}
		if err := s.watcher.Add(dir); err != nil {
			s.logger.Warn("cannot watch directory", "dir", dir, "error", err)
			continue
		}
		watched[dir] = true
	}
}

func (s *Server) watchLoop(watcher *fsnotify.Watcher) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !s.relevant(event) {
				continue
			}
			s.logger.Debug("config file changed", "event", event.Op.String(), "file", event.Name)
			if timer == nil {
				timer = time.AfterFunc(ReloadDebounce, func() {
					select {
					case <-s.stopCh:
					default:
						_ = s.Reload()
					}
				})
			} else {
				timer.Reset(ReloadDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("file watcher error", "error", err)

		case <-s.stopCh:
			return
		}
	}
}

// relevant reports whether event touches a tracked file, or creates a YAML
// file that an include glob may now match.
func (s *Server) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}

	files := s.Config().Files()
	name := absPath(event.Name)
	for _, f := range files {
		if absPath(f) == name {
			return true
		}
	}
	ext := strings.ToLower(filepath.Ext(name))
	return event.Has(fsnotify.Create) && (ext == ".yaml" || ext == ".yml")
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
