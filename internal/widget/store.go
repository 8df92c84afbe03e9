package widget

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const reloadDebounce = 150 * time.Millisecond

type storeFile struct {
	Widgets []storeEntry `yaml:"widgets"`
}

type storeEntry struct {
	ID     string         `yaml:"id"`
	Kind   Kind           `yaml:"kind"`
	Config map[string]any `yaml:"config"`
}

// Parse decodes a widget store document. Schema issues are kept on each
// widget; structural problems (bad YAML, unknown kind, duplicate id) fail.
func Parse(data []byte) ([]*Widget, error) {
	var doc storeFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("widget: parse store: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Widgets))
	out := make([]*Widget, 0, len(doc.Widgets))
	for i, e := range doc.Widgets {
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("widget: duplicate id %q at index %d", e.ID, i)
		}
		seen[e.ID] = struct{}{}
		w, err := Decode(e.ID, e.Kind, e.Config)
		if err != nil {
			return nil, fmt.Errorf("widget: entry %d: %w", i, err)
		}
		out = append(out, w)
	}
	return out, nil
}

// Store holds the decoded widgets of one store file.
type Store struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	byID    map[string]*Widget
	ordered []*Widget
	version uint64
}

// Open loads the store file at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{path: path, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStore builds an in-memory store, mostly for tests and previews.
func NewStore(widgets ...*Widget) *Store {
	s := &Store{logger: zap.NewNop()}
	s.replace(widgets)
	return s
}

// Reload re-reads the file. On failure the previous widgets stay in place.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("widget: read store: %w", err)
	}
	widgets, err := Parse(data)
	if err != nil {
		return err
	}
	for _, w := range widgets {
		for _, is := range w.Issues {
			s.logger.Warn("widget config field fell back to default",
				zap.String("widget_id", w.ID),
				zap.String("kind", string(w.Kind)),
				zap.String("field", is.Field),
				zap.String("reason", is.Reason),
			)
		}
	}
	s.replace(widgets)
	return nil
}

func (s *Store) replace(widgets []*Widget) {
	byID := make(map[string]*Widget, len(widgets))
	for _, w := range widgets {
		byID[w.ID] = w
	}
	s.mu.Lock()
	s.byID = byID
	s.ordered = widgets
	s.version++
	s.mu.Unlock()
}

// Get returns the widget with id or ErrNotFound.
func (s *Store) Get(id string) (*Widget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return w, nil
}

// List returns widgets in file order.
func (s *Store) List() []*Widget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Widget(nil), s.ordered...)
}

// Version increments on every successful load.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Watch reloads the store whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file by
// rename are picked up.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return fmt.Errorf("widget: store has no backing file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("widget: create watcher: %w", err)
	}
	abs, err := filepath.Abs(s.path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("widget: resolve store path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("widget: watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				if err := s.Reload(); err != nil {
					s.logger.Error("widget store reload failed", zap.String("path", s.path), zap.Error(err))
					continue
				}
				s.logger.Info("widget store reloaded", zap.String("path", s.path), zap.Uint64("version", s.Version()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("widget store watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
