// Package directory keeps the campus building directory in a single JSON file
// and re-scrapes it when the file goes stale.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/randytsao24/stopfinder/internal/metrics"
	"github.com/randytsao24/stopfinder/internal/models"
)

// State describes the cache file
type State int

const (
	Missing State = iota
	Empty
	Stale
	Fresh
)

func (s State) String() string {
	switch s {
	case Missing:
		return "missing"
	case Empty:
		return "empty"
	case Stale:
		return "stale"
	case Fresh:
		return "fresh"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// RefreshFunc builds a new directory from the source of truth
type RefreshFunc func(ctx context.Context) (models.BuildingDirectory, error)

// Store is a file-backed building directory. The file's modification time
// decides staleness; nothing about it is kept in memory between calls.
type Store struct {
	path    string
	maxAge  time.Duration
	refresh RefreshFunc
	logger  *slog.Logger
	now     func() time.Time

	mu sync.Mutex
}

// NewStore creates a store over path that refreshes once the file is older than maxAge
func NewStore(path string, maxAge time.Duration, refresh RefreshFunc, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:    path,
		maxAge:  maxAge,
		refresh: refresh,
		logger:  logger,
		now:     time.Now,
	}
}

// GetOrRefresh is a one-shot form of Store.GetOrRefresh
func GetOrRefresh(ctx context.Context, path string, maxAge time.Duration, refresh RefreshFunc) (models.BuildingDirectory, error) {
	return NewStore(path, maxAge, refresh, nil).GetOrRefresh(ctx)
}

// Path returns the cache file location
func (s *Store) Path() string {
	return s.path
}

// State reports the current state of the cache file
func (s *Store) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Store) state() (State, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Missing, nil
	}
	if err != nil {
		return Missing, fmt.Errorf("checking cache file: %w", err)
	}
	if info.Size() == 0 {
		return Empty, nil
	}
	if s.now().Sub(info.ModTime()) > s.maxAge {
		return Stale, nil
	}
	return Fresh, nil
}

// GetOrRefresh returns the cached directory, rebuilding it first when the
// file is missing, empty or stale. Only one refresh runs per store at a time.
func (s *Store) GetOrRefresh(ctx context.Context) (models.BuildingDirectory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state()
	if err != nil {
		return nil, err
	}

	switch state {
	case Missing:
		if err := s.touch(); err != nil {
			return nil, err
		}
	case Fresh:
		dir, err := Load(s.path)
		if err == nil {
			return dir, nil
		}
		s.logger.Warn("cache file unreadable, refreshing", "path", s.path, "error", err)
	}

	return s.rebuild(ctx, state)
}

func (s *Store) rebuild(ctx context.Context, from State) (models.BuildingDirectory, error) {
	s.logger.Info("refreshing building directory", "path", s.path, "state", from.String())
	start := time.Now()

	dir, err := s.refresh(ctx)
	metrics.ObserveRefresh(err)
	if err != nil {
		return nil, fmt.Errorf("refreshing building directory: %w", err)
	}

	if err := Save(s.path, dir); err != nil {
		return nil, err
	}

	s.logger.Info("building directory refreshed",
		"buildings", len(dir),
		"duration", time.Since(start).String(),
	)
	return dir, nil
}

func (s *Store) touch() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	return f.Close()
}

// Load reads a directory from path. An empty file is an empty directory.
func Load(path string) (models.BuildingDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	dir := models.BuildingDirectory{}
	if len(bytes.TrimSpace(data)) == 0 {
		return dir, nil
	}
	if err := json.Unmarshal(data, &dir); err != nil {
		return nil, fmt.Errorf("parsing cache file: %w", err)
	}
	return dir, nil
}

// Save atomically replaces path with dir. A directory with no buildings is
// written as an empty file so the next read triggers a refresh.
func Save(path string, dir models.BuildingDirectory) error {
	var data []byte
	if len(dir) > 0 {
		var err error
		data, err = json.MarshalIndent(dir, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding directory: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting cache file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}
