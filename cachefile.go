package hotpath

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// cacheFileName is the durable record inside the cache base directory.
const cacheFileName = "hotpath.json"

// Record is the durable calibration record: an open JSON object. Only the
// "small" and "med" keys are interpreted; unknown keys written by other tools
// or newer versions round-trip untouched.
type Record map[string]any

// Int extracts a non-negative integer value for key. JSON numbers decode as
// float64, so both forms are accepted. Negative, fractional, or non-numeric
// values are treated as absent.
func (r Record) Int(key string) (int, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		if n < 0 || n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Store loads and saves the durable calibration record. The on-disk file is
// the single source of truth across process restarts; in-memory health state
// is never persisted.
type Store struct {
	dir string
	log *slog.Logger
}

// NewStore creates a store rooted at dir. An empty dir selects the per-user
// cache location (HOTPATH_CACHE override, else os.UserCacheDir). A leading
// "~" is expanded and the path cleaned.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: resolveCacheDir(dir), log: logger}
}

func resolveCacheDir(dir string) string {
	if dir == "" {
		dir = os.Getenv("HOTPATH_CACHE")
	}
	if dir == "" {
		if base, err := os.UserCacheDir(); err == nil {
			return filepath.Join(base, "hotpath")
		}
		// Last resort: relative to the working directory.
		return ".hotpath"
	}
	if dir == "~" || strings.HasPrefix(dir, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
	}
	return filepath.Clean(dir)
}

// Path returns the location of the durable record.
func (s *Store) Path() string {
	return filepath.Join(s.dir, cacheFileName)
}

// Load reads the durable record. An absent, unreadable, or malformed file
// degrades to an empty record; persistence problems never surface to
// dispatch callers.
func (s *Store) Load() Record {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Debug("calibration record unreadable", "path", s.Path(), "err", err)
		}
		return Record{}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Debug("calibration record malformed", "path", s.Path(), "err", err)
		return Record{}
	}
	return rec
}

// Save writes the full record crash-safely: the content goes to a temporary
// file in the target directory, is forced to durable storage, and then
// atomically replaces the target path. A concurrent or crashed reader sees
// either the old record or the new one, never a partial write.
func (s *Store) Save(rec Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode calibration record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".hotpath-*.json")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("write temp record: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync temp record: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp record: %w", err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace calibration record: %w", err)
	}
	return nil
}
