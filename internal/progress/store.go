package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// DateLayout is the key format for days in the progress file.
const DateLayout = "2006-01-02"

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
)

// fileState is the on-disk JSON document.
type fileState struct {
	CompletedDays  []string       `json:"completed_days"`
	LastUpdated    string         `json:"last_updated"`
	TotalCompleted int            `json:"total_completed"`
	TotalPoints    int            `json:"total_points"`
	PointsByDay    map[string]int `json:"points_by_day"`
}

// Snapshot is an immutable copy of the progress state.
type Snapshot struct {
	// Completed holds completed days as YYYY-MM-DD, sorted ascending.
	Completed   []string
	PointsByDay map[string]int
	TotalPoints int
	LastUpdated time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithoutPersistence makes the store read the file at most once and never
// write or delete it. Used for dry runs.
func WithoutPersistence() Option {
	return func(s *Store) {
		s.persist = false
	}
}

// Store is the file-backed record of which days have been imported.
//
// Only the backfill engine mutates a Store. Readers such as the status
// endpoint use Snapshot, which copies under the lock.
type Store struct {
	path    string
	persist bool
	loaded  bool
	now     func() time.Time

	mu          sync.RWMutex
	completed   map[string]struct{}
	pointsByDay map[string]int
	totalPoints int
	lastUpdated time.Time
	dirty       bool
}

// New creates a store for the given file. Call Load before use.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:        path,
		persist:     true,
		now:         time.Now,
		completed:   make(map[string]struct{}),
		pointsByDay: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the progress file location.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory state with the file's contents.
//
// A missing file yields empty state. A file that exists but cannot be
// parsed is an error wrapping ErrCorrupt: progress is never discarded
// silently. Without persistence only the first call reads the file, so
// reloading does not drop days marked during a dry run.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.persist && s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.clearLocked()
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading progress file: %w", err)
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorrupt, s.path, err)
	}

	s.clearLocked()
	for _, day := range st.CompletedDays {
		s.completed[day] = struct{}{}
	}
	for day, n := range st.PointsByDay {
		s.pointsByDay[day] = n
	}
	s.totalPoints = st.TotalPoints
	s.lastUpdated = parseLastUpdated(st.LastUpdated)
	s.loaded = true

	return nil
}

// IsCompleted reports whether day has been imported.
func (s *Store) IsCompleted(day time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.completed[day.Format(DateLayout)]
	return ok
}

// MarkCompleted records day as imported with the given point count.
//
// Marking a day twice is safe: the per-day count is replaced and points are
// added to the total again. Per-day counts are only kept when points > 0.
func (s *Store) MarkCompleted(day time.Time, points int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := day.Format(DateLayout)
	s.completed[key] = struct{}{}
	if points > 0 {
		s.pointsByDay[key] = points
	}
	s.totalPoints += points
	s.dirty = true
}

// TotalPoints returns the running total of imported points.
func (s *Store) TotalPoints() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalPoints
}

// Dirty reports whether there are changes not yet saved.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Save writes the full state atomically: a temp file in the same directory
// is written, synced and renamed over the progress file.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// SaveIfDirty saves only when the state changed since the last save.
func (s *Store) SaveIfDirty() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.saveLocked()
}

// Reset discards all progress and removes the file.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	s.loaded = true
	if !s.persist {
		return nil
	}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: removing %s: %w", ErrPersist, s.path, err)
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Completed:   s.sortedDaysLocked(),
		PointsByDay: make(map[string]int, len(s.pointsByDay)),
		TotalPoints: s.totalPoints,
		LastUpdated: s.lastUpdated,
	}
	for day, n := range s.pointsByDay {
		snap.PointsByDay[day] = n
	}
	return snap
}

func (s *Store) saveLocked() error {
	s.lastUpdated = s.now().UTC()

	if !s.persist {
		s.dirty = false
		return nil
	}

	days := s.sortedDaysLocked()
	st := fileState{
		CompletedDays:  days,
		LastUpdated:    s.lastUpdated.Format(time.RFC3339),
		TotalCompleted: len(days),
		TotalPoints:    s.totalPoints,
		PointsByDay:    s.pointsByDay,
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding: %w", ErrPersist, err)
	}

	if err := atomicWriteFile(s.path, append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	s.dirty = false
	return nil
}

func (s *Store) clearLocked() {
	s.completed = make(map[string]struct{})
	s.pointsByDay = make(map[string]int)
	s.totalPoints = 0
	s.lastUpdated = time.Time{}
	s.dirty = false
}

func (s *Store) sortedDaysLocked() []string {
	days := make([]string, 0, len(s.completed))
	for day := range s.completed {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

// parseLastUpdated accepts RFC 3339 and the zone-less ISO form. Anything
// else leaves the timestamp unknown rather than failing the load.
func parseLastUpdated(v string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// atomicWriteFile writes data to a temp file in the target directory, then
// renames it over path so readers never observe a partial file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("creating progress directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".progress-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	// Clean up the temp file on any error path.
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, filePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true
	return nil
}
