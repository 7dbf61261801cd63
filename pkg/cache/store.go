// Package cache implements the persistent answer cache.
//
// A Store keeps every entry in an in-memory mirror, which is the source of
// truth for reads, and writes each mutation through to a Backend
// synchronously. Backend failures are reported as *StorageError but never
// roll back the mirror, so a process keeps answering from memory when its
// database becomes unwritable.
//
// Lookups try the exact key first (see Key) and fall back to similarity
// matching among entries of the same unit, task and question type.
package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/entrhq/autoanswer/pkg/logging"
	"github.com/entrhq/autoanswer/pkg/types"
)

// Default tuning values.
const (
	DefaultTTL                 = 30 * 24 * time.Hour
	DefaultCapacity            = 10000
	DefaultFuzzyThreshold      = 0.8
	DefaultConfidenceIncrement = 0.1
	DefaultConfidenceDecrement = 0.2
)

// Options tunes a Store. Zero fields take the defaults above.
type Options struct {
	TTL                 time.Duration
	Capacity            int
	FuzzyThreshold      float64
	ConfidenceIncrement float64
	ConfidenceDecrement float64

	// BackupPath is where Backup writes and Restore reads the snapshot.
	BackupPath string

	// BackupInterval enables an automatic backup after Put when the last
	// backup is older than the interval. Zero disables it.
	BackupInterval time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.FuzzyThreshold <= 0 {
		o.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if o.ConfidenceIncrement <= 0 {
		o.ConfidenceIncrement = DefaultConfidenceIncrement
	}
	if o.ConfidenceDecrement <= 0 {
		o.ConfidenceDecrement = DefaultConfidenceDecrement
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Match is the result of a successful Lookup.
type Match struct {
	Entry      Entry
	Fuzzy      bool
	Similarity float64
}

// CleanupReport counts the entries removed by Cleanup.
type CleanupReport struct {
	Expired int
	Evicted int
}

// Store is the answer cache.
type Store struct {
	mu         sync.Mutex
	backend    Backend
	entries    map[string]*Entry
	opts       Options
	log        logging.Leveled
	observer   types.Observer
	lastBackup time.Time
}

// New creates a Store over backend and loads the persisted entries into memory.
//
// The returned Store is always usable. A non-nil error is a *StorageError
// describing a failed load; the Store then starts empty.
func New(ctx context.Context, backend Backend, opts Options, log logging.Leveled, observer types.Observer) (*Store, error) {
	if log == nil {
		log = logging.Nop()
	}
	if observer == nil {
		observer = types.NopObserver{}
	}

	s := &Store{
		backend:  backend,
		entries:  make(map[string]*Entry),
		opts:     opts.withDefaults(),
		log:      log,
		observer: observer,
	}

	loaded, err := backend.LoadAll(ctx)
	if err != nil {
		serr := &StorageError{Op: "load", Err: err}
		s.warn(serr)
		return s, serr
	}
	for i := range loaded {
		e := loaded[i]
		s.entries[e.ID] = &e
	}
	s.log.Infof("loaded %d cache entries from %s backend", len(s.entries), backend.Name())
	return s, nil
}

// Put stores answer for q with the given confidence and returns the entry ID.
//
// An existing entry with the same key keeps its creation time, access
// statistics and verified flag; answer, text and confidence are replaced.
// A *StorageError means only the in-memory mirror was updated.
func (s *Store) Put(ctx context.Context, q types.QuestionInfo, answer string, confidence float64) (string, error) {
	return s.PutWithMetadata(ctx, q, answer, confidence, nil)
}

// PutWithMetadata is Put with extra metadata merged into the entry.
func (s *Store) PutWithMetadata(ctx context.Context, q types.QuestionInfo, answer string, confidence float64, metadata map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	e, err := s.upsertLocked(ctx, q, answer, confidence, metadata, nil, now)
	s.log.Infof("cached answer for %s / %s (%s)", q.Unit, q.Task, e.ID[:12])

	s.autoBackupLocked(ctx, now)
	return e.ID, err
}

// upsertLocked applies a put to the mirror and the backend. When history is
// non-nil its timestamps, access statistics and verified flag are merged into
// the entry before it is persisted.
func (s *Store) upsertLocked(ctx context.Context, q types.QuestionInfo, answer string, confidence float64, metadata map[string]any, history *Entry, now time.Time) (*Entry, error) {
	id := KeyFor(q)

	e, exists := s.entries[id]
	if !exists {
		e = &Entry{
			ID:        id,
			CreatedAt: now,
		}
		s.entries[id] = e
	}
	e.Unit = q.Unit
	e.Task = q.Task
	e.SubTask = q.SubTask
	e.QuestionType = q.Type
	e.QuestionText = q.Text
	e.CorrectAnswer = answer
	e.Confidence = ClampConfidence(confidence)
	e.UpdatedAt = now
	for k, v := range metadata {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[k] = v
	}
	if history != nil {
		mergeHistory(e, *history, !exists)
	}

	err := s.persist(ctx, "put", *e)

	s.observer.OnEvent(types.Event{
		Type:         types.EventTypeCacheStored,
		Time:         now,
		QuestionType: q.Type,
		EntryID:      id,
		Answer:       answer,
	})
	return e, err
}

// mergeHistory folds the age and usage of h into e. A fresh entry takes h's
// values as they are; an existing one keeps the earliest creation time and
// the larger access count.
func mergeHistory(e *Entry, h Entry, fresh bool) {
	if fresh {
		if !h.CreatedAt.IsZero() {
			e.CreatedAt = h.CreatedAt
		}
		if !h.UpdatedAt.IsZero() {
			e.UpdatedAt = h.UpdatedAt
		}
		e.AccessCount = h.AccessCount
		e.LastAccessed = h.LastAccessed
		e.Verified = h.Verified
		return
	}
	if !h.CreatedAt.IsZero() && h.CreatedAt.Before(e.CreatedAt) {
		e.CreatedAt = h.CreatedAt
	}
	if h.AccessCount > e.AccessCount {
		e.AccessCount = h.AccessCount
	}
	if h.LastAccessed.After(e.LastAccessed) {
		e.LastAccessed = h.LastAccessed
	}
	e.Verified = e.Verified || h.Verified
}

// Get returns the cached answer for q, if any.
func (s *Store) Get(ctx context.Context, q types.QuestionInfo) (string, bool) {
	m, ok := s.Lookup(ctx, q)
	if !ok {
		return "", false
	}
	return m.Entry.CorrectAnswer, true
}

// Lookup finds the entry for q by exact key, then by similarity.
// A hit increments the entry's access count and last-access time.
func (s *Store) Lookup(ctx context.Context, q types.QuestionInfo) (Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	id := KeyFor(q)

	if e, ok := s.entries[id]; ok {
		s.touchLocked(ctx, e, now)
		s.observer.OnEvent(types.Event{
			Type:         types.EventTypeCacheHit,
			Time:         now,
			QuestionType: q.Type,
			EntryID:      e.ID,
			Answer:       e.CorrectAnswer,
			Similarity:   1,
		})
		return Match{Entry: e.clone(), Similarity: 1}, true
	}

	best, score := s.fuzzyLocked(q)
	if best == nil {
		s.observer.OnEvent(types.Event{Type: types.EventTypeCacheMiss, Time: now, QuestionType: q.Type, EntryID: id})
		s.log.Debugf("no cached answer for %s / %s", q.Unit, q.Task)
		return Match{}, false
	}

	s.touchLocked(ctx, best, now)
	s.observer.OnEvent(types.Event{
		Type:         types.EventTypeCacheFuzzyHit,
		Time:         now,
		QuestionType: q.Type,
		EntryID:      best.ID,
		Answer:       best.CorrectAnswer,
		Similarity:   score,
	})
	s.log.Infof("fuzzy cache match %s with similarity %.2f", best.ID[:12], score)
	return Match{Entry: best.clone(), Fuzzy: true, Similarity: score}, true
}

// fuzzyLocked returns the best candidate sharing unit, task and type whose
// similarity reaches the threshold. Ties go to the most recently accessed.
func (s *Store) fuzzyLocked(q types.QuestionInfo) (*Entry, float64) {
	var (
		best      *Entry
		bestScore float64
	)
	for _, e := range s.entries {
		if e.Unit != q.Unit || e.Task != q.Task || e.QuestionType != q.Type {
			continue
		}
		score := Similarity(q.Text, e.QuestionText)
		if score < s.opts.FuzzyThreshold {
			continue
		}
		if best == nil || score > bestScore ||
			(score == bestScore && e.LastAccessed.After(best.LastAccessed)) {
			best, bestScore = e, score
		}
	}
	return best, bestScore
}

func (s *Store) touchLocked(ctx context.Context, e *Entry, now time.Time) {
	e.AccessCount++
	e.LastAccessed = now
	// Access statistics are best effort; the warning is already logged
	_ = s.persist(ctx, "touch", *e)
}

// Verify records an observed correctness result for entry id.
// The entry becomes verified; confidence moves up by the increment when
// correct and down by the decrement otherwise, clamped to [0.1, 1.0].
// It returns false when the entry does not exist.
func (s *Store) Verify(ctx context.Context, id string, correct bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return false
	}

	now := s.opts.Now()
	e.Verified = true
	if correct {
		e.Confidence = ClampConfidence(e.Confidence + s.opts.ConfidenceIncrement)
	} else {
		e.Confidence = ClampConfidence(e.Confidence - s.opts.ConfidenceDecrement)
	}
	e.UpdatedAt = now

	_ = s.persist(ctx, "verify", *e)

	s.observer.OnEvent(types.Event{
		Type:         types.EventTypeVerificationResult,
		Time:         now,
		QuestionType: e.QuestionType,
		EntryID:      id,
		Answer:       e.CorrectAnswer,
		Correct:      correct,
	})
	s.log.Infof("verified %s correct=%t confidence=%.2f", id[:min(12, len(id))], correct, e.Confidence)
	return true
}

// Cleanup removes entries older than the TTL, then evicts the least used
// entries, ordered by (access count, last access), until the capacity holds.
func (s *Store) Cleanup(ctx context.Context) (CleanupReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	var report CleanupReport

	var expired []string
	for id, e := range s.entries {
		if now.Sub(e.CreatedAt) > s.opts.TTL {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.entries, id)
	}
	report.Expired = len(expired)

	var evicted []string
	if surplus := len(s.entries) - s.opts.Capacity; surplus > 0 {
		ordered := make([]*Entry, 0, len(s.entries))
		for _, e := range s.entries {
			ordered = append(ordered, e)
		}
		sort.Slice(ordered, func(i, j int) bool {
			a, b := ordered[i], ordered[j]
			if a.AccessCount != b.AccessCount {
				return a.AccessCount < b.AccessCount
			}
			if !a.LastAccessed.Equal(b.LastAccessed) {
				return a.LastAccessed.Before(b.LastAccessed)
			}
			return a.ID < b.ID
		})
		for _, e := range ordered[:surplus] {
			evicted = append(evicted, e.ID)
			delete(s.entries, e.ID)
		}
	}
	report.Evicted = len(evicted)

	if report.Expired > 0 || report.Evicted > 0 {
		s.log.Infof("cache cleanup removed %d expired and %d least used entries", report.Expired, report.Evicted)
	}

	removed := append(expired, evicted...)
	if len(removed) == 0 {
		return report, nil
	}
	if err := s.backend.Delete(ctx, removed...); err != nil {
		serr := &StorageError{Op: "cleanup", Err: err}
		s.warn(serr)
		return report, serr
	}
	return report, nil
}

// Entry returns a copy of the entry with the given ID.
func (s *Store) Entry(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Entries returns copies of every entry ordered by ID.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// persist writes e through to the backend, converting failures.
func (s *Store) persist(ctx context.Context, op string, e Entry) error {
	if err := s.backend.Upsert(ctx, e); err != nil {
		serr := &StorageError{Op: op, Err: err}
		s.warn(serr)
		return serr
	}
	return nil
}

func (s *Store) warn(err error) {
	s.log.Warnf("%v; continuing from memory", err)
	s.observer.OnEvent(types.Event{Type: types.EventTypeStorageWarning, Time: s.opts.Now(), Error: err})
}

// errNoBackupPath is returned by Backup and Restore when no path is configured.
var errNoBackupPath = errors.New("no backup path configured")
