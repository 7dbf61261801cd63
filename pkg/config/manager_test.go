package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestManager registers the answering and cache sections over a file
// store at path.
func newTestManager(t *testing.T, path string) (*Manager, *AnsweringSection, *CacheSection) {
	t.Helper()
	store, err := NewFileStore(path)
	require.NoError(t, err)

	m := NewManager(store)
	answering := NewAnsweringSection()
	cacheSection := NewCacheSection()
	require.NoError(t, m.RegisterSection(answering))
	require.NoError(t, m.RegisterSection(cacheSection))
	return m, answering, cacheSection
}

// failingStore fails the operations named by its fields.
type failingStore struct {
	loadErr   error
	setErr    error
	saveCalls int
}

func (s *failingStore) Load() error { return s.loadErr }
func (s *failingStore) Save() error { s.saveCalls++; return nil }
func (s *failingStore) GetSection(string) (map[string]any, error) { return nil, nil }
func (s *failingStore) SetSection(string, map[string]any) error { return s.setErr }

func TestManager_RegisterSection(t *testing.T) {
	m, _, _ := newTestManager(t, filepath.Join(t.TempDir(), "config.yaml"))

	err := m.RegisterSection(NewAnsweringSection())
	assert.Error(t, err, "duplicate section id")

	require.NoError(t, m.RegisterSection(NewLoggingSection()))

	ids := []string{}
	for _, s := range m.GetSections() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{SectionIDAnswering, SectionIDCache, SectionIDLogging}, ids)

	s, ok := m.GetSection(SectionIDCache)
	require.True(t, ok)
	assert.Equal(t, "Answer Cache", s.Title())

	_, ok = m.GetSection("missing")
	assert.False(t, ok)
}

func TestManager_LoadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `version: "1.0"
sections:
  answering:
    fuzzy_threshold: 0.85
    feedback_wait: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	m, answering, cacheSection := newTestManager(t, path)
	require.NoError(t, m.LoadAll())

	assert.Equal(t, 0.85, answering.FuzzyThreshold)
	assert.Equal(t, 3*time.Second, answering.FeedbackWait)
	assert.Equal(t, 3, answering.MaxExtractionRetries, "unset keys keep defaults")
	assert.Equal(t, "sqlite", cacheSection.Backend, "absent section keeps defaults")
}

func TestManager_LoadAllMissingFile(t *testing.T) {
	m, answering, _ := newTestManager(t, filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, m.LoadAll())
	assert.Equal(t, 0.8, answering.FuzzyThreshold)
}

func TestManager_LoadAllValidationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `version: "1.0"
sections:
  answering:
    max_extraction_retries: 0
  cache:
    backend: redis
    ttl: soon
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	m, _, _ := newTestManager(t, path)
	err := m.LoadAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "section answering")
	assert.Contains(t, err.Error(), "max_extraction_retries")
	assert.Contains(t, err.Error(), "section cache")
	assert.Contains(t, err.Error(), "ttl")
}

func TestManager_SaveAllRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	m, answering, cacheSection := newTestManager(t, path)

	answering.ResponseWait = 2 * time.Second
	answering.AutoSubmit = false
	cacheSection.Backend = "memory"
	cacheSection.Capacity = 50
	require.NoError(t, m.SaveAll())
	require.FileExists(t, path)

	reloaded, reAnswering, reCache := newTestManager(t, path)
	require.NoError(t, reloaded.LoadAll())
	assert.Equal(t, 2*time.Second, reAnswering.ResponseWait)
	assert.False(t, reAnswering.AutoSubmit)
	assert.Equal(t, "memory", reCache.Backend)
	assert.Equal(t, 50, reCache.Capacity)
	assert.Equal(t, 720*time.Hour, reCache.TTL)
}

func TestManager_SaveAllRejectsInvalidSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, answering, _ := newTestManager(t, path)

	answering.FuzzyThreshold = 2
	err := m.SaveAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fuzzy_threshold")
	assert.NoFileExists(t, path, "nothing is written when validation fails")
}

func TestManager_StoreFailures(t *testing.T) {
	t.Run("load error", func(t *testing.T) {
		m := NewManager(&failingStore{loadErr: errors.New("disk gone")})
		require.NoError(t, m.RegisterSection(NewAnsweringSection()))
		err := m.LoadAll()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk gone")
	})

	t.Run("set section error skips save", func(t *testing.T) {
		store := &failingStore{setErr: errors.New("read only")}
		m := NewManager(store)
		require.NoError(t, m.RegisterSection(NewCacheSection()))
		err := m.SaveAll()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to store section cache")
		assert.Zero(t, store.saveCalls)
	})
}

func TestManager_ResetAll(t *testing.T) {
	m, answering, cacheSection := newTestManager(t, filepath.Join(t.TempDir(), "config.yaml"))
	answering.MaxExtractionRetries = 9
	cacheSection.Capacity = 1

	m.ResetAll()
	assert.Equal(t, 3, answering.MaxExtractionRetries)
	assert.Equal(t, 10000, cacheSection.Capacity)
}

func TestManager_Store(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, _, _ := newTestManager(t, path)

	fs, ok := m.Store().(*FileStore)
	require.True(t, ok)
	assert.Equal(t, path, fs.Path())
}

func TestManager_Concurrency(t *testing.T) {
	m, _, _ := newTestManager(t, filepath.Join(t.TempDir(), "config.yaml"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for _, s := range m.GetSections() {
				_ = s.Data()
			}
		}()
		go func() {
			defer wg.Done()
			if s, ok := m.GetSection(SectionIDAnswering); ok {
				_ = s.SetData(map[string]any{"fuzzy_threshold": 0.9})
			}
		}()
	}
	wg.Wait()

	s, ok := m.GetSection(SectionIDAnswering)
	require.True(t, ok)
	assert.NoError(t, s.Validate())
}
