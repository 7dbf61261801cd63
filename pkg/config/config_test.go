package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 0.8, c.Answering.FuzzyThreshold)
	assert.Equal(t, 3, c.Answering.MaxExtractionRetries)
	assert.Equal(t, 0.8, c.Answering.InitialConfidence)
	assert.True(t, c.Answering.AutoVerify)
	assert.True(t, c.Answering.AutoSubmit)
	assert.Equal(t, 0.1, c.Answering.ConfidenceIncrement)
	assert.Equal(t, 0.2, c.Answering.ConfidenceDecrement)
	assert.Equal(t, time.Second, c.Answering.ResponseWait)
	assert.Equal(t, 2*time.Second, c.Answering.FeedbackWait)

	assert.Equal(t, "sqlite", c.Cache.Backend)
	assert.Equal(t, "~/.autoanswer/cache", c.Cache.Dir)
	assert.Equal(t, 720*time.Hour, c.Cache.TTL)
	assert.Equal(t, 10000, c.Cache.Capacity)
	assert.Equal(t, "autoanswer", c.Cache.RedisPrefix)
	assert.Equal(t, time.Hour, c.Cache.BackupInterval)

	assert.False(t, c.Browser.Headless)
	assert.Equal(t, 30*time.Second, c.Browser.Timeout)
	assert.Equal(t, 1920, c.Browser.ViewportWidth)
	assert.Equal(t, 1080, c.Browser.ViewportHeight)
	assert.Equal(t, DefaultResponseURLPatterns, c.Browser.ResponseURLPatterns)
	assert.Equal(t, 10000, c.Browser.MaxHTMLBody)

	assert.Equal(t, "info", c.Logging.Level)

	ids := []string{}
	for _, s := range c.Manager.GetSections() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{"answering", "cache", "browser", "logging"}, ids)
}

func TestLoad_YAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `version: "1.0"
sections:
  answering:
    fuzzy_threshold: 0.9
    max_extraction_retries: 5
    auto_submit: false
    response_wait: 1500ms
    feedback_wait: 3
  cache:
    backend: memory
    ttl: 24h
    capacity: 20
  browser:
    headless: true
    timeout: 10s
    response_url_patterns: ["*grade*"]
  logging:
    level: DEBUG
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.9, c.Answering.FuzzyThreshold)
	assert.Equal(t, 5, c.Answering.MaxExtractionRetries)
	assert.False(t, c.Answering.AutoSubmit)
	assert.True(t, c.Answering.AutoVerify)
	assert.Equal(t, 1500*time.Millisecond, c.Answering.ResponseWait)
	assert.Equal(t, 3*time.Second, c.Answering.FeedbackWait)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, 24*time.Hour, c.Cache.TTL)
	assert.Equal(t, 20, c.Cache.Capacity)
	assert.True(t, c.Browser.Headless)
	assert.Equal(t, 10*time.Second, c.Browser.Timeout)
	assert.Equal(t, []string{"*grade*"}, c.Browser.ResponseURLPatterns)
	assert.Equal(t, "debug", c.Logging.Level)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"version":"1.0","sections":{"answering":{"fuzzy_threshold":1.5},"cache":{"capacity":0}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fuzzy_threshold")
	assert.Contains(t, err.Error(), "capacity")
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c, err := Load(path)
	require.NoError(t, err)

	c.Cache.TTL = 48 * time.Hour
	c.Answering.InitialConfidence = 0.6
	c.Answering.FeedbackWait = 500 * time.Millisecond
	c.Browser.ResponseURLPatterns = []string{"*quiz*"}
	require.NoError(t, c.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, reloaded.Cache.TTL)
	assert.Equal(t, 0.6, reloaded.Answering.InitialConfidence)
	assert.Equal(t, 500*time.Millisecond, reloaded.Answering.FeedbackWait)
	assert.Equal(t, []string{"*quiz*"}, reloaded.Browser.ResponseURLPatterns)
}

func TestSectionValidation(t *testing.T) {
	tests := []struct {
		name    string
		section Section
		data    map[string]any
		wantErr bool
	}{
		{"threshold upper bound", NewAnsweringSection(), map[string]any{"fuzzy_threshold": 1.0}, false},
		{"threshold zero", NewAnsweringSection(), map[string]any{"fuzzy_threshold": 0.0}, true},
		{"retries zero", NewAnsweringSection(), map[string]any{"max_extraction_retries": 0}, true},
		{"initial confidence floor", NewAnsweringSection(), map[string]any{"initial_confidence": 0.1}, false},
		{"initial confidence below floor", NewAnsweringSection(), map[string]any{"initial_confidence": 0.05}, true},
		{"no response wait", NewAnsweringSection(), map[string]any{"response_wait": "0s"}, false},
		{"negative response wait", NewAnsweringSection(), map[string]any{"response_wait": "-1s"}, true},
		{"feedback wait too long", NewAnsweringSection(), map[string]any{"feedback_wait": "2m"}, true},
		{"redis needs address", NewCacheSection(), map[string]any{"backend": "redis"}, true},
		{"redis with address", NewCacheSection(), map[string]any{"backend": "redis", "redis_addr": "localhost:6379"}, false},
		{"unknown backend", NewCacheSection(), map[string]any{"backend": "mongo"}, true},
		{"negative ttl", NewCacheSection(), map[string]any{"ttl": "-1h"}, true},
		{"bad glob", NewBrowserSection(), map[string]any{"response_url_patterns": []any{"[unclosed"}}, true},
		{"zero viewport", NewBrowserSection(), map[string]any{"viewport_width": 0}, true},
		{"unknown level", NewLoggingSection(), map[string]any{"level": "loud"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.section.SetData(tt.data))
			err := tt.section.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetData_TypeErrors(t *testing.T) {
	assert.Error(t, NewAnsweringSection().SetData(map[string]any{"fuzzy_threshold": "high"}))
	assert.Error(t, NewAnsweringSection().SetData(map[string]any{"max_extraction_retries": 2.5}))
	assert.Error(t, NewCacheSection().SetData(map[string]any{"ttl": "soon"}))
	assert.Error(t, NewAnsweringSection().SetData(map[string]any{"feedback_wait": "later"}))
	assert.Error(t, NewBrowserSection().SetData(map[string]any{"response_url_patterns": "*api*"}))
}

func TestSectionReset(t *testing.T) {
	s := NewCacheSection()
	require.NoError(t, s.SetData(map[string]any{"capacity": 5, "backend": "memory"}))
	s.Reset()
	assert.Equal(t, 10000, s.Capacity)
	assert.Equal(t, "sqlite", s.Backend)
}

func TestLoggingSection_EffectiveLevel(t *testing.T) {
	s := NewLoggingSection()

	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, "info", s.EffectiveLevel())

	t.Setenv("LOG_LEVEL", "ERROR")
	assert.Equal(t, "error", s.EffectiveLevel())

	t.Setenv("LOG_LEVEL", "verbose")
	assert.Equal(t, "info", s.EffectiveLevel())
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandHome("~/.autoanswer/cache")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".autoanswer", "cache"), got)

	got, err = ExpandHome("/var/cache")
	require.NoError(t, err)
	assert.Equal(t, "/var/cache", got)
}
