package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// setupTestDir points the log directory at a temp dir and resets global state
func setupTestDir(t *testing.T) {
	t.Helper()

	origLogDir := logDir
	origInitErr := initErr
	origSessionID := sessionID
	origLevel := level.Level()

	logDir = t.TempDir()
	initErr = nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}

	t.Cleanup(func() {
		logDir = origLogDir
		initErr = origInitErr
		initOnce = sync.Once{}
		sessionID = origSessionID
		sessionIDOnce = sync.Once{}
		level.SetLevel(origLevel)
	})
}

func TestNewLogger(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test-component")
	require.NoError(t, err)
	defer logger.Close()

	assert.Equal(t, "test-component", logger.component)
	assert.NotEmpty(t, logger.SessionID())
	assert.NotEmpty(t, logger.LogPath())

	_, err = os.Stat(logger.LogPath())
	assert.NoError(t, err, "log file should exist")
}

func TestLoggerFormatting(t *testing.T) {
	setupTestDir(t)
	require.NoError(t, SetLevel("debug"))

	logger, err := NewLogger("test")
	require.NoError(t, err)

	logger.Printf("Test message %d", 123)
	logger.Debugf("Debug message")
	logger.Infof("Info message")
	logger.Warnf("Warning message")
	logger.Errorf("Error message")
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(logger.LogPath())
	require.NoError(t, err)

	for _, pattern := range []string{
		"[INFO] [test] Test message 123",
		"[DEBUG] [test] Debug message",
		"[INFO] [test] Info message",
		"[WARN] [test] Warning message",
		"[ERROR] [test] Error message",
	} {
		assert.Contains(t, string(content), pattern)
	}
}

func TestSetLevelFilters(t *testing.T) {
	setupTestDir(t)

	var buf bytes.Buffer
	logger := NewWriterLogger("filter", &buf)

	require.NoError(t, SetLevel("warn"))
	logger.Infof("hidden")
	logger.Warnf("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Equal(t, zapcore.WarnLevel, level.Level())

	assert.Error(t, SetLevel("loud"))
}

func TestMultipleComponents(t *testing.T) {
	setupTestDir(t)

	logger1, err := NewLogger("cache")
	require.NoError(t, err)
	logger2, err := NewLogger("extractor")
	require.NoError(t, err)

	assert.Equal(t, logger1.SessionID(), logger2.SessionID())
	assert.Equal(t, logger1.LogPath(), logger2.LogPath())

	logger1.Infof("from cache")
	logger2.Infof("from extractor")
	require.NoError(t, logger1.Close())
	require.NoError(t, logger2.Close())

	content, err := os.ReadFile(logger1.LogPath())
	require.NoError(t, err)
	assert.Contains(t, string(content), "[cache]")
	assert.Contains(t, string(content), "[extractor]")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("fields", &buf).With("strategy", "cached")

	logger.Infof("hit")
	assert.Contains(t, buf.String(), "hit")
	assert.Contains(t, buf.String(), `"strategy": "cached"`)
}

func TestGetSessionID(t *testing.T) {
	setupTestDir(t)

	id1 := GetSessionID()
	id2 := GetSessionID()
	assert.Equal(t, id1, id2)
	assert.NotEmpty(t, id1)
}

func TestGetLogDirectory(t *testing.T) {
	setupTestDir(t)

	dir, err := GetLogDirectory()
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoggerClose(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	require.NoError(t, err)

	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close(), "second close should be safe")
}

func TestLogPathFormat(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	require.NoError(t, err)
	defer logger.Close()

	fileName := filepath.Base(logger.LogPath())
	assert.True(t, strings.HasSuffix(fileName, "-autoanswer.log"), fileName)

	sessionPart := strings.TrimSuffix(fileName, "-autoanswer.log")
	assert.Contains(t, sessionPart, "-", "session part should be a UUID")
}

func TestNop(t *testing.T) {
	logger := Nop()
	assert.NotPanics(t, func() {
		logger.Debugf("x")
		logger.Errorf("y %d", 1)
		_ = logger.Close()
	})

	var _ Leveled = logger
}
