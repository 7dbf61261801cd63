package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled is the logging surface the answering components depend on.
// *Logger satisfies it; tests usually pass Nop().
type Leveled interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// Logger provides structured logging for autoanswer components.
// All components of one process write to a session-specific file in
// ~/.autoanswer/logs/.
type Logger struct {
	sessionID string
	component string
	file      *os.File
	sugar     *zap.SugaredLogger
	logPath   string
	closeOnce sync.Once
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	// initOnce ensures directory initialization happens once
	initOnce sync.Once

	// initErr stores any error from directory initialization
	initErr error

	// level is shared by every logger in the process
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// initLogDirectory ensures the log directory exists
func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			logDir = filepath.Join(homeDir, ".autoanswer", "logs")
		}

		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
	})
	return initErr
}

// SetLevel changes the minimum level for every logger in the process.
// Accepts debug, info, warn and error; anything else is rejected.
func SetLevel(name string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	level.SetLevel(l)
	return nil
}

// NewLogger creates a new logger for a specific component.
// The logger writes to ~/.autoanswer/logs/<session-id>-autoanswer.log
//
// If the log directory cannot be created or the log file cannot be opened,
// it returns a fallback logger that writes to stderr along with the error.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	sessID := getSessionID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-autoanswer.log", sessID))

	// Append mode: every component shares the same file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return newFallbackLogger(component, fmt.Errorf("failed to open log file: %w", err)), err
	}

	return &Logger{
		sessionID: sessID,
		component: component,
		file:      file,
		sugar:     newSugar(file, component),
		logPath:   logPath,
	}, nil
}

// newFallbackLogger creates a logger that writes to stderr when file logging fails
func newFallbackLogger(component string, err error) *Logger {
	l := &Logger{
		sessionID: getSessionID(),
		component: component,
		sugar:     newSugar(os.Stderr, component),
	}
	l.sugar.Warnf("failed to initialize file logging: %v", err)
	l.sugar.Warnf("falling back to stderr logging")
	return l
}

// NewWriterLogger creates a logger that writes to w instead of the session file.
func NewWriterLogger(component string, w io.Writer) *Logger {
	return &Logger{
		sessionID: getSessionID(),
		component: component,
		sugar:     newSugar(zapcore.AddSync(w), component),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{
		component: "nop",
		sugar:     zap.NewNop().Sugar(),
	}
}

func newSugar(w zapcore.WriteSyncer, component string) *zap.SugaredLogger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		NameKey:          "component",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + t.Format("2006-01-02 15:04:05.000") + "]")
		},
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + l.CapitalString() + "]")
		},
		EncodeName: func(name string, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + name + "]")
		},
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(w), level)
	return zap.New(core).Named(component).Sugar()
}

// Printf logs a formatted message at info level
func (l *Logger) Printf(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// With returns a child logger carrying structured key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		sessionID: l.sessionID,
		component: l.component,
		sugar:     l.sugar.With(keysAndValues...),
		logPath:   l.logPath,
	}
}

// Writer returns an io.Writer that writes to this logger's destination
func (l *Logger) Writer() io.Writer {
	if l.file != nil {
		return l.file
	}
	return os.Stderr
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the path to the log file
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close flushes and closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		_ = l.sugar.Sync()
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}
