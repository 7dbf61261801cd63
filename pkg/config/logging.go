package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	// SectionIDLogging is the identifier for the logging section
	SectionIDLogging = "logging"
)

// LoggingSection holds the log level. LOG_LEVEL overrides the file value.
type LoggingSection struct {
	Level string
	mu    sync.RWMutex
}

// NewLoggingSection creates the section with default settings.
func NewLoggingSection() *LoggingSection {
	return &LoggingSection{Level: "info"}
}

// ID returns the section identifier.
func (s *LoggingSection) ID() string {
	return SectionIDLogging
}

// Title returns the section title.
func (s *LoggingSection) Title() string {
	return "Logging"
}

// Description returns the section description.
func (s *LoggingSection) Description() string {
	return "Minimum level written to the session log file."
}

// Data returns the current configuration data.
func (s *LoggingSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{"level": s.Level}
}

// SetData updates the configuration from the provided data.
func (s *LoggingSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := data["level"].(string); ok {
		s.Level = strings.ToLower(v)
	}
	return nil
}

// Validate checks the level name.
func (s *LoggingSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !validLevel(s.Level) {
		return fmt.Errorf("unknown log level %q", s.Level)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *LoggingSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Level = "info"
}

// EffectiveLevel returns LOG_LEVEL when it names a valid level, else Level.
func (s *LoggingSection) EffectiveLevel() string {
	if env := strings.ToLower(os.Getenv("LOG_LEVEL")); validLevel(env) {
		return env
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Level
}

func validLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
