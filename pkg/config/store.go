package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store provides persistence for configuration data.
type Store interface {
	// Load loads the configuration from disk
	Load() error

	// Save saves the configuration to disk
	Save() error

	// GetSection retrieves configuration data for a specific section
	GetSection(sectionID string) (map[string]any, error)

	// SetSection stores configuration data for a specific section
	SetSection(sectionID string, data map[string]any) error
}

// fileFormat is the on-disk document shared by the JSON and YAML encodings.
type fileFormat struct {
	Version  string                    `json:"version" yaml:"version"`
	Sections map[string]map[string]any `json:"sections" yaml:"sections"`
}

// FileStore implements Store using a JSON or YAML file. Files ending in
// .yaml or .yml are YAML; everything else is JSON.
type FileStore struct {
	path     string
	data     map[string]map[string]any
	mu       sync.RWMutex
	version  string
	modified bool
}

// DefaultPath returns ~/.autoanswer/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".autoanswer", "config.yaml"), nil
}

// NewFileStore creates a new file-based configuration store.
// If path is empty, DefaultPath is used.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	store := &FileStore{
		path:    path,
		data:    make(map[string]map[string]any),
		version: "1.0",
	}

	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	return store, nil
}

func (s *FileStore) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(s.path))
	return ext == ".yaml" || ext == ".yml"
}

// Load loads the configuration from disk. A missing file leaves the store empty.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]map[string]any)
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var doc fileFormat
	if s.isYAML() {
		err = yaml.Unmarshal(raw, &doc)
	} else {
		err = json.Unmarshal(raw, &doc)
	}
	if err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	if doc.Version != "" {
		s.version = doc.Version
	}
	s.data = doc.Sections
	if s.data == nil {
		s.data = make(map[string]map[string]any)
	}
	s.modified = false

	return nil
}

// Save writes the configuration atomically through a temp file.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	doc := fileFormat{Version: s.version, Sections: s.data}
	var (
		raw []byte
		err error
	)
	if s.isYAML() {
		raw, err = yaml.Marshal(doc)
	} else {
		raw, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, raw, 0600); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.modified = false
	return nil
}

// GetSection returns a copy of one section's data, empty when absent.
func (s *FileStore) GetSection(sectionID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.data[sectionID]), nil
}

// SetSection stores a copy of one section's data.
func (s *FileStore) SetSection(sectionID string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sectionID] = copyMap(data)
	s.modified = true
	return nil
}

// IsModified returns true if the store has unsaved changes.
func (s *FileStore) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
