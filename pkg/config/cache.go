package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDCache is the identifier for the cache section
	SectionIDCache = "cache"
)

// CacheSection selects the cache backend and its retention rules.
type CacheSection struct {
	Backend        string
	Dir            string
	TTL            time.Duration
	Capacity       int
	RedisAddr      string
	RedisPrefix    string
	BackupInterval time.Duration
	mu             sync.RWMutex
}

// NewCacheSection creates the section with default settings.
func NewCacheSection() *CacheSection {
	s := &CacheSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *CacheSection) ID() string {
	return SectionIDCache
}

// Title returns the section title.
func (s *CacheSection) Title() string {
	return "Answer Cache"
}

// Description returns the section description.
func (s *CacheSection) Description() string {
	return "Where answers are persisted (sqlite, redis or memory), how long they live and how many are kept."
}

// Data returns the current configuration data.
func (s *CacheSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"backend":         s.Backend,
		"dir":             s.Dir,
		"ttl":             s.TTL.String(),
		"capacity":        s.Capacity,
		"redis_addr":      s.RedisAddr,
		"redis_prefix":    s.RedisPrefix,
		"backup_interval": s.BackupInterval.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *CacheSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	strs := map[string]*string{
		"backend":      &s.Backend,
		"dir":          &s.Dir,
		"redis_addr":   &s.RedisAddr,
		"redis_prefix": &s.RedisPrefix,
	}
	for key, dst := range strs {
		if v, ok := data[key].(string); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ttl":             &s.TTL,
		"backup_interval": &s.BackupInterval,
	}
	for key, dst := range durations {
		v, present := data[key]
		if !present {
			continue
		}
		d, err := toDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	if v, present := data["capacity"]; present {
		n, ok := toInt(v)
		if !ok {
			return fmt.Errorf("capacity must be an integer")
		}
		s.Capacity = n
	}
	return nil
}

// Validate checks the configured ranges.
func (s *CacheSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.Backend {
	case "sqlite", "memory":
	case "redis":
		if s.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (want sqlite, redis or memory)", s.Backend)
	}
	if s.Dir == "" {
		return fmt.Errorf("dir must not be empty")
	}
	if s.TTL <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", s.TTL)
	}
	if s.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", s.Capacity)
	}
	if s.BackupInterval < 0 {
		return fmt.Errorf("backup_interval must not be negative, got %s", s.BackupInterval)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *CacheSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Backend = "sqlite"
	s.Dir = "~/.autoanswer/cache"
	s.TTL = 720 * time.Hour
	s.Capacity = 10000
	s.RedisAddr = ""
	s.RedisPrefix = "autoanswer"
	s.BackupInterval = time.Hour
}
