package config

import (
	"errors"
	"fmt"
	"sync"
)

// Section is one named group of settings.
type Section interface {
	ID() string
	Title() string
	Description() string

	// Data returns the current values keyed by their file names.
	Data() map[string]any

	// SetData applies the recognised keys of data and ignores the rest.
	SetData(data map[string]any) error

	Validate() error
	Reset()
}

// Manager owns the registered sections and moves them to and from a Store.
type Manager struct {
	store    Store
	sections map[string]Section
	order    []string
	mu       sync.RWMutex
}

// NewManager creates a manager with no sections.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sections: make(map[string]Section),
	}
}

// RegisterSection adds a section. IDs must be unique.
func (m *Manager) RegisterSection(section Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := section.ID()
	if _, exists := m.sections[id]; exists {
		return fmt.Errorf("section %q already registered", id)
	}
	m.sections[id] = section
	m.order = append(m.order, id)
	return nil
}

// GetSection returns a registered section by ID.
func (m *Manager) GetSection(id string) (Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sections[id]
	return s, ok
}

// GetSections returns every section in registration order.
func (m *Manager) GetSections() []Section {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Section, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sections[id])
	}
	return out
}

// LoadAll reads the store and applies each section's data, then validates.
func (m *Manager) LoadAll() error {
	if err := m.store.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var errs []error
	for _, section := range m.GetSections() {
		data, err := m.store.GetSection(section.ID())
		if err != nil {
			return fmt.Errorf("failed to read section %s: %w", section.ID(), err)
		}
		if len(data) == 0 {
			continue
		}
		if err := section.SetData(data); err != nil {
			errs = append(errs, fmt.Errorf("section %s: %w", section.ID(), err))
			continue
		}
		if err := section.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("section %s: %w", section.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// SaveAll validates every section and writes them to the store.
func (m *Manager) SaveAll() error {
	sections := m.GetSections()
	for _, section := range sections {
		if err := section.Validate(); err != nil {
			return fmt.Errorf("section %s: %w", section.ID(), err)
		}
	}
	for _, section := range sections {
		if err := m.store.SetSection(section.ID(), section.Data()); err != nil {
			return fmt.Errorf("failed to store section %s: %w", section.ID(), err)
		}
	}
	return m.store.Save()
}

// ResetAll restores every section to its defaults.
func (m *Manager) ResetAll() {
	for _, section := range m.GetSections() {
		section.Reset()
	}
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}
