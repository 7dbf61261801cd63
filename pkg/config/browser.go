package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/gobwas/glob"
)

const (
	// SectionIDBrowser is the identifier for the browser section
	SectionIDBrowser = "browser"
)

// DefaultResponseURLPatterns are the glob patterns of responses worth mining.
var DefaultResponseURLPatterns = []string{"*api*", "*ajax*", "*submit*", "*check*", "*answer*"}

// BrowserSection configures the Playwright session.
type BrowserSection struct {
	Headless            bool
	Timeout             time.Duration
	ViewportWidth       int
	ViewportHeight      int
	ResponseURLPatterns []string
	MaxHTMLBody         int
	mu                  sync.RWMutex
}

// NewBrowserSection creates the section with default settings.
func NewBrowserSection() *BrowserSection {
	s := &BrowserSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Browser window settings and which network responses are captured for answer mining."
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"headless":              s.Headless,
		"timeout":               s.Timeout.String(),
		"viewport_width":        s.ViewportWidth,
		"viewport_height":       s.ViewportHeight,
		"response_url_patterns": append([]string(nil), s.ResponseURLPatterns...),
		"max_html_body":         s.MaxHTMLBody,
	}
}

// SetData updates the configuration from the provided data.
func (s *BrowserSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["headless"].(bool); ok {
		s.Headless = v
	}
	if v, present := data["timeout"]; present {
		d, err := toDuration(v)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		s.Timeout = d
	}

	ints := map[string]*int{
		"viewport_width":  &s.ViewportWidth,
		"viewport_height": &s.ViewportHeight,
		"max_html_body":   &s.MaxHTMLBody,
	}
	for key, dst := range ints {
		v, present := data[key]
		if !present {
			continue
		}
		n, ok := toInt(v)
		if !ok {
			return fmt.Errorf("%s must be an integer", key)
		}
		*dst = n
	}

	if v, present := data["response_url_patterns"]; present {
		patterns, ok := toStrings(v)
		if !ok {
			return fmt.Errorf("response_url_patterns must be a list of strings")
		}
		s.ResponseURLPatterns = patterns
	}
	return nil
}

// Validate checks the configured ranges and that every pattern compiles.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", s.Timeout)
	}
	if s.ViewportWidth <= 0 || s.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", s.ViewportWidth, s.ViewportHeight)
	}
	if s.MaxHTMLBody <= 0 {
		return fmt.Errorf("max_html_body must be positive, got %d", s.MaxHTMLBody)
	}
	for _, p := range s.ResponseURLPatterns {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("invalid response url pattern %q: %w", p, err)
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Headless = false
	s.Timeout = 30 * time.Second
	s.ViewportWidth = 1920
	s.ViewportHeight = 1080
	s.ResponseURLPatterns = append([]string(nil), DefaultResponseURLPatterns...)
	s.MaxHTMLBody = 10000
}
