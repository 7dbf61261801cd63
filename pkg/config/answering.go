package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDAnswering is the identifier for the answering section
	SectionIDAnswering = "answering"
)

// AnsweringSection tunes the answering strategies and cache confidence rules.
type AnsweringSection struct {
	FuzzyThreshold       float64
	MaxExtractionRetries int
	InitialConfidence    float64
	AutoVerify           bool
	AutoSubmit           bool
	ConfidenceIncrement  float64
	ConfidenceDecrement  float64
	ResponseWait         time.Duration
	FeedbackWait         time.Duration
	mu                   sync.RWMutex
}

// NewAnsweringSection creates the section with default settings.
func NewAnsweringSection() *AnsweringSection {
	s := &AnsweringSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *AnsweringSection) ID() string {
	return SectionIDAnswering
}

// Title returns the section title.
func (s *AnsweringSection) Title() string {
	return "Answering"
}

// Description returns the section description.
func (s *AnsweringSection) Description() string {
	return "Fuzzy matching threshold, extraction retries and how verification feedback moves cached confidence."
}

// Data returns the current configuration data.
func (s *AnsweringSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"fuzzy_threshold":        s.FuzzyThreshold,
		"max_extraction_retries": s.MaxExtractionRetries,
		"initial_confidence":     s.InitialConfidence,
		"auto_verify":            s.AutoVerify,
		"auto_submit":            s.AutoSubmit,
		"confidence_increment":   s.ConfidenceIncrement,
		"confidence_decrement":   s.ConfidenceDecrement,
		"response_wait":          s.ResponseWait.String(),
		"feedback_wait":          s.FeedbackWait.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *AnsweringSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	floats := map[string]*float64{
		"fuzzy_threshold":      &s.FuzzyThreshold,
		"initial_confidence":   &s.InitialConfidence,
		"confidence_increment": &s.ConfidenceIncrement,
		"confidence_decrement": &s.ConfidenceDecrement,
	}
	for key, dst := range floats {
		v, present := data[key]
		if !present {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("%s must be a number", key)
		}
		*dst = f
	}

	if v, present := data["max_extraction_retries"]; present {
		n, ok := toInt(v)
		if !ok {
			return fmt.Errorf("max_extraction_retries must be an integer")
		}
		s.MaxExtractionRetries = n
	}
	waits := map[string]*time.Duration{
		"response_wait": &s.ResponseWait,
		"feedback_wait": &s.FeedbackWait,
	}
	for key, dst := range waits {
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
	if v, ok := data["auto_verify"].(bool); ok {
		s.AutoVerify = v
	}
	if v, ok := data["auto_submit"].(bool); ok {
		s.AutoSubmit = v
	}
	return nil
}

// Validate checks the configured ranges.
func (s *AnsweringSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.FuzzyThreshold <= 0 || s.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be in (0, 1], got %v", s.FuzzyThreshold)
	}
	if s.MaxExtractionRetries < 1 {
		return fmt.Errorf("max_extraction_retries must be at least 1, got %d", s.MaxExtractionRetries)
	}
	if s.InitialConfidence < 0.1 || s.InitialConfidence > 1 {
		return fmt.Errorf("initial_confidence must be in [0.1, 1], got %v", s.InitialConfidence)
	}
	if s.ConfidenceIncrement < 0 || s.ConfidenceIncrement > 1 {
		return fmt.Errorf("confidence_increment must be in [0, 1], got %v", s.ConfidenceIncrement)
	}
	if s.ConfidenceDecrement < 0 || s.ConfidenceDecrement > 1 {
		return fmt.Errorf("confidence_decrement must be in [0, 1], got %v", s.ConfidenceDecrement)
	}
	if s.ResponseWait < 0 || s.ResponseWait > time.Minute {
		return fmt.Errorf("response_wait must be between 0 and 1m, got %s", s.ResponseWait)
	}
	if s.FeedbackWait < 0 || s.FeedbackWait > time.Minute {
		return fmt.Errorf("feedback_wait must be between 0 and 1m, got %s", s.FeedbackWait)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *AnsweringSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FuzzyThreshold = 0.8
	s.MaxExtractionRetries = 3
	s.InitialConfidence = 0.8
	s.AutoVerify = true
	s.AutoSubmit = true
	s.ConfidenceIncrement = 0.1
	s.ConfidenceDecrement = 0.2
	s.ResponseWait = time.Second
	s.FeedbackWait = 2 * time.Second
}
