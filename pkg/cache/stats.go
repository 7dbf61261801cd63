package cache

import (
	"time"

	"github.com/entrhq/autoanswer/pkg/types"
)

// Stats summarizes the cache contents.
type Stats struct {
	Backend           string                     `json:"backend"`
	TotalEntries      int                        `json:"total_entries"`
	VerifiedEntries   int                        `json:"verified_entries"`
	VerificationRate  float64                    `json:"verification_rate"`
	AverageConfidence float64                    `json:"average_confidence"`
	TotalAccesses     int                        `json:"total_accesses"`
	ByType            map[types.QuestionType]int `json:"by_type"`
	ByUnit            map[string]int             `json:"by_unit"`
	LastBackup        time.Time                  `json:"last_backup,omitempty"`
}

// Stats returns counts over the current entries.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Backend:      s.backend.Name(),
		TotalEntries: len(s.entries),
		ByType:       make(map[types.QuestionType]int),
		ByUnit:       make(map[string]int),
		LastBackup:   s.lastBackup,
	}
	var confidence float64
	for _, e := range s.entries {
		if e.Verified {
			st.VerifiedEntries++
		}
		confidence += e.Confidence
		st.TotalAccesses += e.AccessCount
		st.ByType[e.QuestionType]++
		st.ByUnit[e.Unit]++
	}
	if st.TotalEntries > 0 {
		st.AverageConfidence = confidence / float64(st.TotalEntries)
		st.VerificationRate = float64(st.VerifiedEntries) / float64(st.TotalEntries)
	}
	return st
}
