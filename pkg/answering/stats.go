package answering

import "github.com/entrhq/autoanswer/pkg/cache"

// Stats are running counters for the lifetime of an Orchestrator.
type Stats struct {
	CacheHits             int `json:"cache_hits"`
	CacheMisses           int `json:"cache_misses"`
	ExtractionsAttempted  int `json:"extractions_attempted"`
	ExtractionsSuccessful int `json:"extractions_successful"`
	AnswersVerified       int `json:"answers_verified"`

	// Answered counts successful results per strategy.
	Answered map[Strategy]int `json:"answered"`
	Failed   int              `json:"failed"`
}

// CacheHitRate is hits over lookups, or 0 before the first lookup.
func (s Stats) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// ExtractionSuccessRate is successes over attempts, or 0 before the first.
func (s Stats) ExtractionSuccessRate() float64 {
	if s.ExtractionsAttempted == 0 {
		return 0
	}
	return float64(s.ExtractionsSuccessful) / float64(s.ExtractionsAttempted)
}

func (s Stats) clone() Stats {
	answered := make(map[Strategy]int, len(s.Answered))
	for k, v := range s.Answered {
		answered[k] = v
	}
	s.Answered = answered
	return s
}

// Report combines strategy counters with the cache summary.
type Report struct {
	Strategy              Stats       `json:"strategy_stats"`
	CacheHitRate          float64     `json:"cache_hit_rate"`
	ExtractionSuccessRate float64     `json:"extraction_success_rate"`
	Cache                 cache.Stats `json:"cache_stats"`
}
