package types

import "time"

// EventType defines the type of event emitted by the answering components.
type EventType string

const (
	EventTypeQuestionAnalyzed   EventType = "question_analyzed"   // EventTypeQuestionAnalyzed indicates a page was analyzed into a QuestionInfo.
	EventTypeStrategyStart      EventType = "strategy_start"      // EventTypeStrategyStart indicates the orchestrator is entering a strategy.
	EventTypeStrategyEnd        EventType = "strategy_end"        // EventTypeStrategyEnd indicates a strategy finished, successfully or not.
	EventTypeCacheHit           EventType = "cache_hit"           // EventTypeCacheHit indicates an exact cache hit.
	EventTypeCacheFuzzyHit      EventType = "cache_fuzzy_hit"     // EventTypeCacheFuzzyHit indicates a hit through similarity matching.
	EventTypeCacheMiss          EventType = "cache_miss"          // EventTypeCacheMiss indicates no cached answer was found.
	EventTypeCacheStored        EventType = "cache_stored"        // EventTypeCacheStored indicates an answer was written to the cache.
	EventTypeStorageWarning     EventType = "storage_warning"     // EventTypeStorageWarning indicates the persistent backend failed and only memory was updated.
	EventTypeExtractionState    EventType = "extraction_state"    // EventTypeExtractionState indicates the extractor changed state.
	EventTypeAttemptStart       EventType = "attempt_start"       // EventTypeAttemptStart indicates an extraction attempt started.
	EventTypeAttemptFailed      EventType = "attempt_failed"      // EventTypeAttemptFailed indicates an extraction attempt failed.
	EventTypeAnswerExtracted    EventType = "answer_extracted"    // EventTypeAnswerExtracted indicates an authoritative answer was mined.
	EventTypeAnswerSubmitted    EventType = "answer_submitted"    // EventTypeAnswerSubmitted indicates a submit control was clicked.
	EventTypeVerificationResult EventType = "verification_result" // EventTypeVerificationResult indicates the page reported correctness for an answer.
)

// Event is a structured notification emitted by the cache, extractor and orchestrator.
type Event struct {
	// Type indicates the kind of event.
	Type EventType

	// Time is when the event was emitted.
	Time time.Time

	// Strategy is the orchestrator strategy name, when relevant.
	Strategy string

	// QuestionType is the classified type, when known.
	QuestionType QuestionType

	// EntryID is the cache key involved, when relevant.
	EntryID string

	// Answer is the answer involved, when relevant.
	Answer string

	// Attempt is the 1-based extraction attempt number.
	Attempt int

	// State is the extractor state name for state events.
	State string

	// Correct carries the verification outcome for verification events.
	Correct bool

	// Similarity is the fuzzy match score for fuzzy hits.
	Similarity float64

	// Error contains error information for failure events.
	Error error
}

// Observer receives events. Implementations must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}

// NopObserver discards every event.
type NopObserver struct{}

// OnEvent does nothing.
func (NopObserver) OnEvent(Event) {}

// MultiObserver fans an event out to several observers in order.
type MultiObserver []Observer

// OnEvent forwards e to every non-nil observer.
func (m MultiObserver) OnEvent(e Event) {
	for _, o := range m {
		if o != nil {
			o.OnEvent(e)
		}
	}
}

// Recorder collects events in memory. Useful for tests and run summaries.
type Recorder struct {
	Events []Event
}

// OnEvent appends e.
func (r *Recorder) OnEvent(e Event) {
	r.Events = append(r.Events, e)
}

// OfType returns the recorded events with the given type.
func (r *Recorder) OfType(t EventType) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
