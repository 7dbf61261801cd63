package answering

import (
	"fmt"

	"github.com/entrhq/autoanswer/pkg/types"
)

// Strategy names one answer-acquisition stage.
type Strategy string

const (
	StrategyCached    Strategy = "cached"
	StrategyExtracted Strategy = "extracted"
	StrategyFallback  Strategy = "fallback"
)

// Reason says why a stage did not produce an answer.
type Reason string

const (
	ReasonUnknownQuestionType  Reason = "unknown_question_type"
	ReasonCacheMiss            Reason = "cache_miss"
	ReasonFillFailed           Reason = "fill_failed"
	ReasonExtractionFailed     Reason = "extraction_failed"
	ReasonNoOptions            Reason = "no_options"
	ReasonNoInputs             Reason = "no_inputs"
	ReasonNoTextarea           Reason = "no_textarea"
	ReasonNoInteractiveElement Reason = "no_interactive_element"
	ReasonDriverError          Reason = "driver_error"
	ReasonPanic                Reason = "panic"
)

// Failure describes an unsuccessful stage.
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func fail(reason Reason, err error) *Failure {
	return &Failure{Reason: reason, Err: err}
}

// Result is the outcome of processing one question.
type Result struct {
	Strategy Strategy
	Question types.QuestionInfo

	// Answer is the value entered into the page.
	Answer string

	// Submitted reports whether a submit control was clicked, or submission
	// is disabled.
	Submitted bool

	// EntryID is the cache entry the answer came from or was stored in.
	EntryID string

	// Failure is nil on success.
	Failure *Failure
}

// Success reports whether the question was answered.
func (r Result) Success() bool {
	return r.Failure == nil
}

// Reason returns the failure reason, or "" on success.
func (r Result) Reason() Reason {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Reason
}
