package extractor

import "fmt"

// State is a step of the extraction state machine.
type State int

const (
	StateIdle State = iota
	StateClassifying
	StateTrialAnswering
	StateSubmitted
	StateMining
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:           "idle",
	StateClassifying:    "classifying",
	StateTrialAnswering: "trial_answering",
	StateSubmitted:      "submitted",
	StateMining:         "mining",
	StateDone:           "done",
	StateFailed:         "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// FailureKind classifies why an extraction attempt failed.
type FailureKind int

const (
	// FailureClassification means the question type could not be determined.
	// It is terminal: no further attempts are made.
	FailureClassification FailureKind = iota + 1
	// FailureTrialAnswer means the throwaway answer could not be entered.
	FailureTrialAnswer
	// FailureSubmit means the trial answer could not be submitted.
	FailureSubmit
	// FailureMining means no answer was found in any response.
	FailureMining
	// FailureCanceled means the context ended between attempts.
	FailureCanceled
)

func (k FailureKind) String() string {
	switch k {
	case FailureClassification:
		return "classification"
	case FailureTrialAnswer:
		return "trial_answer"
	case FailureSubmit:
		return "submit"
	case FailureMining:
		return "mining"
	case FailureCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt may succeed.
func (k FailureKind) Retryable() bool {
	return k == FailureTrialAnswer || k == FailureSubmit || k == FailureMining
}

// Failure is the error returned when extraction does not produce an answer.
// For retryable kinds it describes the last attempt.
type Failure struct {
	Kind    FailureKind
	Attempt int
	Err     error
}

func (f *Failure) Error() string {
	if f.Attempt > 0 {
		return fmt.Sprintf("extraction %s failure on attempt %d: %v", f.Kind, f.Attempt, f.Err)
	}
	return fmt.Sprintf("extraction %s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
