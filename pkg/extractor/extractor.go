// Package extractor discovers correct answers by provoking the platform.
//
// An attempt classifies the rendered question, enters a throwaway answer,
// submits it and mines every response observed since the attempt began for
// the authoritative answer. Failed attempts reload the page and try again
// up to a retry budget. A question that cannot be classified ends the
// extraction at once.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/autoanswer/pkg/logging"
	"github.com/entrhq/autoanswer/pkg/page"
	"github.com/entrhq/autoanswer/pkg/types"
)

// Defaults for Options.
const (
	DefaultMaxRetries        = 3
	DefaultInitialConfidence = 0.8
)

var (
	// ErrUnknownType is wrapped by classification failures.
	ErrUnknownType = errors.New("question type not recognized")

	// ErrNoAnswer is wrapped by mining failures.
	ErrNoAnswer = errors.New("no answer found in responses")
)

// AnswerSink stores answers discovered by the extractor.
// *cache.Store satisfies it.
type AnswerSink interface {
	PutWithMetadata(ctx context.Context, q types.QuestionInfo, answer string, confidence float64, metadata map[string]any) (string, error)
}

// Options configures an Extractor.
type Options struct {
	// MaxRetries is used when Extract is called with a non-positive budget.
	MaxRetries int

	// InitialConfidence is the confidence discovered answers are stored with.
	InitialConfidence float64

	// ResponseWait is how long to wait after submitting before reading responses.
	ResponseWait time.Duration

	// Sink, when set, receives every discovered answer.
	Sink AnswerSink

	// Now overrides the clock.
	Now func() time.Time
}

// Extraction is a successfully discovered answer.
type Extraction struct {
	Question    types.QuestionInfo
	Answer      string
	Explanation string
	Source      string
	Attempts    int

	// EntryID is the cache entry written through the sink, if any.
	EntryID string
}

// Extractor runs the extraction state machine against one page at a time.
type Extractor struct {
	opts     Options
	log      logging.Leveled
	observer types.Observer

	mu    sync.Mutex
	state State
}

// New creates an Extractor.
func New(opts Options, log logging.Leveled, observer types.Observer) *Extractor {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.InitialConfidence <= 0 {
		opts.InitialConfidence = DefaultInitialConfidence
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logging.Nop()
	}
	if observer == nil {
		observer = types.NopObserver{}
	}
	return &Extractor{opts: opts, log: log, observer: observer}
}

// State returns the current state.
func (e *Extractor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Extractor) setState(s State, attempt int) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()

	e.observer.OnEvent(types.Event{
		Type:    types.EventTypeExtractionState,
		Time:    e.opts.Now(),
		State:   s.String(),
		Attempt: attempt,
	})
}

// Extract tries up to maxRetries times to discover the answer to the
// question rendered on p. On failure it returns a *Failure and no
// extraction; the trial answer must not be treated as final.
//
// The page is reloaded after every failed attempt. Cancellation is checked
// between attempts.
func (e *Extractor) Extract(ctx context.Context, p page.Page, maxRetries int) (*Extraction, error) {
	if maxRetries <= 0 {
		maxRetries = e.opts.MaxRetries
	}

	var last *Failure
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			e.setState(StateFailed, attempt)
			return nil, &Failure{Kind: FailureCanceled, Attempt: attempt, Err: err}
		}

		e.log.Infof("extraction attempt %d/%d", attempt, maxRetries)
		e.observer.OnEvent(types.Event{Type: types.EventTypeAttemptStart, Time: e.opts.Now(), Attempt: attempt})

		result, fail := e.attempt(ctx, p, attempt)
		if fail == nil {
			result.Attempts = attempt
			e.store(ctx, result)
			e.setState(StateDone, attempt)
			e.log.Infof("extracted answer %q from %s", result.Answer, result.Source)
			e.observer.OnEvent(types.Event{
				Type:         types.EventTypeAnswerExtracted,
				Time:         e.opts.Now(),
				QuestionType: result.Question.Type,
				EntryID:      result.EntryID,
				Answer:       result.Answer,
				Attempt:      attempt,
			})
			return result, nil
		}

		e.observer.OnEvent(types.Event{Type: types.EventTypeAttemptFailed, Time: e.opts.Now(), Attempt: attempt, Error: fail})
		if !fail.Kind.Retryable() {
			e.log.Warnf("%v; giving up", fail)
			e.setState(StateFailed, attempt)
			return nil, fail
		}
		e.log.Warnf("%v", fail)
		last = fail

		if err := ctx.Err(); err != nil {
			e.setState(StateFailed, attempt)
			return nil, &Failure{Kind: FailureCanceled, Attempt: attempt, Err: err}
		}
		// Discard the trial answer before the next attempt
		if err := p.Reload(ctx); err != nil {
			e.log.Warnf("reload after attempt %d failed: %v", attempt, err)
		}
	}

	e.log.Errorf("no answer after %d attempts", maxRetries)
	e.setState(StateFailed, maxRetries)
	return nil, last
}

func (e *Extractor) attempt(ctx context.Context, p page.Page, attempt int) (*Extraction, *Failure) {
	start := e.opts.Now()

	e.setState(StateClassifying, attempt)
	q, census, err := Analyze(ctx, p)
	if err != nil {
		return nil, &Failure{Kind: FailureTrialAnswer, Attempt: attempt, Err: err}
	}
	if !q.Type.Known() {
		return nil, &Failure{Kind: FailureClassification, Attempt: attempt, Err: ErrUnknownType}
	}
	e.observer.OnEvent(types.Event{Type: types.EventTypeQuestionAnalyzed, Time: e.opts.Now(), QuestionType: q.Type, Attempt: attempt})
	e.log.Debugf("classified %s / %s as %s", q.Unit, q.Task, q.Type)

	e.setState(StateTrialAnswering, attempt)
	if err := trialFill(ctx, p, q.Type, census); err != nil {
		return nil, &Failure{Kind: FailureTrialAnswer, Attempt: attempt, Err: err}
	}
	if _, err := page.Submit(ctx, p); err != nil {
		return nil, &Failure{Kind: FailureSubmit, Attempt: attempt, Err: err}
	}
	e.setState(StateSubmitted, attempt)

	if err := e.wait(ctx); err != nil {
		return nil, &Failure{Kind: FailureMining, Attempt: attempt, Err: err}
	}

	e.setState(StateMining, attempt)
	responses, err := p.ResponsesSince(ctx, start)
	if err != nil {
		return nil, &Failure{Kind: FailureMining, Attempt: attempt, Err: fmt.Errorf("read responses: %w", err)}
	}
	finding, ok := Mine(responses, e.answerBlocks(ctx, p))
	if !ok {
		return nil, &Failure{
			Kind:    FailureMining,
			Attempt: attempt,
			Err:     fmt.Errorf("%w (%d responses)", ErrNoAnswer, len(responses)),
		}
	}

	return &Extraction{
		Question:    q,
		Answer:      finding.Answer,
		Explanation: finding.Explanation,
		Source:      finding.Source,
	}, nil
}

// answerBlocks reads answer-like DOM text. Failures only cost the DOM source.
func (e *Extractor) answerBlocks(ctx context.Context, p page.Page) []string {
	v, err := p.Evaluate(ctx, page.ScriptAnswerBlocks, nil)
	if err != nil {
		e.log.Debugf("read answer blocks: %v", err)
		return nil
	}
	switch blocks := v.(type) {
	case []string:
		return blocks
	case []any:
		out := make([]string, 0, len(blocks))
		for _, b := range blocks {
			if s, ok := b.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (e *Extractor) wait(ctx context.Context) error {
	if e.opts.ResponseWait <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(e.opts.ResponseWait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// store hands the answer to the sink. Storage errors are not fatal.
func (e *Extractor) store(ctx context.Context, x *Extraction) {
	if e.opts.Sink == nil {
		return
	}
	metadata := map[string]any{
		"source":   x.Source,
		"attempts": x.Attempts,
	}
	if x.Explanation != "" {
		metadata["explanation"] = x.Explanation
	}
	id, err := e.opts.Sink.PutWithMetadata(ctx, x.Question, x.Answer, e.opts.InitialConfidence, metadata)
	if err != nil {
		e.log.Warnf("store extracted answer: %v", err)
	}
	x.EntryID = id
}
