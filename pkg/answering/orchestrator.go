// Package answering sequences the strategies that answer one question.
//
// Process tries, in order and at most once each: the cached answer, a
// freshly extracted answer, and a type-specific fallback guess. Cached
// answers that get submitted are checked against the page's correctness
// feedback and the result is fed back into the cache.
package answering

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/autoanswer/pkg/cache"
	"github.com/entrhq/autoanswer/pkg/extractor"
	"github.com/entrhq/autoanswer/pkg/logging"
	"github.com/entrhq/autoanswer/pkg/page"
	"github.com/entrhq/autoanswer/pkg/types"
)

// Cache is the part of *cache.Store the orchestrator uses.
type Cache interface {
	Lookup(ctx context.Context, q types.QuestionInfo) (cache.Match, bool)
	Put(ctx context.Context, q types.QuestionInfo, answer string, confidence float64) (string, error)
	Verify(ctx context.Context, id string, correct bool) bool
	Cleanup(ctx context.Context) (cache.CleanupReport, error)
	Backup(ctx context.Context) error
	Stats() cache.Stats
}

// Extractor is the part of *extractor.Extractor the orchestrator uses.
type Extractor interface {
	Extract(ctx context.Context, p page.Page, maxRetries int) (*extractor.Extraction, error)
}

// Config holds the orchestrator settings.
type Config struct {
	MaxExtractionRetries int
	InitialConfidence    float64
	AutoVerify           bool
	AutoSubmit           bool

	// FeedbackWait is how long to wait after submitting before reading
	// correctness feedback.
	FeedbackWait time.Duration
}

// DefaultConfig returns the default settings. FeedbackWait is left at zero;
// callers driving a real browser set it from configuration.
func DefaultConfig() Config {
	return Config{
		MaxExtractionRetries: extractor.DefaultMaxRetries,
		InitialConfidence:    extractor.DefaultInitialConfidence,
		AutoVerify:           true,
		AutoSubmit:           true,
	}
}

// Orchestrator answers questions one at a time.
type Orchestrator struct {
	cache     Cache
	extractor Extractor
	cfg       Config
	log       logging.Leveled
	observer  types.Observer

	mu    sync.Mutex
	stats Stats
}

// New creates an Orchestrator.
func New(c Cache, x Extractor, cfg Config, log logging.Leveled, observer types.Observer) *Orchestrator {
	if cfg.MaxExtractionRetries <= 0 {
		cfg.MaxExtractionRetries = extractor.DefaultMaxRetries
	}
	if cfg.InitialConfidence <= 0 {
		cfg.InitialConfidence = extractor.DefaultInitialConfidence
	}
	if log == nil {
		log = logging.Nop()
	}
	if observer == nil {
		observer = types.NopObserver{}
	}
	return &Orchestrator{
		cache:     c,
		extractor: x,
		cfg:       cfg,
		log:       log,
		observer:  observer,
		stats:     Stats{Answered: make(map[Strategy]int)},
	}
}

// Process answers the question currently rendered on p. It never panics
// and never returns an error; failures are reported in the Result.
func (o *Orchestrator) Process(ctx context.Context, p page.Page) (res Result) {
	stage := StrategyCached
	defer func() {
		if r := recover(); r != nil {
			o.log.Errorf("panic during %s strategy: %v", stage, r)
			res = Result{Strategy: stage, Failure: fail(ReasonPanic, fmt.Errorf("%v", r))}
		}
		o.record(res)
	}()

	res = o.run(stage, func() Result { return o.tryCached(ctx, p) })
	if res.Success() {
		return res
	}

	// An unclassifiable question cannot be extracted either.
	if res.Reason() != ReasonUnknownQuestionType {
		stage = StrategyExtracted
		res = o.run(stage, func() Result { return o.tryExtracted(ctx, p) })
		if res.Success() {
			return res
		}
	}

	stage = StrategyFallback
	return o.run(stage, func() Result { return o.tryFallback(ctx, p) })
}

func (o *Orchestrator) run(s Strategy, fn func() Result) Result {
	o.log.Infof("trying %s strategy", s)
	o.observer.OnEvent(types.Event{Type: types.EventTypeStrategyStart, Time: time.Now(), Strategy: string(s)})

	res := fn()
	res.Strategy = s

	ev := types.Event{
		Type:         types.EventTypeStrategyEnd,
		Time:         time.Now(),
		Strategy:     string(s),
		QuestionType: res.Question.Type,
		EntryID:      res.EntryID,
		Answer:       res.Answer,
	}
	if res.Failure != nil {
		ev.Error = res.Failure
		o.log.Infof("%s strategy failed: %v", s, res.Failure)
	}
	o.observer.OnEvent(ev)
	return res
}

func (o *Orchestrator) tryCached(ctx context.Context, p page.Page) Result {
	q, _, err := extractor.Analyze(ctx, p)
	if err != nil {
		o.count(func(s *Stats) { s.CacheMisses++ })
		return Result{Failure: fail(ReasonDriverError, err)}
	}
	if !q.Type.Known() {
		o.log.Warnf("question type not recognized")
		o.count(func(s *Stats) { s.CacheMisses++ })
		return Result{Question: q, Failure: fail(ReasonUnknownQuestionType, nil)}
	}

	match, ok := o.cache.Lookup(ctx, q)
	if !ok {
		o.count(func(s *Stats) { s.CacheMisses++ })
		return Result{Question: q, Failure: fail(ReasonCacheMiss, nil)}
	}
	o.count(func(s *Stats) { s.CacheHits++ })

	answer := match.Entry.CorrectAnswer
	o.log.Infof("cached answer %q (confidence %.2f)", answer, match.Entry.Confidence)
	if err := fillAnswer(ctx, p, q, answer); err != nil {
		return Result{Question: q, EntryID: match.Entry.ID, Failure: fail(ReasonFillFailed, err)}
	}

	submitted := o.submit(ctx, p, q)
	if submitted && o.cfg.AutoVerify {
		o.verify(ctx, p, match.Entry.ID)
	}
	return Result{Question: q, Answer: answer, Submitted: submitted, EntryID: match.Entry.ID}
}

func (o *Orchestrator) tryExtracted(ctx context.Context, p page.Page) Result {
	o.count(func(s *Stats) { s.ExtractionsAttempted++ })

	x, err := o.extractor.Extract(ctx, p, o.cfg.MaxExtractionRetries)
	if err != nil {
		reason := ReasonExtractionFailed
		var xf *extractor.Failure
		if errors.As(err, &xf) && xf.Kind == extractor.FailureClassification {
			reason = ReasonUnknownQuestionType
		}
		return Result{Failure: fail(reason, err)}
	}
	o.count(func(s *Stats) { s.ExtractionsSuccessful++ })

	entryID := x.EntryID
	if entryID == "" {
		id, err := o.cache.Put(ctx, x.Question, x.Answer, o.cfg.InitialConfidence)
		if err != nil {
			o.log.Warnf("store extracted answer: %v", err)
		}
		entryID = id
	}

	// Clear the trial answer before entering the real one
	if err := p.Reload(ctx); err != nil {
		o.log.Warnf("reload before answering failed: %v", err)
	}

	if err := fillAnswer(ctx, p, x.Question, x.Answer); err != nil {
		return Result{Question: x.Question, EntryID: entryID, Failure: fail(ReasonFillFailed, err)}
	}
	submitted := o.submit(ctx, p, x.Question)
	return Result{Question: x.Question, Answer: x.Answer, Submitted: submitted, EntryID: entryID}
}

func (o *Orchestrator) tryFallback(ctx context.Context, p page.Page) Result {
	q, census, err := extractor.Analyze(ctx, p)
	if err != nil {
		return Result{Failure: fail(ReasonDriverError, err)}
	}

	guess, ok := fallbacks[q.Type]
	if !ok {
		guess = fallbackInteract
	}
	o.log.Infof("guessing a %s answer", q.Type)
	answer, failure := guess(ctx, p, q, census)
	if failure != nil {
		return Result{Question: q, Failure: failure}
	}

	submitted := o.submit(ctx, p, q)
	return Result{Question: q, Answer: answer, Submitted: submitted}
}

// submit clicks a submit control. With auto-submit disabled the answer is
// left for the user and counts as submitted.
func (o *Orchestrator) submit(ctx context.Context, p page.Page, q types.QuestionInfo) bool {
	if !o.cfg.AutoSubmit {
		o.log.Infof("auto-submit disabled")
		return true
	}
	sel, err := page.Submit(ctx, p)
	if err != nil {
		o.log.Warnf("submit failed: %v", err)
		return false
	}
	o.log.Debugf("submitted with %s", sel)
	o.observer.OnEvent(types.Event{Type: types.EventTypeAnswerSubmitted, Time: time.Now(), QuestionType: q.Type})
	return true
}

// verify reads the page's correctness feedback into the cache entry.
func (o *Orchestrator) verify(ctx context.Context, p page.Page, entryID string) {
	if o.cfg.FeedbackWait > 0 {
		t := time.NewTimer(o.cfg.FeedbackWait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}

	correct, ok, err := readFeedback(ctx, p)
	if err != nil {
		o.log.Debugf("read feedback: %v", err)
		return
	}
	if !ok {
		o.log.Debugf("no correctness feedback shown")
		return
	}
	if o.cache.Verify(ctx, entryID, correct) {
		o.count(func(s *Stats) { s.AnswersVerified++ })
		o.log.Infof("answer verified, correct=%t", correct)
	}
}

func (o *Orchestrator) count(fn func(s *Stats)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.stats)
}

func (o *Orchestrator) record(res Result) {
	o.count(func(s *Stats) {
		if res.Success() {
			s.Answered[res.Strategy]++
		} else {
			s.Failed++
		}
	})
}

// Stats returns a copy of the running counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats.clone()
}

// Report returns the counters, derived rates and cache summary.
func (o *Orchestrator) Report() Report {
	st := o.Stats()
	return Report{
		Strategy:              st,
		CacheHitRate:          st.CacheHitRate(),
		ExtractionSuccessRate: st.ExtractionSuccessRate(),
		Cache:                 o.cache.Stats(),
	}
}

// Close runs cache cleanup and writes a backup.
func (o *Orchestrator) Close(ctx context.Context) error {
	report, cleanupErr := o.cache.Cleanup(ctx)
	if cleanupErr == nil {
		o.log.Infof("cleanup removed %d expired, %d evicted", report.Expired, report.Evicted)
	}
	return errors.Join(cleanupErr, o.cache.Backup(ctx))
}
