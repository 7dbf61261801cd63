package answering

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/autoanswer/pkg/cache"
	"github.com/entrhq/autoanswer/pkg/extractor"
	"github.com/entrhq/autoanswer/pkg/logging"
	"github.com/entrhq/autoanswer/pkg/page"
	"github.com/entrhq/autoanswer/pkg/page/pagetest"
	"github.com/entrhq/autoanswer/pkg/types"
)

const submitButton = `button[type="submit"]`

const capitalQuestion = "What is the capital of China?"

var capitalInfo = map[string]any{
	"hash":    "#/u1/iexplore1/before/3",
	"text":    capitalQuestion,
	"options": []any{"A. Beijing", "B. Shanghai", "C. Nanjing", "D. Xi'an"},
}

func capitalQuestionInfo() types.QuestionInfo {
	return types.QuestionInfo{
		Type: types.QuestionTypeMultipleChoice,
		Text: capitalQuestion,
		Unit: "Unit 1",
		Task: "iExplore 1: Learning before class",
	}
}

// choicePage renders the capital question with clickable options and submit.
func choicePage() *pagetest.Fake {
	return pagetest.New(page.Census{Radios: 4}).
		AllowClick(submitButton, page.Nth(page.ChoiceInputs, 0)).
		AllowClick(`input[value="A"]`, `input[value="B"]`, `input[value="C"]`, `input[value="D"]`).
		Returns(page.ScriptPageInfo, capitalInfo)
}

func feedback(text, class string) map[string]any {
	return map[string]any{"text": text, "className": class}
}

type fixture struct {
	store *cache.Store
	orch  *Orchestrator
	rec   *types.Recorder
}

func newFixture(t *testing.T, cfg Config, storeOpts cache.Options) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := cache.New(ctx, cache.NewMemoryBackend(), storeOpts, logging.Nop(), nil)
	require.NoError(t, err)

	rec := &types.Recorder{}
	x := extractor.New(extractor.Options{Sink: store, InitialConfidence: cfg.InitialConfidence}, logging.Nop(), rec)
	return &fixture{
		store: store,
		orch:  New(store, x, cfg, logging.Nop(), rec),
		rec:   rec,
	}
}

func TestProcess_CachedVerification(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		feedback   any
		want       float64
		verified   bool
	}{
		{"incorrect lowers confidence", 0.9, feedback("回答错误", "result incorrect"), 0.7, true},
		{"incorrect floors at minimum", 0.2, feedback("Wrong answer", "wrong"), 0.1, true},
		{"correct raises confidence", 0.85, feedback("正确", "result correct"), 0.95, true},
		{"correct caps at maximum", 0.95, feedback("Well done", "success"), 1.0, true},
		{"no feedback shown", 0.9, nil, 0.9, false},
		{"feedback without verdict", 0.9, feedback("Submitted", "feedback-panel"), 0.9, false},
		{"copyright footer is not a verdict", 0.9, feedback("Copyright 2024", "bright"), 0.9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, DefaultConfig(), cache.Options{})
			id, err := f.store.Put(ctx, capitalQuestionInfo(), "A", tt.confidence)
			require.NoError(t, err)

			p := choicePage().Returns(page.ScriptFeedback, tt.feedback)
			res := f.orch.Process(ctx, p)

			require.True(t, res.Success(), "failure: %v", res.Failure)
			assert.Equal(t, StrategyCached, res.Strategy)
			assert.Equal(t, "A", res.Answer)
			assert.True(t, res.Submitted)
			assert.Equal(t, id, res.EntryID)
			assert.Equal(t, []string{`input[value="A"]`, submitButton}, p.ClickCalls())

			e, ok := f.store.Entry(id)
			require.True(t, ok)
			assert.InDelta(t, tt.want, e.Confidence, 1e-9)
			assert.Equal(t, tt.verified, e.Verified)

			st := f.orch.Stats()
			assert.Equal(t, 1, st.CacheHits)
			assert.Equal(t, 0, st.ExtractionsAttempted)
			if tt.verified {
				assert.Equal(t, 1, st.AnswersVerified)
			} else {
				assert.Equal(t, 0, st.AnswersVerified)
			}
		})
	}
}

func TestProcess_CachedFuzzyHitVerifiesMatchedEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), cache.Options{})

	stored := capitalQuestionInfo()
	stored.Text = "What is the capital city of China?"
	id, err := f.store.Put(ctx, stored, "A", 0.9)
	require.NoError(t, err)

	p := choicePage().Returns(page.ScriptFeedback, feedback("incorrect", ""))
	res := f.orch.Process(ctx, p)
	require.True(t, res.Success())
	assert.Equal(t, id, res.EntryID)

	e, _ := f.store.Entry(id)
	assert.InDelta(t, 0.7, e.Confidence, 1e-9)
	assert.True(t, e.Verified)
}

func TestProcess_AutoVerifyDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.AutoVerify = false
	f := newFixture(t, cfg, cache.Options{})
	id, err := f.store.Put(ctx, capitalQuestionInfo(), "A", 0.9)
	require.NoError(t, err)

	res := f.orch.Process(ctx, choicePage().Returns(page.ScriptFeedback, feedback("wrong", "")))
	require.True(t, res.Success())

	e, _ := f.store.Entry(id)
	assert.InDelta(t, 0.9, e.Confidence, 1e-9)
	assert.False(t, e.Verified)
}

func TestProcess_AutoSubmitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.AutoSubmit = false
	f := newFixture(t, cfg, cache.Options{})
	_, err := f.store.Put(ctx, capitalQuestionInfo(), "C", 0.9)
	require.NoError(t, err)

	p := choicePage()
	res := f.orch.Process(ctx, p)
	require.True(t, res.Success())
	assert.True(t, res.Submitted)
	assert.Equal(t, []string{`input[value="C"]`}, p.ClickCalls())
}

func TestProcess_Extracted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), cache.Options{})

	p := choicePage()
	p.OnClick = func(f *pagetest.Fake, selector string) {
		if selector == submitButton {
			f.PushJSON("https://example.com/api/check", `{"code": 0, "data": {"correct_answer": "B"}}`)
		}
	}

	res := f.orch.Process(ctx, p)
	require.True(t, res.Success(), "failure: %v", res.Failure)
	assert.Equal(t, StrategyExtracted, res.Strategy)
	assert.Equal(t, "B", res.Answer)
	assert.True(t, res.Submitted)
	assert.Equal(t, 1, p.ReloadCount(), "page is reloaded between trial and real answer")
	assert.Equal(t, []string{
		page.Nth(page.ChoiceInputs, 0), submitButton,
		`input[value="B"]`, submitButton,
	}, p.ClickCalls())

	e, ok := f.store.Entry(res.EntryID)
	require.True(t, ok)
	assert.Equal(t, "B", e.CorrectAnswer)
	assert.InDelta(t, 0.8, e.Confidence, 1e-9)
	assert.False(t, e.Verified)
	assert.Equal(t, 1, f.store.Len())

	st := f.orch.Stats()
	assert.Equal(t, 1, st.CacheMisses)
	assert.Equal(t, 1, st.ExtractionsAttempted)
	assert.Equal(t, 1, st.ExtractionsSuccessful)
	assert.Equal(t, 1, st.Answered[StrategyExtracted])

	// The next render of the same question is served from the cache.
	p2 := choicePage()
	res = f.orch.Process(ctx, p2)
	require.True(t, res.Success())
	assert.Equal(t, StrategyCached, res.Strategy)
	assert.Equal(t, "B", res.Answer)
}

func TestProcess_ExtractedWithoutSinkStoresAnswer(t *testing.T) {
	ctx := context.Background()
	store, err := cache.New(ctx, cache.NewMemoryBackend(), cache.Options{}, nil, nil)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.InitialConfidence = 0.6
	o := New(store, extractor.New(extractor.Options{}, nil, nil), cfg, nil, nil)

	p := choicePage()
	p.OnClick = func(f *pagetest.Fake, selector string) {
		if selector == submitButton {
			f.PushJSON("https://example.com/api/check", `{"answer": "D"}`)
		}
	}

	res := o.Process(ctx, p)
	require.True(t, res.Success())
	e, ok := store.Entry(res.EntryID)
	require.True(t, ok)
	assert.Equal(t, "D", e.CorrectAnswer)
	assert.InDelta(t, 0.6, e.Confidence, 1e-9)
}

func TestProcess_FallbackAfterExtractionFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), cache.Options{})

	p := choicePage()
	res := f.orch.Process(ctx, p)

	require.True(t, res.Success())
	assert.Equal(t, StrategyFallback, res.Strategy)
	assert.Equal(t, "A", res.Answer)
	assert.True(t, res.Submitted)
	assert.Equal(t, 3, p.ReloadCount())
	assert.Equal(t, 0, f.store.Len(), "fallback answers are not cached")

	st := f.orch.Stats()
	assert.Equal(t, 1, st.ExtractionsAttempted)
	assert.Equal(t, 0, st.ExtractionsSuccessful)
	assert.Equal(t, 1, st.Answered[StrategyFallback])

	var strategies []string
	for _, e := range f.rec.OfType(types.EventTypeStrategyEnd) {
		strategies = append(strategies, e.Strategy)
	}
	assert.Equal(t, []string{"cached", "extracted", "fallback"}, strategies)
}

type spyExtractor struct {
	calls int
}

func (s *spyExtractor) Extract(context.Context, page.Page, int) (*extractor.Extraction, error) {
	s.calls++
	return nil, &extractor.Failure{Kind: extractor.FailureMining}
}

func TestProcess_UnknownTypeSkipsExtraction(t *testing.T) {
	ctx := context.Background()
	store, err := cache.New(ctx, cache.NewMemoryBackend(), cache.Options{}, nil, nil)
	require.NoError(t, err)
	spy := &spyExtractor{}
	o := New(store, spy, DefaultConfig(), nil, nil)

	t.Run("clicks first interactive element", func(t *testing.T) {
		p := pagetest.New(page.Census{Videos: 1}).
			AllowClick(submitButton).
			Returns(page.ScriptClickFirstInteractive, true)

		res := o.Process(ctx, p)
		require.True(t, res.Success())
		assert.Equal(t, StrategyFallback, res.Strategy)
		assert.True(t, res.Submitted)
	})

	t.Run("nothing to click", func(t *testing.T) {
		p := pagetest.New(page.Census{}).Returns(page.ScriptClickFirstInteractive, false)

		res := o.Process(ctx, p)
		assert.False(t, res.Success())
		assert.Equal(t, StrategyFallback, res.Strategy)
		assert.Equal(t, ReasonNoInteractiveElement, res.Reason())
	})

	assert.Zero(t, spy.calls)
	st := o.Stats()
	assert.Equal(t, 2, st.CacheMisses)
	assert.Equal(t, 0, st.ExtractionsAttempted)
	assert.Equal(t, 1, st.Failed)
}

func TestProcess_CachedFillBlanks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), cache.Options{})

	q := types.QuestionInfo{Type: types.QuestionTypeFillBlank, Text: "He ___ to school and has ___ home.", Unit: "Unit 2", Task: "Unit test"}
	_, err := f.store.Put(ctx, q, "1. went\n2) gone\n", 0.9)
	require.NoError(t, err)

	p := pagetest.New(page.Census{TextInputs: 2}).
		AllowClick(submitButton).
		Returns(page.ScriptPageInfo, map[string]any{"hash": "#/u2/unittest/", "text": q.Text})

	res := f.orch.Process(ctx, p)
	require.True(t, res.Success(), "failure: %v", res.Failure)
	assert.Equal(t, []pagetest.FillCall{
		{Selector: page.Nth(page.TextInputs, 0), Value: "went"},
		{Selector: page.Nth(page.TextInputs, 1), Value: "gone"},
	}, p.FillCalls())
}

func TestFillBlanks_KeepsNumericAnswers(t *testing.T) {
	tests := []struct {
		answer string
		want   []string
	}{
		{"1990", []string{"1990"}},
		{"3 apples", []string{"3 apples"}},
		{"3.14", []string{"3.14"}},
		{"1. 1990\n2) 3 apples", []string{"1990", "3 apples"}},
		{"1.\n2. gone", []string{"gone"}},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			p := pagetest.New(page.Census{TextInputs: 2})
			q := types.QuestionInfo{Type: types.QuestionTypeFillBlank, Blanks: 2}
			require.NoError(t, fillBlanks(context.Background(), p, q, tt.answer))

			var got []string
			for _, c := range p.FillCalls() {
				got = append(got, c.Value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcess_CachedFillFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), cache.Options{})
	_, err := f.store.Put(ctx, capitalQuestionInfo(), "E", 0.9)
	require.NoError(t, err)

	// No option matches "E" and nothing in the responses reveals the answer.
	p := choicePage()
	res := f.orch.Process(ctx, p)

	assert.Equal(t, StrategyFallback, res.Strategy)
	assert.True(t, res.Success())
	st := f.orch.Stats()
	assert.Equal(t, 1, st.CacheHits)
	assert.Equal(t, 1, st.ExtractionsAttempted)
}

func TestProcess_FallbackTranslationLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		hint string
		want string
	}{
		{"chinese source", "请翻译：我爱学习", "translation", placeholderEnglishTranslation},
		{"english source", "Translate: I love learning", "translation", placeholderChineseTranslation},
		{"essay in english", "Write about your hometown", "essay", placeholderChineseEssay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(newFixture(t, DefaultConfig(), cache.Options{}).store, &spyExtractor{}, DefaultConfig(), nil, nil)
			p := pagetest.New(page.Census{Textareas: 1, TextareaHint: tt.hint}).
				AllowClick(submitButton).
				Returns(page.ScriptPageInfo, map[string]any{"text": tt.text})

			res := o.Process(context.Background(), p)
			require.True(t, res.Success())
			assert.Equal(t, tt.want, res.Answer)
			assert.Equal(t, []pagetest.FillCall{{Selector: page.Textarea, Value: tt.want}}, p.FillCalls())
		})
	}
}

func TestProcess_FallbackBlanks(t *testing.T) {
	o := New(newFixture(t, DefaultConfig(), cache.Options{}).store, &spyExtractor{}, DefaultConfig(), nil, nil)
	p := pagetest.New(page.Census{TextInputs: 2}).Returns(page.ScriptPageInfo, map[string]any{"text": "Fill"})

	res := o.Process(context.Background(), p)
	require.True(t, res.Success())
	assert.False(t, res.Submitted, "no submit control on the page")
	assert.Equal(t, "answer1\nanswer2", res.Answer)
}

func TestProcess_RecoversPanics(t *testing.T) {
	f := newFixture(t, DefaultConfig(), cache.Options{})
	p := pagetest.New(page.Census{Radios: 1}).Script(page.ScriptPageInfo, func(any) (any, error) {
		panic("driver exploded")
	})

	var res Result
	require.NotPanics(t, func() { res = f.orch.Process(context.Background(), p) })
	assert.False(t, res.Success())
	assert.Equal(t, StrategyCached, res.Strategy)
	assert.Equal(t, ReasonPanic, res.Reason())
	assert.ErrorContains(t, res.Failure, "driver exploded")
	assert.Equal(t, 1, f.orch.Stats().Failed)
}

func TestOrchestrator_ReportAndClose(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), cache.BackupFile)
	f := newFixture(t, DefaultConfig(), cache.Options{BackupPath: path})
	_, err := f.store.Put(ctx, capitalQuestionInfo(), "A", 0.9)
	require.NoError(t, err)

	f.orch.Process(ctx, choicePage())
	f.orch.Process(ctx, pagetest.New(page.Census{Videos: 1}))

	r := f.orch.Report()
	assert.InDelta(t, 0.5, r.CacheHitRate, 1e-9)
	assert.Equal(t, 0.0, r.ExtractionSuccessRate)
	assert.Equal(t, 1, r.Cache.TotalEntries)

	require.NoError(t, f.orch.Close(ctx))
	assert.FileExists(t, path)
}

func TestJudgeFeedback(t *testing.T) {
	tests := []struct {
		in      string
		correct bool
		matched bool
	}{
		{"Correct!", true, true},
		{"回答正确", true, true},
		{"you are right", true, true},
		{"feedback right", true, true},
		{"success", true, true},
		{"Incorrect", false, true},
		{"回答错误", false, true},
		{"不正确", false, true},
		{"Wrong answer", false, true},
		{"network error", false, true},
		{"submitted", false, false},
		{"copyright 2024", false, false},
		{"bright-theme", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			correct, matched := judgeFeedback(tt.in)
			assert.Equal(t, tt.correct, correct)
			assert.Equal(t, tt.matched, matched)
		})
	}
}

func TestFillChoiceByOptionText(t *testing.T) {
	var clicked any
	p := pagetest.New(page.Census{Radios: 4}).Script(page.ScriptClickChoiceIndex, func(arg any) (any, error) {
		clicked = arg
		return true, nil
	})
	q := types.QuestionInfo{Type: types.QuestionTypeMultipleChoice, Options: []string{"A. Beijing", "B. Shanghai"}}

	require.NoError(t, fillAnswer(context.Background(), p, q, "Shanghai"))
	assert.Equal(t, 1, clicked)
}
