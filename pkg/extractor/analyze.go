package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/entrhq/autoanswer/pkg/page"
	"github.com/entrhq/autoanswer/pkg/types"
)

var unitPattern = regexp.MustCompile(`/u(\d+)/`)

// translationHints mark a textarea as a translation answer field.
var translationHints = []string{"translation", "translate", "翻译"}

// classifiers are checked in order; the first match decides the type.
var classifiers = []struct {
	qt    types.QuestionType
	match func(page.Census) bool
}{
	{types.QuestionTypeMultipleChoice, func(c page.Census) bool { return c.Choices() > 0 }},
	{types.QuestionTypeFillBlank, func(c page.Census) bool { return c.TextInputs > 0 }},
	{types.QuestionTypeTranslation, func(c page.Census) bool { return c.Textareas > 0 && hasTranslationHint(c.TextareaHint) }},
	{types.QuestionTypeEssay, func(c page.Census) bool { return c.Textareas > 0 }},
}

// Classify maps an element census to a question type.
// Pages with only videos or no controls at all are Unknown.
func Classify(c page.Census) types.QuestionType {
	for _, cl := range classifiers {
		if cl.match(c) {
			return cl.qt
		}
	}
	return types.QuestionTypeUnknown
}

func hasTranslationHint(hint string) bool {
	hint = strings.ToLower(hint)
	for _, kw := range translationHints {
		if strings.Contains(hint, kw) {
			return true
		}
	}
	return false
}

// Location derives the unit and task labels from a page location hash such
// as "#/u3/iexplore1/before/...".
func Location(hash string) (unit, task string) {
	if m := unitPattern.FindStringSubmatch(hash); m != nil {
		unit = "Unit " + m[1]
	}

	h := strings.ToLower(hash)
	phase := "Reviewing after class"
	if strings.Contains(h, "before") {
		phase = "Learning before class"
	}
	switch {
	case strings.Contains(h, "iexplore1"):
		task = "iExplore 1: " + phase
	case strings.Contains(h, "iexplore2"):
		task = "iExplore 2: " + phase
	case strings.Contains(h, "unittest"):
		task = "Unit test"
	}
	return unit, task
}

// Analyze reads the rendered question into a fresh QuestionInfo.
// The returned census is the one the type was classified from.
func Analyze(ctx context.Context, p page.Page) (types.QuestionInfo, page.Census, error) {
	census, err := p.Census(ctx)
	if err != nil {
		return types.QuestionInfo{}, census, fmt.Errorf("count page controls: %w", err)
	}

	raw, err := p.Evaluate(ctx, page.ScriptPageInfo, nil)
	if err != nil {
		return types.QuestionInfo{}, census, fmt.Errorf("read page info: %w", err)
	}
	info, _ := raw.(map[string]any)

	q := types.QuestionInfo{
		ID:     uuid.New().String(),
		Type:   Classify(census),
		Text:   stringField(info, "text"),
		Blanks: census.TextInputs,
	}
	q.Unit, q.Task = Location(stringField(info, "hash"))
	if q.Type == types.QuestionTypeMultipleChoice {
		q.Options = stringsField(info, "options")
	}
	return q, census, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func stringsField(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
