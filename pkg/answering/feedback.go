package answering

import (
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/entrhq/autoanswer/pkg/page"
)

// Keywords in a feedback element's text or class. Negative keywords are
// checked first because "incorrect" contains "correct". Word keywords must
// match a whole token so "copyright" does not read as "right".
var (
	negativeFeedback = []string{"incorrect", "wrong", "error", "错误", "不正确"}
	positiveFeedback = []string{"correct", "success", "正确"}
	positiveWords    = []string{"right"}
)

// readFeedback looks for a correctness indicator on the page. ok is false
// when the page shows none, or shows an element without a verdict keyword.
func readFeedback(ctx context.Context, p page.Page) (correct, ok bool, err error) {
	v, err := p.Evaluate(ctx, page.ScriptFeedback, nil)
	if err != nil {
		return false, false, err
	}
	fb, isMap := v.(map[string]any)
	if !isMap {
		return false, false, nil
	}
	text, _ := fb["text"].(string)
	class, _ := fb["className"].(string)
	correct, ok = judgeFeedback(text + " " + class)
	return correct, ok, nil
}

// judgeFeedback reports whether feedback text signals a correct answer.
// matched is false when s carries no verdict keyword at all.
func judgeFeedback(s string) (correct, matched bool) {
	s = strings.ToLower(s)
	for _, kw := range negativeFeedback {
		if strings.Contains(s, kw) {
			return false, true
		}
	}
	for _, kw := range positiveFeedback {
		if strings.Contains(s, kw) {
			return true, true
		}
	}
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if slices.Contains(positiveWords, tok) {
			return true, true
		}
	}
	return false, false
}
