package answering

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/entrhq/autoanswer/pkg/page"
	"github.com/entrhq/autoanswer/pkg/types"
)

// Placeholder answers used when nothing better is known.
const (
	placeholderEnglishTranslation = "This is a placeholder translation. Please provide the correct translation."
	placeholderChineseTranslation = "这是一个占位翻译，请提供正确的译文。"
	placeholderEnglishEssay       = "This is a placeholder essay. Please provide the correct content."
	placeholderChineseEssay       = "这是一个占位作文，请提供正确的内容。"
)

type fallbackFunc func(ctx context.Context, p page.Page, q types.QuestionInfo, c page.Census) (string, *Failure)

// fallbacks guess an answer per type without consulting the cache.
var fallbacks = map[types.QuestionType]fallbackFunc{
	types.QuestionTypeMultipleChoice: fallbackChoice,
	types.QuestionTypeFillBlank:      fallbackBlanks,
	types.QuestionTypeTranslation:    fallbackText(placeholderEnglishTranslation, placeholderChineseTranslation),
	types.QuestionTypeEssay:          fallbackText(placeholderEnglishEssay, placeholderChineseEssay),
	types.QuestionTypeUnknown:        fallbackInteract,
}

func fallbackChoice(ctx context.Context, p page.Page, _ types.QuestionInfo, _ page.Census) (string, *Failure) {
	if err := page.ClickChoice(ctx, p, "A", 0); err != nil {
		return "", fail(ReasonNoOptions, err)
	}
	return "A", nil
}

func fallbackBlanks(ctx context.Context, p page.Page, _ types.QuestionInfo, c page.Census) (string, *Failure) {
	if c.TextInputs == 0 {
		return "", fail(ReasonNoInputs, nil)
	}
	values := make([]string, c.TextInputs)
	for i := range values {
		values[i] = fmt.Sprintf("answer%d", i+1)
		if err := p.Fill(ctx, page.Nth(page.TextInputs, i), values[i]); err != nil {
			return "", fail(ReasonNoInputs, err)
		}
	}
	return strings.Join(values, "\n"), nil
}

// fallbackText answers in the language opposite to the question text.
func fallbackText(english, chinese string) fallbackFunc {
	return func(ctx context.Context, p page.Page, q types.QuestionInfo, c page.Census) (string, *Failure) {
		if c.Textareas == 0 {
			return "", fail(ReasonNoTextarea, nil)
		}
		text := chinese
		if containsHan(q.Text) {
			text = english
		}
		if err := p.Fill(ctx, page.Textarea, text); err != nil {
			return "", fail(ReasonNoTextarea, err)
		}
		return text, nil
	}
}

func fallbackInteract(ctx context.Context, p page.Page, _ types.QuestionInfo, _ page.Census) (string, *Failure) {
	v, err := p.Evaluate(ctx, page.ScriptClickFirstInteractive, nil)
	if err != nil {
		return "", fail(ReasonDriverError, err)
	}
	if ok, _ := v.(bool); !ok {
		return "", fail(ReasonNoInteractiveElement, nil)
	}
	return "", nil
}

func containsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
