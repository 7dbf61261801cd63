package answering

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/entrhq/autoanswer/pkg/page"
	"github.com/entrhq/autoanswer/pkg/types"
)

// errNothingFilled is returned when no part of an answer reached the page.
var errNothingFilled = errors.New("no answer control accepted the value")

// listNumbering matches "1. " and "2)" prefixes on fill-blank lines. A bare
// number such as "1990" or "3.14" is an answer and stays.
var listNumbering = regexp.MustCompile(`^\d+(?:\)|\.(?:\s|$))\s*`)

type fillFunc func(ctx context.Context, p page.Page, q types.QuestionInfo, answer string) error

// fillers enter a real answer for each answerable type.
var fillers = map[types.QuestionType]fillFunc{
	types.QuestionTypeMultipleChoice: fillChoice,
	types.QuestionTypeFillBlank:      fillBlanks,
	types.QuestionTypeTranslation:    fillText,
	types.QuestionTypeEssay:          fillText,
}

func fillAnswer(ctx context.Context, p page.Page, q types.QuestionInfo, answer string) error {
	fill, ok := fillers[q.Type]
	if !ok {
		return fmt.Errorf("cannot fill %s questions", q.Type)
	}
	return fill(ctx, p, q, answer)
}

// fillChoice clicks each choice named in answer. Letters select by value
// or position; other text selects the option whose label contains it.
func fillChoice(ctx context.Context, p page.Page, q types.QuestionInfo, answer string) error {
	clicked := 0
	for i, choice := range strings.Fields(answer) {
		choice = strings.ToUpper(strings.Trim(choice, ".,;，；"))
		if len(choice) != 1 || !strings.Contains("ABCD", choice) {
			continue
		}
		if err := page.ClickChoice(ctx, p, choice, i); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		clicked++
	}
	if clicked > 0 {
		return nil
	}

	if idx := optionIndex(q.Options, answer); idx >= 0 {
		return page.ClickChoiceIndex(ctx, p, idx)
	}
	return fmt.Errorf("choice %q: %w", answer, errNothingFilled)
}

func optionIndex(options []string, answer string) int {
	answer = strings.ToLower(strings.TrimSpace(answer))
	if len([]rune(answer)) < 2 {
		return -1
	}
	for i, opt := range options {
		if strings.Contains(strings.ToLower(opt), answer) {
			return i
		}
	}
	return -1
}

// fillBlanks writes one answer line per text input, in order, with any
// leading list numbering removed.
func fillBlanks(ctx context.Context, p page.Page, q types.QuestionInfo, answer string) error {
	lines := strings.Split(answer, "\n")
	if q.Blanks > 0 && len(lines) > q.Blanks {
		lines = lines[:q.Blanks]
	}

	filled := 0
	for i, line := range lines {
		value := strings.TrimSpace(listNumbering.ReplaceAllString(strings.TrimSpace(line), ""))
		if value == "" {
			continue
		}
		if err := p.Fill(ctx, page.Nth(page.TextInputs, i), value); err != nil {
			return fmt.Errorf("fill blank %d: %w", i+1, err)
		}
		filled++
	}
	if filled == 0 {
		return errNothingFilled
	}
	return nil
}

func fillText(ctx context.Context, p page.Page, _ types.QuestionInfo, answer string) error {
	return p.Fill(ctx, page.Textarea, answer)
}
