package extractor

import (
	"context"
	"fmt"

	"github.com/entrhq/autoanswer/pkg/page"
	"github.com/entrhq/autoanswer/pkg/types"
)

// Placeholder texts entered as throwaway answers.
const (
	TrialTranslation = "This is a placeholder translation."
	TrialEssay       = "This is a placeholder essay content."
)

type trialFunc func(ctx context.Context, p page.Page, c page.Census) error

// trialFillers enter a non-committal answer for each answerable type.
var trialFillers = map[types.QuestionType]trialFunc{
	types.QuestionTypeMultipleChoice: trialChoice,
	types.QuestionTypeFillBlank:      trialBlanks,
	types.QuestionTypeTranslation:    trialText(TrialTranslation),
	types.QuestionTypeEssay:          trialText(TrialEssay),
}

func trialFill(ctx context.Context, p page.Page, qt types.QuestionType, c page.Census) error {
	fill, ok := trialFillers[qt]
	if !ok {
		return fmt.Errorf("no trial answer for %s questions", qt)
	}
	return fill(ctx, p, c)
}

func trialChoice(ctx context.Context, p page.Page, _ page.Census) error {
	if err := p.Click(ctx, page.Nth(page.ChoiceInputs, 0)); err == nil {
		return nil
	}
	return page.ClickChoiceIndex(ctx, p, 0)
}

func trialBlanks(ctx context.Context, p page.Page, c page.Census) error {
	for i := 0; i < c.TextInputs; i++ {
		if err := p.Fill(ctx, page.Nth(page.TextInputs, i), fmt.Sprintf("placeholder_%d", i+1)); err != nil {
			return fmt.Errorf("fill blank %d: %w", i+1, err)
		}
	}
	return nil
}

func trialText(text string) trialFunc {
	return func(ctx context.Context, p page.Page, _ page.Census) error {
		return p.Fill(ctx, page.Textarea, text)
	}
}
