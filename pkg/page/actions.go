package page

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoSubmit is returned by Submit when no submit control could be clicked.
var ErrNoSubmit = errors.New("no submit control found")

// Submit clicks the first submit control that accepts a click and returns
// its selector.
func Submit(ctx context.Context, p Page) (string, error) {
	for _, sel := range SubmitSelectors {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := p.Click(ctx, sel); err == nil {
			return sel, nil
		}
	}
	return "", ErrNoSubmit
}

// ClickChoice selects the control for a choice letter. When no selector
// matches the letter it falls back to clicking the index-th choice control.
func ClickChoice(ctx context.Context, p Page, letter string, index int) error {
	for _, sel := range ChoiceSelectors(letter) {
		if err := p.Click(ctx, sel); err == nil {
			return nil
		}
	}
	return ClickChoiceIndex(ctx, p, index)
}

// ClickChoiceIndex clicks the index-th choice control through a script.
func ClickChoiceIndex(ctx context.Context, p Page, index int) error {
	v, err := p.Evaluate(ctx, ScriptClickChoiceIndex, index)
	if err != nil {
		return fmt.Errorf("click choice %d: %w", index, err)
	}
	if ok, _ := v.(bool); !ok {
		return fmt.Errorf("click choice %d: %w", index, ErrNoMatch)
	}
	return nil
}
