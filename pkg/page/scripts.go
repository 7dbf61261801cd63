package page

import (
	"fmt"
	"strings"
)

// Selectors and in-page scripts shared by the extractor and the orchestrator.
// Scripts are arrow functions so drivers can pass a single argument.

// SubmitSelectors are tried in order until one click succeeds.
var SubmitSelectors = []string{
	`button[type="submit"]`,
	`.submit-btn`,
	`.btn-submit`,
	`.btn-primary`,
	`button:has-text("提交")`,
	`button:has-text("Submit")`,
	`[class*="submit"]`,
}

const (
	// ChoiceInputs matches every radio and checkbox control.
	ChoiceInputs = `input[type="radio"], input[type="checkbox"]`

	// TextInputs matches fill-blank text inputs.
	TextInputs = `input[type="text"]`

	// Textarea matches the free-text answer area.
	Textarea = `textarea`
)

// Nth narrows selector to its i-th (0-based) match.
func Nth(selector string, i int) string {
	return fmt.Sprintf("%s >> nth=%d", selector, i)
}

// ChoiceSelectors returns the selectors that identify the control for a
// choice letter such as "B", most specific first.
func ChoiceSelectors(letter string) []string {
	return []string{
		fmt.Sprintf(`input[value="%s"]`, letter),
		fmt.Sprintf(`input[data-option="%s"]`, letter),
		fmt.Sprintf(`.option-%s input`, strings.ToLower(letter)),
	}
}

// ScriptCensus counts answer controls and describes the first textarea.
const ScriptCensus = `() => {
  const ta = document.querySelector('textarea');
  return {
    radios: document.querySelectorAll('input[type="radio"]').length,
    checkboxes: document.querySelectorAll('input[type="checkbox"]').length,
    textInputs: document.querySelectorAll('input[type="text"]').length,
    textareas: document.querySelectorAll('textarea').length,
    videos: document.querySelectorAll('video').length,
    textareaHint: ta ? ((ta.placeholder || '') + ' ' + (ta.className || '')).toLowerCase() : ''
  };
}`

// ScriptPageInfo reads location, title, question text and choice labels.
const ScriptPageInfo = `() => {
  const selectors = ['.question-content', '.question-text', '.problem-content',
    '.item-content', '[class*="question"]', '[class*="problem"]'];
  let text = '';
  for (const s of selectors) {
    const el = document.querySelector(s);
    if (el && el.textContent.trim()) { text = el.textContent.trim(); break; }
  }
  if (!text) {
    const main = document.querySelector('main, .main-content, .content');
    if (main) { text = main.textContent.trim().substring(0, 500); }
  }
  const options = [];
  document.querySelectorAll('label').forEach(label => {
    if (label.querySelector('input[type="radio"], input[type="checkbox"]')) {
      const t = label.textContent.trim();
      if (t) { options.push(t); }
    }
  });
  return { url: window.location.href, hash: window.location.hash, title: document.title, text, options };
}`

// ScriptAnswerBlocks collects text from elements likely to reveal the answer.
const ScriptAnswerBlocks = `() => {
  const selectors = ['.correct-answer', '.answer-display', '.result-content', '.feedback',
    '.explanation', '[class*="correct"]', '[class*="answer"]', '[class*="result"]'];
  const out = [];
  for (const s of selectors) {
    document.querySelectorAll(s).forEach(el => {
      const t = el.textContent.trim();
      if (t) { out.push(t); }
    });
  }
  return out;
}`

// ScriptFeedback returns the first visible correctness indicator, or null.
const ScriptFeedback = `() => {
  const selectors = ['.correct', '.success', '.right', '.incorrect', '.error', '.wrong',
    '[class*="correct"]', '[class*="success"]', '[class*="incorrect"]', '[class*="error"]'];
  for (const s of selectors) {
    const el = document.querySelector(s);
    if (el && el.offsetParent !== null) {
      return { text: el.textContent.trim(), className: String(el.className || '') };
    }
  }
  return null;
}`

// ScriptClickChoiceIndex clicks the i-th choice control and reports success.
const ScriptClickChoiceIndex = `(i) => {
  const inputs = document.querySelectorAll('input[type="radio"], input[type="checkbox"]');
  if (inputs[i]) { inputs[i].click(); return true; }
  return false;
}`

// ScriptClickFirstInteractive clicks the first visible, enabled interactive element.
const ScriptClickFirstInteractive = `() => {
  const els = document.querySelectorAll('input, button, select, textarea, [role="button"], [onclick]');
  for (const el of els) {
    if (el.offsetParent !== null && !el.disabled) { el.click(); return true; }
  }
  return false;
}`
