package types

import "strings"

// QuestionType identifies the kind of interaction a rendered question expects.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice" // QuestionTypeMultipleChoice is answered by clicking radio or checkbox controls.
	QuestionTypeFillBlank      QuestionType = "fill_blank"      // QuestionTypeFillBlank is answered with one value per text input.
	QuestionTypeTranslation    QuestionType = "translation"     // QuestionTypeTranslation is answered with free text in a translation textarea.
	QuestionTypeEssay          QuestionType = "essay"           // QuestionTypeEssay is answered with free text in a textarea.
	QuestionTypeUnknown        QuestionType = "unknown"         // QuestionTypeUnknown means no recognizable answer controls were found.
)

// QuestionTypes lists every known variant, unknown last.
var QuestionTypes = []QuestionType{
	QuestionTypeMultipleChoice,
	QuestionTypeFillBlank,
	QuestionTypeTranslation,
	QuestionTypeEssay,
	QuestionTypeUnknown,
}

// ParseQuestionType maps a stored string back to a variant.
// Anything unrecognized becomes QuestionTypeUnknown.
func ParseQuestionType(s string) QuestionType {
	qt := QuestionType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range QuestionTypes {
		if qt == known {
			return qt
		}
	}
	return QuestionTypeUnknown
}

// String returns the stored representation of the type.
func (t QuestionType) String() string {
	return string(t)
}

// Known reports whether the type is anything other than unknown.
func (t QuestionType) Known() bool {
	return t != QuestionTypeUnknown && t != ""
}

// IsFreeText reports whether the type is answered through a single textarea.
func (t QuestionType) IsFreeText() bool {
	return t == QuestionTypeTranslation || t == QuestionTypeEssay
}

// QuestionInfo describes one rendered question instance.
// It is rebuilt every time a page is analyzed and never persisted directly.
type QuestionInfo struct {
	// ID is an ephemeral identifier for this render of the question.
	ID string

	// Type is the classified question variant.
	Type QuestionType

	// Text is the raw question text as read from the page.
	Text string

	// Options holds the choice labels for multiple-choice questions.
	Options []string

	// Unit, Task and SubTask locate the question within the course.
	Unit    string
	Task    string
	SubTask string

	// Blanks is the number of text inputs found for fill-blank questions.
	Blanks int
}
