package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/autoanswer/pkg/page"
	"github.com/entrhq/autoanswer/pkg/page/pagetest"
	"github.com/entrhq/autoanswer/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		census page.Census
		want   types.QuestionType
	}{
		{"radios", page.Census{Radios: 4}, types.QuestionTypeMultipleChoice},
		{"checkboxes", page.Census{Checkboxes: 3}, types.QuestionTypeMultipleChoice},
		{"choices win over inputs", page.Census{Radios: 2, TextInputs: 1, Textareas: 1}, types.QuestionTypeMultipleChoice},
		{"text inputs", page.Census{TextInputs: 5}, types.QuestionTypeFillBlank},
		{"translation placeholder", page.Census{Textareas: 1, TextareaHint: "please enter your translation"}, types.QuestionTypeTranslation},
		{"translation chinese", page.Census{Textareas: 1, TextareaHint: "请输入翻译"}, types.QuestionTypeTranslation},
		{"translate class", page.Census{Textareas: 1, TextareaHint: " answer-translate-box"}, types.QuestionTypeTranslation},
		{"essay", page.Census{Textareas: 1, TextareaHint: "write at least 120 words"}, types.QuestionTypeEssay},
		{"videos only", page.Census{Videos: 2}, types.QuestionTypeUnknown},
		{"empty", page.Census{}, types.QuestionTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.census))
			assert.Equal(t, tt.want, Classify(tt.census), "classification is deterministic")
		})
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		hash string
		unit string
		task string
	}{
		{"#/u1/iexplore1/before/task3", "Unit 1", "iExplore 1: Learning before class"},
		{"#/u12/iexplore1/after", "Unit 12", "iExplore 1: Reviewing after class"},
		{"#/u4/iExplore2/before", "Unit 4", "iExplore 2: Learning before class"},
		{"#/u4/iexplore2/review", "Unit 4", "iExplore 2: Reviewing after class"},
		{"#/u8/unittest/part1", "Unit 8", "Unit test"},
		{"#/home", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.hash, func(t *testing.T) {
			unit, task := Location(tt.hash)
			assert.Equal(t, tt.unit, unit)
			assert.Equal(t, tt.task, task)
		})
	}
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	p := pagetest.New(page.Census{Radios: 2}).Returns(page.ScriptPageInfo, map[string]any{
		"hash":    "#/u3/unittest/",
		"text":    "  Which is a fruit?  ",
		"options": []any{"A. apple", "B. brick", ""},
	})

	q, census, err := Analyze(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 2, census.Radios)
	assert.Equal(t, types.QuestionTypeMultipleChoice, q.Type)
	assert.Equal(t, "Which is a fruit?", q.Text)
	assert.Equal(t, "Unit 3", q.Unit)
	assert.Equal(t, "Unit test", q.Task)
	assert.Equal(t, []string{"A. apple", "B. brick"}, q.Options)
	assert.NotEmpty(t, q.ID)

	again, _, err := Analyze(ctx, p)
	require.NoError(t, err)
	assert.NotEqual(t, q.ID, again.ID, "every analysis is a fresh question instance")
}

func TestAnalyze_FillBlankCountsBlanks(t *testing.T) {
	p := pagetest.New(page.Census{TextInputs: 3}).Returns(page.ScriptPageInfo, map[string]any{"text": "Fill in"})

	q, _, err := Analyze(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, types.QuestionTypeFillBlank, q.Type)
	assert.Equal(t, 3, q.Blanks)
	assert.Nil(t, q.Options)
}

func TestAnalyze_DriverErrors(t *testing.T) {
	p := pagetest.New(page.Census{})
	p.CensusErr = errors.New("target closed")
	_, _, err := Analyze(context.Background(), p)
	assert.ErrorContains(t, err, "target closed")

	p = pagetest.New(page.Census{Radios: 1}).Script(page.ScriptPageInfo, func(any) (any, error) {
		return nil, errors.New("execution context destroyed")
	})
	_, _, err = Analyze(context.Background(), p)
	assert.ErrorContains(t, err, "read page info")
}
