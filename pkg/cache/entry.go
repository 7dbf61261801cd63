package cache

import (
	"time"

	"github.com/entrhq/autoanswer/pkg/types"
)

const (
	// MinConfidence and MaxConfidence bound every stored confidence.
	MinConfidence = 0.1
	MaxConfidence = 1.0
)

// Entry is a stored answer with its trust and usage metadata.
type Entry struct {
	ID            string             `json:"question_id"`
	Unit          string             `json:"unit"`
	Task          string             `json:"task"`
	SubTask       string             `json:"sub_task"`
	QuestionType  types.QuestionType `json:"question_type"`
	QuestionText  string             `json:"question_text"`
	CorrectAnswer string             `json:"correct_answer"`
	Confidence    float64            `json:"confidence"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	AccessCount   int                `json:"access_count"`
	LastAccessed  time.Time          `json:"last_accessed"`
	Verified      bool               `json:"verified"`
	Metadata      map[string]any     `json:"metadata,omitempty"`
}

// clone returns a copy that shares nothing mutable with e.
func (e Entry) clone() Entry {
	if e.Metadata != nil {
		md := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			md[k] = v
		}
		e.Metadata = md
	}
	return e
}

// ClampConfidence limits c to [MinConfidence, MaxConfidence].
func ClampConfidence(c float64) float64 {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}
