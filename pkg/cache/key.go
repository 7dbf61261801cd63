package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/entrhq/autoanswer/pkg/types"
)

// keyTextLimit is how many characters of question text take part in the key.
const keyTextLimit = 200

// Key derives the cache key for a question: the SHA-256 of
// "<unit>_<task>_<first 200 characters of text>".
//
// Options and the rest of the text are deliberately left out, so distinct
// questions sharing a long prefix in the same unit and task collide.
// Fuzzy matching in Lookup absorbs small variations in the other direction.
func Key(unit, task, text string) string {
	runes := []rune(text)
	if len(runes) > keyTextLimit {
		runes = runes[:keyTextLimit]
	}

	normalized := unit + "_" + task + "_" + string(runes)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// KeyFor derives the cache key for a question instance.
func KeyFor(q types.QuestionInfo) string {
	return Key(q.Unit, q.Task, q.Text)
}
