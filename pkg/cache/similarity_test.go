package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "hello", "hello", 1},
		{"empty left", "", "hello", 0},
		{"empty right", "hello", "", 0},
		{"case insensitive", "Hello World", "hello world", 1},
		{"whitespace ignored", "hello   world\n", "helloworld", 1},
		{"full width folded", "ＡＢＣ", "abc", 1},
		{"exactly 0.8", "abcdefghij", "abcdefghxy", 0.8},
		{"0.79", strings.Repeat("a", 79) + strings.Repeat("b", 21), strings.Repeat("a", 79) + strings.Repeat("c", 21), 0.79},
		{"disjoint", "abc", "xyz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	a := "What is the capital of China?"
	b := "What is the capital city of China?"
	assert.Equal(t, Similarity(a, b), Similarity(b, a))
	assert.Greater(t, Similarity(a, b), 0.8)
}

func TestKey(t *testing.T) {
	k1 := Key("Unit 1", "iExplore 1", "question")
	k2 := Key("Unit 1", "iExplore 1", "question")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)

	assert.NotEqual(t, k1, Key("Unit 2", "iExplore 1", "question"))
	assert.NotEqual(t, k1, Key("Unit 1", "Unit test", "question"))

	// Only the first 200 characters take part.
	prefix := strings.Repeat("题", 200)
	assert.Equal(t, Key("u", "t", prefix+"one ending"), Key("u", "t", prefix+"another ending"))
	assert.NotEqual(t, Key("u", "t", prefix[:len(prefix)-3]+"x"), Key("u", "t", prefix))
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, MinConfidence, ClampConfidence(-3))
	assert.Equal(t, MaxConfidence, ClampConfidence(1.5))
	assert.Equal(t, 0.5, ClampConfidence(0.5))
}
