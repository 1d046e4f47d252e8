package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFeedback_PlainJSON(t *testing.T) {
	fb := parseFeedback(`{"isCorrect":true,"correctedSentence":"Je mange une pomme.","explanation":"Très bien.","encouragement":"Continue !"}`)
	assert.True(t, fb.IsCorrect)
	assert.Equal(t, "Je mange une pomme.", fb.CorrectedSentence)
	assert.Equal(t, "Très bien.", fb.Explanation)
	assert.Equal(t, "Continue !", fb.Encouragement)
}

func TestParseFeedback_CodeFence(t *testing.T) {
	fb := parseFeedback("```json\n{\"isCorrect\":false,\"explanation\":\"Accord du participe.\"}\n```")
	assert.False(t, fb.IsCorrect)
	assert.Equal(t, "Accord du participe.", fb.Explanation)
}

func TestParseFeedback_JSONBuriedInProse(t *testing.T) {
	fb := parseFeedback(`Here is my verdict: {"isCorrect":true,"explanation":"Parfait."} Hope that helps!`)
	assert.True(t, fb.IsCorrect)
	assert.Equal(t, "Parfait.", fb.Explanation)
}

func TestParseFeedback_UnparseableFallsBackToRawText(t *testing.T) {
	fb := parseFeedback("The sentence is correct, well done.")
	assert.False(t, fb.IsCorrect)
	assert.Equal(t, "The sentence is correct, well done.", fb.Explanation)
}
