package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \t\n ", ""},
		{"only stop words", "I have been the", ""},
		{"punctuation and digits vanish", "flu-2023!", "flu"},
		{"no space inserted", "back-pain", "backpain"},
		{"stems plurals", "I have leg pains and headaches", "leg pain headach"},
		{"lowercases", "SEVERE Cough", "sever cough"},
		{"non ascii letters dropped", "café pain", "caf pain"},
		{"collapses whitespace", "knee\t\tpain\n", "knee pain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	inputs := []string{
		"Persistent dry cough with wheezing at night",
		"burning sensation while urinating, 3 days",
		"Blurred VISION & headaches!!!",
	}
	for _, in := range inputs {
		first := Normalize(in)
		second := Normalize(in)
		assert.Equal(t, first, second, "input %q", in)
	}
}

func TestNormalize_FixedPointOnCommonTokens(t *testing.T) {
	for _, in := range []string{"leg pain headaches", "chest pain coughing", "knee swelling"} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestTokens(t *testing.T) {
	assert.Nil(t, Tokens("the and of"))
	assert.Equal(t, []string{"leg", "pain"}, Tokens("my leg pains"))
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("wouldn"))
	assert.False(t, IsStopWord("pain"))
}
