package textproc

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercase", "Blue Chair", "blue chair"},
		{"punctuation", "Blue-Chair, (velvet)!", "blue chair velvet"},
		{"whitespace runs", "  a \t\n b  ", "a b"},
		{"digits kept", "Model X2000", "model x2000"},
		{"non ascii letters dropped", "café crème", "caf cr me"},
		{"only symbols", "!!! ???", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, s := range []string{"Blue  Velvet!!", "x__y", "ÀÉÎ 123", "", "  lead trail  "} {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}

type label string

func (l label) String() string { return "Label:" + string(l) }

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "", Text(math.NaN()))
	assert.Equal(t, "", Text(math.Inf(1)))
	assert.Equal(t, "", Text(struct{}{}))
	assert.Equal(t, "abc", Text("abc"))
	assert.Equal(t, "42", Text(42))
	assert.Equal(t, "3", Text(3.0))
	assert.Equal(t, "2.5", Text(float32(2.5)))
	assert.Equal(t, "true", Text(true))
	assert.Equal(t, "Label:x", Text(label("x")))
	assert.Equal(t, "1m0s", Text(time.Minute))
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "", NormalizeValue(nil))
	assert.Equal(t, "label x", NormalizeValue(label("x")))
}

func TestTokenize(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("  ...  "))
	assert.Equal(t, []string{"blue", "velvet", "chair"}, Tokenize("Blue velvet-CHAIR"))
}

func TestCharNGrams(t *testing.T) {
	assert.Equal(t, []string{"blu", "lue", "ue_", "e_c", "_ch", "cha", "hai", "air"}, CharNGrams("Blue chair", 3))
	assert.Empty(t, CharNGrams("ab", 3))
	assert.Empty(t, CharNGrams("abc", 0))
	assert.Equal(t, []string{"abc"}, CharNGrams("ABC", 3))
}

func TestWordNGrams(t *testing.T) {
	tokens := []string{"blue", "velvet", "chair"}
	assert.Equal(t,
		[]string{"blue", "velvet", "chair", "blue velvet", "velvet chair"},
		WordNGrams(tokens, 1, 2),
	)
	assert.Equal(t, []string{"blue velvet chair"}, WordNGrams(tokens, 3, 5))
	assert.Empty(t, WordNGrams(nil, 1, 2))
	assert.Empty(t, WordNGrams(tokens, 2, 1))
}
