// Package textproc normalises free text and splits it into the word and
// character n-grams the retrieval indexes and graded metrics work on.
package textproc

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// JoinMarker replaces spaces before character n-grams are cut.
const JoinMarker = '_'

// Normalize lowercases text, turns every rune outside [a-z0-9] and
// whitespace into a space, collapses whitespace runs and trims. It is
// idempotent.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// Text coerces a loosely typed field value to a string. Missing, NaN,
// infinite and unsupported values become "".
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return ""
	}
}

func formatFloat(f float64, bits int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// NormalizeValue is Normalize(Text(v)).
func NormalizeValue(v any) string {
	return Normalize(Text(v))
}

// Tokenize normalises text and splits it on whitespace.
func Tokenize(text string) []string {
	return strings.Fields(Normalize(text))
}

// CharNGrams returns every contiguous substring of length n of the
// normalised text with spaces replaced by JoinMarker.
func CharNGrams(text string, n int) []string {
	return charNGrams(joined(Normalize(text)), n)
}

// JoinedText is the normalised text with spaces replaced by JoinMarker, the
// form CharNGrams cuts from.
func JoinedText(text string) string {
	return joined(Normalize(text))
}

func joined(normalized string) string {
	return strings.ReplaceAll(normalized, " ", string(JoinMarker))
}

// CharNGramsOf cuts n-grams from text that is already in joined form.
func CharNGramsOf(joinedText string, n int) []string {
	return charNGrams(joinedText, n)
}

func charNGrams(s string, n int) []string {
	if n <= 0 || len(s) < n {
		return nil
	}
	grams := make([]string, 0, len(s)-n+1)
	for i := 0; i+n <= len(s); i++ {
		grams = append(grams, s[i:i+n])
	}
	return grams
}

// WordNGrams returns the contiguous n-grams of tokens for every n in
// [minN, maxN], joined by single spaces, shortest first.
func WordNGrams(tokens []string, minN, maxN int) []string {
	if minN < 1 {
		minN = 1
	}
	if maxN < minN || len(tokens) == 0 {
		return nil
	}
	var grams []string
	for n := minN; n <= maxN && n <= len(tokens); n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if n == 1 {
				grams = append(grams, tokens[i])
				continue
			}
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}
